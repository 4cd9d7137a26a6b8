package app

import (
	"context"
	"fmt"

	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/domain"
	"github.com/collabhub/realtime/internal/metrics"
	"github.com/collabhub/realtime/internal/protocol"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Hub is the realtime fan-out service: connection registry, room membership
// table and event router behind one explicitly constructed instance.
type Hub struct {
	Registry *Registry
	Rooms    *core.Table
	Router   *core.Router
	Policy   Policy
	Metrics  *metrics.Registry

	newID func() core.ConnID
}

type Option func(*Hub)

func WithPolicy(p Policy) Option                  { return func(h *Hub) { h.Policy = p } }
func WithMetrics(m *metrics.Registry) Option      { return func(h *Hub) { h.Metrics = m } }
func WithIDGenerator(f func() core.ConnID) Option { return func(h *Hub) { h.newID = f } }

func NewHub(opts ...Option) *Hub {
	table := core.NewTable()
	h := &Hub{
		Registry: NewRegistry(),
		Rooms:    table,
		Router:   core.NewRouter(table),
		Policy:   SimplePolicy{},
		newID:    func() core.ConnID { return core.ConnID(uuid.NewString()) },
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Accept registers a channel whose handshake completed. When userID is set the
// connection joins its personal user room exactly once, here.
func (h *Hub) Accept(userID domain.UserID, ch core.Channel, cancel context.CancelFunc) (*core.Connection, error) {
	var userRoom domain.RoomKey
	if userID != "" {
		room, err := domain.UserRoom(userID)
		if err != nil {
			return nil, err
		}
		userRoom = room
	}
	conn := core.NewConnection(h.newID(), userID, ch)
	h.Registry.Bind(conn, cancel)
	if userRoom != "" {
		h.Rooms.Join(conn, userRoom)
	}
	h.observe()
	log.Info().Str("module", "app.hub").Str("conn", string(conn.ID())).Str("user", string(userID)).Msg("accepted")
	return conn, nil
}

// Close tears a connection down. It has left every room when Close returns.
func (h *Hub) Close(id core.ConnID) {
	conn, cancel, ok := h.Registry.Unbind(id)
	if !ok {
		return
	}
	rooms := h.Rooms.Drop(conn)
	conn.Channel().Close()
	if cancel != nil {
		cancel()
	}
	h.observe()
	log.Info().Str("module", "app.hub").Str("conn", string(id)).Int("rooms", len(rooms)).Msg("closed")
}

// Join is a no-op for unknown or closed connections.
func (h *Hub) Join(id core.ConnID, room domain.RoomKey) bool {
	conn, ok := h.Registry.Get(id)
	if !ok {
		return false
	}
	joined := h.Rooms.Join(conn, room)
	h.observe()
	return joined
}

func (h *Hub) Leave(id core.ConnID, room domain.RoomKey) bool {
	left := h.Rooms.Leave(id, room)
	h.observe()
	return left
}

func (h *Hub) MembersOf(room domain.RoomKey) []*core.Connection {
	return h.Rooms.MembersOf(room)
}

// Publish encodes a typed event and broadcasts it to the event's room.
func (h *Hub) Publish(ev domain.Event, exclude core.ConnID) (core.PublishResult, error) {
	room, err := ev.Room()
	if err != nil {
		return core.PublishResult{}, err
	}
	return h.Broadcast(room, string(ev.Name()), ev.Payload(), exclude)
}

// Broadcast encodes payload once and delivers it to room minus exclude.
// An empty room is the normal case and not an error.
func (h *Hub) Broadcast(room domain.RoomKey, event string, payload any, exclude core.ConnID) (core.PublishResult, error) {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return core.PublishResult{}, err
	}
	return h.BroadcastFrame(room, event, frame, exclude), nil
}

// BroadcastRaw forwards an already encoded payload unchanged.
func (h *Hub) BroadcastRaw(room domain.RoomKey, event string, data []byte, exclude core.ConnID) (core.PublishResult, error) {
	frame, err := protocol.EncodeRaw(event, data)
	if err != nil {
		return core.PublishResult{}, fmt.Errorf("encode %s: %w", event, err)
	}
	return h.BroadcastFrame(room, event, frame, exclude), nil
}

func (h *Hub) BroadcastFrame(room domain.RoomKey, event string, frame core.Frame, exclude core.ConnID) core.PublishResult {
	res := h.Router.Broadcast(room, frame, exclude)
	h.Metrics.ObserveBroadcast(event, res.SendTo, len(res.Dropped))
	if h.Policy == nil {
		return res
	}
	for _, slow := range res.Dropped {
		switch h.Policy.OnBackPressure(room, slow) {
		case KickMember:
			log.Warn().Str("module", "app.hub").Str("conn", string(slow.ID())).Str("room", string(room)).Msg("kicking slow member")
			h.Close(slow.ID())
		case NoAction:
		}
	}
	return res
}

func (h *Hub) Shutdown() {
	for _, id := range h.Registry.IDs() {
		h.Close(id)
	}
	log.Info().Str("module", "app.hub").Msg("hub shut down")
}

func (h *Hub) observe() {
	h.Metrics.SetConnections(h.Registry.Count())
	h.Metrics.SetRooms(h.Rooms.Len())
}
