package client

import (
	"fmt"

	"github.com/collabhub/realtime/internal/domain"
	"github.com/collabhub/realtime/internal/protocol"
	"github.com/rs/zerolog/log"
)

// JoinRoom records the intent to be in room and, when connected, joins now.
// Otherwise the join happens on the next connect.
func (s *Session) JoinRoom(room domain.RoomKey) error {
	frame, err := requestFrame(room, true)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTornDown {
		return ErrTornDown
	}
	s.intent[room] = struct{}{}
	s.sendLocked(frame)
	return nil
}

func (s *Session) LeaveRoom(room domain.RoomKey) error {
	frame, err := requestFrame(room, false)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateTornDown {
		return ErrTornDown
	}
	delete(s.intent, room)
	s.sendLocked(frame)
	return nil
}

func (s *Session) JoinProject(id string) error    { return s.byID(domain.ProjectRoom, id, s.JoinRoom) }
func (s *Session) LeaveProject(id string) error   { return s.byID(domain.ProjectRoom, id, s.LeaveRoom) }
func (s *Session) JoinWorkspace(id string) error  { return s.byID(domain.WorkspaceRoom, id, s.JoinRoom) }
func (s *Session) LeaveWorkspace(id string) error { return s.byID(domain.WorkspaceRoom, id, s.LeaveRoom) }

// Rooms returns the current subscription intent, sorted.
func (s *Session) Rooms() []domain.RoomKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.roomsLocked()
}

func (s *Session) byID(toRoom func(string) (domain.RoomKey, error), id string, apply func(domain.RoomKey) error) error {
	room, err := toRoom(id)
	if err != nil {
		return err
	}
	return apply(room)
}

// sendLocked is best effort: a failed send means the channel is going away and
// the intent is replayed on reconnect.
func (s *Session) sendLocked(frame []byte) {
	if s.state != StateConnected {
		return
	}
	if err := s.conn.Send(frame); err != nil {
		log.Warn().Err(err).Str("module", "client").Msg("room request not sent")
	}
}

// requestFrame builds the join or leave request for room. User rooms are
// joined by the server at handshake and cannot be requested.
func requestFrame(room domain.RoomKey, join bool) ([]byte, error) {
	if _, err := domain.ParseRoomKey(string(room)); err != nil {
		return nil, err
	}
	var event string
	switch room.Namespace() {
	case domain.NamespaceProject:
		event = protocol.LeaveProject
		if join {
			event = protocol.JoinProject
		}
	case domain.NamespaceWorkspace:
		event = protocol.LeaveWorkspace
		if join {
			event = protocol.JoinWorkspace
		}
	default:
		return nil, fmt.Errorf("%w: %q is joined at handshake", domain.ErrInvalidRoomKey, room)
	}
	return protocol.Encode(event, room.ID())
}
