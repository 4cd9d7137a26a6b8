package signal

import (
	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/domain"
	"github.com/collabhub/realtime/internal/protocol"
	"github.com/rs/zerolog/log"
)

type roomOf func(id string) (domain.RoomKey, error)

// handleJoin namespaces the bare id from the payload and subscribes conn.
// The reply is silent on success, as is the reply to leave.
func (ctl *SignalWSController) handleJoin(conn *core.Connection, env protocol.Envelope, toRoom roomOf) {
	room, ok := ctl.roomFromPayload(conn, env, toRoom)
	if !ok {
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(conn.ID())).Str("room", string(room)).Msg("join")
	ctl.Hub.Join(conn.ID(), room)
}

func (ctl *SignalWSController) handleLeave(conn *core.Connection, env protocol.Envelope, toRoom roomOf) {
	room, ok := ctl.roomFromPayload(conn, env, toRoom)
	if !ok {
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(conn.ID())).Str("room", string(room)).Msg("leave")
	ctl.Hub.Leave(conn.ID(), room)
}

// handleSendMessage relays a chat message to its project room, minus the sender.
// The payload is forwarded byte for byte.
func (ctl *SignalWSController) handleSendMessage(conn *core.Connection, env protocol.Envelope) {
	projectID, ok := domain.MessageProjectID(env.Data)
	if !ok {
		ctl.reject(conn, env.Event, "bad_payload", "message has no project")
		return
	}
	room, err := domain.ProjectRoom(projectID)
	if err != nil {
		ctl.reject(conn, env.Event, "bad_room", err.Error())
		return
	}
	res, err := ctl.Hub.BroadcastRaw(room, string(domain.EventReceiveMessage), env.Data, conn.ID())
	if err != nil {
		ctl.reject(conn, env.Event, "bad_payload", err.Error())
		return
	}
	log.Debug().Str("module", "signal").Str("conn", string(conn.ID())).Str("room", string(room)).Int("sent", res.SendTo).Msg("message relayed")
}

func (ctl *SignalWSController) roomFromPayload(conn *core.Connection, env protocol.Envelope, toRoom roomOf) (domain.RoomKey, bool) {
	id, err := env.StringData()
	if err != nil {
		ctl.reject(conn, env.Event, "bad_payload", err.Error())
		return "", false
	}
	room, err := toRoom(id)
	if err != nil {
		ctl.reject(conn, env.Event, "bad_room", err.Error())
		return "", false
	}
	return room, true
}

func (ctl *SignalWSController) reject(conn *core.Connection, request, reason, msg string) {
	log.Warn().Str("module", "signal").Str("conn", string(conn.ID())).Str("request", request).Str("reason", reason).Msg(msg)
	ctl.Hub.Metrics.IncRejected(reason)
	ctl.sendError(conn, request, msg)
}
