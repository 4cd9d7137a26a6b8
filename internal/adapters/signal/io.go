package signal

import (
	"context"
	"time"

	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/domain"
	"github.com/collabhub/realtime/internal/protocol"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, id core.ConnID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		ctl.Hub.Close(id)
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("writePump ctx done")
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.cfg.WriteWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("writePump ping failed")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, member *core.Connection, c *WsSignalConn) {
	id := member.ID()
	defer func() {
		log.Info().Str("module", "signal").Str("conn", string(id)).Msg("readPump closing")
		ctl.limiter.Forget(id)
		ctl.Hub.Close(id)
	}()

	c.conn.SetReadLimit(ctl.cfg.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
	})

	for {
		if ctx.Err() != nil {
			log.Debug().Str("module", "signal").Str("conn", string(id)).Msg("readPump ctx done")
			return
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(id)).Msg("readPump read error")
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(ctl.cfg.PongWait))
		if !ctl.limiter.Allow(id) {
			ctl.Hub.Metrics.IncRejected("rate_limited")
			log.Warn().Str("module", "signal").Str("conn", string(id)).Msg("inbound rate exceeded")
			continue
		}
		ctl.handleSignal(member, data)
	}
}

// handleSignal dispatches one inbound request. A bad request is answered with
// an error frame and never closes the connection.
func (ctl *SignalWSController) handleSignal(conn *core.Connection, data []byte) {
	env, err := protocol.Decode(data)
	if err != nil {
		ctl.reject(conn, "", "malformed", err.Error())
		return
	}

	switch env.Event {
	case protocol.JoinProject:
		ctl.handleJoin(conn, env, domain.ProjectRoom)
	case protocol.LeaveProject:
		ctl.handleLeave(conn, env, domain.ProjectRoom)
	case protocol.JoinWorkspace:
		ctl.handleJoin(conn, env, domain.WorkspaceRoom)
	case protocol.LeaveWorkspace:
		ctl.handleLeave(conn, env, domain.WorkspaceRoom)
	case protocol.SendMessage:
		ctl.handleSendMessage(conn, env)
	case protocol.Ping:
		ctl.handlePing(conn)
	default:
		ctl.reject(conn, env.Event, "unknown_request", "unknown request")
		return
	}
	ctl.Hub.Metrics.IncInbound(env.Event)
}
