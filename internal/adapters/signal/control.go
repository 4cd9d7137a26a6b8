package signal

import (
	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/protocol"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) sendWelcome(c *core.Connection) {
	ctl.sendJSON(c, protocol.Connected, protocol.Welcome{ID: string(c.ID())})
}

func (ctl *SignalWSController) handlePing(c *core.Connection) {
	ctl.sendJSON(c, protocol.Pong, nil)
}

func (ctl *SignalWSController) sendError(c *core.Connection, request, msg string) {
	ctl.sendJSON(c, protocol.Error, protocol.ErrorReply{Request: request, Error: msg})
}

func (ctl *SignalWSController) sendJSON(c *core.Connection, event string, v any) {
	b, err := protocol.Encode(event, v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.Channel().TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(c.ID())).Str("event", event).Msg("sendJSON dropped")
	}
}
