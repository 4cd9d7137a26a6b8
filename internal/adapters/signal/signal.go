package signal

import (
	"context"
	"net/http"
	"sync"

	"github.com/collabhub/realtime/internal/app"
	"github.com/collabhub/realtime/internal/config"
	"github.com/collabhub/realtime/internal/core"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type SignalWSController struct {
	Hub *app.Hub

	cfg      *config.Config
	upgrader websocket.Upgrader
	limiter  *RateLimiter
}

func NewSignalWSController(hub *app.Hub, cfg *config.Config) (*SignalWSController, error) {
	origins, err := NewOriginChecker(cfg.AllowedOrigins)
	if err != nil {
		return nil, err
	}
	return &SignalWSController{
		Hub: hub,
		cfg: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: origins.Check,
		},
		limiter: NewRateLimiter(cfg.InboundRate, cfg.InboundBurst),
	}, nil
}

// WsSignalConn is the core.Channel of one websocket. Frames are queued on a
// bounded buffer drained by writePump; a full buffer is reported, never waited on.
type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return core.ErrConnClosed
	}
	select {
	case c.send <- f:
	default:
		return core.ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and runs the connection until it closes.
// ctx is the server lifetime, not the request's.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	uid, err := userFromRequest(c.Request)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Msg("rejecting handshake")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.cfg.SendBuffer),
	}
	ctx, cancel := context.WithCancel(ctx)
	member, err := ctl.Hub.Accept(uid, conn, cancel)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("accept")
		cancel()
		conn.Close()
		return
	}
	log.Info().Str("module", "signal").Str("conn", string(member.ID())).Str("user", string(uid)).Msg("new WS connection")
	ctl.sendWelcome(member)

	go ctl.writePump(ctx, member.ID(), conn)
	go ctl.readPump(ctx, member, conn)
}
