package client

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/collabhub/realtime/internal/domain"
	"github.com/collabhub/realtime/internal/protocol"
	"github.com/gorilla/websocket"
)

// WSDialer opens gorilla websocket channels to a gateway URL such as
// ws://localhost:5000/ws.
type WSDialer struct {
	URL       string
	Header    http.Header
	Dialer    *websocket.Dialer
	WriteWait time.Duration
}

func (d *WSDialer) Dial(ctx context.Context, userID domain.UserID) (Conn, error) {
	u, err := url.Parse(d.URL)
	if err != nil {
		return nil, err
	}
	if userID != "" {
		q := u.Query()
		q.Set(protocol.UserIDParam, string(userID))
		u.RawQuery = q.Encode()
	}
	dialer := d.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	ws, _, err := dialer.DialContext(ctx, u.String(), d.Header)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", u.Redacted(), err)
	}
	wait := d.WriteWait
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &wsConn{ws: ws, writeWait: wait}, nil
}

type wsConn struct {
	ws        *websocket.Conn
	writeWait time.Duration

	mu sync.Mutex
}

func (c *wsConn) Send(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(websocket.TextMessage, frame)
}

func (c *wsConn) Receive() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	return data, err
}

func (c *wsConn) Close() error { return c.ws.Close() }
