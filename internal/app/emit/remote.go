package emit

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/domain"
)

// APIKeyHeader authenticates publish API calls.
const APIKeyHeader = "X-API-Key"

// BroadcastRequest is the body of POST /api/broadcast.
type BroadcastRequest struct {
	Room    domain.RoomKey  `json:"room" binding:"required"`
	Event   string          `json:"event" binding:"required"`
	Data    json.RawMessage `json:"data"`
	Exclude core.ConnID     `json:"exclude,omitempty"`
}

// BroadcastResponse reports how many members the frame was queued to.
type BroadcastResponse struct {
	Delivered int `json:"delivered"`
	Dropped   int `json:"dropped"`
}

// Remote publishes through the gateway's HTTP API, for emitters running in
// another process.
type Remote struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

func NewRemote(baseURL, apiKey string) *Remote {
	return &Remote{
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (r *Remote) Publish(ctx context.Context, ev domain.Event, origin core.ConnID) error {
	room, err := ev.Room()
	if err != nil {
		return err
	}
	data, err := json.Marshal(ev.Payload())
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Name(), err)
	}
	body, err := json.Marshal(BroadcastRequest{Room: room, Event: string(ev.Name()), Data: data, Exclude: origin})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.BaseURL+"/api/broadcast", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if r.APIKey != "" {
		req.Header.Set(APIKeyHeader, r.APIKey)
	}
	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("broadcast %s: %w", ev.Name(), err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("broadcast %s: unexpected status %d: %s", ev.Name(), resp.StatusCode, bytes.TrimSpace(msg))
	}
	return nil
}
