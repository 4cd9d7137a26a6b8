// Package protocol defines the JSON envelope exchanged over a realtime channel.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Client -> server requests.
const (
	JoinProject    = "join_project"
	LeaveProject   = "leave_project"
	JoinWorkspace  = "join_workspace"
	LeaveWorkspace = "leave_workspace"
	SendMessage    = "send_message"
	Ping           = "ping"
)

// Server -> client control frames. Domain events use domain.EventName.
const (
	Connected = "connected"
	Pong      = "pong"
	Error     = "error"
)

// UserIDParam is the handshake query parameter carrying the user id.
const UserIDParam = "userId"

var ErrMalformed = errors.New("malformed frame")

// Envelope is one frame: an event name and its JSON payload.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Welcome is the payload of the Connected frame.
type Welcome struct {
	ID string `json:"id"`
}

// ErrorReply is the payload of the Error frame.
type ErrorReply struct {
	Request string `json:"request,omitempty"`
	Error   string `json:"error"`
}

func Encode(event string, v any) ([]byte, error) {
	env := Envelope{Event: event}
	if v != nil {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", event, err)
		}
		env.Data = data
	}
	return json.Marshal(env)
}

// EncodeRaw wraps an already encoded payload.
func EncodeRaw(event string, data []byte) ([]byte, error) {
	return json.Marshal(Envelope{Event: event, Data: data})
}

func Decode(frame []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %w", ErrMalformed, err)
	}
	if env.Event == "" {
		return Envelope{}, fmt.Errorf("%w: missing event name", ErrMalformed)
	}
	return env, nil
}

// StringData decodes a payload that must be a JSON string, e.g. a project id.
func (e Envelope) StringData() (string, error) {
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return "", fmt.Errorf("%w: %s expects a string payload", ErrMalformed, e.Event)
	}
	return s, nil
}
