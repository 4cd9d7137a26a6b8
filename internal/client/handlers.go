package client

import (
	"encoding/json"
	"errors"
	"reflect"
	"slices"

	"github.com/collabhub/realtime/internal/domain"
	"github.com/collabhub/realtime/internal/protocol"
	"github.com/rs/zerolog/log"
)

var ErrHandlerNotComparable = errors.New("handler is not comparable")

// Handler receives decoded events. Implementations must be comparable: the
// same Handler registered twice for one event is called once.
type Handler interface {
	HandleEvent(ev domain.Event)
}

type funcHandler struct {
	fn func(domain.Event)
}

func (h *funcHandler) HandleEvent(ev domain.Event) { h.fn(ev) }

// HandlerFunc wraps fn in a new Handler. Keep the result to pass it to Off.
func HandlerFunc(fn func(domain.Event)) Handler {
	return &funcHandler{fn: fn}
}

// On registers h for name. Handlers outlive connections: reconnecting never
// registers them again. A nil or non-comparable h is refused.
func (s *Session) On(name domain.EventName, h Handler) error {
	if !isComparable(h) {
		return ErrHandlerNotComparable
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if slices.Contains(s.handlers[name], h) {
		return nil
	}
	s.handlers[name] = append(s.handlers[name], h)
	return nil
}

// Off removes h for name, or every handler for name when h is nil.
func (s *Session) Off(name domain.EventName, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h == nil {
		delete(s.handlers, name)
		return
	}
	if !isComparable(h) {
		return
	}
	hs := slices.DeleteFunc(slices.Clone(s.handlers[name]), func(x Handler) bool { return x == h })
	if len(hs) == 0 {
		delete(s.handlers, name)
		return
	}
	s.handlers[name] = hs
}

func isComparable(h Handler) bool {
	t := reflect.TypeOf(h)
	return t != nil && t.Comparable()
}

// OnStateChange registers fn to observe every state transition.
func (s *Session) OnStateChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watchers = append(s.watchers, fn)
}

func (s *Session) notify(st State) {
	s.mu.Lock()
	ws := slices.Clone(s.watchers)
	s.mu.Unlock()
	for _, fn := range ws {
		fn(st)
	}
}

func (s *Session) readLoop(conn Conn) error {
	for {
		frame, err := conn.Receive()
		if err != nil {
			return err
		}
		env, err := protocol.Decode(frame)
		if err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("bad frame")
			continue
		}
		switch env.Event {
		case protocol.Connected:
			var w protocol.Welcome
			if err := json.Unmarshal(env.Data, &w); err != nil {
				log.Warn().Err(err).Str("module", "client").Msg("bad welcome")
				continue
			}
			s.mu.Lock()
			if s.conn == conn {
				s.connID = w.ID
			}
			s.mu.Unlock()
			log.Debug().Str("module", "client").Str("conn", w.ID).Msg("welcome")
		case protocol.Pong:
		case protocol.Error:
			var reply protocol.ErrorReply
			_ = json.Unmarshal(env.Data, &reply)
			log.Warn().Str("module", "client").Str("request", reply.Request).Msg(reply.Error)
		default:
			s.dispatch(env)
		}
	}
}

func (s *Session) dispatch(env protocol.Envelope) {
	ev, err := domain.DecodeEvent(domain.EventName(env.Event), env.Data)
	if err != nil {
		log.Warn().Err(err).Str("module", "client").Str("event", env.Event).Msg("dropping event")
		return
	}
	s.mu.Lock()
	hs := slices.Clone(s.handlers[ev.Name()])
	s.mu.Unlock()
	for _, h := range hs {
		h.HandleEvent(ev)
	}
}
