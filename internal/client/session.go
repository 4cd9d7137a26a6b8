// Package client is the realtime session manager used inside a client
// process. It owns the channel lifecycle, remembers which rooms the user wants
// to be in and replays them after every reconnect, and buffers requests
// emitted while no channel is live.
package client

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/collabhub/realtime/internal/domain"
	"github.com/collabhub/realtime/internal/protocol"
	"github.com/rs/zerolog/log"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "DISCONNECTED"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateTornDown:
		return "TORN_DOWN"
	}
	return fmt.Sprintf("State(%d)", int32(s))
}

var (
	ErrTornDown             = errors.New("session torn down")
	ErrRetryBudgetExhausted = errors.New("retry budget exhausted")
)

// Conn is one live channel to the gateway.
type Conn interface {
	Send(frame []byte) error
	// Receive blocks for the next frame and fails once the channel is gone.
	Receive() ([]byte, error)
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context, userID domain.UserID) (Conn, error)
}

type Options struct {
	// UserID is sent in the handshake so the server joins the personal room.
	UserID domain.UserID
	// MaxRetries bounds redials per connect cycle after the first attempt.
	MaxRetries      uint64
	InitialInterval time.Duration
	MaxInterval     time.Duration
	// StableAfter is how long a connection must stay up before a drop
	// starts a fresh retry budget. Shorter-lived connections count as
	// failed attempts.
	StableAfter time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries == 0 {
		o.MaxRetries = 5
	}
	if o.InitialInterval <= 0 {
		o.InitialInterval = 500 * time.Millisecond
	}
	if o.MaxInterval <= 0 {
		o.MaxInterval = 10 * time.Second
	}
	if o.StableAfter <= 0 {
		o.StableAfter = 5 * time.Second
	}
	return o
}

func (o Options) newBackOff() backoff.BackOff {
	b := &backoff.ExponentialBackOff{
		InitialInterval:     o.InitialInterval,
		RandomizationFactor: backoff.DefaultRandomizationFactor,
		Multiplier:          backoff.DefaultMultiplier,
		MaxInterval:         o.MaxInterval,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()
	return backoff.WithMaxRetries(b, o.MaxRetries)
}

// Session is safe for concurrent use. Handlers and state observers run on the
// session's read goroutine and must not block for long.
type Session struct {
	dialer Dialer
	opts   Options

	mu       sync.Mutex
	state    State
	conn     Conn
	connID   string
	lastErr  error
	stop     context.CancelFunc
	intent   map[domain.RoomKey]struct{}
	outbox   [][]byte
	handlers map[domain.EventName][]Handler
	watchers []func(State)
}

func New(d Dialer, opts Options) *Session {
	return &Session{
		dialer:   d,
		opts:     opts.withDefaults(),
		intent:   make(map[domain.RoomKey]struct{}),
		handlers: make(map[domain.EventName][]Handler),
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// ConnID is the server-assigned id of the live connection, empty until the
// welcome frame arrives. Pass it along with mutating calls so the author's
// own connection is left out of the resulting broadcast.
func (s *Session) ConnID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connID
}

// Err reports why the last connect cycle gave up, if it did.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Connect starts connecting in the background and returns immediately.
// ctx bounds the whole session, not a single attempt. Calling Connect while
// connecting or connected does nothing.
func (s *Session) Connect(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateTornDown:
		s.mu.Unlock()
		return ErrTornDown
	case StateConnecting, StateConnected:
		s.mu.Unlock()
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	s.stop = cancel
	s.lastErr = nil
	s.state = StateConnecting
	s.mu.Unlock()

	s.notify(StateConnecting)
	go s.run(ctx)
	return nil
}

// Disconnect tears the session down for good. Subscription intent and queued
// requests are discarded; registered handlers are kept.
func (s *Session) Disconnect() {
	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return
	}
	s.state = StateTornDown
	s.intent = make(map[domain.RoomKey]struct{})
	s.outbox = nil
	conn, stop := s.conn, s.stop
	s.conn, s.stop, s.connID = nil, nil, ""
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
	if conn != nil {
		_ = conn.Close()
	}
	log.Info().Str("module", "client").Msg("session torn down")
	s.notify(StateTornDown)
}

// Emit sends a request now when connected and queues it otherwise. Queued
// requests are flushed in order on the next successful connect.
func (s *Session) Emit(event string, payload any) error {
	frame, err := protocol.Encode(event, payload)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	switch s.state {
	case StateTornDown:
		return ErrTornDown
	case StateConnected:
		err := s.conn.Send(frame)
		if err == nil {
			return nil
		}
		log.Warn().Err(err).Str("module", "client").Str("event", event).Msg("send failed, queued")
	}
	s.outbox = append(s.outbox, frame)
	return nil
}

func (s *Session) SendMessage(msg any) error {
	return s.Emit(protocol.SendMessage, msg)
}

// run dials until the session is torn down, ctx ends or the retry budget
// runs out. One budget covers dial failures and connections that drop before
// StableAfter; every redial waits for the backoff.
func (s *Session) run(ctx context.Context) {
	b := s.opts.newBackOff()
	attempts := 0
	var cause error
	for {
		if attempts > 0 {
			wait := b.NextBackOff()
			if wait == backoff.Stop {
				s.giveUp(fmt.Errorf("%w after %d attempts: %w", ErrRetryBudgetExhausted, attempts, cause))
				return
			}
			log.Warn().Err(cause).Str("module", "client").Int("attempt", attempts).Dur("retry_in", wait).Msg("reconnecting")
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				s.giveUp(ctx.Err())
				return
			case <-timer.C:
			}
		}

		attempts++
		conn, err := s.dialer.Dial(ctx, s.opts.UserID)
		if err != nil {
			if ctx.Err() != nil {
				s.giveUp(ctx.Err())
				return
			}
			cause = err
			continue
		}
		if !s.attach(conn) {
			_ = conn.Close()
			return
		}

		up := time.Now()
		done := make(chan struct{})
		go func() {
			select {
			case <-ctx.Done():
				_ = conn.Close()
			case <-done:
			}
		}()
		cause = s.readLoop(conn)
		close(done)

		if !s.detach(ctx, conn, cause) {
			return
		}
		if time.Since(up) >= s.opts.StableAfter {
			b.Reset()
			attempts = 1
		}
	}
}

// attach makes conn live: the outbox goes out first, in order and once, then
// a join for every room in the subscription intent. Holding the lock keeps
// concurrent Emit and JoinRoom calls behind the replay.
func (s *Session) attach(conn Conn) bool {
	s.mu.Lock()
	if s.state != StateConnecting {
		s.mu.Unlock()
		return false
	}
	s.conn = conn

	sent := 0
	for _, frame := range s.outbox {
		if err := conn.Send(frame); err != nil {
			log.Warn().Err(err).Str("module", "client").Int("pending", len(s.outbox)-sent).Msg("outbox flush interrupted")
			break
		}
		sent++
	}
	s.outbox = append([][]byte(nil), s.outbox[sent:]...)

	rooms := s.roomsLocked()
	for _, room := range rooms {
		frame, err := requestFrame(room, true)
		if err != nil {
			continue
		}
		if err := conn.Send(frame); err != nil {
			log.Warn().Err(err).Str("module", "client").Str("room", string(room)).Msg("rejoin failed")
			break
		}
	}
	s.state = StateConnected
	s.mu.Unlock()

	log.Info().Str("module", "client").Int("flushed", sent).Int("rooms", len(rooms)).Msg("connected")
	s.notify(StateConnected)
	return true
}

// detach reports whether another connect cycle should start.
func (s *Session) detach(ctx context.Context, conn Conn, cause error) bool {
	_ = conn.Close()

	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return false
	}
	s.conn, s.connID = nil, ""
	s.state = StateDisconnected
	s.mu.Unlock()
	log.Warn().Err(cause).Str("module", "client").Msg("connection lost")
	s.notify(StateDisconnected)

	if ctx.Err() != nil {
		return false
	}
	s.mu.Lock()
	if s.state != StateDisconnected {
		s.mu.Unlock()
		return false
	}
	s.state = StateConnecting
	s.mu.Unlock()
	s.notify(StateConnecting)
	return true
}

func (s *Session) giveUp(err error) {
	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.lastErr = err
	stop := s.stop
	s.stop = nil
	s.mu.Unlock()
	if stop != nil {
		stop()
	}

	log.Error().Err(err).Str("module", "client").Msg("giving up")
	s.notify(StateDisconnected)
}

func (s *Session) roomsLocked() []domain.RoomKey {
	out := make([]domain.RoomKey, 0, len(s.intent))
	for room := range s.intent {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
