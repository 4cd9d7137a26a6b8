package client

import (
	"context"
	"net/http/httptest"
	"slices"
	"strings"
	"testing"
	"time"

	httpadapter "github.com/collabhub/realtime/internal/adapters/http"
	"github.com/collabhub/realtime/internal/app"
	"github.com/collabhub/realtime/internal/app/emit"
	"github.com/collabhub/realtime/internal/config"
	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/domain"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T) (*app.Hub, string) {
	t.Helper()
	cfg := &config.Config{
		Mode:         "test",
		ReadLimit:    4096,
		PingPeriod:   9 * time.Second,
		PongWait:     10 * time.Second,
		WriteWait:    time.Second,
		SendBuffer:   32,
		InboundRate:  1000,
		InboundBurst: 1000,
	}
	hub := app.NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	r, err := httpadapter.SetupRouter(ctx, cfg, hub)
	require.NoError(t, err)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		srv.Close()
		cancel()
		hub.Shutdown()
	})
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func newSession(t *testing.T, url string, uid domain.UserID) *Session {
	t.Helper()
	s := New(&WSDialer{URL: url}, Options{
		UserID:          uid,
		MaxRetries:      5,
		InitialInterval: 10 * time.Millisecond,
		MaxInterval:     50 * time.Millisecond,
	})
	t.Cleanup(s.Disconnect)
	return s
}

// joinedAll waits until the session's current connection is a member of rooms
// and returns its id.
func joinedAll(t *testing.T, hub *app.Hub, s *Session, rooms ...domain.RoomKey) core.ConnID {
	t.Helper()
	var id core.ConnID
	require.Eventually(t, func() bool {
		id = core.ConnID(s.ConnID())
		if id == "" {
			return false
		}
		have := hub.Rooms.RoomsOf(id)
		for _, r := range rooms {
			if !slices.Contains(have, r) {
				return false
			}
		}
		return true
	}, 3*time.Second, 10*time.Millisecond)
	return id
}

func TestReconnectRestoresMembership(t *testing.T) {
	hub, url := newGateway(t)
	s := newSession(t, url, "u1")

	require.NoError(t, s.JoinProject("1"))
	require.NoError(t, s.JoinProject("2"))
	require.NoError(t, s.Connect(context.Background()))
	first := joinedAll(t, hub, s, "user:u1", "project:1", "project:2")

	// server-side close, as after a network blip
	hub.Close(first)
	require.Empty(t, hub.Rooms.RoomsOf(first))

	var second core.ConnID
	require.Eventually(t, func() bool {
		second = core.ConnID(s.ConnID())
		return second != "" && second != first
	}, 3*time.Second, 10*time.Millisecond)
	require.Equal(t, second, joinedAll(t, hub, s, "user:u1", "project:1", "project:2"))
}

func TestQueuedMessagesArriveInOrder(t *testing.T) {
	hub, url := newGateway(t)

	y := newSession(t, url, "uy")
	got := make(chan string, 8)
	y.On(domain.EventReceiveMessage, HandlerFunc(func(ev domain.Event) {
		got <- ev.(domain.MessageReceived).Message.ID
	}))
	require.NoError(t, y.JoinProject("7"))
	require.NoError(t, y.Connect(context.Background()))
	joinedAll(t, hub, y, "project:7")

	x := newSession(t, url, "ux")
	for _, id := range []string{"m1", "m2", "m3"} {
		msg := domain.Message{ID: id, Content: "hello", Project: domain.ProjectRef{ID: "7"}}
		require.NoError(t, x.SendMessage(msg))
	}
	require.NoError(t, x.Connect(context.Background()))

	for _, want := range []string{"m1", "m2", "m3"} {
		select {
		case id := <-got:
			require.Equal(t, want, id)
		case <-time.After(3 * time.Second):
			t.Fatalf("did not receive %s", want)
		}
	}
	select {
	case id := <-got:
		t.Fatalf("unexpected extra message %s", id)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestEmitterExcludesAuthorConnection(t *testing.T) {
	hub, url := newGateway(t)
	e := emit.New(emit.Local{Hub: hub})

	type seen struct {
		name domain.EventName
		id   string
	}
	watch := func(s *Session) chan seen {
		ch := make(chan seen, 8)
		s.On(domain.EventTaskCreated, HandlerFunc(func(ev domain.Event) {
			ch <- seen{ev.Name(), ev.(domain.TaskCreated).Task.ID}
		}))
		s.On(domain.EventTaskDeleted, HandlerFunc(func(ev domain.Event) {
			ch <- seen{ev.Name(), ev.(domain.TaskDeleted).TaskID}
		}))
		return ch
	}

	x, y := newSession(t, url, "ux"), newSession(t, url, "uy")
	xs, ys := watch(x), watch(y)
	for _, s := range []*Session{x, y} {
		require.NoError(t, s.JoinProject("42"))
		require.NoError(t, s.Connect(context.Background()))
	}
	xID := joinedAll(t, hub, x, "project:42")
	joinedAll(t, hub, y, "project:42")

	task := domain.Task{ID: "t1", Name: "review", Project: "42", Assignee: &domain.UserRef{ID: "uy", Name: "Y"}}
	require.NoError(t, e.TaskCreated(context.Background(), xID, task))
	require.NoError(t, e.TaskDeleted(context.Background(), "", "42", "t0"))

	next := func(ch chan seen) seen {
		select {
		case s := <-ch:
			return s
		case <-time.After(3 * time.Second):
			t.Fatal("no event")
			return seen{}
		}
	}
	require.Equal(t, seen{domain.EventTaskCreated, "t1"}, next(ys))
	require.Equal(t, seen{domain.EventTaskDeleted, "t0"}, next(ys))
	require.Equal(t, seen{domain.EventTaskDeleted, "t0"}, next(xs), "author skips its own task_created")
}
