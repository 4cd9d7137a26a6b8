package emit

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/domain"
	"github.com/stretchr/testify/require"
)

type published struct {
	ev     domain.Event
	origin core.ConnID
}

type recorder struct {
	mu  sync.Mutex
	got []published
}

func (r *recorder) Publish(_ context.Context, ev domain.Event, origin core.ConnID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, published{ev: ev, origin: origin})
	return nil
}

func TestEmitterVariants(t *testing.T) {
	t.Parallel()

	rec := &recorder{}
	e := New(rec)
	ctx := context.Background()
	task := domain.Task{ID: "t1", Project: "42"}

	require.NoError(t, e.TaskCreated(ctx, "c1", task))
	require.NoError(t, e.TaskUpdated(ctx, "c1", task))
	require.NoError(t, e.TaskDeleted(ctx, "c1", "42", "t1"))
	require.NoError(t, e.MessageSent(ctx, "c1", domain.Message{ID: "m1", Project: domain.ProjectRef{ID: "42"}}))
	require.NoError(t, e.Notify(ctx, domain.Notification{ID: "n1", Recipient: "u2"}))

	require.Len(t, rec.got, 5)
	require.Equal(t, domain.TaskCreated{Task: task}, rec.got[0].ev)
	require.Equal(t, domain.TaskDeleted{TaskID: "t1", ProjectID: "42"}, rec.got[2].ev)
	for _, p := range rec.got[:4] {
		require.Equal(t, core.ConnID("c1"), p.origin)
	}
	require.Empty(t, rec.got[4].origin)
}

func TestTaskAssigned(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	n := domain.Notification{ID: "n1", Recipient: "u2", Type: domain.NotificationTaskAssigned}

	rec := &recorder{}
	task := domain.Task{ID: "t1", Project: "42", Assignee: &domain.UserRef{ID: "u2"}}
	require.NoError(t, New(rec).TaskAssigned(ctx, "c1", "u1", task, n))
	require.Len(t, rec.got, 2)
	require.Equal(t, domain.EventNewNotification, rec.got[1].ev.Name())

	rec = &recorder{}
	task.Assignee = &domain.UserRef{ID: "u1"}
	require.NoError(t, New(rec).TaskAssigned(ctx, "c1", "u1", task, n))
	require.Len(t, rec.got, 1, "self-assignment does not notify")
}

func TestNilBroadcaster(t *testing.T) {
	t.Parallel()

	var e *Emitter
	require.NoError(t, e.TaskCreated(context.Background(), "", domain.Task{}))
	require.NoError(t, New(nil).Notify(context.Background(), domain.Notification{}))
}

type hubStub struct {
	ev      domain.Event
	exclude core.ConnID
}

func (h *hubStub) Publish(ev domain.Event, exclude core.ConnID) (core.PublishResult, error) {
	h.ev, h.exclude = ev, exclude
	return core.PublishResult{}, nil
}

func TestLocal(t *testing.T) {
	t.Parallel()

	stub := &hubStub{}
	require.NoError(t, New(Local{Hub: stub}).TaskDeleted(context.Background(), "c9", "1", "t1"))
	require.Equal(t, domain.TaskDeleted{TaskID: "t1", ProjectID: "1"}, stub.ev)
	require.Equal(t, core.ConnID("c9"), stub.exclude)
}

func TestRemote(t *testing.T) {
	t.Parallel()

	var got BroadcastRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(APIKeyHeader) != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		require.Equal(t, "/api/broadcast", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(BroadcastResponse{Delivered: 1})
	}))
	t.Cleanup(srv.Close)

	e := New(NewRemote(srv.URL+"/", "secret"))
	require.NoError(t, e.TaskDeleted(context.Background(), "c1", "42", "t1"))
	require.Equal(t, domain.RoomKey("project:42"), got.Room)
	require.Equal(t, "task_deleted", got.Event)
	require.JSONEq(t, `"t1"`, string(got.Data))
	require.Equal(t, core.ConnID("c1"), got.Exclude)

	err := New(NewRemote(srv.URL, "wrong")).TaskDeleted(context.Background(), "", "42", "t1")
	require.ErrorContains(t, err, "401")

	err = New(NewRemote(srv.URL, "secret")).TaskDeleted(context.Background(), "", "", "t1")
	require.ErrorIs(t, err, domain.ErrInvalidRoomKey)
}
