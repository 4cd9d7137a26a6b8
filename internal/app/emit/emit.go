// Package emit is the contract domain handlers use to announce committed
// mutations. Call it only after the write is durable; never before, and never
// as a retry of a failed write.
package emit

import (
	"context"
	"errors"

	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

// Broadcaster delivers one typed event to the event's room, skipping the
// originating connection when it is known.
type Broadcaster interface {
	Publish(ctx context.Context, ev domain.Event, origin core.ConnID) error
}

// Emitter exposes one method per event variant. A nil Broadcaster is safe to
// use: every call becomes a no-op, which is what tests and CLI tools want.
type Emitter struct {
	b Broadcaster
}

func New(b Broadcaster) *Emitter {
	return &Emitter{b: b}
}

// TaskCreated announces a new card. task must be fully populated.
func (e *Emitter) TaskCreated(ctx context.Context, origin core.ConnID, task domain.Task) error {
	return e.publish(ctx, domain.TaskCreated{Task: task}, origin)
}

func (e *Emitter) TaskUpdated(ctx context.Context, origin core.ConnID, task domain.Task) error {
	return e.publish(ctx, domain.TaskUpdated{Task: task}, origin)
}

func (e *Emitter) TaskDeleted(ctx context.Context, origin core.ConnID, projectID, taskID string) error {
	return e.publish(ctx, domain.TaskDeleted{TaskID: taskID, ProjectID: projectID}, origin)
}

func (e *Emitter) MessageSent(ctx context.Context, origin core.ConnID, msg domain.Message) error {
	return e.publish(ctx, domain.MessageReceived{Message: msg}, origin)
}

// Notify delivers to the recipient's personal room. The actor's connection
// is not a member of that room, so no exclusion applies.
func (e *Emitter) Notify(ctx context.Context, n domain.Notification) error {
	return e.publish(ctx, domain.NotificationCreated{Notification: n}, "")
}

// TaskAssigned pairs the board update with a notification for the assignee
// unless the actor assigned the task to themselves.
func (e *Emitter) TaskAssigned(ctx context.Context, origin core.ConnID, actor domain.UserID, task domain.Task, n domain.Notification) error {
	err := e.TaskUpdated(ctx, origin, task)
	if task.Assignee != nil && task.Assignee.ID != actor {
		err = errors.Join(err, e.Notify(ctx, n))
	}
	return err
}

func (e *Emitter) publish(ctx context.Context, ev domain.Event, origin core.ConnID) error {
	if e == nil || e.b == nil {
		return nil
	}
	if err := e.b.Publish(ctx, ev, origin); err != nil {
		log.Warn().Err(err).Str("module", "app.emit").Str("event", string(ev.Name())).Msg("publish failed")
		return err
	}
	return nil
}
