package emit

import (
	"context"

	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/domain"
)

// Publisher is the part of app.Hub an in-process emitter needs.
type Publisher interface {
	Publish(ev domain.Event, exclude core.ConnID) (core.PublishResult, error)
}

// Local publishes straight into a hub living in the same process.
type Local struct {
	Hub Publisher
}

func (l Local) Publish(_ context.Context, ev domain.Event, origin core.ConnID) error {
	_, err := l.Hub.Publish(ev, origin)
	return err
}
