// Package board keeps a project's task list in sync with realtime events.
// Every change is merged by task id, so an event applied twice, or an echo of
// the author's own change, leaves the board as it was.
package board

import (
	"sort"
	"sync"

	"github.com/collabhub/realtime/internal/client"
	"github.com/collabhub/realtime/internal/domain"
)

type Board struct {
	projectID string

	mu    sync.RWMutex
	tasks map[string]domain.Task
}

func New(projectID string) *Board {
	return &Board{projectID: projectID, tasks: make(map[string]domain.Task)}
}

// Apply merges one event and reports whether the board changed. Task events
// for other projects and non-task events are ignored.
func (b *Board) Apply(ev domain.Event) bool {
	switch e := ev.(type) {
	case domain.TaskCreated:
		return b.Upsert(e.Task)
	case domain.TaskUpdated:
		return b.Upsert(e.Task)
	case domain.TaskDeleted:
		return b.Remove(e.TaskID)
	}
	return false
}

// Upsert stores task unless the board already holds a newer version. A zero
// UpdatedAt means the version is unknown and the task is always stored.
func (b *Board) Upsert(task domain.Task) bool {
	if task.ID == "" || (b.projectID != "" && task.Project != b.projectID) {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.tasks[task.ID]; ok && !task.UpdatedAt.IsZero() && task.UpdatedAt.Before(cur.UpdatedAt) {
		return false
	}
	b.tasks[task.ID] = task
	return true
}

func (b *Board) Remove(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tasks[id]; !ok {
		return false
	}
	delete(b.tasks, id)
	return true
}

func (b *Board) Get(id string) (domain.Task, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	t, ok := b.tasks[id]
	return t, ok
}

func (b *Board) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tasks)
}

// Column lists the tasks with status in board order.
func (b *Board) Column(status domain.TaskStatus) []domain.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []domain.Task
	for _, t := range b.tasks {
		if t.Status == status {
			out = append(out, t)
		}
	}
	sortTasks(out)
	return out
}

func (b *Board) Tasks() []domain.Task {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]domain.Task, 0, len(b.tasks))
	for _, t := range b.tasks {
		out = append(out, t)
	}
	sortTasks(out)
	return out
}

// Attach feeds the session's task events into the board. The returned func
// unregisters them.
func (b *Board) Attach(s *client.Session) (detach func()) {
	h := client.HandlerFunc(func(ev domain.Event) { b.Apply(ev) })
	names := []domain.EventName{domain.EventTaskCreated, domain.EventTaskUpdated, domain.EventTaskDeleted}
	for _, n := range names {
		_ = s.On(n, h)
	}
	return func() {
		for _, n := range names {
			s.Off(n, h)
		}
	}
}

func sortTasks(ts []domain.Task) {
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Order != ts[j].Order {
			return ts[i].Order < ts[j].Order
		}
		return ts[i].ID < ts[j].ID
	})
}
