package app

import (
	"context"
	"sync"

	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Conn   *core.Connection
	Cancel context.CancelFunc
}

// Registry tracks every accepted connection until it is closed.
type Registry struct {
	mu     sync.RWMutex
	conns  map[core.ConnID]*connEntry
	byUser map[domain.UserID]map[core.ConnID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[core.ConnID]*connEntry),
		byUser: make(map[domain.UserID]map[core.ConnID]struct{}),
	}
}

func (r *Registry) Bind(conn *core.Connection, cancel context.CancelFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[conn.ID()] = &connEntry{Conn: conn, Cancel: cancel}
	if uid := conn.UserID(); uid != "" {
		m := r.byUser[uid]
		if m == nil {
			m = make(map[core.ConnID]struct{})
			r.byUser[uid] = m
		}
		m[conn.ID()] = struct{}{}
	}
	log.Info().Str("module", "app.registry").Str("conn", string(conn.ID())).Str("user", string(conn.UserID())).Msg("bound connection")
}

func (r *Registry) Get(id core.ConnID) (*core.Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.conns[id]; ok {
		return e.Conn, true
	}
	return nil, false
}

// Unbind forgets the connection; ok is false when it was already gone,
// which makes closing idempotent.
func (r *Registry) Unbind(id core.ConnID) (conn *core.Connection, cancel context.CancelFunc, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[id]
	if !ok {
		return nil, nil, false
	}
	delete(r.conns, id)
	if uid := e.Conn.UserID(); uid != "" {
		if m := r.byUser[uid]; m != nil {
			delete(m, id)
			if len(m) == 0 {
				delete(r.byUser, uid)
			}
		}
	}
	log.Info().Str("module", "app.registry").Str("conn", string(id)).Msg("unbound connection")
	return e.Conn, e.Cancel, true
}

func (r *Registry) ConnectionsOf(uid domain.UserID) []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ConnID, 0, len(r.byUser[uid]))
	for id := range r.byUser[uid] {
		out = append(out, id)
	}
	return out
}

func (r *Registry) IDs() []core.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ConnID, 0, len(r.conns))
	for id := range r.conns {
		out = append(out, id)
	}
	return out
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
