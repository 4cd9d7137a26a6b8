package core

import (
	"sync/atomic"

	"github.com/collabhub/realtime/internal/domain"
)

type ConnID string

// Connection is the server-side handle of one realtime channel.
// It is alive from accept until the registry closes it; it is never revived.
type Connection struct {
	id      ConnID
	userID  domain.UserID
	channel Channel
	alive   atomic.Bool
}

func NewConnection(id ConnID, userID domain.UserID, ch Channel) *Connection {
	c := &Connection{id: id, userID: userID, channel: ch}
	c.alive.Store(true)
	return c
}

func (c *Connection) ID() ConnID            { return c.id }
func (c *Connection) UserID() domain.UserID { return c.userID }
func (c *Connection) Channel() Channel      { return c.channel }
func (c *Connection) Alive() bool           { return c.alive.Load() }
func (c *Connection) markDead() bool        { return c.alive.Swap(false) }
