package app

import (
	"github.com/collabhub/realtime/internal/core"
	"github.com/collabhub/realtime/internal/domain"
)

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what happens to a member whose outbound buffer is full.
type Policy interface {
	OnBackPressure(room domain.RoomKey, member *core.Connection) BackpressureAction
}

// SimplePolicy kicks slow members; their client reconnects and resubscribes.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(domain.RoomKey, *core.Connection) BackpressureAction {
	return KickMember
}
