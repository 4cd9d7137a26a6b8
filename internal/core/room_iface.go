package core

import (
	"github.com/collabhub/realtime/internal/domain"
)

// PublishResult reports delivery stats/backpressure to the hub.
type PublishResult struct {
	SendTo  int
	Dropped []*Connection
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	ConnID ConnID        `json:"conn_id"`
	UserID domain.UserID `json:"user_id,omitempty"`
}

type RoomInfo struct {
	Key         domain.RoomKey `json:"room"`
	MemberCount int            `json:"member_count"`
}

// MembershipTable maps room keys to their live connections.
type MembershipTable interface {
	Join(c *Connection, room domain.RoomKey) bool
	Leave(id ConnID, room domain.RoomKey) bool
	Drop(c *Connection) []domain.RoomKey
	MembersOf(room domain.RoomKey) []*Connection
	RoomsOf(id ConnID) []domain.RoomKey
	List() []RoomInfo
}
