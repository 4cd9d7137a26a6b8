package core

import (
	"errors"

	"github.com/collabhub/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

// Router fans a frame out to the members of one room.
type Router struct {
	table MembershipTable
}

func NewRouter(table MembershipTable) *Router {
	return &Router{table: table}
}

// Broadcast delivers frame to every member of room except exclude (empty
// means nobody is excluded). Delivery is fire-and-forget; members whose
// buffer is full are reported in Dropped for the caller's policy.
func (r *Router) Broadcast(room domain.RoomKey, frame Frame, exclude ConnID) PublishResult {
	res := PublishResult{}
	for _, c := range r.table.MembersOf(room) {
		if exclude != "" && c.id == exclude {
			continue
		}
		if err := c.channel.TrySend(frame); err != nil {
			if errors.Is(err, ErrBackpressure) {
				res.Dropped = append(res.Dropped, c)
			}
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.router").Str("room", string(room)).Str("exclude", string(exclude)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}
