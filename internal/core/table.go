package core

import (
	"sort"
	"sync"

	"github.com/collabhub/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

// Table is a threadsafe in-memory room membership table.
// A room exists only while it has members. It never closes adapter-owned resources.
type Table struct {
	mu     sync.RWMutex
	rooms  map[domain.RoomKey]map[ConnID]*Connection
	byConn map[ConnID]map[domain.RoomKey]struct{}
}

var _ MembershipTable = (*Table)(nil)

func NewTable() *Table {
	return &Table{
		rooms:  make(map[domain.RoomKey]map[ConnID]*Connection),
		byConn: make(map[ConnID]map[domain.RoomKey]struct{}),
	}
}

// Join subscribes c to room. It is idempotent and returns false without
// effect when the connection is already closed.
func (t *Table) Join(c *Connection, room domain.RoomKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !c.Alive() {
		return false
	}
	members := t.rooms[room]
	if members == nil {
		members = make(map[ConnID]*Connection)
		t.rooms[room] = members
	}
	if _, ok := members[c.id]; ok {
		return true
	}
	members[c.id] = c
	rooms := t.byConn[c.id]
	if rooms == nil {
		rooms = make(map[domain.RoomKey]struct{})
		t.byConn[c.id] = rooms
	}
	rooms[room] = struct{}{}
	log.Debug().Str("module", "core.table").Str("conn", string(c.id)).Str("room", string(room)).Msg("joined")
	return true
}

// Leave unsubscribes a connection. Removing a non-member is a no-op.
func (t *Table) Leave(id ConnID, room domain.RoomKey) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.removeLocked(id, room) {
		return false
	}
	log.Debug().Str("module", "core.table").Str("conn", string(id)).Str("room", string(room)).Msg("left")
	return true
}

// Drop marks c dead and removes it from every room in one step, so a
// concurrent Join or MembersOf can never observe it afterwards.
func (t *Table) Drop(c *Connection) []domain.RoomKey {
	t.mu.Lock()
	defer t.mu.Unlock()
	c.markDead()
	rooms := make([]domain.RoomKey, 0, len(t.byConn[c.id]))
	for room := range t.byConn[c.id] {
		rooms = append(rooms, room)
	}
	for _, room := range rooms {
		t.removeLocked(c.id, room)
	}
	delete(t.byConn, c.id)
	return rooms
}

func (t *Table) removeLocked(id ConnID, room domain.RoomKey) bool {
	members, ok := t.rooms[room]
	if !ok {
		return false
	}
	if _, ok := members[id]; !ok {
		return false
	}
	delete(members, id)
	if len(members) == 0 {
		delete(t.rooms, room)
	}
	if rooms := t.byConn[id]; rooms != nil {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(t.byConn, id)
		}
	}
	return true
}

// MembersOf returns the membership snapshot at call time.
func (t *Table) MembersOf(room domain.RoomKey) []*Connection {
	t.mu.RLock()
	defer t.mu.RUnlock()
	members := t.rooms[room]
	if len(members) == 0 {
		return nil
	}
	out := make([]*Connection, 0, len(members))
	for _, c := range members {
		out = append(out, c)
	}
	return out
}

func (t *Table) RoomsOf(id ConnID) []domain.RoomKey {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]domain.RoomKey, 0, len(t.byConn[id]))
	for room := range t.byConn[id] {
		out = append(out, room)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (t *Table) List() []RoomInfo {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]RoomInfo, 0, len(t.rooms))
	for key, members := range t.rooms {
		out = append(out, RoomInfo{Key: key, MemberCount: len(members)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len is the number of non-empty rooms.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}

func (t *Table) Members(room domain.RoomKey) []MemberDTO {
	conns := t.MembersOf(room)
	out := make([]MemberDTO, 0, len(conns))
	for _, c := range conns {
		out = append(out, MemberDTO{ConnID: c.id, UserID: c.userID})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ConnID < out[j].ConnID })
	return out
}
