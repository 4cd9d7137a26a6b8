package core

import (
	"sync"
	"testing"

	"github.com/collabhub/realtime/internal/domain"
	"github.com/stretchr/testify/require"
)

type testChannel struct {
	mu     sync.Mutex
	frames []Frame
	full   bool
	closed bool
}

func (c *testChannel) TrySend(f Frame) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrConnClosed
	}
	if c.full {
		return ErrBackpressure
	}
	c.frames = append(c.frames, f)
	return nil
}

func (c *testChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

func (c *testChannel) received() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.frames))
	for _, f := range c.frames {
		out = append(out, string(f))
	}
	return out
}

func newTestConn(id string) (*Connection, *testChannel) {
	ch := &testChannel{}
	return NewConnection(ConnID(id), "", ch), ch
}

func memberIDs(conns []*Connection) []ConnID {
	out := make([]ConnID, 0, len(conns))
	for _, c := range conns {
		out = append(out, c.ID())
	}
	return out
}

func TestTableJoinLeaveIdempotent(t *testing.T) {
	t.Parallel()

	const room = domain.RoomKey("project:1")
	testCases := []struct {
		name   string
		ops    []bool // true = join, false = leave
		member bool
	}{
		{name: "join", ops: []bool{true}, member: true},
		{name: "join_twice", ops: []bool{true, true}, member: true},
		{name: "leave_non_member", ops: []bool{false}, member: false},
		{name: "join_leave", ops: []bool{true, false}, member: false},
		{name: "join_leave_leave", ops: []bool{true, false, false}, member: false},
		{name: "leave_join_join", ops: []bool{false, true, true}, member: true},
		{name: "join_join_leave_join", ops: []bool{true, true, false, true}, member: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			table := NewTable()
			c, _ := newTestConn("c1")
			for _, join := range tc.ops {
				if join {
					table.Join(c, room)
				} else {
					table.Leave(c.ID(), room)
				}
			}
			members := table.MembersOf(room)
			if tc.member {
				require.Equal(t, []ConnID{"c1"}, memberIDs(members))
				require.Equal(t, []domain.RoomKey{room}, table.RoomsOf("c1"))
			} else {
				require.Empty(t, members)
				require.Empty(t, table.List(), "empty room must be collected")
			}
		})
	}
}

func TestTableDropRemovesFromEveryRoom(t *testing.T) {
	t.Parallel()

	table := NewTable()
	c1, ch1 := newTestConn("c1")
	c2, _ := newTestConn("c2")
	rooms := []domain.RoomKey{"project:1", "workspace:w", "user:u1"}
	for _, r := range rooms {
		require.True(t, table.Join(c1, r))
	}
	require.True(t, table.Join(c2, "project:1"))

	left := table.Drop(c1)
	require.ElementsMatch(t, rooms, left)
	require.False(t, c1.Alive())
	for _, r := range rooms {
		require.NotContains(t, memberIDs(table.MembersOf(r)), ConnID("c1"))
	}
	require.Equal(t, []RoomInfo{{Key: "project:1", MemberCount: 1}}, table.List())

	router := NewRouter(table)
	res := router.Broadcast("project:1", Frame("x"), "")
	require.Equal(t, 1, res.SendTo)
	require.Empty(t, ch1.received())

	require.False(t, table.Join(c1, "project:2"), "closed connection cannot join")
	require.Empty(t, table.MembersOf("project:2"))
}

func TestRouterBroadcastEmptyRoom(t *testing.T) {
	t.Parallel()

	router := NewRouter(NewTable())
	res := router.Broadcast("project:nobody", Frame("x"), "")
	require.Zero(t, res.SendTo)
	require.Empty(t, res.Dropped)
}

func TestRouterExclusion(t *testing.T) {
	t.Parallel()

	for _, size := range []int{1, 2, 5} {
		table := NewTable()
		router := NewRouter(table)
		chans := make(map[ConnID]*testChannel)
		var first ConnID
		for i := 0; i < size; i++ {
			c, ch := newTestConn(string(rune('a' + i)))
			if i == 0 {
				first = c.ID()
			}
			chans[c.ID()] = ch
			table.Join(c, "project:42")
		}

		res := router.Broadcast("project:42", Frame("hello"), first)
		require.Equal(t, size-1, res.SendTo)
		for id, ch := range chans {
			if id == first {
				require.Empty(t, ch.received())
				continue
			}
			require.Equal(t, []string{"hello"}, ch.received())
		}
	}
}

func TestRouterOrderPerConnection(t *testing.T) {
	t.Parallel()

	table := NewTable()
	router := NewRouter(table)
	c, ch := newTestConn("c1")
	table.Join(c, "project:1")
	for _, f := range []string{"e1", "e2", "e3"} {
		router.Broadcast("project:1", Frame(f), "")
	}
	require.Equal(t, []string{"e1", "e2", "e3"}, ch.received())
}

func TestRouterReportsBackpressure(t *testing.T) {
	t.Parallel()

	table := NewTable()
	router := NewRouter(table)
	fast, fastCh := newTestConn("fast")
	slow, slowCh := newTestConn("slow")
	slowCh.full = true
	table.Join(fast, "project:1")
	table.Join(slow, "project:1")

	res := router.Broadcast("project:1", Frame("x"), "")
	require.Equal(t, 1, res.SendTo)
	require.Equal(t, []*Connection{slow}, res.Dropped)
	require.Equal(t, []string{"x"}, fastCh.received())
}

func TestTableConcurrentAccess(t *testing.T) {
	t.Parallel()

	table := NewTable()
	router := NewRouter(table)
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, _ := newTestConn(string(rune('A' + i)))
			for j := 0; j < 100; j++ {
				table.Join(c, "project:hot")
				router.Broadcast("project:hot", Frame("x"), c.ID())
				table.Leave(c.ID(), "project:hot")
			}
			table.Join(c, "project:hot")
			table.Drop(c)
		}(i)
	}
	wg.Wait()
	require.Empty(t, table.MembersOf("project:hot"))
	require.Empty(t, table.List())
}

func TestTableMembersView(t *testing.T) {
	t.Parallel()

	table := NewTable()
	c := NewConnection("c1", "u1", &testChannel{})
	table.Join(c, "project:1")
	require.Equal(t, []MemberDTO{{ConnID: "c1", UserID: "u1"}}, table.Members("project:1"))
}
