package server

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bombarena/game"
	"bombarena/levelmap"
	"bombarena/protocol"
)

type rowCatalog []*levelmap.Level

func (c rowCatalog) Len() int { return len(c) }

func (c rowCatalog) Level(i int) (*levelmap.Level, error) {
	if i < 0 || i >= len(c) {
		return nil, fmt.Errorf("%w: %d", levelmap.ErrUnknownLevel, i)
	}
	return c[i], nil
}

func testCatalog(t *testing.T) rowCatalog {
	t.Helper()
	lvl, err := levelmap.FromRows("duel", []string{
		"WWWWWWWWW",
		"W1......W",
		"W.W.W.W.W",
		"W......2W",
		"WWWWWWWWW",
	})
	require.NoError(t, err)
	return rowCatalog{lvl}
}

func newTestManager(t *testing.T, linger time.Duration) *RoomManager {
	t.Helper()
	rules := game.DefaultRules()
	rules.TickRate = 100
	rules.Fuse = 300 * time.Millisecond
	rules.SettleDelay = 50 * time.Millisecond
	rules.RoundDelay = 100 * time.Millisecond
	m := NewRoomManager(testCatalog(t), Options{Rules: rules, Linger: linger, Seed: 1})
	t.Cleanup(m.Shutdown)
	return m
}

type fakeConn struct {
	id     string
	reject bool // 模拟拥塞：所有发送失败

	mu     sync.Mutex
	msgs   []any
	closed bool
}

func newFakeConn(id string) *fakeConn { return &fakeConn{id: id} }

func (f *fakeConn) ID() string { return f.id }

func (f *fakeConn) Send(msg any) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed || f.reject {
		return false
	}
	f.msgs = append(f.msgs, msg)
	return true
}

func (f *fakeConn) Close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
}

func (f *fakeConn) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

func (f *fakeConn) snapshot() []any {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]any(nil), f.msgs...)
}

// waitMsg 等待 f 收到第一条满足 ok 的 T 类型消息
func waitMsg[T any](t *testing.T, f *fakeConn, ok func(T) bool) T {
	t.Helper()
	var got T
	require.Eventually(t, func() bool {
		for _, m := range f.snapshot() {
			if v, is := m.(T); is && (ok == nil || ok(v)) {
				got = v
				return true
			}
		}
		return false
	}, 2*time.Second, 5*time.Millisecond)
	return got
}

func startMatch(t *testing.T, m *RoomManager) (*Room, *fakeConn, *fakeConn) {
	t.Helper()
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")
	r, err := m.CreateRoom(c1, []int{0})
	require.NoError(t, err)
	_, seat, err := m.JoinRoom(r.ID, c2)
	require.NoError(t, err)
	require.Equal(t, game.PlayerID(2), seat)
	return r, c1, c2
}

func TestCreateAndJoinStartsMatch(t *testing.T) {
	m := newTestManager(t, time.Second)
	c1, c2 := newFakeConn("c1"), newFakeConn("c2")

	r, err := m.CreateRoom(c1, []int{0, 0})
	require.NoError(t, err)
	first := c1.snapshot()
	require.NotEmpty(t, first)
	created, ok := first[0].(protocol.RoomCreated)
	require.True(t, ok, "room_created is the first message")
	assert.Equal(t, r.ID, created.RoomID)
	assert.Equal(t, 1, created.PlayerID)
	assert.Len(t, r.ID, 6)

	_, seat, err := m.JoinRoom(r.ID, c2)
	require.NoError(t, err)
	assert.Equal(t, game.PlayerID(2), seat)

	gs1 := waitMsg[protocol.GameStart](t, c1, nil)
	gs2 := waitMsg[protocol.GameStart](t, c2, nil)
	assert.Equal(t, 1, gs1.PlayerID)
	assert.Equal(t, 2, gs2.PlayerID)
	assert.Equal(t, 2, gs1.TotalRounds)
	assert.Equal(t, gs1.Bonuses, gs2.Bonuses)

	waitMsg[protocol.State](t, c1, nil)
	waitMsg[protocol.State](t, c2, nil)
}

func TestInputMovesPlayer(t *testing.T) {
	m := newTestManager(t, time.Second)
	r, c1, _ := startMatch(t, m)

	r.OnInput(1, protocol.Input{Right: true})
	st := waitMsg(t, c1, func(s protocol.State) bool { return s.Players["1"].X > 16 })
	assert.Equal(t, "right", st.Players["1"].Dir)
	assert.Equal(t, 112.0, st.Players["2"].X, "the other player stays put")
	assert.Positive(t, atomic.LoadInt64(&r.Metrics().InputsAccepted))
}

func TestJoinErrors(t *testing.T) {
	m := newTestManager(t, time.Second)

	_, _, err := m.JoinRoom("ZZZZZZ", newFakeConn("x"))
	assert.ErrorIs(t, err, ErrRoomNotFound)

	_, err = m.CreateRoom(newFakeConn("x"), []int{3})
	assert.ErrorIs(t, err, ErrInvalidMaps)
	_, err = m.CreateRoom(newFakeConn("x"), []int{-1})
	assert.ErrorIs(t, err, ErrInvalidMaps)
	_, err = m.CreateRoom(newFakeConn("x"), nil)
	assert.ErrorIs(t, err, ErrInvalidMaps)

	r, _, _ := startMatch(t, m)
	_, _, err = m.JoinRoom(r.ID, newFakeConn("c3"))
	assert.ErrorIs(t, err, ErrRoomFull)
}

func TestCreatorLeavingWaitingRoomClosesIt(t *testing.T) {
	m := newTestManager(t, time.Minute)
	c1 := newFakeConn("c1")
	r, err := m.CreateRoom(c1, []int{0})
	require.NoError(t, err)

	r.RequestLeave(1)
	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("room did not close")
	}
	assert.Nil(t, m.Room(r.ID))
	assert.True(t, c1.isClosed())
	for _, msg := range c1.snapshot() {
		_, over := msg.(protocol.GameOver)
		assert.False(t, over, "no game_over for a match that never started")
	}
}

func TestDisconnectForfeitsAndLingers(t *testing.T) {
	m := newTestManager(t, 300*time.Millisecond)
	r, c1, c2 := startMatch(t, m)
	waitMsg[protocol.GameStart](t, c2, nil)

	r.RequestLeave(1)
	pd := waitMsg[protocol.PlayerDisconnected](t, c2, nil)
	assert.Equal(t, 1, pd.PlayerID)
	over := waitMsg[protocol.GameOver](t, c2, nil)
	assert.Equal(t, 2, over.Winner)
	assert.Equal(t, protocol.ReasonDisconnect, over.Reason)
	assert.True(t, over.MatchOver)
	assert.Equal(t, protocol.Scores{P2: 1}, over.Scores)
	assert.True(t, c1.isClosed())

	_, _, err := m.JoinRoom(r.ID, newFakeConn("c3"))
	assert.ErrorIs(t, err, ErrRoomFull)

	r.RequestLeave(2)
	require.Eventually(t, func() bool {
		_, _, err := m.JoinRoom(r.ID, newFakeConn("c4"))
		return err != nil && (errors.Is(err, ErrRoomFinished) || errors.Is(err, ErrRoomNotFound))
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool { return m.Room(r.ID) == nil }, 2*time.Second, 10*time.Millisecond)
	<-r.Done()
	assert.True(t, c2.isClosed())
}

func TestMatchOverLingersThenCloses(t *testing.T) {
	m := newTestManager(t, 200*time.Millisecond)
	r, c1, c2 := startMatch(t, m)
	waitMsg[protocol.GameStart](t, c1, nil)

	// 双方原地各放一颗炸弹，同一 Tick 被炸死
	r.OnInput(1, protocol.Input{Bomb: true})
	r.OnInput(2, protocol.Input{Bomb: true})
	over := waitMsg[protocol.GameOver](t, c1, nil)
	assert.True(t, over.MatchOver)
	assert.Equal(t, protocol.ReasonDraw, over.Reason)

	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("finished room was not reclaimed")
	}
	assert.Nil(t, m.Room(r.ID))
	assert.True(t, c1.isClosed())
	assert.True(t, c2.isClosed())
}

func TestDetachOnlyAfterMatchOver(t *testing.T) {
	m := newTestManager(t, 300*time.Millisecond)
	r, c1, c2 := startMatch(t, m)
	waitMsg[protocol.GameStart](t, c2, nil)

	assert.False(t, r.Detach(2, c2), "match still running")

	r.RequestLeave(1)
	waitMsg[protocol.GameOver](t, c2, nil)
	require.True(t, r.Detach(2, c2))
	require.Eventually(t, func() bool { return r.Info().Players == 0 }, time.Second, 5*time.Millisecond)

	// 回收时不再断开已解绑的连接
	<-r.Done()
	assert.True(t, c1.isClosed())
	assert.False(t, c2.isClosed())
	assert.True(t, r.Detach(2, c2), "reclaimed rooms release immediately")
}

func TestSlowConnDoesNotStallRoom(t *testing.T) {
	m := newTestManager(t, time.Second)
	slow, fast := newFakeConn("slow"), newFakeConn("fast")
	slow.reject = true
	r, err := m.CreateRoom(slow, []int{0})
	require.NoError(t, err)
	_, _, err = m.JoinRoom(r.ID, fast)
	require.NoError(t, err)

	waitMsg(t, fast, func(s protocol.State) bool { return s.Tick >= 20 })
	assert.Positive(t, atomic.LoadInt64(&r.Metrics().SendsDropped))
	assert.Positive(t, atomic.LoadInt64(&r.Metrics().TickCount))
}

func TestRoomsAndAdminClose(t *testing.T) {
	m := newTestManager(t, time.Second)
	r, c1, c2 := startMatch(t, m)

	require.Eventually(t, func() bool {
		rooms := m.Rooms()
		return len(rooms) == 1 && rooms[0].Phase == "live" && rooms[0].Players == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, r.ID, m.Rooms()[0].ID)
	assert.Equal(t, []int{0}, m.Rooms()[0].Levels)

	require.NoError(t, m.CloseRoom(r.ID))
	<-r.Done()
	assert.True(t, c1.isClosed())
	assert.True(t, c2.isClosed())
	assert.Empty(t, m.Rooms())
	assert.ErrorIs(t, m.CloseRoom(r.ID), ErrRoomNotFound)

	_, err := r.Join(newFakeConn("late"))
	assert.ErrorIs(t, err, ErrRoomFinished)
}
