package app_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

type fakeConn struct{}

func (*fakeConn) TrySend(core.Frame) error { return nil }
func (*fakeConn) Close()                   {}

const grace = 10 * time.Second

func newManager(clock clockwork.Clock) *app.RoomManagerImpl {
	return app.NewRoomManager(app.NewIDAllocator(6), app.WithClock(clock), app.WithGracePeriod(grace))
}

func TestRoomManager_CreateRoomCapacity(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		wantErr  error
	}{
		{name: "below minimum", capacity: 1, wantErr: domain.ErrInvalidCapacity},
		{name: "minimum", capacity: 2},
		{name: "maximum", capacity: 10},
		{name: "above maximum", capacity: 11, wantErr: domain.ErrInvalidCapacity},
		{name: "zero", capacity: 0, wantErr: domain.ErrInvalidCapacity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newManager(clockwork.NewFakeClock())
			defer m.StopAll()

			room, err := m.CreateRoom(tt.capacity)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Empty(t, m.List())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.capacity, room.Room().Capacity)
			got, ok := m.GetRoom(room.Room().ID)
			require.True(t, ok)
			assert.Same(t, room, got)
		})
	}
}

func TestRoomManager_EmptyRoomDeletedAfterGrace(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := newManager(clock)
	defer m.StopAll()

	room, err := m.CreateRoom(2)
	require.NoError(t, err)
	id := room.Room().ID

	_, err = room.Join("s1", session("m1", id), nil)
	require.NoError(t, err)
	_, err = room.Leave("s1", nil)
	require.NoError(t, err)

	_, ok := m.GetRoom(id)
	require.True(t, ok, "room survives inside the grace period")

	clock.Advance(grace)
	require.Eventually(t, func() bool {
		_, ok := m.GetRoom(id)
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestRoomManager_RejoinKeepsRoom(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := newManager(clock)
	defer m.StopAll()

	room, err := m.CreateRoom(2)
	require.NoError(t, err)
	id := room.Room().ID

	_, err = room.Join("s1", session("m1", id), nil)
	require.NoError(t, err)
	_, err = room.Leave("s1", nil)
	require.NoError(t, err)

	clock.Advance(grace - time.Second)
	_, err = room.Join("s2", session("m2", id), nil)
	require.NoError(t, err)

	clock.Advance(grace)
	assert.Never(t, func() bool {
		_, ok := m.GetRoom(id)
		return !ok
	}, 50*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, 1, room.MemberCount())
}

func TestRoomManager_StopRoom(t *testing.T) {
	m := newManager(clockwork.NewFakeClock())
	room, err := m.CreateRoom(3)
	require.NoError(t, err)

	m.StopRoom(room.Room().ID)
	_, ok := m.GetRoom(room.Room().ID)
	assert.False(t, ok)
	assert.True(t, room.Closed())

	_, err = room.Join("s1", session("m1", room.Room().ID), nil)
	assert.ErrorIs(t, err, domain.ErrRoomNotFound)
}

func TestRoomManager_IDsUnique(t *testing.T) {
	m := newManager(clockwork.NewFakeClock())
	defer m.StopAll()

	seen := make(map[domain.RoomID]bool)
	for n := 0; n < 200; n++ {
		room, err := m.CreateRoom(2)
		require.NoError(t, err)
		require.False(t, seen[room.Room().ID])
		seen[room.Room().ID] = true
	}
	assert.Len(t, m.List(), 200)
}

func TestRoomManager_ConcurrentJoinsRespectCapacity(t *testing.T) {
	m := newManager(clockwork.NewFakeClock())
	defer m.StopAll()

	room, err := m.CreateRoom(2)
	require.NoError(t, err)
	id := room.Room().ID

	const joiners = 5
	var (
		wg      sync.WaitGroup
		ok      atomic.Int32
		full    atomic.Int32
		rolesMu sync.Mutex
		roles   = map[domain.Role]int{}
	)
	start := make(chan struct{})
	for i := 0; i < joiners; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			sid := core.SessionID(fmt.Sprintf("s%d", i))
			role, err := room.Join(sid, session(domain.MemberID(fmt.Sprintf("m%d", i)), id), nil)
			switch {
			case err == nil:
				ok.Add(1)
				rolesMu.Lock()
				roles[role]++
				rolesMu.Unlock()
			case errors.Is(err, domain.ErrRoomFull):
				full.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(2), ok.Load())
	assert.Equal(t, int32(3), full.Load())
	assert.Equal(t, map[domain.Role]int{domain.RoleAdmin: 1, domain.RoleUser: 1}, roles)
	assert.Equal(t, 2, room.MemberCount())
}
