package app

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

const DefaultGracePeriod = 10 * time.Second

type RoomManagerImpl struct {
	ids   *IDAllocator
	clock clockwork.Clock
	grace time.Duration

	mu    sync.RWMutex
	rooms map[domain.RoomID]core.RoomService
}

type RoomManagerOption func(*RoomManagerImpl)

func WithClock(c clockwork.Clock) RoomManagerOption {
	return func(m *RoomManagerImpl) { m.clock = c }
}

func WithGracePeriod(d time.Duration) RoomManagerOption {
	return func(m *RoomManagerImpl) { m.grace = d }
}

func NewRoomManager(ids *IDAllocator, opts ...RoomManagerOption) *RoomManagerImpl {
	m := &RoomManagerImpl{
		ids:   ids,
		clock: clockwork.NewRealClock(),
		grace: DefaultGracePeriod,
		rooms: make(map[domain.RoomID]core.RoomService),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CreateRoom allocates a fresh code and stores an empty room under it. The
// creator is not added here; that is the orchestrator's job.
func (m *RoomManagerImpl) CreateRoom(capacity int) (core.RoomService, error) {
	if !domain.ValidCapacity(capacity) {
		return nil, domain.ErrInvalidCapacity
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	id, err := m.ids.RoomID(func(id domain.RoomID) bool {
		_, taken := m.rooms[id]
		return taken
	})
	if err != nil {
		return nil, err
	}

	room := core.NewRoomService(
		&domain.Room{ID: id, Capacity: capacity, CreatedAt: m.clock.Now()},
		core.RoomOptions{Clock: m.clock, Grace: m.grace, OnExpire: m.forget},
	)
	m.rooms[id] = room
	log.Info().Str("module", "app.rooms").Str("room", string(id)).Int("capacity", capacity).Msg("room created")
	return room, nil
}

func (m *RoomManagerImpl) GetRoom(id domain.RoomID) (core.RoomService, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	room, ok := m.rooms[id]
	return room, ok
}

func (m *RoomManagerImpl) List() []core.RoomInfo {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.RoomInfo, 0, len(m.rooms))
	for id, r := range m.rooms {
		out = append(out, core.RoomInfo{ID: id, Capacity: r.Room().Capacity, MemberCount: r.MemberCount()})
	}
	return out
}

// StopRoom removes a room unconditionally.
func (m *RoomManagerImpl) StopRoom(id domain.RoomID) {
	m.mu.Lock()
	room, ok := m.rooms[id]
	delete(m.rooms, id)
	m.mu.Unlock()
	if ok {
		room.Close()
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted")
	}
}

// StopAll closes every room; used on server shutdown.
func (m *RoomManagerImpl) StopAll() {
	m.mu.Lock()
	rooms := m.rooms
	m.rooms = make(map[domain.RoomID]core.RoomService)
	m.mu.Unlock()
	for _, r := range rooms {
		r.Close()
	}
}

// forget drops an expired room, but only if the code still points at that
// same room instance.
func (m *RoomManagerImpl) forget(room core.RoomService) {
	id := room.Room().ID
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.rooms[id]; ok && cur == room {
		delete(m.rooms, id)
		log.Info().Str("module", "app.rooms").Str("room", string(id)).Msg("room deleted after grace period")
	}
}
