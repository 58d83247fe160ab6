package core

import (
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/domain"
)

// RoomOptions controls the deferred deletion of an empty room.
type RoomOptions struct {
	Clock clockwork.Clock
	// Grace is how long an empty room survives before OnExpire fires.
	Grace time.Duration
	// OnExpire is called outside the room lock once the room has been
	// empty for Grace and is now closed.
	OnExpire func(RoomService)
}

type memberSlot struct {
	session MemberSession
	seq     uint64
}

// roomImpl is a threadsafe in-memory room.
// It never closes adapter-owned resources.
type roomImpl struct {
	room *domain.Room

	clock    clockwork.Clock
	grace    time.Duration
	onExpire func(RoomService)

	mu      sync.Mutex
	members map[SessionID]*memberSlot
	joinSeq uint64
	// epoch changes whenever the room becomes empty or non-empty; a pending
	// expiry only deletes the room if the epoch it captured is still current.
	epoch  uint64
	timer  clockwork.Timer
	closed bool
}

// NewRoomService creates an empty room and starts its grace timer right away:
// a room nobody joins is collected like one everybody left.
func NewRoomService(room *domain.Room, opts RoomOptions) RoomService {
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	r := &roomImpl{
		room:     room,
		clock:    opts.Clock,
		grace:    opts.Grace,
		onExpire: opts.OnExpire,
		members:  make(map[SessionID]*memberSlot),
	}
	r.mu.Lock()
	r.scheduleExpiryLocked()
	r.mu.Unlock()
	return r
}

func (r *roomImpl) Room() *domain.Room { return r.room }

func (r *roomImpl) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

func (r *roomImpl) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *roomImpl) Role(sid SessionID) (domain.Role, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	slot, ok := r.members[sid]
	if !ok {
		return "", false
	}
	return slot.session.Meta().Role, true
}

func (r *roomImpl) Join(sid SessionID, ms MemberSession, admit AdmitFunc) (domain.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return "", domain.ErrRoomNotFound
	}
	if _, ok := r.members[sid]; ok {
		return "", domain.ErrAlreadyMember
	}
	if len(r.members) >= r.room.Capacity {
		return "", domain.ErrRoomFull
	}

	role := domain.RoleUser
	if len(r.members) == 0 {
		role = domain.RoleAdmin
	}
	if admit != nil {
		if err := admit(role); err != nil {
			return "", err
		}
	}

	ms.Meta().Role = role
	r.joinSeq++
	r.members[sid] = &memberSlot{session: ms, seq: r.joinSeq}
	if len(r.members) == 1 {
		r.cancelExpiryLocked()
	}
	log.Info().
		Str("module", "core.room").
		Str("room", string(r.room.ID)).
		Str("sid", string(sid)).
		Str("member", string(ms.Meta().ID)).
		Str("role", string(role)).
		Int("members", len(r.members)).
		Msg("member added")
	return role, nil
}

func (r *roomImpl) Leave(sid SessionID, release ReleaseFunc) (LeaveResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	slot, ok := r.members[sid]
	if !ok {
		return LeaveResult{}, domain.ErrNotInRoom
	}
	delete(r.members, sid)
	if release != nil {
		release(sid)
	}

	res := LeaveResult{Left: slot.session}
	if len(r.members) == 0 {
		res.Empty = true
		if !r.closed {
			r.scheduleExpiryLocked()
		}
	} else if slot.session.Meta().Role == domain.RoleAdmin {
		next := r.earliestLocked()
		next.session.Meta().Role = domain.RoleAdmin
		res.Promoted = next.session
		log.Info().
			Str("module", "core.room").
			Str("room", string(r.room.ID)).
			Str("member", string(next.session.Meta().ID)).
			Msg("admin promoted")
	}

	log.Info().
		Str("module", "core.room").
		Str("room", string(r.room.ID)).
		Str("sid", string(sid)).
		Int("members", len(r.members)).
		Msg("member removed")
	return res, nil
}

func (r *roomImpl) Terminate(by SessionID, release ReleaseFunc) ([]MemberSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, domain.ErrRoomNotFound
	}
	slot, ok := r.members[by]
	if !ok {
		return nil, domain.ErrNotInRoom
	}
	if slot.session.Meta().Role != domain.RoleAdmin {
		return nil, domain.ErrNotAdmin
	}

	r.closed = true
	r.cancelExpiryLocked()
	out := make([]MemberSession, 0, len(r.members))
	for sid, s := range r.members {
		if release != nil {
			release(sid)
		}
		out = append(out, s.session)
	}
	clear(r.members)
	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Str("by", string(by)).Int("members", len(out)).Msg("room terminated")
	return out, nil
}

// Broadcast snapshots the peers under the lock and sends outside it, so a
// slow or failing peer never holds up membership changes.
func (r *roomImpl) Broadcast(from SessionID, f Frame) PublishResult {
	r.mu.Lock()
	peers := make([]MemberSession, 0, len(r.members))
	for sid, s := range r.members {
		if sid == from {
			continue
		}
		peers = append(peers, s.session)
	}
	r.mu.Unlock()

	res := PublishResult{}
	for _, m := range peers {
		if err := m.Signal().TrySend(f); err != nil {
			log.Warn().Err(err).Str("module", "core.room").Str("room", string(r.room.ID)).Str("member", string(m.Meta().ID)).Msg("peer send failed")
			res.Dropped = append(res.Dropped, m)
			continue
		}
		res.SendTo++
	}
	log.Debug().Str("module", "core.room").Str("from", string(from)).Int("sent_to", res.SendTo).Int("dropped", len(res.Dropped)).Msg("broadcast result")
	return res
}

// Close marks the room dead without touching its members; used on shutdown.
func (r *roomImpl) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	r.cancelExpiryLocked()
}

func (r *roomImpl) earliestLocked() *memberSlot {
	var first *memberSlot
	for _, s := range r.members {
		if first == nil || s.seq < first.seq {
			first = s
		}
	}
	return first
}

func (r *roomImpl) scheduleExpiryLocked() {
	r.cancelExpiryLocked()
	epoch := r.epoch
	r.timer = r.clock.AfterFunc(r.grace, func() { r.expire(epoch) })
}

func (r *roomImpl) cancelExpiryLocked() {
	r.epoch++
	if r.timer != nil {
		r.timer.Stop()
		r.timer = nil
	}
}

func (r *roomImpl) expire(epoch uint64) {
	r.mu.Lock()
	if r.closed || r.epoch != epoch || len(r.members) > 0 {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.timer = nil
	r.mu.Unlock()

	log.Info().Str("module", "core.room").Str("room", string(r.room.ID)).Msg("empty room expired")
	if r.onExpire != nil {
		r.onExpire(r)
	}
}
