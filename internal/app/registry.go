package app

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

// ErrMemberIDTaken is returned by Register when the member id is already
// bound to another connection; callers draw a new id and retry.
var ErrMemberIDTaken = errors.New("member id taken")

type sessionEntry struct {
	Session core.MemberSession
	Pending *domain.MediaMeta
}

// Registry is the member directory: connection -> member, plus the reverse
// member id -> connection index. Register and Unregister are called from
// inside a room's lock so the directory never disagrees with room membership.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	members  map[domain.MemberID]core.SessionID
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		members:  make(map[domain.MemberID]core.SessionID),
	}
}

// Register binds sid to a member. A connection holds at most one member.
func (r *Registry) Register(sid core.SessionID, sess core.MemberSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.sessions[sid]; ok {
		return domain.ErrAlreadyMember
	}
	m := sess.Meta()
	if _, ok := r.members[m.ID]; ok {
		return ErrMemberIDTaken
	}
	r.sessions[sid] = &sessionEntry{Session: sess}
	r.members[m.ID] = sid
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("member", string(m.ID)).Str("room", string(m.RoomID)).Msg("bound session")
	return nil
}

func (r *Registry) GetSession(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.sessions[sid]; ok {
		return e.Session, true
	}
	return nil, false
}

// RoomOf returns the room the connection is a member of.
func (r *Registry) RoomOf(sid core.SessionID) (domain.RoomID, core.MemberSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return "", nil, false
	}
	return e.Session.Meta().RoomID, e.Session, true
}

func (r *Registry) SessionOf(id domain.MemberID) (core.SessionID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sid, ok := r.members[id]
	return sid, ok
}

func (r *Registry) HasMember(id domain.MemberID) bool {
	_, ok := r.SessionOf(id)
	return ok
}

// Unbind removes and returns the prior entry, pending media included.
func (r *Registry) Unbind(sid core.SessionID) (core.MemberSession, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	delete(r.sessions, sid)
	delete(r.members, e.Session.Meta().ID)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("unbind session")
	return e.Session, true
}

// SetPendingMedia stores meta as the connection's pending transfer and
// reports whether an earlier one was overwritten.
func (r *Registry) SetPendingMedia(sid core.SessionID, meta domain.MediaMeta) (replaced bool, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false, domain.ErrNotInRoom
	}
	replaced = e.Pending != nil
	e.Pending = &meta
	return replaced, nil
}

// TakePendingMedia returns and clears the pending transfer.
func (r *Registry) TakePendingMedia(sid core.SessionID) (domain.MediaMeta, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok || e.Pending == nil {
		return domain.MediaMeta{}, false
	}
	meta := *e.Pending
	e.Pending = nil
	return meta, true
}

func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
