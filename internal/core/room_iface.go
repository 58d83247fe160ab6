package core

import (
	"github.com/dkeye/Huddle/internal/domain"
)

// PublishResult reports delivery stats/backpressure to orchestrator.
type PublishResult struct {
	SendTo  int
	Dropped []MemberSession
}

// AdmitFunc runs under the room lock once the joiner's role is known.
// Returning an error aborts the join and leaves the room untouched.
type AdmitFunc func(role domain.Role) error

// ReleaseFunc runs under the room lock for every session leaving the room.
type ReleaseFunc func(sid SessionID)

type LeaveResult struct {
	Left     MemberSession
	Promoted MemberSession
	Empty    bool
}

// RoomService is the core-facing API of a room.
// It owns the membership set but never touches transport resources.
type RoomService interface {
	Room() *domain.Room
	MemberCount() int
	Role(sid SessionID) (domain.Role, bool)
	Closed() bool

	Join(sid SessionID, ms MemberSession, admit AdmitFunc) (domain.Role, error)
	Leave(sid SessionID, release ReleaseFunc) (LeaveResult, error)
	Terminate(by SessionID, release ReleaseFunc) ([]MemberSession, error)
	Broadcast(from SessionID, f Frame) PublishResult
	Close()
}

type RoomInfo struct {
	ID          domain.RoomID `json:"roomId"`
	Capacity    int           `json:"capacity"`
	MemberCount int           `json:"memberCount"`
}

type RoomManager interface {
	CreateRoom(capacity int) (RoomService, error)
	GetRoom(id domain.RoomID) (RoomService, bool)
	StopRoom(id domain.RoomID)
	List() []RoomInfo
}
