package domain

import "time"

type MemberID string

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Member represents a connection's participation in a room.
// No transport or lifecycle logic here.
type Member struct {
	ID          MemberID
	RoomID      RoomID
	DisplayName string
	JoinedAt    time.Time

	// Role is guarded by the owning room's lock.
	Role Role
}

// NewMember avoids raw literals in adapters and keeps construction obvious.
func NewMember(id MemberID, room RoomID, displayName string, joinedAt time.Time) *Member {
	return &Member{ID: id, RoomID: room, DisplayName: displayName, JoinedAt: joinedAt}
}

// MediaMeta is the pending media transfer announced by MEDIA_META and
// consumed by the next binary frame from the same connection.
type MediaMeta struct {
	FileName string
	FileType string
}
