package domain

import (
	"strings"
	"time"
)

type RoomID string

const (
	MinCapacity = 2
	MaxCapacity = 10
)

type Room struct {
	ID        RoomID
	Capacity  int
	CreatedAt time.Time
}

// ValidCapacity reports whether capacity is inside [MinCapacity, MaxCapacity].
func ValidCapacity(capacity int) bool {
	return capacity >= MinCapacity && capacity <= MaxCapacity
}

// ParseRoomID normalizes a user-typed room code.
func ParseRoomID(raw string) RoomID {
	return RoomID(strings.ToUpper(strings.TrimSpace(raw)))
}
