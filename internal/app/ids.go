package app

import (
	"github.com/google/uuid"
	gonanoid "github.com/matoous/go-nanoid/v2"

	"github.com/dkeye/Huddle/internal/domain"
)

// RoomCodeAlphabet leaves out 0/O and 1/I so codes survive being read aloud.
const RoomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	DefaultRoomCodeLen = 6
	maxAllocAttempts   = 1024
)

// IDAllocator hands out room codes and member ids. It keeps no state of its
// own; uniqueness is checked against the caller-supplied oracle.
type IDAllocator struct {
	newCode func() (string, error)
	newUUID func() string
}

func NewIDAllocator(codeLen int) *IDAllocator {
	if codeLen <= 0 {
		codeLen = DefaultRoomCodeLen
	}
	return &IDAllocator{
		newCode: func() (string, error) { return gonanoid.Generate(RoomCodeAlphabet, codeLen) },
		newUUID: uuid.NewString,
	}
}

// WithSources swaps the generators used for codes and member ids. Nil keeps
// the current one.
func (a *IDAllocator) WithSources(newCode func() (string, error), newUUID func() string) *IDAllocator {
	cp := *a
	if newCode != nil {
		cp.newCode = newCode
	}
	if newUUID != nil {
		cp.newUUID = newUUID
	}
	return &cp
}

// RoomID draws codes until taken reports a free one.
func (a *IDAllocator) RoomID(taken func(domain.RoomID) bool) (domain.RoomID, error) {
	for n := 0; n < maxAllocAttempts; n++ {
		code, err := a.newCode()
		if err != nil {
			return "", err
		}
		if id := domain.RoomID(code); !taken(id) {
			return id, nil
		}
	}
	return "", domain.ErrIDExhausted
}

// MemberID draws UUIDs until taken reports a free one.
func (a *IDAllocator) MemberID(taken func(domain.MemberID) bool) (domain.MemberID, error) {
	for n := 0; n < maxAllocAttempts; n++ {
		if id := domain.MemberID(a.newUUID()); !taken(id) {
			return id, nil
		}
	}
	return "", domain.ErrIDExhausted
}
