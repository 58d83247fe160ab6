package domain

import (
	"errors"
	"fmt"
)

// Kind classifies failures surfaced to clients in ERROR envelopes.
type Kind string

const (
	KindInvalidCapacity     Kind = "InvalidCapacity"
	KindRoomNotFound        Kind = "RoomNotFound"
	KindRoomFull            Kind = "RoomFull"
	KindAlreadyMember       Kind = "AlreadyMember"
	KindNotInRoom           Kind = "NotInRoom"
	KindNotAdmin            Kind = "NotAdmin"
	KindNoPendingMetadata   Kind = "NoPendingMetadata"
	KindUnknownEnvelopeType Kind = "UnknownEnvelopeType"
	KindBadPayload          Kind = "BadPayload"
	KindRateLimited         Kind = "RateLimited"
	KindIDExhausted         Kind = "IDExhausted"
	KindInternal            Kind = "Internal"
)

type Error struct {
	Kind    Kind
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is matches any *Error of the same kind, so callers can compare against
// the sentinels below regardless of message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidCapacity     = &Error{Kind: KindInvalidCapacity, Message: fmt.Sprintf("room capacity must be between %d and %d", MinCapacity, MaxCapacity)}
	ErrRoomNotFound        = &Error{Kind: KindRoomNotFound, Message: "room not found"}
	ErrRoomFull            = &Error{Kind: KindRoomFull, Message: "room is full"}
	ErrAlreadyMember       = &Error{Kind: KindAlreadyMember, Message: "already in a room"}
	ErrNotInRoom           = &Error{Kind: KindNotInRoom, Message: "not in a room"}
	ErrNotAdmin            = &Error{Kind: KindNotAdmin, Message: "only the room admin can do that"}
	ErrNoPendingMetadata   = &Error{Kind: KindNoPendingMetadata, Message: "binary payload without preceding MEDIA_META"}
	ErrUnknownEnvelopeType = &Error{Kind: KindUnknownEnvelopeType, Message: "unknown envelope type"}
	ErrBadPayload          = &Error{Kind: KindBadPayload, Message: "bad payload"}
	ErrRateLimited         = &Error{Kind: KindRateLimited, Message: "too many messages, slow down"}
	ErrIDExhausted         = &Error{Kind: KindIDExhausted, Message: "could not allocate a free identifier"}
)

// KindOf returns the Kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
