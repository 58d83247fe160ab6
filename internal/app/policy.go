package app

import "github.com/dkeye/Huddle/internal/core"

type BackpressureAction int

const (
	NoAction BackpressureAction = iota
	KickMember
)

// Policy decides what to do with a peer whose send queue overflowed.
type Policy interface {
	OnBackPressure(room core.RoomService, member core.MemberSession) BackpressureAction
}

// SimplePolicy kicks slow peers, so no receiver is left holding a
// MEDIA_META whose binary payload was dropped.
type SimplePolicy struct{}

func (SimplePolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return KickMember
}

// TolerantPolicy keeps slow peers connected; the dropped frame is lost.
type TolerantPolicy struct{}

func (TolerantPolicy) OnBackPressure(core.RoomService, core.MemberSession) BackpressureAction {
	return NoAction
}

// PolicyByName maps the backpressure_policy config value to a Policy.
func PolicyByName(name string) Policy {
	if name == "tolerate" {
		return TolerantPolicy{}
	}
	return SimplePolicy{}
}
