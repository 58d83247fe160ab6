package orch

import (
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

// Orchestrator is the relay engine. It owns no transport: handlers in the
// signal adapter call it with the connection's SessionID and it fans frames
// out through the rooms.
type Orchestrator struct {
	Registry *app.Registry
	Rooms    core.RoomManager
	IDs      *app.IDAllocator
	Policy   app.Policy
	// Clock stamps Member.JoinedAt; nil means the wall clock.
	Clock clockwork.Clock

	// RequireMediaMeta rejects binary frames that were not announced by a
	// MEDIA_META from the same connection.
	RequireMediaMeta bool
}

type Stats struct {
	Rooms   int `json:"rooms"`
	Members int `json:"members"`
}

func (o *Orchestrator) Stats() Stats {
	return Stats{Rooms: len(o.Rooms.List()), Members: o.Registry.Count()}
}

func (o *Orchestrator) now() time.Time {
	if o.Clock == nil {
		return time.Now()
	}
	return o.Clock.Now()
}

// currentRoom resolves the room sid is a member of.
func (o *Orchestrator) currentRoom(sid core.SessionID) (core.RoomService, core.MemberSession, error) {
	roomID, sess, ok := o.Registry.RoomOf(sid)
	if !ok {
		return nil, nil, domain.ErrNotInRoom
	}
	room, ok := o.Rooms.GetRoom(roomID)
	if !ok {
		return nil, nil, domain.ErrNotInRoom
	}
	return room, sess, nil
}

// fanout delivers f to every member of room except from and applies the
// backpressure policy to peers whose queue was full.
func (o *Orchestrator) fanout(room core.RoomService, from core.SessionID, f core.Frame) core.PublishResult {
	res := room.Broadcast(from, f)
	if o.Policy == nil || len(res.Dropped) == 0 {
		return res
	}
	var wg conc.WaitGroup
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(room, slow) {
		case app.KickMember:
			log.Warn().
				Str("module", "orch").
				Str("room", string(room.Room().ID)).
				Str("member", string(slow.Meta().ID)).
				Msg("kicking slow member")
			wg.Go(slow.Signal().Close)
		case app.NoAction:
		}
	}
	if r := wg.WaitAndRecover(); r != nil {
		log.Error().Str("module", "orch").Str("panic", r.String()).Msg("closing slow member panicked")
	}
	return res
}

// notify sends a single envelope to one member.
func (o *Orchestrator) notify(ms core.MemberSession, t protocol.Type, payload any) {
	data, err := protocol.Encode(t, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("type", string(t)).Msg("encode failed")
		return
	}
	if err := ms.Signal().TrySend(core.Text(data)); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("member", string(ms.Meta().ID)).Str("type", string(t)).Msg("notify failed")
	}
}

// closeAll closes the transport of every session concurrently.
func closeAll(sessions []core.MemberSession) {
	var wg conc.WaitGroup
	for _, s := range sessions {
		wg.Go(s.Signal().Close)
	}
	if r := wg.WaitAndRecover(); r != nil {
		log.Error().Str("module", "orch").Str("panic", r.String()).Msg("closing member panicked")
	}
}
