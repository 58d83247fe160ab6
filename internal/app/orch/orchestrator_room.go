package orch

import (
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

// CreateRoom makes a new room and joins sid to it as ADMIN.
func (o *Orchestrator) CreateRoom(sid core.SessionID, conn core.SignalConnection, capacity int, displayName string) (protocol.RoomCreatedPayload, error) {
	if _, ok := o.Registry.GetSession(sid); ok {
		return protocol.RoomCreatedPayload{}, domain.ErrAlreadyMember
	}
	name, err := domain.NormalizeDisplayName(displayName)
	if err != nil {
		return protocol.RoomCreatedPayload{}, domain.Errorf(domain.KindBadPayload, "%v", err)
	}

	room, err := o.Rooms.CreateRoom(capacity)
	if err != nil {
		return protocol.RoomCreatedPayload{}, err
	}
	joined, err := o.join(sid, conn, room, name)
	if err != nil {
		o.Rooms.StopRoom(room.Room().ID)
		return protocol.RoomCreatedPayload{}, err
	}
	return protocol.RoomCreatedPayload(joined), nil
}

// JoinRoom adds sid to an existing room. The code is matched case-insensitively.
func (o *Orchestrator) JoinRoom(sid core.SessionID, conn core.SignalConnection, rawRoomID, displayName string) (protocol.JoinedRoomPayload, error) {
	if _, ok := o.Registry.GetSession(sid); ok {
		return protocol.JoinedRoomPayload{}, domain.ErrAlreadyMember
	}
	name, err := domain.NormalizeDisplayName(displayName)
	if err != nil {
		return protocol.JoinedRoomPayload{}, domain.Errorf(domain.KindBadPayload, "%v", err)
	}
	room, ok := o.Rooms.GetRoom(domain.ParseRoomID(rawRoomID))
	if !ok {
		return protocol.JoinedRoomPayload{}, domain.ErrRoomNotFound
	}
	return o.join(sid, conn, room, name)
}

const maxRegisterAttempts = 8

func (o *Orchestrator) join(sid core.SessionID, conn core.SignalConnection, room core.RoomService, name string) (protocol.JoinedRoomPayload, error) {
	for n := 0; n < maxRegisterAttempts; n++ {
		id, err := o.IDs.MemberID(o.Registry.HasMember)
		if err != nil {
			return protocol.JoinedRoomPayload{}, err
		}
		sess := core.NewMemberSession(domain.NewMember(id, room.Room().ID, name, o.now()), conn)

		role, err := room.Join(sid, sess, func(domain.Role) error {
			return o.Registry.Register(sid, sess)
		})
		if errors.Is(err, app.ErrMemberIDTaken) {
			continue
		}
		if err != nil {
			return protocol.JoinedRoomPayload{}, err
		}

		log.Info().
			Str("module", "orch").
			Str("sid", string(sid)).
			Str("room", string(room.Room().ID)).
			Str("member", string(id)).
			Str("role", string(role)).
			Msg("joined room")
		return protocol.JoinedRoomPayload{
			RoomID:      room.Room().ID,
			MemberID:    id,
			Role:        role,
			DisplayName: name,
			Capacity:    room.Room().Capacity,
		}, nil
	}
	return protocol.JoinedRoomPayload{}, domain.ErrIDExhausted
}

// Leave removes sid from its room. When the admin leaves, the earliest
// remaining member is promoted and told so with ADMIN_CHANGED.
func (o *Orchestrator) Leave(sid core.SessionID) (domain.RoomID, error) {
	room, _, err := o.currentRoom(sid)
	if err != nil {
		return "", err
	}
	res, err := room.Leave(sid, o.release)
	if err != nil {
		return "", err
	}

	if res.Promoted != nil {
		o.notify(res.Promoted, protocol.TypeAdminChanged, protocol.AdminChangedPayload{
			RoomID:   room.Room().ID,
			Role:     domain.RoleAdmin,
			Capacity: room.Room().Capacity,
		})
	}
	log.Info().Str("module", "orch").Str("sid", string(sid)).Str("room", string(room.Room().ID)).Bool("empty", res.Empty).Msg("left room")
	return room.Room().ID, nil
}

// Disconnect is Leave for a transport that went away. It is idempotent and
// quiet when the connection never joined.
func (o *Orchestrator) Disconnect(sid core.SessionID) {
	if _, err := o.Leave(sid); err != nil && !errors.Is(err, domain.ErrNotInRoom) {
		log.Error().Err(err).Str("module", "orch").Str("sid", string(sid)).Msg("disconnect cleanup failed")
	}
}

// Terminate lets the admin dissolve the room: every member is unbound and
// every member connection, the admin's included, is closed.
func (o *Orchestrator) Terminate(sid core.SessionID) error {
	room, _, err := o.currentRoom(sid)
	if err != nil {
		return err
	}
	members, err := room.Terminate(sid, o.release)
	if errors.Is(err, domain.ErrRoomNotFound) {
		return domain.ErrNotInRoom
	}
	if err != nil {
		return err
	}
	o.Rooms.StopRoom(room.Room().ID)
	closeAll(members)
	return nil
}

func (o *Orchestrator) WhoAmI(sid core.SessionID) protocol.WhoAmIPayload {
	room, sess, err := o.currentRoom(sid)
	if err != nil {
		return protocol.WhoAmIPayload{}
	}
	m := sess.Meta()
	role, _ := room.Role(sid)
	return protocol.WhoAmIPayload{
		MemberID:    m.ID,
		RoomID:      m.RoomID,
		Role:        role,
		DisplayName: m.DisplayName,
		Capacity:    room.Room().Capacity,
	}
}

// release runs under the room lock for each departing session.
func (o *Orchestrator) release(sid core.SessionID) {
	o.Registry.Unbind(sid)
}
