package signal

import (
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/protocol"
)

func (ctl *SignalWSController) handleCreateRoom(
	sid core.SessionID,
	conn *WsSignalConn,
	p *protocol.CreateRoom,
) {
	res, err := ctl.Orch.CreateRoom(sid, conn, p.RoomCapacity(), p.Name())
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("create room rejected")
		ctl.sendError(conn, err)
		return
	}
	ctl.sendJSON(conn, protocol.TypeRoomCreated, res)
}

func (ctl *SignalWSController) handleJoin(
	sid core.SessionID,
	conn *WsSignalConn,
	p *protocol.JoinRoom,
) {
	res, err := ctl.Orch.JoinRoom(sid, conn, p.RoomID, p.Name())
	if err != nil {
		log.Info().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("room_id", p.RoomID).Msg("join rejected")
		ctl.sendError(conn, err)
		return
	}
	ctl.sendJSON(conn, protocol.TypeJoinedRoom, res)
}

// handleLeave leaves the current room; the connection stays open.
func (ctl *SignalWSController) handleLeave(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	roomID, err := ctl.Orch.Leave(sid)
	if err != nil {
		ctl.sendError(conn, err)
		return
	}
	ctl.sendJSON(conn, protocol.TypeLeftRoom, protocol.LeftRoomPayload{RoomID: roomID})
}

// handleTerminate answers only on failure; on success every member
// connection, this one included, is closed.
func (ctl *SignalWSController) handleTerminate(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	if err := ctl.Orch.Terminate(sid); err != nil {
		ctl.sendError(conn, err)
	}
}
