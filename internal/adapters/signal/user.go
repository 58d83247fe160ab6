package signal

import (
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/protocol"
)

// handleWhoAmI reports the connection's membership; fields are empty when
// the connection is not in a room.
func (ctl *SignalWSController) handleWhoAmI(
	sid core.SessionID,
	conn *WsSignalConn,
) {
	ctl.sendJSON(conn, protocol.TypeWhoAmI, ctl.Orch.WhoAmI(sid))
}
