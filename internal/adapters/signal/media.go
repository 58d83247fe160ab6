package signal

import (
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/protocol"
)

func (ctl *SignalWSController) handleMessage(sid core.SessionID, conn *WsSignalConn, p *protocol.SendMessage) {
	if err := ctl.Orch.SendMessage(sid, p.Message, p.Reply()); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SignalWSController) handleMediaMeta(sid core.SessionID, conn *WsSignalConn, p *protocol.MediaMeta) {
	if err := ctl.Orch.MediaMeta(sid, p.FileName, p.FileType); err != nil {
		ctl.sendError(conn, err)
	}
}

func (ctl *SignalWSController) handleBinary(sid core.SessionID, conn *WsSignalConn, data []byte) {
	if err := ctl.Orch.BinaryPayload(sid, data); err != nil {
		ctl.sendError(conn, err)
	}
}
