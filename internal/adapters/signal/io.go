package signal

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

func (ctl *SignalWSController) writePump(ctx context.Context, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Msg("writePump ctx done")
			return
		case f, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			mt := websocket.TextMessage
			if f.Kind == core.BinaryFrame {
				mt = websocket.BinaryMessage
			}
			if err := c.conn.WriteMessage(mt, f.Data); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("ping failed")
				return
			}
		}
	}
}

// readPump handles frames one at a time, so operations from a single
// connection never overlap. Its exit is the connection's only disconnect.
func (ctl *SignalWSController) readPump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		ctl.Orch.Disconnect(sid)
		ctl.limiter.Forget(sid)
		c.Close()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump ctx done")
			return
		default:
			mt, data, err := c.conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
				}
				return
			}
			_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))

			if !ctl.limiter.Allow(sid) {
				ctl.sendError(c, domain.ErrRateLimited)
				continue
			}
			switch mt {
			case websocket.TextMessage:
				ctl.handleSignal(sid, c, data)
			case websocket.BinaryMessage:
				ctl.handleBinary(sid, c, data)
			}
		}
	}
}

func (ctl *SignalWSController) handleSignal(sid core.SessionID, c *WsSignalConn, data []byte) {
	req, err := protocol.Decode(data)
	if err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad envelope")
		ctl.sendError(c, err)
		return
	}

	switch r := req.(type) {
	case *protocol.CreateRoom:
		ctl.handleCreateRoom(sid, c, r)
	case *protocol.JoinRoom:
		ctl.handleJoin(sid, c, r)
	case *protocol.LeaveRoom:
		ctl.handleLeave(sid, c)
	case *protocol.SendMessage:
		ctl.handleMessage(sid, c, r)
	case *protocol.MediaMeta:
		ctl.handleMediaMeta(sid, c, r)
	case *protocol.Terminate:
		ctl.handleTerminate(sid, c)
	case *protocol.Ping:
		ctl.handlePing(c)
	case *protocol.WhoAmI:
		ctl.handleWhoAmI(sid, c)
	default:
		log.Warn().Str("module", "signal").Str("type", string(req.RequestType())).Msg("unhandled signal")
	}
}

func (ctl *SignalWSController) sendJSON(c core.SignalConnection, t protocol.Type, payload any) {
	b, err := protocol.Encode(t, payload)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", string(t)).Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(core.Text(b)); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("type", string(t)).Msg("sendJSON")
	}
}

// sendError reports err to the originating connection only.
func (ctl *SignalWSController) sendError(c core.SignalConnection, err error) {
	b, encErr := protocol.EncodeError(err)
	if encErr != nil {
		log.Error().Err(encErr).Str("module", "signal").Msg("sendError marshal")
		return
	}
	if domain.KindOf(err) == domain.KindInternal {
		log.Error().Err(err).Str("module", "signal").Msg("internal error")
	}
	_ = c.TrySend(core.Text(b))
}
