package orch

import (
	"github.com/gabriel-vasile/mimetype"
	"github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/protocol"
)

const defaultFileType = "application/octet-stream"

// SendMessage relays a chat line to everyone else in the sender's room.
func (o *Orchestrator) SendMessage(sid core.SessionID, text string, replyTo json.RawMessage) error {
	room, sess, err := o.currentRoom(sid)
	if err != nil {
		return err
	}
	m := sess.Meta()
	data, err := protocol.Encode(protocol.TypeMessage, protocol.MessagePayload{
		SenderID:   m.ID,
		SenderName: m.DisplayName,
		Message:    text,
		ReplyTo:    replyTo,
	})
	if err != nil {
		return err
	}
	o.fanout(room, sid, core.Text(data))
	return nil
}

// MediaMeta records the announced file as sid's pending transfer and relays
// the announcement. A second MEDIA_META before the binary frame replaces the
// first.
func (o *Orchestrator) MediaMeta(sid core.SessionID, fileName, fileType string) error {
	room, sess, err := o.currentRoom(sid)
	if err != nil {
		return err
	}
	if fileType == "" {
		fileType = defaultFileType
	}
	replaced, err := o.Registry.SetPendingMedia(sid, domain.MediaMeta{FileName: fileName, FileType: fileType})
	if err != nil {
		return err
	}
	m := sess.Meta()
	if replaced {
		log.Warn().Str("module", "orch").Str("member", string(m.ID)).Str("file", fileName).Msg("pending media overwritten")
	}

	data, err := protocol.Encode(protocol.TypeMediaMeta, protocol.MediaMetaPayload{
		FileName:   fileName,
		FileType:   fileType,
		SenderID:   m.ID,
		SenderName: m.DisplayName,
	})
	if err != nil {
		return err
	}
	o.fanout(room, sid, core.Text(data))
	return nil
}

// BinaryPayload relays raw media bytes. The pending MEDIA_META, if any, is
// consumed so each announcement pairs with exactly one payload.
func (o *Orchestrator) BinaryPayload(sid core.SessionID, data []byte) error {
	room, sess, err := o.currentRoom(sid)
	if err != nil {
		return err
	}
	meta, ok := o.Registry.TakePendingMedia(sid)
	if !ok && o.RequireMediaMeta {
		return domain.ErrNoPendingMetadata
	}
	if ok {
		checkMediaType(sess.Meta(), meta, data)
	}
	res := o.fanout(room, sid, core.Binary(data))
	log.Debug().
		Str("module", "orch").
		Str("member", string(sess.Meta().ID)).
		Int("bytes", len(data)).
		Int("sent_to", res.SendTo).
		Msg("media relayed")
	return nil
}

// checkMediaType only logs; the payload is relayed as-is either way.
func checkMediaType(m *domain.Member, meta domain.MediaMeta, data []byte) {
	if meta.FileType == defaultFileType {
		return
	}
	detected := mimetype.Detect(data)
	if !detected.Is(meta.FileType) {
		log.Debug().
			Str("module", "orch").
			Str("member", string(m.ID)).
			Str("file", meta.FileName).
			Str("declared", meta.FileType).
			Str("detected", detected.String()).
			Msg("media type mismatch")
	}
}
