package protocol

import (
	"github.com/goccy/go-json"

	"github.com/dkeye/Huddle/internal/domain"
)

// Request is the closed set of inbound envelopes returned by Decode.
type Request interface {
	RequestType() Type
}

type CreateRoom struct {
	Capacity int `json:"capacity"`
	// MaxSize is the field name older clients send.
	MaxSize     int    `json:"maxSize"`
	DisplayName string `json:"displayName" validate:"max=36"`
	Username    string `json:"username" validate:"max=36"`
}

func (*CreateRoom) RequestType() Type { return TypeCreateRoom }

func (c *CreateRoom) RoomCapacity() int {
	if c.Capacity != 0 {
		return c.Capacity
	}
	return c.MaxSize
}

func (c *CreateRoom) Name() string { return firstNonEmpty(c.DisplayName, c.Username) }

type JoinRoom struct {
	RoomID      string `json:"roomId" validate:"required,max=32"`
	DisplayName string `json:"displayName" validate:"max=36"`
	Username    string `json:"username" validate:"max=36"`
}

func (*JoinRoom) RequestType() Type { return TypeJoinRoom }

func (j *JoinRoom) Name() string { return firstNonEmpty(j.DisplayName, j.Username) }

type LeaveRoom struct{}

func (*LeaveRoom) RequestType() Type { return TypeLeaveRoom }

type SendMessage struct {
	Message string `json:"message" validate:"required"`
	// ReplyTo is relayed verbatim; the server does not interpret it.
	ReplyTo json.RawMessage `json:"replyTo,omitempty"`
}

func (*SendMessage) RequestType() Type { return TypeSendMessage }

// Reply returns ReplyTo, treating an explicit null as absent.
func (s *SendMessage) Reply() json.RawMessage {
	if len(s.ReplyTo) == 0 || string(s.ReplyTo) == "null" {
		return nil
	}
	return s.ReplyTo
}

type MediaMeta struct {
	FileName string `json:"fileName" validate:"required,max=255"`
	FileType string `json:"fileType" validate:"max=255"`
}

func (*MediaMeta) RequestType() Type { return TypeMediaMeta }

type Terminate struct{}

func (*Terminate) RequestType() Type { return TypeTerminate }

type Ping struct{}

func (*Ping) RequestType() Type { return TypePing }

type WhoAmI struct{}

func (*WhoAmI) RequestType() Type { return TypeWhoAmI }

type RoomCreatedPayload struct {
	RoomID      domain.RoomID   `json:"roomId"`
	MemberID    domain.MemberID `json:"memberId"`
	Role        domain.Role     `json:"role"`
	DisplayName string          `json:"displayName"`
	Capacity    int             `json:"capacity"`
}

type JoinedRoomPayload struct {
	RoomID      domain.RoomID   `json:"roomId"`
	MemberID    domain.MemberID `json:"memberId"`
	Role        domain.Role     `json:"role"`
	DisplayName string          `json:"displayName"`
	Capacity    int             `json:"capacity"`
}

type LeftRoomPayload struct {
	RoomID domain.RoomID `json:"roomId"`
}

type MessagePayload struct {
	SenderID   domain.MemberID `json:"senderId"`
	SenderName string          `json:"senderName"`
	Message    string          `json:"message"`
	ReplyTo    json.RawMessage `json:"replyTo,omitempty"`
}

type MediaMetaPayload struct {
	FileName   string          `json:"fileName"`
	FileType   string          `json:"fileType"`
	SenderID   domain.MemberID `json:"senderId"`
	SenderName string          `json:"senderName"`
}

type AdminChangedPayload struct {
	RoomID   domain.RoomID `json:"roomId"`
	Role     domain.Role   `json:"role"`
	Capacity int           `json:"capacity"`
}

type WhoAmIPayload struct {
	MemberID    domain.MemberID `json:"memberId,omitempty"`
	RoomID      domain.RoomID   `json:"roomId,omitempty"`
	Role        domain.Role     `json:"role,omitempty"`
	DisplayName string          `json:"displayName,omitempty"`
	Capacity    int             `json:"capacity,omitempty"`
}

type ErrorPayload struct {
	Kind    domain.Kind `json:"kind"`
	Message string      `json:"message"`
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
