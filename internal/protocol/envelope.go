// Package protocol defines the JSON envelopes exchanged over the signal
// connection. Text frames carry {type, payload}; binary frames carry raw
// media bytes and never pass through this package.
package protocol

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"

	"github.com/dkeye/Huddle/internal/domain"
)

type Type string

// Inbound.
const (
	TypeCreateRoom  Type = "CREATE_ROOM"
	TypeJoinRoom    Type = "JOIN_ROOM"
	TypeLeaveRoom   Type = "LEAVE_ROOM"
	TypeSendMessage Type = "SEND_MESSAGE"
	TypeMediaMeta   Type = "MEDIA_META"
	TypeTerminate   Type = "TERMINATE"
	TypePing        Type = "PING"
	TypeWhoAmI      Type = "WHOAMI"
)

// Outbound. MEDIA_META and WHOAMI are used in both directions.
const (
	TypeRoomCreated  Type = "ROOM_CREATED"
	TypeJoinedRoom   Type = "JOINED_ROOM"
	TypeLeftRoom     Type = "LEFT_ROOM"
	TypeMessage      Type = "MESSAGE"
	TypeAdminChanged Type = "ADMIN_CHANGED"
	TypePong         Type = "PONG"
	TypeError        Type = "ERROR"
)

type Envelope struct {
	Type    Type            `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Decode parses a text frame into one of the Request types. Unknown types
// fail with UnknownEnvelopeType, malformed or invalid payloads with BadPayload.
func Decode(data []byte) (Request, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, domain.Errorf(domain.KindBadPayload, "malformed envelope: %v", err)
	}

	var req Request
	switch env.Type {
	case TypeCreateRoom:
		req = &CreateRoom{}
	case TypeJoinRoom:
		req = &JoinRoom{}
	case TypeLeaveRoom:
		req = &LeaveRoom{}
	case TypeSendMessage:
		req = &SendMessage{}
	case TypeMediaMeta:
		req = &MediaMeta{}
	case TypeTerminate:
		req = &Terminate{}
	case TypePing:
		req = &Ping{}
	case TypeWhoAmI:
		req = &WhoAmI{}
	default:
		return nil, domain.Errorf(domain.KindUnknownEnvelopeType, "unknown envelope type %q", env.Type)
	}

	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, req); err != nil {
			return nil, domain.Errorf(domain.KindBadPayload, "bad %s payload: %v", env.Type, err)
		}
	}
	if err := validate.Struct(req); err != nil {
		return nil, validationError(env.Type, err)
	}
	return req, nil
}

func validationError(t Type, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return domain.Errorf(domain.KindBadPayload, "bad %s payload: %s failed %q", t, fe.Field(), fe.Tag())
	}
	return domain.Errorf(domain.KindBadPayload, "bad %s payload: %v", t, err)
}

type outEnvelope struct {
	Type    Type `json:"type"`
	Payload any  `json:"payload"`
}

// Encode builds a text frame. A nil payload is sent as {}.
func Encode(t Type, payload any) ([]byte, error) {
	if payload == nil {
		payload = struct{}{}
	}
	return json.Marshal(outEnvelope{Type: t, Payload: payload})
}

// EncodeError turns any error into an ERROR envelope. Foreign errors are
// reported as Internal without leaking their text.
func EncodeError(err error) ([]byte, error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindInternal {
		msg = "internal error"
	}
	return Encode(TypeError, ErrorPayload{Kind: kind, Message: msg})
}
