package ws

import (
	"encoding/json"

	"github.com/hilthontt/collaby/internal/domain"
)

type WSMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data"`
}

// InboundMessage keeps the payload raw so relayed buffers are forwarded byte for byte.
type InboundMessage struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Payload structs
type ConnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}

type JoinPayload struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type MemberPayload struct {
	ConnectionID string `json:"connectionId"`
	DisplayName  string `json:"displayName"`
}

type JoinedPayload struct {
	Members      []MemberPayload `json:"members"`
	DisplayName  string          `json:"displayName"`
	ConnectionID string          `json:"connectionId"`
}

type SyncPayload struct {
	Buffer             string `json:"buffer"`
	TargetConnectionID string `json:"targetConnectionId"`
}

type CodeChangePayload struct {
	Buffer string `json:"buffer"`
}

type ErrorPayload struct {
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
	Retry   bool   `json:"retry,omitempty"`
}

func toMemberPayload(m domain.Member) MemberPayload {
	return MemberPayload{
		ConnectionID: m.ConnectionID,
		DisplayName:  m.DisplayName,
	}
}

func NewConnected(connectionID string) *WSMessage {
	return &WSMessage{
		Type: Connected,
		Data: ConnectedPayload{ConnectionID: connectionID},
	}
}

func NewJoined(roomID string, members []domain.Member, joiner domain.Member) *WSMessage {
	payload := JoinedPayload{
		Members:      make([]MemberPayload, 0, len(members)),
		DisplayName:  joiner.DisplayName,
		ConnectionID: joiner.ConnectionID,
	}
	for _, m := range members {
		payload.Members = append(payload.Members, toMemberPayload(m))
	}

	return &WSMessage{
		Type:   Joined,
		RoomID: roomID,
		Data:   payload,
	}
}

func NewDisconnected(roomID string, member domain.Member) *WSMessage {
	return &WSMessage{
		Type:   Disconnected,
		RoomID: roomID,
		Data:   toMemberPayload(member),
	}
}

// NewRelay forwards an inbound payload to the sender's room untouched.
func NewRelay(roomID string, in InboundMessage) *WSMessage {
	data := in.Data
	if len(data) == 0 {
		data = json.RawMessage("null")
	}

	return &WSMessage{
		Type:   in.Type,
		RoomID: roomID,
		Data:   data,
	}
}

func NewError(roomID, message string) *WSMessage {
	return &WSMessage{
		Type:   ErrorEvent,
		RoomID: roomID,
		Data: ErrorPayload{
			Message: message,
			Retry:   false,
		},
	}
}

func NewJoinFailed(roomID, reason string) *WSMessage {
	return &WSMessage{
		Type:   JoinFailed,
		RoomID: roomID,
		Data: ErrorPayload{
			Code:    "JOIN_FAILED",
			Message: reason,
			Retry:   true,
		},
	}
}

func NewRateLimited() *WSMessage {
	return &WSMessage{
		Type: RateLimited,
		Data: ErrorPayload{
			Code:    "RATE_LIMITED",
			Message: "Too many events. Slow down.",
			Retry:   true,
		},
	}
}
