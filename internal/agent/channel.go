package agent

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	ErrConnectionFailed = errors.New("connection failed")
	ErrNotJoined        = errors.New("not joined to a room")
	ErrAlreadyJoined    = errors.New("already joined to a room")
	ErrChannelClosed    = errors.New("channel closed")
	ErrJoinRejected     = errors.New("join rejected")
)

// Reconnected is emitted by a Channel that re-established its connection
// under a new identity. Data carries {"connectionId": ...}.
const Reconnected = "reconnected"

type Event struct {
	Type   string          `json:"type"`
	RoomID string          `json:"roomId,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

// Channel is a bidirectional, ordered stream of named events.
type Channel interface {
	ConnectionID() string
	Emit(ctx context.Context, event string, payload any) error
	// Events is closed when the channel ends; Err then reports why.
	Events() <-chan Event
	Err() error
	Close() error
}

type Dialer interface {
	Dial(ctx context.Context) (Channel, error)
}

type envelope struct {
	Type   string `json:"type"`
	RoomID string `json:"roomId,omitempty"`
	Data   any    `json:"data"`
}

type reconnectedPayload struct {
	ConnectionID string `json:"connectionId"`
}
