package contracts

import (
	"encoding/json"

	"github.com/hilthontt/collaby/internal/domain"
)

// AmqpMessage is the message structure for AMQP.
type AmqpMessage struct {
	RoomID string          `json:"roomId"`
	Data   json.RawMessage `json:"data"`
}

// Routing keys
const (
	EventRoomCreated   = "room.created"
	EventRoomDestroyed = "room.destroyed"
	EventMemberJoined  = "member.joined"
	EventMemberLeft    = "member.left"
)

// RoomRoutingKeys lists every key the room queue is bound to.
var RoomRoutingKeys = []string{
	EventRoomCreated,
	EventRoomDestroyed,
	EventMemberJoined,
	EventMemberLeft,
}

func RoutingKeyFor(eventType domain.RoomEventType) (string, bool) {
	switch eventType {
	case domain.EventRoomCreated:
		return EventRoomCreated, true
	case domain.EventRoomDestroyed:
		return EventRoomDestroyed, true
	case domain.EventMemberJoined:
		return EventMemberJoined, true
	case domain.EventMemberLeft:
		return EventMemberLeft, true
	}
	return "", false
}
