package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type RoomEventType string

const (
	EventRoomCreated   RoomEventType = "room_created"
	EventRoomDestroyed RoomEventType = "room_destroyed"
	EventMemberJoined  RoomEventType = "member_joined"
	EventMemberLeft    RoomEventType = "member_left"
)

// ParseRoomEventType accepts the wire name of a recorded event.
func ParseRoomEventType(s string) (RoomEventType, error) {
	switch t := RoomEventType(s); t {
	case EventRoomCreated, EventRoomDestroyed, EventMemberJoined, EventMemberLeft:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown event type %q", ErrInvalidInput, s)
}

type RoomAuditLog struct {
	ID        string         `bson:"_id" json:"id"`
	RoomID    string         `bson:"room_id" json:"roomId"`
	EventType RoomEventType  `bson:"event_type" json:"eventType"`
	Timestamp time.Time      `bson:"timestamp" json:"timestamp"`
	Metadata  map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
}

type RoomAuditRepository interface {
	Log(ctx context.Context, log *RoomAuditLog) error
	GetByRoomID(ctx context.Context, roomID string, limit int) ([]RoomAuditLog, error)
	GetByEventType(ctx context.Context, roomID string, eventType RoomEventType, limit int) ([]RoomAuditLog, error)
	EnsureIndexes(ctx context.Context) error
}

// RoomEvent is what the registry reports about membership changes. It never
// carries buffer contents.
type RoomEvent struct {
	Type        RoomEventType `json:"type"`
	RoomID      string        `json:"roomId"`
	Member      *Member       `json:"member,omitempty"`
	MemberCount int           `json:"memberCount"`
	OccurredAt  time.Time     `json:"occurredAt"`
}

type RoomEventPublisher interface {
	Publish(ctx context.Context, event RoomEvent) error
}

func NewRoomEvent(eventType RoomEventType, roomID string, member *Member, memberCount int) RoomEvent {
	return RoomEvent{
		Type:        eventType,
		RoomID:      roomID,
		Member:      member,
		MemberCount: memberCount,
		OccurredAt:  time.Now(),
	}
}

// NewAuditLogFromEvent keeps only what an audit trail needs; display names
// are user input and stay out of it.
func NewAuditLogFromEvent(event RoomEvent) *RoomAuditLog {
	metadata := map[string]any{
		"member_count": event.MemberCount,
	}
	if event.Member != nil {
		metadata["connection_id"] = event.Member.ConnectionID
	}

	return &RoomAuditLog{
		ID:        uuid.NewString(),
		RoomID:    event.RoomID,
		EventType: event.Type,
		Timestamp: event.OccurredAt,
		Metadata:  metadata,
	}
}
