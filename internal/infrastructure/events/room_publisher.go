package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/contracts"
	"github.com/hilthontt/collaby/internal/infrastructure/messaging"
)

type messagePublisher interface {
	PublishMessage(ctx context.Context, routingKey string, message contracts.AmqpMessage) error
}

// RoomPublisher exports membership changes to the room exchange.
type RoomPublisher struct {
	rabbitmq messagePublisher
}

func NewRoomPublisher(rabbitmq messagePublisher) *RoomPublisher {
	return &RoomPublisher{
		rabbitmq: rabbitmq,
	}
}

func (p *RoomPublisher) Publish(ctx context.Context, event domain.RoomEvent) error {
	routingKey, ok := contracts.RoutingKeyFor(event.Type)
	if !ok {
		return fmt.Errorf("no routing key for room event %q", event.Type)
	}

	roomEventJSON, err := json.Marshal(messaging.RoomEventData{Event: event})
	if err != nil {
		return err
	}

	return p.rabbitmq.PublishMessage(ctx, routingKey, contracts.AmqpMessage{
		RoomID: event.RoomID,
		Data:   roomEventJSON,
	})
}
