package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/contracts"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/hilthontt/collaby/internal/infrastructure/messaging"
	"github.com/rabbitmq/amqp091-go"
)

type roomConsumer struct {
	rabbitmq *messaging.RabbitMQ
	audit    domain.RoomAuditRepository
	logger   logging.Logger
}

func NewRoomConsumer(rabbitmq *messaging.RabbitMQ, audit domain.RoomAuditRepository, logger logging.Logger) *roomConsumer {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &roomConsumer{
		rabbitmq: rabbitmq,
		audit:    audit,
		logger:   logger,
	}
}

// Listen writes every room event into the audit journal until ctx is done.
func (c *roomConsumer) Listen(ctx context.Context) error {
	return c.rabbitmq.ConsumeMessages(ctx, messaging.RoomsQueue, func(ctx context.Context, msg amqp091.Delivery) error {
		return c.handle(ctx, msg.Body)
	})
}

func (c *roomConsumer) handle(ctx context.Context, body []byte) error {
	var message contracts.AmqpMessage
	if err := json.Unmarshal(body, &message); err != nil {
		return fmt.Errorf("unmarshal amqp message: %w", err)
	}

	var payload messaging.RoomEventData
	if err := json.Unmarshal(message.Data, &payload); err != nil {
		return fmt.Errorf("unmarshal room event: %w", err)
	}

	if payload.Event.RoomID == "" {
		payload.Event.RoomID = message.RoomID
	}

	if err := c.audit.Log(ctx, domain.NewAuditLogFromEvent(payload.Event)); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}

	c.logger.Debug(logging.RabbitMQ, logging.Audit, "room event recorded", map[logging.ExtraKey]any{
		logging.RoomID:    payload.Event.RoomID,
		logging.EventType: string(payload.Event.Type),
	})
	return nil
}
