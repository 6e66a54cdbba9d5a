package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/contracts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	routingKey string
	message    contracts.AmqpMessage
}

type fakeBroker struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (b *fakeBroker) PublishMessage(_ context.Context, routingKey string, message contracts.AmqpMessage) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.sent = append(b.sent, published{routingKey: routingKey, message: message})
	return nil
}

type memoryAudit struct {
	domain.RoomAuditRepository
	logs []domain.RoomAuditLog
}

func (m *memoryAudit) Log(_ context.Context, log *domain.RoomAuditLog) error {
	m.logs = append(m.logs, *log)
	return nil
}

func TestRoomPublisher_RoutesByEventType(t *testing.T) {
	broker := &fakeBroker{}
	publisher := NewRoomPublisher(broker)

	member := domain.NewMember("c1", "alice", "r1")
	event := domain.NewRoomEvent(domain.EventMemberJoined, "r1", member, 1)

	require.NoError(t, publisher.Publish(context.Background(), event))
	require.Len(t, broker.sent, 1)
	assert.Equal(t, contracts.EventMemberJoined, broker.sent[0].routingKey)
	assert.Equal(t, "r1", broker.sent[0].message.RoomID)
}

func TestRoomPublisher_UnknownEventType(t *testing.T) {
	publisher := NewRoomPublisher(&fakeBroker{})
	err := publisher.Publish(context.Background(), domain.RoomEvent{Type: "renamed"})
	assert.Error(t, err)
}

func TestRoomPublisher_BrokerError(t *testing.T) {
	publisher := NewRoomPublisher(&fakeBroker{err: errors.New("channel closed")})
	err := publisher.Publish(context.Background(), domain.NewRoomEvent(domain.EventRoomCreated, "r1", nil, 0))
	assert.EqualError(t, err, "channel closed")
}

func TestRoomConsumer_WritesAuditLog(t *testing.T) {
	broker := &fakeBroker{}
	publisher := NewRoomPublisher(broker)
	event := domain.NewRoomEvent(domain.EventMemberLeft, "r1", domain.NewMember("c1", "alice", "r1"), 0)
	require.NoError(t, publisher.Publish(context.Background(), event))

	body, err := json.Marshal(broker.sent[0].message)
	require.NoError(t, err)

	audit := &memoryAudit{}
	consumer := NewRoomConsumer(nil, audit, nil)
	require.NoError(t, consumer.handle(context.Background(), body))

	require.Len(t, audit.logs, 1)
	log := audit.logs[0]
	assert.Equal(t, "r1", log.RoomID)
	assert.Equal(t, domain.EventMemberLeft, log.EventType)
	assert.Equal(t, "c1", log.Metadata["connection_id"])
	assert.WithinDuration(t, event.OccurredAt, log.Timestamp, time.Millisecond)
	assert.NotContains(t, log.Metadata, "display_name")
}

func TestRoomConsumer_RejectsMalformedBody(t *testing.T) {
	consumer := NewRoomConsumer(nil, &memoryAudit{}, nil)
	assert.Error(t, consumer.handle(context.Background(), []byte("not json")))
}

func TestAuditRecorder_Publish(t *testing.T) {
	audit := &memoryAudit{}
	recorder := NewAuditRecorder(audit)

	require.NoError(t, recorder.Publish(context.Background(), domain.NewRoomEvent(domain.EventRoomCreated, "r1", nil, 1)))
	require.Len(t, audit.logs, 1)
	assert.Equal(t, domain.EventRoomCreated, audit.logs[0].EventType)
	assert.NotContains(t, audit.logs[0].Metadata, "connection_id")
}
