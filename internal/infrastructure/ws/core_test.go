package ws

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []domain.RoomEvent
}

func (p *recordingPublisher) Publish(_ context.Context, event domain.RoomEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []domain.RoomEventType {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]domain.RoomEventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

func startCore(t *testing.T, publisher domain.RoomEventPublisher) *Core {
	t.Helper()

	core := NewCore(NewRoomManager(nil, nil), publisher, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		core.Run(ctx)
		close(done)
	}()

	t.Cleanup(func() {
		cancel()
		<-done
	})
	return core
}

func joinMessage(t *testing.T, roomID, name string) InboundMessage {
	t.Helper()

	data, err := json.Marshal(JoinPayload{RoomID: roomID, DisplayName: name})
	require.NoError(t, err)
	return InboundMessage{Type: Join, Data: data}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	require.Eventually(t, cond, 2*time.Second, 5*time.Millisecond)
}

func TestCore_RegisterSendsConnectionHello(t *testing.T) {
	core := startCore(t, nil)
	a := newFakePeer("a")

	require.True(t, core.Register(a))

	eventually(t, func() bool { return len(a.ofType(Connected)) == 1 })
	assert.Equal(t, ConnectedPayload{ConnectionID: "a"}, a.ofType(Connected)[0].Data)
}

func TestCore_JoinRelayAndLeave(t *testing.T) {
	core := startCore(t, nil)
	a, b := newFakePeer("a"), newFakePeer("b")
	core.Register(a)
	core.Register(b)

	core.Dispatch(Inbound{From: a, Message: joinMessage(t, "room-1", "alice")})
	core.Dispatch(Inbound{From: b, Message: joinMessage(t, "room-1", "bob")})

	eventually(t, func() bool { return len(a.ofType(Joined)) == 2 })

	core.Dispatch(Inbound{From: b, Message: InboundMessage{
		Type: CodeChange,
		Data: json.RawMessage(`{"buffer":"hello"}`),
	}})
	eventually(t, func() bool { return len(a.ofType(CodeChange)) == 1 })
	assert.Empty(t, b.ofType(CodeChange))

	core.Unregister(b)
	eventually(t, func() bool { return len(a.ofType(Disconnected)) == 1 })
	eventually(t, func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		return b.closed
	})

	room, ok := core.Rooms().GetRoom("room-1")
	require.True(t, ok)
	require.Len(t, room.Members, 1)
	assert.Equal(t, "alice", room.Members[0].DisplayName)
}

func TestCore_JoinWithoutRoomIDFails(t *testing.T) {
	core := startCore(t, nil)
	a := newFakePeer("a")
	core.Register(a)

	core.Dispatch(Inbound{From: a, Message: joinMessage(t, "", "alice")})

	eventually(t, func() bool { return len(a.ofType(JoinFailed)) == 1 })
	assert.Empty(t, a.ofType(Joined))
}

func TestCore_RelayBeforeJoinIsAnError(t *testing.T) {
	core := startCore(t, nil)
	a := newFakePeer("a")
	core.Register(a)

	core.Dispatch(Inbound{From: a, Message: InboundMessage{Type: CodeChange, Data: json.RawMessage(`{"buffer":"x"}`)}})

	eventually(t, func() bool { return len(a.ofType(ErrorEvent)) == 1 })
}

func TestCore_UnknownEventIsAnError(t *testing.T) {
	core := startCore(t, nil)
	a := newFakePeer("a")
	core.Register(a)

	core.Dispatch(Inbound{From: a, Message: InboundMessage{Type: "leave"}})

	eventually(t, func() bool { return len(a.ofType(ErrorEvent)) == 1 })
}

func TestCore_SyncToDepartedTargetIsDropped(t *testing.T) {
	core := startCore(t, nil)
	a := newFakePeer("a")
	core.Register(a)
	core.Dispatch(Inbound{From: a, Message: joinMessage(t, "room-1", "alice")})

	core.Dispatch(Inbound{From: a, Message: InboundMessage{
		Type: SyncCode,
		Data: json.RawMessage(`{"buffer":"x","targetConnectionId":"gone"}`),
	}})
	core.Dispatch(Inbound{From: a, Message: InboundMessage{Type: "ping"}})

	// The trailing unknown event proves the sync was processed without a reply.
	eventually(t, func() bool { return len(a.ofType(ErrorEvent)) == 1 })
	assert.Empty(t, a.ofType(SyncCode))
}

func TestCore_MessagesAfterUnregisterAreIgnored(t *testing.T) {
	core := startCore(t, nil)
	a := newFakePeer("a")
	core.Register(a)
	core.Unregister(a)
	core.Dispatch(Inbound{From: a, Message: joinMessage(t, "room-1", "alice")})

	watcher := newFakePeer("watcher")
	core.Register(watcher)
	eventually(t, func() bool { return len(watcher.ofType(Connected)) == 1 })

	_, ok := core.Rooms().GetRoom("room-1")
	assert.False(t, ok)
}

func TestCore_PublishesMembershipEvents(t *testing.T) {
	publisher := &recordingPublisher{}
	core := startCore(t, publisher)
	a := newFakePeer("a")
	core.Register(a)

	core.Dispatch(Inbound{From: a, Message: joinMessage(t, "room-1", "alice")})
	core.Unregister(a)

	eventually(t, func() bool { return len(publisher.types()) == 4 })
	assert.ElementsMatch(t, []domain.RoomEventType{
		domain.EventRoomCreated,
		domain.EventMemberJoined,
		domain.EventMemberLeft,
		domain.EventRoomDestroyed,
	}, publisher.types())
}

func TestCore_ShutdownRejectsNewPeers(t *testing.T) {
	core := NewCore(NewRoomManager(nil, nil), nil, nil, nil)
	core.Shutdown()

	assert.False(t, core.Register(newFakePeer("a")))
	assert.False(t, core.Dispatch(Inbound{From: newFakePeer("a")}))
}
