package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/hilthontt/collaby/internal/infrastructure/metrics"
)

const publishTimeout = 5 * time.Second

type Inbound struct {
	From    Peer
	Message InboundMessage
}

type eventKind int

const (
	peerRegistered eventKind = iota
	peerUnregistered
	peerMessage
)

type coreEvent struct {
	kind    eventKind
	peer    Peer
	message InboundMessage
}

// Core serialises every registry event on a single goroutine. Registration,
// messages and unregistration of one peer share a FIFO, so a peer's last
// message is always handled before its departure.
type Core struct {
	roomMgr   *RoomManager
	events    chan coreEvent
	peers     map[string]Peer // owned by Run
	publisher domain.RoomEventPublisher
	logger    logging.Logger
	metrics   *metrics.Metrics

	shutdown chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// NewCore accepts a nil publisher when room events are not exported.
func NewCore(roomMgr *RoomManager, publisher domain.RoomEventPublisher, logger logging.Logger, m *metrics.Metrics) *Core {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Core{
		roomMgr:   roomMgr,
		events:    make(chan coreEvent, 256),
		peers:     make(map[string]Peer),
		publisher: publisher,
		logger:    logger,
		metrics:   m,
		shutdown:  make(chan struct{}),
	}
}

func (c *Core) Rooms() *RoomManager {
	return c.roomMgr
}

func (c *Core) Run(ctx context.Context) {
	defer c.wg.Wait() // Wait for in-flight publishes

	for {
		select {
		case <-ctx.Done():
			c.logger.Info(logging.WebSocket, logging.Shutdown, "core shutting down", nil)
			c.Shutdown()
			return

		case <-c.shutdown:
			return

		case ev := <-c.events:
			switch ev.kind {
			case peerRegistered:
				c.handleRegister(ev.peer)
			case peerUnregistered:
				c.handleUnregister(ev.peer)
			case peerMessage:
				c.handleMessage(ev.peer, ev.message)
			}
		}
	}
}

// Register announces a new connection. It reports false once the core stopped.
func (c *Core) Register(p Peer) bool {
	return c.enqueue(coreEvent{kind: peerRegistered, peer: p})
}

func (c *Core) Unregister(p Peer) {
	c.enqueue(coreEvent{kind: peerUnregistered, peer: p})
}

func (c *Core) Dispatch(in Inbound) bool {
	return c.enqueue(coreEvent{kind: peerMessage, peer: in.From, message: in.Message})
}

func (c *Core) enqueue(ev coreEvent) bool {
	select {
	case <-c.shutdown:
		return false
	default:
	}

	select {
	case c.events <- ev:
		return true
	case <-c.shutdown:
		return false
	}
}

func (c *Core) Shutdown() {
	c.once.Do(func() {
		close(c.shutdown)
		c.roomMgr.DisconnectAll()
	})
}

func (c *Core) Done() <-chan struct{} {
	return c.shutdown
}

func (c *Core) handleRegister(p Peer) {
	c.peers[p.ID()] = p
	c.metrics.ConnectionOpened()

	if !p.Send(NewConnected(p.ID())) {
		c.metrics.DeliveryDropped(Connected)
	}

	c.logger.Debug(logging.WebSocket, logging.Connect, "connection registered", map[logging.ExtraKey]any{
		logging.ConnectionID: p.ID(),
	})
}

func (c *Core) handleUnregister(p Peer) {
	if _, ok := c.peers[p.ID()]; !ok {
		return
	}
	delete(c.peers, p.ID())
	c.metrics.ConnectionClosed()

	if res, ok := c.roomMgr.Leave(p.ID()); ok {
		c.logger.Info(logging.Session, logging.Leave, "member left", map[logging.ExtraKey]any{
			logging.RoomID:       res.RoomID,
			logging.ConnectionID: res.Member.ConnectionID,
			logging.MemberCount:  res.MemberCount,
		})
		c.publishLeave(res)
	}

	p.Close()
}

func (c *Core) handleMessage(p Peer, msg InboundMessage) {
	// Late messages from a connection that already went away.
	if _, ok := c.peers[p.ID()]; !ok {
		return
	}

	c.metrics.EventReceived(msg.Type)

	switch msg.Type {
	case Join:
		c.handleJoin(p, msg)
	case CodeChange:
		c.handleRelay(p, msg)
	case SyncCode:
		c.handleSync(p, msg)
	default:
		p.Send(NewError(msg.RoomID, fmt.Sprintf("unknown event %q", msg.Type)))
	}
}

func (c *Core) handleJoin(p Peer, msg InboundMessage) {
	var payload JoinPayload
	if len(msg.Data) > 0 {
		if err := json.Unmarshal(msg.Data, &payload); err != nil {
			p.Send(NewJoinFailed(msg.RoomID, "malformed join payload"))
			return
		}
	}
	if payload.RoomID == "" {
		payload.RoomID = msg.RoomID
	}

	res, err := c.roomMgr.Join(p, payload.RoomID, payload.DisplayName)
	if err != nil {
		c.logger.Warn(logging.Session, logging.Join, "join rejected", map[logging.ExtraKey]any{
			logging.ConnectionID: p.ID(),
			logging.RoomID:       payload.RoomID,
			logging.ErrorMessage: err.Error(),
		})
		p.Send(NewJoinFailed(payload.RoomID, err.Error()))
		return
	}

	c.logger.Info(logging.Session, logging.Join, "member joined", map[logging.ExtraKey]any{
		logging.RoomID:       payload.RoomID,
		logging.ConnectionID: p.ID(),
		logging.MemberCount:  res.MemberCount,
	})

	if res.Previous != nil {
		c.publishLeave(res.Previous)
	}
	if res.Created {
		c.publish(domain.NewRoomEvent(domain.EventRoomCreated, payload.RoomID, nil, res.MemberCount))
	}
	member := res.Member
	c.publish(domain.NewRoomEvent(domain.EventMemberJoined, payload.RoomID, &member, res.MemberCount))
}

func (c *Core) handleRelay(p Peer, msg InboundMessage) {
	if _, err := c.roomMgr.Relay(p, msg); err != nil {
		p.Send(NewError(msg.RoomID, "not in a room"))
	}
}

func (c *Core) handleSync(p Peer, msg InboundMessage) {
	var payload SyncPayload
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.TargetConnectionID == "" {
		p.Send(NewError(msg.RoomID, "sync requires a target connection"))
		return
	}

	err := c.roomMgr.SendTo(p, payload.TargetConnectionID, msg)
	switch {
	case err == nil:
	case errors.Is(err, ErrNotInRoom):
		p.Send(NewError(msg.RoomID, "not in a room"))
	default:
		// The target left between its join and our sync; nothing to deliver.
		c.logger.Debug(logging.Session, logging.Sync, "sync target gone", map[logging.ExtraKey]any{
			logging.ConnectionID: p.ID(),
			"target":             payload.TargetConnectionID,
		})
	}
}

func (c *Core) publishLeave(res *LeaveResult) {
	member := res.Member
	c.publish(domain.NewRoomEvent(domain.EventMemberLeft, res.RoomID, &member, res.MemberCount))
	if res.Destroyed {
		c.publish(domain.NewRoomEvent(domain.EventRoomDestroyed, res.RoomID, nil, 0))
	}
}

func (c *Core) publish(event domain.RoomEvent) {
	if c.publisher == nil {
		return
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		err := c.publisher.Publish(ctx, event)
		c.metrics.RoomEventPublished(string(event.Type), err)
		if err != nil {
			c.logger.Error(logging.RabbitMQ, logging.Publish, "failed to publish room event", map[logging.ExtraKey]any{
				logging.RoomID:       event.RoomID,
				logging.EventType:    string(event.Type),
				logging.ErrorMessage: err.Error(),
			})
		}
	}()
}
