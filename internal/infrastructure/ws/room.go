package ws

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/hilthontt/collaby/internal/infrastructure/metrics"
)

var (
	ErrNotInRoom = errors.New("connection has not joined a room")

	upgrader = websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			return true
		},
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
	}
)

// Peer is one connected member as seen by the registry.
type Peer interface {
	ID() string
	// Send must not block; it reports false when the message was not queued.
	Send(msg *WSMessage) bool
	Close()
}

type WSRoom struct {
	room  *domain.Room
	peers map[string]Peer
}

type JoinResult struct {
	Member      domain.Member
	Created     bool
	MemberCount int
	// Previous is set when the join moved the connection out of another room.
	Previous *LeaveResult
}

type LeaveResult struct {
	RoomID      string
	Member      domain.Member
	MemberCount int
	Destroyed   bool
}

// RoomManager is the only owner of room membership. Every mutation and the
// broadcast it causes happen under one lock, so no member can observe a
// membership list that skips or reorders a join or leave.
type RoomManager struct {
	rooms   map[string]*WSRoom // roomID → WSRoom
	members map[string]string  // connectionID → roomID
	mu      sync.RWMutex

	logger  logging.Logger
	metrics *metrics.Metrics
}

func NewRoomManager(logger logging.Logger, m *metrics.Metrics) *RoomManager {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &RoomManager{
		rooms:   make(map[string]*WSRoom),
		members: make(map[string]string),
		logger:  logger,
		metrics: m,
	}
}

func (rm *RoomManager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// Join adds peer to roomID, creating the room when needed, and broadcasts the
// full member list to every member including the joiner.
func (rm *RoomManager) Join(peer Peer, roomID, displayName string) (*JoinResult, error) {
	if err := domain.ValidateRoomID(roomID); err != nil {
		return nil, err
	}

	rm.mu.Lock()
	defer rm.mu.Unlock()

	var previous *LeaveResult
	if current, ok := rm.members[peer.ID()]; ok && current != roomID {
		previous = rm.leaveLocked(peer.ID())
	}

	room, exists := rm.rooms[roomID]
	if !exists {
		r, err := domain.NewRoom(roomID)
		if err != nil {
			return nil, err
		}
		room = &WSRoom{
			room:  r,
			peers: make(map[string]Peer),
		}
		rm.rooms[roomID] = room
	}

	if err := room.room.AddMember(domain.NewMember(peer.ID(), displayName, roomID)); err != nil {
		if !exists {
			delete(rm.rooms, roomID)
		}
		return nil, err
	}

	room.peers[peer.ID()] = peer
	rm.members[peer.ID()] = roomID

	joiner := room.room.FindMember(peer.ID())
	snapshot := room.room.Snapshot()

	rm.broadcastLocked(room, NewJoined(roomID, snapshot, *joiner), "")
	rm.updateGaugesLocked()

	return &JoinResult{
		Member:      *joiner,
		Created:     !exists,
		MemberCount: len(snapshot),
		Previous:    previous,
	}, nil
}

// Leave removes the connection from its room and tells the remaining members.
// The room is swept in the same step when it becomes empty.
func (rm *RoomManager) Leave(connectionID string) (*LeaveResult, bool) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	res := rm.leaveLocked(connectionID)
	if res == nil {
		return nil, false
	}

	rm.updateGaugesLocked()
	return res, true
}

func (rm *RoomManager) leaveLocked(connectionID string) *LeaveResult {
	roomID, ok := rm.members[connectionID]
	if !ok {
		return nil
	}
	delete(rm.members, connectionID)

	room, ok := rm.rooms[roomID]
	if !ok {
		return nil
	}

	delete(room.peers, connectionID)
	member, err := room.room.RemoveMember(connectionID)
	if err != nil {
		return nil
	}

	res := &LeaveResult{
		RoomID:      roomID,
		Member:      *member,
		MemberCount: len(room.room.Members),
	}

	if room.room.IsEmpty() {
		delete(rm.rooms, roomID)
		res.Destroyed = true
		return res
	}

	rm.broadcastLocked(room, NewDisconnected(roomID, *member), "")
	return res
}

// Relay forwards the inbound payload to everyone else in the sender's room.
// The room comes from the registry, never from the message.
func (rm *RoomManager) Relay(sender Peer, in InboundMessage) (string, error) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, err := rm.roomOfLocked(sender.ID())
	if err != nil {
		return "", err
	}

	rm.broadcastLocked(room, NewRelay(room.room.ID, in), sender.ID())
	return room.room.ID, nil
}

// SendTo delivers the inbound payload to one member of the sender's room.
func (rm *RoomManager) SendTo(sender Peer, targetID string, in InboundMessage) error {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, err := rm.roomOfLocked(sender.ID())
	if err != nil {
		return err
	}

	target, ok := room.peers[targetID]
	if !ok {
		return domain.ErrMemberNotFound
	}

	rm.deliver(target, NewRelay(room.room.ID, in))
	return nil
}

func (rm *RoomManager) roomOfLocked(connectionID string) (*WSRoom, error) {
	roomID, ok := rm.members[connectionID]
	if !ok {
		return nil, ErrNotInRoom
	}

	room, ok := rm.rooms[roomID]
	if !ok {
		return nil, ErrNotInRoom
	}
	return room, nil
}

func (rm *RoomManager) broadcastLocked(room *WSRoom, msg *WSMessage, except string) {
	// Iterate in join order so delivery order is deterministic.
	for _, m := range room.room.Members {
		if m.ConnectionID == except {
			continue
		}
		if peer, ok := room.peers[m.ConnectionID]; ok {
			rm.deliver(peer, msg)
		}
	}
}

func (rm *RoomManager) deliver(peer Peer, msg *WSMessage) {
	if peer.Send(msg) {
		return
	}

	// Client is too slow or gone – drop the message
	rm.metrics.DeliveryDropped(msg.Type)
	rm.logger.Debug(logging.WebSocket, logging.Delivery, "client buffer full, dropping message", map[logging.ExtraKey]any{
		logging.ConnectionID: peer.ID(),
		logging.EventType:    msg.Type,
	})
}

func (rm *RoomManager) updateGaugesLocked() {
	rm.metrics.SetRooms(len(rm.rooms))
	rm.metrics.SetMembers(len(rm.members))
}

// GetRoom returns a copy of the room safe to hand to other goroutines.
func (rm *RoomManager) GetRoom(roomID string) (*domain.Room, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	room, ok := rm.rooms[roomID]
	if !ok {
		return nil, false
	}

	return &domain.Room{
		ID:        room.room.ID,
		CreatedAt: room.room.CreatedAt,
		Members:   room.room.Snapshot(),
	}, true
}

// RoomOf returns the room the connection has joined, if any.
func (rm *RoomManager) RoomOf(connectionID string) (string, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	roomID, ok := rm.members[connectionID]
	return roomID, ok
}

func (rm *RoomManager) Stats() (rooms int, members int) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()

	return len(rm.rooms), len(rm.members)
}

func (rm *RoomManager) DisconnectAll() {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	for _, room := range rm.rooms {
		for _, peer := range room.peers {
			peer.Close()
		}
	}

	rm.rooms = make(map[string]*WSRoom)
	rm.members = make(map[string]string)
	rm.updateGaugesLocked()
}
