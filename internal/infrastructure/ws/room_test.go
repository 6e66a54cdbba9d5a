package ws

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePeer struct {
	id string

	mu     sync.Mutex
	msgs   []*WSMessage
	full   bool
	closed bool
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(msg *WSMessage) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.full || p.closed {
		return false
	}
	p.msgs = append(p.msgs, msg)
	return true
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()
}

func (p *fakePeer) messages() []*WSMessage {
	p.mu.Lock()
	defer p.mu.Unlock()

	cpy := make([]*WSMessage, len(p.msgs))
	copy(cpy, p.msgs)
	return cpy
}

func (p *fakePeer) ofType(t string) []*WSMessage {
	var out []*WSMessage
	for _, m := range p.messages() {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

func (p *fakePeer) lastJoined(t *testing.T) JoinedPayload {
	t.Helper()

	joined := p.ofType(Joined)
	require.NotEmpty(t, joined, "peer %s received no joined event", p.id)
	payload, ok := joined[len(joined)-1].Data.(JoinedPayload)
	require.True(t, ok)
	return payload
}

func memberIDs(members []MemberPayload) []string {
	ids := make([]string, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ConnectionID)
	}
	return ids
}

func TestRoomManager_JoinBroadcastsFullMemberListToEveryone(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	peers := []*fakePeer{newFakePeer("a"), newFakePeer("b"), newFakePeer("c")}

	for i, p := range peers {
		res, err := rm.Join(p, "room-1", p.id+"-name")
		require.NoError(t, err)
		assert.Equal(t, i+1, res.MemberCount)
		assert.Equal(t, i == 0, res.Created)

		// Everyone in the room, joiner included, sees exactly N members.
		for _, already := range peers[:i+1] {
			payload := already.lastJoined(t)
			assert.Len(t, payload.Members, i+1)
			assert.Equal(t, p.id, payload.ConnectionID)
			assert.Equal(t, p.id+"-name", payload.DisplayName)
		}
	}

	assert.Equal(t, []string{"a", "b", "c"}, memberIDs(peers[0].lastJoined(t).Members))
	assert.Len(t, peers[0].ofType(Joined), 3)
	assert.Len(t, peers[2].ofType(Joined), 1)
}

func TestRoomManager_DepartedMemberNeverReappears(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	a, b, c := newFakePeer("a"), newFakePeer("b"), newFakePeer("c")

	for _, p := range []*fakePeer{a, b, c} {
		_, err := rm.Join(p, "room-1", p.id)
		require.NoError(t, err)
	}

	res, ok := rm.Leave("b")
	require.True(t, ok)
	assert.Equal(t, "b", res.Member.ConnectionID)
	assert.Equal(t, 2, res.MemberCount)
	assert.False(t, res.Destroyed)

	left := a.ofType(Disconnected)
	require.Len(t, left, 1)
	assert.Equal(t, MemberPayload{ConnectionID: "b", DisplayName: "b"}, left[0].Data)
	assert.Empty(t, b.ofType(Disconnected), "the departed connection is not told about itself")

	d := newFakePeer("d")
	_, err := rm.Join(d, "room-1", "d")
	require.NoError(t, err)

	for _, p := range []*fakePeer{a, c, d} {
		assert.Equal(t, []string{"a", "c", "d"}, memberIDs(p.lastJoined(t).Members))
	}
}

func TestRoomManager_LastLeaveSweepsRoom(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	a := newFakePeer("a")

	_, err := rm.Join(a, "room-1", "alice")
	require.NoError(t, err)

	res, ok := rm.Leave("a")
	require.True(t, ok)
	assert.True(t, res.Destroyed)

	_, exists := rm.GetRoom("room-1")
	assert.False(t, exists)

	rooms, members := rm.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, members)
}

func TestRoomManager_LeaveWithoutJoinIsNoop(t *testing.T) {
	rm := NewRoomManager(nil, nil)

	res, ok := rm.Leave("ghost")
	assert.False(t, ok)
	assert.Nil(t, res)
}

func TestRoomManager_RejoinSameRoomUpdatesDisplayName(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	a := newFakePeer("a")

	_, err := rm.Join(a, "room-1", "alice")
	require.NoError(t, err)
	res, err := rm.Join(a, "room-1", "alice2")
	require.NoError(t, err)

	assert.False(t, res.Created)
	assert.Equal(t, 1, res.MemberCount)

	payload := a.lastJoined(t)
	require.Len(t, payload.Members, 1)
	assert.Equal(t, "alice2", payload.Members[0].DisplayName)
}

func TestRoomManager_JoinAnotherRoomLeavesThePreviousOne(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	a, b := newFakePeer("a"), newFakePeer("b")

	_, err := rm.Join(a, "room-1", "alice")
	require.NoError(t, err)
	_, err = rm.Join(b, "room-1", "bob")
	require.NoError(t, err)

	res, err := rm.Join(b, "room-2", "bob")
	require.NoError(t, err)
	require.NotNil(t, res.Previous)
	assert.Equal(t, "room-1", res.Previous.RoomID)

	require.Len(t, a.ofType(Disconnected), 1)

	roomID, ok := rm.RoomOf("b")
	require.True(t, ok)
	assert.Equal(t, "room-2", roomID)

	room, ok := rm.GetRoom("room-1")
	require.True(t, ok)
	require.Len(t, room.Members, 1)
	assert.Equal(t, "a", room.Members[0].ConnectionID)
}

func TestRoomManager_JoinRejectsEmptyRoomID(t *testing.T) {
	rm := NewRoomManager(nil, nil)

	_, err := rm.Join(newFakePeer("a"), "   ", "alice")
	assert.ErrorIs(t, err, domain.ErrInvalidRoomID)

	rooms, _ := rm.Stats()
	assert.Zero(t, rooms)
}

func TestRoomManager_EmptyDisplayNameGetsPlaceholder(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	a := newFakePeer("a")

	res, err := rm.Join(a, "room-1", "")
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultDisplayName, res.Member.DisplayName)
}

func TestRoomManager_RelaySkipsSenderAndKeepsPayload(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	a, b, c := newFakePeer("a"), newFakePeer("b"), newFakePeer("c")
	other := newFakePeer("x")

	for _, p := range []*fakePeer{a, b, c} {
		_, err := rm.Join(p, "room-1", p.id)
		require.NoError(t, err)
	}
	_, err := rm.Join(other, "room-2", "x")
	require.NoError(t, err)

	raw := json.RawMessage(`{"buffer":"print(1)"}`)
	roomID, err := rm.Relay(a, InboundMessage{Type: CodeChange, RoomID: "room-2", Data: raw})
	require.NoError(t, err)
	assert.Equal(t, "room-1", roomID, "relay uses the registry room, not the claimed one")

	assert.Empty(t, a.ofType(CodeChange))
	assert.Empty(t, other.ofType(CodeChange))
	for _, p := range []*fakePeer{b, c} {
		got := p.ofType(CodeChange)
		require.Len(t, got, 1)
		assert.Equal(t, raw, got[0].Data)
		assert.Equal(t, "room-1", got[0].RoomID)
	}
}

func TestRoomManager_RelayOutsideRoom(t *testing.T) {
	rm := NewRoomManager(nil, nil)

	_, err := rm.Relay(newFakePeer("a"), InboundMessage{Type: CodeChange})
	assert.ErrorIs(t, err, ErrNotInRoom)
}

func TestRoomManager_SendToTargetsOneMember(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	a, b, c := newFakePeer("a"), newFakePeer("b"), newFakePeer("c")
	for _, p := range []*fakePeer{a, b, c} {
		_, err := rm.Join(p, "room-1", p.id)
		require.NoError(t, err)
	}

	raw := json.RawMessage(`{"buffer":"x","targetConnectionId":"c"}`)
	require.NoError(t, rm.SendTo(a, "c", InboundMessage{Type: SyncCode, Data: raw}))

	assert.Empty(t, b.ofType(SyncCode))
	require.Len(t, c.ofType(SyncCode), 1)

	err := rm.SendTo(a, "gone", InboundMessage{Type: SyncCode, Data: raw})
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
}

func TestRoomManager_SendToMemberOfAnotherRoomIsDropped(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	a, x := newFakePeer("a"), newFakePeer("x")
	_, err := rm.Join(a, "room-1", "a")
	require.NoError(t, err)
	_, err = rm.Join(x, "room-2", "x")
	require.NoError(t, err)

	err = rm.SendTo(a, "x", InboundMessage{Type: SyncCode})
	assert.ErrorIs(t, err, domain.ErrMemberNotFound)
	assert.Empty(t, x.ofType(SyncCode))
}

func TestRoomManager_FullQueueDoesNotStopBroadcast(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	a, b, c := newFakePeer("a"), newFakePeer("b"), newFakePeer("c")
	for _, p := range []*fakePeer{a, b} {
		_, err := rm.Join(p, "room-1", p.id)
		require.NoError(t, err)
	}

	a.mu.Lock()
	a.full = true
	a.mu.Unlock()

	_, err := rm.Join(c, "room-1", "c")
	require.NoError(t, err)

	assert.Len(t, b.lastJoined(t).Members, 3)
	assert.Len(t, c.lastJoined(t).Members, 3)
	assert.Len(t, a.lastJoined(t).Members, 2, "the slow peer missed the broadcast")
}

func TestRoomManager_DisconnectAllClosesPeers(t *testing.T) {
	rm := NewRoomManager(nil, nil)
	a, b := newFakePeer("a"), newFakePeer("b")
	_, err := rm.Join(a, "room-1", "a")
	require.NoError(t, err)
	_, err = rm.Join(b, "room-2", "b")
	require.NoError(t, err)

	rm.DisconnectAll()

	assert.True(t, a.closed)
	assert.True(t, b.closed)
	rooms, members := rm.Stats()
	assert.Zero(t, rooms)
	assert.Zero(t, members)
}
