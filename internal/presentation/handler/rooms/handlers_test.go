package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/ws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAudit struct {
	domain.RoomAuditRepository
	logs      []domain.RoomAuditLog
	err       error
	limit     int
	eventType domain.RoomEventType
}

func (f *fakeAudit) GetByRoomID(_ context.Context, _ string, limit int) ([]domain.RoomAuditLog, error) {
	f.limit = limit
	return f.logs, f.err
}

func (f *fakeAudit) GetByEventType(_ context.Context, roomID string, eventType domain.RoomEventType, limit int) ([]domain.RoomAuditLog, error) {
	f.limit = limit
	f.eventType = eventType

	var out []domain.RoomAuditLog
	for _, l := range f.logs {
		if l.RoomID == roomID && l.EventType == eventType {
			out = append(out, l)
		}
	}
	return out, f.err
}

type fakePeer struct{ id string }

func (p fakePeer) ID() string              { return p.id }
func (p fakePeer) Send(*ws.WSMessage) bool { return true }
func (p fakePeer) Close()                  {}

func newRouter(t *testing.T, audit domain.RoomAuditRepository) (*ws.Core, http.Handler) {
	t.Helper()

	core := ws.NewCore(ws.NewRoomManager(nil, nil), nil, nil, nil)
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

	h := NewHandler(core, audit, ws.DefaultClientOptions(), nil)
	r := chi.NewRouter()
	r.Get("/ws", h.ServeWS)
	r.Post("/api/rooms", h.CreateRoomHandler)
	r.Get("/api/rooms/{roomId}", h.GetRoomHandler)
	r.Get("/api/rooms/{roomId}/audit", h.GetRoomAuditHandler)
	return core, r
}

func do(router http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func TestCreateRoomHandler(t *testing.T) {
	_, router := newRouter(t, nil)

	rec := do(router, http.MethodPost, "/api/rooms")

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp createRoomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.RoomID, 36)
}

func TestGetRoomHandler_NotFound(t *testing.T) {
	_, router := newRouter(t, nil)

	rec := do(router, http.MethodGet, "/api/rooms/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetRoomHandler_Snapshot(t *testing.T) {
	core, router := newRouter(t, nil)
	_, err := core.Rooms().Join(fakePeer{"c1"}, "r1", "alice")
	require.NoError(t, err)
	_, err = core.Rooms().Join(fakePeer{"c2"}, "r1", "bob")
	require.NoError(t, err)

	rec := do(router, http.MethodGet, "/api/rooms/r1")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp roomResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "r1", resp.ID)
	assert.Equal(t, 2, resp.MemberCount)
	require.Len(t, resp.Members, 2)
	assert.Equal(t, "alice", resp.Members[0].DisplayName)
	assert.Equal(t, "bob", resp.Members[1].DisplayName)
}

func TestGetRoomAuditHandler_Disabled(t *testing.T) {
	_, router := newRouter(t, nil)

	rec := do(router, http.MethodGet, "/api/rooms/r1/audit")
	assert.Equal(t, http.StatusNotImplemented, rec.Code)
}

func TestGetRoomAuditHandler(t *testing.T) {
	audit := &fakeAudit{logs: []domain.RoomAuditLog{{
		ID:        "l1",
		RoomID:    "r1",
		EventType: domain.EventMemberJoined,
		Timestamp: time.Now(),
	}}}
	_, router := newRouter(t, audit)

	rec := do(router, http.MethodGet, "/api/rooms/r1/audit?limit=10")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 10, audit.limit)
	var resp roomAuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "member_joined", resp.Events[0].EventType)
}

func TestGetRoomAuditHandler_BadLimit(t *testing.T) {
	_, router := newRouter(t, &fakeAudit{})

	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/rooms/r1/audit?limit=0").Code)
	assert.Equal(t, http.StatusBadRequest, do(router, http.MethodGet, "/api/rooms/r1/audit?limit=abc").Code)
}

func TestGetRoomAuditHandler_FiltersByEvent(t *testing.T) {
	now := time.Now()
	audit := &fakeAudit{logs: []domain.RoomAuditLog{
		{ID: "l1", RoomID: "r1", EventType: domain.EventRoomCreated, Timestamp: now},
		{ID: "l2", RoomID: "r1", EventType: domain.EventMemberJoined, Timestamp: now},
		{ID: "l3", RoomID: "r2", EventType: domain.EventMemberJoined, Timestamp: now},
	}}
	_, router := newRouter(t, audit)

	rec := do(router, http.MethodGet, "/api/rooms/r1/audit?event=member_joined")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domain.EventMemberJoined, audit.eventType)
	assert.Equal(t, 50, audit.limit)
	var resp roomAuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "l2", resp.Events[0].ID)
}

func TestGetRoomAuditHandler_UnknownEvent(t *testing.T) {
	audit := &fakeAudit{}
	_, router := newRouter(t, audit)

	rec := do(router, http.MethodGet, "/api/rooms/r1/audit?event=compiled")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "compiled")
	assert.Empty(t, audit.eventType)
}

func TestGetRoomAuditHandler_StoreError(t *testing.T) {
	_, router := newRouter(t, &fakeAudit{err: errors.New("mongo down")})

	assert.Equal(t, http.StatusInternalServerError, do(router, http.MethodGet, "/api/rooms/r1/audit").Code)
}

func TestServeWS_HelloJoinAndSnapshot(t *testing.T) {
	core, router := newRouter(t, nil)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var hello struct {
		Type string              `json:"type"`
		Data ws.ConnectedPayload `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, ws.Connected, hello.Type)
	require.NotEmpty(t, hello.Data.ConnectionID)

	require.NoError(t, conn.WriteJSON(map[string]any{
		"type": ws.Join,
		"data": ws.JoinPayload{RoomID: "r1", DisplayName: "alice"},
	}))

	var joined struct {
		Type   string           `json:"type"`
		RoomID string           `json:"roomId"`
		Data   ws.JoinedPayload `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&joined))
	assert.Equal(t, ws.Joined, joined.Type)
	assert.Equal(t, "r1", joined.RoomID)
	assert.Equal(t, hello.Data.ConnectionID, joined.Data.ConnectionID)
	require.Len(t, joined.Data.Members, 1)

	room, ok := core.Rooms().GetRoom("r1")
	require.True(t, ok)
	assert.Equal(t, hello.Data.ConnectionID, room.Members[0].ConnectionID)

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		_, ok := core.Rooms().GetRoom("r1")
		return !ok
	}, 2*time.Second, 10*time.Millisecond)
}

func TestServeWS_RejectsPlainHTTP(t *testing.T) {
	_, router := newRouter(t, nil)

	rec := do(router, http.MethodGet, "/ws")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
