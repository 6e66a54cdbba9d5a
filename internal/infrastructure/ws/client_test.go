package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wireMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func serveCore(t *testing.T, core *Core, opts ClientOptions) string {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := core.Rooms().Upgrade(w, r)
		if err != nil {
			return
		}
		client := NewClient(conn, opts, nil)
		if !core.Register(client) {
			client.Close()
			return
		}
		go client.WriteMessage()
		go client.ReadMessage(core)
	}))
	t.Cleanup(srv.Close)

	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	hello := readUntil(t, conn, func(m wireMessage) bool { return m.Type == Connected })
	require.Equal(t, Connected, hello.Type)
	return conn
}

func emit(t *testing.T, conn *websocket.Conn, eventType string, data any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(map[string]any{"type": eventType, "data": data}))
}

// readUntil returns the first message matching match, failing after a few seconds.
func readUntil(t *testing.T, conn *websocket.Conn, match func(wireMessage) bool) wireMessage {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	defer conn.SetReadDeadline(time.Time{})

	for {
		var msg wireMessage
		require.NoError(t, conn.ReadJSON(&msg))
		if match(msg) {
			return msg
		}
	}
}

func TestClient_BufferBurstReachesPeerInFull(t *testing.T) {
	core := startCore(t, nil)
	opts := DefaultClientOptions()
	opts.EventsPerSecond = 200
	opts.EventsBurst = 5
	url := serveCore(t, core, opts)

	bob := dial(t, url)
	emit(t, bob, Join, JoinPayload{RoomID: "r1", DisplayName: "bob"})
	readUntil(t, bob, func(m wireMessage) bool { return m.Type == Joined })

	alice := dial(t, url)
	emit(t, alice, Join, JoinPayload{RoomID: "r1", DisplayName: "alice"})

	const edits = 40
	for i := 1; i <= edits; i++ {
		emit(t, alice, CodeChange, CodeChangePayload{Buffer: strings.Repeat("x", i)})
	}

	last := readUntil(t, bob, func(m wireMessage) bool {
		if m.Type != CodeChange {
			return false
		}
		var p CodeChangePayload
		require.NoError(t, json.Unmarshal(m.Data, &p))
		return len(p.Buffer) == edits
	})
	assert.Equal(t, CodeChange, last.Type)
}

func TestClient_OtherEventsOverRateAreRejected(t *testing.T) {
	core := startCore(t, nil)
	opts := DefaultClientOptions()
	opts.EventsPerSecond = 1
	opts.EventsBurst = 1
	url := serveCore(t, core, opts)

	alice := dial(t, url)
	emit(t, alice, Join, JoinPayload{RoomID: "r1", DisplayName: "alice"})
	emit(t, alice, Join, JoinPayload{RoomID: "r1", DisplayName: "alice"})

	msg := readUntil(t, alice, func(m wireMessage) bool { return m.Type == RateLimited })
	assert.Equal(t, RateLimited, msg.Type)
}
