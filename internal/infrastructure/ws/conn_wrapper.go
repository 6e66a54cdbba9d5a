package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// connWrapper serialises writers; gorilla allows one concurrent writer only.
type connWrapper struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func newConnWrapper(c *websocket.Conn) *connWrapper {
	return &connWrapper{conn: c}
}

func (w *connWrapper) WriteJSON(v any, timeout time.Duration) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	_ = w.conn.SetWriteDeadline(time.Now().Add(timeout))
	return w.conn.WriteJSON(v)
}

func (w *connWrapper) WritePing(timeout time.Duration) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	_ = w.conn.SetWriteDeadline(time.Now().Add(timeout))
	return w.conn.WriteMessage(websocket.PingMessage, nil)
}

// WriteClose may run concurrently with the other writers.
func (w *connWrapper) WriteClose(code int, text string, timeout time.Duration) error {
	return w.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(code, text),
		time.Now().Add(timeout),
	)
}

func (w *connWrapper) ReadMessage() ([]byte, error) {
	_, raw, err := w.conn.ReadMessage()
	return raw, err
}

func (w *connWrapper) PrepareRead(limit int64, pongWait time.Duration) {
	w.conn.SetReadLimit(limit)
	_ = w.conn.SetReadDeadline(time.Now().Add(pongWait))
	w.conn.SetPongHandler(func(string) error {
		return w.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
}

func (w *connWrapper) Close() error {
	return w.conn.Close()
}
