package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/hilthontt/collaby/internal/infrastructure/ws"
)

type WebSocketOptions struct {
	HandshakeTimeout time.Duration
	InitialInterval  time.Duration
	MaxInterval      time.Duration
	MaxTries         uint
	WriteWait        time.Duration
	Logger           logging.Logger
}

func DefaultWebSocketOptions() WebSocketOptions {
	return WebSocketOptions{
		HandshakeTimeout: 20 * time.Second,
		InitialInterval:  time.Second,
		MaxInterval:      5 * time.Second,
		MaxTries:         5,
		WriteWait:        10 * time.Second,
		Logger:           logging.NewNopLogger(),
	}
}

// WebSocketDialer connects to the registry's /ws endpoint. Both the first dial
// and every mid-session reconnect go through the same bounded backoff.
type WebSocketDialer struct {
	url  string
	opts WebSocketOptions
}

func NewWebSocketDialer(url string, opts WebSocketOptions) *WebSocketDialer {
	defaults := DefaultWebSocketOptions()
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = defaults.HandshakeTimeout
	}
	if opts.InitialInterval <= 0 {
		opts.InitialInterval = defaults.InitialInterval
	}
	if opts.MaxInterval <= 0 {
		opts.MaxInterval = defaults.MaxInterval
	}
	if opts.MaxTries == 0 {
		opts.MaxTries = defaults.MaxTries
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = defaults.WriteWait
	}
	if opts.Logger == nil {
		opts.Logger = defaults.Logger
	}

	return &WebSocketDialer{url: url, opts: opts}
}

func (d *WebSocketDialer) Dial(ctx context.Context) (Channel, error) {
	session, err := d.connect(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	chCtx, cancel := context.WithCancel(context.Background())
	ch := &wsChannel{
		dialer: d,
		conn:   session.conn,
		id:     session.connectionID,
		events: make(chan Event, 64),
		ctx:    chCtx,
		cancel: cancel,
	}
	go ch.run()

	return ch, nil
}

type wsSession struct {
	conn         *websocket.Conn
	connectionID string
}

func (d *WebSocketDialer) connect(ctx context.Context) (*wsSession, error) {
	operation := func() (*wsSession, error) {
		dialer := websocket.Dialer{HandshakeTimeout: d.opts.HandshakeTimeout}

		conn, resp, err := dialer.DialContext(ctx, d.url, nil)
		if err != nil {
			// The endpoint exists but refuses us; retrying will not help.
			if resp != nil && resp.StatusCode >= http.StatusBadRequest && resp.StatusCode < http.StatusInternalServerError {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}

		id, err := d.readHello(conn)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}

		return &wsSession{conn: conn, connectionID: id}, nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = d.opts.InitialInterval
	policy.MaxInterval = d.opts.MaxInterval

	attempt := 0
	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(d.opts.MaxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			attempt++
			d.opts.Logger.Warn(logging.WebSocket, logging.Reconnect, "dial failed, retrying", map[logging.ExtraKey]any{
				logging.Attempt:      attempt,
				logging.ErrorMessage: err.Error(),
				"retry_in":           next.String(),
			})
		}),
	)
}

// readHello waits for the registry to announce our connection id.
func (d *WebSocketDialer) readHello(conn *websocket.Conn) (string, error) {
	_ = conn.SetReadDeadline(time.Now().Add(d.opts.HandshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	var hello Event
	if err := conn.ReadJSON(&hello); err != nil {
		return "", fmt.Errorf("read hello: %w", err)
	}
	if hello.Type != ws.Connected {
		return "", fmt.Errorf("expected %q, got %q", ws.Connected, hello.Type)
	}

	var payload ws.ConnectedPayload
	if err := json.Unmarshal(hello.Data, &payload); err != nil || payload.ConnectionID == "" {
		return "", fmt.Errorf("malformed hello")
	}
	return payload.ConnectionID, nil
}

type wsChannel struct {
	dialer *WebSocketDialer

	mu      sync.RWMutex // guards conn and id
	writeMu sync.Mutex
	conn    *websocket.Conn
	id      string

	events chan Event
	err    error

	ctx       context.Context
	cancel    context.CancelFunc
	closeOnce sync.Once
}

func (c *wsChannel) ConnectionID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.id
}

func (c *wsChannel) Events() <-chan Event {
	return c.events
}

func (c *wsChannel) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.err
}

func (c *wsChannel) Emit(ctx context.Context, event string, payload any) error {
	if c.ctx.Err() != nil {
		return ErrChannelClosed
	}

	c.mu.RLock()
	conn := c.conn
	c.mu.RUnlock()

	deadline := time.Now().Add(c.dialer.opts.WriteWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteJSON(envelope{Type: event, Data: payload}); err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}
	return nil
}

func (c *wsChannel) Close() error {
	c.closeOnce.Do(func() {
		c.cancel()

		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		_ = conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		_ = conn.Close()
	})
	return nil
}

func (c *wsChannel) run() {
	defer close(c.events)

	for {
		c.mu.RLock()
		conn := c.conn
		c.mu.RUnlock()

		var ev Event
		if err := conn.ReadJSON(&ev); err != nil {
			if c.ctx.Err() != nil {
				return
			}
			if !c.reconnect(err) {
				return
			}
			continue
		}

		select {
		case c.events <- ev:
		case <-c.ctx.Done():
			return
		}
	}
}

// reconnect swaps in a fresh connection and reports whether the channel lives on.
func (c *wsChannel) reconnect(cause error) bool {
	logger := c.dialer.opts.Logger
	logger.Warn(logging.WebSocket, logging.Reconnect, "connection lost", map[logging.ExtraKey]any{
		logging.ErrorMessage: cause.Error(),
	})

	session, err := c.dialer.connect(c.ctx)
	if err != nil {
		c.mu.Lock()
		if c.ctx.Err() == nil {
			c.err = fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		c.mu.Unlock()
		return false
	}

	c.mu.Lock()
	old := c.conn
	c.conn = session.conn
	c.id = session.connectionID
	c.mu.Unlock()
	_ = old.Close()

	// Close may have raced the dial; it only saw the old connection.
	if c.ctx.Err() != nil {
		_ = session.conn.Close()
		return false
	}

	data, _ := json.Marshal(reconnectedPayload{ConnectionID: session.connectionID})
	select {
	case c.events <- Event{Type: Reconnected, Data: data}:
		return true
	case <-c.ctx.Done():
		return false
	}
}
