package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hilthontt/collaby/internal/infrastructure/configs"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"golang.org/x/time/rate"
)

type ClientOptions struct {
	MaxMessageBytes int64
	SendBuffer      int
	EventsPerSecond float64
	EventsBurst     int
	PingInterval    time.Duration
	PongWait        time.Duration
	WriteWait       time.Duration
}

func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		MaxMessageBytes: 512 * 1024,
		SendBuffer:      64,
		EventsPerSecond: 30,
		EventsBurst:     60,
		PingInterval:    30 * time.Second,
		PongWait:        60 * time.Second,
		WriteWait:       10 * time.Second,
	}
}

// NewClientOptions fills zero values from the defaults.
func NewClientOptions(cfg configs.WebSocketConfig) ClientOptions {
	opts := DefaultClientOptions()
	if cfg.MaxMessageBytes > 0 {
		opts.MaxMessageBytes = cfg.MaxMessageBytes
	}
	if cfg.SendBuffer > 0 {
		opts.SendBuffer = cfg.SendBuffer
	}
	if cfg.EventsPerSecond > 0 {
		opts.EventsPerSecond = cfg.EventsPerSecond
	}
	if cfg.EventsBurst > 0 {
		opts.EventsBurst = cfg.EventsBurst
	}
	if cfg.PingInterval > 0 {
		opts.PingInterval = cfg.PingInterval
	}
	if cfg.PongWait > 0 {
		opts.PongWait = cfg.PongWait
	}
	if cfg.WriteWait > 0 {
		opts.WriteWait = cfg.WriteWait
	}
	return opts
}

// Client is the registry side of one websocket connection.
type Client struct {
	conn    *connWrapper
	message chan *WSMessage
	id      string
	opts    ClientOptions
	limiter *rate.Limiter
	logger  logging.Logger

	// Protection against double-close and race conditions
	closeOnce sync.Once
	closed    chan struct{}
}

func NewClient(conn *websocket.Conn, opts ClientOptions, logger logging.Logger) *Client {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Client{
		conn:    newConnWrapper(conn),
		message: make(chan *WSMessage, opts.SendBuffer),
		id:      uuid.NewString(),
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.EventsPerSecond), opts.EventsBurst),
		logger:  logger,
		closed:  make(chan struct{}),
	}
}

func (c *Client) ID() string {
	return c.id
}

func (c *Client) Send(msg *WSMessage) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case c.message <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.conn.WriteClose(websocket.CloseNormalClosure, "", c.opts.WriteWait)
		_ = c.conn.Close()
	})
}

func (c *Client) IsClosed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Client) ReadMessage(core *Core) {
	defer func() {
		core.Unregister(c)
		c.Close()
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-c.closed:
			cancel()
		case <-ctx.Done():
		}
	}()

	c.conn.PrepareRead(c.opts.MaxMessageBytes, c.opts.PongWait)

	for {
		raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn(logging.WebSocket, logging.Disconnect, "ws read error", map[logging.ExtraKey]any{
					logging.ConnectionID: c.id,
					logging.ErrorMessage: err.Error(),
				})
			}
			return
		}

		if len(raw) == 0 {
			continue
		}

		var msg InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			c.Send(NewError("", "malformed message"))
			continue
		}

		if !c.admit(ctx, msg.Type) {
			if ctx.Err() != nil {
				return
			}
			continue
		}

		if !core.Dispatch(Inbound{From: c, Message: msg}) {
			return
		}
	}
}

// admit applies the per-connection event rate. Buffer relays are delayed
// rather than dropped: a lost last edit would leave peers stale for good.
func (c *Client) admit(ctx context.Context, eventType string) bool {
	if c.limiter.Allow() {
		return true
	}

	if carriesBuffer(eventType) {
		return c.limiter.Wait(ctx) == nil
	}

	c.Send(NewRateLimited())
	c.logger.Warn(logging.WebSocket, logging.RateLimiting, "event rate exceeded", map[logging.ExtraKey]any{
		logging.ConnectionID: c.id,
		logging.EventType:    eventType,
	})
	return false
}

func carriesBuffer(eventType string) bool {
	return eventType == CodeChange || eventType == SyncCode
}

func (c *Client) WriteMessage() {
	defer c.Close()

	// Ping ticker to keep connection alive
	ticker := time.NewTicker(c.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case msg := <-c.message:
			if err := c.conn.WriteJSON(msg, c.opts.WriteWait); err != nil {
				c.logger.Warn(logging.WebSocket, logging.Delivery, "ws write error", map[logging.ExtraKey]any{
					logging.ConnectionID: c.id,
					logging.ErrorMessage: err.Error(),
				})
				return
			}

		case <-ticker.C:
			if err := c.conn.WritePing(c.opts.WriteWait); err != nil {
				return
			}

		case <-c.closed:
			return
		}
	}
}
