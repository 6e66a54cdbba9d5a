package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/hilthontt/collaby/internal/infrastructure/ws"
)

// LocalDialer binds agents directly to an in-process registry. Messages take
// the same JSON round trip as on the wire.
type LocalDialer struct {
	core   *ws.Core
	buffer int
}

func NewLocalDialer(core *ws.Core) *LocalDialer {
	return &LocalDialer{core: core, buffer: 64}
}

func (d *LocalDialer) Dial(ctx context.Context) (Channel, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	ch := &localChannel{
		core:   d.core,
		id:     uuid.NewString(),
		events: make(chan Event, d.buffer),
	}
	if !d.core.Register(localPeer{ch}) {
		return nil, fmt.Errorf("%w: registry is shut down", ErrConnectionFailed)
	}

	return ch, nil
}

type localChannel struct {
	core   *ws.Core
	id     string
	events chan Event

	mu     sync.Mutex
	closed bool
	err    error
}

func (c *localChannel) ConnectionID() string {
	return c.id
}

func (c *localChannel) Events() <-chan Event {
	return c.events
}

func (c *localChannel) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func (c *localChannel) Emit(_ context.Context, event string, payload any) error {
	if c.isClosed() {
		return ErrChannelClosed
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("emit %s: %w", event, err)
	}

	ok := c.core.Dispatch(ws.Inbound{
		From:    localPeer{c},
		Message: ws.InboundMessage{Type: event, Data: data},
	})
	if !ok {
		return ErrChannelClosed
	}
	return nil
}

// Close hands the departure to the registry, which then closes the peer side.
func (c *localChannel) Close() error {
	if c.isClosed() {
		return nil
	}
	c.core.Unregister(localPeer{c})
	c.shutdown(nil)
	return nil
}

func (c *localChannel) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *localChannel) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.err = err
	close(c.events)
}

func (c *localChannel) deliver(msg *ws.WSMessage) bool {
	// The hello only matters to transports that learn their id from the wire.
	if msg.Type == ws.Connected {
		return true
	}

	raw, err := json.Marshal(msg)
	if err != nil {
		return false
	}
	var ev Event
	if err := json.Unmarshal(raw, &ev); err != nil {
		return false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return false
	}

	select {
	case c.events <- ev:
		return true
	default:
		return false
	}
}

// localPeer is the registry's view of a localChannel.
type localPeer struct {
	ch *localChannel
}

func (p localPeer) ID() string {
	return p.ch.id
}

func (p localPeer) Send(msg *ws.WSMessage) bool {
	return p.ch.deliver(msg)
}

func (p localPeer) Close() {
	p.ch.shutdown(ErrChannelClosed)
}
