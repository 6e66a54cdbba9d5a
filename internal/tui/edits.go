package tui

import (
	"context"
	"sync"
)

// editWriter sends buffer edits from a single goroutine so they leave in
// keystroke order without blocking Update. Each edit carries the whole
// buffer, so a newer one replaces an edit that has not gone out yet.
type editWriter struct {
	ctx     context.Context
	session Session
	bridge  *Bridge

	mu      sync.Mutex
	pending *string
	wake    chan struct{}

	done      chan struct{}
	closeOnce sync.Once
}

func newEditWriter(ctx context.Context, session Session, bridge *Bridge) *editWriter {
	w := &editWriter{
		ctx:     ctx,
		session: session,
		bridge:  bridge,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	go w.run()
	return w
}

// Push queues buffer as the next edit.
func (w *editWriter) Push(buffer string) {
	w.mu.Lock()
	w.pending = &buffer
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Discard drops an edit that has not gone out yet.
func (w *editWriter) Discard() {
	w.mu.Lock()
	w.pending = nil
	w.mu.Unlock()
}

func (w *editWriter) Close() {
	w.closeOnce.Do(func() { close(w.done) })
}

func (w *editWriter) run() {
	for {
		select {
		case <-w.done:
			return
		case <-w.wake:
		}

		w.mu.Lock()
		next := w.pending
		w.pending = nil
		w.mu.Unlock()
		if next == nil {
			continue
		}

		if err := w.session.Edit(w.ctx, *next); err != nil {
			w.bridge.send(noticeMsg{text: "Edit not sent: " + err.Error()})
		}
	}
}
