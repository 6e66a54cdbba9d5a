package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/infrastructure/logging"
	"github.com/hilthontt/collaby/internal/infrastructure/ws"
)

const syncTimeout = 5 * time.Second

type State int

const (
	Disconnected State = iota
	Connecting
	Joined
	Synced
	Left
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Joined:
		return "joined"
	case Synced:
		return "synced"
	case Left:
		return "left"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Handlers are called from the agent's event goroutine, never under its lock.
// Any of them may be nil.
type Handlers struct {
	OnBuffer  func(buffer string)
	OnMembers func(members []domain.Member)
	OnNotice  func(notice string)
	OnState   func(state State)
	OnError   func(err error)
}

// session is one dial-to-close lifetime of a channel.
type session struct {
	ch         Channel
	joined     chan struct{}
	joinedOnce sync.Once
	done       chan struct{}
	doneOnce   sync.Once
}

func newSession() *session {
	return &session{
		joined: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (s *session) markJoined() {
	s.joinedOnce.Do(func() { close(s.joined) })
}

func (s *session) end() {
	s.doneOnce.Do(func() { close(s.done) })
}

// Agent is one client's view of a room session.
type Agent struct {
	dialer   Dialer
	compiler domain.Compiler
	logger   logging.Logger
	handlers Handlers

	doc    *domain.Document
	output *OutputPane

	mu          sync.Mutex
	state       State
	session     *session
	roomID      string
	displayName string
	selfID      string
	members     []domain.Member
	err         error
}

func New(dialer Dialer, compiler domain.Compiler, logger logging.Logger, handlers Handlers) *Agent {
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	idle := newSession()
	idle.end()

	return &Agent{
		dialer:   dialer,
		compiler: compiler,
		logger:   logger,
		handlers: handlers,
		doc:      domain.NewDocument(),
		output:   NewOutputPane(),
		state:    Disconnected,
		session:  idle,
	}
}

// Join connects and joins roomID. It returns once the registry confirmed the
// join, or with an error after the agent moved to Left.
func (a *Agent) Join(ctx context.Context, roomID, displayName string) error {
	if err := domain.ValidateRoomID(roomID); err != nil {
		return err
	}

	a.mu.Lock()
	if a.state == Connecting || a.state == Joined || a.state == Synced {
		a.mu.Unlock()
		return ErrAlreadyJoined
	}
	a.state = Connecting
	a.roomID = roomID
	a.displayName = displayName
	a.selfID = ""
	a.members = nil
	a.err = nil
	s := newSession()
	a.session = s
	a.mu.Unlock()

	a.doc.Reset()
	a.notifyState(Connecting)
	a.notifyBuffer("")

	ch, err := a.dialer.Dial(ctx)
	if err != nil {
		if !errors.Is(err, ErrConnectionFailed) {
			err = fmt.Errorf("%w: %v", ErrConnectionFailed, err)
		}
		a.finish(s, err)
		return err
	}

	a.mu.Lock()
	if a.session != s {
		// Leave ran while we were dialing.
		a.mu.Unlock()
		_ = ch.Close()
		s.end()
		return ErrChannelClosed
	}
	s.ch = ch
	a.selfID = ch.ConnectionID()
	a.mu.Unlock()

	go a.loop(s)

	if err := ch.Emit(ctx, ws.Join, ws.JoinPayload{RoomID: roomID, DisplayName: displayName}); err != nil {
		_ = ch.Close()
		<-s.done
		return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
	}

	select {
	case <-s.joined:
		return nil
	case <-s.done:
		if err := a.Err(); err != nil {
			return err
		}
		return ErrChannelClosed
	case <-ctx.Done():
		_ = a.Leave()
		return ctx.Err()
	}
}

// Edit replaces the local buffer and relays it to the room when it changed.
func (a *Agent) Edit(ctx context.Context, buffer string) error {
	a.mu.Lock()
	if a.state != Joined && a.state != Synced {
		a.mu.Unlock()
		return ErrNotJoined
	}
	ch := a.session.ch
	a.mu.Unlock()

	if !a.doc.Set(buffer) {
		return nil
	}
	return ch.Emit(ctx, ws.CodeChange, ws.CodeChangePayload{Buffer: buffer})
}

// Leave closes the channel. The registry announces the departure.
func (a *Agent) Leave() error {
	a.mu.Lock()
	if a.state == Left || a.state == Disconnected {
		a.mu.Unlock()
		return nil
	}
	a.state = Left
	s := a.session
	ch := s.ch
	if ch == nil {
		// Still dialing; Join notices the swap and discards its channel.
		a.session = newSession()
		a.session.end()
	}
	a.mu.Unlock()

	a.notifyState(Left)
	if ch == nil {
		s.end()
		return nil
	}
	return ch.Close()
}

func (a *Agent) SetLanguage(lang domain.Language) error {
	return a.doc.SetLanguage(lang)
}

func (a *Agent) Language() domain.Language {
	return a.doc.Language()
}

// Compile runs the current buffer. The outcome lands in the output pane.
func (a *Agent) Compile(ctx context.Context) string {
	return a.output.Run(ctx, a.compiler, domain.CompileRequest{
		Code:     a.doc.Buffer(),
		Language: a.doc.Language(),
	})
}

func (a *Agent) Output() *OutputPane {
	return a.output
}

func (a *Agent) Buffer() string {
	return a.doc.Buffer()
}

func (a *Agent) Members() []domain.Member {
	a.mu.Lock()
	defer a.mu.Unlock()

	cpy := make([]domain.Member, len(a.members))
	copy(cpy, a.members)
	return cpy
}

func (a *Agent) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

func (a *Agent) ConnectionID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.selfID
}

func (a *Agent) RoomID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roomID
}

func (a *Agent) Err() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.err
}

// Done is closed when the current session ended.
func (a *Agent) Done() <-chan struct{} {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.session.done
}

func (a *Agent) loop(s *session) {
	for ev := range s.ch.Events() {
		a.handle(s, ev)
	}
	a.finish(s, s.ch.Err())
}

// finish ends s. Agent state only follows when s is still the current session.
func (a *Agent) finish(s *session, cause error) {
	defer s.end()

	a.mu.Lock()
	if a.session != s {
		a.mu.Unlock()
		return
	}

	wasLeft := a.state == Left
	a.state = Left
	if !wasLeft && cause != nil {
		a.err = cause
	}
	err := a.err
	a.mu.Unlock()

	if !wasLeft {
		a.notifyState(Left)
		if err != nil {
			a.notifyError(err)
		}
	}
}

func (a *Agent) handle(s *session, ev Event) {
	// Events still buffered on a channel we already left.
	a.mu.Lock()
	stale := a.session != s || a.state == Left
	a.mu.Unlock()
	if stale {
		return
	}

	switch ev.Type {
	case ws.Joined:
		a.handleJoined(s, ev)
	case ws.Disconnected:
		a.handleDisconnected(ev)
	case ws.CodeChange, ws.SyncCode:
		a.handleRemoteBuffer(ev)
	case Reconnected:
		a.handleReconnected(s, ev)
	case ws.JoinFailed:
		a.handleJoinFailed(s, ev)
	case ws.ErrorEvent, ws.RateLimited:
		a.notifyError(errors.New(errorMessage(ev)))
	case ws.Connected:
	default:
		a.logger.Debug(logging.Session, logging.Relay, "ignoring unknown event", map[logging.ExtraKey]any{
			logging.EventType: ev.Type,
		})
	}
}

func (a *Agent) handleJoined(s *session, ev Event) {
	var payload ws.JoinedPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		a.notifyError(fmt.Errorf("malformed joined event: %w", err))
		return
	}

	members := make([]domain.Member, 0, len(payload.Members))
	for _, m := range payload.Members {
		members = append(members, domain.Member{
			ConnectionID: m.ConnectionID,
			DisplayName:  m.DisplayName,
			RoomID:       ev.RoomID,
		})
	}

	a.mu.Lock()
	if a.session != s || a.state == Left {
		a.mu.Unlock()
		return
	}
	a.members = members
	self := payload.ConnectionID == a.selfID
	stateChanged := false
	if self && a.state == Connecting {
		a.state = Joined
		stateChanged = true
	}
	a.mu.Unlock()

	if stateChanged {
		s.markJoined()
		a.notifyState(Joined)
	}
	a.notifyMembers(members)

	if self {
		return
	}

	a.notifyNotice(fmt.Sprintf("%s joined the room.", payload.DisplayName))

	// Bring the newcomer up to date. Several members may do this at once;
	// the copies are identical so the duplicates are harmless.
	if buffer := a.doc.Buffer(); buffer != "" {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()

		err := s.ch.Emit(ctx, ws.SyncCode, ws.SyncPayload{
			Buffer:             buffer,
			TargetConnectionID: payload.ConnectionID,
		})
		if err != nil {
			a.logger.Warn(logging.Session, logging.Sync, "failed to sync newcomer", map[logging.ExtraKey]any{
				logging.ConnectionID: payload.ConnectionID,
				logging.ErrorMessage: err.Error(),
			})
		}
	}
}

func (a *Agent) handleDisconnected(ev Event) {
	var payload ws.MemberPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		return
	}

	a.mu.Lock()
	remaining := make([]domain.Member, 0, len(a.members))
	for _, m := range a.members {
		if m.ConnectionID != payload.ConnectionID {
			remaining = append(remaining, m)
		}
	}
	a.members = remaining
	a.mu.Unlock()

	a.notifyMembers(remaining)
	a.notifyNotice(fmt.Sprintf("%s left the room", payload.DisplayName))
}

func (a *Agent) handleRemoteBuffer(ev Event) {
	var payload ws.CodeChangePayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil {
		return
	}

	// Last relay wins; there is nothing to merge.
	changed := a.doc.Set(payload.Buffer)

	a.mu.Lock()
	becameSynced := a.state == Joined
	if becameSynced {
		a.state = Synced
	}
	a.mu.Unlock()

	if becameSynced {
		a.notifyState(Synced)
	}
	if changed {
		a.notifyBuffer(payload.Buffer)
	}
}

// handleReconnected re-runs the join under the transport's new identity.
func (a *Agent) handleReconnected(s *session, ev Event) {
	var payload reconnectedPayload
	_ = json.Unmarshal(ev.Data, &payload)

	a.mu.Lock()
	if a.state == Left {
		a.mu.Unlock()
		return
	}
	a.selfID = payload.ConnectionID
	a.members = nil
	a.state = Connecting
	roomID, name := a.roomID, a.displayName
	a.mu.Unlock()

	a.notifyState(Connecting)
	a.notifyMembers(nil)
	a.logger.Info(logging.Session, logging.Reconnect, "rejoining after reconnect", map[logging.ExtraKey]any{
		logging.RoomID:       roomID,
		logging.ConnectionID: payload.ConnectionID,
	})

	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	if err := s.ch.Emit(ctx, ws.Join, ws.JoinPayload{RoomID: roomID, DisplayName: name}); err != nil {
		a.notifyError(fmt.Errorf("rejoin: %w", err))
	}
}

func (a *Agent) handleJoinFailed(s *session, ev Event) {
	a.mu.Lock()
	if a.state != Connecting {
		a.mu.Unlock()
		a.notifyError(errors.New(errorMessage(ev)))
		return
	}
	a.err = fmt.Errorf("%w: %s", ErrJoinRejected, errorMessage(ev))
	a.mu.Unlock()

	_ = s.ch.Close()
}

func errorMessage(ev Event) string {
	var payload ws.ErrorPayload
	if err := json.Unmarshal(ev.Data, &payload); err != nil || payload.Message == "" {
		return ev.Type
	}
	return payload.Message
}

func (a *Agent) notifyBuffer(buffer string) {
	if a.handlers.OnBuffer != nil {
		a.handlers.OnBuffer(buffer)
	}
}

func (a *Agent) notifyMembers(members []domain.Member) {
	if a.handlers.OnMembers != nil {
		a.handlers.OnMembers(members)
	}
}

func (a *Agent) notifyNotice(notice string) {
	if a.handlers.OnNotice != nil {
		a.handlers.OnNotice(notice)
	}
}

func (a *Agent) notifyState(state State) {
	if a.handlers.OnState != nil {
		a.handlers.OnState(state)
	}
}

func (a *Agent) notifyError(err error) {
	if a.handlers.OnError != nil {
		a.handlers.OnError(err)
	}
}
