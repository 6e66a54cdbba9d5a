package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/hilthontt/collaby/internal/agent"
	"github.com/hilthontt/collaby/internal/domain"
)

type bufferMsg struct {
	buffer string
}

type membersMsg struct {
	members []domain.Member
}

type noticeMsg struct {
	text string
}

type stateMsg struct {
	state agent.State
}

type sessionErrorMsg struct {
	err error
}

type bridgeClosedMsg struct{}

// Bridge turns agent callbacks into tea messages. The agent's event
// goroutine blocks on a full queue rather than dropping an update.
type Bridge struct {
	msgs      chan tea.Msg
	done      chan struct{}
	closeOnce sync.Once
}

func NewBridge() *Bridge {
	return &Bridge{
		msgs: make(chan tea.Msg, 256),
		done: make(chan struct{}),
	}
}

func (b *Bridge) Handlers() agent.Handlers {
	return agent.Handlers{
		OnBuffer:  func(buffer string) { b.send(bufferMsg{buffer: buffer}) },
		OnMembers: func(members []domain.Member) { b.send(membersMsg{members: members}) },
		OnNotice:  func(text string) { b.send(noticeMsg{text: text}) },
		OnState:   func(state agent.State) { b.send(stateMsg{state: state}) },
		OnError:   func(err error) { b.send(sessionErrorMsg{err: err}) },
	}
}

func (b *Bridge) send(msg tea.Msg) {
	select {
	case b.msgs <- msg:
	case <-b.done:
	}
}

// Close releases any callback still waiting on the UI.
func (b *Bridge) Close() {
	b.closeOnce.Do(func() { close(b.done) })
}

func (b *Bridge) wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.msgs:
			return msg
		case <-b.done:
			return bridgeClosedMsg{}
		}
	}
}
