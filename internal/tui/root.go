package tui

import (
	"context"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hilthontt/collaby/internal/agent"
	"github.com/hilthontt/collaby/internal/domain"
	"github.com/hilthontt/collaby/internal/tui/theme"
)

type page = int

const (
	joinPage page = iota
	editorPage
)

// Session is the slice of agent.Agent the terminal drives.
type Session interface {
	Join(ctx context.Context, roomID, displayName string) error
	Edit(ctx context.Context, buffer string) error
	Leave() error
	Buffer() string
	Members() []domain.Member
	Compile(ctx context.Context) string
	Output() *agent.OutputPane
	Language() domain.Language
	SetLanguage(lang domain.Language) error
}

type Options struct {
	Highlight *string
	// NewRoomID backs the new-room shortcut on the join form.
	NewRoomID func(ctx context.Context) string
	// Copy puts text on the system clipboard. Defaults to clipboard.WriteAll.
	Copy func(text string) error
}

type state struct {
	join   joinState
	editor editorState
}

type model struct {
	renderer  *lipgloss.Renderer
	theme     theme.Theme
	context   context.Context
	session   Session
	bridge    *Bridge
	newRoomID func(ctx context.Context) string
	copy      func(text string) error
	edits     *editWriter
	help      help.Model

	page           page
	state          state
	viewportWidth  int
	viewportHeight int
}

func NewModel(renderer *lipgloss.Renderer, session Session, bridge *Bridge, opts Options) tea.Model {
	copyText := opts.Copy
	if copyText == nil {
		copyText = clipboard.WriteAll
	}

	ctx := context.Background()
	m := model{
		renderer:  renderer,
		theme:     theme.BasicTheme(renderer, opts.Highlight),
		context:   ctx,
		session:   session,
		bridge:    bridge,
		newRoomID: opts.NewRoomID,
		copy:      copyText,
		edits:     newEditWriter(ctx, session, bridge),
		help:      help.New(),
		page:      joinPage,
	}
	m = m.initJoin()
	return m
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.bridge.wait())
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.viewportWidth = msg.Width
		m.viewportHeight = msg.Height
		m.help.Width = msg.Width
		m = m.resizeEditor()
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.edits.Close()
			m.bridge.Close()
			_ = m.session.Leave()
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	case bridgeClosedMsg:
		return m, nil
	case bufferMsg, membersMsg, noticeMsg, stateMsg, sessionErrorMsg:
		var cmd tea.Cmd
		m, cmd = m.handleSession(msg)
		return m, tea.Batch(cmd, m.bridge.wait())
	}

	var cmd tea.Cmd
	switch m.page {
	case joinPage:
		m, cmd = m.JoinUpdate(msg)
	case editorPage:
		m, cmd = m.EditorUpdate(msg)
	}
	return m, cmd
}

// handleSession applies agent callbacks. Updates that arrive after the
// editor was left belong to the old session and are dropped. Only the
// session ending leaves the editor; other errors show as notices.
func (m model) handleSession(msg tea.Msg) (model, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionErrorMsg:
		switch {
		case m.page == editorPage:
			return m.notice("Error: " + msg.err.Error()), nil
		case m.state.join.lost:
			// The cause of a dropped session follows its Left state.
			m.state.join.lost = false
			m.state.join.error = "Connection lost: " + msg.err.Error()
		}
		return m, nil
	case stateMsg:
		if m.page == editorPage {
			m.state.editor.status = msg.state
			if msg.state == agent.Left {
				next, cmd := m.JoinSwitch("Disconnected from room")
				next.state.join.lost = true
				return next, cmd
			}
		}
		return m, nil
	}

	if m.page != editorPage {
		return m, nil
	}
	return m.EditorSessionUpdate(msg), nil
}

func (m model) View() string {
	var content string
	switch m.page {
	case joinPage:
		content = m.JoinView()
	case editorPage:
		content = m.EditorView()
	}

	if m.viewportWidth == 0 || m.viewportHeight == 0 {
		return content
	}
	return m.renderer.Place(
		m.viewportWidth,
		m.viewportHeight,
		lipgloss.Center,
		lipgloss.Center,
		content,
	)
}
