package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const joinTimeout = 30 * time.Second

type joinState struct {
	roomID  textinput.Model
	name    textinput.Model
	focus   int
	error   string
	joining bool
	// lost is set while the cause of a dropped session is still due.
	lost bool
}

type joinResultMsg struct {
	roomID string
	err    error
}

type roomIDMsg struct {
	roomID string
}

func (m model) JoinSwitch(message string) (model, tea.Cmd) {
	roomID := m.state.join.roomID.Value()
	name := m.state.join.name.Value()

	m.edits.Discard()
	m.page = joinPage
	m = m.initJoin()
	m.state.join.roomID.SetValue(roomID)
	m.state.join.name.SetValue(name)
	m.state.join.error = message
	return m, textinput.Blink
}

func (m model) JoinView() string {
	s := m.state.join

	var sections []string

	sections = append(sections, m.theme.TextBrand().Bold(true).Render("Collaby"))
	sections = append(sections, "")
	sections = append(sections, m.theme.TextBody().
		Render("Enter a room id to join, or press ctrl+n for a new room."))
	sections = append(sections, "")

	sections = append(sections, m.theme.TextAccent().Render("Room ID:"))
	sections = append(sections, s.roomID.View())
	sections = append(sections, "")
	sections = append(sections, m.theme.TextAccent().Render("Display name:"))
	sections = append(sections, s.name.View())

	if s.error != "" {
		sections = append(sections, "")
		sections = append(sections, m.theme.TextError().Render("⚠ "+s.error))
	}

	if s.joining {
		sections = append(sections, "")
		sections = append(sections, m.theme.TextHighlight().Render("Joining room..."))
	}

	sections = append(sections, "", m.help.View(joinKeys{}))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m model) JoinUpdate(msg tea.Msg) (model, tea.Cmd) {
	switch msg := msg.(type) {
	case roomIDMsg:
		m.state.join.roomID.SetValue(msg.roomID)
		return m.focusJoinField(1), nil
	case joinResultMsg:
		m.state.join.joining = false
		if msg.err != nil {
			m.state.join.error = "Failed to join room: " + msg.err.Error()
			return m, nil
		}
		return m.EditorSwitch(msg.roomID)
	case tea.KeyMsg:
		if m.state.join.joining {
			return m, nil
		}

		switch {
		case key.Matches(msg, keys.Back):
			m.state.join.error = ""
			return m, nil
		case key.Matches(msg, keys.Tab):
			return m.focusJoinField(1 - m.state.join.focus), nil
		case key.Matches(msg, keys.NewRoom):
			return m, m.generateRoomID()
		case key.Matches(msg, keys.Enter):
			roomID := strings.TrimSpace(m.state.join.roomID.Value())
			name := strings.TrimSpace(m.state.join.name.Value())
			if roomID == "" || name == "" {
				m.state.join.error = "Room ID and display name are required"
				return m, nil
			}

			m.state.join.error = ""
			m.state.join.joining = true
			m.state.join.lost = false
			return m, m.joinRoom(roomID, name)
		}
	}

	var cmd tea.Cmd
	if m.state.join.focus == 0 {
		m.state.join.roomID, cmd = m.state.join.roomID.Update(msg)
	} else {
		m.state.join.name, cmd = m.state.join.name.Update(msg)
	}
	return m, cmd
}

func (m model) joinRoom(roomID, name string) tea.Cmd {
	ctx := m.context
	session := m.session
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(ctx, joinTimeout)
		defer cancel()
		return joinResultMsg{roomID: roomID, err: session.Join(ctx, roomID, name)}
	}
}

func (m model) generateRoomID() tea.Cmd {
	if m.newRoomID == nil {
		return nil
	}
	ctx := m.context
	newRoomID := m.newRoomID
	return func() tea.Msg {
		return roomIDMsg{roomID: newRoomID(ctx)}
	}
}

func (m model) focusJoinField(field int) model {
	m.state.join.focus = field
	if field == 0 {
		m.state.join.roomID.Focus()
		m.state.join.name.Blur()
	} else {
		m.state.join.name.Focus()
		m.state.join.roomID.Blur()
	}
	return m
}

func (m model) newInput(placeholder string, limit int) textinput.Model {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.CharLimit = limit
	ti.Width = 40
	ti.PromptStyle = m.theme.TextBrand()
	ti.TextStyle = m.theme.TextAccent()
	ti.PlaceholderStyle = m.theme.TextBody()
	return ti
}

func (m model) initJoin() model {
	m.state.join = joinState{
		roomID: m.newInput("Enter room id...", 128),
		name:   m.newInput("Enter your name...", 64),
	}
	return m.focusJoinField(0)
}
