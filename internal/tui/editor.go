package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/hilthontt/collaby/internal/agent"
	"github.com/hilthontt/collaby/internal/domain"
)

const (
	membersWidth = 24
	outputHeight = 6
	maxNotices   = 3
)

type editorState struct {
	roomID    string
	input     textarea.Model
	members   []domain.Member
	notices   []string
	output    string
	failed    bool
	compiling bool
	status    agent.State
}

type compiledMsg struct {
	output string
	failed bool
}

func (m model) EditorSwitch(roomID string) (model, tea.Cmd) {
	ta := textarea.New()
	ta.Placeholder = "Start typing..."
	ta.ShowLineNumbers = true
	ta.CharLimit = 0
	ta.MaxHeight = 0
	ta.Focus()

	// Room traffic that raced the join result is already in the agent.
	ta.SetValue(m.session.Buffer())

	m.page = editorPage
	m.state.editor = editorState{
		roomID:  roomID,
		input:   ta,
		members: m.session.Members(),
		output:  agent.OutputPlaceholder,
		status:  agent.Joined,
	}
	m = m.resizeEditor()
	return m, textarea.Blink
}

func (m model) resizeEditor() model {
	if m.page != editorPage || m.viewportWidth == 0 {
		return m
	}

	// borders and padding take four columns per panel
	width := max(m.viewportWidth-membersWidth-8, 20)
	height := max(m.viewportHeight-outputHeight-10, 3)
	m.state.editor.input.SetWidth(width)
	m.state.editor.input.SetHeight(height)
	return m
}

func (m model) EditorUpdate(msg tea.Msg) (model, tea.Cmd) {
	s := &m.state.editor

	switch msg := msg.(type) {
	case compiledMsg:
		s.compiling = false
		s.output = msg.output
		s.failed = msg.failed
		return m, nil
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Back):
			session := m.session
			next, cmd := m.JoinSwitch("")
			return next, tea.Batch(cmd, func() tea.Msg {
				_ = session.Leave()
				return nil
			})
		case key.Matches(msg, keys.Compile):
			if s.compiling {
				return m, nil
			}
			s.compiling = true
			s.failed = false
			s.output = agent.OutputCompiling
			return m, m.compile()
		case key.Matches(msg, keys.Language):
			_ = m.session.SetLanguage(m.session.Language().Next())
			return m, nil
		case key.Matches(msg, keys.Copy):
			if err := m.copy(s.roomID); err != nil {
				return m.notice("Copy failed: " + err.Error()), nil
			}
			return m.notice("Room ID copied"), nil
		}
	}

	before := s.input.Value()
	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	if after := s.input.Value(); after != before {
		m.edits.Push(after)
	}
	return m, cmd
}

// EditorSessionUpdate applies room traffic to the open editor.
func (m model) EditorSessionUpdate(msg tea.Msg) model {
	s := &m.state.editor

	switch msg := msg.(type) {
	case bufferMsg:
		if s.input.Value() != msg.buffer {
			s.input.SetValue(msg.buffer)
		}
	case membersMsg:
		s.members = msg.members
	case noticeMsg:
		m = m.notice(msg.text)
	}
	return m
}

func (m model) notice(text string) model {
	notices := append(m.state.editor.notices, text)
	if len(notices) > maxNotices {
		notices = notices[len(notices)-maxNotices:]
	}
	m.state.editor.notices = notices
	return m
}

func (m model) compile() tea.Cmd {
	ctx := m.context
	session := m.session
	return func() tea.Msg {
		output := session.Compile(ctx)
		return compiledMsg{output: output, failed: session.Output().Failed()}
	}
}

func (m model) EditorView() string {
	s := m.state.editor

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		m.theme.TextBrand().Bold(true).Render("Collaby"),
		m.theme.TextBody().Render("  room "),
		m.theme.TextHighlight().Bold(true).Render(s.roomID),
		m.theme.TextBody().Render(fmt.Sprintf("  %s  %s", m.session.Language(), s.status)),
	)

	editor := m.theme.Panel(true).Render(s.input.View())

	var names []string
	for _, member := range s.members {
		names = append(names, "• "+member.DisplayName)
	}
	if len(names) == 0 {
		names = append(names, m.theme.TextBody().Faint(true).Render("nobody yet"))
	}
	members := m.theme.Panel(false).
		Width(membersWidth).
		Height(lipgloss.Height(editor) - 2).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			m.theme.TextAccent().Bold(true).Render(fmt.Sprintf("Members (%d)", len(s.members))),
			strings.Join(names, "\n"),
		))

	body := lipgloss.JoinHorizontal(lipgloss.Top, editor, members)

	outputStyle := m.theme.TextAccent()
	switch {
	case s.failed:
		outputStyle = m.theme.TextError()
	case s.output == agent.OutputPlaceholder || s.compiling:
		outputStyle = m.theme.TextBody().Faint(true)
	}
	output := m.theme.Panel(false).
		Width(lipgloss.Width(body) - 2).
		Height(outputHeight).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			m.theme.TextAccent().Bold(true).Render("Output"),
			outputStyle.Render(lastLines(s.output, outputHeight-1)),
		))

	notices := m.theme.TextBody().Faint(true).Render(strings.Join(s.notices, "  "))

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		output,
		notices,
		m.help.View(keys),
	)
}

func lastLines(text string, n int) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
