// Package inputui is the toy input box with a scrolling log of what happened:
// plays, exports and jam chat.
package inputui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/rapidmidiex/rmxtoys/rmxerr"
	"github.com/rapidmidiex/rmxtoys/styles"
)

// Reference:
// https://github.com/charmbracelet/bubbletea/blob/master/examples/chat/main.go

const (
	maxLog     = 200
	maxHistory = 50
	logHeight  = 4
)

var (
	selfStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("5"))
	peerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	logStyle  = styles.BaseStyle.Copy().Padding(0, 1)
)

type (
	ToggleFocusMsg struct{}

	// SubmitMsg asks to play the current input.
	SubmitMsg struct {
		Input string
	}

	// LogMsg adds a line to the log.
	LogMsg struct {
		Line string
	}

	// RecvTextMsg is a chat line from the jam.
	RecvTextMsg struct {
		ID          uuid.UUID
		DisplayName string
		Msg         string
		FromSelf    bool
	}
)

type Model struct {
	box textarea.Model
	log viewport.Model

	lines []string
	// Submitted inputs, oldest first. recall indexes it while browsing and
	// equals len(history) otherwise.
	history []string
	recall  int
}

func New(placeholder string, charLimit int) Model {
	box := textarea.New()
	box.Placeholder = placeholder
	box.Prompt = "┃ "
	box.CharLimit = charLimit
	box.ShowLineNumbers = false
	box.SetWidth(styles.Width - 4)
	box.SetHeight(2)
	box.FocusedStyle.CursorLine = lipgloss.NewStyle()
	box.KeyMap.InsertNewline.SetEnabled(false)
	box.Focus()

	log := viewport.New(styles.Width-8, logHeight)
	log.SetContent(styles.DimStyle.Render("Type something and press Enter to play it."))

	return Model{box: box, log: log}
}

func (m Model) Init() tea.Cmd {
	return textarea.Blink
}

func (m Model) Value() string { return m.box.Value() }

func (m Model) Focused() bool { return m.box.Focused() }

// Lines returns the log, oldest first.
func (m Model) Lines() []string { return m.lines }

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var boxCmd, logCmd tea.Cmd
	m.box, boxCmd = m.box.Update(msg)
	m.log, logCmd = m.log.Update(msg)
	cmds := []tea.Cmd{boxCmd, logCmd}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if !m.box.Focused() {
			break
		}
		switch msg.Type {
		case tea.KeyEnter:
			input := m.box.Value()
			if strings.TrimSpace(input) != "" {
				m.remember(input)
			}
			m.box.Reset()
			cmds = append(cmds, func() tea.Msg { return SubmitMsg{Input: input} })
		case tea.KeyUp:
			m.browse(-1)
		case tea.KeyDown:
			m.browse(1)
		}

	case ToggleFocusMsg:
		if m.box.Focused() {
			m.box.Blur()
		} else {
			cmds = append(cmds, m.box.Focus())
		}

	case LogMsg:
		m.addLine(msg.Line)

	case RecvTextMsg:
		if msg.FromSelf {
			m.addLine(selfStyle.Render("You: " + msg.Msg))
		} else {
			m.addLine(peerStyle.Render(fmt.Sprintf("%s: %s", msg.DisplayName, msg.Msg)))
		}

	case rmxerr.ErrMsg:
		m.addLine(styles.RenderError(msg.Error()))
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) remember(input string) {
	if n := len(m.history); n == 0 || m.history[n-1] != input {
		m.history = append(m.history, input)
	}
	if len(m.history) > maxHistory {
		m.history = m.history[len(m.history)-maxHistory:]
	}
	m.recall = len(m.history)
}

// browse moves through the history. Going past the newest entry clears the box.
func (m *Model) browse(step int) {
	next := m.recall + step
	if next < 0 || next > len(m.history) {
		return
	}
	m.recall = next
	if next == len(m.history) {
		m.box.Reset()
		return
	}
	m.box.SetValue(m.history[next])
	m.box.CursorEnd()
}

func (m *Model) addLine(line string) {
	m.lines = append(m.lines, line)
	if len(m.lines) > maxLog {
		m.lines = m.lines[len(m.lines)-maxLog:]
	}
	m.log.SetContent(strings.Join(m.lines, "\n"))
	m.log.GotoBottom()
}

func (m Model) View() string {
	return m.box.View() + "\n" + logStyle.Render(m.log.View())
}
