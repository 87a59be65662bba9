// Package menuui lists the toys and, when a jam server is reachable, the jam
// rooms a toy can be shared to.
package menuui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/rapidmidiex/rmxtoys/jam"
	"github.com/rapidmidiex/rmxtoys/keymap"
	"github.com/rapidmidiex/rmxtoys/rmxerr"
	"github.com/rapidmidiex/rmxtoys/styles"
	"github.com/rapidmidiex/rmxtoys/toys"
)

var docStyle = styles.DocStyle

type (
	ToySelected struct {
		Name string
	}

	JamSelected struct {
		ID string
	}

	jamsLoaded struct {
		jams []jam.Jam
	}

	jamCreated struct {
		id string
	}

	focused int

	// JamLister is the part of jam.Client the menu needs.
	JamLister interface {
		List(ctx context.Context) ([]jam.Jam, error)
		Create(ctx context.Context) (string, error)
	}

	Model struct {
		toyTable table.Model
		jamTable table.Model
		jams     []jam.Jam
		client   JamLister
		focused  focused
		// Jam the next toy will be shared to.
		sharing string
		help    help.Model
		loading bool
		err     error
	}
)

const (
	toyFocus focused = iota
	jamFocus
)

// New builds the menu. client may be nil when no jam server is configured.
func New(client JamLister) Model {
	m := Model{
		toyTable: makeToyTable(),
		client:   client,
		help:     help.New(),
		loading:  client != nil,
	}
	m.toyTable.Focus()
	return m
}

func (m Model) Init() tea.Cmd {
	if m.client == nil {
		return nil
	}
	return m.listJams()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	case rmxerr.ErrMsg:
		m.err = msg
		m.loading = false
	case jamsLoaded:
		m.jams = msg.jams
		m.jamTable = makeJamsTable(m.jams)
		m.loading = false
		if m.focused == jamFocus {
			m.jamTable.Focus()
		}
	case jamCreated:
		// Auto select the newly created Jam
		m.sharing = msg.id
		cmds = append(cmds, jamSelect(msg.id), m.listJams())
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keymap.DefaultMapping.CycleFocus):
			m.cycleFocus()
			return m, nil
		case msg.Type == tea.KeyEnter && m.focused == toyFocus:
			if row := m.toyTable.SelectedRow(); len(row) > 0 {
				cmds = append(cmds, toySelect(row[0]))
			}
		case msg.Type == tea.KeyEnter && m.focused == jamFocus:
			if row := m.jamTable.SelectedRow(); len(row) > 1 {
				m.sharing = row[1]
				cmds = append(cmds, jamSelect(row[1]))
			}
		case msg.String() == "n" && m.client != nil:
			cmds = append(cmds, m.jamCreate())
		case msg.String() == "r" && m.client != nil:
			m.loading = true
			cmds = append(cmds, m.listJams())
		}
	}

	var cmd tea.Cmd
	switch m.focused {
	case toyFocus:
		m.toyTable, cmd = m.toyTable.Update(msg)
	case jamFocus:
		m.jamTable, cmd = m.jamTable.Update(msg)
	}
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *Model) cycleFocus() {
	if m.client == nil || len(m.jams) == 0 {
		return
	}
	if m.focused == toyFocus {
		m.focused = jamFocus
		m.toyTable.Blur()
		m.jamTable.Focus()
		return
	}
	m.focused = toyFocus
	m.jamTable.Blur()
	m.toyTable.Focus()
}

// Sharing returns the selected jam ID, if any.
func (m Model) Sharing() string { return m.sharing }

func (m Model) View() string {
	physicalWidth, _, _ := term.GetSize(int(os.Stdout.Fd()))
	doc := strings.Builder{}

	doc.WriteString(styles.BoldStyle.Render("Toys") + "\n")
	doc.WriteString(styles.BaseStyle.Width(styles.Width).Render(m.toyTable.View()) + "\n\n")

	if m.client != nil {
		doc.WriteString(styles.BoldStyle.Render("Jams") + "\n")
		switch {
		case m.loading:
			doc.WriteString(styles.DimStyle.Render("Loading jams...") + "\n")
		case len(m.jams) > 0:
			doc.WriteString(styles.BaseStyle.Width(styles.Width).Render(m.jamTable.View()) + "\n")
		default:
			doc.WriteString(styles.DimStyle.Render("No Jams Yet. Press n to create one.") + "\n")
		}
		if m.sharing != "" {
			doc.WriteString(fmt.Sprintf("Sharing to jam %s\n", m.sharing))
		}
	}
	if m.err != nil {
		doc.WriteString("\n" + styles.RenderError(m.err.Error()) + "\n")
	}

	// Help menu
	doc.WriteString(styles.HelpMenu.Render(m.help.ShortHelpView([]key.Binding{
		keymap.DefaultMapping.Play,
		keymap.DefaultMapping.CycleFocus,
		keymap.DefaultMapping.Quit,
	})))

	style := docStyle
	if physicalWidth > 0 {
		style = style.MaxWidth(physicalWidth)
	}
	return style.Render(doc.String())
}

func makeToyTable() table.Model {
	columns := []table.Column{
		{Title: "Toy", Width: 16},
		{Title: "What it does", Width: 50},
	}
	rows := make([]table.Row, 0)
	for _, toy := range toys.All() {
		rows = append(rows, table.Row{toy.Name(), toy.Describe()})
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(len(rows)+1),
	)
	t.SetStyles(tableStyles())
	return t
}

// https://github.com/rog-golang-buddies/rapidmidiex-research/issues/9#issuecomment-1204853876
func makeJamsTable(jams []jam.Jam) table.Model {
	columns := []table.Column{
		{Title: "Name", Width: 20},
		{Title: "ID", Width: 36},
		{Title: "Players", Width: 10},
	}

	rows := make([]table.Row, 0)
	for _, j := range jams {
		rows = append(rows, table.Row{j.Name, j.ID, fmt.Sprintf("%d", j.PlayerCount)})
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithHeight(5),
	)
	t.SetStyles(tableStyles())
	return t
}

func tableStyles() table.Styles {
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Dim).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	return s
}

// Commands
func (m Model) listJams() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		jams, err := client.List(ctx)
		if err != nil {
			return rmxerr.ErrMsg{Err: err}
		}
		return jamsLoaded{jams}
	}
}

func (m Model) jamCreate() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		id, err := client.Create(ctx)
		if err != nil {
			return rmxerr.ErrMsg{Err: err}
		}
		return jamCreated{id}
	}
}

func toySelect(name string) tea.Cmd {
	return func() tea.Msg {
		return ToySelected{name}
	}
}

func jamSelect(id string) tea.Cmd {
	return func() tea.Msg {
		return JamSelected{id}
	}
}
