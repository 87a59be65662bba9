package keymap

import (
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

type Mapping struct {
	Play       key.Binding
	Stop       key.Binding
	Export     key.Binding
	Share      key.Binding
	CycleFocus key.Binding
	GoBack     key.Binding
	Quit       key.Binding
}

var DefaultMapping = Mapping{
	Play: key.NewBinding(
		key.WithKeys(tea.KeyEnter.String()),
		key.WithHelp("enter", "play"),
	),
	Stop: key.NewBinding(
		key.WithKeys(tea.KeyCtrlX.String()),
		key.WithHelp("ctrl+x", "stop"),
	),
	Export: key.NewBinding(
		key.WithKeys(tea.KeyCtrlE.String()),
		key.WithHelp("ctrl+e", "export"),
	),
	Share: key.NewBinding(
		key.WithKeys(tea.KeyCtrlS.String()),
		key.WithHelp("ctrl+s", "share to jam"),
	),
	CycleFocus: key.NewBinding(
		key.WithKeys(tea.KeyTab.String()),
		key.WithHelp("tab", "cycle focus"),
	),
	GoBack: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "go back"),
	),
	Quit: key.NewBinding(
		key.WithKeys(tea.KeyCtrlC.String()),
		key.WithHelp("ctrl+c", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (m Mapping) ShortHelp() []key.Binding {
	return []key.Binding{m.Play, m.Stop, m.Export, m.Share, m.GoBack, m.Quit}
}

// FullHelp implements help.KeyMap.
func (m Mapping) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{m.Play, m.Stop, m.Export, m.Share},
		{m.CycleFocus, m.GoBack, m.Quit},
	}
}
