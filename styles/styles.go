package styles

import "github.com/charmbracelet/lipgloss"

// Width of the toy view. The detected terminal width only truncates.
const Width = 72

var (
	Color   = lipgloss.AdaptiveColor{Light: "#111222", Dark: "#FAFAFA"}
	Primary = lipgloss.Color("#4636f5")
	Green   = lipgloss.Color("#9dcc3a")
	Red     = lipgloss.Color("#ff0000")
	White   = lipgloss.Color("#ffffff")
	Orange  = lipgloss.Color("#D3A347")
	Dim     = lipgloss.Color("240")

	TextStyle = lipgloss.NewStyle().Foreground(Color)
	BoldStyle = TextStyle.Copy().Bold(true)
	DimStyle  = lipgloss.NewStyle().Foreground(Dim)

	BaseStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(Dim)

	// Captions: the token being played stands out of the input.
	Caption = lipgloss.NewStyle().
		Width(Width).
		Align(lipgloss.Center).
		Padding(1, 0)
	Highlight = lipgloss.NewStyle().
			Foreground(White).
			Background(Primary).
			Bold(true)

	// Circle
	CircleStyle = lipgloss.NewStyle().
			Foreground(Orange).
			Padding(0, 2)
	ActiveNode = lipgloss.NewStyle().Foreground(Green).Bold(true)
	PulseStyle = lipgloss.NewStyle().Foreground(Green)

	// Status Bar.
	StatusNugget = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Padding(0, 1)
	DriftStyle = StatusNugget.Copy().
			Background(lipgloss.Color("#e783f2")).
			Align(lipgloss.Right)

	StatusBarStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#343433", Dark: "#C1C6B2"}).
			Background(lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#353533"})

	StatusStyle = lipgloss.NewStyle().
			Inherit(StatusBarStyle).
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#FF5F87")).
			Padding(0, 1).
			MarginRight(1)

	StatusText = lipgloss.NewStyle().Inherit(StatusBarStyle)

	HelpMenu = lipgloss.NewStyle().Align(lipgloss.Center).PaddingTop(1)
	// Page
	DocStyle = lipgloss.NewStyle().Padding(1, 2, 1, 2)
)

// RenderError returns a formatted error string.
func RenderError(msg string) string {
	label := lipgloss.NewStyle().Background(Red).Foreground(White).Bold(true).Padding(0, 1).Render("Error")
	content := lipgloss.NewStyle().Bold(true).Padding(0, 1).Render(msg)
	return label + content
}

// Pulse draws a meter of width cells filled to level (0..1).
func Pulse(level float64, width int) string {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	filled := int(level*float64(width) + 0.5)
	bar := make([]rune, width)
	for i := range bar {
		bar[i] = '░'
		if i < filled {
			bar[i] = '█'
		}
	}
	return PulseStyle.Render(string(bar))
}
