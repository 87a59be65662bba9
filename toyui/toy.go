// Package toyui plays one toy: an input box, the circle with its trail, the
// caption of the token sounding and a status bar.
package toyui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/hako/durafmt"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/term"

	"github.com/rapidmidiex/rmxtoys/circle"
	"github.com/rapidmidiex/rmxtoys/drift"
	"github.com/rapidmidiex/rmxtoys/export"
	"github.com/rapidmidiex/rmxtoys/inputui"
	"github.com/rapidmidiex/rmxtoys/jam"
	"github.com/rapidmidiex/rmxtoys/keymap"
	"github.com/rapidmidiex/rmxtoys/midi"
	"github.com/rapidmidiex/rmxtoys/player"
	"github.com/rapidmidiex/rmxtoys/rmxerr"
	"github.com/rapidmidiex/rmxtoys/schedule"
	"github.com/rapidmidiex/rmxtoys/styles"
	"github.com/rapidmidiex/rmxtoys/theory"
	"github.com/rapidmidiex/rmxtoys/token"
	"github.com/rapidmidiex/rmxtoys/toys"
	"github.com/rapidmidiex/rmxtoys/wsmsg"
)

const (
	gridW = 33
	gridH = 15
	// Inputs starting with sayPrefix are sent to the jam chat instead of played.
	sayPrefix = "/say "
	// Length of audio rendered for each note received from a jam.
	remoteClip = 400 * time.Millisecond
)

var docStyle = styles.DocStyle

type (
	// Session is the jam a toy shares to. *jam.Session satisfies it.
	Session interface {
		Publish(ctx context.Context, toy string, s *schedule.Schedule, clock jam.Clock) error
		SendText(body, displayName string) (uuid.UUID, error)
	}

	Deps struct {
		Base schedule.Options
		FPS  int
		// NewRenderer is called once per playback, export and remote stream,
		// as renderers are not safe for concurrent use.
		NewRenderer midi.Factory
		Output      player.Output
		Clock       player.Clock
		// Export.Base is filled in per export.
		Export export.Options
		// Session is nil unless a jam was selected.
		Session Session
		// DisplayName signs chat sent with /say.
		DisplayName string
		Logger      *zap.Logger
	}

	// LeaveMsg returns to the menu.
	LeaveMsg struct{}

	// RemoteMIDIMsg is a note played by someone else in the jam.
	RemoteMIDIMsg struct {
		Msg wsmsg.MIDIMsg
	}

	// RemoteCaptionMsg is a caption shared by someone else in the jam.
	RemoteCaptionMsg struct {
		Caption wsmsg.CaptionMsg
	}

	frameMsg struct {
		gen    int
		frame  schedule.Frame
		frames chan schedule.Frame
	}

	playDoneMsg struct {
		gen     int
		late    []time.Duration
		err     error
		stopped bool
	}

	sharedMsg struct {
		input string
		err   error
	}

	exportedMsg struct {
		report export.Report
		err    error
	}

	Model struct {
		toy   toys.Toy
		deps  Deps
		input inputui.Model

		sched   *schedule.Schedule
		res     token.Result
		frame   schedule.Frame
		playing bool
		cancel  context.CancelFunc
		// gen numbers playbacks so messages of a replaced one are ignored.
		gen int

		// Onset lateness over every playback so far.
		late  []time.Duration
		drift drift.CalcMsg

		remote   midi.Renderer
		progress progress.Model
		help     help.Model
		err      error
	}
)

func New(toy toys.Toy, deps Deps) Model {
	if deps.Clock == nil {
		deps.Clock = player.SystemClock{}
	}
	if deps.FPS <= 0 {
		deps.FPS = player.DefaultFPS
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Output == nil {
		deps.Output = player.NopOutput{}
	}
	if deps.DisplayName == "" {
		deps.DisplayName = "guest"
	}
	if deps.NewRenderer == nil {
		deps.NewRenderer = func() (midi.Renderer, error) { return midi.NewToneSynth(midi.DefaultSampleRate), nil }
	}
	return Model{
		toy:      toy,
		deps:     deps,
		input:    inputui.New(placeholder(toy.Name()), 280),
		frame:    schedule.Frame{Caption: -1},
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(styles.Width-4)),
		help:     help.New(),
	}
}

func placeholder(toy string) string {
	switch toy {
	case "tone-dial":
		return "Dial a phone number..."
	case "numbers-circle":
		return "Type some digits, like 3.14159..."
	case "chords":
		return "Type chords, like C Am F G7..."
	case "emotions":
		return "Name some feelings, like joy then calm..."
	}
	return "Type something to hear it..."
}

func (m Model) Init() tea.Cmd {
	return m.input.Init()
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keymap.DefaultMapping.GoBack):
			m.stop()
			return m, leave
		case key.Matches(msg, keymap.DefaultMapping.Stop):
			m.stop()
			return m, nil
		case key.Matches(msg, keymap.DefaultMapping.Export):
			if m.sched == nil {
				return m, logLine("Nothing to export yet, play something first.")
			}
			return m, m.export()
		case key.Matches(msg, keymap.DefaultMapping.Share):
			switch {
			case m.deps.Session == nil:
				return m, logLine("Not in a jam. Pick one from the menu to share.")
			case m.sched == nil:
				return m, logLine("Nothing to share yet, play something first.")
			}
			return m, m.share()
		case key.Matches(msg, keymap.DefaultMapping.CycleFocus):
			m.input, cmd = m.input.Update(inputui.ToggleFocusMsg{})
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width

	case inputui.SubmitMsg:
		if body, ok := strings.CutPrefix(msg.Input, sayPrefix); ok {
			return m, m.say(body)
		}
		return m.play(msg.Input)

	case frameMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.frame = msg.frame
		return m, listen(msg.gen, msg.frames)

	case playDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		m.playing = false
		m.cancel = nil
		if m.sched != nil && !msg.stopped {
			m.frame = m.sched.At(m.sched.Duration)
		}
		if msg.err != nil {
			m.err = msg.err
			return m, rmxerr.Cmd(msg.err)
		}
		m.late = append(m.late, msg.late...)
		stats := drift.Summarize(msg.late)
		m.deps.Logger.Info("played",
			zap.String("toy", m.toy.Name()),
			zap.String("input", m.res.Input),
			zap.Stringer("drift", stats),
		)
		if len(msg.late) > 0 {
			cmds = append(cmds, drift.CalcStats(msg.late[len(msg.late)-1], m.late))
		}
		if msg.stopped {
			cmds = append(cmds, logLine("Stopped."))
		} else {
			cmds = append(cmds, logLine(fmt.Sprintf("Played %q: %s.", m.res.Input, stats)))
		}
		return m, tea.Batch(cmds...)

	case drift.CalcMsg:
		m.drift = msg
		return m, nil

	case exportedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, rmxerr.Cmd(msg.err)
		}
		m.deps.Logger.Info("exported", zap.Stringer("report", msg.report))
		return m, logLine("Exported " + msg.report.String())

	case sharedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, rmxerr.Cmd(msg.err)
		}
		return m, logLine(fmt.Sprintf("Shared %q.", msg.input))

	case RemoteMIDIMsg:
		if m.remote == nil {
			r, err := m.deps.NewRenderer()
			if err != nil {
				return m, rmxerr.Cmd(err)
			}
			m.remote = r
		}
		if err := m.deps.Output.Play(midi.RenderMsg(m.remote, msg.Msg, remoteClip)); err != nil {
			return m, rmxerr.Cmd(err)
		}
		return m, nil

	case RemoteCaptionMsg:
		c := msg.Caption
		return m, logLine(fmt.Sprintf("%s played %q from %q", c.Toy, c.Text, c.Input))

	case rmxerr.ErrMsg:
		m.err = msg
	}

	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) play(input string) (Model, tea.Cmd) {
	s, res, err := toys.Build(m.toy, input, m.deps.Base)
	if err != nil {
		m.err = err
		return m, logLine(styles.RenderError(err.Error()))
	}
	m.stop()
	m.err = nil
	m.sched, m.res = s, res
	m.frame = s.At(0)
	m.playing = true
	m.gen++

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	frames := make(chan schedule.Frame, 1)

	cmds := []tea.Cmd{m.run(ctx, s, frames), listen(m.gen, frames)}
	if res.Truncated {
		cmds = append(cmds, logLine(fmt.Sprintf("Input cut to %q.", res.Input)))
	}
	return m, tea.Batch(cmds...)
}

// run plays s and, when sharing, publishes it to the jam on the same clock.
// It closes frames when done.
func (m Model) run(ctx context.Context, s *schedule.Schedule, frames chan schedule.Frame) tea.Cmd {
	deps, name, gen := m.deps, m.toy.Name(), m.gen
	return func() tea.Msg {
		defer close(frames)
		r, err := deps.NewRenderer()
		if err != nil {
			return playDoneMsg{gen: gen, err: err}
		}
		p := player.New(player.Opts{
			Renderer: r,
			Output:   deps.Output,
			Clock:    deps.Clock,
			FPS:      deps.FPS,
			Logger:   deps.Logger,
		})

		g, gctx := errgroup.WithContext(ctx)
		var late []time.Duration
		g.Go(func() error {
			var err error
			late, err = p.Play(gctx, s, func(f schedule.Frame) {
				// Drop frames the UI has not caught up with.
				select {
				case <-frames:
				default:
				}
				frames <- f
			})
			return err
		})
		if deps.Session != nil {
			g.Go(func() error {
				return deps.Session.Publish(gctx, name, s, deps.Clock)
			})
		}
		err = g.Wait()
		if errors.Is(err, context.Canceled) && ctx.Err() != nil {
			return playDoneMsg{gen: gen, late: late, stopped: true}
		}
		return playDoneMsg{gen: gen, late: late, err: err}
	}
}

func listen(gen int, frames chan schedule.Frame) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-frames
		if !ok {
			return nil
		}
		return frameMsg{gen: gen, frame: f, frames: frames}
	}
}

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

func (m Model) export() tea.Cmd {
	s, deps, name := m.sched, m.deps, m.toy.Name()
	return func() tea.Msg {
		r, err := deps.NewRenderer()
		if err != nil {
			return exportedMsg{err: err}
		}
		o := deps.Export
		o.Base = fmt.Sprintf("%s-%s", name, time.Now().Format("20060102-150405"))
		if o.FPS == 0 {
			o.FPS = deps.FPS
		}
		if o.Logger == nil {
			o.Logger = deps.Logger
		}
		report, err := export.Export(context.Background(), s, r, o)
		return exportedMsg{report: report, err: err}
	}
}

// share publishes the last schedule to the jam again without playing it.
func (m Model) share() tea.Cmd {
	s, deps, name := m.sched, m.deps, m.toy.Name()
	return func() tea.Msg {
		err := deps.Session.Publish(context.Background(), name, s, deps.Clock)
		return sharedMsg{input: s.Input, err: err}
	}
}

// say sends body to the jam chat. The server echoes it back to every member.
func (m Model) say(body string) tea.Cmd {
	if m.deps.Session == nil {
		return logLine("Not in a jam. Pick one from the menu to chat.")
	}
	sess, name := m.deps.Session, m.deps.DisplayName
	return func() tea.Msg {
		if _, err := sess.SendText(body, name); err != nil {
			return rmxerr.ErrMsg{Err: err}
		}
		return nil
	}
}

func leave() tea.Msg { return LeaveMsg{} }

func logLine(line string) tea.Cmd {
	return func() tea.Msg { return inputui.LogMsg{Line: line} }
}

func (m Model) View() string {
	physicalWidth, _, _ := term.GetSize(int(os.Stdout.Fd()))
	doc := strings.Builder{}

	doc.WriteString(styles.BoldStyle.Render(m.toy.Name()) + "  " + styles.DimStyle.Render(m.toy.Describe()) + "\n\n")
	doc.WriteString(m.input.View() + "\n")

	grid := lipgloss.JoinHorizontal(lipgloss.Center,
		styles.CircleStyle.Render(Circle(m.sched, m.frame)),
		lipgloss.JoinVertical(lipgloss.Left,
			m.noteView(),
			"",
			styles.Pulse(m.frame.Pulse, 20),
			"",
			styles.DimStyle.Render(Legend(m.options())),
			styles.DimStyle.Render(fmt.Sprintf("path %.2f", PathLength(m.frame))),
		),
	)
	doc.WriteString(grid + "\n")

	if m.sched != nil {
		doc.WriteString(styles.Caption.Render(Caption(m.sched, m.frame)) + "\n")
		doc.WriteString(m.progress.ViewAs(m.frame.Progress) + "\n")
	}

	doc.WriteString("\n" + m.statusView() + "\n")
	doc.WriteString(styles.HelpMenu.Render(m.help.View(keymap.DefaultMapping)))

	style := docStyle
	if physicalWidth > 0 {
		style = style.MaxWidth(physicalWidth)
	}
	return style.Render(doc.String())
}

func (m Model) options() schedule.Options {
	if m.sched != nil {
		return m.sched.Options
	}
	return m.deps.Base
}

// Legend names the seven scale degrees of the key.
func Legend(o schedule.Options) string {
	names := theory.OctaveNotes(theory.Octave(o.BaseOctave)).ByPitchClass()
	scale := o.Key.ScaleNotes(o.BaseOctave)
	out := make([]string, len(scale))
	for i, n := range scale {
		out[i] = names[theory.PitchClassOf(n)].Name
	}
	return strings.Join(out, " ")
}

// PathLength is how far the trail has travelled, in circle radii.
func PathLength(f schedule.Frame) float64 {
	return circle.Length(circle.Trail(f.Trail, circle.Point{}, 1))
}

func (m Model) noteView() string {
	if m.sched == nil || len(m.frame.Active) == 0 {
		return styles.DimStyle.Render("silence")
	}
	names := make([]string, 0, len(m.frame.Active))
	for _, i := range m.frame.Active {
		names = append(names, m.sched.Events[i].Name)
	}
	return styles.ActiveNode.Render(strings.Join(names, " "))
}

func (m Model) statusView() string {
	state := "ready"
	if m.playing {
		state = "playing"
	}
	status := styles.StatusStyle.Render(state)

	var info string
	if m.sched != nil {
		info = fmt.Sprintf("%s  %s  %.0f bpm",
			durafmt.Parse(m.sched.Duration.Round(time.Millisecond)).LimitFirstN(2).String(),
			m.sched.Options.Key, m.sched.Options.BPM)
	}
	driftText := "drift -"
	if len(m.late) > 0 {
		driftText = fmt.Sprintf("drift avg %v", m.drift.Avg)
	}
	driftView := styles.DriftStyle.Render(driftText)

	infoView := styles.StatusText.Copy().
		Width(styles.Width - lipgloss.Width(status) - lipgloss.Width(driftView)).
		Render(info)
	return lipgloss.JoinHorizontal(lipgloss.Top, status, infoView, driftView)
}

// Circle draws the circle with the trail so far and the node sounding.
func Circle(s *schedule.Schedule, f schedule.Frame) string {
	g := circle.NewGrid(gridW, gridH)
	active := -1
	if s != nil {
		for _, i := range f.Active {
			if e := s.Events[i]; e.Voice == 0 {
				active = e.Node
				break
			}
		}
	}
	g.Draw(f.Trail, active)
	return g.String()
}

// Caption shows the input with the token being played highlighted.
func Caption(s *schedule.Schedule, f schedule.Frame) string {
	runes := []rune(strings.ReplaceAll(s.Input, "\n", " "))
	if f.Caption < 0 || f.Caption >= len(s.Captions) {
		return string(runes)
	}
	span := s.Captions[f.Caption].Span
	lo, hi := clamp(span[0], len(runes)), clamp(span[1], len(runes))
	return string(runes[:lo]) + styles.Highlight.Render(string(runes[lo:hi])) + string(runes[hi:])
}

func clamp(n, max int) int {
	if n < 0 {
		return 0
	}
	if n > max {
		return max
	}
	return n
}
