package toyui

import (
	"context"
	"os"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/faiface/beep"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/rapidmidiex/rmxtoys/drift"
	"github.com/rapidmidiex/rmxtoys/export"
	"github.com/rapidmidiex/rmxtoys/inputui"
	"github.com/rapidmidiex/rmxtoys/jam"
	"github.com/rapidmidiex/rmxtoys/keymap"
	"github.com/rapidmidiex/rmxtoys/midi"
	"github.com/rapidmidiex/rmxtoys/rmxerr"
	"github.com/rapidmidiex/rmxtoys/schedule"
	"github.com/rapidmidiex/rmxtoys/theory"
	"github.com/rapidmidiex/rmxtoys/toys"
	"github.com/rapidmidiex/rmxtoys/wsmsg"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type fakeOutput struct {
	mu     sync.Mutex
	played []beep.Streamer
}

func (o *fakeOutput) Play(s beep.Streamer) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.played = append(o.played, s)
	return nil
}

func (o *fakeOutput) Stop() {}

func (o *fakeOutput) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.played)
}

type fakeSession struct {
	mu   sync.Mutex
	toys []string
	said []string
}

func (p *fakeSession) SendText(body, displayName string) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.said = append(p.said, displayName+": "+body)
	return uuid.New(), nil
}

func (p *fakeSession) Publish(_ context.Context, toy string, _ *schedule.Schedule, _ jam.Clock) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.toys = append(p.toys, toy)
	return nil
}

func newModel(t *testing.T, name string, deps Deps) (Model, *fakeOutput) {
	t.Helper()
	toy, err := toys.Lookup(name)
	require.NoError(t, err)
	out := &fakeOutput{}
	deps.Output = out
	deps.Clock = &fakeClock{now: time.Unix(0, 0)}
	deps.FPS = 10
	deps.NewRenderer = func() (midi.Renderer, error) { return midi.NewToneSynth(1000), nil }
	return New(toy, deps), out
}

// run executes cmd and flattens batches. Commands that do not answer quickly
// (cursor blinks) are dropped.
func run(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	ch := make(chan tea.Msg, 1)
	go func() { ch <- cmd() }()
	var msg tea.Msg
	select {
	case msg = <-ch:
	case <-time.After(time.Second):
		return nil
	}
	if v := reflect.ValueOf(msg); v.IsValid() && v.Kind() == reflect.Slice && v.Type().Elem() == reflect.TypeOf(tea.Cmd(nil)) {
		var msgs []tea.Msg
		for i := 0; i < v.Len(); i++ {
			msgs = append(msgs, run(v.Index(i).Interface().(tea.Cmd))...)
		}
		return msgs
	}
	return []tea.Msg{msg}
}

// drive feeds msg and every message it leads to back into the model.
func drive(m Model, msg tea.Msg) (Model, []tea.Msg) {
	var seen []tea.Msg
	queue := []tea.Msg{msg}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		seen = append(seen, next)
		var cmd tea.Cmd
		m, cmd = m.Update(next)
		for _, out := range run(cmd) {
			switch out.(type) {
			case frameMsg, playDoneMsg, exportedMsg, sharedMsg, inputui.LogMsg, drift.CalcMsg, rmxerr.ErrMsg, LeaveMsg:
				queue = append(queue, out)
			}
		}
	}
	return m, seen
}

func TestPlay(t *testing.T) {
	t.Run("plays to the end and reports drift", func(t *testing.T) {
		m, out := newModel(t, "text-to-tone", Deps{Base: schedule.DefaultOptions()})
		m, _ = drive(m, inputui.SubmitMsg{Input: "ab c"})

		require.False(t, m.playing)
		require.Equal(t, 1, out.count())
		require.Equal(t, 1.0, m.frame.Progress)
		require.Equal(t, []int{0, 2, 4}, m.frame.Trail)
		require.Equal(t, []time.Duration{0, 50 * time.Millisecond, 50 * time.Millisecond}, m.late)
		require.Equal(t, 33*time.Millisecond, m.drift.Avg)

		lines := strings.Join(m.input.Lines(), "\n")
		require.Contains(t, lines, `Played "ab c": 3 notes`)
	})

	t.Run("reports bad input without playing", func(t *testing.T) {
		m, out := newModel(t, "tone-dial", Deps{Base: schedule.DefaultOptions()})
		m, _ = drive(m, inputui.SubmitMsg{Input: "()"})

		require.Nil(t, m.sched)
		require.Equal(t, 0, out.count())
		require.Contains(t, strings.Join(m.input.Lines(), "\n"), "tone-dial")
	})

	t.Run("publishes to the jam while playing", func(t *testing.T) {
		pub := &fakeSession{}
		m, _ := newModel(t, "chords", Deps{Base: schedule.DefaultOptions(), Session: pub})
		m, _ = drive(m, inputui.SubmitMsg{Input: "C G"})
		require.Equal(t, []string{"chords"}, pub.toys)
	})

	t.Run("ignores frames of a replaced playback", func(t *testing.T) {
		m, _ := newModel(t, "text-to-tone", Deps{Base: schedule.DefaultOptions()})
		m.gen = 2
		next, cmd := m.Update(frameMsg{gen: 1, frame: schedule.Frame{Progress: 0.5}})
		require.Nil(t, cmd)
		require.Zero(t, next.frame.Progress)
	})
}

func TestShare(t *testing.T) {
	ctrlS := tea.KeyMsg{Type: tea.KeyCtrlS}

	t.Run("needs a jam", func(t *testing.T) {
		m, _ := newModel(t, "text-to-tone", Deps{Base: schedule.DefaultOptions()})
		m, _ = drive(m, ctrlS)
		require.Contains(t, strings.Join(m.input.Lines(), "\n"), "Not in a jam.")
	})

	t.Run("needs something played", func(t *testing.T) {
		pub := &fakeSession{}
		m, _ := newModel(t, "text-to-tone", Deps{Base: schedule.DefaultOptions(), Session: pub})
		m, _ = drive(m, ctrlS)
		require.Contains(t, strings.Join(m.input.Lines(), "\n"), "Nothing to share yet")
		require.Empty(t, pub.toys)
	})

	t.Run("publishes the last schedule again", func(t *testing.T) {
		pub := &fakeSession{}
		m, out := newModel(t, "text-to-tone", Deps{Base: schedule.DefaultOptions(), Session: pub})
		m, _ = drive(m, inputui.SubmitMsg{Input: "hi"})
		m, _ = drive(m, ctrlS)

		require.Equal(t, []string{"text-to-tone", "text-to-tone"}, pub.toys)
		require.Equal(t, 1, out.count())
		require.Contains(t, strings.Join(m.input.Lines(), "\n"), `Shared "hi".`)
	})
}

func TestSay(t *testing.T) {
	t.Run("sends chat to the jam", func(t *testing.T) {
		pub := &fakeSession{}
		m, out := newModel(t, "text-to-tone", Deps{Base: schedule.DefaultOptions(), Session: pub, DisplayName: "ana"})
		m, _ = drive(m, inputui.SubmitMsg{Input: "/say hello there"})

		require.Equal(t, []string{"ana: hello there"}, pub.said)
		require.Empty(t, pub.toys)
		require.Equal(t, 0, out.count())
		require.Nil(t, m.sched)
	})

	t.Run("needs a jam", func(t *testing.T) {
		m, _ := newModel(t, "text-to-tone", Deps{Base: schedule.DefaultOptions()})
		m, _ = drive(m, inputui.SubmitMsg{Input: "/say hi"})
		require.Contains(t, strings.Join(m.input.Lines(), "\n"), "Not in a jam.")
	})
}

func TestExport(t *testing.T) {
	dir := t.TempDir()
	m, _ := newModel(t, "text-to-tone", Deps{
		Base:   schedule.DefaultOptions(),
		Export: export.Options{Dir: dir, Formats: []export.Format{export.VTT}},
	})

	m, _ = drive(m, tea.KeyMsg{Type: tea.KeyCtrlE})
	require.Contains(t, strings.Join(m.input.Lines(), "\n"), "Nothing to export")

	m, _ = drive(m, inputui.SubmitMsg{Input: "hi"})
	m, _ = drive(m, tea.KeyMsg{Type: tea.KeyCtrlE})
	require.Contains(t, strings.Join(m.input.Lines(), "\n"), "Exported")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.True(t, strings.HasPrefix(entries[0].Name(), "text-to-tone-"))
	require.True(t, strings.HasSuffix(entries[0].Name(), ".vtt"))
}

func TestRemote(t *testing.T) {
	m, out := newModel(t, "text-to-tone", Deps{Base: schedule.DefaultOptions()})

	m, _ = m.Update(RemoteMIDIMsg{Msg: wsmsg.MIDIMsg{State: wsmsg.NOTE_ON, Number: 60, Velocity: 100}})
	require.Equal(t, 1, out.count())
	require.Equal(t, 400, out.played[0].(beep.StreamSeeker).Len())

	m, _ = drive(m, RemoteCaptionMsg{Caption: wsmsg.CaptionMsg{Toy: "chords", Input: "C G", Text: "G"}})
	require.Contains(t, strings.Join(m.input.Lines(), "\n"), `chords played "G" from "C G"`)

	t.Run("without an output", func(t *testing.T) {
		m := New(toys.All()[0], Deps{Base: schedule.DefaultOptions()})
		_, cmd := m.Update(RemoteMIDIMsg{Msg: wsmsg.MIDIMsg{State: wsmsg.NOTE_ON, Number: 60, Velocity: 100}})
		require.Nil(t, cmd)
	})
}

func TestLeave(t *testing.T) {
	m, _ := newModel(t, "text-to-tone", Deps{Base: schedule.DefaultOptions()})
	require.True(t, key.Matches(tea.KeyMsg{Type: tea.KeyEsc}, keymap.DefaultMapping.GoBack))
	_, seen := drive(m, tea.KeyMsg{Type: tea.KeyEsc})
	require.Contains(t, seen, tea.Msg(LeaveMsg{}))
}

func TestView(t *testing.T) {
	require.Equal(t, 12, strings.Count(Circle(nil, schedule.Frame{Caption: -1}), "o"))

	toy, _ := toys.Lookup("text-to-tone")
	s, _, err := toys.Build(toy, "ab c", schedule.DefaultOptions())
	require.NoError(t, err)
	require.Contains(t, Caption(s, s.At(0)), "b c")

	grid := Circle(s, s.At(s.Duration))
	require.Equal(t, 12, strings.Count(grid, "o"))
	require.Contains(t, grid, ".")

	require.InDelta(t, 2.0, PathLength(s.At(s.Duration)), 1e-9)
	require.Zero(t, PathLength(schedule.Frame{}))
}

func TestLegend(t *testing.T) {
	o := schedule.DefaultOptions()
	require.Equal(t, "C D E F G A B", Legend(o))

	k, err := theory.ParseKey("A minor")
	require.NoError(t, err)
	o.Key = k
	require.Equal(t, "A B C D E F G", Legend(o))
}
