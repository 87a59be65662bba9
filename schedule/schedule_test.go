package schedule_test

import (
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/rapidmidiex/rmxtoys/circle"
	"github.com/rapidmidiex/rmxtoys/schedule"
	"github.com/rapidmidiex/rmxtoys/theory"
	"github.com/rapidmidiex/rmxtoys/token"
)

const ms = time.Millisecond

func build(t *testing.T, res token.Result, err error, opts schedule.Options) *schedule.Schedule {
	t.Helper()
	require.NoError(t, err)
	s, err := schedule.Build(res.Tokens, opts)
	require.NoError(t, err)
	return s
}

func TestBuild(t *testing.T) {
	opts := schedule.DefaultOptions()

	t.Run("places degrees and rests one step apart", func(t *testing.T) {
		res, err := token.Text("ab c")
		s := build(t, res, err, opts)

		want := []schedule.Event{
			{Token: 0, Start: 0, Duration: 250 * ms, Note: 60, Velocity: 96, Degree: 1, Node: 0, Name: "C"},
			{Token: 1, Start: 250 * ms, Duration: 250 * ms, Note: 62, Velocity: 96, Degree: 2, Node: 2, Name: "D"},
			{Token: 3, Start: 750 * ms, Duration: 250 * ms, Note: 64, Velocity: 96, Degree: 3, Node: 4, Name: "E"},
		}
		if diff := cmp.Diff(want, s.Events); diff != "" {
			t.Errorf("events mismatch (-want +got):\n%s", diff)
		}

		wantCaptions := []schedule.Caption{
			{Token: 0, Text: "a", Span: [2]int{0, 1}, Start: 0, End: 250 * ms},
			{Token: 1, Text: "b", Span: [2]int{1, 2}, Start: 250 * ms, End: 500 * ms},
			{Token: 3, Text: "c", Span: [2]int{3, 4}, Start: 750 * ms, End: 1000 * ms},
		}
		if diff := cmp.Diff(wantCaptions, s.Captions); diff != "" {
			t.Errorf("captions mismatch (-want +got):\n%s", diff)
		}
		require.Equal(t, 1500*ms, s.Duration)
	})

	t.Run("holds extend the previous note", func(t *testing.T) {
		res, err := token.Text("a--b")
		s := build(t, res, err, opts)
		require.Len(t, s.Events, 2)
		require.Equal(t, 750*ms, s.Events[0].Duration)
		require.Equal(t, 750*ms, s.Events[1].Start)
		require.Len(t, s.Captions, 4)
	})

	t.Run("breaks rest two steps", func(t *testing.T) {
		res, err := token.Text("a.b")
		s := build(t, res, err, opts)
		require.Equal(t, 750*ms, s.Events[1].Start)
		require.Equal(t, 250*ms, s.Events[0].Duration)
	})

	t.Run("alterations and minor keys", func(t *testing.T) {
		o := opts
		o.Key = theory.Key{Tonic: 9, Mode: theory.Minor}
		o.BaseOctave = 3
		res, err := token.Text("c#g")
		s := build(t, res, err, o)
		// A3 minor: degree 3 is C4, raised degree 7 is G#4.
		require.Equal(t, []int{60, 68}, s.Notes())
		require.Equal(t, "G#", s.Events[1].Name)
	})

	t.Run("chords share a start and last chord beats", func(t *testing.T) {
		res, err := token.Chords("C G/B")
		s := build(t, res, err, opts)
		require.Equal(t, []int{60, 64, 67, 59, 67, 71, 74}, s.Notes())
		for i, e := range s.Events[3:] {
			require.Equal(t, time.Second, e.Start)
			require.Equal(t, time.Second, e.Duration)
			require.Equal(t, i, e.Voice)
		}
		require.Equal(t, 2500*ms, s.Duration)
	})

	t.Run("numbers land on their circle node", func(t *testing.T) {
		o := opts
		o.Layout = circle.Fifths
		res, err := token.Numbers("07")
		s := build(t, res, err, o)
		require.Equal(t, []int{60, 61}, s.Notes())
		require.Equal(t, 7, s.Events[1].Node)
	})

	t.Run("is deterministic", func(t *testing.T) {
		res, err := token.Text("Hello, world!")
		a := build(t, res, err, opts)
		b := build(t, res, err, opts)
		if diff := cmp.Diff(a, b); diff != "" {
			t.Errorf("schedules differ:\n%s", diff)
		}
		for _, e := range a.Events {
			require.GreaterOrEqual(t, e.Start, time.Duration(0))
			require.LessOrEqual(t, e.End(), a.Duration)
		}
		for i := 1; i < len(a.Captions); i++ {
			require.LessOrEqual(t, a.Captions[i-1].End, a.Captions[i].Start)
		}
	})

	t.Run("rejects bad input", func(t *testing.T) {
		_, err := schedule.Build(nil, opts)
		require.ErrorIs(t, err, schedule.ErrEmpty)

		res, err := token.Text("ab")
		require.NoError(t, err)
		for _, mutate := range []func(*schedule.Options){
			func(o *schedule.Options) { o.BPM = 10 },
			func(o *schedule.Options) { o.BPM = 400 },
			func(o *schedule.Options) { o.StepBeats = 0 },
			func(o *schedule.Options) { o.Velocity = 0 },
			func(o *schedule.Options) { o.PulseDecay = 0 },
		} {
			o := opts
			mutate(&o)
			_, err := schedule.Build(res.Tokens, o)
			require.ErrorIs(t, err, schedule.ErrBadOptions)
		}

		o := opts
		o.BaseOctave = 9
		res, err = token.Text("z")
		require.NoError(t, err)
		_, err = schedule.Build(res.Tokens, o)
		require.ErrorIs(t, err, theory.ErrBadNote)
	})
}

func TestAt(t *testing.T) {
	res, err := token.Text("ab c")
	s := build(t, res, err, schedule.DefaultOptions())

	t.Run("during a note", func(t *testing.T) {
		f := s.At(300 * ms)
		require.Equal(t, []int{1}, f.Active)
		require.Equal(t, 1, f.Caption)
		require.Equal(t, []int{0, 2}, f.Trail)
		require.InDelta(t, math.Exp(-50.0/150.0), f.Pulse, 1e-9)
		require.InDelta(t, 0.2, f.Progress, 1e-9)
	})

	t.Run("during a rest", func(t *testing.T) {
		f := s.At(600 * ms)
		require.Empty(t, f.Active)
		require.Equal(t, -1, f.Caption)
		require.Equal(t, []int{0, 2}, f.Trail)
	})

	t.Run("before and after", func(t *testing.T) {
		f := s.At(-time.Second)
		require.Empty(t, f.Trail)
		require.Zero(t, f.Pulse)
		require.Zero(t, f.Progress)

		f = s.At(time.Hour)
		require.Equal(t, []int{0, 2, 4}, f.Trail)
		require.Equal(t, 1.0, f.Progress)
	})
}

func TestFrames(t *testing.T) {
	res, err := token.Text("ab c")
	s := build(t, res, err, schedule.DefaultOptions())

	frames, err := s.Frames(10)
	require.NoError(t, err)
	require.Len(t, frames, 16)
	require.Equal(t, 100*ms, frames[1].Time)
	require.Equal(t, 1500*ms, frames[15].Time)
	require.Equal(t, 1.0, frames[15].Progress)
	if diff := cmp.Diff(s.At(700*ms), frames[7]); diff != "" {
		t.Errorf("frame 7 mismatch:\n%s", diff)
	}

	_, err = s.Frames(0)
	require.ErrorIs(t, err, schedule.ErrBadOptions)
}

func TestSampleOffset(t *testing.T) {
	require.Equal(t, 11025, schedule.SampleOffset(250*ms, 44100))
	require.Equal(t, 0, schedule.SampleOffset(0, 44100))

	res, err := token.Text("ab c")
	s := build(t, res, err, schedule.DefaultOptions())
	require.Equal(t, 66150, s.Samples(44100))
}

func TestOnsets(t *testing.T) {
	res, err := token.Text("ab c")
	s := build(t, res, err, schedule.DefaultOptions())
	require.Equal(t, []int{0}, s.Onsets(-1, 0))
	require.Equal(t, []int{1, 2}, s.Onsets(0, 750*ms))
	require.Empty(t, s.Onsets(750*ms, time.Second))
}
