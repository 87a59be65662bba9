package midi_test

import (
	"bytes"
	"path/filepath"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/stretchr/testify/require"

	"github.com/rapidmidiex/rmxtoys/midi"
	"github.com/rapidmidiex/rmxtoys/schedule"
	"github.com/rapidmidiex/rmxtoys/token"
	"github.com/rapidmidiex/rmxtoys/wsmsg"
)

type call struct {
	at  int
	on  bool
	key int32
}

// recorder notes which sample each message arrived at.
type recorder struct {
	rate     int
	rendered int
	calls    []call
	resets   int
}

func (r *recorder) NoteOn(_, key, _ int32) { r.calls = append(r.calls, call{r.rendered, true, key}) }
func (r *recorder) NoteOff(_, key int32)   { r.calls = append(r.calls, call{r.rendered, false, key}) }
func (r *recorder) Reset()                 { r.resets++ }
func (r *recorder) SampleRate() int        { return r.rate }
func (r *recorder) Render(left, right []float32) {
	r.rendered += len(left)
}

func textSchedule(t *testing.T, input string) *schedule.Schedule {
	t.Helper()
	res, err := token.Text(input)
	require.NoError(t, err)
	s, err := schedule.Build(res.Tokens, schedule.DefaultOptions())
	require.NoError(t, err)
	s.Input = res.Input
	return s
}

func TestRenderSchedule(t *testing.T) {
	t.Run("starts every note on its sample", func(t *testing.T) {
		s := textSchedule(t, "ab c")
		rec := &recorder{rate: 1000}

		ms := midi.RenderSchedule(rec, s)
		require.Equal(t, 1500, ms.Len())
		require.Equal(t, 1500, rec.rendered)
		require.Equal(t, []call{
			{0, true, 60},
			{250, false, 60},
			{250, true, 62},
			{500, false, 62},
			{750, true, 64},
			{1000, false, 64},
		}, rec.calls)
		require.Equal(t, 2, rec.resets)
	})

	t.Run("boundaries put note offs first", func(t *testing.T) {
		s := textSchedule(t, "aa")
		b := midi.Boundaries(s, 1000)
		require.Len(t, b, 4)
		require.Equal(t, midi.Boundary{Sample: 250, On: false, Event: 0}, b[1])
		require.Equal(t, midi.Boundary{Sample: 250, On: true, Event: 1}, b[2])
	})

	t.Run("tone synth makes sound and is reproducible", func(t *testing.T) {
		s := textSchedule(t, "hey")
		a := midi.RenderSchedule(midi.NewToneSynth(8000), s)
		b := midi.RenderSchedule(midi.NewToneSynth(8000), s)
		require.Equal(t, s.Samples(8000), a.Len())
		require.Greater(t, a.Peak(), float32(0.01))

		left1, right1 := make([]float32, a.Len()), make([]float32, a.Len())
		left2, right2 := make([]float32, b.Len()), make([]float32, b.Len())
		a.Read(left1, right1)
		b.Read(left2, right2)
		require.Equal(t, left1, left2)
		require.Equal(t, left1, right1)
	})
}

func TestToneSynth(t *testing.T) {
	synth := midi.NewToneSynth(1000)
	synth.NoteOn(0, 69, 127)
	synth.NoteOn(0, 72, 0)
	require.Equal(t, 1, synth.Voices())

	left, right := make([]float32, 100), make([]float32, 100)
	synth.Render(left, right)
	synth.NoteOff(0, 69)
	synth.Render(left, right)
	// The release has finished.
	require.Equal(t, 0, synth.Voices())

	synth.NoteOn(0, 60, 100)
	synth.Reset()
	require.Equal(t, 0, synth.Voices())
}

func TestFactory(t *testing.T) {
	t.Run("no soundfont falls back to tones", func(t *testing.T) {
		newRenderer, err := midi.NewFactory("", 0)
		require.NoError(t, err)
		a, err := newRenderer()
		require.NoError(t, err)
		b, err := newRenderer()
		require.NoError(t, err)
		require.IsType(t, &midi.ToneSynth{}, a)
		require.Equal(t, midi.DefaultSampleRate, a.SampleRate())
		require.NotSame(t, a, b)
	})

	t.Run("missing soundfont fails early", func(t *testing.T) {
		_, err := midi.NewFactory(filepath.Join(t.TempDir(), "missing.sf2"), 0)
		require.Error(t, err)
	})

	t.Run("garbage soundfont fails", func(t *testing.T) {
		_, err := midi.NewSynth(midi.NewSynthOpts{Reader: bytes.NewReader([]byte("RIFF nope"))})
		require.Error(t, err)
	})
}

func TestMidiStreamer(t *testing.T) {
	ms := midi.RenderMsg(midi.NewToneSynth(1000), wsmsg.MIDIMsg{
		State:    wsmsg.NOTE_ON,
		Number:   70, // Bb4
		Velocity: 127,
	}, 100*time.Millisecond)
	require.Equal(t, 100, ms.Len())
	require.Equal(t, beep.SampleRate(1000), ms.Format().SampleRate)

	buf := make([][2]float64, 64)
	n, ok := ms.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 64, n)
	n, ok = ms.Stream(buf)
	require.True(t, ok)
	require.Equal(t, 36, n)
	_, ok = ms.Stream(buf)
	require.False(t, ok)

	require.NoError(t, ms.Seek(10))
	require.Equal(t, 10, ms.Position())
	require.Error(t, ms.Seek(101))
}

func TestSMF(t *testing.T) {
	s := textSchedule(t, "hi, yo")

	var buf bytes.Buffer
	require.NoError(t, midi.WriteSMF(&buf, s))

	lyrics, err := midi.ReadLyrics(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, []string{"h", "i", ",", "y", "o"}, lyrics)

	notes, err := midi.ReadNotes(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Len(t, notes, 4)
	// 120bpm, eighth notes: 480 ticks each.
	require.Equal(t, midi.Note{Key: uint8(s.Events[0].Note), Velocity: 96, Start: 0, End: 480}, notes[0])
	require.Equal(t, uint32(480), notes[1].Start)
	// "," pauses one step and " " rests another.
	require.Equal(t, uint32(4*480), notes[2].Start)

	_, err = midi.ReadLyrics(bytes.NewReader([]byte("not a midi file")))
	require.Error(t, err)
}
