package midi

import (
	"sort"

	"github.com/rapidmidiex/rmxtoys/schedule"
)

// Boundary is a note on or off at a sample offset.
type Boundary struct {
	Sample int
	On     bool
	// Event indexes Schedule.Events.
	Event int
}

// Boundaries lists the note on and off sample offsets of the schedule at
// rate. At equal offsets note offs come first so repeated notes retrigger.
func Boundaries(s *schedule.Schedule, rate int) []Boundary {
	out := make([]Boundary, 0, 2*len(s.Events))
	for i, e := range s.Events {
		out = append(out,
			Boundary{Sample: schedule.SampleOffset(e.Start, rate), On: true, Event: i},
			Boundary{Sample: schedule.SampleOffset(e.End(), rate), On: false, Event: i},
		)
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Sample != b.Sample {
			return a.Sample < b.Sample
		}
		if a.On != b.On {
			return !a.On
		}
		return a.Event < b.Event
	})
	return out
}

// RenderSchedule renders the whole schedule offline. The renderer is driven
// in blocks between note boundaries, so every note starts on its exact sample.
// The result is exactly s.Samples(r.SampleRate()) long.
func RenderSchedule(r Renderer, s *schedule.Schedule) *MidiStreamer {
	rate := r.SampleRate()
	ms := newStreamer(s.Samples(rate), rate)
	r.Reset()

	cursor := 0
	render := func(to int) {
		if to > len(ms.left) {
			to = len(ms.left)
		}
		if to > cursor {
			r.Render(ms.left[cursor:to], ms.right[cursor:to])
			cursor = to
		}
	}
	for _, b := range Boundaries(s, rate) {
		render(b.Sample)
		e := s.Events[b.Event]
		if b.On {
			r.NoteOn(0, int32(e.Note), int32(e.Velocity))
		} else {
			r.NoteOff(0, int32(e.Note))
		}
	}
	render(len(ms.left))
	r.Reset()
	return ms
}
