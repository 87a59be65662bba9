package midi

import (
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/rapidmidiex/rmxtoys/schedule"
)

const TicksPerQuarter = 960

type timedMsg struct {
	tick  uint32
	order int
	msg   []byte
}

// Order of messages sharing a tick.
const (
	orderOff = iota
	orderLyric
	orderOn
)

func ticks(d time.Duration, bpm float64) uint32 {
	return uint32(math.Round(d.Seconds() * bpm / 60 * TicksPerQuarter))
}

// WriteSMF writes the schedule as a single track standard MIDI file with a
// tempo, the input as track name, one lyric per caption and the notes.
func WriteSMF(w io.Writer, s *schedule.Schedule) error {
	bpm := s.Options.BPM
	var msgs []timedMsg
	for _, c := range s.Captions {
		msgs = append(msgs, timedMsg{tick: ticks(c.Start, bpm), order: orderLyric, msg: smf.MetaLyric(c.Text)})
	}
	for _, e := range s.Events {
		key, vel := uint8(e.Note), uint8(e.Velocity)
		msgs = append(msgs,
			timedMsg{tick: ticks(e.Start, bpm), order: orderOn, msg: gomidi.NoteOn(0, key, vel)},
			timedMsg{tick: ticks(e.End(), bpm), order: orderOff, msg: gomidi.NoteOff(0, key)},
		)
	}
	sort.SliceStable(msgs, func(i, j int) bool {
		if msgs[i].tick != msgs[j].tick {
			return msgs[i].tick < msgs[j].tick
		}
		return msgs[i].order < msgs[j].order
	})

	var tr smf.Track
	name := s.Input
	if name == "" {
		name = "rmxtoys"
	}
	tr.Add(0, smf.MetaTrackSequenceName(name))
	tr.Add(0, smf.MetaMeter(4, 4))
	tr.Add(0, smf.MetaTempo(bpm))

	var last uint32
	for _, m := range msgs {
		tr.Add(m.tick-last, m.msg)
		last = m.tick
	}
	end := ticks(s.Duration, bpm)
	if end < last {
		end = last
	}
	tr.Close(end - last)

	file := smf.New()
	file.TimeFormat = smf.MetricTicks(TicksPerQuarter)
	if err := file.Add(tr); err != nil {
		return fmt.Errorf("add track: %w", err)
	}
	if _, err := file.WriteTo(w); err != nil {
		return fmt.Errorf("write smf: %w", err)
	}
	return nil
}

// ReadLyrics returns the lyric meta events of every track, in order.
func ReadLyrics(r io.Reader) ([]string, error) {
	file, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read smf: %w", err)
	}
	var lyrics []string
	for _, track := range file.Tracks {
		for _, ev := range track {
			var lyric string
			if ev.Message.GetMetaLyric(&lyric) {
				lyrics = append(lyrics, lyric)
			}
		}
	}
	return lyrics, nil
}

// Note is a note read back from a MIDI file.
type Note struct {
	Key      uint8
	Velocity uint8
	// Start and End are in ticks.
	Start, End uint32
}

// ReadNotes pairs the note on and off messages of every track.
func ReadNotes(r io.Reader) ([]Note, error) {
	file, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("read smf: %w", err)
	}
	var notes []Note
	for _, track := range file.Tracks {
		open := map[uint8]int{}
		var abs uint32
		for _, ev := range track {
			abs += ev.Delta
			var ch, key, vel uint8
			switch {
			case ev.Message.GetNoteOn(&ch, &key, &vel) && vel > 0:
				open[key] = len(notes)
				notes = append(notes, Note{Key: key, Velocity: vel, Start: abs})
			case ev.Message.GetNoteOff(&ch, &key, &vel):
				if i, ok := open[key]; ok {
					notes[i].End = abs
					delete(open, key)
				}
			}
		}
	}
	return notes, nil
}
