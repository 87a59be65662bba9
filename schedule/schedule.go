// Package schedule turns tokens into timed note events and captions, and
// derives the visual state of any instant from them. The same schedule feeds
// live playback and offline export, so both agree to the sample.
package schedule

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rapidmidiex/rmxtoys/circle"
	"github.com/rapidmidiex/rmxtoys/theory"
	"github.com/rapidmidiex/rmxtoys/token"
)

var (
	ErrEmpty      = errors.New("nothing to schedule")
	ErrBadOptions = errors.New("bad schedule options")
)

const (
	MinBPM = 20
	MaxBPM = 300
)

type Options struct {
	Key theory.Key
	BPM float64
	// StepBeats is the length of one token in beats.
	StepBeats float64
	// BaseOctave holds the tonic that degree 1 (octave shift 0) plays.
	BaseOctave int
	Velocity   int
	ChordBeats float64
	// Tail is silence left after the last token so notes can ring out.
	Tail       time.Duration
	PulseDecay time.Duration
	Layout     circle.Layout
}

func DefaultOptions() Options {
	return Options{
		Key:        theory.Key{Tonic: 0, Mode: theory.Major},
		BPM:        120,
		StepBeats:  0.5,
		BaseOctave: 4,
		Velocity:   96,
		ChordBeats: 2,
		Tail:       500 * time.Millisecond,
		PulseDecay: 150 * time.Millisecond,
		Layout:     circle.Chromatic,
	}
}

func (o Options) Validate() error {
	switch {
	case o.BPM < MinBPM || o.BPM > MaxBPM:
		return fmt.Errorf("%w: bpm %v outside %d..%d", ErrBadOptions, o.BPM, MinBPM, MaxBPM)
	case o.StepBeats <= 0:
		return fmt.Errorf("%w: step beats %v", ErrBadOptions, o.StepBeats)
	case o.ChordBeats <= 0:
		return fmt.Errorf("%w: chord beats %v", ErrBadOptions, o.ChordBeats)
	case o.Velocity < 1 || o.Velocity > 127:
		return fmt.Errorf("%w: velocity %d", ErrBadOptions, o.Velocity)
	case o.Tail < 0:
		return fmt.Errorf("%w: negative tail", ErrBadOptions)
	case o.PulseDecay <= 0:
		return fmt.Errorf("%w: pulse decay %v", ErrBadOptions, o.PulseDecay)
	}
	return nil
}

func (o Options) beats(n float64) time.Duration {
	return time.Duration(math.Round(float64(time.Minute) / o.BPM * n))
}

// Step is the length of one token.
func (o Options) Step() time.Duration {
	return o.beats(o.StepBeats)
}

type (
	Event struct {
		// Token is the index of the token that started the note.
		Token int
		// Voice numbers the notes sharing one token, 0 for single notes.
		Voice    int
		Start    time.Duration
		Duration time.Duration
		Note     int
		Velocity int
		// Degree is the scale degree for degree tokens, 0 otherwise.
		Degree int
		// Node is the circle node showing the note's pitch class.
		Node int
		Name string
	}

	Caption struct {
		Token int
		Text  string
		// Span is the rune range of Text in Schedule.Input.
		Span  [2]int
		Start time.Duration
		End   time.Duration
	}

	Schedule struct {
		Options  Options
		Input    string
		Tokens   []token.Token
		Events   []Event
		Captions []Caption
		Duration time.Duration
	}
)

func (e Event) End() time.Duration {
	return e.Start + e.Duration
}

// Build lays the tokens out on a timeline.
func Build(tokens []token.Token, opts Options) (*Schedule, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, ErrEmpty
	}

	s := &Schedule{
		Options: opts,
		Tokens:  append([]token.Token(nil), tokens...),
	}
	step := opts.Step()
	var (
		cursor time.Duration
		// Events of the most recent sounding token, extended by holds.
		held []int
	)

	for i, t := range tokens {
		start := cursor
		length := step

		switch t.Kind {
		case token.Degree, token.Node, token.ChordSym:
			if t.Kind == token.ChordSym {
				length = opts.beats(opts.ChordBeats)
			}
			notes, err := s.pitches(t)
			if err != nil {
				return nil, fmt.Errorf("token %d %q: %w", i, t.Text, err)
			}
			held = held[:0]
			for v, p := range notes {
				held = append(held, len(s.Events))
				s.Events = append(s.Events, Event{
					Token:    i,
					Voice:    v,
					Start:    start,
					Duration: length,
					Note:     p.note,
					Velocity: opts.Velocity,
					Degree:   p.degree,
					Node:     opts.Layout.NodeOf(theory.PitchClassOf(p.note)),
					Name:     p.name,
				})
			}
		case token.Hold:
			for _, e := range held {
				s.Events[e].Duration += step
			}
		case token.Break:
			length = 2 * step
			held = held[:0]
		default:
			held = held[:0]
		}

		cursor += length
		if strings.TrimSpace(t.Text) != "" {
			s.Captions = append(s.Captions, Caption{Token: i, Text: t.Text, Span: t.Span, Start: start, End: cursor})
		}
	}

	if len(s.Events) == 0 {
		return nil, ErrEmpty
	}
	s.Duration = cursor + opts.Tail
	return s, nil
}

type pitch struct {
	note   int
	degree int
	name   string
}

func (s *Schedule) pitches(t token.Token) ([]pitch, error) {
	o := s.Options
	flats := o.Key.PrefersFlats()
	switch t.Kind {
	case token.Degree:
		n, err := o.Key.Degree(t.Degree, t.Octave, t.Alter, o.BaseOctave)
		if err != nil {
			return nil, err
		}
		return []pitch{{note: n, degree: t.Degree, name: o.Key.Spell(t.Degree, t.Alter)}}, nil
	case token.Node:
		n := 12*(o.BaseOctave+1) + int(o.Key.Tonic) + int(o.Layout.PitchClassOf(t.Node))
		if !theory.InRange(n) {
			return nil, fmt.Errorf("%w: node %d is MIDI %d", theory.ErrBadNote, t.Node, n)
		}
		return []pitch{{note: n, name: theory.PitchClassOf(n).Name(flats)}}, nil
	case token.ChordSym:
		if t.Chord == nil {
			return nil, fmt.Errorf("%w: chord token without chord", ErrBadOptions)
		}
		notes, err := t.Chord.Notes(o.BaseOctave)
		if err != nil {
			return nil, err
		}
		out := make([]pitch, len(notes))
		for i, n := range notes {
			out[i] = pitch{note: n, name: theory.PitchClassOf(n).Name(flats)}
		}
		return out, nil
	}
	return nil, nil
}

// SampleOffset converts a schedule time into a sample index at rate.
func SampleOffset(d time.Duration, rate int) int {
	return int(math.Round(d.Seconds() * float64(rate)))
}

// Samples is the length of the rendered audio at rate.
func (s *Schedule) Samples(rate int) int {
	return SampleOffset(s.Duration, rate)
}

// Notes lists the MIDI numbers of all events, in order.
func (s *Schedule) Notes() []int {
	out := make([]int, len(s.Events))
	for i, e := range s.Events {
		out[i] = e.Note
	}
	return out
}
