// Package chord parses chord symbols such as "Am7", "F/A" or "Bbmaj7" into pitches.
package chord

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/rapidmidiex/rmxtoys/theory"
)

type Quality int

const (
	Major Quality = iota
	Minor
	Diminished
	HalfDiminished
	Augmented
	Sus2
	Sus4
	Power
)

var qualityTriads = map[Quality][]int{
	Major:          {0, 4, 7},
	Minor:          {0, 3, 7},
	Diminished:     {0, 3, 6},
	HalfDiminished: {0, 3, 6, 10},
	Augmented:      {0, 4, 8},
	Sus2:           {0, 2, 7},
	Sus4:           {0, 5, 7},
	Power:          {0, 7},
}

var qualitySymbols = map[Quality]string{
	Major:          "",
	Minor:          "m",
	Diminished:     "dim",
	HalfDiminished: "m7b5",
	Augmented:      "aug",
	Sus2:           "sus2",
	Sus4:           "sus4",
	Power:          "5",
}

// Extension semitones above the root.
var extensionIntervals = map[string]int{
	"6":    9,
	"7":    10,
	"maj7": 11,
	"b5":   6,
	"9":    14,
	"add9": 14,
	"11":   17,
	"13":   21,
}

type (
	Chord struct {
		Root       theory.PitchClass
		RootName   string
		Quality    Quality
		Extensions []string
		// Bass is set for slash chords, ex: "F/A".
		Bass     *theory.PitchClass
		BassName string
	}

	ParseError struct {
		Symbol string
		Pos    int
		Msg    string
	}
)

func (e *ParseError) Error() string {
	return fmt.Sprintf("chord %q at %d: %s", e.Symbol, e.Pos, e.Msg)
}

// Parse reads a single chord symbol. Error positions count runes.
func Parse(symbol string) (Chord, error) {
	s := strings.TrimSpace(symbol)
	// fail reports byte offset pos of s as a rune offset.
	fail := func(pos int, msg string) error {
		return &ParseError{Symbol: symbol, Pos: utf8.RuneCountInString(s[:pos]), Msg: msg}
	}
	if s == "" {
		return Chord{}, fail(0, "empty chord symbol")
	}

	main, bass := s, ""
	if i := strings.IndexByte(s, '/'); i >= 0 {
		main, bass = s[:i], s[i+1:]
		if bass == "" {
			return Chord{}, fail(i+1, "missing bass note")
		}
	}

	c := Chord{}
	root, n, err := parseRoot(main)
	if err != nil {
		return Chord{}, fail(0, "invalid root note")
	}
	c.Root = root
	c.RootName = main[:n]

	rest := main[n:]
	pos := n
	c.Quality, rest, pos = parseQuality(rest, pos)

	for rest != "" {
		ext, ok := matchExtension(rest)
		if !ok {
			return Chord{}, fail(pos, fmt.Sprintf("unknown extension %q", rest))
		}
		c.Extensions = append(c.Extensions, ext.name)
		rest = rest[ext.width:]
		pos += ext.width
	}
	if c.Quality == Power && len(c.Extensions) > 0 {
		return Chord{}, fail(pos, "power chords take no extensions")
	}

	if bass != "" {
		pc, bn, err := parseRoot(bass)
		if err != nil || bn != len(bass) {
			return Chord{}, fail(len(main)+1, "invalid bass note")
		}
		c.Bass = &pc
		c.BassName = bass
	}
	return c, nil
}

func parseRoot(s string) (theory.PitchClass, int, error) {
	if s == "" || s[0] < 'A' || s[0] > 'G' {
		return 0, 0, theory.ErrBadNote
	}
	n := 1
	pc, _, err := theory.ParsePitchClass(s[:1])
	if err != nil {
		return 0, 0, err
	}
	if len(s) > 1 && (s[1] == '#' || s[1] == 'b') {
		if s[1] == '#' {
			pc = pc.Transpose(1)
		} else {
			pc = pc.Transpose(-1)
		}
		n = 2
	}
	return pc, n, nil
}

func parseQuality(s string, pos int) (Quality, string, int) {
	// "maj7" and "M7" are extensions on a major triad, not a minor quality.
	if strings.HasPrefix(s, "maj") || strings.HasPrefix(s, "M") {
		return Major, s, pos
	}
	prefixes := []struct {
		p string
		q Quality
	}{
		{"min", Minor},
		{"m7b5", HalfDiminished},
		{"ø7", HalfDiminished},
		{"ø", HalfDiminished},
		{"dim", Diminished},
		{"°", Diminished},
		{"aug", Augmented},
		{"+", Augmented},
		{"sus2", Sus2},
		{"sus4", Sus4},
		{"sus", Sus4},
		{"m", Minor},
		{"-", Minor},
	}
	for _, pr := range prefixes {
		if strings.HasPrefix(s, pr.p) {
			return pr.q, s[len(pr.p):], pos + len(pr.p)
		}
	}
	if s == "5" {
		return Power, "", pos + 1
	}
	return Major, s, pos
}

type extMatch struct {
	name  string
	width int
}

func matchExtension(s string) (extMatch, bool) {
	candidates := []struct{ token, name string }{
		{"maj7", "maj7"},
		{"M7", "maj7"},
		{"add9", "add9"},
		{"b5", "b5"},
		{"13", "13"},
		{"11", "11"},
		{"9", "9"},
		{"7", "7"},
		{"6", "6"},
	}
	for _, c := range candidates {
		if strings.HasPrefix(s, c.token) {
			return extMatch{name: c.name, width: len(c.token)}, true
		}
	}
	return extMatch{}, false
}

// Intervals returns the chord tones as ascending, de-duplicated semitones above the root.
func (c Chord) Intervals() []int {
	triad := qualityTriads[c.Quality]
	set := make(map[int]struct{}, len(triad)+len(c.Extensions))
	for _, i := range triad {
		set[i] = struct{}{}
	}
	for _, ext := range c.Extensions {
		iv := extensionIntervals[ext]
		switch ext {
		case "7":
			if c.Quality == Diminished {
				// Fully diminished seventh.
				iv = 9
			}
		case "b5":
			delete(set, 7)
		case "9", "11", "13":
			// Stacked extensions imply the seventh.
			if _, hasMaj7 := set[11]; !hasMaj7 {
				set[10] = struct{}{}
			}
		}
		set[iv] = struct{}{}
	}
	out := make([]int, 0, len(set))
	for i := range set {
		out = append(out, i)
	}
	sort.Ints(out)
	return out
}

// Notes returns MIDI numbers with the root in the given octave (C4=60).
// A slash bass is placed below the root. Notes outside 0..127 are dropped.
func (c Chord) Notes(octave int) ([]int, error) {
	root := 12*(octave+1) + int(c.Root)
	notes := make([]int, 0, 5)
	if c.Bass != nil {
		bass := 12*(octave+1) + int(*c.Bass)
		for bass >= root {
			bass -= 12
		}
		if theory.InRange(bass) {
			notes = append(notes, bass)
		}
	}
	for _, iv := range c.Intervals() {
		if n := root + iv; theory.InRange(n) {
			notes = append(notes, n)
		}
	}
	if len(notes) == 0 {
		return nil, fmt.Errorf("chord %s: no notes in MIDI range at octave %d", c, octave)
	}
	return notes, nil
}

func (c Chord) String() string {
	var b strings.Builder
	b.WriteString(c.RootName)
	b.WriteString(qualitySymbols[c.Quality])
	for _, ext := range c.Extensions {
		b.WriteString(ext)
	}
	if c.Bass != nil {
		b.WriteByte('/')
		b.WriteString(c.BassName)
	}
	return b.String()
}

type Symbol struct {
	Chord Chord
	// Text is the symbol as written, "%" for repeats.
	Text string
	// Span is the rune range of Text in the input.
	Span [2]int
}

// ParseProgression splits s on spaces, commas and bar lines. "%" repeats the previous chord.
func ParseProgression(s string) ([]Symbol, error) {
	var out []Symbol
	runes := []rune(s)
	i := 0
	for i < len(runes) {
		if isSeparator(runes[i]) {
			i++
			continue
		}
		start := i
		for i < len(runes) && !isSeparator(runes[i]) {
			i++
		}
		text := string(runes[start:i])
		if text == "%" {
			if len(out) == 0 {
				return nil, &ParseError{Symbol: text, Pos: start, Msg: "repeat with no previous chord"}
			}
			out = append(out, Symbol{Chord: out[len(out)-1].Chord, Text: text, Span: [2]int{start, i}})
			continue
		}
		c, err := Parse(text)
		if err != nil {
			return nil, fmt.Errorf("progression position %d: %w", start, err)
		}
		out = append(out, Symbol{Chord: c, Text: text, Span: [2]int{start, i}})
	}
	return out, nil
}

func isSeparator(r rune) bool {
	return r == ' ' || r == ',' || r == '|' || r == '\t' || r == '\n'
}
