package theory

import (
	"fmt"
	"strings"
)

type Mode int

const (
	Major Mode = iota
	// Minor is the natural minor scale.
	Minor
)

var templates = map[Mode][7]int{
	Major: {0, 2, 4, 5, 7, 9, 11},
	Minor: {0, 2, 3, 5, 7, 8, 10},
}

func (m Mode) String() string {
	if m == Minor {
		return "minor"
	}
	return "major"
}

// Template returns the semitone offsets of the seven scale degrees.
func (m Mode) Template() [7]int {
	return templates[m]
}

type Key struct {
	Tonic PitchClass
	Mode  Mode
}

// Key signatures by tonic pitch class: positive counts are sharps, negative are flats.
// Enharmonic tonics use the spelling with fewer accidentals; the six-accidental
// keys resolve to F# major and Eb minor.
var (
	majorSignatures = [12]int{0, -5, 2, -3, 4, -1, 6, 1, -4, 3, -2, 5}
	minorSignatures = [12]int{-3, 4, -1, -6, 1, -4, 3, -2, 5, 0, -5, 2}
)

func (k Key) String() string {
	name := k.TonicName()
	if k.Mode == Minor {
		return name + "m"
	}
	return name
}

// Signature returns the number of sharps (>0) or flats (<0) in the key signature.
func (k Key) Signature() int {
	if k.Mode == Minor {
		return minorSignatures[k.Tonic.norm()]
	}
	return majorSignatures[k.Tonic.norm()]
}

// PrefersFlats reports whether notes in this key are spelled with flats.
func (k Key) PrefersFlats() bool {
	sig := k.Signature()
	if sig == 0 {
		// C major and A minor spell chromatic notes with sharps.
		return false
	}
	return sig < 0
}

// TonicName spells the tonic according to the key signature.
func (k Key) TonicName() string {
	return k.Tonic.Name(k.PrefersFlats())
}

// Degree returns the MIDI number of scale degree d (1..7) in this key.
// The tonic of baseOctave is 12*(baseOctave+1)+tonic; octaveShift moves whole
// octaves and alter adds a chromatic alteration in semitones.
func (k Key) Degree(d, octaveShift, alter, baseOctave int) (int, error) {
	if d < 1 || d > 7 {
		return 0, fmt.Errorf("%w: %d", ErrBadDegree, d)
	}
	tonic := 12*(baseOctave+1) + k.Tonic.norm()
	midi := tonic + k.Mode.Template()[d-1] + 12*octaveShift + alter
	if !InRange(midi) {
		return 0, fmt.Errorf("%w: degree %d octave %+d is MIDI %d", ErrBadNote, d, octaveShift, midi)
	}
	return midi, nil
}

// ScaleNotes returns the seven MIDI numbers of the scale starting at the tonic of octave.
func (k Key) ScaleNotes(octave int) []int {
	notes := make([]int, 0, 7)
	for d := 1; d <= 7; d++ {
		n, err := k.Degree(d, 0, 0, octave)
		if err != nil {
			continue
		}
		notes = append(notes, n)
	}
	return notes
}

// Spell names scale degree d (1..7) with an optional alteration, following the
// letter sequence of the key, ex: degree 3 of Eb major is "G", degree 7 of F#m is "E".
func (k Key) Spell(d, alter int) string {
	if d < 1 || d > 7 {
		return "?"
	}
	tonicLetter := strings.IndexByte(letters, k.TonicName()[0])
	letter := letters[(tonicLetter+d-1)%7]
	target := k.Tonic.norm() + k.Mode.Template()[d-1] + alter
	diff := ((target-letterOffsets[letter])%12 + 12) % 12
	if diff > 6 {
		diff -= 12
	}
	switch {
	case diff > 0:
		return string(letter) + strings.Repeat("#", diff)
	case diff < 0:
		return string(letter) + strings.Repeat("b", -diff)
	}
	return string(letter)
}

// ParseKey reads keys such as "C", "F#m", "Bb", "Ebmin" or "c minor".
func ParseKey(s string) (Key, error) {
	s = strings.TrimSpace(s)
	pc, n, err := ParsePitchClass(s)
	if err != nil {
		return Key{}, fmt.Errorf("parse key %q: %w", s, err)
	}
	rest := strings.ToLower(strings.TrimSpace(s[n:]))
	switch rest {
	case "", "maj", "major":
		return Key{Tonic: pc, Mode: Major}, nil
	case "m", "min", "minor":
		return Key{Tonic: pc, Mode: Minor}, nil
	}
	return Key{}, fmt.Errorf("parse key %q: unknown mode %q", s, rest)
}
