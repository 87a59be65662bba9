// Package theory holds the note, key and scale-degree tables shared by every toy.
package theory

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

type (
	Note struct {
		// MIDI note number, based on C4=60
		MIDI int
		// Name of the note, ex: "C", "C#/Db"
		Name string
		// Denotes if note is sharp/flat ie. "black" key.
		IsAccidental bool
	}

	Notes []Note

	// PitchClass is a note without octave, C=0 .. B=11.
	PitchClass int

	Octave int
)

const (
	Cneg1 Octave = iota - 1
	C0
	C1
	C2
	C3
	C4
	C5
	C6
	C7
	C8
)

var (
	ErrBadNote   = errors.New("bad note name")
	ErrBadDegree = errors.New("scale degree out of range")
)

var noteNames = []struct {
	name         string
	isAccidental bool
}{
	{name: "C", isAccidental: false},
	{name: "C#/Db", isAccidental: true},
	{name: "D", isAccidental: false},
	{name: "D#/Eb", isAccidental: true},
	{name: "E", isAccidental: false},
	{name: "F", isAccidental: false},
	{name: "F#/Gb", isAccidental: true},
	{name: "G", isAccidental: false},
	{name: "G#/Ab", isAccidental: true},
	{name: "A", isAccidental: false},
	{name: "A#/Bb", isAccidental: true},
	{name: "B", isAccidental: false},
}

var (
	sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames  = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}

	// Semitone offset of each natural letter from C.
	letterOffsets = map[byte]int{'C': 0, 'D': 2, 'E': 4, 'F': 5, 'G': 7, 'A': 9, 'B': 11}
	letters       = "CDEFGAB"
)

// OctaveNotes lists the twelve notes of the given octave, starting at C.
func OctaveNotes(octave Octave) Notes {
	// MIDI number for C0
	midiC0 := 12
	octaveLen := 12
	notes := make(Notes, 0, octaveLen)

	for i := 0; i < octaveLen; i++ {
		k := noteNames[i]
		notes = append(notes, Note{
			MIDI:         midiC0 + octaveLen*int(octave) + i,
			Name:         k.name,
			IsAccidental: k.isAccidental,
		})
	}
	return notes
}

// ByPitchClass indexes the notes by pitch class.
func (notes Notes) ByPitchClass() map[PitchClass]Note {
	m := make(map[PitchClass]Note, len(notes))
	for _, n := range notes {
		m[PitchClassOf(n.MIDI)] = n
	}
	return m
}

func InRange(midiNum int) bool {
	return midiNum >= 0 && midiNum < 128
}

// PitchClassOf returns the pitch class of a MIDI number.
func PitchClassOf(midiNum int) PitchClass {
	return PitchClass(((midiNum % 12) + 12) % 12)
}

// Name returns the sharp or flat spelling of the pitch class.
func (pc PitchClass) Name(preferFlats bool) string {
	if preferFlats {
		return flatNames[pc.norm()]
	}
	return sharpNames[pc.norm()]
}

// Transpose moves the pitch class by n semitones.
func (pc PitchClass) Transpose(n int) PitchClass {
	return PitchClass(((int(pc)+n)%12 + 12) % 12)
}

func (pc PitchClass) norm() int {
	return int(pc.Transpose(0))
}

// ParsePitchClass reads a letter with optional accidentals, ex: "Eb", "F##".
// It returns the pitch class and the number of bytes consumed.
func ParsePitchClass(s string) (PitchClass, int, error) {
	if s == "" {
		return 0, 0, fmt.Errorf("%w: empty", ErrBadNote)
	}
	base, ok := letterOffsets[upper(s[0])]
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrBadNote, s)
	}
	i := 1
	for i < len(s) && i <= 2 {
		switch s[i] {
		case '#':
			base++
		case 'b':
			base--
		default:
			return PitchClass(0).Transpose(base), i, nil
		}
		i++
	}
	return PitchClass(0).Transpose(base), i, nil
}

// NoteToMIDI converts a note name such as "C4", "Db3" or "Bb-1" into a MIDI number.
// A missing octave means octave 4.
func NoteToMIDI(name string) (int, error) {
	name = strings.TrimSpace(name)
	pc, n, err := ParsePitchClass(name)
	if err != nil {
		return 0, err
	}
	// Accidentals can cross the octave boundary (B#4 is C5, Cb4 is B3).
	letter := letterOffsets[upper(name[0])]
	shift := 0
	if raw := letter + accidentalSum(name[1:n]); raw >= 12 {
		shift = 1
	} else if raw < 0 {
		shift = -1
	}

	octave := 4
	if rest := name[n:]; rest != "" {
		o, err := strconv.Atoi(rest)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrBadNote, name)
		}
		octave = o
	}

	midi := 12*(octave+1+shift) + int(pc)
	if !InRange(midi) {
		return 0, fmt.Errorf("%w: %q out of range", ErrBadNote, name)
	}
	return midi, nil
}

// MIDIToName spells a MIDI number with its octave, ex: 61 -> "C#4" or "Db4".
func MIDIToName(midiNum int, preferFlats bool) string {
	octave := midiNum/12 - 1
	if midiNum < 0 {
		octave = (midiNum-11)/12 - 1
	}
	return PitchClassOf(midiNum).Name(preferFlats) + strconv.Itoa(octave)
}

// Frequency returns the equal-tempered frequency in Hz, A4=440.
func Frequency(midiNum int) float64 {
	return 440 * math.Pow(2, float64(midiNum-69)/12)
}

var intervalNames = [13]string{"P1", "m2", "M2", "m3", "M3", "P4", "TT", "P5", "m6", "M6", "m7", "M7", "P8"}

// IntervalName names a simple interval of 0..12 semitones.
func IntervalName(semitones int) string {
	if semitones < 0 {
		semitones = -semitones
	}
	if semitones > 12 {
		return fmt.Sprintf("P8+%s", intervalNames[semitones%12])
	}
	return intervalNames[semitones]
}

func accidentalSum(s string) int {
	sum := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '#':
			sum++
		case 'b':
			sum--
		}
	}
	return sum
}

func upper(b byte) byte {
	if b >= 'a' && b <= 'z' {
		return b - 'a' + 'A'
	}
	return b
}
