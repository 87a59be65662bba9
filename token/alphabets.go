package token

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/rapidmidiex/rmxtoys/chord"
)

// Text maps letters, digits and punctuation onto scale degrees and rests.
// Letter i (a=0) plays degree i%7+1, i/7 octaves up; "#" and "~" sharpen or
// flatten the next degree.
func Text(s string) (Result, error) {
	input := Sanitize(s)
	b := newBuilder(input, MaxTokens, countAll)
	alter, alterStart := 0, -1

	for i, r := range []rune(input) {
		var t Token
		switch {
		case r >= 'a' && r <= 'z':
			idx := int(r - 'a')
			t = Token{Kind: Degree, Degree: idx%7 + 1, Octave: idx / 7}
		case r >= '1' && r <= '7':
			t = Token{Kind: Degree, Degree: int(r - '0'), Octave: 1}
		case r == '8':
			t = Token{Kind: Degree, Degree: 1, Octave: 2}
		case r == '9':
			t = Token{Kind: Degree, Degree: 2, Octave: 2}
		case r == '0', r == ' ':
			t = Token{Kind: Rest}
		case r == ',', r == ';', r == ':':
			t = Token{Kind: Pause}
		case r == '.', r == '!', r == '?', r == '\n':
			t = Token{Kind: Break}
		case r == '-':
			t = Token{Kind: Hold}
		case r == '#', r == '~':
			alter = 1
			if r == '~' {
				alter = -1
			}
			if alterStart < 0 {
				alterStart = i
			}
			continue
		default:
			continue
		}

		t.Text = string(r)
		t.Span = span(i, i+1)
		if t.Kind == Degree && alterStart >= 0 {
			t.Alter = alter
			t.Text = string([]rune(input)[alterStart : i+1])
			t.Span = span(alterStart, i+1)
		}
		alter, alterStart = 0, -1
		if !b.add(t) {
			break
		}
	}
	return b.result()
}

var (
	keypad = map[rune]rune{
		'a': '2', 'b': '2', 'c': '2',
		'd': '3', 'e': '3', 'f': '3',
		'g': '4', 'h': '4', 'i': '4',
		'j': '5', 'k': '5', 'l': '5',
		'm': '6', 'n': '6', 'o': '6',
		'p': '7', 'q': '7', 'r': '7', 's': '7',
		't': '8', 'u': '8', 'v': '8',
		'w': '9', 'x': '9', 'y': '9', 'z': '9',
	}

	dtmfRows = map[rune]int{
		'1': 697, '2': 697, '3': 697,
		'4': 770, '5': 770, '6': 770,
		'7': 852, '8': 852, '9': 852,
		'*': 941, '0': 941, '#': 941,
	}
	dtmfCols = map[rune]int{
		'1': 1209, '4': 1209, '7': 1209, '*': 1209,
		'2': 1336, '5': 1336, '8': 1336, '0': 1336,
		'3': 1477, '6': 1477, '9': 1477, '#': 1477,
	}

	// Keys 1..9, 0 climb ten scale steps; * and # sit below the tonic.
	phoneDegrees = map[rune][2]int{
		'1': {1, 0}, '2': {2, 0}, '3': {3, 0}, '4': {4, 0}, '5': {5, 0},
		'6': {6, 0}, '7': {7, 0}, '8': {1, 1}, '9': {2, 1}, '0': {3, 1},
		'*': {5, -1}, '#': {1, -1},
	}
)

// Phone maps a phone number onto scale degrees. Vanity letters dial their
// keypad digit, separators become pauses between groups and a leading "+"
// plays the upper tonic.
func Phone(s string) (Result, error) {
	input := Sanitize(s)
	b := newBuilder(input, MaxKeys, func(t Token) bool { return t.Kind == Degree })
	seenKey := false

	for i, r := range []rune(input) {
		key := r
		if d, ok := keypad[r]; ok {
			key = d
		}
		switch {
		case key == '+':
			if seenKey {
				continue
			}
			seenKey = true
			if !b.add(Token{Kind: Degree, Degree: 1, Octave: 1, Text: "+", Span: span(i, i+1)}) {
				return b.result()
			}
		case key == ' ' || key == '-' || key == '(' || key == ')' || key == '.' || key == '/':
			if last := b.last(); last != nil && last.Kind != Pause {
				b.add(Token{Kind: Pause, Text: string(r), Span: span(i, i+1)})
			}
		default:
			deg, ok := phoneDegrees[key]
			if !ok {
				continue
			}
			seenKey = true
			t := Token{
				Kind:   Degree,
				Degree: deg[0],
				Octave: deg[1],
				DTMF:   [2]int{dtmfRows[key], dtmfCols[key]},
				Text:   string(r),
				Span:   span(i, i+1),
			}
			if !b.add(t) {
				return b.result()
			}
		}
	}
	return b.result()
}

// Numbers maps each digit onto the circle node of the same number. The first
// decimal point ends a phrase and a leading minus sign rests one step.
func Numbers(s string) (Result, error) {
	input := Sanitize(s)
	b := newBuilder(input, MaxDigits, func(t Token) bool { return t.Kind == Node })
	seenPoint, seenDigit := false, false

	for i, r := range []rune(input) {
		var t Token
		switch {
		case r >= '0' && r <= '9':
			seenDigit = true
			t = Token{Kind: Node, Node: int(r - '0')}
		case r == '.' && !seenPoint:
			seenPoint = true
			t = Token{Kind: Break}
		case r == '-' && !seenDigit && len(b.res.Tokens) == 0:
			t = Token{Kind: Rest}
		default:
			continue
		}
		t.Text = string(r)
		t.Span = span(i, i+1)
		if !b.add(t) {
			break
		}
	}
	// A leading minus is the only silence kept at the start.
	toks := b.res.Tokens
	if len(toks) > 0 && toks[0].Kind == Rest {
		rest := toks[0]
		b.res.Tokens = toks[1:]
		res, err := b.result()
		if err == nil {
			res.Tokens = append([]Token{rest}, res.Tokens...)
		}
		return res, err
	}
	return b.result()
}

// Chords reads a chord progression, keeping the symbols' case.
func Chords(s string) (Result, error) {
	input := Clean(s)
	syms, err := chord.ParseProgression(input)
	if err != nil {
		return Result{Input: input}, err
	}
	b := newBuilder(input, MaxTokens, countAll)
	for _, sym := range syms {
		c := sym.Chord
		if !b.add(Token{Kind: ChordSym, Chord: &c, Text: sym.Text, Span: sym.Span}) {
			break
		}
	}
	return b.result()
}

// Motif reads a compact degree notation: space separated degrees 1..8 with
// optional "b" or "#" prefix, "-" holds and "." rests. 8 is the upper tonic.
func Motif(s string) ([]Token, error) {
	var out []Token
	for _, f := range strings.Fields(s) {
		switch f {
		case "-":
			out = append(out, Token{Kind: Hold, Text: f})
			continue
		case ".":
			out = append(out, Token{Kind: Rest, Text: f})
			continue
		}
		t := Token{Kind: Degree, Text: f}
		d := f
		switch d[0] {
		case 'b':
			t.Alter, d = -1, d[1:]
		case '#':
			t.Alter, d = 1, d[1:]
		}
		if len(d) != 1 || d[0] < '1' || d[0] > '8' {
			return nil, fmt.Errorf("motif %q: bad degree %q", s, f)
		}
		t.Degree = int(d[0] - '0')
		if t.Degree == 8 {
			t.Degree, t.Octave = 1, 1
		}
		out = append(out, t)
	}
	return out, nil
}

type Word struct {
	Text string
	Span [2]int
}

// Words splits sanitized input on anything that is not a letter.
func Words(s string) (string, []Word) {
	input := Sanitize(s)
	var words []Word
	start := -1
	rs := []rune(input)
	for i := 0; i <= len(rs); i++ {
		letter := i < len(rs) && unicode.IsLetter(rs[i])
		switch {
		case letter && start < 0:
			start = i
		case !letter && start >= 0:
			words = append(words, Word{Text: string(rs[start:i]), Span: span(start, i)})
			start = -1
		}
	}
	return input, words
}
