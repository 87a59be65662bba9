// Package token turns raw user input into the fixed token alphabet the toys play.
package token

import (
	"errors"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rapidmidiex/rmxtoys/chord"
)

type Kind int

const (
	// Degree is a scale degree (1..7) with octave shift and chromatic alteration.
	Degree Kind = iota
	// Rest is one step of silence.
	Rest
	// Pause is a short rest between groups.
	Pause
	// Break ends a phrase with a longer rest.
	Break
	// Hold extends the previous note.
	Hold
	// Node is a position on the 12-node circle.
	Node
	// ChordSym is a chord symbol.
	ChordSym
)

var kindNames = map[Kind]string{
	Degree:   "degree",
	Rest:     "rest",
	Pause:    "pause",
	Break:    "break",
	Hold:     "hold",
	Node:     "node",
	ChordSym: "chord",
}

func (k Kind) String() string {
	return kindNames[k]
}

// Sounding reports whether tokens of this kind start new notes.
func (k Kind) Sounding() bool {
	return k == Degree || k == Node || k == ChordSym
}

const (
	MaxTokens = 32
	MaxKeys   = 20
	MaxDigits = 30
)

var ErrEmpty = errors.New("input has no playable tokens")

type (
	Token struct {
		Kind Kind
		// Degree is 1..7 for Degree tokens.
		Degree int
		// Octave shifts the degree by whole octaves.
		Octave int
		// Alter is a chromatic alteration in semitones (-1, 0, +1).
		Alter int
		// Node is the circle node (0..11) for Node tokens.
		Node  int
		Chord *chord.Chord
		// DTMF holds the row and column frequencies of a phone key.
		DTMF [2]int
		// Text is the source text shown in captions.
		Text string
		// Span is the rune range of Text in Result.Input.
		Span [2]int
	}

	Result struct {
		// Input is the sanitized input the spans refer to.
		Input     string
		Tokens    []Token
		Truncated bool
	}
)

// Sounding counts the tokens that start notes.
func (r Result) Sounding() int {
	n := 0
	for _, t := range r.Tokens {
		if t.Kind.Sounding() {
			n++
		}
	}
	return n
}

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Clean removes diacritics and collapses whitespace. Runs containing a line
// break become "\n", other runs a single space.
func Clean(s string) string {
	stripped, _, err := transform.String(stripMarks, s)
	if err != nil {
		stripped = s
	}
	var b strings.Builder
	b.Grow(len(stripped))
	inSpace, sawNewline := false, false
	flush := func() {
		if !inSpace {
			return
		}
		if sawNewline {
			b.WriteByte('\n')
		} else {
			b.WriteByte(' ')
		}
		inSpace, sawNewline = false, false
	}
	for _, r := range stripped {
		if unicode.IsSpace(r) {
			inSpace = true
			if r == '\n' {
				sawNewline = true
			}
			continue
		}
		if b.Len() > 0 {
			flush()
		}
		inSpace, sawNewline = false, false
		b.WriteRune(r)
	}
	return b.String()
}

// Sanitize is Clean followed by lower-casing.
func Sanitize(s string) string {
	return strings.ToLower(Clean(s))
}

type builder struct {
	res   Result
	limit int
	count func(Token) bool
	n     int
}

func newBuilder(input string, limit int, count func(Token) bool) *builder {
	return &builder{res: Result{Input: input}, limit: limit, count: count}
}

// add appends t and reports false once the limit is reached.
func (b *builder) add(t Token) bool {
	if b.count(t) {
		if b.n == b.limit {
			b.res.Truncated = true
			return false
		}
		b.n++
	}
	b.res.Tokens = append(b.res.Tokens, t)
	return true
}

func (b *builder) last() *Token {
	if len(b.res.Tokens) == 0 {
		return nil
	}
	return &b.res.Tokens[len(b.res.Tokens)-1]
}

func (b *builder) result() (Result, error) {
	b.res.Tokens = trimSilence(b.res.Tokens)
	if b.res.Sounding() == 0 {
		return b.res, ErrEmpty
	}
	return b.res, nil
}

func isSilence(k Kind) bool {
	return k == Rest || k == Pause || k == Break
}

func trimSilence(toks []Token) []Token {
	for len(toks) > 0 && isSilence(toks[0].Kind) {
		toks = toks[1:]
	}
	for len(toks) > 0 && isSilence(toks[len(toks)-1].Kind) {
		toks = toks[:len(toks)-1]
	}
	return toks
}

func countAll(Token) bool { return true }

func span(i, j int) [2]int { return [2]int{i, j} }
