// Package toys binds each input alphabet to its schedule options.
package toys

import (
	"fmt"

	"github.com/rapidmidiex/rmxtoys/circle"
	"github.com/rapidmidiex/rmxtoys/schedule"
	"github.com/rapidmidiex/rmxtoys/token"
)

type Toy interface {
	Name() string
	Describe() string
	// Tokenize maps raw input onto tokens.
	Tokenize(input string) (token.Result, error)
	// Options adjusts the base options for a tokenized input.
	Options(res token.Result, base schedule.Options) schedule.Options
}

var registry = []Toy{
	textToTone{},
	toneDial{},
	numbersCircle{},
	chords{},
	emotions{},
}

// All lists the toys in menu order.
func All() []Toy {
	return append([]Toy(nil), registry...)
}

// Lookup finds a toy by name.
func Lookup(name string) (Toy, error) {
	for _, t := range registry {
		if t.Name() == name {
			return t, nil
		}
	}
	return nil, fmt.Errorf("unknown toy %q", name)
}

// Build tokenizes the input and lays it out on a timeline.
func Build(toy Toy, input string, base schedule.Options) (*schedule.Schedule, token.Result, error) {
	res, err := toy.Tokenize(input)
	if err != nil {
		return nil, res, fmt.Errorf("%s: %w", toy.Name(), err)
	}
	s, err := schedule.Build(res.Tokens, toy.Options(res, base))
	if err != nil {
		return nil, res, fmt.Errorf("%s: %w", toy.Name(), err)
	}
	s.Input = res.Input
	return s, res, nil
}

type textToTone struct{}

func (textToTone) Name() string { return "text-to-tone" }

func (textToTone) Describe() string {
	return "Letters climb the scale, punctuation rests."
}

func (textToTone) Tokenize(input string) (token.Result, error) { return token.Text(input) }

func (textToTone) Options(_ token.Result, base schedule.Options) schedule.Options {
	// Letters reach up to three octaves above the tonic.
	base.BaseOctave = 3
	return base
}

type toneDial struct{}

func (toneDial) Name() string { return "tone-dial" }

func (toneDial) Describe() string {
	return "Dial a phone number, every key is a scale step."
}

func (toneDial) Tokenize(input string) (token.Result, error) { return token.Phone(input) }

func (toneDial) Options(_ token.Result, base schedule.Options) schedule.Options {
	return base
}

type numbersCircle struct{}

func (numbersCircle) Name() string { return "numbers-circle" }

func (numbersCircle) Describe() string {
	return "Digits walk the circle of fifths."
}

func (numbersCircle) Tokenize(input string) (token.Result, error) { return token.Numbers(input) }

func (numbersCircle) Options(_ token.Result, base schedule.Options) schedule.Options {
	base.Layout = circle.Fifths
	return base
}

type chords struct{}

func (chords) Name() string { return "chords" }

func (chords) Describe() string {
	return "Play a progression of chord symbols."
}

func (chords) Tokenize(input string) (token.Result, error) { return token.Chords(input) }

func (chords) Options(_ token.Result, base schedule.Options) schedule.Options {
	base.Layout = circle.Fifths
	return base
}
