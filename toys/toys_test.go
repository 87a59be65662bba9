package toys_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rapidmidiex/rmxtoys/circle"
	"github.com/rapidmidiex/rmxtoys/schedule"
	"github.com/rapidmidiex/rmxtoys/theory"
	"github.com/rapidmidiex/rmxtoys/token"
	"github.com/rapidmidiex/rmxtoys/toys"
)

func TestRegistry(t *testing.T) {
	var names []string
	for _, toy := range toys.All() {
		names = append(names, toy.Name())
		require.NotEmpty(t, toy.Describe())
	}
	require.Equal(t, []string{"text-to-tone", "tone-dial", "numbers-circle", "chords", "emotions"}, names)

	toy, err := toys.Lookup("chords")
	require.NoError(t, err)
	require.Equal(t, "chords", toy.Name())

	_, err = toys.Lookup("theremin")
	require.Error(t, err)
}

func TestBuild(t *testing.T) {
	base := schedule.DefaultOptions()

	t.Run("text plays from the third octave", func(t *testing.T) {
		toy, _ := toys.Lookup("text-to-tone")
		s, res, err := toys.Build(toy, "ABC", base)
		require.NoError(t, err)
		require.Equal(t, "abc", res.Input)
		require.Equal(t, "abc", s.Input)
		require.Equal(t, []int{48, 50, 52}, s.Notes())
	})

	t.Run("numbers use the circle of fifths", func(t *testing.T) {
		toy, _ := toys.Lookup("numbers-circle")
		s, _, err := toys.Build(toy, "3.14", base)
		require.NoError(t, err)
		require.Equal(t, circle.Fifths, s.Options.Layout)
		require.Equal(t, []int{3, 1, 4}, []int{s.Events[0].Node, s.Events[1].Node, s.Events[2].Node})
	})

	t.Run("wraps tokenizer errors", func(t *testing.T) {
		toy, _ := toys.Lookup("tone-dial")
		_, _, err := toys.Build(toy, "()", base)
		require.ErrorIs(t, err, token.ErrEmpty)
		require.True(t, strings.HasPrefix(err.Error(), "tone-dial: "))
	})
}

func TestEmotions(t *testing.T) {
	toy, err := toys.Lookup("emotions")
	require.NoError(t, err)

	t.Run("plays motifs in order", func(t *testing.T) {
		res, err := toy.Tokenize("Joy and sad")
		require.NoError(t, err)
		require.Len(t, res.Tokens, 13)
		require.Equal(t, token.Break, res.Tokens[7].Kind)
		require.Equal(t, "joy", res.Tokens[0].Text)
		require.Equal(t, [2]int{0, 3}, res.Tokens[6].Span)
		require.Equal(t, "sad", res.Tokens[8].Text)
		require.Equal(t, [2]int{8, 11}, res.Tokens[12].Span)
	})

	t.Run("first label sets the mood", func(t *testing.T) {
		s, _, err := toys.Build(toy, "sad joy", schedule.DefaultOptions())
		require.NoError(t, err)
		require.Equal(t, theory.Minor, s.Options.Key.Mode)
		require.Equal(t, 66.0, s.Options.BPM)
		require.Equal(t, 70, s.Events[0].Velocity)
		// Degree 5 of C3 minor.
		require.Equal(t, 55, s.Events[0].Note)
	})

	t.Run("joy arpeggiates the major triad", func(t *testing.T) {
		s, _, err := toys.Build(toy, "happy", schedule.DefaultOptions())
		require.NoError(t, err)
		require.Equal(t, []int{60, 64, 67, 72, 67, 64, 60}, s.Notes())
		require.Len(t, s.Captions, 7)
	})

	t.Run("suggests close labels", func(t *testing.T) {
		_, err := toy.Tokenize("hapy")
		var unknown *toys.UnknownEmotionError
		require.True(t, errors.As(err, &unknown))
		require.Equal(t, "hapy", unknown.Label)
		require.Equal(t, []string{"happy"}, unknown.Suggestions)
		require.Contains(t, err.Error(), "did you mean happy")
	})

	t.Run("truncates long lists at a motif boundary", func(t *testing.T) {
		res, err := toy.Tokenize("joy joy joy joy joy")
		require.NoError(t, err)
		require.True(t, res.Truncated)
		require.Len(t, res.Tokens, 31)
		require.Equal(t, token.Degree, res.Tokens[30].Kind)
	})

	t.Run("never plays part of a motif", func(t *testing.T) {
		res, err := toy.Tokenize("sad sad sad sad sad sad")
		require.NoError(t, err)
		require.True(t, res.Truncated)
		require.Len(t, res.Tokens, 29)
		require.Equal(t, token.Break, res.Tokens[23].Kind)
		require.Equal(t, token.Degree, res.Tokens[28].Kind)
	})

	t.Run("skips intensifiers", func(t *testing.T) {
		s, _, err := toys.Build(toy, "I feel very happy", schedule.DefaultOptions())
		require.NoError(t, err)
		require.Equal(t, []int{60, 64, 67, 72, 67, 64, 60}, s.Notes())
	})

	t.Run("resolves synonyms", func(t *testing.T) {
		name, ok := toys.Emotion("Afraid")
		require.True(t, ok)
		require.Equal(t, "fear", name)
	})
}
