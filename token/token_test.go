package token_test

import (
	"strings"
	"testing"

	"github.com/rapidmidiex/rmxtoys/token"
	"github.com/stretchr/testify/require"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, 0, len(toks))
	for _, t := range toks {
		out = append(out, t.Kind)
	}
	return out
}

func TestSanitize(t *testing.T) {
	require.Equal(t, "creme brulee", token.Sanitize("  Crème   Brûlée \t"))
	require.Equal(t, "one\ntwo", token.Sanitize("one \r\n  two"))
	require.Equal(t, "", token.Sanitize(" \n "))
	require.Equal(t, "Dm7 G7", token.Clean(" Dm7   G7 "))
}

func TestText(t *testing.T) {
	t.Run("maps letters onto degrees and octaves", func(t *testing.T) {
		res, err := token.Text("aGhz")
		require.NoError(t, err)
		require.Equal(t, "aghz", res.Input)

		got := res.Tokens
		require.Len(t, got, 4)
		require.Equal(t, [2]int{1, 0}, [2]int{got[0].Degree, got[0].Octave})
		require.Equal(t, [2]int{7, 0}, [2]int{got[1].Degree, got[1].Octave})
		require.Equal(t, [2]int{1, 1}, [2]int{got[2].Degree, got[2].Octave})
		require.Equal(t, [2]int{5, 3}, [2]int{got[3].Degree, got[3].Octave})
	})

	t.Run("maps digits and punctuation", func(t *testing.T) {
		res, err := token.Text("1 8,9. 0-")
		require.NoError(t, err)
		require.Equal(t, []token.Kind{
			token.Degree, token.Rest, token.Degree, token.Pause, token.Degree,
			token.Break, token.Rest, token.Rest, token.Hold,
		}, kinds(res.Tokens))
		require.Equal(t, 1, res.Tokens[0].Octave)
		require.Equal(t, [2]int{1, 2}, [2]int{res.Tokens[2].Degree, res.Tokens[2].Octave})
		require.Equal(t, [2]int{2, 2}, [2]int{res.Tokens[4].Degree, res.Tokens[4].Octave})
	})

	t.Run("folds alterations into the next degree", func(t *testing.T) {
		res, err := token.Text("#c~#d# e")
		require.NoError(t, err)
		require.Equal(t, []token.Kind{token.Degree, token.Degree, token.Rest, token.Degree}, kinds(res.Tokens))

		require.Equal(t, 1, res.Tokens[0].Alter)
		require.Equal(t, "#c", res.Tokens[0].Text)
		require.Equal(t, [2]int{0, 2}, res.Tokens[0].Span)

		// The last of several alterations wins; the caption keeps all marks.
		require.Equal(t, 1, res.Tokens[1].Alter)
		require.Equal(t, "~#d", res.Tokens[1].Text)
		require.Equal(t, [2]int{2, 5}, res.Tokens[1].Span)

		// An alteration followed by a rest is dropped.
		require.Equal(t, 0, res.Tokens[3].Alter)
	})

	t.Run("trims leading and trailing silence", func(t *testing.T) {
		res, err := token.Text("...hi!!")
		require.NoError(t, err)
		require.Equal(t, []token.Kind{token.Degree, token.Degree}, kinds(res.Tokens))
		require.Equal(t, [2]int{3, 4}, res.Tokens[0].Span)
	})

	t.Run("truncates long input", func(t *testing.T) {
		res, err := token.Text(strings.Repeat("ab", 40))
		require.NoError(t, err)
		require.True(t, res.Truncated)
		require.Len(t, res.Tokens, token.MaxTokens)
	})

	t.Run("rejects input with nothing to play", func(t *testing.T) {
		_, err := token.Text("  ...  $$$ ")
		require.ErrorIs(t, err, token.ErrEmpty)
	})
}

func TestPhone(t *testing.T) {
	t.Run("dials digits, letters and separators", func(t *testing.T) {
		res, err := token.Phone("(555) 12-CAB")
		require.NoError(t, err)
		require.Equal(t, []token.Kind{
			token.Degree, token.Degree, token.Degree, token.Pause,
			token.Degree, token.Degree, token.Pause,
			token.Degree, token.Degree, token.Degree,
		}, kinds(res.Tokens))

		five := res.Tokens[0]
		require.Equal(t, 5, five.Degree)
		require.Equal(t, [2]int{770, 1336}, five.DTMF)

		c := res.Tokens[7]
		require.Equal(t, "c", c.Text)
		require.Equal(t, 2, c.Degree)
		require.Equal(t, [2]int{697, 1336}, c.DTMF)
	})

	t.Run("climbs ten scale steps", func(t *testing.T) {
		res, err := token.Phone("7890*#")
		require.NoError(t, err)
		want := [][2]int{{7, 0}, {1, 1}, {2, 1}, {3, 1}, {5, -1}, {1, -1}}
		for i, w := range want {
			require.Equal(t, w, [2]int{res.Tokens[i].Degree, res.Tokens[i].Octave}, i)
		}
		require.Equal(t, [2]int{941, 1477}, res.Tokens[5].DTMF)
	})

	t.Run("plays a leading plus as the upper tonic", func(t *testing.T) {
		res, err := token.Phone("+1 2+3")
		require.NoError(t, err)
		require.Equal(t, "+", res.Tokens[0].Text)
		require.Equal(t, [2]int{1, 1}, [2]int{res.Tokens[0].Degree, res.Tokens[0].Octave})
		require.Equal(t, 4, res.Sounding())
	})

	t.Run("limits the number of keys", func(t *testing.T) {
		res, err := token.Phone(strings.Repeat("1-", 30))
		require.NoError(t, err)
		require.True(t, res.Truncated)
		require.Equal(t, token.MaxKeys, res.Sounding())
		require.Equal(t, token.Degree, res.Tokens[len(res.Tokens)-1].Kind)
	})
}

func TestNumbers(t *testing.T) {
	res, err := token.Numbers("-3.14.15x9")
	require.NoError(t, err)
	require.Equal(t, []token.Kind{
		token.Rest, token.Node, token.Break, token.Node, token.Node, token.Node, token.Node, token.Node,
	}, kinds(res.Tokens))

	nodes := []int{}
	for _, tk := range res.Tokens {
		if tk.Kind == token.Node {
			nodes = append(nodes, tk.Node)
		}
	}
	require.Equal(t, []int{3, 1, 4, 1, 5, 9}, nodes)

	_, err = token.Numbers("-")
	require.ErrorIs(t, err, token.ErrEmpty)

	res, err = token.Numbers(strings.Repeat("7", 50))
	require.NoError(t, err)
	require.True(t, res.Truncated)
	require.Len(t, res.Tokens, token.MaxDigits)
}

func TestChords(t *testing.T) {
	res, err := token.Chords("  Dm7  G7 | Cmaj7 ")
	require.NoError(t, err)
	require.Equal(t, "Dm7 G7 | Cmaj7", res.Input)
	require.Len(t, res.Tokens, 3)
	require.Equal(t, "G7", res.Tokens[1].Chord.String())
	require.Equal(t, [2]int{4, 6}, res.Tokens[1].Span)

	_, err = token.Chords("Dm7 Q")
	require.Error(t, err)
}

func TestMotif(t *testing.T) {
	got, err := token.Motif("1 b2 #4 - 8 .")
	require.NoError(t, err)
	require.Equal(t, []token.Kind{token.Degree, token.Degree, token.Degree, token.Hold, token.Degree, token.Rest}, kinds(got))
	require.Equal(t, -1, got[1].Alter)
	require.Equal(t, 1, got[2].Alter)
	require.Equal(t, [2]int{1, 1}, [2]int{got[4].Degree, got[4].Octave})

	_, err = token.Motif("1 9")
	require.Error(t, err)
}

func TestWords(t *testing.T) {
	input, words := token.Words("Joy, SADNESS & calm!")
	require.Equal(t, "joy, sadness & calm!", input)
	require.Equal(t, []token.Word{
		{Text: "joy", Span: [2]int{0, 3}},
		{Text: "sadness", Span: [2]int{5, 12}},
		{Text: "calm", Span: [2]int{15, 19}},
	}, words)
}
