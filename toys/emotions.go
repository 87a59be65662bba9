package toys

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/rapidmidiex/rmxtoys/schedule"
	"github.com/rapidmidiex/rmxtoys/theory"
	"github.com/rapidmidiex/rmxtoys/token"
)

type Preset struct {
	Mode       theory.Mode
	BPM        float64
	BaseOctave int
	Velocity   int
	Motif      string
}

var Presets = map[string]Preset{
	"joy":      {Mode: theory.Major, BPM: 132, BaseOctave: 4, Velocity: 104, Motif: "1 3 5 8 5 3 1"},
	"sadness":  {Mode: theory.Minor, BPM: 66, BaseOctave: 3, Velocity: 70, Motif: "5 4 3 2 1"},
	"anger":    {Mode: theory.Minor, BPM: 152, BaseOctave: 3, Velocity: 120, Motif: "1 1 b2 1 5 b6 5"},
	"fear":     {Mode: theory.Minor, BPM: 100, BaseOctave: 3, Velocity: 64, Motif: "1 b2 1 b2 - 7 1"},
	"calm":     {Mode: theory.Major, BPM: 72, BaseOctave: 4, Velocity: 60, Motif: "1 5 6 5 3 2 1"},
	"surprise": {Mode: theory.Major, BPM: 120, BaseOctave: 5, Velocity: 110, Motif: "1 5 8 - 3 #4 5"},
	"love":     {Mode: theory.Major, BPM: 84, BaseOctave: 4, Velocity: 80, Motif: "3 5 6 5 3 2 3"},
}

var synonyms = map[string]string{
	"happy":     "joy",
	"sad":       "sadness",
	"angry":     "anger",
	"scared":    "fear",
	"afraid":    "fear",
	"relaxed":   "calm",
	"peaceful":  "calm",
	"surprised": "surprise",
	"tender":    "love",
}

// Words joining labels, skipped.
var fillers = map[string]bool{
	"and": true, "or": true, "then": true, "with": true, "a": true, "the": true,
	"very": true, "so": true, "really": true, "quite": true, "bit": true,
	"i": true, "am": true, "feel": true, "feeling": true,
}

type UnknownEmotionError struct {
	Label       string
	Suggestions []string
}

func (e *UnknownEmotionError) Error() string {
	if len(e.Suggestions) == 0 {
		return fmt.Sprintf("unknown emotion %q", e.Label)
	}
	return fmt.Sprintf("unknown emotion %q, did you mean %s?", e.Label, strings.Join(e.Suggestions, " or "))
}

// Emotion resolves a label or synonym to its preset name.
func Emotion(label string) (string, bool) {
	label = strings.ToLower(label)
	if _, ok := Presets[label]; ok {
		return label, true
	}
	name, ok := synonyms[label]
	return name, ok
}

func labels() []string {
	out := make([]string, 0, len(Presets)+len(synonyms))
	for name := range Presets {
		out = append(out, name)
	}
	for s := range synonyms {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// suggest finds labels the input is a fuzzy match for, or that fuzzily match inside it.
func suggest(label string) []string {
	all := labels()
	seen := map[string]bool{}
	var out []string
	add := func(s string) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	for _, m := range fuzzy.Find(label, all) {
		add(m.Str)
	}
	for _, l := range all {
		if len(fuzzy.Find(l, []string{label})) > 0 {
			add(l)
		}
	}
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

type emotions struct{}

func (emotions) Name() string { return "emotions" }

func (emotions) Describe() string {
	return "Name a feeling, hear its motif."
}

// Tokenize plays the motif of every label in order, separated by breaks.
// Every token of a motif carries the label, so its caption stays lit.
func (emotions) Tokenize(input string) (token.Result, error) {
	in, words := token.Words(input)
	res := token.Result{Input: in}
	for _, w := range words {
		if fillers[w.Text] {
			continue
		}
		name, ok := Emotion(w.Text)
		if !ok {
			return res, &UnknownEmotionError{Label: w.Text, Suggestions: suggest(w.Text)}
		}
		motif, err := token.Motif(Presets[name].Motif)
		if err != nil {
			return res, err
		}
		need := len(motif)
		if len(res.Tokens) > 0 {
			need++
		}
		if len(res.Tokens)+need > token.MaxTokens {
			res.Truncated = true
			break
		}
		if len(res.Tokens) > 0 {
			res.Tokens = append(res.Tokens, token.Token{Kind: token.Break})
		}
		for _, t := range motif {
			t.Text, t.Span = w.Text, w.Span
			res.Tokens = append(res.Tokens, t)
		}
	}
	if res.Sounding() == 0 {
		return res, token.ErrEmpty
	}
	return res, nil
}

// Options takes mode, tempo, register and dynamics from the first label.
func (emotions) Options(res token.Result, base schedule.Options) schedule.Options {
	_, words := token.Words(res.Input)
	for _, w := range words {
		name, ok := Emotion(w.Text)
		if !ok {
			continue
		}
		p := Presets[name]
		base.Key.Mode = p.Mode
		base.BPM = p.BPM
		base.BaseOctave = p.BaseOctave
		base.Velocity = p.Velocity
		break
	}
	return base
}
