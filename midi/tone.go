package midi

import (
	"math"
	"sort"

	"github.com/rapidmidiex/rmxtoys/theory"
)

const (
	toneAttack  = 0.01
	toneDecay   = 1.5
	toneRelease = 0.08
	toneGain    = 0.2
)

type (
	// ToneSynth is an additive sine synthesizer: each note is a fundamental
	// and two soft partials with a quick attack and an exponential decay.
	ToneSynth struct {
		rate   int
		voices map[voiceKey]*voice
	}

	voiceKey struct {
		channel, key int32
	}

	voice struct {
		freq float64
		amp  float64
		// Samples rendered since note on.
		age int
		// Samples rendered since note off, -1 while held.
		released int
	}
)

func NewToneSynth(sampleRate int) *ToneSynth {
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	return &ToneSynth{rate: sampleRate, voices: map[voiceKey]*voice{}}
}

func (s *ToneSynth) NoteOn(channel, key, velocity int32) {
	if velocity == 0 {
		s.NoteOff(channel, key)
		return
	}
	s.voices[voiceKey{channel, key}] = &voice{
		freq:     theory.Frequency(int(key)),
		amp:      toneGain * float64(velocity) / 127,
		released: -1,
	}
}

func (s *ToneSynth) NoteOff(channel, key int32) {
	if v, ok := s.voices[voiceKey{channel, key}]; ok && v.released < 0 {
		v.released = 0
	}
}

func (s *ToneSynth) Reset() {
	s.voices = map[voiceKey]*voice{}
}

func (s *ToneSynth) SampleRate() int { return s.rate }

// Render mixes every voice into left and right, overwriting them.
func (s *ToneSynth) Render(left, right []float32) {
	for i := range left {
		left[i] = 0
		right[i] = 0
	}
	rate := float64(s.rate)
	releaseLen := int(toneRelease * rate)

	// Voices are mixed in a fixed order so renders are reproducible.
	keys := make([]voiceKey, 0, len(s.voices))
	for k := range s.voices {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].channel != keys[j].channel {
			return keys[i].channel < keys[j].channel
		}
		return keys[i].key < keys[j].key
	})

	for _, k := range keys {
		v := s.voices[k]
		for i := range left {
			if v.released >= releaseLen {
				break
			}
			t := float64(v.age) / rate
			env := math.Exp(-(t - toneAttack) * toneDecay)
			if t < toneAttack {
				env = t / toneAttack
			}
			if v.released >= 0 {
				env *= 1 - float64(v.released)/float64(releaseLen)
				v.released++
			}
			phase := 2 * math.Pi * v.freq * t
			sample := v.amp * env * (math.Sin(phase) + 0.3*math.Sin(2*phase) + 0.1*math.Sin(3*phase))
			left[i] += float32(sample)
			right[i] += float32(sample)
			v.age++
		}
		if v.released >= releaseLen {
			delete(s.voices, k)
		}
	}
}

// Voices is the number of notes still sounding.
func (s *ToneSynth) Voices() int {
	return len(s.voices)
}
