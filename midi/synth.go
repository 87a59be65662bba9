package midi

import (
	"fmt"
	"io"
	"os"

	"github.com/sinshu/go-meltysynth/meltysynth"
)

const DefaultSampleRate = 44100

// Renderer turns note messages into stereo audio.
type Renderer interface {
	NoteOn(channel, key, velocity int32)
	NoteOff(channel, key int32)
	// Reset silences every voice.
	Reset()
	Render(left, right []float32)
	SampleRate() int
}

type (
	// Synth renders notes with a SoundFont.
	Synth struct {
		synth *meltysynth.Synthesizer
		rate  int
	}

	NewSynthOpts struct {
		// SoundFont is the path of an .sf2 file, used when Reader is nil.
		SoundFont string
		Reader    io.Reader
		// SampleRate defaults to 44.1kHz.
		SampleRate int
	}
)

func NewSynth(o NewSynthOpts) (*Synth, error) {
	if o.SampleRate == 0 {
		o.SampleRate = DefaultSampleRate
	}
	soundFont, err := loadSoundFont(o.SoundFont, o.Reader)
	if err != nil {
		return nil, err
	}
	return newSynth(soundFont, o.SampleRate)
}

func loadSoundFont(path string, sf2 io.Reader) (*meltysynth.SoundFont, error) {
	if sf2 == nil {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("open soundfont: %w", err)
		}
		defer f.Close()
		sf2 = f
	}
	soundFont, err := meltysynth.NewSoundFont(sf2)
	if err != nil {
		return nil, fmt.Errorf("load soundfont %q: %w", path, err)
	}
	return soundFont, nil
}

func newSynth(soundFont *meltysynth.SoundFont, rate int) (*Synth, error) {
	settings := meltysynth.NewSynthesizerSettings(int32(rate))
	synthesizer, err := meltysynth.NewSynthesizer(soundFont, settings)
	if err != nil {
		return nil, fmt.Errorf("create synthesizer: %w", err)
	}
	return &Synth{synth: synthesizer, rate: rate}, nil
}

func (s *Synth) NoteOn(channel, key, velocity int32) { s.synth.NoteOn(channel, key, velocity) }

func (s *Synth) NoteOff(channel, key int32) { s.synth.NoteOff(channel, key) }

func (s *Synth) Reset() { s.synth.NoteOffAll(true) }

func (s *Synth) Render(left, right []float32) { s.synth.Render(left, right) }

func (s *Synth) SampleRate() int { return s.rate }

// Factory makes independent renderers. A Renderer is not safe for concurrent
// use, so playback, export and jam notes each take their own.
type Factory func() (Renderer, error)

// NewFactory loads the SoundFont at path once and returns a factory of
// synthesizers sharing it. An empty path gives the built-in tone generator.
func NewFactory(soundFont string, sampleRate int) (Factory, error) {
	if sampleRate == 0 {
		sampleRate = DefaultSampleRate
	}
	if soundFont == "" {
		return func() (Renderer, error) { return NewToneSynth(sampleRate), nil }, nil
	}
	sf, err := loadSoundFont(soundFont, nil)
	if err != nil {
		return nil, err
	}
	return func() (Renderer, error) {
		s, err := newSynth(sf, sampleRate)
		if err != nil {
			return nil, err
		}
		return s, nil
	}, nil
}
