// Package player plays a schedule through the speaker and reports the visual
// frame for every tick of a shared clock.
package player

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/faiface/beep"
	"github.com/faiface/beep/speaker"
	"go.uber.org/zap"

	"github.com/rapidmidiex/rmxtoys/drift"
	"github.com/rapidmidiex/rmxtoys/midi"
	"github.com/rapidmidiex/rmxtoys/schedule"
)

const DefaultFPS = 30

type (
	// Clock is the time source both audio start and frames are measured against.
	Clock interface {
		Now() time.Time
		After(d time.Duration) <-chan time.Time
	}

	Output interface {
		Play(s beep.Streamer) error
		// Stop silences anything still playing.
		Stop()
	}

	SystemClock struct{}

	// NopOutput discards audio. Playback still runs on its clock.
	NopOutput struct{}

	// SpeakerOutput plays through the default audio device.
	SpeakerOutput struct {
		rate   beep.SampleRate
		buffer time.Duration
		once   sync.Once
		err    error
	}

	Player struct {
		renderer midi.Renderer
		out      Output
		clock    Clock
		fps      int
		logger   *zap.Logger
	}

	Opts struct {
		Renderer midi.Renderer
		Output   Output
		// Clock defaults to the system clock.
		Clock Clock
		FPS   int
		// Logger defaults to a no-op logger.
		Logger *zap.Logger
	}
)

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// NewSpeakerOutput prepares the speaker at sampleRate. Smaller buffers react
// faster and cost more CPU.
func NewSpeakerOutput(sampleRate int, buffer time.Duration) *SpeakerOutput {
	return &SpeakerOutput{rate: beep.SampleRate(sampleRate), buffer: buffer}
}

// Init opens the audio device. It runs once; later calls return the first result.
func (o *SpeakerOutput) Init() error {
	o.once.Do(func() {
		o.err = speaker.Init(o.rate, o.rate.N(o.buffer))
	})
	return o.err
}

func (o *SpeakerOutput) Play(s beep.Streamer) error {
	if err := o.Init(); err != nil {
		return fmt.Errorf("open speaker: %w", err)
	}
	speaker.Play(s)
	return nil
}

func (o *SpeakerOutput) Stop() {
	if o.Init() == nil {
		speaker.Clear()
	}
}

func (NopOutput) Play(beep.Streamer) error { return nil }

func (NopOutput) Stop() {}

func New(o Opts) *Player {
	if o.Clock == nil {
		o.Clock = SystemClock{}
	}
	if o.FPS <= 0 {
		o.FPS = DefaultFPS
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	if o.Output == nil {
		o.Output = NopOutput{}
	}
	return &Player{
		renderer: o.Renderer,
		out:      o.Output,
		clock:    o.Clock,
		fps:      o.FPS,
		logger:   o.Logger,
	}
}

// Play renders the schedule, starts the audio and calls onFrame on every tick
// until the schedule ends or ctx is done. It returns how late each note onset
// was observed relative to its scheduled start.
func (p *Player) Play(ctx context.Context, s *schedule.Schedule, onFrame func(schedule.Frame)) ([]time.Duration, error) {
	stream := midi.RenderSchedule(p.renderer, s)
	tick := time.Second / time.Duration(p.fps)

	start := p.clock.Now()
	if err := p.out.Play(stream); err != nil {
		p.logger.Error("playback failed", zap.Error(err))
		return nil, err
	}
	defer p.out.Stop()

	var late []time.Duration
	seen := time.Duration(-1)
	for {
		elapsed := p.clock.Now().Sub(start)
		for _, i := range s.Onsets(seen, elapsed) {
			if e := s.Events[i]; e.Voice == 0 {
				late = append(late, elapsed-e.Start)
			}
		}
		seen = elapsed
		if onFrame != nil {
			onFrame(s.At(elapsed))
		}
		if elapsed >= s.Duration {
			p.logger.Debug("playback finished",
				zap.Duration("duration", s.Duration),
				zap.Stringer("drift", drift.Summarize(late)),
			)
			return late, nil
		}

		select {
		case <-ctx.Done():
			p.logger.Debug("playback stopped", zap.Duration("at", elapsed))
			return late, ctx.Err()
		case <-p.clock.After(tick):
		}
	}
}
