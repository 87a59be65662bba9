package midi

import (
	"fmt"
	"time"

	"github.com/faiface/beep"
)

// MidiStreamer plays rendered stereo buffers. It implements beep.StreamSeeker.
type MidiStreamer struct {
	pos   int
	rate  int
	left  []float32
	right []float32
}

var _ beep.StreamSeeker = (*MidiStreamer)(nil)

// NewMIDIStreamer allocates silent buffers for clipLength of audio.
func NewMIDIStreamer(clipLength time.Duration, sampleRate int) *MidiStreamer {
	bufLen := int(float64(sampleRate) * clipLength.Seconds())
	return newStreamer(bufLen, sampleRate)
}

func newStreamer(samples, sampleRate int) *MidiStreamer {
	return &MidiStreamer{
		rate:  sampleRate,
		left:  make([]float32, samples),
		right: make([]float32, samples),
	}
}

// Stream implements beep.Streamer.
func (ms *MidiStreamer) Stream(samples [][2]float64) (n int, ok bool) {
	if ms.pos >= len(ms.left) {
		return 0, false
	}
	n = len(samples)
	if rest := len(ms.left) - ms.pos; n > rest {
		n = rest
	}
	for i := 0; i < n; i++ {
		samples[i][0] = float64(ms.left[ms.pos+i])
		samples[i][1] = float64(ms.right[ms.pos+i])
	}
	ms.pos += n
	return n, true
}

// Len returns the total number of samples of the Streamer.
func (ms *MidiStreamer) Len() int {
	// left and right have the same length
	return len(ms.left)
}

// Position returns the current position of the Streamer.
func (ms *MidiStreamer) Position() int {
	return ms.pos
}

// Seek sets the position of the Streamer to the provided value.
func (ms *MidiStreamer) Seek(p int) error {
	if p < 0 || p > len(ms.left) {
		return fmt.Errorf("p is out of range: %d", p)
	}
	ms.pos = p
	return nil
}

func (ms *MidiStreamer) Err() error {
	return nil
}

func (ms *MidiStreamer) SampleRate() beep.SampleRate {
	return beep.SampleRate(ms.rate)
}

func (ms *MidiStreamer) Format() beep.Format {
	return beep.Format{SampleRate: ms.SampleRate(), NumChannels: 2, Precision: 2}
}

// Read copies from the current position into outLeft/outRight and advances it.
func (ms *MidiStreamer) Read(outLeft, outRight []float32) int {
	n := copy(outLeft, ms.left[ms.pos:])
	copy(outRight[:n], ms.right[ms.pos:])
	ms.pos += n
	return n
}

// Peak returns the largest absolute sample, useful to spot silent renders.
func (ms *MidiStreamer) Peak() float32 {
	var peak float32
	for i := range ms.left {
		for _, v := range [2]float32{ms.left[i], ms.right[i]} {
			if v < 0 {
				v = -v
			}
			if v > peak {
				peak = v
			}
		}
	}
	return peak
}
