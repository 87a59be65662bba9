package schedule

import (
	"fmt"
	"math"
	"time"
)

// Frame is what the visuals show at one instant.
type Frame struct {
	Time time.Duration
	// Active holds the indices of events sounding at Time.
	Active []int
	// Caption is the index of the caption covering Time, or -1.
	Caption int
	// Trail lists the circle nodes of every token played so far.
	Trail []int
	// Pulse decays from 1 at each onset towards 0.
	Pulse    float64
	Progress float64
}

// At derives the frame for time t. It only reads the schedule, so export can
// call it for any t in any order.
func (s *Schedule) At(t time.Duration) Frame {
	f := Frame{Time: t, Caption: -1}

	lastOnset := time.Duration(-1)
	for i, e := range s.Events {
		if e.Start > t {
			break
		}
		if e.Voice == 0 {
			f.Trail = append(f.Trail, e.Node)
			lastOnset = e.Start
		}
		if t < e.End() {
			f.Active = append(f.Active, i)
		}
	}
	if lastOnset >= 0 {
		f.Pulse = math.Exp(-float64(t-lastOnset) / float64(s.Options.PulseDecay))
	}

	for i, c := range s.Captions {
		if c.Start <= t && t < c.End {
			f.Caption = i
			break
		}
	}

	if s.Duration > 0 {
		f.Progress = math.Min(1, math.Max(0, float64(t)/float64(s.Duration)))
	}
	return f
}

// Frames samples the schedule fps times a second, from 0 to the first frame
// at or past Duration.
func (s *Schedule) Frames(fps int) ([]Frame, error) {
	if fps <= 0 {
		return nil, fmt.Errorf("%w: fps %d", ErrBadOptions, fps)
	}
	n := int(math.Ceil(s.Duration.Seconds() * float64(fps)))
	frames := make([]Frame, 0, n+1)
	for i := 0; i <= n; i++ {
		frames = append(frames, s.At(FrameTime(i, fps)))
	}
	return frames, nil
}

// FrameTime is the time of frame i at fps.
func FrameTime(i, fps int) time.Duration {
	return time.Duration(int64(i) * int64(time.Second) / int64(fps))
}

// Onsets returns the events starting in (from, to]. Pass a negative from to
// include events at time 0.
func (s *Schedule) Onsets(from, to time.Duration) []int {
	var out []int
	for i, e := range s.Events {
		if e.Start > from && e.Start <= to {
			out = append(out, i)
		}
	}
	return out
}
