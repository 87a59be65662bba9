// Package drift summarizes how late playback observed each scheduled note.
package drift

import (
	"fmt"
	"math"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type (
	CalcMsg struct {
		Latest time.Duration
		Avg    time.Duration
		Min    time.Duration
		Max    time.Duration
	}

	// Stats describes a whole playback run.
	Stats struct {
		Count int
		Avg   time.Duration
		Min   time.Duration
		Max   time.Duration
		// Jitter is the standard deviation of the samples.
		Jitter time.Duration
	}
)

// CalcStats reports the latest sample together with the running figures of prev.
func CalcStats(latest time.Duration, prev []time.Duration) tea.Cmd {
	return func() tea.Msg {
		return CalcMsg{
			Latest: latest,
			Avg:    roundMS(Avg(prev)),
			Max:    Max(prev),
			Min:    Min(prev),
		}
	}
}

func Summarize(samples []time.Duration) Stats {
	return Stats{
		Count:  len(samples),
		Avg:    Avg(samples),
		Min:    Min(samples),
		Max:    Max(samples),
		Jitter: StdDev(samples),
	}
}

func (s Stats) String() string {
	if s.Count == 0 {
		return "no notes"
	}
	return fmt.Sprintf("%d notes, late avg %v min %v max %v jitter %v",
		s.Count, roundMS(s.Avg), s.Min, s.Max, roundMS(s.Jitter))
}

func roundMS(d time.Duration) time.Duration {
	return d.Round(time.Millisecond)
}

func Min(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}
	min := times[0]
	for _, t := range times[1:] {
		if t < min {
			min = t
		}
	}
	return min
}

func Max(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}
	max := times[0]
	for _, t := range times[1:] {
		if t > max {
			max = t
		}
	}
	return max
}

func Avg(times []time.Duration) time.Duration {
	if len(times) == 0 {
		return 0
	}
	sum := time.Duration(0)
	for _, t := range times {
		sum = sum + t
	}
	return sum / time.Duration(len(times))
}

func StdDev(times []time.Duration) time.Duration {
	if len(times) < 2 {
		return 0
	}
	avg := float64(Avg(times))
	var sq float64
	for _, t := range times {
		d := float64(t) - avg
		sq += d * d
	}
	return time.Duration(math.Sqrt(sq / float64(len(times))))
}
