package temporal

import (
	"math"
)

// Frame is one analysis frame of the conditioned signal.
type Frame struct {
	Index    int     `json:"index"`
	StartSec float64 `json:"startSec"`
	RMS      float64 `json:"rms"`
	RMSNorm  float64 `json:"rmsNorm"`
}

// FrameGrid describes how a signal of a given length is sliced into fixed,
// overlapping windows. Frame i covers samples [i*Hop, i*Hop+Window).
type FrameGrid struct {
	SampleRate    int
	WindowSamples int
	HopSamples    int
	Count         int
}

// NewFrameGrid computes the frame layout for numSamples samples. Window and
// hop are converted from seconds by rounding and are at least one sample.
// Count is max(0, 1 + floor((N - window)/hop)).
func NewFrameGrid(numSamples, sampleRate int, windowSec, hopSec float64) FrameGrid {
	win := max(1, int(math.Round(windowSec*float64(sampleRate))))
	hop := max(1, int(math.Round(hopSec*float64(sampleRate))))

	count := 0
	if numSamples >= win {
		count = 1 + (numSamples-win)/hop
	}

	return FrameGrid{
		SampleRate:    sampleRate,
		WindowSamples: win,
		HopSamples:    hop,
		Count:         count,
	}
}

// StartSec returns the start time of frame i.
func (g FrameGrid) StartSec(i int) float64 {
	return float64(i*g.HopSamples) / float64(g.SampleRate)
}

// HopSec returns the hop length in seconds.
func (g FrameGrid) HopSec() float64 {
	return float64(g.HopSamples) / float64(g.SampleRate)
}

// WindowSec returns the window length in seconds.
func (g FrameGrid) WindowSec() float64 {
	return float64(g.WindowSamples) / float64(g.SampleRate)
}

// Window returns the samples of frame i as a subslice of signal (no copy).
func (g FrameGrid) Window(signal []float64, i int) []float64 {
	start := i * g.HopSamples
	return signal[start : start+g.WindowSamples]
}

// FramesPerSecond converts a duration in seconds to a whole number of hops,
// never less than one.
func (g FrameGrid) FramesPerSecond(seconds float64) int {
	return max(1, int(math.Round(seconds/g.HopSec())))
}
