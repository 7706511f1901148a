package filters

import (
	"fmt"
	"math"
)

// HighPass is a single-pole RC high-pass filter used to strip DC offset and
// sub-audible rumble before energy and pitch analysis.
//
// Difference equation:
//
//	y[n] = α·(y[n-1] + x[n] − x[n-1])
//	α    = RC / (RC + dt),  RC = 1/(2π·fc),  dt = 1/fs
//
// References:
//   - Julius O. Smith III, "Introduction to Digital Filters with Audio Applications"
//   - Udo Zölzer, "Digital Audio Signal Processing", 2nd Edition, Chapter 5
type HighPass struct {
	cutoffFreq float64 // -3dB corner frequency in Hz
	sampleRate int     // Sample rate in Hz
	alpha      float64

	// State variables
	x1      float64 // Previous input sample x[n-1]
	y1      float64 // Previous output sample y[n-1]
	started bool
}

// NewHighPass creates a high-pass filter with the given corner frequency.
func NewHighPass(sampleRate int, cutoffFreq float64) (*HighPass, error) {
	if sampleRate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive: %d", sampleRate)
	}
	if cutoffFreq <= 0 || cutoffFreq >= float64(sampleRate)/2 {
		return nil, fmt.Errorf("cutoff frequency %.2f Hz outside (0, %d)", cutoffFreq, sampleRate/2)
	}

	hp := &HighPass{
		sampleRate: sampleRate,
		cutoffFreq: cutoffFreq,
	}
	hp.computeAlpha()
	return hp, nil
}

func (hp *HighPass) computeAlpha() {
	rc := 1.0 / (2.0 * math.Pi * hp.cutoffFreq)
	dt := 1.0 / float64(hp.sampleRate)
	hp.alpha = rc / (rc + dt)
}

// Process filters a single sample. The filter starts as if the first input
// had always been present (x[-1] = x[0], y[-1] = 0), so a DC offset yields
// zero output from the first sample on.
func (hp *HighPass) Process(input float64) float64 {
	if !hp.started {
		hp.started = true
		hp.x1 = input
		hp.y1 = 0
	}

	output := hp.alpha * (hp.y1 + input - hp.x1)

	hp.x1 = input
	hp.y1 = output

	return output
}

// ProcessBuffer filters input into a new buffer, leaving input untouched.
func (hp *HighPass) ProcessBuffer(input []float64) []float64 {
	output := make([]float64, len(input))
	hp.ProcessInto(output, input)
	return output
}

// ProcessInto filters input into dst. dst must be at least len(input) long;
// dst and input may alias.
func (hp *HighPass) ProcessInto(dst, input []float64) {
	for i, sample := range input {
		dst[i] = hp.Process(sample)
	}
}

// Reset clears the filter's internal state.
// Call this when processing discontinuous audio segments.
func (hp *HighPass) Reset() {
	hp.x1 = 0.0
	hp.y1 = 0.0
	hp.started = false
}

// Condition runs a fresh high-pass over the full signal and returns the
// conditioned copy.
func Condition(signal []float64, sampleRate int, cutoffFreq float64) ([]float64, error) {
	hp, err := NewHighPass(sampleRate, cutoffFreq)
	if err != nil {
		return nil, err
	}
	return hp.ProcessBuffer(signal), nil
}
