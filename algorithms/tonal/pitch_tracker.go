package tonal

import (
	"context"
	"fmt"
	"math"

	"github.com/mjibson/go-dsp/fft"

	"github.com/RyanBlaney/sonido-delivery/algorithms/common"
	"github.com/RyanBlaney/sonido-delivery/algorithms/temporal"
)

// silenceFloor is the zero-lag energy at or below which a frame is skipped.
const silenceFloor = 1e-9

// cancelCheckEvery is how many evaluated frames pass between context checks.
const cancelCheckEvery = 64

// PitchMethod selects how the autocorrelation sequence is computed.
type PitchMethod string

const (
	// PitchMethodDirect sums lagged products in the time domain.
	PitchMethodDirect PitchMethod = "direct"
	// PitchMethodFFT uses the power spectrum of the zero-padded frame
	// (Wiener–Khinchin). Produces the same sequence as the direct method.
	PitchMethodFFT PitchMethod = "fft"
)

// PitchParams configures the pitch tracker.
type PitchParams struct {
	MinFreq          float64     `json:"min_freq"`          // lowest accepted F0 in Hz
	MaxFreq          float64     `json:"max_freq"`          // highest accepted F0 in Hz
	VoicingThreshold float64     `json:"voicing_threshold"` // minimum normalized correlation
	Stride           int         `json:"stride"`            // evaluate every Stride-th frame
	Method           PitchMethod `json:"method"`
}

// DefaultPitchParams returns the speech defaults (75–300 Hz, stride 2).
func DefaultPitchParams() PitchParams {
	return PitchParams{
		MinFreq:          75.0,
		MaxFreq:          300.0,
		VoicingThreshold: 0.6,
		Stride:           2,
		Method:           PitchMethodDirect,
	}
}

// PitchSample is one accepted F0 estimate at the start of its frame.
type PitchSample struct {
	TimeSec float64 `json:"timeSec"`
	F0Hz    float64 `json:"f0Hz"`
}

// PitchStats summarizes the accepted samples of a clip. The pointer fields
// are nil when fewer than two samples were accepted.
type PitchStats struct {
	RangeHz       *float64 `json:"rangeHz"`
	VarianceHz2   *float64 `json:"varianceHz2"`
	MonotonyIndex *float64 `json:"monotonyIndex"`
	ValidCount    int      `json:"validCount"`
}

// PitchResult holds the pitch trajectory and its statistics.
type PitchResult struct {
	Samples []PitchSample `json:"samples"`
	Stats   PitchStats    `json:"stats"`
}

// PitchTracker estimates F0 per frame with normalized autocorrelation.
//
// Scratch space is carved from arenas sized once for the largest window the
// tracker accepts, so the frame loop of the direct method does not allocate.
// A PitchTracker is not safe for concurrent use.
type PitchTracker struct {
	params    PitchParams
	maxWindow int
	fftSize   int

	scratch  *common.Arena
	cscratch *common.ComplexArena
}

// NewPitchTracker creates a tracker for frames of at most maxWindow samples.
func NewPitchTracker(params PitchParams, maxWindow int) (*PitchTracker, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if maxWindow < 2 {
		return nil, fmt.Errorf("pitch window must hold at least 2 samples, got %d", maxWindow)
	}

	pt := &PitchTracker{
		params:    params,
		maxWindow: maxWindow,
		scratch:   common.NewArena(maxWindow),
	}

	if params.Method == PitchMethodFFT {
		// linear (not circular) correlation needs at least 2N-1 points
		pt.fftSize = common.NextPowerOfTwo(2*maxWindow - 1)
		pt.cscratch = common.NewComplexArena(pt.fftSize)
	}

	return pt, nil
}

// Validate checks the parameter ranges.
func (p PitchParams) Validate() error {
	if p.MinFreq <= 0 || p.MaxFreq <= p.MinFreq {
		return fmt.Errorf("invalid pitch band [%.1f, %.1f] Hz", p.MinFreq, p.MaxFreq)
	}
	if p.VoicingThreshold < 0 || p.VoicingThreshold > 1 {
		return fmt.Errorf("voicing threshold must be in [0, 1], got %.3f", p.VoicingThreshold)
	}
	if p.Stride < 1 {
		return fmt.Errorf("pitch stride must be at least 1, got %d", p.Stride)
	}
	switch p.Method {
	case PitchMethodDirect, PitchMethodFFT:
	default:
		return fmt.Errorf("unsupported pitch method: %q", p.Method)
	}
	return nil
}

// LagRange returns the inclusive lag bounds searched at sampleRate for a
// window of the given size.
func (pt *PitchTracker) LagRange(sampleRate, window int) (lagMin, lagMax int) {
	lagMin = max(1, int(math.Floor(float64(sampleRate)/pt.params.MaxFreq)))
	lagMax = min(window-1, int(math.Ceil(float64(sampleRate)/pt.params.MinFreq)))
	return lagMin, lagMax
}

// Track estimates pitch over every Stride-th frame of the conditioned signal.
// It returns ctx.Err() if the context is cancelled mid-way.
func (pt *PitchTracker) Track(ctx context.Context, signal []float64, grid temporal.FrameGrid) (*PitchResult, error) {
	if pt.scratch == nil {
		return nil, fmt.Errorf("pitch tracker has been released")
	}
	if grid.WindowSamples > pt.maxWindow {
		return nil, fmt.Errorf("frame window %d exceeds tracker capacity %d", grid.WindowSamples, pt.maxWindow)
	}

	samples := []PitchSample{}
	lagMin, lagMax := pt.LagRange(grid.SampleRate, grid.WindowSamples)
	if lagMin > lagMax {
		return &PitchResult{Samples: samples, Stats: ComputePitchStats(samples)}, nil
	}

	evaluated := 0
	for i := 0; i < grid.Count; i += pt.params.Stride {
		if evaluated%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		evaluated++

		f0, ok, err := pt.estimateFrame(grid.Window(signal, i), grid.SampleRate, lagMin, lagMax)
		if err != nil {
			return nil, err
		}
		if ok {
			samples = append(samples, PitchSample{TimeSec: grid.StartSec(i), F0Hz: f0})
		}
	}

	return &PitchResult{
		Samples: samples,
		Stats:   ComputePitchStats(samples),
	}, nil
}

// estimateFrame returns the F0 of one frame and whether it passed the
// voicing gate.
func (pt *PitchTracker) estimateFrame(x []float64, sampleRate, lagMin, lagMax int) (float64, bool, error) {
	pt.scratch.Reset()
	corr, err := pt.scratch.Take(lagMax + 1)
	if err != nil {
		return 0, false, err
	}

	var r0 float64
	switch pt.params.Method {
	case PitchMethodFFT:
		r0, err = pt.autocorrelateFFT(x, corr)
		if err != nil {
			return 0, false, err
		}
	default:
		r0 = autocorrelateDirect(x, corr, lagMin, lagMax)
	}

	if r0 <= silenceFloor {
		return 0, false, nil
	}

	bestLag := -1
	bestCorr := math.Inf(-1)
	for lag := lagMin; lag <= lagMax; lag++ {
		c := corr[lag] / r0
		if c > bestCorr {
			bestCorr = c
			bestLag = lag
		}
	}
	if bestLag < 0 || bestCorr < pt.params.VoicingThreshold {
		return 0, false, nil
	}

	f0 := float64(sampleRate) / float64(bestLag)
	if f0 < pt.params.MinFreq || f0 > pt.params.MaxFreq {
		return 0, false, nil
	}
	return f0, true, nil
}

// autocorrelateDirect fills corr[lagMin..lagMax] with Σ_{k<N-lag} x[k]·x[k+lag]
// and returns the zero-lag energy.
func autocorrelateDirect(x, corr []float64, lagMin, lagMax int) float64 {
	var r0 float64
	for _, v := range x {
		r0 += v * v
	}

	n := len(x)
	for lag := lagMin; lag <= lagMax; lag++ {
		var sum float64
		for k := 0; k < n-lag; k++ {
			sum += x[k] * x[k+lag]
		}
		corr[lag] = sum
	}
	return r0
}

// autocorrelateFFT fills corr[0..len(corr)-1] from IFFT(|FFT(x)|²) of the
// zero-padded frame and returns the zero-lag energy.
func (pt *PitchTracker) autocorrelateFFT(x, corr []float64) (float64, error) {
	pt.cscratch.Reset()
	buf, err := pt.cscratch.Take(pt.fftSize)
	if err != nil {
		return 0, err
	}
	for i, v := range x {
		buf[i] = complex(v, 0)
	}

	spectrum := fft.FFT(buf)
	for i, c := range spectrum {
		spectrum[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}
	acf := fft.IFFT(spectrum)

	for lag := range corr {
		corr[lag] = real(acf[lag])
	}
	return real(acf[0]), nil
}

// ComputePitchStats aggregates accepted samples into range, variance and
// monotony. Range is P95 − P5 by sorted rank; variance is the population
// variance; monotony is 1/(1+variance).
func ComputePitchStats(samples []PitchSample) PitchStats {
	stats := PitchStats{ValidCount: len(samples)}
	if len(samples) < 2 {
		return stats
	}

	f0 := make([]float64, len(samples))
	for i, s := range samples {
		f0[i] = s.F0Hz
	}

	sorted := common.SortedCopy(f0)
	variance := common.PopVariance(f0)

	stats.RangeHz = common.Float(common.OrderStatistic(sorted, 0.95) - common.OrderStatistic(sorted, 0.05))
	stats.VarianceHz2 = common.Float(variance)
	stats.MonotonyIndex = common.Float(1.0 / (1.0 + variance))
	return stats
}

// Release drops the scratch arenas. Track fails afterwards.
func (pt *PitchTracker) Release() {
	if pt.scratch != nil {
		pt.scratch.Release()
		pt.scratch = nil
	}
	if pt.cscratch != nil {
		pt.cscratch.Release()
		pt.cscratch = nil
	}
}
