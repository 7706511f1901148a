package temporal

import (
	"context"
	"math"

	"github.com/RyanBlaney/sonido-delivery/algorithms/common"
)

// normFloor keeps percentile normalization finite for silent clips.
const normFloor = 1e-9

// EnergyParams controls loudness normalization and hotspot detection.
type EnergyParams struct {
	PercentileNorm    float64 `json:"percentile_norm"`     // order statistic used as the normalization basis
	HotspotMultiplier float64 `json:"hotspot_multiplier"`  // frame is "over" above multiplier × local average
	HotspotMinDurSec  float64 `json:"hotspot_min_dur_sec"` // shortest run reported as a hotspot
	AvgWindowSec      float64 `json:"avg_window_sec"`      // trailing moving-average span
}

// DefaultEnergyParams returns the coaching defaults.
func DefaultEnergyParams() EnergyParams {
	return EnergyParams{
		PercentileNorm:    0.95,
		HotspotMultiplier: 1.2,
		HotspotMinDurSec:  0.2,
		AvgWindowSec:      1.0,
	}
}

// Hotspot is a sustained loudness excursion read as vocal emphasis.
type Hotspot struct {
	StartSec float64 `json:"startSec"`
	EndSec   float64 `json:"endSec"`
	Label    *string `json:"label,omitempty"`
}

// MidSec returns the temporal midpoint of the hotspot.
func (h Hotspot) MidSec() float64 {
	return (h.StartSec + h.EndSec) / 2.0
}

// EnergyResult holds the per-frame energy series and its summaries.
type EnergyResult struct {
	Frames      []Frame   `json:"frames"`
	Variability *float64  `json:"variability"`
	Hotspots    []Hotspot `json:"hotspots"`
}

// Energy computes frame-based loudness features over a whole clip.
// Normalization uses whole-clip statistics, so a clip cannot be split into
// independently analysed chunks without changing the results.
type Energy struct {
	params EnergyParams
}

// NewEnergy creates a new energy analyzer
func NewEnergy(params EnergyParams) *Energy {
	return &Energy{params: params}
}

// Analyze computes RMS, normalized RMS, variability and hotspots.
func (e *Energy) Analyze(ctx context.Context, signal []float64, grid FrameGrid) (*EnergyResult, error) {
	rms := e.ComputeShortTimeEnergy(signal, grid)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	norm := NormalizeByPercentile(rms, e.params.PercentileNorm)

	frames := make([]Frame, len(rms))
	for i := range rms {
		frames[i] = Frame{
			Index:    i,
			StartSec: grid.StartSec(i),
			RMS:      rms[i],
			RMSNorm:  norm[i],
		}
	}

	return &EnergyResult{
		Frames:      frames,
		Variability: Variability(norm),
		Hotspots:    e.DetectHotspots(norm, grid),
	}, nil
}

// ComputeShortTimeEnergy calculates the RMS of every frame on the grid.
func (e *Energy) ComputeShortTimeEnergy(signal []float64, grid FrameGrid) []float64 {
	energies := make([]float64, grid.Count)

	for i := 0; i < grid.Count; i++ {
		energies[i] = common.RMS(grid.Window(signal, i))
	}

	return energies
}

// NormalizeByPercentile divides every value by the p-th order statistic of
// the whole series, floored at a small epsilon.
func NormalizeByPercentile(values []float64, p float64) []float64 {
	if len(values) == 0 {
		return []float64{}
	}

	ref := math.Max(common.Percentile(values, p), normFloor)

	normalized := make([]float64, len(values))
	for i, v := range values {
		normalized[i] = v / ref
	}
	return normalized
}

// Variability is the coefficient of variation (population stddev / mean)
// rounded to two decimals. Nil for an empty series, zero for an all-zero one.
func Variability(normalized []float64) *float64 {
	if len(normalized) < 1 {
		return nil
	}

	mean := common.Mean(normalized)
	if mean <= 0 {
		return common.Float(0)
	}
	return common.Float(common.Round(common.PopStdDev(normalized)/mean, 2))
}

// DetectHotspots finds maximal runs of frames whose normalized RMS exceeds
// the trailing moving average by the configured multiplier. Runs shorter
// than the minimum duration are dropped. Hotspots come back time ordered and
// non-overlapping; the function is pure, so repeated calls on the same
// series return identical boundaries.
func (e *Energy) DetectHotspots(normalized []float64, grid FrameGrid) []Hotspot {
	hotspots := []Hotspot{}
	if len(normalized) == 0 {
		return hotspots
	}

	hop := grid.HopSec()
	avg := common.TrailingMean(normalized, grid.FramesPerSecond(e.params.AvgWindowSec))

	runStart := -1
	closeRun := func(last int) {
		span := float64(last-runStart+1) * hop
		// tolerate float noise from frame-count × hop products
		if span+1e-9 >= e.params.HotspotMinDurSec {
			hotspots = append(hotspots, Hotspot{
				StartSec: grid.StartSec(runStart),
				EndSec:   grid.StartSec(last) + hop,
			})
		}
		runStart = -1
	}

	for i, v := range normalized {
		over := v > e.params.HotspotMultiplier*avg[i]
		switch {
		case over && runStart < 0:
			runStart = i
		case !over && runStart >= 0:
			closeRun(i - 1)
		}
	}
	if runStart >= 0 {
		closeRun(len(normalized) - 1)
	}

	return hotspots
}
