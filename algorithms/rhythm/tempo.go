package rhythm

import (
	"math"

	"github.com/RyanBlaney/sonido-delivery/algorithms/common"
	"github.com/RyanBlaney/sonido-delivery/transcript"
)

// timeEpsilon absorbs float drift when stepping window positions.
const timeEpsilon = 1e-9

// Params controls pause classification and tempo windows.
type Params struct {
	PauseMediumMinSec float64 `json:"pause_medium_min_sec"`
	PauseLongMinSec   float64 `json:"pause_long_min_sec"`
	TempoWindowSec    float64 `json:"tempo_window_sec"`
	WPMWindowSec      float64 `json:"wpm_window_sec"`
}

// DefaultParams returns the coaching defaults.
func DefaultParams() Params {
	return Params{
		PauseMediumMinSec: 0.6,
		PauseLongMinSec:   1.5,
		TempoWindowSec:    5.0,
		WPMWindowSec:      5.0,
	}
}

// WPMPoint is one sample of the rolling words-per-minute timeline.
type WPMPoint struct {
	T   float64 `json:"t"`
	WPM float64 `json:"wpm"`
}

// Analyzer computes pause and pace statistics from word timestamps.
type Analyzer struct {
	params Params
}

// NewAnalyzer creates a new rhythm analyzer
func NewAnalyzer(params Params) *Analyzer {
	return &Analyzer{params: params}
}

// countStarts returns the number of words starting in [lo, hi). When
// closeEnd is set the upper bound is inclusive, so the last window of a clip
// keeps a word starting exactly at the end.
func countStarts(words []transcript.TimedWord, lo, hi float64, closeEnd bool) int {
	n := 0
	for _, w := range words {
		if w.StartSec < lo {
			continue
		}
		if w.StartSec < hi || (closeEnd && w.StartSec <= hi) {
			n++
		}
	}
	return n
}

// WindowRates partitions [0, durationSec] into fixed windows from 0 and
// returns words per second for each qualifying window. A trailing partial
// window qualifies only when it spans at least half a window.
func (a *Analyzer) WindowRates(words []transcript.TimedWord, durationSec float64) []float64 {
	rates := []float64{}
	width := a.params.TempoWindowSec
	if width <= 0 || durationSec <= 0 {
		return rates
	}

	for k := 0; ; k++ {
		lo := float64(k) * width
		if lo >= durationSec-timeEpsilon {
			break
		}
		hi := math.Min(lo+width, durationSec)
		span := hi - lo
		if span+timeEpsilon < width/2 {
			break
		}

		last := hi >= durationSec-timeEpsilon
		rates = append(rates, float64(countStarts(words, lo, hi, last))/span)
	}
	return rates
}

// TempoStdDev is the population standard deviation of the window rates in
// words per second, or 0 when no window qualifies.
func (a *Analyzer) TempoStdDev(words []transcript.TimedWord, durationSec float64) float64 {
	rates := a.WindowRates(words, durationSec)
	if len(rates) == 0 {
		return 0
	}
	return common.PopStdDev(rates)
}

// WPMTimeline samples a centered window of width W every W/5 seconds from 0
// to durationSec inclusive. Only word starts inside the clip are counted but
// the rate is always taken over the full width, so samples near the clip
// edges read low rather than extrapolating a partial window. Values are
// rounded to one decimal.
func (a *Analyzer) WPMTimeline(words []transcript.TimedWord, durationSec float64) []WPMPoint {
	timeline := []WPMPoint{}
	width := a.params.WPMWindowSec
	if width <= 0 || durationSec <= 0 || len(words) == 0 {
		return timeline
	}

	step := width / 5
	half := width / 2
	minutes := width / 60
	for k := 0; ; k++ {
		t := float64(k) * step
		if t > durationSec+timeEpsilon {
			break
		}

		lo := math.Max(0, t-half)
		hi := math.Min(durationSec, t+half)
		last := hi >= durationSec-timeEpsilon
		count := countStarts(words, lo, hi, last)
		timeline = append(timeline, WPMPoint{
			T:   common.Round(t, 3),
			WPM: common.Round(float64(count)/minutes, 1),
		})
	}
	return timeline
}
