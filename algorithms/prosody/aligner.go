package prosody

import (
	"math"

	"github.com/RyanBlaney/sonido-delivery/algorithms/common"
	"github.com/RyanBlaney/sonido-delivery/algorithms/lexical"
	"github.com/RyanBlaney/sonido-delivery/algorithms/temporal"
	"github.com/RyanBlaney/sonido-delivery/algorithms/tonal"
	"github.com/RyanBlaney/sonido-delivery/transcript"
)

// AlignerParams controls segmentation and the end-of-sentence window.
type AlignerParams struct {
	SegmentGapSec float64 `json:"segment_gap_sec"`
	EOSWindowSec  float64 `json:"eos_window_sec"`
}

// DefaultAlignerParams returns the 0.4 s gap and 0.4 s closing window.
func DefaultAlignerParams() AlignerParams {
	return AlignerParams{
		SegmentGapSec: 0.4,
		EOSWindowSec:  0.4,
	}
}

// EOSSegment is the closing pitch slope of one speech segment. A positive
// slope is a rising ending, negative a falling one.
type EOSSegment struct {
	StartSec      float64 `json:"startSec"`
	EndSec        float64 `json:"endSec"`
	SlopeHzPerSec float64 `json:"slopeHzPerSec"`
}

// Aligner maps acoustic events onto word timestamps.
type Aligner struct {
	params AlignerParams
}

// NewAligner creates a new aligner
func NewAligner(params AlignerParams) *Aligner {
	return &Aligner{params: params}
}

// EOSSlopes computes one slope per segment from the pitch samples in the
// segment's closing window [max(start, end − window), end]. Segments with
// fewer than two samples in the window, or whose first and last samples
// share a timestamp, yield nothing. Samples must be time ordered.
func (a *Aligner) EOSSlopes(words []transcript.TimedWord, samples []tonal.PitchSample) []EOSSegment {
	result := []EOSSegment{}
	for _, seg := range SegmentWords(words, a.params.SegmentGapSec) {
		lo := math.Max(seg.StartSec, seg.EndSec-a.params.EOSWindowSec)

		first, last := -1, -1
		for i, s := range samples {
			if s.TimeSec < lo {
				continue
			}
			if s.TimeSec > seg.EndSec {
				break
			}
			if first < 0 {
				first = i
			}
			last = i
		}
		if first < 0 || last == first {
			continue
		}

		dt := samples[last].TimeSec - samples[first].TimeSec
		if dt <= 0 {
			continue
		}
		slope := (samples[last].F0Hz - samples[first].F0Hz) / dt

		result = append(result, EOSSegment{
			StartSec:      seg.StartSec,
			EndSec:        seg.EndSec,
			SlopeHzPerSec: common.Round(slope, 2),
		})
	}
	return result
}

// LabelHotspots returns a copy of hotspots where each carries the content
// word whose midpoint is closest to the hotspot midpoint. Function words and
// fillers are never used. Without candidate words the copy is unlabelled.
// Ties go to the earlier word.
func (a *Aligner) LabelHotspots(hotspots []temporal.Hotspot, words []transcript.TimedWord) []temporal.Hotspot {
	labelled := make([]temporal.Hotspot, len(hotspots))
	copy(labelled, hotspots)

	candidates := make([]transcript.TimedWord, 0, len(words))
	for _, w := range words {
		if lexical.IsContentWord(w.Text) {
			candidates = append(candidates, w)
		}
	}
	if len(candidates) == 0 {
		return labelled
	}

	for i := range labelled {
		mid := labelled[i].MidSec()

		best := 0
		bestDist := math.Abs(candidates[0].MidSec() - mid)
		for j := 1; j < len(candidates); j++ {
			if d := math.Abs(candidates[j].MidSec() - mid); d < bestDist {
				best, bestDist = j, d
			}
		}

		label := lexical.Clean(candidates[best].Text)
		labelled[i].Label = &label
	}
	return labelled
}
