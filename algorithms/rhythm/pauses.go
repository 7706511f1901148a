package rhythm

import (
	"math"
	"slices"

	"github.com/RyanBlaney/sonido-delivery/algorithms/common"
	"github.com/RyanBlaney/sonido-delivery/transcript"
)

// PauseClass buckets an inter-word gap by length.
type PauseClass string

const (
	PauseMedium PauseClass = "medium"
	PauseLong   PauseClass = "long"
)

// PauseEvent is one medium or long silence between two words.
type PauseEvent struct {
	StartSec    float64    `json:"startSec"`
	EndSec      float64    `json:"endSec"`
	DurationSec float64    `json:"durationSec"`
	Class       PauseClass `json:"class"`
}

// PauseStats summarizes silences between words.
type PauseStats struct {
	AvgGapSec     float64      `json:"avgGapSec"`
	MedianGapSec  float64      `json:"medianGapSec"`
	MediumCount   int          `json:"mediumCount"`
	LongCount     int          `json:"longCount"`
	RatioPercent  float64      `json:"ratioPercent"`
	TotalPauseSec float64      `json:"totalPauseSec"`
	TotalTalkSec  float64      `json:"totalTalkSec"`
	Events        []PauseEvent `json:"events"`
}

// Gap is a positive silence between consecutive words.
type Gap struct {
	StartSec float64
	EndSec   float64
}

// Duration returns the gap length in seconds.
func (g Gap) Duration() float64 {
	return g.EndSec - g.StartSec
}

// Gaps returns every positive nextStart − prevEnd for adjacent pairs of
// start-sorted words.
func Gaps(words []transcript.TimedWord) []Gap {
	gaps := []Gap{}
	for i := 1; i < len(words); i++ {
		if d := words[i].StartSec - words[i-1].EndSec; d > 0 {
			gaps = append(gaps, Gap{StartSec: words[i-1].EndSec, EndSec: words[i].StartSec})
		}
	}
	return gaps
}

// Classify returns the pause class of a gap, or "" for a short gap.
func (a *Analyzer) Classify(durationSec float64) PauseClass {
	switch {
	case durationSec >= a.params.PauseLongMinSec:
		return PauseLong
	case durationSec >= a.params.PauseMediumMinSec:
		return PauseMedium
	}
	return ""
}

// Pauses computes gap statistics and the talk/pause split for a clip of
// durationSec seconds. Words must be start sorted.
func (a *Analyzer) Pauses(words []transcript.TimedWord, durationSec float64) PauseStats {
	stats := PauseStats{Events: []PauseEvent{}}

	gaps := Gaps(words)
	lengths := make([]float64, len(gaps))
	for i, g := range gaps {
		lengths[i] = g.Duration()

		class := a.Classify(lengths[i])
		switch class {
		case PauseMedium:
			stats.MediumCount++
		case PauseLong:
			stats.LongCount++
		default:
			continue
		}
		stats.Events = append(stats.Events, PauseEvent{
			StartSec:    g.StartSec,
			EndSec:      g.EndSec,
			DurationSec: lengths[i],
			Class:       class,
		})
	}

	if len(lengths) > 0 {
		stats.AvgGapSec = common.Mean(lengths)
		stats.MedianGapSec = common.Median(lengths)
		if durationSec > 0 {
			stats.RatioPercent = 100 * common.Sum(lengths) / durationSec
		}
	}

	stats.TotalTalkSec = TalkTime(words, durationSec)
	stats.TotalPauseSec = math.Max(0, durationSec-stats.TotalTalkSec)
	return stats
}

// TalkTime returns the length of the union of word intervals clipped to
// [0, durationSec]. Overlapping words are counted once.
func TalkTime(words []transcript.TimedWord, durationSec float64) float64 {
	if durationSec <= 0 || len(words) == 0 {
		return 0
	}

	spans := make([]Gap, 0, len(words))
	for _, w := range words {
		lo := common.Clamp(w.StartSec, 0, durationSec)
		hi := common.Clamp(w.EndSec, 0, durationSec)
		if hi > lo {
			spans = append(spans, Gap{StartSec: lo, EndSec: hi})
		}
	}
	slices.SortFunc(spans, func(a, b Gap) int {
		switch {
		case a.StartSec < b.StartSec:
			return -1
		case a.StartSec > b.StartSec:
			return 1
		}
		return 0
	})

	var total float64
	curLo, curHi := math.Inf(-1), math.Inf(-1)
	for _, s := range spans {
		if s.StartSec > curHi {
			if curHi > curLo {
				total += curHi - curLo
			}
			curLo, curHi = s.StartSec, s.EndSec
			continue
		}
		curHi = math.Max(curHi, s.EndSec)
	}
	if curHi > curLo {
		total += curHi - curLo
	}
	return total
}
