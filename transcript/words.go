package transcript

import (
	"math"
	"slices"
)

// WordToken is one recognised word as supplied by the transcription service.
// Start and end are optional; tokens without both are ignored by every
// time-aligned computation.
type WordToken struct {
	Text       string   `json:"text"`
	StartSec   *float64 `json:"startSec,omitempty"`
	EndSec     *float64 `json:"endSec,omitempty"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// HasTiming reports whether the token carries a usable [start, end] interval.
func (w WordToken) HasTiming() bool {
	if w.StartSec == nil || w.EndSec == nil {
		return false
	}
	s, e := *w.StartSec, *w.EndSec
	if math.IsNaN(s) || math.IsNaN(e) || math.IsInf(s, 0) || math.IsInf(e, 0) {
		return false
	}
	return e >= s
}

// TimedWord is a word with a resolved time interval.
type TimedWord struct {
	Text     string  `json:"text"`
	StartSec float64 `json:"startSec"`
	EndSec   float64 `json:"endSec"`
}

// MidSec returns the temporal midpoint of the word.
func (w TimedWord) MidSec() float64 {
	return (w.StartSec + w.EndSec) / 2.0
}

// Timed returns the tokens that have timing, sorted by start time. Ties keep
// their input order. The result is never nil.
func Timed(words []WordToken) []TimedWord {
	timed := make([]TimedWord, 0, len(words))
	for _, w := range words {
		if !w.HasTiming() {
			continue
		}
		timed = append(timed, TimedWord{
			Text:     w.Text,
			StartSec: *w.StartSec,
			EndSec:   *w.EndSec,
		})
	}

	slices.SortStableFunc(timed, func(a, b TimedWord) int {
		switch {
		case a.StartSec < b.StartSec:
			return -1
		case a.StartSec > b.StartSec:
			return 1
		}
		return 0
	})
	return timed
}

// Texts returns the raw text of every token in input order.
func Texts(words []WordToken) []string {
	texts := make([]string, len(words))
	for i, w := range words {
		texts[i] = w.Text
	}
	return texts
}

// Word builds a timed token. Mostly useful in tests and adapters.
func Word(text string, start, end float64) WordToken {
	return WordToken{Text: text, StartSec: &start, EndSec: &end}
}
