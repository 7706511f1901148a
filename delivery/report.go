package delivery

import (
	"github.com/RyanBlaney/sonido-delivery/algorithms/lexical"
	"github.com/RyanBlaney/sonido-delivery/algorithms/prosody"
	"github.com/RyanBlaney/sonido-delivery/algorithms/rhythm"
	"github.com/RyanBlaney/sonido-delivery/algorithms/temporal"
	"github.com/RyanBlaney/sonido-delivery/algorithms/tonal"
)

// Report is the complete set of delivery metrics for one recording.
//
// Features that need word timestamps are absent when none were supplied:
// Pauses is nil, EOSSegments is nil and hotspots carry no label. Silent or
// very short audio yields a nil Variability, nil pitch statistics and
// empty lists rather than an error.
type Report struct {
	Variability *float64             `json:"variability"`
	Hotspots    []temporal.Hotspot   `json:"hotspots"`
	Pitch       tonal.PitchStats     `json:"pitch"`
	EOSSegments []prosody.EOSSegment `json:"eosSegments,omitempty"`
	Pauses      *rhythm.PauseStats   `json:"pauses,omitempty"`

	TempoStdDevWps float64           `json:"tempoStdDevWps"`
	WPMTimeline    []rhythm.WPMPoint `json:"wpmTimeline"`

	Fillers     lexical.FillerStats `json:"fillers"`
	DurationSec float64             `json:"durationSec"`

	// Pitch trajectory, kept for callers that plot it.
	PitchTrack []tonal.PitchSample `json:"-"`
}

// HasTimestamps reports whether the word-aligned features were computed.
func (r *Report) HasTimestamps() bool {
	return r.Pauses != nil
}
