package transcode

import (
	"time"
)

// AudioSample is decoded mono audio at the canonical analysis rate.
// Downstream stages read Samples but never write to it.
type AudioSample struct {
	Samples    []float64      `json:"-"`
	SampleRate int            `json:"sampleRate"`
	Duration   time.Duration  `json:"duration"`
	Source     *AudioMetadata `json:"source,omitempty"` // input properties, when known
}

// NewAudioSample wraps samples at sampleRate and derives the duration.
func NewAudioSample(samples []float64, sampleRate int) *AudioSample {
	s := &AudioSample{Samples: samples, SampleRate: sampleRate}
	if sampleRate > 0 {
		s.Duration = time.Duration(len(samples)) * time.Second / time.Duration(sampleRate)
	}
	return s
}

// DurationSeconds returns the exact duration in seconds (len/rate).
func (s *AudioSample) DurationSeconds() float64 {
	if s == nil || s.SampleRate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / float64(s.SampleRate)
}
