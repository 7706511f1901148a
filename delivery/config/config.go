// Package config holds the recognised analysis settings, their defaults
// and YAML/JSON loading.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/RyanBlaney/sonido-delivery/algorithms/prosody"
	"github.com/RyanBlaney/sonido-delivery/algorithms/rhythm"
	"github.com/RyanBlaney/sonido-delivery/algorithms/temporal"
	"github.com/RyanBlaney/sonido-delivery/algorithms/tonal"
	"github.com/RyanBlaney/sonido-delivery/transcode"
)

// Decoder configures the audio decoding backends.
type Decoder struct {
	FFmpegPath  string        `json:"ffmpegPath" yaml:"ffmpegPath"`
	FFprobePath string        `json:"ffprobePath" yaml:"ffprobePath"`
	Timeout     time.Duration `json:"timeout" yaml:"timeout"`
	Backend     string        `json:"backend" yaml:"backend"` // auto, ffmpeg or wav
}

// Config is the full set of analysis parameters. Keys are camelCase in
// both YAML and JSON.
type Config struct {
	SampleRateHz int     `json:"sampleRateHz" yaml:"sampleRateHz"`
	HighPassHz   float64 `json:"highPassHz" yaml:"highPassHz"`
	FrameWinSec  float64 `json:"frameWinSec" yaml:"frameWinSec"`
	FrameHopSec  float64 `json:"frameHopSec" yaml:"frameHopSec"`

	PercentileNorm      float64 `json:"percentileNorm" yaml:"percentileNorm"`
	HotspotMultiplier   float64 `json:"hotspotMultiplier" yaml:"hotspotMultiplier"`
	HotspotMinDurSec    float64 `json:"hotspotMinDurSec" yaml:"hotspotMinDurSec"`
	HotspotAvgWindowSec float64 `json:"hotspotAvgWindowSec" yaml:"hotspotAvgWindowSec"`

	PitchMinHz       float64 `json:"pitchMinHz" yaml:"pitchMinHz"`
	PitchMaxHz       float64 `json:"pitchMaxHz" yaml:"pitchMaxHz"`
	VoicingThreshold float64 `json:"voicingThreshold" yaml:"voicingThreshold"`
	PitchStride      int     `json:"pitchStride" yaml:"pitchStride"`
	PitchMethod      string  `json:"pitchMethod" yaml:"pitchMethod"` // direct or fft

	EOSWindowSec  float64 `json:"eosWindowSec" yaml:"eosWindowSec"`
	SegmentGapSec float64 `json:"segmentGapSec" yaml:"segmentGapSec"`

	PauseMediumMinSec float64 `json:"pauseMediumMinSec" yaml:"pauseMediumMinSec"`
	PauseLongMinSec   float64 `json:"pauseLongMinSec" yaml:"pauseLongMinSec"`
	TempoWindowSec    float64 `json:"tempoWindowSec" yaml:"tempoWindowSec"`
	WPMWindowSec      float64 `json:"wpmWindowSec" yaml:"wpmWindowSec"`

	Decoder Decoder `json:"decoder" yaml:"decoder"`
}

// Default returns the coaching defaults.
func Default() *Config {
	energy := temporal.DefaultEnergyParams()
	pitch := tonal.DefaultPitchParams()
	align := prosody.DefaultAlignerParams()
	rhy := rhythm.DefaultParams()
	dec := transcode.DefaultDecoderConfig()

	return &Config{
		SampleRateHz: 16000,
		HighPassHz:   70,
		FrameWinSec:  0.025,
		FrameHopSec:  0.01,

		PercentileNorm:      energy.PercentileNorm,
		HotspotMultiplier:   energy.HotspotMultiplier,
		HotspotMinDurSec:    energy.HotspotMinDurSec,
		HotspotAvgWindowSec: energy.AvgWindowSec,

		PitchMinHz:       pitch.MinFreq,
		PitchMaxHz:       pitch.MaxFreq,
		VoicingThreshold: pitch.VoicingThreshold,
		PitchStride:      pitch.Stride,
		PitchMethod:      string(pitch.Method),

		EOSWindowSec:  align.EOSWindowSec,
		SegmentGapSec: align.SegmentGapSec,

		PauseMediumMinSec: rhy.PauseMediumMinSec,
		PauseLongMinSec:   rhy.PauseLongMinSec,
		TempoWindowSec:    rhy.TempoWindowSec,
		WPMWindowSec:      rhy.WPMWindowSec,

		Decoder: Decoder{
			FFmpegPath:  dec.FFmpegPath,
			FFprobePath: dec.FFprobePath,
			Timeout:     dec.Timeout,
			Backend:     dec.Backend,
		},
	}
}

// Load reads YAML (JSON is a subset) from r on top of the defaults. Keys
// that are not recognised are rejected. The result is validated.
func Load(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg := Default()
	if len(bytes.TrimSpace(data)) == 0 {
		return cfg, nil
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile loads the configuration file at path.
func LoadFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config: %w", err)
	}
	defer f.Close()

	cfg, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// FieldError names one invalid setting.
type FieldError struct {
	Field  string
	Reason string
}

// ValidationError lists every invalid setting found.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Reason
	}
	return "invalid configuration: " + strings.Join(parts, "; ")
}

// Has reports whether field is among the invalid settings.
func (e *ValidationError) Has(field string) bool {
	for _, f := range e.Fields {
		if f.Field == field {
			return true
		}
	}
	return false
}

type validator struct {
	errs []FieldError
}

func (v *validator) check(ok bool, field, format string, args ...any) {
	if !ok {
		v.errs = append(v.errs, FieldError{Field: field, Reason: fmt.Sprintf(format, args...)})
	}
}

func positive(x float64) bool {
	return x > 0 && !math.IsInf(x, 1)
}

// Validate checks every setting and returns a *ValidationError naming
// each bad one, or nil.
func (c *Config) Validate() error {
	v := &validator{}
	nyquist := float64(c.SampleRateHz) / 2

	v.check(c.SampleRateHz > 0, "sampleRateHz", "must be positive, got %d", c.SampleRateHz)
	v.check(positive(c.HighPassHz) && c.HighPassHz < nyquist, "highPassHz", "must be in (0, %.0f), got %g", nyquist, c.HighPassHz)
	v.check(positive(c.FrameWinSec) && c.FrameWinSec*float64(c.SampleRateHz) >= 2, "frameWinSec", "must span at least 2 samples, got %g", c.FrameWinSec)
	v.check(positive(c.FrameHopSec), "frameHopSec", "must be positive, got %g", c.FrameHopSec)

	v.check(c.PercentileNorm > 0 && c.PercentileNorm <= 1, "percentileNorm", "must be in (0, 1], got %g", c.PercentileNorm)
	v.check(positive(c.HotspotMultiplier), "hotspotMultiplier", "must be positive, got %g", c.HotspotMultiplier)
	v.check(c.HotspotMinDurSec >= 0, "hotspotMinDurSec", "must not be negative, got %g", c.HotspotMinDurSec)
	v.check(positive(c.HotspotAvgWindowSec), "hotspotAvgWindowSec", "must be positive, got %g", c.HotspotAvgWindowSec)

	v.check(positive(c.PitchMinHz), "pitchMinHz", "must be positive, got %g", c.PitchMinHz)
	v.check(c.PitchMaxHz > c.PitchMinHz && c.PitchMaxHz <= nyquist, "pitchMaxHz", "must be in (pitchMinHz, %.0f], got %g", nyquist, c.PitchMaxHz)
	v.check(c.VoicingThreshold >= 0 && c.VoicingThreshold <= 1, "voicingThreshold", "must be in [0, 1], got %g", c.VoicingThreshold)
	v.check(c.PitchStride >= 1, "pitchStride", "must be at least 1, got %d", c.PitchStride)
	v.check(c.PitchMethod == string(tonal.PitchMethodDirect) || c.PitchMethod == string(tonal.PitchMethodFFT),
		"pitchMethod", "must be %q or %q, got %q", tonal.PitchMethodDirect, tonal.PitchMethodFFT, c.PitchMethod)

	v.check(positive(c.EOSWindowSec), "eosWindowSec", "must be positive, got %g", c.EOSWindowSec)
	v.check(positive(c.SegmentGapSec), "segmentGapSec", "must be positive, got %g", c.SegmentGapSec)

	v.check(positive(c.PauseMediumMinSec), "pauseMediumMinSec", "must be positive, got %g", c.PauseMediumMinSec)
	v.check(c.PauseLongMinSec > c.PauseMediumMinSec, "pauseLongMinSec", "must exceed pauseMediumMinSec, got %g", c.PauseLongMinSec)
	v.check(positive(c.TempoWindowSec), "tempoWindowSec", "must be positive, got %g", c.TempoWindowSec)
	v.check(positive(c.WPMWindowSec), "wpmWindowSec", "must be positive, got %g", c.WPMWindowSec)

	v.check(c.Decoder.Timeout >= 0, "decoder.timeout", "must not be negative, got %v", c.Decoder.Timeout)
	switch c.Decoder.Backend {
	case "", transcode.BackendAuto, transcode.BackendFFmpeg, transcode.BackendWAV:
	default:
		v.check(false, "decoder.backend", "must be auto, ffmpeg or wav, got %q", c.Decoder.Backend)
	}

	if len(v.errs) > 0 {
		return &ValidationError{Fields: v.errs}
	}
	return nil
}

// EnergyParams returns the energy analyzer settings.
func (c *Config) EnergyParams() temporal.EnergyParams {
	return temporal.EnergyParams{
		PercentileNorm:    c.PercentileNorm,
		HotspotMultiplier: c.HotspotMultiplier,
		HotspotMinDurSec:  c.HotspotMinDurSec,
		AvgWindowSec:      c.HotspotAvgWindowSec,
	}
}

// PitchParams returns the pitch tracker settings.
func (c *Config) PitchParams() tonal.PitchParams {
	return tonal.PitchParams{
		MinFreq:          c.PitchMinHz,
		MaxFreq:          c.PitchMaxHz,
		VoicingThreshold: c.VoicingThreshold,
		Stride:           c.PitchStride,
		Method:           tonal.PitchMethod(c.PitchMethod),
	}
}

// AlignerParams returns the prosody aligner settings.
func (c *Config) AlignerParams() prosody.AlignerParams {
	return prosody.AlignerParams{
		SegmentGapSec: c.SegmentGapSec,
		EOSWindowSec:  c.EOSWindowSec,
	}
}

// RhythmParams returns the pause and tempo settings.
func (c *Config) RhythmParams() rhythm.Params {
	return rhythm.Params{
		PauseMediumMinSec: c.PauseMediumMinSec,
		PauseLongMinSec:   c.PauseLongMinSec,
		TempoWindowSec:    c.TempoWindowSec,
		WPMWindowSec:      c.WPMWindowSec,
	}
}

// DecoderConfig returns a decoder configuration producing audio at
// SampleRateHz.
func (c *Config) DecoderConfig() *transcode.DecoderConfig {
	dc := transcode.DefaultDecoderConfig()
	dc.TargetSampleRate = c.SampleRateHz
	if c.Decoder.FFmpegPath != "" {
		dc.FFmpegPath = c.Decoder.FFmpegPath
	}
	if c.Decoder.FFprobePath != "" {
		dc.FFprobePath = c.Decoder.FFprobePath
	}
	dc.Timeout = c.Decoder.Timeout
	if c.Decoder.Backend != "" {
		dc.Backend = c.Decoder.Backend
	}
	return dc
}

// WindowSamples returns the analysis window in samples at SampleRateHz.
func (c *Config) WindowSamples() int {
	return max(1, int(math.Round(c.FrameWinSec*float64(c.SampleRateHz))))
}
