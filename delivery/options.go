package delivery

import (
	"context"

	"github.com/RyanBlaney/sonido-delivery/logging"
	"github.com/RyanBlaney/sonido-delivery/transcode"
)

// Stage names one step of the analysis pipeline.
type Stage string

const (
	StageDecode    Stage = "decode"
	StageCondition Stage = "condition"
	StageEnergy    Stage = "energy"
	StagePitch     Stage = "pitch"
	StageProsody   Stage = "prosody"
	StageRhythm    Stage = "rhythm"
	StageFillers   Stage = "fillers"
)

var stageOrder = []Stage{
	StageDecode,
	StageCondition,
	StageEnergy,
	StagePitch,
	StageProsody,
	StageRhythm,
	StageFillers,
}

// Fraction returns the share of the pipeline complete once s has finished.
func (s Stage) Fraction() float64 {
	for i, st := range stageOrder {
		if st == s {
			return float64(i+1) / float64(len(stageOrder))
		}
	}
	return 0
}

// ProgressFunc receives a stage once it has completed, together with the
// fraction of the whole pipeline done. It is always called from the
// goroutine running Analyze.
type ProgressFunc func(stage Stage, fraction float64)

// Decoder turns an encoded buffer into samples. *transcode.Decoder
// satisfies it.
type Decoder interface {
	Decode(ctx context.Context, data []byte) (*transcode.AudioSample, error)
}

// FileDecoder is implemented by decoders that read files themselves rather
// than from a buffer. Engine.AnalyzeFile prefers it.
type FileDecoder interface {
	DecodeFile(ctx context.Context, path string) (*transcode.AudioSample, error)
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. The global logger is used otherwise.
func WithLogger(logger logging.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithProgress registers a stage-completion callback.
func WithProgress(fn ProgressFunc) Option {
	return func(e *Engine) {
		e.progress = fn
	}
}

// WithDecoder replaces the configured transcode decoder.
func WithDecoder(d Decoder) Option {
	return func(e *Engine) {
		if d != nil {
			e.decoder = d
		}
	}
}
