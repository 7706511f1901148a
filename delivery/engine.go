// Package delivery wires decoding, signal analysis and transcript
// alignment into a single speech-delivery report.
package delivery

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-delivery/algorithms/filters"
	"github.com/RyanBlaney/sonido-delivery/algorithms/lexical"
	"github.com/RyanBlaney/sonido-delivery/algorithms/prosody"
	"github.com/RyanBlaney/sonido-delivery/algorithms/rhythm"
	"github.com/RyanBlaney/sonido-delivery/algorithms/temporal"
	"github.com/RyanBlaney/sonido-delivery/algorithms/tonal"
	"github.com/RyanBlaney/sonido-delivery/delivery/config"
	"github.com/RyanBlaney/sonido-delivery/logging"
	"github.com/RyanBlaney/sonido-delivery/transcode"
	"github.com/RyanBlaney/sonido-delivery/transcript"
)

// ErrClosed is returned by an Engine after Close.
var ErrClosed = errors.New("delivery: engine is closed")

// Request is one recording to analyse. Words may be nil.
type Request struct {
	Audio []byte
	Words []transcript.WordToken
}

// Engine is a reusable analysis handle. It owns the pitch tracker scratch
// buffers, so concurrent Analyze calls on one Engine run one at a time.
// Create one per worker for parallel throughput.
type Engine struct {
	cfg      *config.Config
	logger   logging.Logger
	progress ProgressFunc
	decoder  Decoder
	owned    *transcode.Decoder // decoder built from cfg, closed with the engine

	energy  *temporal.Energy
	aligner *prosody.Aligner
	rhythm  *rhythm.Analyzer

	mu     sync.Mutex
	pitch  *tonal.PitchTracker
	closed bool
}

// New validates cfg and builds an engine. A nil cfg means config.Default().
func New(cfg *config.Config, opts ...Option) (*Engine, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:     cfg,
		logger:  logging.GetGlobalLogger(),
		energy:  temporal.NewEnergy(cfg.EnergyParams()),
		aligner: prosody.NewAligner(cfg.AlignerParams()),
		rhythm:  rhythm.NewAnalyzer(cfg.RhythmParams()),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.decoder == nil {
		e.owned = transcode.NewDecoder(cfg.DecoderConfig())
		if err := e.owned.ValidateConfig(); err != nil {
			return nil, fmt.Errorf("invalid decoder configuration: %w", err)
		}
		e.owned.SetLogger(e.logger)
		e.decoder = e.owned
	}

	pitch, err := tonal.NewPitchTracker(cfg.PitchParams(), cfg.WindowSamples())
	if err != nil {
		return nil, fmt.Errorf("failed to create pitch tracker: %w", err)
	}
	e.pitch = pitch

	return e, nil
}

// Config returns the engine configuration.
func (e *Engine) Config() config.Config {
	return *e.cfg
}

// Analyze decodes req.Audio and analyses it together with req.Words.
// Decoding failures are returned as *transcode.DecodeError or
// *transcode.UnsupportedEnvironmentError.
func (e *Engine) Analyze(ctx context.Context, req Request) (*Report, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}

	sample, err := e.decoder.Decode(ctx, req.Audio)
	if err != nil {
		return nil, err
	}
	e.report(StageDecode)

	return e.AnalyzeSample(ctx, sample, req.Words)
}

// AnalyzeFile decodes the audio file at path and analyses it together with
// words. Decoders implementing FileDecoder get the path; others get the file
// contents.
func (e *Engine) AnalyzeFile(ctx context.Context, path string, words []transcript.WordToken) (*Report, error) {
	if e.isClosed() {
		return nil, ErrClosed
	}

	var sample *transcode.AudioSample
	if fd, ok := e.decoder.(FileDecoder); ok {
		s, err := fd.DecodeFile(ctx, path)
		if err != nil {
			return nil, err
		}
		sample = s
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio file: %w", err)
		}
		s, err := e.decoder.Decode(ctx, data)
		if err != nil {
			return nil, err
		}
		sample = s
	}
	e.report(StageDecode)

	return e.AnalyzeSample(ctx, sample, words)
}

// AnalyzeSample analyses already decoded audio. Samples at a rate other
// than the configured one are resampled first. The sample is not modified.
func (e *Engine) AnalyzeSample(ctx context.Context, sample *transcode.AudioSample, words []transcript.WordToken) (*Report, error) {
	if sample == nil {
		return nil, fmt.Errorf("delivery: nil audio sample")
	}
	if sample.SampleRate <= 0 {
		return nil, fmt.Errorf("delivery: invalid sample rate %d", sample.SampleRate)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	logger := e.logger.WithContext(ctx).WithFields(logging.Component("delivery_engine").With(logging.Fields{
		"function": "AnalyzeSample",
	}))
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sr := e.cfg.SampleRateHz
	signal := sample.Samples
	if sample.SampleRate != sr {
		logger.Debug("Resampling input to analysis rate", logging.Fields{
			"from": sample.SampleRate,
			"to":   sr,
		})
		signal = transcode.Resample(signal, sample.SampleRate, sr)
	}
	durationSec := float64(len(signal)) / float64(sr)

	conditioned, err := filters.Condition(signal, sr, e.cfg.HighPassHz)
	if err != nil {
		return nil, fmt.Errorf("failed to condition signal: %w", err)
	}
	e.report(StageCondition)

	grid := temporal.NewFrameGrid(len(conditioned), sr, e.cfg.FrameWinSec, e.cfg.FrameHopSec)
	energyRes, pitchRes, err := e.analyzeSignal(ctx, conditioned, grid)
	if err != nil {
		return nil, err
	}
	e.report(StageEnergy)
	e.report(StagePitch)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := &Report{
		Variability: energyRes.Variability,
		Hotspots:    energyRes.Hotspots,
		Pitch:       pitchRes.Stats,
		PitchTrack:  pitchRes.Samples,
		WPMTimeline: []rhythm.WPMPoint{},
		DurationSec: durationSec,
	}

	timed := transcript.Timed(words)
	if len(timed) > 0 {
		report.Hotspots = e.aligner.LabelHotspots(energyRes.Hotspots, timed)
		report.EOSSegments = e.aligner.EOSSlopes(timed, pitchRes.Samples)
	}
	e.report(StageProsody)

	if len(timed) > 0 {
		pauses := e.rhythm.Pauses(timed, durationSec)
		report.Pauses = &pauses
		report.TempoStdDevWps = e.rhythm.TempoStdDev(timed, durationSec)
		report.WPMTimeline = e.rhythm.WPMTimeline(timed, durationSec)
	}
	e.report(StageRhythm)

	report.Fillers = lexical.DetectFillers(transcript.Texts(words))
	e.report(StageFillers)

	logger.Info("Delivery analysis completed", logging.Fields{
		"duration_sec":  durationSec,
		"frames":        grid.Count,
		"pitch_samples": pitchRes.Stats.ValidCount,
		"hotspots":      len(report.Hotspots),
		"timed_words":   len(timed),
		"elapsed_ms":    time.Since(start).Milliseconds(),
	})

	return report, nil
}

// analyzeSignal runs energy analysis and pitch tracking concurrently over
// the same conditioned samples. Neither stage writes to signal.
func (e *Engine) analyzeSignal(ctx context.Context, signal []float64, grid temporal.FrameGrid) (*temporal.EnergyResult, *tonal.PitchResult, error) {
	var (
		wg        sync.WaitGroup
		energyRes *temporal.EnergyResult
		pitchRes  *tonal.PitchResult
		energyErr error
		pitchErr  error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		energyRes, energyErr = e.energy.Analyze(ctx, signal, grid)
	}()
	go func() {
		defer wg.Done()
		pitchRes, pitchErr = e.pitch.Track(ctx, signal, grid)
	}()
	wg.Wait()

	if energyErr != nil {
		return nil, nil, energyErr
	}
	if pitchErr != nil {
		return nil, nil, pitchErr
	}
	return energyRes, pitchRes, nil
}

func (e *Engine) report(stage Stage) {
	e.logger.Debug("Stage finished", logging.Fields{logging.KeyStage: string(stage)})
	if e.progress != nil {
		e.progress(stage, stage.Fraction())
	}
}

func (e *Engine) isClosed() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.closed
}

// Close releases the scratch buffers and the engine's own decoder. Further
// calls to Analyze fail with ErrClosed. Close is idempotent.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	e.pitch.Release()

	if e.owned != nil {
		return e.owned.Close()
	}
	return nil
}
