package transcode

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/RyanBlaney/sonido-delivery/logging"
)

// Backend names accepted by DecoderConfig.Backend.
const (
	BackendAuto   = "auto"   // ffmpeg when installed, otherwise the WAV fallback
	BackendFFmpeg = "ffmpeg" // always shell out to ffmpeg/ffprobe
	BackendWAV    = "wav"    // pure-Go RIFF/WAVE decoding only
)

// DecoderConfig holds decoder configuration
type DecoderConfig struct {
	TargetSampleRate int           `json:"targetSampleRate" yaml:"targetSampleRate"`
	MaxDuration      time.Duration `json:"maxDuration" yaml:"maxDuration"`
	ResampleQuality  string        `json:"resampleQuality" yaml:"resampleQuality"` // "fast", "medium", "high"
	FFmpegPath       string        `json:"ffmpegPath" yaml:"ffmpegPath"`           // Path to ffmpeg binary
	FFprobePath      string        `json:"ffprobePath" yaml:"ffprobePath"`         // Path to ffprobe binary
	Timeout          time.Duration `json:"timeout" yaml:"timeout"`                 // Timeout for ffmpeg operations
	Backend          string        `json:"backend" yaml:"backend"`
}

// DefaultDecoderConfig returns default decoder configuration
func DefaultDecoderConfig() *DecoderConfig {
	return &DecoderConfig{
		TargetSampleRate: 16000,
		MaxDuration:      0, // No limit
		ResampleQuality:  "medium",
		FFmpegPath:       "ffmpeg",  // Assume in PATH
		FFprobePath:      "ffprobe", // Assume in PATH
		Timeout:          60 * time.Second,
		Backend:          BackendAuto,
	}
}

// AudioMetadata holds detected audio properties of the input
type AudioMetadata struct {
	SampleRate int     `json:"sampleRate"`
	Channels   int     `json:"channels"`
	Codec      string  `json:"codec"`
	Duration   float64 `json:"duration"`
	Bitrate    int     `json:"bitrate"`
	Format     string  `json:"format"`
}

// Decoder turns encoded audio into mono samples at the target rate. Every
// input channel is down-mixed. Safe for concurrent use.
type Decoder struct {
	config *DecoderConfig
	logger logging.Logger

	toolsOnce sync.Once
	toolsErr  error
}

// NewDecoder creates a new audio decoder
func NewDecoder(config *DecoderConfig) *Decoder {
	if config == nil {
		config = DefaultDecoderConfig()
	}
	return &Decoder{
		config: config,
		logger: logging.GetGlobalLogger(),
	}
}

// SetLogger replaces the decoder's logger.
func (d *Decoder) SetLogger(logger logging.Logger) {
	if logger != nil {
		d.logger = logger
	}
}

// Config returns the decoder configuration.
func (d *Decoder) Config() DecoderConfig {
	return *d.config
}

// Decode decodes an in-memory buffer. Empty or corrupt input fails with
// *DecodeError; input no available backend can read fails with
// *UnsupportedEnvironmentError.
func (d *Decoder) Decode(ctx context.Context, data []byte) (*AudioSample, error) {
	logger := d.logger.WithContext(ctx).WithFields(logging.Component("audio_decoder").With(logging.Fields{
		"function":  "Decode",
		"data_size": len(data),
	}))

	if len(data) == 0 {
		return nil, decodeErr("", "", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	backend, err := d.selectBackend(data)
	if err != nil {
		logger.Warn("No decoding backend available", logging.Fields{"error": err.Error()})
		return nil, err
	}

	logger.Debug("Starting audio decode", logging.Fields{"backend": backend})

	var sample *AudioSample
	switch backend {
	case BackendWAV:
		sample, err = d.decodeWAVBytes(data)
	default:
		sample, err = d.decodeWithFFmpeg(ctx, pipeInput(data), logger)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("Audio decode completed", logging.Fields{
		"backend":         backend,
		"output_samples":  len(sample.Samples),
		"output_rate":     sample.SampleRate,
		"output_duration": sample.DurationSeconds(),
	})
	return sample, nil
}

// DecodeFile decodes an audio file from disk. With ffmpeg the file is
// passed by path so that containers needing random access (MP4/M4A with a
// trailing index) decode; the WAV backend reads it into memory.
func (d *Decoder) DecodeFile(ctx context.Context, filename string) (*AudioSample, error) {
	head, err := readHead(filename, 12)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio file: %w", err)
	}
	if len(head) == 0 {
		return nil, decodeErr("", "", ErrEmptyInput)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	backend, err := d.selectBackend(head)
	if err != nil {
		return nil, err
	}
	if backend == BackendWAV {
		data, err := os.ReadFile(filename)
		if err != nil {
			return nil, fmt.Errorf("failed to read audio file: %w", err)
		}
		return d.Decode(ctx, data)
	}

	logger := d.logger.WithContext(ctx).WithFields(logging.Component("audio_decoder").With(logging.Fields{
		"function": "DecodeFile",
		"file":     filename,
	}))
	return d.decodeWithFFmpeg(ctx, fileInput(filename), logger)
}

// readHead returns up to n leading bytes of a file.
func readHead(filename string, n int) ([]byte, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	head := make([]byte, n)
	read, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return head[:read], nil
}

// DecodeReader decodes audio from an io.Reader
func (d *Decoder) DecodeReader(ctx context.Context, reader io.Reader) (*AudioSample, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}
	return d.Decode(ctx, data)
}

// Probe reports the input's properties without decoding it.
func (d *Decoder) Probe(ctx context.Context, data []byte) (*AudioMetadata, error) {
	if len(data) == 0 {
		return nil, decodeErr("", "", ErrEmptyInput)
	}

	backend, err := d.selectBackend(data)
	if err != nil {
		return nil, err
	}
	if backend == BackendWAV {
		_, meta, err := decodeWAV(data)
		return meta, err
	}
	return d.probeAudioMetadata(ctx, pipeInput(data))
}

// selectBackend picks the backend for data according to the configuration.
func (d *Decoder) selectBackend(data []byte) (string, error) {
	switch d.config.Backend {
	case BackendWAV:
		if !IsWAV(data) {
			return "", decodeErr("wav", "input is not RIFF/WAVE", nil)
		}
		return BackendWAV, nil

	case BackendFFmpeg:
		if err := d.checkFFmpegAvailability(); err != nil {
			return "", &UnsupportedEnvironmentError{Requirement: "ffmpeg", Err: err}
		}
		return BackendFFmpeg, nil

	default:
		err := d.checkFFmpegAvailability()
		if err == nil {
			return BackendFFmpeg, nil
		}
		if IsWAV(data) {
			d.logger.Debug("ffmpeg unavailable, using WAV fallback", logging.Component("audio_decoder"), logging.Fields{
				"reason": err.Error(),
			})
			return BackendWAV, nil
		}
		return "", &UnsupportedEnvironmentError{Requirement: "ffmpeg", Err: err}
	}
}

// decodeWAVBytes decodes WAVE data in process and resamples it.
func (d *Decoder) decodeWAVBytes(data []byte) (*AudioSample, error) {
	mono, meta, err := decodeWAV(data)
	if err != nil {
		return nil, err
	}

	if d.config.MaxDuration > 0 {
		limit := int(d.config.MaxDuration.Seconds() * float64(meta.SampleRate))
		if limit < len(mono) {
			mono = mono[:limit]
		}
	}

	sample := NewAudioSample(Resample(mono, meta.SampleRate, d.config.TargetSampleRate), d.config.TargetSampleRate)
	sample.Source = meta
	return sample, nil
}

// commandContext applies the configured timeout on top of ctx.
func (d *Decoder) commandContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if d.config.Timeout > 0 {
		return context.WithTimeout(ctx, d.config.Timeout)
	}
	return context.WithCancel(ctx)
}

// ffmpegInput names what ffmpeg and ffprobe read: stdin fed from memory, or
// a file they can seek in.
type ffmpegInput struct {
	arg   string
	stdin []byte
}

func pipeInput(data []byte) ffmpegInput { return ffmpegInput{arg: "pipe:0", stdin: data} }

// fileInput uses the file: protocol so names containing a colon are not
// taken for another protocol.
func fileInput(path string) ffmpegInput { return ffmpegInput{arg: "file:" + path} }

// ffprobeArgs inspects the first audio stream of the input and prints JSON.
func ffprobeArgs(in ffmpegInput) []string {
	return []string{"-v", "quiet", "-print_format", "json", "-show_streams", "-select_streams", "a:0", in.arg}
}

// soxrPrecision maps ResampleQuality to the soxr bit precision ffmpeg uses.
var soxrPrecision = map[string]int{"fast": 16, "medium": 20, "high": 28}

// runTool runs a tool, feeding in.stdin when the input is a pipe, and
// returns its stdout. A cancelled or expired context wins over the tool's
// exit status.
func (d *Decoder) runTool(ctx context.Context, path string, args []string, in ffmpegInput) ([]byte, error) {
	ctx, cancel := d.commandContext(ctx)
	defer cancel()

	cmd := exec.CommandContext(ctx, path, args...)
	if in.stdin != nil {
		cmd.Stdin = bytes.NewReader(in.stdin)
	}
	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, decodeErr("ffmpeg", strings.TrimSpace(string(exitErr.Stderr)), err)
	}
	return nil, decodeErr("ffmpeg", "", err)
}

func (d *Decoder) probeAudioMetadata(ctx context.Context, in ffmpegInput) (*AudioMetadata, error) {
	out, err := d.runTool(ctx, d.config.FFprobePath, ffprobeArgs(in), in)
	if err != nil {
		return nil, err
	}
	return parseFFprobeOutput(out)
}

type ffprobeStream struct {
	CodecType     string `json:"codec_type"`
	CodecName     string `json:"codec_name"`
	CodecLongName string `json:"codec_long_name"`
	SampleRate    string `json:"sample_rate"`
	Channels      int    `json:"channels"`
	Duration      string `json:"duration"`
	BitRate       string `json:"bit_rate"`
}

// parseFFprobeOutput reads the stream list printed by ffprobe. ffprobe
// reports numbers as strings and omits the ones it cannot determine; those
// are left at zero.
func parseFFprobeOutput(raw []byte) (*AudioMetadata, error) {
	var probe struct {
		Streams []ffprobeStream `json:"streams"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, decodeErr("ffmpeg", "unreadable ffprobe output", err)
	}
	if len(probe.Streams) == 0 {
		return nil, decodeErr("ffmpeg", "no audio streams found", nil)
	}

	s := probe.Streams[0]
	switch {
	case s.CodecType != "audio":
		return nil, decodeErr("ffmpeg", "stream is not audio type: "+s.CodecType, nil)
	case s.Channels <= 0:
		return nil, decodeErr("ffmpeg", fmt.Sprintf("invalid channel count: %d", s.Channels), nil)
	}

	rate, _ := strconv.Atoi(s.SampleRate)
	bitrate, _ := strconv.Atoi(s.BitRate)
	duration, _ := strconv.ParseFloat(s.Duration, 64)

	return &AudioMetadata{
		SampleRate: rate,
		Channels:   s.Channels,
		Codec:      s.CodecName,
		Duration:   duration,
		Bitrate:    bitrate,
		Format:     s.CodecLongName,
	}, nil
}

// decodeWithFFmpeg probes then decodes the input through ffmpeg.
func (d *Decoder) decodeWithFFmpeg(ctx context.Context, in ffmpegInput, logger logging.Logger) (*AudioSample, error) {
	meta, err := d.probeAudioMetadata(ctx, in)
	if err != nil {
		logger.Error(err, "ffprobe failed")
		return nil, err
	}
	logger.Debug("Probed input", logging.Fields{
		"input_sample_rate": meta.SampleRate,
		"input_channels":    meta.Channels,
		"input_codec":       meta.Codec,
		"input_duration":    meta.Duration,
	})

	args := append([]string{"-i", in.arg}, d.buildFFmpegArgs(meta)...)
	args = append(args, "pipe:1")

	began := time.Now()
	out, err := d.runTool(ctx, d.config.FFmpegPath, args, in)
	if err != nil {
		logger.Error(err, "ffmpeg decode failed", logging.Fields{"args": strings.Join(args, " ")})
		return nil, err
	}

	samples := bytesToFloat64(out)
	if len(samples) == 0 {
		return nil, decodeErr("ffmpeg", "no audio samples decoded", nil)
	}
	logger.Debug("ffmpeg decode finished", logging.Fields{
		"output_bytes": len(out),
		"decode_time":  time.Since(began).Seconds(),
	})

	sample := NewAudioSample(samples, d.config.TargetSampleRate)
	sample.Source = meta
	return sample, nil
}

// buildFFmpegArgs asks ffmpeg for raw little-endian float64 output with
// every channel down-mixed to one at the target rate.
func (d *Decoder) buildFFmpegArgs(meta *AudioMetadata) []string {
	args := []string{"-vn", "-f", "f64le", "-ac", "1", "-ar", strconv.Itoa(d.config.TargetSampleRate)}

	if p, ok := soxrPrecision[d.config.ResampleQuality]; ok && meta.SampleRate != d.config.TargetSampleRate {
		args = append(args, "-af", fmt.Sprintf("aresample=resampler=soxr:precision=%d", p))
	}
	if d.config.MaxDuration > 0 {
		args = append(args, "-t", strconv.FormatFloat(d.config.MaxDuration.Seconds(), 'f', 2, 64))
	}
	return append(args, "-v", "error")
}

// bytesToFloat64 reinterprets f64le bytes. A trailing partial sample is
// dropped.
func bytesToFloat64(data []byte) []float64 {
	n := len(data) / 8
	if n == 0 {
		return nil
	}
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
	}
	return samples
}

// ValidateConfig validates the decoder configuration. It does not require
// ffmpeg to be installed unless the ffmpeg backend is forced.
func (d *Decoder) ValidateConfig() error {
	if d.config.TargetSampleRate <= 0 {
		return fmt.Errorf("target sample rate must be positive: %d", d.config.TargetSampleRate)
	}

	if d.config.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %v", d.config.Timeout)
	}

	switch d.config.ResampleQuality {
	case "", "fast", "medium", "high":
	default:
		return fmt.Errorf("unknown resample quality: %q", d.config.ResampleQuality)
	}

	switch d.config.Backend {
	case BackendAuto, "":
	case BackendWAV:
	case BackendFFmpeg:
		if err := d.checkFFmpegAvailability(); err != nil {
			return fmt.Errorf("ffmpeg not available: %w", err)
		}
	default:
		return fmt.Errorf("unknown decoder backend: %q", d.config.Backend)
	}

	return nil
}

// checkFFmpegAvailability checks once whether ffmpeg and ffprobe can be run.
func (d *Decoder) checkFFmpegAvailability() error {
	d.toolsOnce.Do(func() {
		if _, err := exec.LookPath(d.config.FFmpegPath); err != nil {
			d.toolsErr = fmt.Errorf("ffmpeg not found at %s: %w", d.config.FFmpegPath, err)
			return
		}
		if _, err := exec.LookPath(d.config.FFprobePath); err != nil {
			d.toolsErr = fmt.Errorf("ffprobe not found at %s: %w", d.config.FFprobePath, err)
		}
	})
	return d.toolsErr
}

// Close releases decoder resources. The ffmpeg decoder holds none.
func (d *Decoder) Close() error {
	return nil
}
