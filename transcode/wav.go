package transcode

import (
	"bytes"
	"fmt"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WAVE format tags accepted by the pure-Go backend.
const (
	wavPCMFormat        = 1
	wavExtensibleFormat = 0xFFFE
)

// IsWAV reports whether data starts with a RIFF/WAVE header.
func IsWAV(data []byte) bool {
	return len(data) >= 12 &&
		bytes.Equal(data[0:4], []byte("RIFF")) &&
		bytes.Equal(data[8:12], []byte("WAVE"))
}

// decodeWAV reads integer PCM WAVE data without external tools and returns
// down-mixed samples in [-1, 1) at the file's own rate.
func decodeWAV(data []byte) (mono []float64, meta *AudioMetadata, err error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	if !dec.IsValidFile() {
		return nil, nil, decodeErr("wav", "invalid WAV file", dec.Err())
	}
	if dec.WavAudioFormat != wavPCMFormat && dec.WavAudioFormat != wavExtensibleFormat {
		return nil, nil, decodeErr("wav", fmt.Sprintf("unsupported WAVE format tag %d", dec.WavAudioFormat), nil)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, nil, decodeErr("wav", "could not read PCM buffer", err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 || buf.Format.SampleRate <= 0 {
		return nil, nil, decodeErr("wav", "missing format information", nil)
	}
	if len(buf.Data) == 0 {
		return nil, nil, decodeErr("wav", "no PCM samples", nil)
	}

	interleaved := intBufferToFloat(buf)
	mono = DownmixInterleaved(interleaved, buf.Format.NumChannels)

	meta = &AudioMetadata{
		SampleRate: buf.Format.SampleRate,
		Channels:   buf.Format.NumChannels,
		Codec:      fmt.Sprintf("pcm_s%dle", buf.SourceBitDepth),
		Duration:   float64(len(mono)) / float64(buf.Format.SampleRate),
		Format:     "WAV / WAVE (Waveform Audio)",
	}
	return mono, meta, nil
}

// intBufferToFloat scales integer PCM to [-1, 1). 8-bit WAVE is unsigned
// and is re-centred first.
func intBufferToFloat(buf *audio.IntBuffer) []float64 {
	depth := buf.SourceBitDepth
	if depth <= 0 {
		depth = 16
	}
	scale := 1.0 / float64(int64(1)<<(depth-1))

	out := make([]float64, len(buf.Data))
	for i, v := range buf.Data {
		if depth == 8 {
			v -= 128
		}
		out[i] = float64(v) * scale
	}
	return out
}
