package transcript

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/RyanBlaney/sonido-delivery/logging"
)

// SidecarSuffix is appended to a recording's base name to find its words file.
const SidecarSuffix = ".words.json"

// Source supplies word tokens for a recording. Implementations wrap a
// transcription service or a pre-computed transcript.
type Source interface {
	Words(ctx context.Context, audioPath string) ([]WordToken, error)
}

// wireToken accepts the key spellings seen from different transcription
// services.
type wireToken struct {
	Text       string   `json:"text"`
	Word       string   `json:"word"`
	Start      *float64 `json:"start"`
	StartSec   *float64 `json:"startSec"`
	End        *float64 `json:"end"`
	EndSec     *float64 `json:"endSec"`
	Confidence *float64 `json:"confidence"`
}

func (w wireToken) token() WordToken {
	tok := WordToken{
		Text:       w.Text,
		StartSec:   w.StartSec,
		EndSec:     w.EndSec,
		Confidence: w.Confidence,
	}
	if tok.Text == "" {
		tok.Text = w.Word
	}
	if tok.StartSec == nil {
		tok.StartSec = w.Start
	}
	if tok.EndSec == nil {
		tok.EndSec = w.End
	}
	return tok
}

// LoadJSON parses a transcript given either as a bare array of tokens or as
// an object with a "words" array. Start and end may be spelled start/end or
// startSec/endSec.
func LoadJSON(r io.Reader) ([]WordToken, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read transcript: %w", err)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty transcript")
	}

	var wire []wireToken
	switch data[0] {
	case '[':
		if err := json.Unmarshal(data, &wire); err != nil {
			return nil, fmt.Errorf("failed to parse transcript: %w", err)
		}
	case '{':
		var doc struct {
			Words []wireToken `json:"words"`
		}
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("failed to parse transcript: %w", err)
		}
		wire = doc.Words
	default:
		return nil, fmt.Errorf("transcript must be a JSON array or object")
	}

	words := make([]WordToken, len(wire))
	for i, w := range wire {
		words[i] = w.token()
	}
	return words, nil
}

// LoadFile reads a transcript from disk.
func LoadFile(path string) ([]WordToken, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	words, err := LoadJSON(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return words, nil
}

// SidecarPath returns the words file expected next to audioPath.
func SidecarPath(audioPath string) string {
	return strings.TrimSuffix(audioPath, filepath.Ext(audioPath)) + SidecarSuffix
}

// FileSource reads words from a fixed transcript file regardless of the
// recording it is asked about.
type FileSource struct {
	Path string
}

// Words implements Source.
func (s FileSource) Words(ctx context.Context, _ string) ([]WordToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return LoadFile(s.Path)
}

// SidecarSource reads <name>.words.json next to each recording. A missing
// sidecar is not an error: the recording is analysed without words.
type SidecarSource struct {
	Logger logging.Logger
}

// Words implements Source.
func (s SidecarSource) Words(ctx context.Context, audioPath string) ([]WordToken, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := SidecarPath(audioPath)
	words, err := LoadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		if s.Logger != nil {
			s.Logger.Debug("No transcript sidecar found", logging.Fields{
				"audio_path":   audioPath,
				"sidecar_path": path,
			})
		}
		return nil, nil
	}
	return words, err
}
