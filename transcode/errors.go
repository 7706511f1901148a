package transcode

import (
	"errors"
	"fmt"
)

// ErrEmptyInput is wrapped by DecodeError when the input buffer has no bytes.
var ErrEmptyInput = errors.New("empty audio data")

// DecodeError reports audio that could not be decoded: empty, corrupt or in
// an unsupported codec. No partial result accompanies it.
type DecodeError struct {
	Backend string // "ffmpeg" or "wav"
	Reason  string
	Err     error
}

func (e *DecodeError) Error() string {
	msg := "decode failed"
	if e.Backend != "" {
		msg = e.Backend + " " + msg
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// UnsupportedEnvironmentError reports that the host lacks what is needed to
// decode the input, typically a missing ffmpeg binary for a compressed
// format the pure-Go fallback cannot read.
type UnsupportedEnvironmentError struct {
	Requirement string
	Err         error
}

func (e *UnsupportedEnvironmentError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("unsupported environment: %s unavailable: %v", e.Requirement, e.Err)
	}
	return fmt.Sprintf("unsupported environment: %s unavailable", e.Requirement)
}

func (e *UnsupportedEnvironmentError) Unwrap() error {
	return e.Err
}

func decodeErr(backend, reason string, err error) error {
	return &DecodeError{Backend: backend, Reason: reason, Err: err}
}
