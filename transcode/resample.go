package transcode

import (
	"math"
)

// ResampledLength returns round(n·to/from), the output length that keeps
// the clip duration within half a sample.
func ResampledLength(n, fromRate, toRate int) int {
	if n <= 0 || fromRate <= 0 || toRate <= 0 {
		return 0
	}
	return int(math.Round(float64(n) * float64(toRate) / float64(fromRate)))
}

// Resample converts a mono signal between sample rates with linear
// interpolation. Good enough for speech features below 4 kHz; it applies
// no anti-alias filter, so content above the target Nyquist folds back.
func Resample(input []float64, fromRate, toRate int) []float64 {
	if fromRate == toRate || len(input) == 0 {
		out := make([]float64, len(input))
		copy(out, input)
		return out
	}

	outLen := ResampledLength(len(input), fromRate, toRate)
	output := make([]float64, outLen)
	step := float64(fromRate) / float64(toRate)
	last := len(input) - 1

	for i := range output {
		srcPos := float64(i) * step
		idx := int(srcPos)
		if idx >= last {
			output[i] = input[last]
			continue
		}
		frac := srcPos - float64(idx)
		output[i] = input[idx] + (input[idx+1]-input[idx])*frac
	}

	return output
}

// DownmixInterleaved averages interleaved channels into one.
func DownmixInterleaved(interleaved []float64, channels int) []float64 {
	if channels <= 1 {
		out := make([]float64, len(interleaved))
		copy(out, interleaved)
		return out
	}

	frames := len(interleaved) / channels
	mono := make([]float64, frames)
	scale := 1.0 / float64(channels)
	for i := 0; i < frames; i++ {
		var sum float64
		for c := 0; c < channels; c++ {
			sum += interleaved[i*channels+c]
		}
		mono[i] = sum * scale
	}
	return mono
}
