package transcode

import (
	"math"
	"testing"
)

func TestResampledLength(t *testing.T) {
	tests := []struct {
		n, from, to int
		want        int
	}{
		{441000, 44100, 16000, 160000},
		{480000, 48000, 16000, 160000},
		{3, 44100, 16000, 1},
		{1, 44100, 16000, 0},
		{8000, 8000, 16000, 16000},
		{0, 44100, 16000, 0},
		{100, 0, 16000, 0},
	}

	for _, tt := range tests {
		if got := ResampledLength(tt.n, tt.from, tt.to); got != tt.want {
			t.Errorf("ResampledLength(%d, %d, %d) = %d, want %d", tt.n, tt.from, tt.to, got, tt.want)
		}
	}
}

func TestResampleLinear(t *testing.T) {
	// doubling the rate of a ramp interpolates midpoints
	up := Resample([]float64{0, 1, 2, 3}, 8000, 16000)
	want := []float64{0, 0.5, 1, 1.5, 2, 2.5, 3, 3}
	if len(up) != len(want) {
		t.Fatalf("len = %d, want %d", len(up), len(want))
	}
	for i := range want {
		if math.Abs(up[i]-want[i]) > 1e-12 {
			t.Errorf("up[%d] = %v, want %v", i, up[i], want[i])
		}
	}

	down := Resample([]float64{0, 1, 2, 3, 4, 5}, 16000, 8000)
	if len(down) != 3 || down[0] != 0 || down[1] != 2 || down[2] != 4 {
		t.Errorf("down = %v, want [0 2 4]", down)
	}
}

func TestResampleSameRateCopies(t *testing.T) {
	in := []float64{0.1, 0.2}
	out := Resample(in, 16000, 16000)
	out[0] = 9
	if in[0] != 0.1 {
		t.Error("same-rate resample must not alias its input")
	}
}

func TestDownmixInterleaved(t *testing.T) {
	mono := DownmixInterleaved([]float64{1, 0, 0.5, 0.5, -1, 1}, 2)
	want := []float64{0.5, 0.5, 0}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("mono[%d] = %v, want %v", i, mono[i], want[i])
		}
	}
}
