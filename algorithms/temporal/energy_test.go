package temporal

import (
	"context"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-delivery/algorithms/filters"
)

const testRate = 16000

// toneWithBurst generates a 200 Hz tone at baseAmp with a louder section
// between burstStart and burstEnd seconds, run through the 70 Hz conditioner.
func toneWithBurst(t *testing.T, seconds, baseAmp, burstAmp, burstStart, burstEnd float64) []float64 {
	t.Helper()

	n := int(seconds * testRate)
	signal := make([]float64, n)
	for i := range signal {
		ts := float64(i) / testRate
		amp := baseAmp
		if ts >= burstStart && ts < burstEnd {
			amp = burstAmp
		}
		signal[i] = amp * math.Sin(2*math.Pi*200*ts)
	}

	conditioned, err := filters.Condition(signal, testRate, 70)
	if err != nil {
		t.Fatalf("condition: %v", err)
	}
	return conditioned
}

func TestNewFrameGrid(t *testing.T) {
	tests := []struct {
		name       string
		samples    int
		wantWin    int
		wantHop    int
		wantFrames int
	}{
		{"one second", 16000, 400, 160, 98},
		{"exactly one window", 400, 400, 160, 1},
		{"shorter than window", 399, 400, 160, 0},
		{"empty", 0, 400, 160, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewFrameGrid(tt.samples, testRate, 0.025, 0.01)
			if g.WindowSamples != tt.wantWin || g.HopSamples != tt.wantHop || g.Count != tt.wantFrames {
				t.Errorf("grid = %+v, want win=%d hop=%d count=%d", g, tt.wantWin, tt.wantHop, tt.wantFrames)
			}
		})
	}

	tiny := NewFrameGrid(10, 10, 0.01, 0.01)
	if tiny.WindowSamples != 1 || tiny.HopSamples != 1 {
		t.Errorf("window/hop should be at least one sample, got %+v", tiny)
	}
}

func TestEnergyFramesHaveConstantHop(t *testing.T) {
	signal := toneWithBurst(t, 1.0, 0.2, 0.2, 0, 0)
	grid := NewFrameGrid(len(signal), testRate, 0.025, 0.01)

	res, err := NewEnergy(DefaultEnergyParams()).Analyze(context.Background(), signal, grid)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Frames) != grid.Count {
		t.Fatalf("frames = %d, want %d", len(res.Frames), grid.Count)
	}

	for i := 1; i < len(res.Frames); i++ {
		step := res.Frames[i].StartSec - res.Frames[i-1].StartSec
		if step <= 0 || math.Abs(step-0.01) > 1e-12 {
			t.Fatalf("frame %d step = %v, want 0.01", i, step)
		}
		if res.Frames[i].Index != i {
			t.Fatalf("frame %d has index %d", i, res.Frames[i].Index)
		}
	}
}

func TestEnergySilence(t *testing.T) {
	for _, seconds := range []float64{0.5, 2, 5} {
		signal := make([]float64, int(seconds*testRate))
		grid := NewFrameGrid(len(signal), testRate, 0.025, 0.01)

		res, err := NewEnergy(DefaultEnergyParams()).Analyze(context.Background(), signal, grid)
		if err != nil {
			t.Fatal(err)
		}
		if res.Variability == nil || *res.Variability != 0 {
			t.Errorf("%vs silence: variability = %v, want 0", seconds, res.Variability)
		}
		if len(res.Hotspots) != 0 {
			t.Errorf("%vs silence: hotspots = %v, want none", seconds, res.Hotspots)
		}
	}
}

func TestEnergyTooShort(t *testing.T) {
	signal := make([]float64, 200)
	grid := NewFrameGrid(len(signal), testRate, 0.025, 0.01)

	res, err := NewEnergy(DefaultEnergyParams()).Analyze(context.Background(), signal, grid)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Frames) != 0 || len(res.Hotspots) != 0 {
		t.Errorf("expected empty collections, got %d frames %d hotspots", len(res.Frames), len(res.Hotspots))
	}
	if res.Variability != nil {
		t.Errorf("variability = %v, want nil", *res.Variability)
	}
	if res.Hotspots == nil {
		t.Error("hotspots should be an empty slice, not nil")
	}
}

func TestEnergyHotspotOnBurst(t *testing.T) {
	signal := toneWithBurst(t, 3.0, 0.1, 0.5, 1.5, 1.9)
	grid := NewFrameGrid(len(signal), testRate, 0.025, 0.01)

	res, err := NewEnergy(DefaultEnergyParams()).Analyze(context.Background(), signal, grid)
	if err != nil {
		t.Fatal(err)
	}

	if len(res.Hotspots) != 1 {
		t.Fatalf("hotspots = %+v, want exactly one", res.Hotspots)
	}
	h := res.Hotspots[0]
	if h.StartSec < 1.45 || h.StartSec > 1.52 {
		t.Errorf("hotspot start = %v, want ~1.48", h.StartSec)
	}
	if h.EndSec < 1.87 || h.EndSec > 1.93 {
		t.Errorf("hotspot end = %v, want ~1.90", h.EndSec)
	}
	if h.Label != nil {
		t.Errorf("energy stage must not label hotspots, got %q", *h.Label)
	}

	if res.Variability == nil || math.Abs(*res.Variability-0.88) > 0.03 {
		t.Errorf("variability = %v, want ~0.88", res.Variability)
	}
}

func TestDetectHotspotsIdempotent(t *testing.T) {
	signal := toneWithBurst(t, 3.0, 0.1, 0.5, 1.0, 1.6)
	grid := NewFrameGrid(len(signal), testRate, 0.025, 0.01)
	energy := NewEnergy(DefaultEnergyParams())

	norm := NormalizeByPercentile(energy.ComputeShortTimeEnergy(signal, grid), 0.95)

	first := energy.DetectHotspots(norm, grid)
	second := energy.DetectHotspots(norm, grid)
	if len(first) != len(second) {
		t.Fatalf("runs differ: %v vs %v", first, second)
	}
	for i := range first {
		if first[i].StartSec != second[i].StartSec || first[i].EndSec != second[i].EndSec {
			t.Errorf("hotspot %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

func TestDetectHotspotsMinimumDuration(t *testing.T) {
	grid := FrameGrid{SampleRate: 100, WindowSamples: 1, HopSamples: 1, Count: 300}
	params := DefaultEnergyParams()
	energy := NewEnergy(params)

	// 19 loud frames (190 ms) then 25 loud frames (250 ms), well separated
	norm := make([]float64, 300)
	for i := range norm {
		norm[i] = 0.2
	}
	for i := 100; i < 119; i++ {
		norm[i] = 1
	}
	for i := 200; i < 225; i++ {
		norm[i] = 1
	}

	hotspots := energy.DetectHotspots(norm, grid)
	if len(hotspots) != 1 {
		t.Fatalf("hotspots = %+v, want one (the 250 ms run)", hotspots)
	}
	if math.Abs(hotspots[0].StartSec-2.0) > 1e-9 || math.Abs(hotspots[0].EndSec-2.25) > 1e-9 {
		t.Errorf("hotspot = %+v, want [2.00, 2.25]", hotspots[0])
	}

	// exactly 200 ms qualifies
	for i := 100; i < 120; i++ {
		norm[i] = 1
	}
	if got := energy.DetectHotspots(norm, grid); len(got) != 2 {
		t.Errorf("a 200 ms run should qualify, got %+v", got)
	}
}

func TestNormalizeByPercentile(t *testing.T) {
	values := make([]float64, 100)
	for i := range values {
		values[i] = float64(i + 1)
	}

	norm := NormalizeByPercentile(values, 0.95)
	// sorted[floor(0.95*99)] = sorted[94] = 95
	if math.Abs(norm[94]-1) > 1e-12 {
		t.Errorf("reference value normalized to %v, want 1", norm[94])
	}
	if math.Abs(norm[99]-100.0/95.0) > 1e-12 {
		t.Errorf("max normalized to %v", norm[99])
	}

	zeros := NormalizeByPercentile(make([]float64, 5), 0.95)
	for _, v := range zeros {
		if v != 0 || math.IsNaN(v) {
			t.Fatalf("silent series normalized to %v", v)
		}
	}
}

func TestEnergyHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	signal := make([]float64, testRate)
	grid := NewFrameGrid(len(signal), testRate, 0.025, 0.01)
	if _, err := NewEnergy(DefaultEnergyParams()).Analyze(ctx, signal, grid); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
