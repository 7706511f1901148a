package tonal

import (
	"context"
	"math"
	"testing"

	"github.com/RyanBlaney/sonido-delivery/algorithms/filters"
	"github.com/RyanBlaney/sonido-delivery/algorithms/temporal"
)

const testRate = 16000

func conditionedSine(t *testing.T, freq, amp, seconds float64) []float64 {
	t.Helper()

	signal := make([]float64, int(seconds*testRate))
	for i := range signal {
		signal[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/testRate)
	}

	out, err := filters.Condition(signal, testRate, 70)
	if err != nil {
		t.Fatalf("condition: %v", err)
	}
	return out
}

func newTracker(t *testing.T, method PitchMethod) *PitchTracker {
	t.Helper()

	params := DefaultPitchParams()
	params.Method = method
	pt, err := NewPitchTracker(params, 400)
	if err != nil {
		t.Fatalf("NewPitchTracker: %v", err)
	}
	t.Cleanup(pt.Release)
	return pt
}

func TestPitchTrackerSine150(t *testing.T) {
	signal := conditionedSine(t, 150, 0.5, 2.0)
	grid := temporal.NewFrameGrid(len(signal), testRate, 0.025, 0.01)
	pt := newTracker(t, PitchMethodDirect)

	res, err := pt.Track(context.Background(), signal, grid)
	if err != nil {
		t.Fatal(err)
	}

	evaluated := (grid.Count + 1) / 2
	near := 0
	for _, s := range res.Samples {
		if math.Abs(s.F0Hz-150) <= 2 {
			near++
		}
	}
	if near*2 <= evaluated {
		t.Fatalf("only %d of %d evaluated frames within ±2 Hz of 150", near, evaluated)
	}

	if res.Stats.RangeHz == nil || *res.Stats.RangeHz > 1 {
		t.Errorf("rangeHz = %v, want near 0", res.Stats.RangeHz)
	}
	if res.Stats.MonotonyIndex == nil || *res.Stats.MonotonyIndex < 0.9 || *res.Stats.MonotonyIndex > 1 {
		t.Errorf("monotonyIndex = %v, want close to 1", res.Stats.MonotonyIndex)
	}
	if res.Stats.ValidCount != len(res.Samples) {
		t.Errorf("validCount %d != %d samples", res.Stats.ValidCount, len(res.Samples))
	}
}

func TestPitchTrackerSamplesUseStride(t *testing.T) {
	signal := conditionedSine(t, 200, 0.5, 1.0)
	grid := temporal.NewFrameGrid(len(signal), testRate, 0.025, 0.01)
	pt := newTracker(t, PitchMethodDirect)

	res, err := pt.Track(context.Background(), signal, grid)
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(res.Samples); i++ {
		step := res.Samples[i].TimeSec - res.Samples[i-1].TimeSec
		if step < 0.02-1e-9 {
			t.Fatalf("samples %d and %d are %v s apart, expected stride of 2 frames", i-1, i, step)
		}
	}
}

func TestPitchTrackerSilence(t *testing.T) {
	signal := make([]float64, 2*testRate)
	grid := temporal.NewFrameGrid(len(signal), testRate, 0.025, 0.01)

	for _, method := range []PitchMethod{PitchMethodDirect, PitchMethodFFT} {
		t.Run(string(method), func(t *testing.T) {
			res, err := newTracker(t, method).Track(context.Background(), signal, grid)
			if err != nil {
				t.Fatal(err)
			}
			if res.Stats.ValidCount != 0 || len(res.Samples) != 0 {
				t.Errorf("silence produced %d pitch samples", res.Stats.ValidCount)
			}
			if res.Stats.RangeHz != nil || res.Stats.VarianceHz2 != nil || res.Stats.MonotonyIndex != nil {
				t.Error("statistics should be nil without samples")
			}
		})
	}
}

func TestPitchTrackerRejectsOutOfBand(t *testing.T) {
	// 40 Hz sits below the band, so the best lag falls outside the accepted range
	signal := conditionedSine(t, 40, 0.5, 1.0)
	grid := temporal.NewFrameGrid(len(signal), testRate, 0.025, 0.01)

	res, err := newTracker(t, PitchMethodDirect).Track(context.Background(), signal, grid)
	if err != nil {
		t.Fatal(err)
	}
	for _, s := range res.Samples {
		if s.F0Hz < 75 || s.F0Hz > 300 {
			t.Fatalf("accepted out-of-band f0 %v", s.F0Hz)
		}
	}
}

func TestPitchTrackerFFTMatchesDirect(t *testing.T) {
	signal := conditionedSine(t, 180, 0.4, 1.5)
	// add a second partial so the correlation surface is not trivial
	for i := range signal {
		signal[i] += 0.1 * math.Sin(2*math.Pi*360*float64(i)/testRate)
	}
	grid := temporal.NewFrameGrid(len(signal), testRate, 0.025, 0.01)

	direct, err := newTracker(t, PitchMethodDirect).Track(context.Background(), signal, grid)
	if err != nil {
		t.Fatal(err)
	}
	viaFFT, err := newTracker(t, PitchMethodFFT).Track(context.Background(), signal, grid)
	if err != nil {
		t.Fatal(err)
	}

	if len(direct.Samples) != len(viaFFT.Samples) {
		t.Fatalf("direct found %d samples, fft found %d", len(direct.Samples), len(viaFFT.Samples))
	}
	for i := range direct.Samples {
		if direct.Samples[i].TimeSec != viaFFT.Samples[i].TimeSec {
			t.Fatalf("sample %d time differs: %v vs %v", i, direct.Samples[i].TimeSec, viaFFT.Samples[i].TimeSec)
		}
		if math.Abs(direct.Samples[i].F0Hz-viaFFT.Samples[i].F0Hz) > 1e-6 {
			t.Errorf("sample %d f0 differs: %v vs %v", i, direct.Samples[i].F0Hz, viaFFT.Samples[i].F0Hz)
		}
	}
}

func TestAutocorrelationBackendsAgree(t *testing.T) {
	x := make([]float64, 400)
	for i := range x {
		x[i] = math.Sin(float64(i)*0.13) + 0.3*math.Cos(float64(i)*0.41)
	}

	params := DefaultPitchParams()
	params.Method = PitchMethodFFT
	pt, err := NewPitchTracker(params, len(x))
	if err != nil {
		t.Fatal(err)
	}
	defer pt.Release()

	lagMin, lagMax := pt.LagRange(testRate, len(x))
	if lagMin != 53 || lagMax != 214 {
		t.Fatalf("lag range = [%d, %d], want [53, 214]", lagMin, lagMax)
	}

	want := make([]float64, lagMax+1)
	r0 := autocorrelateDirect(x, want, lagMin, lagMax)

	got := make([]float64, lagMax+1)
	r0FFT, err := pt.autocorrelateFFT(x, got)
	if err != nil {
		t.Fatal(err)
	}

	if math.Abs(r0-r0FFT) > 1e-8 {
		t.Errorf("r0: direct %v, fft %v", r0, r0FFT)
	}
	for lag := lagMin; lag <= lagMax; lag++ {
		if math.Abs(want[lag]-got[lag]) > 1e-8 {
			t.Fatalf("lag %d: direct %v, fft %v", lag, want[lag], got[lag])
		}
	}
}

func TestComputePitchStats(t *testing.T) {
	if s := ComputePitchStats([]PitchSample{{TimeSec: 0, F0Hz: 120}}); s.RangeHz != nil || s.ValidCount != 1 {
		t.Errorf("single sample stats = %+v", s)
	}

	samples := make([]PitchSample, 0, 21)
	for i := 0; i <= 20; i++ {
		samples = append(samples, PitchSample{TimeSec: float64(i) * 0.02, F0Hz: 100 + float64(i)})
	}
	s := ComputePitchStats(samples)

	// n=21: P95 -> sorted[19] = 119, P5 -> sorted[1] = 101
	if *s.RangeHz != 18 {
		t.Errorf("rangeHz = %v, want 18", *s.RangeHz)
	}
	// population variance of 0..20 is (21²-1)/12 = 36.666…
	if math.Abs(*s.VarianceHz2-440.0/12.0) > 1e-9 {
		t.Errorf("varianceHz2 = %v", *s.VarianceHz2)
	}
	if math.Abs(*s.MonotonyIndex-1/(1+440.0/12.0)) > 1e-12 {
		t.Errorf("monotonyIndex = %v", *s.MonotonyIndex)
	}
}

func TestPitchParamsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*PitchParams)
	}{
		{"inverted band", func(p *PitchParams) { p.MinFreq, p.MaxFreq = 300, 75 }},
		{"zero stride", func(p *PitchParams) { p.Stride = 0 }},
		{"threshold above one", func(p *PitchParams) { p.VoicingThreshold = 1.5 }},
		{"unknown method", func(p *PitchParams) { p.Method = "yin" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultPitchParams()
			tt.mutate(&p)
			if _, err := NewPitchTracker(p, 400); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestPitchTrackerCancellation(t *testing.T) {
	signal := conditionedSine(t, 150, 0.5, 1.0)
	grid := temporal.NewFrameGrid(len(signal), testRate, 0.025, 0.01)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := newTracker(t, PitchMethodDirect).Track(ctx, signal, grid); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestPitchTrackerReleased(t *testing.T) {
	pt, err := NewPitchTracker(DefaultPitchParams(), 400)
	if err != nil {
		t.Fatal(err)
	}
	pt.Release()

	grid := temporal.NewFrameGrid(1000, testRate, 0.025, 0.01)
	if _, err := pt.Track(context.Background(), make([]float64, 1000), grid); err == nil {
		t.Error("expected error after Release")
	}
}
