package filters

import (
	"math"
	"testing"
)

func TestNewHighPassValidation(t *testing.T) {
	tests := []struct {
		name       string
		sampleRate int
		cutoff     float64
		wantErr    bool
	}{
		{"default", 16000, 70, false},
		{"zero rate", 0, 70, true},
		{"zero cutoff", 16000, 0, true},
		{"above nyquist", 16000, 9000, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewHighPass(tt.sampleRate, tt.cutoff)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewHighPass() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestHighPassAlpha(t *testing.T) {
	hp, err := NewHighPass(16000, 70)
	if err != nil {
		t.Fatal(err)
	}

	rc := 1.0 / (2.0 * math.Pi * 70)
	dt := 1.0 / 16000.0
	want := rc / (rc + dt)
	if math.Abs(hp.alpha-want) > 1e-15 {
		t.Errorf("Alpha = %v, want %v", hp.alpha, want)
	}
}

func sine(t *testing.T, freq float64, seconds float64, rate int) []float64 {
	t.Helper()
	out := make([]float64, int(seconds*float64(rate)))
	for i := range out {
		out[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(rate))
	}
	return out
}

func rms(x []float64) float64 {
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func TestHighPassGain(t *testing.T) {
	tests := []struct {
		freq     float64
		min, max float64
	}{
		{10, 0.1, 0.2},
		{70, 0.65, 0.75},
		{1000, 0.97, 1.01},
	}

	for _, tt := range tests {
		in := sine(t, tt.freq, 2, 16000)
		out, err := Condition(in, 16000, 70)
		if err != nil {
			t.Fatal(err)
		}
		// second half only, once the start-up transient has decayed
		half := len(in) / 2
		gain := rms(out[half:]) / rms(in[half:])
		if gain < tt.min || gain > tt.max {
			t.Errorf("gain at %v Hz = %.4f, want in [%v, %v]", tt.freq, gain, tt.min, tt.max)
		}
	}
}

func TestHighPassRemovesDC(t *testing.T) {
	signal := make([]float64, 16000)
	for i := range signal {
		signal[i] = 0.5
	}

	out, err := Condition(signal, 16000, 70)
	if err != nil {
		t.Fatal(err)
	}

	for i, v := range out {
		if v != 0 {
			t.Fatalf("DC offset leaked through at %d: %v", i, v)
		}
	}
	if signal[100] != 0.5 {
		t.Error("input buffer was modified")
	}
}

func TestHighPassDifferenceEquation(t *testing.T) {
	hp, _ := NewHighPass(16000, 70)
	x := []float64{0.1, -0.4, 0.3, 0.9, -0.2}
	y := hp.ProcessBuffer(x)

	a := hp.alpha
	want := make([]float64, len(x))
	prevX, prevY := x[0], 0.0
	for i := range x {
		want[i] = a * (prevY + x[i] - prevX)
		prevX, prevY = x[i], want[i]
	}

	for i := range want {
		if math.Abs(y[i]-want[i]) > 1e-15 {
			t.Errorf("y[%d] = %v, want %v", i, y[i], want[i])
		}
	}

	hp.Reset()
	if got := hp.Process(0.7); got != 0 {
		t.Errorf("after Reset first output = %v, want 0", got)
	}
}

func TestConditionSilence(t *testing.T) {
	out, err := Condition(make([]float64, 320), 16000, 70)
	if err != nil {
		t.Fatal(err)
	}
	for i, v := range out {
		if v != 0 {
			t.Fatalf("silence produced %v at %d", v, i)
		}
	}
}
