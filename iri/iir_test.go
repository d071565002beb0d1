package iri

import (
	"math"
	"testing"
)

func TestHighPassRejectsDC(t *testing.T) {
	f := newHighPass(0.5, 0.02)
	var y float64
	for i := 0; i < 500; i++ {
		y = f.apply(3.7)
	}
	if math.Abs(y) > 1e-3 {
		t.Errorf("high pass passes DC: steady-state output %v", y)
	}
}

func TestLowPassConvergesToDC(t *testing.T) {
	f := newLowPass(15, 0.02)
	var y float64
	for i := 0; i < 500; i++ {
		y = f.apply(3.7)
	}
	if math.Abs(y-3.7) > 1e-3 {
		t.Errorf("low pass does not converge to DC input: %v", y)
	}
}

func TestLowPassAttenuatesAboveCutoff(t *testing.T) {
	const dt = 0.02 // 50 Hz
	f := newLowPass(2, dt)
	// 20 Hz sine, 10x the cutoff, amplitude 1.
	var peak float64
	for i := 0; i < 500; i++ {
		y := f.apply(math.Sin(2 * math.Pi * 20 * float64(i) * dt))
		if i > 100 && math.Abs(y) > peak {
			peak = math.Abs(y)
		}
	}
	if peak > 0.3 {
		t.Errorf("low pass barely attenuates 10x cutoff: peak %v", peak)
	}
}

func TestCascadeResetClearsHistory(t *testing.T) {
	c := newCascade(0.5, 15, 50)

	in := make([]float64, 200)
	for i := range in {
		in[i] = math.Sin(2 * math.Pi * 5 * float64(i) / 50)
	}
	first := c.run(in)

	c.reset()
	second := c.run(in)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("sample %d differs after reset: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestCascadePassesBand(t *testing.T) {
	c := newCascade(0.5, 15, 50)
	var sum float64
	n := 500
	for i := 0; i < n; i++ {
		y := c.lp.apply(c.hp.apply(math.Sin(2 * math.Pi * 5 * float64(i) / 50)))
		sum += y * y
	}
	rms := math.Sqrt(sum / float64(n))
	// 5 Hz is well inside [0.5, 15]; expect most of the 1/sqrt(2) RMS through.
	if rms < 0.4 {
		t.Errorf("in-band 5 Hz tone attenuated to rms %v", rms)
	}
}
