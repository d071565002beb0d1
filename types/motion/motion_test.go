package motion

import (
	"math"
	"testing"

	"github.com/roadmetrics/surveyd/common"
)

func TestVerticalProjection(t *testing.T) {
	g := GravitySample{Z: common.Gravity}

	// Device lying flat: vertical acceleration is just Z.
	v, ok := Vertical(AccelerationSample{X: 1, Y: 2, Z: 3, UnixNanos: 9}, g)
	if !ok {
		t.Fatal("valid sample rejected")
	}
	if math.Abs(v.Accel-3) > 1e-12 {
		t.Errorf("flat projection = %v, want 3", v.Accel)
	}
	if v.UnixNanos != 9 {
		t.Errorf("timestamp %d not carried", v.UnixNanos)
	}
}

func TestVerticalProjectionTiltedMount(t *testing.T) {
	// Gravity split across two axes, 45 degrees. An acceleration along the
	// gravity axis projects to its full magnitude regardless of mount angle.
	c := common.Gravity / math.Sqrt2
	g := GravitySample{Y: c, Z: c}
	a := AccelerationSample{Y: 2 / math.Sqrt2, Z: 2 / math.Sqrt2}

	v, ok := Vertical(a, g)
	if !ok {
		t.Fatal("valid sample rejected")
	}
	if math.Abs(v.Accel-2) > 1e-12 {
		t.Errorf("tilted projection = %v, want 2", v.Accel)
	}
}

func TestVerticalRejectsInvalidGravity(t *testing.T) {
	a := AccelerationSample{Z: 1}
	for _, g := range []GravitySample{
		{},                           // zero vector
		{Z: 0.5 * common.Gravity},    // free fall
		{Z: 1.5 * common.Gravity},    // shock
		{Z: math.NaN()},              // corrupt
		{X: math.Inf(1), Z: common.Gravity},
	} {
		if _, ok := Vertical(a, g); ok {
			t.Errorf("projected against invalid gravity %+v", g)
		}
	}
}

func TestVerticalRejectsNonFiniteAcceleration(t *testing.T) {
	g := GravitySample{Z: common.Gravity}
	for _, a := range []AccelerationSample{
		{Z: math.NaN()},
		{X: math.Inf(-1)},
	} {
		if _, ok := Vertical(a, g); ok {
			t.Errorf("projected non-finite acceleration %+v", a)
		}
	}
}

func TestGravityValidBand(t *testing.T) {
	cases := []struct {
		mag  float64
		want bool
	}{
		{common.Gravity, true},
		{common.GravityValidMin, true},
		{common.GravityValidMax, true},
		{common.GravityValidMin - 0.01, false},
		{common.GravityValidMax + 0.01, false},
	}
	for _, c := range cases {
		g := GravitySample{Z: c.mag}
		if got := g.IsValid(); got != c.want {
			t.Errorf("IsValid at |g|=%v = %v, want %v", c.mag, got, c.want)
		}
	}
}
