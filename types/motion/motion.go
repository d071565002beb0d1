package motion

import (
	"math"

	"github.com/roadmetrics/surveyd/common"
)

// AccelerationSample is one reading of the device's linear-acceleration
// sensor, device frame, m/s^2.
type AccelerationSample struct {
	X, Y, Z   float64
	UnixNanos int64
}

// GravitySample is one reading of the gravity vector, device frame.
type GravitySample struct {
	X, Y, Z   float64
	UnixNanos int64
}

func (g GravitySample) Magnitude() float64 {
	return math.Sqrt(g.X*g.X + g.Y*g.Y + g.Z*g.Z)
}

// IsValid reports whether the gravity magnitude is physically plausible.
// Free fall, saturation, and shock all push it out of the band.
func (g GravitySample) IsValid() bool {
	m := g.Magnitude()
	return common.IsFinite(m) && m >= common.GravityValidMin && m <= common.GravityValidMax
}

// VerticalSample is the road-relevant scalar: acceleration projected onto
// the gravity axis, timestamped for later spatial resampling.
type VerticalSample struct {
	Accel     float64 // m/s^2 along gravity
	UnixNanos int64
}

// Vertical projects a onto the unit gravity axis of g: (a·g)/|g|.
// ok is false when g is invalid or a is non-finite; such samples are
// dropped, never buffered.
func Vertical(a AccelerationSample, g GravitySample) (v VerticalSample, ok bool) {
	if !g.IsValid() {
		return VerticalSample{}, false
	}
	if !common.IsFinite(a.X) || !common.IsFinite(a.Y) || !common.IsFinite(a.Z) {
		return VerticalSample{}, false
	}
	dot := a.X*g.X + a.Y*g.Y + a.Z*g.Z
	return VerticalSample{
		Accel:     dot / g.Magnitude(),
		UnixNanos: a.UnixNanos,
	}, true
}
