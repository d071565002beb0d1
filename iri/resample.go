package iri

import (
	"time"

	"github.com/roadmetrics/surveyd/types/motion"
)

// resampleSpatial converts time-indexed vertical-acceleration samples onto a
// fixed spatial grid, one value per resolution meters of travel, by linear
// interpolation between consecutive raw samples. Roughness is a property of
// the road, not of elapsed time.
//
// The segment speed is assumed constant; per-sample speed is not available
// at accelerometer rates. Gaps wider than frameDrop are skipped rather than
// interpolated across.
func resampleSpatial(raw []motion.VerticalSample, speedMps, resolution float64, frameDrop time.Duration) []float64 {
	if len(raw) < 2 || speedMps <= 0 || resolution <= 0 {
		return nil
	}

	out := make([]float64, 0, len(raw))
	pos := 0.0
	nextGrid := resolution

	for i := 1; i < len(raw); i++ {
		s0, s1 := raw[i-1], raw[i]
		dtNanos := s1.UnixNanos - s0.UnixNanos
		if dtNanos <= 0 {
			continue
		}
		if time.Duration(dtNanos) > frameDrop {
			// Frame drop. Travel across the hole is unknown; skip it.
			continue
		}
		dt := float64(dtNanos) / 1e9
		d := speedMps * dt
		end := pos + d

		for nextGrid <= end {
			frac := (nextGrid - pos) / d
			out = append(out, s0.Accel+frac*(s1.Accel-s0.Accel))
			nextGrid += resolution
		}
		pos = end
	}
	return out
}
