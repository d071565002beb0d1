package iri

import "math"

// One-pole RC filters, parameterized the analog way: RC = 1/(2*pi*fc).
// The cascade isolates pavement-texture vibration from vehicle-body motion
// (high-pass) and electrical noise (low-pass).

type highPass struct {
	alpha  float64
	prevX  float64
	prevY  float64
	primed bool
}

func newHighPass(cutoffHz, dt float64) *highPass {
	rc := 1 / (2 * math.Pi * cutoffHz)
	return &highPass{alpha: rc / (rc + dt)}
}

func (f *highPass) apply(x float64) float64 {
	if !f.primed {
		f.prevX, f.prevY = x, 0
		f.primed = true
		return 0
	}
	y := f.alpha * (f.prevY + x - f.prevX)
	f.prevX, f.prevY = x, y
	return y
}

func (f *highPass) reset() {
	f.prevX, f.prevY = 0, 0
	f.primed = false
}

type lowPass struct {
	alpha  float64
	prevY  float64
	primed bool
}

func newLowPass(cutoffHz, dt float64) *lowPass {
	rc := 1 / (2 * math.Pi * cutoffHz)
	return &lowPass{alpha: dt / (rc + dt)}
}

func (f *lowPass) apply(x float64) float64 {
	if !f.primed {
		f.prevY = x * f.alpha
		f.primed = true
		return f.prevY
	}
	y := f.prevY + f.alpha*(x-f.prevY)
	f.prevY = y
	return y
}

func (f *lowPass) reset() {
	f.prevY = 0
	f.primed = false
}

// cascade is the band-pass chain applied to spatially-resampled samples.
// No energy may leak between segments; reset before each run.
type cascade struct {
	hp *highPass
	lp *lowPass
}

func newCascade(highCutoffHz, lowCutoffHz, sampleRate float64) *cascade {
	dt := 1 / sampleRate
	return &cascade{
		hp: newHighPass(highCutoffHz, dt),
		lp: newLowPass(lowCutoffHz, dt),
	}
}

func (c *cascade) reset() {
	c.hp.reset()
	c.lp.reset()
}

func (c *cascade) run(in []float64) []float64 {
	out := make([]float64, len(in))
	for i, x := range in {
		out[i] = c.lp.apply(c.hp.apply(x))
	}
	return out
}
