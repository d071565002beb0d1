/*
Package iri estimates the International Roughness Index of road segments
from a continuously buffered vertical-acceleration stream.
*/
package iri

import (
	"log/slog"
	"math"
	"sync"

	"github.com/montanaflynn/stats"
	"github.com/roadmetrics/surveyd/common"
	"github.com/roadmetrics/surveyd/params"
	"github.com/roadmetrics/surveyd/types/motion"
	"github.com/roadmetrics/surveyd/types/roughness"
)

// maxRawBuffer caps the raw sample buffer when no segment trigger drains it
// (long stops, broken GPS). Oldest samples are shed first.
const maxRawBuffer = 1 << 14

// Source is the motion-sensor boundary. Start returns an error when the
// required sensors are missing; the caller degrades gracefully.
type Source interface {
	Start() error
	Stop()
}

// Estimator buffers gravity-projected vertical acceleration and computes a
// calibrated IRI per drained segment. The raw buffer has its own lock: it
// is written from a high-frequency sensor callback and drained from the
// scheduler's control loop.
type Estimator struct {
	config *params.RoughnessConfig
	source Source // optional

	bufMu   sync.Mutex
	buf     []motion.VerticalSample
	gravity motion.GravitySample
	haveG   bool

	stateMu     sync.Mutex
	listening   bool
	calibration float64
	calibrated  bool
	band        *cascade
}

func NewEstimator(config *params.RoughnessConfig, source Source) *Estimator {
	if config == nil {
		config = params.DefaultRoughnessConfig
	}
	return &Estimator{
		config:      config,
		source:      source,
		buf:         make([]motion.VerticalSample, 0, 4096),
		calibration: config.DefaultCalibrationFactor,
		band:        newCascade(config.HighPassCutoff, config.LowPassCutoff, config.SampleRate),
	}
}

// StartListening begins buffering. Returns false when the motion source is
// unavailable; roughness is then simply not produced this session.
func (e *Estimator) StartListening() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.listening {
		return true
	}
	if e.source != nil {
		if err := e.source.Start(); err != nil {
			slog.Warn("Motion source unavailable", "error", err)
			return false
		}
	}
	e.listening = true
	return true
}

// StopListening releases the sensor and clears all per-session state.
// Safe to call mid-computation; a drain in progress finishes on its own
// snapshot.
func (e *Estimator) StopListening() {
	e.stateMu.Lock()
	if !e.listening {
		e.stateMu.Unlock()
		return
	}
	e.listening = false
	if e.source != nil {
		e.source.Stop()
	}
	e.stateMu.Unlock()

	e.bufMu.Lock()
	e.buf = e.buf[:0]
	e.haveG = false
	e.bufMu.Unlock()
}

// IngestGravity updates the gravity axis used to project acceleration.
func (e *Estimator) IngestGravity(g motion.GravitySample) {
	e.bufMu.Lock()
	e.gravity = g
	e.haveG = true
	e.bufMu.Unlock()
}

// IngestAcceleration projects one acceleration sample onto the current
// gravity axis and buffers it. Samples without a valid gravity vector are
// dropped, not buffered; an assumed axis would corrupt calibration on
// devices mounted at an angle.
func (e *Estimator) IngestAcceleration(a motion.AccelerationSample) {
	e.stateMu.Lock()
	listening := e.listening
	e.stateMu.Unlock()
	if !listening {
		return
	}

	e.bufMu.Lock()
	defer e.bufMu.Unlock()
	if !e.haveG {
		return
	}
	v, ok := motion.Vertical(a, e.gravity)
	if !ok {
		return
	}
	if len(e.buf) >= maxRawBuffer {
		e.buf = e.buf[1:]
	}
	e.buf = append(e.buf, v)
}

// Ingest is IngestGravity followed by IngestAcceleration, for sources that
// deliver the pair together.
func (e *Estimator) Ingest(a motion.AccelerationSample, g motion.GravitySample) {
	e.IngestGravity(g)
	e.IngestAcceleration(a)
}

// RawLen reports the buffered raw sample count.
func (e *Estimator) RawLen() int {
	e.bufMu.Lock()
	defer e.bufMu.Unlock()
	return len(e.buf)
}

// UpdateCalibration installs a deployment calibration factor. Until one is
// installed, ComputeAndClear refuses to produce results.
func (e *Estimator) UpdateCalibration(factor float64) {
	if !common.IsFinite(factor) || factor <= 0 {
		slog.Warn("Ignoring invalid calibration factor", "factor", factor)
		return
	}
	e.stateMu.Lock()
	e.calibration = factor
	e.calibrated = true
	e.stateMu.Unlock()
}

func (e *Estimator) Calibrated() bool {
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	return e.calibrated
}

// ComputeAndClear closes out one road segment. The validation order is a
// hard contract:
//
//  1. Uncalibrated: refuse without touching the buffer.
//  2. Segment outside the distance/speed envelope: refuse without draining,
//     the caller may retry with a corrected segment.
//  3. Snapshot and clear the buffer atomically; from here on the data is
//     spent whether or not a result comes out.
func (e *Estimator) ComputeAndClear(avgSpeedKmh, distanceMeters float64) (roughness.IriResult, bool) {
	e.stateMu.Lock()
	calibrated := e.calibrated
	factor := e.calibration
	e.stateMu.Unlock()

	if !calibrated {
		slog.Debug("Roughness skipped, uncalibrated")
		return roughness.IriResult{}, false
	}

	if distanceMeters < e.config.MinSegmentDistance ||
		avgSpeedKmh < e.config.MinSpeedKmh || avgSpeedKmh > e.config.MaxSpeedKmh ||
		!common.IsFinite(avgSpeedKmh) || !common.IsFinite(distanceMeters) {
		return roughness.IriResult{}, false
	}

	e.bufMu.Lock()
	raw := make([]motion.VerticalSample, len(e.buf))
	copy(raw, e.buf)
	e.buf = e.buf[:0]
	e.bufMu.Unlock()

	if len(raw) < e.config.MinRawSamples {
		return roughness.IriResult{}, false
	}

	// No energy may leak from the previous segment.
	e.stateMu.Lock()
	e.band.reset()

	speedMps := avgSpeedKmh / common.KmhPerMps
	spatial := resampleSpatial(raw, speedMps, e.config.SpatialResolution, e.config.FrameDropWindow)

	expected := distanceMeters / e.config.SpatialResolution
	coverage := float64(len(spatial)) / expected
	if coverage < e.config.MinSpatialCoverage {
		e.stateMu.Unlock()
		slog.Debug("Roughness skipped, sparse segment",
			"spatial", len(spatial), "expected", expected)
		return roughness.IriResult{}, false
	}

	filtered := e.band.run(spatial)
	e.stateMu.Unlock()

	squared := make([]float64, len(filtered))
	for i, v := range filtered {
		squared[i] = v * v
	}
	meanSq, err := stats.Mean(stats.Float64Data(squared))
	if err != nil {
		return roughness.IriResult{}, false
	}
	rms := math.Sqrt(meanSq)

	iriValue := common.Clamp(rms*factor, 0, e.config.IriMax)

	quality := coverage
	if avgSpeedKmh < e.config.QualitySpeedMin || avgSpeedKmh > e.config.QualitySpeedMax {
		quality *= 0.8
	}
	quality = common.Clamp(quality, 0.1, 1.0)

	return roughness.IriResult{
		Iri:            iriValue,
		Quality:        float32(quality),
		SpatialSamples: len(spatial),
		DistanceMeters: distanceMeters,
		AvgSpeedKmh:    avgSpeedKmh,
		Rating:         roughness.RatingForIri(iriValue),
		UnixNanos:      raw[len(raw)-1].UnixNanos,
	}, true
}

// Rms computes the uncalibrated band-passed RMS of the current buffer
// without clearing it or requiring calibration. Calibration tooling uses it
// to solve factor = referenceIri / rms.
func (e *Estimator) Rms(avgSpeedKmh float64) (float64, bool) {
	e.bufMu.Lock()
	raw := make([]motion.VerticalSample, len(e.buf))
	copy(raw, e.buf)
	e.bufMu.Unlock()

	if len(raw) < e.config.MinRawSamples || avgSpeedKmh <= 0 {
		return 0, false
	}

	e.stateMu.Lock()
	e.band.reset()
	spatial := resampleSpatial(raw, avgSpeedKmh/common.KmhPerMps, e.config.SpatialResolution, e.config.FrameDropWindow)
	filtered := e.band.run(spatial)
	e.stateMu.Unlock()

	if len(filtered) == 0 {
		return 0, false
	}
	sum := 0.0
	for _, v := range filtered {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(filtered))), true
}
