/*
Package posfilter smooths a raw GPS fix stream with a per-axis scalar Kalman
filter over a locally-flattened east/north plane.
*/
package posfilter

import (
	"log/slog"
	"math"
	"sync"

	"github.com/roadmetrics/surveyd/common"
	"github.com/roadmetrics/surveyd/params"
	"github.com/roadmetrics/surveyd/types/gps"
)

// Filter owns all smoothing state for one session. It is safe for
// concurrent use; updates are serialized, never interleaved mid-computation.
type Filter struct {
	mu     sync.Mutex
	config *params.PositionFilterConfig

	initialized bool

	// Reference origin of the local east/north plane, degrees.
	refLat, refLng  float64
	metersPerDegLng float64 // at refLat

	// State: meters east (x) and north (y) of the reference origin.
	x, y     float64
	variance float64

	// travelSinceRef is cumulative local-frame displacement, which bounds
	// the flat-earth projection error via reference migration.
	travelSinceRef float64

	speed, bearing float64
	lastUnixNanos  int64
}

func NewFilter(config *params.PositionFilterConfig) *Filter {
	if config == nil {
		config = params.DefaultPositionFilterConfig
	}
	return &Filter{config: config}
}

// Process folds one raw fix into the estimate. Invalid fixes (non-finite or
// non-positive accuracy, out-of-order timestamps) are dropped.
func (f *Filter) Process(lat, lng, accuracy float64, unixNanos int64, speedHint float64) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !common.IsFinite(lat) || !common.IsFinite(lng) || !common.IsFinite(accuracy) || accuracy <= 0 {
		slog.Debug("Dropping invalid fix", "lat", lat, "lng", lng, "accuracy", accuracy)
		return
	}
	if f.initialized && unixNanos <= f.lastUnixNanos {
		slog.Debug("Dropping out-of-order fix", "t", unixNanos, "last", f.lastUnixNanos)
		return
	}

	accuracy = common.Clamp(accuracy, f.config.AccuracyMin, f.config.AccuracyMax)

	if !f.initialized {
		f.initialize(lat, lng, accuracy, unixNanos)
		return
	}

	dt := float64(unixNanos-f.lastUnixNanos) / 1e9

	// Signal loss. Predicting across a long gap explodes the variance and
	// snaps the estimate on reacquisition; start over instead.
	if dt > f.config.SignalLossWindow.Seconds() {
		f.initialize(lat, lng, accuracy, unixNanos)
		return
	}

	// Measurement in the local plane.
	mx := (lng - f.refLng) * f.metersPerDegLng
	my := (lat - f.refLat) * common.MetersPerDegreeLat

	// Predict.
	q := f.processNoise(speedHint)
	f.variance = math.Min(f.variance+(q*dt)*(q*dt), f.config.MaxVariance)

	// Update, one scalar gain shared by the axis pair.
	gain := f.variance / (f.variance + accuracy*accuracy)
	prevX, prevY := f.x, f.y
	f.x += gain * (mx - f.x)
	f.y += gain * (my - f.y)
	f.variance = math.Max((1-gain)*f.variance, f.config.MinVariance)

	dx, dy := f.x-prevX, f.y-prevY
	step := math.Hypot(dx, dy)
	f.travelSinceRef += step

	if speedHint >= 0 && common.IsFinite(speedHint) {
		f.speed = speedHint
	} else if dt > 0 {
		f.speed = step / dt
	}
	if step > 0 {
		f.bearing = math.Mod(math.Atan2(dx, dy)*180/math.Pi+360, 360)
	}
	f.lastUnixNanos = unixNanos

	if f.travelSinceRef > f.config.ReferenceMigrationDistance {
		f.migrateReference()
	}
}

// ProcessSample is Process for a RawPosition.
func (f *Filter) ProcessSample(p gps.RawPosition) {
	speed := gps.SpeedUnknown
	if p.HasSpeed() {
		speed = p.Speed
	}
	f.Process(p.Lat, p.Lng, p.Accuracy, p.UnixNanos, speed)
}

func (f *Filter) initialize(lat, lng, accuracy float64, unixNanos int64) {
	f.refLat, f.refLng = lat, lng
	f.metersPerDegLng = common.MetersPerDegreeLngEquator * math.Cos(lat*math.Pi/180)
	f.x, f.y = 0, 0
	f.variance = common.Clamp(accuracy*accuracy, f.config.MinVariance, f.config.MaxVariance)
	f.travelSinceRef = 0
	f.speed, f.bearing = 0, 0
	f.lastUnixNanos = unixNanos
	f.initialized = true
}

// migrateReference re-seats the origin on the current estimate, zeroing the
// local state while preserving variance. Bounds the small-angle projection
// error that grows with distance from the origin.
func (f *Filter) migrateReference() {
	lat := f.refLat + f.y/common.MetersPerDegreeLat
	lng := f.refLng + f.x/f.metersPerDegLng
	f.refLat, f.refLng = lat, lng
	f.metersPerDegLng = common.MetersPerDegreeLngEquator * math.Cos(lat*math.Pi/180)
	f.x, f.y = 0, 0
	f.travelSinceRef = 0
	slog.Debug("Migrated filter reference origin", "lat", lat, "lng", lng)
}

// processNoise scales the base Q by speed band. GPS error characteristics
// differ between a parked car and highway driving.
func (f *Filter) processNoise(speed float64) float64 {
	base := f.config.BaseProcessNoise
	switch {
	case speed < 0 || !common.IsFinite(speed):
		return base
	case speed < 1:
		return 0.3 * base
	case speed <= 8:
		return base
	case speed <= 15:
		return 1.2 * base
	default:
		return 1.8 * base
	}
}

func (f *Filter) Lat() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return 0
	}
	return f.refLat + f.y/common.MetersPerDegreeLat
}

func (f *Filter) Lng() float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return 0
	}
	return f.refLng + f.x/f.metersPerDegLng
}

func (f *Filter) Initialized() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.initialized
}

// Estimate snapshots the current smoothed position.
func (f *Filter) Estimate() gps.FilteredPosition {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.initialized {
		return gps.FilteredPosition{}
	}
	return gps.FilteredPosition{
		Lat:       f.refLat + f.y/common.MetersPerDegreeLat,
		Lng:       f.refLng + f.x/f.metersPerDegLng,
		Speed:     f.speed,
		Bearing:   f.bearing,
		Variance:  f.variance,
		UnixNanos: f.lastUnixNanos,
	}
}

// Reset clears all session state. The next fix reinitializes the filter.
func (f *Filter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.initialized = false
	f.refLat, f.refLng, f.metersPerDegLng = 0, 0, 0
	f.x, f.y, f.variance = 0, 0, 0
	f.travelSinceRef = 0
	f.speed, f.bearing = 0, 0
	f.lastUnixNanos = 0
}
