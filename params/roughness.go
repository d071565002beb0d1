package params

import "time"

type RoughnessConfig struct {
	// SampleRate is the nominal accelerometer rate (Hz) the filter
	// coefficients are parameterized at.
	SampleRate float64

	// SpatialResolution is the resampling grid spacing (m). Roughness is a
	// property of the road, not of elapsed time.
	SpatialResolution float64

	// FrameDropWindow is the gap between raw samples beyond which the
	// interval is skipped during resampling rather than interpolated across.
	FrameDropWindow time.Duration

	// HighPassCutoff removes vehicle-body motion and sensor bias (Hz).
	HighPassCutoff float64

	// LowPassCutoff removes electrical noise above pavement-texture
	// frequencies (Hz).
	LowPassCutoff float64

	// MinSegmentDistance and the speed envelope bound the computation; a
	// segment outside them yields no result, which is routine, not an error.
	MinSegmentDistance float64
	MinSpeedKmh        float64
	MaxSpeedKmh        float64

	// MinRawSamples is the fewest buffered samples worth filtering.
	MinRawSamples int

	// MinSpatialCoverage is the fraction of the theoretically expected
	// spatial samples below which the segment is too sparse to report.
	MinSpatialCoverage float64

	// IriMax clamps the reported IRI (mm/m).
	IriMax float64

	// QualitySpeedMin and QualitySpeedMax bound the speed band (km/h) inside
	// which the quality index is not derated.
	QualitySpeedMin float64
	QualitySpeedMax float64

	// DefaultCalibrationFactor marks an uncalibrated estimator. Computation
	// is refused until a deployment-specific factor replaces it.
	DefaultCalibrationFactor float64
}

var DefaultRoughnessConfig = &RoughnessConfig{
	SampleRate:               50.0,
	SpatialResolution:        0.1,
	FrameDropWindow:          time.Second,
	HighPassCutoff:           0.5,
	LowPassCutoff:            15.0,
	MinSegmentDistance:       10.0,
	MinSpeedKmh:              5.0,
	MaxSpeedKmh:              140.0,
	MinRawSamples:            20,
	MinSpatialCoverage:       0.5,
	IriMax:                   20.0,
	QualitySpeedMin:          30.0,
	QualitySpeedMax:          80.0,
	DefaultCalibrationFactor: 1.0,
}
