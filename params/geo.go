package params

import "time"

type PositionFilterConfig struct {
	// BaseProcessNoise is the process-noise magnitude Q at ordinary driving
	// speed, in meters per second of state drift. The filter scales it by
	// speed band before use.
	BaseProcessNoise float64

	// MinVariance and MaxVariance bound the filter's position variance (m^2).
	// The floor keeps the gain from collapsing to zero on a long still stand;
	// the ceiling keeps a reinit or sparse stream from blowing the gain to 1.
	MinVariance float64
	MaxVariance float64

	// SignalLossWindow is the gap between fixes beyond which the filter
	// reinitializes rather than predicts. Predicting across a long gap
	// explodes the variance and produces a visible jump on reacquisition.
	SignalLossWindow time.Duration

	// ReferenceMigrationDistance is the local-frame displacement at which the
	// east/north reference origin is re-seated on the current position. The
	// flat-earth projection error grows with distance from the origin; this
	// bounds it.
	ReferenceMigrationDistance float64

	// AccuracyMin and AccuracyMax clamp the reported fix accuracy (m) before
	// it is used as measurement noise.
	AccuracyMin float64
	AccuracyMax float64
}

var DefaultPositionFilterConfig = &PositionFilterConfig{
	BaseProcessNoise:           0.5,
	MinVariance:                1.0,
	MaxVariance:                10000.0,
	SignalLossWindow:           10 * time.Second,
	ReferenceMigrationDistance: 10000.0,
	AccuracyMin:                1.0,
	AccuracyMax:                200.0,
}

type OdometerConfig struct {
	// StationarySpeed is the reported speed below which a fix is treated as
	// stationary drift and never accumulated.
	StationarySpeed float64

	// MinStepDistance is the smallest accepted step (m). Steps below it are
	// GPS jitter, not travel.
	MinStepDistance float64

	// RebaselineWindow is the gap between accepted fixes beyond which the
	// odometer re-baselines without accumulating; signal loss is not travel.
	RebaselineWindow time.Duration

	// FlyerSpeed is the implied speed (m/s) above which a step is rejected as
	// a single-fix spike, unless the reported GPS speed corroborates it.
	FlyerSpeed float64

	// FlyerSpeedFactor corroborates a fast step: implied speed up to
	// FlyerSpeedFactor times the reported speed is believed.
	FlyerSpeedFactor float64

	// WarmupSamples is the count of accepted fixes consumed without
	// accumulation after start. Early fixes are unstable.
	WarmupSamples int
}

var DefaultOdometerConfig = &OdometerConfig{
	StationarySpeed:  0.5,
	MinStepDistance:  0.5,
	RebaselineWindow: 10 * time.Second,
	FlyerSpeed:       40.0,
	FlyerSpeedFactor: 2.0,
	WarmupSamples:    5,
}
