package params

import "time"

type SchedulerConfig struct {
	// CaptureInterval is the photo ruler spacing (m).
	CaptureInterval float64

	// HighSpeedThreshold is the speed (m/s) above which the capture trigger
	// switches from distance polling to timer prediction. GPS refresh cannot
	// keep up with sub-second capture intervals at highway speed.
	HighSpeedThreshold float64

	// MinPredictedDelay floors the predicted inter-capture delay.
	MinPredictedDelay time.Duration

	// PollInterval is the control-loop cadence for backpressure retries.
	PollInterval time.Duration

	// RetryBudget is the number of polls an overdue capture waits on a busy
	// capture service before the scheduler force-clears the in-flight flag
	// and abandons the photo.
	RetryBudget int

	// AnomalyGapDistance is the per-update distance jump (m) beyond which
	// the ruler snaps to the current distance instead of firing a burst of
	// catch-up captures (process suspend/resume, tunnel exit).
	AnomalyGapDistance float64

	// PredictionStaleness is the age of the last distance update beyond
	// which the high-speed timer disarms instead of firing. A prediction is
	// an extrapolation of the distance signal; without fresh updates the
	// extrapolated travel is fiction.
	PredictionStaleness time.Duration

	// RoughnessInterval is the roughness segment spacing (m).
	RoughnessInterval float64
}

var DefaultSchedulerConfig = &SchedulerConfig{
	CaptureInterval:     10.0,
	HighSpeedThreshold:  10.0,
	MinPredictedDelay:   200 * time.Millisecond,
	PollInterval:        50 * time.Millisecond,
	RetryBudget:         40,
	AnomalyGapDistance:  100.0,
	PredictionStaleness: 3 * time.Second,
	RoughnessInterval:   50.0,
}
