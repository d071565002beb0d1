/*
Package scheduler fires distance-indexed triggers off a cumulative-distance
signal: a photo-capture trigger with speed prediction and backpressure, and
a roughness-segment trigger. The two triggers are independent state machines
sharing only the distance snapshot.
*/
package scheduler

import (
	"log/slog"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/metrics"
	"github.com/roadmetrics/surveyd/params"
)

// CaptureRequest asks the photo service for one geo-indexed capture.
type CaptureRequest struct {
	// Seq identifies the request for completion matching; a stale
	// completion is a no-op.
	Seq uint64

	// Distance is the cumulative meters at fire time.
	Distance float64

	// Predicted marks a fire scheduled by the high-speed timer rather than
	// a distance tick.
	Predicted bool
}

// RoughnessRequest asks the estimator to close out one road segment.
type RoughnessRequest struct {
	// SegmentDistance is the actual elapsed distance; it may exceed the
	// nominal interval.
	SegmentDistance float64

	// AvgSpeed is the mean speed over the segment, m/s.
	AvgSpeed float64
}

// Checkpoint is the scheduler's shared state between the capture path and
// the roughness path.
type Checkpoint struct {
	LastCaptureDistance float64 `json:"last_capture_distance"`
	LastIriDistance     float64 `json:"last_iri_distance"`
	InFlight            bool    `json:"in_flight"`
	RetryCount          int     `json:"retry_count"`
}

type Scheduler struct {
	mu     sync.Mutex
	config *params.SchedulerConfig

	cp       Checkpoint
	seq      uint64
	distance float64 // latest cumulative snapshot
	speed    float64 // latest instantaneous speed

	// captureDue marks a trigger owed while a capture was in flight.
	captureDue bool

	// predictedAt is the high-speed timer deadline; zero when disarmed.
	predictedAt time.Time

	// lastUpdateAt bounds how long the timer may extrapolate without a
	// fresh distance update.
	lastUpdateAt time.Time

	// Segment speed accounting for the roughness trigger.
	segSpeedSum float64
	segSpeedN   int

	now func() time.Time

	reg         metrics.Registry
	fired       metrics.Counter
	skipped     metrics.Counter
	forceClears metrics.Counter
}

func NewScheduler(config *params.SchedulerConfig) *Scheduler {
	if config == nil {
		config = params.DefaultSchedulerConfig
	}
	metrics.Enabled = true
	reg := metrics.NewRegistry()
	s := &Scheduler{
		config:      config,
		now:         time.Now,
		reg:         reg,
		fired:       metrics.NewCounter(),
		skipped:     metrics.NewCounter(),
		forceClears: metrics.NewCounter(),
	}
	if err := reg.Register("capture.fired", s.fired); err != nil {
		panic(err)
	}
	if err := reg.Register("capture.skipped", s.skipped); err != nil {
		panic(err)
	}
	if err := reg.Register("capture.forceclear", s.forceClears); err != nil {
		panic(err)
	}
	return s
}

// SetNowFunc overrides the clock, for tests.
func (s *Scheduler) SetNowFunc(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Update folds one distance tick into both triggers. Either request may be
// nil; both may fire on the same tick.
func (s *Scheduler) Update(cumulativeMeters, instantaneousSpeed float64) (*CaptureRequest, *RoughnessRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.distance = cumulativeMeters
	s.speed = instantaneousSpeed
	s.lastUpdateAt = s.now()
	s.segSpeedSum += instantaneousSpeed
	s.segSpeedN++

	capture := s.updateCapture()
	rough := s.updateRoughness()
	return capture, rough
}

func (s *Scheduler) updateCapture() *CaptureRequest {
	gap := s.distance - s.cp.LastCaptureDistance

	// Anomaly: a huge jump in one update (suspend/resume, tunnel exit) snaps
	// the ruler forward rather than firing a burst of catch-up captures.
	if gap > s.config.AnomalyGapDistance {
		slog.Warn("Capture ruler snapped over anomalous gap", "gap", gap)
		s.cp.LastCaptureDistance = s.distance
		s.captureDue = false
		s.predictedAt = time.Time{}
		return nil
	}

	if s.speed > s.config.HighSpeedThreshold {
		// Prediction mode. GPS ticks cannot keep up with sub-second capture
		// intervals, so arm a timer; Poll fires it.
		if s.predictedAt.IsZero() {
			s.predictedAt = s.now().Add(s.predictedDelay())
		}
		return nil
	}
	s.predictedAt = time.Time{}

	if gap < s.config.CaptureInterval {
		return nil
	}
	if s.cp.InFlight {
		// Backpressure: Poll pays the retry budget.
		s.captureDue = true
		return nil
	}
	// Advance by exactly one interval, not to the current distance, so a
	// momentary backlog is paid down one interval per tick, never skipped.
	s.cp.LastCaptureDistance += s.config.CaptureInterval
	s.captureDue = false
	return s.fireLocked(false)
}

func (s *Scheduler) updateRoughness() *RoughnessRequest {
	seg := s.distance - s.cp.LastIriDistance
	if seg < s.config.RoughnessInterval {
		return nil
	}
	avg := s.speed
	if s.segSpeedN > 0 {
		avg = s.segSpeedSum / float64(s.segSpeedN)
	}
	// Overshoot is absorbed: a roughness segment is an aggregate, not a
	// discrete event, so the ruler snaps to the current distance.
	s.cp.LastIriDistance = s.distance
	s.segSpeedSum, s.segSpeedN = 0, 0
	return &RoughnessRequest{SegmentDistance: seg, AvgSpeed: avg}
}

// Poll drives the timer-and-retry half of the capture trigger. The control
// loop calls it every PollInterval.
func (s *Scheduler) Poll() *CaptureRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	due := s.captureDue
	predicted := false
	if !s.predictedAt.IsZero() {
		// The timer extrapolates travel from the last distance update. Once
		// that update goes stale (pause, tunnel), the extrapolation is
		// fiction; disarm instead of firing against it.
		if s.now().Sub(s.lastUpdateAt) > s.config.PredictionStaleness {
			slog.Debug("Prediction timer disarmed, stale distance signal",
				"age", s.now().Sub(s.lastUpdateAt))
			s.predictedAt = time.Time{}
		} else if !s.now().Before(s.predictedAt) {
			due = true
			predicted = true
		}
	}
	if !due {
		return nil
	}

	if s.cp.InFlight {
		s.cp.RetryCount++
		if s.cp.RetryCount < s.config.RetryBudget {
			return nil
		}
		// The capture callback is lost or wedged. Sacrifice the overdue
		// photo rather than stalling the pipeline.
		slog.Warn("Capture force-cleared after retry budget",
			"retries", s.cp.RetryCount, "distance", s.distance)
		s.forceClears.Inc(1)
		s.skipped.Inc(1)
		s.cp.InFlight = false
		s.cp.RetryCount = 0
		s.cp.LastCaptureDistance = s.distance
		s.captureDue = false
		s.predictedAt = time.Time{}
		return nil
	}

	s.cp.LastCaptureDistance += s.config.CaptureInterval
	s.captureDue = false
	if predicted {
		// Re-arm while still fast; the next Update refreshes the speed.
		if s.speed > s.config.HighSpeedThreshold {
			s.predictedAt = s.now().Add(s.predictedDelay())
		} else {
			s.predictedAt = time.Time{}
		}
	}
	return s.fireLocked(predicted)
}

func (s *Scheduler) fireLocked(predicted bool) *CaptureRequest {
	s.seq++
	s.cp.InFlight = true
	s.cp.RetryCount = 0
	s.fired.Inc(1)
	return &CaptureRequest{
		Seq:       s.seq,
		Distance:  s.distance,
		Predicted: predicted,
	}
}

func (s *Scheduler) predictedDelay() time.Duration {
	d := time.Duration(s.config.CaptureInterval / s.speed * float64(time.Second))
	if d < s.config.MinPredictedDelay {
		d = s.config.MinPredictedDelay
	}
	return d
}

// CaptureCompleted clears the in-flight flag for the given request. Called
// on both success and failure. A stale or already-cleared completion is a
// no-op.
func (s *Scheduler) CaptureCompleted(seq uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if seq != s.seq || !s.cp.InFlight {
		return
	}
	s.cp.InFlight = false
	s.cp.RetryCount = 0
}

func (s *Scheduler) Checkpoint() Checkpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cp
}

// Reset returns both rulers and the backpressure state to zero.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cp = Checkpoint{}
	s.captureDue = false
	s.predictedAt = time.Time{}
	s.lastUpdateAt = time.Time{}
	s.segSpeedSum, s.segSpeedN = 0, 0
	s.distance, s.speed = 0, 0
}

// Fired, Skipped, and ForceCleared expose trigger counters.
func (s *Scheduler) Fired() int64        { return s.fired.Snapshot().Count() }
func (s *Scheduler) Skipped() int64      { return s.skipped.Snapshot().Count() }
func (s *Scheduler) ForceCleared() int64 { return s.forceClears.Snapshot().Count() }
