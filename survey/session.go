/*
Package survey runs a road-survey session: it owns the control loop that
turns raw position and motion streams into cumulative distance, photo
triggers, and roughness segments.
*/
package survey

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/roadmetrics/surveyd/common"
	"github.com/roadmetrics/surveyd/events"
	"github.com/roadmetrics/surveyd/geo/odometer"
	"github.com/roadmetrics/surveyd/geo/posfilter"
	"github.com/roadmetrics/surveyd/iri"
	"github.com/roadmetrics/surveyd/params"
	"github.com/roadmetrics/surveyd/scheduler"
	"github.com/roadmetrics/surveyd/types/gps"
	"github.com/roadmetrics/surveyd/types/motion"
	"github.com/roadmetrics/surveyd/types/roughness"
)

// PhotoHandle identifies a captured photo in the surrounding application.
type PhotoHandle string

// CaptureService is the outbound photo boundary. RequestCapture blocks
// until the capture settles; the session calls it off the control loop and
// reports completion to the scheduler, so a busy service translates into
// scheduler backpressure, never into a stalled pipeline.
type CaptureService interface {
	RequestCapture(ctx context.Context, req scheduler.CaptureRequest) (PhotoHandle, error)
}

// CaptureRecord is the metadata handed to the persistence sink per photo.
type CaptureRecord struct {
	Handle   PhotoHandle
	Position gps.FilteredPosition
	Distance float64
}

// RoughnessSink receives each computed segment.
type RoughnessSink interface {
	OnRoughness(roughness.IriResult)
}

// PersistenceSink receives captured-photo metadata.
type PersistenceSink interface {
	OnCapture(CaptureRecord)
}

type Config struct {
	Filter    *params.PositionFilterConfig
	Odometer  *params.OdometerConfig
	Scheduler *params.SchedulerConfig
	Roughness *params.RoughnessConfig

	// Capture may be nil; triggers then complete immediately (dry run).
	Capture CaptureService

	// MotionSource may be nil when the caller pushes samples itself
	// (replay, tests).
	MotionSource iri.Source

	// Sinks may be nil; the events feeds fire regardless.
	RoughnessSink   RoughnessSink
	PersistenceSink PersistenceSink

	// PositionBuffer bounds the inbound fix queue. Fixes beyond it are
	// dropped, not blocked on; the sensor callback must never stall.
	PositionBuffer int
}

type Session struct {
	config Config

	filter *posfilter.Filter
	odo    *odometer.Odometer
	sched  *scheduler.Scheduler
	est    *iri.Estimator

	positions chan gps.RawPosition

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	running bool
}

func NewSession(config Config) *Session {
	if config.PositionBuffer <= 0 {
		config.PositionBuffer = 32
	}
	return &Session{
		config:    config,
		filter:    posfilter.NewFilter(config.Filter),
		odo:       odometer.NewOdometer(config.Odometer),
		sched:     scheduler.NewScheduler(config.Scheduler),
		est:       iri.NewEstimator(config.Roughness, config.MotionSource),
		positions: make(chan gps.RawPosition, config.PositionBuffer),
	}
}

// Estimator exposes the roughness estimator for calibration tooling.
func (s *Session) Estimator() *iri.Estimator { return s.est }

// Scheduler exposes the trigger state, mainly for checkpointing.
func (s *Session) Scheduler() *scheduler.Scheduler { return s.sched }

func (s *Session) CumulativeMeters() float64 { return s.odo.CumulativeMeters() }

// Start resets all per-session state and begins the control loop.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return nil
	}

	s.filter.Reset()
	s.sched.Reset()
	s.odo.Start()
	if !s.est.StartListening() {
		// Degrade: distance and captures still work without roughness.
		slog.Warn("Session running without roughness estimation")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.running = true
	go s.run(ctx)
	slog.Info("Survey session started")
	return nil
}

// Stop cancels the control loop, releases sensors, and freezes the
// odometer. Safe to call with a capture or computation mid-flight; late
// completions are no-ops.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.cancel()
	done := s.done
	s.mu.Unlock()

	<-done
	s.est.StopListening()
	s.odo.Stop()
	slog.Info("Survey session stopped",
		"distance", s.odo.CumulativeMeters(),
		"captures", s.sched.Fired(),
		"skipped", s.sched.Skipped())
}

func (s *Session) Pause()  { s.odo.Pause() }
func (s *Session) Resume() { s.odo.Resume() }

// OnPosition enqueues one raw fix. Never blocks; when the loop is behind,
// the fix is dropped and the filter catches up on the next one.
func (s *Session) OnPosition(p gps.RawPosition) {
	if !p.IsValid() {
		slog.Debug("Dropping invalid raw fix")
		return
	}
	select {
	case s.positions <- p:
	default:
		slog.Warn("Position queue full, dropping fix")
	}
}

// OnAcceleration and OnGravity go straight to the estimator's own lock;
// they are called at sensor rate and must not touch the control loop.
func (s *Session) OnAcceleration(a motion.AccelerationSample) { s.est.IngestAcceleration(a) }
func (s *Session) OnGravity(g motion.GravitySample)           { s.est.IngestGravity(g) }

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	cfg := s.config.Scheduler
	if cfg == nil {
		cfg = params.DefaultSchedulerConfig
	}
	ticker := time.NewTicker(cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case p := <-s.positions:
			s.handlePosition(ctx, p)
		case <-ticker.C:
			// Only a recording odometer moves the ruler; polling while
			// paused would fire predicted captures against frozen distance.
			if s.odo.State() != odometer.Recording {
				continue
			}
			if req := s.sched.Poll(); req != nil {
				s.dispatchCapture(ctx, *req)
			}
		}
	}
}

func (s *Session) handlePosition(ctx context.Context, p gps.RawPosition) {
	s.filter.ProcessSample(p)
	if !s.filter.Initialized() {
		return
	}
	est := s.filter.Estimate()
	s.odo.Feed(est)
	events.FilteredPositionFeed.Send(est)

	if s.odo.State() != odometer.Recording {
		return
	}

	capture, rough := s.sched.Update(s.odo.CumulativeMeters(), est.Speed)
	if capture != nil {
		s.dispatchCapture(ctx, *capture)
	}
	if rough != nil {
		s.dispatchRoughness(*rough)
	}
}

func (s *Session) dispatchCapture(ctx context.Context, req scheduler.CaptureRequest) {
	events.CaptureRequestFeed.Send(req)

	if s.config.Capture == nil {
		s.sched.CaptureCompleted(req.Seq)
		return
	}

	position := s.odo.LastSeen()
	go func() {
		handle, err := s.config.Capture.RequestCapture(ctx, req)
		s.sched.CaptureCompleted(req.Seq)
		if err != nil {
			slog.Debug("Capture failed", "seq", req.Seq, "error", err)
			return
		}
		if ctx.Err() != nil {
			// Completed after session stop; drop it.
			return
		}
		if s.config.PersistenceSink != nil {
			s.config.PersistenceSink.OnCapture(CaptureRecord{
				Handle:   handle,
				Position: position,
				Distance: req.Distance,
			})
		}
	}()
}

func (s *Session) dispatchRoughness(req scheduler.RoughnessRequest) {
	res, ok := s.est.ComputeAndClear(req.AvgSpeed*common.KmhPerMps, req.SegmentDistance)
	if !ok {
		return
	}
	events.RoughnessFeed.Send(res)
	if s.config.RoughnessSink != nil {
		s.config.RoughnessSink.OnRoughness(res)
	}
}
