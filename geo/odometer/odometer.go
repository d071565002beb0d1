/*
Package odometer maintains a monotonically increasing cumulative distance
over a smoothed position stream, rejecting stationary drift, signal-loss
gaps, and single-fix flyers.
*/
package odometer

import (
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb/geo"
	"github.com/roadmetrics/surveyd/params"
	"github.com/roadmetrics/surveyd/types/gps"
)

type State int

const (
	Idle State = iota
	Recording
	Paused
)

// String implements the Stringer interface.
func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Recording:
		return "Recording"
	case Paused:
		return "Paused"
	}
	return "Invalid"
}

// Odometer is a session-scoped distance accumulator. Idle -> Recording <->
// Paused -> Idle; distance moves only while Recording.
type Odometer struct {
	mu     sync.Mutex
	config *params.OdometerConfig

	state      State
	cumulative float64

	last     gps.FilteredPosition
	haveLast bool
	warmup   int

	// lastSeen tracks the position view regardless of state, so a paused
	// session still knows where it is.
	lastSeen gps.FilteredPosition
}

func NewOdometer(config *params.OdometerConfig) *Odometer {
	if config == nil {
		config = params.DefaultOdometerConfig
	}
	return &Odometer{config: config}
}

// Start zeroes the distance and begins recording. Early fixes are unstable,
// so a warm-up's worth of accepted samples is consumed without accumulating.
func (o *Odometer) Start() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Recording
	o.cumulative = 0
	o.haveLast = false
	o.warmup = o.config.WarmupSamples
	slog.Info("Odometer started", "warmup", o.warmup)
}

// Pause suspends accumulation without losing the session total.
func (o *Odometer) Pause() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Recording {
		o.state = Paused
	}
}

// Resume drops the pre-pause reference so the jump from the pause point is
// not counted, then continues. No warm-up; the filter is already settled.
func (o *Odometer) Resume() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == Paused {
		o.state = Recording
		o.haveLast = false
	}
}

func (o *Odometer) Stop() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = Idle
	o.haveLast = false
	slog.Info("Odometer stopped", "cumulative", o.cumulative)
}

func (o *Odometer) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Odometer) CumulativeMeters() float64 {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.cumulative
}

// LastSeen returns the most recent position fed, in any state.
func (o *Odometer) LastSeen() gps.FilteredPosition {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastSeen
}

// Feed folds one smoothed position into the accumulator.
func (o *Odometer) Feed(p gps.FilteredPosition) {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.lastSeen = p

	if o.state != Recording {
		return
	}

	// Stationary drift never accumulates.
	if p.Speed >= 0 && p.Speed < o.config.StationarySpeed {
		return
	}

	if !o.haveLast {
		o.last = p
		o.haveLast = true
		return
	}

	elapsed := time.Duration(p.UnixNanos-o.last.UnixNanos) * time.Nanosecond
	if elapsed <= 0 {
		return
	}

	// Signal loss is not travel. Re-baseline and warm back up.
	if elapsed > o.config.RebaselineWindow {
		o.last = p
		o.warmup = o.config.WarmupSamples
		slog.Debug("Odometer re-baselined after gap", "gap", elapsed)
		return
	}

	d := geo.Distance(o.last.Point(), p.Point())

	// A flyer: the implied speed is implausible and the reported speed does
	// not corroborate it.
	implied := d / elapsed.Seconds()
	if implied > o.config.FlyerSpeed && implied > p.Speed*o.config.FlyerSpeedFactor {
		slog.Debug("Odometer rejected flyer", "implied", implied, "reported", p.Speed, "distance", d)
		return
	}

	if d > o.config.MinStepDistance {
		if o.warmup > 0 {
			o.warmup--
		} else {
			o.cumulative += d
		}
		o.last = p
	}
}
