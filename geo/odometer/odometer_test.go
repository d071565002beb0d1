package odometer

import (
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/roadmetrics/surveyd/params"
	"github.com/roadmetrics/surveyd/types/gps"
)

const nanosPerSec = int64(time.Second)

// walk produces positions moving north at speed m/s, one per second.
func walk(start gps.FilteredPosition, speed float64, n int) []gps.FilteredPosition {
	out := make([]gps.FilteredPosition, 0, n)
	p := start
	for i := 0; i < n; i++ {
		p.Lat += speed / 110540.0
		p.UnixNanos += nanosPerSec
		p.Speed = speed
		out = append(out, p)
	}
	return out
}

func feedAll(o *Odometer, ps []gps.FilteredPosition) {
	for _, p := range ps {
		o.Feed(p)
	}
}

func TestAccumulatesWhileRecording(t *testing.T) {
	o := NewOdometer(nil)
	o.Start()

	start := gps.FilteredPosition{Lat: 46.8, Lng: -113.9, UnixNanos: nanosPerSec}
	feedAll(o, walk(start, 10, 66))

	// 66 steps of ~10 m: one consumed as reference, five for warm-up.
	got := o.CumulativeMeters()
	if got < 580 || got > 620 {
		t.Errorf("cumulative = %v, want ~600", got)
	}
}

func TestMonotonicity(t *testing.T) {
	o := NewOdometer(nil)
	o.Start()

	start := gps.FilteredPosition{Lat: 46.8, Lng: -113.9, UnixNanos: nanosPerSec}
	prev := 0.0
	for _, p := range walk(start, 15, 100) {
		o.Feed(p)
		if d := o.CumulativeMeters(); d < prev {
			t.Fatalf("cumulative decreased: %v -> %v", prev, d)
		} else {
			prev = d
		}
	}
}

func TestDriftRejectionStationary(t *testing.T) {
	o := NewOdometer(nil)
	o.Start()

	// 60 seconds of stationary fixes with a few meters of jitter, reported
	// speed zero.
	rng := rand.New(rand.NewSource(1))
	ts := nanosPerSec
	for i := 0; i < 60; i++ {
		o.Feed(gps.FilteredPosition{
			Lat:       46.8 + (rng.Float64()-0.5)*4/110540.0,
			Lng:       -113.9,
			Speed:     0,
			UnixNanos: ts,
		})
		ts += nanosPerSec
	}
	if d := o.CumulativeMeters(); d > 1 {
		t.Errorf("stationary drift accumulated %v m, want ~0", d)
	}
}

func TestWarmupNotRepeatedOnResume(t *testing.T) {
	o := NewOdometer(nil)
	o.Start()

	start := gps.FilteredPosition{Lat: 46.8, Lng: -113.9, UnixNanos: nanosPerSec}
	route := walk(start, 10, 40)
	feedAll(o, route[:20])
	atPause := o.CumulativeMeters()
	if atPause <= 0 {
		t.Fatal("expected distance before pause")
	}

	o.Pause()
	// Fixes during pause move the view, never the counter.
	feedAll(o, route[20:30])
	if d := o.CumulativeMeters(); d != atPause {
		t.Errorf("paused distance moved: %v -> %v", atPause, d)
	}

	o.Resume()
	feedAll(o, route[30:])
	// Resume drops the reference: the 10-step gap from the pause point is
	// not counted, and there is no fresh warm-up, so 9 steps accumulate.
	got := o.CumulativeMeters() - atPause
	if got < 80 || got > 100 {
		t.Errorf("accumulated %v m after resume, want ~90", got)
	}
}

func TestRebaselineAfterGap(t *testing.T) {
	o := NewOdometer(nil)
	o.Start()

	start := gps.FilteredPosition{Lat: 46.8, Lng: -113.9, UnixNanos: nanosPerSec}
	feedAll(o, walk(start, 10, 10))
	before := o.CumulativeMeters()

	// 30 s hole, then reappear 300 m north. Signal loss is not travel.
	jump := gps.FilteredPosition{
		Lat:       46.8 + (10*10+300)/110540.0,
		Lng:       -113.9,
		Speed:     10,
		UnixNanos: nanosPerSec * 41,
	}
	o.Feed(jump)
	if d := o.CumulativeMeters(); d != before {
		t.Errorf("gap accumulated distance: %v -> %v", before, d)
	}

	// After the re-baseline a fresh warm-up applies.
	after := walk(jump, 10, 8)
	feedAll(o, after)
	got := o.CumulativeMeters() - before
	if got < 25 || got > 35 {
		t.Errorf("accumulated %v m after gap warm-up, want ~30", got)
	}
}

func TestFlyerRejected(t *testing.T) {
	o := NewOdometer(nil)
	o.Start()

	start := gps.FilteredPosition{Lat: 46.8, Lng: -113.9, UnixNanos: nanosPerSec}
	route := walk(start, 10, 10)
	feedAll(o, route)
	before := o.CumulativeMeters()

	// A single-fix spike 500 m away in one second, reported speed still 10.
	last := route[len(route)-1]
	o.Feed(gps.FilteredPosition{
		Lat:       last.Lat + 500/110540.0,
		Lng:       last.Lng,
		Speed:     10,
		UnixNanos: last.UnixNanos + nanosPerSec,
	})
	if d := o.CumulativeMeters(); math.Abs(d-before) > 1e-9 {
		t.Errorf("flyer accumulated: %v -> %v", before, d)
	}

	// The same step is believed when the reported speed corroborates it.
	o.Feed(gps.FilteredPosition{
		Lat:       last.Lat + 1000/110540.0,
		Lng:       last.Lng,
		Speed:     480,
		UnixNanos: last.UnixNanos + 2*nanosPerSec,
	})
	if d := o.CumulativeMeters(); d-before < 900 {
		t.Errorf("corroborated fast step not accumulated: %v -> %v", before, d)
	}
}

func TestIdleNeverAccumulates(t *testing.T) {
	o := NewOdometer(nil)
	start := gps.FilteredPosition{Lat: 46.8, Lng: -113.9, UnixNanos: nanosPerSec}
	feedAll(o, walk(start, 10, 20))
	if d := o.CumulativeMeters(); d != 0 {
		t.Errorf("idle odometer accumulated %v m", d)
	}
	if o.State() != Idle {
		t.Errorf("state = %v, want Idle", o.State())
	}
}

func TestStartZeroes(t *testing.T) {
	o := NewOdometer(nil)
	o.Start()
	start := gps.FilteredPosition{Lat: 46.8, Lng: -113.9, UnixNanos: nanosPerSec}
	feedAll(o, walk(start, 10, 20))
	if o.CumulativeMeters() <= 0 {
		t.Fatal("expected distance")
	}
	o.Stop()
	o.Start()
	if d := o.CumulativeMeters(); d != 0 {
		t.Errorf("restart kept %v m", d)
	}
}

func TestCustomConfig(t *testing.T) {
	cfg := *params.DefaultOdometerConfig
	cfg.WarmupSamples = 0
	o := NewOdometer(&cfg)
	o.Start()
	start := gps.FilteredPosition{Lat: 46.8, Lng: -113.9, UnixNanos: nanosPerSec}
	feedAll(o, walk(start, 10, 11))
	got := o.CumulativeMeters()
	if got < 90 || got > 110 {
		t.Errorf("cumulative = %v, want ~100 with no warm-up", got)
	}
}
