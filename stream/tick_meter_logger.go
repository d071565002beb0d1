package stream

import (
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/ethereum/go-ethereum/metrics"
	"github.com/roadmetrics/surveyd/common"
)

// ScanMeter rate-meters a replayed sensor stream and logs progress on a
// ticker. Mark it once per event with the event's recorded time as label.
type ScanMeter struct {
	label      time.Time // any value, eg. the event's recorded time
	interval   time.Duration
	started    time.Time
	ticker     *time.Ticker
	nn         atomic.Uint64
	reg        metrics.Registry
	fixes      metrics.Counter
	samples    metrics.Counter
	eventMeter metrics.Meter
}

func NewScanMeter(interval time.Duration) *ScanMeter {
	// Enable metrics package.
	// Won't work without this global setting.
	metrics.Enabled = true

	reg := metrics.NewRegistry()
	sm := &ScanMeter{
		reg:        reg,
		interval:   interval,
		started:    time.Now(),
		nn:         atomic.Uint64{},
		fixes:      metrics.NewCounter(),
		samples:    metrics.NewCounter(),
		eventMeter: metrics.NewMeter(),
	}

	if err := reg.Register("fix.count", sm.fixes); err != nil {
		panic(err)
	}
	if err := reg.Register("sample.count", sm.samples); err != nil {
		panic(err)
	}
	if err := reg.Register("event.meter", sm.eventMeter); err != nil {
		panic(err)
	}
	sm.nn.Store(0)
	go sm.run()
	return sm
}

// MarkFix records one position fix read from the log.
func (sm *ScanMeter) MarkFix(label time.Time) {
	sm.label = label
	sm.nn.Add(1)
	sm.fixes.Inc(1)
	sm.eventMeter.Mark(1)
}

// MarkSample records one motion-sensor sample read from the log.
func (sm *ScanMeter) MarkSample(label time.Time) {
	sm.label = label
	sm.nn.Add(1)
	sm.samples.Inc(1)
	sm.eventMeter.Mark(1)
}

func (sm *ScanMeter) run() {
	sm.ticker = time.NewTicker(sm.interval)
	for range sm.ticker.C {
		sm.log()
	}
}

func (sm *ScanMeter) log() {
	snap := sm.eventMeter.Snapshot()

	slog.Info("Read sensor log",
		"n", humanize.Comma(int64(sm.nn.Load())),
		"fixes", humanize.Comma(sm.fixes.Snapshot().Count()),
		"samples", humanize.Comma(sm.samples.Snapshot().Count()),
		"read.last", sm.label.Format(time.DateTime),
		"eps", common.DecimalToFixed(snap.Rate1(), 0),
		"running", time.Since(sm.started).Round(time.Second))
}

func (sm *ScanMeter) Stop() {
	if sm == nil || sm.ticker == nil {
		return
	}
	sm.ticker.Stop()
	sm.eventMeter.Stop()
}
