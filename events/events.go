package events

import (
	"github.com/ethereum/go-ethereum/event"
	"github.com/roadmetrics/surveyd/scheduler"
	"github.com/roadmetrics/surveyd/types/gps"
	"github.com/roadmetrics/surveyd/types/roughness"
)

// FilteredPositionFeed is emitted for every smoothed fix a running session
// accepts. Subscribers should expect the full fix rate (~1 Hz).
var FilteredPositionFeed = event.FeedOf[gps.FilteredPosition]{}

// CaptureRequestFeed is emitted when the scheduler fires a photo trigger,
// before the capture service is asked. A fired trigger does not guarantee a
// photo; backpressure may still abandon it.
var CaptureRequestFeed = event.FeedOf[scheduler.CaptureRequest]{}

// RoughnessFeed is emitted for every successfully computed road segment.
// Segments refused by the computation envelope are not emitted anywhere;
// absence is routine.
var RoughnessFeed = event.FeedOf[roughness.IriResult]{}
