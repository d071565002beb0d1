package gps

import (
	"time"

	"github.com/paulmach/orb"
	"github.com/roadmetrics/surveyd/common"
)

// RawPosition is a single fix as delivered by the position source: possibly
// jittery, delayed, or duplicated. Speed is optional; sources that cannot
// report it use SpeedUnknown.
type RawPosition struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Accuracy  float64 `json:"accuracy"` // meters, > 0
	Speed     float64 `json:"speed"`    // m/s, SpeedUnknown when absent
	UnixNanos int64   `json:"time_unix_ns"`
}

const SpeedUnknown = -1.0

func (p RawPosition) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func (p RawPosition) Time() time.Time {
	return time.Unix(0, p.UnixNanos)
}

func (p RawPosition) HasSpeed() bool {
	return p.Speed >= 0 && common.IsFinite(p.Speed)
}

// IsValid reports whether the fix is usable at all: finite coordinates in
// range, and a finite positive accuracy.
func (p RawPosition) IsValid() bool {
	if !common.IsFinite(p.Lat) || !common.IsFinite(p.Lng) {
		return false
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return false
	}
	return common.IsFinite(p.Accuracy) && p.Accuracy > 0
}

// FilteredPosition is a smoothed estimate produced by the position filter.
// Variance is the filter's position variance, not the source accuracy.
type FilteredPosition struct {
	Lat       float64 `json:"lat"`
	Lng       float64 `json:"lng"`
	Speed     float64 `json:"speed"`   // m/s
	Bearing   float64 `json:"bearing"` // degrees, [0,360)
	Variance  float64 `json:"variance"`
	UnixNanos int64   `json:"time_unix_ns"`
}

func (p FilteredPosition) Point() orb.Point {
	return orb.Point{p.Lng, p.Lat}
}

func (p FilteredPosition) Time() time.Time {
	return time.Unix(0, p.UnixNanos)
}
