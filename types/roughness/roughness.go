package roughness

import "time"

// Rating is a 5-band ordinal condition grade derived from IRI.
type Rating int

const (
	RatingExcellent Rating = iota
	RatingGood
	RatingFair
	RatingPoor
	RatingVeryPoor
	RatingUnknown Rating = -1
)

// ratingThresholds are the IRI (mm/m) upper bounds of the first four bands.
var ratingThresholds = [...]float64{2, 4, 6, 8}

func RatingForIri(iri float64) Rating {
	for i, t := range ratingThresholds {
		if iri < t {
			return Rating(i)
		}
	}
	return RatingVeryPoor
}

// String implements the Stringer interface.
func (r Rating) String() string {
	switch r {
	case RatingExcellent:
		return "Excellent"
	case RatingGood:
		return "Good"
	case RatingFair:
		return "Fair"
	case RatingPoor:
		return "Poor"
	case RatingVeryPoor:
		return "VeryPoor"
	}
	return "Unknown"
}

// IriResult is one computed road segment.
type IriResult struct {
	Iri            float64 `json:"iri"`     // mm/m, clamped [0,20]
	Quality        float32 `json:"quality"` // [0.1, 1.0]
	SpatialSamples int     `json:"spatial_samples"`
	DistanceMeters float64 `json:"distance_meters"`
	AvgSpeedKmh    float64 `json:"avg_speed_kmh"`
	Rating         Rating  `json:"rating"`
	UnixNanos      int64   `json:"time_unix_ns"`
}

func (r IriResult) Time() time.Time {
	return time.Unix(0, r.UnixNanos)
}
