package roughness

import "testing"

func TestRatingForIri(t *testing.T) {
	cases := []struct {
		iri  float64
		want Rating
	}{
		{0, RatingExcellent},
		{1.99, RatingExcellent},
		{2, RatingGood},
		{3.5, RatingGood},
		{4, RatingFair},
		{6, RatingPoor},
		{8, RatingVeryPoor},
		{20, RatingVeryPoor},
	}
	for _, c := range cases {
		if got := RatingForIri(c.iri); got != c.want {
			t.Errorf("RatingForIri(%v) = %v, want %v", c.iri, got, c.want)
		}
	}
}

func TestRatingString(t *testing.T) {
	if RatingExcellent.String() != "Excellent" || RatingVeryPoor.String() != "VeryPoor" {
		t.Error("rating names wrong")
	}
	if RatingUnknown.String() != "Unknown" {
		t.Errorf("RatingUnknown = %q", RatingUnknown.String())
	}
}
