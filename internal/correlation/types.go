// Package correlation computes Pearson correlation between two indicator
// series for one country, aligned year by year.
package correlation

import (
	"errors"

	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

var (
	// ErrCountryNotFound indicates the country code has no catalog row.
	ErrCountryNotFound = errors.New("country not found")

	// ErrIndicatorNotFound indicates an indicator code has no catalog row.
	ErrIndicatorNotFound = errors.New("indicator not found")
)

type (
	// Result is the outcome of one correlation computation.
	//
	// Correlation is nil when the answer is statistically meaningless:
	// fewer than MinOverlap overlapping years, or zero variance in either
	// aligned series. Points always reports the overlap size so callers can
	// distinguish "not enough data" from "constant series".
	Result struct {
		CountryCode    string
		IndicatorA     string
		IndicatorB     string
		Correlation    *float64
		Points         int
		Years          []int
		YearRangeStart *int
		YearRangeEnd   *int
	}

	// pair is one year where both series carry a value.
	pair struct {
		year int
		a    float64
		b    float64
	}
)

// MinOverlap is the smallest aligned-pair count for which a Pearson
// coefficient is reported. Below it the coefficient is too unstable to mean
// anything.
const MinOverlap = 3

// yearRangeBounds splits an optional range into its endpoints for the result.
func yearRangeBounds(r ingestion.YearRange) (start, end *int) {
	return r.Start, r.End
}
