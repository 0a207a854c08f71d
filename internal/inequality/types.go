// Package inequality computes Lorenz curves, Gini coefficients, and Gini
// trend/ranking views over stored observations, with a write-once result
// cache.
package inequality

import (
	"errors"
	"time"
)

// ErrCountryNotFound indicates the country code has no catalog row.
var ErrCountryNotFound = errors.New("country not found")

// GiniIndicator is the direct Gini index series used by trend and ranking.
const GiniIndicator = "SI.POV.GINI"

// quintileIndicator pairs an income-share series with its population weight.
type quintileIndicator struct {
	code   string
	weight float64
}

// QuintileIndicators are the five income-share-by-quintile series a Lorenz
// curve is built from, in ascending quintile order. Each quintile covers 20%
// of the population.
var QuintileIndicators = []quintileIndicator{
	{code: "SI.DST.FRST.20", weight: 0.2},
	{code: "SI.DST.02ND.20", weight: 0.2},
	{code: "SI.DST.03RD.20", weight: 0.2},
	{code: "SI.DST.04TH.20", weight: 0.2},
	{code: "SI.DST.05TH.20", weight: 0.2},
}

type (
	// Point is one vertex of the Lorenz polyline, both coordinates in [0,1].
	Point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// Result is a computed (or cached) Lorenz curve with its Gini
	// coefficient.
	Result struct {
		CountryCode string
		Year        int
		Points      []Point
		Gini        float64
		Cached      bool
	}

	// Availability reports why a Lorenz curve could not be computed: the
	// quintile indicator codes with no usable observation at or before the
	// requested year.
	Availability struct {
		CountryCode string
		Year        int
		Missing     []string
	}

	// TrendPoint is one year of the Gini trend with its change against the
	// previous non-null value.
	TrendPoint struct {
		Year      int
		Value     *float64
		YoYChange *float64
	}

	// TrendMeta records where the trend series came from. FetchedAt is set
	// only for live upstream fetches.
	TrendMeta struct {
		Source    string
		FetchedAt *time.Time
	}

	// Trend is the Gini time series for one country.
	Trend struct {
		CountryCode string
		Indicator   string
		Points      []TrendPoint
		Meta        TrendMeta
	}

	// RankingRow is one country's Gini value for the ranking year. Value is
	// nil when no exact-year observation exists or the country's series
	// could not be loaded.
	RankingRow struct {
		CountryCode string
		Year        int
		Value       *float64
	}
)

// Trend data sources.
const (
	SourceCache = "cache_db"
	SourceLive  = "world_bank_live"
)
