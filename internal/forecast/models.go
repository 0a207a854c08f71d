// Package forecast fits linear trends to stored indicator series and projects
// them forward with residual-based confidence intervals.
package forecast

import (
	"errors"
	"time"
)

var (
	// ErrInsufficientData indicates the series has too few non-null points
	// to fit a trend.
	ErrInsufficientData = errors.New("not enough data to forecast")

	// ErrNotFound indicates an unknown country or indicator code.
	ErrNotFound = errors.New("unknown country or indicator")

	// ErrNoForecast indicates no persisted forecast exists for the pair.
	ErrNoForecast = errors.New("no forecast available")
)

// ModelLinearTrend is the only model the engine currently fits.
const ModelLinearTrend = "linear_trend"

// Assumptions is the fixed assumptions text recorded on every run.
const Assumptions = "Linear trend on recent historical values (up to last 25 years); " +
	"training values winsorized at 5th/95th percentile; residual std used for intervals."

type (
	// Run is the persisted audit record of one forecast computation.
	Run struct {
		ID                int64
		CountryID         int64
		TargetIndicatorID int64
		ModelName         string
		HorizonYears      int
		Assumptions       string
		Metrics           string
		CreatedAt         time.Time
	}

	// Point is one projected year with its symmetric confidence bounds.
	Point struct {
		ID    int64
		RunID int64
		Year  int
		Value float64
		Lower float64
		Upper float64
	}

	// Outcome is what a forecast operation returns to callers. RunID is
	// zero and Persisted false for live-fallback forecasts, which are
	// computed from an upstream fetch and never stored.
	Outcome struct {
		RunID         int64
		CountryCode   string
		IndicatorCode string
		ModelName     string
		HorizonYears  int
		Assumptions   string
		Metrics       string
		Points        []Point
		Persisted     bool
	}

	// Backtest holds rolling-origin error metrics over the training series.
	Backtest struct {
		Points int
		MAE    float64
		RMSE   float64
	}
)
