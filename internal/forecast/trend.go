package forecast

import (
	"math"
	"sort"
)

// trainingPair is one (year, value) sample after null filtering.
type trainingPair struct {
	year  int
	value float64
}

// sanitize prepares model input for a stable trend: chronological order,
// most recent MaxTrainingPoints only, and winsorized values when the series
// is long enough for the percentiles to mean anything.
func sanitize(pairs []trainingPair, cfg Config) []trainingPair {
	sorted := make([]trainingPair, len(pairs))
	copy(sorted, pairs)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].year < sorted[j].year })

	if len(sorted) > cfg.MaxTrainingPoints {
		sorted = sorted[len(sorted)-cfg.MaxTrainingPoints:]
	}

	if len(sorted) >= cfg.MinTrainingPoints {
		values := make([]float64, len(sorted))
		for i, p := range sorted {
			values[i] = p.value
		}

		lower := percentile(values, cfg.WinsorizeLow)
		upper := percentile(values, cfg.WinsorizeHigh)

		if lower <= upper {
			for i := range sorted {
				sorted[i].value = math.Min(math.Max(sorted[i].value, lower), upper)
			}
		}
	}

	return sorted
}

// percentile computes the p-th percentile with linear interpolation between
// the two nearest ranks.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}

	rank := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))

	if lo == hi {
		return sorted[lo]
	}

	frac := rank - float64(lo)

	return sorted[lo] + frac*(sorted[hi]-sorted[lo])
}

// fitLine fits y = slope*x + intercept by least squares.
func fitLine(pairs []trainingPair) (slope, intercept float64) {
	n := float64(len(pairs))

	var meanX, meanY float64

	for _, p := range pairs {
		meanX += float64(p.year)
		meanY += p.value
	}

	meanX /= n
	meanY /= n

	var cov, varX float64

	for _, p := range pairs {
		dx := float64(p.year) - meanX
		cov += dx * (p.value - meanY)
		varX += dx * dx
	}

	if varX == 0 {
		return 0, meanY
	}

	slope = cov / varX

	return slope, meanY - slope*meanX
}

// residualStd is the population standard deviation of the fit residuals,
// zero for a single-point fit.
func residualStd(pairs []trainingPair, slope, intercept float64) float64 {
	if len(pairs) <= 1 {
		return 0
	}

	var sum, sumSq float64

	for _, p := range pairs {
		r := p.value - (slope*float64(p.year) + intercept)
		sum += r
		sumSq += r * r
	}

	n := float64(len(pairs))
	mean := sum / n

	return math.Sqrt(sumSq/n - mean*mean)
}

// project extends the fitted line horizon years past the last training year,
// attaching ±z·std bounds to each point.
func project(pairs []trainingPair, slope, intercept, std, z float64, horizon int) []Point {
	lastYear := pairs[len(pairs)-1].year
	points := make([]Point, 0, horizon)

	for year := lastYear + 1; year <= lastYear+horizon; year++ {
		value := slope*float64(year) + intercept
		points = append(points, Point{
			Year:  year,
			Value: value,
			Lower: value - z*std,
			Upper: value + z*std,
		})
	}

	return points
}

// backtest runs a rolling-origin evaluation: refit on each strict prefix and
// predict the next observed point. Returns nil when the series is shorter
// than BacktestMinSeries or every fold is skipped.
func backtest(pairs []trainingPair, cfg Config) *Backtest {
	n := len(pairs)
	if n < cfg.BacktestMinSeries {
		return nil
	}

	k := max(1, min(cfg.BacktestPoints, n-cfg.BacktestMinTrain))

	var errs []float64

	for idx := n - k; idx < n; idx++ {
		if idx < cfg.BacktestMinTrain {
			continue
		}

		slope, intercept := fitLine(pairs[:idx])
		pred := slope*float64(pairs[idx].year) + intercept
		errs = append(errs, pairs[idx].value-pred)
	}

	if len(errs) == 0 {
		return nil
	}

	var sumAbs, sumSq float64

	for _, e := range errs {
		sumAbs += math.Abs(e)
		sumSq += e * e
	}

	count := float64(len(errs))

	return &Backtest{
		Points: len(errs),
		MAE:    sumAbs / count,
		RMSE:   math.Sqrt(sumSq / count),
	}
}
