package forecast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func linearPairs(startYear, n int, slope, intercept float64) []trainingPair {
	pairs := make([]trainingPair, n)
	for i := range pairs {
		year := startYear + i
		pairs[i] = trainingPair{year: year, value: slope*float64(year) + intercept}
	}

	return pairs
}

func TestPercentile(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	assert.InDelta(t, 1.0, percentile(values, 0), 1e-9)
	assert.InDelta(t, 3.0, percentile(values, 50), 1e-9)
	assert.InDelta(t, 5.0, percentile(values, 100), 1e-9)

	// Interpolated rank: 5th percentile of 5 values sits at rank 0.2.
	assert.InDelta(t, 1.2, percentile(values, 5), 1e-9)
}

func TestSanitizeCapsToMostRecent(t *testing.T) {
	cfg := DefaultConfig()
	pairs := linearPairs(1980, 40, 1, 0)

	out := sanitize(pairs, cfg)

	require.Len(t, out, cfg.MaxTrainingPoints)
	assert.Equal(t, 1995, out[0].year, "only the most recent 25 years survive")
	assert.Equal(t, 2019, out[len(out)-1].year)
}

func TestSanitizeSortsChronologically(t *testing.T) {
	cfg := DefaultConfig()
	pairs := []trainingPair{
		{year: 2020, value: 3},
		{year: 2018, value: 1},
		{year: 2019, value: 2},
	}

	out := sanitize(pairs, cfg)

	assert.Equal(t, 2018, out[0].year)
	assert.Equal(t, 2020, out[2].year)
}

func TestSanitizeWinsorizesOutliers(t *testing.T) {
	cfg := DefaultConfig()

	// Nine well-behaved points plus one wild spike.
	pairs := linearPairs(2010, 9, 1, 0)
	pairs = append(pairs, trainingPair{year: 2019, value: 1e6})

	out := sanitize(pairs, cfg)

	highest := out[len(out)-1].value
	assert.Less(t, highest, 1e6, "the spike is clipped to the 95th percentile")
}

func TestSanitizeSkipsWinsorizeForShortSeries(t *testing.T) {
	cfg := DefaultConfig()
	pairs := linearPairs(2015, 5, 1, 0)
	pairs = append(pairs, trainingPair{year: 2020, value: 500})

	out := sanitize(pairs, cfg)

	assert.InDelta(t, 500, out[len(out)-1].value, 1e-9, "six points stay untouched")
}

func TestFitLineRecoversSlopeAndIntercept(t *testing.T) {
	pairs := linearPairs(2000, 10, 2.5, -3000)

	slope, intercept := fitLine(pairs)

	assert.InDelta(t, 2.5, slope, 1e-9)
	assert.InDelta(t, -3000, intercept, 1e-6)
}

func TestResidualStdIsZeroForPerfectFit(t *testing.T) {
	pairs := linearPairs(2000, 10, 1.5, 10)
	slope, intercept := fitLine(pairs)

	assert.InDelta(t, 0, residualStd(pairs, slope, intercept), 1e-9)
}

func TestProjectExtendsPastLastYear(t *testing.T) {
	pairs := linearPairs(2010, 10, 2, 0)
	slope, intercept := fitLine(pairs)

	points := project(pairs, slope, intercept, 1.0, 1.96, 3)

	require.Len(t, points, 3)
	assert.Equal(t, 2020, points[0].Year)
	assert.Equal(t, 2022, points[2].Year)
	assert.InDelta(t, 2*2020.0, points[0].Value, 1e-6)
	assert.InDelta(t, points[0].Value-1.96, points[0].Lower, 1e-9)
	assert.InDelta(t, points[0].Value+1.96, points[0].Upper, 1e-9)
}

func TestBacktestPerfectLinearSeries(t *testing.T) {
	pairs := linearPairs(2005, 15, 3, 100)

	bt := backtest(pairs, DefaultConfig())

	require.NotNil(t, bt)
	assert.Equal(t, 5, bt.Points)
	assert.InDelta(t, 0, bt.MAE, 1e-6)
	assert.InDelta(t, 0, bt.RMSE, 1e-6)
}

func TestBacktestTooShort(t *testing.T) {
	pairs := linearPairs(2010, 9, 1, 0)

	assert.Nil(t, backtest(pairs, DefaultConfig()), "fewer than 10 points are not backtestable")
}

func TestBacktestCapsFoldCount(t *testing.T) {
	// 11 points: k = min(5, 11-5) = 5 folds.
	pairs := linearPairs(2005, 11, 1, 0)

	bt := backtest(pairs, DefaultConfig())

	require.NotNil(t, bt)
	assert.Equal(t, 5, bt.Points)
}

func TestBacktestThresholdsAreConfigurable(t *testing.T) {
	pairs := linearPairs(2010, 9, 1, 0)

	cfg := DefaultConfig()
	cfg.BacktestMinSeries = 8
	cfg.BacktestMinTrain = 4

	// 9 points clear the lowered series floor: k = min(5, 9-4) = 5 folds.
	bt := backtest(pairs, cfg)

	require.NotNil(t, bt)
	assert.Equal(t, 5, bt.Points)

	cfg.BacktestMinSeries = 12
	assert.Nil(t, backtest(pairs, cfg), "raised floor must suppress the backtest")
}
