package forecast

import "github.com/Nuraidyn/economic-web-platform/internal/config"

// Config tunes the trend-fitting pipeline. The defaults are the ones the
// assumptions text documents; override them only for experimentation.
type Config struct {
	// MinTrainingPoints is the smallest usable training series.
	MinTrainingPoints int

	// MaxTrainingPoints caps training to the most recent N observations.
	MaxTrainingPoints int

	// WinsorizeLow and WinsorizeHigh are the clipping percentiles applied
	// to training values when at least MinTrainingPoints remain.
	WinsorizeLow  float64
	WinsorizeHigh float64

	// BacktestPoints is the rolling-origin fold count ceiling.
	BacktestPoints int

	// BacktestMinSeries is the shortest series worth backtesting at all.
	BacktestMinSeries int

	// BacktestMinTrain is the smallest training prefix a fold may refit on.
	BacktestMinTrain int

	// IntervalZ scales the residual std into the confidence bounds.
	IntervalZ float64
}

// DefaultConfig returns the standard linear-trend tuning.
func DefaultConfig() Config {
	return Config{
		MinTrainingPoints: 8,
		MaxTrainingPoints: 25,
		WinsorizeLow:      5,
		WinsorizeHigh:     95,
		BacktestPoints:    5,
		BacktestMinSeries: 10,
		BacktestMinTrain:  5,
		IntervalZ:         1.96,
	}
}

// ConfigFromEnv reads tuning overrides from PLATFORM_FORECAST_* variables,
// falling back to the defaults.
func ConfigFromEnv() Config {
	defaults := DefaultConfig()

	return Config{
		MinTrainingPoints: config.GetEnvInt("PLATFORM_FORECAST_MIN_TRAINING_POINTS", defaults.MinTrainingPoints),
		MaxTrainingPoints: config.GetEnvInt("PLATFORM_FORECAST_MAX_TRAINING_POINTS", defaults.MaxTrainingPoints),
		WinsorizeLow:      config.GetEnvFloat("PLATFORM_FORECAST_WINSORIZE_LOW", defaults.WinsorizeLow),
		WinsorizeHigh:     config.GetEnvFloat("PLATFORM_FORECAST_WINSORIZE_HIGH", defaults.WinsorizeHigh),
		BacktestPoints:    config.GetEnvInt("PLATFORM_FORECAST_BACKTEST_POINTS", defaults.BacktestPoints),
		BacktestMinSeries: config.GetEnvInt("PLATFORM_FORECAST_BACKTEST_MIN_SERIES", defaults.BacktestMinSeries),
		BacktestMinTrain:  config.GetEnvInt("PLATFORM_FORECAST_BACKTEST_MIN_TRAIN", defaults.BacktestMinTrain),
		IntervalZ:         config.GetEnvFloat("PLATFORM_FORECAST_INTERVAL_Z", defaults.IntervalZ),
	}
}
