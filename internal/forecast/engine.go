package forecast

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

// Engine fits and persists linear-trend forecasts over stored series, with a
// live-fetch path for pairs the store cannot serve.
type Engine struct {
	catalog      catalog.Store
	observations ingestion.ObservationStore
	store        Store
	fetcher      ingestion.SeriesFetcher
	cfg          Config
	logger       *slog.Logger
}

// NewEngine creates a forecasting engine with the given tuning.
func NewEngine(
	catalogStore catalog.Store,
	observations ingestion.ObservationStore,
	store Store,
	fetcher ingestion.SeriesFetcher,
	cfg Config,
	logger *slog.Logger,
) *Engine {
	return &Engine{
		catalog:      catalogStore,
		observations: observations,
		store:        store,
		fetcher:      fetcher,
		cfg:          cfg,
		logger:       logger,
	}
}

// Forecast fits a trend on the stored series for the pair and persists a new
// run with its projected points. Every call inserts a fresh run; forecasts
// are audit records, not cached values.
//
// Unknown pairs and series with too few usable points return
// ErrInsufficientData, matching the behavior of an empty store; callers that
// can tolerate unpersisted results may then try ForecastLive.
func (e *Engine) Forecast(ctx context.Context, countryCode, indicatorCode string, horizon int) (*Outcome, error) {
	countryCode = catalog.CanonicalCountryCode(countryCode)

	country, countryOK, err := e.catalog.FindCountry(ctx, countryCode)
	if err != nil {
		return nil, fmt.Errorf("looking up country %q: %w", countryCode, err)
	}

	indicator, indicatorOK, err := e.catalog.FindIndicator(ctx, indicatorCode)
	if err != nil {
		return nil, fmt.Errorf("looking up indicator %q: %w", indicatorCode, err)
	}

	if !countryOK || !indicatorOK {
		return nil, ErrInsufficientData
	}

	observations, err := e.observations.GetSeries(ctx, country.ID, indicator.ID, ingestion.YearRange{})
	if err != nil {
		return nil, fmt.Errorf("loading series: %w", err)
	}

	pairs := make([]trainingPair, 0, len(observations))

	for _, obs := range observations {
		if obs.Value == nil {
			continue
		}

		pairs = append(pairs, trainingPair{year: obs.Year, value: *obs.Value})
	}

	fit, err := e.fit(pairs, horizon)
	if err != nil {
		return nil, err
	}

	run, err := e.store.InsertRun(ctx, Run{
		CountryID:         country.ID,
		TargetIndicatorID: indicator.ID,
		ModelName:         ModelLinearTrend,
		HorizonYears:      horizon,
		Assumptions:       Assumptions,
		Metrics:           fit.metrics,
	}, fit.points)
	if err != nil {
		return nil, fmt.Errorf("persisting forecast run: %w", err)
	}

	e.logger.Info("Forecast run persisted",
		slog.Int64("run_id", run.ID),
		slog.String("country", countryCode),
		slog.String("indicator", indicatorCode),
		slog.Int("horizon_years", horizon),
		slog.String("metrics", run.Metrics),
	)

	return &Outcome{
		RunID:         run.ID,
		CountryCode:   countryCode,
		IndicatorCode: indicatorCode,
		ModelName:     run.ModelName,
		HorizonYears:  horizon,
		Assumptions:   run.Assumptions,
		Metrics:       run.Metrics,
		Points:        fit.points,
		Persisted:     true,
	}, nil
}

// ForecastLive fetches the series from the upstream provider and computes a
// forecast without persisting anything. It serves pairs the store has not
// ingested yet.
func (e *Engine) ForecastLive(ctx context.Context, countryCode, indicatorCode string, horizon int) (*Outcome, error) {
	countryCode = catalog.CanonicalCountryCode(countryCode)

	entries, err := e.fetcher.FetchSeries(ctx, countryCode, indicatorCode)
	if err != nil {
		return nil, err
	}

	pairs := make([]trainingPair, 0, len(entries))
	for _, entry := range entries {
		pairs = append(pairs, trainingPair{year: entry.Year, value: entry.Value})
	}

	fit, err := e.fit(pairs, horizon)
	if err != nil {
		return nil, err
	}

	return &Outcome{
		CountryCode:   countryCode,
		IndicatorCode: indicatorCode,
		ModelName:     ModelLinearTrend,
		HorizonYears:  horizon,
		Assumptions:   Assumptions,
		Metrics:       fit.metrics,
		Points:        fit.points,
	}, nil
}

// LatestRun returns the most recent persisted forecast for the pair.
func (e *Engine) LatestRun(ctx context.Context, countryCode, indicatorCode string) (*Outcome, error) {
	countryCode = catalog.CanonicalCountryCode(countryCode)

	country, countryOK, err := e.catalog.FindCountry(ctx, countryCode)
	if err != nil {
		return nil, fmt.Errorf("looking up country %q: %w", countryCode, err)
	}

	indicator, indicatorOK, err := e.catalog.FindIndicator(ctx, indicatorCode)
	if err != nil {
		return nil, fmt.Errorf("looking up indicator %q: %w", indicatorCode, err)
	}

	if !countryOK || !indicatorOK {
		return nil, fmt.Errorf("%w: %s/%s", ErrNotFound, countryCode, indicatorCode)
	}

	run, points, ok, err := e.store.LatestRun(ctx, country.ID, indicator.ID)
	if err != nil {
		return nil, fmt.Errorf("loading latest run: %w", err)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", ErrNoForecast, countryCode, indicatorCode)
	}

	return &Outcome{
		RunID:         run.ID,
		CountryCode:   countryCode,
		IndicatorCode: indicatorCode,
		ModelName:     run.ModelName,
		HorizonYears:  run.HorizonYears,
		Assumptions:   run.Assumptions,
		Metrics:       run.Metrics,
		Points:        points,
		Persisted:     true,
	}, nil
}

// fitResult carries the projected points with the formatted metrics string.
type fitResult struct {
	points  []Point
	metrics string
}

// fit sanitizes the pairs, fits the line, projects, and evaluates the
// backtest. A failed backtest only shortens the metrics string.
func (e *Engine) fit(pairs []trainingPair, horizon int) (fitResult, error) {
	if len(pairs) < e.cfg.MinTrainingPoints {
		return fitResult{}, ErrInsufficientData
	}

	training := sanitize(pairs, e.cfg)
	if len(training) < e.cfg.MinTrainingPoints {
		return fitResult{}, ErrInsufficientData
	}

	slope, intercept := fitLine(training)
	std := residualStd(training, slope, intercept)
	points := project(training, slope, intercept, std, e.cfg.IntervalZ, horizon)

	metrics := fmt.Sprintf("residual_std=%.4f", std)
	if bt := backtest(training, e.cfg); bt != nil {
		metrics = fmt.Sprintf("%s; backtest_points=%d; mae=%.4f; rmse=%.4f", metrics, bt.Points, bt.MAE, bt.RMSE)
	}

	return fitResult{points: points, metrics: metrics}, nil
}
