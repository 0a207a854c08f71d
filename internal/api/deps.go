package api

import (
	"context"

	"github.com/Nuraidyn/economic-web-platform/internal/aliasing"
	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/correlation"
	"github.com/Nuraidyn/economic-web-platform/internal/forecast"
	"github.com/Nuraidyn/economic-web-platform/internal/inequality"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
	"github.com/Nuraidyn/economic-web-platform/internal/upstream"
)

type (
	// CatalogReader exposes the catalog lookups the handlers need.
	CatalogReader interface {
		FindCountry(ctx context.Context, code string) (catalog.Country, bool, error)
		FindIndicator(ctx context.Context, code string) (catalog.Indicator, bool, error)
		ListCountries(ctx context.Context) ([]catalog.Country, error)
		ListIndicators(ctx context.Context) ([]catalog.Indicator, error)
	}

	// Ingestor runs one ingestion for a (country, indicator) pair.
	Ingestor interface {
		Ingest(ctx context.Context, countryCode, indicatorCode string) (ingestion.Result, error)
	}

	// RunLister reads recent ingestion runs, newest first.
	RunLister interface {
		ListRuns(ctx context.Context, limit int) ([]ingestion.Run, error)
	}

	// ObservationReader reads stored observation series.
	ObservationReader interface {
		GetSeries(
			ctx context.Context,
			countryID, indicatorID int64,
			yearRange ingestion.YearRange,
		) ([]ingestion.Observation, error)
	}

	// InequalityService computes Lorenz/Gini analytics.
	InequalityService interface {
		LorenzGini(ctx context.Context, countryCode string, year int) (*inequality.Result, *inequality.Availability, error)
		GiniTrend(ctx context.Context, countryCode string, yearRange ingestion.YearRange) (*inequality.Trend, error)
		GiniRanking(ctx context.Context, year int, countryCodes []string) ([]inequality.RankingRow, error)
	}

	// Correlator computes Pearson correlation between two indicators.
	Correlator interface {
		Correlate(
			ctx context.Context,
			countryCode, indicatorA, indicatorB string,
			yearRange ingestion.YearRange,
		) (*correlation.Result, error)
	}

	// Forecaster produces and reads linear-trend forecasts.
	Forecaster interface {
		Forecast(ctx context.Context, countryCode, indicatorCode string, horizon int) (*forecast.Outcome, error)
		ForecastLive(ctx context.Context, countryCode, indicatorCode string, horizon int) (*forecast.Outcome, error)
		LatestRun(ctx context.Context, countryCode, indicatorCode string) (*forecast.Outcome, error)
	}

	// HealthChecker verifies the storage backend is reachable.
	HealthChecker interface {
		HealthCheck(ctx context.Context) error
	}

	// Dependencies bundles the services the HTTP handlers are built on.
	// Configuration (what) is separated from dependencies (how): ServerConfig
	// carries ports and timeouts, Dependencies carries collaborators.
	// Aliases may be nil; a nil resolver passes codes through unchanged.
	Dependencies struct {
		Aliases      *aliasing.Resolver
		Catalog      CatalogReader
		Pipeline     Ingestor
		Runs         RunLister
		Observations ObservationReader
		Fetcher      ingestion.SeriesFetcher
		Inequality   InequalityService
		Correlation  Correlator
		Forecast     Forecaster
		Health       HealthChecker
	}
)

// Compile-time checks that the concrete services satisfy the handler-facing
// interfaces.
var (
	_ Ingestor                = (*ingestion.Pipeline)(nil)
	_ InequalityService       = (*inequality.Service)(nil)
	_ Correlator              = (*correlation.Engine)(nil)
	_ Forecaster              = (*forecast.Engine)(nil)
	_ ingestion.SeriesFetcher = (*upstream.Client)(nil)
)
