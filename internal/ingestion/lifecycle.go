package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/upstream"
)

// SeriesFetcher is the slice of the upstream client the pipeline needs.
type SeriesFetcher interface {
	FetchSeries(ctx context.Context, countryCode, indicatorCode string) ([]upstream.SeriesEntry, error)
}

// Pipeline orchestrates one ingestion invocation:
// fetch → resolve catalog rows → dedup-insert → run bookkeeping.
type Pipeline struct {
	fetcher      SeriesFetcher
	catalog      catalog.Store
	observations ObservationStore
	runs         RunStore
	logger       *slog.Logger
}

// NewPipeline creates an ingestion pipeline with its collaborators injected.
func NewPipeline(
	fetcher SeriesFetcher,
	catalogStore catalog.Store,
	observations ObservationStore,
	runs RunStore,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		fetcher:      fetcher,
		catalog:      catalogStore,
		observations: observations,
		runs:         runs,
		logger:       logger,
	}
}

// Ingest runs the state machine started → {completed | failed} for one
// country/indicator pair.
//
// Inserts are attempted in the fetched series' chronological order. The
// operation is idempotent with respect to the observation composite key:
// re-ingesting never duplicates, only fills gaps. Any failure during fetch or
// persistence marks the run failed with the error message and returns the
// error to the caller - ingestion failure is never swallowed.
func (p *Pipeline) Ingest(ctx context.Context, countryCode, indicatorCode string) (Result, error) {
	countryCode = catalog.CanonicalCountryCode(countryCode)

	runID, err := p.runs.CreateRun(ctx, catalog.WorldBankSource, countryCode, indicatorCode)
	if err != nil {
		return Result{}, fmt.Errorf("creating ingestion run: %w", err)
	}

	result, err := p.execute(ctx, runID, countryCode, indicatorCode)
	if err != nil {
		if failErr := p.runs.FailRun(ctx, runID, err.Error()); failErr != nil {
			p.logger.Error("Failed to mark ingestion run as failed",
				slog.Int64("run_id", runID),
				slog.String("error", failErr.Error()),
			)
		}

		return Result{}, err
	}

	return result, nil
}

// execute does the fetch-and-insert work for an already-created run.
func (p *Pipeline) execute(ctx context.Context, runID int64, countryCode, indicatorCode string) (Result, error) {
	series, err := p.fetcher.FetchSeries(ctx, countryCode, indicatorCode)
	if err != nil {
		return Result{}, err
	}

	country, err := p.catalog.EnsureCountry(ctx, countryCode)
	if err != nil {
		return Result{}, fmt.Errorf("resolving country %q: %w", countryCode, err)
	}

	indicator, err := p.catalog.EnsureIndicator(ctx, indicatorCode, catalog.WorldBankSource)
	if err != nil {
		return Result{}, fmt.Errorf("resolving indicator %q: %w", indicatorCode, err)
	}

	inserted := 0

	for _, entry := range series {
		value := entry.Value

		ok, err := p.observations.UpsertIfAbsent(ctx, Observation{
			CountryID:   country.ID,
			IndicatorID: indicator.ID,
			Year:        entry.Year,
			Value:       &value,
			Source:      catalog.WorldBankSource,
		})
		if err != nil {
			return Result{}, fmt.Errorf("inserting observation for year %d: %w", entry.Year, err)
		}

		if ok {
			inserted++
		}
	}

	counts := RunCounts{
		Inserted: inserted,
		Total:    len(series),
		Expected: calculateExpected(series),
	}
	counts.Missing = max(counts.Expected-counts.Total, 0)

	if err := p.runs.CompleteRun(ctx, runID, counts); err != nil {
		return Result{}, fmt.Errorf("completing ingestion run: %w", err)
	}

	p.logger.Info("Ingestion run completed",
		slog.Int64("run_id", runID),
		slog.String("country", countryCode),
		slog.String("indicator", indicatorCode),
		slog.Int("inserted", counts.Inserted),
		slog.Int("total", counts.Total),
		slog.Int("expected", counts.Expected),
		slog.Int("missing", counts.Missing),
	)

	return Result{
		RunID:    runID,
		Inserted: counts.Inserted,
		Total:    counts.Total,
		Expected: counts.Expected,
		Missing:  counts.Missing,
	}, nil
}

// calculateExpected estimates the year span covered by a fetched series:
// max(year)-min(year)+1, zero for an empty series.
func calculateExpected(series []upstream.SeriesEntry) int {
	if len(series) == 0 {
		return 0
	}

	// FetchSeries sorts ascending by year.
	return series[len(series)-1].Year - series[0].Year + 1
}
