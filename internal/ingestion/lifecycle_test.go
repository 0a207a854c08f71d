package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/upstream"
)

type fakeFetcher struct {
	series []upstream.SeriesEntry
	err    error
	calls  int
}

func (f *fakeFetcher) FetchSeries(_ context.Context, _, _ string) ([]upstream.SeriesEntry, error) {
	f.calls++

	return f.series, f.err
}

type fakeCatalog struct {
	countries  map[string]catalog.Country
	indicators map[string]catalog.Indicator
	err        error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		countries:  make(map[string]catalog.Country),
		indicators: make(map[string]catalog.Indicator),
	}
}

func (f *fakeCatalog) EnsureCountry(_ context.Context, code string) (catalog.Country, error) {
	if f.err != nil {
		return catalog.Country{}, f.err
	}

	if c, ok := f.countries[code]; ok {
		return c, nil
	}

	c := catalog.Country{ID: int64(len(f.countries) + 1), Code: code, Name: code}
	f.countries[code] = c

	return c, nil
}

func (f *fakeCatalog) EnsureIndicator(_ context.Context, code, source string) (catalog.Indicator, error) {
	if f.err != nil {
		return catalog.Indicator{}, f.err
	}

	if ind, ok := f.indicators[code]; ok {
		return ind, nil
	}

	ind := catalog.Indicator{ID: int64(len(f.indicators) + 1), Code: code, Name: code, Source: source}
	f.indicators[code] = ind

	return ind, nil
}

func (f *fakeCatalog) FindCountry(_ context.Context, code string) (catalog.Country, bool, error) {
	c, ok := f.countries[code]

	return c, ok, nil
}

func (f *fakeCatalog) FindIndicator(_ context.Context, code string) (catalog.Indicator, bool, error) {
	ind, ok := f.indicators[code]

	return ind, ok, nil
}

func (f *fakeCatalog) ListCountries(_ context.Context) ([]catalog.Country, error) {
	return nil, nil
}

func (f *fakeCatalog) ListIndicators(_ context.Context) ([]catalog.Indicator, error) {
	return nil, nil
}

type obsKey struct {
	countryID   int64
	indicatorID int64
	year        int
}

type fakeObservationStore struct {
	rows    map[obsKey]Observation
	failAt  int // 1-based insert attempt that errors; 0 disables
	attempt int
}

func newFakeObservationStore() *fakeObservationStore {
	return &fakeObservationStore{rows: make(map[obsKey]Observation)}
}

func (f *fakeObservationStore) GetSeries(_ context.Context, _, _ int64, _ YearRange) ([]Observation, error) {
	return nil, nil
}

func (f *fakeObservationStore) UpsertIfAbsent(_ context.Context, obs Observation) (bool, error) {
	f.attempt++
	if f.failAt > 0 && f.attempt == f.failAt {
		return false, errors.New("connection reset")
	}

	key := obsKey{countryID: obs.CountryID, indicatorID: obs.IndicatorID, year: obs.Year}
	if _, exists := f.rows[key]; exists {
		return false, nil
	}

	f.rows[key] = obs

	return true, nil
}

type fakeRunStore struct {
	nextID    int64
	created   []Run
	completed map[int64]RunCounts
	failed    map[int64]string
	createErr error
	failErr   error
}

func newFakeRunStore() *fakeRunStore {
	return &fakeRunStore{
		completed: make(map[int64]RunCounts),
		failed:    make(map[int64]string),
	}
}

func (f *fakeRunStore) CreateRun(_ context.Context, source, countryCode, indicatorCode string) (int64, error) {
	if f.createErr != nil {
		return 0, f.createErr
	}

	f.nextID++
	f.created = append(f.created, Run{
		ID:            f.nextID,
		Source:        source,
		CountryCode:   countryCode,
		IndicatorCode: indicatorCode,
		Status:        RunStarted,
	})

	return f.nextID, nil
}

func (f *fakeRunStore) CompleteRun(_ context.Context, runID int64, counts RunCounts) error {
	f.completed[runID] = counts

	return nil
}

func (f *fakeRunStore) FailRun(_ context.Context, runID int64, message string) error {
	if f.failErr != nil {
		return f.failErr
	}

	f.failed[runID] = message

	return nil
}

func (f *fakeRunStore) ListRuns(_ context.Context, _ int) ([]Run, error) {
	return f.created, nil
}

func newTestPipeline(fetcher *fakeFetcher) (*Pipeline, *fakeObservationStore, *fakeRunStore) {
	observations := newFakeObservationStore()
	runs := newFakeRunStore()
	pipeline := NewPipeline(fetcher, newFakeCatalog(), observations, runs, slog.Default())

	return pipeline, observations, runs
}

func series(pairs ...[2]int) []upstream.SeriesEntry {
	entries := make([]upstream.SeriesEntry, 0, len(pairs))
	for _, p := range pairs {
		entries = append(entries, upstream.SeriesEntry{Year: p[0], Value: float64(p[1])})
	}

	return entries
}

func TestPipelineIngestHappyPath(t *testing.T) {
	fetcher := &fakeFetcher{series: series([2]int{2018, 100}, [2]int{2019, 110}, [2]int{2021, 130})}
	pipeline, observations, runs := newTestPipeline(fetcher)

	result, err := pipeline.Ingest(context.Background(), "kz", "NY.GDP.PCAP.CD")
	require.NoError(t, err)

	assert.Equal(t, 3, result.Inserted)
	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 4, result.Expected, "2018..2021 spans four years")
	assert.Equal(t, 1, result.Missing, "2020 is absent from the span")
	assert.Len(t, observations.rows, 3)

	require.Len(t, runs.created, 1)
	assert.Equal(t, "KZ", runs.created[0].CountryCode, "country code is canonicalized before the run is recorded")

	counts, ok := runs.completed[result.RunID]
	require.True(t, ok, "run must be marked completed")
	assert.Equal(t, 3, counts.Inserted)
	assert.Empty(t, runs.failed)
}

func TestPipelineIngestIsIdempotent(t *testing.T) {
	fetcher := &fakeFetcher{series: series([2]int{2019, 110}, [2]int{2020, 120})}
	pipeline, observations, _ := newTestPipeline(fetcher)

	first, err := pipeline.Ingest(context.Background(), "KZ", "SP.POP.TOTL")
	require.NoError(t, err)
	assert.Equal(t, 2, first.Inserted)

	second, err := pipeline.Ingest(context.Background(), "KZ", "SP.POP.TOTL")
	require.NoError(t, err)

	assert.Equal(t, 0, second.Inserted, "re-ingesting the same series inserts nothing")
	assert.Equal(t, 2, second.Total)
	assert.Len(t, observations.rows, 2)
	assert.NotEqual(t, first.RunID, second.RunID, "each invocation gets its own audit run")
}

func TestPipelineIngestEmptySeries(t *testing.T) {
	fetcher := &fakeFetcher{series: nil}
	pipeline, _, runs := newTestPipeline(fetcher)

	result, err := pipeline.Ingest(context.Background(), "KZ", "SI.POV.GINI")
	require.NoError(t, err)

	assert.Zero(t, result.Inserted)
	assert.Zero(t, result.Total)
	assert.Zero(t, result.Expected)
	assert.Zero(t, result.Missing)
	assert.Contains(t, runs.completed, result.RunID)
}

func TestPipelineIngestFetchFailureMarksRunFailed(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("%w: status 502", upstream.ErrFetchFailed)}
	pipeline, _, runs := newTestPipeline(fetcher)

	_, err := pipeline.Ingest(context.Background(), "KZ", "NY.GDP.PCAP.CD")
	require.ErrorIs(t, err, upstream.ErrFetchFailed)

	require.Len(t, runs.created, 1)
	runID := runs.created[0].ID
	assert.Contains(t, runs.failed[runID], "status 502")
	assert.NotContains(t, runs.completed, runID)
}

func TestPipelineIngestStorageFailureMarksRunFailed(t *testing.T) {
	fetcher := &fakeFetcher{series: series([2]int{2018, 100}, [2]int{2019, 110})}
	pipeline, observations, runs := newTestPipeline(fetcher)
	observations.failAt = 2

	_, err := pipeline.Ingest(context.Background(), "KZ", "NY.GDP.PCAP.CD")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "year 2019")

	require.Len(t, runs.created, 1)
	assert.Contains(t, runs.failed[runs.created[0].ID], "connection reset")
}

func TestPipelineIngestCreateRunFailure(t *testing.T) {
	fetcher := &fakeFetcher{series: series([2]int{2018, 100})}
	pipeline, _, runs := newTestPipeline(fetcher)
	runs.createErr = errors.New("database unavailable")

	_, err := pipeline.Ingest(context.Background(), "KZ", "NY.GDP.PCAP.CD")
	require.Error(t, err)
	assert.Zero(t, fetcher.calls, "nothing is fetched when the audit run cannot be created")
}

func TestPipelineIngestFailRunErrorIsNotFatal(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("upstream down")}
	pipeline, _, runs := newTestPipeline(fetcher)
	runs.failErr = errors.New("database also down")

	_, err := pipeline.Ingest(context.Background(), "KZ", "NY.GDP.PCAP.CD")

	// The original ingestion error wins over the bookkeeping error.
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upstream down")
}
