package storage

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"

	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/config"
	"github.com/Nuraidyn/economic-web-platform/internal/forecast"
	"github.com/Nuraidyn/economic-web-platform/internal/inequality"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

// setupStore spins up a migrated PostgreSQL container and returns a
// PlatformStore over it.
func setupStore(ctx context.Context, t *testing.T) *PlatformStore {
	t.Helper()

	testDB := config.SetupTestDatabase(ctx, t)

	t.Cleanup(func() {
		_ = testDB.Connection.Close()
		_ = testcontainers.TerminateContainer(testDB.Container)
	})

	store, err := NewPlatformStore(NewConnectionFromDB(testDB.Connection), slog.Default())
	require.NoError(t, err)

	return store
}

func TestPlatformStore_CatalogRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupStore(ctx, t)

	country, err := store.EnsureCountry(ctx, "KZ")
	require.NoError(t, err)
	assert.NotZero(t, country.ID)
	assert.Equal(t, "Kazakhstan", country.Name, "baseline codes get their display name")

	again, err := store.EnsureCountry(ctx, "KZ")
	require.NoError(t, err)
	assert.Equal(t, country.ID, again.ID, "ensure is idempotent")

	indicator, err := store.EnsureIndicator(ctx, "SI.POV.GINI", catalog.WorldBankSource)
	require.NoError(t, err)
	assert.NotZero(t, indicator.ID)
	assert.Equal(t, catalog.WorldBankSource, indicator.Source)

	_, ok, err := store.FindCountry(ctx, "XX")
	require.NoError(t, err)
	assert.False(t, ok)

	countries, err := store.ListCountries(ctx)
	require.NoError(t, err)
	require.Len(t, countries, 1)

	indicators, err := store.ListIndicators(ctx)
	require.NoError(t, err)
	require.Len(t, indicators, 1)
}

func TestPlatformStore_SeedCatalogIsIdempotent(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupStore(ctx, t)

	require.NoError(t, store.SeedCatalog(ctx, catalog.DefaultCountries, catalog.DefaultIndicators))

	countries, err := store.ListCountries(ctx)
	require.NoError(t, err)
	require.Len(t, countries, len(catalog.DefaultCountries))

	// Re-seeding with an edited name must not overwrite the stored row.
	edited := []catalog.Country{{Code: "KZ", Name: "Renamed"}}
	require.NoError(t, store.SeedCatalog(ctx, edited, nil))

	country, ok, err := store.FindCountry(ctx, "KZ")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Kazakhstan", country.Name)

	indicators, err := store.ListIndicators(ctx)
	require.NoError(t, err)
	require.Len(t, indicators, len(catalog.DefaultIndicators))
}

func TestPlatformStore_ObservationIdempotency(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupStore(ctx, t)

	country, err := store.EnsureCountry(ctx, "KZ")
	require.NoError(t, err)

	indicator, err := store.EnsureIndicator(ctx, "NY.GDP.PCAP.CD", catalog.WorldBankSource)
	require.NoError(t, err)

	value := 9800.5
	obs := ingestion.Observation{
		CountryID:   country.ID,
		IndicatorID: indicator.ID,
		Year:        2019,
		Value:       &value,
		Source:      catalog.WorldBankSource,
	}

	inserted, err := store.UpsertIfAbsent(ctx, obs)
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = store.UpsertIfAbsent(ctx, obs)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate composite key must not insert")

	series, err := store.GetSeries(ctx, country.ID, indicator.ID, ingestion.YearRange{})
	require.NoError(t, err)
	require.Len(t, series, 1)
	require.NotNil(t, series[0].Value)
	assert.InDelta(t, 9800.5, *series[0].Value, 1e-9)
}

func TestPlatformStore_GetSeriesYearBounds(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupStore(ctx, t)

	country, err := store.EnsureCountry(ctx, "KZ")
	require.NoError(t, err)

	indicator, err := store.EnsureIndicator(ctx, "SP.POP.TOTL", catalog.WorldBankSource)
	require.NoError(t, err)

	for year := 2015; year <= 2020; year++ {
		v := float64(year)
		_, err := store.UpsertIfAbsent(ctx, ingestion.Observation{
			CountryID:   country.ID,
			IndicatorID: indicator.ID,
			Year:        year,
			Value:       &v,
			Source:      catalog.WorldBankSource,
		})
		require.NoError(t, err)
	}

	start, end := 2017, 2019
	series, err := store.GetSeries(ctx, country.ID, indicator.ID, ingestion.YearRange{Start: &start, End: &end})
	require.NoError(t, err)

	require.Len(t, series, 3)
	assert.Equal(t, 2017, series[0].Year)
	assert.Equal(t, 2019, series[2].Year)
}

func TestPlatformStore_RunLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupStore(ctx, t)

	runID, err := store.CreateRun(ctx, catalog.WorldBankSource, "KZ", "SI.POV.GINI")
	require.NoError(t, err)

	err = store.CompleteRun(ctx, runID, ingestion.RunCounts{Inserted: 3, Total: 5, Expected: 6, Missing: 1})
	require.NoError(t, err)

	// Terminal rows are never revisited.
	err = store.FailRun(ctx, runID, "too late")
	require.ErrorIs(t, err, ErrRunNotFound)

	failedID, err := store.CreateRun(ctx, catalog.WorldBankSource, "KZ", "SP.POP.TOTL")
	require.NoError(t, err)

	err = store.FailRun(ctx, failedID, "upstream returned 502")
	require.NoError(t, err)

	runs, err := store.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	assert.Equal(t, failedID, runs[0].ID, "newest run first")
	assert.Equal(t, ingestion.RunFailed, runs[0].Status)
	assert.Equal(t, "upstream returned 502", runs[0].Error)
	require.NotNil(t, runs[0].FinishedAt)

	assert.Equal(t, ingestion.RunCompleted, runs[1].Status)
	assert.Equal(t, 3, runs[1].Inserted)
	assert.Equal(t, 1, runs[1].Missing)
}

func TestPlatformStore_LorenzWriteOnce(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupStore(ctx, t)

	country, err := store.EnsureCountry(ctx, "KZ")
	require.NoError(t, err)

	result := inequality.StoredResult{
		CountryID: country.ID,
		Year:      2019,
		Points: []inequality.Point{
			{X: 0, Y: 0}, {X: 0.2, Y: 0.06}, {X: 0.4, Y: 0.17},
			{X: 0.6, Y: 0.33}, {X: 0.8, Y: 0.55}, {X: 1, Y: 1},
		},
		Gini: 0.348,
	}

	inserted, err := store.InsertResult(ctx, result)
	require.NoError(t, err)
	assert.True(t, inserted)

	result.Gini = 0.9 // A second computation must not overwrite the first.
	inserted, err = store.InsertResult(ctx, result)
	require.NoError(t, err)
	assert.False(t, inserted)

	stored, ok, err := store.GetResult(ctx, country.ID, 2019)
	require.NoError(t, err)
	require.True(t, ok)

	assert.InDelta(t, 0.348, stored.Gini, 1e-9)
	require.Len(t, stored.Points, 6)
	assert.Equal(t, inequality.Point{X: 1, Y: 1}, stored.Points[5])
}

func TestPlatformStore_ForecastRuns(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	store := setupStore(ctx, t)

	country, err := store.EnsureCountry(ctx, "KZ")
	require.NoError(t, err)

	indicator, err := store.EnsureIndicator(ctx, "NY.GDP.PCAP.CD", catalog.WorldBankSource)
	require.NoError(t, err)

	_, _, ok, err := store.LatestRun(ctx, country.ID, indicator.ID)
	require.NoError(t, err)
	assert.False(t, ok, "no forecast yet")

	first, err := store.InsertRun(ctx, forecast.Run{
		CountryID:         country.ID,
		TargetIndicatorID: indicator.ID,
		ModelName:         forecast.ModelLinearTrend,
		HorizonYears:      2,
		Assumptions:       forecast.Assumptions,
		Metrics:           "residual_std=0.1234",
	}, []forecast.Point{
		{Year: 2021, Value: 10000, Lower: 9800, Upper: 10200},
		{Year: 2022, Value: 10200, Lower: 10000, Upper: 10400},
	})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	second, err := store.InsertRun(ctx, forecast.Run{
		CountryID:         country.ID,
		TargetIndicatorID: indicator.ID,
		ModelName:         forecast.ModelLinearTrend,
		HorizonYears:      1,
		Metrics:           "residual_std=0.2000",
	}, []forecast.Point{{Year: 2021, Value: 10100, Lower: 9900, Upper: 10300}})
	require.NoError(t, err)
	assert.Greater(t, second.ID, first.ID)

	latest, points, ok, err := store.LatestRun(ctx, country.ID, indicator.ID)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, second.ID, latest.ID)
	assert.Equal(t, 1, latest.HorizonYears)
	require.Len(t, points, 1)
	assert.Equal(t, 2021, points[0].Year)
	assert.Equal(t, second.ID, points[0].RunID)
}
