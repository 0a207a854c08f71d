package correlation

import (
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

type seriesKey struct {
	countryID   int64
	indicatorID int64
}

// fixtureStore backs both the catalog and observation interfaces with
// in-memory maps so engine behavior can be tested without a database.
type fixtureStore struct {
	countries  map[string]catalog.Country
	indicators map[string]catalog.Indicator
	series     map[seriesKey][]ingestion.Observation
}

func newFixtureStore() *fixtureStore {
	return &fixtureStore{
		countries:  make(map[string]catalog.Country),
		indicators: make(map[string]catalog.Indicator),
		series:     make(map[seriesKey][]ingestion.Observation),
	}
}

func (f *fixtureStore) addCountry(id int64, code string) {
	f.countries[code] = catalog.Country{ID: id, Code: code, Name: code}
}

func (f *fixtureStore) addIndicator(id int64, code string) {
	f.indicators[code] = catalog.Indicator{ID: id, Code: code, Name: code}
}

func (f *fixtureStore) addSeries(countryID, indicatorID int64, points map[int]*float64) {
	key := seriesKey{countryID: countryID, indicatorID: indicatorID}
	for year, value := range points {
		f.series[key] = append(f.series[key], ingestion.Observation{
			CountryID:   countryID,
			IndicatorID: indicatorID,
			Year:        year,
			Value:       value,
		})
	}
}

func (f *fixtureStore) EnsureCountry(_ context.Context, code string) (catalog.Country, error) {
	return f.countries[code], nil
}

func (f *fixtureStore) EnsureIndicator(_ context.Context, code, _ string) (catalog.Indicator, error) {
	return f.indicators[code], nil
}

func (f *fixtureStore) FindCountry(_ context.Context, code string) (catalog.Country, bool, error) {
	c, ok := f.countries[code]

	return c, ok, nil
}

func (f *fixtureStore) FindIndicator(_ context.Context, code string) (catalog.Indicator, bool, error) {
	ind, ok := f.indicators[code]

	return ind, ok, nil
}

func (f *fixtureStore) ListCountries(_ context.Context) ([]catalog.Country, error) {
	return nil, nil
}

func (f *fixtureStore) ListIndicators(_ context.Context) ([]catalog.Indicator, error) {
	return nil, nil
}

func (f *fixtureStore) GetSeries(
	_ context.Context,
	countryID, indicatorID int64,
	yearRange ingestion.YearRange,
) ([]ingestion.Observation, error) {
	var out []ingestion.Observation

	for _, obs := range f.series[seriesKey{countryID: countryID, indicatorID: indicatorID}] {
		if yearRange.Contains(obs.Year) {
			out = append(out, obs)
		}
	}

	return out, nil
}

func (f *fixtureStore) UpsertIfAbsent(_ context.Context, _ ingestion.Observation) (bool, error) {
	return false, nil
}

func val(v float64) *float64 { return &v }

func newCorrelationFixture() (*Engine, *fixtureStore) {
	store := newFixtureStore()
	store.addCountry(1, "KZ")
	store.addIndicator(10, "NY.GDP.PCAP.CD")
	store.addIndicator(11, "SP.DYN.LE00.IN")

	return NewEngine(store, store, slog.Default()), store
}

func TestCorrelatePerfectlyLinearPair(t *testing.T) {
	engine, store := newCorrelationFixture()
	store.addSeries(1, 10, map[int]*float64{2018: val(100), 2019: val(110), 2020: val(120), 2021: val(130)})
	store.addSeries(1, 11, map[int]*float64{2018: val(70), 2019: val(71), 2020: val(72), 2021: val(73)})

	result, err := engine.Correlate(context.Background(), "kz", "NY.GDP.PCAP.CD", "SP.DYN.LE00.IN", ingestion.YearRange{})
	require.NoError(t, err)

	require.NotNil(t, result.Correlation)
	assert.InDelta(t, 1.0, *result.Correlation, 1e-9)
	assert.Equal(t, 4, result.Points)
	assert.Equal(t, []int{2018, 2019, 2020, 2021}, result.Years)
	assert.Equal(t, "KZ", result.CountryCode)
}

func TestCorrelateNegativeRelationship(t *testing.T) {
	engine, store := newCorrelationFixture()
	store.addSeries(1, 10, map[int]*float64{2018: val(10), 2019: val(20), 2020: val(30)})
	store.addSeries(1, 11, map[int]*float64{2018: val(9), 2019: val(6), 2020: val(3)})

	result, err := engine.Correlate(context.Background(), "KZ", "NY.GDP.PCAP.CD", "SP.DYN.LE00.IN", ingestion.YearRange{})
	require.NoError(t, err)

	require.NotNil(t, result.Correlation)
	assert.InDelta(t, -1.0, *result.Correlation, 1e-9)
}

func TestCorrelateInsufficientOverlap(t *testing.T) {
	engine, store := newCorrelationFixture()

	// Only 2018 and 2019 overlap; 2020 is null on one side.
	store.addSeries(1, 10, map[int]*float64{2018: val(100), 2019: val(110), 2020: val(120)})
	store.addSeries(1, 11, map[int]*float64{2018: val(70), 2019: val(71), 2020: nil})

	result, err := engine.Correlate(context.Background(), "KZ", "NY.GDP.PCAP.CD", "SP.DYN.LE00.IN", ingestion.YearRange{})
	require.NoError(t, err)

	assert.Nil(t, result.Correlation)
	assert.Equal(t, 2, result.Points)
}

func TestCorrelateZeroVariance(t *testing.T) {
	engine, store := newCorrelationFixture()
	store.addSeries(1, 10, map[int]*float64{2018: val(5), 2019: val(5), 2020: val(5)})
	store.addSeries(1, 11, map[int]*float64{2018: val(70), 2019: val(71), 2020: val(72)})

	result, err := engine.Correlate(context.Background(), "KZ", "NY.GDP.PCAP.CD", "SP.DYN.LE00.IN", ingestion.YearRange{})
	require.NoError(t, err)

	assert.Nil(t, result.Correlation, "a constant series has no defined correlation")
	assert.Equal(t, 3, result.Points)
}

func TestCorrelateYearRangeRestrictsOverlap(t *testing.T) {
	engine, store := newCorrelationFixture()
	store.addSeries(1, 10, map[int]*float64{2015: val(1), 2016: val(2), 2017: val(3), 2018: val(4), 2019: val(5)})
	store.addSeries(1, 11, map[int]*float64{2015: val(2), 2016: val(4), 2017: val(6), 2018: val(8), 2019: val(10)})

	start, end := 2016, 2018
	result, err := engine.Correlate(
		context.Background(),
		"KZ", "NY.GDP.PCAP.CD", "SP.DYN.LE00.IN",
		ingestion.YearRange{Start: &start, End: &end},
	)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Points)
	assert.Equal(t, []int{2016, 2017, 2018}, result.Years)
	require.NotNil(t, result.YearRangeStart)
	assert.Equal(t, 2016, *result.YearRangeStart)
}

func TestCorrelateUnknownCountry(t *testing.T) {
	engine, _ := newCorrelationFixture()

	_, err := engine.Correlate(context.Background(), "XX", "NY.GDP.PCAP.CD", "SP.DYN.LE00.IN", ingestion.YearRange{})
	require.ErrorIs(t, err, ErrCountryNotFound)
}

func TestCorrelateUnknownIndicator(t *testing.T) {
	engine, _ := newCorrelationFixture()

	_, err := engine.Correlate(context.Background(), "KZ", "NO.SUCH.CODE", "SP.DYN.LE00.IN", ingestion.YearRange{})
	require.ErrorIs(t, err, ErrIndicatorNotFound)
}
