package correlation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"

	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

// Engine correlates two stored indicator series for one country.
type Engine struct {
	catalog      catalog.Store
	observations ingestion.ObservationStore
	logger       *slog.Logger
}

// NewEngine creates a correlation engine reading from the given stores.
func NewEngine(catalogStore catalog.Store, observations ingestion.ObservationStore, logger *slog.Logger) *Engine {
	return &Engine{
		catalog:      catalogStore,
		observations: observations,
		logger:       logger,
	}
}

// Correlate aligns the two indicators by year and computes Pearson's r over
// the overlap, optionally restricted to a year range.
//
// Unknown country or indicator codes return the typed not-found errors; a
// valid request with insufficient or degenerate data is not an error - the
// result carries a nil Correlation and the overlap size.
func (e *Engine) Correlate(
	ctx context.Context,
	countryCode, indicatorA, indicatorB string,
	yearRange ingestion.YearRange,
) (*Result, error) {
	countryCode = catalog.CanonicalCountryCode(countryCode)

	country, ok, err := e.catalog.FindCountry(ctx, countryCode)
	if err != nil {
		return nil, fmt.Errorf("looking up country %q: %w", countryCode, err)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrCountryNotFound, countryCode)
	}

	seriesA, err := e.loadSeries(ctx, country.ID, indicatorA, yearRange)
	if err != nil {
		return nil, err
	}

	seriesB, err := e.loadSeries(ctx, country.ID, indicatorB, yearRange)
	if err != nil {
		return nil, err
	}

	pairs := align(seriesA, seriesB)

	result := &Result{
		CountryCode: countryCode,
		IndicatorA:  indicatorA,
		IndicatorB:  indicatorB,
		Points:      len(pairs),
		Years:       pairYears(pairs),
	}
	result.YearRangeStart, result.YearRangeEnd = yearRangeBounds(yearRange)

	if r, ok := pearson(pairs); ok {
		result.Correlation = &r
	}

	e.logger.Debug("Correlation computed",
		slog.String("country", countryCode),
		slog.String("indicator_a", indicatorA),
		slog.String("indicator_b", indicatorB),
		slog.Int("points", result.Points),
		slog.Bool("defined", result.Correlation != nil),
	)

	return result, nil
}

// loadSeries resolves an indicator code and returns its year→value map for
// the country, skipping null values.
func (e *Engine) loadSeries(
	ctx context.Context,
	countryID int64,
	indicatorCode string,
	yearRange ingestion.YearRange,
) (map[int]float64, error) {
	indicator, ok, err := e.catalog.FindIndicator(ctx, indicatorCode)
	if err != nil {
		return nil, fmt.Errorf("looking up indicator %q: %w", indicatorCode, err)
	}

	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIndicatorNotFound, indicatorCode)
	}

	observations, err := e.observations.GetSeries(ctx, countryID, indicator.ID, yearRange)
	if err != nil {
		return nil, fmt.Errorf("loading series for %q: %w", indicatorCode, err)
	}

	values := make(map[int]float64, len(observations))

	for _, obs := range observations {
		if obs.Value == nil {
			continue
		}

		values[obs.Year] = *obs.Value
	}

	return values, nil
}

// align intersects two year→value maps into chronological pairs.
func align(a, b map[int]float64) []pair {
	pairs := make([]pair, 0, min(len(a), len(b)))

	for year, va := range a {
		if vb, ok := b[year]; ok {
			pairs = append(pairs, pair{year: year, a: va, b: vb})
		}
	}

	sort.Slice(pairs, func(i, j int) bool { return pairs[i].year < pairs[j].year })

	return pairs
}

func pairYears(pairs []pair) []int {
	years := make([]int, len(pairs))
	for i, p := range pairs {
		years[i] = p.year
	}

	return years
}

// pearson computes the sample correlation coefficient over aligned pairs.
// ok is false when the overlap is below MinOverlap or either series has zero
// variance.
func pearson(pairs []pair) (r float64, ok bool) {
	n := len(pairs)
	if n < MinOverlap {
		return 0, false
	}

	var meanA, meanB float64

	for _, p := range pairs {
		meanA += p.a
		meanB += p.b
	}

	meanA /= float64(n)
	meanB /= float64(n)

	var cov, varA, varB float64

	for _, p := range pairs {
		da := p.a - meanA
		db := p.b - meanB
		cov += da * db
		varA += da * da
		varB += db * db
	}

	if varA == 0 || varB == 0 {
		return 0, false
	}

	return cov / math.Sqrt(varA*varB), true
}
