package inequality

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

type memoKey struct {
	countryID int64
	year      int
}

// Service computes inequality analytics over stored observations, with live
// upstream fallback for trend and ranking queries.
//
// Computed Lorenz results are memoized in-process behind a mutex and
// persisted through the write-once Store. Redundant recomputation across
// processes is acceptable; divergent results are not, so readers always trust
// the persisted row over a fresh computation.
type Service struct {
	catalog      catalog.Store
	observations ingestion.ObservationStore
	results      Store
	fetcher      ingestion.SeriesFetcher
	logger       *slog.Logger

	mu   sync.Mutex
	memo map[memoKey]Result
}

// NewService creates an inequality service over the given collaborators.
func NewService(
	catalogStore catalog.Store,
	observations ingestion.ObservationStore,
	results Store,
	fetcher ingestion.SeriesFetcher,
	logger *slog.Logger,
) *Service {
	return &Service{
		catalog:      catalogStore,
		observations: observations,
		results:      results,
		fetcher:      fetcher,
		logger:       logger,
		memo:         make(map[memoKey]Result),
	}
}

// LorenzGini returns the Lorenz curve and Gini coefficient for a country and
// year, computing and caching it on first request.
//
// Each quintile share uses carry-forward: the latest observation at or before
// the requested year. When any quintile has no usable value the method
// returns a nil Result and an Availability naming the missing codes - partial
// curves are never computed.
func (s *Service) LorenzGini(ctx context.Context, countryCode string, year int) (*Result, *Availability, error) {
	countryCode = catalog.CanonicalCountryCode(countryCode)

	country, ok, err := s.catalog.FindCountry(ctx, countryCode)
	if err != nil {
		return nil, nil, fmt.Errorf("looking up country %q: %w", countryCode, err)
	}

	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrCountryNotFound, countryCode)
	}

	key := memoKey{countryID: country.ID, year: year}

	s.mu.Lock()
	if cached, ok := s.memo[key]; ok {
		s.mu.Unlock()

		return &cached, nil, nil
	}
	s.mu.Unlock()

	if stored, ok, err := s.results.GetResult(ctx, country.ID, year); err != nil {
		return nil, nil, fmt.Errorf("reading cached result: %w", err)
	} else if ok {
		return s.memoize(key, storedToResult(countryCode, stored)), nil, nil
	}

	shares, missing, err := s.gatherQuintiles(ctx, country.ID, year)
	if err != nil {
		return nil, nil, err
	}

	if len(missing) > 0 {
		return nil, &Availability{CountryCode: countryCode, Year: year, Missing: missing}, nil
	}

	points := buildLorenzPoints(shares)
	gini := computeGini(points)

	inserted, err := s.results.InsertResult(ctx, StoredResult{
		CountryID: country.ID,
		Year:      year,
		Points:    points,
		Gini:      gini,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("caching result: %w", err)
	}

	if !inserted {
		// Lost the insert race: the winner's row is authoritative.
		stored, ok, err := s.results.GetResult(ctx, country.ID, year)
		if err != nil {
			return nil, nil, fmt.Errorf("re-reading cached result: %w", err)
		}

		if ok {
			return s.memoize(key, storedToResult(countryCode, stored)), nil, nil
		}
	}

	s.logger.Info("Lorenz result computed",
		slog.String("country", countryCode),
		slog.Int("year", year),
		slog.Float64("gini", gini),
	)

	return s.memoize(key, Result{
		CountryCode: countryCode,
		Year:        year,
		Points:      points,
		Gini:        gini,
	}), nil, nil
}

func (s *Service) memoize(key memoKey, result Result) *Result {
	s.mu.Lock()
	s.memo[key] = result
	s.mu.Unlock()

	return &result
}

func storedToResult(countryCode string, stored StoredResult) Result {
	return Result{
		CountryCode: countryCode,
		Year:        stored.Year,
		Points:      stored.Points,
		Gini:        stored.Gini,
		Cached:      true,
	}
}

// gatherQuintiles collects the five income shares via carry-forward. The
// latest observation at or before the year decides, even if its value is
// null; a null latest value counts as missing rather than falling back to an
// older year.
func (s *Service) gatherQuintiles(ctx context.Context, countryID int64, year int) ([]float64, []string, error) {
	shares := make([]float64, 0, len(QuintileIndicators))

	var missing []string

	for _, quintile := range QuintileIndicators {
		indicator, ok, err := s.catalog.FindIndicator(ctx, quintile.code)
		if err != nil {
			return nil, nil, fmt.Errorf("looking up indicator %q: %w", quintile.code, err)
		}

		if !ok {
			missing = append(missing, quintile.code)

			continue
		}

		series, err := s.observations.GetSeries(ctx, countryID, indicator.ID, ingestion.YearRange{End: &year})
		if err != nil {
			return nil, nil, fmt.Errorf("loading series for %q: %w", quintile.code, err)
		}

		if len(series) == 0 {
			missing = append(missing, quintile.code)

			continue
		}

		latest := series[len(series)-1]
		if latest.Value == nil {
			missing = append(missing, quintile.code)

			continue
		}

		shares = append(shares, *latest.Value)
	}

	return shares, missing, nil
}

// buildLorenzPoints folds quintile income shares (percentages) into the
// cumulative polyline from (0,0), each coordinate rounded to 4 decimals.
func buildLorenzPoints(shares []float64) []Point {
	points := make([]Point, 0, len(shares)+1)
	points = append(points, Point{X: 0, Y: 0})

	var cumX, cumY float64

	for i, share := range shares {
		cumX = round4(cumX + QuintileIndicators[i].weight)
		cumY = round4(cumY + share/100)
		points = append(points, Point{X: cumX, Y: cumY})
	}

	return points
}

// computeGini integrates the polyline by the trapezoid rule and clamps
// 1-2*area into [0,1].
func computeGini(points []Point) float64 {
	var area float64

	for i := 1; i < len(points); i++ {
		prev, cur := points[i-1], points[i]
		area += (prev.Y + cur.Y) * (cur.X - prev.X) / 2
	}

	return math.Max(0, math.Min(1, 1-2*area))
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

// seriesRow is one loaded (year, value) pair; value may be null for stored
// observations.
type seriesRow struct {
	year  int
	value *float64
}

// GiniTrend returns the SI.POV.GINI series for a country with year-over-year
// deltas, preferring stored observations and falling back to a live upstream
// fetch when nothing is stored.
func (s *Service) GiniTrend(ctx context.Context, countryCode string, yearRange ingestion.YearRange) (*Trend, error) {
	countryCode = catalog.CanonicalCountryCode(countryCode)

	series, meta, err := s.loadGiniSeries(ctx, countryCode)
	if err != nil {
		return nil, err
	}

	points := make([]TrendPoint, 0, len(series))

	var prev *float64

	for _, row := range series {
		if !yearRange.Contains(row.year) {
			continue
		}

		point := TrendPoint{Year: row.year, Value: row.value}

		if row.value != nil && prev != nil {
			delta := *row.value - *prev
			point.YoYChange = &delta
		}

		if row.value != nil {
			prev = row.value
		}

		points = append(points, point)
	}

	return &Trend{
		CountryCode: countryCode,
		Indicator:   GiniIndicator,
		Points:      points,
		Meta:        meta,
	}, nil
}

// GiniRanking returns per-country exact-year Gini values sorted descending,
// null-valued countries after all valued ones. A per-country load failure
// yields a null row, never a request failure.
func (s *Service) GiniRanking(ctx context.Context, year int, countryCodes []string) ([]RankingRow, error) {
	rows := make([]RankingRow, 0, len(countryCodes))

	for _, code := range countryCodes {
		code = catalog.CanonicalCountryCode(code)
		row := RankingRow{CountryCode: code, Year: year}

		series, _, err := s.loadGiniSeries(ctx, code)
		if err != nil {
			s.logger.Warn("Ranking series load failed",
				slog.String("country", code),
				slog.String("error", err.Error()),
			)
			rows = append(rows, row)

			continue
		}

		for _, r := range series {
			if r.year == year {
				row.Value = r.value

				break
			}
		}

		rows = append(rows, row)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i].Value, rows[j].Value

		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})

	return rows, nil
}

// loadGiniSeries prefers stored observations; an empty store for the pair
// triggers a live fetch.
func (s *Service) loadGiniSeries(ctx context.Context, countryCode string) ([]seriesRow, TrendMeta, error) {
	country, countryOK, err := s.catalog.FindCountry(ctx, countryCode)
	if err != nil {
		return nil, TrendMeta{}, fmt.Errorf("looking up country %q: %w", countryCode, err)
	}

	indicator, indicatorOK, err := s.catalog.FindIndicator(ctx, GiniIndicator)
	if err != nil {
		return nil, TrendMeta{}, fmt.Errorf("looking up indicator %q: %w", GiniIndicator, err)
	}

	if countryOK && indicatorOK {
		observations, err := s.observations.GetSeries(ctx, country.ID, indicator.ID, ingestion.YearRange{})
		if err != nil {
			return nil, TrendMeta{}, fmt.Errorf("loading stored series: %w", err)
		}

		if len(observations) > 0 {
			rows := make([]seriesRow, len(observations))
			for i, obs := range observations {
				rows[i] = seriesRow{year: obs.Year, value: obs.Value}
			}

			return rows, TrendMeta{Source: SourceCache}, nil
		}
	}

	entries, err := s.fetcher.FetchSeries(ctx, countryCode, GiniIndicator)
	if err != nil {
		return nil, TrendMeta{}, err
	}

	fetchedAt := time.Now().UTC()
	rows := make([]seriesRow, len(entries))

	for i, entry := range entries {
		value := entry.Value
		rows[i] = seriesRow{year: entry.Year, value: &value}
	}

	return rows, TrendMeta{Source: SourceLive, FetchedAt: &fetchedAt}, nil
}
