package inequality

import "context"

// StoredResult is a persisted Lorenz computation keyed by (country, year).
type StoredResult struct {
	ID        int64
	CountryID int64
	Year      int
	Points    []Point
	Gini      float64
}

// Store persists Lorenz results under a (country_id, year) unique constraint.
//
// The constraint is the source of truth under concurrency: two racing
// computations may both attempt the insert, but at most one row ever exists
// and InsertResult reports inserted=false to the loser, which then re-reads
// the winner's row.
//
// Implemented by storage.PlatformStore.
type Store interface {
	// GetResult returns the cached Lorenz row for a country/year, or
	// ok=false when none exists.
	GetResult(ctx context.Context, countryID int64, year int) (StoredResult, bool, error)

	// InsertResult persists a computed Lorenz row. Returns inserted=false
	// when a row for the same (country_id, year) already exists.
	InsertResult(ctx context.Context, result StoredResult) (inserted bool, err error)
}
