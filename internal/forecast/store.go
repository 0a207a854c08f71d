package forecast

import "context"

// Store persists forecast runs with their owned points.
//
// Runs are append-only: every computation inserts a new run, and the latest
// run for a pair is the one with the highest id. Points belong to exactly one
// run and are deleted with it.
//
// Implemented by storage.PlatformStore.
type Store interface {
	// InsertRun inserts the run and its points atomically, returning the
	// run with its assigned id.
	InsertRun(ctx context.Context, run Run, points []Point) (Run, error)

	// LatestRun returns the highest-id run for the pair with its points
	// ordered by year, or ok=false when no run exists.
	LatestRun(ctx context.Context, countryID, indicatorID int64) (Run, []Point, bool, error)
}
