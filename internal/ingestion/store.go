package ingestion

import "context"

type (
	// ObservationStore defines the interface for observation persistence.
	//
	// Implementations must support:
	//   - Idempotency: UpsertIfAbsent never duplicates a composite key,
	//     re-ingesting only fills gaps
	//   - Concurrent writers: two racing inserts for the same key must not
	//     both report inserted=true; the loser observes the winner's row
	//   - Ordering: GetSeries results are always ordered by year ascending
	ObservationStore interface {
		// GetSeries returns the stored observations for a country/indicator
		// pair ordered by year ascending, optionally bounded by yearRange.
		GetSeries(ctx context.Context, countryID, indicatorID int64, yearRange YearRange) ([]Observation, error)

		// UpsertIfAbsent inserts the observation when its composite key is
		// absent. Returns inserted=false both when the pre-check read finds
		// an existing row and when a concurrent writer wins the insert race;
		// neither case is an error.
		UpsertIfAbsent(ctx context.Context, obs Observation) (inserted bool, err error)
	}

	// RunStore defines the interface for ingestion run audit persistence.
	//
	// CreateRun records the started state; exactly one of CompleteRun or
	// FailRun finishes the row. Implementations never transition a terminal
	// row again.
	RunStore interface {
		// CreateRun inserts a run in the started state and returns its id.
		CreateRun(ctx context.Context, source, countryCode, indicatorCode string) (int64, error)

		// CompleteRun transitions a run to completed with its counts.
		CompleteRun(ctx context.Context, runID int64, counts RunCounts) error

		// FailRun transitions a run to failed, recording the error message.
		FailRun(ctx context.Context, runID int64, message string) error

		// ListRuns returns the most recent runs ordered by id descending,
		// capped at limit.
		ListRuns(ctx context.Context, limit int) ([]Run, error)
	}
)
