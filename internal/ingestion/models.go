// Package ingestion provides the observation domain model and the pipeline
// that pulls indicator series from the upstream provider into the
// deduplicated, append-only observation store.
//
// This package defines the store interfaces it needs for persistence,
// following the Dependency Inversion Principle. Concrete implementations
// live in the internal/storage package.
package ingestion

import "time"

// RunStatus is the lifecycle state of an ingestion run.
type RunStatus string

// Ingestion run states. A run starts as RunStarted and finishes in exactly
// one of the terminal states; terminal rows are never revisited.
const (
	RunStarted   RunStatus = "started"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// IsTerminal reports whether the status is a terminal state.
func (s RunStatus) IsTerminal() bool {
	return s == RunCompleted || s == RunFailed
}

type (
	// Observation is one (country, indicator, year) → value row.
	// At most one row exists per composite key; rows are append-only and
	// never updated by the normal flow.
	Observation struct {
		ID          int64
		CountryID   int64
		IndicatorID int64
		Year        int
		Value       *float64
		Source      string
		IsEstimate  bool
	}

	// Run is the audit record for one ingestion invocation.
	Run struct {
		ID            int64
		Source        string
		CountryCode   string
		IndicatorCode string
		Status        RunStatus
		Inserted      int
		Total         int
		Expected      int
		Missing       int
		Error         string
		StartedAt     time.Time
		FinishedAt    *time.Time
	}

	// RunCounts carries the bookkeeping recorded on a completed run.
	RunCounts struct {
		Inserted int
		Total    int

		// Expected is max(year)-min(year)+1 over the fetched series: a
		// heuristic gap estimate, not a guarantee of contiguous years.
		Expected int

		// Missing is max(Expected-Total, 0).
		Missing int
	}

	// Result is what an ingestion invocation returns to the caller.
	Result struct {
		RunID    int64
		Inserted int
		Total    int
		Expected int
		Missing  int
	}

	// YearRange optionally bounds a series query. Nil endpoints are open.
	YearRange struct {
		Start *int
		End   *int
	}
)

// Contains reports whether a year falls inside the (possibly open) range.
func (r YearRange) Contains(year int) bool {
	if r.Start != nil && year < *r.Start {
		return false
	}

	if r.End != nil && year > *r.End {
		return false
	}

	return true
}
