package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

// ErrRunNotFound is returned when a run transition targets a missing or
// already-terminal row.
var ErrRunNotFound = errors.New("ingestion run not found or already terminal")

// CreateRun inserts an ingestion run in the started state.
func (s *PlatformStore) CreateRun(ctx context.Context, source, countryCode, indicatorCode string) (int64, error) {
	var id int64

	err := s.conn.QueryRowContext(ctx,
		`INSERT INTO ingestion_runs (source, country_code, indicator_code, status)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		source, countryCode, indicatorCode, ingestion.RunStarted,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("inserting ingestion run: %w", err)
	}

	return id, nil
}

// CompleteRun transitions a started run to completed with its counts.
// Terminal rows are never revisited: the WHERE clause refuses the update.
func (s *PlatformStore) CompleteRun(ctx context.Context, runID int64, counts ingestion.RunCounts) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE ingestion_runs
		 SET status = $1, inserted = $2, total = $3, expected = $4, missing = $5,
		     finished_at = CURRENT_TIMESTAMP
		 WHERE id = $6 AND status = $7`,
		ingestion.RunCompleted, counts.Inserted, counts.Total, counts.Expected, counts.Missing,
		runID, ingestion.RunStarted,
	)
	if err != nil {
		return fmt.Errorf("completing ingestion run %d: %w", runID, err)
	}

	return checkRunUpdated(result, runID)
}

// FailRun transitions a started run to failed, recording the error message.
func (s *PlatformStore) FailRun(ctx context.Context, runID int64, message string) error {
	result, err := s.conn.ExecContext(ctx,
		`UPDATE ingestion_runs
		 SET status = $1, error = $2, finished_at = CURRENT_TIMESTAMP
		 WHERE id = $3 AND status = $4`,
		ingestion.RunFailed, message, runID, ingestion.RunStarted,
	)
	if err != nil {
		return fmt.Errorf("failing ingestion run %d: %w", runID, err)
	}

	return checkRunUpdated(result, runID)
}

// ListRuns returns the most recent runs ordered by id descending.
func (s *PlatformStore) ListRuns(ctx context.Context, limit int) ([]ingestion.Run, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, source, country_code, indicator_code, status,
		        inserted, total, expected, missing, error, started_at, finished_at
		 FROM ingestion_runs
		 ORDER BY id DESC
		 LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("listing ingestion runs: %w", err)
	}
	defer rows.Close()

	var runs []ingestion.Run

	for rows.Next() {
		var (
			run        ingestion.Run
			errMessage sql.NullString
			finishedAt sql.NullTime
		)

		if err := rows.Scan(
			&run.ID, &run.Source, &run.CountryCode, &run.IndicatorCode, &run.Status,
			&run.Inserted, &run.Total, &run.Expected, &run.Missing,
			&errMessage, &run.StartedAt, &finishedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning ingestion run: %w", err)
		}

		run.Error = errMessage.String

		if finishedAt.Valid {
			run.FinishedAt = &finishedAt.Time
		}

		runs = append(runs, run)
	}

	return runs, rows.Err()
}

func checkRunUpdated(result sql.Result, runID int64) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading update result for run %d: %w", runID, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %d", ErrRunNotFound, runID)
	}

	return nil
}
