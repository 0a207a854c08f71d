package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Nuraidyn/economic-web-platform/internal/forecast"
)

// InsertRun inserts a forecast run and its points in one transaction. The id
// sequence makes the newest run for a pair the one with the highest id.
func (s *PlatformStore) InsertRun(ctx context.Context, run forecast.Run, points []forecast.Point) (forecast.Run, error) {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return forecast.Run{}, fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		_ = tx.Rollback() // No-op after commit.
	}()

	err = tx.QueryRowContext(ctx,
		`INSERT INTO forecast_runs
		     (country_id, target_indicator_id, model_name, horizon_years, assumptions, metrics)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at`,
		run.CountryID, run.TargetIndicatorID, run.ModelName,
		run.HorizonYears, run.Assumptions, run.Metrics,
	).Scan(&run.ID, &run.CreatedAt)
	if err != nil {
		return forecast.Run{}, fmt.Errorf("inserting forecast run: %w", err)
	}

	for i := range points {
		points[i].RunID = run.ID

		err = tx.QueryRowContext(ctx,
			`INSERT INTO forecast_points (run_id, year, value, lower, upper)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id`,
			run.ID, points[i].Year, points[i].Value, points[i].Lower, points[i].Upper,
		).Scan(&points[i].ID)
		if err != nil {
			return forecast.Run{}, fmt.Errorf("inserting forecast point for year %d: %w", points[i].Year, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return forecast.Run{}, fmt.Errorf("committing forecast run: %w", err)
	}

	return run, nil
}

// LatestRun returns the highest-id run for the pair with its points ordered
// by year.
func (s *PlatformStore) LatestRun(
	ctx context.Context,
	countryID, indicatorID int64,
) (forecast.Run, []forecast.Point, bool, error) {
	var (
		run         forecast.Run
		assumptions sql.NullString
		metrics     sql.NullString
	)

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, country_id, target_indicator_id, model_name, horizon_years,
		        assumptions, metrics, created_at
		 FROM forecast_runs
		 WHERE country_id = $1 AND target_indicator_id = $2
		 ORDER BY id DESC
		 LIMIT 1`,
		countryID, indicatorID,
	).Scan(
		&run.ID, &run.CountryID, &run.TargetIndicatorID, &run.ModelName,
		&run.HorizonYears, &assumptions, &metrics, &run.CreatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return forecast.Run{}, nil, false, nil
	}

	if err != nil {
		return forecast.Run{}, nil, false, fmt.Errorf("querying latest forecast run: %w", err)
	}

	run.Assumptions = assumptions.String
	run.Metrics = metrics.String

	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, run_id, year, value, lower, upper
		 FROM forecast_points
		 WHERE run_id = $1
		 ORDER BY year`,
		run.ID,
	)
	if err != nil {
		return forecast.Run{}, nil, false, fmt.Errorf("querying forecast points: %w", err)
	}
	defer rows.Close()

	var points []forecast.Point

	for rows.Next() {
		var (
			point        forecast.Point
			lower, upper sql.NullFloat64
		)

		if err := rows.Scan(&point.ID, &point.RunID, &point.Year, &point.Value, &lower, &upper); err != nil {
			return forecast.Run{}, nil, false, fmt.Errorf("scanning forecast point: %w", err)
		}

		point.Lower = lower.Float64
		point.Upper = upper.Float64
		points = append(points, point)
	}

	if err := rows.Err(); err != nil {
		return forecast.Run{}, nil, false, err
	}

	return run, points, true, nil
}
