package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

// GetSeries returns the stored observations for a pair ordered by year
// ascending, optionally bounded by yearRange.
func (s *PlatformStore) GetSeries(
	ctx context.Context,
	countryID, indicatorID int64,
	yearRange ingestion.YearRange,
) ([]ingestion.Observation, error) {
	query := `SELECT id, country_id, indicator_id, year, value, source, is_estimate
	          FROM observations
	          WHERE country_id = $1 AND indicator_id = $2`
	args := []any{countryID, indicatorID}

	if yearRange.Start != nil {
		args = append(args, *yearRange.Start)
		query += " AND year >= $" + strconv.Itoa(len(args))
	}

	if yearRange.End != nil {
		args = append(args, *yearRange.End)
		query += " AND year <= $" + strconv.Itoa(len(args))
	}

	query += " ORDER BY year"

	rows, err := s.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying series: %w", err)
	}
	defer rows.Close()

	var observations []ingestion.Observation

	for rows.Next() {
		var (
			obs   ingestion.Observation
			value sql.NullFloat64
		)

		if err := rows.Scan(
			&obs.ID, &obs.CountryID, &obs.IndicatorID,
			&obs.Year, &value, &obs.Source, &obs.IsEstimate,
		); err != nil {
			return nil, fmt.Errorf("scanning observation: %w", err)
		}

		if value.Valid {
			obs.Value = &value.Float64
		}

		observations = append(observations, obs)
	}

	return observations, rows.Err()
}

// UpsertIfAbsent inserts the observation unless its (country, indicator,
// year) key already holds a row. ON CONFLICT DO NOTHING makes the composite
// unique constraint decide races; the loser simply reports inserted=false.
func (s *PlatformStore) UpsertIfAbsent(ctx context.Context, obs ingestion.Observation) (bool, error) {
	var value sql.NullFloat64
	if obs.Value != nil {
		value = sql.NullFloat64{Float64: *obs.Value, Valid: true}
	}

	result, err := s.conn.ExecContext(ctx,
		`INSERT INTO observations (country_id, indicator_id, year, value, source, is_estimate)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT ON CONSTRAINT uq_observation DO NOTHING`,
		obs.CountryID, obs.IndicatorID, obs.Year, value, obs.Source, obs.IsEstimate,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_observation") {
			return false, nil
		}

		return false, fmt.Errorf("inserting observation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading insert result: %w", err)
	}

	if affected == 0 {
		s.logger.Debug("Observation already present",
			slog.Int64("country_id", obs.CountryID),
			slog.Int64("indicator_id", obs.IndicatorID),
			slog.Int("year", obs.Year),
		)
	}

	return affected > 0, nil
}
