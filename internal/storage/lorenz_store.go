package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Nuraidyn/economic-web-platform/internal/inequality"
)

// GetResult returns the cached Lorenz row for a country/year.
func (s *PlatformStore) GetResult(ctx context.Context, countryID int64, year int) (inequality.StoredResult, bool, error) {
	var (
		result     inequality.StoredResult
		pointsJSON string
	)

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, country_id, year, points_json, gini
		 FROM lorenz_results
		 WHERE country_id = $1 AND year = $2`,
		countryID, year,
	).Scan(&result.ID, &result.CountryID, &result.Year, &pointsJSON, &result.Gini)

	if errors.Is(err, sql.ErrNoRows) {
		return inequality.StoredResult{}, false, nil
	}

	if err != nil {
		return inequality.StoredResult{}, false, fmt.Errorf("querying lorenz result: %w", err)
	}

	if err := json.Unmarshal([]byte(pointsJSON), &result.Points); err != nil {
		return inequality.StoredResult{}, false, fmt.Errorf("decoding lorenz points: %w", err)
	}

	return result, true, nil
}

// InsertResult persists a computed Lorenz row. The (country_id, year) unique
// constraint resolves concurrent computations: exactly one insert wins and
// the others see inserted=false.
func (s *PlatformStore) InsertResult(ctx context.Context, result inequality.StoredResult) (bool, error) {
	pointsJSON, err := json.Marshal(result.Points)
	if err != nil {
		return false, fmt.Errorf("encoding lorenz points: %w", err)
	}

	sqlResult, err := s.conn.ExecContext(ctx,
		`INSERT INTO lorenz_results (country_id, year, points_json, gini)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT ON CONSTRAINT uq_lorenz_result DO NOTHING`,
		result.CountryID, result.Year, string(pointsJSON), result.Gini,
	)
	if err != nil {
		if isUniqueViolation(err, "uq_lorenz_result") {
			return false, nil
		}

		return false, fmt.Errorf("inserting lorenz result: %w", err)
	}

	affected, err := sqlResult.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reading insert result: %w", err)
	}

	return affected > 0, nil
}
