package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
)

// EnsureCountry resolves a country code to its catalog row, inserting it with
// the code as a placeholder name when unseen. Concurrent ensures for the same
// code converge on one row via the unique constraint.
func (s *PlatformStore) EnsureCountry(ctx context.Context, code string) (catalog.Country, error) {
	code = catalog.CanonicalCountryCode(code)

	country, ok, err := s.FindCountry(ctx, code)
	if err != nil {
		return catalog.Country{}, err
	}

	if ok {
		return country, nil
	}

	name := code
	if def, ok := catalog.DefaultCountryName(code); ok {
		name = def
	}

	err = s.conn.QueryRowContext(ctx,
		`INSERT INTO countries (code, name) VALUES ($1, $2) RETURNING id`,
		code, name,
	).Scan(&country.ID)

	if isUniqueViolation(err, "") {
		// Lost the insert race; the winner's row serves.
		country, _, err = s.FindCountry(ctx, code)

		return country, err
	}

	if err != nil {
		return catalog.Country{}, fmt.Errorf("inserting country %q: %w", code, err)
	}

	country.Code = code
	country.Name = name

	return country, nil
}

// EnsureIndicator resolves an indicator code to its catalog row, inserting a
// stub when unseen.
func (s *PlatformStore) EnsureIndicator(ctx context.Context, code, source string) (catalog.Indicator, error) {
	indicator, ok, err := s.FindIndicator(ctx, code)
	if err != nil {
		return catalog.Indicator{}, err
	}

	if ok {
		return indicator, nil
	}

	name := code
	if def, ok := catalog.DefaultIndicatorName(code); ok {
		name = def
	}

	err = s.conn.QueryRowContext(ctx,
		`INSERT INTO indicators (code, name, source) VALUES ($1, $2, $3) RETURNING id`,
		code, name, source,
	).Scan(&indicator.ID)

	if isUniqueViolation(err, "") {
		indicator, _, err = s.FindIndicator(ctx, code)

		return indicator, err
	}

	if err != nil {
		return catalog.Indicator{}, fmt.Errorf("inserting indicator %q: %w", code, err)
	}

	indicator.Code = code
	indicator.Name = name
	indicator.Source = source

	return indicator, nil
}

// SeedCatalog inserts the given countries and indicators, skipping codes the
// store already has. Safe to run on every startup; existing rows are never
// overwritten so operator edits survive restarts.
func (s *PlatformStore) SeedCatalog(
	ctx context.Context,
	countries []catalog.Country,
	indicators []catalog.Indicator,
) error {
	for _, country := range countries {
		code := catalog.CanonicalCountryCode(country.Code)
		if code == "" {
			continue
		}

		name := country.Name
		if name == "" {
			name = code
		}

		_, err := s.conn.ExecContext(ctx,
			`INSERT INTO countries (code, name) VALUES ($1, $2) ON CONFLICT (code) DO NOTHING`,
			code, name,
		)
		if err != nil {
			return fmt.Errorf("seeding country %q: %w", code, err)
		}
	}

	for _, indicator := range indicators {
		if indicator.Code == "" {
			continue
		}

		name := indicator.Name
		if name == "" {
			name = indicator.Code
		}

		source := indicator.Source
		if source == "" {
			source = catalog.WorldBankSource
		}

		_, err := s.conn.ExecContext(ctx,
			`INSERT INTO indicators (code, name, source, unit, description)
			 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''))
			 ON CONFLICT (code) DO NOTHING`,
			indicator.Code, name, source, indicator.Unit, indicator.Description,
		)
		if err != nil {
			return fmt.Errorf("seeding indicator %q: %w", indicator.Code, err)
		}
	}

	return nil
}

// FindCountry returns the stored country for a canonical code.
func (s *PlatformStore) FindCountry(ctx context.Context, code string) (catalog.Country, bool, error) {
	var country catalog.Country

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, code, name FROM countries WHERE code = $1`,
		code,
	).Scan(&country.ID, &country.Code, &country.Name)

	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Country{}, false, nil
	}

	if err != nil {
		return catalog.Country{}, false, fmt.Errorf("querying country %q: %w", code, err)
	}

	return country, true, nil
}

// FindIndicator returns the stored indicator for a code.
func (s *PlatformStore) FindIndicator(ctx context.Context, code string) (catalog.Indicator, bool, error) {
	var (
		indicator   catalog.Indicator
		unit        sql.NullString
		description sql.NullString
	)

	err := s.conn.QueryRowContext(ctx,
		`SELECT id, code, name, source, unit, description FROM indicators WHERE code = $1`,
		code,
	).Scan(&indicator.ID, &indicator.Code, &indicator.Name, &indicator.Source, &unit, &description)

	if errors.Is(err, sql.ErrNoRows) {
		return catalog.Indicator{}, false, nil
	}

	if err != nil {
		return catalog.Indicator{}, false, fmt.Errorf("querying indicator %q: %w", code, err)
	}

	indicator.Unit = unit.String
	indicator.Description = description.String

	return indicator, true, nil
}

// ListCountries returns all stored countries ordered by name.
func (s *PlatformStore) ListCountries(ctx context.Context) ([]catalog.Country, error) {
	rows, err := s.conn.QueryContext(ctx, `SELECT id, code, name FROM countries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("listing countries: %w", err)
	}
	defer rows.Close()

	var countries []catalog.Country

	for rows.Next() {
		var country catalog.Country
		if err := rows.Scan(&country.ID, &country.Code, &country.Name); err != nil {
			return nil, fmt.Errorf("scanning country: %w", err)
		}

		countries = append(countries, country)
	}

	return countries, rows.Err()
}

// ListIndicators returns all stored indicators ordered by code.
func (s *PlatformStore) ListIndicators(ctx context.Context) ([]catalog.Indicator, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT id, code, name, source, unit, description FROM indicators ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("listing indicators: %w", err)
	}
	defer rows.Close()

	var indicators []catalog.Indicator

	for rows.Next() {
		var (
			indicator   catalog.Indicator
			unit        sql.NullString
			description sql.NullString
		)

		if err := rows.Scan(
			&indicator.ID, &indicator.Code, &indicator.Name,
			&indicator.Source, &unit, &description,
		); err != nil {
			return nil, fmt.Errorf("scanning indicator: %w", err)
		}

		indicator.Unit = unit.String
		indicator.Description = description.String
		indicators = append(indicators, indicator)
	}

	return indicators, rows.Err()
}
