// Package catalog provides the country/indicator catalog domain model.
//
// This package defines the Store interface which represents what the domain
// needs for catalog persistence, following the Dependency Inversion Principle.
// The concrete PostgreSQL implementation lives in the internal/storage package.
package catalog

import (
	"context"
	"strings"
)

type (
	// Country is a catalog row resolved from an ISO-style country code.
	// Codes are canonicalized to upper-case. Rows are immutable once created
	// except for display-name backfill.
	Country struct {
		ID   int64
		Code string
		Name string
	}

	// Indicator is a catalog row for a provider indicator code
	// (e.g. SI.POV.GINI).
	Indicator struct {
		ID          int64
		Code        string
		Name        string
		Source      string
		Unit        string
		Description string
	}

	// Store defines the interface for catalog persistence.
	//
	// EnsureCountry and EnsureIndicator are explicit upsert operations
	// returning an identifier, callable from both the ingestion path and
	// catalog reads. Create-if-missing rows use the raw code as the display
	// name; the merge rules in defaults.go backfill proper names later.
	Store interface {
		// EnsureCountry resolves a country code to a catalog row, creating
		// it when absent. The code is canonicalized to upper-case.
		EnsureCountry(ctx context.Context, code string) (Country, error)

		// EnsureIndicator resolves an indicator code to a catalog row,
		// creating it with the given source when absent.
		EnsureIndicator(ctx context.Context, code, source string) (Indicator, error)

		// FindCountry returns the stored country for a canonical code, or
		// ok=false when unknown. It never creates rows.
		FindCountry(ctx context.Context, code string) (Country, bool, error)

		// FindIndicator returns the stored indicator for a code, or ok=false
		// when unknown. It never creates rows.
		FindIndicator(ctx context.Context, code string) (Indicator, bool, error)

		// ListCountries returns all stored countries ordered by name.
		ListCountries(ctx context.Context) ([]Country, error)

		// ListIndicators returns all stored indicators ordered by code.
		ListIndicators(ctx context.Context) ([]Indicator, error)
	}
)

// CanonicalCountryCode returns the canonical (upper-case, trimmed) form of a
// country code.
func CanonicalCountryCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
