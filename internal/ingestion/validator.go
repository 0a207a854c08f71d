// Package ingestion provides boundary validation for ingestion and analytics
// request parameters.
package ingestion

import (
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Sentinel errors for validation failures.
var (
	ErrInvalidCountryCode   = errors.New("invalid country code")
	ErrInvalidIndicatorCode = errors.New("invalid indicator code")
	ErrYearOutOfRange       = errors.New("year out of range")
	ErrInvalidYearRange     = errors.New("start_year must be <= end_year")
	ErrInvalidHorizon       = errors.New("horizon_years must be between 1 and 20")
	ErrEmptyCountryList     = errors.New("countries is required")
	ErrTooManyCountries     = errors.New("too many countries")
)

// Validation bounds. MinSafeYear matches the earliest year the provider
// serves consistent data for; the upper bound is the current year.
const (
	MinSafeYear  = 1990
	MinHorizon   = 1
	MaxHorizon   = 20
	MaxCountries = 25
)

// Code patterns are compiled once at package initialization.
var (
	// countryCodePattern accepts ISO2/ISO3 or platform codes.
	countryCodePattern = regexp.MustCompile(`^[A-Za-z0-9-]{2,8}$`)

	// indicatorCodePattern accepts World Bank-style codes, e.g. SI.POV.GINI.
	indicatorCodePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,64}$`)
)

// MaxSafeYear returns the inclusive upper bound for year parameters.
func MaxSafeYear() int {
	return time.Now().UTC().Year()
}

// ValidateCountryCode checks a raw country code parameter.
func ValidateCountryCode(code string) error {
	if !countryCodePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidCountryCode, code)
	}

	return nil
}

// ValidateIndicatorCode checks a raw indicator code parameter.
func ValidateIndicatorCode(code string) error {
	if !indicatorCodePattern.MatchString(code) {
		return fmt.Errorf("%w: %q", ErrInvalidIndicatorCode, code)
	}

	return nil
}

// ValidateYear checks a year parameter against the safe bounds.
func ValidateYear(year int) error {
	if year < MinSafeYear || year > MaxSafeYear() {
		return fmt.Errorf("%w: %d (must be %d..%d)", ErrYearOutOfRange, year, MinSafeYear, MaxSafeYear())
	}

	return nil
}

// ValidateYearRange checks optional range endpoints and their ordering.
func ValidateYearRange(r YearRange) error {
	if r.Start != nil {
		if err := ValidateYear(*r.Start); err != nil {
			return err
		}
	}

	if r.End != nil {
		if err := ValidateYear(*r.End); err != nil {
			return err
		}
	}

	if r.Start != nil && r.End != nil && *r.Start > *r.End {
		return ErrInvalidYearRange
	}

	return nil
}

// ValidateHorizon checks a forecast horizon parameter.
func ValidateHorizon(horizon int) error {
	if horizon < MinHorizon || horizon > MaxHorizon {
		return fmt.Errorf("%w: got %d", ErrInvalidHorizon, horizon)
	}

	return nil
}

// ValidateCountryList checks a ranking country list: non-empty, bounded, and
// every code well-formed.
func ValidateCountryList(codes []string) error {
	if len(codes) == 0 {
		return ErrEmptyCountryList
	}

	if len(codes) > MaxCountries {
		return fmt.Errorf("%w: got %d, max %d", ErrTooManyCountries, len(codes), MaxCountries)
	}

	for _, code := range codes {
		if err := ValidateCountryCode(code); err != nil {
			return err
		}
	}

	return nil
}
