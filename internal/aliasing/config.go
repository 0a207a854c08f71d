// Package aliasing provides alias resolution for client-supplied country and
// indicator codes.
//
// Clients and upstream exports do not always use the canonical code forms the
// platform stores: ISO 3166-1 alpha-3 country codes ("KAZ") instead of the
// stored alpha-2 form ("KZ"), or human shorthands ("gini") instead of the
// provider's dotted indicator codes ("SI.POV.GINI"). This package maps such
// aliases to canonical codes before validation and lookup.
package aliasing

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds alias mappings loaded from the platform configuration file.
// The keys live alongside the catalog extension keys in the same YAML file;
// each section is optional.
type Config struct {
	// CountryAliases maps alternative country codes to canonical alpha-2
	// codes. Keys are matched case-insensitively.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	CountryAliases map[string]string `yaml:"country_aliases"`

	// IndicatorAliases maps shorthand names to canonical indicator codes.
	// Keys are matched case-insensitively.
	//nolint:tagliatelle // snake_case is intentional for YAML config files
	IndicatorAliases map[string]string `yaml:"indicator_aliases"`
}

// LoadConfig loads alias configuration from a YAML file at the given path.
//
// Behavior:
//   - Returns empty config (not error) if the file doesn't exist - aliases are optional
//   - Returns empty config + logs warning if YAML is invalid (graceful degradation)
//   - Returns populated config on success
//
// This graceful degradation ensures the server can start even without aliases
// configured; the built-in alias table still applies.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		CountryAliases:   make(map[string]string),
		IndicatorAliases: make(map[string]string),
	}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Alias config file not found, using built-in aliases only",
				slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("Failed to read alias config file, using built-in aliases only",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("Invalid alias config file, using built-in aliases only",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return &Config{
			CountryAliases:   make(map[string]string),
			IndicatorAliases: make(map[string]string),
		}, nil
	}

	if cfg.CountryAliases == nil {
		cfg.CountryAliases = make(map[string]string)
	}

	if cfg.IndicatorAliases == nil {
		cfg.IndicatorAliases = make(map[string]string)
	}

	return cfg, nil
}
