package catalog

import (
	"errors"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/Nuraidyn/economic-web-platform/internal/config"
)

// DefaultConfigPath is the default location for the optional catalog
// extension file. Uses hidden file format following common tool conventions.
const DefaultConfigPath = ".platform.yaml"

// ConfigPathEnvVar is the environment variable name for a custom config path.
const ConfigPathEnvVar = "PLATFORM_CATALOG_CONFIG_PATH"

type (
	// Config holds optional catalog extensions loaded from .platform.yaml.
	// Operators can add countries and indicators beyond the built-in
	// baseline without a rebuild.
	Config struct {
		Countries  []ConfigCountry   `yaml:"countries"`
		Indicators []ConfigIndicator `yaml:"indicators"`
	}

	// ConfigCountry is a YAML country entry.
	ConfigCountry struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
	}

	// ConfigIndicator is a YAML indicator entry.
	ConfigIndicator struct {
		Code string `yaml:"code"`
		Name string `yaml:"name"`
		Unit string `yaml:"unit"`
	}
)

// ConfigPath returns the catalog config path from the environment or the
// default.
func ConfigPath() string {
	return config.GetEnvStr(ConfigPathEnvVar, DefaultConfigPath)
}

// LoadConfig loads catalog extensions from a YAML file at the given path.
//
// Behavior:
//   - Returns empty config (not error) if the file doesn't exist - extensions are optional
//   - Returns empty config + logs warning if YAML is invalid (graceful degradation)
//   - Returns populated config on success
//
// This graceful degradation ensures the server can start even without a
// catalog file, as extensions are an optional feature.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config source
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Debug("Catalog config file not found, continuing with built-in defaults",
				slog.String("path", path))

			return cfg, nil
		}

		slog.Warn("Failed to read catalog config file, continuing with built-in defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return cfg, nil
	}

	if len(data) == 0 {
		return cfg, nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		slog.Warn("Invalid catalog config file, continuing with built-in defaults",
			slog.String("path", path),
			slog.String("error", err.Error()))

		return &Config{}, nil
	}

	return cfg, nil
}

// ExtendDefaults returns the built-in defaults extended with any entries from
// the config file. Built-in entries win on code collision; file entries only
// add codes the baseline doesn't know.
func (c *Config) ExtendDefaults() ([]Country, []Indicator) {
	countries := make([]Country, len(DefaultCountries))
	copy(countries, DefaultCountries)

	knownCountries := make(map[string]bool, len(countries))
	for _, row := range countries {
		knownCountries[row.Code] = true
	}

	for _, extra := range c.Countries {
		code := CanonicalCountryCode(extra.Code)
		if code == "" || knownCountries[code] {
			continue
		}

		name := extra.Name
		if name == "" {
			name = code
		}

		countries = append(countries, Country{Code: code, Name: name})
		knownCountries[code] = true
	}

	indicators := make([]Indicator, len(DefaultIndicators))
	copy(indicators, DefaultIndicators)

	knownIndicators := make(map[string]bool, len(indicators))
	for _, row := range indicators {
		knownIndicators[row.Code] = true
	}

	for _, extra := range c.Indicators {
		if extra.Code == "" || knownIndicators[extra.Code] {
			continue
		}

		name := extra.Name
		if name == "" {
			name = extra.Code
		}

		indicators = append(indicators, Indicator{
			Code:   extra.Code,
			Name:   name,
			Source: WorldBankSource,
			Unit:   extra.Unit,
		})
		knownIndicators[extra.Code] = true
	}

	return countries, indicators
}
