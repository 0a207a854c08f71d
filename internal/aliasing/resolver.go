package aliasing

import (
	"log/slog"
	"strings"
)

// Resolver maps alternative country and indicator codes to their canonical
// forms. Thread-safe for concurrent use (immutable after construction).
//
// Resolution is a single hop: the target of an alias is assumed canonical
// and is never resolved again. Unknown codes pass through unchanged so the
// normal validation and not-found paths still apply.
type Resolver struct {
	countries  map[string]string
	indicators map[string]string
}

// defaultCountryAliases maps ISO 3166-1 alpha-3 codes to the stored alpha-2
// form for the baseline countries.
var defaultCountryAliases = map[string]string{
	"KAZ": "KZ",
	"RUS": "RU",
	"USA": "US",
	"CHN": "CN",
	"DEU": "DE",
	"JPN": "JP",
	"FRA": "FR",
	"IND": "IN",
	"BRA": "BR",
	"ZAF": "ZA",
	"AUS": "AU",
}

// defaultIndicatorAliases maps human shorthands to the provider's dotted
// indicator codes for the baseline indicators.
var defaultIndicatorAliases = map[string]string{
	"gini":                  "SI.POV.GINI",
	"gdp":                   "NY.GDP.MKTP.CD",
	"gdp-per-capita":        "NY.GDP.PCAP.CD",
	"gdp-per-capita-growth": "NY.GDP.PCAP.KD.ZG",
	"inflation":             "FP.CPI.TOTL.ZG",
	"unemployment":          "SL.UEM.TOTL.ZS",
	"poverty":               "SI.POV.DDAY",
	"gov-consumption":       "NE.CON.GOVT.ZS",
	"income-lowest-20":      "SI.DST.FRST.20",
	"income-highest-20":     "SI.DST.05TH.20",
}

// NewResolver creates a resolver from the built-in alias tables extended by
// config with validation.
//
// Validates:
//   - Entries with an empty alias or target are skipped with warning
//   - Self-referential entries (alias equals target) are skipped with warning
//
// Config entries win over built-in entries on collision. If config is nil,
// the resolver carries only the built-in tables.
func NewResolver(cfg *Config) *Resolver {
	resolver := &Resolver{
		countries:  make(map[string]string, len(defaultCountryAliases)),
		indicators: make(map[string]string, len(defaultIndicatorAliases)),
	}

	for alias, target := range defaultCountryAliases {
		resolver.countries[alias] = target
	}

	for alias, target := range defaultIndicatorAliases {
		resolver.indicators[strings.ToLower(alias)] = target
	}

	if cfg == nil {
		return resolver
	}

	for alias, target := range cfg.CountryAliases {
		key := strings.ToUpper(strings.TrimSpace(alias))
		value := strings.ToUpper(strings.TrimSpace(target))

		if key == "" || value == "" {
			slog.Warn("Skipping country alias with empty alias or target",
				slog.String("alias", alias))

			continue
		}

		if key == value {
			slog.Warn("Skipping self-referential country alias",
				slog.String("alias", alias))

			continue
		}

		resolver.countries[key] = value
	}

	for alias, target := range cfg.IndicatorAliases {
		key := strings.ToLower(strings.TrimSpace(alias))
		value := strings.TrimSpace(target)

		if key == "" || value == "" {
			slog.Warn("Skipping indicator alias with empty alias or target",
				slog.String("alias", alias))

			continue
		}

		if strings.EqualFold(key, value) {
			slog.Warn("Skipping self-referential indicator alias",
				slog.String("alias", alias))

			continue
		}

		resolver.indicators[key] = value
	}

	slog.Debug("Alias resolver initialized",
		slog.Int("country_aliases", len(resolver.countries)),
		slog.Int("indicator_aliases", len(resolver.indicators)))

	return resolver
}

// AliasCount returns the number of registered aliases across both tables.
func (r *Resolver) AliasCount() int {
	if r == nil {
		return 0
	}

	return len(r.countries) + len(r.indicators)
}

// ResolveCountry maps an alternative country code to its canonical alpha-2
// form. Unknown codes are returned unchanged (trimmed only); canonical case
// folding stays with the validation layer.
func (r *Resolver) ResolveCountry(code string) string {
	trimmed := strings.TrimSpace(code)
	if r == nil || trimmed == "" {
		return trimmed
	}

	if target, ok := r.countries[strings.ToUpper(trimmed)]; ok {
		return target
	}

	return trimmed
}

// ResolveIndicator maps a shorthand to its canonical indicator code. Unknown
// codes are returned unchanged (trimmed only).
func (r *Resolver) ResolveIndicator(code string) string {
	trimmed := strings.TrimSpace(code)
	if r == nil || trimmed == "" {
		return trimmed
	}

	if target, ok := r.indicators[strings.ToLower(trimmed)]; ok {
		return target
	}

	return trimmed
}
