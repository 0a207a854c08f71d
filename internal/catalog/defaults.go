package catalog

// WorldBankSource is the provider tag recorded on ingested catalog rows and
// observations.
const WorldBankSource = "world_bank"

// DefaultCountries is the built-in baseline country list. Catalog reads merge
// stored rows over these defaults; the ingester's seed mode walks this list.
var DefaultCountries = []Country{
	{Code: "KZ", Name: "Kazakhstan"},
	{Code: "RU", Name: "Russia"},
	{Code: "US", Name: "United States"},
	{Code: "CN", Name: "China"},
	{Code: "DE", Name: "Germany"},
	{Code: "JP", Name: "Japan"},
	{Code: "FR", Name: "France"},
	{Code: "IN", Name: "India"},
	{Code: "BR", Name: "Brazil"},
	{Code: "ZA", Name: "South Africa"},
	{Code: "AU", Name: "Australia"},
}

// DefaultIndicators is the built-in baseline indicator list.
var DefaultIndicators = []Indicator{
	{Code: "SI.POV.GINI", Name: "Gini Index", Source: WorldBankSource},
	{Code: "NY.GDP.MKTP.CD", Name: "GDP (current US$)", Source: WorldBankSource},
	{Code: "NY.GDP.PCAP.CD", Name: "GDP per capita (current US$)", Source: WorldBankSource},
	{Code: "NY.GDP.PCAP.KD.ZG", Name: "GDP per capita growth (annual %)", Source: WorldBankSource},
	{Code: "FP.CPI.TOTL.ZG", Name: "Inflation (annual %)", Source: WorldBankSource},
	{Code: "SL.UEM.TOTL.ZS", Name: "Unemployment rate (%)", Source: WorldBankSource},
	{Code: "SI.POV.DDAY", Name: "Poverty headcount ($2.15/day)", Source: WorldBankSource},
	{Code: "NE.CON.GOVT.ZS", Name: "Government consumption (% of GDP)", Source: WorldBankSource},
	{Code: "SI.DST.FRST.20", Name: "Income share lowest 20%", Source: WorldBankSource},
	{Code: "SI.DST.05TH.20", Name: "Income share highest 20%", Source: WorldBankSource},
}

// DefaultCountryName returns the baseline display name for a code.
func DefaultCountryName(code string) (string, bool) {
	for _, def := range DefaultCountries {
		if def.Code == code {
			return def.Name, true
		}
	}

	return "", false
}

// DefaultIndicatorName returns the baseline display name for a code.
func DefaultIndicatorName(code string) (string, bool) {
	for _, def := range DefaultIndicators {
		if def.Code == code {
			return def.Name, true
		}
	}

	return "", false
}

// MergeCountries merges stored countries with defaults. Stored rows win; a
// stored name that degenerately equals its code is backfilled with the
// default display name; defaults absent from the store are appended with a
// zero ID.
func MergeCountries(stored, defaults []Country) []Country {
	byCode := make(map[string]Country, len(defaults))
	for _, def := range defaults {
		byCode[def.Code] = def
	}

	merged := make([]Country, 0, len(stored)+len(defaults))
	seen := make(map[string]bool, len(stored))

	for _, row := range stored {
		if def, ok := byCode[row.Code]; ok && row.Name == row.Code {
			row.Name = def.Name
		}

		seen[row.Code] = true

		merged = append(merged, row)
	}

	for _, def := range defaults {
		if !seen[def.Code] {
			merged = append(merged, def)
		}
	}

	return merged
}

// MergeIndicators merges stored indicators with defaults under the same
// precedence rule as MergeCountries.
func MergeIndicators(stored, defaults []Indicator) []Indicator {
	byCode := make(map[string]Indicator, len(defaults))
	for _, def := range defaults {
		byCode[def.Code] = def
	}

	merged := make([]Indicator, 0, len(stored)+len(defaults))
	seen := make(map[string]bool, len(stored))

	for _, row := range stored {
		if def, ok := byCode[row.Code]; ok && row.Name == row.Code {
			row.Name = def.Name
		}

		seen[row.Code] = true

		merged = append(merged, row)
	}

	for _, def := range defaults {
		if !seen[def.Code] {
			merged = append(merged, def)
		}
	}

	return merged
}
