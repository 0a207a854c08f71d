package api

import (
	"net/http"
	"time"
)

type (
	// HealthStatus represents the health check response structure.
	HealthStatus struct {
		Status      string `json:"status"`
		ServiceName string `json:"serviceName"`
		Version     string `json:"version"`
		Uptime      string `json:"uptime,omitempty"`
	}

	// CountryResponse is one catalog country row.
	CountryResponse struct {
		Code string `json:"code"`
		Name string `json:"name"`
	}

	// IndicatorResponse is one catalog indicator row.
	IndicatorResponse struct {
		Code        string `json:"code"`
		Name        string `json:"name"`
		Source      string `json:"source,omitempty"`
		Unit        string `json:"unit,omitempty"`
		Description string `json:"description,omitempty"`
	}

	// IngestRequest is the payload for POST /api/v1/ingest/world-bank.
	IngestRequest struct {
		Country   string `json:"country"`
		Indicator string `json:"indicator"`
	}

	// IngestResponse reports the outcome of one ingestion run.
	IngestResponse struct {
		RunID    int64 `json:"runId"`
		Inserted int   `json:"inserted"`
		Total    int   `json:"total"`
		Expected int   `json:"expected"`
		Missing  int   `json:"missing"`
	}

	// RunResponse is one ingestion run audit row.
	RunResponse struct {
		ID            int64      `json:"id"`
		Source        string     `json:"source"`
		CountryCode   string     `json:"country"`
		IndicatorCode string     `json:"indicator"`
		Status        string     `json:"status"`
		Inserted      int        `json:"inserted"`
		Total         int        `json:"total"`
		Expected      int        `json:"expected"`
		Missing       int        `json:"missing"`
		Error         string     `json:"error,omitempty"`
		StartedAt     time.Time  `json:"startedAt"`
		FinishedAt    *time.Time `json:"finishedAt,omitempty"`
	}

	// RunListResponse wraps the run list.
	RunListResponse struct {
		Runs []RunResponse `json:"runs"`
	}

	// SeriesPoint is one year of an observation series. Value is null for
	// years the provider reports without a value.
	SeriesPoint struct {
		Year  int      `json:"year"`
		Value *float64 `json:"value"`
	}

	// SeriesResponse is an observation series for one (country, indicator).
	SeriesResponse struct {
		Country   string        `json:"country"`
		Indicator string        `json:"indicator"`
		Source    string        `json:"source"`
		Points    []SeriesPoint `json:"points"`
	}

	// LorenzPoint is one vertex of the Lorenz polyline.
	LorenzPoint struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	// LorenzResponse is a computed Lorenz curve with its Gini coefficient.
	LorenzResponse struct {
		Country string        `json:"country"`
		Year    int           `json:"year"`
		Points  []LorenzPoint `json:"points"`
		Gini    float64       `json:"gini"`
		Cached  bool          `json:"cached"`
	}

	// GiniResponse is the Gini coefficient for one (country, year).
	GiniResponse struct {
		Country string  `json:"country"`
		Year    int     `json:"year"`
		Gini    float64 `json:"gini"`
	}

	// CorrelationResponse is the Pearson correlation between two indicators.
	// Correlation is null when the overlap is too small or degenerate.
	CorrelationResponse struct {
		Country     string   `json:"country"`
		IndicatorA  string   `json:"indicatorA"`
		IndicatorB  string   `json:"indicatorB"`
		Correlation *float64 `json:"correlation"`
		Points      int      `json:"points"`
		Years       []int    `json:"years"`
	}

	// ForecastPointResponse is one projected year with interval bounds.
	ForecastPointResponse struct {
		Year  int     `json:"year"`
		Value float64 `json:"value"`
		Lower float64 `json:"lower"`
		Upper float64 `json:"upper"`
	}

	// ForecastResponse is a forecast run with its projected points.
	ForecastResponse struct {
		RunID        int64                   `json:"runId,omitempty"`
		Country      string                  `json:"country"`
		Indicator    string                  `json:"indicator"`
		ModelName    string                  `json:"modelName"`
		HorizonYears int                     `json:"horizonYears"`
		Assumptions  string                  `json:"assumptions"`
		Metrics      string                  `json:"metrics"`
		Points       []ForecastPointResponse `json:"points"`
		Persisted    bool                    `json:"persisted"`
	}

	// TrendPointResponse is one year of the Gini trend.
	TrendPointResponse struct {
		Year      int      `json:"year"`
		Value     *float64 `json:"value"`
		YoYChange *float64 `json:"yoyChange"`
	}

	// TrendResponse is the Gini time series for one country with provenance.
	TrendResponse struct {
		Country   string               `json:"country"`
		Indicator string               `json:"indicator"`
		Source    string               `json:"source"`
		FetchedAt *time.Time           `json:"fetchedAt,omitempty"`
		Points    []TrendPointResponse `json:"points"`
	}

	// RankingRowResponse is one country's Gini value for the ranking year.
	RankingRowResponse struct {
		Country string   `json:"country"`
		Year    int      `json:"year"`
		Value   *float64 `json:"value"`
	}

	// RankingResponse wraps the ranking rows, sorted descending by value
	// with null-valued countries last.
	RankingResponse struct {
		Year    int                  `json:"year"`
		Ranking []RankingRowResponse `json:"ranking"`
	}

	// Route represents an HTTP route configuration with a path and handler.
	// Used for declarative route registration with middleware bypass support.
	Route struct {
		Path    string           // The URL path for this route (e.g., "/ping", "/health")
		Handler http.HandlerFunc // The HTTP handler function for this route
	}
)
