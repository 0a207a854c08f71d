package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Nuraidyn/economic-web-platform/internal/api/middleware"
	"github.com/Nuraidyn/economic-web-platform/internal/forecast"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
	"github.com/Nuraidyn/economic-web-platform/internal/upstream"
)

const defaultForecastHorizon = 5

// handleCreateForecast handles POST /api/v1/forecast.
// Fits a linear trend on the stored series and persists a new forecast run.
// When the store holds too few points it falls back to a live upstream fetch
// and an unpersisted in-memory forecast; still-insufficient data is a 400.
//
// Query Parameters:
//   - country: country code (required)
//   - indicator: indicator code (required)
//   - horizon_years: 1-20 (default 5)
func (s *Server) handleCreateForecast(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgreement(w, r) {
		return
	}

	countryCode, indicatorCode, horizon, ok := s.parseForecastParams(w, r)
	if !ok {
		return
	}

	outcome, err := s.deps.Forecast.Forecast(r.Context(), countryCode, indicatorCode, horizon)
	if errors.Is(err, forecast.ErrInsufficientData) {
		s.logger.InfoContext(r.Context(), "Stored series insufficient, falling back to live fetch",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("country", countryCode),
			slog.String("indicator", indicatorCode),
		)

		outcome, err = s.deps.Forecast.ForecastLive(r.Context(), countryCode, indicatorCode, horizon)
	}

	if err != nil {
		s.writeForecastError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, forecastToResponse(outcome))
}

// handleLatestForecast handles GET /api/v1/forecast/latest.
// Returns the most recently persisted forecast run for the pair; 404 when
// none exists.
func (s *Server) handleLatestForecast(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgreement(w, r) {
		return
	}

	countryCode, err := requiredQueryParam(r, "country")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	indicatorCode, err := requiredQueryParam(r, "indicator")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	outcome, err := s.deps.Forecast.LatestRun(
		r.Context(),
		s.resolveCountryCode(countryCode),
		s.resolveIndicatorCode(indicatorCode),
	)
	if err != nil {
		s.writeForecastError(w, r, err)

		return
	}

	s.writeJSON(w, r, http.StatusOK, forecastToResponse(outcome))
}

// parseForecastParams parses the country/indicator/horizon parameters.
func (s *Server) parseForecastParams(w http.ResponseWriter, r *http.Request) (string, string, int, bool) {
	countryCode, err := requiredQueryParam(r, "country")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return "", "", 0, false
	}

	indicatorCode, err := requiredQueryParam(r, "indicator")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return "", "", 0, false
	}

	countryCode = s.resolveCountryCode(countryCode)
	indicatorCode = s.resolveIndicatorCode(indicatorCode)

	if err := ingestion.ValidateCountryCode(countryCode); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return "", "", 0, false
	}

	if err := ingestion.ValidateIndicatorCode(indicatorCode); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return "", "", 0, false
	}

	horizon := defaultForecastHorizon

	if raw := r.URL.Query().Get("horizon_years"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			WriteErrorResponse(w, r, s.logger, BadRequest("query parameter \"horizon_years\" must be an integer"))

			return "", "", 0, false
		}

		horizon = parsed
	}

	if err := ingestion.ValidateHorizon(horizon); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return "", "", 0, false
	}

	return countryCode, indicatorCode, horizon, true
}

// writeForecastError maps forecast engine errors to problem responses.
func (s *Server) writeForecastError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, forecast.ErrInsufficientData):
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))
	case errors.Is(err, forecast.ErrNotFound), errors.Is(err, forecast.ErrNoForecast):
		WriteErrorResponse(w, r, s.logger, NotFound(err.Error()))
	case errors.Is(err, upstream.ErrFetchFailed), errors.Is(err, upstream.ErrMalformedResponse):
		WriteErrorResponse(w, r, s.logger, BadGateway(err.Error()))
	default:
		s.logger.ErrorContext(r.Context(), "Forecast operation failed",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Forecast operation failed"))
	}
}

// forecastToResponse converts a forecast outcome to the API response shape.
func forecastToResponse(outcome *forecast.Outcome) ForecastResponse {
	points := make([]ForecastPointResponse, 0, len(outcome.Points))
	for _, p := range outcome.Points {
		points = append(points, ForecastPointResponse{
			Year:  p.Year,
			Value: p.Value,
			Lower: p.Lower,
			Upper: p.Upper,
		})
	}

	return ForecastResponse{
		RunID:        outcome.RunID,
		Country:      outcome.CountryCode,
		Indicator:    outcome.IndicatorCode,
		ModelName:    outcome.ModelName,
		HorizonYears: outcome.HorizonYears,
		Assumptions:  outcome.Assumptions,
		Metrics:      outcome.Metrics,
		Points:       points,
		Persisted:    outcome.Persisted,
	}
}
