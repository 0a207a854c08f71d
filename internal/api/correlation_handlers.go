package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Nuraidyn/economic-web-platform/internal/api/middleware"
	"github.com/Nuraidyn/economic-web-platform/internal/correlation"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

// handleGetCorrelation handles GET /api/v1/correlation.
// Computes Pearson's r between two indicators for one country over their
// overlapping years. A valid request with too little overlap returns a null
// correlation, not an error.
//
// Query Parameters:
//   - country: country code (required)
//   - indicator_a, indicator_b: indicator codes (required)
//   - start_year, end_year: optional inclusive bounds
func (s *Server) handleGetCorrelation(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgreement(w, r) {
		return
	}

	countryCode, err := requiredQueryParam(r, "country")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	indicatorA, err := requiredQueryParam(r, "indicator_a")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	indicatorB, err := requiredQueryParam(r, "indicator_b")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	countryCode = s.resolveCountryCode(countryCode)
	indicatorA = s.resolveIndicatorCode(indicatorA)
	indicatorB = s.resolveIndicatorCode(indicatorB)

	if err := ingestion.ValidateCountryCode(countryCode); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	for _, code := range []string{indicatorA, indicatorB} {
		if err := ingestion.ValidateIndicatorCode(code); err != nil {
			WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

			return
		}
	}

	yearRange, err := parseYearRange(r)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	result, err := s.deps.Correlation.Correlate(r.Context(), countryCode, indicatorA, indicatorB, yearRange)
	if err != nil {
		if errors.Is(err, correlation.ErrCountryNotFound) || errors.Is(err, correlation.ErrIndicatorNotFound) {
			WriteErrorResponse(w, r, s.logger, NotFound(err.Error()))

			return
		}

		s.logger.ErrorContext(r.Context(), "Failed to compute correlation",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to compute correlation"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, CorrelationResponse{
		Country:     result.CountryCode,
		IndicatorA:  result.IndicatorA,
		IndicatorB:  result.IndicatorB,
		Correlation: result.Correlation,
		Points:      result.Points,
		Years:       result.Years,
	})
}
