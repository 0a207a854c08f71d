package api

import (
	"log/slog"
	"net/http"

	"github.com/Nuraidyn/economic-web-platform/internal/api/middleware"
)

// handleListCountries handles GET /api/v1/countries.
// Returns the catalog countries merged with the built-in baseline, ordered
// by display name.
func (s *Server) handleListCountries(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireIdentity(w, r); !ok {
		return
	}

	countries, err := s.deps.Catalog.ListCountries(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list countries",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to list countries"))

		return
	}

	response := make([]CountryResponse, 0, len(countries))
	for _, country := range countries {
		response = append(response, CountryResponse{Code: country.Code, Name: country.Name})
	}

	s.writeJSON(w, r, http.StatusOK, response)
}

// handleListIndicators handles GET /api/v1/indicators.
// Returns the catalog indicators merged with the built-in baseline, ordered
// by code.
func (s *Server) handleListIndicators(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireIdentity(w, r); !ok {
		return
	}

	indicators, err := s.deps.Catalog.ListIndicators(r.Context())
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list indicators",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to list indicators"))

		return
	}

	response := make([]IndicatorResponse, 0, len(indicators))
	for _, indicator := range indicators {
		response = append(response, IndicatorResponse{
			Code:        indicator.Code,
			Name:        indicator.Name,
			Source:      indicator.Source,
			Unit:        indicator.Unit,
			Description: indicator.Description,
		})
	}

	s.writeJSON(w, r, http.StatusOK, response)
}
