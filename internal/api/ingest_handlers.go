package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/Nuraidyn/economic-web-platform/internal/api/middleware"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
	"github.com/Nuraidyn/economic-web-platform/internal/upstream"
)

const maxRunListLimit = 100

// handleIngestWorldBank handles POST /api/v1/ingest/world-bank.
// Triggers one ingestion run for a (country, indicator) pair. Restricted to
// researcher and admin roles.
//
// Response codes:
//   - 200 OK: run completed, body carries the run counters
//   - 400 Bad Request: malformed body or invalid codes
//   - 502 Bad Gateway: upstream fetch failed (message preserved)
func (s *Server) handleIngestWorldBank(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, "researcher", "admin") {
		return
	}

	if !hasJSONContentType(r.Header.Get("Content-Type")) {
		WriteErrorResponse(w, r, s.logger, BadRequest("Content-Type must be application/json"))

		return
	}

	var request IngestRequest

	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize))
	if err := decoder.Decode(&request); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest("Invalid JSON body: "+err.Error()))

		return
	}

	request.Country = s.resolveCountryCode(request.Country)
	request.Indicator = s.resolveIndicatorCode(request.Indicator)

	if err := ingestion.ValidateCountryCode(request.Country); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	if err := ingestion.ValidateIndicatorCode(request.Indicator); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	result, err := s.deps.Pipeline.Ingest(r.Context(), request.Country, request.Indicator)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Ingestion failed",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("country", request.Country),
			slog.String("indicator", request.Indicator),
			slog.String("error", err.Error()),
		)

		if errors.Is(err, upstream.ErrFetchFailed) || errors.Is(err, upstream.ErrMalformedResponse) {
			WriteErrorResponse(w, r, s.logger, BadGateway(err.Error()))

			return
		}

		WriteErrorResponse(w, r, s.logger, InternalServerError("Ingestion failed"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, IngestResponse{
		RunID:    result.RunID,
		Inserted: result.Inserted,
		Total:    result.Total,
		Expected: result.Expected,
		Missing:  result.Missing,
	})
}

// handleListRuns handles GET /api/v1/ingest/runs.
// Returns the most recent ingestion runs, newest first, capped at 100.
// Restricted to researcher and admin roles.
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireRole(w, r, "researcher", "admin") {
		return
	}

	limit := maxRunListLimit

	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			WriteErrorResponse(w, r, s.logger, BadRequest("query parameter \"limit\" must be a positive integer"))

			return
		}

		if parsed < limit {
			limit = parsed
		}
	}

	runs, err := s.deps.Runs.ListRuns(r.Context(), limit)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to list ingestion runs",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to list ingestion runs"))

		return
	}

	response := RunListResponse{Runs: make([]RunResponse, 0, len(runs))}
	for _, run := range runs {
		response.Runs = append(response.Runs, RunResponse{
			ID:            run.ID,
			Source:        run.Source,
			CountryCode:   run.CountryCode,
			IndicatorCode: run.IndicatorCode,
			Status:        string(run.Status),
			Inserted:      run.Inserted,
			Total:         run.Total,
			Expected:      run.Expected,
			Missing:       run.Missing,
			Error:         run.Error,
			StartedAt:     run.StartedAt,
			FinishedAt:    run.FinishedAt,
		})
	}

	s.writeJSON(w, r, http.StatusOK, response)
}

// hasJSONContentType checks if Content-Type header starts with "application/json".
// This allows charset parameters (e.g., "application/json; charset=utf-8").
func hasJSONContentType(contentType string) bool {
	return strings.HasPrefix(strings.TrimSpace(contentType), "application/json")
}
