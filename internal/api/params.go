package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Nuraidyn/economic-web-platform/internal/api/middleware"
	"github.com/Nuraidyn/economic-web-platform/internal/authz"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

// requireIdentity extracts the resolved identity from the request context.
// Writes a 401 problem response and returns false when no identity is
// present (resolver disabled requests excepted: handlers behind the auth
// middleware only reach this point with an identity attached).
func (s *Server) requireIdentity(w http.ResponseWriter, r *http.Request) (authz.Context, bool) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		// Degraded mode: no resolver configured, treat as anonymous viewer.
		if s.resolver == nil {
			return authz.Context{Role: "user"}, true
		}

		WriteErrorResponse(w, r, s.logger, Unauthorized("Credential required"))

		return authz.Context{}, false
	}

	return identity, true
}

// requireRole enforces that the caller holds one of the given roles.
func (s *Server) requireRole(w http.ResponseWriter, r *http.Request, roles ...string) bool {
	identity, ok := s.requireIdentity(w, r)
	if !ok {
		return false
	}

	// Degraded mode passes through; role checks need a resolver.
	if s.resolver == nil {
		return true
	}

	if !identity.HasRole(roles...) {
		WriteErrorResponse(w, r, s.logger, Forbidden("Insufficient role for this operation"))

		return false
	}

	return true
}

// requireAgreement enforces that the caller accepted the data agreement.
// Analytics endpoints expose derived datasets and are gated on it.
func (s *Server) requireAgreement(w http.ResponseWriter, r *http.Request) bool {
	identity, ok := s.requireIdentity(w, r)
	if !ok {
		return false
	}

	if s.resolver == nil {
		return true
	}

	if !identity.AgreementAccepted {
		WriteErrorResponse(w, r, s.logger, Forbidden("Data agreement must be accepted"))

		return false
	}

	return true
}

// writeJSON marshals the payload and writes it with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	data, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("Failed to encode response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)

		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to encode response"))

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		s.logger.Error("Failed to write response",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
	}
}

// resolveCountryCode maps a configured country alias to its canonical code.
// A nil resolver passes the code through unchanged.
func (s *Server) resolveCountryCode(code string) string {
	return s.deps.Aliases.ResolveCountry(code)
}

// resolveIndicatorCode maps a configured indicator alias to its canonical code.
func (s *Server) resolveIndicatorCode(code string) string {
	return s.deps.Aliases.ResolveIndicator(code)
}

// requiredQueryParam returns the named query parameter or an error naming it.
func requiredQueryParam(r *http.Request, name string) (string, error) {
	value := r.URL.Query().Get(name)
	if value == "" {
		return "", fmt.Errorf("query parameter %q is required", name)
	}

	return value, nil
}

// parseYearParam parses the named query parameter as a year and validates it.
func parseYearParam(r *http.Request, name string) (int, error) {
	raw, err := requiredQueryParam(r, name)
	if err != nil {
		return 0, err
	}

	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("query parameter %q must be an integer", name)
	}

	if err := ingestion.ValidateYear(year); err != nil {
		return 0, err
	}

	return year, nil
}

// parseYearRange parses the optional start_year/end_year query parameters.
func parseYearRange(r *http.Request) (ingestion.YearRange, error) {
	var yearRange ingestion.YearRange

	for name, target := range map[string]**int{
		"start_year": &yearRange.Start,
		"end_year":   &yearRange.End,
	} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}

		year, err := strconv.Atoi(raw)
		if err != nil {
			return ingestion.YearRange{}, fmt.Errorf("query parameter %q must be an integer", name)
		}

		*target = &year
	}

	if err := ingestion.ValidateYearRange(yearRange); err != nil {
		return ingestion.YearRange{}, err
	}

	return yearRange, nil
}
