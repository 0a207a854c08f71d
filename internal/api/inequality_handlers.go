package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Nuraidyn/economic-web-platform/internal/api/middleware"
	"github.com/Nuraidyn/economic-web-platform/internal/inequality"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
	"github.com/Nuraidyn/economic-web-platform/internal/upstream"
)

// handleGetLorenz handles GET /api/v1/lorenz.
// Returns the Lorenz curve for a (country, year). When quintile observations
// are incomplete the response is a 422 problem naming the missing indicator
// codes.
func (s *Server) handleGetLorenz(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgreement(w, r) {
		return
	}

	countryCode, year, ok := s.parseLorenzParams(w, r)
	if !ok {
		return
	}

	result, availability, err := s.deps.Inequality.LorenzGini(r.Context(), countryCode, year)
	if err != nil {
		s.writeInequalityError(w, r, err, "Failed to compute Lorenz curve")

		return
	}

	if availability != nil {
		WriteErrorResponse(w, r, s.logger, UnprocessableEntity(
			"Missing quintile observations: "+strings.Join(availability.Missing, ", "),
		))

		return
	}

	points := make([]LorenzPoint, 0, len(result.Points))
	for _, p := range result.Points {
		points = append(points, LorenzPoint{X: p.X, Y: p.Y})
	}

	s.writeJSON(w, r, http.StatusOK, LorenzResponse{
		Country: result.CountryCode,
		Year:    result.Year,
		Points:  points,
		Gini:    result.Gini,
		Cached:  result.Cached,
	})
}

// handleGetGini handles GET /api/v1/gini.
// Returns just the Gini coefficient for a (country, year); 404 when the
// curve is not computable for that year.
func (s *Server) handleGetGini(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgreement(w, r) {
		return
	}

	countryCode, year, ok := s.parseLorenzParams(w, r)
	if !ok {
		return
	}

	result, availability, err := s.deps.Inequality.LorenzGini(r.Context(), countryCode, year)
	if err != nil {
		s.writeInequalityError(w, r, err, "Failed to compute Gini coefficient")

		return
	}

	if availability != nil {
		WriteErrorResponse(w, r, s.logger, NotFound("Gini coefficient is not computable for this year"))

		return
	}

	s.writeJSON(w, r, http.StatusOK, GiniResponse{
		Country: result.CountryCode,
		Year:    result.Year,
		Gini:    result.Gini,
	})
}

// handleGiniTrend handles GET /api/v1/inequality/gini/trend.
// Returns the Gini series for one country with per-year deltas, sourced
// from the store or a live upstream fetch.
func (s *Server) handleGiniTrend(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgreement(w, r) {
		return
	}

	countryCode, err := requiredQueryParam(r, "country")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	countryCode = s.resolveCountryCode(countryCode)

	if err := ingestion.ValidateCountryCode(countryCode); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	yearRange, err := parseYearRange(r)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	trend, err := s.deps.Inequality.GiniTrend(r.Context(), countryCode, yearRange)
	if err != nil {
		s.writeInequalityError(w, r, err, "Failed to compute Gini trend")

		return
	}

	points := make([]TrendPointResponse, 0, len(trend.Points))
	for _, p := range trend.Points {
		points = append(points, TrendPointResponse{Year: p.Year, Value: p.Value, YoYChange: p.YoYChange})
	}

	s.writeJSON(w, r, http.StatusOK, TrendResponse{
		Country:   trend.CountryCode,
		Indicator: trend.Indicator,
		Source:    trend.Meta.Source,
		FetchedAt: trend.Meta.FetchedAt,
		Points:    points,
	})
}

// handleGiniRanking handles GET /api/v1/inequality/gini/ranking.
// Ranks up to 25 countries by their exact-year Gini value, null values last.
//
// Query Parameters:
//   - countries: comma-separated country codes (1-25)
//   - year: ranking year
func (s *Server) handleGiniRanking(w http.ResponseWriter, r *http.Request) {
	if !s.requireAgreement(w, r) {
		return
	}

	raw, err := requiredQueryParam(r, "countries")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	codes := make([]string, 0)

	for _, code := range strings.Split(raw, ",") {
		code = s.resolveCountryCode(code)
		if code != "" {
			codes = append(codes, code)
		}
	}

	if err := ingestion.ValidateCountryList(codes); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	year, err := parseYearParam(r, "year")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	rows, err := s.deps.Inequality.GiniRanking(r.Context(), year, codes)
	if err != nil {
		s.writeInequalityError(w, r, err, "Failed to compute Gini ranking")

		return
	}

	response := RankingResponse{Year: year, Ranking: make([]RankingRowResponse, 0, len(rows))}
	for _, row := range rows {
		response.Ranking = append(response.Ranking, RankingRowResponse{
			Country: row.CountryCode,
			Year:    row.Year,
			Value:   row.Value,
		})
	}

	s.writeJSON(w, r, http.StatusOK, response)
}

// parseLorenzParams parses and validates the country/year parameters shared
// by the lorenz and gini endpoints.
func (s *Server) parseLorenzParams(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	countryCode, err := requiredQueryParam(r, "country")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return "", 0, false
	}

	countryCode = s.resolveCountryCode(countryCode)

	if err := ingestion.ValidateCountryCode(countryCode); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return "", 0, false
	}

	year, err := parseYearParam(r, "year")
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return "", 0, false
	}

	return countryCode, year, true
}

// writeInequalityError maps inequality service errors to problem responses.
func (s *Server) writeInequalityError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, inequality.ErrCountryNotFound):
		WriteErrorResponse(w, r, s.logger, NotFound(err.Error()))
	case errors.Is(err, upstream.ErrFetchFailed), errors.Is(err, upstream.ErrMalformedResponse):
		WriteErrorResponse(w, r, s.logger, BadGateway(err.Error()))
	default:
		s.logger.ErrorContext(r.Context(), fallback,
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError(fallback))
	}
}
