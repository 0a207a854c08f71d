package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Nuraidyn/economic-web-platform/internal/api/middleware"
	"github.com/Nuraidyn/economic-web-platform/internal/catalog"
	"github.com/Nuraidyn/economic-web-platform/internal/inequality"
	"github.com/Nuraidyn/economic-web-platform/internal/ingestion"
)

// handleGetObservations handles GET /api/v1/observations.
// Serves the stored series for a (country, indicator) pair, falling back to
// a live upstream fetch when nothing is stored. The X-Data-Source header
// reports which path served the request; live responses also carry
// X-Fetched-At.
//
// Query Parameters:
//   - country: country code (required)
//   - indicator: indicator code (required)
//   - start_year, end_year: optional inclusive bounds
func (s *Server) handleGetObservations(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.requireIdentity(w, r); !ok {
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

	countryCode = s.resolveCountryCode(countryCode)
	indicatorCode = s.resolveIndicatorCode(indicatorCode)

	if err := ingestion.ValidateCountryCode(countryCode); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	if err := ingestion.ValidateIndicatorCode(indicatorCode); err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	yearRange, err := parseYearRange(r)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadRequest(err.Error()))

		return
	}

	countryCode = catalog.CanonicalCountryCode(countryCode)

	points, found, err := s.loadStoredSeries(r, countryCode, indicatorCode, yearRange)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to read stored series",
			slog.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			slog.String("country", countryCode),
			slog.String("indicator", indicatorCode),
			slog.String("error", err.Error()),
		)
		WriteErrorResponse(w, r, s.logger, InternalServerError("Failed to read stored series"))

		return
	}

	if found {
		w.Header().Set("X-Data-Source", inequality.SourceCache)
		s.writeJSON(w, r, http.StatusOK, SeriesResponse{
			Country:   countryCode,
			Indicator: indicatorCode,
			Source:    inequality.SourceCache,
			Points:    points,
		})

		return
	}

	// Nothing stored: serve a live upstream fetch.
	entries, err := s.deps.Fetcher.FetchSeries(r.Context(), countryCode, indicatorCode)
	if err != nil {
		WriteErrorResponse(w, r, s.logger, BadGateway(err.Error()))

		return
	}

	points = make([]SeriesPoint, 0, len(entries))

	for _, entry := range entries {
		if !yearRange.Contains(entry.Year) {
			continue
		}

		value := entry.Value
		points = append(points, SeriesPoint{Year: entry.Year, Value: &value})
	}

	w.Header().Set("X-Data-Source", inequality.SourceLive)
	w.Header().Set("X-Fetched-At", time.Now().UTC().Format(time.RFC3339))
	s.writeJSON(w, r, http.StatusOK, SeriesResponse{
		Country:   countryCode,
		Indicator: indicatorCode,
		Source:    inequality.SourceLive,
		Points:    points,
	})
}

// loadStoredSeries reads the stored observation series for the pair.
// Returns found=false when the catalog rows are unknown or no observations
// exist, signalling the caller to fall back to a live fetch.
func (s *Server) loadStoredSeries(
	r *http.Request,
	countryCode, indicatorCode string,
	yearRange ingestion.YearRange,
) ([]SeriesPoint, bool, error) {
	ctx := r.Context()

	country, countryOK, err := s.deps.Catalog.FindCountry(ctx, countryCode)
	if err != nil {
		return nil, false, err
	}

	indicator, indicatorOK, err := s.deps.Catalog.FindIndicator(ctx, indicatorCode)
	if err != nil {
		return nil, false, err
	}

	if !countryOK || !indicatorOK {
		return nil, false, nil
	}

	observations, err := s.deps.Observations.GetSeries(ctx, country.ID, indicator.ID, yearRange)
	if err != nil {
		return nil, false, err
	}

	if len(observations) == 0 {
		return nil, false, nil
	}

	points := make([]SeriesPoint, 0, len(observations))
	for _, obs := range observations {
		points = append(points, SeriesPoint{Year: obs.Year, Value: obs.Value})
	}

	return points, true, nil
}
