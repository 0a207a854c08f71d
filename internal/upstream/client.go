// Package upstream provides the World Bank indicator API client used by the
// ingestion pipeline and live read fallbacks.
//
// The client is stateless and restartable: FetchSeries is safe to call
// repeatedly for the same pair, and transient upstream trouble (rate limits,
// server errors) is retried with a linearly increasing delay before giving up.
package upstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"
)

// Sentinel errors for upstream fetch outcomes.
var (
	// ErrFetchFailed is returned when the upstream request fails after all
	// retries (transport error, non-2xx status, unreadable body).
	ErrFetchFailed = errors.New("upstream fetch failed")

	// ErrMalformedResponse is returned when the top-level payload is not the
	// expected two-element array. This must never be reported as an empty
	// series: the pipeline would record a false "zero available" result.
	ErrMalformedResponse = errors.New("malformed upstream response")
)

// SeriesEntry is one normalized (year, value) pair from the provider.
type SeriesEntry struct {
	Year  int
	Value float64
}

// Client fetches and normalizes indicator series from the World Bank v2 API.
type Client struct {
	config     *Config
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates an upstream client with the given configuration and logger.
func NewClient(config *Config, logger *slog.Logger) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: logger,
	}
}

// FetchSeries fetches the observation series for a country/indicator pair,
// normalized and sorted ascending by year.
//
// Normalization drops rows whose value or date field is absent or
// non-numeric rather than failing the whole fetch. A structurally unexpected
// top-level payload fails with ErrMalformedResponse.
func (c *Client) FetchSeries(ctx context.Context, countryCode, indicatorCode string) ([]SeriesEntry, error) {
	body, err := c.get(ctx, c.seriesURL(countryCode, indicatorCode))
	if err != nil {
		return nil, err
	}

	return parseSeries(body)
}

// seriesURL builds the indicator series request URL.
func (c *Client) seriesURL(countryCode, indicatorCode string) string {
	query := url.Values{}
	query.Set("format", "json")
	query.Set("per_page", strconv.Itoa(c.config.PerPage))
	// mrnev: most recent N non-empty values, avoiding multi-page traversal
	query.Set("mrnev", strconv.Itoa(c.config.MostRecentValues))

	return fmt.Sprintf("%s/country/%s/indicator/%s?%s",
		c.config.BaseURL, url.PathEscape(countryCode), url.PathEscape(indicatorCode), query.Encode())
}

// get performs the HTTP request with bounded retries on rate-limit and
// server-error statuses, using a linearly increasing delay between attempts.
func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	var lastErr error

	for attempt := 1; attempt <= c.config.MaxRetries+1; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * c.config.RetryDelay

			c.logger.Warn("Retrying upstream request",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
				slog.String("url", requestURL),
			)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %w", ErrFetchFailed, ctx.Err())
			case <-time.After(delay):
			}
		}

		body, retriable, err := c.attempt(ctx, requestURL)
		if err == nil {
			return body, nil
		}

		lastErr = err
		if !retriable {
			return nil, lastErr
		}
	}

	return nil, lastErr
}

// attempt performs a single request. The second return value reports whether
// the failure is worth retrying (429 or 5xx).
func (c *Client) attempt(ctx context.Context, requestURL string) ([]byte, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Only 429 and 5xx responses are retried; transport failures
		// propagate immediately.
		return nil, false, fmt.Errorf("%w: %w", ErrFetchFailed, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
		return nil, true, fmt.Errorf("%w: upstream returned status %d", ErrFetchFailed, resp.StatusCode)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, false, fmt.Errorf("%w: upstream returned status %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, false, fmt.Errorf("%w: reading response body: %w", ErrFetchFailed, err)
	}

	return body, false, nil
}

// parseSeries decodes the provider's two-element payload and normalizes rows.
func parseSeries(body []byte) ([]SeriesEntry, error) {
	var payload []json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("%w: top-level payload is not an array: %w", ErrMalformedResponse, err)
	}

	if len(payload) < 2 {
		return nil, fmt.Errorf("%w: expected [metadata, rows], got %d elements", ErrMalformedResponse, len(payload))
	}

	var rows []map[string]any
	if err := json.Unmarshal(payload[1], &rows); err != nil {
		return nil, fmt.Errorf("%w: rows element is not an array: %w", ErrMalformedResponse, err)
	}

	entries := make([]SeriesEntry, 0, len(rows))

	for _, row := range rows {
		if entry, ok := normalizeRow(row); ok {
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Year < entries[j].Year
	})

	return entries, nil
}

// normalizeRow extracts a (year, value) pair from a raw provider row.
// Rows with absent or non-numeric fields are dropped, not errors.
func normalizeRow(row map[string]any) (SeriesEntry, bool) {
	rawValue, ok := row["value"]
	if !ok || rawValue == nil {
		return SeriesEntry{}, false
	}

	rawYear, ok := row["date"]
	if !ok || rawYear == nil {
		return SeriesEntry{}, false
	}

	value, ok := toFloat(rawValue)
	if !ok {
		return SeriesEntry{}, false
	}

	year, ok := toYear(rawYear)
	if !ok {
		return SeriesEntry{}, false
	}

	return SeriesEntry{Year: year, Value: value}, true
}

func toFloat(v any) (float64, bool) {
	switch value := v.(type) {
	case float64:
		return value, true
	case string:
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}

func toYear(v any) (int, bool) {
	switch value := v.(type) {
	case float64:
		return int(value), true
	case string:
		parsed, err := strconv.Atoi(value)
		if err != nil {
			return 0, false
		}

		return parsed, true
	default:
		return 0, false
	}
}
