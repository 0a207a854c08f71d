package upstream

import (
	"errors"
	"strings"
	"time"

	"github.com/Nuraidyn/economic-web-platform/internal/config"
)

const (
	defaultBaseURL          = "https://api.worldbank.org/v2"
	defaultPerPage          = 200
	defaultMostRecentValues = 70
	defaultTimeout          = 15 * time.Second
	defaultMaxRetries       = 3
	defaultRetryDelay       = 500 * time.Millisecond
)

// ErrBaseURLEmpty is returned when the upstream base URL is empty.
var ErrBaseURLEmpty = errors.New("upstream base URL cannot be empty")

// Config holds World Bank API client configuration.
type Config struct {
	BaseURL string

	// PerPage is the page size requested from the provider.
	PerPage int

	// MostRecentValues is the provider's mrnev parameter: the most recent N
	// non-empty values, which keeps fetches single-page.
	MostRecentValues int

	Timeout time.Duration

	// MaxRetries bounds retry attempts after the initial request.
	MaxRetries int

	// RetryDelay is the delay unit; attempt N waits N × RetryDelay.
	RetryDelay time.Duration
}

// LoadConfig loads upstream client configuration from environment variables
// with fallback to defaults.
func LoadConfig() *Config {
	return &Config{
		BaseURL:          strings.TrimRight(config.GetEnvStr("PLATFORM_UPSTREAM_BASE_URL", defaultBaseURL), "/"),
		PerPage:          config.GetEnvInt("PLATFORM_UPSTREAM_PER_PAGE", defaultPerPage),
		MostRecentValues: config.GetEnvInt("PLATFORM_UPSTREAM_MRNEV", defaultMostRecentValues),
		Timeout:          config.GetEnvDuration("PLATFORM_UPSTREAM_TIMEOUT", defaultTimeout),
		MaxRetries:       config.GetEnvInt("PLATFORM_UPSTREAM_MAX_RETRIES", defaultMaxRetries),
		RetryDelay:       config.GetEnvDuration("PLATFORM_UPSTREAM_RETRY_DELAY", defaultRetryDelay),
	}
}

// Validate checks if the upstream configuration is valid.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" {
		return ErrBaseURLEmpty
	}

	return nil
}
