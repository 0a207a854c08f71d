package middleware

import (
	"time"

	"github.com/Nuraidyn/economic-web-platform/internal/config"
)

// Config holds rate limiter configuration.
//
// ClientRPS specifies the sustained requests per second allowed for each
// client. Burst capacity allows temporary bursts above the sustained rate;
// if ClientBurst is 0 it is computed automatically as 4 × ClientRPS.
type Config struct {
	ClientRPS   int // Default: 5
	ClientBurst int // Default: 0 (computed as 4 × ClientRPS = 20)

	// Memory cleanup configuration
	CleanupInterval time.Duration // Default: 5 minutes
	IdleTimeout     time.Duration // Default: 1 hour
}

// LoadConfig loads middleware config from environment variables with fallback
// to defaults.
//
// Default burst capacity: 4 × rate (allows a short burst per client)
// Default cleanup: every 5 minutes, removes clients idle >1 hour.
func LoadConfig() *Config {
	return &Config{
		ClientRPS:   config.GetEnvInt("PLATFORM_RATE_LIMIT_RPS", defaultClientRPS),
		ClientBurst: config.GetEnvInt("PLATFORM_RATE_LIMIT_BURST", 0),

		CleanupInterval: config.GetEnvDuration(
			"PLATFORM_RATE_LIMIT_CLEANUP_INTERVAL", rateLimiterCleanupInterval,
		),
		IdleTimeout: config.GetEnvDuration("PLATFORM_RATE_LIMIT_IDLE_TIMEOUT", rateLimiterIdleTimeout),
	}
}
