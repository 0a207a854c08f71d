package authz

import (
	"time"

	"github.com/Nuraidyn/economic-web-platform/internal/config"
)

// Defaults for identity-service introspection.
const (
	DefaultIntrospectPath    = "/api/auth/introspect"
	DefaultIntrospectTimeout = 3500 * time.Millisecond
	DefaultCacheTTL          = 60 * time.Second
)

// Config holds resolver settings.
type Config struct {
	// IdentityURL is the base URL of the identity service.
	IdentityURL string

	// IntrospectPath is appended to IdentityURL for introspection calls.
	IntrospectPath string

	// IntrospectTimeout bounds a single introspection round trip.
	IntrospectTimeout time.Duration

	// CacheTTL is how long a successful resolution stays valid.
	CacheTTL time.Duration

	// Strict controls degradation: when true an unavailable identity
	// service fails the resolution; when false the resolver falls back to
	// locally verified token claims.
	Strict bool

	// TokenSecret is the HS256 key for the lenient-mode local fallback.
	TokenSecret string
}

// ConfigFromEnv loads resolver settings from PLATFORM_AUTHZ_* variables.
func ConfigFromEnv() Config {
	return Config{
		IdentityURL:       config.GetEnvStr("PLATFORM_AUTHZ_IDENTITY_URL", "http://localhost:8001"),
		IntrospectPath:    config.GetEnvStr("PLATFORM_AUTHZ_INTROSPECT_PATH", DefaultIntrospectPath),
		IntrospectTimeout: config.GetEnvDuration("PLATFORM_AUTHZ_INTROSPECT_TIMEOUT", DefaultIntrospectTimeout),
		CacheTTL:          config.GetEnvDuration("PLATFORM_AUTHZ_CACHE_TTL", DefaultCacheTTL),
		Strict:            config.GetEnvBool("PLATFORM_AUTHZ_STRICT", true),
		TokenSecret:       config.GetEnvStr("PLATFORM_AUTHZ_TOKEN_SECRET", ""),
	}
}
