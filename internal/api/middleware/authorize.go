package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/Nuraidyn/economic-web-platform/internal/authz"
)

// publicEndpoints defines public endpoints that bypass authorization.
// These endpoints are accessible without credentials (e.g., K8s health probes,
// monitoring tools).
//
// Security note: Only health check endpoints should be in this map.
// Never add business logic endpoints to this bypass list.
var publicEndpoints = map[string]bool{} //nolint: gochecknoglobals

// RegisterPublicEndpoint registers an endpoint that bypasses authorization.
// This should only be called during route setup for health check endpoints.
//
// Example:
//
//	middleware.RegisterPublicEndpoint("/ping")
//	middleware.RegisterPublicEndpoint("/health")
func RegisterPublicEndpoint(endpoint string) {
	publicEndpoints[endpoint] = true
}

// CredentialResolver resolves a bearer credential into an authorization context.
// Implementations are expected to return authz.ErrInvalidCredential for rejected
// credentials and authz.ErrServiceUnavailable when the identity service cannot
// be reached.
type CredentialResolver interface {
	Resolve(ctx context.Context, credential string) (authz.Context, error)
}

// ErrMissingCredential is returned when no bearer credential is provided.
var ErrMissingCredential = errors.New("missing credential")

type identityContextKey struct{}

// SetIdentity stores the resolved authorization context in the request context.
func SetIdentity(ctx context.Context, identity authz.Context) context.Context {
	return context.WithValue(ctx, identityContextKey{}, identity)
}

// GetIdentity retrieves the resolved authorization context from the request context.
func GetIdentity(ctx context.Context) (authz.Context, bool) {
	identity, ok := ctx.Value(identityContextKey{}).(authz.Context)

	return identity, ok
}

// extractCredential extracts the bearer credential from the Authorization header.
// Returns (credential, true) if found and valid, ("", false) otherwise.
//
// Security considerations:
// - Rejects credentials containing newlines (header injection prevention)
// - Trims whitespace from the credential
// - Case-sensitive "Bearer " prefix check.
func extractCredential(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}

	credential := strings.TrimPrefix(authHeader, "Bearer ")
	if strings.ContainsAny(credential, "\r\n") {
		return "", false
	}

	credential = strings.TrimSpace(credential)
	if credential == "" {
		return "", false
	}

	return credential, true
}

// Authorize creates an authorization middleware that resolves bearer credentials
// and enriches the request context with the caller's identity.
//
// The middleware:
// - Bypasses registered public endpoints and CORS preflight requests
// - Extracts the credential from the Authorization: Bearer header
// - Resolves it through the configured CredentialResolver
// - Enriches request context with authz.Context
// - Returns RFC 7807 compliant error responses on failure.
func Authorize(resolver CredentialResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if publicEndpoints[r.URL.Path] || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)

				return
			}

			authStart := time.Now()

			credential, found := extractCredential(r)
			if !found {
				writeAuthError(w, r, logger, ErrMissingCredential)

				return
			}

			identity, err := resolver.Resolve(r.Context(), credential)
			if err != nil {
				writeAuthError(w, r, logger, err)

				return
			}

			ctx := SetIdentity(r.Context(), identity)

			logger.Info("credential authorized",
				slog.Int("user_id", identity.UserID),
				slog.String("role", identity.Role),
				slog.Duration("auth_latency", time.Since(authStart)),
				slog.String("correlation_id", GetCorrelationID(r.Context())),
				slog.String("endpoint", r.URL.Path),
			)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// writeAuthError writes an RFC 7807 compliant error response for authorization
// failures. It maps resolver errors to appropriate HTTP status codes and logs
// the failure.
func writeAuthError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	correlationID := GetCorrelationID(r.Context())

	var statusCode int

	var detail string

	switch {
	case errors.Is(err, ErrMissingCredential):
		statusCode = http.StatusUnauthorized
		detail = "Missing bearer credential"
	case errors.Is(err, authz.ErrInvalidCredential):
		statusCode = http.StatusUnauthorized
		detail = "Invalid or expired credential"
	case errors.Is(err, authz.ErrServiceUnavailable):
		statusCode = http.StatusServiceUnavailable
		detail = "Identity service is unavailable"
	default:
		statusCode = http.StatusUnauthorized
		detail = "Authorization failed"
	}

	// No sensitive data in the failure log.
	logger.Warn("Authorization failed",
		slog.String("reason", err.Error()),
		slog.String("correlation_id", correlationID),
		slog.String("endpoint", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
		slog.String("user_agent", r.UserAgent()),
	)

	if err := writeRFC7807Error(w, r, statusCode, detail, correlationID); err != nil {
		logger.Error("failed to write response with RFC 7807 error format",
			slog.String("correlation_id", correlationID),
			slog.String("path", r.URL.Path),
			slog.String("detail", detail),
			slog.Any("error", err),
		)

		http.Error(w, detail, statusCode)
	}
}

// writeRFC7807Error writes an RFC 7807 compliant error response without
// importing the api package.
func writeRFC7807Error(
	w http.ResponseWriter,
	r *http.Request,
	statusCode int,
	detail,
	correlationID string,
) error {
	var title string

	switch statusCode {
	case http.StatusUnauthorized:
		title = "Unauthorized"
	case http.StatusForbidden:
		title = "Forbidden"
	case http.StatusTooManyRequests:
		title = "Too Many Requests"
	case http.StatusServiceUnavailable:
		title = "Service Unavailable"
	default:
		title = "Authorization Failed"
	}

	problem := map[string]interface{}{
		"type":           fmt.Sprintf("about:blank#%d", statusCode),
		"title":          title,
		"status":         statusCode,
		"detail":         detail,
		"instance":       r.URL.Path,
		"correlation_id": correlationID,
	}

	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(problem)
}
