package middleware

import (
	"net/http"
	"strconv"
	"strings"
)

// CORSConfigProvider describes the cross-origin policy applied by the CORS middleware.
type CORSConfigProvider interface {
	GetAllowedOrigins() []string
	GetAllowedMethods() []string
	GetAllowedHeaders() []string
	GetMaxAge() int
}

// CORS creates a middleware that applies the configured cross-origin policy.
// Preflight OPTIONS requests are answered directly with 204.
func CORS(config CORSConfigProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" && originAllowed(origin, config.GetAllowedOrigins()) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Vary", "Origin")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", strings.Join(config.GetAllowedMethods(), ", "))
				w.Header().Set("Access-Control-Allow-Headers", strings.Join(config.GetAllowedHeaders(), ", "))
				w.Header().Set("Access-Control-Max-Age", strconv.Itoa(config.GetMaxAge()))
				w.WriteHeader(http.StatusNoContent)

				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func originAllowed(origin string, allowed []string) bool {
	for _, candidate := range allowed {
		if candidate == "*" || strings.EqualFold(candidate, origin) {
			return true
		}
	}

	return false
}
