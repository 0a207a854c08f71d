package authz

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newIntrospectServer(t *testing.T, calls *atomic.Int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/auth/introspect", r.URL.Path)
		handler(w, r)
	}))
	t.Cleanup(server.Close)

	return server
}

func validPayload(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"user_id": 42, "role": "analyst", "agreement_accepted": true}`))
}

func newTestResolver(cfg Config) *Resolver {
	return NewResolver(cfg, slog.Default())
}

func TestResolveSuccess(t *testing.T) {
	var calls atomic.Int32
	server := newIntrospectServer(t, &calls, validPayload)

	resolver := newTestResolver(Config{IdentityURL: server.URL, CacheTTL: time.Minute, Strict: true})

	ctx, err := resolver.Resolve(context.Background(), "token-1")
	require.NoError(t, err)

	assert.Equal(t, 42, ctx.UserID)
	assert.Equal(t, "analyst", ctx.Role)
	assert.True(t, ctx.AgreementAccepted)
}

func TestResolveCachesWithinTTL(t *testing.T) {
	var calls atomic.Int32
	server := newIntrospectServer(t, &calls, validPayload)

	resolver := newTestResolver(Config{IdentityURL: server.URL, CacheTTL: time.Minute, Strict: true})

	_, err := resolver.Resolve(context.Background(), "token-1")
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), "token-1")
	require.NoError(t, err)

	assert.Equal(t, int32(1), calls.Load(), "two resolutions within TTL hit the service once")
}

func TestResolveExpiresAfterTTL(t *testing.T) {
	var calls atomic.Int32
	server := newIntrospectServer(t, &calls, validPayload)

	resolver := newTestResolver(Config{IdentityURL: server.URL, CacheTTL: time.Minute, Strict: true})

	current := time.Now()
	resolver.now = func() time.Time { return current }

	_, err := resolver.Resolve(context.Background(), "token-1")
	require.NoError(t, err)

	current = current.Add(61 * time.Second)

	_, err = resolver.Resolve(context.Background(), "token-1")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load(), "an expired entry forces a fresh introspection")
}

func TestResolveDistinctCredentialsAreCachedSeparately(t *testing.T) {
	var calls atomic.Int32
	server := newIntrospectServer(t, &calls, validPayload)

	resolver := newTestResolver(Config{IdentityURL: server.URL, CacheTTL: time.Minute, Strict: true})

	_, err := resolver.Resolve(context.Background(), "token-1")
	require.NoError(t, err)

	_, err = resolver.Resolve(context.Background(), "token-2")
	require.NoError(t, err)

	assert.Equal(t, int32(2), calls.Load())
}

func TestResolveInvalidCredentialNotCached(t *testing.T) {
	var calls atomic.Int32
	server := newIntrospectServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	resolver := newTestResolver(Config{IdentityURL: server.URL, CacheTTL: time.Minute, Strict: true})

	_, err := resolver.Resolve(context.Background(), "bad-token")
	require.ErrorIs(t, err, ErrInvalidCredential)

	_, err = resolver.Resolve(context.Background(), "bad-token")
	require.ErrorIs(t, err, ErrInvalidCredential)

	assert.Equal(t, int32(2), calls.Load(), "rejections are re-checked every time")
}

func TestResolveServerErrorStrict(t *testing.T) {
	var calls atomic.Int32
	server := newIntrospectServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	resolver := newTestResolver(Config{IdentityURL: server.URL, CacheTTL: time.Minute, Strict: true})

	_, err := resolver.Resolve(context.Background(), "token-1")
	require.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestResolveTransportErrorStrict(t *testing.T) {
	resolver := newTestResolver(Config{
		IdentityURL: "http://127.0.0.1:1",
		CacheTTL:    time.Minute,
		Strict:      true,
	})

	_, err := resolver.Resolve(context.Background(), "token-1")
	require.ErrorIs(t, err, ErrServiceUnavailable)
}

func TestResolveMalformedShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{name: "not json", body: "<html>error</html>"},
		{name: "missing fields", body: `{"user_id": 42}`},
		{name: "string user_id", body: `{"user_id": "42", "role": "user", "agreement_accepted": true}`},
		{name: "fractional user_id", body: `{"user_id": 4.2, "role": "user", "agreement_accepted": true}`},
		{name: "numeric role", body: `{"user_id": 42, "role": 7, "agreement_accepted": true}`},
		{name: "string agreement", body: `{"user_id": 42, "role": "user", "agreement_accepted": "yes"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := newIntrospectServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			})

			resolver := newTestResolver(Config{IdentityURL: server.URL, CacheTTL: time.Minute, Strict: true})

			_, err := resolver.Resolve(context.Background(), "token-1")
			require.ErrorIs(t, err, ErrServiceUnavailable)
		})
	}
}

func signHS256(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	return signed
}

func TestResolveLenientFallback(t *testing.T) {
	var calls atomic.Int32
	server := newIntrospectServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	resolver := newTestResolver(Config{
		IdentityURL: server.URL,
		CacheTTL:    time.Minute,
		Strict:      false,
		TokenSecret: "test-secret",
	})

	credential := signHS256(t, "test-secret", jwt.MapClaims{
		"user_id":            7,
		"role":               "admin",
		"agreement_accepted": true,
	})

	ctx, err := resolver.Resolve(context.Background(), credential)
	require.NoError(t, err)

	assert.Equal(t, 7, ctx.UserID)
	assert.Equal(t, "admin", ctx.Role)
	assert.True(t, ctx.AgreementAccepted)
}

func TestResolveLenientFallbackDefaults(t *testing.T) {
	var calls atomic.Int32
	server := newIntrospectServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	resolver := newTestResolver(Config{
		IdentityURL: server.URL,
		CacheTTL:    time.Minute,
		Strict:      false,
		TokenSecret: "test-secret",
	})

	// sub carries the identity; role and agreement fall back to defaults.
	credential := signHS256(t, "test-secret", jwt.MapClaims{"sub": "19"})

	ctx, err := resolver.Resolve(context.Background(), credential)
	require.NoError(t, err)

	assert.Equal(t, 19, ctx.UserID)
	assert.Equal(t, "user", ctx.Role)
	assert.False(t, ctx.AgreementAccepted)
}

func TestResolveLenientFallbackRejectsBadSignature(t *testing.T) {
	var calls atomic.Int32
	server := newIntrospectServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	resolver := newTestResolver(Config{
		IdentityURL: server.URL,
		CacheTTL:    time.Minute,
		Strict:      false,
		TokenSecret: "test-secret",
	})

	credential := signHS256(t, "wrong-secret", jwt.MapClaims{"user_id": 7})

	_, err := resolver.Resolve(context.Background(), credential)
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestResolveLenientInvalidCredentialStillRejected(t *testing.T) {
	var calls atomic.Int32
	server := newIntrospectServer(t, &calls, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})

	resolver := newTestResolver(Config{
		IdentityURL: server.URL,
		CacheTTL:    time.Minute,
		Strict:      false,
		TokenSecret: "test-secret",
	})

	// The service answered authoritatively: lenient mode never overrides a
	// rejection.
	_, err := resolver.Resolve(context.Background(), "whatever")
	require.ErrorIs(t, err, ErrInvalidCredential)
}

func TestHasRole(t *testing.T) {
	ctx := Context{Role: "analyst"}

	assert.True(t, ctx.HasRole("analyst"))
	assert.True(t, ctx.HasRole("admin", "analyst"))
	assert.False(t, ctx.HasRole("admin"))
}
