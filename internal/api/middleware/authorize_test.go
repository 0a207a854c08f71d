package middleware

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Nuraidyn/economic-web-platform/internal/authz"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// TestAuthorize_ValidCredential verifies that a resolvable credential reaches
// the wrapped handler with the identity attached to the request context.
func TestAuthorize_ValidCredential(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	resolver := &MockCredentialResolver{
		ResolveFunc: func(_ context.Context, credential string) (authz.Context, error) {
			if credential != "valid-token" {
				t.Errorf("expected credential 'valid-token', got %q", credential)
			}

			return authz.Context{UserID: 42, Role: "researcher", AgreementAccepted: true}, nil
		},
	}

	var captured authz.Context

	var capturedOK bool

	handler := Authorize(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured, capturedOK = GetIdentity(r.Context())

		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil)
	req.Header.Set("Authorization", "Bearer valid-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	if !capturedOK {
		t.Fatal("expected identity in request context")
	}

	if captured.UserID != 42 || captured.Role != "researcher" || !captured.AgreementAccepted {
		t.Errorf("unexpected identity: %+v", captured)
	}
}

// TestAuthorize_MissingCredential verifies the 401 response when no bearer
// credential is supplied.
func TestAuthorize_MissingCredential(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	resolver := &MockCredentialResolver{
		ResolveFunc: func(_ context.Context, _ string) (authz.Context, error) {
			t.Error("resolver should not be called without a credential")

			return authz.Context{}, nil
		},
	}

	handler := Authorize(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("handler should not be reached")
	}))

	tests := []struct {
		name   string
		header string
	}{
		{name: "no header", header: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "empty token", header: "Bearer   "},
		{name: "newline in token", header: "Bearer abc\r\ndef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("expected status 401, got %d", rec.Code)
			}
		})
	}
}

// TestAuthorize_InvalidCredential verifies the 401 problem response for a
// rejected credential.
func TestAuthorize_InvalidCredential(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	resolver := &MockCredentialResolver{
		ResolveFunc: func(_ context.Context, _ string) (authz.Context, error) {
			return authz.Context{}, authz.ErrInvalidCredential
		},
	}

	handler := Authorize(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil)
	req.Header.Set("Authorization", "Bearer expired-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rec.Code)
	}

	if got := rec.Header().Get("Content-Type"); got != "application/problem+json" {
		t.Errorf("expected problem+json content type, got %q", got)
	}

	var problem map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode problem detail: %v", err)
	}

	if problem["title"] != "Unauthorized" {
		t.Errorf("expected title 'Unauthorized', got %v", problem["title"])
	}
}

// TestAuthorize_IdentityServiceDown verifies the 503 response when the
// resolver reports the identity service as unavailable.
func TestAuthorize_IdentityServiceDown(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	resolver := &MockCredentialResolver{
		ResolveFunc: func(_ context.Context, _ string) (authz.Context, error) {
			return authz.Context{}, authz.ErrServiceUnavailable
		},
	}

	handler := Authorize(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		t.Error("handler should not be reached")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/countries", nil)
	req.Header.Set("Authorization", "Bearer some-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rec.Code)
	}

	var problem map[string]interface{}
	if err := json.NewDecoder(rec.Body).Decode(&problem); err != nil {
		t.Fatalf("failed to decode problem detail: %v", err)
	}

	if problem["title"] != "Service Unavailable" {
		t.Errorf("expected title 'Service Unavailable', got %v", problem["title"])
	}
}

// TestAuthorize_PublicEndpointBypass verifies that registered public
// endpoints skip credential resolution entirely.
func TestAuthorize_PublicEndpointBypass(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	RegisterPublicEndpoint("/ping-authorize-test")

	resolver := &MockCredentialResolver{
		ResolveFunc: func(_ context.Context, _ string) (authz.Context, error) {
			t.Error("resolver should not be called for public endpoints")

			return authz.Context{}, nil
		},
	}

	handler := Authorize(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/ping-authorize-test", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}
}

// TestAuthorize_PreflightBypass verifies that CORS preflight requests are
// not challenged for credentials.
func TestAuthorize_PreflightBypass(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	resolver := &MockCredentialResolver{
		ResolveFunc: func(_ context.Context, _ string) (authz.Context, error) {
			t.Error("resolver should not be called for preflight requests")

			return authz.Context{}, nil
		},
	}

	handler := Authorize(resolver, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/countries", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Errorf("expected status 204, got %d", rec.Code)
	}
}
