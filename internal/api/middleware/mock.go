package middleware

import (
	"context"

	"github.com/Nuraidyn/economic-web-platform/internal/authz"
)

// MockCredentialResolver is a mock implementation of CredentialResolver for testing.
type MockCredentialResolver struct {
	ResolveFunc func(ctx context.Context, credential string) (authz.Context, error)
}

// Resolve implements CredentialResolver.Resolve.
func (m *MockCredentialResolver) Resolve(ctx context.Context, credential string) (authz.Context, error) {
	if m.ResolveFunc != nil {
		return m.ResolveFunc(ctx, credential)
	}

	return authz.Context{}, authz.ErrInvalidCredential
}
