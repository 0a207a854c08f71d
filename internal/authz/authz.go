// Package authz resolves bearer credentials into authorization contexts by
// introspecting the identity service, with a short TTL cache in front of it.
package authz

import "errors"

var (
	// ErrInvalidCredential indicates the identity service rejected the
	// credential (or, in lenient mode, local verification did).
	ErrInvalidCredential = errors.New("invalid credential")

	// ErrServiceUnavailable indicates the identity service could not give
	// an authoritative answer: transport failure, 5xx, or a malformed
	// introspection response.
	ErrServiceUnavailable = errors.New("authorization service unavailable")
)

// Context is the resolved authorization state of one credential.
//
// Role and agreement state come from the identity service and may change
// between resolutions; the cache TTL bounds how stale a decision can be.
type Context struct {
	UserID            int
	Role              string
	AgreementAccepted bool
}

// HasRole reports whether the context carries one of the given roles.
func (c Context) HasRole(roles ...string) bool {
	for _, role := range roles {
		if c.Role == role {
			return true
		}
	}

	return false
}
