package authz

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

type cacheEntry struct {
	ctx       Context
	expiresAt time.Time
}

// Resolver turns bearer credentials into authorization contexts.
//
// Successful resolutions are cached per credential for the configured TTL
// with lazy expiry; rejections are never cached, so a token that becomes
// valid is honored immediately.
type Resolver struct {
	cfg    Config
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	mu    sync.Mutex
	cache map[string]cacheEntry
}

// NewResolver creates a resolver with its own HTTP client bounded by the
// introspection timeout.
func NewResolver(cfg Config, logger *slog.Logger) *Resolver {
	if cfg.IntrospectPath == "" {
		cfg.IntrospectPath = DefaultIntrospectPath
	}

	if cfg.IntrospectTimeout <= 0 {
		cfg.IntrospectTimeout = DefaultIntrospectTimeout
	}

	if cfg.CacheTTL < 0 {
		cfg.CacheTTL = 0
	}

	return &Resolver{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.IntrospectTimeout},
		logger: logger,
		now:    time.Now,
		cache:  make(map[string]cacheEntry),
	}
}

// Resolve returns the authorization context for a credential, consulting the
// cache first.
//
// An unavailable identity service propagates ErrServiceUnavailable in strict
// mode; in lenient mode the resolver degrades to locally verified token
// claims, and only an unverifiable token then fails with
// ErrInvalidCredential.
func (r *Resolver) Resolve(ctx context.Context, credential string) (Context, error) {
	if cached, ok := r.cacheGet(credential); ok {
		return cached, nil
	}

	resolved, err := r.introspect(ctx, credential)
	if err == nil {
		r.cacheSet(credential, resolved)

		return resolved, nil
	}

	if errors.Is(err, ErrServiceUnavailable) && !r.cfg.Strict {
		r.logger.Warn("Identity service unavailable, degrading to local token claims",
			slog.String("error", err.Error()),
		)

		return r.fallback(credential)
	}

	return Context{}, err
}

// Invalidate drops a credential from the cache.
func (r *Resolver) Invalidate(credential string) {
	r.mu.Lock()
	delete(r.cache, credential)
	r.mu.Unlock()
}

func (r *Resolver) cacheGet(credential string) (Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.cache[credential]
	if !ok {
		return Context{}, false
	}

	if !entry.expiresAt.After(r.now()) {
		delete(r.cache, credential)

		return Context{}, false
	}

	return entry.ctx, true
}

func (r *Resolver) cacheSet(credential string, ctx Context) {
	r.mu.Lock()
	r.cache[credential] = cacheEntry{ctx: ctx, expiresAt: r.now().Add(r.cfg.CacheTTL)}
	r.mu.Unlock()
}

// introspectPayload is the expected response shape. Pointer fields and
// json.Number let unmarshalling distinguish "absent or mistyped" from zero
// values; any deviation is treated as an unavailable service, not a
// rejection.
type introspectPayload struct {
	UserID            *json.Number `json:"user_id"`
	Role              *string      `json:"role"`
	AgreementAccepted *bool        `json:"agreement_accepted"`
}

func (r *Resolver) introspect(ctx context.Context, credential string) (Context, error) {
	url := strings.TrimRight(r.cfg.IdentityURL, "/") + ensureLeadingSlash(r.cfg.IntrospectPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Context{}, fmt.Errorf("%w: building request: %v", ErrServiceUnavailable, err)
	}

	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := r.client.Do(req)
	if err != nil {
		return Context{}, fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Context{}, ErrInvalidCredential
	case resp.StatusCode >= 500:
		return Context{}, fmt.Errorf("%w: identity service returned %d", ErrServiceUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return Context{}, fmt.Errorf("%w: unexpected status %d", ErrServiceUnavailable, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Context{}, fmt.Errorf("%w: reading response: %v", ErrServiceUnavailable, err)
	}

	var payload introspectPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return Context{}, fmt.Errorf("%w: malformed introspection response: %v", ErrServiceUnavailable, err)
	}

	if payload.UserID == nil || payload.Role == nil || payload.AgreementAccepted == nil {
		return Context{}, fmt.Errorf("%w: incomplete introspection response", ErrServiceUnavailable)
	}

	userID, err := payload.UserID.Int64()
	if err != nil {
		return Context{}, fmt.Errorf("%w: non-integer user_id", ErrServiceUnavailable)
	}

	return Context{
		UserID:            int(userID),
		Role:              *payload.Role,
		AgreementAccepted: *payload.AgreementAccepted,
	}, nil
}

func ensureLeadingSlash(path string) string {
	if strings.HasPrefix(path, "/") {
		return path
	}

	return "/" + path
}
