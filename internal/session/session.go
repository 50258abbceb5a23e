// Package session resolves bearer tokens to callers through the external
// authentication provider. Resolved sessions are cached briefly so every
// search request does not round-trip to the auth service.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	gocache "github.com/patrickmn/go-cache"
	"github.com/rs/zerolog/log"

	"inboxsearch/internal/models"
)

// ErrInvalidSession signals a missing, unknown or expired credential.
var ErrInvalidSession = errors.New("invalid or expired session")

// Provider resolves a bearer token into the calling operator.
type Provider interface {
	Resolve(ctx context.Context, token string) (*models.Caller, error)
}

// sessionPayload is the auth service's session response shape.
type sessionPayload struct {
	ID    string   `json:"id"`
	Name  string   `json:"name"`
	Role  string   `json:"role"`
	Areas []string `json:"areas"`
}

// HTTPProvider resolves sessions against the auth service over HTTP with a
// TTL cache in front.
type HTTPProvider struct {
	client *resty.Client
	cache  *gocache.Cache
}

// NewHTTPProvider builds a provider for the auth service at baseURL.
func NewHTTPProvider(baseURL string, cacheTTL time.Duration) *HTTPProvider {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second)
	return &HTTPProvider{
		client: client,
		cache:  gocache.New(cacheTTL, 2*cacheTTL),
	}
}

func (p *HTTPProvider) Resolve(ctx context.Context, token string) (*models.Caller, error) {
	if token == "" {
		return nil, ErrInvalidSession
	}
	if cached, found := p.cache.Get(token); found {
		caller := cached.(models.Caller)
		return &caller, nil
	}

	var payload sessionPayload
	resp, err := p.client.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+token).
		SetResult(&payload).
		Get("/session")
	if err != nil {
		return nil, fmt.Errorf("failed to reach session provider: %w", err)
	}
	if resp.StatusCode() == 401 || resp.StatusCode() == 403 {
		return nil, ErrInvalidSession
	}
	if resp.IsError() {
		return nil, fmt.Errorf("session provider returned status %d", resp.StatusCode())
	}

	role, ok := models.ParseRole(payload.Role)
	if !ok {
		log.Warn().Str("role", payload.Role).Msg("Session provider returned unknown role")
		return nil, ErrInvalidSession
	}

	caller := models.Caller{
		ID:    payload.ID,
		Name:  payload.Name,
		Role:  role,
		Areas: payload.Areas,
	}
	p.cache.Set(token, caller, gocache.DefaultExpiration)
	return &caller, nil
}

// StaticProvider resolves tokens from a fixed map. Tests only.
type StaticProvider struct {
	Callers map[string]models.Caller
}

func (p *StaticProvider) Resolve(_ context.Context, token string) (*models.Caller, error) {
	caller, ok := p.Callers[token]
	if !ok {
		return nil, ErrInvalidSession
	}
	return &caller, nil
}
