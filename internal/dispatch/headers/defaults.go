package headers

import (
	"context"
	"fmt"
	"sort"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
)

// DefaultPriority is the priority of the baseline handlers; they run last
const DefaultPriority = -100

// TokenIssuer issues bearer tokens for an identity. An empty token means the
// issuer is misconfigured.
type TokenIssuer interface {
	GenerateToken(ctx context.Context, identity *domain.Identity) (string, error)
}

// AuthHandler sets a bearer Authorization header when none is present
type AuthHandler struct {
	issuer TokenIssuer
}

// NewAuthHandler creates an AuthHandler
func NewAuthHandler(issuer TokenIssuer) *AuthHandler {
	return &AuthHandler{issuer: issuer}
}

func (h *AuthHandler) Name() string  { return "authorization" }
func (h *AuthHandler) Priority() int { return DefaultPriority }

func (h *AuthHandler) Augment(ctx context.Context, hc *Context) error {
	if hc.Headers.Has(domain.HeaderAuthorization) {
		return nil
	}

	token, err := h.issuer.GenerateToken(ctx, hc.Issuer)
	if err != nil {
		return fmt.Errorf("%w: failed to generate token: %w", domain.ErrHeaderBuild, err)
	}
	if token == "" {
		return fmt.Errorf("%w: token issuer returned an empty token", domain.ErrHeaderBuild)
	}

	hc.Headers.Set(domain.HeaderAuthorization, "Bearer "+token)
	return nil
}

// PersistenceHandler marks the message durable when no flag is present
type PersistenceHandler struct{}

func (PersistenceHandler) Name() string  { return "persistence" }
func (PersistenceHandler) Priority() int { return DefaultPriority }

func (PersistenceHandler) Augment(_ context.Context, hc *Context) error {
	if !hc.Headers.Has(domain.HeaderPersistent) {
		hc.Headers.Set(domain.HeaderPersistent, "true")
	}
	return nil
}

// StaticHandler sets the per-action headers declared in configuration
type StaticHandler struct{}

func (StaticHandler) Name() string  { return "static" }
func (StaticHandler) Priority() int { return 0 }

func (StaticHandler) Augment(_ context.Context, hc *Context) error {
	if hc.Job == nil || len(hc.Job.Headers) == 0 {
		return nil
	}

	keys := make([]string, 0, len(hc.Job.Headers))
	for k := range hc.Job.Headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if !hc.Headers.Has(k) {
			hc.Headers.Set(k, hc.Job.Headers[k])
		}
	}
	return nil
}

// Defaults returns the baseline pipeline: static per-action headers, then
// authorization, then persistence
func Defaults(issuer TokenIssuer) *Pipeline {
	return NewPipeline(
		StaticHandler{},
		NewAuthHandler(issuer),
		PersistenceHandler{},
	)
}
