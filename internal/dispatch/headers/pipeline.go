package headers

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/cuongbtq/derivative-dispatcher/internal/dispatch/domain"
)

// Context is the shared state handed to every handler of one dispatch
type Context struct {
	Headers    *domain.MessageHeaders
	Subject    *domain.Entity
	Issuer     *domain.Identity
	Attachment map[string]string
	Job        *domain.JobConfiguration
}

// Handler augments message headers before send.
// Handlers may add or replace entries but must check presence first so a
// value set by a handler that ran earlier is kept.
type Handler interface {
	Name() string
	// Priority orders handlers: higher numbers run first, lower numbers run later
	// to fill gaps with defaults.
	Priority() int
	Augment(ctx context.Context, hc *Context) error
}

// Pipeline runs registered handlers in priority order
type Pipeline struct {
	handlers []Handler
}

// NewPipeline creates a pipeline with the given handlers
func NewPipeline(handlers ...Handler) *Pipeline {
	p := &Pipeline{}
	for _, h := range handlers {
		p.Register(h)
	}
	return p
}

// Register adds a handler. Handlers with equal priority run in registration order.
func (p *Pipeline) Register(h Handler) {
	p.handlers = append(p.handlers, h)
	sort.SliceStable(p.handlers, func(i, j int) bool {
		return p.handlers[i].Priority() > p.handlers[j].Priority()
	})
}

// Handlers returns the handlers in execution order
func (p *Pipeline) Handlers() []Handler {
	out := make([]Handler, len(p.handlers))
	copy(out, p.handlers)
	return out
}

// Build creates an empty header set and runs every handler over it.
// The first handler error aborts the build.
func (p *Pipeline) Build(ctx context.Context, hc *Context) (*domain.MessageHeaders, error) {
	if hc.Headers == nil {
		hc.Headers = domain.NewMessageHeaders()
	}

	for _, h := range p.handlers {
		if err := h.Augment(ctx, hc); err != nil {
			if !errors.Is(err, domain.ErrHeaderBuild) {
				err = fmt.Errorf("%w: %w", domain.ErrHeaderBuild, err)
			}
			return nil, domain.NewConfigurationError("headers "+h.Name(), err)
		}
	}

	return hc.Headers, nil
}
