// Package providers defines the metadata provider capability and fans
// queries out across the configured provider set. Concrete adapters
// (network calls, response parsing) live outside the core and are
// registered by name at startup.
package providers

import (
	"context"

	"github.com/pkg/errors"
	"github.com/toshobooks/tosho/pkg/metadata"
)

// Provider is the uniform search/fetch capability one metadata source
// exposes. Implementations are expected to be safe for concurrent use.
type Provider interface {
	Name() string
	Search(ctx context.Context, title string) ([]metadata.Candidate, error)
	FetchSeries(ctx context.Context, providerSeriesID string) (*metadata.Candidate, error)
	FetchBooks(ctx context.Context, providerSeriesID string) ([]metadata.BookCandidate, error)
}

// Registry holds providers keyed by name, preserving the configured
// priority order. Built once at startup; read-only afterwards.
type Registry struct {
	order     []string
	providers map[string]Provider
}

// NewRegistry builds a registry from the configured provider order. Every
// configured name must have a registered implementation.
func NewRegistry(order []string, available ...Provider) (*Registry, error) {
	byName := make(map[string]Provider, len(available))
	for _, p := range available {
		byName[p.Name()] = p
	}

	r := &Registry{providers: make(map[string]Provider, len(order))}
	for _, name := range order {
		p, ok := byName[name]
		if !ok {
			return nil, errors.Errorf("provider %q is configured but not registered", name)
		}
		r.order = append(r.order, name)
		r.providers[name] = p
	}
	return r, nil
}

// Get returns the provider with the given name.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, errors.Errorf("unknown provider %q", name)
	}
	return p, nil
}

// Has reports whether a provider with the given name is configured.
func (r *Registry) Has(name string) bool {
	_, ok := r.providers[name]
	return ok
}

// Names returns the configured provider names in priority order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}
