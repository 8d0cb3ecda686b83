package providers

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/toshobooks/tosho/pkg/metadata"
	"golang.org/x/sync/errgroup"
)

// SearchResult is one provider's outcome of a fan-out search. Either Err is
// set or Candidates holds the provider's (possibly empty) result list.
type SearchResult struct {
	Provider   string
	Candidates []metadata.Candidate
	Err        error
}

// TimeoutFunc returns the call timeout for a provider.
type TimeoutFunc func(provider string) time.Duration

// Aggregator fans searches and fetches out across the registry. A
// provider's failure (timeout, parse error, not-found) is isolated into its
// result slot and never aborts sibling queries. No retries happen at this
// layer; one call per provider is final for the run.
type Aggregator struct {
	registry *Registry
	timeout  TimeoutFunc
}

func NewAggregator(registry *Registry, timeout TimeoutFunc) *Aggregator {
	return &Aggregator{registry: registry, timeout: timeout}
}

// Search queries every configured provider concurrently. The result slice
// is in configured provider order regardless of completion order, so
// downstream matching is deterministic for a given provider set.
func (a *Aggregator) Search(ctx context.Context, title string) []SearchResult {
	names := a.registry.order
	results := make([]SearchResult, len(names))

	g, ctx := errgroup.WithContext(ctx)
	for i, name := range names {
		results[i].Provider = name
		p := a.registry.providers[name]
		g.Go(func() error {
			callCtx, cancel := context.WithTimeout(ctx, a.timeout(name))
			defer cancel()

			candidates, err := p.Search(callCtx, title)
			if err != nil {
				results[i].Err = errors.Wrapf(err, "provider %s search", name)
				return nil
			}
			results[i].Candidates = candidates
			return nil
		})
	}
	_ = g.Wait() // goroutines never return errors; failures land in slots

	return results
}

// FetchSeries fetches one series from one provider under its timeout.
func (a *Aggregator) FetchSeries(ctx context.Context, provider, providerSeriesID string) (*metadata.Candidate, error) {
	p, err := a.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout(provider))
	defer cancel()

	c, err := p.FetchSeries(callCtx, providerSeriesID)
	if err != nil {
		return nil, errors.Wrapf(err, "provider %s fetch series", provider)
	}
	return c, nil
}

// FetchBooks fetches the book list for one series from one provider.
func (a *Aggregator) FetchBooks(ctx context.Context, provider, providerSeriesID string) ([]metadata.BookCandidate, error) {
	p, err := a.registry.Get(provider)
	if err != nil {
		return nil, err
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout(provider))
	defer cancel()

	books, err := p.FetchBooks(callCtx, providerSeriesID)
	if err != nil {
		return nil, errors.Wrapf(err, "provider %s fetch books", provider)
	}
	return books, nil
}
