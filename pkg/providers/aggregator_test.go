package providers

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshobooks/tosho/pkg/metadata"
)

type stubProvider struct {
	name      string
	delay     time.Duration
	searchErr error
	results   []metadata.Candidate
	series    *metadata.Candidate
	books     []metadata.BookCandidate
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(ctx context.Context, _ string) ([]metadata.Candidate, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.searchErr != nil {
		return nil, s.searchErr
	}
	return s.results, nil
}

func (s *stubProvider) FetchSeries(_ context.Context, _ string) (*metadata.Candidate, error) {
	if s.series == nil {
		return nil, errors.New("not found")
	}
	return s.series, nil
}

func (s *stubProvider) FetchBooks(_ context.Context, _ string) ([]metadata.BookCandidate, error) {
	return s.books, nil
}

func fixedTimeout(d time.Duration) TimeoutFunc {
	return func(string) time.Duration { return d }
}

func TestNewRegistry_UnregisteredProvider(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry([]string{"anilist", "ghost"}, &stubProvider{name: "anilist"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ghost")
}

func TestRegistry_NamesPreserveOrder(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry(
		[]string{"b", "a"},
		&stubProvider{name: "a"},
		&stubProvider{name: "b"},
	)
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, r.Names())
}

func TestSearch_PreservesConfiguredOrder(t *testing.T) {
	t.Parallel()

	// The slow provider is configured first; its slot must still come
	// first even though it completes last.
	slow := &stubProvider{name: "slow", delay: 50 * time.Millisecond, results: []metadata.Candidate{
		{Provider: "slow", ProviderSeriesID: "1", Record: metadata.Record{Title: "One"}},
	}}
	fast := &stubProvider{name: "fast", results: []metadata.Candidate{
		{Provider: "fast", ProviderSeriesID: "2", Record: metadata.Record{Title: "Two"}},
	}}

	r, err := NewRegistry([]string{"slow", "fast"}, slow, fast)
	require.NoError(t, err)
	agg := NewAggregator(r, fixedTimeout(time.Second))

	results := agg.Search(context.Background(), "query")
	require.Len(t, results, 2)
	assert.Equal(t, "slow", results[0].Provider)
	assert.Equal(t, "fast", results[1].Provider)
	require.NoError(t, results[0].Err)
	assert.Equal(t, "One", results[0].Candidates[0].Title)
}

func TestSearch_IsolatesFailures(t *testing.T) {
	t.Parallel()

	broken := &stubProvider{name: "broken", searchErr: errors.New("boom")}
	healthy := &stubProvider{name: "healthy", results: []metadata.Candidate{
		{Provider: "healthy", ProviderSeriesID: "3", Record: metadata.Record{Title: "Three"}},
	}}

	r, err := NewRegistry([]string{"broken", "healthy"}, broken, healthy)
	require.NoError(t, err)
	agg := NewAggregator(r, fixedTimeout(time.Second))

	results := agg.Search(context.Background(), "query")
	require.Len(t, results, 2)
	require.Error(t, results[0].Err)
	assert.Contains(t, results[0].Err.Error(), "provider broken search")
	require.NoError(t, results[1].Err)
	assert.Len(t, results[1].Candidates, 1)
}

func TestSearch_TimeoutIsIsolated(t *testing.T) {
	t.Parallel()

	stuck := &stubProvider{name: "stuck", delay: time.Second}
	healthy := &stubProvider{name: "healthy", results: []metadata.Candidate{
		{Provider: "healthy", ProviderSeriesID: "4"},
	}}

	r, err := NewRegistry([]string{"stuck", "healthy"}, stuck, healthy)
	require.NoError(t, err)
	agg := NewAggregator(r, fixedTimeout(20*time.Millisecond))

	results := agg.Search(context.Background(), "query")
	require.Error(t, results[0].Err)
	assert.ErrorIs(t, errors.Cause(results[0].Err), context.DeadlineExceeded)
	require.NoError(t, results[1].Err)
}

func TestFetchSeries_UnknownProvider(t *testing.T) {
	t.Parallel()

	r, err := NewRegistry([]string{"a"}, &stubProvider{name: "a"})
	require.NoError(t, err)
	agg := NewAggregator(r, fixedTimeout(time.Second))

	_, err = agg.FetchSeries(context.Background(), "nope", "1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown provider")
}

func TestFetchSeries(t *testing.T) {
	t.Parallel()

	p := &stubProvider{name: "a", series: &metadata.Candidate{
		Provider:         "a",
		ProviderSeriesID: "42",
		Record:           metadata.Record{Title: "The Answer"},
	}}
	r, err := NewRegistry([]string{"a"}, p)
	require.NoError(t, err)
	agg := NewAggregator(r, fixedTimeout(time.Second))

	c, err := agg.FetchSeries(context.Background(), "a", "42")
	require.NoError(t, err)
	assert.Equal(t, "The Answer", c.Title)
}
