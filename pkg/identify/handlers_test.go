package identify

import (
	"context"
	"database/sql"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/metadata"
	"github.com/toshobooks/tosho/pkg/migrations"
	"github.com/toshobooks/tosho/pkg/models"
	"github.com/toshobooks/tosho/pkg/namematch"
	"github.com/toshobooks/tosho/pkg/orchestrator"
	"github.com/toshobooks/tosho/pkg/patch"
	"github.com/toshobooks/tosho/pkg/providers"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

type stubClient struct{}

func (stubClient) Kind() mediaserver.Kind { return mediaserver.KindKomga }

func (stubClient) GetSeries(_ context.Context, _ string) (*mediaserver.SeriesSnapshot, error) {
	return &mediaserver.SeriesSnapshot{
		Ref:      mediaserver.SeriesRef{Server: mediaserver.KindKomga, ID: "series-1"},
		Metadata: metadata.Record{Title: "Fullmetal Alchemist"},
	}, nil
}

func (stubClient) GetBooks(_ context.Context, _ string) ([]*mediaserver.BookSnapshot, error) {
	return nil, nil
}

func (stubClient) UpdateSeries(_ context.Context, _ string, _ *patch.SeriesPatch) error {
	return nil
}

func (stubClient) UpdateBook(_ context.Context, _ string, _ *patch.BookPatch) error {
	return nil
}

type stubProvider struct {
	name    string
	results []metadata.Candidate
}

func (s *stubProvider) Name() string { return s.name }

func (s *stubProvider) Search(_ context.Context, _ string) ([]metadata.Candidate, error) {
	return s.results, nil
}

func (s *stubProvider) FetchSeries(_ context.Context, id string) (*metadata.Candidate, error) {
	for i := range s.results {
		if s.results[i].ProviderSeriesID == id {
			return &s.results[i], nil
		}
	}
	return nil, context.Canceled
}

func (s *stubProvider) FetchBooks(_ context.Context, _ string) ([]metadata.BookCandidate, error) {
	return nil, nil
}

func newHandler(t *testing.T) *handler {
	t.Helper()

	provider := &stubProvider{
		name: "mangadex",
		results: []metadata.Candidate{{
			Record:           metadata.Record{Title: "Fullmetal Alchemist"},
			Provider:         "mangadex",
			ProviderSeriesID: "abc",
		}},
	}

	registry, err := providers.NewRegistry([]string{"mangadex"}, provider)
	require.NoError(t, err)
	aggregator := providers.NewAggregator(registry, func(string) time.Duration { return time.Second })

	servers := mediaserver.NewRegistry(stubClient{})

	o := orchestrator.New(newTestDB(t), orchestrator.Options{
		Servers:     servers,
		Providers:   registry,
		Aggregator:  aggregator,
		Matcher:     namematch.New(namematch.ModeClosest, namematch.DefaultThreshold),
		MergePolicy: metadata.MergePolicy{ProviderOrder: []string{"mangadex"}},
	})
	t.Cleanup(o.Shutdown)

	return &handler{
		orchestrator: o,
		aggregator:   aggregator,
		providers:    registry,
		servers:      servers,
	}
}

func newContext(t *testing.T, payload string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestIdentifyManual(t *testing.T) {
	h := newHandler(t)

	c, rec := newContext(t, `{"server":"komga","series_id":"series-1","provider":"mangadex","provider_series_id":"abc"}`)
	require.NoError(t, h.identify(c))
	assert.Equal(t, http.StatusCreated, rec.Code)

	job := models.MetadataJob{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "komga", job.ServerKind)
	assert.Equal(t, "series-1", job.SeriesID)
	assert.Equal(t, models.JobStatusRunning, job.Status)
}

func TestIdentifyAutomatic(t *testing.T) {
	h := newHandler(t)

	c, rec := newContext(t, `{"server":"komga","series_id":"series-1"}`)
	require.NoError(t, h.identify(c))
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestIdentifyUnknownProvider(t *testing.T) {
	h := newHandler(t)

	c, _ := newContext(t, `{"server":"komga","series_id":"series-1","provider":"nope","provider_series_id":"abc"}`)
	err := h.identify(c)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nope")
}

func TestIdentifyConflict(t *testing.T) {
	h := newHandler(t)

	c, _ := newContext(t, `{"server":"komga","series_id":"series-1"}`)
	require.NoError(t, h.identify(c))

	c, _ = newContext(t, `{"server":"komga","series_id":"series-1"}`)
	err := h.identify(c)
	if err != nil {
		assert.Contains(t, err.Error(), "already running")
	}
}

func TestSearchWithTitle(t *testing.T) {
	h := newHandler(t)

	c, rec := newContext(t, `{"title":"Fullmetal Alchemist"}`)
	require.NoError(t, h.search(c))
	assert.Equal(t, http.StatusOK, rec.Code)

	response := struct {
		Title   string `json:"title"`
		Results []struct {
			Provider   string               `json:"provider"`
			Candidates []metadata.Candidate `json:"candidates"`
		} `json:"results"`
	}{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, "Fullmetal Alchemist", response.Title)
	require.Len(t, response.Results, 1)
	assert.Equal(t, "mangadex", response.Results[0].Provider)
	require.Len(t, response.Results[0].Candidates, 1)
}

func TestSearchWithSeriesRef(t *testing.T) {
	h := newHandler(t)

	// No title; it is read from the series on the media server.
	c, rec := newContext(t, `{"server":"komga","series_id":"series-1"}`)
	require.NoError(t, h.search(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fullmetal Alchemist")
}

func TestListProviders(t *testing.T) {
	h := newHandler(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	require.NoError(t, h.listProviders(e.NewContext(req, rec)))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"providers":["mangadex"]}`, rec.Body.String())
}