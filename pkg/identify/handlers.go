package identify

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/toshobooks/tosho/pkg/errcodes"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/metadata"
	"github.com/toshobooks/tosho/pkg/models"
	"github.com/toshobooks/tosho/pkg/orchestrator"
	"github.com/toshobooks/tosho/pkg/providers"
)

type handler struct {
	orchestrator *orchestrator.Orchestrator
	aggregator   *providers.Aggregator
	providers    *providers.Registry
	servers      *mediaserver.Registry
}

// identify triggers an enrichment job for a series. With a provider and
// provider series id the choice is recorded as a manual match; without one
// the job resolves the match itself.
func (h *handler) identify(c echo.Context) error {
	ctx := c.Request().Context()

	params := IdentifyPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	ref := mediaserver.SeriesRef{Server: mediaserver.Kind(params.Server), ID: params.SeriesID}

	var job *models.MetadataJob
	var err error
	if params.Provider != "" {
		job, err = h.orchestrator.StartManual(ctx, ref, params.Provider, params.ProviderSeriesID)
	} else {
		job, err = h.orchestrator.StartAutomatic(ctx, ref)
	}
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusCreated, job))
}

// search runs a provider search and returns per-provider candidates so a
// client can offer a match picker. When no title is given it is taken from
// the series on the media server.
func (h *handler) search(c echo.Context) error {
	ctx := c.Request().Context()

	params := SearchPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	title := params.Title
	if title == "" {
		kind := mediaserver.Kind(params.Server)
		if !h.servers.Has(kind) {
			return errcodes.UnknownServer(params.Server)
		}
		client, err := h.servers.Get(kind)
		if err != nil {
			return errors.WithStack(err)
		}
		snapshot, err := client.GetSeries(ctx, params.SeriesID)
		if err != nil {
			return errors.WithStack(err)
		}
		title = snapshot.Metadata.Title
	}

	results := h.aggregator.Search(ctx, title)

	type providerResult struct {
		Provider   string               `json:"provider"`
		Candidates []metadata.Candidate `json:"candidates,omitempty"`
		Error      string               `json:"error,omitempty"`
	}

	response := struct {
		Title   string           `json:"title"`
		Results []providerResult `json:"results"`
	}{Title: title, Results: make([]providerResult, 0, len(results))}

	for _, r := range results {
		pr := providerResult{Provider: r.Provider, Candidates: r.Candidates}
		if r.Err != nil {
			pr.Error = r.Err.Error()
		}
		response.Results = append(response.Results, pr)
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) listProviders(c echo.Context) error {
	response := map[string]any{
		"providers": h.providers.Names(),
	}
	return errors.WithStack(c.JSON(http.StatusOK, response))
}
