package ingest

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/toshobooks/tosho/pkg/errcodes"
	"github.com/toshobooks/tosho/pkg/mediaserver"
)

type handler struct {
	ingestor *Ingestor
	servers  *mediaserver.Registry
}

// receive accepts a change notification webhook from a media server. The
// event is queued for coalescing; the response never waits for a job.
func (h *handler) receive(c echo.Context) error {
	kind := mediaserver.Kind(c.Param("server"))
	if !h.servers.Has(kind) {
		return errcodes.UnknownServer(string(kind))
	}

	params := ChangeEventPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	h.ingestor.Offer(ChangeEvent{
		Ref:       mediaserver.SeriesRef{Server: kind, ID: params.SeriesID},
		Kind:      params.Kind,
		LibraryID: params.LibraryID,
	})

	return c.NoContent(http.StatusAccepted)
}
