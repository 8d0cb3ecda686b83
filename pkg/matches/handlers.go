package matches

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/toshobooks/tosho/pkg/errcodes"
	"github.com/toshobooks/tosho/pkg/mediaserver"
)

type handler struct {
	matchService *Service
	servers      *mediaserver.Registry
}

func (h *handler) seriesRef(c echo.Context) (mediaserver.SeriesRef, error) {
	kind := mediaserver.Kind(c.Param("server"))
	if !h.servers.Has(kind) {
		return mediaserver.SeriesRef{}, errcodes.UnknownServer(c.Param("server"))
	}
	id := c.Param("id")
	if id == "" {
		return mediaserver.SeriesRef{}, errcodes.NotFound("Series")
	}
	return mediaserver.SeriesRef{Server: kind, ID: id}, nil
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	ref, err := h.seriesRef(c)
	if err != nil {
		return err
	}

	match, err := h.matchService.Retrieve(ctx, ref)
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, match))
}

func (h *handler) unlink(c echo.Context) error {
	ctx := c.Request().Context()

	ref, err := h.seriesRef(c)
	if err != nil {
		return err
	}

	if err := h.matchService.Delete(ctx, ref); err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}
