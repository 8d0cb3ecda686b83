package ingest

import (
	"github.com/labstack/echo/v4"
	"github.com/toshobooks/tosho/pkg/mediaserver"
)

// RegisterRoutes registers the change event webhook on the given group.
func RegisterRoutes(g *echo.Group, ingestor *Ingestor, servers *mediaserver.Registry) {
	h := &handler{
		ingestor: ingestor,
		servers:  servers,
	}

	g.POST("/:server", h.receive)
}
