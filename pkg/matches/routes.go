package matches

import (
	"github.com/labstack/echo/v4"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers series match routes.
func RegisterRoutes(e *echo.Echo, db *bun.DB, servers *mediaserver.Registry) {
	h := &handler{
		matchService: NewService(db),
		servers:      servers,
	}

	e.GET("/series/:server/:id/match", h.retrieve)
	e.DELETE("/series/:server/:id/match", h.unlink)
}
