package jobs

import (
	"github.com/labstack/echo/v4"
	"github.com/uptrace/bun"
)

// RegisterRoutes registers job routes on the given group.
func RegisterRoutes(g *echo.Group, db *bun.DB, broker *Broker) {
	h := &handler{
		jobService: NewService(db),
		broker:     broker,
	}

	g.GET("", h.list)
	g.GET("/:id", h.retrieve)
	g.GET("/:id/events", h.events)
}
