package identify

import (
	"github.com/labstack/echo/v4"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/orchestrator"
	"github.com/toshobooks/tosho/pkg/providers"
)

// RegisterRoutes registers the identify routes on a pre-configured group.
func RegisterRoutes(g *echo.Group, o *orchestrator.Orchestrator, aggregator *providers.Aggregator, registry *providers.Registry, servers *mediaserver.Registry) {
	h := &handler{
		orchestrator: o,
		aggregator:   aggregator,
		providers:    registry,
		servers:      servers,
	}

	g.POST("", h.identify)
	g.POST("/search", h.search)
}

// RegisterProviderRoutes registers the provider listing route.
func RegisterProviderRoutes(g *echo.Group, registry *providers.Registry) {
	h := &handler{providers: registry}

	g.GET("", h.listProviders)
}
