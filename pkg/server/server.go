package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/echo/v4/health"
	"github.com/robinjoseph08/golib/echo/v4/middleware/logger"
	"github.com/robinjoseph08/golib/echo/v4/middleware/recovery"
	"github.com/toshobooks/tosho/pkg/binder"
	"github.com/toshobooks/tosho/pkg/config"
	"github.com/toshobooks/tosho/pkg/errcodes"
	"github.com/toshobooks/tosho/pkg/identify"
	"github.com/toshobooks/tosho/pkg/ingest"
	"github.com/toshobooks/tosho/pkg/jobs"
	"github.com/toshobooks/tosho/pkg/matches"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/orchestrator"
	"github.com/toshobooks/tosho/pkg/providers"
	"github.com/uptrace/bun"
)

// Dependencies are the long-lived components the HTTP surface exposes.
// They are constructed in cmd/api and shared with the background pipeline.
type Dependencies struct {
	Orchestrator *orchestrator.Orchestrator
	Ingestor     *ingest.Ingestor
	Aggregator   *providers.Aggregator
	Providers    *providers.Registry
	Servers      *mediaserver.Registry
}

func New(cfg *config.Config, db *bun.DB, deps Dependencies) (*http.Server, error) {
	e := echo.New()

	b, err := binder.New()
	if err != nil {
		return nil, errors.WithStack(err)
	}
	e.Binder = b

	e.Use(logger.Middleware())
	e.Use(recovery.Middleware())
	e.Use(middleware.CORS())

	health.RegisterRoutes(e)

	jobs.RegisterRoutes(e.Group("/jobs"), db, deps.Orchestrator.Broker())
	matches.RegisterRoutes(e, db, deps.Servers)
	identify.RegisterRoutes(e.Group("/identify"), deps.Orchestrator, deps.Aggregator, deps.Providers, deps.Servers)
	identify.RegisterProviderRoutes(e.Group("/providers"), deps.Providers)
	ingest.RegisterRoutes(e.Group("/events"), deps.Ingestor, deps.Servers)

	echo.NotFoundHandler = notFoundHandler
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort),
		Handler:           e,
		ReadHeaderTimeout: 3 * time.Second,
	}

	return srv, nil
}

func notFoundHandler(c echo.Context) error {
	c.SetPath("/:path")
	return errcodes.NotFound("Page")
}
