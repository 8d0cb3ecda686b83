package main

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/robinjoseph08/golib/signals"
	"github.com/toshobooks/tosho/pkg/config"
	"github.com/toshobooks/tosho/pkg/database"
	"github.com/toshobooks/tosho/pkg/ingest"
	"github.com/toshobooks/tosho/pkg/jobs"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/metadata"
	"github.com/toshobooks/tosho/pkg/migrations"
	"github.com/toshobooks/tosho/pkg/namematch"
	"github.com/toshobooks/tosho/pkg/notify"
	"github.com/toshobooks/tosho/pkg/orchestrator"
	"github.com/toshobooks/tosho/pkg/providers"
	"github.com/toshobooks/tosho/pkg/server"
	"github.com/toshobooks/tosho/pkg/version"
)

func main() {
	ctx := context.Background()
	log := logger.New()

	log.Info("starting tosho", logger.Data{"version": version.Version})

	cfg, err := config.New()
	if err != nil {
		log.Err(err).Fatal("config error")
	}

	db, err := database.New(cfg)
	if err != nil {
		log.Err(err).Fatal("database error")
	}

	group, err := migrations.BringUpToDate(ctx, db)
	if err != nil {
		log.Err(err).Fatal("migrations error")
	}
	if group.ID == 0 {
		log.Info("no new migrations to run")
	} else {
		log.Info("migrated to new group", logger.Data{"group_id": group.ID, "migration_names": group.Migrations.String()})
	}

	// Jobs left running by a previous process can never finish; mark them
	// failed before anything new starts.
	jobService := jobs.NewService(db)
	reconciled, err := jobService.ReconcileInterrupted(ctx)
	if err != nil {
		log.Err(err).Fatal("job reconciliation error")
	}
	if reconciled > 0 {
		log.Info("reconciled interrupted jobs", logger.Data{"count": reconciled})
	}

	servers, err := buildServerRegistry(cfg)
	if err != nil {
		log.Err(err).Fatal("media server setup error")
	}

	providerNames := cfg.ProviderNames()
	built, err := providers.Build(providerNames)
	if err != nil {
		log.Err(err).Fatal("provider setup error")
	}
	providerRegistry, err := providers.NewRegistry(providerNames, built...)
	if err != nil {
		log.Err(err).Fatal("provider setup error")
	}
	aggregator := providers.NewAggregator(providerRegistry, cfg.TimeoutFor)

	orch := orchestrator.New(db, orchestrator.Options{
		Servers:    servers,
		Providers:  providerRegistry,
		Aggregator: aggregator,
		Matcher:    namematch.New(namematch.ModeClosest, cfg.MatchThreshold),
		MergePolicy: metadata.MergePolicy{
			ProviderOrder: providerNames,
			Genres:        cfg.Merge.Genres,
			Tags:          cfg.Merge.Tags,
			Authors:       cfg.Merge.Authors,
			Links:         cfg.Merge.Links,
		},
		SidecarEnabled: cfg.SidecarEnabled,
		Notifier:       notify.NewService(cfg.NotifyURL),
	})

	ingestor := ingest.New(cfg.Events, orch)

	srv, err := server.New(cfg, db, server.Dependencies{
		Orchestrator: orch,
		Ingestor:     ingestor,
		Aggregator:   aggregator,
		Providers:    providerRegistry,
		Servers:      servers,
	})
	if err != nil {
		log.Err(err).Fatal("server error")
	}

	graceful := signals.Setup()

	go func() {
		addr := fmt.Sprintf("%s:%d", cfg.ServerHost, cfg.ServerPort)
		lc := net.ListenConfig{}
		listener, err := lc.Listen(ctx, "tcp", addr)
		if err != nil {
			log.Err(err).Fatal("failed to bind port")
		}

		log.Info("server started", logger.Data{"port": listener.Addr().(*net.TCPAddr).Port})

		err = srv.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Err(err).Fatal("server stopped")
		}
		log.Info("server stopped")
	}()

	ingestor.Start()
	log.Info("event ingestor started")

	<-graceful
	log.Info("starting graceful shutdown")

	err = srv.Shutdown(ctx)
	if err != nil {
		log.Err(err).Error("server shutdown error")
	}
	log.Info("server shutdown")

	ingestor.Shutdown()
	log.Info("event ingestor shutdown")

	orch.Shutdown()
	log.Info("orchestrator shutdown")

	err = db.Close()
	if err != nil {
		log.Err(err).Error("database close error")
	}
	log.Info("database closed")
}

func buildServerRegistry(cfg *config.Config) (*mediaserver.Registry, error) {
	clients := make([]mediaserver.Client, 0, len(cfg.Servers))
	for _, sc := range cfg.Servers {
		client, err := mediaserver.NewClient(mediaserver.Kind(sc.Kind), sc.BaseURL, sc.APIKey)
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	return mediaserver.NewRegistry(clients...), nil
}
