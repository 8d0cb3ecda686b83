package orchestrator

import (
	"context"
	"sync"

	"github.com/robinjoseph08/golib/logger"
	"github.com/toshobooks/tosho/pkg/jobs"
	"github.com/toshobooks/tosho/pkg/matches"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/metadata"
	"github.com/toshobooks/tosho/pkg/namematch"
	"github.com/toshobooks/tosho/pkg/notify"
	"github.com/toshobooks/tosho/pkg/providers"
	"github.com/uptrace/bun"
)

// Options carries the collaborators the orchestrator composes. Everything
// is required except Notifier, which defaults to a noop sink.
type Options struct {
	Servers        *mediaserver.Registry
	Providers      *providers.Registry
	Aggregator     *providers.Aggregator
	Matcher        *namematch.Matcher
	MergePolicy    metadata.MergePolicy
	SidecarEnabled bool
	Notifier       notify.Service
}

// Orchestrator runs the per-series enrichment pipeline: snapshot the
// series, gather provider candidates, merge, build and apply patches, then
// persist the match. Each job runs in its own goroutine; concurrency
// control is per series via the job registry.
type Orchestrator struct {
	log logger.Logger

	jobService   *jobs.Service
	matchService *matches.Service
	registry     *jobs.Registry
	broker       *jobs.Broker

	servers        *mediaserver.Registry
	providers      *providers.Registry
	aggregator     *providers.Aggregator
	matcher        *namematch.Matcher
	mergePolicy    metadata.MergePolicy
	sidecarEnabled bool
	notifier       notify.Service

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func New(db *bun.DB, opts Options) *Orchestrator {
	notifier := opts.Notifier
	if notifier == nil {
		notifier = notify.NewService("")
	}

	baseCtx, cancel := context.WithCancel(context.Background())

	return &Orchestrator{
		log:            logger.New(),
		jobService:     jobs.NewService(db),
		matchService:   matches.NewService(db),
		registry:       jobs.NewRegistry(),
		broker:         jobs.NewBroker(),
		servers:        opts.Servers,
		providers:      opts.Providers,
		aggregator:     opts.Aggregator,
		matcher:        opts.Matcher,
		mergePolicy:    opts.MergePolicy,
		sidecarEnabled: opts.SidecarEnabled,
		notifier:       notifier,
		baseCtx:        baseCtx,
		cancel:         cancel,
	}
}

// Broker exposes the event broker so the jobs routes can serve SSE
// subscriptions.
func (o *Orchestrator) Broker() *jobs.Broker {
	return o.broker
}

// Shutdown stops accepting work and waits for in-flight jobs to finish.
// Cancelling the base context makes running jobs fail fast; they still
// persist their terminal state before Shutdown returns.
func (o *Orchestrator) Shutdown() {
	o.cancel()
	o.wg.Wait()
}
