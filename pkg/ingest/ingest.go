package ingest

import (
	"context"
	"sync"
	"time"

	"github.com/robinjoseph08/golib/logger"
	"github.com/toshobooks/tosho/pkg/config"
	"github.com/toshobooks/tosho/pkg/errcodes"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/models"
)

// Starter triggers an automatic enrichment job. Satisfied by the
// orchestrator.
type Starter interface {
	StartAutomatic(ctx context.Context, ref mediaserver.SeriesRef) (*models.MetadataJob, error)
}

// Kinds of change notifications media servers emit. All kinds trigger the
// same enrichment pipeline; the kind is kept for log context.
const (
	KindSeriesAdded   = "series_added"
	KindSeriesChanged = "series_changed"
	KindBookAdded     = "book_added"
)

// ChangeEvent is a normalized change notification from a media server.
type ChangeEvent struct {
	Ref       mediaserver.SeriesRef
	Kind      string
	LibraryID string
}

// Ingestor turns media server change notifications into automatic job
// triggers. Events are filtered, coalesced per series over a window, and
// buffered in a bounded queue. When the queue is full the oldest pending
// trigger is dropped; a dropped trigger is recovered by the next change
// event for that series.
type Ingestor struct {
	log     logger.Logger
	cfg     config.EventsConfig
	starter Starter

	mu      sync.Mutex
	pending map[mediaserver.SeriesRef]*time.Timer

	queue    chan mediaserver.SeriesRef
	shutdown chan struct{}
	done     chan struct{}
}

func New(cfg config.EventsConfig, starter Starter) *Ingestor {
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 256
	}

	return &Ingestor{
		log:      logger.New(),
		cfg:      cfg,
		starter:  starter,
		pending:  make(map[mediaserver.SeriesRef]*time.Timer),
		queue:    make(chan mediaserver.SeriesRef, queueSize),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (in *Ingestor) Start() {
	go in.process()
}

// Shutdown stops the trigger loop. Pending coalescing timers are stopped;
// their series are picked up again on the next change event.
func (in *Ingestor) Shutdown() {
	in.mu.Lock()
	for ref, timer := range in.pending {
		timer.Stop()
		delete(in.pending, ref)
	}
	in.mu.Unlock()

	close(in.shutdown)
	<-in.done
}

// Offer accepts a change event. It never blocks; filtered and coalesced
// events are dropped silently.
func (in *Ingestor) Offer(ev ChangeEvent) {
	if in.cfg.DisableAutomatic {
		return
	}
	if !in.allowed(ev) {
		in.log.Debug("change event filtered", logger.Data{
			"series":  ev.Ref.String(),
			"kind":    ev.Kind,
			"library": ev.LibraryID,
		})
		return
	}

	in.mu.Lock()
	defer in.mu.Unlock()

	if timer, ok := in.pending[ev.Ref]; ok {
		// Another change within the window extends it.
		timer.Reset(in.window())
		return
	}

	ref := ev.Ref
	in.pending[ref] = time.AfterFunc(in.window(), func() {
		in.mu.Lock()
		delete(in.pending, ref)
		in.mu.Unlock()
		in.enqueue(ref)
	})
}

func (in *Ingestor) window() time.Duration {
	if in.cfg.CoalesceWindow > 0 {
		return in.cfg.CoalesceWindow
	}
	return 5 * time.Second
}

func (in *Ingestor) allowed(ev ChangeEvent) bool {
	if len(in.cfg.LibraryAllow) > 0 {
		found := false
		for _, id := range in.cfg.LibraryAllow {
			if id == ev.LibraryID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}

	for _, excluded := range in.cfg.SeriesExclude {
		if excluded == ev.Ref.ID || excluded == ev.Ref.String() {
			return false
		}
	}

	return true
}

func (in *Ingestor) enqueue(ref mediaserver.SeriesRef) {
	for {
		select {
		case in.queue <- ref:
			return
		default:
		}

		// Queue is full; drop the oldest pending trigger to make room.
		select {
		case dropped := <-in.queue:
			in.log.Warn("event queue full, dropping oldest trigger", logger.Data{"series": dropped.String()})
		default:
		}
	}
}

func (in *Ingestor) process() {
	defer close(in.done)

	for {
		select {
		case <-in.shutdown:
			return
		case ref := <-in.queue:
			log := in.log.Data(logger.Data{"series": ref.String()})
			ctx := log.WithContext(context.Background())

			_, err := in.starter.StartAutomatic(ctx, ref)
			if err != nil {
				if errcodes.IsConflict(err) {
					// A job is already running for this series.
					continue
				}
				log.Err(err).Error("start automatic job error")
			}
		}
	}
}
