package jobs

import (
	"sync"

	"github.com/toshobooks/tosho/pkg/errcodes"
	"github.com/toshobooks/tosho/pkg/mediaserver"
)

// Registry tracks the active job per series so at most one RUNNING job
// exists per seriesRef at any time. It is the shared mutable state between
// concurrently starting jobs; acquisition is an atomic check-and-insert
// under one mutex, so a second start request fails fast instead of
// queueing.
type Registry struct {
	mu     sync.Mutex
	active map[mediaserver.SeriesRef]string // ref -> job id
}

func NewRegistry() *Registry {
	return &Registry{active: make(map[mediaserver.SeriesRef]string)}
}

// Acquire claims the series for a new job. It returns a Conflict error when
// another job is already running for the same series.
func (r *Registry) Acquire(ref mediaserver.SeriesRef, jobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.active[ref]; ok {
		return errcodes.Conflict("A metadata job is already running for this series.")
	}
	r.active[ref] = jobID
	return nil
}

// Release frees the series after its job reaches a terminal state. The
// claim is only removed when it still belongs to jobID, so a late release
// from a finished job cannot free a successor's claim.
func (r *Registry) Release(ref mediaserver.SeriesRef, jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[ref] == jobID {
		delete(r.active, ref)
	}
}

// ActiveJobID returns the id of the running job for the series, if any.
func (r *Registry) ActiveJobID(ref mediaserver.SeriesRef) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.active[ref]
	return id, ok
}
