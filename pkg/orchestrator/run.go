package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"github.com/robinjoseph08/golib/logger"
	"github.com/toshobooks/tosho/pkg/errcodes"
	"github.com/toshobooks/tosho/pkg/jobs"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/metadata"
	"github.com/toshobooks/tosho/pkg/models"
	"github.com/toshobooks/tosho/pkg/namematch"
	"github.com/toshobooks/tosho/pkg/patch"
	"github.com/toshobooks/tosho/pkg/sidecar"
)

// StartAutomatic triggers an enrichment job for a series using its saved
// match when one exists, falling back to a provider search. At most one job
// runs per series; a second trigger returns a Conflict error.
func (o *Orchestrator) StartAutomatic(ctx context.Context, ref mediaserver.SeriesRef) (*models.MetadataJob, error) {
	if !o.servers.Has(ref.Server) {
		return nil, errcodes.UnknownServer(string(ref.Server))
	}
	return o.start(ctx, ref)
}

// StartManual records a user-chosen provider match for the series and
// triggers a job that uses it. The manual match is persisted before the job
// runs; a later automatic run can never overwrite it.
func (o *Orchestrator) StartManual(ctx context.Context, ref mediaserver.SeriesRef, provider, providerSeriesID string) (*models.MetadataJob, error) {
	if !o.servers.Has(ref.Server) {
		return nil, errcodes.UnknownServer(string(ref.Server))
	}
	if !o.providers.Has(provider) {
		return nil, errcodes.UnknownProvider(provider)
	}

	if err := o.matchService.SaveManual(ctx, ref, provider, providerSeriesID); err != nil {
		return nil, err
	}

	return o.start(ctx, ref)
}

func (o *Orchestrator) start(ctx context.Context, ref mediaserver.SeriesRef) (*models.MetadataJob, error) {
	jobID := jobs.NewJobID()

	if err := o.registry.Acquire(ref, jobID); err != nil {
		return nil, err
	}

	job, err := o.jobService.CreateJob(ctx, jobID, ref)
	if err != nil {
		o.registry.Release(ref, jobID)
		return nil, err
	}

	o.broker.Open(job.ID)

	o.wg.Add(1)
	go o.run(job, ref)

	return job, nil
}

func (o *Orchestrator) run(job *models.MetadataJob, ref mediaserver.SeriesRef) {
	defer o.wg.Done()
	// Safety net; finish releases the claim as soon as the terminal state
	// is persisted.
	defer o.registry.Release(ref, job.ID)

	log := o.log.ID(job.ID).Root(logger.Data{
		"job_id":    job.ID,
		"server":    job.ServerKind,
		"series_id": job.SeriesID,
	})
	ctx := log.WithContext(o.baseCtx)

	client, err := o.servers.Get(ref.Server)
	if err != nil {
		o.fail(ctx, job, ref, err.Error())
		return
	}

	snapshot, err := client.GetSeries(ctx, ref.ID)
	if err != nil {
		o.fail(ctx, job, ref, fmt.Sprintf("fetching series from %s: %v", ref.Server, err))
		return
	}

	match, err := o.matchService.Find(ctx, ref)
	if err != nil {
		o.fail(ctx, job, ref, fmt.Sprintf("looking up saved match: %v", err))
		return
	}

	primary, extras, failures := o.gatherCandidates(ctx, job, snapshot, match)
	if primary == nil {
		if match != nil && match.MatchType == models.MatchTypeManual {
			o.fail(ctx, job, ref, fmt.Sprintf("fetching manual match from %s failed", match.Provider))
			return
		}
		if len(failures) > 0 {
			o.fail(ctx, job, ref, "all providers failed: "+strings.Join(failures, "; "))
			return
		}
		o.fail(ctx, job, ref, "no match found")
		return
	}

	o.publish(job.ID, jobs.Event{Type: jobs.EventPostProcessingStarted})

	candidates := append([]metadata.Candidate{*primary}, extras...)
	merged := metadata.Merge(candidates, o.mergePolicy)

	seriesPatch := patch.BuildSeries(snapshot.Metadata, merged, snapshot.Locks, snapshot.ProviderSourced)
	if !seriesPatch.IsEmpty() {
		if err := client.UpdateSeries(ctx, ref.ID, seriesPatch); err != nil {
			o.fail(ctx, job, ref, fmt.Sprintf("updating series on %s: %v", ref.Server, err))
			return
		}
	}

	o.updateBooks(ctx, job, client, ref, primary)

	if o.sidecarEnabled && snapshot.FilesystemPath != "" {
		s := sidecar.SeriesSidecarFromRecord(merged, primary.Provider, primary.ProviderSeriesID)
		if err := sidecar.WriteSeriesSidecar(snapshot.FilesystemPath, s); err != nil {
			log.Err(err).Error("sidecar write error")
			o.publish(job.ID, jobs.Event{Type: jobs.EventProcessingError, Message: fmt.Sprintf("writing sidecar: %v", err)})
		}
	}

	if match == nil || match.MatchType != models.MatchTypeManual {
		if err := o.matchService.SaveAutomatic(ctx, ref, primary.Provider, primary.ProviderSeriesID); err != nil {
			o.fail(ctx, job, ref, fmt.Sprintf("saving match: %v", err))
			return
		}
	}

	o.finish(ctx, job, ref, models.JobStatusCompleted, "")
}

// gatherCandidates resolves the primary candidate and any supplemental ones
// used for collection aggregation. When a saved match exists its provider
// is authoritative; other providers are only consulted when a merge flag
// asks for aggregation. Without a saved match every configured provider is
// searched and the highest-priority match wins.
func (o *Orchestrator) gatherCandidates(ctx context.Context, job *models.MetadataJob, snapshot *mediaserver.SeriesSnapshot, match *models.SeriesMatch) (*metadata.Candidate, []metadata.Candidate, []string) {
	var primary *metadata.Candidate
	var extras []metadata.Candidate
	var failures []string

	if match != nil {
		o.publish(job.ID, jobs.Event{Type: jobs.EventProviderQueried, Provider: match.Provider})

		candidate, err := o.aggregator.FetchSeries(ctx, match.Provider, match.ProviderSeriesID)
		if err != nil {
			o.publish(job.ID, jobs.Event{Type: jobs.EventProviderError, Provider: match.Provider, Message: err.Error()})
			failures = append(failures, fmt.Sprintf("%s: %v", match.Provider, err))
			if match.MatchType == models.MatchTypeManual {
				// A manual match is never second-guessed by a search.
				return nil, nil, failures
			}
		} else {
			o.publish(job.ID, jobs.Event{Type: jobs.EventProviderCompleted, Provider: match.Provider})
			primary = candidate
		}
	}

	needSearch := primary == nil || o.aggregates()
	if needSearch {
		skip := ""
		if primary != nil {
			skip = primary.Provider
		}
		found, searchFailures := o.searchCandidates(ctx, job, snapshot, skip)
		failures = append(failures, searchFailures...)

		if primary == nil && len(found) > 0 {
			primary = &found[0]
			found = found[1:]
		}
		extras = append(extras, found...)
	}

	return primary, extras, failures
}

// aggregates reports whether any merge flag asks for cross-provider
// collection aggregation.
func (o *Orchestrator) aggregates() bool {
	p := o.mergePolicy
	return p.Genres || p.Tags || p.Authors || p.Links
}

func (o *Orchestrator) searchCandidates(ctx context.Context, job *models.MetadataJob, snapshot *mediaserver.SeriesSnapshot, skip string) ([]metadata.Candidate, []string) {
	query := snapshot.Metadata.Title
	if query == "" {
		return nil, nil
	}

	var found []metadata.Candidate
	var failures []string

	results := o.aggregator.Search(ctx, query)
	for _, result := range results {
		if result.Provider == skip {
			continue
		}

		o.publish(job.ID, jobs.Event{Type: jobs.EventProviderQueried, Provider: result.Provider})

		if result.Err != nil {
			o.publish(job.ID, jobs.Event{Type: jobs.EventProviderError, Provider: result.Provider, Message: result.Err.Error()})
			failures = append(failures, fmt.Sprintf("%s: %v", result.Provider, result.Err))
			continue
		}

		candidates := make([]namematch.Candidate[metadata.Candidate], 0, len(result.Candidates))
		for _, c := range result.Candidates {
			titles := append([]string{c.Title}, c.AlternateTitles...)
			candidates = append(candidates, namematch.Candidate[metadata.Candidate]{Titles: titles, Payload: c})
		}

		matched, ok := namematch.Match(o.matcher, query, candidates)
		if ok {
			found = append(found, matched)
			o.publish(job.ID, jobs.Event{Type: jobs.EventProviderCompleted, Provider: result.Provider})
		} else {
			o.publish(job.ID, jobs.Event{Type: jobs.EventProviderCompleted, Provider: result.Provider, Message: "no match"})
		}
	}

	return found, failures
}

// updateBooks applies per-book patches from the primary provider. Book
// level errors are reported on the event stream but never fail the job;
// series enrichment already succeeded at this point.
func (o *Orchestrator) updateBooks(ctx context.Context, job *models.MetadataJob, client mediaserver.Client, ref mediaserver.SeriesRef, primary *metadata.Candidate) {
	log := logger.FromContext(ctx)

	bookCandidates, err := o.aggregator.FetchBooks(ctx, primary.Provider, primary.ProviderSeriesID)
	if err != nil {
		log.Err(err).Error("fetch books error")
		o.publish(job.ID, jobs.Event{Type: jobs.EventProviderError, Provider: primary.Provider, Message: fmt.Sprintf("fetching books: %v", err)})
		return
	}
	if len(bookCandidates) == 0 {
		return
	}

	serverBooks, err := client.GetBooks(ctx, ref.ID)
	if err != nil {
		log.Err(err).Error("get server books error")
		o.publish(job.ID, jobs.Event{Type: jobs.EventProcessingError, Message: fmt.Sprintf("fetching books from %s: %v", ref.Server, err)})
		return
	}

	byNumber := make(map[string]metadata.BookCandidate, len(bookCandidates))
	for _, bc := range bookCandidates {
		byNumber[normalizeNumber(bc.Number)] = bc
	}

	total := len(serverBooks)
	for i, sb := range serverBooks {
		o.publish(job.ID, jobs.Event{
			Type:      jobs.EventProviderBookProgress,
			Provider:  primary.Provider,
			Total:     total,
			Completed: i,
		})

		bc, ok := byNumber[normalizeNumber(sb.Metadata.Number)]
		if !ok {
			continue
		}

		bookPatch := patch.BuildBook(sb.Metadata, bc.Book, sb.Locks, sb.ProviderSourced)
		if bookPatch.IsEmpty() {
			continue
		}

		if err := client.UpdateBook(ctx, sb.Ref.ID, bookPatch); err != nil {
			log.Err(err).Data(logger.Data{"book_id": sb.Ref.ID}).Error("update book error")
			o.publish(job.ID, jobs.Event{Type: jobs.EventProcessingError, Message: fmt.Sprintf("updating book %s: %v", sb.Ref.ID, err)})
		}
	}

	o.publish(job.ID, jobs.Event{
		Type:      jobs.EventProviderBookProgress,
		Provider:  primary.Provider,
		Total:     total,
		Completed: total,
	})
}

// normalizeNumber strips leading zeros and surrounding whitespace so "001"
// and "1" refer to the same book.
func normalizeNumber(n string) string {
	n = strings.TrimSpace(n)
	trimmed := strings.TrimLeft(n, "0")
	if trimmed == "" || strings.HasPrefix(trimmed, ".") {
		trimmed = "0" + trimmed
	}
	return trimmed
}

func (o *Orchestrator) fail(ctx context.Context, job *models.MetadataJob, ref mediaserver.SeriesRef, message string) {
	o.finish(ctx, job, ref, models.JobStatusFailed, message)
}

func (o *Orchestrator) finish(ctx context.Context, job *models.MetadataJob, ref mediaserver.SeriesRef, status, message string) {
	log := logger.FromContext(ctx)

	// Persist the terminal state even when the job failed because the base
	// context was cancelled during shutdown.
	persistCtx := ctx
	if persistCtx.Err() != nil {
		persistCtx = context.Background()
		if status == models.JobStatusFailed {
			message = "interrupted by shutdown"
		}
	}

	if err := o.jobService.FinishJob(persistCtx, job, status, message); err != nil {
		log.Err(err).Error("finish job error")
	}

	// The job is terminal once the row is persisted; release the series
	// claim now so a new trigger is not rejected while the terminal event
	// and the notification are still in flight.
	o.registry.Release(ref, job.ID)

	eventType := jobs.EventJobCompleted
	if status == models.JobStatusFailed {
		eventType = jobs.EventJobFailed
		log.Warn("job failed", logger.Data{"message": message})
	} else {
		log.Info("job completed")
	}
	o.publish(job.ID, jobs.Event{Type: eventType, Message: message})

	if err := o.notifier.NotifyJobFinished(persistCtx, job); err != nil {
		log.Err(err).Error("notify error")
	}
}

func (o *Orchestrator) publish(jobID string, ev jobs.Event) {
	o.broker.Publish(jobID, ev)
}
