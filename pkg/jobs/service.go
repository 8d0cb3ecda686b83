package jobs

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/toshobooks/tosho/pkg/errcodes"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/models"
	"github.com/uptrace/bun"
)

type ListJobsOptions struct {
	Limit    *int
	Offset   *int
	Statuses []string
}

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// NewJobID returns a fresh job id. Generated by the caller so the job can
// be claimed in the series registry before the row is written.
func NewJobID() string {
	return uuid.NewString()
}

// CreateJob writes the job row for an accepted trigger. The job starts in
// RUNNING status; an accepted trigger is immediately running.
func (svc *Service) CreateJob(ctx context.Context, id string, ref mediaserver.SeriesRef) (*models.MetadataJob, error) {
	job := &models.MetadataJob{
		ID:         id,
		ServerKind: string(ref.Server),
		SeriesID:   ref.ID,
		Status:     models.JobStatusRunning,
		StartedAt:  time.Now(),
	}

	_, err := svc.db.
		NewInsert().
		Model(job).
		Returning("*").
		Exec(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return job, nil
}

func (svc *Service) RetrieveJob(ctx context.Context, id string) (*models.MetadataJob, error) {
	job := &models.MetadataJob{}

	err := svc.db.
		NewSelect().
		Model(job).
		Where("mj.id = ?", id).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errcodes.NotFound("Job")
		}
		return nil, errors.WithStack(err)
	}

	return job, nil
}

func (svc *Service) ListJobs(ctx context.Context, opts ListJobsOptions) ([]*models.MetadataJob, error) {
	jobs := []*models.MetadataJob{}

	q := svc.db.
		NewSelect().
		Model(&jobs).
		Order("mj.started_at DESC")

	if opts.Limit != nil {
		q = q.Limit(*opts.Limit)
	}
	if opts.Offset != nil {
		q = q.Offset(*opts.Offset)
	}
	if opts.Statuses != nil {
		q = q.Where("mj.status IN (?)", bun.In(opts.Statuses))
	}

	err := q.Scan(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	return jobs, nil
}

// FinishJob persists the terminal transition exactly once. A job that has
// already finished is left untouched.
func (svc *Service) FinishJob(ctx context.Context, job *models.MetadataJob, status string, message string) error {
	now := time.Now()
	job.Status = status
	job.FinishedAt = &now
	if message != "" {
		job.Message = &message
	}

	_, err := svc.db.
		NewUpdate().
		Model(job).
		Column("status", "message", "finished_at").
		WherePK().
		Where("mj.finished_at IS NULL").
		Exec(ctx)
	return errors.WithStack(err)
}

// ReconcileInterrupted marks jobs left RUNNING by a previous process as
// FAILED. Called once at startup, before any new job can start.
func (svc *Service) ReconcileInterrupted(ctx context.Context) (int, error) {
	now := time.Now()

	res, err := svc.db.
		NewUpdate().
		Model((*models.MetadataJob)(nil)).
		Set("status = ?", models.JobStatusFailed).
		Set("message = ?", "interrupted by shutdown").
		Set("finished_at = ?", now).
		Where("mj.status = ?", models.JobStatusRunning).
		Exec(ctx)
	if err != nil {
		return 0, errors.WithStack(err)
	}

	updated, _ := res.RowsAffected()
	return int(updated), nil
}
