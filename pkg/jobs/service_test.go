package jobs

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshobooks/tosho/pkg/errcodes"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/migrations"
	"github.com/toshobooks/tosho/pkg/models"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	require.NoError(t, err)

	db := bun.NewDB(sqldb, sqlitedialect.New())

	_, err = migrations.BringUpToDate(context.Background(), db)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

func testRef() mediaserver.SeriesRef {
	return mediaserver.SeriesRef{Server: mediaserver.KindKomga, ID: "series-1"}
}

func TestCreateJob(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))

	job, err := svc.CreateJob(ctx, NewJobID(), testRef())
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, models.JobStatusRunning, job.Status)
	assert.Equal(t, "komga", job.ServerKind)
	assert.Equal(t, "series-1", job.SeriesID)
	assert.Nil(t, job.FinishedAt)
	assert.False(t, job.Finished())
}

func TestRetrieveJob(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))

	created, err := svc.CreateJob(ctx, NewJobID(), testRef())
	require.NoError(t, err)

	job, err := svc.RetrieveJob(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, job.ID)
}

func TestRetrieveJobNotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))

	_, err := svc.RetrieveJob(ctx, "does-not-exist")
	assert.ErrorIs(t, err, errcodes.NotFound("Job"))
}

func TestListJobs(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))

	first, err := svc.CreateJob(ctx, NewJobID(), testRef())
	require.NoError(t, err)
	require.NoError(t, svc.FinishJob(ctx, first, models.JobStatusCompleted, ""))

	second, err := svc.CreateJob(ctx, NewJobID(), mediaserver.SeriesRef{Server: mediaserver.KindKavita, ID: "series-2"})
	require.NoError(t, err)

	all, err := svc.ListJobs(ctx, ListJobsOptions{})
	require.NoError(t, err)
	require.Len(t, all, 2)

	running, err := svc.ListJobs(ctx, ListJobsOptions{Statuses: []string{models.JobStatusRunning}})
	require.NoError(t, err)
	require.Len(t, running, 1)
	assert.Equal(t, second.ID, running[0].ID)

	limit := 1
	limited, err := svc.ListJobs(ctx, ListJobsOptions{Limit: &limit})
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}

func TestFinishJob(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))

	job, err := svc.CreateJob(ctx, NewJobID(), testRef())
	require.NoError(t, err)

	err = svc.FinishJob(ctx, job, models.JobStatusFailed, "no match found")
	require.NoError(t, err)

	job, err = svc.RetrieveJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Message)
	assert.Equal(t, "no match found", *job.Message)
	assert.True(t, job.Finished())
}

func TestFinishJobOnlyOnce(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))

	job, err := svc.CreateJob(ctx, NewJobID(), testRef())
	require.NoError(t, err)

	require.NoError(t, svc.FinishJob(ctx, job, models.JobStatusCompleted, ""))
	finishedAt := job.FinishedAt

	// A second terminal transition leaves the persisted row untouched.
	stale, err := svc.RetrieveJob(ctx, job.ID)
	require.NoError(t, err)
	require.NoError(t, svc.FinishJob(ctx, stale, models.JobStatusFailed, "late failure"))

	job, err = svc.RetrieveJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
	assert.Nil(t, job.Message)
	require.NotNil(t, job.FinishedAt)
	assert.WithinDuration(t, *finishedAt, *job.FinishedAt, time.Second)
}

func TestReconcileInterrupted(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newTestDB(t))

	interrupted, err := svc.CreateJob(ctx, NewJobID(), testRef())
	require.NoError(t, err)

	done, err := svc.CreateJob(ctx, NewJobID(), mediaserver.SeriesRef{Server: mediaserver.KindKomga, ID: "series-2"})
	require.NoError(t, err)
	require.NoError(t, svc.FinishJob(ctx, done, models.JobStatusCompleted, ""))

	count, err := svc.ReconcileInterrupted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	job, err := svc.RetrieveJob(ctx, interrupted.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusFailed, job.Status)
	require.NotNil(t, job.Message)
	assert.Equal(t, "interrupted by shutdown", *job.Message)

	job, err = svc.RetrieveJob(ctx, done.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}
