package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
)

// MetadataJob is one tracked run of the identify/update pipeline for one
// series. A job row is written when a trigger is accepted and mutated only
// by the owning orchestrator run; once finished_at is set it is immutable.
type MetadataJob struct {
	bun.BaseModel `bun:"table:metadata_jobs,alias:mj"`

	ID         string     `bun:",pk,nullzero" json:"id"`
	ServerKind string     `bun:",nullzero" json:"server_kind"`
	SeriesID   string     `bun:",nullzero" json:"series_id"`
	Status     string     `bun:",nullzero" json:"status"`
	Message    *string    `json:"message,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Finished reports whether the job has reached a terminal status.
func (job *MetadataJob) Finished() bool {
	return job.FinishedAt != nil
}
