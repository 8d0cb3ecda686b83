package migrations

import (
	"context"

	"github.com/pkg/errors"
	"github.com/uptrace/bun"
)

func init() {
	up := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`
			CREATE TABLE metadata_jobs (
				id TEXT PRIMARY KEY,
				server_kind TEXT NOT NULL,
				series_id TEXT NOT NULL,
				status TEXT NOT NULL,
				message TEXT,
				started_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				finished_at TIMESTAMPTZ
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_metadata_jobs_series ON metadata_jobs (server_kind, series_id)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_metadata_jobs_status_started_at ON metadata_jobs (status, started_at)`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`
			CREATE TABLE series_matches (
				created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
				server_kind TEXT NOT NULL,
				series_id TEXT NOT NULL,
				provider TEXT NOT NULL,
				provider_series_id TEXT NOT NULL,
				match_type TEXT NOT NULL,
				PRIMARY KEY (server_kind, series_id)
			)
`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`CREATE INDEX ix_series_matches_provider ON series_matches (provider, provider_series_id)`)
		return errors.WithStack(err)
	}

	down := func(_ context.Context, db *bun.DB) error {
		_, err := db.Exec(`DROP TABLE IF EXISTS series_matches`)
		if err != nil {
			return errors.WithStack(err)
		}
		_, err = db.Exec(`DROP TABLE IF EXISTS metadata_jobs`)
		return errors.WithStack(err)
	}

	Migrations.MustRegister(up, down)
}
