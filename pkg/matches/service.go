package matches

import (
	"context"
	"database/sql"
	"time"

	"github.com/pkg/errors"
	"github.com/toshobooks/tosho/pkg/errcodes"
	"github.com/toshobooks/tosho/pkg/mediaserver"
	"github.com/toshobooks/tosho/pkg/models"
	"github.com/uptrace/bun"
)

type Service struct {
	db *bun.DB
}

func NewService(db *bun.DB) *Service {
	return &Service{db}
}

// Find returns the stored provider binding for a series, or nil when the
// series has never been matched.
func (svc *Service) Find(ctx context.Context, ref mediaserver.SeriesRef) (*models.SeriesMatch, error) {
	match := &models.SeriesMatch{}

	err := svc.db.
		NewSelect().
		Model(match).
		Where("sm.server_kind = ?", string(ref.Server)).
		Where("sm.series_id = ?", ref.ID).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.WithStack(err)
	}

	return match, nil
}

// Retrieve is Find for the HTTP surface: an unmatched series is a 404.
func (svc *Service) Retrieve(ctx context.Context, ref mediaserver.SeriesRef) (*models.SeriesMatch, error) {
	match, err := svc.Find(ctx, ref)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, errcodes.NotFound("Series match")
	}
	return match, nil
}

// SaveManual upserts a MANUAL match, replacing any prior binding.
func (svc *Service) SaveManual(ctx context.Context, ref mediaserver.SeriesRef, provider, providerSeriesID string) error {
	return svc.save(ctx, ref, provider, providerSeriesID, models.MatchTypeManual, true)
}

// SaveAutomatic upserts an AUTOMATIC match. An existing MANUAL match is
// never overwritten.
func (svc *Service) SaveAutomatic(ctx context.Context, ref mediaserver.SeriesRef, provider, providerSeriesID string) error {
	return svc.save(ctx, ref, provider, providerSeriesID, models.MatchTypeAutomatic, false)
}

func (svc *Service) save(ctx context.Context, ref mediaserver.SeriesRef, provider, providerSeriesID, matchType string, overwriteManual bool) error {
	now := time.Now()
	match := &models.SeriesMatch{
		CreatedAt:        now,
		UpdatedAt:        now,
		ServerKind:       string(ref.Server),
		SeriesID:         ref.ID,
		Provider:         provider,
		ProviderSeriesID: providerSeriesID,
		MatchType:        matchType,
	}

	q := svc.db.
		NewInsert().
		Model(match).
		On("CONFLICT (server_kind, series_id) DO UPDATE").
		Set("provider = EXCLUDED.provider").
		Set("provider_series_id = EXCLUDED.provider_series_id").
		Set("match_type = EXCLUDED.match_type").
		Set("updated_at = EXCLUDED.updated_at")

	if !overwriteManual {
		q = q.Where("sm.match_type != ?", models.MatchTypeManual)
	}

	_, err := q.Exec(ctx)
	return errors.WithStack(err)
}

// Delete unlinks a series from its provider binding.
func (svc *Service) Delete(ctx context.Context, ref mediaserver.SeriesRef) error {
	res, err := svc.db.
		NewDelete().
		Model((*models.SeriesMatch)(nil)).
		Where("sm.server_kind = ?", string(ref.Server)).
		Where("sm.series_id = ?", ref.ID).
		Exec(ctx)
	if err != nil {
		return errors.WithStack(err)
	}

	deleted, _ := res.RowsAffected()
	if deleted == 0 {
		return errcodes.NotFound("Series match")
	}
	return nil
}
