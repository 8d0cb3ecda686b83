package models

import (
	"time"

	"github.com/uptrace/bun"
)

const (
	MatchTypeAutomatic = "automatic"
	MatchTypeManual    = "manual"
)

// SeriesMatch binds a media-server series to a provider series. Manual
// matches are never overwritten by automatic re-matching.
type SeriesMatch struct {
	bun.BaseModel `bun:"table:series_matches,alias:sm"`

	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	ServerKind       string    `bun:",pk,nullzero" json:"server_kind"`
	SeriesID         string    `bun:",pk,nullzero" json:"series_id"`
	Provider         string    `bun:",nullzero" json:"provider"`
	ProviderSeriesID string    `bun:",nullzero" json:"provider_series_id"`
	MatchType        string    `bun:",nullzero" json:"match_type"`
}
