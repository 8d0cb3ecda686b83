package sidecar

// CurrentVersion is the current version of the sidecar file format.
// Increment this when making breaking changes to the schema.
const CurrentVersion = 1

// SeriesSidecar is the on-disk metadata snapshot for a series. It is stored
// as series.metadata.json inside the series directory so other tools (and
// a rescan after a library move) can pick the enriched metadata back up.
type SeriesSidecar struct {
	Version         int              `json:"version"`
	Title           string           `json:"title,omitempty"`
	AlternateTitles []string         `json:"alternate_titles,omitempty"`
	Summary         string           `json:"summary,omitempty"`
	Status          string           `json:"status,omitempty"`
	ReleaseDate     string           `json:"release_date,omitempty"`
	AgeRating       *int             `json:"age_rating,omitempty"`
	Language        string           `json:"language,omitempty"`
	Score           *float64         `json:"score,omitempty"`
	Genres          []string         `json:"genres,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	Authors         []AuthorMetadata `json:"authors,omitempty"`
	Links           []LinkMetadata   `json:"links,omitempty"`
	Provider        string           `json:"provider,omitempty"`
	ProviderSeries  string           `json:"provider_series_id,omitempty"`
}

// AuthorMetadata represents an author credit in the sidecar file.
type AuthorMetadata struct {
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// LinkMetadata represents an external web link in the sidecar file.
type LinkMetadata struct {
	Label string `json:"label,omitempty"`
	URL   string `json:"url"`
}
