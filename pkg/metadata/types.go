package metadata

// Status is the publication status of a series as reported by a provider.
type Status string

const (
	StatusOngoing   Status = "ongoing"
	StatusEnded     Status = "ended"
	StatusHiatus    Status = "hiatus"
	StatusAbandoned Status = "abandoned"
)

// Author is a credited person with a role (writer, penciller, etc).
type Author struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// WebLink is a labeled external URL attached to a series.
type WebLink struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Record holds the bibliographic fields tosho manages for a series. The
// zero value of each field means "absent"; AgeRating and Score are pointers
// because 0 is a meaningful value for both.
type Record struct {
	Title           string    `json:"title,omitempty"`
	AlternateTitles []string  `json:"alternate_titles,omitempty"`
	Summary         string    `json:"summary,omitempty"`
	Status          Status    `json:"status,omitempty"`
	ReleaseDate     string    `json:"release_date,omitempty"` // YYYY-MM-DD
	AgeRating       *int      `json:"age_rating,omitempty"`
	Language        string    `json:"language,omitempty"`
	Score           *float64  `json:"score,omitempty"`
	Genres          []string  `json:"genres,omitempty"`
	Tags            []string  `json:"tags,omitempty"`
	Authors         []Author  `json:"authors,omitempty"`
	Links           []WebLink `json:"links,omitempty"`
	CoverURL        string    `json:"cover_url,omitempty"`
}

// Candidate is a Record produced by one provider for one series. Immutable
// once produced.
type Candidate struct {
	Record

	Provider         string `json:"provider"`
	ProviderSeriesID string `json:"provider_series_id"`
}

// Book holds the bibliographic fields tosho manages for a single book
// (volume/chapter) of a series.
type Book struct {
	Number      string `json:"number"`
	Title       string `json:"title,omitempty"`
	Summary     string `json:"summary,omitempty"`
	ReleaseDate string `json:"release_date,omitempty"`
	CoverURL    string `json:"cover_url,omitempty"`
}

// BookCandidate is a Book produced by one provider.
type BookCandidate struct {
	Book

	Provider       string `json:"provider"`
	ProviderBookID string `json:"provider_book_id"`
}
