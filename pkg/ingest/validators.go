package ingest

type ChangeEventPayload struct {
	SeriesID  string `json:"series_id" validate:"required"`
	Kind      string `json:"kind" validate:"omitempty,oneof=series_added series_changed book_added"`
	LibraryID string `json:"library_id"`
}
