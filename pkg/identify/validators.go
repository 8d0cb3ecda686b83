package identify

type IdentifyPayload struct {
	Server           string `json:"server" validate:"required,oneof=komga kavita"`
	SeriesID         string `json:"series_id" validate:"required"`
	Provider         string `json:"provider" validate:"omitempty"`
	ProviderSeriesID string `json:"provider_series_id" validate:"required_with=Provider"`
}

type SearchPayload struct {
	Server   string `json:"server" validate:"omitempty,oneof=komga kavita"`
	SeriesID string `json:"series_id" validate:"required_without=Title"`
	Title    string `json:"title" validate:"required_without=SeriesID"`
}
