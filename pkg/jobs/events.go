package jobs

const (
	EventProviderQueried       = "provider_queried"
	EventProviderBookProgress  = "provider_book_progress"
	EventProviderError         = "provider_error"
	EventProviderCompleted     = "provider_completed"
	EventPostProcessingStarted = "post_processing_started"
	EventProcessingError       = "processing_error"
	EventJobCompleted          = "job_completed"
	EventJobFailed             = "job_failed"
	EventJobNotFound           = "job_not_found"
)

// Event is one ephemeral, ordered notification on a job's event stream.
// Events are not persisted beyond the job's lifetime except as the terminal
// status/message on the job row.
type Event struct {
	Type      string `json:"type"`
	Provider  string `json:"provider,omitempty"`
	Message   string `json:"message,omitempty"`
	Total     int    `json:"total,omitempty"`
	Completed int    `json:"completed,omitempty"`
}

// Terminal reports whether the event ends a subscriber's stream.
func (ev Event) Terminal() bool {
	switch ev.Type {
	case EventJobCompleted, EventJobFailed, EventJobNotFound:
		return true
	}
	return false
}
