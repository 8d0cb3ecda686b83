package notify

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/toshobooks/tosho/pkg/models"
	"github.com/toshobooks/tosho/pkg/version"
)

const requestTimeout = 10 * time.Second

// Service is the notification surface exposed to the orchestrator. Calls
// are fire-and-forget from the caller's perspective; errors are returned so
// the caller can log them, but a failed notification never fails a job.
type Service interface {
	NotifyJobFinished(ctx context.Context, job *models.MetadataJob) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by a webhook when a URL
// is configured. With no URL, a noop implementation is returned.
func NewService(webhookURL string) Service {
	url := strings.TrimSpace(webhookURL)
	if url == "" {
		return noopService{}
	}

	return &webhookService{
		url:    url,
		client: &http.Client{Timeout: requestTimeout},
	}
}

type webhookService struct {
	url    string
	client *http.Client
}

type jobFinishedPayload struct {
	Event      string  `json:"event"`
	JobID      string  `json:"job_id"`
	ServerKind string  `json:"server_kind"`
	SeriesID   string  `json:"series_id"`
	Status     string  `json:"status"`
	Message    *string `json:"message,omitempty"`
}

func (s *webhookService) NotifyJobFinished(ctx context.Context, job *models.MetadataJob) error {
	return s.send(ctx, jobFinishedPayload{
		Event:      "job_finished",
		JobID:      job.ID,
		ServerKind: job.ServerKind,
		SeriesID:   job.SeriesID,
		Status:     job.Status,
		Message:    job.Message,
	})
}

func (s *webhookService) TestNotification(ctx context.Context) error {
	return s.send(ctx, map[string]string{"event": "test"})
}

func (s *webhookService) send(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.WithStack(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(data))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("User-Agent", "tosho/"+version.Version)
	req.Header.Set("Content-Type", "application/json; charset=utf-8")

	resp, err := s.client.Do(req)
	if err != nil {
		return errors.WithStack(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return errors.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobFinished(context.Context, *models.MetadataJob) error { return nil }
func (noopService) TestNotification(context.Context) error                       { return nil }
