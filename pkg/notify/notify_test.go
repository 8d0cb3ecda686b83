package notify

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshobooks/tosho/pkg/models"
)

func TestNewServiceNoop(t *testing.T) {
	svc := NewService("")
	require.NoError(t, svc.NotifyJobFinished(context.Background(), &models.MetadataJob{}))
	require.NoError(t, svc.TestNotification(context.Background()))
}

func TestNotifyJobFinished(t *testing.T) {
	var received jobFinishedPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Contains(t, r.Header.Get("Content-Type"), "application/json")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	msg := "no match found"
	job := &models.MetadataJob{
		ID:         "job-1",
		ServerKind: "komga",
		SeriesID:   "series-1",
		Status:     models.JobStatusFailed,
		Message:    &msg,
	}

	svc := NewService(srv.URL)
	require.NoError(t, svc.NotifyJobFinished(context.Background(), job))

	assert.Equal(t, "job_finished", received.Event)
	assert.Equal(t, "job-1", received.JobID)
	assert.Equal(t, "komga", received.ServerKind)
	assert.Equal(t, models.JobStatusFailed, received.Status)
	require.NotNil(t, received.Message)
	assert.Equal(t, "no match found", *received.Message)
}

func TestNotifyServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	svc := NewService(srv.URL)
	err := svc.NotifyJobFinished(context.Background(), &models.MetadataJob{ID: "job-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
}
