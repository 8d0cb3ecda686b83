package jobs

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/toshobooks/tosho/pkg/models"
)

func newEventsContext(t *testing.T, jobID string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("id")
	c.SetParamValues(jobID)
	return c, rec
}

func decodeEvents(t *testing.T, body string) []Event {
	t.Helper()

	var events []Event
	for _, line := range strings.Split(body, "\n") {
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		ev := Event{}
		require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &ev))
		events = append(events, ev)
	}
	return events
}

func TestEventsUnknownJob(t *testing.T) {
	db := newTestDB(t)
	h := &handler{jobService: NewService(db), broker: NewBroker()}

	c, rec := newEventsContext(t, "missing")
	require.NoError(t, h.events(c))

	events := decodeEvents(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, EventJobNotFound, events[0].Type)
}

func TestEventsFinishedJobWithoutStream(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db)

	// A job finished before the broker held a stream, e.g. before a
	// process restart. Late subscribers still get a terminal event built
	// from the job row.
	job, err := svc.CreateJob(ctx, NewJobID(), testRef())
	require.NoError(t, err)
	require.NoError(t, svc.FinishJob(ctx, job, models.JobStatusFailed, "no match found"))

	h := &handler{jobService: svc, broker: NewBroker()}
	c, rec := newEventsContext(t, job.ID)
	require.NoError(t, h.events(c))

	events := decodeEvents(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, EventJobFailed, events[0].Type)
	assert.Equal(t, "no match found", events[0].Message)
}

func TestEventsRunningJobWithoutStream(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	svc := NewService(db)

	job, err := svc.CreateJob(ctx, NewJobID(), testRef())
	require.NoError(t, err)

	// A RUNNING row with no stream means the process restarted mid-job;
	// until reconciliation marks it failed there is nothing to replay.
	h := &handler{jobService: svc, broker: NewBroker()}
	c, rec := newEventsContext(t, job.ID)
	require.NoError(t, h.events(c))

	events := decodeEvents(t, rec.Body.String())
	require.Len(t, events, 1)
	assert.Equal(t, EventJobNotFound, events[0].Type)
}
