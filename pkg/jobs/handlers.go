package jobs

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/segmentio/encoding/json"
	"github.com/toshobooks/tosho/pkg/models"
)

type handler struct {
	jobService *Service
	broker     *Broker
}

func (h *handler) list(c echo.Context) error {
	ctx := c.Request().Context()

	params := ListJobsQuery{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	jobs, err := h.jobService.ListJobs(ctx, ListJobsOptions{
		Limit:    &params.Limit,
		Offset:   &params.Offset,
		Statuses: params.Status,
	})
	if err != nil {
		return errors.WithStack(err)
	}

	response := map[string]any{
		"jobs": jobs,
	}

	return errors.WithStack(c.JSON(http.StatusOK, response))
}

func (h *handler) retrieve(c echo.Context) error {
	ctx := c.Request().Context()

	job, err := h.jobService.RetrieveJob(ctx, c.Param("id"))
	if err != nil {
		return errors.WithStack(err)
	}

	return errors.WithStack(c.JSON(http.StatusOK, job))
}

// events streams a job's event history and live events as server-sent
// events. Subscribers attaching after the job finished still receive the
// full replayed stream ending in the terminal event. When the stream has
// been evicted or the process restarted, the terminal event is synthesized
// from the persisted job row so late subscribers never hang.
func (h *handler) events(c echo.Context) error {
	res := c.Response()
	res.Header().Set(echo.HeaderContentType, "text/event-stream")
	res.Header().Set(echo.HeaderCacheControl, "no-cache")
	res.Header().Set(echo.HeaderConnection, "keep-alive")
	res.WriteHeader(http.StatusOK)

	ch, cancel, ok := h.broker.Subscribe(c.Param("id"))
	if !ok {
		return errors.WithStack(writeEvent(res, h.terminalFromStore(c)))
	}
	defer cancel()

	ctx := c.Request().Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, open := <-ch:
			if !open {
				return nil
			}
			if err := writeEvent(res, ev); err != nil {
				return errors.WithStack(err)
			}
		}
	}
}

// terminalFromStore rebuilds a terminal event from the job row for streams
// the broker no longer holds.
func (h *handler) terminalFromStore(c echo.Context) Event {
	job, err := h.jobService.RetrieveJob(c.Request().Context(), c.Param("id"))
	if err != nil || !job.Finished() {
		return Event{Type: EventJobNotFound}
	}

	ev := Event{Type: EventJobCompleted}
	if job.Status == models.JobStatusFailed {
		ev.Type = EventJobFailed
	}
	if job.Message != nil {
		ev.Message = *job.Message
	}
	return ev
}

func writeEvent(res *echo.Response, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return errors.WithStack(err)
	}
	if _, err := res.Write([]byte("data: ")); err != nil {
		return errors.WithStack(err)
	}
	if _, err := res.Write(data); err != nil {
		return errors.WithStack(err)
	}
	if _, err := res.Write([]byte("\n\n")); err != nil {
		return errors.WithStack(err)
	}
	res.Flush()
	return nil
}
