// internal/controller/run_controller.go
package controller

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/outreach/internal/model"
	"github.com/unclebandit/outreach/internal/repository"
	"github.com/unclebandit/outreach/internal/service"
)

type RunController struct {
	RunService *service.RunService
}

func (c *RunController) CreateRun(w http.ResponseWriter, r *http.Request) {
	var body service.CreateRunInput
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	run, err := c.RunService.CreateRun(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (c *RunController) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	runs, err := c.RunService.ListRuns(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": runs})
}

func (c *RunController) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := c.RunService.GetRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (c *RunController) ListEvents(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	events, err := c.RunService.ListEvents(r.Context(), chi.URLParam(r, "id"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": events})
}

func (c *RunController) StartRun(w http.ResponseWriter, r *http.Request) {
	c.respondRun(w, r, c.RunService.StartRun)
}

func (c *RunController) ResumeRun(w http.ResponseWriter, r *http.Request) {
	c.respondRun(w, r, c.RunService.ResumeRun)
}

func (c *RunController) PauseRun(w http.ResponseWriter, r *http.Request) {
	c.respondReason(w, r, c.RunService.PauseRun)
}

func (c *RunController) StopRun(w http.ResponseWriter, r *http.Request) {
	c.respondReason(w, r, c.RunService.StopRun)
}

func (c *RunController) PlanRun(w http.ResponseWriter, r *http.Request) {
	res, err := c.RunService.PlanRun(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (c *RunController) ListQueue(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	q := r.URL.Query()
	items, err := c.RunService.ListQueue(r.Context(), repository.QueueFilter{
		RunID:  q.Get("runId"),
		Status: model.QueueItemStatus(q.Get("status")),
		Limit:  limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": items})
}

func (c *RunController) GetQueueItem(w http.ResponseWriter, r *http.Request) {
	item, err := c.RunService.GetQueueItem(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (c *RunController) respondRun(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id string) (*model.Run, error)) {
	run, err := op(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (c *RunController) respondReason(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id, reason string) (*model.Run, error)) {
	var body struct {
		Reason string `json:"reason"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	run, err := op(r.Context(), chi.URLParam(r, "id"), body.Reason)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}
