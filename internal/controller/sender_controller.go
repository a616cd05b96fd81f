// internal/controller/sender_controller.go
package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/outreach/internal/model"
	"github.com/unclebandit/outreach/internal/repository"
)

// SenderController manages the sender accounts deliveries go out through.
type SenderController struct {
	Senders repository.SenderRepositoryInterface
}

func (c *SenderController) ListSenders(w http.ResponseWriter, r *http.Request) {
	senders, err := c.Senders.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": senders})
}

func (c *SenderController) GetSender(w http.ResponseWriter, r *http.Request) {
	s, err := c.Senders.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (c *SenderController) CreateSender(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID      string            `json:"id"`
		Channel string            `json:"channel"`
		Name    string            `json:"name"`
		State   model.SenderState `json:"state"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	s := &model.SenderAccount{ID: body.ID, Channel: body.Channel, Name: body.Name, State: body.State}
	if err := c.Senders.Create(r.Context(), s); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// UpdateSenderState records a session change reported by the channel, for
// example a logout or a carrier block.
func (c *SenderController) UpdateSenderState(w http.ResponseWriter, r *http.Request) {
	var body struct {
		State            model.SenderState `json:"state"`
		LastErrorCode    string            `json:"lastErrorCode"`
		LastErrorMessage string            `json:"lastErrorMessage"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	s, err := c.Senders.UpdateState(r.Context(), chi.URLParam(r, "id"), body.State, body.LastErrorCode, body.LastErrorMessage)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}
