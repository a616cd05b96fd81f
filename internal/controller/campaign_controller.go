// internal/controller/campaign_controller.go
package controller

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	appErrors "github.com/unclebandit/outreach/internal/errors"
	"github.com/unclebandit/outreach/internal/model"
	"github.com/unclebandit/outreach/internal/repository"
)

// CampaignController exposes the local campaign, segment and contact stores
// the planner reads from.
type CampaignController struct {
	Campaigns repository.CampaignRepositoryInterface
	Contacts  repository.ContactRepositoryInterface
	Segments  repository.SegmentRepositoryInterface
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID        string       `json:"id"`
		Name      string       `json:"name"`
		Channel   string       `json:"channel"`
		Mode      string       `json:"mode"`
		SegmentID string       `json:"segmentId"`
		Steps     []model.Step `json:"steps"`
	}
	if err := decodeBody(r, &body); err != nil {
		writeError(w, err)
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		writeError(w, appErrors.NewValidation("name", "required"))
		return
	}

	campaign := &model.Campaign{
		ID:        body.ID,
		Name:      body.Name,
		Channel:   body.Channel,
		Mode:      model.ParseRunMode(body.Mode),
		SegmentID: body.SegmentID,
		Steps:     body.Steps,
	}
	if err := c.Campaigns.Create(r.Context(), campaign); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, campaign)
}

func (c *CampaignController) GetCampaign(w http.ResponseWriter, r *http.Request) {
	campaign, err := c.Campaigns.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

// ListCampaigns returns active campaigns, or archived ones with
// ?archived=true.
func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		writeError(w, err)
		return
	}
	campaigns, err := c.Campaigns.List(r.Context(), queryArchived(r), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": campaigns})
}

func (c *CampaignController) ArchiveCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.Campaigns.Archive(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	campaign, err := c.Campaigns.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, campaign)
}

func (c *CampaignController) CreateSegment(w http.ResponseWriter, r *http.Request) {
	var segment model.Segment
	if err := decodeBody(r, &segment); err != nil {
		writeError(w, err)
		return
	}
	if err := c.Segments.Create(r.Context(), &segment); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, segment)
}

func (c *CampaignController) ListSegments(w http.ResponseWriter, r *http.Request) {
	segments, err := c.Segments.List(r.Context(), queryArchived(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": segments})
}

func (c *CampaignController) GetSegment(w http.ResponseWriter, r *http.Request) {
	segment, err := c.Segments.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, segment)
}

func (c *CampaignController) ArchiveSegment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := c.Segments.Archive(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	segment, err := c.Segments.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, segment)
}

func (c *CampaignController) CreateContact(w http.ResponseWriter, r *http.Request) {
	var contact model.Contact
	if err := decodeBody(r, &contact); err != nil {
		writeError(w, err)
		return
	}
	if err := c.Contacts.Create(r.Context(), &contact); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, contact)
}
