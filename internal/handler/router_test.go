package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach/internal/controller"
	"github.com/unclebandit/outreach/internal/db"
	"github.com/unclebandit/outreach/internal/handler"
	"github.com/unclebandit/outreach/internal/model"
	"github.com/unclebandit/outreach/internal/repository"
	"github.com/unclebandit/outreach/internal/service"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	d, err := db.Open(context.Background(), "sqlite", "file:"+filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	runs := &repository.RunRepository{DB: d}
	events := &repository.RunEventRepository{DB: d}
	queue := &repository.QueueRepository{DB: d}
	campaigns := &repository.CampaignRepository{DB: d}
	contacts := &repository.ContactRepository{DB: d}
	segments := &repository.SegmentRepository{DB: d}

	svc := &service.RunService{
		Runs:    runs,
		Events:  events,
		Queue:   queue,
		Planner: service.NewPlanner(runs, campaigns, contacts, segments, queue, service.PlannerConfig{}, nil),
	}
	router := handler.NewRouter(
		&controller.RunController{RunService: svc},
		&controller.CampaignController{Campaigns: campaigns, Contacts: contacts, Segments: segments},
		&controller.SenderController{Senders: &repository.SenderRepository{DB: d}},
		nil,
	)
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, srv *httptest.Server, method, path string, body any, out any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRouter_RunLifecycle(t *testing.T) {
	srv := newTestServer(t)

	var campaign model.Campaign
	status := do(t, srv, http.MethodPost, "/campaigns", map[string]any{
		"name":  "welcome",
		"steps": []map[string]any{{"id": "s1", "order": 1, "text": "Hi {name}"}, {"id": "s2", "order": 2, "text": ""}},
	}, &campaign)
	require.Equal(t, http.StatusCreated, status)

	for _, name := range []string{"Ana", "Bo"} {
		status = do(t, srv, http.MethodPost, "/contacts", map[string]any{"displayName": name, "phoneE164": "+1" + name}, nil)
		require.Equal(t, http.StatusCreated, status)
	}

	var run model.Run
	status = do(t, srv, http.MethodPost, "/runs", map[string]any{"campaignId": campaign.ID}, &run)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, model.RunStatusCreated, run.Status)

	status = do(t, srv, http.MethodPost, "/runs/"+run.ID+"/start", nil, &run)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.RunStatusRunning, run.Status)
	assert.Equal(t, model.RunTotals{Total: 2, Skipped: 2}, run.Totals)

	var conflict struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	status = do(t, srv, http.MethodPost, "/runs/"+run.ID+"/start", nil, &conflict)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "RUN_INVALID_STATE", conflict.Error)

	var queue struct {
		Data []model.QueueItem `json:"data"`
	}
	status = do(t, srv, http.MethodGet, "/queue?runId="+run.ID+"&limit=10", nil, &queue)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, queue.Data, 2)

	var item model.QueueItem
	status = do(t, srv, http.MethodGet, "/queue/"+queue.Data[0].ID, nil, &item)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, queue.Data[0].ID, item.ID)

	var plan service.PlanResult
	status = do(t, srv, http.MethodPost, "/runs/"+run.ID+"/plan", nil, &plan)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, plan.Duplicates)

	status = do(t, srv, http.MethodPost, "/runs/"+run.ID+"/pause", map[string]string{"reason": "lunch"}, &run)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "lunch", run.PausedReason)

	status = do(t, srv, http.MethodPost, "/runs/"+run.ID+"/resume", nil, &run)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.RunStatusRunning, run.Status)

	status = do(t, srv, http.MethodPost, "/runs/"+run.ID+"/stop", nil, &run)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.RunStatusStopped, run.Status)
	assert.Equal(t, model.PausedReasonManual, run.StopReason)

	var events struct {
		Data []model.RunEvent `json:"data"`
	}
	status = do(t, srv, http.MethodGet, "/runs/"+run.ID+"/events", nil, &events)
	require.Equal(t, http.StatusOK, status)
	require.NotEmpty(t, events.Data)
	assert.Equal(t, model.RunEventStopped, events.Data[0].Type)

	var list struct {
		Data []model.Run `json:"data"`
	}
	status = do(t, srv, http.MethodGet, "/runs?limit=5", nil, &list)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, list.Data, 1)
}

func TestRouter_Errors(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/runs/missing", nil, &body))
	assert.Equal(t, "RUN_NOT_FOUND", body["error"])

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/queue/missing", nil, &body))
	assert.Equal(t, "QUEUE_ITEM_NOT_FOUND", body["error"])

	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/campaigns/missing", nil, &body))
	assert.Equal(t, "CAMPAIGN_NOT_FOUND", body["error"])

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/runs", map[string]string{}, &body))
	assert.Equal(t, "VALIDATION_ERROR", body["error"])

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodGet, "/runs?limit=-1", nil, &body))

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/contacts", map[string]string{"displayName": "x"}, &body))
}

func TestRouter_SegmentTargetedCampaign(t *testing.T) {
	srv := newTestServer(t)

	var segment model.Segment
	status := do(t, srv, http.MethodPost, "/segments", map[string]any{
		"name":  "VIPs",
		"rules": []map[string]any{{"field": "tags", "op": "any", "value": []string{"vip"}}},
	}, &segment)
	require.Equal(t, http.StatusCreated, status)
	require.NotEmpty(t, segment.ID)

	var campaign model.Campaign
	status = do(t, srv, http.MethodPost, "/campaigns", map[string]any{
		"name":      "vip only",
		"segmentId": segment.ID,
		"steps":     []map[string]any{{"id": "s1", "order": 1, "text": "Hi {name}"}},
	}, &campaign)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, segment.ID, campaign.SegmentID)

	do(t, srv, http.MethodPost, "/contacts", map[string]any{"displayName": "Ana", "phoneE164": "+1", "tags": []string{"vip"}}, nil)
	do(t, srv, http.MethodPost, "/contacts", map[string]any{"displayName": "Bo", "phoneE164": "+2"}, nil)

	var run model.Run
	require.Equal(t, http.StatusCreated, do(t, srv, http.MethodPost, "/runs", map[string]any{"campaignId": campaign.ID}, &run))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/runs/"+run.ID+"/start", nil, &run))
	assert.Equal(t, 1, run.Totals.Total)

	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/campaigns/"+campaign.ID+"/archive", nil, &campaign))
	assert.True(t, campaign.IsArchived)

	var list struct {
		Data []model.Campaign `json:"data"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/campaigns", nil, &list))
	assert.Empty(t, list.Data)
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/campaigns?archived=true", nil, &list))
	require.Len(t, list.Data, 1)

	var segments struct {
		Data []model.Segment `json:"data"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodPost, "/segments/"+segment.ID+"/archive", nil, &segment))
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/segments?archived=1", nil, &segments))
	require.Len(t, segments.Data, 1)
	assert.True(t, segments.Data[0].IsArchived)

	var body map[string]string
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/segments/missing", nil, &body))
	assert.Equal(t, "SEGMENT_NOT_FOUND", body["error"])
}

func TestRouter_SenderAccounts(t *testing.T) {
	srv := newTestServer(t)

	var s model.SenderAccount
	status := do(t, srv, http.MethodPost, "/senders", map[string]any{"id": "wa-1", "name": "Support"}, &s)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, model.SenderStateNeedsLogin, s.State)

	var body map[string]string
	assert.Equal(t, http.StatusConflict, do(t, srv, http.MethodPost, "/senders", map[string]any{"id": "wa-1", "name": "Again"}, &body))
	assert.Equal(t, "SENDER_ALREADY_EXISTS", body["error"])

	status = do(t, srv, http.MethodPost, "/senders/wa-1/state", map[string]any{
		"state": "blocked", "lastErrorCode": "spam_report",
	}, &s)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, model.SenderStateBlocked, s.State)
	assert.Equal(t, "spam_report", s.LastErrorCode)

	assert.Equal(t, http.StatusBadRequest, do(t, srv, http.MethodPost, "/senders/wa-1/state", map[string]any{"state": "asleep"}, &body))
	assert.Equal(t, http.StatusNotFound, do(t, srv, http.MethodGet, "/senders/missing", nil, &body))
	assert.Equal(t, "SENDER_NOT_FOUND", body["error"])

	var list struct {
		Data []model.SenderAccount `json:"data"`
	}
	require.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/senders", nil, &list))
	require.Len(t, list.Data, 1)
}

func TestRouter_Healthz(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	assert.Equal(t, http.StatusOK, do(t, srv, http.MethodGet, "/healthz", nil, &body))
	assert.Equal(t, "ok", body["status"])
}
