package service

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach/internal/errors"
	"github.com/unclebandit/outreach/internal/model"
	"github.com/unclebandit/outreach/internal/repository"
)

const (
	DefaultSenderID = "default"

	// LastErrorAllItemsFailed is recorded on a run whose every item failed.
	LastErrorAllItemsFailed = "all_items_failed"
)

// RunPlanner is the planning step invoked when a run starts or resumes.
type RunPlanner interface {
	Plan(ctx context.Context, runID string) (PlanResult, error)
}

type CreateRunInput struct {
	CampaignID string `json:"campaignId"`
	SenderID   string `json:"senderId"`
	Mode       string `json:"mode"`
}

// RunService owns every run status change. A change is written only if the
// run still has the status it was read with.
type RunService struct {
	Runs    repository.RunRepositoryInterface
	Events  repository.RunEventRepositoryInterface
	Queue   repository.QueueRepositoryInterface
	Planner RunPlanner
	Logger  *zap.Logger
	Now     func() time.Time
}

func (s *RunService) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

func (s *RunService) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// CreateRun stores a new run in created status.
func (s *RunService) CreateRun(ctx context.Context, in CreateRunInput) (*model.Run, error) {
	campaignID := strings.TrimSpace(in.CampaignID)
	if campaignID == "" {
		return nil, appErrors.NewValidation("campaignId", "required")
	}
	senderID := strings.TrimSpace(in.SenderID)
	if senderID == "" {
		senderID = DefaultSenderID
	}

	run := &model.Run{
		CampaignID: campaignID,
		SenderID:   senderID,
		Mode:       model.ParseRunMode(strings.TrimSpace(in.Mode)),
		Status:     model.RunStatusCreated,
		CreatedAt:  s.now(),
	}
	if err := s.Runs.Create(ctx, run); err != nil {
		return nil, err
	}
	s.appendEvent(ctx, run.ID, model.RunEventCreated, "", map[string]any{
		"campaignId": run.CampaignID,
		"senderId":   run.SenderID,
		"mode":       run.Mode,
	})
	return run, nil
}

// StartRun moves a created or paused run to running and plans its queue.
// A planning failure pauses the run again with reason planning_error; the
// returned run reflects that and no error is returned.
func (s *RunService) StartRun(ctx context.Context, id string) (*model.Run, error) {
	run, err := s.Runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	empty := ""
	run, err = s.transition(ctx, run, "start", model.RunUpdate{
		Status:       model.RunStatusRunning,
		PausedReason: &empty,
		LastError:    &empty,
	})
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, run.ID, model.RunEventStarted, "", nil)
	return s.plan(ctx, run)
}

// ResumeRun restarts a paused run. Planning runs again; pairs queued before
// the pause are not duplicated.
func (s *RunService) ResumeRun(ctx context.Context, id string) (*model.Run, error) {
	run, err := s.Runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if run.Status != model.RunStatusPaused {
		return nil, appErrors.NewInvalidRunState(run.ID, string(run.Status), "resume")
	}
	empty := ""
	run, err = s.transition(ctx, run, "resume", model.RunUpdate{
		Status:       model.RunStatusRunning,
		PausedReason: &empty,
		LastError:    &empty,
	})
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, run.ID, model.RunEventResumed, "", nil)
	return s.plan(ctx, run)
}

func (s *RunService) PauseRun(ctx context.Context, id, reason string) (*model.Run, error) {
	run, err := s.Runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reason = reasonOrManual(reason)
	run, err = s.transition(ctx, run, "pause", model.RunUpdate{
		Status:       model.RunStatusPaused,
		PausedReason: &reason,
	})
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, run.ID, model.RunEventPaused, "", map[string]any{"reason": reason})
	return s.withTotals(ctx, run)
}

func (s *RunService) StopRun(ctx context.Context, id, reason string) (*model.Run, error) {
	run, err := s.Runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	reason = reasonOrManual(reason)
	run, err = s.transition(ctx, run, "stop", model.RunUpdate{
		Status:     model.RunStatusStopped,
		StopReason: &reason,
	})
	if err != nil {
		return nil, err
	}
	s.appendEvent(ctx, run.ID, model.RunEventStopped, "", map[string]any{"reason": reason})
	return s.withTotals(ctx, run)
}

// PlanRun runs the planner for an existing run without changing its
// status. Already queued pairs are reported as duplicates. Stopped,
// completed and failed runs cannot be planned.
func (s *RunService) PlanRun(ctx context.Context, id string) (PlanResult, error) {
	run, err := s.Runs.GetByID(ctx, id)
	if err != nil {
		return PlanResult{}, err
	}
	if run.Status.Terminal() {
		return PlanResult{}, appErrors.NewInvalidRunState(run.ID, string(run.Status), "plan")
	}
	res, err := s.Planner.Plan(ctx, id)
	if err != nil {
		return PlanResult{}, err
	}
	s.appendEvent(ctx, id, model.RunEventQueuePlanned, "", res)
	return res, nil
}

// CompleteIfDrained finishes a running run once none of its items is
// queued or leased. The run fails when it has items and none was sent.
// It reports whether the run was finished by this call.
func (s *RunService) CompleteIfDrained(ctx context.Context, id string) (bool, error) {
	run, err := s.Runs.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if run.Status != model.RunStatusRunning {
		return false, nil
	}
	counts, err := s.Queue.CountByStatus(ctx, id)
	if err != nil {
		return false, err
	}
	if counts[model.QueueItemQueued]+counts[model.QueueItemLeased] > 0 {
		return false, nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	upd := model.RunUpdate{Status: model.RunStatusCompleted}
	evType := model.RunEventCompleted
	if total > 0 && counts[model.QueueItemDone] == 0 {
		lastErr := LastErrorAllItemsFailed
		upd = model.RunUpdate{Status: model.RunStatusFailed, LastError: &lastErr}
		evType = model.RunEventFailed
	}

	if _, err := s.transition(ctx, run, "finish", upd); err != nil {
		// Another caller finished or paused it first.
		if appErrors.CodeOf(err) == appErrors.CodeRunInvalidState {
			return false, nil
		}
		return false, err
	}
	s.appendEvent(ctx, id, evType, "", map[string]any{
		"total":  total,
		"done":   counts[model.QueueItemDone],
		"failed": counts[model.QueueItemFailed],
	})
	return true, nil
}

func (s *RunService) GetRun(ctx context.Context, id string) (*model.Run, error) {
	run, err := s.Runs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withTotals(ctx, run)
}

func (s *RunService) ListRuns(ctx context.Context, limit int) ([]*model.Run, error) {
	runs, err := s.Runs.List(ctx, limit)
	if err != nil {
		return nil, err
	}
	for i, run := range runs {
		if runs[i], err = s.withTotals(ctx, run); err != nil {
			return nil, err
		}
	}
	return runs, nil
}

// ListEvents returns the run's events newest first.
func (s *RunService) ListEvents(ctx context.Context, runID string, limit int) ([]model.RunEvent, error) {
	if _, err := s.Runs.GetByID(ctx, runID); err != nil {
		return nil, err
	}
	return s.Events.ListByRun(ctx, runID, limit)
}

func (s *RunService) ListQueue(ctx context.Context, filter repository.QueueFilter) ([]model.QueueItem, error) {
	return s.Queue.List(ctx, filter)
}

func (s *RunService) GetQueueItem(ctx context.Context, id string) (*model.QueueItem, error) {
	return s.Queue.GetByID(ctx, id)
}

func (s *RunService) plan(ctx context.Context, run *model.Run) (*model.Run, error) {
	res, err := s.Planner.Plan(ctx, run.ID)
	if err != nil {
		msg := err.Error()
		s.log().Warn("planning failed, pausing run",
			zap.String("run_id", run.ID),
			zap.String("code", appErrors.CodeOf(err)),
			zap.Error(err))

		reason := model.PausedReasonPlanningError
		paused, perr := s.transition(ctx, run, "pause", model.RunUpdate{
			Status:       model.RunStatusPaused,
			PausedReason: &reason,
			LastError:    &msg,
		})
		if perr != nil {
			return nil, errors.Join(err, perr)
		}
		s.appendEvent(ctx, run.ID, model.RunEventQueuePlanFailed, msg, map[string]any{
			"code": appErrors.CodeOf(err),
		})
		return s.withTotals(ctx, paused)
	}

	s.appendEvent(ctx, run.ID, model.RunEventQueuePlanned, "", res)
	return s.withTotals(ctx, run)
}

func (s *RunService) transition(ctx context.Context, run *model.Run, op string, upd model.RunUpdate) (*model.Run, error) {
	if !model.CanTransition(run.Status, upd.Status) {
		return nil, appErrors.NewInvalidRunState(run.ID, string(run.Status), op)
	}
	next, err := s.Runs.UpdateStatus(ctx, run.ID, run.Status, upd, s.now())
	if err != nil {
		return nil, err
	}
	s.log().Info("run status changed",
		zap.String("run_id", run.ID),
		zap.String("from", string(run.Status)),
		zap.String("to", string(next.Status)))
	return next, nil
}

// appendEvent records an audit event. The status change it describes has
// already been committed, so a failed append is logged and not returned.
func (s *RunService) appendEvent(ctx context.Context, runID string, typ model.RunEventType, message string, meta any) {
	ev := &model.RunEvent{RunID: runID, TS: s.now(), Type: typ, Message: message}
	if meta != nil {
		raw, err := json.Marshal(meta)
		if err == nil {
			ev.Meta = raw
		}
	}
	if err := s.Events.Append(ctx, ev); err != nil {
		s.log().Error("append run event failed",
			zap.String("run_id", runID),
			zap.String("type", string(typ)),
			zap.Error(err))
	}
}

// withTotals fills the derived counters from queue state and the latest
// planning event.
func (s *RunService) withTotals(ctx context.Context, run *model.Run) (*model.Run, error) {
	counts, err := s.Queue.CountByStatus(ctx, run.ID)
	if err != nil {
		return nil, err
	}
	totals := model.RunTotals{
		Sent:   counts[model.QueueItemDone],
		Failed: counts[model.QueueItemFailed],
	}
	for _, n := range counts {
		totals.Total += n
	}

	events, err := s.Events.ListByRun(ctx, run.ID, 500)
	if err != nil {
		return nil, err
	}
	for _, ev := range events {
		if ev.Type != model.RunEventQueuePlanned {
			continue
		}
		var planned PlanResult
		if json.Unmarshal(ev.Meta, &planned) == nil {
			totals.Skipped = planned.Skipped
		}
		break
	}

	run.Totals = totals
	return run, nil
}

func reasonOrManual(reason string) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	return model.PausedReasonManual
}
