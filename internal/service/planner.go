package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	appErrors "github.com/unclebandit/outreach/internal/errors"
	"github.com/unclebandit/outreach/internal/model"
	"github.com/unclebandit/outreach/internal/repository"
)

// CampaignSource resolves the campaign a run applies.
type CampaignSource interface {
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
}

// ContactSource lists the active contacts of one channel.
type ContactSource interface {
	ListActive(ctx context.Context, channel string) ([]model.Contact, error)
}

// SegmentSource resolves the segment a campaign targets.
type SegmentSource interface {
	GetByID(ctx context.Context, id string) (*model.Segment, error)
}

type RunReader interface {
	GetByID(ctx context.Context, id string) (*model.Run, error)
}

type Enqueuer interface {
	Enqueue(ctx context.Context, in repository.EnqueueInput, now time.Time) (bool, error)
}

// PlanResult counts what one planning pass did. Duplicates are pairs that
// were already queued by an earlier pass for the same run.
type PlanResult struct {
	Planned    int `json:"planned"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
}

type PlannerConfig struct {
	MaxAttempts int
	Now         func() time.Time
}

// Planner expands a run into one queue item per (active contact, step).
type Planner struct {
	runs      RunReader
	campaigns CampaignSource
	contacts  ContactSource
	segments  SegmentSource
	queue     Enqueuer
	cfg       PlannerConfig
	logger    *zap.Logger
}

// NewPlanner builds a planner. segments may be nil when no campaign
// targets a segment.
func NewPlanner(runs RunReader, campaigns CampaignSource, contacts ContactSource, segments SegmentSource, queue Enqueuer, cfg PlannerConfig, logger *zap.Logger) *Planner {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = model.DefaultMaxAttempts
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Planner{
		runs:      runs,
		campaigns: campaigns,
		contacts:  contacts,
		segments:  segments,
		queue:     queue,
		cfg:       cfg,
		logger:    logger.With(zap.String("component", "planner")),
	}
}

// Plan enqueues every (contact, step) pair of the run that has step text.
// A campaign with a segment only reaches the active contacts matching it.
// It can be called again for the same run: pairs already queued are
// counted as duplicates and left untouched.
func (p *Planner) Plan(ctx context.Context, runID string) (PlanResult, error) {
	var res PlanResult

	run, err := p.runs.GetByID(ctx, runID)
	if err != nil {
		return res, err
	}
	campaign, err := p.campaigns.GetByID(ctx, run.CampaignID)
	if err != nil {
		return res, err
	}
	if campaign == nil {
		return res, appErrors.NewCampaignNotFound(run.CampaignID)
	}

	steps := campaign.OrderedSteps()
	if len(steps) == 0 {
		return res, nil
	}

	channel := strings.TrimSpace(campaign.Channel)
	if channel == "" {
		channel = model.DefaultChannel
	}
	contacts, err := p.contacts.ListActive(ctx, channel)
	if err != nil {
		return res, fmt.Errorf("list contacts: %w", err)
	}
	if segmentID := strings.TrimSpace(campaign.SegmentID); segmentID != "" {
		if contacts, err = p.inSegment(ctx, segmentID, contacts); err != nil {
			return res, err
		}
	}

	now := p.cfg.Now().UTC()
	for _, contact := range contacts {
		if contact.Status != "" && contact.Status != model.ContactStatusActive {
			continue
		}
		for i, step := range steps {
			if strings.TrimSpace(step.Text) == "" {
				res.Skipped++
				continue
			}

			payload, err := json.Marshal(model.Payload{
				Text:          RenderTemplate(step.Text, ContactPlaceholders(contact)),
				StepOrder:     step.Order,
				DelayAfterSec: step.DelayAfterSec,
				Contact: model.PayloadContact{
					ID:          contact.ID,
					DisplayName: contact.DisplayName,
					PhoneE164:   contact.PhoneE164,
				},
			})
			if err != nil {
				return res, fmt.Errorf("encode payload: %w", err)
			}

			inserted, err := p.queue.Enqueue(ctx, repository.EnqueueInput{
				RunID:       run.ID,
				CampaignID:  run.CampaignID,
				SenderID:    run.SenderID,
				ContactID:   contact.ID,
				StepID:      stepID(step, i),
				DueAt:       now,
				Payload:     payload,
				MaxAttempts: p.cfg.MaxAttempts,
			}, now)
			if err != nil {
				return res, err
			}
			if inserted {
				res.Planned++
			} else {
				res.Duplicates++
			}
		}
	}

	p.logger.Info("run planned",
		zap.String("run_id", run.ID),
		zap.Int("contacts", len(contacts)),
		zap.Int("planned", res.Planned),
		zap.Int("skipped", res.Skipped),
		zap.Int("duplicates", res.Duplicates))
	return res, nil
}

func (p *Planner) inSegment(ctx context.Context, segmentID string, contacts []model.Contact) ([]model.Contact, error) {
	if p.segments == nil {
		return nil, appErrors.NewSegmentNotFound(segmentID)
	}
	segment, err := p.segments.GetByID(ctx, segmentID)
	if err != nil {
		return nil, err
	}
	matched := make([]model.Contact, 0, len(contacts))
	for _, c := range contacts {
		if segment.Matches(c) {
			matched = append(matched, c)
		}
	}
	return matched, nil
}

func stepID(step model.Step, index int) string {
	if id := strings.TrimSpace(step.ID); id != "" {
		return id
	}
	return "step_" + strconv.Itoa(index)
}
