package repository

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/unclebandit/outreach/internal/errors"
	"github.com/unclebandit/outreach/internal/model"
)

func TestRunRepository_CreateAndGet(t *testing.T) {
	d := openTestDB(t)
	repo := &RunRepository{DB: d}
	ctx := context.Background()

	run := &model.Run{CampaignID: "camp-1", SenderID: "default", Mode: model.RunModeWarm, CreatedAt: baseTime}
	require.NoError(t, repo.Create(ctx, run))
	assert.NotEmpty(t, run.ID)
	assert.Equal(t, model.RunStatusCreated, run.Status)

	got, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.CampaignID, got.CampaignID)
	assert.Equal(t, model.RunModeWarm, got.Mode)
	assert.Equal(t, model.RunStatusCreated, got.Status)
	assert.True(t, got.CreatedAt.Equal(baseTime))

	_, err = repo.GetByID(ctx, "missing")
	assert.Equal(t, appErrors.CodeRunNotFound, appErrors.CodeOf(err))
}

func TestRunRepository_UpdateStatusIsConditional(t *testing.T) {
	d := openTestDB(t)
	repo := &RunRepository{DB: d}
	ctx := context.Background()
	run := seedRun(t, d, model.RunStatusRunning)

	reason := model.PausedReasonManual
	updated, err := repo.UpdateStatus(ctx, run.ID, model.RunStatusRunning, model.RunUpdate{
		Status:       model.RunStatusPaused,
		PausedReason: &reason,
	}, baseTime.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPaused, updated.Status)
	assert.Equal(t, model.PausedReasonManual, updated.PausedReason)
	assert.True(t, updated.UpdatedAt.Equal(baseTime.Add(time.Minute)))

	_, err = repo.UpdateStatus(ctx, run.ID, model.RunStatusRunning, model.RunUpdate{Status: model.RunStatusStopped}, baseTime)
	assert.Equal(t, appErrors.CodeRunInvalidState, appErrors.CodeOf(err))

	unchanged, err := repo.GetByID(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusPaused, unchanged.Status)

	_, err = repo.UpdateStatus(ctx, "missing", model.RunStatusRunning, model.RunUpdate{Status: model.RunStatusPaused}, baseTime)
	assert.Equal(t, appErrors.CodeRunNotFound, appErrors.CodeOf(err))
}

func TestRunRepository_ListNewestFirst(t *testing.T) {
	d := openTestDB(t)
	repo := &RunRepository{DB: d}
	ctx := context.Background()

	older := seedRun(t, d, model.RunStatusCreated)
	newer := seedRun(t, d, model.RunStatusCreated)
	_, err := repo.UpdateStatus(ctx, newer.ID, model.RunStatusCreated, model.RunUpdate{Status: model.RunStatusRunning}, baseTime.Add(time.Hour))
	require.NoError(t, err)

	runs, err := repo.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, newer.ID, runs[0].ID)
	assert.Equal(t, older.ID, runs[1].ID)

	one, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, one, 1)
}

func TestRunEventRepository_AppendAndList(t *testing.T) {
	d := openTestDB(t)
	repo := &RunEventRepository{DB: d}
	ctx := context.Background()
	run := seedRun(t, d, model.RunStatusCreated)

	// Same timestamp: insertion order breaks the tie.
	for _, typ := range []model.RunEventType{model.RunEventCreated, model.RunEventStarted, model.RunEventQueuePlanned} {
		ev := &model.RunEvent{RunID: run.ID, TS: baseTime, Type: typ}
		require.NoError(t, repo.Append(ctx, ev))
		assert.NotEmpty(t, ev.ID)
		assert.Positive(t, ev.Seq)
	}
	require.NoError(t, repo.Append(ctx, &model.RunEvent{
		RunID: run.ID,
		TS:    baseTime.Add(time.Second),
		Type:  model.RunEventPaused,
		Meta:  json.RawMessage(`{"reason":"manual"}`),
	}))
	require.NoError(t, repo.Append(ctx, &model.RunEvent{
		RunID: run.ID,
		TS:    baseTime,
		Type:  model.RunEventQueuePlanned,
		Meta:  json.RawMessage(`not json`),
	}))

	events, err := repo.ListByRun(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 5)

	types := make([]model.RunEventType, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	assert.Equal(t, []model.RunEventType{
		model.RunEventPaused,
		model.RunEventQueuePlanned,
		model.RunEventQueuePlanned,
		model.RunEventStarted,
		model.RunEventCreated,
	}, types)
	assert.JSONEq(t, `{"reason":"manual"}`, string(events[0].Meta))
	assert.JSONEq(t, `{}`, string(events[1].Meta))

	limited, err := repo.ListByRun(ctx, run.ID, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestCampaignRepository_CreateAndGet(t *testing.T) {
	repo := &CampaignRepository{DB: openTestDB(t)}
	ctx := context.Background()

	c := &model.Campaign{
		Name: "Spring intro",
		Steps: []model.Step{
			{ID: "a", Order: 2, Text: "Follow up"},
			{ID: "b", Order: 1, Text: "Hi {name}", DelayAfterSec: 60},
		},
	}
	require.NoError(t, repo.Create(ctx, c))
	assert.Equal(t, model.DefaultChannel, c.Channel)
	assert.Equal(t, model.RunModeCold, c.Mode)

	got, err := repo.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.Steps, got.Steps)
	assert.Equal(t, "b", got.OrderedSteps()[0].ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.Equal(t, appErrors.CodeCampaignNotFound, appErrors.CodeOf(err))
}

func TestContactRepository_ListActiveFiltersChannelAndStatus(t *testing.T) {
	repo := &ContactRepository{DB: openTestDB(t)}
	ctx := context.Background()

	active := &model.Contact{DisplayName: "Ana", PhoneE164: "+5511999990001"}
	require.NoError(t, repo.Create(ctx, active))
	require.NoError(t, repo.Create(ctx, &model.Contact{DisplayName: "Bo", PhoneE164: "+5511999990002", Status: model.ContactStatusOptedOut}))
	require.NoError(t, repo.Create(ctx, &model.Contact{DisplayName: "Cy", PhoneE164: "+5511999990003", Channel: "sms"}))

	err := repo.Create(ctx, &model.Contact{DisplayName: "No phone"})
	assert.Equal(t, appErrors.CodeValidation, appErrors.CodeOf(err))

	contacts, err := repo.ListActive(ctx, model.DefaultChannel)
	require.NoError(t, err)
	require.Len(t, contacts, 1)
	assert.Equal(t, active.ID, contacts[0].ID)
	assert.Equal(t, "Ana", contacts[0].DisplayName)

	sms, err := repo.ListActive(ctx, "sms")
	require.NoError(t, err)
	assert.Len(t, sms, 1)
}
