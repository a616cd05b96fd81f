package repository

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach/internal/db"
	"github.com/unclebandit/outreach/internal/model"
)

var baseTime = time.Date(2026, 10, 1, 12, 0, 0, 0, time.UTC)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()

	d, err := db.Open(context.Background(), "sqlite", "file:"+filepath.Join(t.TempDir(), "outreach.db"))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = d.Close()
	})
	return d
}

func seedRun(t *testing.T, d *db.DB, status model.RunStatus) *model.Run {
	t.Helper()

	run := &model.Run{
		CampaignID: "camp-1",
		SenderID:   "default",
		Mode:       model.RunModeCold,
		Status:     status,
		CreatedAt:  baseTime,
	}
	require.NoError(t, (&RunRepository{DB: d}).Create(context.Background(), run))
	return run
}

func seedItems(t *testing.T, repo *QueueRepository, runID string, n int, dueAt time.Time, maxAttempts int) []string {
	t.Helper()

	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("%s-item-%03d", runID, i)
		inserted, err := repo.Enqueue(context.Background(), EnqueueInput{
			ID:          id,
			RunID:       runID,
			CampaignID:  "camp-1",
			SenderID:    "default",
			ContactID:   fmt.Sprintf("contact-%03d", i),
			StepID:      "step_0",
			DueAt:       dueAt,
			Payload:     []byte(`{"text":"Hi"}`),
			MaxAttempts: maxAttempts,
		}, baseTime)
		require.NoError(t, err)
		require.True(t, inserted)
		ids = append(ids, id)
	}
	return ids
}
