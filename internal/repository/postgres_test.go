package repository

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/outreach/internal/db"
	"github.com/unclebandit/outreach/internal/model"
)

// openPostgres connects to a disposable database named by
// OUTREACH_TEST_POSTGRES_URL. All outreach tables are emptied first.
func openPostgres(t *testing.T) *db.DB {
	t.Helper()

	dsn := os.Getenv("OUTREACH_TEST_POSTGRES_URL")
	if dsn == "" {
		t.Skip("OUTREACH_TEST_POSTGRES_URL not set")
	}
	d, err := db.Open(context.Background(), "postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	_, err = d.Exec(`TRUNCATE queue_items, run_events, runs, campaigns, contacts, segments, senders`)
	require.NoError(t, err)
	return d
}

func TestPostgres_ConcurrentClaimsNeverOverlap(t *testing.T) {
	d := openPostgres(t)
	repo := &QueueRepository{DB: d}
	run := seedRun(t, d, model.RunStatusRunning)
	seedItems(t, repo, run.ID, 40, time.Time{}, 0)

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		claimed = map[string]int{}
	)
	for w := 0; w < 6; w++ {
		wg.Add(1)
		go func(worker string) {
			defer wg.Done()
			for {
				batch, err := repo.ClaimDue(context.Background(), worker, time.Minute, 4, baseTime)
				if err != nil {
					t.Errorf("claim: %v", err)
					return
				}
				if len(batch) == 0 {
					return
				}
				mu.Lock()
				for _, item := range batch {
					claimed[item.ID]++
				}
				mu.Unlock()
			}
		}("pg-worker-" + string(rune('a'+w)))
	}
	wg.Wait()

	assert.Len(t, claimed, 40)
	for id, n := range claimed {
		assert.Equal(t, 1, n, "item %s claimed %d times", id, n)
	}
}

func TestPostgres_RetryFenceAndEvents(t *testing.T) {
	d := openPostgres(t)
	ctx := context.Background()
	repo := &QueueRepository{DB: d}
	run := seedRun(t, d, model.RunStatusRunning)
	ids := seedItems(t, repo, run.ID, 1, time.Time{}, 2)

	inserted, err := repo.Enqueue(ctx, EnqueueInput{RunID: run.ID, ContactID: "contact-000", StepID: "step_0"}, baseTime)
	require.NoError(t, err)
	assert.False(t, inserted)

	_, err = repo.ClaimDue(ctx, "w1", 10*time.Second, 1, baseTime)
	require.NoError(t, err)
	applied, err := repo.MarkFailedOrRetry(ctx, ids[0], "w1", "timeout", "slow", baseTime.Add(time.Second), baseTime)
	require.NoError(t, err)
	require.True(t, applied)

	_, err = repo.ClaimDue(ctx, "w1", 10*time.Second, 1, baseTime.Add(time.Second))
	require.NoError(t, err)
	applied, err = repo.MarkDone(ctx, ids[0], "w2", baseTime.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, applied)
	applied, err = repo.MarkFailedOrRetry(ctx, ids[0], "w1", "timeout", "slow", baseTime, baseTime.Add(time.Second))
	require.NoError(t, err)
	require.True(t, applied)

	item, err := repo.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, model.QueueItemFailed, item.Status)
	assert.Nil(t, item.DueAt)

	events := &RunEventRepository{DB: d}
	require.NoError(t, events.Append(ctx, &model.RunEvent{RunID: run.ID, TS: baseTime, Type: model.RunEventStarted}))
	require.NoError(t, events.Append(ctx, &model.RunEvent{RunID: run.ID, TS: baseTime, Type: model.RunEventQueuePlanned}))
	list, err := events.ListByRun(ctx, run.ID, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, model.RunEventQueuePlanned, list[0].Type)
}
