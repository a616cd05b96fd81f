package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/unclebandit/outreach/internal/model"
	"github.com/unclebandit/outreach/internal/sender"
)

const (
	DefaultPollInterval = 800 * time.Millisecond
	DefaultLeaseTTL     = 30 * time.Second
	DefaultBatchSize    = 10
	DefaultConcurrency  = 4
	DefaultRetryDelay   = 5 * time.Second

	firstTickDelay = 50 * time.Millisecond
)

// WorkerQueue is the part of the queue store the worker drives.
type WorkerQueue interface {
	ClaimDue(ctx context.Context, workerID string, leaseTTL time.Duration, limit int, now time.Time) ([]model.QueueItem, error)
	MarkDone(ctx context.Context, id, workerID string, now time.Time) (bool, error)
	MarkFailedOrRetry(ctx context.Context, id, workerID, code, message string, nextDueAt, now time.Time) (bool, error)
}

type RunCompleter interface {
	CompleteIfDrained(ctx context.Context, runID string) (bool, error)
}

type WorkerConfig struct {
	ID           string
	PollInterval time.Duration
	LeaseTTL     time.Duration
	BatchSize    int
	Concurrency  int
	RetryDelay   time.Duration
	Now          func() time.Time
}

func (c WorkerConfig) normalized() WorkerConfig {
	if c.ID == "" {
		c.ID = "worker_" + uuid.NewString()
	}
	if c.PollInterval <= 0 {
		c.PollInterval = DefaultPollInterval
	}
	if c.LeaseTTL <= 0 {
		c.LeaseTTL = DefaultLeaseTTL
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	if c.Concurrency <= 0 {
		c.Concurrency = DefaultConcurrency
	}
	if c.RetryDelay <= 0 {
		c.RetryDelay = DefaultRetryDelay
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}

// Worker polls the queue, leases due items and resolves each through the
// sender.
type Worker struct {
	queue  WorkerQueue
	sender sender.Sender
	runs   RunCompleter
	cfg    WorkerConfig
	logger *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewWorker returns a stopped worker. runs may be nil, in which case runs
// are never completed by this worker.
func NewWorker(queue WorkerQueue, s sender.Sender, runs RunCompleter, cfg WorkerConfig, logger *zap.Logger) *Worker {
	cfg = cfg.normalized()
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:  queue,
		sender: s,
		runs:   runs,
		cfg:    cfg,
		logger: logger.With(zap.String("component", "worker"), zap.String("worker_id", cfg.ID)),
	}
}

func (w *Worker) ID() string { return w.cfg.ID }

func (w *Worker) Config() WorkerConfig { return w.cfg }

// Start launches the poll loop. Calling it on a started worker does nothing.
func (w *Worker) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}
	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})
	go w.loop(loopCtx, w.done)

	w.logger.Info("worker started",
		zap.Duration("poll_interval", w.cfg.PollInterval),
		zap.Duration("lease_ttl", w.cfg.LeaseTTL),
		zap.Int("batch_size", w.cfg.BatchSize),
		zap.Int("concurrency", w.cfg.Concurrency))
}

// Stop cancels the pending poll and waits for an in-flight tick to finish.
func (w *Worker) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.mu.Unlock()
	if done == nil {
		return
	}
	cancel()
	<-done
}

func (w *Worker) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	defer w.logger.Info("worker stopped")

	timer := time.NewTimer(firstTickDelay)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		// A started tick runs to completion even if Stop is called.
		if _, err := w.Tick(context.WithoutCancel(ctx)); err != nil {
			w.logger.Error("tick failed", zap.Error(err))
		}
		timer.Reset(w.cfg.PollInterval)
	}
}

// Tick claims one batch and resolves every claimed item. It returns the
// number of items claimed and the first storage error hit while recording
// outcomes.
func (w *Worker) Tick(ctx context.Context) (int, error) {
	items, err := w.queue.ClaimDue(ctx, w.cfg.ID, w.cfg.LeaseTTL, w.cfg.BatchSize, w.cfg.Now())
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}

	var g errgroup.Group
	g.SetLimit(w.cfg.Concurrency)
	for _, item := range items {
		g.Go(func() error {
			return w.process(ctx, item)
		})
	}
	err = g.Wait()

	if w.runs != nil {
		seen := make(map[string]bool, len(items))
		for _, item := range items {
			if seen[item.RunID] {
				continue
			}
			seen[item.RunID] = true
			finished, cerr := w.runs.CompleteIfDrained(ctx, item.RunID)
			if cerr != nil {
				w.logger.Warn("complete run check failed", zap.String("run_id", item.RunID), zap.Error(cerr))
				continue
			}
			if finished {
				w.logger.Info("run drained", zap.String("run_id", item.RunID))
			}
		}
	}
	return len(items), err
}

// process sends one leased item and records the outcome. An item whose
// lease ran out while it waited in the batch is left for the next claim.
func (w *Worker) process(ctx context.Context, item model.QueueItem) error {
	log := w.logger.With(zap.String("item_id", item.ID), zap.String("run_id", item.RunID))

	budget := leaseRemaining(item, w.cfg.Now())
	if budget <= 0 {
		log.Warn("lease expired before send, skipping item")
		return nil
	}

	sendCtx, cancel := context.WithTimeout(ctx, budget)
	sendErr := w.sender.Send(sendCtx, sender.Delivery{
		ItemID:     item.ID,
		RunID:      item.RunID,
		CampaignID: item.CampaignID,
		SenderID:   item.SenderID,
		ContactID:  item.ContactID,
		StepID:     item.StepID,
		Attempt:    item.Attempt + 1,
		Payload:    item.Payload,
	})
	cancel()

	now := w.cfg.Now()

	var (
		applied bool
		err     error
	)
	if sendErr == nil {
		applied, err = w.queue.MarkDone(ctx, item.ID, w.cfg.ID, now)
	} else {
		code, message := sender.Classify(sendErr)
		log.Info("send failed",
			zap.String("code", code),
			zap.String("message", message),
			zap.Int("attempt", item.Attempt+1),
			zap.Int("max_attempts", item.MaxAttempts))
		applied, err = w.queue.MarkFailedOrRetry(ctx, item.ID, w.cfg.ID, code, message, now.Add(w.cfg.RetryDelay), now)
	}
	if err != nil {
		log.Error("record outcome failed", zap.Error(err))
		return err
	}
	if !applied {
		log.Warn("lease lost before outcome was recorded", zap.Bool("sent", sendErr == nil))
	}
	return nil
}

// leaseRemaining is the time left on the item's lease at now.
func leaseRemaining(item model.QueueItem, now time.Time) time.Duration {
	if item.LeaseUntil == nil {
		return 0
	}
	return model.TimeOfMillis(*item.LeaseUntil).Sub(now)
}
