// Package app assembles the stores, services and sender from Config.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/unclebandit/outreach/internal/config"
	"github.com/unclebandit/outreach/internal/controller"
	"github.com/unclebandit/outreach/internal/db"
	"github.com/unclebandit/outreach/internal/queue"
	"github.com/unclebandit/outreach/internal/repository"
	"github.com/unclebandit/outreach/internal/sender"
	"github.com/unclebandit/outreach/internal/service"
)

type App struct {
	Config    config.Config
	Logger    *zap.Logger
	DB        *db.DB
	Campaigns *repository.CampaignRepository
	Contacts  *repository.ContactRepository
	Segments  *repository.SegmentRepository
	Senders   *repository.SenderRepository
	Queue     *repository.QueueRepository
	Runs      *service.RunService
	Registry  *sender.Registry
	Sender    sender.Sender

	closers []func() error
}

// New opens the database and builds every component. The caller must Close
// the returned App.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := ensureSQLiteDir(cfg); err != nil {
		return nil, err
	}

	d, err := db.Open(ctx, cfg.DBDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	a := &App{Config: cfg, Logger: logger, DB: d}
	a.closers = append(a.closers, d.Close)

	runRepo := &repository.RunRepository{DB: d}
	eventRepo := &repository.RunEventRepository{DB: d}
	a.Queue = &repository.QueueRepository{DB: d}
	a.Campaigns = &repository.CampaignRepository{DB: d}
	a.Contacts = &repository.ContactRepository{DB: d}
	a.Segments = &repository.SegmentRepository{DB: d}
	a.Senders = &repository.SenderRepository{DB: d}

	planner := service.NewPlanner(runRepo, a.Campaigns, a.Contacts, a.Segments, a.Queue,
		service.PlannerConfig{MaxAttempts: cfg.MaxAttempts}, logger)
	a.Runs = &service.RunService{
		Runs:    runRepo,
		Events:  eventRepo,
		Queue:   a.Queue,
		Planner: planner,
		Logger:  logger.With(zap.String("component", "run_service")),
	}

	reg, err := a.buildSenders()
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Registry = reg
	a.Sender = &sender.StateGate{Next: reg, Accounts: a.Senders}

	logger.Info("app ready",
		zap.String("db_driver", string(d.Dialect)),
		zap.String("sender", cfg.Sender),
		zap.Strings("sender_ids", cfg.SenderIDs))
	return a, nil
}

func (a *App) buildSenders() (*sender.Registry, error) {
	var s sender.Sender
	switch a.Config.Sender {
	case config.SenderBroker:
		pub, err := queue.DialAMQP(a.Config.AMQPURL, a.Logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		s = &sender.BrokerSender{Publisher: pub, Topic: a.Config.AMQPQueue}
	default:
		s = sender.NewLogSender(a.Logger)
	}

	senders := make(map[string]sender.Sender, len(a.Config.SenderIDs))
	for _, id := range a.Config.SenderIDs {
		if id = strings.TrimSpace(id); id != "" {
			senders[id] = s
		}
	}
	return sender.NewRegistry(senders), nil
}

// NewWorker returns a worker over this app's queue. Deliveries pass the
// sender account state gate before reaching the registry.
func (a *App) NewWorker() *service.Worker {
	return service.NewWorker(a.Queue, a.Sender, a.Runs, a.Config.Worker(), a.Logger)
}

func (a *App) RunController() *controller.RunController {
	return &controller.RunController{RunService: a.Runs}
}

func (a *App) CampaignController() *controller.CampaignController {
	return &controller.CampaignController{Campaigns: a.Campaigns, Contacts: a.Contacts, Segments: a.Segments}
}

func (a *App) SenderController() *controller.SenderController {
	return &controller.SenderController{Senders: a.Senders}
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ensureSQLiteDir creates the parent directory of a file-backed SQLite DSN.
func ensureSQLiteDir(cfg config.Config) error {
	dialect, err := db.ParseDialect(cfg.DBDriver)
	if err != nil || dialect != db.DialectSQLite {
		return nil
	}
	path := strings.TrimPrefix(cfg.DatabaseURL, "file:")
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	if path == "" || path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(path)
	if dir == "." {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create sqlite dir %s: %w", dir, err)
	}
	return nil
}
