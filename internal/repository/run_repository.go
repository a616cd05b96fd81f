package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach/internal/db"
	appErrors "github.com/unclebandit/outreach/internal/errors"
	"github.com/unclebandit/outreach/internal/model"
)

type RunRepositoryInterface interface {
	Create(ctx context.Context, run *model.Run) error
	GetByID(ctx context.Context, id string) (*model.Run, error)
	List(ctx context.Context, limit int) ([]*model.Run, error)
	UpdateStatus(ctx context.Context, id string, from model.RunStatus, upd model.RunUpdate, now time.Time) (*model.Run, error)
}

type RunRepository struct {
	DB *db.DB
}

const runColumns = `id, campaign_id, sender_id, mode, status, paused_reason, stop_reason, last_error, created_at, updated_at`

func (r *RunRepository) Create(ctx context.Context, run *model.Run) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.Status == "" {
		run.Status = model.RunStatusCreated
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now().UTC()
	}
	run.UpdatedAt = run.CreatedAt

	query := `
        INSERT INTO runs (` + runColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `
	_, err := r.DB.ExecContext(ctx, r.DB.Rebind(query),
		run.ID, run.CampaignID, run.SenderID, string(run.Mode), string(run.Status),
		run.PausedReason, run.StopReason, run.LastError,
		model.MillisOf(run.CreatedAt), model.MillisOf(run.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create run: %w", err)
	}
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`
	run, err := scanRun(r.DB.QueryRowContext(ctx, r.DB.Rebind(query), id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewRunNotFound(id)
		}
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// List returns the most recently updated runs first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]*model.Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY updated_at DESC, id DESC LIMIT ?`
	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(query), clampLimit(limit, 200, 1000))
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	runs := []*model.Run{}
	for rows.Next() {
		run, err := scanRun(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// UpdateStatus moves a run from one status to another. The write only
// applies while the stored status still equals from; otherwise the run is
// re-read and an invalid-state (or not-found) error is returned.
func (r *RunRepository) UpdateStatus(ctx context.Context, id string, from model.RunStatus, upd model.RunUpdate, now time.Time) (*model.Run, error) {
	sets := []string{"status = ?", "updated_at = ?"}
	args := []any{string(upd.Status), model.MillisOf(now)}
	if upd.PausedReason != nil {
		sets = append(sets, "paused_reason = ?")
		args = append(args, *upd.PausedReason)
	}
	if upd.StopReason != nil {
		sets = append(sets, "stop_reason = ?")
		args = append(args, *upd.StopReason)
	}
	if upd.LastError != nil {
		sets = append(sets, "last_error = ?")
		args = append(args, *upd.LastError)
	}
	args = append(args, id, string(from))

	query := `UPDATE runs SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND status = ?`
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("update run status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update run rows affected: %w", err)
	}

	run, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, appErrors.NewInvalidRunState(id, string(run.Status), "move to "+string(upd.Status))
	}
	return run, nil
}

func scanRun(scan rowScanner) (*model.Run, error) {
	var (
		run       model.Run
		mode      string
		status    string
		createdAt int64
		updatedAt int64
	)
	err := scan(&run.ID, &run.CampaignID, &run.SenderID, &mode, &status,
		&run.PausedReason, &run.StopReason, &run.LastError, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	run.Mode = model.RunMode(mode)
	run.Status = model.RunStatus(status)
	run.CreatedAt = model.TimeOfMillis(createdAt)
	run.UpdatedAt = model.TimeOfMillis(updatedAt)
	return &run, nil
}

var _ RunRepositoryInterface = (*RunRepository)(nil)
