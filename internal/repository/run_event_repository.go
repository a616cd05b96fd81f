package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach/internal/db"
	"github.com/unclebandit/outreach/internal/model"
)

// RunEventRepositoryInterface is append-only: there is no update or delete.
type RunEventRepositoryInterface interface {
	Append(ctx context.Context, ev *model.RunEvent) error
	ListByRun(ctx context.Context, runID string, limit int) ([]model.RunEvent, error)
}

type RunEventRepository struct {
	DB *db.DB
}

func (r *RunEventRepository) Append(ctx context.Context, ev *model.RunEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.TS.IsZero() {
		ev.TS = time.Now().UTC()
	}
	if len(ev.Meta) == 0 || !json.Valid(ev.Meta) {
		ev.Meta = json.RawMessage("{}")
	}

	query := `
        INSERT INTO run_events (id, run_id, ts, type, message, meta_json)
        VALUES (?, ?, ?, ?, ?, ?)
        RETURNING seq
    `
	err := r.DB.QueryRowContext(ctx, r.DB.Rebind(query),
		ev.ID, ev.RunID, model.MillisOf(ev.TS), string(ev.Type), ev.Message, string(ev.Meta),
	).Scan(&ev.Seq)
	if err != nil {
		return fmt.Errorf("append run event: %w", err)
	}
	return nil
}

// ListByRun returns newest events first; events sharing a timestamp are
// ordered by insertion.
func (r *RunEventRepository) ListByRun(ctx context.Context, runID string, limit int) ([]model.RunEvent, error) {
	query := `
        SELECT id, run_id, seq, ts, type, message, meta_json
        FROM run_events
        WHERE run_id = ?
        ORDER BY ts DESC, seq DESC
        LIMIT ?
    `
	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(query), runID, clampLimit(limit, 200, 500))
	if err != nil {
		return nil, fmt.Errorf("list run events: %w", err)
	}
	defer rows.Close()

	events := []model.RunEvent{}
	for rows.Next() {
		var (
			ev   model.RunEvent
			ts   int64
			typ  string
			meta string
		)
		if err := rows.Scan(&ev.ID, &ev.RunID, &ev.Seq, &ts, &typ, &ev.Message, &meta); err != nil {
			return nil, fmt.Errorf("scan run event: %w", err)
		}
		ev.TS = model.TimeOfMillis(ts)
		ev.Type = model.RunEventType(typ)
		ev.Meta = json.RawMessage(meta)
		events = append(events, ev)
	}
	return events, rows.Err()
}

var _ RunEventRepositoryInterface = (*RunEventRepository)(nil)
