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

type QueueRepositoryInterface interface {
	Enqueue(ctx context.Context, in EnqueueInput, now time.Time) (bool, error)
	ClaimDue(ctx context.Context, workerID string, leaseTTL time.Duration, limit int, now time.Time) ([]model.QueueItem, error)
	MarkDone(ctx context.Context, id, workerID string, now time.Time) (bool, error)
	MarkFailedOrRetry(ctx context.Context, id, workerID, code, message string, nextDueAt, now time.Time) (bool, error)
	GetByID(ctx context.Context, id string) (*model.QueueItem, error)
	List(ctx context.Context, filter QueueFilter) ([]model.QueueItem, error)
	CountByStatus(ctx context.Context, runID string) (map[model.QueueItemStatus]int, error)
}

// EnqueueInput describes one new queue item. A zero DueAt stores NULL,
// which makes the item due immediately.
type EnqueueInput struct {
	ID          string
	RunID       string
	CampaignID  string
	SenderID    string
	ContactID   string
	StepID      string
	DueAt       time.Time
	Payload     []byte
	MaxAttempts int
}

type QueueFilter struct {
	RunID  string
	Status model.QueueItemStatus
	Limit  int
}

type QueueRepository struct {
	DB *db.DB
}

const queueItemColumns = `id, run_id, campaign_id, sender_id, contact_id, step_id, status, attempt, max_attempts,
	due_at, lease_owner, lease_until, payload_json, last_error_code, last_error_message, created_at, updated_at`

// claimablePredicate matches queued items that are due and unleased, and
// leased items whose lease has expired. It takes three "now" arguments.
func claimablePredicate(alias string) string {
	return strings.NewReplacer("$.", alias).Replace(`(
	($.status = 'queued'
		AND ($.due_at IS NULL OR $.due_at <= ?)
		AND ($.lease_until IS NULL OR $.lease_until < ?))
	OR
	($.status = 'leased' AND $.lease_until IS NOT NULL AND $.lease_until < ?)
)`)
}

// CodeLeaseExpired is recorded on an item whose lease ran out before its
// holder recorded an outcome. The lapsed lease counts as one attempt.
const CodeLeaseExpired = "lease_expired"

const leaseExpiredMessage = "lease expired before an outcome was recorded"

// leaseFence matches an item still leased by owner with a live lease.
// It takes the owner and "now" arguments.
const leaseFence = `status = 'leased' AND lease_owner = ? AND lease_until >= ?`

// Enqueue inserts a queued item. It reports false, without error, when an
// item for the same (run, contact, step) already exists.
func (r *QueueRepository) Enqueue(ctx context.Context, in EnqueueInput, now time.Time) (bool, error) {
	if strings.TrimSpace(in.RunID) == "" {
		return false, appErrors.NewValidation("runId", "required")
	}
	if strings.TrimSpace(in.ContactID) == "" || strings.TrimSpace(in.StepID) == "" {
		return false, appErrors.NewValidation("contactId/stepId", "required")
	}
	if in.ID == "" {
		in.ID = uuid.NewString()
	}
	if in.MaxAttempts <= 0 {
		in.MaxAttempts = model.DefaultMaxAttempts
	}
	payload := in.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	nowMs := model.MillisOf(now)

	query := `
        INSERT INTO queue_items (` + queueItemColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, 'queued', 0, ?, ?, NULL, NULL, ?, '', '', ?, ?)
        ON CONFLICT (run_id, contact_id, step_id) DO NOTHING
    `
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query),
		in.ID, in.RunID, in.CampaignID, in.SenderID, in.ContactID, in.StepID,
		in.MaxAttempts, nullableMillis(in.DueAt), string(payload), nowMs, nowMs,
	)
	if err != nil {
		return false, fmt.Errorf("enqueue queue item: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enqueue rows affected: %w", err)
	}
	return n > 0, nil
}

// ClaimDue leases up to limit due items of running runs to workerID, oldest
// due first. Selection and update happen in one transaction, and every
// update re-checks eligibility, so concurrent callers never receive the
// same item. Re-leasing an expired lease spends one attempt, so an item
// whose holder keeps dying is bounded by maxAttempts like any failure.
func (r *QueueRepository) ClaimDue(ctx context.Context, workerID string, leaseTTL time.Duration, limit int, now time.Time) ([]model.QueueItem, error) {
	workerID = strings.TrimSpace(workerID)
	if workerID == "" {
		return nil, appErrors.NewValidation("workerId", "required")
	}
	if limit <= 0 {
		return nil, appErrors.NewValidation("limit", "must be greater than zero")
	}
	if leaseTTL <= 0 {
		return nil, appErrors.NewValidation("leaseTTL", "must be greater than zero")
	}
	nowMs := model.MillisOf(now)
	leaseUntil := model.MillisOf(now.Add(leaseTTL))

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("start claim transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Expired leases on their last attempt are failed instead of re-leased.
	sweepQuery := `
        UPDATE queue_items
        SET status = 'failed', attempt = attempt + 1, due_at = NULL,
            lease_owner = NULL, lease_until = NULL,
            last_error_code = ?, last_error_message = ?, updated_at = ?
        WHERE status = 'leased' AND lease_until IS NOT NULL AND lease_until < ?
        AND attempt + 1 >= max_attempts`
	if _, err := tx.ExecContext(ctx, r.DB.Rebind(sweepQuery),
		CodeLeaseExpired, leaseExpiredMessage, nowMs, nowMs); err != nil {
		return nil, fmt.Errorf("fail exhausted expired leases: %w", err)
	}

	selectQuery := `
        SELECT q.id
        FROM queue_items q
        JOIN runs r ON r.id = q.run_id
        WHERE r.status = ?
        AND ` + claimablePredicate("q.") + `
        ORDER BY q.due_at ASC NULLS FIRST, q.created_at ASC, q.id ASC
        LIMIT ?`
	if r.DB.Dialect == db.DialectPostgres {
		selectQuery += ` FOR UPDATE OF q SKIP LOCKED`
	}

	rows, err := tx.QueryContext(ctx, r.DB.Rebind(selectQuery),
		string(model.RunStatusRunning), nowMs, nowMs, nowMs, limit)
	if err != nil {
		return nil, fmt.Errorf("select claim candidates: %w", err)
	}
	candidates := make([]string, 0, limit)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("scan claim candidate: %w", err)
		}
		candidates = append(candidates, id)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("iterate claim candidates: %w", err)
	}
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("close claim candidates: %w", err)
	}
	if len(candidates) == 0 {
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("commit empty claim: %w", err)
		}
		return []model.QueueItem{}, nil
	}

	updateQuery := r.DB.Rebind(`
        UPDATE queue_items
        SET
            attempt = CASE WHEN status = 'leased' THEN attempt + 1 ELSE attempt END,
            last_error_code = CASE WHEN status = 'leased' THEN ? ELSE last_error_code END,
            last_error_message = CASE WHEN status = 'leased' THEN ? ELSE last_error_message END,
            status = 'leased', lease_owner = ?, lease_until = ?, updated_at = ?
        WHERE id = ?
        AND ` + claimablePredicate(""))
	readQuery := r.DB.Rebind(`SELECT ` + queueItemColumns + ` FROM queue_items WHERE id = ?`)

	claimed := make([]model.QueueItem, 0, len(candidates))
	for _, id := range candidates {
		res, err := tx.ExecContext(ctx, updateQuery,
			CodeLeaseExpired, leaseExpiredMessage, workerID, leaseUntil, nowMs, id, nowMs, nowMs, nowMs)
		if err != nil {
			return nil, fmt.Errorf("lease queue item %s: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("lease rows affected for %s: %w", id, err)
		}
		if n == 0 {
			continue
		}
		item, err := scanQueueItem(tx.QueryRowContext(ctx, readQuery, id).Scan)
		if err != nil {
			return nil, fmt.Errorf("read leased queue item %s: %w", id, err)
		}
		claimed = append(claimed, item)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return claimed, nil
}

// MarkDone completes an item leased by workerID. It reports false when the
// lease was lost or the item no longer exists. Error fields from earlier
// attempts are kept.
func (r *QueueRepository) MarkDone(ctx context.Context, id, workerID string, now time.Time) (bool, error) {
	query := `
        UPDATE queue_items
        SET status = 'done', lease_owner = NULL, lease_until = NULL, updated_at = ?
        WHERE id = ? AND ` + leaseFence
	nowMs := model.MillisOf(now)
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), nowMs, id, workerID, nowMs)
	if err != nil {
		return false, fmt.Errorf("mark queue item done: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark done rows affected: %w", err)
	}
	return n > 0, nil
}

// MarkFailedOrRetry records a failed attempt on an item leased by workerID.
// The item goes back to queued with dueAt=nextDueAt, or to failed once the
// attempt count reaches maxAttempts. Like MarkDone it is fenced by the
// lease and reports false instead of failing when the write is not applied.
func (r *QueueRepository) MarkFailedOrRetry(ctx context.Context, id, workerID, code, message string, nextDueAt, now time.Time) (bool, error) {
	query := `
        UPDATE queue_items
        SET
            status = CASE WHEN attempt + 1 >= max_attempts THEN 'failed' ELSE 'queued' END,
            due_at = CASE WHEN attempt + 1 >= max_attempts THEN NULL ELSE CAST(? AS BIGINT) END,
            attempt = attempt + 1,
            lease_owner = NULL,
            lease_until = NULL,
            last_error_code = ?,
            last_error_message = ?,
            updated_at = ?
        WHERE id = ? AND ` + leaseFence
	nowMs := model.MillisOf(now)
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query),
		nullableMillis(nextDueAt), code, message, nowMs, id, workerID, nowMs)
	if err != nil {
		return false, fmt.Errorf("mark queue item failed or retry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark failed rows affected: %w", err)
	}
	return n > 0, nil
}

func (r *QueueRepository) GetByID(ctx context.Context, id string) (*model.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE id = ?`
	item, err := scanQueueItem(r.DB.QueryRowContext(ctx, r.DB.Rebind(query), id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewQueueItemNotFound(id)
		}
		return nil, fmt.Errorf("get queue item: %w", err)
	}
	return &item, nil
}

// List returns items oldest due first, optionally narrowed to one run or
// status. Limit defaults to 50 and is capped at 500.
func (r *QueueRepository) List(ctx context.Context, filter QueueFilter) ([]model.QueueItem, error) {
	query := `SELECT ` + queueItemColumns + ` FROM queue_items WHERE 1=1`
	args := []any{}
	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY due_at ASC NULLS FIRST, created_at ASC, id ASC LIMIT ?`
	args = append(args, clampLimit(filter.Limit, 50, 500))

	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("list queue items: %w", err)
	}
	defer rows.Close()

	items := []model.QueueItem{}
	for rows.Next() {
		item, err := scanQueueItem(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *QueueRepository) CountByStatus(ctx context.Context, runID string) (map[model.QueueItemStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM queue_items WHERE run_id = ? GROUP BY status`
	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(query), runID)
	if err != nil {
		return nil, fmt.Errorf("count queue items: %w", err)
	}
	defer rows.Close()

	counts := map[model.QueueItemStatus]int{
		model.QueueItemQueued: 0,
		model.QueueItemLeased: 0,
		model.QueueItemDone:   0,
		model.QueueItemFailed: 0,
	}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan queue count: %w", err)
		}
		counts[model.QueueItemStatus(status)] = n
	}
	return counts, rows.Err()
}

func scanQueueItem(scan rowScanner) (model.QueueItem, error) {
	var (
		item       model.QueueItem
		status     string
		dueAt      sql.NullInt64
		leaseOwner sql.NullString
		leaseUntil sql.NullInt64
		payload    string
		createdAt  int64
		updatedAt  int64
	)
	err := scan(
		&item.ID, &item.RunID, &item.CampaignID, &item.SenderID, &item.ContactID, &item.StepID,
		&status, &item.Attempt, &item.MaxAttempts,
		&dueAt, &leaseOwner, &leaseUntil, &payload,
		&item.LastErrorCode, &item.LastErrorMessage, &createdAt, &updatedAt,
	)
	if err != nil {
		return model.QueueItem{}, err
	}
	item.Status = model.QueueItemStatus(status)
	item.DueAt = int64Ptr(dueAt)
	item.LeaseOwner = stringPtr(leaseOwner)
	item.LeaseUntil = int64Ptr(leaseUntil)
	item.Payload = []byte(payload)
	item.CreatedAt = model.TimeOfMillis(createdAt)
	item.UpdatedAt = model.TimeOfMillis(updatedAt)
	return item, nil
}

var _ QueueRepositoryInterface = (*QueueRepository)(nil)
