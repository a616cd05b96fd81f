package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/unclebandit/outreach/internal/db"
	appErrors "github.com/unclebandit/outreach/internal/errors"
	"github.com/unclebandit/outreach/internal/model"
)

type SenderRepositoryInterface interface {
	Create(ctx context.Context, s *model.SenderAccount) error
	GetByID(ctx context.Context, id string) (*model.SenderAccount, error)
	List(ctx context.Context) ([]*model.SenderAccount, error)
	UpdateState(ctx context.Context, id string, state model.SenderState, code, message string) (*model.SenderAccount, error)
}

// SenderRepository persists sender accounts and their session state.
type SenderRepository struct {
	DB *db.DB
}

const senderColumns = `id, channel, name, state, last_error_code, last_error_message, created_at, updated_at`

// Create registers a sender in needs_login state unless another state is
// given. A duplicate id is reported as SENDER_ALREADY_EXISTS.
func (r *SenderRepository) Create(ctx context.Context, s *model.SenderAccount) error {
	s.ID = strings.TrimSpace(s.ID)
	if s.ID == "" {
		return appErrors.NewValidation("id", "required")
	}
	if strings.TrimSpace(s.Name) == "" {
		return appErrors.NewValidation("name", "required")
	}
	if s.Channel == "" {
		s.Channel = model.DefaultChannel
	}
	if s.State == "" {
		s.State = model.SenderStateNeedsLogin
	}
	if !s.State.Valid() {
		return appErrors.NewValidation("state", fmt.Sprintf("unknown state %q", s.State))
	}
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	query := `
        INSERT INTO senders (` + senderColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT (id) DO NOTHING
    `
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query),
		s.ID, s.Channel, s.Name, string(s.State), s.LastErrorCode, s.LastErrorMessage,
		model.MillisOf(s.CreatedAt), model.MillisOf(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create sender: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create sender rows affected: %w", err)
	}
	if n == 0 {
		return appErrors.NewSenderExists(s.ID)
	}
	return nil
}

func (r *SenderRepository) GetByID(ctx context.Context, id string) (*model.SenderAccount, error) {
	query := `SELECT ` + senderColumns + ` FROM senders WHERE id = ?`
	s, err := scanSender(r.DB.QueryRowContext(ctx, r.DB.Rebind(query), id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewSenderNotFound(id)
		}
		return nil, fmt.Errorf("get sender: %w", err)
	}
	return s, nil
}

// List returns the newest senders first.
func (r *SenderRepository) List(ctx context.Context) ([]*model.SenderAccount, error) {
	query := `SELECT ` + senderColumns + ` FROM senders ORDER BY created_at DESC, id ASC`
	rows, err := r.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list senders: %w", err)
	}
	defer rows.Close()

	senders := []*model.SenderAccount{}
	for rows.Next() {
		s, err := scanSender(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan sender: %w", err)
		}
		senders = append(senders, s)
	}
	return senders, rows.Err()
}

// UpdateState records a session state change. The error fields are
// replaced with the given values, so a move back to connected clears them.
func (r *SenderRepository) UpdateState(ctx context.Context, id string, state model.SenderState, code, message string) (*model.SenderAccount, error) {
	if !state.Valid() {
		return nil, appErrors.NewValidation("state", fmt.Sprintf("unknown state %q", state))
	}
	query := `
        UPDATE senders
        SET state = ?, last_error_code = ?, last_error_message = ?, updated_at = ?
        WHERE id = ?
    `
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query),
		string(state), code, message, model.MillisOf(time.Now()), id)
	if err != nil {
		return nil, fmt.Errorf("update sender state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update sender rows affected: %w", err)
	}
	if n == 0 {
		return nil, appErrors.NewSenderNotFound(id)
	}
	return r.GetByID(ctx, id)
}

func scanSender(scan rowScanner) (*model.SenderAccount, error) {
	var (
		s         model.SenderAccount
		state     string
		createdAt int64
		updatedAt int64
	)
	err := scan(&s.ID, &s.Channel, &s.Name, &state, &s.LastErrorCode, &s.LastErrorMessage, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	s.State = model.SenderState(state)
	s.CreatedAt = model.TimeOfMillis(createdAt)
	s.UpdatedAt = model.TimeOfMillis(updatedAt)
	return &s, nil
}

var _ SenderRepositoryInterface = (*SenderRepository)(nil)
