package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach/internal/db"
	appErrors "github.com/unclebandit/outreach/internal/errors"
	"github.com/unclebandit/outreach/internal/model"
)

// SegmentRepositoryInterface stores the rule sets campaigns target.
type SegmentRepositoryInterface interface {
	Create(ctx context.Context, s *model.Segment) error
	GetByID(ctx context.Context, id string) (*model.Segment, error)
	List(ctx context.Context, archived bool) ([]*model.Segment, error)
	Archive(ctx context.Context, id string) error
}

type SegmentRepository struct {
	DB *db.DB
}

const segmentColumns = `id, name, description, mode, rules_json, is_archived, created_at, updated_at`

// Create validates every rule before storing the segment.
func (r *SegmentRepository) Create(ctx context.Context, s *model.Segment) error {
	for i, rule := range s.Rules {
		if err := rule.Validate(); err != nil {
			return appErrors.NewValidation(fmt.Sprintf("rules[%d]", i), err.Error())
		}
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if strings.TrimSpace(s.Name) == "" {
		s.Name = "New segment"
	}
	s.Mode = model.ParseRunMode(string(s.Mode))
	if s.Rules == nil {
		s.Rules = []model.SegmentRule{}
	}
	s.IsArchived = false
	now := time.Now().UTC()
	s.CreatedAt = now
	s.UpdatedAt = now

	rules, err := json.Marshal(s.Rules)
	if err != nil {
		return fmt.Errorf("encode segment rules: %w", err)
	}

	query := `
        INSERT INTO segments (` + segmentColumns + `)
        VALUES (?, ?, ?, ?, ?, 0, ?, ?)
    `
	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(query),
		s.ID, s.Name, s.Description, string(s.Mode), string(rules),
		model.MillisOf(s.CreatedAt), model.MillisOf(s.UpdatedAt))
	if err != nil {
		return fmt.Errorf("create segment: %w", err)
	}
	return nil
}

func (r *SegmentRepository) GetByID(ctx context.Context, id string) (*model.Segment, error) {
	query := `SELECT ` + segmentColumns + ` FROM segments WHERE id = ?`
	s, err := scanSegment(r.DB.QueryRowContext(ctx, r.DB.Rebind(query), id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewSegmentNotFound(id)
		}
		return nil, fmt.Errorf("get segment: %w", err)
	}
	return s, nil
}

func (r *SegmentRepository) List(ctx context.Context, archived bool) ([]*model.Segment, error) {
	query := `SELECT ` + segmentColumns + ` FROM segments WHERE is_archived = ? ORDER BY updated_at DESC, id DESC`
	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(query), boolInt(archived))
	if err != nil {
		return nil, fmt.Errorf("list segments: %w", err)
	}
	defer rows.Close()

	segments := []*model.Segment{}
	for rows.Next() {
		s, err := scanSegment(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan segment: %w", err)
		}
		segments = append(segments, s)
	}
	return segments, rows.Err()
}

// Archive hides a segment from the default listing. Campaigns that already
// reference it keep using its rules.
func (r *SegmentRepository) Archive(ctx context.Context, id string) error {
	query := `UPDATE segments SET is_archived = 1, updated_at = ? WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), model.MillisOf(time.Now()), id)
	if err != nil {
		return fmt.Errorf("archive segment: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive segment rows affected: %w", err)
	}
	if n == 0 {
		return appErrors.NewSegmentNotFound(id)
	}
	return nil
}

func scanSegment(scan rowScanner) (*model.Segment, error) {
	var (
		s         model.Segment
		mode      string
		rules     string
		archived  int
		createdAt int64
		updatedAt int64
	)
	if err := scan(&s.ID, &s.Name, &s.Description, &mode, &rules, &archived, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	s.Mode = model.RunMode(mode)
	s.IsArchived = archived != 0
	s.CreatedAt = model.TimeOfMillis(createdAt)
	s.UpdatedAt = model.TimeOfMillis(updatedAt)
	if err := json.Unmarshal([]byte(rules), &s.Rules); err != nil || s.Rules == nil {
		s.Rules = []model.SegmentRule{}
	}
	return &s, nil
}

var _ SegmentRepositoryInterface = (*SegmentRepository)(nil)
