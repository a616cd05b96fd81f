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

type CampaignRepositoryInterface interface {
	Create(ctx context.Context, c *model.Campaign) error
	GetByID(ctx context.Context, id string) (*model.Campaign, error)
	List(ctx context.Context, archived bool, limit int) ([]*model.Campaign, error)
	Archive(ctx context.Context, id string) error
}

type CampaignRepository struct {
	DB *db.DB
}

const campaignColumns = `id, name, channel, mode, segment_id, steps_json, is_archived, created_at, updated_at`

// ====================== Campaign CRUD ======================

func (r *CampaignRepository) Create(ctx context.Context, c *model.Campaign) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if strings.TrimSpace(c.Channel) == "" {
		c.Channel = model.DefaultChannel
	}
	if c.Mode == "" {
		c.Mode = model.RunModeCold
	}
	if c.Steps == nil {
		c.Steps = []model.Step{}
	}
	c.SegmentID = strings.TrimSpace(c.SegmentID)
	c.IsArchived = false
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	steps, err := json.Marshal(c.Steps)
	if err != nil {
		return fmt.Errorf("encode campaign steps: %w", err)
	}

	query := `
        INSERT INTO campaigns (` + campaignColumns + `)
        VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?)
    `
	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(query),
		c.ID, c.Name, c.Channel, string(c.Mode), c.SegmentID, string(steps),
		model.MillisOf(c.CreatedAt), model.MillisOf(c.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("create campaign: %w", err)
	}
	return nil
}

// GetByID loads a campaign with its steps. Unparseable steps decode to an
// empty list.
func (r *CampaignRepository) GetByID(ctx context.Context, id string) (*model.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = ?`
	c, err := scanCampaign(r.DB.QueryRowContext(ctx, r.DB.Rebind(query), id).Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// List returns either the active or the archived campaigns, most recently
// updated first.
func (r *CampaignRepository) List(ctx context.Context, archived bool, limit int) ([]*model.Campaign, error) {
	query := `
        SELECT ` + campaignColumns + `
        FROM campaigns
        WHERE is_archived = ?
        ORDER BY updated_at DESC, id DESC
        LIMIT ?
    `
	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(query), boolInt(archived), clampLimit(limit, 200, 1000))
	if err != nil {
		return nil, fmt.Errorf("list campaigns: %w", err)
	}
	defer rows.Close()

	campaigns := []*model.Campaign{}
	for rows.Next() {
		c, err := scanCampaign(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan campaign: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// Archive hides a campaign from the default listing. Runs that reference it
// are unaffected.
func (r *CampaignRepository) Archive(ctx context.Context, id string) error {
	query := `UPDATE campaigns SET is_archived = 1, updated_at = ? WHERE id = ?`
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind(query), model.MillisOf(time.Now()), id)
	if err != nil {
		return fmt.Errorf("archive campaign: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("archive campaign rows affected: %w", err)
	}
	if n == 0 {
		return appErrors.NewCampaignNotFound(id)
	}
	return nil
}

func scanCampaign(scan rowScanner) (*model.Campaign, error) {
	var (
		c         model.Campaign
		mode      string
		steps     string
		archived  int
		createdAt int64
		updatedAt int64
	)
	err := scan(&c.ID, &c.Name, &c.Channel, &mode, &c.SegmentID, &steps, &archived, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	c.Mode = model.RunMode(mode)
	c.IsArchived = archived != 0
	c.CreatedAt = model.TimeOfMillis(createdAt)
	c.UpdatedAt = model.TimeOfMillis(updatedAt)
	if err := json.Unmarshal([]byte(steps), &c.Steps); err != nil {
		c.Steps = []model.Step{}
	}
	return &c, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
