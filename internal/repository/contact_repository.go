package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/outreach/internal/db"
	appErrors "github.com/unclebandit/outreach/internal/errors"
	"github.com/unclebandit/outreach/internal/model"
)

// ContactRepositoryInterface defines methods used by the planner and API
type ContactRepositoryInterface interface {
	Create(ctx context.Context, c *model.Contact) error
	ListActive(ctx context.Context, channel string) ([]model.Contact, error)
}

// ContactRepository is the concrete implementation
type ContactRepository struct {
	DB *db.DB
}

func (r *ContactRepository) Create(ctx context.Context, c *model.Contact) error {
	if strings.TrimSpace(c.PhoneE164) == "" {
		return appErrors.NewValidation("phoneE164", "required")
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Channel == "" {
		c.Channel = model.DefaultChannel
	}
	if c.Status == "" {
		c.Status = model.ContactStatusActive
	}
	if c.Tags == nil {
		c.Tags = []string{}
	}
	c.CreatedAt = time.Now().UTC()

	tags, err := json.Marshal(c.Tags)
	if err != nil {
		return fmt.Errorf("encode contact tags: %w", err)
	}

	query := `
        INSERT INTO contacts (id, display_name, phone_e164, channel, status, tags_json, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
    `
	_, err = r.DB.ExecContext(ctx, r.DB.Rebind(query),
		c.ID, c.DisplayName, c.PhoneE164, c.Channel, string(c.Status), string(tags), model.MillisOf(c.CreatedAt))
	if err != nil {
		return fmt.Errorf("create contact: %w", err)
	}
	return nil
}

// ListActive fetches the active contacts of one channel in creation order.
func (r *ContactRepository) ListActive(ctx context.Context, channel string) ([]model.Contact, error) {
	query := `
        SELECT id, display_name, phone_e164, channel, status, tags_json, created_at
        FROM contacts
        WHERE channel = ? AND status = ?
        ORDER BY created_at ASC, id ASC
    `
	rows, err := r.DB.QueryContext(ctx, r.DB.Rebind(query), channel, string(model.ContactStatusActive))
	if err != nil {
		return nil, fmt.Errorf("list active contacts: %w", err)
	}
	defer rows.Close()

	contacts := []model.Contact{}
	for rows.Next() {
		c, err := scanContact(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

func scanContact(scan rowScanner) (model.Contact, error) {
	var (
		c         model.Contact
		status    string
		tags      string
		createdAt int64
	)
	if err := scan(&c.ID, &c.DisplayName, &c.PhoneE164, &c.Channel, &status, &tags, &createdAt); err != nil {
		return model.Contact{}, err
	}
	c.Status = model.ContactStatus(status)
	c.Tags = decodeStrings(tags)
	c.CreatedAt = model.TimeOfMillis(createdAt)
	return c, nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)
