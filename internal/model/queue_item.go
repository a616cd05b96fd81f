// internal/model/queue_item.go
package model

import (
	"encoding/json"
	"time"
)

type QueueItemStatus string

const (
	QueueItemQueued QueueItemStatus = "queued"
	QueueItemLeased QueueItemStatus = "leased"
	QueueItemDone   QueueItemStatus = "done"
	QueueItemFailed QueueItemStatus = "failed"
)

// DefaultMaxAttempts applies when the enqueuer does not set one.
const DefaultMaxAttempts = 5

// QueueItem is one attempt-sequence of one campaign step for one contact
// within one run. DueAt and LeaseUntil are epoch milliseconds.
type QueueItem struct {
	ID               string          `db:"id" json:"id"`
	RunID            string          `db:"run_id" json:"runId"`
	CampaignID       string          `db:"campaign_id" json:"campaignId"`
	SenderID         string          `db:"sender_id" json:"senderId"`
	ContactID        string          `db:"contact_id" json:"contactId"`
	StepID           string          `db:"step_id" json:"stepId"`
	Status           QueueItemStatus `db:"status" json:"status"`
	Attempt          int             `db:"attempt" json:"attempt"`
	MaxAttempts      int             `db:"max_attempts" json:"maxAttempts"`
	DueAt            *int64          `db:"due_at" json:"dueAt"`
	LeaseOwner       *string         `db:"lease_owner" json:"leaseOwner"`
	LeaseUntil       *int64          `db:"lease_until" json:"leaseUntil"`
	Payload          json.RawMessage `db:"payload_json" json:"payload"`
	LastErrorCode    string          `db:"last_error_code" json:"lastErrorCode,omitempty"`
	LastErrorMessage string          `db:"last_error_message" json:"lastErrorMessage,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time       `db:"updated_at" json:"updatedAt"`
}

// Payload is the snapshot carried by a queue item: rendered text plus the
// contact as it looked at planning time.
type Payload struct {
	Text          string         `json:"text"`
	StepOrder     int            `json:"stepOrder"`
	DelayAfterSec int            `json:"delayAfterSec,omitempty"`
	Contact       PayloadContact `json:"contact"`
}

type PayloadContact struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	PhoneE164   string `json:"phoneE164"`
}

// DecodePayload unmarshals the item's payload snapshot.
func (q *QueueItem) DecodePayload() (Payload, error) {
	var p Payload
	if len(q.Payload) == 0 {
		return p, nil
	}
	err := json.Unmarshal(q.Payload, &p)
	return p, err
}

// MillisOf converts a time to the epoch-millisecond form used in storage.
func MillisOf(t time.Time) int64 {
	return t.UnixMilli()
}

// TimeOfMillis is the inverse of MillisOf.
func TimeOfMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
