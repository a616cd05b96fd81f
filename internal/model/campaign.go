// internal/model/campaign.go
package model

import (
	"sort"
	"time"
)

// DefaultChannel is the messaging channel used when a campaign does not name one.
const DefaultChannel = "whatsapp"

type Campaign struct {
	ID         string    `db:"id" json:"id"`
	Name       string    `db:"name" json:"name"`
	Channel    string    `db:"channel" json:"channel"`
	Mode       RunMode   `db:"mode" json:"mode"`
	SegmentID  string    `db:"segment_id" json:"segmentId,omitempty"`
	Steps      []Step    `db:"steps_json" json:"steps"`
	IsArchived bool      `db:"is_archived" json:"isArchived"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// Step is one message of a campaign sequence.
type Step struct {
	ID            string `json:"id"`
	Order         int    `json:"order"`
	Text          string `json:"text"`
	DelayAfterSec int    `json:"delayAfterSec,omitempty"`
}

// OrderedSteps returns a copy of the steps sorted by Order, keeping the
// stored position for steps that share an order.
func (c *Campaign) OrderedSteps() []Step {
	steps := make([]Step, len(c.Steps))
	copy(steps, c.Steps)
	sort.SliceStable(steps, func(i, j int) bool {
		return steps[i].Order < steps[j].Order
	})
	return steps
}
