// internal/model/segment.go
package model

import (
	"fmt"
	"slices"
	"time"
)

// Segment rule fields and operators.
const (
	SegmentFieldStatus  = "status"
	SegmentFieldTags    = "tags"
	SegmentFieldChannel = "channel"

	SegmentOpIn  = "in"
	SegmentOpAny = "any"
	SegmentOpAll = "all"
)

// SegmentRule narrows the contacts a campaign targets. status and channel
// take "in"; tags take "any" or "all".
type SegmentRule struct {
	Field string   `json:"field"`
	Op    string   `json:"op"`
	Value []string `json:"value"`
}

func (r SegmentRule) Validate() error {
	switch r.Field {
	case SegmentFieldStatus, SegmentFieldChannel:
		if r.Op != SegmentOpIn {
			return fmt.Errorf("field %s supports op %q, got %q", r.Field, SegmentOpIn, r.Op)
		}
	case SegmentFieldTags:
		if r.Op != SegmentOpAny && r.Op != SegmentOpAll {
			return fmt.Errorf("field tags supports ops %q and %q, got %q", SegmentOpAny, SegmentOpAll, r.Op)
		}
	default:
		return fmt.Errorf("unknown field %q", r.Field)
	}
	return nil
}

// Matches reports whether the contact satisfies the rule. Rules that fail
// Validate match nothing.
func (r SegmentRule) Matches(c Contact) bool {
	switch {
	case r.Field == SegmentFieldStatus && r.Op == SegmentOpIn:
		return slices.Contains(r.Value, string(c.Status))
	case r.Field == SegmentFieldChannel && r.Op == SegmentOpIn:
		return slices.Contains(r.Value, c.Channel)
	case r.Field == SegmentFieldTags && r.Op == SegmentOpAny:
		for _, tag := range r.Value {
			if slices.Contains(c.Tags, tag) {
				return true
			}
		}
		return false
	case r.Field == SegmentFieldTags && r.Op == SegmentOpAll:
		for _, tag := range r.Value {
			if !slices.Contains(c.Tags, tag) {
				return false
			}
		}
		return true
	}
	return false
}

type Segment struct {
	ID          string        `db:"id" json:"id"`
	Name        string        `db:"name" json:"name"`
	Description string        `db:"description" json:"description,omitempty"`
	Mode        RunMode       `db:"mode" json:"mode"`
	Rules       []SegmentRule `db:"rules_json" json:"rules"`
	IsArchived  bool          `db:"is_archived" json:"isArchived"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time     `db:"updated_at" json:"updatedAt"`
}

// Matches reports whether the contact satisfies every rule. A segment
// without rules matches everyone.
func (s *Segment) Matches(c Contact) bool {
	for _, r := range s.Rules {
		if !r.Matches(c) {
			return false
		}
	}
	return true
}
