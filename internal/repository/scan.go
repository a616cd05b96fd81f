package repository

import (
	"database/sql"
	"encoding/json"
	"time"

	"github.com/unclebandit/outreach/internal/model"
)

type rowScanner func(dest ...any) error

func nullableMillis(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return model.MillisOf(t)
}

func int64Ptr(v sql.NullInt64) *int64 {
	if !v.Valid {
		return nil
	}
	n := v.Int64
	return &n
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func clampLimit(limit, def, max int) int {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// decodeStrings reads a JSON string array column; anything unparseable is
// an empty list.
func decodeStrings(raw string) []string {
	out := []string{}
	if err := json.Unmarshal([]byte(raw), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
