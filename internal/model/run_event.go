// internal/model/run_event.go
package model

import (
	"encoding/json"
	"time"
)

type RunEventType string

const (
	RunEventCreated         RunEventType = "run_created"
	RunEventStarted         RunEventType = "run_started"
	RunEventPaused          RunEventType = "run_paused"
	RunEventResumed         RunEventType = "run_resumed"
	RunEventStopped         RunEventType = "run_stopped"
	RunEventCompleted       RunEventType = "run_completed"
	RunEventFailed          RunEventType = "run_failed"
	RunEventQueuePlanned    RunEventType = "queue_planned"
	RunEventQueuePlanFailed RunEventType = "queue_plan_failed"
)

// RunEvent is an append-only audit record. Seq is assigned by storage and
// gives insertion order when two events share a timestamp.
type RunEvent struct {
	ID      string          `db:"id" json:"id"`
	RunID   string          `db:"run_id" json:"runId"`
	Seq     int64           `db:"seq" json:"seq"`
	TS      time.Time       `db:"ts" json:"ts"`
	Type    RunEventType    `db:"type" json:"type"`
	Message string          `db:"message" json:"message,omitempty"`
	Meta    json.RawMessage `db:"meta_json" json:"meta"`
}
