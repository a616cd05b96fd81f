// internal/model/run.go
package model

import "time"

type RunMode string

const (
	RunModeCold RunMode = "cold"
	RunModeWarm RunMode = "warm"
)

// ParseRunMode maps anything but "warm" to cold.
func ParseRunMode(s string) RunMode {
	if RunMode(s) == RunModeWarm {
		return RunModeWarm
	}
	return RunModeCold
}

type RunStatus string

const (
	RunStatusCreated   RunStatus = "created"
	RunStatusQueued    RunStatus = "queued"
	RunStatusRunning   RunStatus = "running"
	RunStatusPaused    RunStatus = "paused"
	RunStatusStopped   RunStatus = "stopped"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Pause reasons recorded by the orchestrator itself.
const (
	PausedReasonPlanningError = "planning_error"
	PausedReasonManual        = "manual"
)

var runTransitions = map[RunStatus][]RunStatus{
	RunStatusCreated: {RunStatusRunning, RunStatusStopped},
	RunStatusRunning: {RunStatusPaused, RunStatusStopped, RunStatusCompleted, RunStatusFailed},
	RunStatusPaused:  {RunStatusRunning, RunStatusStopped},
}

// Terminal reports whether no transition leaves the status.
func (s RunStatus) Terminal() bool {
	switch s {
	case RunStatusStopped, RunStatusCompleted, RunStatusFailed:
		return true
	}
	return false
}

// CanTransition reports whether a run may move from one status to another.
func CanTransition(from, to RunStatus) bool {
	for _, next := range runTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type RunTotals struct {
	Total   int `json:"total"`
	Sent    int `json:"sent"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Replied int `json:"replied"`
}

type Run struct {
	ID           string    `db:"id" json:"id"`
	CampaignID   string    `db:"campaign_id" json:"campaignId"`
	SenderID     string    `db:"sender_id" json:"senderId"`
	Mode         RunMode   `db:"mode" json:"mode"`
	Status       RunStatus `db:"status" json:"status"`
	PausedReason string    `db:"paused_reason" json:"pausedReason,omitempty"`
	StopReason   string    `db:"stop_reason" json:"stopReason,omitempty"`
	LastError    string    `db:"last_error" json:"lastError,omitempty"`
	Totals       RunTotals `json:"totals"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt    time.Time `db:"updated_at" json:"updatedAt"`
}

// RunUpdate is applied together with a status change. Nil fields keep
// their current value; a pointer to "" clears the field.
type RunUpdate struct {
	Status       RunStatus
	PausedReason *string
	StopReason   *string
	LastError    *string
}
