// internal/model/sender.go
package model

import "time"

type SenderState string

const (
	SenderStateNeedsLogin   SenderState = "needs_login"
	SenderStateConnected    SenderState = "connected"
	SenderStateDisconnected SenderState = "disconnected"
	SenderStateBlocked      SenderState = "blocked"
)

func (s SenderState) Valid() bool {
	switch s {
	case SenderStateNeedsLogin, SenderStateConnected, SenderStateDisconnected, SenderStateBlocked:
		return true
	}
	return false
}

// CanSend reports whether deliveries may go out through a sender in this state.
func (s SenderState) CanSend() bool {
	return s == SenderStateConnected
}

// SenderAccount is a registered messaging identity and its session state.
type SenderAccount struct {
	ID               string      `db:"id" json:"id"`
	Channel          string      `db:"channel" json:"channel"`
	Name             string      `db:"name" json:"name"`
	State            SenderState `db:"state" json:"state"`
	LastErrorCode    string      `db:"last_error_code" json:"lastErrorCode,omitempty"`
	LastErrorMessage string      `db:"last_error_message" json:"lastErrorMessage,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"createdAt"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updatedAt"`
}
