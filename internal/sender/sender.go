// Package sender delivers leased queue items to a messaging channel.
package sender

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	CodeSenderNotFound = "sender_not_found"
	CodeSendError      = "send_error"
)

// Delivery is what a Sender receives for one queue item attempt.
type Delivery struct {
	ItemID     string          `json:"itemId"`
	RunID      string          `json:"runId"`
	CampaignID string          `json:"campaignId"`
	SenderID   string          `json:"senderId"`
	ContactID  string          `json:"contactId"`
	StepID     string          `json:"stepId"`
	Attempt    int             `json:"attempt"`
	Payload    json.RawMessage `json:"payload"`
}

// Sender transmits one delivery. Returning *Error records its code on the
// queue item; any other error is recorded as send_error.
type Sender interface {
	Send(ctx context.Context, d Delivery) error
}

// SenderFunc adapts a function to Sender.
type SenderFunc func(ctx context.Context, d Delivery) error

func (f SenderFunc) Send(ctx context.Context, d Delivery) error { return f(ctx, d) }

// Error is a structured send failure.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return e.Code + ": " + e.Message
}

func Failf(code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Classify extracts the code and message recorded for a failed send.
func Classify(err error) (code, message string) {
	var se *Error
	if errors.As(err, &se) {
		code = se.Code
		if code == "" {
			code = CodeSendError
		}
		return code, se.Message
	}
	return CodeSendError, err.Error()
}

// Registry dispatches each delivery to the sender named by its SenderID.
// The set of senders is fixed at construction.
type Registry struct {
	senders map[string]Sender
}

func NewRegistry(senders map[string]Sender) *Registry {
	m := make(map[string]Sender, len(senders))
	for id, s := range senders {
		m[id] = s
	}
	return &Registry{senders: m}
}

func (r *Registry) Lookup(id string) (Sender, bool) {
	s, ok := r.senders[id]
	return s, ok
}

func (r *Registry) Send(ctx context.Context, d Delivery) error {
	s, ok := r.senders[d.SenderID]
	if !ok {
		return Failf(CodeSenderNotFound, "no sender registered for %q", d.SenderID)
	}
	return s.Send(ctx, d)
}

var _ Sender = (*Registry)(nil)
