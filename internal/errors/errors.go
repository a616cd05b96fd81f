// internal/errors/errors.go
package appErrors

import (
	"errors"
	"fmt"
)

// Stable error codes surfaced to API callers and recorded on runs.
const (
	CodeRunNotFound       = "RUN_NOT_FOUND"
	CodeCampaignNotFound  = "CAMPAIGN_NOT_FOUND"
	CodeRunInvalidState   = "RUN_INVALID_STATE"
	CodeQueueItemNotFound = "QUEUE_ITEM_NOT_FOUND"
	CodeSegmentNotFound   = "SEGMENT_NOT_FOUND"
	CodeSenderNotFound    = "SENDER_NOT_FOUND"
	CodeSenderExists      = "SENDER_ALREADY_EXISTS"
	CodeValidation        = "VALIDATION_ERROR"
	CodeInternal          = "INTERNAL_ERROR"
)

// Coded is implemented by every error in this package.
type Coded interface {
	error
	Code() string
}

// ErrRunNotFound is returned when a run id does not resolve.
type ErrRunNotFound struct {
	RunID string
}

func (e *ErrRunNotFound) Error() string {
	return fmt.Sprintf("run with ID %s not found", e.RunID)
}

func (e *ErrRunNotFound) Code() string { return CodeRunNotFound }

// Helper constructor
func NewRunNotFound(id string) error {
	return &ErrRunNotFound{RunID: id}
}

// ErrCampaignNotFound is returned when a run references a missing campaign.
type ErrCampaignNotFound struct {
	CampaignID string
}

func (e *ErrCampaignNotFound) Error() string {
	return fmt.Sprintf("campaign with ID %s not found", e.CampaignID)
}

func (e *ErrCampaignNotFound) Code() string { return CodeCampaignNotFound }

func NewCampaignNotFound(id string) error {
	return &ErrCampaignNotFound{CampaignID: id}
}

// ErrInvalidRunState is returned when an operation is not allowed from the
// run's current status. The run is left untouched.
type ErrInvalidRunState struct {
	RunID     string
	Status    string
	Operation string
}

func (e *ErrInvalidRunState) Error() string {
	return fmt.Sprintf("run %s cannot %s from status %s", e.RunID, e.Operation, e.Status)
}

func (e *ErrInvalidRunState) Code() string { return CodeRunInvalidState }

func NewInvalidRunState(id, status, operation string) error {
	return &ErrInvalidRunState{RunID: id, Status: status, Operation: operation}
}

type ErrQueueItemNotFound struct {
	ItemID string
}

func (e *ErrQueueItemNotFound) Error() string {
	return fmt.Sprintf("queue item with ID %s not found", e.ItemID)
}

func (e *ErrQueueItemNotFound) Code() string { return CodeQueueItemNotFound }

func NewQueueItemNotFound(id string) error {
	return &ErrQueueItemNotFound{ItemID: id}
}

type ErrSegmentNotFound struct {
	SegmentID string
}

func (e *ErrSegmentNotFound) Error() string {
	return fmt.Sprintf("segment with ID %s not found", e.SegmentID)
}

func (e *ErrSegmentNotFound) Code() string { return CodeSegmentNotFound }

func NewSegmentNotFound(id string) error {
	return &ErrSegmentNotFound{SegmentID: id}
}

type ErrSenderNotFound struct {
	SenderID string
}

func (e *ErrSenderNotFound) Error() string {
	return fmt.Sprintf("sender with ID %s not found", e.SenderID)
}

func (e *ErrSenderNotFound) Code() string { return CodeSenderNotFound }

func NewSenderNotFound(id string) error {
	return &ErrSenderNotFound{SenderID: id}
}

// ErrSenderExists is returned when a sender id is registered twice.
type ErrSenderExists struct {
	SenderID string
}

func (e *ErrSenderExists) Error() string {
	return fmt.Sprintf("sender with ID %s already exists", e.SenderID)
}

func (e *ErrSenderExists) Code() string { return CodeSenderExists }

func NewSenderExists(id string) error {
	return &ErrSenderExists{SenderID: id}
}

// ErrValidation rejects malformed caller input such as a missing identifier.
type ErrValidation struct {
	Field  string
	Reason string
}

func (e *ErrValidation) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *ErrValidation) Code() string { return CodeValidation }

func NewValidation(field, reason string) error {
	return &ErrValidation{Field: field, Reason: reason}
}

// CodeOf returns the code of the first coded error in err's chain, or
// CodeInternal when there is none.
func CodeOf(err error) string {
	if err == nil {
		return ""
	}
	var coded Coded
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return CodeInternal
}

// IsNotFound reports whether err is one of the not-found errors.
func IsNotFound(err error) bool {
	switch CodeOf(err) {
	case CodeRunNotFound, CodeCampaignNotFound, CodeQueueItemNotFound, CodeSegmentNotFound, CodeSenderNotFound:
		return true
	}
	return false
}
