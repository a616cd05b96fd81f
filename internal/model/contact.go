// internal/model/contact.go
package model

import "time"

type ContactStatus string

const (
	ContactStatusActive   ContactStatus = "active"
	ContactStatusBlocked  ContactStatus = "blocked"
	ContactStatusInvalid  ContactStatus = "invalid"
	ContactStatusOptedOut ContactStatus = "opted_out"
)

type Contact struct {
	ID          string        `db:"id" json:"id"`
	DisplayName string        `db:"display_name" json:"displayName"`
	PhoneE164   string        `db:"phone_e164" json:"phoneE164"`
	Channel     string        `db:"channel" json:"channel"`
	Status      ContactStatus `db:"status" json:"status"`
	Tags        []string      `db:"tags_json" json:"tags"`
	CreatedAt   time.Time     `db:"created_at" json:"createdAt"`
}
