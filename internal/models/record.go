// internal/models/record.go
package models

import "time"

// PropertyRecord is the read-only lead record whose fields are interpolated
// into outbound templates. This core never mutates it.
type PropertyRecord struct {
	ID            string    `db:"id" json:"id"`
	Address       string    `db:"address" json:"address"`
	City          string    `db:"city" json:"city"`
	State         string    `db:"state" json:"state"`
	OwnerName     string    `db:"owner_name" json:"owner_name"`
	OwnerPhone    string    `db:"owner_phone" json:"owner_phone"`
	OwnerEmail    string    `db:"owner_email" json:"owner_email"`
	PropertyType  string    `db:"property_type" json:"property_type"`
	AssessedValue float64   `db:"assessed_value" json:"assessed_value"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// MessageTemplate is a reusable outbound message body with {{placeholder}}
// fields filled from PropertyRecord data at dispatch time.
type MessageTemplate struct {
	ID        string    `db:"id" json:"id"`
	UserID    string    `db:"user_id" json:"user_id"`
	Name      string    `db:"name" json:"name"`
	Channel   Channel   `db:"channel" json:"channel"`
	Subject   string    `db:"subject" json:"subject,omitempty"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
