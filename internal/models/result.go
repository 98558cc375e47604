// internal/models/result.go
package models

import "time"

// ResultStatus is the delivery state of one (campaign, record, channel) row.
type ResultStatus string

const (
	ResultPending   ResultStatus = "pending"
	ResultSent      ResultStatus = "sent"
	ResultDelivered ResultStatus = "delivered"
	ResultFailed    ResultStatus = "failed"
	ResultResponded ResultStatus = "responded"
)

// DefaultMaxRetries bounds dispatch attempts per result.
const DefaultMaxRetries = 3

// CampaignResult tracks the delivery of one record over its assigned channel.
type CampaignResult struct {
	ID           string                 `db:"id" json:"id"`
	CampaignID   string                 `db:"campaign_id" json:"campaign_id"`
	RecordID     string                 `db:"record_id" json:"record_id"`
	Channel      Channel                `db:"channel" json:"channel"`
	Status       ResultStatus           `db:"status" json:"status"`
	SentAt       *time.Time             `db:"sent_at" json:"sent_at,omitempty"`
	DeliveredAt  *time.Time             `db:"delivered_at" json:"delivered_at,omitempty"`
	RespondedAt  *time.Time             `db:"responded_at" json:"responded_at,omitempty"`
	RetryCount   int                    `db:"retry_count" json:"retry_count"`
	MaxRetries   int                    `db:"max_retries" json:"max_retries"`
	ErrorMessage string                 `db:"error_message" json:"error_message,omitempty"`
	Metadata     map[string]interface{} `db:"metadata" json:"metadata,omitempty"`
}

// RetriesExhausted reports whether another dispatch attempt is allowed.
func (r *CampaignResult) RetriesExhausted() bool {
	return r.RetryCount >= r.MaxRetries
}
