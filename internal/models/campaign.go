// internal/models/campaign.go
package models

import (
	"time"

	"github.com/lib/pq"
)

// CampaignStatus is the lifecycle state of a campaign.
type CampaignStatus string

const (
	CampaignPending   CampaignStatus = "pending"
	CampaignActive    CampaignStatus = "active"
	CampaignPaused    CampaignStatus = "paused"
	CampaignCompleted CampaignStatus = "completed"
	CampaignCancelled CampaignStatus = "cancelled"
	CampaignFailed    CampaignStatus = "failed"
)

// IsTerminal reports whether no further transitions are allowed.
func (s CampaignStatus) IsTerminal() bool {
	switch s {
	case CampaignCompleted, CampaignCancelled, CampaignFailed:
		return true
	}
	return false
}

type CampaignType string

const (
	TypeManual    CampaignType = "manual"
	TypeScheduled CampaignType = "scheduled"
	TypeAutomated CampaignType = "automated"
)

type CampaignPriority string

const (
	PriorityLow    CampaignPriority = "low"
	PriorityNormal CampaignPriority = "normal"
	PriorityHigh   CampaignPriority = "high"
	PriorityUrgent CampaignPriority = "urgent"
)

// Channel identifies one outbound delivery channel.
type Channel string

const (
	ChannelVoice Channel = "voice"
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// ChannelOrder is the fixed priority used when a record could go to more
// than one enabled channel: the first enabled channel in this order wins.
var ChannelOrder = []Channel{ChannelVoice, ChannelSMS, ChannelEmail}

// ChannelSettings is the per-channel part of a campaign's channel plan.
type ChannelSettings struct {
	Enabled  bool                   `json:"enabled"`
	Settings map[string]interface{} `json:"settings,omitempty"`
}

// ChannelPlan declares which channels a campaign runs on.
type ChannelPlan struct {
	Voice *ChannelSettings `json:"voice,omitempty"`
	SMS   *ChannelSettings `json:"sms,omitempty"`
	Email *ChannelSettings `json:"email,omitempty"`
}

// Get returns the settings for a channel, nil if absent.
func (p ChannelPlan) Get(ch Channel) *ChannelSettings {
	switch ch {
	case ChannelVoice:
		return p.Voice
	case ChannelSMS:
		return p.SMS
	case ChannelEmail:
		return p.Email
	}
	return nil
}

// Enabled returns the enabled channels in fixed priority order.
func (p ChannelPlan) Enabled() []Channel {
	var out []Channel
	for _, ch := range ChannelOrder {
		if cs := p.Get(ch); cs != nil && cs.Enabled {
			out = append(out, ch)
		}
	}
	return out
}

// Assign picks the channel a record is dispatched on: the first enabled
// channel in ChannelOrder. ok is false when no channel is enabled.
func (p ChannelPlan) Assign() (Channel, bool) {
	enabled := p.Enabled()
	if len(enabled) == 0 {
		return "", false
	}
	return enabled[0], true
}

// Campaign is a named unit of outbound work targeting a set of property
// records across one or more channels.
type Campaign struct {
	ID           string                 `db:"id" json:"id"`
	UserID       string                 `db:"user_id" json:"user_id"`
	Name         string                 `db:"name" json:"name"`
	Description  string                 `db:"description" json:"description,omitempty"`
	Channels     ChannelPlan            `db:"channels" json:"channels"`
	RecordIDs    pq.StringArray         `db:"record_ids" json:"record_ids"`
	TemplateID   *string                `db:"template_id" json:"template_id,omitempty"`
	ScheduledAt  *time.Time             `db:"scheduled_at" json:"scheduled_at,omitempty"`
	CampaignType CampaignType           `db:"campaign_type" json:"campaign_type"`
	Priority     CampaignPriority       `db:"priority" json:"priority"`
	Status       CampaignStatus         `db:"status" json:"status"`
	TotalRecords int                    `db:"total_records" json:"total_records"`
	Settings     map[string]interface{} `db:"settings" json:"settings,omitempty"`
	CreatedAt    time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time              `db:"updated_at" json:"updated_at"`
}
