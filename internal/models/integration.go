// internal/models/integration.go
package models

import "time"

// Provider identifies a supported third-party integration.
type Provider string

const (
	ProviderVapi     Provider = "vapi"
	ProviderTwilio   Provider = "twilio"
	ProviderSendGrid Provider = "sendgrid"
)

// Providers lists every supported provider, in dashboard display order.
var Providers = []Provider{ProviderVapi, ProviderTwilio, ProviderSendGrid}

// Valid reports whether p is a known provider.
func (p Provider) Valid() bool {
	switch p {
	case ProviderVapi, ProviderTwilio, ProviderSendGrid:
		return true
	}
	return false
}

// TestStatus is the outcome of the last connectivity test.
type TestStatus string

const (
	TestUnknown TestStatus = "unknown"
	TestPassed  TestStatus = "passed"
	TestFailed  TestStatus = "failed"
)

// IntegrationConfig is one user's configuration for one provider. Sensitive
// fields inside Config are sealed by the vault; they are only decrypted at
// the moment a provider call is made.
type IntegrationConfig struct {
	ID         string                 `db:"id" json:"id"`
	UserID     string                 `db:"user_id" json:"user_id"`
	Provider   Provider               `db:"provider" json:"provider"`
	Config     map[string]interface{} `db:"config" json:"config"`
	IsActive   bool                   `db:"is_active" json:"is_active"`
	LastTested *time.Time             `db:"last_tested" json:"last_tested,omitempty"`
	TestStatus TestStatus             `db:"test_status" json:"test_status"`
	ErrorCount int                    `db:"error_count" json:"error_count"`
	UpdatedAt  time.Time              `db:"updated_at" json:"updated_at"`
}

// IntegrationStatus is the aggregate row shown on the integrations dashboard.
type IntegrationStatus struct {
	Provider      Provider   `json:"provider"`
	IsActive      bool       `json:"is_active"`
	LastTested    *time.Time `json:"last_tested,omitempty"`
	StatusMessage string     `json:"status_message"`
	ErrorCount    int        `json:"error_count"`
}

// VapiConfig is the typed configuration for the VAPI voice provider.
type VapiConfig struct {
	APIKey       string `json:"apiKey"`
	AssistantID  string `json:"assistantId"`
	Organization string `json:"organization"`
	PhoneNumber  string `json:"phoneNumber"`
	WebhookURL   string `json:"webhookUrl,omitempty"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

// TwilioConfig is the typed configuration for the Twilio SMS provider.
type TwilioConfig struct {
	AccountSID          string `json:"accountSid"`
	AuthToken           string `json:"authToken"`
	PhoneNumber         string `json:"phoneNumber"`
	MessagingServiceSID string `json:"messagingServiceSid,omitempty"`
	WebhookURL          string `json:"webhookUrl,omitempty"`
	CustomMessage       string `json:"customMessage,omitempty"`
}

// SendGridConfig is the typed configuration for the SendGrid email provider.
type SendGridConfig struct {
	APIKey        string `json:"apiKey"`
	FromEmail     string `json:"fromEmail"`
	FromName      string `json:"fromName,omitempty"`
	TemplateID    string `json:"templateId,omitempty"`
	WebhookURL    string `json:"webhookUrl,omitempty"`
	CustomSubject string `json:"customSubject,omitempty"`
}
