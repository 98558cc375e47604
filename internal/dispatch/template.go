// internal/dispatch/template.go
package dispatch

import (
	"fmt"
	"strings"

	"campaign-engine/internal/models"
)

// RenderTemplate fills {{placeholder}} fields in a template body with
// property record data. Unknown placeholders are left in place so a bad
// template is visible in the output rather than silently blanked.
func RenderTemplate(body string, rec *models.PropertyRecord) string {
	replacer := strings.NewReplacer(
		"{{address}}", rec.Address,
		"{{city}}", rec.City,
		"{{state}}", rec.State,
		"{{owner_name}}", rec.OwnerName,
		"{{property_type}}", rec.PropertyType,
		"{{assessed_value}}", fmt.Sprintf("%.0f", rec.AssessedValue),
	)
	return replacer.Replace(body)
}

// defaultSMSBody is used when a campaign has no template attached.
func defaultSMSBody(rec *models.PropertyRecord) string {
	return fmt.Sprintf("Hi %s, I'm reaching out about your property at %s in %s. Would you be open to a conversation?",
		rec.OwnerName, rec.Address, rec.City)
}

// defaultEmailSubject and defaultEmailBody back templateless email sends.
func defaultEmailSubject(rec *models.PropertyRecord) string {
	return fmt.Sprintf("Regarding your property at %s", rec.Address)
}

func defaultEmailBody(rec *models.PropertyRecord) string {
	return fmt.Sprintf("Hello %s,\n\nI wanted to reach out about your %s property at %s, %s, %s. If you have a few minutes I'd love to connect.\n",
		rec.OwnerName, rec.PropertyType, rec.Address, rec.City, rec.State)
}

// defaultVoiceGreeting opens a templateless voice call.
func defaultVoiceGreeting(rec *models.PropertyRecord) string {
	return fmt.Sprintf("Hi %s, I'm calling about your property at %s in %s.",
		rec.OwnerName, rec.Address, rec.City)
}
