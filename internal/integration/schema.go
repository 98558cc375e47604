// internal/integration/schema.go
package integration

import (
	"fmt"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

// Each provider has a disjoint config schema. Validation failures surface
// as field-level VALIDATION_FAILED errors, never as panics or 500s.

const vapiSchema = `{
	"type": "object",
	"required": ["apiKey", "assistantId", "organization", "phoneNumber"],
	"properties": {
		"apiKey":       {"type": "string", "minLength": 1},
		"assistantId":  {"type": "string", "minLength": 1},
		"organization": {"type": "string", "minLength": 1},
		"phoneNumber":  {"type": "string", "minLength": 1},
		"webhookUrl":   {"type": "string", "pattern": "^https?://"},
		"customPrompt": {"type": "string"}
	},
	"additionalProperties": false
}`

const twilioSchema = `{
	"type": "object",
	"required": ["accountSid", "authToken", "phoneNumber"],
	"properties": {
		"accountSid":          {"type": "string", "pattern": "^AC[0-9a-fA-F]{32}$"},
		"authToken":           {"type": "string", "minLength": 1},
		"phoneNumber":         {"type": "string", "minLength": 1},
		"messagingServiceSid": {"type": "string"},
		"webhookUrl":          {"type": "string", "pattern": "^https?://"},
		"customMessage":       {"type": "string"}
	},
	"additionalProperties": false
}`

const sendgridSchema = `{
	"type": "object",
	"required": ["apiKey", "fromEmail"],
	"properties": {
		"apiKey":        {"type": "string", "minLength": 1},
		"fromEmail":     {"type": "string", "format": "email"},
		"fromName":      {"type": "string"},
		"templateId":    {"type": "string"},
		"webhookUrl":    {"type": "string", "pattern": "^https?://"},
		"customSubject": {"type": "string"}
	},
	"additionalProperties": false
}`

var providerSchemas = map[models.Provider]*gojsonschema.Schema{}

// sensitiveFields lists the config keys sealed by the vault before persistence.
var sensitiveFields = map[models.Provider][]string{
	models.ProviderVapi:     {"apiKey"},
	models.ProviderTwilio:   {"authToken"},
	models.ProviderSendGrid: {"apiKey"},
}

func init() {
	raw := map[models.Provider]string{
		models.ProviderVapi:     vapiSchema,
		models.ProviderTwilio:   twilioSchema,
		models.ProviderSendGrid: sendgridSchema,
	}
	for provider, schemaJSON := range raw {
		schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(schemaJSON))
		if err != nil {
			panic(fmt.Sprintf("invalid %s config schema: %v", provider, err))
		}
		providerSchemas[provider] = schema
	}
}

// ValidateConfig checks rawConfig against the provider's schema and returns
// a VALIDATION_FAILED error carrying one FieldError per violation.
func ValidateConfig(provider models.Provider, rawConfig map[string]interface{}) error {
	schema, exists := providerSchemas[provider]
	if !exists {
		return errors.NewValidationError("unknown provider", []errors.FieldError{
			{Field: "provider", Message: fmt.Sprintf("unsupported provider %q", provider)},
		})
	}

	result, err := schema.Validate(gojsonschema.NewGoLoader(rawConfig))
	if err != nil {
		return errors.NewValidationError("config is not a valid object", []errors.FieldError{
			{Field: "config", Message: err.Error()},
		})
	}

	if result.Valid() {
		return nil
	}

	fields := make([]errors.FieldError, 0, len(result.Errors()))
	for _, resultErr := range result.Errors() {
		field := resultErr.Field()
		if field == "(root)" {
			if prop, ok := resultErr.Details()["property"].(string); ok {
				field = prop
			}
		}
		fields = append(fields, errors.FieldError{
			Field:   field,
			Message: resultErr.Description(),
		})
	}

	return errors.NewValidationError(fmt.Sprintf("invalid %s configuration", provider), fields)
}

// SensitiveFields returns the config keys that must be sealed for a provider.
func SensitiveFields(provider models.Provider) []string {
	return sensitiveFields[provider]
}
