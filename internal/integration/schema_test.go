// internal/integration/schema_test.go
package integration

import (
	"testing"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validVapiPayload() map[string]interface{} {
	return map[string]interface{}{
		"apiKey":       "vapi-key-123",
		"assistantId":  "asst_01",
		"organization": "org_42",
		"phoneNumber":  "+15551234567",
	}
}

func validTwilioPayload() map[string]interface{} {
	return map[string]interface{}{
		"accountSid":  "AC00000000000000000000000000000000",
		"authToken":   "token-secret",
		"phoneNumber": "+15551234567",
	}
}

func validSendGridPayload() map[string]interface{} {
	return map[string]interface{}{
		"apiKey":    "SG.abc123",
		"fromEmail": "outreach@example.com",
	}
}

func TestValidateConfig_ValidPayloads(t *testing.T) {
	assert.NoError(t, ValidateConfig(models.ProviderVapi, validVapiPayload()))
	assert.NoError(t, ValidateConfig(models.ProviderTwilio, validTwilioPayload()))
	assert.NoError(t, ValidateConfig(models.ProviderSendGrid, validSendGridPayload()))
}

func TestValidateConfig_MissingRequiredField(t *testing.T) {
	payload := validVapiPayload()
	delete(payload, "apiKey")

	err := ValidateConfig(models.ProviderVapi, payload)
	require.Error(t, err)

	stdErr := errors.AsStandard(err)
	assert.Equal(t, errors.ErrCodeValidationFailed, stdErr.Code)
	require.NotEmpty(t, stdErr.Fields)
	assert.Equal(t, "apiKey", stdErr.Fields[0].Field)
}

func TestValidateConfig_TwilioAccountSidPattern(t *testing.T) {
	payload := validTwilioPayload()
	payload["accountSid"] = "not-an-account-sid"

	err := ValidateConfig(models.ProviderTwilio, payload)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
}

func TestValidateConfig_SendGridEmailFormat(t *testing.T) {
	payload := validSendGridPayload()
	payload["fromEmail"] = "not-an-email"

	err := ValidateConfig(models.ProviderSendGrid, payload)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
}

func TestValidateConfig_RejectsUnknownFields(t *testing.T) {
	payload := validVapiPayload()
	payload["totallyUnknown"] = "value"

	err := ValidateConfig(models.ProviderVapi, payload)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
}

func TestValidateConfig_UnknownProvider(t *testing.T) {
	err := ValidateConfig(models.Provider("mailchimp"), map[string]interface{}{})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeValidationFailed))
}

func TestSensitiveFields(t *testing.T) {
	assert.Equal(t, []string{"apiKey"}, SensitiveFields(models.ProviderVapi))
	assert.Equal(t, []string{"authToken"}, SensitiveFields(models.ProviderTwilio))
	assert.Equal(t, []string{"apiKey"}, SensitiveFields(models.ProviderSendGrid))
}
