// internal/integration/manager.go
package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"campaign-engine/internal/common/cache"
	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/models"
	"campaign-engine/internal/vault"
)

// SaveResult is the outcome of a config save. Persistence failures are
// reported through Success/Message, not as errors, so handlers can always
// render a response body.
type SaveResult struct {
	Success  bool   `json:"success"`
	ConfigID string `json:"configId,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Manager is the façade over the config store and the vault. All reads and
// writes are scoped to the user id passed per call; sensitive fields stay
// sealed everywhere except the Resolve* methods used at dispatch time.
type Manager struct {
	store    *Store
	vault    *vault.Vault
	cache    cache.Cache
	cacheTTL time.Duration
	logger   logger.Logger
}

func NewManager(store *Store, v *vault.Vault, c cache.Cache, cacheTTL time.Duration, log logger.Logger) *Manager {
	return &Manager{
		store:    store,
		vault:    v,
		cache:    c,
		cacheTTL: cacheTTL,
		logger:   log.WithFields(map[string]interface{}{"component": "integration_manager"}),
	}
}

func cacheKey(userID string, provider models.Provider) string {
	return fmt.Sprintf("integration:%s:%s", userID, provider)
}

// SaveVapiConfig validates, seals and upserts a VAPI configuration.
func (m *Manager) SaveVapiConfig(ctx context.Context, userID string, cfg models.VapiConfig) SaveResult {
	return m.saveConfig(ctx, userID, models.ProviderVapi, toMap(cfg))
}

// SaveTwilioConfig validates, seals and upserts a Twilio configuration.
func (m *Manager) SaveTwilioConfig(ctx context.Context, userID string, cfg models.TwilioConfig) SaveResult {
	return m.saveConfig(ctx, userID, models.ProviderTwilio, toMap(cfg))
}

// SaveSendGridConfig validates, seals and upserts a SendGrid configuration.
func (m *Manager) SaveSendGridConfig(ctx context.Context, userID string, cfg models.SendGridConfig) SaveResult {
	return m.saveConfig(ctx, userID, models.ProviderSendGrid, toMap(cfg))
}

// SaveRawConfig validates and saves an untyped config payload, used by the
// HTTP layer where the provider arrives as a path parameter. Validation
// failures come back as an error so the handler can render a 400.
func (m *Manager) SaveRawConfig(ctx context.Context, userID string, provider models.Provider, raw map[string]interface{}) (SaveResult, error) {
	if err := ValidateConfig(provider, raw); err != nil {
		return SaveResult{}, err
	}
	return m.sealAndStore(ctx, userID, provider, raw), nil
}

func (m *Manager) saveConfig(ctx context.Context, userID string, provider models.Provider, raw map[string]interface{}) SaveResult {
	if err := ValidateConfig(provider, raw); err != nil {
		stdErr := errors.AsStandard(err)
		return SaveResult{Success: false, Message: stdErr.Message}
	}
	return m.sealAndStore(ctx, userID, provider, raw)
}

// sealAndStore expects a payload that already passed validation.
func (m *Manager) sealAndStore(ctx context.Context, userID string, provider models.Provider, raw map[string]interface{}) SaveResult {
	sealed := make(map[string]interface{}, len(raw))
	for k, v := range raw {
		sealed[k] = v
	}
	for _, field := range SensitiveFields(provider) {
		value, ok := sealed[field].(string)
		if !ok || value == "" {
			continue
		}
		// Clients often echo the sealed blob back from GET; sealing it again
		// would make the credential undecryptable.
		if vault.IsSealed(value) {
			continue
		}
		blob, err := m.vault.Encrypt(value)
		if err != nil {
			m.logger.Error("failed to seal config field", map[string]interface{}{
				"provider": provider, "field": field, "error": err,
			})
			return SaveResult{Success: false, Message: "failed to secure credentials"}
		}
		sealed[field] = blob
	}

	configID, err := m.store.Upsert(ctx, userID, provider, sealed)
	if err != nil {
		m.logger.Error("failed to persist integration config", map[string]interface{}{
			"provider": provider, "userId": userID, "error": err,
		})
		return SaveResult{Success: false, Message: "failed to save configuration"}
	}

	if err := m.cache.Delete(ctx, cacheKey(userID, provider)); err != nil {
		m.logger.Warn("cache invalidation failed", map[string]interface{}{
			"provider": provider, "error": err,
		})
	}

	return SaveResult{Success: true, ConfigID: configID}
}

// GetVapiConfig returns the active VAPI config with the apiKey still sealed,
// or nil when none is configured.
func (m *Manager) GetVapiConfig(ctx context.Context, userID string) (*models.VapiConfig, error) {
	cfg, err := m.getConfig(ctx, userID, models.ProviderVapi)
	if err != nil || cfg == nil {
		return nil, err
	}
	var out models.VapiConfig
	if err := fromMap(cfg.Config, &out); err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &out, nil
}

// GetTwilioConfig returns the active Twilio config with the authToken still sealed.
func (m *Manager) GetTwilioConfig(ctx context.Context, userID string) (*models.TwilioConfig, error) {
	cfg, err := m.getConfig(ctx, userID, models.ProviderTwilio)
	if err != nil || cfg == nil {
		return nil, err
	}
	var out models.TwilioConfig
	if err := fromMap(cfg.Config, &out); err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &out, nil
}

// GetSendGridConfig returns the active SendGrid config with the apiKey still sealed.
func (m *Manager) GetSendGridConfig(ctx context.Context, userID string) (*models.SendGridConfig, error) {
	cfg, err := m.getConfig(ctx, userID, models.ProviderSendGrid)
	if err != nil || cfg == nil {
		return nil, err
	}
	var out models.SendGridConfig
	if err := fromMap(cfg.Config, &out); err != nil {
		return nil, errors.NewInternalError(err)
	}
	return &out, nil
}

// GetRawConfig returns the active stored row for a provider, sealed.
func (m *Manager) GetRawConfig(ctx context.Context, userID string, provider models.Provider) (*models.IntegrationConfig, error) {
	return m.getConfig(ctx, userID, provider)
}

func (m *Manager) getConfig(ctx context.Context, userID string, provider models.Provider) (*models.IntegrationConfig, error) {
	key := cacheKey(userID, provider)
	if cached, ok, err := m.cache.Get(ctx, key); err == nil && ok {
		var cfg models.IntegrationConfig
		if err := json.Unmarshal([]byte(cached), &cfg); err == nil {
			return &cfg, nil
		}
	}

	cfg, err := m.store.Get(ctx, userID, provider)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, nil
	}

	if encoded, err := json.Marshal(cfg); err == nil {
		_ = m.cache.Set(ctx, key, string(encoded), m.cacheTTL)
	}
	return cfg, nil
}

// GetIntegrationStatuses aggregates status across all providers for the
// dashboard. Unconfigured providers produce a row rather than an error; a
// store failure for one provider degrades that row only.
func (m *Manager) GetIntegrationStatuses(ctx context.Context, userID string) []models.IntegrationStatus {
	statuses := make([]models.IntegrationStatus, 0, len(models.Providers))
	for _, provider := range models.Providers {
		status := models.IntegrationStatus{Provider: provider, StatusMessage: "not configured"}

		cfg, err := m.getConfig(ctx, userID, provider)
		if err != nil {
			m.logger.Warn("status lookup failed", map[string]interface{}{
				"provider": provider, "error": err,
			})
			status.StatusMessage = "status unavailable"
		} else if cfg != nil {
			status.IsActive = cfg.IsActive
			status.LastTested = cfg.LastTested
			status.ErrorCount = cfg.ErrorCount
			switch cfg.TestStatus {
			case models.TestPassed:
				status.StatusMessage = "connected"
			case models.TestFailed:
				status.StatusMessage = "last test failed"
			default:
				status.StatusMessage = "configured, not tested"
			}
		}

		statuses = append(statuses, status)
	}
	return statuses
}

// UpdateIntegrationStatus records a connectivity test outcome. Idempotent.
func (m *Manager) UpdateIntegrationStatus(ctx context.Context, userID string, provider models.Provider, isConfigured bool, testStatus models.TestStatus) error {
	if err := m.store.UpdateStatus(ctx, userID, provider, isConfigured, testStatus); err != nil {
		return err
	}
	return m.cache.Delete(ctx, cacheKey(userID, provider))
}

// ResolveVapiConfig resolves the VAPI config used for a dispatch, decrypting
// the apiKey. Organization-scoped configs are preferred over user-scoped
// ones; dispatch behavior depends on this ordering.
func (m *Manager) ResolveVapiConfig(ctx context.Context, userID, organization string) (*models.VapiConfig, error) {
	var row *models.IntegrationConfig
	var err error

	if organization != "" {
		row, err = m.store.GetByOrganization(ctx, models.ProviderVapi, organization)
		if err != nil {
			return nil, err
		}
	}
	if row == nil {
		row, err = m.getConfig(ctx, userID, models.ProviderVapi)
		if err != nil {
			return nil, err
		}
	}
	if row == nil {
		return nil, errors.NewNotConfiguredError(string(models.ProviderVapi))
	}

	var cfg models.VapiConfig
	if err := fromMap(row.Config, &cfg); err != nil {
		return nil, errors.NewInternalError(err)
	}
	cfg.APIKey, err = m.vault.Decrypt(cfg.APIKey)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveTwilioConfig resolves and decrypts the Twilio config for dispatch.
func (m *Manager) ResolveTwilioConfig(ctx context.Context, userID string) (*models.TwilioConfig, error) {
	row, err := m.getConfig(ctx, userID, models.ProviderTwilio)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errors.NewNotConfiguredError(string(models.ProviderTwilio))
	}

	var cfg models.TwilioConfig
	if err := fromMap(row.Config, &cfg); err != nil {
		return nil, errors.NewInternalError(err)
	}
	cfg.AuthToken, err = m.vault.Decrypt(cfg.AuthToken)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveSendGridConfig resolves and decrypts the SendGrid config for dispatch.
func (m *Manager) ResolveSendGridConfig(ctx context.Context, userID string) (*models.SendGridConfig, error) {
	row, err := m.getConfig(ctx, userID, models.ProviderSendGrid)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, errors.NewNotConfiguredError(string(models.ProviderSendGrid))
	}

	var cfg models.SendGridConfig
	if err := fromMap(row.Config, &cfg); err != nil {
		return nil, errors.NewInternalError(err)
	}
	cfg.APIKey, err = m.vault.Decrypt(cfg.APIKey)
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

func toMap(v interface{}) map[string]interface{} {
	encoded, _ := json.Marshal(v)
	var out map[string]interface{}
	_ = json.Unmarshal(encoded, &out)
	// Optional empty strings serialize away via omitempty; nothing to scrub.
	return out
}

func fromMap(src map[string]interface{}, dst interface{}) error {
	encoded, err := json.Marshal(src)
	if err != nil {
		return err
	}
	return json.Unmarshal(encoded, dst)
}
