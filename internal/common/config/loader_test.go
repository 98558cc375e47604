// internal/common/config/loader_test.go
package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestApplyDefaults_FillsUnsetDispatchValues(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg := &Config{}
	applyDefaults(cfg)

	assert.Equal(t, 4, cfg.Dispatch.MaxConcurrentPerChannel)
	assert.Equal(t, 3, cfg.Dispatch.MaxRetries)
	assert.Equal(t, 60, cfg.Dispatch.SweepInterval)
	assert.Equal(t, 300, cfg.Dispatch.ConfigCacheTTL)
}

func TestApplyDefaults_ExplicitZeroSweepIntervalDisablesSweeper(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	viper.Set("dispatch.sweep_interval", 0)

	cfg := &Config{}
	applyDefaults(cfg)

	assert.Zero(t, cfg.Dispatch.SweepInterval)
}

func TestValidateConfig_RequiresVaultSecret(t *testing.T) {
	cfg := &Config{}
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Postgres.Database = "campaign_engine"

	assert.Error(t, validateConfig(cfg))

	cfg.Vault.Secret = "a-secret"
	assert.NoError(t, validateConfig(cfg))
}
