// internal/integration/store.go
package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"

	"github.com/google/uuid"
)

// Store persists integration_configs rows. The table carries a unique index
// on (user_id, provider) where is_active, so at most one active config
// exists per pair.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Upsert inserts or replaces the active config for (userID, provider).
// Config values must already have their sensitive fields sealed.
func (s *Store) Upsert(ctx context.Context, userID string, provider models.Provider, config map[string]interface{}) (string, error) {
	configJSON, err := json.Marshal(config)
	if err != nil {
		return "", errors.NewInternalError(err)
	}

	id := uuid.New().String()
	query := `
		INSERT INTO integration_configs (id, user_id, provider, config, is_active, test_status, error_count, updated_at)
		VALUES ($1, $2, $3, $4, TRUE, 'unknown', 0, $5)
		ON CONFLICT (user_id, provider) WHERE is_active
		DO UPDATE SET config = EXCLUDED.config, test_status = 'unknown', error_count = 0, updated_at = EXCLUDED.updated_at
		RETURNING id`

	if err := s.db.QueryRowContext(ctx, query, id, userID, string(provider), configJSON, time.Now().UTC()).Scan(&id); err != nil {
		return "", errors.NewDatabaseError("upsert integration config", err)
	}
	return id, nil
}

// Get returns the active config for (userID, provider), nil when none exists.
func (s *Store) Get(ctx context.Context, userID string, provider models.Provider) (*models.IntegrationConfig, error) {
	query := `
		SELECT id, user_id, provider, config, is_active, last_tested, test_status, error_count, updated_at
		FROM integration_configs
		WHERE user_id = $1 AND provider = $2 AND is_active`

	row := s.db.QueryRowContext(ctx, query, userID, string(provider))
	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get integration config", err)
	}
	return cfg, nil
}

// GetByOrganization returns the active config whose payload carries the
// given organization value. Used for VAPI's organization-scoped resolution.
func (s *Store) GetByOrganization(ctx context.Context, provider models.Provider, organization string) (*models.IntegrationConfig, error) {
	query := `
		SELECT id, user_id, provider, config, is_active, last_tested, test_status, error_count, updated_at
		FROM integration_configs
		WHERE provider = $1 AND is_active AND config->>'organization' = $2
		ORDER BY updated_at DESC
		LIMIT 1`

	row := s.db.QueryRowContext(ctx, query, string(provider), organization)
	cfg, err := scanConfig(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get integration config by organization", err)
	}
	return cfg, nil
}

// UpdateStatus records the outcome of a connectivity test. Idempotent: it
// only touches status columns on the active row, creating nothing.
func (s *Store) UpdateStatus(ctx context.Context, userID string, provider models.Provider, isConfigured bool, testStatus models.TestStatus) error {
	query := `
		UPDATE integration_configs
		SET is_active = $3,
		    test_status = $4,
		    last_tested = $5,
		    error_count = CASE WHEN $4 = 'failed' THEN error_count + 1 ELSE 0 END,
		    updated_at = $5
		WHERE user_id = $1 AND provider = $2 AND is_active`

	if _, err := s.db.ExecContext(ctx, query, userID, string(provider), isConfigured, string(testStatus), time.Now().UTC()); err != nil {
		return errors.NewDatabaseError("update integration status", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConfig(row rowScanner) (*models.IntegrationConfig, error) {
	var cfg models.IntegrationConfig
	var configJSON []byte
	var lastTested sql.NullTime

	err := row.Scan(&cfg.ID, &cfg.UserID, &cfg.Provider, &configJSON, &cfg.IsActive,
		&lastTested, &cfg.TestStatus, &cfg.ErrorCount, &cfg.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if lastTested.Valid {
		cfg.LastTested = &lastTested.Time
	}
	if err := json.Unmarshal(configJSON, &cfg.Config); err != nil {
		return nil, err
	}
	return &cfg, nil
}
