// internal/integration/store_test.go
package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"campaign-engine/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func configColumns() []string {
	return []string{"id", "user_id", "provider", "config", "is_active", "last_tested", "test_status", "error_count", "updated_at"}
}

func TestStore_Upsert(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("INSERT INTO integration_configs").
		WithArgs(sqlmock.AnyArg(), "user-1", "twilio", sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cfg-1"))

	store := NewStore(db)
	id, err := store.Upsert(context.Background(), "user-1", models.ProviderTwilio, map[string]interface{}{
		"accountSid": "AC00000000000000000000000000000000",
	})

	require.NoError(t, err)
	assert.Equal(t, "cfg-1", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configJSON, _ := json.Marshal(map[string]interface{}{"apiKey": "sealed-blob", "fromEmail": "a@b.com"})
	tested := time.Now().UTC()

	mock.ExpectQuery("SELECT (.+) FROM integration_configs").
		WithArgs("user-1", "sendgrid").
		WillReturnRows(sqlmock.NewRows(configColumns()).
			AddRow("cfg-2", "user-1", "sendgrid", configJSON, true, tested, "passed", 0, tested))

	store := NewStore(db)
	cfg, err := store.Get(context.Background(), "user-1", models.ProviderSendGrid)

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "cfg-2", cfg.ID)
	assert.Equal(t, models.ProviderSendGrid, cfg.Provider)
	assert.Equal(t, "sealed-blob", cfg.Config["apiKey"])
	assert.Equal(t, models.TestPassed, cfg.TestStatus)
	require.NotNil(t, cfg.LastTested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetReturnsNilWhenMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM integration_configs").
		WithArgs("user-1", "vapi").
		WillReturnRows(sqlmock.NewRows(configColumns()))

	store := NewStore(db)
	cfg, err := store.Get(context.Background(), "user-1", models.ProviderVapi)

	require.NoError(t, err)
	assert.Nil(t, cfg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_GetByOrganization(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	configJSON, _ := json.Marshal(map[string]interface{}{"apiKey": "sealed", "organization": "org_42"})

	mock.ExpectQuery("SELECT (.+) FROM integration_configs").
		WithArgs("vapi", "org_42").
		WillReturnRows(sqlmock.NewRows(configColumns()).
			AddRow("cfg-3", "other-user", "vapi", configJSON, true, nil, "unknown", 0, time.Now().UTC()))

	store := NewStore(db)
	cfg, err := store.GetByOrganization(context.Background(), models.ProviderVapi, "org_42")

	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, "other-user", cfg.UserID)
	assert.Nil(t, cfg.LastTested)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateStatus(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("UPDATE integration_configs").
		WithArgs("user-1", "twilio", true, "failed", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := NewStore(db)
	err = store.UpdateStatus(context.Background(), "user-1", models.ProviderTwilio, true, models.TestFailed)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
