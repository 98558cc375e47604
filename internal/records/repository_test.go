// internal/records/repository_test.go
package records

import (
	"context"
	"testing"
	"time"

	"campaign-engine/internal/common/errors"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordColumns() []string {
	return []string{"id", "address", "city", "state", "owner_name", "owner_phone", "owner_email", "property_type", "assessed_value", "created_at"}
}

func TestRepository_GetByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM property_records").
		WithArgs("rec-1").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-1", "123 Main St", "Austin", "TX", "Jane Owner", "5551234567", "jane@example.com", "retail", 450000.0, time.Now()))

	repo := NewRepository(db)
	rec, err := repo.GetByID(context.Background(), "rec-1")

	require.NoError(t, err)
	assert.Equal(t, "Jane Owner", rec.OwnerName)
	assert.Equal(t, "Austin", rec.City)
}

func TestRepository_GetByID_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM property_records").
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(recordColumns()))

	repo := NewRepository(db)
	_, err = repo.GetByID(context.Background(), "missing")

	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrCodeNotFound))
}

func TestRepository_GetByIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM property_records").
		WillReturnRows(sqlmock.NewRows(recordColumns()).
			AddRow("rec-1", "123 Main St", "Austin", "TX", "Jane Owner", "5551234567", "jane@example.com", "retail", 450000.0, now).
			AddRow("rec-2", "9 Oak Ave", "Dallas", "TX", "Bob Owner", "5559876543", "bob@example.com", "office", 1200000.0, now))

	repo := NewRepository(db)
	recs, err := repo.GetByIDs(context.Background(), []string{"rec-1", "rec-2", "rec-gone"})

	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "Bob Owner", recs["rec-2"].OwnerName)
	assert.NotContains(t, recs, "rec-gone")
}

func TestRepository_GetByIDs_EmptyInput(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewRepository(db)
	recs, err := repo.GetByIDs(context.Background(), nil)

	require.NoError(t, err)
	assert.Empty(t, recs)
}
