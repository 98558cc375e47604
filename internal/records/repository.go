// internal/records/repository.go
package records

import (
	"context"
	"database/sql"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"

	"github.com/lib/pq"
)

// Repository provides read access to property records. Campaigns reference
// records by id; nothing in this service writes them.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// GetByID returns one record or a NOT_FOUND error.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.PropertyRecord, error) {
	query := `
		SELECT id, address, city, state, owner_name, owner_phone, owner_email, property_type, assessed_value, created_at
		FROM property_records
		WHERE id = $1`

	var rec models.PropertyRecord
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&rec.ID, &rec.Address, &rec.City, &rec.State, &rec.OwnerName,
		&rec.OwnerPhone, &rec.OwnerEmail, &rec.PropertyType, &rec.AssessedValue, &rec.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("property record", id)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get property record", err)
	}
	return &rec, nil
}

// GetByIDs returns the records for the given ids, keyed by id. Missing ids
// are simply absent from the map; callers decide how to treat gaps.
func (r *Repository) GetByIDs(ctx context.Context, ids []string) (map[string]*models.PropertyRecord, error) {
	out := make(map[string]*models.PropertyRecord, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	query := `
		SELECT id, address, city, state, owner_name, owner_phone, owner_email, property_type, assessed_value, created_at
		FROM property_records
		WHERE id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, errors.NewDatabaseError("list property records", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec models.PropertyRecord
		if err := rows.Scan(
			&rec.ID, &rec.Address, &rec.City, &rec.State, &rec.OwnerName,
			&rec.OwnerPhone, &rec.OwnerEmail, &rec.PropertyType, &rec.AssessedValue, &rec.CreatedAt,
		); err != nil {
			return nil, errors.NewDatabaseError("scan property record", err)
		}
		out[rec.ID] = &rec
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list property records", err)
	}
	return out, nil
}
