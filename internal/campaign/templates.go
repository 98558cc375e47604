// internal/campaign/templates.go
package campaign

import (
	"context"
	"database/sql"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"

	"github.com/google/uuid"
)

// TemplateStore persists reusable message templates.
type TemplateStore struct {
	db *sql.DB
}

func NewTemplateStore(db *sql.DB) *TemplateStore {
	return &TemplateStore{db: db}
}

// Create validates and inserts a template, returning its id.
func (s *TemplateStore) Create(ctx context.Context, tpl *models.MessageTemplate) (string, error) {
	var fields []errors.FieldError
	if tpl.Name == "" {
		fields = append(fields, errors.FieldError{Field: "name", Message: "name is required"})
	}
	if tpl.Body == "" {
		fields = append(fields, errors.FieldError{Field: "body", Message: "body is required"})
	}
	switch tpl.Channel {
	case models.ChannelVoice, models.ChannelSMS, models.ChannelEmail:
	default:
		fields = append(fields, errors.FieldError{Field: "channel", Message: "channel must be voice, sms or email"})
	}
	if len(fields) > 0 {
		return "", errors.NewValidationError("invalid template", fields)
	}

	tpl.ID = uuid.New().String()
	now := time.Now().UTC()

	query := `
		INSERT INTO message_templates (id, user_id, name, channel, subject, body, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.ExecContext(ctx, query, tpl.ID, tpl.UserID, tpl.Name,
		string(tpl.Channel), tpl.Subject, tpl.Body, now, now)
	if err != nil {
		return "", errors.NewDatabaseError("create template", err)
	}
	return tpl.ID, nil
}

// GetByID returns one template or a NOT_FOUND error.
func (s *TemplateStore) GetByID(ctx context.Context, id string) (*models.MessageTemplate, error) {
	query := `
		SELECT id, user_id, name, channel, subject, body, created_at, updated_at
		FROM message_templates WHERE id = $1`

	var tpl models.MessageTemplate
	var subject sql.NullString
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&tpl.ID, &tpl.UserID, &tpl.Name, &tpl.Channel, &subject, &tpl.Body, &tpl.CreatedAt, &tpl.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("template", id)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get template", err)
	}
	tpl.Subject = subject.String
	return &tpl, nil
}

// ListByUser returns the user's templates, newest first.
func (s *TemplateStore) ListByUser(ctx context.Context, userID string) ([]*models.MessageTemplate, error) {
	query := `
		SELECT id, user_id, name, channel, subject, body, created_at, updated_at
		FROM message_templates WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("list templates", err)
	}
	defer rows.Close()

	var out []*models.MessageTemplate
	for rows.Next() {
		var tpl models.MessageTemplate
		var subject sql.NullString
		if err := rows.Scan(&tpl.ID, &tpl.UserID, &tpl.Name, &tpl.Channel, &subject,
			&tpl.Body, &tpl.CreatedAt, &tpl.UpdatedAt); err != nil {
			return nil, errors.NewDatabaseError("scan template", err)
		}
		tpl.Subject = subject.String
		out = append(out, &tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list templates", err)
	}
	return out, nil
}
