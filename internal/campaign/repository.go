// internal/campaign/repository.go
package campaign

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"
)

// Repository persists campaigns and their per-record results.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const campaignColumns = `id, user_id, name, description, channels, record_ids, template_id,
	scheduled_at, campaign_type, priority, status, total_records, settings, created_at, updated_at`

// Create inserts a new campaign row.
func (r *Repository) Create(ctx context.Context, c *models.Campaign) error {
	channelsJSON, err := json.Marshal(c.Channels)
	if err != nil {
		return errors.NewInternalError(err)
	}
	settingsJSON, err := json.Marshal(c.Settings)
	if err != nil {
		return errors.NewInternalError(err)
	}

	query := `
		INSERT INTO campaigns (` + campaignColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	_, err = r.db.ExecContext(ctx, query,
		c.ID, c.UserID, c.Name, c.Description, channelsJSON, c.RecordIDs, c.TemplateID,
		c.ScheduledAt, string(c.CampaignType), string(c.Priority), string(c.Status),
		c.TotalRecords, settingsJSON, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return errors.NewDatabaseError("create campaign", err)
	}
	return nil
}

// GetByID returns one campaign or a NOT_FOUND error.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE id = $1`

	c, err := scanCampaign(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("campaign", id)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get campaign", err)
	}
	return c, nil
}

// ListByUser returns the user's campaigns, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID string) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, errors.NewDatabaseError("list campaigns", err)
	}
	defer rows.Close()

	var out []*models.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, errors.NewDatabaseError("scan campaign", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list campaigns", err)
	}
	return out, nil
}

// Update rewrites the campaign's mutable fields.
func (r *Repository) Update(ctx context.Context, c *models.Campaign) error {
	channelsJSON, err := json.Marshal(c.Channels)
	if err != nil {
		return errors.NewInternalError(err)
	}
	settingsJSON, err := json.Marshal(c.Settings)
	if err != nil {
		return errors.NewInternalError(err)
	}

	query := `
		UPDATE campaigns
		SET name = $2, description = $3, channels = $4, record_ids = $5, template_id = $6,
		    scheduled_at = $7, priority = $8, total_records = $9, settings = $10, updated_at = $11
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query,
		c.ID, c.Name, c.Description, channelsJSON, c.RecordIDs, c.TemplateID,
		c.ScheduledAt, string(c.Priority), c.TotalRecords, settingsJSON, time.Now().UTC(),
	)
	if err != nil {
		return errors.NewDatabaseError("update campaign", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("campaign", c.ID)
	}
	return nil
}

// TransitionStatus performs a guarded status change: the row moves to the
// target status only if it currently holds one of the allowed statuses.
// Returns false when the guard did not match, which callers surface as a
// conflict. This single-statement form is what makes concurrent execution
// attempts safe: exactly one caller wins the pending->active race.
func (r *Repository) TransitionStatus(ctx context.Context, id string, to models.CampaignStatus, from ...models.CampaignStatus) (bool, error) {
	placeholders := make([]string, len(from))
	args := []interface{}{id, string(to), time.Now().UTC()}
	for i, s := range from {
		placeholders[i] = fmt.Sprintf("$%d", len(args)+1)
		args = append(args, string(s))
	}

	query := fmt.Sprintf(`
		UPDATE campaigns
		SET status = $2, updated_at = $3
		WHERE id = $1 AND status IN (%s)`, strings.Join(placeholders, ", "))

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, errors.NewDatabaseError("transition campaign status", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewDatabaseError("transition campaign status", err)
	}
	return n > 0, nil
}

// Delete removes the campaign and its results in one transaction.
func (r *Repository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError("delete campaign", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM campaign_results WHERE campaign_id = $1`, id); err != nil {
		return errors.NewDatabaseError("delete campaign results", err)
	}

	result, err := tx.ExecContext(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return errors.NewDatabaseError("delete campaign", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("campaign", id)
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("delete campaign", err)
	}
	return nil
}

const resultColumns = `id, campaign_id, record_id, channel, status, sent_at, delivered_at,
	responded_at, retry_count, max_retries, error_message, metadata`

// SeedResults batch-inserts the initial pending result rows for a campaign.
func (r *Repository) SeedResults(ctx context.Context, results []*models.CampaignResult) error {
	if len(results) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.NewDatabaseError("seed campaign results", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO campaign_results (id, campaign_id, record_id, channel, status, retry_count, max_retries)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		return errors.NewDatabaseError("seed campaign results", err)
	}
	defer stmt.Close()

	for _, res := range results {
		if _, err := stmt.ExecContext(ctx, res.ID, res.CampaignID, res.RecordID,
			string(res.Channel), string(res.Status), res.RetryCount, res.MaxRetries); err != nil {
			return errors.NewDatabaseError("seed campaign results", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.NewDatabaseError("seed campaign results", err)
	}
	return nil
}

// GetResultByID returns one result row or a NOT_FOUND error.
func (r *Repository) GetResultByID(ctx context.Context, id string) (*models.CampaignResult, error) {
	query := `SELECT ` + resultColumns + ` FROM campaign_results WHERE id = $1`

	res, err := scanResult(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("campaign result", id)
	}
	if err != nil {
		return nil, errors.NewDatabaseError("get campaign result", err)
	}
	return res, nil
}

// ListResults returns every result row for a campaign.
func (r *Repository) ListResults(ctx context.Context, campaignID string) ([]*models.CampaignResult, error) {
	query := `SELECT ` + resultColumns + ` FROM campaign_results WHERE campaign_id = $1 ORDER BY record_id`
	return r.queryResults(ctx, query, campaignID)
}

// ListDispatchable returns the pending results that still have retry budget,
// which is the work set for one execution pass.
func (r *Repository) ListDispatchable(ctx context.Context, campaignID string) ([]*models.CampaignResult, error) {
	query := `SELECT ` + resultColumns + ` FROM campaign_results
		WHERE campaign_id = $1 AND status = 'pending' AND retry_count < max_retries
		ORDER BY record_id`
	return r.queryResults(ctx, query, campaignID)
}

func (r *Repository) queryResults(ctx context.Context, query string, args ...interface{}) ([]*models.CampaignResult, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewDatabaseError("list campaign results", err)
	}
	defer rows.Close()

	var out []*models.CampaignResult
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, errors.NewDatabaseError("scan campaign result", err)
		}
		out = append(out, res)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list campaign results", err)
	}
	return out, nil
}

// UpdateResult rewrites one result row after a dispatch attempt or a
// webhook-driven status change.
func (r *Repository) UpdateResult(ctx context.Context, res *models.CampaignResult) error {
	metadataJSON, err := json.Marshal(res.Metadata)
	if err != nil {
		return errors.NewInternalError(err)
	}

	query := `
		UPDATE campaign_results
		SET status = $2, sent_at = $3, delivered_at = $4, responded_at = $5,
		    retry_count = $6, error_message = $7, metadata = $8
		WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, res.ID, string(res.Status),
		res.SentAt, res.DeliveredAt, res.RespondedAt, res.RetryCount, res.ErrorMessage, metadataJSON)
	if err != nil {
		return errors.NewDatabaseError("update campaign result", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return errors.NewNotFoundError("campaign result", res.ID)
	}
	return nil
}

// CountResultsByStatus aggregates result rows per status for one campaign.
func (r *Repository) CountResultsByStatus(ctx context.Context, campaignID string) (map[models.ResultStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM campaign_results WHERE campaign_id = $1 GROUP BY status`

	rows, err := r.db.QueryContext(ctx, query, campaignID)
	if err != nil {
		return nil, errors.NewDatabaseError("count campaign results", err)
	}
	defer rows.Close()

	counts := make(map[models.ResultStatus]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, errors.NewDatabaseError("count campaign results", err)
		}
		counts[models.ResultStatus(status)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("count campaign results", err)
	}
	return counts, nil
}

// SweepCandidates returns ids of active campaigns that still have
// dispatchable pending results. The retry sweeper re-executes these.
func (r *Repository) SweepCandidates(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT c.id
		FROM campaigns c
		JOIN campaign_results res ON res.campaign_id = c.id
		WHERE c.status = 'active' AND res.status = 'pending' AND res.retry_count < res.max_retries`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.NewDatabaseError("list sweep candidates", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, errors.NewDatabaseError("scan sweep candidate", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewDatabaseError("list sweep candidates", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanCampaign(row rowScanner) (*models.Campaign, error) {
	var c models.Campaign
	var channelsJSON, settingsJSON []byte
	var description, campaignType, priority, status sql.NullString
	var templateID sql.NullString
	var scheduledAt sql.NullTime

	err := row.Scan(&c.ID, &c.UserID, &c.Name, &description, &channelsJSON,
		&c.RecordIDs, &templateID, &scheduledAt, &campaignType,
		&priority, &status, &c.TotalRecords, &settingsJSON, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	c.Description = description.String
	c.CampaignType = models.CampaignType(campaignType.String)
	c.Priority = models.CampaignPriority(priority.String)
	c.Status = models.CampaignStatus(status.String)
	if templateID.Valid {
		c.TemplateID = &templateID.String
	}
	if scheduledAt.Valid {
		c.ScheduledAt = &scheduledAt.Time
	}
	if err := json.Unmarshal(channelsJSON, &c.Channels); err != nil {
		return nil, err
	}
	if len(settingsJSON) > 0 {
		if err := json.Unmarshal(settingsJSON, &c.Settings); err != nil {
			return nil, err
		}
	}
	return &c, nil
}

func scanResult(row rowScanner) (*models.CampaignResult, error) {
	var res models.CampaignResult
	var sentAt, deliveredAt, respondedAt sql.NullTime
	var errorMessage sql.NullString
	var metadataJSON []byte

	err := row.Scan(&res.ID, &res.CampaignID, &res.RecordID, &res.Channel, &res.Status,
		&sentAt, &deliveredAt, &respondedAt, &res.RetryCount, &res.MaxRetries,
		&errorMessage, &metadataJSON)
	if err != nil {
		return nil, err
	}

	if sentAt.Valid {
		res.SentAt = &sentAt.Time
	}
	if deliveredAt.Valid {
		res.DeliveredAt = &deliveredAt.Time
	}
	if respondedAt.Valid {
		res.RespondedAt = &respondedAt.Time
	}
	res.ErrorMessage = errorMessage.String
	if len(metadataJSON) > 0 {
		if err := json.Unmarshal(metadataJSON, &res.Metadata); err != nil {
			return nil, err
		}
	}
	return &res, nil
}
