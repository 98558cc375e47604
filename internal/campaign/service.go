// internal/campaign/service.go
package campaign

import (
	"context"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/models"

	"github.com/google/uuid"
)

// Service implements the campaign lifecycle rules on top of the repository.
type Service struct {
	repo       *Repository
	templates  *TemplateStore
	maxRetries int
	logger     logger.Logger
}

func NewService(repo *Repository, templates *TemplateStore, maxRetries int, log logger.Logger) *Service {
	if maxRetries <= 0 {
		maxRetries = models.DefaultMaxRetries
	}
	return &Service{
		repo:       repo,
		templates:  templates,
		maxRetries: maxRetries,
		logger:     log.WithFields(map[string]interface{}{"component": "campaign_service"}),
	}
}

// CreateCampaignRequest is the creation payload.
type CreateCampaignRequest struct {
	Name         string                  `json:"name"`
	Description  string                  `json:"description"`
	Channels     models.ChannelPlan      `json:"channels"`
	RecordIDs    []string                `json:"record_ids"`
	TemplateID   *string                 `json:"template_id,omitempty"`
	ScheduledAt  *time.Time              `json:"scheduled_at,omitempty"`
	CampaignType models.CampaignType     `json:"campaign_type,omitempty"`
	Priority     models.CampaignPriority `json:"priority,omitempty"`
	Settings     map[string]interface{}  `json:"settings,omitempty"`
}

// Create validates the request, inserts the campaign and seeds one pending
// result per record. Every result gets the campaign's assigned channel: the
// first enabled channel in priority order.
func (s *Service) Create(ctx context.Context, userID string, req CreateCampaignRequest) (*models.Campaign, error) {
	var fields []errors.FieldError
	if req.Name == "" {
		fields = append(fields, errors.FieldError{Field: "name", Message: "name is required"})
	}
	if len(req.RecordIDs) == 0 {
		fields = append(fields, errors.FieldError{Field: "record_ids", Message: "at least one record is required"})
	}
	channel, hasChannel := req.Channels.Assign()
	if !hasChannel {
		fields = append(fields, errors.FieldError{Field: "channels", Message: "at least one channel must be enabled"})
	}
	if len(fields) > 0 {
		return nil, errors.NewValidationError("invalid campaign", fields)
	}

	if req.TemplateID != nil {
		if _, err := s.templates.GetByID(ctx, *req.TemplateID); err != nil {
			return nil, err
		}
	}

	campaignType := req.CampaignType
	if campaignType == "" {
		campaignType = models.TypeManual
	}
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	// Scheduled campaigns wait in pending until executed; immediate ones go
	// straight to active.
	status := models.CampaignActive
	if req.ScheduledAt != nil {
		status = models.CampaignPending
		campaignType = models.TypeScheduled
	}

	now := time.Now().UTC()
	c := &models.Campaign{
		ID:           uuid.New().String(),
		UserID:       userID,
		Name:         req.Name,
		Description:  req.Description,
		Channels:     req.Channels,
		RecordIDs:    req.RecordIDs,
		TemplateID:   req.TemplateID,
		ScheduledAt:  req.ScheduledAt,
		CampaignType: campaignType,
		Priority:     priority,
		Status:       status,
		TotalRecords: len(req.RecordIDs),
		Settings:     req.Settings,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		return nil, err
	}

	results := make([]*models.CampaignResult, 0, len(req.RecordIDs))
	for _, recordID := range req.RecordIDs {
		results = append(results, &models.CampaignResult{
			ID:         uuid.New().String(),
			CampaignID: c.ID,
			RecordID:   recordID,
			Channel:    channel,
			Status:     models.ResultPending,
			MaxRetries: s.maxRetries,
		})
	}
	// A seeding failure after the campaign row exists is a degradation, not a
	// failed create: the campaign persists with an empty result set and a
	// later reconciliation can re-seed it.
	if err := s.repo.SeedResults(ctx, results); err != nil {
		s.logger.Error("failed to seed campaign results", map[string]interface{}{
			"campaignId": c.ID,
			"records":    len(results),
			"error":      err,
		})
	}

	s.logger.Info("campaign created", map[string]interface{}{
		"campaignId": c.ID,
		"channel":    channel,
		"records":    len(results),
		"status":     c.Status,
	})
	return c, nil
}

// Get returns a campaign, enforcing ownership.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Campaign, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.UserID != userID {
		return nil, errors.NewNotOwnerError("campaign " + id)
	}
	return c, nil
}

// List returns the user's campaigns.
func (s *Service) List(ctx context.Context, userID string) ([]*models.Campaign, error) {
	return s.repo.ListByUser(ctx, userID)
}

// UpdateCampaignRequest carries the mutable fields. Nil pointers leave the
// current value untouched.
type UpdateCampaignRequest struct {
	Name        *string                  `json:"name,omitempty"`
	Description *string                  `json:"description,omitempty"`
	Channels    *models.ChannelPlan      `json:"channels,omitempty"`
	TemplateID  *string                  `json:"template_id,omitempty"`
	ScheduledAt *time.Time               `json:"scheduled_at,omitempty"`
	Priority    *models.CampaignPriority `json:"priority,omitempty"`
	Settings    map[string]interface{}   `json:"settings,omitempty"`
}

// Update applies field changes. Campaigns in active or any terminal state
// reject every field change with a conflict.
func (s *Service) Update(ctx context.Context, userID, id string, req UpdateCampaignRequest) (*models.Campaign, error) {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CampaignActive || c.Status.IsTerminal() {
		return nil, errors.NewConflictError("campaign cannot be modified",
			"status is "+string(c.Status))
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, errors.NewValidationError("invalid campaign", []errors.FieldError{
				{Field: "name", Message: "name cannot be empty"},
			})
		}
		c.Name = *req.Name
	}
	if req.Description != nil {
		c.Description = *req.Description
	}
	if req.Channels != nil {
		if _, ok := req.Channels.Assign(); !ok {
			return nil, errors.NewValidationError("invalid campaign", []errors.FieldError{
				{Field: "channels", Message: "at least one channel must be enabled"},
			})
		}
		c.Channels = *req.Channels
	}
	if req.TemplateID != nil {
		if _, err := s.templates.GetByID(ctx, *req.TemplateID); err != nil {
			return nil, err
		}
		c.TemplateID = req.TemplateID
	}
	if req.ScheduledAt != nil {
		c.ScheduledAt = req.ScheduledAt
	}
	if req.Priority != nil {
		c.Priority = *req.Priority
	}
	if req.Settings != nil {
		c.Settings = req.Settings
	}

	if err := s.repo.Update(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// Delete removes a campaign and its results. Active campaigns must be
// paused or cancelled first.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	c, err := s.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if c.Status == models.CampaignActive {
		return errors.NewConflictError("campaign is active",
			"pause or cancel the campaign before deleting it")
	}
	return s.repo.Delete(ctx, id)
}

// Pause moves an active campaign to paused.
func (s *Service) Pause(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	ok, err := s.repo.TransitionStatus(ctx, id, models.CampaignPaused, models.CampaignActive)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewConflictError("campaign cannot be paused", "only active campaigns pause")
	}
	return nil
}

// Cancel moves a pending or paused campaign to cancelled.
func (s *Service) Cancel(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	ok, err := s.repo.TransitionStatus(ctx, id, models.CampaignCancelled,
		models.CampaignPending, models.CampaignPaused)
	if err != nil {
		return err
	}
	if !ok {
		return errors.NewConflictError("campaign cannot be cancelled",
			"only pending or paused campaigns cancel")
	}
	return nil
}

// ListResults returns the result rows for one of the user's campaigns.
func (s *Service) ListResults(ctx context.Context, userID, campaignID string) ([]*models.CampaignResult, error) {
	if _, err := s.Get(ctx, userID, campaignID); err != nil {
		return nil, err
	}
	return s.repo.ListResults(ctx, campaignID)
}

// ResultStatusUpdate carries a delivery/response status change, typically
// driven by a provider webhook relay.
type ResultStatusUpdate struct {
	ResultID string              `json:"result_id"`
	Status   models.ResultStatus `json:"status"`
}

// UpdateResultStatus records delivered/responded reconciliation for one
// result. Only forward movements from sent are accepted.
func (s *Service) UpdateResultStatus(ctx context.Context, userID string, upd ResultStatusUpdate) (*models.CampaignResult, error) {
	res, err := s.repo.GetResultByID(ctx, upd.ResultID)
	if err != nil {
		return nil, err
	}
	if _, err := s.Get(ctx, userID, res.CampaignID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	switch upd.Status {
	case models.ResultDelivered:
		if res.Status != models.ResultSent {
			return nil, errors.NewConflictError("invalid result transition",
				"delivered requires a sent result")
		}
		res.Status = models.ResultDelivered
		res.DeliveredAt = &now
	case models.ResultResponded:
		if res.Status != models.ResultSent && res.Status != models.ResultDelivered {
			return nil, errors.NewConflictError("invalid result transition",
				"responded requires a sent or delivered result")
		}
		res.Status = models.ResultResponded
		res.RespondedAt = &now
	default:
		return nil, errors.NewValidationError("invalid result status", []errors.FieldError{
			{Field: "status", Message: "only delivered or responded updates are accepted"},
		})
	}

	if err := s.repo.UpdateResult(ctx, res); err != nil {
		return nil, err
	}
	return res, nil
}

// Stats is the per-campaign delivery summary.
type Stats struct {
	CampaignID string                      `json:"campaign_id"`
	Total      int                         `json:"total"`
	ByStatus   map[models.ResultStatus]int `json:"by_status"`
}

// GetStats aggregates result counts for one of the user's campaigns.
func (s *Service) GetStats(ctx context.Context, userID, campaignID string) (*Stats, error) {
	if _, err := s.Get(ctx, userID, campaignID); err != nil {
		return nil, err
	}
	counts, err := s.repo.CountResultsByStatus(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	return &Stats{CampaignID: campaignID, Total: total, ByStatus: counts}, nil
}
