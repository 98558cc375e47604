// internal/campaign/executor.go
package campaign

import (
	"context"
	"sync"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/common/metrics"
	"campaign-engine/internal/common/observability"
	"campaign-engine/internal/dispatch"
	"campaign-engine/internal/models"
	"campaign-engine/internal/records"
)

// ExecutionReport is what an execute request returns: the campaign's status
// after the pass plus one entry per channel that had pending work.
type ExecutionReport struct {
	CampaignID string                 `json:"campaign_id"`
	Status     models.CampaignStatus  `json:"status"`
	Channels   []dispatch.BatchReport `json:"channels"`
}

// Executor runs one dispatch pass over a campaign's pending results.
type Executor struct {
	repo        *Repository
	records     *records.Repository
	templates   *TemplateStore
	dispatchers map[models.Channel]dispatch.Dispatcher
	obs         *observability.Observability
	logger      logger.Logger
}

func NewExecutor(repo *Repository, recs *records.Repository, templates *TemplateStore,
	dispatchers []dispatch.Dispatcher, obs *observability.Observability, log logger.Logger) *Executor {

	byChannel := make(map[models.Channel]dispatch.Dispatcher, len(dispatchers))
	for _, d := range dispatchers {
		byChannel[d.Channel()] = d
	}
	return &Executor{
		repo:        repo,
		records:     recs,
		templates:   templates,
		dispatchers: byChannel,
		obs:         obs,
		logger:      log.WithFields(map[string]interface{}{"component": "campaign_executor"}),
	}
}

// Execute runs a dispatch pass for one campaign on behalf of its owner.
// Only pending and paused campaigns may start executing; the guarded
// transition makes concurrent execute calls race safely, with exactly one
// winner. Channel failures are isolated: one provider being down never
// cancels the other channels' work.
func (e *Executor) Execute(ctx context.Context, userID, campaignID string) (*ExecutionReport, error) {
	c, err := e.repo.GetByID(ctx, campaignID)
	if err != nil {
		metrics.CampaignExecutions.WithLabelValues("not_found").Inc()
		return nil, err
	}
	if c.UserID != userID {
		return nil, errors.NewNotOwnerError("campaign " + campaignID)
	}

	ok, err := e.repo.TransitionStatus(ctx, campaignID, models.CampaignActive,
		models.CampaignPending, models.CampaignPaused)
	if err != nil {
		metrics.CampaignExecutions.WithLabelValues("error").Inc()
		return nil, err
	}
	if !ok {
		metrics.CampaignExecutions.WithLabelValues("conflict").Inc()
		return nil, errors.NewConflictError("campaign cannot be executed",
			"status is "+string(c.Status)+"; execution requires pending or paused")
	}

	report, err := e.runPass(ctx, c)
	if err != nil {
		metrics.CampaignExecutions.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.CampaignExecutions.WithLabelValues("ok").Inc()
	return report, nil
}

// ExecutePass dispatches without requiring a status transition. The retry
// sweeper uses it on campaigns that are already active.
func (e *Executor) ExecutePass(ctx context.Context, campaignID string) (*ExecutionReport, error) {
	c, err := e.repo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status != models.CampaignActive {
		return nil, errors.NewConflictError("campaign is not active",
			"status is "+string(c.Status))
	}
	return e.runPass(ctx, c)
}

func (e *Executor) runPass(ctx context.Context, c *models.Campaign) (*ExecutionReport, error) {
	pending, err := e.repo.ListDispatchable(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	groups := make(map[models.Channel][]*models.CampaignResult)
	recordIDs := make([]string, 0, len(pending))
	for _, res := range pending {
		groups[res.Channel] = append(groups[res.Channel], res)
		recordIDs = append(recordIDs, res.RecordID)
	}

	recs, err := e.records.GetByIDs(ctx, recordIDs)
	if err != nil {
		return nil, err
	}

	var tpl *models.MessageTemplate
	if c.TemplateID != nil {
		tpl, err = e.templates.GetByID(ctx, *c.TemplateID)
		if err != nil {
			// A deleted template degrades to default message bodies.
			e.logger.Warn("campaign template unavailable", map[string]interface{}{
				"campaignId": c.ID, "templateId": *c.TemplateID, "error": err,
			})
			tpl = nil
		}
	}

	// Each channel batch runs in its own goroutine. Plain goroutines rather
	// than a shared-error group: sibling channels must keep going when one
	// fails.
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		reports []dispatch.BatchReport
	)
	for channel, batch := range groups {
		dispatcher, exists := e.dispatchers[channel]
		if !exists {
			e.logger.Error("no dispatcher for channel", map[string]interface{}{
				"campaignId": c.ID, "channel": channel,
			})
			continue
		}

		wg.Add(1)
		go func(d dispatch.Dispatcher, batch []*models.CampaignResult) {
			defer wg.Done()
			report := d.DispatchBatch(ctx, c, batch, recs, tpl)

			outcome := "dispatched"
			if !report.Configured {
				outcome = "not_configured"
			}
			e.obs.RecordDispatch(ctx, string(report.Channel), outcome)

			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
		}(dispatcher, batch)
	}
	wg.Wait()

	status, err := e.recomputeStatus(ctx, c.ID)
	if err != nil {
		return nil, err
	}

	e.logger.Info("dispatch pass finished", map[string]interface{}{
		"campaignId": c.ID,
		"channels":   len(reports),
		"status":     status,
	})

	return &ExecutionReport{CampaignID: c.ID, Status: status, Channels: reports}, nil
}

// recomputeStatus applies the aggregate completion rules after a pass: a
// campaign with no pending results completes, and one where every result
// failed is marked failed.
func (e *Executor) recomputeStatus(ctx context.Context, campaignID string) (models.CampaignStatus, error) {
	counts, err := e.repo.CountResultsByStatus(ctx, campaignID)
	if err != nil {
		return "", err
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	switch {
	case total > 0 && counts[models.ResultFailed] == total:
		if _, err := e.repo.TransitionStatus(ctx, campaignID, models.CampaignFailed, models.CampaignActive); err != nil {
			return "", err
		}
		return models.CampaignFailed, nil
	case counts[models.ResultPending] == 0:
		if _, err := e.repo.TransitionStatus(ctx, campaignID, models.CampaignCompleted, models.CampaignActive); err != nil {
			return "", err
		}
		return models.CampaignCompleted, nil
	default:
		return models.CampaignActive, nil
	}
}
