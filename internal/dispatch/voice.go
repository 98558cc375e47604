// internal/dispatch/voice.go
package dispatch

import (
	"context"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/common/metrics"
	"campaign-engine/internal/integration"
	"campaign-engine/internal/models"
	"campaign-engine/internal/providers"

	"golang.org/x/sync/semaphore"
)

// VoiceDispatcher launches one outbound VAPI call per pending result.
type VoiceDispatcher struct {
	integrations *integration.Manager
	client       *providers.VapiClient
	store        ResultStore
	sem          *semaphore.Weighted
	logger       logger.Logger
}

func NewVoiceDispatcher(integrations *integration.Manager, client *providers.VapiClient,
	store ResultStore, maxConcurrent int64, log logger.Logger) *VoiceDispatcher {
	return &VoiceDispatcher{
		integrations: integrations,
		client:       client,
		store:        store,
		sem:          semaphore.NewWeighted(maxConcurrent),
		logger:       log.WithFields(map[string]interface{}{"dispatcher": "voice"}),
	}
}

func (d *VoiceDispatcher) Channel() models.Channel { return models.ChannelVoice }

func (d *VoiceDispatcher) DispatchBatch(ctx context.Context, c *models.Campaign, batch []*models.CampaignResult,
	records map[string]*models.PropertyRecord, tpl *models.MessageTemplate) BatchReport {

	report := BatchReport{Channel: models.ChannelVoice, Attempted: len(batch)}

	// Campaigns can pin an organization in their settings, in which case the
	// organization-scoped VAPI config wins over the user's own.
	organization := ""
	if org, ok := c.Settings["organization"].(string); ok {
		organization = org
	}

	cfg, err := d.integrations.ResolveVapiConfig(ctx, c.UserID, organization)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotConfigured) {
			d.logger.Warn("vapi not configured, skipping batch", map[string]interface{}{
				"campaignId": c.ID, "results": len(batch),
			})
		} else {
			d.logger.Error("vapi config resolution failed", map[string]interface{}{
				"campaignId": c.ID, "error": err,
			})
		}
		report.StillPending = len(batch)
		return report
	}
	report.Configured = true

	var tally batchTally
	forEachBounded(ctx, d.sem, batch, func(ctx context.Context, res *models.CampaignResult) {
		d.dispatchOne(ctx, cfg, res, records[res.RecordID], tpl)
		tally.record(res)
	})

	report.Sent = tally.sent
	report.Failed = tally.failed
	report.StillPending = len(batch) - tally.sent - tally.failed
	return report
}

func (d *VoiceDispatcher) dispatchOne(ctx context.Context, cfg *models.VapiConfig,
	res *models.CampaignResult, rec *models.PropertyRecord, tpl *models.MessageTemplate) {

	metrics.ResultsInFlight.WithLabelValues("voice").Inc()
	defer metrics.ResultsInFlight.WithLabelValues("voice").Dec()

	if rec == nil {
		markRejected(res, "property record not found")
		d.persist(ctx, res, "rejected")
		return
	}

	number, err := NormalizePhone(rec.OwnerPhone)
	if err != nil {
		markRejected(res, "invalid phone number: "+rec.OwnerPhone)
		d.persist(ctx, res, "rejected")
		return
	}

	firstMessage := defaultVoiceGreeting(rec)
	if tpl != nil && tpl.Channel == models.ChannelVoice {
		firstMessage = RenderTemplate(tpl.Body, rec)
	}

	start := time.Now()
	result, err := d.client.StartCall(ctx, cfg, providers.CallRequest{
		CustomerNumber: number,
		CustomerName:   rec.OwnerName,
		FirstMessage:   firstMessage,
	})
	metrics.DispatchDuration.WithLabelValues("voice").Observe(time.Since(start).Seconds())

	if err != nil {
		markAttemptFailed(res, err)
		d.logger.Warn("voice dispatch attempt failed", map[string]interface{}{
			"resultId": res.ID, "retryCount": res.RetryCount, "error": err,
		})
		d.persist(ctx, res, "failed")
		return
	}

	markSent(res, result.MessageID)
	d.persist(ctx, res, "sent")
}

func (d *VoiceDispatcher) persist(ctx context.Context, res *models.CampaignResult, outcome string) {
	metrics.DispatchAttempts.WithLabelValues("voice", outcome).Inc()
	if err := d.store.UpdateResult(ctx, res); err != nil {
		d.logger.Error("failed to persist result", map[string]interface{}{
			"resultId": res.ID, "error": err,
		})
	}
}
