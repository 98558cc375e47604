// internal/dispatch/sms.go
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

// SMSDispatcher sends one SMS per pending result through Twilio.
type SMSDispatcher struct {
	integrations *integration.Manager
	client       *providers.TwilioClient
	store        ResultStore
	sem          *semaphore.Weighted
	logger       logger.Logger
}

func NewSMSDispatcher(integrations *integration.Manager, client *providers.TwilioClient,
	store ResultStore, maxConcurrent int64, log logger.Logger) *SMSDispatcher {
	return &SMSDispatcher{
		integrations: integrations,
		client:       client,
		store:        store,
		sem:          semaphore.NewWeighted(maxConcurrent),
		logger:       log.WithFields(map[string]interface{}{"dispatcher": "sms"}),
	}
}

func (d *SMSDispatcher) Channel() models.Channel { return models.ChannelSMS }

// DispatchBatch resolves the Twilio config once for the whole batch. A
// missing config skips everything: the rows stay pending and untouched so a
// later execute picks them up after the user configures the provider.
func (d *SMSDispatcher) DispatchBatch(ctx context.Context, c *models.Campaign, batch []*models.CampaignResult,
	records map[string]*models.PropertyRecord, tpl *models.MessageTemplate) BatchReport {

	report := BatchReport{Channel: models.ChannelSMS, Attempted: len(batch)}

	cfg, err := d.integrations.ResolveTwilioConfig(ctx, c.UserID)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotConfigured) {
			d.logger.Warn("twilio not configured, skipping batch", map[string]interface{}{
				"campaignId": c.ID, "results": len(batch),
			})
		} else {
			d.logger.Error("twilio config resolution failed", map[string]interface{}{
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

func (d *SMSDispatcher) dispatchOne(ctx context.Context, cfg *models.TwilioConfig,
	res *models.CampaignResult, rec *models.PropertyRecord, tpl *models.MessageTemplate) {

	metrics.ResultsInFlight.WithLabelValues("sms").Inc()
	defer metrics.ResultsInFlight.WithLabelValues("sms").Dec()

	if rec == nil {
		markRejected(res, "property record not found")
		d.persist(ctx, res, "rejected")
		return
	}

	to, err := NormalizePhone(rec.OwnerPhone)
	if err != nil {
		markRejected(res, "invalid phone number: "+rec.OwnerPhone)
		d.persist(ctx, res, "rejected")
		return
	}

	body := defaultSMSBody(rec)
	if tpl != nil && tpl.Channel == models.ChannelSMS {
		body = RenderTemplate(tpl.Body, rec)
	}

	start := time.Now()
	result, err := d.client.SendSMS(ctx, cfg, to, body)
	metrics.DispatchDuration.WithLabelValues("sms").Observe(time.Since(start).Seconds())

	if err != nil {
		markAttemptFailed(res, err)
		d.logger.Warn("sms dispatch attempt failed", map[string]interface{}{
			"resultId": res.ID, "retryCount": res.RetryCount, "error": err,
		})
		d.persist(ctx, res, "failed")
		return
	}

	markSent(res, result.MessageID)
	d.persist(ctx, res, "sent")
}

func (d *SMSDispatcher) persist(ctx context.Context, res *models.CampaignResult, outcome string) {
	metrics.DispatchAttempts.WithLabelValues("sms", outcome).Inc()
	if err := d.store.UpdateResult(ctx, res); err != nil {
		d.logger.Error("failed to persist result", map[string]interface{}{
			"resultId": res.ID, "error": err,
		})
	}
}
