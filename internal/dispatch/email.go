// internal/dispatch/email.go
package dispatch

import (
	"context"
	"strings"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/common/logger"
	"campaign-engine/internal/common/metrics"
	"campaign-engine/internal/integration"
	"campaign-engine/internal/models"
	"campaign-engine/internal/providers"

	"golang.org/x/sync/semaphore"
)

// EmailDispatcher sends one email per pending result through SendGrid.
type EmailDispatcher struct {
	integrations *integration.Manager
	client       *providers.SendGridClient
	store        ResultStore
	sem          *semaphore.Weighted
	logger       logger.Logger
}

func NewEmailDispatcher(integrations *integration.Manager, client *providers.SendGridClient,
	store ResultStore, maxConcurrent int64, log logger.Logger) *EmailDispatcher {
	return &EmailDispatcher{
		integrations: integrations,
		client:       client,
		store:        store,
		sem:          semaphore.NewWeighted(maxConcurrent),
		logger:       log.WithFields(map[string]interface{}{"dispatcher": "email"}),
	}
}

func (d *EmailDispatcher) Channel() models.Channel { return models.ChannelEmail }

func (d *EmailDispatcher) DispatchBatch(ctx context.Context, c *models.Campaign, batch []*models.CampaignResult,
	records map[string]*models.PropertyRecord, tpl *models.MessageTemplate) BatchReport {

	report := BatchReport{Channel: models.ChannelEmail, Attempted: len(batch)}

	cfg, err := d.integrations.ResolveSendGridConfig(ctx, c.UserID)
	if err != nil {
		if errors.IsCode(err, errors.ErrCodeNotConfigured) {
			d.logger.Warn("sendgrid not configured, skipping batch", map[string]interface{}{
				"campaignId": c.ID, "results": len(batch),
			})
		} else {
			d.logger.Error("sendgrid config resolution failed", map[string]interface{}{
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

func (d *EmailDispatcher) dispatchOne(ctx context.Context, cfg *models.SendGridConfig,
	res *models.CampaignResult, rec *models.PropertyRecord, tpl *models.MessageTemplate) {

	metrics.ResultsInFlight.WithLabelValues("email").Inc()
	defer metrics.ResultsInFlight.WithLabelValues("email").Dec()

	if rec == nil {
		markRejected(res, "property record not found")
		d.persist(ctx, res, "rejected")
		return
	}
	if !strings.Contains(rec.OwnerEmail, "@") {
		markRejected(res, "missing or invalid owner email: "+rec.OwnerEmail)
		d.persist(ctx, res, "rejected")
		return
	}

	subject := defaultEmailSubject(rec)
	body := defaultEmailBody(rec)
	if tpl != nil && tpl.Channel == models.ChannelEmail {
		body = RenderTemplate(tpl.Body, rec)
		if tpl.Subject != "" {
			subject = RenderTemplate(tpl.Subject, rec)
		}
	}

	start := time.Now()
	result, err := d.client.SendEmail(ctx, cfg, providers.EmailRequest{
		To:      rec.OwnerEmail,
		ToName:  rec.OwnerName,
		Subject: subject,
		Body:    body,
	})
	metrics.DispatchDuration.WithLabelValues("email").Observe(time.Since(start).Seconds())

	if err != nil {
		markAttemptFailed(res, err)
		d.logger.Warn("email dispatch attempt failed", map[string]interface{}{
			"resultId": res.ID, "retryCount": res.RetryCount, "error": err,
		})
		d.persist(ctx, res, "failed")
		return
	}

	markSent(res, result.MessageID)
	d.persist(ctx, res, "sent")
}

func (d *EmailDispatcher) persist(ctx context.Context, res *models.CampaignResult, outcome string) {
	metrics.DispatchAttempts.WithLabelValues("email", outcome).Inc()
	if err := d.store.UpdateResult(ctx, res); err != nil {
		d.logger.Error("failed to persist result", map[string]interface{}{
			"resultId": res.ID, "error": err,
		})
	}
}
