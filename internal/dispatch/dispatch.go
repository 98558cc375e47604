// internal/dispatch/dispatch.go
package dispatch

import (
	"context"
	"sync"
	"time"

	"campaign-engine/internal/common/errors"
	"campaign-engine/internal/models"

	"golang.org/x/sync/semaphore"
)

// ResultStore is the slice of persistence a dispatcher needs: it rewrites
// result rows as attempts succeed or fail.
type ResultStore interface {
	UpdateResult(ctx context.Context, res *models.CampaignResult) error
}

// BatchReport summarizes one channel's dispatch pass.
type BatchReport struct {
	Channel      models.Channel `json:"channel"`
	Configured   bool           `json:"configured"`
	Attempted    int            `json:"attempted"`
	Sent         int            `json:"sent"`
	Failed       int            `json:"failed"`
	StillPending int            `json:"still_pending"`
}

// Dispatcher sends one channel's batch of pending results. A missing
// provider config skips the whole batch without touching any row.
type Dispatcher interface {
	Channel() models.Channel
	DispatchBatch(ctx context.Context, c *models.Campaign, batch []*models.CampaignResult,
		records map[string]*models.PropertyRecord, tpl *models.MessageTemplate) BatchReport
}

// markSent moves a result to sent, preserving the retry count it took to
// get there.
func markSent(res *models.CampaignResult, messageID string) {
	now := time.Now().UTC()
	res.Status = models.ResultSent
	res.SentAt = &now
	res.ErrorMessage = ""
	if messageID != "" {
		if res.Metadata == nil {
			res.Metadata = map[string]interface{}{}
		}
		res.Metadata["provider_message_id"] = messageID
	}
}

// markAttemptFailed applies the retry policy after a provider failure: the
// attempt counts against the budget, and the result fails permanently only
// once the budget is spent. Until then it stays pending for the sweeper.
func markAttemptFailed(res *models.CampaignResult, attemptErr error) {
	res.RetryCount++
	res.ErrorMessage = errors.AsStandard(attemptErr).Message
	if details := errors.AsStandard(attemptErr).Details; details != "" {
		res.ErrorMessage = details
	}
	if res.RetriesExhausted() {
		res.Status = models.ResultFailed
	} else {
		res.Status = models.ResultPending
	}
}

// markRejected fails a result without spending retry budget, used for input
// problems no retry can fix, like an unparseable phone number.
func markRejected(res *models.CampaignResult, reason string) {
	res.Status = models.ResultFailed
	res.ErrorMessage = reason
}

// batchTally accumulates per-result outcomes from concurrent workers.
type batchTally struct {
	mu           sync.Mutex
	sent         int
	failed       int
	stillPending int
}

func (t *batchTally) record(res *models.CampaignResult) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch res.Status {
	case models.ResultSent:
		t.sent++
	case models.ResultFailed:
		t.failed++
	default:
		t.stillPending++
	}
}

// forEachBounded runs fn for every result with at most the semaphore's
// weight in flight. A cancelled context stops admitting new work; rows not
// yet started are simply left pending.
func forEachBounded(ctx context.Context, sem *semaphore.Weighted, batch []*models.CampaignResult, fn func(context.Context, *models.CampaignResult)) {
	var wg sync.WaitGroup
	for _, res := range batch {
		if err := sem.Acquire(ctx, 1); err != nil {
			break
		}
		wg.Add(1)
		go func(res *models.CampaignResult) {
			defer wg.Done()
			defer sem.Release(1)
			fn(ctx, res)
		}(res)
	}
	wg.Wait()
}
