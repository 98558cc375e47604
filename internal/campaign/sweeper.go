// internal/campaign/sweeper.go
package campaign

import (
	"context"
	"time"

	"campaign-engine/internal/common/logger"
)

// Sweeper periodically re-dispatches pending results with retry budget left
// on active campaigns, so a transient provider failure heals without anyone
// calling execute again.
type Sweeper struct {
	repo     *Repository
	executor *Executor
	interval time.Duration
	logger   logger.Logger
}

func NewSweeper(repo *Repository, executor *Executor, interval time.Duration, log logger.Logger) *Sweeper {
	return &Sweeper{
		repo:     repo,
		executor: executor,
		interval: interval,
		logger:   log.WithFields(map[string]interface{}{"component": "retry_sweeper"}),
	}
}

// Run loops until the context is cancelled. Intended as a goroutine from
// main.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("retry sweeper started", map[string]interface{}{
		"interval": s.interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("retry sweeper stopped", nil)
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	ids, err := s.repo.SweepCandidates(ctx)
	if err != nil {
		s.logger.Error("sweep candidate query failed", map[string]interface{}{"error": err})
		return
	}
	if len(ids) == 0 {
		return
	}

	s.logger.Info("sweeping campaigns with retryable results", map[string]interface{}{
		"campaigns": len(ids),
	})

	for _, id := range ids {
		if ctx.Err() != nil {
			return
		}
		if _, err := s.executor.ExecutePass(ctx, id); err != nil {
			// A campaign that left active between the query and the pass is
			// expected; anything else is worth logging.
			s.logger.Warn("sweep pass failed", map[string]interface{}{
				"campaignId": id, "error": err,
			})
		}
	}
}
