package scheduler

import (
	"context"
	"time"

	"leadpilot_backend/internal/leads"
	"leadpilot_backend/platform/config"
	"leadpilot_backend/platform/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

const sweepBatchSize = 500

// StaleLeadSource lists leads with no recent activity.
type StaleLeadSource interface {
	ListStale(ctx context.Context, cutoff time.Time, limit int) ([]leads.Lead, error)
}

// Enqueuer accepts dispatch requests; satisfied by Client and
// DirectDispatcher.
type Enqueuer interface {
	EnqueueDispatch(ctx context.Context, leadID uuid.UUID, trigger string) error
}

// Sweeper periodically fires the no-reply trigger for leads that went quiet.
type Sweeper struct {
	source     StaleLeadSource
	dispatcher Enqueuer
	log        *logger.Logger
	staleAfter time.Duration
	interval   time.Duration
}

func NewSweeper(source StaleLeadSource, dispatcher Enqueuer, cfg config.SweepConfig, log *logger.Logger) *Sweeper {
	staleAfter := cfg.GetStaleAfter()
	if staleAfter <= 0 {
		staleAfter = 72 * time.Hour
	}
	interval := cfg.GetSweepInterval()
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweeper{
		source:     source,
		dispatcher: dispatcher,
		log:        log,
		staleAfter: staleAfter,
		interval:   interval,
	}
}

// Run sweeps on a ticker until ctx is cancelled. The first sweep runs
// immediately so a restarted scheduler does not wait a full interval.
func (s *Sweeper) Run(ctx context.Context) {
	s.sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	cutoff := time.Now().Add(-s.staleAfter)

	stale, err := s.source.ListStale(ctx, cutoff, sweepBatchSize)
	if err != nil {
		s.log.DatabaseError("list_stale_leads", err)
		return
	}
	if len(stale) == 0 {
		return
	}

	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(8)
	for _, lead := range stale {
		group.Go(func() error {
			if err := s.dispatcher.EnqueueDispatch(groupCtx, lead.ID, leads.TriggerNoReply3d); err != nil {
				s.log.Error("failed to enqueue no-reply trigger", "lead_id", lead.ID.String(), "error", err)
			}
			return nil
		})
	}
	_ = group.Wait()

	s.log.Info("stale lead sweep complete", "count", len(stale))
}
