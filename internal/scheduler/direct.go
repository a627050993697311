package scheduler

import (
	"context"

	"leadpilot_backend/internal/automation"
	"leadpilot_backend/platform/logger"

	"github.com/google/uuid"
)

// DirectDispatcher runs dispatches in-process when no Redis queue is
// configured. Single-instance deployments lose durability but keep the
// feature working.
type DirectDispatcher struct {
	engine *automation.Engine
	log    *logger.Logger
}

func NewDirectDispatcher(engine *automation.Engine, log *logger.Logger) *DirectDispatcher {
	return &DirectDispatcher{engine: engine, log: log}
}

// EnqueueDispatch runs the dispatch on a fresh goroutine, detached from the
// request lifecycle.
func (d *DirectDispatcher) EnqueueDispatch(ctx context.Context, leadID uuid.UUID, trigger string) error {
	detached := context.WithoutCancel(ctx)
	go func() {
		if _, err := d.engine.Dispatch(detached, leadID, trigger); err != nil {
			d.log.Error("direct dispatch failed", "lead_id", leadID.String(), "trigger", trigger, "error", err)
		}
	}()
	return nil
}
