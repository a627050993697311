package scheduler

import (
	"context"
	"fmt"

	"leadpilot_backend/internal/automation"
	"leadpilot_backend/platform/apperr"
	"leadpilot_backend/platform/config"
	"leadpilot_backend/platform/logger"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// Worker consumes dispatch tasks and runs them through the automation engine.
type Worker struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	engine *automation.Engine
	log    *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, engine *automation.Engine, log *logger.Logger) (*Worker, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server: server,
		mux:    mux,
		engine: engine,
		log:    log,
	}

	mux.HandleFunc(TaskAutomationDispatch, w.handleAutomationDispatch)

	return w, nil
}

func (w *Worker) handleAutomationDispatch(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseAutomationDispatchPayload(task)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	leadID, err := uuid.Parse(payload.LeadID)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	results, err := w.engine.Dispatch(ctx, leadID, payload.Trigger)
	if err != nil {
		// A missing lead will not reappear; retrying only clogs the queue.
		if apperr.GetKind(err) == apperr.KindNotFound || apperr.GetKind(err) == apperr.KindValidation {
			w.log.Warn("dispatch dropped", "lead_id", payload.LeadID, "trigger", payload.Trigger, "error", err.Error())
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
		return err
	}

	for _, result := range results {
		if result.Status == automation.StatusFailed {
			w.log.Warn("automation rule failed",
				"automation", result.AutomationName,
				"lead_id", payload.LeadID,
				"reason", result.Reason,
			)
		}
	}
	return nil
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
