package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadpilot_backend/db/migrations"
	"leadpilot_backend/internal/automation"
	"leadpilot_backend/internal/booking"
	"leadpilot_backend/internal/calendar"
	"leadpilot_backend/internal/channel"
	"leadpilot_backend/internal/conversation"
	"leadpilot_backend/internal/events"
	apphttp "leadpilot_backend/internal/http"
	"leadpilot_backend/internal/http/router"
	"leadpilot_backend/internal/leads"
	"leadpilot_backend/internal/notification"
	"leadpilot_backend/internal/scheduler"
	"leadpilot_backend/internal/users"
	"leadpilot_backend/internal/webhook"
	"leadpilot_backend/platform/ai/openaiapi"
	"leadpilot_backend/platform/config"
	"leadpilot_backend/platform/db"
	"leadpilot_backend/platform/logger"
	"leadpilot_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
	"google.golang.org/adk/model"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, migrations.FS, ".")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	var llm model.LLM
	if cfg.IsAIEnabled() {
		llm = openaiapi.NewModel(openaiapi.Config{
			APIKey:  cfg.GetAIAPIKey(),
			BaseURL: cfg.GetAIBaseURL(),
			Model:   cfg.GetAIModel(),
		})
		log.Info("ai provider initialized", "model", cfg.GetAIModel())
	} else {
		log.Warn("AI_API_KEY not configured; analysis falls back to defaults and conversations go unanswered")
	}

	var smsSender channel.Sender
	if s := channel.NewSMSSender(cfg, log); s != nil {
		smsSender = s
	} else {
		log.Warn("SMS gateway not configured; SMS channel is a no-op")
		smsSender = channel.NewNoopSender(channel.SMS, log)
	}
	var emailSender channel.Sender
	if e := channel.NewEmailSender(cfg); e != nil {
		emailSender = e
	} else {
		log.Warn("email disabled; EMAIL channel is a no-op")
		emailSender = channel.NewNoopSender(channel.EMAIL, log)
	}
	senders := map[string]channel.Sender{
		channel.SMS:   smsSender,
		channel.EMAIL: emailSender,
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	usersRepo := users.NewRepository(pool)
	leadRepo := leads.NewRepository(pool)

	automationModule := automation.NewModule(pool, leadRepo, usersRepo, senders, val, log, cfg.GetSendTimeout())

	dispatcher, closeDispatcher := initDispatcher(cfg, automationModule.Engine(), log)
	if closeDispatcher != nil {
		defer closeDispatcher()
	}

	leadsModule, err := leads.NewModule(pool, llm, dispatcher, eventBus, val, log, cfg.GetAITimeout())
	if err != nil {
		log.Error("failed to initialize leads module", "error", err)
		panic("failed to initialize leads module: " + err.Error())
	}

	loc, err := time.LoadLocation(cfg.GetBookingTimezone())
	if err != nil {
		log.Warn("invalid booking timezone, using UTC", "timezone", cfg.GetBookingTimezone())
		loc = time.UTC
	}
	calendarClient := calendar.NewClient(cfg, log)
	allocator := booking.NewAllocator(calendarClient, cfg.GetCalendarID(), loc, log)

	conversationModule := conversation.NewModule(pool, conversation.OrchestratorConfig{
		LeadStore:       leadRepo,
		Owners:          usersRepo,
		Responder:       conversation.NewResponder(llm),
		Allocator:       allocator,
		Sender:          smsSender,
		Bus:             eventBus,
		Log:             log,
		AITimeout:       cfg.GetAITimeout(),
		SendTimeout:     cfg.GetSendTimeout(),
		SendMaxAttempts: cfg.GetSendMaxAttempts(),
	}, usersRepo, log)

	webhookModule := webhook.NewModule(leadsModule.Service(), usersRepo, val)

	// Notification module subscribes to domain events (not HTTP-facing)
	notificationModule := notification.NewModule(usersRepo, smsSender, emailSender, log)
	notificationModule.Subscribe(eventBus)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config:   cfg,
		Logger:   log,
		Health:   db.NewPoolAdapter(pool),
		EventBus: eventBus,
		Modules: []apphttp.Module{
			leadsModule,
			automationModule,
			conversationModule,
			webhookModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

// initDispatcher prefers the durable queue; without Redis, dispatch runs
// in-process.
func initDispatcher(cfg config.SchedulerConfig, engine *automation.Engine, log *logger.Logger) (leads.Dispatcher, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; automation dispatch runs in-process")
		return scheduler.NewDirectDispatcher(engine, log), nil
	}

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize dispatch queue, falling back to in-process", "error", err)
		return scheduler.NewDirectDispatcher(engine, log), nil
	}

	return client, func() {
		_ = client.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
