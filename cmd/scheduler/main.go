package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"leadpilot_backend/internal/automation"
	"leadpilot_backend/internal/channel"
	"leadpilot_backend/internal/leads"
	"leadpilot_backend/internal/scheduler"
	"leadpilot_backend/internal/users"
	"leadpilot_backend/platform/config"
	"leadpilot_backend/platform/db"
	"leadpilot_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	var smsSender channel.Sender
	if s := channel.NewSMSSender(cfg, log); s != nil {
		smsSender = s
	} else {
		smsSender = channel.NewNoopSender(channel.SMS, log)
	}
	var emailSender channel.Sender
	if e := channel.NewEmailSender(cfg); e != nil {
		emailSender = e
	} else {
		emailSender = channel.NewNoopSender(channel.EMAIL, log)
	}
	senders := map[string]channel.Sender{
		channel.SMS:   smsSender,
		channel.EMAIL: emailSender,
	}

	leadRepo := leads.NewRepository(pool)
	usersRepo := users.NewRepository(pool)
	ruleRepo := automation.NewRepository(pool)
	engine := automation.NewEngine(leadRepo, usersRepo, ruleRepo, senders, log, cfg.GetSendTimeout())

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize dispatch client", "error", err)
		panic("failed to initialize dispatch client: " + err.Error())
	}
	defer func() {
		_ = client.Close()
	}()

	sweeper := scheduler.NewSweeper(leadRepo, client, cfg, log)
	go sweeper.Run(ctx)

	worker, err := scheduler.NewWorker(cfg, engine, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	worker.Run(ctx)
	log.Info("scheduler stopped")
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
