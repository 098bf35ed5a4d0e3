package main

import (
	"context"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/nimasrn/inquiry-desk/internal/app"
	"github.com/nimasrn/inquiry-desk/internal/config"
	"github.com/nimasrn/inquiry-desk/internal/model"
	"github.com/nimasrn/inquiry-desk/internal/repository"
	"github.com/nimasrn/inquiry-desk/internal/services"
	"github.com/nimasrn/inquiry-desk/internal/validation"
	"github.com/nimasrn/inquiry-desk/pkg/logger"
	"github.com/nimasrn/inquiry-desk/pkg/worker"
)

const batchLimit = 500

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := config.Load(app.EnvPath(os.Args)); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Get()
	if err := logger.Setup(cfg.LoggerConfig()); err != nil {
		logger.Error("failed to set up logger", "error", err)
		os.Exit(1)
	}
	defer logger.Sync()
	logger.Info("starting resender", "version", version, "commit", commit, "date", date, "window", cfg.ResendWindow.String())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		logger.Error("resender failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	db, err := app.OpenDB(cfg)
	if err != nil {
		return err
	}
	defer db.Close() //nolint

	dispatcher, err := app.NewDispatcher(cfg)
	if err != nil {
		return err
	}
	svc := services.NewContactService(repository.NewSubmissionRepository(db), dispatcher, validation.NewContactValidator(), nil).
		WithDispatchTimeout(cfg.MailDispatchTimeout)

	pending, err := svc.PendingNotifications(ctx, time.Now().Add(-cfg.ResendWindow), batchLimit)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Info("no pending notifications")
		return nil
	}

	var sent, failed atomic.Int64
	w := worker.NewWorkerManager(len(pending), cfg.ResendWorkers, func(ctx context.Context, idx int, sub *model.Submission) {
		if _, err := svc.Redispatch(ctx, sub.ID); err != nil {
			failed.Add(1)
			logger.Warn("resend failed", "worker", idx, "submission_id", sub.ID, "error", err)
			return
		}
		sent.Add(1)
	})
	w.Start(ctx)
	for _, sub := range pending {
		if err := w.Enqueue(ctx, sub); err != nil {
			break
		}
	}
	w.Close()
	w.Wait()

	logger.Info("resend finished", "pending", len(pending), "sent", sent.Load(), "failed", failed.Load())
	return ctx.Err()
}
