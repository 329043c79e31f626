// cmd/ink-scheduler/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/api"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/config"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/db"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/delivery"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/logger"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/notify"
)

func main() {
	_ = godotenv.Load()

	if err := config.LoadConfig("config.json"); err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if err := logger.Configure(logger.Options{
		Level: config.AppConfig.Logging.Level,
		File:  config.AppConfig.Logging.File,
	}); err != nil {
		logger.Error("failed to configure logger", "error", err)
	}

	if err := db.InitDB(config.AppConfig.Database); err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	if err := db.SeedPrompts(db.DB); err != nil {
		logger.Error("failed to seed prompt catalog", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	store := db.NewStore(db.DB)
	notifier := notify.NewSMTPNotifier(config.AppConfig.SMTP)
	orchestrator := delivery.NewOrchestrator(store, store, store, store, store, notifier, delivery.Options{
		Workers:           config.AppConfig.Scheduler.Workers,
		NotifierPerSecond: config.AppConfig.Scheduler.NotifierPerSecond,
		CycleTimeout:      time.Duration(config.AppConfig.Scheduler.CycleTimeoutSecs) * time.Second,
		PerUserTimeout:    time.Duration(config.AppConfig.Scheduler.PerUserTimeoutSecs) * time.Second,
	})

	c := cron.New()
	_, err := c.AddFunc(config.AppConfig.Scheduler.CronSpec, func() {
		if _, err := orchestrator.RunCycle(ctx, time.Now().UTC()); err != nil {
			logger.Error("delivery cycle failed", "error", err)
		}
	})
	if err != nil {
		logger.Error("invalid cron spec", "spec", config.AppConfig.Scheduler.CronSpec, "error", err)
		os.Exit(1)
	}
	c.Start()

	server := &http.Server{
		Addr:    config.AppConfig.HTTP.Listen,
		Handler: api.NewRouter(api.Deps{Runner: orchestrator, Gaps: store, DB: db.DB}),
	}
	go func() {
		logger.Info("http server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			cancel()
		}
	}()

	logger.Info("scheduler started", "cron_spec", config.AppConfig.Scheduler.CronSpec)
	<-ctx.Done()

	stopCtx := c.Stop()
	<-stopCtx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	logger.Info("scheduler stopped")
}
