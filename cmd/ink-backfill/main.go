// cmd/ink-backfill/main.go
//
// Administrative one-off: deliver the next prompt for a single user outside
// the normal schedule, e.g. after a missed day. The daily idempotency guard
// still applies, so running it twice cannot double-send.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/config"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/db"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/delivery"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/logger"
	"github.com/rachellkweiss-dotcom/ink-lings-sub000/pkg/notify"
)

func main() {
	userID := flag.Int64("user", 0, "user id to backfill")
	configPath := flag.String("config", "config.json", "path to config file")
	flag.Parse()

	if *userID == 0 {
		fmt.Fprintln(os.Stderr, "usage: ink-backfill -user <id> [-config config.json]")
		os.Exit(2)
	}

	_ = godotenv.Load()

	if err := config.LoadConfig(*configPath); err != nil {
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

	store := db.NewStore(db.DB)
	notifier := notify.NewSMTPNotifier(config.AppConfig.SMTP)
	orchestrator := delivery.NewOrchestrator(store, store, store, store, store, notifier, delivery.Options{})

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	result, err := orchestrator.Backfill(ctx, *userID, time.Now().UTC())
	if err != nil {
		logger.Error("backfill failed", "user_id", *userID, "error", err)
		os.Exit(1)
	}

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))
	if result.Outcome == delivery.OutcomeFailed {
		os.Exit(1)
	}
}
