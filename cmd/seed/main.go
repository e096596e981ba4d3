package main

import (
	"context"
	"flag"
	"log"

	"query-evolver/internal/config"
	"query-evolver/internal/evolution"
	"query-evolver/internal/logging"
	"query-evolver/internal/repository"
	"query-evolver/internal/workflow"
)

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()
	defer logger.Sync()

	envFile := flag.String("env", "", "Path to .env file")
	flag.Parse()

	cfg, err := config.LoadConfig(*envFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	store, closeStore, err := repository.Open(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open generation store: %v", err)
	}
	defer closeStore()

	rec, created, err := evolution.SeedDefault(ctx, store, workflow.NewRegistry())
	if err != nil {
		closeStore()
		log.Fatalf("Failed to seed default workflow: %v", err)
	}
	if !created {
		logger.Info("Store already holds generations, nothing seeded", "latest", rec.Generation)
		return
	}
	logger.Info("Seeded default workflow", "generation", rec.Generation, "stages", len(rec.Workflow.Stages), "run_id", rec.RunID)
}
