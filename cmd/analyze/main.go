// Command analyze submits one analysis job from the terminal and streams
// its lifecycle to stdout. Useful for poking the backend without the
// dashboard in front of it.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"pricesync/internal/backend"
	"pricesync/internal/dto"
	"pricesync/internal/service"
	"pricesync/pkg/config"
	"pricesync/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Logger.Level); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(&cfg.Backend, appLogger)
	jobService := service.NewJobService(client, backend.IsTransportError, cfg.Poller, appLogger)

	spec := &dto.JobSpec{Kind: "full-analysis"}
	if len(os.Args) > 1 {
		// Any argument turns this into a quick check with that query.
		spec = &dto.JobSpec{Kind: "quick-check", Query: os.Args[1]}
	}

	jobID, err := jobService.Submit(ctx, spec)
	if err != nil {
		appLogger.Fatal("Submission failed", zap.Error(err))
	}
	fmt.Printf("job %s submitted (%s)\n", jobID, spec.Kind)

	profile := jobService.CoarseProfile()
	if spec.Kind == "quick-check" {
		profile = jobService.FineProfile()
	}

	for update := range jobService.Watch(ctx, jobID, profile) {
		switch {
		case update.Err != nil:
			fmt.Printf("job %s: %v\n", jobID, update.Err)
			os.Exit(1)
		case update.Job != nil:
			fmt.Printf("job %s: %s %s\n", jobID, update.Job.Status, update.Job.StatusMessage)
			if update.Job.Status.Terminal() {
				fmt.Printf("result: %s\n", string(update.Job.Result))
			}
		}
	}
}
