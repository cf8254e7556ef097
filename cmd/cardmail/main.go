package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/s1f10230230/credit-visual-sub000/internal/config"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/di"
	"github.com/s1f10230230/credit-visual-sub000/internal/ports"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

func main() {
	// A missing .env is fine; the environment and config file still apply
	_ = godotenv.Load()

	// Build the dependency injection container
	container, err := di.BuildContainer()
	if err != nil {
		fmt.Printf("Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	// Run the application
	if err := container.Invoke(run); err != nil {
		fmt.Printf("Application error: %v\n", err)
		os.Exit(1)
	}
}

type deps struct {
	dig.In

	Config      *config.Config
	Logger      *zap.Logger
	Pipeline    *core.Pipeline
	Ingestor    ports.Ingestor
	Source      core.MailSource
	Ledger      core.MessageLedger
	Store       core.TransactionStore
	Categorizer core.MerchantCategorizer
}

// run is the main application function that gets all dependencies injected
func run(d deps) error {
	logger := d.Logger
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Start the SMTP ingest server
	if d.Ingestor != nil {
		if err := d.Ingestor.Start(); err != nil {
			logger.Error("Failed to start ingest server", zap.Error(err))
			return err
		}
	}

	// Run the pipeline periodically when a pull source is configured
	var wg sync.WaitGroup
	if d.Source != nil {
		interval := d.Config.GetPipeline().Interval
		wg.Add(1)
		go func() {
			defer wg.Done()
			runPeriodically(ctx, d.Pipeline, d.Ledger, interval, logger)
		}()
	}

	if d.Ingestor == nil && d.Source == nil {
		logger.Warn("Neither a mail source nor the SMTP server is configured; nothing to do")
	}

	// Handle graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	<-sigCh
	logger.Info("Shutting down...")

	cancel()
	wg.Wait()

	if d.Ingestor != nil {
		if err := d.Ingestor.Stop(); err != nil {
			logger.Error("Failed to stop ingest server", zap.Error(err))
		}
	}

	closeAll(logger, d.Source, d.Categorizer, d.Store)

	// Stop the ledger cleanup task
	if stopper, ok := d.Ledger.(interface{ Stop() }); ok {
		stopper.Stop()
	}

	logger.Info("Shutdown complete")
	return nil
}

// runPeriodically runs the pipeline now and then every interval until ctx is done
func runPeriodically(ctx context.Context, pipeline *core.Pipeline, ledger core.MessageLedger, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := pipeline.Run(ctx, core.RunOptions{}); err != nil && ctx.Err() == nil {
			logger.Error("Pipeline run failed", zap.Error(err))
		}
		if ledger != nil && ctx.Err() == nil {
			if err := ledger.Cleanup(ctx); err != nil {
				logger.Warn("Ledger cleanup failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// closeAll closes any resources that need closing
func closeAll(logger *zap.Logger, resources ...interface{}) {
	for _, r := range resources {
		if closer, ok := r.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close resource", zap.String("type", fmt.Sprintf("%T", r)), zap.Error(err))
			}
		}
	}
}
