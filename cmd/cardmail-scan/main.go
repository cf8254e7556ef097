package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/s1f10230230/credit-visual-sub000/internal/adapters/ingest"
	"github.com/s1f10230230/credit-visual-sub000/internal/core"
	"github.com/s1f10230230/credit-visual-sub000/internal/di"
	"github.com/s1f10230230/credit-visual-sub000/internal/factory"
	"github.com/s1f10230230/credit-visual-sub000/internal/mimetext"
	"github.com/s1f10230230/credit-visual-sub000/internal/subscription"
	"go.uber.org/dig"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	flags := di.ParseFlags()

	// Build the dependency injection container
	container, err := di.BuildCLIContainer(flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build dependency container: %v\n", err)
		os.Exit(1)
	}

	if err := container.Invoke(run); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type deps struct {
	dig.In

	Flags       *di.CLIFlags
	Logger      *zap.Logger
	Factory     *factory.PipelineFactory
	Pipeline    *core.Pipeline
	Source      core.MailSource
	Store       core.TransactionStore
	Categorizer core.MerchantCategorizer
}

func run(d deps) error {
	defer d.Logger.Sync()
	defer closeAll(d.Logger, d.Source, d.Categorizer, d.Store)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	printer := ingest.NewReportPrinter(os.Stdout, d.Logger, d.Flags.Verbose)

	switch {
	case d.Flags.File != "":
		if err := classifyFile(ctx, d.Flags.File, d.Pipeline, printer); err != nil {
			return err
		}
	case d.Source != nil:
		report, err := d.Pipeline.Run(ctx, core.RunOptions{})
		if report != nil {
			printer.PrintRun(report)
		}
		if err != nil {
			return fmt.Errorf("pipeline run failed: %w", err)
		}
	case !d.Flags.Subscriptions:
		return fmt.Errorf("no mail source configured; use -mbox, -source, -file or -config")
	}

	if d.Flags.Subscriptions {
		return printSubscriptions(ctx, d, printer)
	}
	return nil
}

// classifyFile runs one RFC822 message from a file or stdin through the pipeline
func classifyFile(ctx context.Context, path string, pipeline *core.Pipeline, printer *ingest.ReportPrinter) error {
	var r io.Reader
	if path == "-" {
		r = bufio.NewReader(os.Stdin)
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		r = f
	}

	msg, err := mimetext.ParseRFC822(r)
	if err != nil {
		return err
	}

	res, err := pipeline.ProcessMessage(ctx, msg)
	if res != nil {
		printer.PrintResult(&msg.Meta, res)
	}
	return err
}

func printSubscriptions(ctx context.Context, d deps, printer *ingest.ReportPrinter) error {
	txs, err := d.Store.List(ctx, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to list transactions: %w", err)
	}

	dict, err := d.Factory.CreateDictionary()
	if err != nil {
		return err
	}

	printer.PrintSubscriptions(subscription.NewDetector(dict).Detect(txs))
	return nil
}

// closeAll closes any resources that need closing
func closeAll(logger *zap.Logger, resources ...interface{}) {
	for _, r := range resources {
		if closer, ok := r.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				logger.Error("Failed to close resource", zap.Error(err))
			}
		}
	}
}
