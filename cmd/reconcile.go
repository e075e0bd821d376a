// =============================================================================
// Firefly Amazon Reconciler - Reconcile Command
// =============================================================================
//
// The main command. Wires the configured cache backend, the Amazon order
// source and the Firefly client into the reconciliation engine and runs
// it until the pending set converges (or for exactly one pass in dry-run
// or --once mode).
//
// PIPELINE:
//   1. Load configuration and environment
//   2. Build cache backend (file or redis), scraper, Firefly client
//   3. Run reconciliation passes until no progress is possible
//   4. Print the run summary, optionally export an XLSX report
//
// Orders are processed strictly one at a time: the first-fit matching
// policy depends on deterministic ordering, so there is no concurrent
// fan-out here.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/amazon"
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/cache"
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/config"
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/ledger"
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/reconcile"
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/report"
)

// dryRun computes and logs all outcomes without writing to Firefly.
var dryRun bool

// once performs a single pass even in live mode.
var once bool

// orderFilter restricts processing to a single order reference.
var orderFilter string

// reportFile, when set, receives an XLSX report of the run.
var reportFile string

// reconcileCmd represents the 'reconcile' command.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match pending transaction groups to Amazon shipments",
	Long: `The reconcile command searches Firefly III for transaction groups that
reference an Amazon order but carry no notes yet, scrapes each referenced
order, matches groups to shipments by amount (exact or promotion-adjusted,
with a last-standing fallback), and commits the annotated groups back.

Every committed group gets notes, which removes it from the pending search;
passes repeat until the pending set is empty or stops changing. A scrape
failure only defers that one order — other orders in the same pass are
unaffected.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runReconcile()
	},
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	reconcileCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Run in read-only mode, without changing any data in Firefly III",
	)

	reconcileCmd.Flags().BoolVar(
		&once,
		"once",
		false,
		"Perform a single pass instead of looping until convergence",
	)

	reconcileCmd.Flags().StringVar(
		&orderFilter,
		"order",
		"",
		"Process only transaction groups referencing this order id",
	)

	reconcileCmd.Flags().StringVar(
		&reportFile,
		"report",
		"",
		"Write an XLSX report of the run to this file",
	)
}

// runReconcile wires the components and executes the run.
func runReconcile() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	logger, err := cfg.NewLogger(verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	// SIGINT/SIGTERM cancel the context; cancellation is fatal by design
	// and skips the commit of any in-flight order.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := buildCache(ctx, cfg, logger)
	if err != nil {
		return err
	}

	scraper := amazon.NewScraper(
		cfg.AmazonHost,
		amazon.Credentials{Email: cfg.AmazonUser, Password: cfg.AmazonPassword},
		store,
		amazon.DelayBounds{
			Min: time.Duration(*cfg.MinDelaySeconds) * time.Second,
			Max: time.Duration(*cfg.MaxDelaySeconds) * time.Second,
		},
		logger,
	)

	firefly := ledger.NewClient(cfg.FireflyHost, cfg.FireflyToken, logger)

	engine := reconcile.New(firefly, scraper, reconcile.Options{
		DryRun:        dryRun,
		Once:          once,
		OrderFilter:   orderFilter,
		FailurePolicy: reconcile.FailurePolicy(cfg.ScrapeFailurePolicy),
		BaseQuery:     cfg.BaseQuery,
	}, logger)

	summary, runErr := engine.Run(ctx)
	printSummary(summary)

	if reportFile != "" {
		if err := report.Write(reportFile, summary); err != nil {
			logger.Error("writing report failed", zap.Error(err))
		} else {
			fmt.Printf("Report written to %s\n", reportFile)
		}
	}

	return runErr
}

// buildCache constructs the configured order-cache backend.
func buildCache(ctx context.Context, cfg *config.Config, logger *zap.Logger) (cache.Store, error) {
	switch cfg.CacheBackend {
	case "redis":
		return cache.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPass, logger)
	default:
		return cache.NewFileStore(cfg.CacheDir, logger)
	}
}

// printSummary renders the end-of-run block.
func printSummary(summary *reconcile.Summary) {
	matched, last, manual, todo := summary.Counts()

	fmt.Println("\n=== Reconciliation Complete ===")
	fmt.Printf("Passes:          %d\n", summary.Passes)
	fmt.Printf("Matched:         %d\n", matched)
	fmt.Printf("Last-standing:   %d\n", last)
	fmt.Printf("Manual:          %d\n", manual)
	fmt.Printf("Flagged TODO:    %d\n", todo)
	fmt.Printf("Tagged ERROR:    %d\n", len(summary.Errored))
	fmt.Printf("Skipped orders:  %d\n", len(summary.Skipped))
	fmt.Printf("Time elapsed:    %s\n", summary.Finished.Sub(summary.Started).Round(time.Millisecond))

	for _, skipped := range summary.Skipped {
		fmt.Printf("  ✗ %s: %s\n", skipped.OrderID, skipped.Reason)
	}
}
