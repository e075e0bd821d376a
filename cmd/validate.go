// =============================================================================
// Firefly Amazon Reconciler - Validate Command
// =============================================================================
//
// Checks configuration and environment without touching any data: the yaml
// file must parse and validate, every required environment variable must
// be present, and with --ping the Firefly token is exercised against the
// /about endpoint.
//
// =============================================================================

package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/config"
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/ledger"
)

// ping verifies Firefly connectivity and token validity.
var ping bool

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and environment without processing",
	Long: `The validate command loads the configuration file and the environment the
same way reconcile does, and reports every missing or invalid setting.
Nothing is scraped and nothing is written.

With --ping, the Firefly III /about endpoint is called to verify that the
configured host is reachable and the access token is accepted.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		return runValidate()
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(
		&ping,
		"ping",
		false,
		"Also verify Firefly III connectivity and token validity",
	)
}

func runValidate() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	fmt.Println("Configuration OK")
	fmt.Printf("  cache:         %s (%s)\n", cfg.CacheBackend, cfg.CacheDir)
	fmt.Printf("  base query:    %s\n", cfg.BaseQuery)
	fmt.Printf("  on scrape failure: %s\n", cfg.ScrapeFailurePolicy)

	if !ping {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client := ledger.NewClient(cfg.FireflyHost, cfg.FireflyToken, nil)
	if err := client.About(ctx); err != nil {
		return fmt.Errorf("firefly ping failed: %w", err)
	}

	fmt.Printf("Firefly III reachable at %s, token accepted\n", cfg.FireflyHost)
	return nil
}
