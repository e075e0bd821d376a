// =============================================================================
// Firefly Amazon Reconciler - Root Command
// =============================================================================
//
// Root command of the Cobra CLI. All subcommands attach here:
//
//   reconciler
//   ├── reconcile   (run the reconciliation loop)
//   ├── validate    (check configuration and connectivity)
//   └── version     (build information)
//
// The root command owns the global flags: --config for the yaml file and
// --verbose for debug logging.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// cfgFile holds the path to the main configuration file,
// overridable with --config.
var cfgFile string

// verbose enables debug logging when set.
var verbose bool

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "reconciler",
	Short: "Reconcile Firefly III transactions against Amazon order data",
	Long: `Firefly Amazon Reconciler matches pending Firefly III transaction groups
to the shipments of the Amazon orders they reference, annotates them with
item details, splits multi-item shipments into per-item transaction lines,
and writes the result back through the Firefly API.

Matching is by amount, exact or promotion-adjusted, with a last-standing
fallback; anything still ambiguous is tagged for manual resolution instead
of guessed at.

Example Usage:
  reconciler reconcile --dry-run      # One pass, log everything, write nothing
  reconciler reconcile                # Run passes until the pending set converges
  reconciler validate --ping          # Check config, env and the Firefly token`,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute adds all child commands to the root command and sets flags
// appropriately. Called once from main.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}
