// =============================================================================
// Firefly Amazon Reconciler - Main Entry Point
// =============================================================================
//
// Entry point for the reconciler CLI. Initializes the Cobra framework and
// delegates command execution to the cmd package.
//
// USAGE:
//   reconciler reconcile    - Reconcile pending transaction groups
//   reconciler validate     - Validate configuration without processing
//   reconciler version      - Display the application version
//
// ARCHITECTURE:
//   - cmd/        : CLI command definitions (Cobra)
//   - internal/   : core business logic (not for external import)
//   - pkg/        : shared utilities
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/firefly-amazon-reconciler/cmd"
)

func main() {
	cmd.Execute()
}
