// =============================================================================
// Firefly Amazon Reconciler - Order Source Errors
// =============================================================================

package amazon

import "fmt"

// ScrapeError is a recoverable per-order failure: the order page could not
// be fetched or parsed. The reconciliation loop leaves the order's groups
// for the next pass.
type ScrapeError struct {
	OrderID string
	Err     error
}

func (e *ScrapeError) Error() string {
	return fmt.Sprintf("scrape order %s: %v", e.OrderID, e.Err)
}

func (e *ScrapeError) Unwrap() error { return e.Err }

// SetupError is a fatal failure: the source could not establish an
// authenticated session. Retrying per order would only hammer the login
// endpoint, so the whole run terminates.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("amazon session setup: %v", e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
