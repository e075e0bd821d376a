// =============================================================================
// Firefly Amazon Reconciler - Error Classification
// =============================================================================
//
// The loop's per-order boundary catches recoverable failures (the order is
// retried on a later pass) and lets fatal ones escape unmodified. The
// classification is explicit, never a catch-all: an unknown error kind is
// fatal, because silently retrying e.g. a failed ledger write would hide
// data problems.
//
// =============================================================================

package reconcile

import (
	"context"
	"errors"
	"fmt"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/amazon"
)

// PaginationMismatch means the number of pending groups for an order does
// not equal the number of its shipments, usually because one of the two
// listings was truncated. The order is skipped this pass and retried once
// the counts agree.
type PaginationMismatch struct {
	OrderID   string
	Groups    int
	Shipments int
}

func (e *PaginationMismatch) Error() string {
	return fmt.Sprintf("order %s: groups count (%d) != shipments count (%d), probably a pagination issue",
		e.OrderID, e.Groups, e.Shipments)
}

// Recoverable reports whether err may be isolated at the per-order
// boundary. Cancellation and session-setup failures are always fatal.
func Recoverable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var setupErr *amazon.SetupError
	if errors.As(err, &setupErr) {
		return false
	}

	var scrapeErr *amazon.ScrapeError
	var mismatch *PaginationMismatch
	return errors.As(err, &scrapeErr) || errors.As(err, &mismatch)
}
