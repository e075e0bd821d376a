// =============================================================================
// Firefly Amazon Reconciler - Order Cache
// =============================================================================
//
// Two-slot cache keyed by order id: a success slot holding the parsed
// order as JSON, and a failure slot holding the raw page of a failed parse
// for offline diagnosis. Storing a success always evicts the co-located
// failure slot, so a fixed parser never leaves stale raw pages behind.
//
// The process is the only writer and keys are partitioned by order id,
// so no backend needs locking.
//
// =============================================================================

package cache

import (
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/amazon"
)

// Store is the two-slot order cache.
type Store interface {
	// GetOrder returns the cached parsed order for id, if any. A corrupt
	// entry is treated as a miss; the caller refetches and overwrites it.
	GetOrder(id string) (*amazon.Order, bool)

	// PutOrder stores a successfully parsed order and evicts any raw-page
	// entry for the same id.
	PutOrder(id string, order *amazon.Order) error

	// PutRaw stores the raw page of a failed parse.
	PutRaw(id string, html string) error
}
