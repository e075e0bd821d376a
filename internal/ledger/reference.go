// =============================================================================
// Firefly Amazon Reconciler - Order Reference Parsing
// =============================================================================
//
// Bank imports land in Firefly III with descriptions like
//
//   "AMZN Mktp DE 028-1234567.7654321 AB12CD3EF"
//
// where the middle token is the Amazon order id (with the last separator
// mangled to a dot by the bank) and the trailing token is the bank's own
// transaction id. This file isolates the recovery of that reference as one
// pure function so it can be tested independently of the matcher.
//
// =============================================================================

package ledger

import (
	"regexp"
	"strings"
)

// orderRefRe captures the order id and the bank transaction id out of a
// free-text group title or transaction description.
var orderRefRe = regexp.MustCompile(`(?i)\bAMZN\b.*?(\d{3}-\d{7}[-.]\d{7})\s+(\S+)`)

// OrderReference links a transaction group to a specific Amazon order.
type OrderReference struct {
	// OriginalID is the order id exactly as it appeared in the bank text,
	// used for Firefly search links so operators find the raw imports.
	OriginalID string

	// OrderID is the normalized order id (dots replaced by dashes),
	// as Amazon's order-details endpoint expects it.
	OrderID string

	// BankTxID is the bank's own transaction identifier.
	BankTxID string
}

// ParseOrderReference scans the given texts in order and returns the first
// recoverable order reference, or nil when none of them carry one.
// Empty strings are skipped.
func ParseOrderReference(texts ...string) *OrderReference {
	for _, text := range texts {
		if text == "" {
			continue
		}
		m := orderRefRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return &OrderReference{
			OriginalID: m[1],
			OrderID:    strings.ReplaceAll(m[1], ".", "-"),
			BankTxID:   m[2],
		}
	}
	return nil
}
