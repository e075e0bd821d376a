// =============================================================================
// Firefly Amazon Reconciler - Transaction Line
// =============================================================================
//
// A TransactionLine is one split of a Firefly III transaction group. The
// Firefly update endpoint has full-replace semantics: every field of every
// split must be resent on PUT, so each line keeps an opaque passthrough
// payload of the fields the reconciler never touches and merges its own
// mutations over it when the payload is built.
//
// =============================================================================

package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// placeholderAmount seeds newly split lines. Firefly rejects zero or
// negative amounts on new splits, so clones start at the smallest valid
// positive unit until a real amount is distributed.
var placeholderAmount = decimal.RequireFromString("0.01")

// passthroughKeys is the subset of raw transaction fields that Firefly
// accepts back on PUT. Anything outside this list (e.g. currency_code,
// computed links) must not be resent.
var passthroughKeys = []string{
	"amount", "book_date", "budget_id", "category_name", "currency_id",
	"date", "description", "destination_id", "destination_name", "due_date",
	"external_url", "foreign_amount", "foreign_currency_id", "interest_date",
	"internal_reference", "invoice_date", "notes", "payment_date",
	"process_date", "source_id", "source_name", "tags",
	"transaction_journal_id", "type",
}

// TransactionLine is a single transaction split.
type TransactionLine struct {
	// JournalID identifies the split inside Firefly. Zero means the line
	// was created by the reconciler and is not persisted yet.
	JournalID int64

	Description       string
	Amount            decimal.Decimal
	Notes             string
	InternalReference string
	ExternalURL       string
	Tags              []string

	// raw is the passthrough payload, already filtered to passthroughKeys.
	raw map[string]any
}

// NewTransactionLine builds a line from one raw transaction object of a
// Firefly search result.
func NewTransactionLine(raw map[string]any) (*TransactionLine, error) {
	amount, err := ParseAmount(stringField(raw, "amount"))
	if err != nil {
		return nil, fmt.Errorf("transaction amount: %w", err)
	}

	line := &TransactionLine{
		JournalID:         journalID(raw),
		Description:       stringField(raw, "description"),
		Amount:            amount,
		Notes:             stringField(raw, "notes"),
		InternalReference: stringField(raw, "internal_reference"),
		ExternalURL:       stringField(raw, "external_url"),
		Tags:              stringSliceField(raw, "tags"),
		raw:               filterKeys(raw, passthroughKeys),
	}

	// Firefly hands foreign_currency_id back in shapes it refuses on PUT.
	line.raw["foreign_currency_id"] = normalizeForeignCurrency(raw["foreign_currency_id"])

	return line, nil
}

// Clone returns a copy of the line representing a new, unsaved split.
// The copy starts with the placeholder amount until a real one is assigned.
func (t *TransactionLine) Clone() *TransactionLine {
	raw := make(map[string]any, len(t.raw))
	for k, v := range t.raw {
		raw[k] = v
	}

	return &TransactionLine{
		JournalID:         0,
		Description:       t.Description,
		Amount:            placeholderAmount,
		Notes:             t.Notes,
		InternalReference: t.InternalReference,
		ExternalURL:       t.ExternalURL,
		Tags:              append([]string(nil), t.Tags...),
		raw:               raw,
	}
}

// SetResolution stamps one of the mutually exclusive resolution tags,
// clearing every reconciler-owned tag first.
func (t *TransactionLine) SetResolution(tag Tag) {
	t.Tags = append(removeOwnTags(t.Tags), string(tag))
}

// AddFlags appends flag tags (todo / error) without touching existing
// ones. Adding a tag that is already present is a no-op, so repeated
// passes over the same group reach a fixed point.
func (t *TransactionLine) AddFlags(tags ...Tag) {
	for _, tag := range tags {
		if !contains(t.Tags, string(tag)) {
			t.Tags = append(t.Tags, string(tag))
		}
	}
}

func contains(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Payload assembles the full-replace PUT body for this line: the
// passthrough fields with every mutated field merged over them.
func (t *TransactionLine) Payload() map[string]any {
	payload := make(map[string]any, len(t.raw)+6)
	for k, v := range t.raw {
		payload[k] = v
	}

	payload["transaction_journal_id"] = strconv.FormatInt(t.JournalID, 10)
	payload["description"] = t.Description
	payload["amount"] = t.Amount.StringFixed(2)
	payload["notes"] = t.Notes
	payload["tags"] = t.Tags
	payload["external_url"] = t.ExternalURL
	payload["internal_reference"] = t.InternalReference

	return payload
}

func (t *TransactionLine) String() string {
	return fmt.Sprintf("jid: %d, amount: %s, description: %s, tags: %v, url: %s, iref: %s, notes: %s",
		t.JournalID, t.Amount.StringFixed(2), t.Description, t.Tags,
		t.ExternalURL, t.InternalReference, t.Notes)
}

// ParseAmount parses a ledger amount string, tolerating comma decimal
// separators the way bank imports produce them.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return decimal.Zero, fmt.Errorf("empty amount")
	}
	return decimal.NewFromString(s)
}

func journalID(raw map[string]any) int64 {
	switch v := raw["transaction_journal_id"].(type) {
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0
		}
		return id
	case float64:
		return int64(v)
	default:
		return 0
	}
}

func stringField(raw map[string]any, key string) string {
	if s, ok := raw[key].(string); ok {
		return s
	}
	return ""
}

func stringSliceField(raw map[string]any, key string) []string {
	switch v := raw[key].(type) {
	case []string:
		return append([]string(nil), v...)
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// filterKeys copies the subset of raw under the given keys.
func filterKeys(raw map[string]any, keys []string) map[string]any {
	out := make(map[string]any, len(keys))
	for _, key := range keys {
		if v, ok := raw[key]; ok {
			out[key] = v
		}
	}
	return out
}

// normalizeForeignCurrency maps the zero id to null; Firefly rejects a
// literal 0 on PUT.
func normalizeForeignCurrency(v any) any {
	switch id := v.(type) {
	case nil:
		return nil
	case string:
		n, err := strconv.ParseInt(id, 10, 64)
		if err != nil || n == 0 {
			return nil
		}
		return n
	case float64:
		if id == 0 {
			return nil
		}
		return int64(id)
	default:
		return nil
	}
}
