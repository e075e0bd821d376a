// =============================================================================
// Firefly Amazon Reconciler - Amazon Order Model
// =============================================================================
//
// Immutable view of one scraped order: the raw summary text (promotions are
// recovered from it by pattern), the payments text, and one or more
// shipments of one or more items each. Orders round-trip through JSON for
// the cache's success slot.
//
// =============================================================================

package amazon

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// summaryPromoRe recovers the order-level discount out of the order
	// summary, e.g. "Promotion Applied: -EUR 1.00".
	summaryPromoRe = regexp.MustCompile(`Promotion Applied: -\w+ ([\d.,]+)`)

	// refundRe flags shipments that are returns rather than deliveries.
	refundRe = regexp.MustCompile(`^(Return|Replacement) `)
)

// Order is one scraped Amazon order.
type Order struct {
	// URL is the order-details page the order was scraped from.
	URL string `json:"url"`

	// Summary is the subtotals box as plain text; the promotion amount is
	// derived from it.
	Summary string `json:"summary"`

	// Transactions is the payments box as plain text, kept for logs.
	Transactions string `json:"transactions"`

	Shipments []*Shipment `json:"shipments"`
}

// NewOrder builds an order, rejecting one without shipments: an order page
// with zero shipment boxes means the parse missed them, never that the
// order is empty.
func NewOrder(url, summary, transactions string, shipments []*Shipment) (*Order, error) {
	if len(shipments) == 0 {
		return nil, fmt.Errorf("order cannot exist without shipments")
	}
	return &Order{
		URL:          url,
		Summary:      summary,
		Transactions: transactions,
		Shipments:    shipments,
	}, nil
}

// Promotion is the order-level discount parsed from the summary,
// zero when none was applied.
func (o *Order) Promotion() decimal.Decimal {
	m := summaryPromoRe.FindStringSubmatch(o.Summary)
	if m == nil {
		return decimal.Zero
	}
	promo, err := decimal.NewFromString(strings.ReplaceAll(m[1], ",", "."))
	if err != nil {
		return decimal.Zero
	}
	return promo
}

func (o *Order) String() string {
	var b strings.Builder
	b.WriteString(o.URL)
	b.WriteString("\nSummary:\n")
	writeIndented(&b, o.Summary)
	b.WriteString("\nTransactions:\n")
	writeIndented(&b, o.Transactions)
	b.WriteString("\nShipments:")
	for _, s := range o.Shipments {
		b.WriteByte('\n')
		writeIndented(&b, s.String())
	}
	return b.String()
}

// Shipment is one delivery unit of an order.
type Shipment struct {
	Title string          `json:"title"`
	Items []*ShipmentItem `json:"items"`
}

// Amount is the shipment total: Σ(item amount × quantity).
func (s *Shipment) Amount() decimal.Decimal {
	sum := decimal.Zero
	for _, item := range s.Items {
		sum = sum.Add(item.Amount.Mul(decimal.NewFromInt(int64(item.Quantity))))
	}
	return sum
}

// Currency is the shipment currency, taken from the first item.
func (s *Shipment) Currency() string {
	return s.Items[0].Currency
}

// IsRefund reports whether the shipment is a return or replacement.
func (s *Shipment) IsRefund() bool {
	return refundRe.MatchString(s.Title)
}

// Notes renders the shipment as the human-readable block used in manual
// resolution notes and logs.
func (s *Shipment) Notes() string {
	lines := make([]string, 0, len(s.Items)+1)
	lines = append(lines, fmt.Sprintf("%s | %s %s", s.Title, s.Currency(), s.Amount().StringFixed(2)))
	for _, item := range s.Items {
		lines = append(lines, "- "+item.String())
	}
	return strings.Join(lines, "\n")
}

func (s *Shipment) String() string { return s.Notes() }

// ShipmentItem is one purchased product inside a shipment.
type ShipmentItem struct {
	URL      string          `json:"url"`
	Name     string          `json:"name"`
	Currency string          `json:"currency"`
	Amount   decimal.Decimal `json:"amount"`
	Quantity int             `json:"quantity"`
}

// PriceNote is the human price string written into internal references,
// e.g. "EUR 2.50 x2"; the quantity suffix is omitted for single items.
func (i *ShipmentItem) PriceNote() string {
	note := fmt.Sprintf("%s %s", i.Currency, i.Amount.StringFixed(2))
	if i.Quantity > 1 {
		note += fmt.Sprintf(" x%d", i.Quantity)
	}
	return note
}

func (i *ShipmentItem) String() string {
	return fmt.Sprintf("%s @ %s | %s", i.PriceNote(), i.URL, i.Name)
}

// ParsePrice parses a scraped amount, normalizing the comma decimal
// separator localized pages render.
func ParsePrice(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", "."))
}

func writeIndented(b *strings.Builder, text string) {
	for n, line := range strings.Split(text, "\n") {
		if n > 0 {
			b.WriteByte('\n')
		}
		b.WriteString("  " + line)
	}
}
