// =============================================================================
// Firefly Amazon Reconciler - Transaction Mutation
// =============================================================================
//
// Applies an already-selected shipment to a transaction group. Single-item
// shipments only annotate the existing line; multi-item shipments split
// the group into one line per item. Amounts are distributed across the
// split only when the group total equals the shipment total — otherwise
// the attribution is ambiguous and the group is flagged for manual
// correction instead of guessing.
//
// =============================================================================

package reconcile

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/amazon"
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/ledger"
)

// applyShipment mutates group to reflect shipment. The caller has already
// stamped the resolution tag, so clones created here inherit it. Returns
// whether the group was additionally flagged TODO.
func applyShipment(group *ledger.TransactionGroup, shipment *amazon.Shipment, orderURL string, log *zap.Logger) bool {
	if len(shipment.Items) == 1 {
		applyItem(group.Lines[0], shipment.Items[0], orderURL, false)
		return false
	}

	// Multi-item shipment: one line per item. Amounts stay untouched
	// (original on the first line, placeholder on the clones) when the
	// totals disagree.
	distribute := group.Amount().Equal(shipment.Amount())
	if !distribute {
		log.Warn("group amount does not match shipment amount; split amounts need to be set manually",
			zap.String("group_id", group.ID),
			zap.String("group_amount", group.Amount().StringFixed(2)),
			zap.String("shipment_amount", shipment.Amount().StringFixed(2)))
		group.AddFlags(ledger.TagTodo)
	}

	first := group.Lines[0]
	group.Title = first.Description
	for len(group.Lines) < len(shipment.Items) {
		group.Lines = append(group.Lines, first.Clone())
	}

	for n, item := range shipment.Items {
		applyItem(group.Lines[n], item, orderURL, distribute)
	}

	return !distribute
}

// applyItem writes one item's annotation onto one line. With setAmount the
// line also receives the item total (unit amount × quantity); per-item
// totals sum back to the shipment amount, which equals the group amount
// whenever setAmount is true.
func applyItem(line *ledger.TransactionLine, item *amazon.ShipmentItem, orderURL string, setAmount bool) {
	if setAmount {
		line.Amount = item.Amount.Mul(decimal.NewFromInt(int64(item.Quantity)))
	}
	line.ExternalURL = orderURL
	line.InternalReference = item.PriceNote() + " @ " + item.URL
	line.Notes = item.Name
}
