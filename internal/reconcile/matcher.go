// =============================================================================
// Firefly Amazon Reconciler - Order Matcher
// =============================================================================
//
// Pairs the transaction groups referencing one order to that order's
// shipments. First-fit in original shipment order is the documented
// tie-break: candidates are scanned in page order and the first amount
// match wins, never the closest one — the policy is simple and
// reproducible, and repeated runs make identical decisions.
//
// =============================================================================

package reconcile

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/amazon"
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/ledger"
)

// Outcome is one group's terminal decision within a run.
type Outcome struct {
	OrderID string
	GroupID string

	// Resolution is the mutually exclusive tag the group ended with.
	Resolution ledger.Tag

	// Todo is set when the group additionally needs manual correction.
	Todo bool

	// Amount is the group total at decision time, before any split.
	Amount string

	// ShipmentTitle names the paired shipment; empty for manual residue.
	ShipmentTitle string

	// Group is the mutated group, ready to commit.
	Group *ledger.TransactionGroup
}

// matchOrder runs the matching algorithm for one order. The returned
// outcomes carry mutated groups; committing them is the caller's job.
//
// Precondition: every group references orderID and the counts of groups
// and shipments agree (the engine checks both).
func (e *Engine) matchOrder(orderID string, groups []*ledger.TransactionGroup, order *amazon.Order) []Outcome {
	log := e.log.With(zap.String("order_id", orderID))
	promotion := order.Promotion()

	// The pool keeps the original page order; matched shipments cannot be
	// reused.
	pool := append([]*amazon.Shipment(nil), order.Shipments...)
	var unassigned []*ledger.TransactionGroup
	var outcomes []Outcome

	for _, group := range groups {
		amount := group.Amount()
		matched := false

		for n, shipment := range pool {
			exact := amount.Equal(shipment.Amount())
			withPromo := amount.StringFixed(2) == shipment.Amount().Sub(promotion).StringFixed(2)
			if !exact && !withPromo {
				continue
			}

			qualifier := ""
			if !exact {
				qualifier = "with promotion "
			}
			log.Info(fmt.Sprintf("matched %sto shipment", qualifier),
				zap.String("group_id", group.ID),
				zap.String("shipment", shipment.Notes()))

			group.SetResolution(ledger.TagMatch)
			todo := applyShipment(group, shipment, order.URL, log)
			outcomes = append(outcomes, Outcome{
				OrderID:       orderID,
				GroupID:       group.ID,
				Resolution:    ledger.TagMatch,
				Todo:          todo,
				Amount:        amount.StringFixed(2),
				ShipmentTitle: shipment.Title,
				Group:         group,
			})

			pool = append(pool[:n], pool[n+1:]...)
			matched = true
			break
		}

		if !matched {
			log.Info("found no direct matches", zap.String("group_id", group.ID))
			unassigned = append(unassigned, group)
		}
	}

	// Last-standing rule: a sole leftover pair is taken regardless of the
	// amount delta (delivery fees and rounding are not captured by the
	// promotion field).
	if len(unassigned) == 1 && len(pool) == 1 {
		group, shipment := unassigned[0], pool[0]
		amount := group.Amount()

		log.Info("matched by last-standing rule",
			zap.String("group_id", group.ID),
			zap.String("shipment", shipment.Notes()))

		group.SetResolution(ledger.TagLast)
		todo := applyShipment(group, shipment, order.URL, log)
		return append(outcomes, Outcome{
			OrderID:       orderID,
			GroupID:       group.ID,
			Resolution:    ledger.TagLast,
			Todo:          todo,
			Amount:        amount.StringFixed(2),
			ShipmentTitle: shipment.Title,
			Group:         group,
		})
	}

	// Ambiguous N:M residue: defer to a human. Every leftover group gets
	// the same note listing the still-unassigned shipments, so whichever
	// transaction the operator opens shows the full picture.
	if len(unassigned) > 0 {
		note := e.resolutionNote(unassigned[0], pool)
		log.Info("filing for manual resolution",
			zap.Int("groups", len(unassigned)),
			zap.String("note", note))

		for _, group := range unassigned {
			group.SetResolution(ledger.TagManual)
			group.AddFlags(ledger.TagTodo)

			line := group.Lines[0]
			line.ExternalURL = order.URL
			line.Notes = note

			outcomes = append(outcomes, Outcome{
				OrderID:    orderID,
				GroupID:    group.ID,
				Resolution: ledger.TagManual,
				Todo:       true,
				Amount:     group.Amount().StringFixed(2),
				Group:      group,
			})
		}
	}

	return outcomes
}

// resolutionNote is the shared free-text note for manual residue: a search
// link covering every transaction of the order, then each still-unassigned
// shipment's listing.
func (e *Engine) resolutionNote(group *ledger.TransactionGroup, remaining []*amazon.Shipment) string {
	parts := []string{
		fmt.Sprintf("[All transactions for this order](%s/search?search=%s)",
			e.ledger.Host(), group.Ref.OriginalID),
		"One of the remaining shipments corresponds to this transaction:",
	}
	for _, shipment := range remaining {
		parts = append(parts, shipment.Notes())
	}
	return strings.Join(parts, "\n\n")
}
