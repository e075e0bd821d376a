// =============================================================================
// Firefly Amazon Reconciler - Reconciliation Engine
// =============================================================================
//
// The engine drives convergence: each pass queries the ledger for pending
// groups, reconciles them order by order, and commits the results. Every
// terminal path writes notes, which removes the group from the pending
// query, so a subsequent pass sees a strictly smaller (or at worst
// unchanged) working set. The loop stops when the set is empty or
// identical by value to the previous pass — the guard against orders that
// can never resolve.
//
// Processing is deliberately single-threaded and ordered: orders ascending
// by reference, groups ascending by id within an order. The first-fit
// tie-break depends on this ordering.
//
// =============================================================================

package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/amazon"
	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/ledger"
)

// Ledger is the slice of the Firefly client the engine needs.
type Ledger interface {
	SearchTransactions(ctx context.Context, query string) ([]*ledger.TransactionGroup, error)
	UpdateTransaction(ctx context.Context, group *ledger.TransactionGroup) error
	Host() string
}

// FailurePolicy selects what happens to an order's groups when its scrape
// fails. Both behaviors exist in the field; neither is universally right.
type FailurePolicy string

const (
	// PolicyDefer leaves the groups untouched; the next pass retries them
	// and the convergence guard stops a persistent failure.
	PolicyDefer FailurePolicy = "defer"

	// PolicyTag stamps the groups with the error tag and commits, making
	// the failure visible inside Firefly.
	PolicyTag FailurePolicy = "tag"
)

// Options configure one engine run.
type Options struct {
	// DryRun computes and logs everything but issues no ledger writes,
	// and performs exactly one pass.
	DryRun bool

	// Once performs a single pass even in live mode.
	Once bool

	// OrderFilter, when set, restricts processing to one order reference.
	OrderFilter string

	// FailurePolicy defaults to PolicyDefer.
	FailurePolicy FailurePolicy

	// BaseQuery is the fixed search predicate identifying the merchant's
	// transactions; " no_notes:true" is appended to it.
	BaseQuery string
}

// SkippedOrder records an order left unresolved this run and why.
type SkippedOrder struct {
	OrderID string
	Reason  string
}

// Summary is the result of one engine run, consumed by the console
// summary block and the XLSX report.
type Summary struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Passes   int
	Outcomes []Outcome
	Skipped  []SkippedOrder
	Errored  []string // order ids committed with the error tag (PolicyTag)
}

// Counts aggregates outcomes per resolution tag.
func (s *Summary) Counts() (matched, last, manual, todo int) {
	for _, o := range s.Outcomes {
		switch o.Resolution {
		case ledger.TagMatch:
			matched++
		case ledger.TagLast:
			last++
		case ledger.TagManual:
			manual++
		}
		if o.Todo {
			todo++
		}
	}
	return matched, last, manual, todo
}

// Engine reconciles pending ledger groups against scraped orders.
type Engine struct {
	ledger Ledger
	source amazon.Source
	opts   Options
	log    *zap.Logger
}

// New builds an engine. A nil logger disables logging.
func New(l Ledger, source amazon.Source, opts Options, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.FailurePolicy == "" {
		opts.FailurePolicy = PolicyDefer
	}
	return &Engine{ledger: l, source: source, opts: opts, log: log}
}

// Run executes passes until convergence (or a single pass in dry-run /
// once mode). The returned summary is valid even when err is non-nil and
// covers everything committed before the failure.
func (e *Engine) Run(ctx context.Context) (*Summary, error) {
	summary := &Summary{
		RunID:   uuid.NewString(),
		Started: time.Now(),
	}
	defer func() { summary.Finished = time.Now() }()

	log := e.log.With(zap.String("run_id", summary.RunID))
	query := e.opts.BaseQuery + " no_notes:true"
	previous := ""

	for {
		groups, err := e.ledger.SearchTransactions(ctx, query)
		if err != nil {
			return summary, err
		}
		groups = e.eligible(groups)

		if len(groups) == 0 {
			log.Info("no new transaction groups were found")
			return summary, nil
		}

		ledger.SortGroups(groups)

		current := fingerprint(groups)
		if current == previous {
			log.Info("pending groups unchanged since last pass; stopping",
				zap.Int("groups", len(groups)))
			return summary, nil
		}
		previous = current

		log.Info("starting pass",
			zap.Int("pass", summary.Passes+1),
			zap.Int("groups", len(groups)))

		if err := e.pass(ctx, log, groups, summary); err != nil {
			return summary, err
		}
		summary.Passes++

		if e.opts.DryRun || e.opts.Once {
			return summary, nil
		}
	}
}

// eligible drops groups without a parseable order reference, groups
// already split into multiple lines, and applies the order filter.
func (e *Engine) eligible(groups []*ledger.TransactionGroup) []*ledger.TransactionGroup {
	kept := groups[:0]
	for _, group := range groups {
		if group.Ref == nil {
			e.log.Debug("skipping group without order reference",
				zap.String("group_id", group.ID))
			continue
		}
		// The matcher annotates pending groups starting from a single
		// line; a pre-split group would get notes on its first line only
		// and keep reappearing pending. Left for a human instead.
		if len(group.Lines) != 1 {
			e.log.Warn("skipping group that already has multiple lines",
				zap.String("group_id", group.ID),
				zap.Int("lines", len(group.Lines)))
			continue
		}
		if e.opts.OrderFilter != "" && group.Ref.OrderID != e.opts.OrderFilter {
			continue
		}
		kept = append(kept, group)
	}
	return kept
}

// pass reconciles one sorted working set, order by order. Recoverable
// per-order failures are logged and recorded; fatal ones abort the run.
func (e *Engine) pass(ctx context.Context, log *zap.Logger, groups []*ledger.TransactionGroup, summary *Summary) error {
	for start := 0; start < len(groups); {
		end := start + 1
		for end < len(groups) && groups[end].Ref.OrderID == groups[start].Ref.OrderID {
			end++
		}

		orderID := groups[start].Ref.OrderID
		if err := e.processOrder(ctx, orderID, groups[start:end], summary); err != nil {
			if !Recoverable(err) {
				return err
			}
			log.Warn("order left unresolved this pass",
				zap.String("order_id", orderID), zap.Error(err))
			summary.Skipped = append(summary.Skipped, SkippedOrder{
				OrderID: orderID,
				Reason:  err.Error(),
			})
		}

		start = end
	}
	return nil
}

// processOrder scrapes one order and reconciles its groups.
func (e *Engine) processOrder(ctx context.Context, orderID string, groups []*ledger.TransactionGroup, summary *Summary) error {
	log := e.log.With(zap.String("order_id", orderID))
	log.Info("processing order", zap.Int("groups", len(groups)))

	order, err := e.source.ScrapeOrder(ctx, orderID)
	if err != nil {
		if e.opts.FailurePolicy == PolicyTag && Recoverable(err) {
			return e.tagErrored(ctx, log, orderID, groups, summary, err)
		}
		return err
	}

	log.Info("order summary", zap.String("summary", order.Summary))

	if len(groups) != len(order.Shipments) {
		return &PaginationMismatch{
			OrderID:   orderID,
			Groups:    len(groups),
			Shipments: len(order.Shipments),
		}
	}

	outcomes := e.matchOrder(orderID, groups, order)
	for _, outcome := range outcomes {
		if err := e.commit(ctx, outcome.Group); err != nil {
			return err
		}
	}
	summary.Outcomes = append(summary.Outcomes, outcomes...)

	return nil
}

// tagErrored implements PolicyTag: stamp every group of the failed order
// with the error tag and commit. Notes stay empty, so the groups remain
// queryable as pending; the convergence guard ends the retries instead.
func (e *Engine) tagErrored(ctx context.Context, log *zap.Logger, orderID string, groups []*ledger.TransactionGroup, summary *Summary, cause error) error {
	log.Info("marking all transactions with the error tag", zap.Error(cause))

	for _, group := range groups {
		group.AddFlags(ledger.TagError)
		if err := e.commit(ctx, group); err != nil {
			return err
		}
	}

	summary.Errored = append(summary.Errored, orderID)
	return nil
}

// commit writes one group through the ledger client. In dry-run mode the
// exact would-be payload is logged and no write happens.
func (e *Engine) commit(ctx context.Context, group *ledger.TransactionGroup) error {
	if e.opts.DryRun {
		payload, err := json.Marshal(group.Payload())
		if err != nil {
			return fmt.Errorf("encode group %s: %w", group.ID, err)
		}
		e.log.Debug("dry-run: skipping update",
			zap.String("group_id", group.ID),
			zap.ByteString("payload", payload))
		return nil
	}
	return e.ledger.UpdateTransaction(ctx, group)
}

func fingerprint(groups []*ledger.TransactionGroup) string {
	parts := make([]string, 0, len(groups))
	for _, group := range groups {
		parts = append(parts, group.Fingerprint())
	}
	return strings.Join(parts, "\n")
}
