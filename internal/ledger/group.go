// =============================================================================
// Firefly Amazon Reconciler - Transaction Group
// =============================================================================
//
// A TransactionGroup is one Firefly III group as returned by the search
// API: an ordered, non-empty list of transaction lines plus an optional
// group title. The order reference recovered from its texts is the join
// key to the Amazon order; groups without one are excluded from
// reconciliation.
//
// =============================================================================

package ledger

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// TransactionGroup is one search-result group, mutated in place by the
// matcher and committed back through the client.
type TransactionGroup struct {
	ID    string
	Title string

	// Lines is ascending by journal id, so original splits come before
	// any reconciler-created ones.
	Lines []*TransactionLine

	// Ref is the recovered order reference, nil when no text carried one.
	Ref *OrderReference
}

// NewTransactionGroup builds a group from one raw search-result object.
// Lines are sorted ascending by journal id and the order reference is
// recovered from the group title and every line description.
func NewTransactionGroup(id string, title string, rawLines []map[string]any) (*TransactionGroup, error) {
	if len(rawLines) == 0 {
		return nil, fmt.Errorf("group %s: no transactions", id)
	}

	lines := make([]*TransactionLine, 0, len(rawLines))
	for _, raw := range rawLines {
		line, err := NewTransactionLine(raw)
		if err != nil {
			return nil, fmt.Errorf("group %s: %w", id, err)
		}
		lines = append(lines, line)
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].JournalID < lines[j].JournalID
	})

	texts := []string{title}
	for _, line := range lines {
		texts = append(texts, line.Description)
	}

	return &TransactionGroup{
		ID:    id,
		Title: title,
		Lines: lines,
		Ref:   ParseOrderReference(texts...),
	}, nil
}

// Amount is the sum of all line amounts.
func (g *TransactionGroup) Amount() decimal.Decimal {
	sum := decimal.Zero
	for _, line := range g.Lines {
		sum = sum.Add(line.Amount)
	}
	return sum
}

// SetResolution stamps a resolution tag on every line, clearing any
// previously written reconciler tags.
func (g *TransactionGroup) SetResolution(tag Tag) {
	for _, line := range g.Lines {
		line.SetResolution(tag)
	}
}

// AddFlags appends flag tags to every line.
func (g *TransactionGroup) AddFlags(tags ...Tag) {
	for _, line := range g.Lines {
		line.AddFlags(tags...)
	}
}

// Payload assembles the full-replace PUT body for the whole group.
func (g *TransactionGroup) Payload() map[string]any {
	lines := make([]map[string]any, 0, len(g.Lines))
	for _, line := range g.Lines {
		lines = append(lines, line.Payload())
	}

	payload := map[string]any{"transactions": lines}
	if g.Title != "" {
		payload["group_title"] = g.Title
	}
	return payload
}

// Fingerprint is a value identity for the convergence guard: two search
// results are "identical" when the fingerprints of their sorted groups
// are equal.
func (g *TransactionGroup) Fingerprint() string {
	var b strings.Builder
	b.WriteString(g.ID)
	b.WriteByte('|')
	b.WriteString(g.Title)
	for _, line := range g.Lines {
		fmt.Fprintf(&b, "|%d;%s;%s;%s", line.JournalID,
			line.Amount.StringFixed(2), line.Notes, strings.Join(line.Tags, ","))
	}
	return b.String()
}

func (g *TransactionGroup) String() string {
	parts := make([]string, 0, len(g.Lines)+1)
	parts = append(parts, fmt.Sprintf("id: %s, group_title: %s, transactions:", g.ID, g.Title))
	for _, line := range g.Lines {
		parts = append(parts, line.String())
	}
	return strings.Join(parts, "\n")
}

// SortGroups orders groups ascending by order reference, then by group id,
// producing the contiguous per-order runs the matcher iterates. The
// ordering is load-bearing for the first-fit tie-break.
func SortGroups(groups []*TransactionGroup) {
	sort.SliceStable(groups, func(i, j int) bool {
		ri, rj := "", ""
		if groups[i].Ref != nil {
			ri = groups[i].Ref.OrderID
		}
		if groups[j].Ref != nil {
			rj = groups[j].Ref.OrderID
		}
		if ri != rj {
			return ri < rj
		}
		return lessGroupID(groups[i].ID, groups[j].ID)
	})
}

// lessGroupID compares Firefly group ids, which are decimal integer
// strings ("9" comes before "10"). Non-numeric ids fall back to a plain
// string compare.
func lessGroupID(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return na < nb
	}
	return a < b
}
