// =============================================================================
// Firefly Amazon Reconciler - Tag Definitions
// =============================================================================
//
// Every transaction touched by the reconciler is stamped with tags so that
// runs are auditable from inside Firefly III itself. The resolution tags
// (match / match_last / manual) are mutually exclusive; the flag tags
// (todo / error) are additive and may coexist with a resolution tag.
//
// =============================================================================

package ledger

// Tag is a reconciler-owned Firefly III tag.
type Tag string

const (
	// TagMatch marks a group matched to a shipment by amount
	// (exact or promotion-adjusted).
	TagMatch Tag = "amazon_match"

	// TagLast marks a group paired by the last-standing rule,
	// regardless of amount delta.
	TagLast Tag = "amazon_match_last"

	// TagManual marks a group left for a human to resolve.
	TagManual Tag = "amazon_manual"

	// TagTodo flags a group that still needs a manual correction
	// (ambiguous split amounts, manual residue).
	TagTodo Tag = "amazon_todo"

	// TagError flags a group whose order could not be scraped.
	TagError Tag = "amazon_error"
)

// resolutionTags are mutually exclusive: setting one clears the others.
var resolutionTags = []Tag{TagMatch, TagLast, TagManual}

// AllTags lists every tag the reconciler may have written in any run.
func AllTags() []Tag {
	return []Tag{TagMatch, TagLast, TagManual, TagTodo, TagError}
}

// IsResolution reports whether t is one of the mutually exclusive
// resolution tags.
func (t Tag) IsResolution() bool {
	for _, r := range resolutionTags {
		if t == r {
			return true
		}
	}
	return false
}

func (t Tag) String() string { return string(t) }

// removeOwnTags strips every reconciler-owned tag from tags, preserving
// any user-defined tags and their order.
func removeOwnTags(tags []string) []string {
	owned := make(map[string]bool, 5)
	for _, t := range AllTags() {
		owned[string(t)] = true
	}

	kept := tags[:0]
	for _, t := range tags {
		if !owned[t] {
			kept = append(kept, t)
		}
	}
	return kept
}
