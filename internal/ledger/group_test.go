package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawLine builds one raw transaction object the way the search API
// returns it.
func rawLine(journalID, description, amount string) map[string]any {
	return map[string]any{
		"transaction_journal_id": journalID,
		"description":            description,
		"amount":                 amount,
		"notes":                  "",
		"tags":                   []any{},
		"internal_reference":     "",
		"external_url":           "",
		"type":                   "withdrawal",
		"date":                   "2026-08-01T00:00:00+02:00",
		"source_id":              "1",
		"destination_id":         "9",
		"currency_id":            "2",
		"currency_code":          "EUR",
		"foreign_currency_id":    "0",
	}
}

func TestNewTransactionGroup(t *testing.T) {
	group, err := NewTransactionGroup("77", "", []map[string]any{
		rawLine("52", "AMZN Mktp DE 302-1234567.7654321 AB1CD", "6.49"),
		rawLine("41", "second split", "3.51"),
	})
	require.NoError(t, err)

	// Lesser journal ids first.
	assert.Equal(t, int64(41), group.Lines[0].JournalID)
	assert.Equal(t, int64(52), group.Lines[1].JournalID)

	assert.Equal(t, "10.00", group.Amount().StringFixed(2))

	require.NotNil(t, group.Ref)
	assert.Equal(t, "302-1234567-7654321", group.Ref.OrderID)
}

func TestNewTransactionGroupRejectsEmpty(t *testing.T) {
	_, err := NewTransactionGroup("77", "", nil)
	assert.Error(t, err)
}

func TestCommaAmountsAreNormalized(t *testing.T) {
	group, err := NewTransactionGroup("1", "", []map[string]any{
		rawLine("10", "AMZN 302-0000000-0000001 X", "4,20"),
	})
	require.NoError(t, err)
	assert.Equal(t, "4.20", group.Amount().StringFixed(2))
}

func TestSetResolutionClearsOtherOwnedTags(t *testing.T) {
	group, err := NewTransactionGroup("1", "", []map[string]any{
		rawLine("10", "AMZN 302-0000000-0000001 X", "5.00"),
	})
	require.NoError(t, err)

	line := group.Lines[0]
	line.Tags = []string{"groceries", string(TagManual), string(TagTodo)}

	group.SetResolution(TagMatch)

	assert.Equal(t, []string{"groceries", string(TagMatch)}, line.Tags)
}

func TestAddFlagsIsIdempotent(t *testing.T) {
	group, err := NewTransactionGroup("1", "", []map[string]any{
		rawLine("10", "AMZN 302-0000000-0000001 X", "5.00"),
	})
	require.NoError(t, err)

	group.AddFlags(TagTodo)
	group.AddFlags(TagTodo, TagError)

	assert.Equal(t, []string{string(TagTodo), string(TagError)}, group.Lines[0].Tags)
}

func TestClone(t *testing.T) {
	group, err := NewTransactionGroup("1", "", []map[string]any{
		rawLine("10", "AMZN 302-0000000-0000001 X", "5.00"),
	})
	require.NoError(t, err)

	group.SetResolution(TagMatch)
	clone := group.Lines[0].Clone()

	assert.Equal(t, int64(0), clone.JournalID)
	assert.Equal(t, "0.01", clone.Amount.StringFixed(2))
	assert.Equal(t, group.Lines[0].Description, clone.Description)
	// Clones inherit the resolution tag already stamped on the original.
	assert.Contains(t, clone.Tags, string(TagMatch))
}

func TestPayloadMergesMutationsOverPassthrough(t *testing.T) {
	group, err := NewTransactionGroup("1", "grp", []map[string]any{
		rawLine("10", "AMZN 302-0000000-0000001 X", "5.00"),
	})
	require.NoError(t, err)

	line := group.Lines[0]
	line.Notes = "USB cable"
	line.InternalReference = "EUR 5.00 @ http://amazon.example/product/b0"
	line.ExternalURL = "http://amazon.example/order"
	group.SetResolution(TagMatch)

	payload := group.Payload()
	assert.Equal(t, "grp", payload["group_title"])

	lines, ok := payload["transactions"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, lines, 1)

	tx := lines[0]
	// Mutated fields.
	assert.Equal(t, "USB cable", tx["notes"])
	assert.Equal(t, "5.00", tx["amount"])
	assert.Equal(t, []string{string(TagMatch)}, tx["tags"])
	assert.Equal(t, "http://amazon.example/order", tx["external_url"])
	// Passthrough fields resent verbatim.
	assert.Equal(t, "withdrawal", tx["type"])
	assert.Equal(t, "1", tx["source_id"])
	assert.Equal(t, "9", tx["destination_id"])
	// Fields Firefly refuses on PUT never appear.
	assert.NotContains(t, tx, "currency_code")
	// Zero foreign currency id is normalized to null.
	assert.Nil(t, tx["foreign_currency_id"])
}

func TestPayloadOmitsEmptyGroupTitle(t *testing.T) {
	group, err := NewTransactionGroup("1", "", []map[string]any{
		rawLine("10", "AMZN 302-0000000-0000001 X", "5.00"),
	})
	require.NoError(t, err)

	assert.NotContains(t, group.Payload(), "group_title")
}

func TestSortGroupsByReferenceThenID(t *testing.T) {
	mk := func(id, desc string) *TransactionGroup {
		group, err := NewTransactionGroup(id, "", []map[string]any{rawLine("10", desc, "1.00")})
		require.NoError(t, err)
		return group
	}

	groups := []*TransactionGroup{
		mk("10", "AMZN 302-2222222-2222222 B"),
		mk("2", "AMZN 302-1111111-1111111 A"),
		mk("9", "AMZN 302-2222222-2222222 C"),
	}
	SortGroups(groups)

	assert.Equal(t, "2", groups[0].ID)
	// Ids are decimal strings and compare numerically: 9 before 10.
	assert.Equal(t, "9", groups[1].ID)
	assert.Equal(t, "10", groups[2].ID)
}

func TestSortGroupsFallsBackToStringCompare(t *testing.T) {
	mk := func(id, desc string) *TransactionGroup {
		group, err := NewTransactionGroup(id, "", []map[string]any{rawLine("10", desc, "1.00")})
		require.NoError(t, err)
		return group
	}

	groups := []*TransactionGroup{
		mk("b", "AMZN 302-1111111-1111111 A"),
		mk("a", "AMZN 302-1111111-1111111 B"),
	}
	SortGroups(groups)

	assert.Equal(t, "a", groups[0].ID)
	assert.Equal(t, "b", groups[1].ID)
}

func TestFingerprintReflectsMutation(t *testing.T) {
	group, err := NewTransactionGroup("1", "", []map[string]any{
		rawLine("10", "AMZN 302-0000000-0000001 X", "5.00"),
	})
	require.NoError(t, err)

	before := group.Fingerprint()
	group.Lines[0].Notes = "set"
	assert.NotEqual(t, before, group.Fingerprint())
}
