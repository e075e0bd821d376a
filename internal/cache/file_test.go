package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ginjaninja78/firefly-amazon-reconciler/internal/amazon"
)

func testOrder(t *testing.T) *amazon.Order {
	t.Helper()
	order, err := amazon.NewOrder(
		"http://amazon.example/order",
		"Grand Total: EUR 5.00",
		"",
		[]*amazon.Shipment{{
			Title: "Shipped",
			Items: []*amazon.ShipmentItem{{
				URL:      "http://amazon.example/product/b0",
				Name:     "cable",
				Currency: "EUR",
				Amount:   decimal.RequireFromString("5.00"),
				Quantity: 1,
			}},
		}},
	)
	require.NoError(t, err)
	return order
}

func TestFileStoreRoundTrip(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, ok := store.GetOrder("302-1-1")
	assert.False(t, ok)

	require.NoError(t, store.PutOrder("302-1-1", testOrder(t)))

	got, ok := store.GetOrder("302-1-1")
	require.True(t, ok)
	assert.Equal(t, "http://amazon.example/order", got.URL)
	assert.Equal(t, "5.00", got.Shipments[0].Amount().StringFixed(2))
}

func TestPutOrderEvictsRawSlot(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, store.PutRaw("302-1-1", "<html>broken</html>"))
	rawPath := filepath.Join(dir, "302-1-1.html")
	_, err = os.Stat(rawPath)
	require.NoError(t, err)

	require.NoError(t, store.PutOrder("302-1-1", testOrder(t)))

	_, err = os.Stat(rawPath)
	assert.True(t, os.IsNotExist(err))
}

func TestRawSlotDoesNotServeOrders(t *testing.T) {
	store, err := NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	require.NoError(t, store.PutRaw("302-1-1", "<html>broken</html>"))

	_, ok := store.GetOrder("302-1-1")
	assert.False(t, ok)
}

func TestCorruptEntryIsAMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "302-1-1.json"), []byte("{not json"), 0o644))

	_, ok := store.GetOrder("302-1-1")
	assert.False(t, ok)
}

func TestEntryWithoutShipmentsIsAMiss(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir, nil)
	require.NoError(t, err)

	// Valid JSON, but violates the order contract.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "302-1-1.json"),
		[]byte(`{"url":"u","summary":"","transactions":"","shipments":[]}`), 0o644))

	_, ok := store.GetOrder("302-1-1")
	assert.False(t, ok)
}
