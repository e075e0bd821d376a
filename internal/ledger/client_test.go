package ledger

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const searchFixture = `{
  "data": [
    {
      "id": "77",
      "attributes": {
        "group_title": null,
        "transactions": [
          {
            "transaction_journal_id": "101",
            "description": "AMZN Mktp DE 302-1234567.7654321 AB1CD",
            "amount": "12.990000",
            "notes": null,
            "tags": [],
            "internal_reference": null,
            "external_url": null,
            "type": "withdrawal",
            "date": "2026-08-01T00:00:00+02:00",
            "source_id": "1",
            "destination_id": "9",
            "currency_id": "2",
            "foreign_currency_id": null
          }
        ]
      }
    }
  ]
}`

func TestSearchTransactions(t *testing.T) {
	var gotPath, gotQuery, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("query")
		gotAuth = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, searchFixture)
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/", "token123", nil)
	groups, err := client.SearchTransactions(context.Background(), `destination_account_starts:"Amazon" no_notes:true`)
	require.NoError(t, err)

	assert.Equal(t, "/api/v1/search/transactions", gotPath)
	assert.Equal(t, `destination_account_starts:"Amazon" no_notes:true`, gotQuery)
	assert.Equal(t, "Bearer token123", gotAuth)

	require.Len(t, groups, 1)
	group := groups[0]
	assert.Equal(t, "77", group.ID)
	assert.Equal(t, "12.99", group.Amount().StringFixed(2))
	require.NotNil(t, group.Ref)
	assert.Equal(t, "302-1234567-7654321", group.Ref.OrderID)
}

func TestUpdateTransactionSendsFullReplacePayload(t *testing.T) {
	var gotMethod, gotPath string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"data":{}}`)
	}))
	defer srv.Close()

	group, err := NewTransactionGroup("77", "", []map[string]any{
		rawLine("101", "AMZN 302-1234567-7654321 AB1CD", "12.99"),
	})
	require.NoError(t, err)
	group.Lines[0].Notes = "USB cable"
	group.SetResolution(TagMatch)

	client := NewClient(srv.URL, "token123", nil)
	require.NoError(t, client.UpdateTransaction(context.Background(), group))

	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/v1/transactions/77", gotPath)

	lines, ok := gotBody["transactions"].([]any)
	require.True(t, ok)
	require.Len(t, lines, 1)
	tx := lines[0].(map[string]any)
	assert.Equal(t, "USB cable", tx["notes"])
	assert.Equal(t, "12.99", tx["amount"])
	assert.Equal(t, "withdrawal", tx["type"])
	assert.Equal(t, "101", tx["transaction_journal_id"])
}

func TestFailedResponseSurfacesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"message":"The given data was invalid."}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "token123", nil)
	_, err := client.SearchTransactions(context.Background(), "whatever")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
	assert.Contains(t, apiErr.Body, "The given data was invalid.")
}

func TestHostTrimsTrailingSlash(t *testing.T) {
	client := NewClient("http://firefly.example/", "t", nil)
	assert.Equal(t, "http://firefly.example", client.Host())
}
