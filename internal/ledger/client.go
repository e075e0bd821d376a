// =============================================================================
// Firefly Amazon Reconciler - Firefly III API Client
// =============================================================================
//
// Thin client for the two Firefly III endpoints the reconciler needs:
// transaction search (read) and transaction update (full-replace write),
// plus /about for connectivity checks. Failed responses surface the
// response body, which is where Firefly reports validation errors.
//
// =============================================================================

package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Client talks to one Firefly III instance.
type Client struct {
	host  string
	token string
	http  *http.Client
	log   *zap.Logger
}

// APIError is a non-2xx Firefly response, carrying the body for diagnosis.
type APIError struct {
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("firefly: status %d: %s", e.Status, e.Body)
}

// NewClient builds a client for the given host (trailing slash tolerated)
// using a static bearer token.
func NewClient(host, token string, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		host:  strings.TrimSuffix(host, "/"),
		token: token,
		http:  &http.Client{Timeout: 30 * time.Second},
		log:   log,
	}
}

// Host returns the configured Firefly host, without trailing slash.
// Used to build search and transaction links in notes and logs.
func (c *Client) Host() string { return c.host }

// searchResponse mirrors the slice of the search payload we consume.
type searchResponse struct {
	Data []struct {
		ID         string `json:"id"`
		Attributes struct {
			GroupTitle   *string          `json:"group_title"`
			Transactions []map[string]any `json:"transactions"`
		} `json:"attributes"`
	} `json:"data"`
}

// SearchTransactions runs a transaction search and returns page 1 as
// constructed groups. Callers must treat a full page as potentially
// truncated (the pagination-mismatch case).
func (c *Client) SearchTransactions(ctx context.Context, query string) ([]*TransactionGroup, error) {
	endpoint := fmt.Sprintf("%s/api/v1/search/transactions?%s", c.host, url.Values{
		"query": {query},
		"page":  {"1"},
	}.Encode())

	body, err := c.do(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var parsed searchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("firefly: decode search response: %w", err)
	}

	groups := make([]*TransactionGroup, 0, len(parsed.Data))
	for _, item := range parsed.Data {
		title := ""
		if item.Attributes.GroupTitle != nil {
			title = *item.Attributes.GroupTitle
		}
		group, err := NewTransactionGroup(item.ID, title, item.Attributes.Transactions)
		if err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}

	return groups, nil
}

// UpdateTransaction writes the group's full-replace payload back.
func (c *Client) UpdateTransaction(ctx context.Context, group *TransactionGroup) error {
	payload, err := json.Marshal(group.Payload())
	if err != nil {
		return fmt.Errorf("firefly: encode group %s: %w", group.ID, err)
	}

	c.log.Debug("updating transaction group",
		zap.String("group_id", group.ID),
		zap.ByteString("payload", payload))

	endpoint := fmt.Sprintf("%s/api/v1/transactions/%s", c.host, group.ID)
	if _, err := c.do(ctx, http.MethodPut, endpoint, payload); err != nil {
		return err
	}
	return nil
}

// About checks connectivity and token validity.
func (c *Client) About(ctx context.Context) error {
	_, err := c.do(ctx, http.MethodGet, c.host+"/api/v1/about", nil)
	return err
}

func (c *Client) do(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("firefly: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firefly: %s %s: %w", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("firefly: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	return data, nil
}
