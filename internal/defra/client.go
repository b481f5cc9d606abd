// Package defra talks to DefraDB, the document database behind the
// "defra" storage backend, and manages its local Docker container.
package defra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// ErrUnhealthy is returned when the health endpoint does not answer 200.
var ErrUnhealthy = errors.New("defra health check failed")

// Client is a DefraDB HTTP/GraphQL client.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a client for the node at url.
func NewClient(url string) *Client {
	return &Client{
		url:        strings.TrimSuffix(url, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// URL returns the node base URL.
func (c *Client) URL() string {
	return c.url
}

// GQLRequest is a GraphQL request body.
type GQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// GQLResponse is a GraphQL response body.
type GQLResponse struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors []GQLError     `json:"errors,omitempty"`
}

// GQLError is one GraphQL error.
type GQLError struct {
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// Error returns the first error message, or "".
func (r *GQLResponse) Error() string {
	if len(r.Errors) == 0 {
		return ""
	}
	return r.Errors[0].Message
}

// Docs returns the documents under a top-level response key.
func (r *GQLResponse) Docs(key string) []map[string]any {
	raw, _ := r.Data[key].([]any)
	docs := make([]map[string]any, 0, len(raw))
	for _, d := range raw {
		if m, ok := d.(map[string]any); ok {
			docs = append(docs, m)
		}
	}
	return docs
}

// HealthCheck pings the node.
func (c *Client) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url+"/health-check", nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Execute sends a GraphQL request. Transport failures and 5xx answers are
// errors; GraphQL-level errors are left in the response for the caller.
func (c *Client) Execute(ctx context.Context, query string, variables map[string]any) (*GQLResponse, error) {
	body, err := json.Marshal(GQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/v0/graphql", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode >= 500 {
		return nil, fmt.Errorf("defra server error (status %d): %s", resp.StatusCode, string(raw))
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("defra returned empty response (status %d)", resp.StatusCode)
	}

	var out GQLResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w (body: %s)", err, string(raw))
	}
	return &out, nil
}

// AddSchema registers SDL type definitions.
func (c *Client) AddSchema(ctx context.Context, sdl string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url+"/api/v0/schema", strings.NewReader(sdl))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/plain")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("schema error (status %d): %s", resp.StatusCode, string(msg))
	}
	return nil
}

// Create inserts a document and returns its _docID.
func (c *Client) Create(ctx context.Context, collection string, input map[string]any) (string, error) {
	in, err := mapToGraphQLInput(input)
	if err != nil {
		return "", fmt.Errorf("failed to build input: %w", err)
	}
	q := fmt.Sprintf(`mutation { create_%s(input: %s) { _docID } }`, collection, in)

	resp, err := c.Execute(ctx, q, nil)
	if err != nil {
		return "", err
	}
	if msg := resp.Error(); msg != "" {
		return "", fmt.Errorf("create error: %s", msg)
	}
	docs := resp.Docs("create_" + collection)
	if len(docs) == 0 {
		return "", fmt.Errorf("unexpected response format: %+v", resp.Data)
	}
	id, _ := docs[0]["_docID"].(string)
	return id, nil
}

// Update sets fields on the document with docID.
func (c *Client) Update(ctx context.Context, collection, docID string, input map[string]any) error {
	if err := ValidateID(docID); err != nil {
		return err
	}
	in, err := mapToGraphQLInput(input)
	if err != nil {
		return fmt.Errorf("failed to build input: %w", err)
	}
	q := fmt.Sprintf(`mutation { update_%s(docID: %q, input: %s) { _docID } }`, collection, docID, in)

	resp, err := c.Execute(ctx, q, nil)
	if err != nil {
		return err
	}
	if msg := resp.Error(); msg != "" {
		return fmt.Errorf("update error: %s", msg)
	}
	return nil
}

// UpdateMatching sets fields on every document whose fields equal match
// and returns how many were changed. The filter and the write are one
// mutation, so the node applies them atomically.
func (c *Client) UpdateMatching(ctx context.Context, collection string, match, input map[string]any) (int, error) {
	if len(match) == 0 {
		return 0, fmt.Errorf("update %s: empty match", collection)
	}
	eq := make(map[string]any, len(match))
	for k, v := range match {
		eq[k] = map[string]any{"_eq": v}
	}
	filter, err := mapToGraphQLInput(eq)
	if err != nil {
		return 0, fmt.Errorf("failed to build filter: %w", err)
	}
	in, err := mapToGraphQLInput(input)
	if err != nil {
		return 0, fmt.Errorf("failed to build input: %w", err)
	}
	q := fmt.Sprintf(`mutation { update_%s(filter: %s, input: %s) { _docID } }`, collection, filter, in)

	resp, err := c.Execute(ctx, q, nil)
	if err != nil {
		return 0, err
	}
	if msg := resp.Error(); msg != "" {
		return 0, fmt.Errorf("update error: %s", msg)
	}
	return len(resp.Docs("update_" + collection)), nil
}

// Delete removes the document with docID.
func (c *Client) Delete(ctx context.Context, collection, docID string) error {
	if err := ValidateID(docID); err != nil {
		return err
	}
	q := fmt.Sprintf(`mutation { delete_%s(docID: %q) { _docID } }`, collection, docID)

	resp, err := c.Execute(ctx, q, nil)
	if err != nil {
		return err
	}
	if msg := resp.Error(); msg != "" {
		return fmt.Errorf("delete error: %s", msg)
	}
	return nil
}

// mapToGraphQLInput renders a map as a GraphQL input object. Keys are
// sorted so the same input always produces the same mutation text.
func mapToGraphQLInput(input map[string]any) (string, error) {
	keys := make([]string, 0, len(input))
	for k := range input {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v, err := valueToGraphQL(input[k])
		if err != nil {
			return "", fmt.Errorf("failed to convert value for key %q: %w", k, err)
		}
		parts = append(parts, k+": "+v)
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

// valueToGraphQL renders a Go value as a GraphQL literal. Strings go
// through JSON encoding since Go's %q emits escapes GraphQL rejects.
func valueToGraphQL(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "null", nil
	case string:
		b, err := json.Marshal(val)
		if err != nil {
			return "", err
		}
		return string(b), nil
	case int, int64:
		return fmt.Sprintf("%d", val), nil
	case float64, bool:
		return fmt.Sprintf("%v", val), nil
	case map[string]any:
		return mapToGraphQLInput(val)
	case []any:
		items := make([]string, 0, len(val))
		for _, item := range val {
			s, err := valueToGraphQL(item)
			if err != nil {
				return "", err
			}
			items = append(items, s)
		}
		return "[" + strings.Join(items, ", ") + "]", nil
	default:
		b, err := json.Marshal(val)
		if err != nil {
			return "", fmt.Errorf("failed to marshal value: %w", err)
		}
		return string(b), nil
	}
}
