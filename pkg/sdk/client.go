package retriever

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTimeout = 5 * time.Second

// Client is the retriever SDK entry point.
type Client struct {
	baseURL string
	apiKey  string
	hc      *http.Client
}

// New creates a retriever Client for the given base URL.
func New(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("retriever: base URL required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("retriever: invalid base URL: %w", err)
	}

	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  cfg.apiKey,
		hc:      hc,
	}, nil
}

// Search runs a hybrid query for a tenant. Degraded responses come back as
// values, not errors: check resp.Degraded.
func (c *Client) Search(ctx context.Context, tenantID string, req SearchRequest) (SearchResponse, error) {
	var resp SearchResponse
	err := c.do(ctx, http.MethodPost, "/v1/tenants/"+url.PathEscape(tenantID)+"/search", req.wire(), &resp)
	if err != nil {
		return SearchResponse{}, err
	}
	return resp, nil
}

// UpsertDocument publishes a document created/updated event.
func (c *Client) UpsertDocument(ctx context.Context, tenantID string, doc Document) error {
	return c.do(ctx, http.MethodPost, "/v1/events/documents", wireDocumentEvent{
		Event:    "upserted",
		TenantID: tenantID,
		Document: &doc,
	}, nil)
}

// DeleteDocument publishes a document deleted event.
func (c *Client) DeleteDocument(ctx context.Context, tenantID, docID string) error {
	return c.do(ctx, http.MethodPost, "/v1/events/documents", wireDocumentEvent{
		Event:    "deleted",
		TenantID: tenantID,
		DocID:    docID,
	}, nil)
}

// CreateTenant registers an active tenant. weights nil means the default
// 0.5/0.5 fusion weighting.
func (c *Client) CreateTenant(ctx context.Context, tenantID string, weights *Weights) error {
	return c.do(ctx, http.MethodPost, "/v1/events/tenants", wireTenantEvent{
		Event:    "created",
		TenantID: tenantID,
		Weights:  weights,
	}, nil)
}

// ActivateTenant re-enables a tenant.
func (c *Client) ActivateTenant(ctx context.Context, tenantID string) error {
	return c.do(ctx, http.MethodPost, "/v1/events/tenants", wireTenantEvent{
		Event:    "activated",
		TenantID: tenantID,
	}, nil)
}

// DeactivateTenant disables a tenant; subsequent searches fail with
// ErrTenantInactive.
func (c *Client) DeactivateTenant(ctx context.Context, tenantID string) error {
	return c.do(ctx, http.MethodPost, "/v1/events/tenants", wireTenantEvent{
		Event:    "deactivated",
		TenantID: tenantID,
	}, nil)
}

// DeleteTenant tears the tenant down: partition index, documents, cache
// namespace and record.
func (c *Client) DeleteTenant(ctx context.Context, tenantID string) error {
	return c.do(ctx, http.MethodDelete, "/v1/tenants/"+url.PathEscape(tenantID), nil, nil)
}

// Health fetches the service health report.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, &h); err != nil {
		return Health{}, err
	}
	return h, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("retriever: encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("retriever: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("retriever: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= 400 {
		return c.apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("retriever: decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) apiError(resp *http.Response) error {
	var we wireError
	if err := json.NewDecoder(resp.Body).Decode(&we); err != nil || we.Code == "" {
		return newAPIError(resp.StatusCode, "unknown", http.StatusText(resp.StatusCode))
	}
	return newAPIError(resp.StatusCode, we.Code, we.Message)
}
