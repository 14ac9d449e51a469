// Package catalog provides a client for the public product catalog.
package catalog

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/Dorico-Dynamics/txova-go-core/logging"

	"github.com/Dorico-Dynamics/txova-go-portal/base"
)

// DefaultPageSize is the product page size used when none is configured.
const DefaultPageSize = 12

// PassKeys are the query keys forwarded to the backend product listing.
var PassKeys = []string{"page", "limit", "q", "sortBy", "order"}

// Client is the catalog client.
type Client struct {
	client   *base.Client
	pageSize int
}

// Config holds the configuration for the catalog client.
type Config struct {
	// BaseURL is the backend origin (required).
	BaseURL string

	// Timeout is the request timeout (default: 10s).
	Timeout time.Duration

	// PageSize is the default number of products per page (default: 12).
	PageSize int

	// Trace is the resolved trace state.
	Trace base.TraceState

	// CircuitBreaker is the circuit breaker configuration.
	CircuitBreaker *base.CircuitBreakerConfig
}

// DefaultConfig returns a default configuration for the catalog client.
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL:  baseURL,
		Timeout:  10 * time.Second,
		PageSize: DefaultPageSize,
	}
}

// NewClient creates a new catalog client.
func NewClient(cfg *Config, logger *logging.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	baseClient, err := base.NewClient(&base.Config{
		Context:        base.ContextServer,
		Origins:        base.Origins{Server: cfg.BaseURL},
		RequestTimeout: timeout,
		Trace:          cfg.Trace,
		CircuitBreaker: cfg.CircuitBreaker,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create base client: %w", err)
	}

	return New(baseClient, cfg.PageSize), nil
}

// New wraps an existing base client. A page size that is not positive falls back to DefaultPageSize.
func New(b *base.Client, pageSize int) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Client{client: b, pageSize: pageSize}
}

// PageSize returns the default page size.
func (c *Client) PageSize() int {
	return c.pageSize
}

// ForwardQuery keeps the PassKeys present in q. A key present with an empty value is kept.
func ForwardQuery(q url.Values) url.Values {
	out := url.Values{}
	for _, k := range PassKeys {
		if _, ok := q[k]; ok {
			out.Set(k, q.Get(k))
		}
	}
	return out
}

// List returns the raw product listing: an array, or an object holding data/items and meta.
func (c *Client) List(ctx context.Context, query url.Values) (any, error) {
	var raw any
	err := c.client.Get(ctx, "/products").
		WithQueryParams(ForwardQuery(query)).
		WithTraceName("svc:products.list").
		Decode(&raw)
	if err != nil {
		return nil, err
	}

	return raw, nil
}

// Products returns the normalized product list.
func (c *Client) Products(ctx context.Context, query url.Values) ([]Product, error) {
	raw, err := c.List(ctx, query)
	if err != nil {
		return nil, err
	}

	items := PickArray(raw)
	out := make([]Product, 0, len(items))
	for _, it := range items {
		out = append(out, NormalizeProduct(it))
	}
	return out, nil
}

// ProductsPaged returns one normalized page of products with its meta.
func (c *Client) ProductsPaged(ctx context.Context, query url.Values) (*Paged, error) {
	raw, err := c.List(ctx, query)
	if err != nil {
		return nil, err
	}

	paged := NormalizePaged(raw, DefaultsFromQuery(query, c.pageSize))
	return &paged, nil
}
