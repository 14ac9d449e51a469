// Package account provides a client for the backend session and registration endpoints.
package account

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/Dorico-Dynamics/txova-go-core/logging"
	"github.com/Dorico-Dynamics/txova-go-types/contact"

	"github.com/Dorico-Dynamics/txova-go-portal/auth"
	"github.com/Dorico-Dynamics/txova-go-portal/base"
)

// Client is the account client.
type Client struct {
	client *base.Client
}

// Config holds the configuration for the account client.
type Config struct {
	// BaseURL is the backend origin (required).
	BaseURL string

	// Timeout is the request timeout (default: 10s).
	Timeout time.Duration

	// Trace is the resolved trace state.
	Trace base.TraceState

	// CircuitBreaker is the circuit breaker configuration.
	CircuitBreaker *base.CircuitBreakerConfig
}

// DefaultConfig returns a default configuration for the account client.
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

const defaultTimeout = 10 * time.Second

// NewClient creates a new account client.
func NewClient(cfg *Config, logger *logging.Logger) (*Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
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

	return New(baseClient), nil
}

// New wraps an existing server-context base client.
func New(b *base.Client) *Client {
	return &Client{client: b}
}

// tokenResponse is the body returned by the login and refresh endpoints.
type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	AccessExpiresIn  int    `json:"access_expires_in,omitempty"`
	RefreshToken     string `json:"refresh_token,omitempty"`
	RefreshExpiresIn int    `json:"refresh_expires_in,omitempty"`
}

func (r *tokenResponse) pair() *auth.TokenPair {
	return &auth.TokenPair{
		AccessToken:   r.AccessToken,
		AccessMaxAge:  r.AccessExpiresIn,
		RefreshToken:  r.RefreshToken,
		RefreshMaxAge: r.RefreshExpiresIn,
	}
}

// LoginRequest is the request body for a login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login exchanges credentials for a token pair.
func (c *Client) Login(ctx context.Context, email contact.Email, password string) (*auth.TokenPair, error) {
	if email.IsZero() {
		return nil, fmt.Errorf("email is required")
	}

	var resp tokenResponse
	err := c.client.Post(ctx, "/auth/login", LoginRequest{Email: email.String(), Password: password}).
		WithTraceName("route:/auth/login").
		NoStore().
		Decode(&resp)
	if err != nil {
		return nil, err
	}

	return resp.pair(), nil
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new token pair.
// The token travels in the body; no Authorization header is sent.
// An empty token fails with a 401 without calling the backend.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	if refreshToken == "" {
		return nil, &base.APIError{
			Status:  http.StatusUnauthorized,
			Payload: base.Payload{"error": "No refresh token"},
			URL:     c.client.Resolver().Resolve("/auth/refresh"),
		}
	}

	var resp tokenResponse
	err := c.client.Post(ctx, "/auth/refresh", refreshRequest{RefreshToken: refreshToken}).
		WithHeader("Authorization", "").
		WithTraceName("route:/api/refresh").
		NoStore().
		Decode(&resp)
	if err != nil {
		return nil, err
	}

	return resp.pair(), nil
}

// Logout ends the backend session. The incoming Cookie header is forwarded as is.
func (c *Client) Logout(ctx context.Context, cookieHeader string) error {
	req := c.client.Post(ctx, "/auth/logout", nil).WithTraceName("route:/api/logout")
	if cookieHeader != "" {
		req = req.WithHeader("Cookie", cookieHeader)
	}

	_, err := req.Do()
	return err
}

// Register forwards a registration body and returns the backend response unchanged.
func (c *Client) Register(ctx context.Context, body json.RawMessage) (json.RawMessage, error) {
	var out json.RawMessage
	err := c.client.Post(ctx, "/admin/users/register", nil).
		WithRawBody(body).
		WithTraceName("route:/api/register").
		Decode(&out)
	if err != nil {
		return nil, err
	}

	return out, nil
}

var _ auth.TokenRefresher = (*Client)(nil)
