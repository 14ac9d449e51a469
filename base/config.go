package base

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Default internal route paths.
const (
	DefaultLoginPath   = "/api/login"
	DefaultRefreshPath = "/api/refresh"
)

// Config holds the configuration for the HTTP client.
type Config struct {
	// Context is the execution context the client runs in (default: ContextServer).
	Context ExecutionContext

	// Origins are the backend origins for non-proxy paths.
	Origins Origins

	// AppOrigin is the portal's own origin, used to dispatch proxy paths.
	// Server-side callers normally never call proxy paths and may leave it empty.
	AppOrigin string

	// ProxyPrefix marks paths served by the portal itself (default: "/api/").
	ProxyPrefix string

	// LoginPath is the internal login route, never eligible for refresh (default: "/api/login").
	LoginPath string

	// RefreshPath is the internal refresh route (default: "/api/refresh").
	RefreshPath string

	// Trace is the resolved trace state.
	Trace TraceState

	// RequestTimeout is the timeout for a single HTTP exchange (default: 10s).
	RequestTimeout time.Duration

	// MaxIdleConns is the maximum number of idle connections (default: 100).
	MaxIdleConns int

	// MaxIdleConnsPerHost is the maximum idle connections per host (default: 10).
	MaxIdleConnsPerHost int

	// IdleConnTimeout is how long idle connections stay open (default: 90s).
	IdleConnTimeout time.Duration

	// TLSConfig is the TLS configuration for HTTPS connections.
	TLSConfig *tls.Config

	// Transport is a custom transport for testing or advanced configuration.
	// If set, connection pooling options are ignored.
	Transport http.RoundTripper

	// Jar relays session cookies for browser-context clients.
	Jar http.CookieJar

	// CircuitBreaker configuration. If nil, circuit breaker is disabled.
	CircuitBreaker *CircuitBreakerConfig
}

// CircuitBreakerConfig holds circuit breaker configuration.
type CircuitBreakerConfig struct {
	// FailureThreshold is the number of failures before opening the circuit (default: 5).
	FailureThreshold int

	// SuccessThreshold is the number of successes to close the circuit (default: 2).
	SuccessThreshold int

	// Timeout is how long the circuit stays open before allowing a trial request (default: 30s).
	Timeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Context:             ContextServer,
		ProxyPrefix:         DefaultProxyPrefix,
		LoginPath:           DefaultLoginPath,
		RefreshPath:         DefaultRefreshPath,
		RequestTimeout:      10 * time.Second,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	}
}

// DefaultCircuitBreakerConfig returns a CircuitBreakerConfig with sensible defaults.
func DefaultCircuitBreakerConfig() *CircuitBreakerConfig {
	return &CircuitBreakerConfig{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Timeout:          30 * time.Second,
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Context != ContextServer && c.Context != ContextBrowser {
		return fmt.Errorf("unknown execution context %d", c.Context)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}

	for name, origin := range map[string]string{
		"server origin": c.Origins.Server,
		"public origin": c.Origins.Public,
		"app origin":    c.AppOrigin,
	} {
		if err := validateOrigin(origin); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}

	for name, p := range map[string]string{
		"login path":   c.LoginPath,
		"refresh path": c.RefreshPath,
	} {
		if !strings.HasPrefix(p, c.ProxyPrefix) {
			return fmt.Errorf("%s %q must start with proxy prefix %q", name, p, c.ProxyPrefix)
		}
	}

	if c.CircuitBreaker != nil {
		if err := c.CircuitBreaker.Validate(); err != nil {
			return fmt.Errorf("circuit breaker config: %w", err)
		}
	}

	return nil
}

func validateOrigin(origin string) error {
	if origin == "" {
		return nil
	}
	u, err := url.Parse(origin)
	if err != nil {
		return err
	}
	if !u.IsAbs() || u.Host == "" {
		return fmt.Errorf("%q is not an absolute URL", origin)
	}
	return nil
}

// Validate validates the circuit breaker configuration.
func (c *CircuitBreakerConfig) Validate() error {
	if c.FailureThreshold <= 0 {
		return fmt.Errorf("failure threshold must be positive")
	}

	if c.SuccessThreshold <= 0 {
		return fmt.Errorf("success threshold must be positive")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	return nil
}

// WithDefaults returns a new Config with defaults applied for any zero values.
func (c *Config) WithDefaults() *Config {
	cfg := *c

	if cfg.ProxyPrefix == "" {
		cfg.ProxyPrefix = DefaultProxyPrefix
	}

	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}

	if cfg.RefreshPath == "" {
		cfg.RefreshPath = DefaultRefreshPath
	}

	if cfg.RequestTimeout == 0 {
		cfg.RequestTimeout = 10 * time.Second
	}

	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 100
	}

	if cfg.MaxIdleConnsPerHost == 0 {
		cfg.MaxIdleConnsPerHost = 10
	}

	if cfg.IdleConnTimeout == 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	cfg.AppOrigin = strings.TrimSuffix(cfg.AppOrigin, "/")

	return &cfg
}
