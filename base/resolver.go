package base

import (
	"net/url"
	"strings"
)

// ExecutionContext identifies where a client runs.
type ExecutionContext int

const (
	// ContextServer is a server-side caller (route handler, server render).
	ContextServer ExecutionContext = iota
	// ContextBrowser is a public, client-side caller.
	ContextBrowser
)

// String returns the trace origin label of the execution context.
func (c ExecutionContext) String() string {
	if c == ContextBrowser {
		return "client"
	}
	return "server"
}

// DefaultProxyPrefix is the path prefix of routes served by the portal itself.
const DefaultProxyPrefix = "/api/"

// Origins holds the backend origins available to each execution context.
type Origins struct {
	// Server is the server-only backend origin.
	Server string

	// Public is the client-visible backend origin.
	Public string
}

// Resolver decides the fully-qualified URL for a request path.
type Resolver struct {
	origin      string
	proxyPrefix string
}

// NewResolver creates a Resolver for the given execution context.
// The origin is selected once: the server context prefers Origins.Server and
// falls back to Origins.Public, the browser context only sees Origins.Public.
func NewResolver(ec ExecutionContext, origins Origins, proxyPrefix string) *Resolver {
	if proxyPrefix == "" {
		proxyPrefix = DefaultProxyPrefix
	}

	origin := origins.Public
	if ec == ContextServer && origins.Server != "" {
		origin = origins.Server
	}

	return &Resolver{
		origin:      origin,
		proxyPrefix: proxyPrefix,
	}
}

// Resolve returns the URL to call for path.
// Absolute URLs and proxy paths are returned unchanged.
func (r *Resolver) Resolve(path string) string {
	if isAbsoluteURL(path) {
		return path
	}

	if r.IsProxyPath(path) {
		return path
	}

	if r.origin == "" {
		return path
	}

	base, err := url.Parse(r.origin)
	if err != nil {
		return path
	}
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}

	return base.ResolveReference(ref).String()
}

// IsProxyPath reports whether path is served by the portal's own routes.
func (r *Resolver) IsProxyPath(path string) bool {
	return strings.HasPrefix(path, r.proxyPrefix)
}

// Origin returns the backend origin selected for this resolver.
func (r *Resolver) Origin() string {
	return r.origin
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return u.IsAbs()
}
