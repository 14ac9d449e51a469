package base

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	txcontext "github.com/Dorico-Dynamics/txova-go-core/context"
	"github.com/Dorico-Dynamics/txova-go-core/logging"
)

// Client is the base HTTP client for the Txova portal.
// It provides URL resolution, request tracing, a one-shot session refresh on 401
// and a uniform APIError for every failure.
type Client struct {
	httpClient *http.Client
	cfg        *Config
	resolver   *Resolver
	tracer     *Tracer
	logger     *logging.Logger
	circuits   *circuitSet
	recovery   recoveryPolicy
	refresher  *proxyRefresher
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfg *Config, logger *logging.Logger) (*Client, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	cfg = cfg.WithDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	transport := cfg.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        cfg.MaxIdleConns,
			MaxIdleConnsPerHost: cfg.MaxIdleConnsPerHost,
			IdleConnTimeout:     cfg.IdleConnTimeout,
			TLSClientConfig:     cfg.TLSConfig,
			ForceAttemptHTTP2:   true,
		}
	}

	resolver := NewResolver(cfg.Context, cfg.Origins, cfg.ProxyPrefix)

	c := &Client{
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   cfg.RequestTimeout,
			Jar:       cfg.Jar,
		},
		cfg:      cfg,
		resolver: resolver,
		tracer:   NewTracer(cfg.Trace, cfg.Context, logger),
		logger:   logger,
		circuits: newCircuitSet(cfg.CircuitBreaker),
		recovery: recoveryPolicy{
			resolver:    resolver,
			loginPath:   cfg.LoginPath,
			refreshPath: cfg.RefreshPath,
		},
	}
	c.refresher = &proxyRefresher{client: c}

	return c, nil
}

// Options configures a single Fetch.
type Options struct {
	// Method is the HTTP method (default: GET).
	Method string

	// Headers override the defaults. An empty value removes a default header.
	Headers http.Header

	// Body is the raw request body, replayed verbatim on retry.
	Body []byte

	// NoStore asks every cache on the path not to store the exchange.
	NoStore bool

	// TraceName labels the trace (default: the request path).
	TraceName string

	// Refresh replaces the portal refresh route as the recovery action.
	// When set, a 401 on any path except the login and refresh routes is recovered once.
	Refresh RefreshFunc
}

// Fetch issues a request and returns the successful response.
// A 401 on an eligible path triggers exactly one refresh followed by exactly one retry.
// Every failure is returned as *APIError, except caller cancellation which is a
// CANCELED or TIMEOUT error.
func (c *Client) Fetch(ctx context.Context, path string, opts *Options) (*Response, error) {
	if opts == nil {
		opts = &Options{}
	}

	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	traceName := opts.TraceName
	if traceName == "" {
		traceName = path
	}

	reqURL := c.resolver.Resolve(path)
	tr := c.tracer.Start(traceName)
	headers := mergeHeaders(opts)
	start := time.Now()

	c.logRequestStart(ctx, method, reqURL)

	res, err := c.exchange(ctx, method, reqURL, Stamp(headers, tr), opts.Body)
	if err != nil {
		return nil, c.failTransport(ctx, tr, method, reqURL, start, err)
	}

	if res.StatusCode == http.StatusUnauthorized && c.recovery.eligible(path, opts.Refresh != nil) {
		if retried, ok := c.recover(ctx, tr, method, reqURL, headers, opts); ok {
			res = retried
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, c.failTransport(ctx, tr, method, reqURL, start, ctxErr)
		}
	}

	res.URL = reqURL
	res.TraceID = tr.TraceID()

	if !res.IsSuccess() {
		apiErr := NewAPIError(res.StatusCode, res.Body, tr.TraceID(), reqURL)
		c.tracer.End(ctx, tr, res.StatusCode, map[string]any{
			"url":     reqURL,
			"payload": apiErr.Payload,
			"retried": res.Retried,
		})
		c.logRequest(ctx, method, reqURL, res.StatusCode, time.Since(start), nil)
		return nil, apiErr
	}

	extra := map[string]any{"url": reqURL}
	if st := res.ServerTiming(); st != "" {
		extra["server_timing"] = st
	}
	if res.Retried {
		extra["retried"] = true
	}
	c.tracer.End(ctx, tr, res.StatusCode, extra)
	c.logRequest(ctx, method, reqURL, res.StatusCode, time.Since(start), nil)

	return res, nil
}

// FetchJSON issues a request and decodes the JSON body of the successful response into T.
func FetchJSON[T any](ctx context.Context, c *Client, path string, opts *Options) (T, error) {
	var out T

	res, err := c.Fetch(ctx, path, opts)
	if err != nil {
		return out, err
	}

	if err := res.Decode(&out); err != nil {
		return out, err
	}

	return out, nil
}

// recover runs the refresh and the single retry. It returns false when the
// recovery itself failed, in which case the original 401 stands.
func (c *Client) recover(ctx context.Context, tr *Trace, method, reqURL string, headers http.Header, opts *Options) (*Response, bool) {
	refresh := opts.Refresh
	if refresh == nil {
		refresh = c.refresher.refresh
	}

	override, err := refresh(ctx)
	if err != nil {
		c.logRecoveryAbandoned(ctx, method, reqURL, "refresh", err)
		return nil, false
	}

	retryHeaders := headers.Clone()
	for key, values := range override {
		retryHeaders[textproto.CanonicalMIMEHeaderKey(key)] = values
	}

	res, err := c.exchange(ctx, method, reqURL, Stamp(retryHeaders, tr), opts.Body)
	if err != nil {
		c.logRecoveryAbandoned(ctx, method, reqURL, "retry", err)
		return nil, false
	}

	res.Retried = true
	return res, true
}

// exchange performs one HTTP round trip and reads the whole body.
func (c *Client) exchange(ctx context.Context, method, reqURL string, headers http.Header, body []byte) (*Response, error) {
	target, err := c.dispatchURL(reqURL)
	if err != nil {
		return nil, err
	}

	host := target.Host
	cb := c.circuits.get(host)
	if cb != nil && !cb.Allow() {
		cause := ErrCircuitOpen(host)
		return nil, &APIError{
			Status:  http.StatusServiceUnavailable,
			Payload: Payload{"error": cause.Error()},
			URL:     reqURL,
			cause:   cause,
		}
	}

	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header = headers.Clone()
	c.addTracingHeaders(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == nil && cb != nil {
			cb.Record(false)
		}
		return nil, err
	}
	defer drain(resp.Body)

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if cb != nil {
			cb.Record(false)
		}
		return nil, ErrBadGatewayWrap("failed to read response body", err)
	}

	if cb != nil {
		cb.Record(resp.StatusCode < http.StatusInternalServerError)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       data,
	}, nil
}

// dispatchURL turns a resolved URL into something the transport can dial.
// Proxy paths stay relative after resolution and are served from the app origin.
func (c *Client) dispatchURL(reqURL string) (*url.URL, error) {
	u, err := url.Parse(reqURL)
	if err != nil {
		return nil, fmt.Errorf("invalid request URL %q: %w", reqURL, err)
	}
	if u.IsAbs() {
		return u, nil
	}

	if c.cfg.AppOrigin == "" {
		return nil, fmt.Errorf("cannot dispatch relative URL %q: no origin configured", reqURL)
	}

	origin, err := url.Parse(c.cfg.AppOrigin)
	if err != nil {
		return nil, fmt.Errorf("invalid app origin: %w", err)
	}
	return origin.ResolveReference(u), nil
}

// failTransport converts an exchange error into the error returned to the caller.
func (c *Client) failTransport(ctx context.Context, tr *Trace, method, reqURL string, start time.Time, err error) error {
	out := ContextError(ctx)
	if out == nil {
		var apiErr *APIError
		if stderrors.As(err, &apiErr) {
			apiErr.TraceID = tr.TraceID()
			out = apiErr
		} else {
			out = newNetworkError(err, tr.TraceID(), reqURL)
		}
	}

	c.tracer.End(ctx, tr, 0, map[string]any{"url": reqURL, "error": out.Error()})
	c.logRequest(ctx, method, reqURL, 0, time.Since(start), out)
	return out
}

// ContextError returns the CANCELED or TIMEOUT error for a done context, or nil.
func ContextError(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case stderrors.Is(err, context.DeadlineExceeded):
		return ErrTimeoutWrap("request deadline exceeded", err)
	default:
		return ErrCanceledWrap("request cancelled", err)
	}
}

// mergeHeaders applies caller headers over the JSON defaults.
func mergeHeaders(opts *Options) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", "application/json")
	h.Set("Accept", "application/json")

	for key, values := range opts.Headers {
		key = textproto.CanonicalMIMEHeaderKey(key)
		if len(values) == 0 || (len(values) == 1 && values[0] == "") {
			h.Del(key)
			continue
		}
		h[key] = append([]string(nil), values...)
	}

	if opts.NoStore {
		h.Set("Cache-Control", "no-store")
	}

	return h
}

// addTracingHeaders adds X-Request-ID and X-Correlation-ID headers from context.
func (c *Client) addTracingHeaders(ctx context.Context, req *http.Request) {
	if requestID := txcontext.RequestID(ctx); requestID != "" {
		req.Header.Set(txcontext.HeaderRequestID, requestID)
	}

	if correlationID := txcontext.CorrelationID(ctx); correlationID != "" {
		req.Header.Set(txcontext.HeaderCorrelationID, correlationID)
	}
}

// logRequestStart logs the start of a request at DEBUG level.
func (c *Client) logRequestStart(ctx context.Context, method, reqURL string) {
	if c.logger == nil {
		return
	}

	c.logger.DebugContext(ctx, "http request started",
		"method", method,
		"url", reqURL,
		"context", c.cfg.Context.String(),
	)
}

// logRequest logs a completed request.
func (c *Client) logRequest(ctx context.Context, method, reqURL string, statusCode int, duration time.Duration, err error) {
	if c.logger == nil {
		return
	}

	attrs := []any{
		"method", method,
		"url", reqURL,
		"context", c.cfg.Context.String(),
		"duration_ms", duration.Milliseconds(),
	}

	if statusCode > 0 {
		attrs = append(attrs, "status", statusCode)
	}

	if err != nil {
		attrs = append(attrs, "error", err.Error())
		c.logger.WarnContext(ctx, "http request failed", attrs...)
		return
	}

	if statusCode >= 400 {
		c.logger.WarnContext(ctx, "http request completed with error status", attrs...)
		return
	}

	c.logger.DebugContext(ctx, "http request completed", attrs...)
}

// logRecoveryAbandoned logs a refresh or retry that failed and was discarded.
func (c *Client) logRecoveryAbandoned(ctx context.Context, method, reqURL, stage string, err error) {
	if c.logger == nil {
		return
	}

	c.logger.WarnContext(ctx, "session recovery abandoned, keeping original 401",
		"method", method,
		"url", reqURL,
		"stage", stage,
		"error", err.Error(),
	)
}

// Request methods.

// Get creates a GET request.
func (c *Client) Get(ctx context.Context, path string) *Request {
	return c.newRequest(ctx, http.MethodGet, path, nil)
}

// Post creates a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) *Request {
	return c.newRequest(ctx, http.MethodPost, path, body)
}

// Put creates a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) *Request {
	return c.newRequest(ctx, http.MethodPut, path, body)
}

// Patch creates a PATCH request with a JSON body.
func (c *Client) Patch(ctx context.Context, path string, body any) *Request {
	return c.newRequest(ctx, http.MethodPatch, path, body)
}

// Delete creates a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) *Request {
	return c.newRequest(ctx, http.MethodDelete, path, nil)
}

// newRequest creates a new Request.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) *Request {
	return &Request{
		fetch:   c.Fetch,
		ctx:     ctx,
		method:  method,
		path:    path,
		headers: make(http.Header),
		query:   make(url.Values),
		body:    body,
	}
}

// FetchFunc is the signature shared by Client.Fetch and authenticated fetchers.
type FetchFunc func(ctx context.Context, path string, opts *Options) (*Response, error)

// NewRequest creates a Request executed by fetch.
func NewRequest(ctx context.Context, fetch FetchFunc, method, path string, body any) *Request {
	return &Request{
		fetch:   fetch,
		ctx:     ctx,
		method:  method,
		path:    path,
		headers: make(http.Header),
		query:   make(url.Values),
		body:    body,
	}
}

// Request represents an HTTP request being built.
type Request struct {
	fetch     FetchFunc
	ctx       context.Context
	method    string
	path      string
	headers   http.Header
	query     url.Values
	body      any
	raw       []byte
	traceName string
	noStore   bool
	refresh   RefreshFunc
}

// WithHeader adds a header to the request.
func (r *Request) WithHeader(key, value string) *Request {
	r.headers.Set(key, value)
	return r
}

// WithQuery adds a query parameter to the request.
func (r *Request) WithQuery(key, value string) *Request {
	r.query.Set(key, value)
	return r
}

// WithQueryParams adds multiple query parameters to the request.
func (r *Request) WithQueryParams(params url.Values) *Request {
	for key, values := range params {
		for _, value := range values {
			r.query.Add(key, value)
		}
	}
	return r
}

// WithBody sets the request body.
func (r *Request) WithBody(body any) *Request {
	r.body = body
	return r
}

// WithRawBody sets an already encoded request body.
func (r *Request) WithRawBody(raw []byte) *Request {
	r.raw = raw
	return r
}

// WithTraceName labels the request trace.
func (r *Request) WithTraceName(name string) *Request {
	r.traceName = name
	return r
}

// NoStore disables caching of the exchange.
func (r *Request) NoStore() *Request {
	r.noStore = true
	return r
}

// WithRefresh sets the recovery action used on 401.
func (r *Request) WithRefresh(refresh RefreshFunc) *Request {
	r.refresh = refresh
	return r
}

// Do executes the request and returns the response.
func (r *Request) Do() (*Response, error) {
	path := r.path
	if len(r.query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		path += sep + r.query.Encode()
	}

	body := r.raw
	if body == nil && r.body != nil {
		var err error
		body, err = json.Marshal(r.body)
		if err != nil {
			return nil, &APIError{
				Status: StatusNetworkError,
				URL:    r.path,
				cause:  fmt.Errorf("failed to marshal request body: %w", err),
			}
		}
	}

	return r.fetch(r.ctx, path, &Options{
		Method:    r.method,
		Headers:   r.headers,
		Body:      body,
		NoStore:   r.noStore,
		TraceName: r.traceName,
		Refresh:   r.refresh,
	})
}

// Decode executes the request and decodes the response into dest.
func (r *Request) Decode(dest any) error {
	resp, err := r.Do()
	if err != nil {
		return err
	}

	return resp.Decode(dest)
}

// CircuitStates returns the state of every per-host circuit breaker, or nil if disabled.
func (c *Client) CircuitStates() map[string]CircuitState {
	return c.circuits.states()
}

// Resolver returns the URL resolver of the client.
func (c *Client) Resolver() *Resolver {
	return c.resolver
}

// Tracer returns the tracer of the client.
func (c *Client) Tracer() *Tracer {
	return c.tracer
}
