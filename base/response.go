package base

import (
	"encoding/json"
	"net/http"
)

// Response represents a completed HTTP exchange.
type Response struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Headers contains the response headers.
	Headers http.Header

	// Body contains the raw response body.
	Body []byte

	// URL is the resolved request URL.
	URL string

	// TraceID is the trace id of the call, empty when tracing is off.
	TraceID string

	// Retried is true when the response came from the retry after a session refresh.
	Retried bool
}

// IsSuccess returns true if the response has a 2xx status code.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode decodes the response body into the given destination.
// A non-2xx status returns an APIError. An empty body leaves dest untouched.
// A body that is not valid JSON is reported as a 502 APIError.
func (r *Response) Decode(dest any) error {
	if !r.IsSuccess() {
		return NewAPIError(r.StatusCode, r.Body, r.TraceID, r.URL)
	}

	if len(r.Body) == 0 {
		return nil
	}

	if err := json.Unmarshal(r.Body, dest); err != nil {
		return &APIError{
			Status:  http.StatusBadGateway,
			Payload: Payload{"error": "invalid JSON response"},
			TraceID: r.TraceID,
			URL:     r.URL,
			cause:   ErrBadGatewayWrap("failed to decode response", err),
		}
	}

	return nil
}

// String returns the response body as a string.
func (r *Response) String() string {
	return string(r.Body)
}

// Header returns the value of a response header.
func (r *Response) Header(key string) string {
	return r.Headers.Get(key)
}

// RequestID returns the X-Request-ID header value.
func (r *Response) RequestID() string {
	return r.Headers.Get("X-Request-ID")
}

// ServerTiming returns the Server-Timing header value.
func (r *Response) ServerTiming() string {
	return r.Headers.Get("Server-Timing")
}
