// Package base provides the foundation HTTP client for the Txova portal.
// It resolves request URLs for the server and browser execution contexts, stamps trace headers,
// recovers once from an expired session and normalizes every failure into an APIError.
package base

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Dorico-Dynamics/txova-go-core/errors"
)

// Client-specific error codes extending txova-go-core/errors.
const (
	// CodeTimeout indicates a request timed out.
	CodeTimeout errors.Code = "TIMEOUT"
	// CodeCanceled indicates the caller cancelled the request.
	CodeCanceled errors.Code = "CANCELED"
	// CodeCircuitOpen indicates the circuit breaker is open.
	CodeCircuitOpen errors.Code = "CIRCUIT_OPEN"
	// CodeBadGateway indicates the upstream service returned an invalid response.
	CodeBadGateway errors.Code = "BAD_GATEWAY"
)

// StatusNetworkError is the synthetic status carried by an APIError when no response was received.
const StatusNetworkError = 0

// codeHTTPStatus maps client-specific error codes to HTTP status codes.
var codeHTTPStatus = map[errors.Code]int{
	CodeTimeout:     http.StatusGatewayTimeout,
	CodeCanceled:    499,
	CodeCircuitOpen: http.StatusServiceUnavailable,
	CodeBadGateway:  http.StatusBadGateway,
}

// HTTPStatusForCode returns the HTTP status code for a client-specific error code.
// Falls back to the core errors package for standard codes.
func HTTPStatusForCode(code errors.Code) int {
	if status, ok := codeHTTPStatus[code]; ok {
		return status
	}
	return code.HTTPStatus()
}

// Payload is the parsed JSON object of an error response body.
type Payload map[string]any

// String returns the string value stored under key, or "".
func (p Payload) String(key string) string {
	if p == nil {
		return ""
	}
	s, _ := p[key].(string)
	return s
}

// APIError is the single error shape every failure of Client converges to.
type APIError struct {
	// Status is the HTTP status code, or StatusNetworkError when no response was received.
	Status int

	// Payload is the parsed JSON error body, nil when the body was empty or not a JSON object.
	Payload Payload

	// TraceID is the correlation id of the call when tracing was active.
	TraceID string

	// URL is the resolved request URL.
	URL string

	cause error
}

// NewAPIError builds an APIError from a response status and raw body.
func NewAPIError(status int, body []byte, traceID, reqURL string) *APIError {
	return &APIError{
		Status:  status,
		Payload: parsePayload(body),
		TraceID: traceID,
		URL:     reqURL,
	}
}

// newNetworkError wraps a transport failure.
func newNetworkError(cause error, traceID, reqURL string) *APIError {
	return &APIError{
		Status:  StatusNetworkError,
		TraceID: traceID,
		URL:     reqURL,
		cause:   cause,
	}
}

func parsePayload(body []byte) Payload {
	if len(body) == 0 {
		return nil
	}
	var p Payload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil
	}
	return p
}

// Error implements error.
func (e *APIError) Error() string {
	if msg := e.Payload.String("message"); msg != "" {
		return fmt.Sprintf("API %d Error: %s", e.Status, msg)
	}
	if e.cause != nil && e.Status == StatusNetworkError {
		return fmt.Sprintf("API %d Error: %v", e.Status, e.cause)
	}
	return fmt.Sprintf("API %d Error", e.Status)
}

// Unwrap returns the underlying cause, if any.
func (e *APIError) Unwrap() error {
	return e.cause
}

// StatusCode returns the HTTP status.
func (e *APIError) StatusCode() int {
	return e.Status
}

// ErrorPayload returns the parsed error body.
func (e *APIError) ErrorPayload() map[string]any {
	return e.Payload
}

// Code maps the error to a core error code.
func (e *APIError) Code() errors.Code {
	if e.Status == StatusNetworkError {
		return CodeBadGateway
	}
	body, _ := json.Marshal(e.Payload)
	return MapHTTPStatus(e.Status, body).Code()
}

// CodeString returns the backend supplied "code" when present, else the mapped core code.
func (e *APIError) CodeString() string {
	if c := e.Payload.String("code"); c != "" {
		return c
	}
	return string(e.Code())
}

// StatusPayloader is satisfied by any error carrying both a status and an error payload.
type StatusPayloader interface {
	StatusCode() int
	ErrorPayload() map[string]any
}

// IsAPIError reports whether err is, or wraps, an APIError or another StatusPayloader.
func IsAPIError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return true
	}
	var sp StatusPayloader
	return stderrors.As(err, &sp)
}

// AsAPIError returns the APIError in err's chain.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// ErrorMessage renders a single human-readable line for err.
// It prefers payload "error", then payload "message", then the error text,
// then the status, and finally fallback.
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return fallback
	}

	var sp StatusPayloader
	if stderrors.As(err, &sp) {
		p := Payload(sp.ErrorPayload())
		for _, candidate := range []string{
			p.String("error"),
			p.String("message"),
			err.Error(),
		} {
			if candidate != "" {
				return candidate
			}
		}
		if sp.StatusCode() != 0 {
			return "HTTP " + strconv.Itoa(sp.StatusCode())
		}
		return fallback
	}

	if msg := err.Error(); msg != "" {
		return msg
	}
	return fallback
}

// Error constructors for client-specific errors.

// ErrTimeout creates a timeout error.
func ErrTimeout(message string) *errors.AppError {
	return errors.New(CodeTimeout, message)
}

// ErrTimeoutWrap creates a timeout error wrapping an existing error.
func ErrTimeoutWrap(message string, cause error) *errors.AppError {
	return errors.Wrap(CodeTimeout, message, cause)
}

// ErrCanceledWrap creates a cancellation error wrapping the context error.
func ErrCanceledWrap(message string, cause error) *errors.AppError {
	return errors.Wrap(CodeCanceled, message, cause)
}

// ErrCircuitOpen creates a circuit breaker open error.
func ErrCircuitOpen(host string) *errors.AppError {
	return errors.New(CodeCircuitOpen, fmt.Sprintf("circuit breaker open for %s", host))
}

// ErrBadGateway creates a bad gateway error for invalid upstream responses.
func ErrBadGateway(message string) *errors.AppError {
	return errors.New(CodeBadGateway, message)
}

// ErrBadGatewayWrap creates a bad gateway error wrapping an existing error.
func ErrBadGatewayWrap(message string, cause error) *errors.AppError {
	return errors.Wrap(CodeBadGateway, message, cause)
}

// IsTimeout checks if the error is a timeout error.
func IsTimeout(err error) bool {
	return errors.IsCode(err, CodeTimeout)
}

// IsCanceled checks if the error is a cancellation error.
func IsCanceled(err error) bool {
	return errors.IsCode(err, CodeCanceled)
}

// IsCircuitOpen checks if the error is a circuit breaker open error.
func IsCircuitOpen(err error) bool {
	return errors.IsCode(err, CodeCircuitOpen)
}

// IsUnauthorized reports whether err is an APIError with status 401.
func IsUnauthorized(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// MapHTTPStatus maps an HTTP status code and response body to an AppError.
// It attempts to parse the standard Txova error response format first.
func MapHTTPStatus(statusCode int, body []byte) *errors.AppError {
	var errResp errors.ErrorResponse
	if len(body) > 0 {
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error.Code != "" {
			code := errors.Code(errResp.Error.Code)
			return errors.New(code, errResp.Error.Message)
		}
	}

	switch statusCode {
	case http.StatusBadRequest:
		return errors.ValidationError(extractMessage(body, "bad request"))
	case http.StatusUnauthorized:
		return errors.InvalidCredentials(extractMessage(body, "unauthorized"))
	case http.StatusForbidden:
		return errors.Forbidden(extractMessage(body, "forbidden"))
	case http.StatusNotFound:
		return errors.NotFound(extractMessage(body, "not found"))
	case http.StatusConflict:
		return errors.Conflict(extractMessage(body, "conflict"))
	case http.StatusTooManyRequests:
		return errors.RateLimited(extractMessage(body, "rate limited"))
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return ErrTimeout(extractMessage(body, "request timeout"))
	case http.StatusBadGateway:
		return ErrBadGateway(extractMessage(body, "bad gateway"))
	case http.StatusServiceUnavailable:
		return errors.ServiceUnavailable(extractMessage(body, "service unavailable"))
	default:
		if statusCode >= 500 {
			return errors.InternalError(extractMessage(body, "server error"))
		}
		return errors.ValidationError(extractMessage(body, fmt.Sprintf("request failed with status %d", statusCode)))
	}
}

// extractMessage extracts a message from a response body or returns a default.
func extractMessage(body []byte, defaultMsg string) string {
	if len(body) == 0 {
		return defaultMsg
	}

	if msg := extractJSONMessage(body); msg != "" {
		return msg
	}

	if len(body) <= 200 && !json.Valid(body) {
		return string(body)
	}

	return defaultMsg
}

// extractJSONMessage pulls "error" or "message" out of a JSON body.
// Both the flat portal shape and the nested Txova shape are understood.
func extractJSONMessage(body []byte) string {
	var data map[string]any
	if err := json.Unmarshal(body, &data); err != nil {
		return ""
	}

	if msg, ok := data["error"].(string); ok && msg != "" {
		return msg
	}

	if msg, ok := data["message"].(string); ok && msg != "" {
		return msg
	}

	errObj, ok := data["error"].(map[string]any)
	if !ok {
		return ""
	}

	if msg, ok := errObj["message"].(string); ok && msg != "" {
		return msg
	}

	return ""
}
