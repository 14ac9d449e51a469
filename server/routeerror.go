package server

import (
	"encoding/json"
	"net/http"

	"github.com/Dorico-Dynamics/txova-go-core/errors"
	"github.com/Dorico-Dynamics/txova-go-core/logging"

	"github.com/Dorico-Dynamics/txova-go-portal/base"
)

// ErrorBody is the JSON body of every failed portal route.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// Responder writes route responses. Outside production, error bodies carry the backend payload as details.
type Responder struct {
	Production bool
	Logger     *logging.Logger
}

// HandlerFunc is a route handler that reports failures as errors.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// WithRouteError adapts h, writing any returned error as a route error.
func (rs *Responder) WithRouteError(h HandlerFunc, fallback MessageKey, defaultStatus int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h(w, r); err != nil {
			rs.WriteRouteError(w, r, err, fallback, defaultStatus)
		}
	}
}

// WriteRouteError writes err as an ErrorBody.
// The status comes from the API error, then its payload statusCode, then defaultStatus.
// Application errors use the status of their code.
func (rs *Responder) WriteRouteError(w http.ResponseWriter, r *http.Request, err error, fallback MessageKey, defaultStatus int) {
	fallbackMsg := Message(fallback, LocaleFromRequest(r))
	status, body := rs.describe(err, fallbackMsg, defaultStatus)

	if rs.Logger != nil {
		rs.Logger.WarnContext(r.Context(), "route failed",
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"error", err.Error(),
		)
	}

	writeJSON(w, status, body)
}

func (rs *Responder) describe(err error, fallbackMsg string, defaultStatus int) (int, ErrorBody) {
	if apiErr, ok := base.AsAPIError(err); ok {
		body := ErrorBody{
			Error: base.ErrorMessage(apiErr, fallbackMsg),
			Code:  apiErr.CodeString(),
		}
		if !rs.Production && apiErr.Payload != nil {
			body.Details = apiErr.Payload
		}
		return apiStatus(apiErr, defaultStatus), body
	}

	if appErr := errors.AsAppError(err); appErr != nil {
		msg := appErr.Message()
		if msg == "" {
			msg = fallbackMsg
		}
		return base.HTTPStatusForCode(appErr.Code()), ErrorBody{Error: msg, Code: string(appErr.Code())}
	}

	return defaultStatus, ErrorBody{Error: base.ErrorMessage(err, fallbackMsg)}
}

func apiStatus(e *base.APIError, defaultStatus int) int {
	if e.Status != base.StatusNetworkError {
		return e.Status
	}
	if n, ok := e.Payload["statusCode"].(float64); ok && n >= 100 && n < 600 {
		return int(n)
	}
	return defaultStatus
}

// writeJSON writes v with status. Encoding failures are not recoverable once the header is sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// unexpected writes the generic failure body without touching err details.
func (rs *Responder) unexpected(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusInternalServerError, ErrorBody{Error: Message(MsgUnexpected, LocaleFromRequest(r))})
}
