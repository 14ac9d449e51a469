package base

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/Dorico-Dynamics/txova-go-core/logging"
)

// Trace header names stamped on outgoing requests.
const (
	HeaderTraceID   = "X-Trace-Id"
	HeaderTraceSrc  = "X-Trace-Src"
	HeaderTraceName = "X-Trace-Name"
)

// TraceFlags are the raw inputs that decide whether tracing is on.
type TraceFlags struct {
	// ServerDebug is the server-only debug flag.
	ServerDebug bool

	// PublicDebug is the public debug flag, visible to both contexts.
	PublicDebug bool

	// Query is the "trace" query parameter of the page that started a browser session.
	Query string

	// Persisted is the previously stored browser trace preference.
	Persisted bool
}

// TraceState is the resolved trace decision for a process or browser session.
type TraceState struct {
	// Enabled turns header stamping and trace log lines on.
	Enabled bool

	// Persist is the browser preference to store for the next session.
	Persist bool
}

// ResolveTrace computes the trace state once at startup.
// In the browser context ?trace=1 persists the preference and ?trace=0 clears it.
func ResolveTrace(ec ExecutionContext, flags TraceFlags) TraceState {
	if ec == ContextServer {
		return TraceState{Enabled: flags.ServerDebug || flags.PublicDebug}
	}

	persist := flags.Persisted
	switch flags.Query {
	case "1":
		persist = true
	case "0":
		persist = false
	}

	return TraceState{
		Enabled: persist || flags.PublicDebug,
		Persist: persist,
	}
}

// Trace is a single traced call, including its possible retry.
type Trace struct {
	ID     string
	Origin string
	Name   string
	Start  time.Time
}

// Tracer starts and ends traces. A disabled Tracer is a no-op.
type Tracer struct {
	enabled bool
	ec      ExecutionContext
	logger  *logging.Logger
	now     func() time.Time
}

// NewTracer creates a Tracer.
func NewTracer(state TraceState, ec ExecutionContext, logger *logging.Logger) *Tracer {
	return &Tracer{
		enabled: state.Enabled,
		ec:      ec,
		logger:  logger,
		now:     time.Now,
	}
}

// Enabled reports whether tracing is active.
func (t *Tracer) Enabled() bool {
	return t != nil && t.enabled
}

// Start begins a trace. It returns nil when tracing is disabled.
func (t *Tracer) Start(name string) *Trace {
	if !t.Enabled() {
		return nil
	}
	return &Trace{
		ID:     uuid.New().String(),
		Origin: t.ec.String(),
		Name:   name,
		Start:  t.now(),
	}
}

// TraceID returns the trace id, or "" for a nil trace.
func (tr *Trace) TraceID() string {
	if tr == nil {
		return ""
	}
	return tr.ID
}

// Stamp returns a copy of h carrying the trace headers.
func Stamp(h http.Header, tr *Trace) http.Header {
	out := h.Clone()
	if out == nil {
		out = make(http.Header)
	}
	if tr == nil {
		return out
	}

	out.Set(HeaderTraceID, tr.ID)
	out.Set(HeaderTraceSrc, tr.Origin)
	if tr.Name != "" {
		out.Set(HeaderTraceName, tr.Name)
	}
	return out
}

// End emits the single trace line for tr. status <= 0 is omitted.
func (t *Tracer) End(ctx context.Context, tr *Trace, status int, extra map[string]any) {
	if tr == nil || t == nil || t.logger == nil {
		return
	}

	dur := t.now().Sub(tr.Start).Milliseconds()
	line := fmt.Sprintf("[TRACE] %s %s id=%s dur=%dms", tr.Origin, tr.Name, tr.ID, dur)
	if status > 0 {
		line += fmt.Sprintf(" status=%d", status)
	}

	attrs := []any{
		"trace_id", tr.ID,
		"duration_ms", dur,
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, extra[k])
	}

	if t.ec == ContextServer {
		t.logger.InfoContext(ctx, line, attrs...)
		return
	}
	t.logger.DebugContext(ctx, line, attrs...)
}
