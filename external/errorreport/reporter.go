// Package errorreport records client-side errors reported by the portal frontend.
// Every report is logged; when configured it is also published to Kafka and archived in object storage.
package errorreport

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	txcontext "github.com/Dorico-Dynamics/txova-go-core/context"
	"github.com/Dorico-Dynamics/txova-go-core/logging"
	"github.com/Dorico-Dynamics/txova-go-kafka/envelope"
	"github.com/Dorico-Dynamics/txova-go-kafka/events"

	"github.com/Dorico-Dynamics/txova-go-portal/external/storage"
)

// EventTypeClientError is the envelope type of a published client error report.
const EventTypeClientError = "portal.client_error"

// serviceName is used as the source in Kafka envelopes.
const serviceName = "txova-portal"

// EventPublisher defines the interface for publishing Kafka events.
type EventPublisher interface {
	Publish(ctx context.Context, env *envelope.Envelope, partitionKey string) error
}

// Archiver stores a JSON document under a key.
type Archiver interface {
	Archive(ctx context.Context, key string, doc []byte) error
}

// ClientError is the recorded form of a client error report.
type ClientError struct {
	ReportID   string          `json:"report_id"`
	ReceivedAt time.Time       `json:"received_at"`
	RequestID  string          `json:"request_id,omitempty"`
	Payload    json.RawMessage `json:"payload"`
}

// Config holds the report sinks. Nil sinks are skipped.
type Config struct {
	// Publisher publishes report events (optional).
	Publisher EventPublisher

	// Archive stores report documents (optional).
	Archive Archiver
}

// Reporter records client error reports.
type Reporter struct {
	publisher EventPublisher
	archive   Archiver
	logger    *logging.Logger
	now       func() time.Time
}

// New creates a new reporter.
func New(cfg *Config, logger *logging.Logger) *Reporter {
	r := &Reporter{logger: logger, now: time.Now}
	if cfg != nil {
		r.publisher = cfg.Publisher
		r.archive = cfg.Archive
	}
	return r
}

// Report records payload and returns the report id. A payload that is not valid JSON is recorded as {}.
// Sink failures are logged and never returned.
func (r *Reporter) Report(ctx context.Context, payload json.RawMessage) string {
	if len(payload) == 0 || !json.Valid(payload) {
		payload = json.RawMessage(`{}`)
	}

	report := ClientError{
		ReportID:   uuid.NewString(),
		ReceivedAt: r.now().UTC(),
		RequestID:  txcontext.RequestID(ctx),
		Payload:    payload,
	}

	if r.logger != nil {
		r.logger.WarnContext(ctx, "client error reported",
			"report_id", report.ReportID,
			"payload", string(payload),
		)
	}

	r.publish(ctx, &report)
	r.store(ctx, &report)

	return report.ReportID
}

func (r *Reporter) publish(ctx context.Context, report *ClientError) {
	if r.publisher == nil {
		return
	}

	env, err := envelope.NewWithContext(ctx, &envelope.Config{
		Type:    EventTypeClientError,
		Version: events.VersionLatest,
		Source:  serviceName,
		Payload: report,
	})
	if err != nil {
		r.warn(ctx, "failed to create client error envelope", report.ReportID, err)
		return
	}

	if err := r.publisher.Publish(ctx, env, report.ReportID); err != nil {
		r.warn(ctx, "failed to publish client error event", report.ReportID, err)
	}
}

func (r *Reporter) store(ctx context.Context, report *ClientError) {
	if r.archive == nil {
		return
	}

	doc, err := json.Marshal(report)
	if err != nil {
		r.warn(ctx, "failed to encode client error report", report.ReportID, err)
		return
	}

	key := storage.ErrorReportKey(report.ReceivedAt, report.ReportID)
	if err := r.archive.Archive(ctx, key, doc); err != nil {
		r.warn(ctx, "failed to archive client error report", report.ReportID, err)
	}
}

func (r *Reporter) warn(ctx context.Context, msg, reportID string, err error) {
	if r.logger == nil {
		return
	}
	r.logger.WarnContext(ctx, msg,
		"error", err.Error(),
		"report_id", reportID,
	)
}
