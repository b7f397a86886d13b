package telemetry

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/c360/canlink/errors"
)

// Envelope wraps a telemetry payload with identity and provenance fields.
// Timestamp marshals as RFC 3339 with nanoseconds.
type Envelope struct {
	ID        string          `json:"id"`
	Source    string          `json:"source"`
	Kind      string          `json:"kind"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// ChannelWriter publishes one view of vehicle state to its bound subject.
type ChannelWriter interface {
	Write(v any) error
	Subject() string
}

// Writer is a subject-bound envelope publisher. A nil *Writer is a disabled
// channel: Write returns nil without publishing.
type Writer struct {
	client  *Client
	subject string
	source  string
	kind    string
}

// NewWriter creates a writer bound to a subject. Source identifies the
// publishing node, kind names the payload view carried on this channel.
func NewWriter(client *Client, subject, source, kind string) (*Writer, error) {
	if client == nil {
		return nil, errors.WrapCreation(
			fmt.Errorf("nil client"),
			"Writer", "NewWriter", "validate client")
	}
	if subject == "" {
		return nil, errors.WrapCreation(
			fmt.Errorf("empty subject"),
			"Writer", "NewWriter", "validate subject")
	}

	return &Writer{
		client:  client,
		subject: subject,
		source:  source,
		kind:    kind,
	}, nil
}

// Subject returns the subject this writer publishes to
func (w *Writer) Subject() string {
	if w == nil {
		return ""
	}
	return w.subject
}

// Write marshals v into an envelope and publishes it. Delivery is
// fire-and-forget; the error reports marshal or queueing failures only.
func (w *Writer) Write(v any) error {
	if w == nil {
		return nil
	}

	data, err := w.envelope(v)
	if err != nil {
		w.client.metrics.RecordTelemetryError(w.subject)
		return err
	}

	if err := w.client.Publish(w.subject, data); err != nil {
		w.client.metrics.RecordTelemetryError(w.subject)
		return errors.WrapUpdate(err, "Writer", "Write", "publish "+w.subject)
	}

	w.client.metrics.RecordTelemetryPublished(w.subject)
	return nil
}

// envelope builds the wire form of one telemetry message
func (w *Writer) envelope(v any) ([]byte, error) {
	payload, err := json.Marshal(v)
	if err != nil {
		return nil, errors.WrapUpdate(err, "Writer", "Write", "marshal payload")
	}

	env := Envelope{
		ID:        uuid.NewString(),
		Source:    w.source,
		Kind:      w.kind,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}

	data, err := json.Marshal(env)
	if err != nil {
		return nil, errors.WrapUpdate(err, "Writer", "Write", "marshal envelope")
	}
	return data, nil
}
