package secured

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/tbudis/secured/core"
)

// DenialEventName is the span event added for every denial.
const DenialEventName = "secured.denied"

// TracingSink adds denials as events to the span found in the request
// context. It does nothing when the context carries no recording span.
type TracingSink struct{}

// NewTracingSink returns a TracingSink.
func NewTracingSink() *TracingSink {
	return &TracingSink{}
}

// RecordDenial implements core.DenialSink.
func (s *TracingSink) RecordDenial(ctx context.Context, event core.DenialEvent) {
	span := oteltrace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	required := make([]string, len(event.RequiredRoles))
	for i, role := range event.RequiredRoles {
		required[i] = string(role)
	}

	span.AddEvent(DenialEventName, oteltrace.WithAttributes(
		attribute.String("secured.kind", string(event.Kind)),
		attribute.String("secured.reason", event.Reason),
		attribute.String("secured.operation", event.Operation),
		attribute.String("secured.subject", event.Subject()),
		attribute.Int64("secured.roles", int64(event.Roles())),
		attribute.StringSlice("secured.required_roles", required),
	))
}
