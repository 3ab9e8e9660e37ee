package publisher

import (
	"context"

	"go.opentelemetry.io/otel/codes"

	"topicpub/internal/publish"
	"topicpub/internal/publish/tracing"
)

// TracedPublisher wraps a publish.Publisher with distributed tracing
// Layer order: TracedPublisher -> MetricsPublisher -> Publisher (real thing)
type TracedPublisher struct {
	publisher publish.Publisher
	tracer    *tracing.Tracer
}

// NewTracedPublisher creates a new traced publisher that wraps a metrics publisher
func NewTracedPublisher(publisher publish.Publisher, tracer *tracing.Tracer) publish.Publisher {
	return &TracedPublisher{
		publisher: publisher,
		tracer:    tracer,
	}
}

// PublishEvent implements publish.Publisher.PublishEvent with distributed tracing
func (p *TracedPublisher) PublishEvent(ctx context.Context, destinationID string, event publish.Event) (*publish.SingleResult, error) {
	ctx, span := p.tracer.StartSpan(ctx, "publisher.publish_event")
	defer span.End()

	span.SetAttributes(p.tracer.PublishAttributes(destinationID, 1)...)

	res, err := p.publisher.PublishEvent(ctx, destinationID, event)

	if err != nil {
		p.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(p.tracer.ErrorAttributes(err)...)

	return res, err
}

// PublishEvents implements publish.Publisher.PublishEvents with distributed tracing
func (p *TracedPublisher) PublishEvents(ctx context.Context, destinationID string, events []publish.Event) (*publish.BatchResult, error) {
	ctx, span := p.tracer.StartSpan(ctx, "publisher.publish_events")
	defer span.End()

	span.SetAttributes(p.tracer.PublishAttributes(destinationID, len(events))...)

	res, err := p.publisher.PublishEvents(ctx, destinationID, events)

	if err != nil {
		p.tracer.RecordError(ctx, err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.SetAttributes(p.tracer.ErrorAttributes(err)...)

	return res, err
}
