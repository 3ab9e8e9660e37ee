package publisher

import (
	"context"
	"time"

	"topicpub/internal/publish"
	"topicpub/internal/publish/metrics"
)

// MetricsPublisher wraps a publish.Publisher with metrics collection
type MetricsPublisher struct {
	publisher publish.Publisher
	registry  *metrics.Registry
}

// NewMetricsPublisher creates a new instrumented publisher
func NewMetricsPublisher(publisher publish.Publisher, registry *metrics.Registry) publish.Publisher {
	return &MetricsPublisher{
		publisher: publisher,
		registry:  registry,
	}
}

// PublishEvent implements publish.Publisher.PublishEvent with metrics collection
func (p *MetricsPublisher) PublishEvent(ctx context.Context, destinationID string, event publish.Event) (*publish.SingleResult, error) {
	start := time.Now()

	res, err := p.publisher.PublishEvent(ctx, destinationID, event)

	p.registry.RecordSinglePublish(topicLabel(destinationID), time.Since(start), err)

	return res, err
}

// PublishEvents implements publish.Publisher.PublishEvents with metrics collection
func (p *MetricsPublisher) PublishEvents(ctx context.Context, destinationID string, events []publish.Event) (*publish.BatchResult, error) {
	start := time.Now()

	res, err := p.publisher.PublishEvents(ctx, destinationID, events)
	duration := time.Since(start)

	batches := (len(events) + publish.MaxBatchEntries - 1) / publish.MaxBatchEntries
	successes, failures := 0, 0
	if res != nil {
		successes, failures = res.SuccessCount, res.FailedCount
	}
	p.registry.RecordBatchPublish(topicLabel(destinationID), batches, successes, failures, duration, err)

	return res, err
}

// topicLabel keeps metric labels bounded even for identifiers that fail
// resolution.
func topicLabel(destinationID string) string {
	topic, _, err := publish.ResolveTopic(destinationID)
	if err != nil {
		return "invalid"
	}
	return topic
}
