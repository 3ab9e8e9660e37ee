package offload

import (
	"context"
	"time"

	"topicpub/internal/publish"
	"topicpub/internal/publish/metrics"
)

// MetricsCoordinator wraps a publish.Offloader with metrics collection
type MetricsCoordinator struct {
	offloader publish.Offloader
	registry  *metrics.Registry
}

// NewMetricsCoordinator creates a new instrumented offloader
func NewMetricsCoordinator(offloader publish.Offloader, registry *metrics.Registry) publish.Offloader {
	return &MetricsCoordinator{
		offloader: offloader,
		registry:  registry,
	}
}

// EnsureDestinations implements publish.Offloader.EnsureDestinations with metrics collection
func (m *MetricsCoordinator) EnsureDestinations(ctx context.Context) error {
	start := time.Now()

	err := m.offloader.EnsureDestinations(ctx)

	m.registry.RecordDestinationLookup(time.Since(start), err)

	return err
}

// Offload implements publish.Offloader.Offload with metrics collection
func (m *MetricsCoordinator) Offload(ctx context.Context, entry *publish.DraftEntry) (*publish.FailedEntry, error) {
	start := time.Now()
	bytes := entry.Size

	failure, err := m.offloader.Offload(ctx, entry)

	status := "success"
	switch {
	case err != nil:
		status = "error"
	case failure != nil:
		status = "failed"
	}
	m.registry.RecordOffload(status, bytes, time.Since(start))

	return failure, err
}
