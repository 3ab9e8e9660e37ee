package publish

import "context"

// Publisher is the exposed surface of the client. Both methods return an
// error only for systemic or validation failures (invalid identifier,
// required tenant missing, destination-list resolution failure, call-level
// transport failure); per-entry outcomes are reported in the results.
type Publisher interface {
	// PublishEvent publishes one event as a single non-batched call.
	PublishEvent(ctx context.Context, destinationID string, event Event) (*SingleResult, error)

	// PublishEvents publishes many events as size- and count-bounded
	// batches, preserving input order within and across batches.
	PublishEvents(ctx context.Context, destinationID string, events []Event) (*BatchResult, error)
}
