package publish

import "context"

// Offloader resolves entries marked as exceeding the message size ceiling
// before dispatch.
type Offloader interface {
	// EnsureDestinations pre-resolves the destination list so a systemic
	// lookup failure rejects the operation before any publish call is made.
	EnsureDestinations(ctx context.Context) error

	// Offload uploads the entry's payload and rewrites it in place to a
	// locator reference. A non-nil FailedEntry means every destination
	// rejected the upload; errors are systemic and abort the operation.
	Offload(ctx context.Context, entry *DraftEntry) (*FailedEntry, error)
}
