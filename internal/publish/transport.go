package publish

import "context"

// PublishAck is the transport's acknowledgment of a single publish call.
// SequenceNumber is only set for FIFO topics.
type PublishAck struct {
	MessageID      string
	SequenceNumber string
}

// BatchSuccess reports one successfully published batch entry.
type BatchSuccess struct {
	ID             string
	MessageID      string
	SequenceNumber string
}

// BatchFailure reports one batch entry the transport rejected. Code carries
// the provider error code verbatim.
type BatchFailure struct {
	ID      string
	Code    string
	Message string
}

// BatchAck is the transport's per-entry outcome report for one batch call.
// Per-entry failures live in Failed; only call-level failures (auth,
// malformed request) surface as errors.
type BatchAck struct {
	Successful []BatchSuccess
	Failed     []BatchFailure
}

// Transport is the opaque publish RPC surface of the pub/sub service. Errors
// returned by either call are call-level and propagate unchanged.
type Transport interface {
	// Publish sends a single non-batched entry to the topic.
	Publish(ctx context.Context, topicID string, entry WireEntry) (*PublishAck, error)

	// PublishBatch sends up to MaxBatchEntries entries totalling at most
	// MaxMessageBytes in one call.
	PublishBatch(ctx context.Context, topicID string, entries []WireEntry) (*BatchAck, error)
}
