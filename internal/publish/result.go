package publish

import (
	"sort"
	"strconv"
)

// SingleResult is the outcome of a single non-batched publish.
type SingleResult struct {
	MessageID      string `json:"messageId"`
	SequenceNumber string `json:"sequenceNumber,omitempty"`
}

// SuccessEntry is one successfully published batch entry, keyed by the
// entry's assigned identifier for correlation.
type SuccessEntry struct {
	ID             string `json:"id"`
	MessageID      string `json:"messageId"`
	SequenceNumber string `json:"sequenceNumber,omitempty"`
}

// FailedEntry is one batch entry that failed, either reported by the
// transport or produced locally by the offload coordinator.
type FailedEntry struct {
	ID      string `json:"id"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BatchResult aggregates all per-entry outcomes of one PublishEvents call.
// Entries are sorted by numeric identifier so output is deterministic
// regardless of batch completion order.
type BatchResult struct {
	SuccessCount int            `json:"successCount"`
	FailedCount  int            `json:"failedCount"`
	Success      []SuccessEntry `json:"success"`
	Failed       []FailedEntry  `json:"failed"`
}

// Merge folds one batch call's transport acknowledgment and any offload
// failures into the aggregate.
func (r *BatchResult) Merge(ack *BatchAck, offloadFailures []FailedEntry) {
	if ack != nil {
		for _, s := range ack.Successful {
			r.Success = append(r.Success, SuccessEntry(s))
		}
		for _, f := range ack.Failed {
			r.Failed = append(r.Failed, FailedEntry(f))
		}
	}
	r.Failed = append(r.Failed, offloadFailures...)
}

// Finalize sorts both outcome lists by numeric identifier and fixes the
// counters. Call once after all batches have merged.
func (r *BatchResult) Finalize() {
	sortByID(r.Success, func(e SuccessEntry) string { return e.ID })
	sortByID(r.Failed, func(e FailedEntry) string { return e.ID })
	r.SuccessCount = len(r.Success)
	r.FailedCount = len(r.Failed)
}

func sortByID[T any](entries []T, id func(T) string) {
	sort.Slice(entries, func(i, j int) bool {
		a, _ := strconv.Atoi(id(entries[i]))
		b, _ := strconv.Atoi(id(entries[j]))
		return a < b
	})
}
