package publish

import (
	"fmt"
	"strconv"
)

// PartitionEvents formats the events in input order, assigning sequential
// "1"-based identifiers, and packs them into batches that respect both the
// byte-size and entry-count ceilings. Entries pending offload occupy one slot
// at their estimated post-offload size. Batch boundaries are a pure function
// of sizes and the count ceiling: no reordering, no dropping.
func PartitionEvents(events []Event, topic string, opts FormatOptions) ([][]*DraftEntry, error) {
	var (
		batches [][]*DraftEntry
		current []*DraftEntry
		size    int
	)

	for i, e := range events {
		d, err := FormatEvent(e, topic, strconv.Itoa(i+1), opts)
		if err != nil {
			return nil, fmt.Errorf("failed to format event %d: %w", i+1, err)
		}

		if len(current) > 0 && (len(current) == MaxBatchEntries || size+d.PackedSize() > MaxMessageBytes) {
			batches = append(batches, current)
			current = nil
			size = 0
		}

		current = append(current, d)
		size += d.PackedSize()
	}

	if len(current) > 0 {
		batches = append(batches, current)
	}

	return batches, nil
}
