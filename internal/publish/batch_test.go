package publish

import (
	"fmt"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallEvents(n int) []Event {
	events := make([]Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, Event{
			Content: map[string]any{"order_id": fmt.Sprintf("ORD-%04d", i+1)},
		})
	}
	return events
}

func TestPartitionEventsCountCeiling(t *testing.T) {
	batches, err := PartitionEvents(smallEvents(15), "orders", testOpts)
	require.NoError(t, err)

	require.Len(t, batches, 2)
	assert.Len(t, batches[0], 10)
	assert.Len(t, batches[1], 5)

	// Identifiers are sequential across batch boundaries, in input order.
	id := 1
	for _, batch := range batches {
		for _, entry := range batch {
			assert.Equal(t, strconv.Itoa(id), entry.ID)
			id++
		}
	}
}

func TestPartitionEventsSizeCeiling(t *testing.T) {
	// Each body is ~150 KiB so two entries never share a batch.
	big := strings.Repeat("a", 150*1024)
	events := []Event{{Content: big}, {Content: big}, {Content: big}}

	batches, err := PartitionEvents(events, "orders", testOpts)
	require.NoError(t, err)

	require.Len(t, batches, 3)
	for _, batch := range batches {
		size := 0
		for _, entry := range batch {
			size += entry.PackedSize()
		}
		assert.LessOrEqual(t, size, MaxMessageBytes)
	}
}

func TestPartitionEventsOversizeUsesEstimate(t *testing.T) {
	events := smallEvents(5)
	events = append(events, Event{
		Content:                map[string]any{"order_id": "ORD-BULK", "manifest": strings.Repeat("x", MaxMessageBytes+1)},
		PayloadFixedProperties: []string{"order_id"},
	})
	events = append(events, smallEvents(4)...)

	batches, err := PartitionEvents(events, "orders", testOpts)
	require.NoError(t, err)

	// The oversize entry shrinks to its estimate, so all ten fit one batch.
	require.Len(t, batches, 1)
	assert.Len(t, batches[0], 10)
	assert.True(t, batches[0][5].ExceedsLimit)
}

func TestPartitionEventsEmpty(t *testing.T) {
	batches, err := PartitionEvents(nil, "orders", testOpts)
	require.NoError(t, err)
	assert.Empty(t, batches)
}
