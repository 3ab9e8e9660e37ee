package publisher

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"topicpub/internal/publish"
)

const testDestinationID = "arn:aws:sns:us-east-1:000000000000:orders"

type fakeTransport struct {
	mu          sync.Mutex
	batchCalls  [][]publish.WireEntry
	singleCalls []publish.WireEntry

	failEntries map[string]publish.BatchFailure
	batchErr    error
	publishErr  error
}

func (t *fakeTransport) Publish(ctx context.Context, topicID string, entry publish.WireEntry) (*publish.PublishAck, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.publishErr != nil {
		return nil, t.publishErr
	}
	t.singleCalls = append(t.singleCalls, entry)

	return &publish.PublishAck{MessageID: "msg-single"}, nil
}

func (t *fakeTransport) PublishBatch(ctx context.Context, topicID string, entries []publish.WireEntry) (*publish.BatchAck, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.batchErr != nil {
		return nil, t.batchErr
	}
	t.batchCalls = append(t.batchCalls, entries)

	ack := publish.BatchAck{}
	for _, e := range entries {
		if failure, ok := t.failEntries[e.ID]; ok {
			ack.Failed = append(ack.Failed, failure)
			continue
		}
		ack.Successful = append(ack.Successful, publish.BatchSuccess{
			ID:        e.ID,
			MessageID: "msg-" + e.ID,
		})
	}

	return &ack, nil
}

func (t *fakeTransport) batchCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.batchCalls)
}

type fakeOffloader struct {
	mu        sync.Mutex
	offloaded []string

	ensureErr  error
	offloadErr error
	failIDs    map[string]bool
}

func (f *fakeOffloader) EnsureDestinations(ctx context.Context) error {
	return f.ensureErr
}

func (f *fakeOffloader) Offload(ctx context.Context, entry *publish.DraftEntry) (*publish.FailedEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.offloadErr != nil {
		return nil, f.offloadErr
	}
	if f.failIDs[entry.ID] {
		return &publish.FailedEntry{
			ID:      entry.ID,
			Code:    string(publish.FailureCodeBlobStore),
			Message: "all destinations failed",
		}, nil
	}

	f.offloaded = append(f.offloaded, entry.ID)
	entry.Body = `{"locator":{"path":"` + entry.LocatorPath + `"}}`
	entry.Size = len(entry.Body)
	entry.ExceedsLimit = false

	return nil, nil
}

func newTestPublisher(t *testing.T, transport publish.Transport, offloader publish.Offloader) *Publisher {
	t.Helper()

	p, err := NewPublisher(transport, offloader, publish.StaticTenant("acme"), Config{Service: "billing"}, zap.NewNop())
	require.NoError(t, err)

	return p
}

func smallEvents(n int) []publish.Event {
	events := make([]publish.Event, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, publish.Event{
			Content: map[string]any{"order_id": fmt.Sprintf("ORD-%04d", i+1)},
		})
	}
	return events
}

func oversizeEvent() publish.Event {
	return publish.Event{
		Content: map[string]any{
			"order_id": "ORD-BULK",
			"manifest": strings.Repeat("x", publish.MaxMessageBytes+1),
		},
		PayloadFixedProperties: []string{"order_id"},
	}
}

func TestPublishEventsAllSuccess(t *testing.T) {
	transport := &fakeTransport{}
	p := newTestPublisher(t, transport, &fakeOffloader{})

	result, err := p.PublishEvents(context.Background(), testDestinationID, smallEvents(5))
	require.NoError(t, err)

	assert.Equal(t, 5, result.SuccessCount)
	assert.Equal(t, 0, result.FailedCount)
	require.Equal(t, 1, transport.batchCount())
	assert.Len(t, transport.batchCalls[0], 5)
}

func TestPublishEventsTwoBatches(t *testing.T) {
	transport := &fakeTransport{}
	p := newTestPublisher(t, transport, &fakeOffloader{})

	result, err := p.PublishEvents(context.Background(), testDestinationID, smallEvents(15))
	require.NoError(t, err)

	require.Equal(t, 2, transport.batchCount())
	sizes := []int{len(transport.batchCalls[0]), len(transport.batchCalls[1])}
	assert.ElementsMatch(t, []int{10, 5}, sizes)

	// Concatenated successes preserve identifiers 1..15 in numeric order.
	assert.Equal(t, 15, result.SuccessCount)
	for i, s := range result.Success {
		assert.Equal(t, strconv.Itoa(i+1), s.ID)
	}
}

func TestPublishEventsInvalidIdentifier(t *testing.T) {
	transport := &fakeTransport{}
	p := newTestPublisher(t, transport, &fakeOffloader{})

	_, err := p.PublishEvents(context.Background(), "not-an-identifier", smallEvents(1))

	require.Error(t, err)
	assert.True(t, errors.Is(err, publish.ErrInvalidIdentifier))
	assert.Equal(t, 0, transport.batchCount())
}

func TestPublishEventsResolutionFailureBeforePublish(t *testing.T) {
	transport := &fakeTransport{}
	offloader := &fakeOffloader{ensureErr: publish.ErrResourceDiscovery}
	p := newTestPublisher(t, transport, offloader)

	events := append(smallEvents(3), oversizeEvent())
	_, err := p.PublishEvents(context.Background(), testDestinationID, events)

	require.Error(t, err)
	assert.True(t, errors.Is(err, publish.ErrResourceDiscovery))
	assert.Equal(t, 0, transport.batchCount())
}

func TestPublishEventsOffloadFailureIsPerEntry(t *testing.T) {
	transport := &fakeTransport{}
	offloader := &fakeOffloader{failIDs: map[string]bool{"2": true}}
	p := newTestPublisher(t, transport, offloader)

	events := []publish.Event{smallEvents(1)[0], oversizeEvent(), smallEvents(1)[0]}
	result, err := p.PublishEvents(context.Background(), testDestinationID, events)
	require.NoError(t, err)

	// The failed entry is excluded from the publish call; siblings proceed.
	require.Equal(t, 1, transport.batchCount())
	require.Len(t, transport.batchCalls[0], 2)
	assert.Equal(t, "1", transport.batchCalls[0][0].ID)
	assert.Equal(t, "3", transport.batchCalls[0][1].ID)

	assert.Equal(t, 2, result.SuccessCount)
	require.Equal(t, 1, result.FailedCount)
	assert.Equal(t, "2", result.Failed[0].ID)
	assert.Equal(t, string(publish.FailureCodeBlobStore), result.Failed[0].Code)
}

func TestPublishEventsOffloadRewritesEntry(t *testing.T) {
	transport := &fakeTransport{}
	offloader := &fakeOffloader{}
	p := newTestPublisher(t, transport, offloader)

	events := append(smallEvents(2), oversizeEvent())
	result, err := p.PublishEvents(context.Background(), testDestinationID, events)
	require.NoError(t, err)

	assert.Equal(t, 3, result.SuccessCount)
	assert.Equal(t, []string{"3"}, offloader.offloaded)

	require.Equal(t, 1, transport.batchCount())
	assert.Contains(t, transport.batchCalls[0][2].Body, "locator")
}

func TestPublishEventsTransportEntryFailuresMerged(t *testing.T) {
	transport := &fakeTransport{failEntries: map[string]publish.BatchFailure{
		"12": {ID: "12", Code: "InternalError", Message: "shard unavailable"},
		"3":  {ID: "3", Code: "InternalError", Message: "shard unavailable"},
	}}
	p := newTestPublisher(t, transport, &fakeOffloader{})

	result, err := p.PublishEvents(context.Background(), testDestinationID, smallEvents(15))
	require.NoError(t, err)

	assert.Equal(t, 13, result.SuccessCount)
	require.Equal(t, 2, result.FailedCount)

	// Failed outcomes are sorted by numeric identifier.
	assert.Equal(t, "3", result.Failed[0].ID)
	assert.Equal(t, "12", result.Failed[1].ID)
	assert.Equal(t, "InternalError", result.Failed[0].Code)
}

func TestPublishEventsCallLevelErrorRejects(t *testing.T) {
	transport := &fakeTransport{batchErr: errors.New("authorization failed")}
	p := newTestPublisher(t, transport, &fakeOffloader{})

	_, err := p.PublishEvents(context.Background(), testDestinationID, smallEvents(3))

	require.Error(t, err)
	assert.Contains(t, err.Error(), "authorization failed")
}

func TestPublishEventsEmpty(t *testing.T) {
	transport := &fakeTransport{}
	p := newTestPublisher(t, transport, &fakeOffloader{})

	result, err := p.PublishEvents(context.Background(), testDestinationID, nil)
	require.NoError(t, err)

	assert.Equal(t, 0, result.SuccessCount)
	assert.Equal(t, 0, result.FailedCount)
	assert.Equal(t, 0, transport.batchCount())
}

func TestPublishEventSingle(t *testing.T) {
	transport := &fakeTransport{}
	p := newTestPublisher(t, transport, &fakeOffloader{})

	result, err := p.PublishEvent(context.Background(), testDestinationID, smallEvents(1)[0])
	require.NoError(t, err)

	assert.Equal(t, "msg-single", result.MessageID)
	require.Len(t, transport.singleCalls, 1)
	assert.Empty(t, transport.singleCalls[0].ID)
}

func TestPublishEventSingleOversizeOffloads(t *testing.T) {
	transport := &fakeTransport{}
	offloader := &fakeOffloader{}
	p := newTestPublisher(t, transport, offloader)

	_, err := p.PublishEvent(context.Background(), testDestinationID, oversizeEvent())
	require.NoError(t, err)

	assert.Len(t, offloader.offloaded, 1)
	require.Len(t, transport.singleCalls, 1)
	assert.Contains(t, transport.singleCalls[0].Body, "locator")
}

func TestPublishEventSingleOffloadFailure(t *testing.T) {
	transport := &fakeTransport{}
	offloader := &fakeOffloader{failIDs: map[string]bool{"": true}}
	p := newTestPublisher(t, transport, offloader)

	_, err := p.PublishEvent(context.Background(), testDestinationID, oversizeEvent())

	require.Error(t, err)
	assert.True(t, errors.Is(err, publish.ErrBlobStore))
	assert.Empty(t, transport.singleCalls)
}

func TestPublishEventTransportErrorPropagates(t *testing.T) {
	transport := &fakeTransport{publishErr: errors.New("access denied")}
	p := newTestPublisher(t, transport, &fakeOffloader{})

	_, err := p.PublishEvent(context.Background(), testDestinationID, smallEvents(1)[0])

	require.Error(t, err)
	assert.Contains(t, err.Error(), "access denied")
}
