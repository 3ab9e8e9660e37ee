package offload

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"topicpub/internal/publish"
)

type fakeBlobStore struct {
	mu      sync.Mutex
	calls   []string
	failing map[string]bool
}

func (s *fakeBlobStore) Store(ctx context.Context, dest publish.Destination, key string, body []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, dest.Name)
	if s.failing[dest.Name] {
		return errors.New("upload rejected")
	}
	return nil
}

type staticResolver struct {
	list []publish.Destination
	err  error
}

func (r *staticResolver) Resolve(ctx context.Context) ([]publish.Destination, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.list, nil
}

func destinations() []publish.Destination {
	return []publish.Destination{
		{Name: "fallback", Region: "us-west-2"},
		{Name: "primary", Region: "us-east-1", Default: true},
	}
}

func oversizeEntry(t *testing.T) *publish.DraftEntry {
	t.Helper()

	entry, err := publish.FormatEvent(publish.Event{
		Content: map[string]any{
			"order_id": "ORD-1",
			"manifest": strings.Repeat("x", publish.MaxMessageBytes+1),
		},
		PayloadFixedProperties: []string{"order_id"},
	}, "orders", "1", publish.FormatOptions{Service: "billing", Tenant: "acme"})
	require.NoError(t, err)
	require.True(t, entry.ExceedsLimit)

	return entry
}

func newTestCoordinator(t *testing.T, store publish.BlobStore, resolver publish.DestinationResolver) *Coordinator {
	t.Helper()

	cache, err := publish.NewDestinationCache(resolver)
	require.NoError(t, err)

	c, err := NewCoordinator(cache, store, zap.NewNop())
	require.NoError(t, err)

	return c
}

func TestOffloadDefaultDestinationFirst(t *testing.T) {
	store := &fakeBlobStore{}
	c := newTestCoordinator(t, store, &staticResolver{list: destinations()})

	entry := oversizeEntry(t)
	failure, err := c.Offload(context.Background(), entry)
	require.NoError(t, err)
	assert.Nil(t, failure)

	// The default-flagged destination goes first even when listed second.
	assert.Equal(t, []string{"primary"}, store.calls)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(entry.Body), &body))
	assert.Equal(t, "ORD-1", body["order_id"])
	assert.NotContains(t, body, "manifest")

	loc := body["locator"].(map[string]any)
	assert.Equal(t, entry.LocatorPath, loc["path"])
	assert.Equal(t, "primary", loc["destinationName"])
	assert.Equal(t, "us-east-1", loc["region"])

	assert.False(t, entry.ExceedsLimit)
	assert.LessOrEqual(t, entry.Size, publish.MaxMessageBytes)
}

func TestOffloadFallsBackToSecondary(t *testing.T) {
	store := &fakeBlobStore{failing: map[string]bool{"primary": true}}
	c := newTestCoordinator(t, store, &staticResolver{list: destinations()})

	entry := oversizeEntry(t)
	failure, err := c.Offload(context.Background(), entry)
	require.NoError(t, err)
	assert.Nil(t, failure)

	assert.Equal(t, []string{"primary", "fallback"}, store.calls)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(entry.Body), &body))
	loc := body["locator"].(map[string]any)
	assert.Equal(t, "fallback", loc["destinationName"])
	assert.Equal(t, "us-west-2", loc["region"])
}

func TestOffloadAllDestinationsFail(t *testing.T) {
	store := &fakeBlobStore{failing: map[string]bool{"primary": true, "fallback": true}}
	c := newTestCoordinator(t, store, &staticResolver{list: destinations()})

	entry := oversizeEntry(t)
	failure, err := c.Offload(context.Background(), entry)
	require.NoError(t, err)

	require.NotNil(t, failure)
	assert.Equal(t, "1", failure.ID)
	assert.Equal(t, string(publish.FailureCodeBlobStore), failure.Code)
	assert.NotEmpty(t, failure.Message)

	// The entry is untouched; the failure outcome replaces it downstream.
	assert.True(t, entry.ExceedsLimit)
}

func TestOffloadResolutionFailurePropagates(t *testing.T) {
	store := &fakeBlobStore{}
	c := newTestCoordinator(t, store, &staticResolver{err: publish.ErrResourceDiscovery})

	entry := oversizeEntry(t)
	_, err := c.Offload(context.Background(), entry)

	require.Error(t, err)
	assert.True(t, errors.Is(err, publish.ErrResourceDiscovery))
	assert.Empty(t, store.calls)
}

func TestEnsureDestinations(t *testing.T) {
	c := newTestCoordinator(t, &fakeBlobStore{}, &staticResolver{err: publish.ErrParameterRead})

	err := c.EnsureDestinations(context.Background())

	require.Error(t, err)
	assert.True(t, errors.Is(err, publish.ErrParameterRead))
}
