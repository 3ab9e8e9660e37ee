package publish

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"

	"topicpub/internal/validator"
)

// DestinationResolver resolves the offload destination list from the external
// registry. Failures are systemic: they wrap ErrResourceDiscovery or
// ErrParameterRead and abort the whole operation.
type DestinationResolver interface {
	Resolve(ctx context.Context) ([]Destination, error)
}

// DestinationCache memoizes the resolved destination list process-wide.
// Concurrent first callers share a single in-flight resolution instead of
// issuing redundant lookups; failed resolutions are not cached.
type DestinationCache struct {
	resolver DestinationResolver

	group  singleflight.Group
	mu     sync.RWMutex
	cached []Destination
}

// NewDestinationCache wraps a resolver with get-or-populate caching.
func NewDestinationCache(resolver DestinationResolver) (*DestinationCache, error) {
	if err := validator.Validate("destination cache", resolver); err != nil {
		return nil, fmt.Errorf("failed to validate destination cache deps: %w", err)
	}

	return &DestinationCache{resolver: resolver}, nil
}

// Get returns the cached destination list, resolving it on first use.
func (c *DestinationCache) Get(ctx context.Context) ([]Destination, error) {
	c.mu.RLock()
	cached := c.cached
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	v, err, _ := c.group.Do("destinations", func() (any, error) {
		list, err := c.resolver.Resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve destinations: %w", err)
		}

		c.mu.Lock()
		c.cached = list
		c.mu.Unlock()

		return list, nil
	})
	if err != nil {
		return nil, err
	}

	return v.([]Destination), nil
}

// Invalidate drops the cached list so the next Get resolves again.
func (c *DestinationCache) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}
