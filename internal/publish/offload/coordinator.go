// Package offload moves oversize payloads into blob storage and rewrites the
// outgoing entry to carry a locator reference instead of the full body.
package offload

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"topicpub/internal/publish"
	"topicpub/internal/validator"
)

// Coordinator resolves the destination list and uploads one entry's original
// payload, falling back through the destination list in order.
type Coordinator struct {
	destinations *publish.DestinationCache
	store        publish.BlobStore
	logger       *zap.Logger
}

// NewCoordinator creates an offload coordinator.
func NewCoordinator(destinations *publish.DestinationCache, store publish.BlobStore, logger *zap.Logger) (*Coordinator, error) {
	c := Coordinator{
		destinations: destinations,
		store:        store,
		logger:       logger,
	}

	if err := validator.Validate("offload coordinator", c.destinations, c.store, c.logger); err != nil {
		return nil, fmt.Errorf("failed to validate offload coordinator deps: %w", err)
	}

	return &c, nil
}

// EnsureDestinations implements publish.Offloader.EnsureDestinations by
// warming the destination cache.
func (c *Coordinator) EnsureDestinations(ctx context.Context) error {
	_, err := c.destinations.Get(ctx)
	return err
}

// Offload uploads the entry's full body and rewrites the entry in place to
// reference the stored payload. Destination-list resolution failures are
// systemic and returned as errors. When every destination rejects the upload
// the entry is converted to a per-entry failure outcome instead; sibling
// entries are unaffected.
func (c *Coordinator) Offload(ctx context.Context, entry *publish.DraftEntry) (*publish.FailedEntry, error) {
	destinations, err := c.destinations.Get(ctx)
	if err != nil {
		return nil, err
	}

	logger := c.logger.With(zap.String("path", entry.LocatorPath), zap.String("entryId", entry.ID))

	body := []byte(entry.Body)
	var lastErr error
	for _, dest := range orderDestinations(destinations) {
		if err := c.store.Store(ctx, dest, entry.LocatorPath, body); err != nil {
			logger.Warn("offload upload failed, trying next destination",
				zap.String("destination", dest.Name),
				zap.Error(err),
			)
			lastErr = err
			continue
		}

		rewritten, err := publish.OffloadBody(publish.Locator{
			Path:            entry.LocatorPath,
			DestinationName: dest.Name,
			Region:          dest.Region,
		}, entry.Content(), entry.FixedProperties)
		if err != nil {
			return nil, fmt.Errorf("failed to rewrite offloaded entry body: %w", err)
		}

		entry.Body = rewritten
		entry.Size = len(rewritten)
		entry.ExceedsLimit = false

		logger.Debug("payload offloaded",
			zap.String("destination", dest.Name),
			zap.Int("bytes", len(body)),
		)

		return nil, nil
	}

	logger.Error("all offload destinations failed", zap.Error(lastErr))

	msg := fmt.Sprintf("%s: %v", publish.ErrBlobStore.Error(), lastErr)
	return &publish.FailedEntry{
		ID:      entry.ID,
		Code:    string(publish.FailureCodeBlobStore),
		Message: msg,
	}, nil
}

// orderDestinations puts default-flagged destinations first, keeping the
// remaining fallbacks in list order.
func orderDestinations(list []publish.Destination) []publish.Destination {
	ordered := make([]publish.Destination, 0, len(list))
	for _, d := range list {
		if d.Default {
			ordered = append(ordered, d)
		}
	}
	for _, d := range list {
		if !d.Default {
			ordered = append(ordered, d)
		}
	}

	return ordered
}
