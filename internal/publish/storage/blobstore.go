// Package storage provides the Couchbase-backed implementations of the
// client's two storage collaborators: the blob store for offloaded payloads
// and the destination registry.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/couchbase/gocb/v2"
	"go.uber.org/zap"

	"topicpub/internal/couchbase"
	"topicpub/internal/publish"
	"topicpub/internal/validator"
)

// payloadTTL bounds how long offloaded payloads are retained. Consumers are
// expected to fetch referenced payloads well within this window.
const payloadTTL = 14 * 24 * time.Hour

// OffloadedPayload is the blob document stored for an oversize message body.
type OffloadedPayload struct {
	Path        string    `json:"path"`
	Destination string    `json:"destination"`
	Region      string    `json:"region"`
	Body        string    `json:"body"`
	StoredAt    time.Time `json:"storedAt"`

	couchbase.Cas `json:"-"`
}

// NewPayloadsStore opens the payloads collection in the given scope.
func NewPayloadsStore(cluster *gocb.Cluster, bucket *gocb.Bucket, scope string) (*couchbase.Couchbase[OffloadedPayload], error) {
	collection := bucket.Scope(scope).Collection("payloads")
	store, err := couchbase.NewCouchbase[OffloadedPayload](cluster, bucket, collection)
	if err != nil {
		return nil, err
	}

	return store, nil
}

// PayloadKey derives the document key for an offloaded payload. The locator
// path already carries a random identifier, so the key is collision-free per
// destination.
func PayloadKey(destination, path string) string {
	return fmt.Sprintf("payload::%s::%s", destination, path)
}

// BlobStore implements publish.BlobStore on Couchbase.
type BlobStore struct {
	payloads *couchbase.Couchbase[OffloadedPayload]
	logger   *zap.Logger
}

// NewBlobStore creates a Couchbase-backed blob store.
func NewBlobStore(payloads *couchbase.Couchbase[OffloadedPayload], logger *zap.Logger) (*BlobStore, error) {
	s := BlobStore{
		payloads: payloads,
		logger:   logger,
	}

	if err := validator.Validate("blob store", s.payloads, s.logger); err != nil {
		return nil, fmt.Errorf("failed to validate blob store deps: %w", err)
	}

	return &s, nil
}

// Store implements publish.BlobStore.Store. A duplicate insert for the same
// key is treated as success so retries against the same destination stay
// idempotent.
func (s *BlobStore) Store(ctx context.Context, dest publish.Destination, key string, body []byte) error {
	doc := OffloadedPayload{
		Path:        key,
		Destination: dest.Name,
		Region:      dest.Region,
		Body:        string(body),
		StoredAt:    time.Now().UTC(),
	}

	err := s.payloads.Insert(ctx, PayloadKey(dest.Name, key), doc, &gocb.InsertOptions{
		Expiry: payloadTTL,
	})
	if err != nil && !errors.Is(err, gocb.ErrDocumentExists) {
		return fmt.Errorf("failed to store payload at %s: %w", key, err)
	}

	s.logger.Debug("stored offloaded payload",
		zap.String("destination", dest.Name),
		zap.String("path", key),
		zap.Int("bytes", len(body)),
	)

	return nil
}
