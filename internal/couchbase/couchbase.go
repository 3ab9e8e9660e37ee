// Package couchbase provides a small type-safe layer over the Couchbase Go
// SDK for the document shapes this client stores: offloaded payload blobs and
// the destination registry.
package couchbase

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchbase/gocb/v2"
)

// Couchbase wraps one collection with typed document operations. CAS values
// are set automatically on documents embedding Cas.
type Couchbase[T any] struct {
	cluster    *gocb.Cluster
	bucket     *gocb.Bucket
	collection *gocb.Collection
}

// NewCouchbase creates a typed wrapper for the given collection. All
// parameters are required.
func NewCouchbase[T any](cluster *gocb.Cluster, bucket *gocb.Bucket, collection *gocb.Collection) (*Couchbase[T], error) {
	if cluster == nil || bucket == nil || collection == nil {
		return nil, errors.New("invalid Couchbase parameters: cluster, bucket, and collection must not be nil")
	}

	return &Couchbase[T]{
		cluster:    cluster,
		bucket:     bucket,
		collection: collection,
	}, nil
}

// Insert creates a new document under key. Fails if the key already exists.
func (c *Couchbase[T]) Insert(ctx context.Context, key string, value T, opts *gocb.InsertOptions) error {
	if opts == nil {
		opts = new(gocb.InsertOptions)
	}
	opts.Context = ctx

	if _, err := c.collection.Insert(key, value, opts); err != nil {
		return fmt.Errorf("failed to insert document with key %s: %w", key, err)
	}

	return nil
}

// Upsert writes a document under key, replacing any existing content.
func (c *Couchbase[T]) Upsert(ctx context.Context, key string, value T, opts *gocb.UpsertOptions) error {
	if opts == nil {
		opts = new(gocb.UpsertOptions)
	}
	opts.Context = ctx

	if _, err := c.collection.Upsert(key, value, opts); err != nil {
		return fmt.Errorf("failed to upsert document with key %s: %w", key, err)
	}

	return nil
}

// Get retrieves a document by key and unmarshals it into T.
func (c *Couchbase[T]) Get(ctx context.Context, key string, opts *gocb.GetOptions) (*T, error) {
	if opts == nil {
		opts = new(gocb.GetOptions)
	}
	opts.Context = ctx

	res, err := c.collection.Get(key, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to get document with key %s: %w", key, err)
	}

	var v T
	if err := res.Content(&v); err != nil {
		return nil, fmt.Errorf("failed to parse document content for key %s: %w", key, err)
	}

	if s, ok := any(&v).(CasSetter); ok {
		s.SetCas(uint64(res.Cas()))
	}

	return &v, nil
}

// Query runs a N1QL query and collects the rows as T values.
func (c *Couchbase[T]) Query(ctx context.Context, query string, opts *gocb.QueryOptions) ([]T, error) {
	if opts == nil {
		opts = new(gocb.QueryOptions)
	}
	opts.Context = ctx

	result, err := c.cluster.Query(query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}

	var items []T
	for result.Next() {
		var item T
		if err := result.Row(&item); err != nil {
			return nil, fmt.Errorf("failed to parse query row: %w", err)
		}
		items = append(items, item)
	}

	return items, nil
}

// Collection returns the underlying collection for advanced operations.
func (c *Couchbase[T]) Collection() *gocb.Collection {
	return c.collection
}

// Close closes the cluster connection.
func (c *Couchbase[T]) Close() error {
	return c.cluster.Close(nil)
}
