package publish

import "context"

// Destination is one storage target for offloaded payloads. The first
// default-flagged destination is the primary; the rest are fallbacks tried in
// list order.
type Destination struct {
	Name    string `json:"name"`
	Region  string `json:"region"`
	Default bool   `json:"default,omitempty"`
}

// BlobStore stores offloaded payloads. Store must be safe to retry against a
// different destination for the same key.
type BlobStore interface {
	Store(ctx context.Context, dest Destination, key string, body []byte) error
}
