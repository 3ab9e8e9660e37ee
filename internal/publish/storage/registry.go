package storage

import (
	"context"
	"fmt"

	"github.com/couchbase/gocb/v2"
	"go.uber.org/zap"

	"topicpub/internal/couchbase"
	"topicpub/internal/publish"
	"topicpub/internal/validator"
)

// SharedParameterName identifies the registry parameter holding the offload
// destination list. Only one registry is supported per deployment.
const SharedParameterName = "offload-destinations"

// DestinationRecord is the registry parameter document.
type DestinationRecord struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Destinations []publish.Destination `json:"destinations"`

	couchbase.Cas `json:"-"`
}

// NewRegistryStore opens the registry collection in the given scope.
func NewRegistryStore(cluster *gocb.Cluster, bucket *gocb.Bucket, scope string) (*couchbase.Couchbase[DestinationRecord], error) {
	collection := bucket.Scope(scope).Collection("registry")
	store, err := couchbase.NewCouchbase[DestinationRecord](cluster, bucket, collection)
	if err != nil {
		return nil, err
	}

	return store, nil
}

// RegistryKey derives the document key for a named registry parameter.
func RegistryKey(name string) string {
	return fmt.Sprintf("registry::%s", name)
}

// Registry implements publish.DestinationResolver with the two-step external
// resolution: a discovery query locating the shared parameter's document id,
// then a read of that document. Callers are expected to wrap it in a
// publish.DestinationCache.
type Registry struct {
	records *couchbase.Couchbase[DestinationRecord]
	bucket  string
	scope   string
	logger  *zap.Logger
}

// NewRegistry creates a Couchbase-backed destination registry.
func NewRegistry(records *couchbase.Couchbase[DestinationRecord], bucket, scope string, logger *zap.Logger) (*Registry, error) {
	r := Registry{
		records: records,
		bucket:  bucket,
		scope:   scope,
		logger:  logger,
	}

	if err := validator.Validate("destination registry", r.records, r.bucket, r.scope, r.logger); err != nil {
		return nil, fmt.Errorf("failed to validate registry deps: %w", err)
	}

	return &r, nil
}

// Resolve implements publish.DestinationResolver.Resolve. Discovery failures
// wrap publish.ErrResourceDiscovery and read failures wrap
// publish.ErrParameterRead so callers can distinguish the failing step.
func (r *Registry) Resolve(ctx context.Context) ([]publish.Destination, error) {
	query := fmt.Sprintf(`
		SELECT META(r).id AS id
		FROM %s.%s.%s r
		WHERE r.name = '%s'
		LIMIT 1`,
		r.bucket,
		r.scope,
		r.records.Collection().Name(),
		SharedParameterName,
	)

	rows, err := r.records.Query(ctx, query, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", publish.ErrResourceDiscovery, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no parameter named %s", publish.ErrResourceDiscovery, SharedParameterName)
	}

	record, err := r.records.Get(ctx, rows[0].ID, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", publish.ErrParameterRead, err)
	}
	if len(record.Destinations) == 0 {
		return nil, fmt.Errorf("%w: parameter %s holds no destinations", publish.ErrParameterRead, SharedParameterName)
	}

	r.logger.Debug("resolved destination list", zap.Int("count", len(record.Destinations)))

	return record.Destinations, nil
}

// Seed installs or replaces the destination list parameter. Used by the e2e
// harness and deployment tooling.
func (r *Registry) Seed(ctx context.Context, destinations []publish.Destination) error {
	key := RegistryKey(SharedParameterName)
	record := DestinationRecord{
		ID:           key,
		Name:         SharedParameterName,
		Destinations: destinations,
	}

	if err := r.records.Upsert(ctx, key, record, nil); err != nil {
		return fmt.Errorf("failed to seed destination registry: %w", err)
	}

	return nil
}
