package publish

import (
	"errors"
	"fmt"
)

// Sentinel errors for systemic and validation failures. Per-entry failures are
// never surfaced as errors; they end up in BatchResult.Failed instead.
var (
	// ErrInvalidIdentifier indicates a malformed destination identifier.
	// No calls are made when this is returned.
	ErrInvalidIdentifier = errors.New("invalid destination identifier")

	// ErrMissingTenant indicates an oversize payload needed a tenant-scoped
	// locator and the session carries no tenant code while one is required.
	ErrMissingTenant = errors.New("missing tenant context")

	// ErrResourceDiscovery indicates the destination registry lookup could
	// not locate the shared parameter. Fatal for the whole operation.
	ErrResourceDiscovery = errors.New("destination discovery failed")

	// ErrParameterRead indicates the shared parameter was located but its
	// value could not be read. Fatal for the whole operation.
	ErrParameterRead = errors.New("destination parameter read failed")

	// ErrBlobStore indicates every destination rejected an offload upload.
	// On the batch path this is folded into a per-entry failure outcome; it
	// only surfaces as an error on the single-event path.
	ErrBlobStore = errors.New("all blob store destinations failed")
)

// FailureCode tags per-entry failure outcomes. Transport-reported failures
// carry the provider's own code string; the codes below cover failures the
// client produces itself.
type FailureCode string

const (
	// FailureCodeBlobStore marks entries whose payload could not be
	// offloaded to any destination.
	FailureCodeBlobStore FailureCode = "BLOB_STORE_ERROR"
)

// InvalidIdentifierError wraps ErrInvalidIdentifier with the offending string.
type InvalidIdentifierError struct {
	Identifier string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid destination identifier %q", e.Identifier)
}

func (e *InvalidIdentifierError) Unwrap() error { return ErrInvalidIdentifier }
