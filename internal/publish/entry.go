package publish

import (
	"encoding/json"
	"fmt"
	"time"
)

// Platform ceilings for a single publish call.
const (
	// MaxMessageBytes is the per-message and per-batch serialized size ceiling.
	MaxMessageBytes = 256 * 1024
	// MaxBatchEntries is the per-batch entry count ceiling.
	MaxBatchEntries = 10
)

// destinationMetaAllowance pads the estimated post-offload size to cover the
// destination name and region, which are unknown until offload time. Long
// destination metadata can make the estimate low; the allowance is a
// heuristic, not a bound.
const destinationMetaAllowance = 256

// FormatOptions carries the calling context needed to format an event.
type FormatOptions struct {
	// Service is the deploying service name, used in locator paths.
	Service string
	// Tenant is the session tenant code. Empty is valid: the tenant-client
	// attribute is omitted and locator paths use the fallback namespace.
	Tenant string
	// RequireTenant makes an oversize event without a tenant code fail with
	// ErrMissingTenant instead of falling back to the shared namespace.
	RequireTenant bool
}

// DraftEntry is the mutable working form of one event between formatting and
// dispatch. Offload state is transient and never reaches the wire; Wire()
// strips it.
type DraftEntry struct {
	// ID is the "1"-based sequential batch identifier, empty on the
	// single-publish path.
	ID                     string
	Body                   string
	Attributes             map[string]MessageAttribute
	Subject                string
	MessageStructure       string
	MessageGroupID         string
	MessageDeduplicationID string

	// Size is the serialized size of the entry as formatted.
	Size int
	// ExceedsLimit marks entries whose Size is over MaxMessageBytes and
	// which therefore need offloading before dispatch.
	ExceedsLimit bool
	// EstimatedSize is the expected post-offload size, only meaningful when
	// ExceedsLimit is set.
	EstimatedSize int
	// LocatorPath is the pre-computed storage key for the offloaded payload.
	LocatorPath string
	// FixedProperties is the caller's whitelist of content keys kept inline
	// after offload.
	FixedProperties []string

	content any
}

// WireEntry is the immutable dispatch form of an entry, free of offload state.
type WireEntry struct {
	ID                     string
	Body                   string
	Attributes             map[string]MessageAttribute
	Subject                string
	MessageStructure       string
	MessageGroupID         string
	MessageDeduplicationID string
}

// FormatEvent converts one event into its draft wire shape for the given
// topic. id is the sequential batch identifier, empty in single-publish mode.
// Oversize events are marked for offload, never rejected here; the only
// failure mode besides serialization is a required-but-missing tenant code.
func FormatEvent(e Event, topic, id string, opts FormatOptions) (*DraftEntry, error) {
	body, err := canonicalBody(e.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize event content: %w", err)
	}

	attrs, err := FormatAttributes(e.Attributes, topic, opts.Tenant)
	if err != nil {
		return nil, err
	}

	d := DraftEntry{
		ID:                     id,
		Body:                   body,
		Attributes:             attrs,
		Subject:                e.Subject,
		MessageStructure:       e.MessageStructure,
		MessageGroupID:         e.MessageGroupID,
		MessageDeduplicationID: e.MessageDeduplicationID,
		content:                e.Content,
	}
	d.Size = len(d.Body) + attributesSize(d.Attributes)

	if d.Size <= MaxMessageBytes {
		return &d, nil
	}

	if opts.Tenant == "" && opts.RequireTenant {
		return nil, fmt.Errorf("cannot build locator for oversize event: %w", ErrMissingTenant)
	}

	d.ExceedsLimit = true
	d.FixedProperties = e.PayloadFixedProperties
	d.LocatorPath = LocatorPath(opts.Tenant, opts.Service, topic, time.Now())

	// Estimate the post-offload size now so batch packing works with the
	// shrunken entry. Destination metadata is not known yet and is covered
	// by a fixed allowance.
	estimated, err := OffloadBody(Locator{Path: d.LocatorPath}, e.Content, e.PayloadFixedProperties)
	if err != nil {
		return nil, fmt.Errorf("failed to estimate post-offload size: %w", err)
	}
	d.EstimatedSize = len(estimated) + destinationMetaAllowance + attributesSize(d.Attributes)

	return &d, nil
}

// PackedSize is the size the entry occupies during batch packing: the real
// size normally, the post-offload estimate for entries pending offload.
func (d *DraftEntry) PackedSize() int {
	if d.ExceedsLimit {
		return d.EstimatedSize
	}
	return d.Size
}

// Content returns the original event payload, retained for offload upload.
func (d *DraftEntry) Content() any {
	return d.content
}

// Wire converts the draft into its immutable dispatch form, dropping all
// transient offload state.
func (d *DraftEntry) Wire() WireEntry {
	return WireEntry{
		ID:                     d.ID,
		Body:                   d.Body,
		Attributes:             d.Attributes,
		Subject:                d.Subject,
		MessageStructure:       d.MessageStructure,
		MessageGroupID:         d.MessageGroupID,
		MessageDeduplicationID: d.MessageDeduplicationID,
	}
}

// OffloadBody builds the replacement message body for an offloaded payload:
// the locator plus only the whitelisted fixed properties present in the
// original content.
func OffloadBody(loc Locator, content any, fixedProperties []string) (string, error) {
	body := map[string]any{"locator": loc}
	for k, v := range pickFixedProperties(content, fixedProperties) {
		body[k] = v
	}

	encoded, err := json.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("failed to serialize offload body: %w", err)
	}

	return string(encoded), nil
}

// canonicalBody serializes event content into the message body. Strings pass
// through verbatim, everything else is JSON-marshaled.
func canonicalBody(content any) (string, error) {
	if s, ok := content.(string); ok {
		return s, nil
	}

	encoded, err := json.Marshal(content)
	if err != nil {
		return "", err
	}

	return string(encoded), nil
}

// pickFixedProperties extracts the named keys from the original content.
// Missing keys are silently omitted; non-map content yields nothing.
func pickFixedProperties(content any, keys []string) map[string]any {
	if len(keys) == 0 {
		return nil
	}

	fields, ok := content.(map[string]any)
	if !ok {
		// Fall back to a serialize/deserialize round trip for struct content.
		encoded, err := json.Marshal(content)
		if err != nil {
			return nil
		}
		if err := json.Unmarshal(encoded, &fields); err != nil {
			return nil
		}
	}

	picked := make(map[string]any, len(keys))
	for _, k := range keys {
		if v, exists := fields[k]; exists {
			picked[k] = v
		}
	}

	return picked
}
