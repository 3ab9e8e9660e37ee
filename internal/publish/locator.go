package publish

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// FallbackNamespace replaces the tenant segment of a locator path when the
// session carries no tenant code.
const FallbackNamespace = "no-tenant"

// Locator is the reference embedded in an outgoing message in place of an
// offloaded payload. DestinationName and Region are filled in by the offload
// coordinator once the upload destination is known.
type Locator struct {
	Path            string `json:"path"`
	DestinationName string `json:"destinationName,omitempty"`
	Region          string `json:"region,omitempty"`
}

// LocatorPath derives the storage key for an offloaded payload, namespaced by
// tenant (or the fallback sentinel), deploying service, topic and UTC date.
// The trailing random identifier makes the key collision-resistant.
func LocatorPath(tenant, service, topic string, now time.Time) string {
	ns := tenant
	if ns == "" {
		ns = FallbackNamespace
	}

	return fmt.Sprintf("%s/%s/%s/%s/%s",
		ns,
		service,
		topic,
		now.UTC().Format("2006/01/02"),
		uuid.NewString(),
	)
}
