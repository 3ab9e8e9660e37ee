package publish

import "context"

// TenantProvider supplies the optional tenant code of the calling session.
// An empty return is valid: the tenant-client attribute is omitted and
// locator paths fall back to the shared namespace.
type TenantProvider interface {
	Tenant(ctx context.Context) string
}

// TenantFunc adapts a plain function to the TenantProvider interface.
type TenantFunc func(ctx context.Context) string

func (f TenantFunc) Tenant(ctx context.Context) string { return f(ctx) }

// StaticTenant returns a provider that always reports the given tenant code.
func StaticTenant(code string) TenantProvider {
	return TenantFunc(func(context.Context) string { return code })
}
