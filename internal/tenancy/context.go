// Package tenancy carries the caller's tenant identity through a request.
//
// A Context is bound onto a context.Context with Run (closure, preferred) or
// With (middleware). Everything downstream that receives that ctx, including
// goroutines started with it, observes the same binding. Concurrent requests
// each own their ctx chain, so they never see each other's tenant.
package tenancy

import (
	"context"
	"time"
)

// Application roles.
const (
	RoleAdmin  = "ADMIN"
	RoleStaff  = "STAFF"
	RoleClient = "CLIENT"
)

// Roles within a tenant.
const (
	TenantRoleOwner  = "OWNER"
	TenantRoleMember = "MEMBER"
)

// Context is the tenant identity of one logical request. It is a value type;
// binding stores a copy so later changes to the caller's variable are not
// visible to the bound request.
type Context struct {
	// TenantID is nil only for system/background contexts.
	TenantID *string
	// TenantSlug is set for request contexts bound to the caller's own
	// tenant and empty otherwise.
	TenantSlug   string
	UserID       string
	Role         string
	TenantRole   string
	IsSuperAdmin bool
	RequestID    string
	Timestamp    time.Time
}

// Tenant returns the tenant id, or "" for a system context.
func (c Context) Tenant() string {
	if c.TenantID == nil {
		return ""
	}
	return *c.TenantID
}

// HasTenant reports whether the context is bound to a concrete tenant.
func (c Context) HasTenant() bool {
	return c.TenantID != nil && *c.TenantID != ""
}

// IsSystem reports whether this is a background/system context.
func (c Context) IsSystem() bool {
	return c.TenantID == nil
}

// ForTenant builds a regular request context for the given tenant.
func ForTenant(tenantID, userID, role, tenantRole, requestID string) Context {
	id := tenantID
	return Context{
		TenantID:   &id,
		UserID:     userID,
		Role:       role,
		TenantRole: tenantRole,
		RequestID:  requestID,
		Timestamp:  time.Now(),
	}
}

// System builds a context for background jobs. It has no tenant and is
// privileged, so every operation it issues must name its tenant explicitly
// or accept the super-admin audit trail.
func System(requestID string) Context {
	return Context{
		UserID:       "system",
		Role:         RoleAdmin,
		IsSuperAdmin: true,
		RequestID:    requestID,
		Timestamp:    time.Now(),
	}
}

type contextKey struct{}

// With returns a child of ctx with tc bound. HTTP middleware uses it since a
// request's ctx already spans the request's lifetime.
func With(ctx context.Context, tc Context) context.Context {
	if tc.TenantID != nil {
		id := *tc.TenantID
		tc.TenantID = &id
	}
	return context.WithValue(ctx, contextKey{}, tc)
}

// Current returns the context bound by the nearest enclosing Run or With.
func Current(ctx context.Context) (Context, bool) {
	if ctx == nil {
		return Context{}, false
	}
	tc, ok := ctx.Value(contextKey{}).(Context)
	if !ok {
		return Context{}, false
	}
	if tc.TenantID != nil {
		id := *tc.TenantID
		tc.TenantID = &id
	}
	return tc, true
}

// Run executes fn with tc bound. The binding ends when fn returns, whether
// it succeeds, fails or panics, because it only exists on the ctx passed to fn.
//
//	err := tenancy.Run(ctx, tc, func(ctx context.Context) error {
//	    _, err := bookings.Cancel(ctx, id)
//	    return err
//	})
func Run(ctx context.Context, tc Context, fn func(ctx context.Context) error) error {
	return fn(With(ctx, tc))
}

// RunValue is Run for closures that produce a value.
func RunValue[T any](ctx context.Context, tc Context, fn func(ctx context.Context) (T, error)) (T, error) {
	return fn(With(ctx, tc))
}
