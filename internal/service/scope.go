package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
)

var ErrNoTenant = errors.New("request is not bound to a tenant")

// scoped adds the bound tenant to where. Callers without a tenant
// (super-admins acting globally, system jobs) are passed through unscoped
// and the guard decides.
func scoped(ctx context.Context, where guard.Filter) guard.Filter {
	if where == nil {
		where = guard.Filter{}
	}
	if tc, ok := tenancy.Current(ctx); ok && tc.HasTenant() {
		where[guard.TenantField] = tc.Tenant()
	}
	return where
}

func currentTenant(ctx context.Context) (string, error) {
	tc, ok := tenancy.Current(ctx)
	if !ok || !tc.HasTenant() {
		return "", ErrNoTenant
	}
	return tc.Tenant(), nil
}

func notFound(err, sentinel error) error {
	if errors.Is(err, store.ErrNotFound) {
		return sentinel
	}
	return err
}

// Page bounds a list query.
type Page struct {
	Take int
	Skip int
}

const maxPageSize = 200

func (p Page) take() int {
	if p.Take <= 0 || p.Take > maxPageSize {
		return 50
	}
	return p.Take
}
