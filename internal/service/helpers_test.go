package service

import (
	"context"
	"testing"

	"github.com/Harshitk-cp/practicedesk/internal/audit"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type testEnv struct {
	raw     *store.MemoryExecutor
	exec    *guard.Guard
	logs    *observer.ObservedLogs
	tenants *TenantService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	raw := store.NewMemoryExecutor()
	core, logs := observer.New(zapcore.DebugLevel)
	engine := guard.NewEngine(guard.Config{Enabled: true, ExemptModels: []string{"Tenant"}})
	g := guard.New(engine, raw, audit.NewZapSink(zap.New(core)))
	return &testEnv{
		raw:     raw,
		exec:    g,
		logs:    logs,
		tenants: NewTenantService(g, zap.NewNop()),
	}
}

// bootstrap creates a tenant and returns a ctx bound to its owner.
func (e *testEnv) bootstrap(t *testing.T, slug string) (context.Context, *Bootstrap) {
	t.Helper()
	b, err := e.tenants.Bootstrap(context.Background(), BootstrapRequest{
		Name:       slug + " practice",
		Slug:       slug,
		OwnerEmail: "owner@" + slug + ".test",
		OwnerName:  "Owner",
		RequestID:  "req-" + slug,
	})
	require.NoError(t, err)
	tc := tenancy.ForTenant(b.Tenant.ID.String(), b.Owner.ID.String(), tenancy.RoleAdmin, tenancy.TenantRoleOwner, "req-"+slug)
	return tenancy.With(context.Background(), tc), b
}

func superAdminCtx() context.Context {
	tc := tenancy.Context{UserID: "root", Role: tenancy.RoleAdmin, IsSuperAdmin: true, RequestID: "req-root"}
	return tenancy.With(context.Background(), tc)
}
