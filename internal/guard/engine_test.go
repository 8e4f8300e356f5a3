package guard

import (
	"errors"
	"testing"

	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func tenantCtx(id string, superAdmin bool) *tenancy.Context {
	tc := tenancy.ForTenant(id, "u-1", tenancy.RoleStaff, tenancy.TenantRoleMember, "req-1")
	tc.IsSuperAdmin = superAdmin
	return &tc
}

func newTestEngine() *Engine {
	return NewEngine(Config{Enabled: true, ExemptModels: []string{"Tenant"}})
}

func TestDecide_FeatureFlagDisabled(t *testing.T) {
	e := NewEngine(Config{Enabled: false})

	for _, a := range Actions {
		d := e.Decide(nil, Operation{Model: "User", Action: a, Args: &Args{}})
		assert.Equal(t, KindAllow, d.Kind, a.String())
		assert.Empty(t, d.Events)
	}
}

func TestDecide_NoContextRejectsEveryAction(t *testing.T) {
	e := newTestEngine()

	for _, a := range Actions {
		t.Run(a.String(), func(t *testing.T) {
			d := e.Decide(nil, Operation{Model: "Booking", Action: a, Args: &Args{Where: Filter{}}})
			require.Equal(t, KindReject, d.Kind)
			assert.ErrorIs(t, d.Err, ErrConfiguration)
			require.Len(t, d.Events, 1)
			assert.Equal(t, zapcore.ErrorLevel, d.Events[0].Level)
			assert.Equal(t, "Booking", d.Events[0].Fields["model"])
			assert.Equal(t, a.String(), d.Events[0].Fields["action"])
		})
	}
}

func TestDecide_NoContextRejectsExemptModel(t *testing.T) {
	d := newTestEngine().Decide(nil, Operation{Model: "Tenant", Action: ActionFindUnique})
	assert.ErrorIs(t, d.Err, ErrConfiguration)
}

func TestDecide_ExemptModel(t *testing.T) {
	d := newTestEngine().Decide(tenantCtx("t1", false), Operation{Model: "Tenant", Action: ActionFindUnique, Args: &Args{Where: Filter{"id": "t1"}}})
	assert.Equal(t, KindAllow, d.Kind)
	assert.Empty(t, d.Events)
}

func TestDecide_ExemptModelBulkMutation(t *testing.T) {
	e := newTestEngine()

	t.Run("unpinned delete rejected", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "Tenant", Action: ActionDeleteMany, Args: &Args{}})
		require.Equal(t, KindReject, d.Kind)
		assert.ErrorIs(t, d.Err, ErrUnscopedBulkMutation)
		require.Len(t, d.Events, 1)
		assert.Equal(t, zapcore.ErrorLevel, d.Events[0].Level)
		assert.Equal(t, MsgUnscopedBulk, d.Events[0].Message)
	})

	t.Run("tenant filter does not pin tenant rows", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "Tenant", Action: ActionUpdateMany, Args: &Args{
			Where: Filter{"tenantId": "t1"},
			Data:  Record{"name": "x"},
		}})
		assert.ErrorIs(t, d.Err, ErrUnscopedBulkMutation)
	})

	t.Run("own id allowed", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "Tenant", Action: ActionUpdateMany, Args: &Args{
			Where: Filter{"id": map[string]any{"equals": "t1"}},
			Data:  Record{"name": "x"},
		}})
		assert.Equal(t, KindAllow, d.Kind)
		assert.Empty(t, d.Events)
	})

	t.Run("foreign id is a mismatch", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "Tenant", Action: ActionDeleteMany, Args: &Args{
			Where: Filter{"id": map[string]any{"in": []string{"t1", "t2"}}},
		}})
		require.Equal(t, KindReject, d.Kind)
		assert.ErrorIs(t, d.Err, ErrTenantMismatch)
		assert.Equal(t, "t2", d.Events[0].Fields["actualTenantId"])
	})

	t.Run("super-admin is audited", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", true), Operation{Model: "Tenant", Action: ActionDeleteMany, Args: &Args{}})
		assert.Equal(t, KindAllow, d.Kind)
		require.Len(t, d.Events, 1)
		assert.Equal(t, zapcore.InfoLevel, d.Events[0].Level)
		assert.Equal(t, "*", d.Events[0].Fields["targetTenantIds"])
	})
}

func TestDecide_Create(t *testing.T) {
	e := newTestEngine()

	t.Run("injects tenant", func(t *testing.T) {
		args := &Args{Data: Record{"email": "a@x.com"}}
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "User", Action: ActionCreate, Args: args})

		require.Equal(t, KindAllowMutated, d.Kind)
		assert.Equal(t, "t1", d.Args.Data[TenantField])
		assert.Equal(t, "a@x.com", d.Args.Data["email"])
		assert.NotContains(t, args.Data, TenantField, "Decide must not mutate its input")
		assert.Empty(t, d.Events)
	})

	t.Run("nil data", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "User", Action: ActionCreate})
		require.Equal(t, KindAllowMutated, d.Kind)
		assert.Equal(t, "t1", d.Args.Data[TenantField])
	})

	t.Run("matching tenant", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "User", Action: ActionCreate, Args: &Args{Data: Record{"tenantId": "t1"}}})
		assert.Equal(t, KindAllow, d.Kind)
		assert.Empty(t, d.Events)
	})

	t.Run("mismatch rejected", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "User", Action: ActionCreate, Args: &Args{Data: Record{"tenantId": "t9", "email": "b@x.com"}}})
		require.Equal(t, KindReject, d.Kind)
		assert.ErrorIs(t, d.Err, ErrTenantMismatch)

		ge, ok := AsError(d.Err)
		require.True(t, ok)
		assert.Equal(t, "t1", ge.Expected)
		assert.Equal(t, "t9", ge.Actual)

		require.Len(t, d.Events, 1)
		ev := d.Events[0]
		assert.Equal(t, zapcore.ErrorLevel, ev.Level)
		assert.Equal(t, "t1", ev.Fields["expectedTenantId"])
		assert.Equal(t, "t9", ev.Fields["actualTenantId"])
		assert.Equal(t, "User", ev.Fields["model"])
		assert.Equal(t, "Create", ev.Fields["action"])
	})

	t.Run("super-admin mismatch allowed with audit", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", true), Operation{Model: "User", Action: ActionCreate, Args: &Args{Data: Record{"tenantId": "t9"}}})
		assert.Equal(t, KindAllow, d.Kind)
		require.Len(t, d.Events, 1)
		assert.Equal(t, zapcore.InfoLevel, d.Events[0].Level)
	})

	t.Run("system context without tenant warns", func(t *testing.T) {
		tc := tenancy.System("job")
		d := e.Decide(&tc, Operation{Model: "Booking", Action: ActionCreate, Args: &Args{Data: Record{"status": "PENDING"}}})
		assert.Equal(t, KindWarnAllow, d.Kind)
		require.Len(t, d.Events, 1)
		assert.Equal(t, MsgCreateUnscoped, d.Events[0].Message)
	})
}

func TestDecide_BulkMutation(t *testing.T) {
	e := newTestEngine()

	for _, action := range []Action{ActionUpdateMany, ActionDeleteMany} {
		t.Run(action.String(), func(t *testing.T) {
			d := e.Decide(tenantCtx("t1", false), Operation{Model: "User", Action: action, Args: &Args{Where: Filter{"role": "ADMIN"}, Data: Record{"role": "CLIENT"}}})
			require.Equal(t, KindReject, d.Kind)
			assert.ErrorIs(t, d.Err, ErrUnscopedBulkMutation)
			require.Len(t, d.Events, 1)
			assert.Equal(t, zapcore.ErrorLevel, d.Events[0].Level)

			d = e.Decide(tenantCtx("t1", false), Operation{Model: "User", Action: action, Args: &Args{Where: Filter{"tenantId": "t1", "role": "ADMIN"}}})
			assert.Equal(t, KindAllow, d.Kind)
			assert.Empty(t, d.Events)

			d = e.Decide(tenantCtx("t1", false), Operation{Model: "User", Action: action, Args: &Args{Where: Filter{"tenantId": "t2"}}})
			require.Equal(t, KindReject, d.Kind)
			assert.ErrorIs(t, d.Err, ErrTenantMismatch)
		})
	}

	t.Run("relation scoped", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "Booking", Action: ActionDeleteMany, Args: &Args{Where: Filter{"client": map[string]any{"tenantId": "t1"}}}})
		assert.Equal(t, KindAllow, d.Kind)
	})

	t.Run("super-admin other tenant", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", true), Operation{Model: "User", Action: ActionUpdateMany, Args: &Args{
			Where: Filter{"tenantId": map[string]any{"equals": "t9"}},
			Data:  Record{"role": "ADMIN"},
		}})
		assert.Equal(t, KindAllow, d.Kind)
		assert.NoError(t, d.Err)
		require.Len(t, d.Events, 1)
		assert.Equal(t, zapcore.InfoLevel, d.Events[0].Level)
		assert.Equal(t, []string{"t9"}, d.Events[0].Fields["targetTenantIds"])
	})

	t.Run("super-admin unscoped", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", true), Operation{Model: "User", Action: ActionDeleteMany, Args: &Args{Where: Filter{}}})
		assert.Equal(t, KindAllow, d.Kind)
		require.Len(t, d.Events, 1)
		assert.Equal(t, zapcore.InfoLevel, d.Events[0].Level)
	})

	t.Run("reassigning tenant rejected", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "Client", Action: ActionUpdateMany, Args: &Args{
			Where: Filter{"tenantId": "t1"},
			Data:  Record{"tenantId": "t2"},
		}})
		assert.ErrorIs(t, d.Err, ErrTenantMismatch)
	})
}

func TestDecide_SingleMutationAndRead(t *testing.T) {
	e := newTestEngine()
	scopedActions := []Action{ActionUpdate, ActionDelete, ActionUpsert, ActionFindUnique, ActionFindFirst, ActionFindMany, ActionCount, ActionAggregate}

	for _, action := range scopedActions {
		t.Run(action.String(), func(t *testing.T) {
			d := e.Decide(tenantCtx("t1", false), Operation{Model: "User", Action: action, Args: &Args{Where: Filter{"id": "u1"}}})
			require.Equal(t, KindWarnAllow, d.Kind)
			require.Len(t, d.Events, 1)
			assert.Equal(t, zapcore.WarnLevel, d.Events[0].Level)
			assert.Equal(t, MsgMissingFilter, d.Events[0].Message)
			assert.Equal(t, "User", d.Events[0].Fields["model"])
			assert.Equal(t, action.String(), d.Events[0].Fields["action"])

			d = e.Decide(tenantCtx("t1", false), Operation{Model: "User", Action: action, Args: &Args{Where: Filter{"id": "u1", "tenantId": "t1"}}})
			assert.Equal(t, KindAllow, d.Kind)
			assert.Empty(t, d.Events)
		})
	}

	t.Run("update moving row to another tenant", func(t *testing.T) {
		d := e.Decide(tenantCtx("t1", false), Operation{Model: "Client", Action: ActionUpdate, Args: &Args{
			Where: Filter{"id": "c1", "tenantId": "t1"},
			Data:  Record{"tenantId": "t2"},
		}})
		assert.ErrorIs(t, d.Err, ErrTenantMismatch)
	})
}

func TestDecide_IsPure(t *testing.T) {
	e := newTestEngine()
	tc := tenantCtx("t1", false)
	op := Operation{Model: "User", Action: ActionUpdate, Args: &Args{Where: Filter{"id": "u1"}}}

	first := e.Decide(tc, op)
	second := e.Decide(tc, op)
	assert.Equal(t, first, second)
}

func TestError_Messages(t *testing.T) {
	err := &Error{Kind: KindTenantMismatch, Model: "User", Action: ActionCreate, Expected: "t1", Actual: "t9"}
	assert.Contains(t, err.Error(), `expected tenant "t1", got "t9"`)
	assert.True(t, errors.Is(err, ErrTenantMismatch))
	assert.False(t, errors.Is(err, ErrConfiguration))
}
