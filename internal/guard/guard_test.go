package guard

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"testing"

	"github.com/Harshitk-cp/practicedesk/internal/audit"
	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"golang.org/x/sync/errgroup"
)

// MockExecutor mocks the wrapped persistence adapter.
type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Execute(ctx context.Context, op Operation) (Result, error) {
	args := m.Called(ctx, op)
	return args.Get(0).(Result), args.Error(1)
}

func newObservedGuard(next Executor) (*Guard, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := audit.NewZapSink(zap.New(core))
	return New(newTestEngine(), next, sink), logs
}

func bind(tenantID string, superAdmin bool) context.Context {
	tc := tenancy.ForTenant(tenantID, "u-1", tenancy.RoleStaff, tenancy.TenantRoleMember, "req-"+tenantID)
	tc.IsSuperAdmin = superAdmin
	return tenancy.With(context.Background(), tc)
}

func TestGuard_CreateInjectsTenant(t *testing.T) {
	next := new(MockExecutor)
	next.On("Execute", mock.Anything, mock.Anything).Return(Result{}, nil)
	g, logs := newObservedGuard(next)

	args := &Args{Data: Record{"email": "a@x.com"}}
	_, err := g.Execute(bind("t1", false), Operation{Model: "User", Action: ActionCreate, Args: args})
	require.NoError(t, err)

	assert.Equal(t, "t1", args.Data[TenantField], "caller's args are rewritten in place")
	next.AssertCalled(t, "Execute", mock.Anything, mock.MatchedBy(func(op Operation) bool {
		return op.Args.Data[TenantField] == "t1"
	}))
	assert.Zero(t, logs.Len())
}

func TestGuard_CreateWritesIntoCallersRecord(t *testing.T) {
	next := new(MockExecutor)
	next.On("Execute", mock.Anything, mock.Anything).Return(Result{}, nil)
	g, _ := newObservedGuard(next)

	data := Record{"email": "a@x.com", "profile": map[string]any{"tz": "UTC"}}
	profile := data["profile"]
	_, err := g.Execute(bind("t1", false), Operation{Model: "User", Action: ActionCreate, Args: &Args{Data: data}})
	require.NoError(t, err)

	assert.Equal(t, "t1", data[TenantField])
	assert.Equal(t, profile, data["profile"])
	assert.Len(t, data, 3)
}

func TestGuard_MismatchNeverReachesAdapter(t *testing.T) {
	next := new(MockExecutor)
	g, logs := newObservedGuard(next)

	_, err := g.Execute(bind("t1", false), Operation{Model: "User", Action: ActionCreate, Args: &Args{Data: Record{"tenantId": "t9", "email": "b@x.com"}}})
	assert.ErrorIs(t, err, ErrTenantMismatch)
	next.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)

	entries := logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, entries, 1)
	ctx := entries[0].ContextMap()
	assert.Equal(t, "t1", ctx["expectedTenantId"])
	assert.Equal(t, "t9", ctx["actualTenantId"])
}

func TestGuard_UnscopedBulkRejected(t *testing.T) {
	next := new(MockExecutor)
	g, logs := newObservedGuard(next)

	_, err := g.Execute(bind("t1", false), Operation{Model: "User", Action: ActionUpdateMany, Args: &Args{
		Where: Filter{"role": "ADMIN"},
		Data:  Record{"role": "CLIENT"},
	}})
	assert.ErrorIs(t, err, ErrUnscopedBulkMutation)
	next.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
}

func TestGuard_UpdateWithoutFilterWarns(t *testing.T) {
	next := new(MockExecutor)
	next.On("Execute", mock.Anything, mock.Anything).Return(Result{Count: 1}, nil)
	g, logs := newObservedGuard(next)

	res, err := g.Execute(bind("t1", false), Operation{Model: "User", Action: ActionUpdate, Args: &Args{
		Where: Filter{"id": "u1"},
		Data:  Record{"name": "x"},
	}})
	require.NoError(t, err)
	assert.EqualValues(t, 1, res.Count)

	warnings := logs.FilterLevelExact(zapcore.WarnLevel).All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "operation missing tenant filter", warnings[0].Message)
	assert.Equal(t, "User", warnings[0].ContextMap()["model"])
	assert.Equal(t, "Update", warnings[0].ContextMap()["action"])
	next.AssertNumberOfCalls(t, "Execute", 1)
}

func TestGuard_NoContextRejected(t *testing.T) {
	next := new(MockExecutor)
	g, logs := newObservedGuard(next)

	_, err := g.Execute(context.Background(), Operation{Model: "User", Action: ActionFindMany, Args: &Args{Where: Filter{}}})
	assert.ErrorIs(t, err, ErrConfiguration)
	next.AssertNotCalled(t, "Execute", mock.Anything, mock.Anything)
	assert.Equal(t, 1, logs.FilterMessage(MsgNoContext).Len())
}

func TestGuard_SuperAdminCrossTenantBulk(t *testing.T) {
	next := new(MockExecutor)
	next.On("Execute", mock.Anything, mock.Anything).Return(Result{Count: 3}, nil)
	g, logs := newObservedGuard(next)

	_, err := g.Execute(bind("t1", true), Operation{Model: "User", Action: ActionUpdateMany, Args: &Args{
		Where: Filter{"tenantId": map[string]any{"equals": "t9"}},
		Data:  Record{"role": "ADMIN"},
	}})
	require.NoError(t, err)

	assert.Equal(t, 1, logs.FilterLevelExact(zapcore.InfoLevel).Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Zero(t, logs.FilterLevelExact(zapcore.WarnLevel).Len())
}

func TestGuard_ScopedBulkLogsNothing(t *testing.T) {
	next := new(MockExecutor)
	next.On("Execute", mock.Anything, mock.Anything).Return(Result{}, nil)
	g, logs := newObservedGuard(next)

	_, err := g.Execute(bind("t1", false), Operation{Model: "Booking", Action: ActionDeleteMany, Args: &Args{Where: Filter{"tenantId": "t1"}}})
	require.NoError(t, err)
	assert.Zero(t, logs.Len())
}

func TestGuard_FeatureFlagOff(t *testing.T) {
	next := new(MockExecutor)
	next.On("Execute", mock.Anything, mock.Anything).Return(Result{}, nil)
	core, logs := observer.New(zapcore.DebugLevel)
	g := New(NewEngine(Config{Enabled: false}), next, audit.NewZapSink(zap.New(core)))

	args := &Args{Data: Record{"email": "a@x.com"}}
	_, err := g.Execute(context.Background(), Operation{Model: "User", Action: ActionCreate, Args: args})
	require.NoError(t, err)
	assert.NotContains(t, args.Data, TenantField)
	assert.Zero(t, logs.Len())
}

func TestGuard_Idempotent(t *testing.T) {
	next := new(MockExecutor)
	next.On("Execute", mock.Anything, mock.Anything).Return(Result{}, nil)
	g, logs := newObservedGuard(next)
	ctx := bind("t1", false)

	args := &Args{Data: Record{"email": "a@x.com"}}
	_, err := g.Execute(ctx, Operation{Model: "User", Action: ActionCreate, Args: args})
	require.NoError(t, err)
	afterFirst := args.Clone()
	logsAfterFirst := logs.Len()

	_, err = g.Execute(ctx, Operation{Model: "User", Action: ActionCreate, Args: args})
	require.NoError(t, err)

	if diff := cmp.Diff(afterFirst, args); diff != "" {
		t.Fatalf("second run changed args (-want +got):\n%s", diff)
	}
	assert.Equal(t, logsAfterFirst, logs.Len())
}

func TestGuard_ConcurrentRequestsStayIsolated(t *testing.T) {
	var mu sync.Mutex
	seen := map[string][]string{}

	next := ExecutorFunc(func(ctx context.Context, op Operation) (Result, error) {
		runtime.Gosched()
		tc, _ := tenancy.Current(ctx)
		mu.Lock()
		seen[tc.Tenant()] = append(seen[tc.Tenant()], fmt.Sprint(op.Args.Data[TenantField]))
		mu.Unlock()
		return Result{}, nil
	})
	g := New(newTestEngine(), next, audit.Nop{})

	var eg errgroup.Group
	for _, tenant := range []string{"A", "B"} {
		eg.Go(func() error {
			ctx := bind(tenant, false)
			for i := 0; i < 100; i++ {
				runtime.Gosched()
				args := &Args{Data: Record{"n": i}}
				if _, err := g.Execute(ctx, Operation{Model: "Booking", Action: ActionCreate, Args: args}); err != nil {
					return err
				}
				if args.Data[TenantField] != tenant {
					return fmt.Errorf("request %s got tenant %v injected", tenant, args.Data[TenantField])
				}
			}
			return nil
		})
	}
	require.NoError(t, eg.Wait())

	for _, tenant := range []string{"A", "B"} {
		require.Len(t, seen[tenant], 100)
		for _, injected := range seen[tenant] {
			assert.Equal(t, tenant, injected)
		}
	}
}
