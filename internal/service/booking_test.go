package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var monday = time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)

func newClient(t *testing.T, env *testEnv, ctx context.Context, name string) *domain.Client {
	t.Helper()
	c := &domain.Client{Name: name}
	require.NoError(t, NewClientService(env.exec).Create(ctx, c))
	return c
}

func newBooking(t *testing.T, svc *BookingService, ctx context.Context, clientID uuid.UUID, start time.Time) *domain.Booking {
	t.Helper()
	b := &domain.Booking{ClientID: clientID, Title: "Year-end review", StartsAt: start, EndsAt: start.Add(time.Hour)}
	require.NoError(t, svc.Create(ctx, b))
	return b
}

func TestBookingService_Create(t *testing.T) {
	env := newTestEnv(t)
	ctx, tenant := env.bootstrap(t, "acme")
	client := newClient(t, env, ctx, "Alder")
	svc := NewBookingService(env.exec)

	b := newBooking(t, svc, ctx, client.ID, monday)
	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, tenant.Tenant.ID, b.TenantID)
	assert.Equal(t, domain.BookingPending, b.Status)
	assert.Equal(t, monday, b.StartsAt)
	assert.Nil(t, b.StaffID)
}

func TestBookingService_CreateValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.bootstrap(t, "acme")
	client := newClient(t, env, ctx, "Alder")
	svc := NewBookingService(env.exec)

	err := svc.Create(ctx, &domain.Booking{ClientID: client.ID, Title: "Backwards", StartsAt: monday, EndsAt: monday.Add(-time.Hour)})
	assert.ErrorIs(t, err, ErrBookingInvalid)

	err = svc.Create(ctx, &domain.Booking{ClientID: client.ID, Title: "Odd", Status: "MAYBE", StartsAt: monday, EndsAt: monday.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrBookingStatus)

	err = svc.Create(ctx, &domain.Booking{ClientID: uuid.New(), Title: "Nobody", StartsAt: monday, EndsAt: monday.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestBookingService_CannotBookAnotherTenantsClient(t *testing.T) {
	env := newTestEnv(t)
	ctxA, _ := env.bootstrap(t, "acme")
	ctxB, _ := env.bootstrap(t, "birch")
	foreign := newClient(t, env, ctxB, "Beech")

	err := NewBookingService(env.exec).Create(ctxA, &domain.Booking{ClientID: foreign.ID, Title: "Sneaky", StartsAt: monday, EndsAt: monday.Add(time.Hour)})
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestBookingService_ListFilters(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.bootstrap(t, "acme")
	alder := newClient(t, env, ctx, "Alder")
	birch := newClient(t, env, ctx, "Birch")
	svc := NewBookingService(env.exec)

	newBooking(t, svc, ctx, alder.ID, monday.Add(48*time.Hour))
	newBooking(t, svc, ctx, alder.ID, monday)
	b3 := newBooking(t, svc, ctx, birch.ID, monday.Add(24*time.Hour))
	_, err := svc.Cancel(ctx, b3.ID)
	require.NoError(t, err)

	all, err := svc.List(ctx, BookingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, monday, all[0].StartsAt, "ordered by start time")

	pending, err := svc.List(ctx, BookingFilter{Status: domain.BookingPending})
	require.NoError(t, err)
	assert.Len(t, pending, 2)

	byName, err := svc.List(ctx, BookingFilter{ClientName: "Bi"})
	require.NoError(t, err)
	require.Len(t, byName, 1)
	assert.Equal(t, b3.ID, byName[0].ID)

	byID, err := svc.List(ctx, BookingFilter{ClientID: &alder.ID})
	require.NoError(t, err)
	assert.Len(t, byID, 2)

	from, to := monday.Add(time.Hour), monday.Add(72*time.Hour)
	window, err := svc.List(ctx, BookingFilter{From: &from, To: &to})
	require.NoError(t, err)
	assert.Len(t, window, 2)

	_, err = svc.List(ctx, BookingFilter{Status: "MAYBE"})
	assert.ErrorIs(t, err, ErrBookingStatus)
}

func TestBookingService_UpdateAndCancel(t *testing.T) {
	env := newTestEnv(t)
	ctx, tenant := env.bootstrap(t, "acme")
	client := newClient(t, env, ctx, "Alder")
	svc := NewBookingService(env.exec)
	b := newBooking(t, svc, ctx, client.ID, monday)

	confirmed := domain.BookingConfirmed
	later := monday.Add(2 * time.Hour)
	_, err := svc.Update(ctx, b.ID, BookingUpdate{StartsAt: &later})
	assert.ErrorIs(t, err, ErrBookingInvalid, "start moved past the existing end")

	end := later.Add(time.Hour)
	updated, err := svc.Update(ctx, b.ID, BookingUpdate{Status: &confirmed, StartsAt: &later, EndsAt: &end, StaffID: &tenant.Owner.ID})
	require.NoError(t, err)
	assert.Equal(t, domain.BookingConfirmed, updated.Status)
	assert.Equal(t, later, updated.StartsAt)
	require.NotNil(t, updated.StaffID)
	assert.Equal(t, tenant.Owner.ID, *updated.StaffID)

	cancelled, err := svc.Cancel(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, cancelled.Status)

	_, err = svc.Cancel(ctx, b.ID)
	assert.ErrorIs(t, err, ErrBookingTransition)

	_, err = svc.Cancel(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

func TestBookingService_Stats(t *testing.T) {
	env := newTestEnv(t)
	ctx, _ := env.bootstrap(t, "acme")
	client := newClient(t, env, ctx, "Alder")
	svc := NewBookingService(env.exec)

	empty, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, empty.Total)
	assert.Nil(t, empty.FirstStart)

	newBooking(t, svc, ctx, client.ID, monday)
	last := newBooking(t, svc, ctx, client.ID, monday.Add(72*time.Hour))
	_, err = svc.Cancel(ctx, last.ID)
	require.NoError(t, err)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, stats.Total)
	assert.EqualValues(t, 1, stats.ByStatus["PENDING"])
	assert.EqualValues(t, 1, stats.ByStatus["CANCELLED"])
	assert.EqualValues(t, 0, stats.ByStatus["EXPIRED"])
	require.NotNil(t, stats.FirstStart)
	require.NotNil(t, stats.LastStart)
	assert.True(t, stats.FirstStart.Equal(monday))
	assert.True(t, stats.LastStart.Equal(monday.Add(72*time.Hour)))
}

func TestBookingService_CancelAllForTenant(t *testing.T) {
	env := newTestEnv(t)
	ctxA, a := env.bootstrap(t, "acme")
	ctxB, b := env.bootstrap(t, "birch")
	svc := NewBookingService(env.exec)
	newBooking(t, svc, ctxA, newClient(t, env, ctxA, "Alder").ID, monday)
	beech := newClient(t, env, ctxB, "Beech")
	newBooking(t, svc, ctxB, beech.ID, monday)
	newBooking(t, svc, ctxB, beech.ID, monday.Add(time.Hour))

	t.Run("tenant user cannot target another tenant", func(t *testing.T) {
		_, err := svc.CancelAllForTenant(ctxA, b.Tenant.ID)
		assert.ErrorIs(t, err, guard.ErrTenantMismatch)
		assert.Equal(t, 1, env.logs.FilterMessage(guard.MsgTenantMismatch).Len())
	})

	t.Run("tenant user may cancel their own", func(t *testing.T) {
		n, err := svc.CancelAllForTenant(ctxA, a.Tenant.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)
	})

	t.Run("super-admin crosses tenants with an audit entry", func(t *testing.T) {
		n, err := svc.CancelAllForTenant(superAdminCtx(), b.Tenant.ID)
		require.NoError(t, err)
		assert.EqualValues(t, 2, n)

		entries := env.logs.FilterMessage(guard.MsgSuperAdminCrossTen).All()
		require.Len(t, entries, 1)
		assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	})
}

func TestBookingExpirer_RunOnce(t *testing.T) {
	env := newTestEnv(t)
	ctxA, _ := env.bootstrap(t, "acme")
	ctxB, _ := env.bootstrap(t, "birch")
	svc := NewBookingService(env.exec)

	past := newBooking(t, svc, ctxA, newClient(t, env, ctxA, "Alder").ID, monday)
	future := newBooking(t, svc, ctxA, newClient(t, env, ctxA, "Ash").ID, monday.Add(96*time.Hour))
	otherPast := newBooking(t, svc, ctxB, newClient(t, env, ctxB, "Beech").ID, monday.Add(time.Hour))
	confirmed := domain.BookingConfirmed
	confirmedPast := newBooking(t, svc, ctxB, newClient(t, env, ctxB, "Birch").ID, monday)
	_, err := svc.Update(ctxB, confirmedPast.ID, BookingUpdate{Status: &confirmed})
	require.NoError(t, err)

	expirer := NewBookingExpirer(svc, env.tenants, zap.NewNop())
	expirer.now = func() time.Time { return monday.Add(48 * time.Hour) }

	assert.EqualValues(t, 2, expirer.RunOnce(context.Background()))

	check := func(ctx context.Context, id uuid.UUID, want domain.BookingStatus) {
		t.Helper()
		got, err := svc.GetByID(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, want, got.Status)
	}
	check(ctxA, past.ID, domain.BookingExpired)
	check(ctxA, future.ID, domain.BookingPending)
	check(ctxB, otherPast.ID, domain.BookingExpired)
	check(ctxB, confirmedPast.ID, domain.BookingConfirmed)

	assert.Zero(t, env.logs.FilterLevelExact(zapcore.ErrorLevel).Len())
	assert.Zero(t, env.logs.FilterLevelExact(zapcore.WarnLevel).Len())

	assert.EqualValues(t, 0, expirer.RunOnce(context.Background()), "second pass finds nothing")
}

func TestBookingExpirer_StartStop(t *testing.T) {
	env := newTestEnv(t)
	expirer := NewBookingExpirer(NewBookingService(env.exec), env.tenants, zap.NewNop())
	expirer.SetInterval(10 * time.Millisecond)
	expirer.Start()
	time.Sleep(30 * time.Millisecond)
	expirer.Stop()
	assert.NotPanics(t, expirer.Stop)
}
