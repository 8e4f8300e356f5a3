package audit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memWriter struct {
	mu      sync.Mutex
	batches [][]Entry
}

func (w *memWriter) InsertEntries(_ context.Context, entries []Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.batches = append(w.batches, entries)
	return nil
}

func (w *memWriter) all() []Entry {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []Entry
	for _, b := range w.batches {
		out = append(out, b...)
	}
	return out
}

func boundCtx() context.Context {
	tc := tenancy.ForTenant("t1", "u1", tenancy.RoleStaff, tenancy.TenantRoleMember, "req-1")
	tc.TenantSlug = "acme"
	return tenancy.With(context.Background(), tc)
}

func TestEmit_RoutesByLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	sink := NewZapSink(zap.New(core))

	EmitAll(boundCtx(), sink, []Event{
		{Level: zapcore.InfoLevel, Message: "i"},
		{Level: zapcore.WarnLevel, Message: "w"},
		{Level: zapcore.ErrorLevel, Message: "e", Fields: Fields{"model": "User"}},
	})

	all := logs.All()
	require.Len(t, all, 3)
	assert.Equal(t, []zapcore.Level{zapcore.InfoLevel, zapcore.WarnLevel, zapcore.ErrorLevel},
		[]zapcore.Level{all[0].Level, all[1].Level, all[2].Level})
	assert.Equal(t, "tenant_guard", all[2].LoggerName)
	fields := all[2].ContextMap()
	assert.Equal(t, "User", fields["model"])
	assert.Equal(t, "req-1", fields["requestId"])
	assert.Equal(t, "u1", fields["userId"])
	assert.Equal(t, "t1", fields["tenantId"])
	assert.Equal(t, "acme", fields["tenantSlug"])
}

func TestEmit_NilSink(t *testing.T) {
	assert.NotPanics(t, func() { Emit(context.Background(), nil, Event{Message: "x"}) })
}

func TestMulti(t *testing.T) {
	core1, logs1 := observer.New(zapcore.DebugLevel)
	core2, logs2 := observer.New(zapcore.DebugLevel)
	m := Multi{NewZapSink(zap.New(core1)), Nop{}, NewZapSink(zap.New(core2))}

	m.Warn(context.Background(), "w", nil)
	m.Error(context.Background(), "e", nil)
	assert.Equal(t, 2, logs1.Len())
	assert.Equal(t, 2, logs2.Len())
}

func TestRecorder_FlushesOnStop(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w, 16, zap.NewNop())
	r.SetInterval(time.Hour)
	r.Start()

	r.Error(boundCtx(), "tenant mismatch on write", Fields{"model": "Client"})
	r.Info(context.Background(), "super-admin cross-tenant operation", nil)
	r.Stop()

	entries := w.all()
	require.Len(t, entries, 2)
	assert.Equal(t, "error", entries[0].Level)
	assert.Equal(t, "t1", entries[0].TenantID)
	assert.Equal(t, "u1", entries[0].UserID)
	assert.Equal(t, "req-1", entries[0].RequestID)
	assert.Equal(t, "Client", entries[0].Fields["model"])
	assert.Empty(t, entries[1].TenantID)
	assert.Zero(t, r.Dropped())

	assert.NotPanics(t, r.Stop)
}

func TestRecorder_FlushesOnInterval(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w, 16, zap.NewNop())
	r.SetInterval(10 * time.Millisecond)
	r.Start()
	defer r.Stop()

	r.Warn(boundCtx(), "operation missing tenant filter", nil)
	assert.Eventually(t, func() bool { return len(w.all()) == 1 }, time.Second, 5*time.Millisecond)
}

func TestRecorder_DropsWhenFull(t *testing.T) {
	w := &memWriter{}
	r := NewRecorder(w, 2, zap.NewNop())

	for i := 0; i < 5; i++ {
		r.Info(context.Background(), "x", nil)
	}
	assert.EqualValues(t, 3, r.Dropped())

	r.Start()
	r.Stop()
	assert.Len(t, w.all(), 2)
}
