package guard

import (
	"context"

	"github.com/Harshitk-cp/practicedesk/internal/audit"
	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
)

// Result is what an executor returns. Rows is set for reads and for
// single-record writes (the written row); Count for bulk writes and Count;
// Aggregate for Aggregate.
type Result struct {
	Rows      []Record `json:"rows,omitempty"`
	Count     int64    `json:"count"`
	Aggregate Record   `json:"aggregate,omitempty"`
}

// First returns the first row, if any.
func (r Result) First() (Record, bool) {
	if len(r.Rows) == 0 {
		return nil, false
	}
	return r.Rows[0], true
}

// Executor runs persistence operations. Application code only ever holds a
// guarded Executor.
type Executor interface {
	Execute(ctx context.Context, op Operation) (Result, error)
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, op Operation) (Result, error)

func (f ExecutorFunc) Execute(ctx context.Context, op Operation) (Result, error) {
	return f(ctx, op)
}

// Guard is the tenant-isolation decorator around an Executor.
type Guard struct {
	engine *Engine
	next   Executor
	sink   audit.Sink
}

// New wraps next so every operation is decided by engine first.
func New(engine *Engine, next Executor, sink audit.Sink) *Guard {
	if sink == nil {
		sink = audit.Nop{}
	}
	return &Guard{engine: engine, next: next, sink: sink}
}

// Check decides and reports without executing. On KindAllowMutated the
// caller's op.Args are rewritten in place.
func (g *Guard) Check(ctx context.Context, op Operation) Decision {
	var tcp *tenancy.Context
	if tc, ok := tenancy.Current(ctx); ok {
		tcp = &tc
	}

	d := g.engine.Decide(tcp, op)

	// Rejections are logged before the error reaches the caller.
	audit.EmitAll(ctx, g.sink, d.Events)

	// The engine only ever injects the tenant field.
	if d.Kind == KindAllowMutated && op.Args != nil {
		if op.Args.Data == nil {
			op.Args.Data = Record{}
		}
		op.Args.Data[TenantField] = d.Args.Data[TenantField]
	}
	return d
}

// Execute runs op through the guard and, unless rejected, the wrapped executor.
func (g *Guard) Execute(ctx context.Context, op Operation) (Result, error) {
	if op.Args == nil {
		op.Args = &Args{}
	}

	d := g.Check(ctx, op)
	if d.Kind == KindReject {
		return Result{}, d.Err
	}
	return g.next.Execute(ctx, op)
}
