// Package guard enforces tenant isolation on every persistence operation.
//
// Engine.Decide is a pure function of (tenant context, operation). Guard
// wraps an Executor, applies the decision, reports through an audit.Sink
// and only then delegates.
package guard

import (
	"slices"

	"github.com/Harshitk-cp/practicedesk/internal/audit"
	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"github.com/samber/lo"
	"go.uber.org/zap/zapcore"
)

// Audit messages.
const (
	MsgNoContext          = "tenant context missing for persistence operation"
	MsgTenantMismatch     = "tenant mismatch on write"
	MsgUnscopedBulk       = "bulk mutation without tenant filter rejected"
	MsgMissingFilter      = "operation missing tenant filter"
	MsgCreateUnscoped     = "create without tenant id in system context"
	MsgSuperAdminCrossTen = "super-admin cross-tenant operation"
)

// Kind is the outcome of a decision.
type Kind int

const (
	KindAllow Kind = iota + 1
	KindAllowMutated
	KindWarnAllow
	KindReject
)

func (k Kind) String() string {
	switch k {
	case KindAllow:
		return "allow"
	case KindAllowMutated:
		return "allow_mutated"
	case KindWarnAllow:
		return "warn_allow"
	case KindReject:
		return "reject"
	default:
		return "unknown"
	}
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// Decision is what the guard does with one operation. Args is set only for
// KindAllowMutated and is a rewritten copy; Err only for KindReject.
type Decision struct {
	Kind   Kind          `json:"kind"`
	Args   *Args         `json:"args,omitempty"`
	Events []audit.Event `json:"events,omitempty"`
	Err    error         `json:"-"`
}

// Allowed reports whether the operation may proceed.
func (d Decision) Allowed() bool {
	return d.Kind != KindReject
}

// Config controls enforcement.
type Config struct {
	// Enabled is the multi-tenancy feature flag. When false every operation
	// passes through unchanged.
	Enabled bool
	// ExemptModels are not tenant-owned (e.g. the tenant table itself).
	// They still require a bound context.
	ExemptModels []string
}

// Engine holds the rule table configuration.
type Engine struct {
	enabled bool
	exempt  []string
}

// NewEngine copies cfg; later changes to cfg.ExemptModels are not seen.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		enabled: cfg.Enabled,
		exempt:  slices.Clone(cfg.ExemptModels),
	}
}

// Enabled reports the feature flag.
func (e *Engine) Enabled() bool {
	return e.enabled
}

// Decide evaluates the rule table. It does not modify op.
func (e *Engine) Decide(tc *tenancy.Context, op Operation) Decision {
	if !e.enabled {
		return Decision{Kind: KindAllow}
	}

	if tc == nil {
		return reject(&Error{Kind: KindConfiguration, Model: op.Model, Action: op.Action},
			event(zapcore.ErrorLevel, MsgNoContext, baseFields(nil, op)))
	}

	args := op.Args
	if args == nil {
		args = &Args{}
	}

	if slices.Contains(e.exempt, op.Model) {
		if Classify(op.Action) == CategoryBulkMutation {
			return decideExemptBulk(tc, op, args)
		}
		return Decision{Kind: KindAllow}
	}

	switch Classify(op.Action) {
	case CategoryCreate:
		return decideCreate(tc, op, args)
	case CategoryBulkMutation:
		return decideBulk(tc, op, args)
	case CategorySingleMutation:
		if d, rejected := checkReassignment(tc, op, args); rejected {
			return d
		}
		return decideScoped(tc, op, args)
	case CategoryRead:
		return decideScoped(tc, op, args)
	}
	panic("guard: unreachable category")
}

func decideCreate(tc *tenancy.Context, op Operation, args *Args) Decision {
	actual, present := DataTenant(args.Data)
	if !present {
		if !tc.HasTenant() {
			return Decision{
				Kind:   KindWarnAllow,
				Events: []audit.Event{event(zapcore.WarnLevel, MsgCreateUnscoped, baseFields(tc, op))},
			}
		}
		mutated := args.Clone()
		if mutated.Data == nil {
			mutated.Data = Record{}
		}
		mutated.Data[TenantField] = tc.Tenant()
		return Decision{Kind: KindAllowMutated, Args: mutated}
	}

	if actual == tc.Tenant() {
		return Decision{Kind: KindAllow}
	}
	if !tc.IsSuperAdmin {
		return mismatch(tc, op, actual)
	}
	return Decision{
		Kind:   KindAllow,
		Events: []audit.Event{crossTenant(tc, op, []string{actual})},
	}
}

func decideBulk(tc *tenancy.Context, op Operation, args *Args) Decision {
	if !HasTenantScope(args.Where) {
		if !tc.IsSuperAdmin {
			return reject(&Error{Kind: KindUnscopedBulkMutation, Model: op.Model, Action: op.Action},
				event(zapcore.ErrorLevel, MsgUnscopedBulk, baseFields(tc, op)))
		}
		return Decision{
			Kind:   KindAllow,
			Events: []audit.Event{crossTenant(tc, op, nil)},
		}
	}

	if d, rejected := checkReassignment(tc, op, args); rejected {
		return d
	}

	foreign := foreignTenants(tc, TenantFilterValues(args.Where))
	if len(foreign) == 0 {
		return Decision{Kind: KindAllow}
	}
	if !tc.IsSuperAdmin {
		return mismatch(tc, op, foreign[0])
	}
	return Decision{
		Kind:   KindAllow,
		Events: []audit.Event{crossTenant(tc, op, foreign)},
	}
}

// decideExemptBulk handles bulk mutations on models without a tenant column.
// Their rows are tenants, so a non-super-admin must pin the top-level id
// filter to its own tenant.
func decideExemptBulk(tc *tenancy.Context, op Operation, args *Args) Decision {
	ids := conditionValues(args.Where[IDField])
	if len(ids) == 0 {
		if !tc.IsSuperAdmin {
			return reject(&Error{Kind: KindUnscopedBulkMutation, Model: op.Model, Action: op.Action},
				event(zapcore.ErrorLevel, MsgUnscopedBulk, baseFields(tc, op)))
		}
		return Decision{
			Kind:   KindAllow,
			Events: []audit.Event{crossTenant(tc, op, nil)},
		}
	}

	foreign := foreignTenants(tc, lo.Uniq(ids))
	if len(foreign) == 0 {
		return Decision{Kind: KindAllow}
	}
	if !tc.IsSuperAdmin {
		return mismatch(tc, op, foreign[0])
	}
	return Decision{
		Kind:   KindAllow,
		Events: []audit.Event{crossTenant(tc, op, foreign)},
	}
}

// decideScoped covers single-record mutations and reads. A missing tenant
// filter only warns: lookups by globally unique key are legitimate.
func decideScoped(tc *tenancy.Context, op Operation, args *Args) Decision {
	if HasTenantScope(args.Where) {
		return Decision{Kind: KindAllow}
	}
	return Decision{
		Kind:   KindWarnAllow,
		Events: []audit.Event{event(zapcore.WarnLevel, MsgMissingFilter, baseFields(tc, op))},
	}
}

// checkReassignment rejects updates that would move rows to another tenant.
func checkReassignment(tc *tenancy.Context, op Operation, args *Args) (Decision, bool) {
	if tc.IsSuperAdmin {
		return Decision{}, false
	}
	actual, present := DataTenant(args.Data)
	if !present || actual == tc.Tenant() {
		return Decision{}, false
	}
	return mismatch(tc, op, actual), true
}

func foreignTenants(tc *tenancy.Context, values []string) []string {
	var out []string
	for _, v := range values {
		if v != tc.Tenant() {
			out = append(out, v)
		}
	}
	return out
}

func mismatch(tc *tenancy.Context, op Operation, actual string) Decision {
	fields := baseFields(tc, op)
	fields["expectedTenantId"] = tc.Tenant()
	fields["actualTenantId"] = actual
	return reject(&Error{
		Kind:     KindTenantMismatch,
		Model:    op.Model,
		Action:   op.Action,
		Expected: tc.Tenant(),
		Actual:   actual,
	}, event(zapcore.ErrorLevel, MsgTenantMismatch, fields))
}

func crossTenant(tc *tenancy.Context, op Operation, targets []string) audit.Event {
	fields := baseFields(tc, op)
	fields["sessionTenantId"] = tc.Tenant()
	if len(targets) > 0 {
		fields["targetTenantIds"] = targets
	} else {
		fields["targetTenantIds"] = "*"
	}
	return event(zapcore.InfoLevel, MsgSuperAdminCrossTen, fields)
}

func reject(err *Error, e audit.Event) Decision {
	return Decision{Kind: KindReject, Err: err, Events: []audit.Event{e}}
}

func event(level zapcore.Level, msg string, fields audit.Fields) audit.Event {
	return audit.Event{Level: level, Message: msg, Fields: fields}
}

func baseFields(tc *tenancy.Context, op Operation) audit.Fields {
	f := audit.Fields{
		"model":  op.Model,
		"action": op.Action.String(),
	}
	if tc != nil {
		if tc.RequestID != "" {
			f["requestId"] = tc.RequestID
		}
		if tc.UserID != "" {
			f["userId"] = tc.UserID
		}
	}
	return f
}
