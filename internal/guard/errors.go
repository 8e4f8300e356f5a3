package guard

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a rejection.
type ErrorKind int

const (
	// KindConfiguration: no tenant context was bound. A programming or
	// deployment defect; never retried.
	KindConfiguration ErrorKind = iota + 1
	// KindTenantMismatch: an explicit tenant id conflicts with the session.
	KindTenantMismatch
	// KindUnscopedBulkMutation: bulk update/delete without a tenant filter.
	KindUnscopedBulkMutation
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfiguration:
		return "configuration"
	case KindTenantMismatch:
		return "tenant_mismatch"
	case KindUnscopedBulkMutation:
		return "unscoped_bulk_mutation"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is.
var (
	ErrConfiguration        = errors.New("guard: no tenant context bound")
	ErrTenantMismatch       = errors.New("guard: tenant mismatch")
	ErrUnscopedBulkMutation = errors.New("guard: bulk mutation without tenant filter")
)

// Error is returned for every rejected operation.
type Error struct {
	Kind     ErrorKind
	Model    string
	Action   Action
	Expected string
	Actual   string
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTenantMismatch:
		return fmt.Sprintf("%s: %s.%s expected tenant %q, got %q", e.sentinel(), e.Model, e.Action, e.Expected, e.Actual)
	default:
		return fmt.Sprintf("%s: %s.%s", e.sentinel(), e.Model, e.Action)
	}
}

func (e *Error) Unwrap() error {
	return e.sentinel()
}

func (e *Error) sentinel() error {
	switch e.Kind {
	case KindConfiguration:
		return ErrConfiguration
	case KindTenantMismatch:
		return ErrTenantMismatch
	case KindUnscopedBulkMutation:
		return ErrUnscopedBulkMutation
	default:
		return errors.New("guard: rejected")
	}
}

// AsError extracts a guard rejection from err.
func AsError(err error) (*Error, bool) {
	var ge *Error
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
