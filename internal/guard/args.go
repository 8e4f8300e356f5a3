package guard

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// TenantField is the field name every tenant-scoped model uses for its owner.
const TenantField = "tenantId"

// IDField is the primary key field shared by every model.
const IDField = "id"

// Filter is a where-tree: field -> scalar (equality), field -> operator map,
// relation -> nested Filter, or AND/OR/NOT -> filters.
type Filter map[string]any

// Record is a data payload: field -> value.
type Record map[string]any

// Logical filter keys.
const (
	KeyAnd = "AND"
	KeyOr  = "OR"
	KeyNot = "NOT"
	// KeyIs wraps a to-one relation filter: {"client": {"is": {...}}}.
	KeyIs = "is"
)

// Comparison operators accepted inside a field's operator map.
const (
	OpEquals     = "equals"
	OpNot        = "not"
	OpIn         = "in"
	OpNotIn      = "notIn"
	OpLt         = "lt"
	OpLte        = "lte"
	OpGt         = "gt"
	OpGte        = "gte"
	OpContains   = "contains"
	OpStartsWith = "startsWith"
)

var operators = map[string]struct{}{
	OpEquals: {}, OpNot: {}, OpIn: {}, OpNotIn: {}, OpLt: {}, OpLte: {},
	OpGt: {}, OpGte: {}, OpContains: {}, OpStartsWith: {},
}

// IsOperator reports whether key is a comparison operator.
func IsOperator(key string) bool {
	_, ok := operators[key]
	return ok
}

// Order is one ORDER BY term.
type Order struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// AggregateSpec selects the aggregates an Aggregate action computes.
type AggregateSpec struct {
	Count bool     `json:"_count,omitempty"`
	Sum   []string `json:"_sum,omitempty"`
	Avg   []string `json:"_avg,omitempty"`
	Min   []string `json:"_min,omitempty"`
	Max   []string `json:"_max,omitempty"`
}

// Args are the arguments of one operation. The guard may rewrite Data for
// creates; nothing else is touched.
type Args struct {
	Where     Filter         `json:"where,omitempty"`
	Data      Record         `json:"data,omitempty"`
	OrderBy   []Order        `json:"orderBy,omitempty"`
	Take      int            `json:"take,omitempty"`
	Skip      int            `json:"skip,omitempty"`
	Aggregate *AggregateSpec `json:"aggregate,omitempty"`
}

// Operation is a single persistence call.
type Operation struct {
	Model  string `json:"model"`
	Action Action `json:"action"`
	Args   *Args  `json:"args"`
}

// Clone deep-copies the filter and data trees.
func (a *Args) Clone() *Args {
	if a == nil {
		return &Args{}
	}
	out := *a
	if a.Where != nil {
		out.Where = Filter(cloneMap(a.Where))
	}
	if a.Data != nil {
		out.Data = Record(cloneMap(a.Data))
	}
	if a.OrderBy != nil {
		out.OrderBy = append([]Order(nil), a.OrderBy...)
	}
	if a.Aggregate != nil {
		agg := *a.Aggregate
		out.Aggregate = &agg
	}
	return &out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Filter:
		return Filter(cloneMap(t))
	case Record:
		return Record(cloneMap(t))
	case []any:
		return lo.Map(t, func(item any, _ int) any { return cloneValue(item) })
	case []Filter:
		return lo.Map(t, func(item Filter, _ int) Filter { return Filter(cloneMap(item)) })
	default:
		return v
	}
}

// AsMap normalises the map shapes that appear in filter trees.
func AsMap(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case Filter:
		return t, true
	case Record:
		return t, true
	default:
		return nil, false
	}
}

// AsList normalises the list shapes that appear under AND/OR/NOT and "in".
func AsList(v any) ([]any, bool) {
	switch t := v.(type) {
	case []any:
		return t, true
	case []Filter:
		return lo.Map(t, func(f Filter, _ int) any { return f }), true
	case []map[string]any:
		return lo.Map(t, func(f map[string]any, _ int) any { return f }), true
	case []string:
		return lo.Map(t, func(s string, _ int) any { return s }), true
	default:
		return nil, false
	}
}

// IsOperatorMap reports whether m is a field condition ({"equals": x, ...})
// rather than a nested relation filter.
func IsOperatorMap(m map[string]any) bool {
	if len(m) == 0 {
		return false
	}
	for k := range m {
		if !IsOperator(k) {
			return false
		}
	}
	return true
}

// HasTenantScope reports whether where restricts rows to explicit tenants:
// a tenantId equality/equals/in, a one-level to-one relation filter naming
// tenantId, any scoped member of an AND, or an OR whose members are all
// scoped.
func HasTenantScope(where Filter) bool {
	return scoped(where, 1)
}

func scoped(where map[string]any, relationDepth int) bool {
	for key, v := range where {
		switch key {
		case TenantField:
			if tenantCondition(v) {
				return true
			}
		case KeyAnd:
			for _, member := range conjuncts(v) {
				if scoped(member, relationDepth) {
					return true
				}
			}
		case KeyOr:
			members := conjuncts(v)
			if len(members) > 0 && lo.EveryBy(members, func(m map[string]any) bool { return scoped(m, relationDepth) }) {
				return true
			}
		case KeyNot:
		default:
			if relationDepth == 0 {
				continue
			}
			if rel, ok := relationFilter(v); ok && scoped(rel, relationDepth-1) {
				return true
			}
		}
	}
	return false
}

// conjuncts returns the member filters of an AND/OR value, which may be a
// single filter or a list.
func conjuncts(v any) []map[string]any {
	if m, ok := AsMap(v); ok {
		return []map[string]any{m}
	}
	list, ok := AsList(v)
	if !ok {
		return nil
	}
	var out []map[string]any
	for _, item := range list {
		if m, ok := AsMap(item); ok {
			out = append(out, m)
		}
	}
	return out
}

// relationFilter unwraps {"is": {...}} or a plain nested filter.
func relationFilter(v any) (map[string]any, bool) {
	m, ok := AsMap(v)
	if !ok || len(m) == 0 || IsOperatorMap(m) {
		return nil, false
	}
	if inner, ok := m[KeyIs]; ok && len(m) == 1 {
		return AsMap(inner)
	}
	return m, true
}

func tenantCondition(v any) bool {
	if v == nil {
		return false
	}
	m, ok := AsMap(v)
	if !ok {
		return true
	}
	if eq, ok := m[OpEquals]; ok && eq != nil {
		return true
	}
	if in, ok := m[OpIn]; ok {
		list, _ := AsList(in)
		return len(list) > 0
	}
	return false
}

// TenantFilterValues collects the tenant ids an explicit filter names, at the
// top level, inside AND members and inside one level of relation filters.
// Values that cannot be read as strings are skipped.
func TenantFilterValues(where Filter) []string {
	var out []string
	collectTenantValues(where, 1, &out)
	return lo.Uniq(out)
}

func collectTenantValues(where map[string]any, relationDepth int, out *[]string) {
	for key, v := range where {
		switch key {
		case TenantField:
			*out = append(*out, conditionValues(v)...)
		case KeyAnd, KeyOr:
			for _, member := range conjuncts(v) {
				collectTenantValues(member, relationDepth, out)
			}
		case KeyNot:
		default:
			if relationDepth == 0 {
				continue
			}
			if rel, ok := relationFilter(v); ok {
				collectTenantValues(rel, relationDepth-1, out)
			}
		}
	}
}

func conditionValues(v any) []string {
	m, ok := AsMap(v)
	if !ok {
		if s, ok := TenantString(v); ok {
			return []string{s}
		}
		return nil
	}
	var out []string
	if s, ok := TenantString(m[OpEquals]); ok {
		out = append(out, s)
	}
	if list, ok := AsList(m[OpIn]); ok {
		for _, item := range list {
			if s, ok := TenantString(item); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// TenantString normalises a tenant id value (string, uuid.UUID, []byte, ...).
func TenantString(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	s, err := cast.ToStringE(v)
	if err != nil || s == "" {
		return "", false
	}
	return s, true
}

// DataTenant returns the tenantId carried by a data payload, if any. An
// explicit nil is treated as absent.
func DataTenant(data Record) (string, bool) {
	v, ok := data[TenantField]
	if !ok || v == nil {
		return "", false
	}
	if s, ok := TenantString(v); ok {
		return s, true
	}
	// Present but not a plain id (e.g. a nested write): never auto-overwrite.
	return fmt.Sprintf("%v", v), true
}
