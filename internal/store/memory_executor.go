package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// MemoryExecutor keeps every model in process. It evaluates the same filter
// language as PGExecutor and, like it, has no notion of tenants.
type MemoryExecutor struct {
	mu     sync.RWMutex
	tables map[string][]guard.Record
	now    func() time.Time
}

// NewMemoryExecutor returns an empty store.
func NewMemoryExecutor() *MemoryExecutor {
	return &MemoryExecutor{
		tables: make(map[string][]guard.Record),
		now:    time.Now,
	}
}

// SetClock overrides the timestamp source.
func (e *MemoryExecutor) SetClock(now func() time.Time) {
	e.now = now
}

func (e *MemoryExecutor) Execute(ctx context.Context, op guard.Operation) (guard.Result, error) {
	if err := ctx.Err(); err != nil {
		return guard.Result{}, err
	}
	m, err := domain.LookupModel(op.Model)
	if err != nil {
		return guard.Result{}, err
	}
	a := op.Args
	if a == nil {
		a = &guard.Args{}
	}

	if !op.Action.IsMutation() {
		e.mu.RLock()
		defer e.mu.RUnlock()
	} else {
		e.mu.Lock()
		defer e.mu.Unlock()
	}

	switch op.Action {
	case guard.ActionCreate:
		row, err := e.insert(m, a.Data)
		if err != nil {
			return guard.Result{}, err
		}
		return rowsResult(row), nil

	case guard.ActionUpdate, guard.ActionUpdateMany:
		idx, err := e.matching(m, a.Where)
		if err != nil {
			return guard.Result{}, err
		}
		if op.Action == guard.ActionUpdate {
			if len(idx) == 0 {
				return guard.Result{}, ErrNotFound
			}
			idx = idx[:1]
		}
		var updated []guard.Record
		for _, i := range idx {
			row, err := e.update(m, i, a.Data)
			if err != nil {
				return guard.Result{}, err
			}
			updated = append(updated, row)
		}
		if op.Action == guard.ActionUpdateMany {
			return guard.Result{Count: int64(len(updated))}, nil
		}
		return rowsResult(updated...), nil

	case guard.ActionDelete, guard.ActionDeleteMany:
		idx, err := e.matching(m, a.Where)
		if err != nil {
			return guard.Result{}, err
		}
		if op.Action == guard.ActionDelete {
			if len(idx) == 0 {
				return guard.Result{}, ErrNotFound
			}
			idx = idx[:1]
		}
		removed := e.remove(m, idx)
		if op.Action == guard.ActionDeleteMany {
			return guard.Result{Count: int64(len(removed))}, nil
		}
		return rowsResult(removed...), nil

	case guard.ActionUpsert:
		idx, err := e.matching(m, a.Where)
		if err != nil {
			return guard.Result{}, err
		}
		if len(idx) > 0 {
			row, err := e.update(m, idx[0], a.Data)
			if err != nil {
				return guard.Result{}, err
			}
			return rowsResult(row), nil
		}
		insert := guard.Record{}
		for k, v := range a.Where {
			if _, isMap := guard.AsMap(v); isMap || v == nil || !m.HasField(k) {
				return guard.Result{}, fmt.Errorf("upsert %s: where must be scalar equalities", m.Name)
			}
			insert[k] = v
		}
		for k, v := range a.Data {
			insert[k] = v
		}
		row, err := e.insert(m, insert)
		if err != nil {
			return guard.Result{}, err
		}
		return rowsResult(row), nil

	case guard.ActionFindUnique, guard.ActionFindFirst, guard.ActionFindMany:
		idx, err := e.matching(m, a.Where)
		if err != nil {
			return guard.Result{}, err
		}
		rows := lo.Map(idx, func(i int, _ int) guard.Record { return e.tables[m.Name][i] })
		if err := sortRows(m, rows, a.OrderBy); err != nil {
			return guard.Result{}, err
		}
		take := a.Take
		if op.Action != guard.ActionFindMany {
			take = 1
		}
		rows = page(rows, take, a.Skip)
		return rowsResult(rows...), nil

	case guard.ActionCount:
		idx, err := e.matching(m, a.Where)
		if err != nil {
			return guard.Result{}, err
		}
		return guard.Result{Count: int64(len(idx))}, nil

	case guard.ActionAggregate:
		idx, err := e.matching(m, a.Where)
		if err != nil {
			return guard.Result{}, err
		}
		rows := lo.Map(idx, func(i int, _ int) guard.Record { return e.tables[m.Name][i] })
		return aggregateRows(m, rows, a.Aggregate)
	}
	return guard.Result{}, fmt.Errorf("unsupported action %s", op.Action)
}

func rowsResult(rows ...guard.Record) guard.Result {
	out := guard.Result{Rows: make([]guard.Record, 0, len(rows))}
	for _, r := range rows {
		out.Rows = append(out.Rows, copyRecord(r))
	}
	out.Count = int64(len(out.Rows))
	return out
}

func copyRecord(r guard.Record) guard.Record {
	out := make(guard.Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func (e *MemoryExecutor) insert(m domain.Model, data guard.Record) (guard.Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("create %s: data is required", m.Name)
	}
	now := e.now().UTC()
	row := guard.Record{}
	for _, f := range m.Fields {
		row[f.Name] = nil
	}
	for k, v := range data {
		if !m.HasField(k) {
			return nil, fmt.Errorf("%s has no field %q", m.Name, k)
		}
		row[k] = storedValue(v)
	}
	if row["id"] == nil {
		row["id"] = uuid.NewString()
	}
	row["createdAt"] = now
	row["updatedAt"] = now

	if err := e.checkUnique(m, row, -1); err != nil {
		return nil, err
	}
	e.tables[m.Name] = append(e.tables[m.Name], row)
	return row, nil
}

func (e *MemoryExecutor) update(m domain.Model, i int, data guard.Record) (guard.Record, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("update %s: data is required", m.Name)
	}
	row := copyRecord(e.tables[m.Name][i])
	for k, v := range data {
		if !m.HasField(k) {
			return nil, fmt.Errorf("%s has no field %q", m.Name, k)
		}
		if k == "id" || k == "createdAt" || k == "updatedAt" {
			continue
		}
		row[k] = storedValue(v)
	}
	row["updatedAt"] = e.now().UTC()

	if err := e.checkUnique(m, row, i); err != nil {
		return nil, err
	}
	e.tables[m.Name][i] = row
	return row, nil
}

func (e *MemoryExecutor) remove(m domain.Model, idx []int) []guard.Record {
	drop := lo.SliceToMap(idx, func(i int) (int, struct{}) { return i, struct{}{} })
	var kept, removed []guard.Record
	for i, row := range e.tables[m.Name] {
		if _, ok := drop[i]; ok {
			removed = append(removed, row)
			continue
		}
		kept = append(kept, row)
	}
	e.tables[m.Name] = kept
	return removed
}

// checkUnique enforces single-column unique fields and the settings
// (tenantId, key) pair, mirroring the migration's constraints.
func (e *MemoryExecutor) checkUnique(m domain.Model, row guard.Record, self int) error {
	for i, other := range e.tables[m.Name] {
		if i == self {
			continue
		}
		for _, f := range m.Fields {
			if f.Unique && row[f.Name] != nil && equalValues(row[f.Name], other[f.Name]) {
				return fmt.Errorf("%w: %s.%s", ErrConflict, m.Table, f.Column)
			}
		}
		if m.Name == domain.ModelSetting &&
			equalValues(row["tenantId"], other["tenantId"]) && equalValues(row["key"], other["key"]) {
			return fmt.Errorf("%w: settings tenant_id, key", ErrConflict)
		}
	}
	return nil
}

func (e *MemoryExecutor) matching(m domain.Model, where guard.Filter) ([]int, error) {
	var idx []int
	for i, row := range e.tables[m.Name] {
		ok, err := e.match(m, row, where, 1)
		if err != nil {
			return nil, err
		}
		if ok {
			idx = append(idx, i)
		}
	}
	return idx, nil
}

func (e *MemoryExecutor) match(m domain.Model, row guard.Record, f map[string]any, relationDepth int) (bool, error) {
	for key, v := range f {
		switch key {
		case guard.KeyAnd, guard.KeyOr, guard.KeyNot:
			members, err := filterMembers(v)
			if err != nil {
				return false, err
			}
			all, some := true, false
			for _, member := range members {
				ok, err := e.match(m, row, member, relationDepth)
				if err != nil {
					return false, err
				}
				all = all && ok
				some = some || ok
			}
			switch key {
			case guard.KeyAnd:
				if !all {
					return false, nil
				}
			case guard.KeyOr:
				if !some {
					return false, nil
				}
			default:
				if len(members) > 0 && all {
					return false, nil
				}
			}
			continue
		}

		if m.HasField(key) {
			ok, err := matchCondition(row[key], v)
			if err != nil {
				return false, fmt.Errorf("%s.%s: %w", m.Name, key, err)
			}
			if !ok {
				return false, nil
			}
			continue
		}

		rel, ok := m.Relations[key]
		if !ok {
			return false, fmt.Errorf("%s has no field or relation %q", m.Name, key)
		}
		if relationDepth == 0 {
			return false, fmt.Errorf("%s.%s: nested relation filters are limited to one level", m.Name, key)
		}
		sub, ok := guard.AsMap(v)
		if !ok {
			return false, fmt.Errorf("%s.%s: relation filter must be an object", m.Name, key)
		}
		if inner, ok := sub[guard.KeyIs]; ok && len(sub) == 1 {
			if sub, ok = guard.AsMap(inner); !ok {
				return false, fmt.Errorf("%s.%s: relation filter must be an object", m.Name, key)
			}
		}
		target, err := domain.LookupModel(rel.Model)
		if err != nil {
			return false, err
		}
		fk := row[rel.LocalKey]
		if fk == nil {
			return false, nil
		}
		related, found := lo.Find(e.tables[target.Name], func(r guard.Record) bool { return equalValues(r["id"], fk) })
		if !found {
			return false, nil
		}
		ok, err = e.match(target, related, sub, relationDepth-1)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func filterMembers(v any) ([]map[string]any, error) {
	if single, ok := guard.AsMap(v); ok {
		return []map[string]any{single}, nil
	}
	list, ok := guard.AsList(v)
	if !ok {
		return nil, fmt.Errorf("logical operator expects an object or list")
	}
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		f, ok := guard.AsMap(item)
		if !ok {
			return nil, fmt.Errorf("logical operator members must be objects")
		}
		out = append(out, f)
	}
	return out, nil
}

// matchCondition follows SQL semantics: comparisons against NULL are false
// except IS NULL / IS DISTINCT FROM.
func matchCondition(actual, cond any) (bool, error) {
	ops, ok := guard.AsMap(cond)
	if !ok || !guard.IsOperatorMap(ops) {
		if ok {
			return false, fmt.Errorf("unexpected object in field condition")
		}
		if cond == nil {
			return actual == nil, nil
		}
		return actual != nil && equalValues(actual, cond), nil
	}

	for op, operand := range ops {
		var ok bool
		switch op {
		case guard.OpEquals:
			if operand == nil {
				ok = actual == nil
			} else {
				ok = actual != nil && equalValues(actual, operand)
			}
		case guard.OpNot:
			if operand == nil {
				ok = actual != nil
			} else {
				ok = actual == nil || !equalValues(actual, operand)
			}
		case guard.OpIn, guard.OpNotIn:
			list, isList := guard.AsList(operand)
			if !isList {
				return false, fmt.Errorf("%s expects a list", op)
			}
			if actual == nil {
				ok = false
				break
			}
			found := lo.ContainsBy(list, func(item any) bool { return equalValues(actual, item) })
			ok = found == (op == guard.OpIn)
		case guard.OpLt, guard.OpLte, guard.OpGt, guard.OpGte:
			if actual == nil || operand == nil {
				ok = false
				break
			}
			c, err := compareValues(actual, operand)
			if err != nil {
				return false, err
			}
			switch op {
			case guard.OpLt:
				ok = c < 0
			case guard.OpLte:
				ok = c <= 0
			case guard.OpGt:
				ok = c > 0
			default:
				ok = c >= 0
			}
		case guard.OpContains:
			ok = actual != nil && strings.Contains(cast.ToString(actual), cast.ToString(operand))
		case guard.OpStartsWith:
			ok = actual != nil && strings.HasPrefix(cast.ToString(actual), cast.ToString(operand))
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// storedValue flattens pointers and uuids so stored rows look like the rows
// PGExecutor returns.
func storedValue(v any) any {
	switch t := v.(type) {
	case uuid.UUID:
		return t.String()
	case *uuid.UUID:
		if t == nil {
			return nil
		}
		return t.String()
	case *time.Time:
		if t == nil {
			return nil
		}
		return t.UTC()
	case time.Time:
		return t.UTC()
	case *string:
		if t == nil {
			return nil
		}
		return *t
	case fmt.Stringer:
		return t.String()
	default:
		return v
	}
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	c, err := compareValues(a, b)
	return err == nil && c == 0
}

func compareValues(a, b any) (int, error) {
	a, b = storedValue(a), storedValue(b)

	if ta, ok := a.(time.Time); ok {
		tb, err := cast.ToTimeE(b)
		if err != nil {
			return 0, err
		}
		return ta.Compare(tb), nil
	}
	if tb, ok := b.(time.Time); ok {
		ta, err := cast.ToTimeE(a)
		if err != nil {
			return 0, err
		}
		return ta.Compare(tb), nil
	}

	if isNumber(a) || isNumber(b) {
		fa, errA := cast.ToFloat64E(a)
		fb, errB := cast.ToFloat64E(b)
		if errA == nil && errB == nil {
			switch {
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			}
			return 0, nil
		}
	}

	sa, err := cast.ToStringE(a)
	if err != nil {
		return 0, err
	}
	sb, err := cast.ToStringE(b)
	if err != nil {
		return 0, err
	}
	return strings.Compare(sa, sb), nil
}

func isNumber(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32, float64:
		return true
	}
	return false
}

// sortRows orders like Postgres: NULLs last ascending, first descending.
func sortRows(m domain.Model, rows []guard.Record, orders []guard.Order) error {
	for _, o := range orders {
		if !m.HasField(o.Field) {
			return fmt.Errorf("%s has no field %q", m.Name, o.Field)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range orders {
			a, b := rows[i][o.Field], rows[j][o.Field]
			var c int
			switch {
			case a == nil && b == nil:
				c = 0
			case a == nil:
				c = 1
			case b == nil:
				c = -1
			default:
				c, _ = compareValues(a, b)
			}
			if o.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		return false
	})
	return nil
}

func page(rows []guard.Record, take, skip int) []guard.Record {
	if skip > 0 {
		if skip >= len(rows) {
			return nil
		}
		rows = rows[skip:]
	}
	if take > 0 && take < len(rows) {
		rows = rows[:take]
	}
	return rows
}

func aggregateRows(m domain.Model, rows []guard.Record, spec *guard.AggregateSpec) (guard.Result, error) {
	if spec == nil {
		spec = &guard.AggregateSpec{Count: true}
	}
	agg := guard.Record{}
	if spec.Count {
		agg["_count"] = int64(len(rows))
	}

	numeric := func(group string, fields []string, fold func(vals []float64) any) error {
		if len(fields) == 0 {
			return nil
		}
		sub := guard.Record{}
		for _, field := range fields {
			if !m.HasField(field) {
				return fmt.Errorf("%s has no field %q", m.Name, field)
			}
			var vals []float64
			for _, r := range rows {
				if r[field] == nil {
					continue
				}
				f, err := cast.ToFloat64E(r[field])
				if err != nil {
					return fmt.Errorf("%s.%s: %w", m.Name, field, err)
				}
				vals = append(vals, f)
			}
			if len(vals) == 0 {
				sub[field] = nil
				continue
			}
			sub[field] = fold(vals)
		}
		agg[group] = sub
		return nil
	}
	if err := numeric("_sum", spec.Sum, func(v []float64) any { return lo.Sum(v) }); err != nil {
		return guard.Result{}, err
	}
	if err := numeric("_avg", spec.Avg, func(v []float64) any { return lo.Sum(v) / float64(len(v)) }); err != nil {
		return guard.Result{}, err
	}

	extreme := func(group string, fields []string, want int) error {
		if len(fields) == 0 {
			return nil
		}
		sub := guard.Record{}
		for _, field := range fields {
			if !m.HasField(field) {
				return fmt.Errorf("%s has no field %q", m.Name, field)
			}
			var best any
			for _, r := range rows {
				v := r[field]
				if v == nil {
					continue
				}
				if best == nil {
					best = v
					continue
				}
				if c, err := compareValues(v, best); err == nil && c == want {
					best = v
				}
			}
			sub[field] = best
		}
		agg[group] = sub
		return nil
	}
	if err := extreme("_min", spec.Min, -1); err != nil {
		return guard.Result{}, err
	}
	if err := extreme("_max", spec.Max, 1); err != nil {
		return guard.Result{}, err
	}

	count, _ := agg["_count"].(int64)
	return guard.Result{Count: count, Aggregate: agg}, nil
}
