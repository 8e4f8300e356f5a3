package store

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// query accumulates positional parameters while a statement is compiled.
type query struct {
	args    []any
	aliases int
}

func (q *query) param(v any) string {
	q.args = append(q.args, v)
	return fmt.Sprintf("$%d", len(q.args))
}

func (q *query) alias() string {
	q.aliases++
	return fmt.Sprintf("t%d", q.aliases)
}

func sortedKeys(m map[string]any) []string {
	keys := lo.Keys(m)
	sort.Strings(keys)
	return keys
}

// where compiles a filter tree against model m addressed as alias. Relations
// are followed once; deeper nesting is rejected.
func (q *query) where(m domain.Model, alias string, f map[string]any, relationDepth int) (string, error) {
	if len(f) == 0 {
		return "TRUE", nil
	}

	var parts []string
	for _, key := range sortedKeys(f) {
		v := f[key]
		switch key {
		case guard.KeyAnd, guard.KeyOr, guard.KeyNot:
			members, err := q.members(m, alias, v, relationDepth)
			if err != nil {
				return "", err
			}
			if len(members) == 0 {
				if key == guard.KeyOr {
					parts = append(parts, "FALSE")
				}
				continue
			}
			switch key {
			case guard.KeyAnd:
				parts = append(parts, "("+strings.Join(members, " AND ")+")")
			case guard.KeyOr:
				parts = append(parts, "("+strings.Join(members, " OR ")+")")
			default:
				parts = append(parts, "NOT ("+strings.Join(members, " AND ")+")")
			}
			continue
		}

		if col, ok := m.Column(key); ok {
			cond, err := q.condition(alias+"."+col, v)
			if err != nil {
				return "", fmt.Errorf("%s.%s: %w", m.Name, key, err)
			}
			parts = append(parts, cond)
			continue
		}

		rel, ok := m.Relations[key]
		if !ok {
			return "", fmt.Errorf("%s has no field or relation %q", m.Name, key)
		}
		if relationDepth == 0 {
			return "", fmt.Errorf("%s.%s: nested relation filters are limited to one level", m.Name, key)
		}
		sub, ok := guard.AsMap(v)
		if !ok {
			return "", fmt.Errorf("%s.%s: relation filter must be an object", m.Name, key)
		}
		if inner, ok := sub[guard.KeyIs]; ok && len(sub) == 1 {
			if sub, ok = guard.AsMap(inner); !ok {
				return "", fmt.Errorf("%s.%s: relation filter must be an object", m.Name, key)
			}
		}
		target, err := domain.LookupModel(rel.Model)
		if err != nil {
			return "", err
		}
		localCol, _ := m.Column(rel.LocalKey)
		ra := q.alias()
		inner, err := q.where(target, ra, sub, relationDepth-1)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("EXISTS (SELECT 1 FROM %s %s WHERE %s.id = %s.%s AND %s)",
			target.Table, ra, ra, alias, localCol, inner))
	}

	if len(parts) == 0 {
		return "TRUE", nil
	}
	return strings.Join(parts, " AND "), nil
}

func (q *query) members(m domain.Model, alias string, v any, relationDepth int) ([]string, error) {
	var filters []map[string]any
	if single, ok := guard.AsMap(v); ok {
		filters = append(filters, single)
	} else if list, ok := guard.AsList(v); ok {
		for _, item := range list {
			f, ok := guard.AsMap(item)
			if !ok {
				return nil, fmt.Errorf("logical operator members must be objects")
			}
			filters = append(filters, f)
		}
	} else {
		return nil, fmt.Errorf("logical operator expects an object or list")
	}

	out := make([]string, 0, len(filters))
	for _, f := range filters {
		s, err := q.where(m, alias, f, relationDepth)
		if err != nil {
			return nil, err
		}
		out = append(out, "("+s+")")
	}
	return out, nil
}

func (q *query) condition(col string, v any) (string, error) {
	ops, ok := guard.AsMap(v)
	if !ok || !guard.IsOperatorMap(ops) {
		if ok {
			return "", fmt.Errorf("unexpected object in field condition")
		}
		if v == nil {
			return col + " IS NULL", nil
		}
		return col + " = " + q.param(v), nil
	}

	var parts []string
	for _, op := range sortedKeys(ops) {
		operand := ops[op]
		switch op {
		case guard.OpEquals:
			if operand == nil {
				parts = append(parts, col+" IS NULL")
			} else {
				parts = append(parts, col+" = "+q.param(operand))
			}
		case guard.OpNot:
			if operand == nil {
				parts = append(parts, col+" IS NOT NULL")
			} else {
				parts = append(parts, col+" IS DISTINCT FROM "+q.param(operand))
			}
		case guard.OpIn, guard.OpNotIn:
			list, ok := guard.AsList(operand)
			if !ok {
				return "", fmt.Errorf("%s expects a list", op)
			}
			expr := col + " = ANY(" + q.param(arrayParam(list)) + ")"
			if op == guard.OpNotIn {
				expr = "NOT (" + expr + ")"
			}
			parts = append(parts, expr)
		case guard.OpLt:
			parts = append(parts, col+" < "+q.param(operand))
		case guard.OpLte:
			parts = append(parts, col+" <= "+q.param(operand))
		case guard.OpGt:
			parts = append(parts, col+" > "+q.param(operand))
		case guard.OpGte:
			parts = append(parts, col+" >= "+q.param(operand))
		case guard.OpContains:
			parts = append(parts, col+" LIKE "+q.param("%"+escapeLike(cast.ToString(operand))+"%"))
		case guard.OpStartsWith:
			parts = append(parts, col+" LIKE "+q.param(escapeLike(cast.ToString(operand))+"%"))
		}
	}
	return strings.Join(parts, " AND "), nil
}

// arrayParam prefers a typed slice so pgx can encode it without a hint.
func arrayParam(list []any) any {
	strs := make([]string, 0, len(list))
	for _, item := range list {
		s, ok := item.(string)
		if !ok {
			return list
		}
		strs = append(strs, s)
	}
	return strs
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

func (q *query) orderBy(m domain.Model, alias string, orders []guard.Order) (string, error) {
	if len(orders) == 0 {
		return "", nil
	}
	terms := make([]string, 0, len(orders))
	for _, o := range orders {
		col, ok := m.Column(o.Field)
		if !ok {
			return "", fmt.Errorf("%s has no field %q", m.Name, o.Field)
		}
		dir := "ASC"
		if o.Desc {
			dir = "DESC"
		}
		terms = append(terms, fmt.Sprintf("%s.%s %s", alias, col, dir))
	}
	return " ORDER BY " + strings.Join(terms, ", "), nil
}

func (q *query) page(take, skip int) string {
	var s string
	if take > 0 {
		s += " LIMIT " + q.param(take)
	}
	if skip > 0 {
		s += " OFFSET " + q.param(skip)
	}
	return s
}

// dataColumns resolves a data payload into sorted columns and params.
func (q *query) dataColumns(m domain.Model, data map[string]any) ([]string, []string, error) {
	var cols, params []string
	for _, key := range sortedKeys(data) {
		col, ok := m.Column(key)
		if !ok {
			return nil, nil, fmt.Errorf("%s has no field %q", m.Name, key)
		}
		cols = append(cols, col)
		params = append(params, q.param(data[key]))
	}
	return cols, params, nil
}

func selectList(m domain.Model, alias string) string {
	return strings.Join(lo.Map(m.Columns(), func(c string, _ int) string {
		if alias == "" {
			return c
		}
		return alias + "." + c
	}), ", ")
}

// compile builds the SQL for op. bulk reports whether the statement returns
// only a command tag.
func compile(m domain.Model, op guard.Operation) (sql string, args []any, bulk bool, err error) {
	q := &query{}
	a := op.Args
	if a == nil {
		a = &guard.Args{}
	}
	cols := selectList(m, "")

	switch op.Action {
	case guard.ActionCreate:
		if len(a.Data) == 0 {
			return "", nil, false, fmt.Errorf("create %s: data is required", m.Name)
		}
		c, p, err := q.dataColumns(m, a.Data)
		if err != nil {
			return "", nil, false, err
		}
		sql = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			m.Table, strings.Join(c, ", "), strings.Join(p, ", "), cols)

	case guard.ActionUpdate, guard.ActionUpdateMany:
		set, err := q.setClause(m, a.Data)
		if err != nil {
			return "", nil, false, err
		}
		alias := q.alias()
		w, err := q.where(m, alias, a.Where, 1)
		if err != nil {
			return "", nil, false, err
		}
		if op.Action == guard.ActionUpdateMany {
			sql = fmt.Sprintf("UPDATE %s AS %s SET %s WHERE %s", m.Table, alias, set, w)
			return sql, q.args, true, nil
		}
		sql = fmt.Sprintf("UPDATE %s SET %s WHERE id = (SELECT %s.id FROM %s %s WHERE %s LIMIT 1) RETURNING %s",
			m.Table, set, alias, m.Table, alias, w, cols)

	case guard.ActionDelete, guard.ActionDeleteMany:
		alias := q.alias()
		w, err := q.where(m, alias, a.Where, 1)
		if err != nil {
			return "", nil, false, err
		}
		if op.Action == guard.ActionDeleteMany {
			sql = fmt.Sprintf("DELETE FROM %s AS %s WHERE %s", m.Table, alias, w)
			return sql, q.args, true, nil
		}
		sql = fmt.Sprintf("DELETE FROM %s WHERE id = (SELECT %s.id FROM %s %s WHERE %s LIMIT 1) RETURNING %s",
			m.Table, alias, m.Table, alias, w, cols)

	case guard.ActionUpsert:
		sql, err = q.upsert(m, a, cols)
		if err != nil {
			return "", nil, false, err
		}

	case guard.ActionFindUnique, guard.ActionFindFirst, guard.ActionFindMany:
		alias := q.alias()
		w, err := q.where(m, alias, a.Where, 1)
		if err != nil {
			return "", nil, false, err
		}
		order, err := q.orderBy(m, alias, a.OrderBy)
		if err != nil {
			return "", nil, false, err
		}
		take := a.Take
		if op.Action != guard.ActionFindMany {
			take = 1
		}
		sql = fmt.Sprintf("SELECT %s FROM %s %s WHERE %s%s%s",
			selectList(m, alias), m.Table, alias, w, order, q.page(take, a.Skip))

	case guard.ActionCount:
		alias := q.alias()
		w, err := q.where(m, alias, a.Where, 1)
		if err != nil {
			return "", nil, false, err
		}
		sql = fmt.Sprintf("SELECT count(*) AS _count FROM %s %s WHERE %s", m.Table, alias, w)

	case guard.ActionAggregate:
		sql, err = q.aggregate(m, a)
		if err != nil {
			return "", nil, false, err
		}
	}
	return sql, q.args, false, nil
}

func (q *query) setClause(m domain.Model, data map[string]any) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("update %s: data is required", m.Name)
	}
	c, p, err := q.dataColumns(m, lo.OmitByKeys(data, []string{"id", "createdAt", "updatedAt"}))
	if err != nil {
		return "", err
	}
	sets := make([]string, 0, len(c)+1)
	for i := range c {
		sets = append(sets, c[i]+" = "+p[i])
	}
	sets = append(sets, "updated_at = now()")
	return strings.Join(sets, ", "), nil
}

// upsert uses the where clause's scalar equalities as the conflict target;
// they must match a unique index.
func (q *query) upsert(m domain.Model, a *guard.Args, cols string) (string, error) {
	insert := map[string]any{}
	var conflict []string
	for _, key := range sortedKeys(a.Where) {
		v := a.Where[key]
		if _, isMap := guard.AsMap(v); isMap || v == nil {
			return "", fmt.Errorf("upsert %s: where must be scalar equalities", m.Name)
		}
		col, ok := m.Column(key)
		if !ok {
			return "", fmt.Errorf("%s has no field %q", m.Name, key)
		}
		conflict = append(conflict, col)
		insert[key] = v
	}
	if len(conflict) == 0 {
		return "", fmt.Errorf("upsert %s: where is required", m.Name)
	}
	for k, v := range a.Data {
		insert[k] = v
	}

	c, p, err := q.dataColumns(m, insert)
	if err != nil {
		return "", err
	}
	updates := lo.FilterMap(c, func(col string, _ int) (string, bool) {
		return col + " = EXCLUDED." + col, !lo.Contains(conflict, col) && col != "id" && col != "created_at"
	})
	updates = append(updates, "updated_at = now()")

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING %s",
		m.Table, strings.Join(c, ", "), strings.Join(p, ", "), strings.Join(conflict, ", "),
		strings.Join(updates, ", "), cols), nil
}

func (q *query) aggregate(m domain.Model, a *guard.Args) (string, error) {
	spec := a.Aggregate
	if spec == nil {
		spec = &guard.AggregateSpec{Count: true}
	}

	alias := q.alias()
	var exprs []string
	if spec.Count {
		exprs = append(exprs, "count(*) AS _count")
	}
	groups := []struct {
		fn     string
		fields []string
		cast   string
	}{
		{"sum", spec.Sum, "::float8"},
		{"avg", spec.Avg, "::float8"},
		{"min", spec.Min, ""},
		{"max", spec.Max, ""},
	}
	for _, g := range groups {
		for _, field := range g.fields {
			col, ok := m.Column(field)
			if !ok {
				return "", fmt.Errorf("%s has no field %q", m.Name, field)
			}
			exprs = append(exprs, fmt.Sprintf(`%s(%s.%s)%s AS "_%s.%s"`, g.fn, alias, col, g.cast, g.fn, field))
		}
	}
	if len(exprs) == 0 {
		return "", fmt.Errorf("aggregate %s: nothing selected", m.Name)
	}

	w, err := q.where(m, alias, a.Where, 1)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SELECT %s FROM %s %s WHERE %s", strings.Join(exprs, ", "), m.Table, alias, w), nil
}
