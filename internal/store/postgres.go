package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// Querier is the subset of pgxpool.Pool the executor needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGExecutor runs operations against Postgres. It knows nothing about
// tenants; wrap it in a guard.Guard.
type PGExecutor struct {
	db Querier
}

// NewPGExecutor runs operations on db, usually a *pgxpool.Pool.
func NewPGExecutor(db Querier) *PGExecutor {
	return &PGExecutor{db: db}
}

func (e *PGExecutor) Execute(ctx context.Context, op guard.Operation) (guard.Result, error) {
	m, err := domain.LookupModel(op.Model)
	if err != nil {
		return guard.Result{}, err
	}

	sql, args, bulk, err := compile(m, op)
	if err != nil {
		return guard.Result{}, err
	}

	if bulk {
		tag, err := e.db.Exec(ctx, sql, args...)
		if err != nil {
			return guard.Result{}, mapPGError(err)
		}
		return guard.Result{Count: tag.RowsAffected()}, nil
	}

	rows, err := e.db.Query(ctx, sql, args...)
	if err != nil {
		return guard.Result{}, mapPGError(err)
	}
	maps, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return guard.Result{}, mapPGError(err)
	}

	switch op.Action {
	case guard.ActionCount:
		if len(maps) == 0 {
			return guard.Result{}, nil
		}
		n, _ := maps[0]["_count"].(int64)
		return guard.Result{Count: n}, nil
	case guard.ActionAggregate:
		if len(maps) == 0 {
			return guard.Result{Aggregate: guard.Record{}}, nil
		}
		return aggregateResult(maps[0]), nil
	case guard.ActionUpdate, guard.ActionDelete:
		if len(maps) == 0 {
			return guard.Result{}, ErrNotFound
		}
	}

	out := guard.Result{Rows: make([]guard.Record, 0, len(maps))}
	for _, row := range maps {
		out.Rows = append(out.Rows, toRecord(m, row))
	}
	out.Count = int64(len(out.Rows))
	return out, nil
}

func mapPGError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrConflict, pgErr.ConstraintName)
	}
	return err
}

func toRecord(m domain.Model, row map[string]any) guard.Record {
	rec := make(guard.Record, len(row))
	for col, v := range row {
		name, ok := m.FieldForColumn(col)
		if !ok {
			name = col
		}
		rec[name] = normalize(v)
	}
	return rec
}

// normalize converts driver values into the shapes the rest of the code
// expects: uuid columns come back from RowToMap as raw bytes.
func normalize(v any) any {
	switch t := v.(type) {
	case [16]uint8:
		return uuid.UUID(t).String()
	case pgtype.Numeric:
		f, err := t.Float64Value()
		if err != nil || !f.Valid {
			return nil
		}
		return f.Float64
	default:
		return v
	}
}

// aggregateResult folds "_sum.field" style columns into nested records.
func aggregateResult(row map[string]any) guard.Result {
	agg := guard.Record{}
	var count int64
	for col, v := range row {
		if col == "_count" {
			count, _ = v.(int64)
			agg["_count"] = count
			continue
		}
		group, field, ok := strings.Cut(col, ".")
		if !ok {
			continue
		}
		sub, _ := agg[group].(guard.Record)
		if sub == nil {
			sub = guard.Record{}
			agg[group] = sub
		}
		sub[field] = normalize(v)
	}
	return guard.Result{Count: count, Aggregate: agg}
}
