package store

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/practicedesk/internal/audit"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

var auditColumns = []string{"level", "message", "fields", "tenant_id", "user_id", "request_id", "created_at"}

// AuditStore persists the guard's audit trail.
type AuditStore struct {
	db *pgxpool.Pool
}

// NewAuditStore writes to the audit_events table.
func NewAuditStore(db *pgxpool.Pool) *AuditStore {
	return &AuditStore{db: db}
}

func (s *AuditStore) InsertEntries(ctx context.Context, entries []audit.Entry) error {
	_, err := s.db.CopyFrom(ctx, pgx.Identifier{"audit_events"}, auditColumns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			return auditRow(entries[i]), nil
		}))
	return err
}

func auditRow(e audit.Entry) []any {
	fields := map[string]any(e.Fields)
	if fields == nil {
		fields = map[string]any{}
	}
	return []any{e.Level, e.Message, fields, nullableUUID(e.TenantID), nullableText(e.UserID), nullableText(e.RequestID), e.CreatedAt}
}

func nullableUUID(s string) pgtype.UUID {
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}

func nullableText(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: s != ""}
}

// AuditLog keeps entries in memory for the memory driver.
type AuditLog struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (l *AuditLog) InsertEntries(_ context.Context, entries []audit.Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entries...)
	return nil
}

// Entries returns a copy of everything written so far.
func (l *AuditLog) Entries() []audit.Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]audit.Entry(nil), l.entries...)
}
