package store

import (
	"context"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/google/uuid"
)

// AuthStore resolves API keys to users before any tenant is known, so it
// runs on the unguarded executor. Nothing else may hold that executor.
type AuthStore struct {
	exec guard.Executor
}

// NewAuthStore must be given the raw executor, never the guarded one.
func NewAuthStore(raw guard.Executor) *AuthStore {
	return &AuthStore{exec: raw}
}

func (s *AuthStore) GetUserByAPIKeyHash(ctx context.Context, apiKeyHash string) (*domain.User, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelUser,
		Action: guard.ActionFindUnique,
		Args:   &guard.Args{Where: guard.Filter{"apiKeyHash": apiKeyHash}},
	})
	if err != nil {
		return nil, err
	}
	row, ok := res.First()
	if !ok {
		return nil, ErrNotFound
	}
	u, err := Decode[domain.User](row)
	if err != nil {
		return nil, err
	}
	if u.TenantID == uuid.Nil {
		return u, nil
	}

	res, err = s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelTenant,
		Action: guard.ActionFindUnique,
		Args:   &guard.Args{Where: guard.Filter{"id": u.TenantID.String()}},
	})
	if err != nil {
		return nil, err
	}
	if t, ok := res.First(); ok {
		u.TenantSlug, _ = guard.TenantString(t["slug"])
	}
	return u, nil
}
