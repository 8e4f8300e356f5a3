package service

import (
	"context"
	"errors"
	"regexp"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/store"
)

// SettingService stores per-tenant key/value settings.
type SettingService struct {
	exec guard.Executor
}

func NewSettingService(exec guard.Executor) *SettingService {
	return &SettingService{exec: exec}
}

var (
	ErrSettingNotFound = errors.New("setting not found")
	ErrSettingKey      = errors.New("setting key must be 1-64 characters of a-z, 0-9, '.', '_' or '-'")
)

var settingKeyPattern = regexp.MustCompile(`^[a-z0-9._-]{1,64}$`)

func (s *SettingService) List(ctx context.Context) ([]*domain.Setting, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelSetting,
		Action: guard.ActionFindMany,
		Args: &guard.Args{
			Where:   scoped(ctx, nil),
			OrderBy: []guard.Order{{Field: "key"}},
		},
	})
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[domain.Setting](res.Rows)
}

func (s *SettingService) Get(ctx context.Context, key string) (*domain.Setting, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelSetting,
		Action: guard.ActionFindFirst,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"key": key})},
	})
	if err != nil {
		return nil, err
	}
	row, ok := res.First()
	if !ok {
		return nil, ErrSettingNotFound
	}
	return store.Decode[domain.Setting](row)
}

// Put creates or replaces the setting. Settings are per tenant, so a caller
// without a bound tenant cannot write one.
func (s *SettingService) Put(ctx context.Context, key, value string) (*domain.Setting, error) {
	if !settingKeyPattern.MatchString(key) {
		return nil, ErrSettingKey
	}
	tenantID, err := currentTenant(ctx)
	if err != nil {
		return nil, err
	}
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelSetting,
		Action: guard.ActionUpsert,
		Args: &guard.Args{
			Where: guard.Filter{guard.TenantField: tenantID, "key": key},
			Data:  guard.Record{"value": value},
		},
	})
	if err != nil {
		return nil, err
	}
	st := &domain.Setting{}
	return st, decodeInto(res, st)
}

func (s *SettingService) Delete(ctx context.Context, key string) error {
	_, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelSetting,
		Action: guard.ActionDelete,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"key": key})},
	})
	return notFound(err, ErrSettingNotFound)
}
