package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"regexp"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"go.uber.org/zap"
)

// TenantService creates and reads tenants.
type TenantService struct {
	exec   guard.Executor
	logger *zap.Logger
}

// NewTenantService expects the guarded executor.
func NewTenantService(exec guard.Executor, logger *zap.Logger) *TenantService {
	return &TenantService{exec: exec, logger: logger}
}

var (
	ErrTenantNotFound = errors.New("tenant not found")
	ErrTenantConflict = errors.New("tenant with this slug already exists")
	ErrTenantInvalid  = errors.New("tenant requires a name, a lowercase slug and an owner email")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,62}$`)

// BootstrapRequest describes a new tenant and its first user.
type BootstrapRequest struct {
	Name       string
	Slug       string
	OwnerEmail string
	OwnerName  string
	RequestID  string
}

// Bootstrap is the result of creating a tenant. APIKey is only ever
// returned here; just its hash is stored.
type Bootstrap struct {
	Tenant *domain.Tenant `json:"tenant"`
	Owner  *domain.User   `json:"owner"`
	APIKey string         `json:"apiKey"`
}

// Bootstrap creates a tenant and its owner. It runs before any caller
// identity exists, so the tenant row is written under a system context and
// the owner under a context bound to the new tenant.
func (s *TenantService) Bootstrap(ctx context.Context, req BootstrapRequest) (*Bootstrap, error) {
	if req.Name == "" || req.OwnerEmail == "" || !slugPattern.MatchString(req.Slug) {
		return nil, ErrTenantInvalid
	}

	apiKey, err := GenerateAPIKey()
	if err != nil {
		return nil, err
	}

	return tenancy.RunValue(ctx, tenancy.System(req.RequestID), func(ctx context.Context) (*Bootstrap, error) {
		t := &domain.Tenant{Name: req.Name, Slug: req.Slug}
		res, err := s.exec.Execute(ctx, guard.Operation{
			Model:  domain.ModelTenant,
			Action: guard.ActionCreate,
			Args:   &guard.Args{Data: t.ToRecord()},
		})
		if err != nil {
			if errors.Is(err, store.ErrConflict) {
				return nil, ErrTenantConflict
			}
			return nil, err
		}
		if err := decodeInto(res, t); err != nil {
			return nil, err
		}

		owner := &domain.User{
			Email:      req.OwnerEmail,
			Name:       req.OwnerName,
			Role:       tenancy.RoleAdmin,
			TenantRole: tenancy.TenantRoleOwner,
			APIKeyHash: HashAPIKey(apiKey),
		}
		bound := tenancy.ForTenant(t.ID.String(), "system", tenancy.RoleAdmin, tenancy.TenantRoleOwner, req.RequestID)
		err = tenancy.Run(ctx, bound, func(ctx context.Context) error {
			res, err := s.exec.Execute(ctx, guard.Operation{
				Model:  domain.ModelUser,
				Action: guard.ActionCreate,
				Args:   &guard.Args{Data: owner.ToRecord()},
			})
			if err != nil {
				return err
			}
			return decodeInto(res, owner)
		})
		if err != nil {
			s.discard(ctx, t)
			return nil, err
		}

		s.logger.Info("tenant bootstrapped",
			zap.String("tenant_id", t.ID.String()),
			zap.String("slug", t.Slug),
			zap.String("owner_id", owner.ID.String()))
		return &Bootstrap{Tenant: t, Owner: owner, APIKey: apiKey}, nil
	})
}

// discard removes a tenant whose owner could not be created.
func (s *TenantService) discard(ctx context.Context, t *domain.Tenant) {
	_, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelTenant,
		Action: guard.ActionDelete,
		Args:   &guard.Args{Where: guard.Filter{"id": t.ID.String()}},
	})
	if err != nil {
		s.logger.Error("failed to remove half-created tenant", zap.String("tenant_id", t.ID.String()), zap.Error(err))
	}
}

func (s *TenantService) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelTenant,
		Action: guard.ActionFindUnique,
		Args:   &guard.Args{Where: guard.Filter{"id": id}},
	})
	if err != nil {
		return nil, err
	}
	row, ok := res.First()
	if !ok {
		return nil, ErrTenantNotFound
	}
	return store.Decode[domain.Tenant](row)
}

// ListIDs returns every tenant id, for background jobs.
func (s *TenantService) ListIDs(ctx context.Context) ([]string, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelTenant,
		Action: guard.ActionFindMany,
		Args:   &guard.Args{OrderBy: []guard.Order{{Field: "createdAt"}}},
	})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		if id, ok := guard.TenantString(row["id"]); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GenerateAPIKey returns a new random API key.
func GenerateAPIKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return "pd_" + hex.EncodeToString(b), nil
}

// HashAPIKey is the form API keys are stored and looked up in.
func HashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
