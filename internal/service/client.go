package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"github.com/google/uuid"
)

// ClientService manages a tenant's clients.
type ClientService struct {
	exec guard.Executor
}

func NewClientService(exec guard.Executor) *ClientService {
	return &ClientService{exec: exec}
}

var (
	ErrClientNotFound = errors.New("client not found")
	ErrClientInvalid  = errors.New("client name is required")
)

func (s *ClientService) Create(ctx context.Context, c *domain.Client) error {
	if c.Name == "" {
		return ErrClientInvalid
	}
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelClient,
		Action: guard.ActionCreate,
		Args:   &guard.Args{Data: c.ToRecord()},
	})
	if err != nil {
		return err
	}
	return decodeInto(res, c)
}

func (s *ClientService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Client, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelClient,
		Action: guard.ActionFindUnique,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"id": id.String()})},
	})
	if err != nil {
		return nil, err
	}
	row, ok := res.First()
	if !ok {
		return nil, ErrClientNotFound
	}
	return store.Decode[domain.Client](row)
}

// List returns clients ordered by name. A non-empty search matches the start
// of the name.
func (s *ClientService) List(ctx context.Context, search string, page Page) ([]*domain.Client, error) {
	where := guard.Filter{}
	if search != "" {
		where["name"] = map[string]any{guard.OpStartsWith: search}
	}
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelClient,
		Action: guard.ActionFindMany,
		Args: &guard.Args{
			Where:   scoped(ctx, where),
			OrderBy: []guard.Order{{Field: "name"}},
			Take:    page.take(),
			Skip:    page.Skip,
		},
	})
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[domain.Client](res.Rows)
}

// ClientUpdate holds the fields a patch may change; nil means unchanged.
type ClientUpdate struct {
	Name          *string `json:"name"`
	Email         *string `json:"email"`
	Phone         *string `json:"phone"`
	CompanyNumber *string `json:"companyNumber"`
}

func (u ClientUpdate) record() guard.Record {
	rec := guard.Record{}
	setIf(rec, "name", u.Name)
	setIf(rec, "email", u.Email)
	setIf(rec, "phone", u.Phone)
	setIf(rec, "companyNumber", u.CompanyNumber)
	return rec
}

func (s *ClientService) Update(ctx context.Context, id uuid.UUID, u ClientUpdate) (*domain.Client, error) {
	data := u.record()
	if len(data) == 0 {
		return s.GetByID(ctx, id)
	}
	if u.Name != nil && *u.Name == "" {
		return nil, ErrClientInvalid
	}
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelClient,
		Action: guard.ActionUpdate,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"id": id.String()}), Data: data},
	})
	if err != nil {
		return nil, notFound(err, ErrClientNotFound)
	}
	c := &domain.Client{}
	return c, decodeInto(res, c)
}

func (s *ClientService) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelClient,
		Action: guard.ActionDelete,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"id": id.String()})},
	})
	return notFound(err, ErrClientNotFound)
}

func setIf[T any](rec guard.Record, key string, v *T) {
	if v != nil {
		rec[key] = *v
	}
}

// decodeInto overwrites dst with the first returned row.
func decodeInto[T any](res guard.Result, dst *T) error {
	row, ok := res.First()
	if !ok {
		return store.ErrNotFound
	}
	v, err := store.Decode[T](row)
	if err != nil {
		return err
	}
	*dst = *v
	return nil
}
