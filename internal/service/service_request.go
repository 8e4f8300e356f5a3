package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cast"
)

// ServiceRequestService manages service requests and their revenue.
type ServiceRequestService struct {
	exec guard.Executor
}

func NewServiceRequestService(exec guard.Executor) *ServiceRequestService {
	return &ServiceRequestService{exec: exec}
}

var (
	ErrServiceRequestNotFound = errors.New("service request not found")
	ErrServiceRequestInvalid  = errors.New("service request requires a title and a non-negative fee")
	ErrServiceRequestStatus   = errors.New("invalid service request status")
)

func (s *ServiceRequestService) Create(ctx context.Context, r *domain.ServiceRequest) error {
	if r.Title == "" || r.FeeCents < 0 {
		return ErrServiceRequestInvalid
	}
	if r.Status == "" {
		r.Status = domain.RequestOpen
	}
	if !domain.ValidServiceRequestStatus(r.Status) {
		return ErrServiceRequestStatus
	}

	// The client must belong to the caller's tenant.
	count, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelClient,
		Action: guard.ActionCount,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"id": r.ClientID.String()})},
	})
	if err != nil {
		return err
	}
	if count.Count == 0 {
		return ErrClientNotFound
	}

	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelServiceRequest,
		Action: guard.ActionCreate,
		Args:   &guard.Args{Data: r.ToRecord()},
	})
	if err != nil {
		return err
	}
	return decodeInto(res, r)
}

func (s *ServiceRequestService) GetByID(ctx context.Context, id uuid.UUID) (*domain.ServiceRequest, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelServiceRequest,
		Action: guard.ActionFindUnique,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"id": id.String()})},
	})
	if err != nil {
		return nil, err
	}
	row, ok := res.First()
	if !ok {
		return nil, ErrServiceRequestNotFound
	}
	return store.Decode[domain.ServiceRequest](row)
}

// List returns newest requests first, optionally limited to one status or
// one client.
func (s *ServiceRequestService) List(ctx context.Context, status domain.ServiceRequestStatus, clientID *uuid.UUID, page Page) ([]*domain.ServiceRequest, error) {
	where := guard.Filter{}
	if status != "" {
		if !domain.ValidServiceRequestStatus(status) {
			return nil, ErrServiceRequestStatus
		}
		where["status"] = string(status)
	}
	if clientID != nil {
		where["client"] = map[string]any{guard.KeyIs: map[string]any{"id": clientID.String()}}
	}
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelServiceRequest,
		Action: guard.ActionFindMany,
		Args: &guard.Args{
			Where:   scoped(ctx, where),
			OrderBy: []guard.Order{{Field: "createdAt", Desc: true}},
			Take:    page.take(),
			Skip:    page.Skip,
		},
	})
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[domain.ServiceRequest](res.Rows)
}

func (s *ServiceRequestService) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ServiceRequestStatus) (*domain.ServiceRequest, error) {
	if !domain.ValidServiceRequestStatus(status) {
		return nil, ErrServiceRequestStatus
	}
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelServiceRequest,
		Action: guard.ActionUpdate,
		Args: &guard.Args{
			Where: scoped(ctx, guard.Filter{"id": id.String()}),
			Data:  guard.Record{"status": string(status)},
		},
	})
	if err != nil {
		return nil, notFound(err, ErrServiceRequestNotFound)
	}
	r := &domain.ServiceRequest{}
	return r, decodeInto(res, r)
}

func (s *ServiceRequestService) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelServiceRequest,
		Action: guard.ActionDelete,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"id": id.String()})},
	})
	return notFound(err, ErrServiceRequestNotFound)
}

// RevenueSummary totals the fees of completed requests.
type RevenueSummary struct {
	Completed    int64   `json:"completed"`
	TotalCents   int64   `json:"totalCents"`
	AverageCents float64 `json:"averageCents"`
	LargestCents int64   `json:"largestCents"`
}

func (s *ServiceRequestService) Revenue(ctx context.Context) (*RevenueSummary, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelServiceRequest,
		Action: guard.ActionAggregate,
		Args: &guard.Args{
			Where: scoped(ctx, guard.Filter{"status": string(domain.RequestCompleted)}),
			Aggregate: &guard.AggregateSpec{
				Count: true,
				Sum:   []string{"feeCents"},
				Avg:   []string{"feeCents"},
				Max:   []string{"feeCents"},
			},
		},
	})
	if err != nil {
		return nil, err
	}
	return &RevenueSummary{
		Completed:    res.Count,
		TotalCents:   cast.ToInt64(aggregateValue(res.Aggregate, "_sum", "feeCents")),
		AverageCents: cast.ToFloat64(aggregateValue(res.Aggregate, "_avg", "feeCents")),
		LargestCents: cast.ToInt64(aggregateValue(res.Aggregate, "_max", "feeCents")),
	}, nil
}

func aggregateValue(agg guard.Record, group, field string) any {
	sub, ok := guard.AsMap(agg[group])
	if !ok {
		return nil
	}
	return sub[field]
}
