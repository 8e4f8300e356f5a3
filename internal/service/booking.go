package service

import (
	"context"
	"errors"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/spf13/cast"
)

// BookingService manages bookings and their status transitions.
type BookingService struct {
	exec guard.Executor
}

func NewBookingService(exec guard.Executor) *BookingService {
	return &BookingService{exec: exec}
}

var (
	ErrBookingNotFound   = errors.New("booking not found")
	ErrBookingInvalid    = errors.New("booking requires a title and endsAt after startsAt")
	ErrBookingStatus     = errors.New("invalid booking status")
	ErrBookingTransition = errors.New("booking can no longer be changed")
)

// open statuses can still be cancelled or expire.
var openBookingStatuses = []domain.BookingStatus{domain.BookingPending, domain.BookingConfirmed}

func (s *BookingService) Create(ctx context.Context, b *domain.Booking) error {
	if b.Title == "" || !b.EndsAt.After(b.StartsAt) {
		return ErrBookingInvalid
	}
	if b.Status == "" {
		b.Status = domain.BookingPending
	}
	if !domain.ValidBookingStatus(b.Status) {
		return ErrBookingStatus
	}
	if err := s.requireClient(ctx, b.ClientID); err != nil {
		return err
	}

	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelBooking,
		Action: guard.ActionCreate,
		Args:   &guard.Args{Data: b.ToRecord()},
	})
	if err != nil {
		return err
	}
	return decodeInto(res, b)
}

func (s *BookingService) requireClient(ctx context.Context, clientID uuid.UUID) error {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelClient,
		Action: guard.ActionCount,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"id": clientID.String()})},
	})
	if err != nil {
		return err
	}
	if res.Count == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (s *BookingService) GetByID(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelBooking,
		Action: guard.ActionFindUnique,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"id": id.String()})},
	})
	if err != nil {
		return nil, err
	}
	row, ok := res.First()
	if !ok {
		return nil, ErrBookingNotFound
	}
	return store.Decode[domain.Booking](row)
}

// BookingFilter narrows List. Zero values are ignored.
type BookingFilter struct {
	Status     domain.BookingStatus
	ClientID   *uuid.UUID
	ClientName string
	From       *time.Time
	To         *time.Time
	Page
}

func (f BookingFilter) where() guard.Filter {
	where := guard.Filter{}
	if f.Status != "" {
		where["status"] = string(f.Status)
	}
	if f.ClientID != nil {
		where["clientId"] = f.ClientID.String()
	}
	if f.ClientName != "" {
		where["client"] = map[string]any{"name": map[string]any{guard.OpStartsWith: f.ClientName}}
	}
	startsAt := map[string]any{}
	if f.From != nil {
		startsAt[guard.OpGte] = f.From.UTC()
	}
	if f.To != nil {
		startsAt[guard.OpLt] = f.To.UTC()
	}
	if len(startsAt) > 0 {
		where["startsAt"] = startsAt
	}
	return where
}

func (s *BookingService) List(ctx context.Context, f BookingFilter) ([]*domain.Booking, error) {
	if f.Status != "" && !domain.ValidBookingStatus(f.Status) {
		return nil, ErrBookingStatus
	}
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelBooking,
		Action: guard.ActionFindMany,
		Args: &guard.Args{
			Where:   scoped(ctx, f.where()),
			OrderBy: []guard.Order{{Field: "startsAt"}},
			Take:    f.take(),
			Skip:    f.Skip,
		},
	})
	if err != nil {
		return nil, err
	}
	return store.DecodeAll[domain.Booking](res.Rows)
}

// BookingUpdate holds the fields a patch may change; nil means unchanged.
type BookingUpdate struct {
	Title    *string               `json:"title"`
	Notes    *string               `json:"notes"`
	Status   *domain.BookingStatus `json:"status"`
	StaffID  *uuid.UUID            `json:"staffId"`
	StartsAt *time.Time            `json:"startsAt"`
	EndsAt   *time.Time            `json:"endsAt"`
}

func (s *BookingService) Update(ctx context.Context, id uuid.UUID, u BookingUpdate) (*domain.Booking, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	data := guard.Record{}
	setIf(data, "title", u.Title)
	setIf(data, "notes", u.Notes)
	if u.Title != nil && *u.Title == "" {
		return nil, ErrBookingInvalid
	}
	if u.Status != nil {
		if !domain.ValidBookingStatus(*u.Status) {
			return nil, ErrBookingStatus
		}
		data["status"] = string(*u.Status)
	}
	if u.StaffID != nil {
		data["staffId"] = u.StaffID.String()
	}
	starts, ends := current.StartsAt, current.EndsAt
	if u.StartsAt != nil {
		starts = u.StartsAt.UTC()
		data["startsAt"] = starts
	}
	if u.EndsAt != nil {
		ends = u.EndsAt.UTC()
		data["endsAt"] = ends
	}
	if !ends.After(starts) {
		return nil, ErrBookingInvalid
	}
	if len(data) == 0 {
		return current, nil
	}

	return s.write(ctx, id, data)
}

// Cancel moves an open booking to CANCELLED.
func (s *BookingService) Cancel(ctx context.Context, id uuid.UUID) (*domain.Booking, error) {
	current, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lo.Contains(openBookingStatuses, current.Status) {
		return nil, ErrBookingTransition
	}
	return s.write(ctx, id, guard.Record{"status": string(domain.BookingCancelled)})
}

func (s *BookingService) write(ctx context.Context, id uuid.UUID, data guard.Record) (*domain.Booking, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelBooking,
		Action: guard.ActionUpdate,
		Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"id": id.String()}), Data: data},
	})
	if err != nil {
		return nil, notFound(err, ErrBookingNotFound)
	}
	b := &domain.Booking{}
	return b, decodeInto(res, b)
}

// CancelAllForTenant cancels every open booking of tenantID. Only a
// super-admin may target a tenant other than their own; the guard enforces it.
func (s *BookingService) CancelAllForTenant(ctx context.Context, tenantID uuid.UUID) (int64, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelBooking,
		Action: guard.ActionUpdateMany,
		Args: &guard.Args{
			Where: guard.Filter{
				guard.TenantField: tenantID.String(),
				"status":          map[string]any{guard.OpIn: statusStrings(openBookingStatuses)},
			},
			Data: guard.Record{"status": string(domain.BookingCancelled)},
		},
	})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

// ExpirePending marks tenantID's pending bookings that started before now as
// EXPIRED.
func (s *BookingService) ExpirePending(ctx context.Context, tenantID string, now time.Time) (int64, error) {
	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelBooking,
		Action: guard.ActionUpdateMany,
		Args: &guard.Args{
			Where: guard.Filter{
				guard.TenantField: tenantID,
				"status":          string(domain.BookingPending),
				"startsAt":        map[string]any{guard.OpLt: now.UTC()},
			},
			Data: guard.Record{"status": string(domain.BookingExpired)},
		},
	})
	if err != nil {
		return 0, err
	}
	return res.Count, nil
}

var allBookingStatuses = []domain.BookingStatus{
	domain.BookingPending, domain.BookingConfirmed, domain.BookingCompleted,
	domain.BookingCancelled, domain.BookingExpired,
}

func (s *BookingService) Stats(ctx context.Context) (*domain.BookingStats, error) {
	stats := &domain.BookingStats{ByStatus: make(map[string]int64, len(allBookingStatuses))}

	for _, st := range allBookingStatuses {
		res, err := s.exec.Execute(ctx, guard.Operation{
			Model:  domain.ModelBooking,
			Action: guard.ActionCount,
			Args:   &guard.Args{Where: scoped(ctx, guard.Filter{"status": string(st)})},
		})
		if err != nil {
			return nil, err
		}
		stats.ByStatus[string(st)] = res.Count
	}

	res, err := s.exec.Execute(ctx, guard.Operation{
		Model:  domain.ModelBooking,
		Action: guard.ActionAggregate,
		Args: &guard.Args{
			Where:     scoped(ctx, nil),
			Aggregate: &guard.AggregateSpec{Count: true, Min: []string{"startsAt"}, Max: []string{"startsAt"}},
		},
	})
	if err != nil {
		return nil, err
	}
	stats.Total = res.Count
	stats.FirstStart = aggregateTime(res.Aggregate, "_min", "startsAt")
	stats.LastStart = aggregateTime(res.Aggregate, "_max", "startsAt")
	return stats, nil
}

func aggregateTime(agg guard.Record, group, field string) *time.Time {
	sub, ok := guard.AsMap(agg[group])
	if !ok || sub[field] == nil {
		return nil
	}
	t, err := cast.ToTimeE(sub[field])
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}

func statusStrings[S ~string](in []S) []string {
	return lo.Map(in, func(s S, _ int) string { return string(s) })
}
