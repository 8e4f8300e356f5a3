package domain

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking.
type BookingStatus string

const (
	BookingPending   BookingStatus = "PENDING"
	BookingConfirmed BookingStatus = "CONFIRMED"
	BookingCompleted BookingStatus = "COMPLETED"
	BookingCancelled BookingStatus = "CANCELLED"
	BookingExpired   BookingStatus = "EXPIRED"
)

func ValidBookingStatus(s BookingStatus) bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCompleted, BookingCancelled, BookingExpired:
		return true
	}
	return false
}

// Booking is an appointment between a client and a staff member.
type Booking struct {
	ID        uuid.UUID     `json:"id"`
	TenantID  uuid.UUID     `json:"tenantId"`
	ClientID  uuid.UUID     `json:"clientId"`
	StaffID   *uuid.UUID    `json:"staffId,omitempty"`
	Title     string        `json:"title"`
	Status    BookingStatus `json:"status"`
	StartsAt  time.Time     `json:"startsAt"`
	EndsAt    time.Time     `json:"endsAt"`
	Notes     string        `json:"notes,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}

func (b *Booking) ToRecord() map[string]any {
	rec := map[string]any{
		"clientId": b.ClientID.String(),
		"title":    b.Title,
		"status":   string(b.Status),
		"startsAt": b.StartsAt.UTC(),
		"endsAt":   b.EndsAt.UTC(),
		"notes":    b.Notes,
	}
	if b.StaffID != nil {
		rec["staffId"] = b.StaffID.String()
	}
	return rec
}

// BookingStats summarises a tenant's bookings.
type BookingStats struct {
	Total      int64            `json:"total"`
	ByStatus   map[string]int64 `json:"byStatus"`
	FirstStart *time.Time       `json:"firstStart,omitempty"`
	LastStart  *time.Time       `json:"lastStart,omitempty"`
}
