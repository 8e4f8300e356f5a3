package domain

import (
	"time"

	"github.com/google/uuid"
)

// ServiceRequestStatus is the lifecycle state of a service request.
type ServiceRequestStatus string

const (
	RequestOpen       ServiceRequestStatus = "OPEN"
	RequestInProgress ServiceRequestStatus = "IN_PROGRESS"
	RequestCompleted  ServiceRequestStatus = "COMPLETED"
	RequestCancelled  ServiceRequestStatus = "CANCELLED"
)

func ValidServiceRequestStatus(s ServiceRequestStatus) bool {
	switch s {
	case RequestOpen, RequestInProgress, RequestCompleted, RequestCancelled:
		return true
	}
	return false
}

// ServiceRequest is a piece of accounting work a client asked for
// (bookkeeping, a tax return, payroll).
type ServiceRequest struct {
	ID          uuid.UUID            `json:"id"`
	TenantID    uuid.UUID            `json:"tenantId"`
	ClientID    uuid.UUID            `json:"clientId"`
	Title       string               `json:"title"`
	Description string               `json:"description,omitempty"`
	Status      ServiceRequestStatus `json:"status"`
	FeeCents    int64                `json:"feeCents"`
	CreatedAt   time.Time            `json:"createdAt"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

func (r *ServiceRequest) ToRecord() map[string]any {
	return map[string]any{
		"clientId":    r.ClientID.String(),
		"title":       r.Title,
		"description": r.Description,
		"status":      string(r.Status),
		"feeCents":    r.FeeCents,
	}
}
