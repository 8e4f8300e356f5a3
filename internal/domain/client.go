package domain

import (
	"time"

	"github.com/google/uuid"
)

// Client is a customer of the practice.
type Client struct {
	ID            uuid.UUID `json:"id"`
	TenantID      uuid.UUID `json:"tenantId"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone,omitempty"`
	CompanyNumber string    `json:"companyNumber,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

func (c *Client) ToRecord() map[string]any {
	return map[string]any{
		"name":          c.Name,
		"email":         c.Email,
		"phone":         c.Phone,
		"companyNumber": c.CompanyNumber,
	}
}
