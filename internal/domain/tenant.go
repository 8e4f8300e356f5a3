package domain

import (
	"time"

	"github.com/google/uuid"
)

// Tenant is one practice.
type Tenant struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func (t *Tenant) ToRecord() map[string]any {
	return map[string]any{
		"name": t.Name,
		"slug": t.Slug,
	}
}
