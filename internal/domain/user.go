package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is a member of a tenant, or a super-admin with no tenant.
type User struct {
	ID           uuid.UUID `json:"id"`
	TenantID     uuid.UUID `json:"tenantId"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	TenantRole   string    `json:"tenantRole"`
	IsSuperAdmin bool      `json:"isSuperAdmin"`
	APIKeyHash   string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`

	// TenantSlug is filled by authentication, not stored on the row.
	TenantSlug string `json:"tenantSlug,omitempty"`
}

// ToRecord omits tenantId so the guard scopes the write.
func (u *User) ToRecord() map[string]any {
	return map[string]any{
		"email":        u.Email,
		"name":         u.Name,
		"role":         u.Role,
		"tenantRole":   u.TenantRole,
		"isSuperAdmin": u.IsSuperAdmin,
		"apiKeyHash":   u.APIKeyHash,
	}
}
