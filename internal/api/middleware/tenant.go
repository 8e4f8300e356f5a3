package middleware

import (
	"net/http"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// TenantHeader lets a super-admin act inside a specific tenant.
const TenantHeader = "X-Tenant-ID"

// BindTenant builds the request's tenancy.Context from the authenticated
// principal. X-Tenant-ID is honoured only for super-admins; anyone else
// naming a different tenant is refused and the attempt is logged.
func BindTenant(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := PrincipalFromContext(r.Context())
			if user == nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			requestID := RequestIDFromContext(r.Context())

			var tenantID *string
			slug := ""
			if user.TenantID != uuid.Nil {
				id := user.TenantID.String()
				tenantID = &id
				slug = user.TenantSlug
			}

			if h := r.Header.Get(TenantHeader); h != "" && (tenantID == nil || h != *tenantID) {
				if !user.IsSuperAdmin {
					logger.Error("tenant header rejected",
						zap.String("user_id", user.ID.String()),
						zap.String("session_tenant_id", user.TenantID.String()),
						zap.String("requested_tenant_id", h),
						zap.String("request_id", requestID))
					writeError(w, http.StatusForbidden, "tenant override not permitted")
					return
				}
				if _, err := uuid.Parse(h); err != nil {
					writeError(w, http.StatusBadRequest, "invalid "+TenantHeader)
					return
				}
				tenantID = &h
				// The override tenant's slug is not looked up.
				slug = ""
			}

			tc := tenancy.Context{
				TenantID:     tenantID,
				TenantSlug:   slug,
				UserID:       user.ID.String(),
				Role:         user.Role,
				TenantRole:   user.TenantRole,
				IsSuperAdmin: user.IsSuperAdmin,
				RequestID:    requestID,
				Timestamp:    time.Now().UTC(),
			}
			annotate(r.Context(), tc.Tenant(), tc.UserID)
			next.ServeHTTP(w, r.WithContext(tenancy.With(r.Context(), tc)))
		})
	}
}

// RequireRole lets through only principals with one of roles. Super-admins
// always pass.
func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tc, ok := tenancy.Current(r.Context())
			if !ok {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			if !tc.IsSuperAdmin && !lo.Contains(roles, tc.Role) {
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
