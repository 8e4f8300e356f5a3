package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/practicedesk/internal/api/middleware"
	"github.com/Harshitk-cp/practicedesk/internal/service"
	"github.com/Harshitk-cp/practicedesk/internal/tenancy"
)

// TenantHandler serves tenant bootstrap and the current tenant.
type TenantHandler struct {
	svc *service.TenantService
}

func NewTenantHandler(svc *service.TenantService) *TenantHandler {
	return &TenantHandler{svc: svc}
}

type createTenantRequest struct {
	Name       string `json:"name"`
	Slug       string `json:"slug"`
	OwnerEmail string `json:"ownerEmail"`
	OwnerName  string `json:"ownerName"`
}

// Create bootstraps a tenant with its owner. The owner's API key is in the
// response and nowhere else.
func (h *TenantHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createTenantRequest
	if !decodeBody(w, r, &req) {
		return
	}

	result, err := h.svc.Bootstrap(r.Context(), service.BootstrapRequest{
		Name:       req.Name,
		Slug:       req.Slug,
		OwnerEmail: req.OwnerEmail,
		OwnerName:  req.OwnerName,
		RequestID:  middleware.RequestIDFromContext(r.Context()),
	})
	if err != nil {
		writeServiceError(w, err, "failed to create tenant")
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Current returns the tenant the request is bound to.
func (h *TenantHandler) Current(w http.ResponseWriter, r *http.Request) {
	tc, ok := tenancy.Current(r.Context())
	if !ok || !tc.HasTenant() {
		writeError(w, http.StatusBadRequest, service.ErrNoTenant.Error())
		return
	}

	tenant, err := h.svc.GetByID(r.Context(), tc.Tenant())
	if err != nil {
		writeServiceError(w, err, "failed to get tenant")
		return
	}

	writeJSON(w, http.StatusOK, tenant)
}
