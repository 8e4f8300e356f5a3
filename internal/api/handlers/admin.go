package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/practicedesk/internal/service"
)

// AdminHandler serves operator endpoints that may reach across tenants.
type AdminHandler struct {
	bookings *service.BookingService
}

func NewAdminHandler(bookings *service.BookingService) *AdminHandler {
	return &AdminHandler{bookings: bookings}
}

// CancelTenantBookings cancels every open booking of {tenantID}. Callers
// that are not super-admins may only name their own tenant.
func (h *AdminHandler) CancelTenantBookings(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := pathID(w, r, "tenantID", "tenant")
	if !ok {
		return
	}

	n, err := h.bookings.CancelAllForTenant(r.Context(), tenantID)
	if err != nil {
		writeServiceError(w, err, "failed to cancel bookings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tenantId": tenantID, "cancelled": n})
}
