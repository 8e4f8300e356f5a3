package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/service"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusFor maps service, store and guard errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, guard.ErrConfiguration):
		return http.StatusInternalServerError
	case errors.Is(err, guard.ErrTenantMismatch):
		return http.StatusBadRequest
	case errors.Is(err, guard.ErrUnscopedBulkMutation):
		return http.StatusForbidden
	case errors.Is(err, service.ErrNoTenant):
		return http.StatusBadRequest
	case errors.Is(err, store.ErrNotFound),
		errors.Is(err, service.ErrTenantNotFound),
		errors.Is(err, service.ErrClientNotFound),
		errors.Is(err, service.ErrBookingNotFound),
		errors.Is(err, service.ErrServiceRequestNotFound),
		errors.Is(err, service.ErrSettingNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrConflict),
		errors.Is(err, service.ErrTenantConflict),
		errors.Is(err, service.ErrBookingTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrTenantInvalid),
		errors.Is(err, service.ErrClientInvalid),
		errors.Is(err, service.ErrBookingInvalid),
		errors.Is(err, service.ErrBookingStatus),
		errors.Is(err, service.ErrServiceRequestInvalid),
		errors.Is(err, service.ErrServiceRequestStatus),
		errors.Is(err, service.ErrSettingKey):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// writeServiceError writes err with its mapped status. Internal errors are
// replaced by fallback so storage details never reach the client.
func writeServiceError(w http.ResponseWriter, err error, fallback string) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		writeError(w, status, fallback)
		return
	}
	writeError(w, status, err.Error())
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request, param, what string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid "+what+" id")
		return uuid.Nil, false
	}
	return id, true
}

// pageFromQuery reads ?limit= and ?offset=.
func pageFromQuery(w http.ResponseWriter, r *http.Request) (service.Page, bool) {
	var p service.Page
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return p, false
		}
		p.Take = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid offset")
			return p, false
		}
		p.Skip = n
	}
	return p, true
}
