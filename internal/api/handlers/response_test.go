package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/Harshitk-cp/practicedesk/internal/guard"
	"github.com/Harshitk-cp/practicedesk/internal/service"
	"github.com/Harshitk-cp/practicedesk/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&guard.Error{Kind: guard.KindTenantMismatch}, http.StatusBadRequest},
		{&guard.Error{Kind: guard.KindUnscopedBulkMutation}, http.StatusForbidden},
		{&guard.Error{Kind: guard.KindConfiguration}, http.StatusInternalServerError},
		{service.ErrBookingNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", store.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: settings_tenant_id_key_key", store.ErrConflict), http.StatusConflict},
		{service.ErrTenantConflict, http.StatusConflict},
		{service.ErrBookingTransition, http.StatusConflict},
		{service.ErrSettingKey, http.StatusBadRequest},
		{service.ErrNoTenant, http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, statusFor(tc.err), tc.err.Error())
	}
}

func TestWriteServiceError_HidesInternalErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	writeServiceError(rec, errors.New("pq: password authentication failed"), "failed to list clients")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"failed to list clients"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	writeServiceError(rec, service.ErrClientNotFound, "failed")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"client not found"}`, rec.Body.String())
}
