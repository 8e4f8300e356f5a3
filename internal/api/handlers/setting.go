package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/practicedesk/internal/service"
	"github.com/go-chi/chi/v5"
)

// SettingHandler serves /v1/settings.
type SettingHandler struct {
	svc *service.SettingService
}

func NewSettingHandler(svc *service.SettingService) *SettingHandler {
	return &SettingHandler{svc: svc}
}

type putSettingRequest struct {
	Value string `json:"value"`
}

func (h *SettingHandler) List(w http.ResponseWriter, r *http.Request) {
	settings, err := h.svc.List(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to list settings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"settings": settings})
}

func (h *SettingHandler) Get(w http.ResponseWriter, r *http.Request) {
	setting, err := h.svc.Get(r.Context(), chi.URLParam(r, "key"))
	if err != nil {
		writeServiceError(w, err, "failed to get setting")
		return
	}

	writeJSON(w, http.StatusOK, setting)
}

func (h *SettingHandler) Put(w http.ResponseWriter, r *http.Request) {
	var req putSettingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	setting, err := h.svc.Put(r.Context(), chi.URLParam(r, "key"), req.Value)
	if err != nil {
		writeServiceError(w, err, "failed to save setting")
		return
	}

	writeJSON(w, http.StatusOK, setting)
}

func (h *SettingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "key")); err != nil {
		writeServiceError(w, err, "failed to delete setting")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
