package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/service"
)

// ClientHandler serves /v1/clients.
type ClientHandler struct {
	svc *service.ClientService
}

func NewClientHandler(svc *service.ClientService) *ClientHandler {
	return &ClientHandler{svc: svc}
}

type createClientRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	CompanyNumber string `json:"companyNumber,omitempty"`
}

func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createClientRequest
	if !decodeBody(w, r, &req) {
		return
	}

	client := &domain.Client{
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		CompanyNumber: req.CompanyNumber,
	}
	if err := h.svc.Create(r.Context(), client); err != nil {
		writeServiceError(w, err, "failed to create client")
		return
	}

	writeJSON(w, http.StatusCreated, client)
}

func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}

	clients, err := h.svc.List(r.Context(), r.URL.Query().Get("q"), page)
	if err != nil {
		writeServiceError(w, err, "failed to list clients")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"clients": clients})
}

func (h *ClientHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "client")
	if !ok {
		return
	}

	client, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get client")
		return
	}

	writeJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "client")
	if !ok {
		return
	}
	var req service.ClientUpdate
	if !decodeBody(w, r, &req) {
		return
	}

	client, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "failed to update client")
		return
	}

	writeJSON(w, http.StatusOK, client)
}

func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "client")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to delete client")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
