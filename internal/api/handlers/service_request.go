package handlers

import (
	"net/http"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/service"
	"github.com/google/uuid"
)

// ServiceRequestHandler serves /v1/service-requests.
type ServiceRequestHandler struct {
	svc *service.ServiceRequestService
}

func NewServiceRequestHandler(svc *service.ServiceRequestService) *ServiceRequestHandler {
	return &ServiceRequestHandler{svc: svc}
}

type createServiceRequestRequest struct {
	ClientID    string `json:"clientId"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Status      string `json:"status,omitempty"`
	FeeCents    int64  `json:"feeCents"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func (h *ServiceRequestHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createServiceRequestRequest
	if !decodeBody(w, r, &req) {
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid clientId")
		return
	}

	sr := &domain.ServiceRequest{
		ClientID:    clientID,
		Title:       req.Title,
		Description: req.Description,
		Status:      domain.ServiceRequestStatus(req.Status),
		FeeCents:    req.FeeCents,
	}
	if err := h.svc.Create(r.Context(), sr); err != nil {
		writeServiceError(w, err, "failed to create service request")
		return
	}

	writeJSON(w, http.StatusCreated, sr)
}

func (h *ServiceRequestHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	var clientID *uuid.UUID
	if v := q.Get("clientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid clientId")
			return
		}
		clientID = &id
	}

	requests, err := h.svc.List(r.Context(), domain.ServiceRequestStatus(q.Get("status")), clientID, page)
	if err != nil {
		writeServiceError(w, err, "failed to list service requests")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"serviceRequests": requests})
}

func (h *ServiceRequestHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "service request")
	if !ok {
		return
	}

	sr, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get service request")
		return
	}

	writeJSON(w, http.StatusOK, sr)
}

func (h *ServiceRequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "service request")
	if !ok {
		return
	}
	var req updateStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}

	sr, err := h.svc.UpdateStatus(r.Context(), id, domain.ServiceRequestStatus(req.Status))
	if err != nil {
		writeServiceError(w, err, "failed to update service request")
		return
	}

	writeJSON(w, http.StatusOK, sr)
}

func (h *ServiceRequestHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "service request")
	if !ok {
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		writeServiceError(w, err, "failed to delete service request")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *ServiceRequestHandler) Revenue(w http.ResponseWriter, r *http.Request) {
	summary, err := h.svc.Revenue(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to compute revenue")
		return
	}

	writeJSON(w, http.StatusOK, summary)
}
