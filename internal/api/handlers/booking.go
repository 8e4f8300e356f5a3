package handlers

import (
	"net/http"
	"time"

	"github.com/Harshitk-cp/practicedesk/internal/domain"
	"github.com/Harshitk-cp/practicedesk/internal/service"
	"github.com/google/uuid"
)

// BookingHandler serves /v1/bookings.
type BookingHandler struct {
	svc *service.BookingService
}

func NewBookingHandler(svc *service.BookingService) *BookingHandler {
	return &BookingHandler{svc: svc}
}

type createBookingRequest struct {
	ClientID string     `json:"clientId"`
	StaffID  *uuid.UUID `json:"staffId,omitempty"`
	Title    string     `json:"title"`
	Status   string     `json:"status,omitempty"`
	StartsAt time.Time  `json:"startsAt"`
	EndsAt   time.Time  `json:"endsAt"`
	Notes    string     `json:"notes,omitempty"`
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if !decodeBody(w, r, &req) {
		return
	}

	clientID, err := uuid.Parse(req.ClientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid clientId")
		return
	}

	booking := &domain.Booking{
		ClientID: clientID,
		StaffID:  req.StaffID,
		Title:    req.Title,
		Status:   domain.BookingStatus(req.Status),
		StartsAt: req.StartsAt,
		EndsAt:   req.EndsAt,
		Notes:    req.Notes,
	}
	if err := h.svc.Create(r.Context(), booking); err != nil {
		writeServiceError(w, err, "failed to create booking")
		return
	}

	writeJSON(w, http.StatusCreated, booking)
}

// List accepts ?status=, ?clientId=, ?client= (name prefix), ?from= and ?to=
// (RFC 3339) plus paging.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	filter := service.BookingFilter{
		Status:     domain.BookingStatus(q.Get("status")),
		ClientName: q.Get("client"),
		Page:       page,
	}
	if v := q.Get("clientId"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid clientId")
			return
		}
		filter.ClientID = &id
	}
	for param, dst := range map[string]**time.Time{"from": &filter.From, "to": &filter.To} {
		v := q.Get(param)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+param)
			return
		}
		*dst = &t
	}

	bookings, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, err, "failed to list bookings")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"bookings": bookings})
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "booking")
	if !ok {
		return
	}

	booking, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to get booking")
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "booking")
	if !ok {
		return
	}
	var req service.BookingUpdate
	if !decodeBody(w, r, &req) {
		return
	}

	booking, err := h.svc.Update(r.Context(), id, req)
	if err != nil {
		writeServiceError(w, err, "failed to update booking")
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "booking")
	if !ok {
		return
	}

	booking, err := h.svc.Cancel(r.Context(), id)
	if err != nil {
		writeServiceError(w, err, "failed to cancel booking")
		return
	}

	writeJSON(w, http.StatusOK, booking)
}

func (h *BookingHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to compute booking stats")
		return
	}

	writeJSON(w, http.StatusOK, stats)
}
