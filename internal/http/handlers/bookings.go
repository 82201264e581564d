package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jawab-ai/jawab-platform/internal/booking"
	"github.com/jawab-ai/jawab-platform/internal/tenancy"
	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

// BookingsHandler serves availability and booking endpoints.
type BookingsHandler struct {
	service *booking.Service
	tenants *tenancy.Store
	logger  *logging.Logger
}

// NewBookingsHandler creates a bookings handler.
func NewBookingsHandler(service *booking.Service, tenants *tenancy.Store, logger *logging.Logger) *BookingsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingsHandler{service: service, tenants: tenants, logger: logger}
}

func (h *BookingsHandler) loadTenant(w http.ResponseWriter, r *http.Request) *tenancy.Tenant {
	tenantID := chi.URLParam(r, "tenantID")
	tenant, err := h.tenants.Get(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load tenant")
		return nil
	}
	if tenant == nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return nil
	}
	return tenant
}

// Slots returns free intervals for a service on a given day.
// GET /api/tenants/{tenantID}/calendar/slots?date=2026-03-14&service=Haircut
func (h *BookingsHandler) Slots(w http.ResponseWriter, r *http.Request) {
	tenant := h.loadTenant(w, r)
	if tenant == nil {
		return
	}

	day, err := time.Parse("2006-01-02", r.URL.Query().Get("date"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}

	slots, err := h.service.Slots(r.Context(), tenant, day, r.URL.Query().Get("service"))
	if err != nil {
		h.logger.Error("failed to compute slots", "error", err, "tenant_id", tenant.ID)
		writeError(w, http.StatusBadGateway, "failed to load availability")
		return
	}
	if slots == nil {
		slots = []booking.Slot{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"slots": slots})
}

// BookRequest is the booking creation payload.
type BookRequest struct {
	ConversationID string    `json:"conversation_id,omitempty"`
	CustomerName   string    `json:"customer_name"`
	CustomerPhone  string    `json:"customer_phone,omitempty"`
	Service        string    `json:"service"`
	StartsAt       time.Time `json:"starts_at"`
}

// Book creates a booking.
// POST /api/tenants/{tenantID}/calendar/book
func (h *BookingsHandler) Book(w http.ResponseWriter, r *http.Request) {
	tenant := h.loadTenant(w, r)
	if tenant == nil {
		return
	}

	var req BookRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid booking payload: "+err.Error())
		return
	}

	b, err := h.service.Book(r.Context(), tenant, booking.BookRequest{
		ConversationID: req.ConversationID,
		CustomerName:   req.CustomerName,
		CustomerPhone:  req.CustomerPhone,
		ServiceName:    req.Service,
		StartsAt:       req.StartsAt,
	})
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, b)
}

// Cancel cancels a booking and removes its calendar event.
// DELETE /api/tenants/{tenantID}/bookings/{bookingID}
func (h *BookingsHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	tenant := h.loadTenant(w, r)
	if tenant == nil {
		return
	}

	if err := h.service.Cancel(r.Context(), tenant, chi.URLParam(r, "bookingID")); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}
