package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jawab-ai/jawab-platform/internal/tenancy"
	"github.com/jawab-ai/jawab-platform/pkg/logging"
)

// TenantsHandler exposes tenant management for the dashboard: business
// profile, services, hours, FAQs, and channel bindings.
type TenantsHandler struct {
	store  *tenancy.Store
	logger *logging.Logger
}

// NewTenantsHandler creates a tenants handler.
func NewTenantsHandler(store *tenancy.Store, logger *logging.Logger) *TenantsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &TenantsHandler{store: store, logger: logger}
}

// List returns all tenants.
// GET /api/tenants
func (h *TenantsHandler) List(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Error("failed to list tenants", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list tenants")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"tenants": tenants})
}

// Create registers a new tenant.
// POST /api/tenants
func (h *TenantsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var tenant tenancy.Tenant
	if err := decodeJSON(r, &tenant); err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant payload: "+err.Error())
		return
	}
	if tenant.Name == "" {
		writeError(w, http.StatusBadRequest, "tenant name is required")
		return
	}
	if err := h.store.Create(r.Context(), &tenant); err != nil {
		h.logger.Error("failed to create tenant", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create tenant")
		return
	}
	h.logger.Info("tenant created", "tenant_id", tenant.ID, "name", tenant.Name)
	writeJSON(w, http.StatusCreated, &tenant)
}

// Get returns a single tenant.
// GET /api/tenants/{tenantID}
func (h *TenantsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")
	tenant, err := h.store.Get(r.Context(), tenantID)
	if err != nil {
		h.logger.Error("failed to load tenant", "error", err, "tenant_id", tenantID)
		writeError(w, http.StatusInternalServerError, "failed to load tenant")
		return
	}
	if tenant == nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}
	writeJSON(w, http.StatusOK, tenant)
}

// Update replaces a tenant's profile and bindings.
// PUT /api/tenants/{tenantID}
func (h *TenantsHandler) Update(w http.ResponseWriter, r *http.Request) {
	tenantID := chi.URLParam(r, "tenantID")

	existing, err := h.store.Get(r.Context(), tenantID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load tenant")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "tenant not found")
		return
	}

	var tenant tenancy.Tenant
	if err := decodeJSON(r, &tenant); err != nil {
		writeError(w, http.StatusBadRequest, "invalid tenant payload: "+err.Error())
		return
	}
	tenant.ID = tenantID
	tenant.CreatedAt = existing.CreatedAt

	if err := h.store.Update(r.Context(), &tenant); err != nil {
		h.logger.Error("failed to update tenant", "error", err, "tenant_id", tenantID)
		writeError(w, http.StatusInternalServerError, "failed to update tenant")
		return
	}
	writeJSON(w, http.StatusOK, &tenant)
}
