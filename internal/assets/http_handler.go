package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rhysm/assetgraph/internal/auth"
	"github.com/rhysm/assetgraph/internal/repository"

	"github.com/google/uuid"
)

// Handler exposes asset inventory endpoints.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with HTTP endpoints.
func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register attaches the asset routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/assets", h.handleCreate)
	mux.HandleFunc("GET /api/assets/inventory", h.handleInventory)
	mux.HandleFunc("GET /api/assets/summary", h.handleSummary)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	asset, err := h.service.Create(r.Context(), orgID, req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, asset)
}

func (h *Handler) handleInventory(w http.ResponseWriter, r *http.Request) {
	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	inventory, err := h.service.List(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, inventory)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	summary, err := h.service.Summary(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func resolveOrganization(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("organizationId"))
	if raw == "" {
		if orgID, ok := auth.OrganizationIDFromContext(r.Context()); ok {
			return orgID, nil
		}
		return uuid.Nil, fmt.Errorf("organizationId is required")
	}

	orgID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid organization id: %v", err)
	}
	if err := auth.EnforceOrganizationScope(r.Context(), orgID); err != nil {
		return uuid.Nil, err
	}
	return orgID, nil
}

func writeOrganizationError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrScopeMismatch) {
		http.Error(w, err.Error(), http.StatusForbidden)
		return
	}
	http.Error(w, err.Error(), http.StatusBadRequest)
}

func writeError(w http.ResponseWriter, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if errors.Is(err, ErrMissingFields) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
