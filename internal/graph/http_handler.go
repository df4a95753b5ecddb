package graph

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/rhysm/assetgraph/internal/auth"
	"github.com/rhysm/assetgraph/internal/repository"

	"github.com/google/uuid"
)

// Handler exposes the relationship graph over HTTP.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with HTTP endpoints.
func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register attaches the graph routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/assets/relationships", h.handleCreate)
	mux.HandleFunc("GET /api/assets/{assetID}/relationships", h.handleRelationships)
	mux.HandleFunc("GET /api/assets/{assetID}/blast-radius", h.handleBlastRadius)
}

type createRequest struct {
	SourceAssetID    string `json:"source_asset_id"`
	TargetAssetID    string `json:"target_asset_id"`
	RelationshipType string `json:"relationship_type"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, fmt.Sprintf("invalid request body: %v", err), http.StatusBadRequest)
		return
	}

	rel, err := h.service.CreateRelationship(r.Context(), orgID, req.SourceAssetID, req.TargetAssetID, req.RelationshipType)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, rel)
}

func (h *Handler) handleRelationships(w http.ResponseWriter, r *http.Request) {
	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	neighbors, err := h.service.GetRelationships(r.Context(), orgID, r.PathValue("assetID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, neighbors)
}

func (h *Handler) handleBlastRadius(w http.ResponseWriter, r *http.Request) {
	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	depth := DefaultBlastRadiusDepth
	if raw := strings.TrimSpace(r.URL.Query().Get("depth")); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid depth: %v", err), http.StatusBadRequest)
			return
		}
		depth = parsed
	}

	radius, err := h.service.GetBlastRadius(r.Context(), orgID, r.PathValue("assetID"), depth)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, radius)
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
	http.Error(w, err.Error(), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
