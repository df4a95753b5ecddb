package ingestion

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/rhysm/assetgraph/internal/auth"
	"github.com/rhysm/assetgraph/internal/repository"

	"github.com/google/uuid"
)

// Handler exposes the ingestion pipeline over HTTP.
type Handler struct {
	service *Service
}

// NewHTTPHandler wraps the service with HTTP endpoints.
func NewHTTPHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Register attaches the ingestion routes to the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/assets/import", h.handleImport)
	mux.HandleFunc("POST /api/assets/retry/{jobID}", h.handleRetry)
	mux.HandleFunc("GET /api/ingestion/jobs", h.handleListJobs)
	mux.HandleFunc("GET /api/ingestion/jobs/{jobID}", h.handleJobDetail)
	mux.HandleFunc("GET /api/ingestion/jobs/{jobID}/rejected-rows", h.handleRejectedRows)
}

func (h *Handler) handleImport(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		http.Error(w, fmt.Sprintf("invalid form data: %v", err), http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		http.Error(w, fmt.Sprintf("file required: %v", err), http.StatusBadRequest)
		return
	}
	defer file.Close()

	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	uploadedBy, _ := auth.UploaderFromContext(r.Context())
	if uploadedBy == "" {
		uploadedBy = strings.TrimSpace(r.FormValue("uploadedBy"))
	}

	data, err := io.ReadAll(file)
	if err != nil {
		http.Error(w, fmt.Sprintf("failed to read file: %v", err), http.StatusBadRequest)
		return
	}

	req := Request{
		OrganizationID: orgID,
		UploadedBy:     uploadedBy,
		FileName:       header.Filename,
		Data:           bytes.NewReader(data),
	}

	summary, err := h.service.Ingest(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleRetry(w http.ResponseWriter, r *http.Request) {
	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	result, err := h.service.Retry(r.Context(), orgID, r.PathValue("jobID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	jobs, err := h.service.ListJobs(r.Context(), orgID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, jobs)
}

func (h *Handler) handleJobDetail(w http.ResponseWriter, r *http.Request) {
	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	detail, err := h.service.GetJobDetail(r.Context(), orgID, r.PathValue("jobID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *Handler) handleRejectedRows(w http.ResponseWriter, r *http.Request) {
	orgID, err := resolveOrganization(r)
	if err != nil {
		writeOrganizationError(w, err)
		return
	}

	rows, err := h.service.ListRejectedRows(r.Context(), orgID, r.PathValue("jobID"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, rows)
}

// resolveOrganization accepts an explicit organizationId parameter, checked
// against the authenticated scope, and falls back to the scope when the
// parameter is absent.
func resolveOrganization(r *http.Request) (uuid.UUID, error) {
	raw := strings.TrimSpace(r.FormValue("organizationId"))
	if raw == "" {
		raw = strings.TrimSpace(r.URL.Query().Get("organizationId"))
	}
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
	switch {
	case errors.Is(err, repository.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrUnsupportedFormat), errors.Is(err, ErrMalformedUpload):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(payload)
}
