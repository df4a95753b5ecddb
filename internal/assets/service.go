// Package assets covers the manual asset paths: single-asset creation and
// inventory reads. Manual creation scores assets through the same engine the
// ingestion pipeline uses.
package assets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rhysm/assetgraph/internal/domain"
	"github.com/rhysm/assetgraph/internal/repository"
	"github.com/rhysm/assetgraph/internal/risk"

	"github.com/google/uuid"
)

// ErrMissingFields is returned when a manual asset is missing required attributes.
var ErrMissingFields = errors.New("missing required fields")

// Service exposes manual asset creation and inventory queries.
type Service struct {
	assets repository.AssetRepository
}

// NewService creates a new asset service.
func NewService(assets repository.AssetRepository) *Service {
	return &Service{assets: assets}
}

// CreateRequest describes a manually entered asset.
type CreateRequest struct {
	Name         string             `json:"asset_name"`
	Type         domain.AssetType   `json:"asset_type"`
	IPAddress    string             `json:"ip_address,omitempty"`
	BusinessUnit string             `json:"business_unit"`
	Owner        string             `json:"owner,omitempty"`
	Criticality  domain.Criticality `json:"criticality"`
	Environment  domain.Environment `json:"environment"`
}

// Create validates, scores and persists one asset.
func (s *Service) Create(ctx context.Context, organizationID uuid.UUID, req CreateRequest) (domain.Asset, error) {
	if organizationID == uuid.Nil {
		return domain.Asset{}, errors.New("organization id is required")
	}
	if err := validate(req); err != nil {
		return domain.Asset{}, err
	}

	asset := domain.NewAsset(organizationID, req.Name, req.Type, req.BusinessUnit, req.Criticality, req.Environment)
	asset.IPAddress = req.IPAddress
	asset.Owner = req.Owner

	assessment := risk.ScoreAsset(asset)
	asset.RiskScore = assessment.RiskScore
	asset.ExposureLevel = assessment.ExposureLevel
	asset.ComplianceStatus = assessment.ComplianceStatus

	return s.assets.Create(ctx, asset)
}

// List returns the organization's inventory, newest first.
func (s *Service) List(ctx context.Context, organizationID uuid.UUID) ([]domain.Asset, error) {
	if organizationID == uuid.Nil {
		return nil, errors.New("organization id is required")
	}
	return s.assets.List(ctx, organizationID)
}

// Summary returns org-wide aggregate counters.
func (s *Service) Summary(ctx context.Context, organizationID uuid.UUID) (repository.AssetSummary, error) {
	if organizationID == uuid.Nil {
		return repository.AssetSummary{}, errors.New("organization id is required")
	}
	return s.assets.Summary(ctx, organizationID)
}

func validate(req CreateRequest) error {
	var missing []string
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "asset_name")
	}
	if strings.TrimSpace(string(req.Type)) == "" {
		missing = append(missing, "asset_type")
	}
	if strings.TrimSpace(req.BusinessUnit) == "" {
		missing = append(missing, "business_unit")
	}
	if strings.TrimSpace(string(req.Criticality)) == "" {
		missing = append(missing, "criticality")
	}
	if strings.TrimSpace(string(req.Environment)) == "" {
		missing = append(missing, "environment")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}
