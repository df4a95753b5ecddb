package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// AssetType classifies what kind of infrastructure an asset is.
type AssetType string

const (
	AssetTypeServer        AssetType = "Server"
	AssetTypeEndpoint      AssetType = "Endpoint"
	AssetTypeCloudResource AssetType = "Cloud Resource"
	AssetTypeNetworkDevice AssetType = "Network Device"
	AssetTypeIoTDevice     AssetType = "IoT Device"
	AssetTypeApplication   AssetType = "Application"
)

// Criticality is the business criticality tier assigned by the asset owner.
type Criticality string

const (
	CriticalityCritical Criticality = "Critical"
	CriticalityHigh     Criticality = "High"
	CriticalityMedium   Criticality = "Medium"
	CriticalityLow      Criticality = "Low"
)

// Environment is the deployment environment an asset runs in.
type Environment string

const (
	EnvironmentProduction  Environment = "Production"
	EnvironmentStaging     Environment = "Staging"
	EnvironmentDevelopment Environment = "Development"
)

// ExposureLevel is the coarse risk tier derived from the risk score.
type ExposureLevel string

const (
	ExposureCritical ExposureLevel = "Critical"
	ExposureHigh     ExposureLevel = "High"
	ExposureMedium   ExposureLevel = "Medium"
	ExposureLow      ExposureLevel = "Low"
)

// ComplianceStatus is derived from the risk score alongside the exposure level.
type ComplianceStatus string

const (
	ComplianceCompliant    ComplianceStatus = "Compliant"
	ComplianceNeedsReview  ComplianceStatus = "Needs Review"
	ComplianceNonCompliant ComplianceStatus = "Non-Compliant"
)

// Asset is an inventory record for one piece of infrastructure. AssetID is
// the external identifier, unique within an organization; relationships and
// traversal address assets by it, never by the database row id.
type Asset struct {
	ID               uuid.UUID        `json:"id"`
	OrganizationID   uuid.UUID        `json:"organization_id"`
	AssetID          string           `json:"asset_id"`
	Name             string           `json:"asset_name"`
	Type             AssetType        `json:"asset_type"`
	IPAddress        string           `json:"ip_address,omitempty"`
	BusinessUnit     string           `json:"business_unit"`
	Owner            string           `json:"owner,omitempty"`
	Criticality      Criticality      `json:"criticality"`
	Environment      Environment      `json:"environment"`
	RiskScore        int              `json:"risk_score"`
	ExposureLevel    ExposureLevel    `json:"exposure_level"`
	ComplianceStatus ComplianceStatus `json:"compliance_status"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// NewAsset creates an unscored asset and mints its external identifier.
// Risk fields are attached by the caller after scoring.
func NewAsset(organizationID uuid.UUID, name string, assetType AssetType, businessUnit string, criticality Criticality, environment Environment) Asset {
	now := time.Now().UTC()
	return Asset{
		ID:             uuid.New(),
		OrganizationID: organizationID,
		AssetID:        NewAssetID(),
		Name:           name,
		Type:           assetType,
		BusinessUnit:   businessUnit,
		Criticality:    criticality,
		Environment:    environment,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}

// NewAssetID mints an external asset identifier, e.g. "AST-3f9a1c02".
func NewAssetID() string {
	return fmt.Sprintf("AST-%s", strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}
