package domain

import (
	"time"

	"github.com/google/uuid"
)

// Relationship is a directed edge between two assets, addressed by their
// external asset ids. Edges are created explicitly and never updated or
// deleted; the graph only grows.
type Relationship struct {
	ID               uuid.UUID `json:"id"`
	OrganizationID   uuid.UUID `json:"organization_id"`
	SourceAssetID    string    `json:"source_asset_id"`
	TargetAssetID    string    `json:"target_asset_id"`
	RelationshipType string    `json:"relationship_type"`
	Direction        string    `json:"direction"`
	Confidence       string    `json:"confidence"`
	DiscoveredBy     string    `json:"discovered_by"`
	CreatedAt        time.Time `json:"created_at"`
}

const (
	DirectionOutbound = "OUTBOUND"

	ConfidenceHigh = "high"

	DiscoveredByManual = "manual"
)

// NewRelationship creates a manual outbound edge with default confidence.
func NewRelationship(organizationID uuid.UUID, sourceAssetID, targetAssetID, relationshipType string) Relationship {
	return Relationship{
		ID:               uuid.New(),
		OrganizationID:   organizationID,
		SourceAssetID:    sourceAssetID,
		TargetAssetID:    targetAssetID,
		RelationshipType: relationshipType,
		Direction:        DirectionOutbound,
		Confidence:       ConfidenceHigh,
		DiscoveredBy:     DiscoveredByManual,
		CreatedAt:        time.Now().UTC(),
	}
}
