// Package graph maintains directed relationships between assets and answers
// reachability questions over them.
package graph

import (
	"context"
	"errors"
	"fmt"

	"github.com/rhysm/assetgraph/internal/assetloader"
	"github.com/rhysm/assetgraph/internal/domain"
	"github.com/rhysm/assetgraph/internal/repository"

	"github.com/google/uuid"
)

// DefaultBlastRadiusDepth bounds traversal when the caller does not say how
// far to look.
const DefaultBlastRadiusDepth = 2

// Service exposes relationship creation and traversal over the stores.
type Service struct {
	assets        repository.AssetRepository
	relationships repository.RelationshipRepository
}

// NewService creates a new graph service.
func NewService(assets repository.AssetRepository, relationships repository.RelationshipRepository) *Service {
	return &Service{
		assets:        assets,
		relationships: relationships,
	}
}

// Neighbor is one outbound edge joined with its target asset's risk fields.
type Neighbor struct {
	TargetAssetID    string               `json:"target_asset_id"`
	TargetAssetName  string               `json:"target_asset_name"`
	RelationshipType string               `json:"relationship_type"`
	RiskScore        int                  `json:"risk_score"`
	ExposureLevel    domain.ExposureLevel `json:"exposure_level"`
}

// AffectedAsset is one asset discovered by blast-radius traversal.
// ImpactLevel is the hop distance at which it was first reached.
type AffectedAsset struct {
	AssetID       string               `json:"asset_id"`
	AssetName     string               `json:"asset_name"`
	RiskScore     int                  `json:"risk_score"`
	ExposureLevel domain.ExposureLevel `json:"exposure_level"`
	ImpactLevel   int                  `json:"impact_level"`
}

// BlastRadius is the result of one bounded traversal. AffectedAssets is in
// traversal order; callers wanting impact or score order sort it themselves.
type BlastRadius struct {
	RootAssetID    string          `json:"root_asset_id"`
	AffectedAssets []AffectedAsset `json:"affected_assets"`
}

// CreateRelationship persists a directed edge after verifying both endpoints
// exist in the caller's organization. The edge is tagged with the source
// asset's organization.
func (s *Service) CreateRelationship(ctx context.Context, organizationID uuid.UUID, sourceAssetID, targetAssetID, relationshipType string) (domain.Relationship, error) {
	if organizationID == uuid.Nil {
		return domain.Relationship{}, errors.New("organization id is required")
	}
	if sourceAssetID == "" || targetAssetID == "" {
		return domain.Relationship{}, errors.New("source and target asset ids are required")
	}

	source, err := s.assets.GetByAssetID(ctx, organizationID, sourceAssetID)
	if err != nil {
		return domain.Relationship{}, err
	}
	if _, err := s.assets.GetByAssetID(ctx, organizationID, targetAssetID); err != nil {
		return domain.Relationship{}, err
	}

	rel := domain.NewRelationship(source.OrganizationID, sourceAssetID, targetAssetID, relationshipType)
	if err := s.relationships.Create(ctx, rel); err != nil {
		return domain.Relationship{}, err
	}

	return rel, nil
}

// GetRelationships returns the one-hop outbound view of an asset: each edge
// joined with its target's name and risk fields. Edges whose target no longer
// resolves are dropped, matching the join semantics of the store.
func (s *Service) GetRelationships(ctx context.Context, organizationID uuid.UUID, assetID string) ([]Neighbor, error) {
	if organizationID == uuid.Nil {
		return nil, errors.New("organization id is required")
	}

	rels, err := s.relationships.ListBySource(ctx, organizationID, assetID)
	if err != nil {
		return nil, err
	}
	if len(rels) == 0 {
		return []Neighbor{}, nil
	}

	targetIDs := make([]string, len(rels))
	for i, rel := range rels {
		targetIDs[i] = rel.TargetAssetID
	}

	loader := assetloader.NewAssetLoader(s.assets, organizationID)
	targets, err := loader.LoadMany(ctx, targetIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load target assets: %w", err)
	}

	targetMap := make(map[string]domain.Asset, len(targets))
	for _, target := range targets {
		targetMap[target.AssetID] = target
	}

	neighbors := []Neighbor{}
	for _, rel := range rels {
		target, ok := targetMap[rel.TargetAssetID]
		if !ok {
			continue
		}
		neighbors = append(neighbors, Neighbor{
			TargetAssetID:    target.AssetID,
			TargetAssetName:  target.Name,
			RelationshipType: rel.RelationshipType,
			RiskScore:        target.RiskScore,
			ExposureLevel:    target.ExposureLevel,
		})
	}

	return neighbors, nil
}

// GetBlastRadius walks outbound edges depth-first from the root, up to depth
// hops. The visited set guarantees each asset appears at most once and that
// traversal terminates on cyclic graphs. A root with no outbound edges, or a
// root that does not exist, yields an empty affected list.
func (s *Service) GetBlastRadius(ctx context.Context, organizationID uuid.UUID, assetID string, depth int) (BlastRadius, error) {
	result := BlastRadius{
		RootAssetID:    assetID,
		AffectedAssets: []AffectedAsset{},
	}

	if organizationID == uuid.Nil {
		return result, errors.New("organization id is required")
	}
	if depth <= 0 {
		return result, nil
	}

	visited := map[string]bool{assetID: true}
	if err := s.traverse(ctx, organizationID, assetID, 1, depth, visited, &result.AffectedAssets); err != nil {
		return result, err
	}

	return result, nil
}

func (s *Service) traverse(ctx context.Context, organizationID uuid.UUID, currentAssetID string, level, depth int, visited map[string]bool, affected *[]AffectedAsset) error {
	if level > depth {
		return nil
	}

	rels, err := s.relationships.ListBySource(ctx, organizationID, currentAssetID)
	if err != nil {
		return err
	}

	for _, rel := range rels {
		if visited[rel.TargetAssetID] {
			continue
		}

		target, err := s.assets.GetByAssetID(ctx, organizationID, rel.TargetAssetID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				// Dangling edge; nothing to expand.
				continue
			}
			return err
		}

		visited[target.AssetID] = true
		*affected = append(*affected, AffectedAsset{
			AssetID:       target.AssetID,
			AssetName:     target.Name,
			RiskScore:     target.RiskScore,
			ExposureLevel: target.ExposureLevel,
			ImpactLevel:   level,
		})

		if err := s.traverse(ctx, organizationID, target.AssetID, level+1, depth, visited, affected); err != nil {
			return err
		}
	}

	return nil
}
