package repository

import (
	"context"
	"fmt"

	"github.com/rhysm/assetgraph/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type relationshipRepository struct {
	pool *pgxpool.Pool
}

// NewRelationshipRepository wires a repository backed by pgxpool.
func NewRelationshipRepository(pool *pgxpool.Pool) RelationshipRepository {
	return &relationshipRepository{pool: pool}
}

func (r *relationshipRepository) Create(ctx context.Context, rel domain.Relationship) error {
	if r.pool == nil {
		return fmt.Errorf("relationship repository not initialized")
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO asset_relationships (id, organization_id, source_asset_id, target_asset_id,
		   relationship_type, direction, confidence, discovered_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		rel.ID,
		rel.OrganizationID,
		rel.SourceAssetID,
		rel.TargetAssetID,
		rel.RelationshipType,
		rel.Direction,
		rel.Confidence,
		rel.DiscoveredBy,
		rel.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create relationship: %w", err)
	}

	return nil
}

func (r *relationshipRepository) ListBySource(ctx context.Context, organizationID uuid.UUID, sourceAssetID string) ([]domain.Relationship, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, organization_id, source_asset_id, target_asset_id,
		        relationship_type, direction, confidence, discovered_by, created_at
		 FROM asset_relationships
		 WHERE organization_id = $1 AND source_asset_id = $2
		 ORDER BY created_at`,
		organizationID,
		sourceAssetID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	relationships := []domain.Relationship{}
	for rows.Next() {
		var (
			rel       domain.Relationship
			createdAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&rel.ID,
			&rel.OrganizationID,
			&rel.SourceAssetID,
			&rel.TargetAssetID,
			&rel.RelationshipType,
			&rel.Direction,
			&rel.Confidence,
			&rel.DiscoveredBy,
			&createdAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", scanErr)
		}
		if createdAt.Valid {
			rel.CreatedAt = createdAt.Time
		}
		relationships = append(relationships, rel)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate relationships: %w", rowsErr)
	}

	return relationships, nil
}
