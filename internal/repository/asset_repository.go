package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/rhysm/assetgraph/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type assetRepository struct {
	pool *pgxpool.Pool
}

// NewAssetRepository wires a repository backed by pgxpool.
func NewAssetRepository(pool *pgxpool.Pool) AssetRepository {
	return &assetRepository{pool: pool}
}

const assetColumns = `id, organization_id, asset_id, asset_name, asset_type, ip_address, business_unit, owner,
	criticality, environment, risk_score, exposure_level, compliance_status, created_at, updated_at`

func (r *assetRepository) Create(ctx context.Context, asset domain.Asset) (domain.Asset, error) {
	if r.pool == nil {
		return domain.Asset{}, fmt.Errorf("asset repository not initialized")
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO assets (id, organization_id, asset_id, asset_name, asset_type, ip_address, business_unit, owner,
		   criticality, environment, risk_score, exposure_level, compliance_status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		asset.ID,
		asset.OrganizationID,
		asset.AssetID,
		asset.Name,
		string(asset.Type),
		asset.IPAddress,
		asset.BusinessUnit,
		asset.Owner,
		string(asset.Criticality),
		string(asset.Environment),
		asset.RiskScore,
		string(asset.ExposureLevel),
		string(asset.ComplianceStatus),
		asset.CreatedAt,
		asset.UpdatedAt,
	)
	if err != nil {
		return domain.Asset{}, fmt.Errorf("failed to create asset: %w", err)
	}

	return asset, nil
}

func (r *assetRepository) GetByAssetID(ctx context.Context, organizationID uuid.UUID, assetID string) (domain.Asset, error) {
	if r.pool == nil {
		return domain.Asset{}, fmt.Errorf("asset repository not initialized")
	}

	row := r.pool.QueryRow(
		ctx,
		`SELECT `+assetColumns+`
		 FROM assets
		 WHERE organization_id = $1 AND asset_id = $2`,
		organizationID,
		assetID,
	)

	asset, err := scanAsset(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Asset{}, fmt.Errorf("asset %s: %w", assetID, ErrNotFound)
		}
		return domain.Asset{}, fmt.Errorf("failed to get asset: %w", err)
	}

	return asset, nil
}

func (r *assetRepository) GetByAssetIDs(ctx context.Context, organizationID uuid.UUID, assetIDs []string) ([]domain.Asset, error) {
	if len(assetIDs) == 0 {
		return []domain.Asset{}, nil
	}

	rows, err := r.pool.Query(
		ctx,
		`SELECT `+assetColumns+`
		 FROM assets
		 WHERE organization_id = $1 AND asset_id = ANY($2)`,
		organizationID,
		assetIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get assets by ids: %w", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

func (r *assetRepository) List(ctx context.Context, organizationID uuid.UUID) ([]domain.Asset, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT `+assetColumns+`
		 FROM assets
		 WHERE organization_id = $1
		 ORDER BY created_at DESC`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	defer rows.Close()

	return collectAssets(rows)
}

func (r *assetRepository) Summary(ctx context.Context, organizationID uuid.UUID) (AssetSummary, error) {
	var (
		summary   AssetSummary
		avgScore  pgtype.Float8
		compliant int64
	)

	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*),
		        COUNT(*) FILTER (WHERE exposure_level = $2),
		        AVG(risk_score)::float8,
		        COUNT(*) FILTER (WHERE compliance_status = $3)
		 FROM assets
		 WHERE organization_id = $1`,
		organizationID,
		string(domain.ExposureCritical),
		string(domain.ComplianceCompliant),
	).Scan(&summary.TotalAssets, &summary.CriticalActions, &avgScore, &compliant)
	if err != nil {
		return AssetSummary{}, fmt.Errorf("failed to summarize assets: %w", err)
	}

	if summary.TotalAssets > 0 {
		if avgScore.Valid {
			summary.AvgRiskScore = avgScore.Float64
		}
		summary.ComplianceRate = float64(compliant) / float64(summary.TotalAssets) * 100
	}

	return summary, nil
}

func scanAsset(row pgx.Row) (domain.Asset, error) {
	var (
		asset       domain.Asset
		assetType   string
		ipAddress   pgtype.Text
		owner       pgtype.Text
		criticality string
		environment string
		exposure    string
		compliance  string
		createdAt   pgtype.Timestamptz
		updatedAt   pgtype.Timestamptz
	)

	err := row.Scan(
		&asset.ID,
		&asset.OrganizationID,
		&asset.AssetID,
		&asset.Name,
		&assetType,
		&ipAddress,
		&asset.BusinessUnit,
		&owner,
		&criticality,
		&environment,
		&asset.RiskScore,
		&exposure,
		&compliance,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return domain.Asset{}, err
	}

	asset.Type = domain.AssetType(assetType)
	asset.Criticality = domain.Criticality(criticality)
	asset.Environment = domain.Environment(environment)
	asset.ExposureLevel = domain.ExposureLevel(exposure)
	asset.ComplianceStatus = domain.ComplianceStatus(compliance)
	if ipAddress.Valid {
		asset.IPAddress = ipAddress.String
	}
	if owner.Valid {
		asset.Owner = owner.String
	}
	if createdAt.Valid {
		asset.CreatedAt = createdAt.Time
	}
	if updatedAt.Valid {
		asset.UpdatedAt = updatedAt.Time
	}

	return asset, nil
}

func collectAssets(rows pgx.Rows) ([]domain.Asset, error) {
	assets := []domain.Asset{}
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan asset: %w", err)
		}
		assets = append(assets, asset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate assets: %w", err)
	}
	return assets, nil
}
