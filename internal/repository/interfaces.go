package repository

import (
	"context"
	"errors"
	"time"

	"github.com/rhysm/assetgraph/internal/domain"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a lookup matches no record. Store-level
// no-rows conditions are always translated to this sentinel so callers never
// depend on driver error types.
var ErrNotFound = errors.New("record not found")

// AssetSummary aggregates org-wide inventory counters.
type AssetSummary struct {
	TotalAssets     int64   `json:"total_assets"`
	CriticalActions int64   `json:"critical_actions"`
	AvgRiskScore    float64 `json:"avg_risk_score"`
	ComplianceRate  float64 `json:"compliance_rate"`
}

// AssetRepository defines the interface for asset persistence.
type AssetRepository interface {
	Create(ctx context.Context, asset domain.Asset) (domain.Asset, error)
	GetByAssetID(ctx context.Context, organizationID uuid.UUID, assetID string) (domain.Asset, error)
	GetByAssetIDs(ctx context.Context, organizationID uuid.UUID, assetIDs []string) ([]domain.Asset, error)
	List(ctx context.Context, organizationID uuid.UUID) ([]domain.Asset, error)
	Summary(ctx context.Context, organizationID uuid.UUID) (AssetSummary, error)
}

// IngestionJobRepository defines the interface for ingestion job records.
type IngestionJobRepository interface {
	Create(ctx context.Context, job domain.IngestionJob) error
	// Complete finalizes the one allowed mutation of a job record.
	Complete(ctx context.Context, organizationID uuid.UUID, jobID string, totalRows, inserted, rejected int, completedAt time.Time) error
	GetByJobID(ctx context.Context, organizationID uuid.UUID, jobID string) (domain.IngestionJob, error)
	List(ctx context.Context, organizationID uuid.UUID) ([]domain.IngestionJob, error)
}

// RejectedRowRepository defines the interface for rejected row records,
// addressed by the durable (job id, row number) key.
type RejectedRowRepository interface {
	Create(ctx context.Context, row domain.RejectedRow) error
	ListByJob(ctx context.Context, organizationID uuid.UUID, jobID string, status domain.RowStatus) ([]domain.RejectedRow, error)
	CountByJob(ctx context.Context, organizationID uuid.UUID, jobID string, status domain.RowStatus) (int64, error)
	MarkRecovered(ctx context.Context, organizationID uuid.UUID, jobID string, rowNumber int, recoveredAt time.Time) error
}

// RelationshipRepository defines the interface for directed asset edges.
type RelationshipRepository interface {
	Create(ctx context.Context, rel domain.Relationship) error
	ListBySource(ctx context.Context, organizationID uuid.UUID, sourceAssetID string) ([]domain.Relationship, error)
}
