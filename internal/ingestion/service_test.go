package ingestion

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rhysm/assetgraph/internal/domain"
	"github.com/rhysm/assetgraph/internal/repository"
	"github.com/rhysm/assetgraph/internal/risk"

	"github.com/google/uuid"
)

func TestServiceIngestScoresAndCounts(t *testing.T) {
	orgID := uuid.New()
	assetRepo := &stubAssetRepo{}
	jobRepo := &stubJobRepo{}
	rowRepo := &stubRowRepo{}

	service := NewService(assetRepo, jobRepo, rowRepo)

	data := `asset_name,asset_type,business_unit,criticality,environment,ip_address,owner
web-01,Server,Payments,Critical,Production,10.0.0.5,ops@corp.example
laptop-7,Endpoint,Finance,Low,Development,,
sensor-9,IoT Device,Facilities,High,Production,10.0.9.2,facilities@corp.example
`
	summary, err := service.Ingest(context.Background(), Request{
		OrganizationID: orgID,
		UploadedBy:     "admin@corp.example",
		FileName:       "inventory.csv",
		Data:           strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.TotalRows != 3 || summary.Inserted != 3 || summary.Rejected != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.Inserted+summary.Rejected != summary.TotalRows {
		t.Fatalf("counters do not add up: %+v", summary)
	}
	if len(assetRepo.created) != 3 {
		t.Fatalf("expected 3 assets, got %d", len(assetRepo.created))
	}

	first := assetRepo.created[0]
	if first.Name != "web-01" || first.IPAddress != "10.0.0.5" || first.Owner != "ops@corp.example" {
		t.Fatalf("unexpected first asset: %+v", first)
	}
	want := risk.Score(domain.CriticalityCritical, domain.EnvironmentProduction, domain.AssetTypeServer)
	if first.RiskScore != want.RiskScore || first.ExposureLevel != want.ExposureLevel || first.ComplianceStatus != want.ComplianceStatus {
		t.Fatalf("first asset not scored like the engine: %+v vs %+v", first, want)
	}
	if first.AssetID == "" || first.OrganizationID != orgID {
		t.Fatalf("asset identity not assigned: %+v", first)
	}

	job := jobRepo.jobs[summary.JobID]
	if job.Status != domain.JobStatusCompleted {
		t.Fatalf("expected completed job, got %s", job.Status)
	}
	if job.TotalRows != 3 || job.Inserted != 3 || job.Rejected != 0 {
		t.Fatalf("unexpected job counters: %+v", job)
	}
	if job.CompletedAt == nil {
		t.Fatalf("expected completion timestamp")
	}
}

func TestServiceIngestRejectsRowsMissingRequiredFields(t *testing.T) {
	orgID := uuid.New()
	assetRepo := &stubAssetRepo{}
	jobRepo := &stubJobRepo{}
	rowRepo := &stubRowRepo{}

	service := NewService(assetRepo, jobRepo, rowRepo)

	data := `asset_name,asset_type,business_unit,criticality,environment
web-01,Server,Payments,Critical,Production
db-02,Server,,High,Production
edge-03,Network Device,IT,Medium,Staging
`
	summary, err := service.Ingest(context.Background(), Request{
		OrganizationID: orgID,
		FileName:       "inventory.csv",
		Data:           strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.TotalRows != 3 || summary.Inserted != 2 || summary.Rejected != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if len(rowRepo.rows) != 1 {
		t.Fatalf("expected 1 rejected row, got %d", len(rowRepo.rows))
	}

	rejected := rowRepo.rows[0]
	if rejected.RowNumber != 2 {
		t.Fatalf("expected row 2 rejected, got %d", rejected.RowNumber)
	}
	if rejected.Status != domain.RowStatusRejected || rejected.Reason != ReasonMissingFields {
		t.Fatalf("unexpected rejected row: %+v", rejected)
	}
	if rejected.RowData["asset_name"] != "db-02" || rejected.RowData["business_unit"] != "" {
		t.Fatalf("row data not preserved: %+v", rejected.RowData)
	}
	if rejected.JobID != summary.JobID || rejected.OrganizationID != orgID {
		t.Fatalf("rejected row not keyed to job and org: %+v", rejected)
	}
}

func TestServiceIngestRejectsUnsupportedFormatBeforeCreatingJob(t *testing.T) {
	jobRepo := &stubJobRepo{}
	service := NewService(&stubAssetRepo{}, jobRepo, &stubRowRepo{})

	_, err := service.Ingest(context.Background(), Request{
		OrganizationID: uuid.New(),
		FileName:       "inventory.pdf",
		Data:           strings.NewReader("not a table"),
	})
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if len(jobRepo.jobs) != 0 {
		t.Fatalf("no job should exist for a rejected upload, found %d", len(jobRepo.jobs))
	}
}

func TestServiceIngestRejectsMalformedCSVBeforeCreatingJob(t *testing.T) {
	jobRepo := &stubJobRepo{}
	service := NewService(&stubAssetRepo{}, jobRepo, &stubRowRepo{})

	_, err := service.Ingest(context.Background(), Request{
		OrganizationID: uuid.New(),
		FileName:       "broken.csv",
		Data:           strings.NewReader("a,\"b\nunterminated"),
	})
	if !errors.Is(err, ErrMalformedUpload) {
		t.Fatalf("expected ErrMalformedUpload, got %v", err)
	}
	if len(jobRepo.jobs) != 0 {
		t.Fatalf("no job should exist for a malformed upload, found %d", len(jobRepo.jobs))
	}
}

func TestServiceIngestNormalizesHeaders(t *testing.T) {
	orgID := uuid.New()
	assetRepo := &stubAssetRepo{}
	service := NewService(assetRepo, &stubJobRepo{}, &stubRowRepo{})

	// Excel-exported CSVs arrive with a UTF-8 BOM and human-shaped headers.
	data := "\xEF\xBB\xBFAsset Name,Asset Type,Business Unit,Criticality,Environment\n" +
		"web-01,Server,Payments,Critical,Production\n" +
		"\n" +
		"db-02,Server,Payments,High,Production\n"

	summary, err := service.Ingest(context.Background(), Request{
		OrganizationID: orgID,
		FileName:       "export.csv",
		Data:           strings.NewReader(data),
	})
	if err != nil {
		t.Fatalf("ingest returned error: %v", err)
	}

	if summary.TotalRows != 2 || summary.Inserted != 2 || summary.Rejected != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if assetRepo.created[0].Name != "web-01" || assetRepo.created[1].Name != "db-02" {
		t.Fatalf("rows not mapped through normalized headers: %+v", assetRepo.created)
	}
}

func TestServiceRetryRecoversValidRows(t *testing.T) {
	orgID := uuid.New()
	assetRepo := &stubAssetRepo{}
	jobRepo := &stubJobRepo{}
	rowRepo := &stubRowRepo{}

	service := NewService(assetRepo, jobRepo, rowRepo)

	job := domain.NewIngestionJob(orgID, "admin@corp.example", "inventory.csv")
	if err := jobRepo.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}

	stillInvalid := domain.NewRejectedRow(job.ExternalID, orgID, 2, map[string]string{
		"asset_name": "db-02", "asset_type": "Server", "business_unit": "", "criticality": "High", "environment": "Production",
	}, ReasonMissingFields)
	// The stored row data now passes validation, as if the source column had
	// been fixed upstream before the retry.
	nowValid := domain.NewRejectedRow(job.ExternalID, orgID, 4, map[string]string{
		"asset_name": "cache-04", "asset_type": "Server", "business_unit": "Platform", "criticality": "Medium", "environment": "Staging",
	}, ReasonMissingFields)
	for _, row := range []domain.RejectedRow{stillInvalid, nowValid} {
		if err := rowRepo.Create(context.Background(), row); err != nil {
			t.Fatalf("seed row: %v", err)
		}
	}

	result, err := service.Retry(context.Background(), orgID, job.ExternalID)
	if err != nil {
		t.Fatalf("retry returned error: %v", err)
	}
	if result.Retried != 1 {
		t.Fatalf("expected 1 recovered row, got %d", result.Retried)
	}
	if len(assetRepo.created) != 1 || assetRepo.created[0].Name != "cache-04" {
		t.Fatalf("expected cache-04 inserted, got %+v", assetRepo.created)
	}

	if got := rowRepo.find(job.ExternalID, 4); got.Status != domain.RowStatusRecovered || got.RecoveredAt == nil {
		t.Fatalf("row 4 should be recovered: %+v", got)
	}
	if got := rowRepo.find(job.ExternalID, 2); got.Status != domain.RowStatusRejected {
		t.Fatalf("row 2 should stay rejected: %+v", got)
	}

	// Counters stay frozen; the job is an audit record of the original run.
	if stored := jobRepo.jobs[job.ExternalID]; stored.Inserted != job.Inserted || stored.Rejected != job.Rejected {
		t.Fatalf("retry must not rewrite job counters: %+v", stored)
	}
}

func TestServiceRetryIsIdempotent(t *testing.T) {
	orgID := uuid.New()
	assetRepo := &stubAssetRepo{}
	jobRepo := &stubJobRepo{}
	rowRepo := &stubRowRepo{}

	service := NewService(assetRepo, jobRepo, rowRepo)

	job := domain.NewIngestionJob(orgID, "", "inventory.csv")
	if err := jobRepo.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	row := domain.NewRejectedRow(job.ExternalID, orgID, 1, map[string]string{
		"asset_name": "db-02", "asset_type": "Server", "business_unit": "", "criticality": "High", "environment": "Production",
	}, ReasonMissingFields)
	if err := rowRepo.Create(context.Background(), row); err != nil {
		t.Fatalf("seed row: %v", err)
	}

	for i := 0; i < 2; i++ {
		result, err := service.Retry(context.Background(), orgID, job.ExternalID)
		if err != nil {
			t.Fatalf("retry %d returned error: %v", i, err)
		}
		if result.Retried != 0 {
			t.Fatalf("retry %d recovered %d rows, want 0", i, result.Retried)
		}
	}

	if len(assetRepo.created) != 0 {
		t.Fatalf("no assets should be created for a still-invalid row, got %d", len(assetRepo.created))
	}
	if got := rowRepo.find(job.ExternalID, 1); got.Status != domain.RowStatusRejected {
		t.Fatalf("row should stay rejected: %+v", got)
	}
}

func TestServiceRetryUnknownJob(t *testing.T) {
	service := NewService(&stubAssetRepo{}, &stubJobRepo{}, &stubRowRepo{})

	_, err := service.Retry(context.Background(), uuid.New(), "JOB-missing")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceGetJobDetailReportsRemainingRows(t *testing.T) {
	orgID := uuid.New()
	jobRepo := &stubJobRepo{}
	rowRepo := &stubRowRepo{}

	service := NewService(&stubAssetRepo{}, jobRepo, rowRepo)

	job := domain.NewIngestionJob(orgID, "", "inventory.csv")
	if err := jobRepo.Create(context.Background(), job); err != nil {
		t.Fatalf("seed job: %v", err)
	}
	row := domain.NewRejectedRow(job.ExternalID, orgID, 3, map[string]string{"asset_name": ""}, ReasonMissingFields)
	if err := rowRepo.Create(context.Background(), row); err != nil {
		t.Fatalf("seed row: %v", err)
	}

	detail, err := service.GetJobDetail(context.Background(), orgID, job.ExternalID)
	if err != nil {
		t.Fatalf("job detail returned error: %v", err)
	}
	if detail.RejectedRemaining != 1 {
		t.Fatalf("expected 1 remaining row, got %d", detail.RejectedRemaining)
	}

	if _, err := service.GetJobDetail(context.Background(), orgID, "JOB-missing"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown job, got %v", err)
	}
}

type stubAssetRepo struct {
	created []domain.Asset
}

func (s *stubAssetRepo) Create(ctx context.Context, asset domain.Asset) (domain.Asset, error) {
	s.created = append(s.created, asset)
	return asset, nil
}

func (s *stubAssetRepo) GetByAssetID(ctx context.Context, organizationID uuid.UUID, assetID string) (domain.Asset, error) {
	for _, asset := range s.created {
		if asset.OrganizationID == organizationID && asset.AssetID == assetID {
			return asset, nil
		}
	}
	return domain.Asset{}, fmt.Errorf("asset %s: %w", assetID, repository.ErrNotFound)
}

func (s *stubAssetRepo) GetByAssetIDs(ctx context.Context, organizationID uuid.UUID, assetIDs []string) ([]domain.Asset, error) {
	result := []domain.Asset{}
	for _, id := range assetIDs {
		if asset, err := s.GetByAssetID(ctx, organizationID, id); err == nil {
			result = append(result, asset)
		}
	}
	return result, nil
}

func (s *stubAssetRepo) List(ctx context.Context, organizationID uuid.UUID) ([]domain.Asset, error) {
	return append([]domain.Asset(nil), s.created...), nil
}

func (s *stubAssetRepo) Summary(ctx context.Context, organizationID uuid.UUID) (repository.AssetSummary, error) {
	return repository.AssetSummary{TotalAssets: int64(len(s.created))}, nil
}

type stubJobRepo struct {
	jobs map[string]domain.IngestionJob
}

func (s *stubJobRepo) Create(ctx context.Context, job domain.IngestionJob) error {
	if s.jobs == nil {
		s.jobs = map[string]domain.IngestionJob{}
	}
	s.jobs[job.ExternalID] = job
	return nil
}

func (s *stubJobRepo) Complete(ctx context.Context, organizationID uuid.UUID, jobID string, totalRows, inserted, rejected int, completedAt time.Time) error {
	job, ok := s.jobs[jobID]
	if !ok || job.OrganizationID != organizationID {
		return fmt.Errorf("job %s: %w", jobID, repository.ErrNotFound)
	}
	job.Status = domain.JobStatusCompleted
	job.TotalRows = totalRows
	job.Inserted = inserted
	job.Rejected = rejected
	job.CompletedAt = &completedAt
	s.jobs[jobID] = job
	return nil
}

func (s *stubJobRepo) GetByJobID(ctx context.Context, organizationID uuid.UUID, jobID string) (domain.IngestionJob, error) {
	job, ok := s.jobs[jobID]
	if !ok || job.OrganizationID != organizationID {
		return domain.IngestionJob{}, fmt.Errorf("job %s: %w", jobID, repository.ErrNotFound)
	}
	return job, nil
}

func (s *stubJobRepo) List(ctx context.Context, organizationID uuid.UUID) ([]domain.IngestionJob, error) {
	jobs := []domain.IngestionJob{}
	for _, job := range s.jobs {
		if job.OrganizationID == organizationID {
			jobs = append(jobs, job)
		}
	}
	return jobs, nil
}

type stubRowRepo struct {
	rows []domain.RejectedRow
}

func (s *stubRowRepo) Create(ctx context.Context, row domain.RejectedRow) error {
	s.rows = append(s.rows, row)
	return nil
}

func (s *stubRowRepo) ListByJob(ctx context.Context, organizationID uuid.UUID, jobID string, status domain.RowStatus) ([]domain.RejectedRow, error) {
	result := []domain.RejectedRow{}
	for _, row := range s.rows {
		if row.OrganizationID == organizationID && row.JobID == jobID && row.Status == status {
			result = append(result, row)
		}
	}
	return result, nil
}

func (s *stubRowRepo) CountByJob(ctx context.Context, organizationID uuid.UUID, jobID string, status domain.RowStatus) (int64, error) {
	rows, _ := s.ListByJob(ctx, organizationID, jobID, status)
	return int64(len(rows)), nil
}

func (s *stubRowRepo) MarkRecovered(ctx context.Context, organizationID uuid.UUID, jobID string, rowNumber int, recoveredAt time.Time) error {
	for i, row := range s.rows {
		if row.OrganizationID == organizationID && row.JobID == jobID && row.RowNumber == rowNumber && row.Status == domain.RowStatusRejected {
			s.rows[i].Status = domain.RowStatusRecovered
			s.rows[i].RecoveredAt = &recoveredAt
			return nil
		}
	}
	return fmt.Errorf("row %d of job %s: %w", rowNumber, jobID, repository.ErrNotFound)
}

func (s *stubRowRepo) find(jobID string, rowNumber int) domain.RejectedRow {
	for _, row := range s.rows {
		if row.JobID == jobID && row.RowNumber == rowNumber {
			return row
		}
	}
	return domain.RejectedRow{}
}
