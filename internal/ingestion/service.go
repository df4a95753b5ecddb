// Package ingestion implements the bulk asset upload pipeline: one uploaded
// tabular file becomes one ingestion job, each source row either becomes a
// scored asset or a rejected row retained for later retry.
package ingestion

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/rhysm/assetgraph/internal/domain"
	"github.com/rhysm/assetgraph/internal/repository"
	"github.com/rhysm/assetgraph/internal/risk"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"
)

var (
	// ErrUnsupportedFormat is returned when an uploaded file is not supported.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrMalformedUpload is returned when the payload cannot be parsed as a
	// table. No job is created for such uploads.
	ErrMalformedUpload = errors.New("malformed upload")

	byteOrderMark = []byte{0xEF, 0xBB, 0xBF}
)

// ReasonMissingFields marks rows rejected for empty or absent required columns.
const ReasonMissingFields = "Missing required fields"

var requiredColumns = []string{
	"asset_name",
	"asset_type",
	"business_unit",
	"criticality",
	"environment",
}

// Service runs uploads through validation, scoring and persistence.
type Service struct {
	assets repository.AssetRepository
	jobs   repository.IngestionJobRepository
	rows   repository.RejectedRowRepository
}

// NewService creates a new ingestion service.
func NewService(
	assets repository.AssetRepository,
	jobs repository.IngestionJobRepository,
	rows repository.RejectedRowRepository,
) *Service {
	return &Service{
		assets: assets,
		jobs:   jobs,
		rows:   rows,
	}
}

// Request describes the ingestion input.
type Request struct {
	OrganizationID uuid.UUID
	UploadedBy     string
	FileName       string
	Data           io.Reader
}

// Summary returns ingestion level counters to the caller.
type Summary struct {
	JobID     string `json:"job_id"`
	TotalRows int    `json:"total_rows"`
	Inserted  int    `json:"inserted"`
	Rejected  int    `json:"rejected"`
}

// RetryResult reports how many rejected rows a retry pass recovered.
type RetryResult struct {
	JobID   string `json:"job_id"`
	Retried int    `json:"retried"`
}

// JobDetail pairs the frozen job record with the live count of rows still
// awaiting recovery; retry never rewrites the job's own counters.
type JobDetail struct {
	domain.IngestionJob
	RejectedRemaining int64 `json:"rejected_remaining"`
}

type tableData struct {
	headers []string
	rows    [][]string
}

// Ingest parses the upload, records a job, and processes every row in file
// order. Row validation failures are captured as rejected rows and never
// abort the job; persistence failures propagate and may leave the job in
// processing status.
func (s *Service) Ingest(ctx context.Context, req Request) (Summary, error) {
	var summary Summary

	if req.OrganizationID == uuid.Nil {
		return summary, errors.New("organization id is required")
	}
	if req.Data == nil {
		return summary, errors.New("data reader is required")
	}

	payload, err := io.ReadAll(req.Data)
	if err != nil {
		return summary, fmt.Errorf("failed to read upload: %w", err)
	}
	if len(payload) == 0 {
		return summary, fmt.Errorf("%w: file is empty", ErrMalformedUpload)
	}

	// Parse before any job exists so a malformed upload never leaves a
	// half-created job behind.
	table, err := parseTable(req.FileName, payload)
	if err != nil {
		return summary, err
	}
	if len(table.headers) == 0 {
		return summary, fmt.Errorf("%w: no header row detected", ErrMalformedUpload)
	}

	job := domain.NewIngestionJob(req.OrganizationID, req.UploadedBy, req.FileName)
	if err := s.jobs.Create(ctx, job); err != nil {
		return summary, fmt.Errorf("failed to create ingestion job: %w", err)
	}

	summary.JobID = job.ExternalID

	inserted := 0
	rejected := 0

	for rowIdx, row := range table.rows {
		rowNumber := rowIdx + 1 // 1-based, first data row after the header

		rowData := make(map[string]string, len(table.headers))
		for colIdx, header := range table.headers {
			if colIdx < len(row) {
				rowData[header] = strings.TrimSpace(row[colIdx])
			} else {
				rowData[header] = ""
			}
		}

		if !hasRequiredFields(rowData) {
			rejectedRow := domain.NewRejectedRow(job.ExternalID, req.OrganizationID, rowNumber, rowData, ReasonMissingFields)
			if err := s.rows.Create(ctx, rejectedRow); err != nil {
				return summary, fmt.Errorf("failed to record rejected row %d: %w", rowNumber, err)
			}
			rejected++
			continue
		}

		asset := buildAsset(req.OrganizationID, rowData)
		if _, err := s.assets.Create(ctx, asset); err != nil {
			return summary, fmt.Errorf("failed to insert asset for row %d: %w", rowNumber, err)
		}
		inserted++
	}

	summary.TotalRows = len(table.rows)
	summary.Inserted = inserted
	summary.Rejected = rejected

	if err := s.jobs.Complete(ctx, req.OrganizationID, job.ExternalID, summary.TotalRows, inserted, rejected, time.Now().UTC()); err != nil {
		return summary, fmt.Errorf("failed to complete ingestion job: %w", err)
	}

	return summary, nil
}

// Retry re-validates every still-rejected row of a job and recovers the ones
// that now pass. Rows that remain invalid are left untouched, so retrying
// again is harmless. The job's own counters are a frozen audit record of the
// original run and are never rewritten here.
func (s *Service) Retry(ctx context.Context, organizationID uuid.UUID, jobID string) (RetryResult, error) {
	result := RetryResult{JobID: jobID}

	if organizationID == uuid.Nil {
		return result, errors.New("organization id is required")
	}

	if _, err := s.jobs.GetByJobID(ctx, organizationID, jobID); err != nil {
		return result, err
	}

	rejectedRows, err := s.rows.ListByJob(ctx, organizationID, jobID, domain.RowStatusRejected)
	if err != nil {
		return result, fmt.Errorf("failed to list rejected rows: %w", err)
	}

	for _, row := range rejectedRows {
		if !hasRequiredFields(row.RowData) {
			continue
		}

		asset := buildAsset(row.OrganizationID, row.RowData)
		if _, err := s.assets.Create(ctx, asset); err != nil {
			return result, fmt.Errorf("failed to insert asset for row %d: %w", row.RowNumber, err)
		}

		if err := s.rows.MarkRecovered(ctx, organizationID, jobID, row.RowNumber, time.Now().UTC()); err != nil {
			return result, err
		}

		result.Retried++
	}

	return result, nil
}

// ListJobs returns the organization's jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, organizationID uuid.UUID) ([]domain.IngestionJob, error) {
	if organizationID == uuid.Nil {
		return nil, errors.New("organization id is required")
	}
	return s.jobs.List(ctx, organizationID)
}

// GetJobDetail looks up one job plus its count of still-rejected rows.
func (s *Service) GetJobDetail(ctx context.Context, organizationID uuid.UUID, jobID string) (JobDetail, error) {
	job, err := s.jobs.GetByJobID(ctx, organizationID, jobID)
	if err != nil {
		return JobDetail{}, err
	}

	remaining, err := s.rows.CountByJob(ctx, organizationID, jobID, domain.RowStatusRejected)
	if err != nil {
		return JobDetail{}, err
	}

	return JobDetail{IngestionJob: job, RejectedRemaining: remaining}, nil
}

// ListRejectedRows returns a job's rows still awaiting recovery.
func (s *Service) ListRejectedRows(ctx context.Context, organizationID uuid.UUID, jobID string) ([]domain.RejectedRow, error) {
	if _, err := s.jobs.GetByJobID(ctx, organizationID, jobID); err != nil {
		return nil, err
	}
	return s.rows.ListByJob(ctx, organizationID, jobID, domain.RowStatusRejected)
}

func hasRequiredFields(rowData map[string]string) bool {
	for _, field := range requiredColumns {
		if strings.TrimSpace(rowData[field]) == "" {
			return false
		}
	}
	return true
}

// buildAsset constructs and scores an asset from validated row data. The
// ingestion and retry paths both go through here so identical attributes
// always produce identical scores.
func buildAsset(organizationID uuid.UUID, rowData map[string]string) domain.Asset {
	asset := domain.NewAsset(
		organizationID,
		rowData["asset_name"],
		domain.AssetType(rowData["asset_type"]),
		rowData["business_unit"],
		domain.Criticality(rowData["criticality"]),
		domain.Environment(rowData["environment"]),
	)
	asset.IPAddress = rowData["ip_address"]
	asset.Owner = rowData["owner"]

	assessment := risk.ScoreAsset(asset)
	asset.RiskScore = assessment.RiskScore
	asset.ExposureLevel = assessment.ExposureLevel
	asset.ComplianceStatus = assessment.ComplianceStatus

	return asset
}

func parseTable(fileName string, payload []byte) (tableData, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	switch ext {
	case ".csv":
		return parseCSV(payload)
	case ".xlsx":
		return parseExcel(payload)
	default:
		return tableData{}, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
}

func parseCSV(payload []byte) (tableData, error) {
	reader := bufio.NewReader(bytes.NewReader(payload))
	if prefix, err := reader.Peek(len(byteOrderMark)); err == nil && bytes.Equal(prefix, byteOrderMark) {
		_, _ = reader.Discard(len(byteOrderMark))
	}

	csvReader := csv.NewReader(reader)
	csvReader.TrimLeadingSpace = true
	csvReader.FieldsPerRecord = -1

	records, err := csvReader.ReadAll()
	if err != nil {
		return tableData{}, fmt.Errorf("%w: failed to read csv: %v", ErrMalformedUpload, err)
	}

	return normalizeTable(records)
}

func parseExcel(payload []byte) (tableData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return tableData{}, fmt.Errorf("%w: failed to open xlsx: %v", ErrMalformedUpload, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return tableData{}, fmt.Errorf("%w: excel file has no sheets", ErrMalformedUpload)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return tableData{}, fmt.Errorf("%w: failed to read rows from xlsx: %v", ErrMalformedUpload, err)
	}

	return normalizeTable(rows)
}

func normalizeTable(records [][]string) (tableData, error) {
	if len(records) == 0 {
		return tableData{}, fmt.Errorf("%w: no rows found in file", ErrMalformedUpload)
	}

	var headerRow []string
	var dataRows [][]string

	for _, row := range records {
		if isEmptyRow(row) {
			continue
		}
		if headerRow == nil {
			headerRow = row
			continue
		}
		dataRows = append(dataRows, row)
	}

	if headerRow == nil {
		return tableData{}, fmt.Errorf("%w: header row could not be detected", ErrMalformedUpload)
	}

	headers := make([]string, len(headerRow))
	for i, value := range headerRow {
		headers[i] = normalizeHeader(value)
	}

	return tableData{headers: headers, rows: dataRows}, nil
}

func normalizeHeader(value string) string {
	header := strings.ToLower(strings.TrimSpace(value))
	return strings.ReplaceAll(header, " ", "_")
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
