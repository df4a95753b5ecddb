package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// JobStatus tracks the lifecycle of one bulk upload run.
type JobStatus string

const (
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
)

// RowStatus tracks the lifecycle of one rejected source row.
type RowStatus string

const (
	RowStatusRejected  RowStatus = "rejected"
	RowStatusRecovered RowStatus = "recovered"
)

// IngestionJob is the audit record of one bulk-upload execution. Counters are
// written once at completion and never rewritten afterwards; the retry path
// recovers rows without reopening the job.
type IngestionJob struct {
	JobID          uuid.UUID  `json:"id"`
	OrganizationID uuid.UUID  `json:"organization_id"`
	ExternalID     string     `json:"job_id"`
	UploadedBy     string     `json:"uploaded_by"`
	Filename       string     `json:"filename"`
	Status         JobStatus  `json:"status"`
	TotalRows      int        `json:"total_rows"`
	Inserted       int        `json:"inserted"`
	Rejected       int        `json:"rejected"`
	StartedAt      time.Time  `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// NewIngestionJob creates a job in processing status with zeroed counters.
func NewIngestionJob(organizationID uuid.UUID, uploadedBy, filename string) IngestionJob {
	now := time.Now().UTC()
	return IngestionJob{
		JobID:          uuid.New(),
		OrganizationID: organizationID,
		ExternalID:     NewJobID(now),
		UploadedBy:     uploadedBy,
		Filename:       filename,
		Status:         JobStatusProcessing,
		StartedAt:      now,
	}
}

// NewJobID mints an external job identifier, e.g. "JOB-20260829141502-9f3a".
func NewJobID(at time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:4]
	return fmt.Sprintf("JOB-%s-%s", at.UTC().Format("20060102150405"), suffix)
}

// RejectedRow retains a source row that failed validation, keyed by
// (job external id, row number) so retry never depends on store-internal
// identity. RowData holds the raw fields exactly as submitted.
type RejectedRow struct {
	JobID          string            `json:"job_id"`
	OrganizationID uuid.UUID         `json:"organization_id"`
	RowNumber      int               `json:"row_number"`
	RowData        map[string]string `json:"row_data"`
	Status         RowStatus         `json:"status"`
	Reason         string            `json:"reason"`
	CreatedAt      time.Time         `json:"created_at"`
	RecoveredAt    *time.Time        `json:"recovered_at,omitempty"`
}

// NewRejectedRow captures a failed row in rejected status.
func NewRejectedRow(jobID string, organizationID uuid.UUID, rowNumber int, rowData map[string]string, reason string) RejectedRow {
	data := make(map[string]string, len(rowData))
	for k, v := range rowData {
		data[k] = v
	}
	return RejectedRow{
		JobID:          jobID,
		OrganizationID: organizationID,
		RowNumber:      rowNumber,
		RowData:        data,
		Status:         RowStatusRejected,
		Reason:         reason,
		CreatedAt:      time.Now().UTC(),
	}
}
