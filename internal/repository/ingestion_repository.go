package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rhysm/assetgraph/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ingestionJobRepository struct {
	pool *pgxpool.Pool
}

// NewIngestionJobRepository wires a repository backed by pgxpool.
func NewIngestionJobRepository(pool *pgxpool.Pool) IngestionJobRepository {
	return &ingestionJobRepository{pool: pool}
}

func (r *ingestionJobRepository) Create(ctx context.Context, job domain.IngestionJob) error {
	if r.pool == nil {
		return fmt.Errorf("ingestion job repository not initialized")
	}

	_, err := r.pool.Exec(
		ctx,
		`INSERT INTO ingestion_jobs (id, organization_id, job_id, uploaded_by, filename, status,
		   total_rows, inserted, rejected, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		job.JobID,
		job.OrganizationID,
		job.ExternalID,
		job.UploadedBy,
		job.Filename,
		string(job.Status),
		job.TotalRows,
		job.Inserted,
		job.Rejected,
		job.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create ingestion job: %w", err)
	}

	return nil
}

func (r *ingestionJobRepository) Complete(ctx context.Context, organizationID uuid.UUID, jobID string, totalRows, inserted, rejected int, completedAt time.Time) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE ingestion_jobs
		 SET status = $4, total_rows = $5, inserted = $6, rejected = $7, completed_at = $8
		 WHERE organization_id = $1 AND job_id = $2 AND status = $3`,
		organizationID,
		jobID,
		string(domain.JobStatusProcessing),
		string(domain.JobStatusCompleted),
		totalRows,
		inserted,
		rejected,
		completedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to complete ingestion job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("job %s not in processing status: %w", jobID, ErrNotFound)
	}

	return nil
}

func (r *ingestionJobRepository) GetByJobID(ctx context.Context, organizationID uuid.UUID, jobID string) (domain.IngestionJob, error) {
	row := r.pool.QueryRow(
		ctx,
		`SELECT id, organization_id, job_id, uploaded_by, filename, status,
		        total_rows, inserted, rejected, started_at, completed_at
		 FROM ingestion_jobs
		 WHERE organization_id = $1 AND job_id = $2`,
		organizationID,
		jobID,
	)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.IngestionJob{}, fmt.Errorf("job %s: %w", jobID, ErrNotFound)
		}
		return domain.IngestionJob{}, fmt.Errorf("failed to get ingestion job: %w", err)
	}

	return job, nil
}

func (r *ingestionJobRepository) List(ctx context.Context, organizationID uuid.UUID) ([]domain.IngestionJob, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT id, organization_id, job_id, uploaded_by, filename, status,
		        total_rows, inserted, rejected, started_at, completed_at
		 FROM ingestion_jobs
		 WHERE organization_id = $1
		 ORDER BY started_at DESC`,
		organizationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list ingestion jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.IngestionJob{}
	for rows.Next() {
		job, scanErr := scanJob(rows)
		if scanErr != nil {
			return nil, fmt.Errorf("failed to scan ingestion job: %w", scanErr)
		}
		jobs = append(jobs, job)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate ingestion jobs: %w", rowsErr)
	}

	return jobs, nil
}

func scanJob(row pgx.Row) (domain.IngestionJob, error) {
	var (
		job         domain.IngestionJob
		status      string
		startedAt   pgtype.Timestamptz
		completedAt pgtype.Timestamptz
	)

	err := row.Scan(
		&job.JobID,
		&job.OrganizationID,
		&job.ExternalID,
		&job.UploadedBy,
		&job.Filename,
		&status,
		&job.TotalRows,
		&job.Inserted,
		&job.Rejected,
		&startedAt,
		&completedAt,
	)
	if err != nil {
		return domain.IngestionJob{}, err
	}

	job.Status = domain.JobStatus(status)
	if startedAt.Valid {
		job.StartedAt = startedAt.Time
	}
	if completedAt.Valid {
		value := completedAt.Time
		job.CompletedAt = &value
	}

	return job, nil
}

type rejectedRowRepository struct {
	pool *pgxpool.Pool
}

// NewRejectedRowRepository wires a repository backed by pgxpool.
func NewRejectedRowRepository(pool *pgxpool.Pool) RejectedRowRepository {
	return &rejectedRowRepository{pool: pool}
}

func (r *rejectedRowRepository) Create(ctx context.Context, row domain.RejectedRow) error {
	if r.pool == nil {
		return fmt.Errorf("rejected row repository not initialized")
	}

	rowData, err := json.Marshal(row.RowData)
	if err != nil {
		return fmt.Errorf("failed to marshal row data: %w", err)
	}

	_, err = r.pool.Exec(
		ctx,
		`INSERT INTO rejected_rows (job_id, organization_id, row_number, row_data, status, reason, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		row.JobID,
		row.OrganizationID,
		row.RowNumber,
		rowData,
		string(row.Status),
		row.Reason,
		row.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create rejected row: %w", err)
	}

	return nil
}

func (r *rejectedRowRepository) ListByJob(ctx context.Context, organizationID uuid.UUID, jobID string, status domain.RowStatus) ([]domain.RejectedRow, error) {
	rows, err := r.pool.Query(
		ctx,
		`SELECT job_id, organization_id, row_number, row_data, status, reason, created_at, recovered_at
		 FROM rejected_rows
		 WHERE organization_id = $1 AND job_id = $2 AND status = $3
		 ORDER BY row_number`,
		organizationID,
		jobID,
		string(status),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list rejected rows: %w", err)
	}
	defer rows.Close()

	result := []domain.RejectedRow{}
	for rows.Next() {
		var (
			rejected    domain.RejectedRow
			rowData     []byte
			rowStatus   string
			createdAt   pgtype.Timestamptz
			recoveredAt pgtype.Timestamptz
		)
		if scanErr := rows.Scan(
			&rejected.JobID,
			&rejected.OrganizationID,
			&rejected.RowNumber,
			&rowData,
			&rowStatus,
			&rejected.Reason,
			&createdAt,
			&recoveredAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan rejected row: %w", scanErr)
		}

		if err := json.Unmarshal(rowData, &rejected.RowData); err != nil {
			return nil, fmt.Errorf("failed to unmarshal row data: %w", err)
		}
		rejected.Status = domain.RowStatus(rowStatus)
		if createdAt.Valid {
			rejected.CreatedAt = createdAt.Time
		}
		if recoveredAt.Valid {
			value := recoveredAt.Time
			rejected.RecoveredAt = &value
		}

		result = append(result, rejected)
	}
	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("failed to iterate rejected rows: %w", rowsErr)
	}

	return result, nil
}

func (r *rejectedRowRepository) CountByJob(ctx context.Context, organizationID uuid.UUID, jobID string, status domain.RowStatus) (int64, error) {
	var count int64
	err := r.pool.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM rejected_rows
		 WHERE organization_id = $1 AND job_id = $2 AND status = $3`,
		organizationID,
		jobID,
		string(status),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count rejected rows: %w", err)
	}
	return count, nil
}

func (r *rejectedRowRepository) MarkRecovered(ctx context.Context, organizationID uuid.UUID, jobID string, rowNumber int, recoveredAt time.Time) error {
	tag, err := r.pool.Exec(
		ctx,
		`UPDATE rejected_rows
		 SET status = $5, recovered_at = $6
		 WHERE organization_id = $1 AND job_id = $2 AND row_number = $3 AND status = $4`,
		organizationID,
		jobID,
		rowNumber,
		string(domain.RowStatusRejected),
		string(domain.RowStatusRecovered),
		recoveredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to mark row recovered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("row %d of job %s not in rejected status: %w", rowNumber, jobID, ErrNotFound)
	}

	return nil
}
