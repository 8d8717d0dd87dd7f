package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/data-siswa-api/internal/models"
)

// ExportJobRepository tracks requested student exports.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a new pending job.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusPending
	}
	now := time.Now().UTC()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	const query = `INSERT INTO export_jobs (id, format, status, file_path, download_url, expires_at, error_message, requested_by, created_at, updated_at)
	VALUES (:id, :format, :status, :file_path, :download_url, :expires_at, :error_message, :requested_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID fetches an export job.
func (r *ExportJobRepository) GetByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, format, status, file_path, download_url, expires_at, error_message, requested_by, created_at, updated_at
	FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}

// MarkProcessing flips a pending job into PROCESSING.
func (r *ExportJobRepository) MarkProcessing(ctx context.Context, id string) error {
	const query = `UPDATE export_jobs SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusProcessing, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark export processing: %w", err)
	}
	return nil
}

// MarkDone stores the rendered file metadata and signed download URL.
func (r *ExportJobRepository) MarkDone(ctx context.Context, id, filePath, downloadURL string, expiresAt time.Time) error {
	const query = `UPDATE export_jobs SET status = $1, file_path = $2, download_url = $3, expires_at = $4, updated_at = $5 WHERE id = $6`
	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusDone, filePath, downloadURL, expiresAt, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark export done: %w", err)
	}
	return nil
}

// MarkFailed records a terminal failure message.
func (r *ExportJobRepository) MarkFailed(ctx context.Context, id, message string) error {
	const query = `UPDATE export_jobs SET status = $1, error_message = $2, updated_at = $3 WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusFailed, message, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("mark export failed: %w", err)
	}
	return nil
}
