package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

// ExportRepository tracks export job records.
type ExportRepository struct {
	db *sqlx.DB
}

// NewExportRepository constructs an ExportRepository.
func NewExportRepository(db *sqlx.DB) *ExportRepository {
	return &ExportRepository{db: db}
}

// Create inserts a queued export job.
func (r *ExportRepository) Create(ctx context.Context, job *models.ExportJob) error {
	const query = `INSERT INTO export_jobs (id, kind, student_id, status, file_name, row_count, created_at)
        VALUES (:id, :kind, :student_id, :status, :file_name, :row_count, :created_at)`
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// MarkCompleted records a finished export with its row count.
func (r *ExportRepository) MarkCompleted(ctx context.Context, id string, rowCount int) error {
	const query = `UPDATE export_jobs
        SET status = $1, row_count = $2, completed_at = $3
        WHERE id = $4`
	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusCompleted, rowCount, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("complete export job: %w", err)
	}
	return nil
}

// MarkFailed records a failed export.
func (r *ExportRepository) MarkFailed(ctx context.Context, id string) error {
	const query = `UPDATE export_jobs SET status = $1, completed_at = $2 WHERE id = $3`
	if _, err := r.db.ExecContext(ctx, query, models.ExportStatusFailed, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("fail export job: %w", err)
	}
	return nil
}

// List returns export jobs, newest first.
func (r *ExportRepository) List(ctx context.Context) ([]models.ExportJob, error) {
	const query = `SELECT id, kind, student_id, status, file_name, row_count, created_at, completed_at
        FROM export_jobs
        ORDER BY created_at DESC`
	var jobs []models.ExportJob
	if err := r.db.SelectContext(ctx, &jobs, query); err != nil {
		return nil, fmt.Errorf("list export jobs: %w", err)
	}
	return jobs, nil
}

// FindByID fetches one export job. Returns sql.ErrNoRows when absent.
func (r *ExportRepository) FindByID(ctx context.Context, id string) (*models.ExportJob, error) {
	const query = `SELECT id, kind, student_id, status, file_name, row_count, created_at, completed_at
        FROM export_jobs
        WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, err
	}
	return &job, nil
}
