package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

// CounsellingRepository manages booked counselling requests.
type CounsellingRepository struct {
	db *sqlx.DB
}

// NewCounsellingRepository constructs a CounsellingRepository.
func NewCounsellingRepository(db *sqlx.DB) *CounsellingRepository {
	return &CounsellingRepository{db: db}
}

// HasPending reports whether the student already has an open request.
func (r *CounsellingRepository) HasPending(ctx context.Context, studentID int64) (bool, error) {
	const query = `SELECT 1 FROM counselling_requests
        WHERE student_id = $1 AND status = $2 LIMIT 1`
	var exists int
	if err := r.db.GetContext(ctx, &exists, query, studentID, models.CounsellingStatusPending); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pending counselling: %w", err)
	}
	return true, nil
}

// Create books a new counselling request in PENDING state.
func (r *CounsellingRepository) Create(ctx context.Context, studentID int64, reason string) error {
	const query = `INSERT INTO counselling_requests (student_id, reason, status, request_date)
        VALUES ($1, $2, $3, NOW())`
	if _, err := r.db.ExecContext(ctx, query, studentID, reason, models.CounsellingStatusPending); err != nil {
		return fmt.Errorf("create counselling request: %w", err)
	}
	return nil
}

// List returns all requests with student identity, newest first.
func (r *CounsellingRepository) List(ctx context.Context) ([]models.CounsellingRequest, error) {
	const query = `SELECT c.id, c.student_id, c.reason, c.status, c.request_date,
               s.name, s.register_number
        FROM counselling_requests c
        JOIN students s ON s.id = c.student_id
        ORDER BY c.request_date DESC`
	var requests []models.CounsellingRequest
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list counselling requests: %w", err)
	}
	return requests, nil
}

// UpdateStatus transitions a request to the given status.
func (r *CounsellingRepository) UpdateStatus(ctx context.Context, id int64, status string) error {
	const query = `UPDATE counselling_requests SET status = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return fmt.Errorf("update counselling status: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// Delete removes a request.
func (r *CounsellingRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM counselling_requests WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete counselling request: %w", err)
	}
	return nil
}
