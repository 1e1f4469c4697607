package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

// AlertRepository manages faculty-raised student alerts.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository constructs an AlertRepository.
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Create inserts an alert and fills in its id and creation time.
func (r *AlertRepository) Create(ctx context.Context, alert *models.StudentAlert) error {
	const query = `INSERT INTO student_alerts (faculty_id, student_id, student_name, register_number, message)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at`
	row := r.db.QueryRowxContext(ctx, query,
		alert.FacultyID, alert.StudentID, alert.StudentName, alert.RegisterNumber, alert.Message)
	if err := row.Scan(&alert.ID, &alert.CreatedAt); err != nil {
		return fmt.Errorf("create student alert: %w", err)
	}
	return nil
}

// List filters alerts by student id and/or register number, newest first.
// At least one filter must be provided by the caller.
func (r *AlertRepository) List(ctx context.Context, studentID *int64, registerNumber string) ([]models.StudentAlert, error) {
	conditions := []string{}
	args := []interface{}{}

	if studentID != nil {
		args = append(args, *studentID)
		conditions = append(conditions, fmt.Sprintf("student_id = $%d", len(args)))
	}
	if registerNumber != "" {
		args = append(args, strings.ToLower(registerNumber))
		conditions = append(conditions, fmt.Sprintf("LOWER(register_number) = $%d", len(args)))
	}
	if len(conditions) == 0 {
		return nil, fmt.Errorf("alert list requires a filter")
	}

	query := fmt.Sprintf(`SELECT id, faculty_id, student_id, student_name, register_number, message, created_at
        FROM student_alerts
        WHERE %s
        ORDER BY created_at DESC`, strings.Join(conditions, " AND "))

	var alerts []models.StudentAlert
	if err := r.db.SelectContext(ctx, &alerts, query, args...); err != nil {
		return nil, fmt.Errorf("list student alerts: %w", err)
	}
	return alerts, nil
}
