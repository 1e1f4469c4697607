package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

// snapshotColumns joins student identity, academic record fields and the
// most recent prediction. The LATERAL keeps only the newest prediction row.
const snapshotQuery = `SELECT s.id, s.name, s.register_number, s.year, s.semester, s.faculty_id,
       a.attendance, a.cgpa, a.arrear_count, a.fees_paid, a.disciplinary_issues,
       a.dropout_risk AS risk_score,
       a.dropout_flag AS dropout_prediction,
       p.risk_level,
       p.prediction_date
FROM students s
LEFT JOIN academic_records a ON s.id = a.student_id
LEFT JOIN LATERAL (
    SELECT risk_level, prediction_date
    FROM predictions
    WHERE student_id = s.id
    ORDER BY prediction_date DESC
    LIMIT 1
) p ON true`

// StudentRepository manages persistence for students and their academic data.
type StudentRepository struct {
	db *sqlx.DB
}

// NewStudentRepository constructs a StudentRepository.
func NewStudentRepository(db *sqlx.DB) *StudentRepository {
	return &StudentRepository{db: db}
}

// Snapshot fetches the full joined row for one student. Returns
// sql.ErrNoRows when the student does not exist.
func (r *StudentRepository) Snapshot(ctx context.Context, id int64) (*models.StudentSnapshot, error) {
	query := snapshotQuery + " WHERE s.id = $1"
	var snapshot models.StudentSnapshot
	if err := r.db.GetContext(ctx, &snapshot, query, id); err != nil {
		return nil, err
	}
	return &snapshot, nil
}

// ListFull returns the complete roster with academic and prediction fields.
func (r *StudentRepository) ListFull(ctx context.Context) ([]models.StudentSnapshot, error) {
	query := snapshotQuery + " ORDER BY s.id DESC"
	var students []models.StudentSnapshot
	if err := r.db.SelectContext(ctx, &students, query); err != nil {
		return nil, fmt.Errorf("list students: %w", err)
	}
	return students, nil
}

// History returns a student's prediction history ordered by time ascending.
func (r *StudentRepository) History(ctx context.Context, id int64) ([]models.PredictionHistoryRow, error) {
	const query = `SELECT dropout_risk, risk_level, predicted_at
        FROM prediction_history
        WHERE student_id = $1
        ORDER BY predicted_at ASC`
	var rows []models.PredictionHistoryRow
	if err := r.db.SelectContext(ctx, &rows, query, id); err != nil {
		return nil, fmt.Errorf("load prediction history: %w", err)
	}
	return rows, nil
}

// FindByRegisterNumber resolves a student by register number,
// case-insensitively. Returns sql.ErrNoRows when absent.
func (r *StudentRepository) FindByRegisterNumber(ctx context.Context, registerNumber string) (*models.Student, error) {
	const query = `SELECT id, name, register_number, year, semester, faculty_id
        FROM students
        WHERE LOWER(register_number) = LOWER($1)
        LIMIT 1`
	var student models.Student
	if err := r.db.GetContext(ctx, &student, query, registerNumber); err != nil {
		return nil, err
	}
	return &student, nil
}

// Create inserts a student and its empty academic record row.
func (r *StudentRepository) Create(ctx context.Context, student *models.Student) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create student: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const insertStudent = `INSERT INTO students (name, register_number, year, semester, faculty_id)
        VALUES ($1, $2, $3, $4, $5) RETURNING id`
	if err := tx.GetContext(ctx, &student.ID, insertStudent,
		student.Name, student.RegisterNumber, student.Year, student.Semester, student.FacultyID); err != nil {
		return fmt.Errorf("create student: %w", err)
	}

	if _, err := tx.ExecContext(ctx, "INSERT INTO academic_records (student_id) VALUES ($1)", student.ID); err != nil {
		return fmt.Errorf("create academic record: %w", err)
	}

	return tx.Commit()
}

// UpdateAcademic applies the mutable academic fields for a student.
func (r *StudentRepository) UpdateAcademic(ctx context.Context, studentID int64, update models.AcademicUpdate) error {
	const query = `UPDATE academic_records
        SET attendance = $1, cgpa = $2, arrear_count = $3, fees_paid = $4
        WHERE student_id = $5`
	result, err := r.db.ExecContext(ctx, query,
		update.Attendance, update.CGPA, update.ArrearCount, update.FeesPaid, studentID)
	if err != nil {
		return fmt.Errorf("update academic record: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// Delete removes a student along with academic and prediction rows.
func (r *StudentRepository) Delete(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete student: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, query := range []string{
		"DELETE FROM academic_records WHERE student_id = $1",
		"DELETE FROM predictions WHERE student_id = $1",
		"DELETE FROM prediction_history WHERE student_id = $1",
		"DELETE FROM students WHERE id = $1",
	} {
		if _, err := tx.ExecContext(ctx, query, id); err != nil {
			return fmt.Errorf("delete student rows: %w", err)
		}
	}

	return tx.Commit()
}
