package models

import "time"

// Student represents a learner tracked for dropout risk.
type Student struct {
	ID             int64   `db:"id" json:"id"`
	Name           string  `db:"name" json:"name"`
	RegisterNumber string  `db:"register_number" json:"register_number"`
	Year           int     `db:"year" json:"year"`
	Semester       int     `db:"semester" json:"semester"`
	FacultyID      *string `db:"faculty_id" json:"faculty_id,omitempty"`
}

// AcademicUpdate carries the mutable academic fields for a student.
type AcademicUpdate struct {
	Attendance  *float64 `json:"attendance"`
	CGPA        *float64 `json:"cgpa"`
	ArrearCount *int64   `json:"arrear_count"`
	FeesPaid    *bool    `json:"fees_paid"`
}

// StudentSnapshot is the joined roster row: student identity, academic
// record fields and the most recent prediction, any of which may be absent.
type StudentSnapshot struct {
	ID                 int64      `db:"id" json:"id"`
	Name               string     `db:"name" json:"name"`
	RegisterNumber     string     `db:"register_number" json:"register_number"`
	Year               int        `db:"year" json:"year"`
	Semester           int        `db:"semester" json:"semester"`
	FacultyID          *string    `db:"faculty_id" json:"faculty_id,omitempty"`
	Attendance         *float64   `db:"attendance" json:"attendance"`
	CGPA               *float64   `db:"cgpa" json:"cgpa"`
	ArrearCount        *int64     `db:"arrear_count" json:"arrear_count"`
	FeesPaid           *bool      `db:"fees_paid" json:"fees_paid"`
	DisciplinaryIssues *int64     `db:"disciplinary_issues" json:"disciplinary_issues"`
	RiskScore          *float64   `db:"risk_score" json:"risk_score"`
	DropoutPrediction  *int64     `db:"dropout_prediction" json:"dropout_prediction"`
	RiskLevel          *string    `db:"risk_level" json:"risk_level"`
	PredictionDate     *time.Time `db:"prediction_date" json:"prediction_date"`
}
