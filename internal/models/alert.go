package models

import "time"

// StudentAlert is a faculty-raised alert about a student.
type StudentAlert struct {
	ID             int64     `db:"id" json:"id"`
	FacultyID      string    `db:"faculty_id" json:"faculty_id"`
	StudentID      int64     `db:"student_id" json:"student_id"`
	StudentName    *string   `db:"student_name" json:"student_name"`
	RegisterNumber *string   `db:"register_number" json:"register_number"`
	Message        string    `db:"message" json:"message"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}
