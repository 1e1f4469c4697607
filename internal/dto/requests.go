package dto

import "github.com/noah-isme/dropout-copilot-api/internal/models"

// CreateStudentRequest registers a student on the roster.
type CreateStudentRequest struct {
	Name           string  `json:"name" validate:"required"`
	RegisterNumber string  `json:"register_number" validate:"required"`
	Year           int     `json:"year" validate:"required,min=1,max=6"`
	Semester       int     `json:"semester" validate:"required,min=1,max=12"`
	FacultyID      *string `json:"faculty_id"`
}

// GuidanceRequest asks for counselling guidance for one student.
type GuidanceRequest struct {
	StudentID    int64 `json:"student_id"`
	ForceRefresh bool  `json:"force_refresh"`
}

// ChatRequest is one counselling chat turn with optional rolling history.
type ChatRequest struct {
	StudentID int64                `json:"student_id"`
	Question  string               `json:"question"`
	History   []models.ChatMessage `json:"history"`
}

// BookCounsellingRequest books a counselling session.
type BookCounsellingRequest struct {
	StudentID int64  `json:"student_id"`
	Reason    string `json:"reason"`
}

// UpdateCounsellingStatusRequest transitions a booked request.
type UpdateCounsellingStatusRequest struct {
	Status string `json:"status"`
}

// CreateAlertRequest raises a faculty alert. The student may be addressed
// by id or register number; an empty message gets a default template.
type CreateAlertRequest struct {
	StudentID      *int64 `json:"student_id"`
	RegisterNumber string `json:"register_number"`
	Message        string `json:"message"`
}

// SavePredictionRequest persists an externally computed prediction.
type SavePredictionRequest struct {
	StudentID         int64   `json:"student_id" validate:"required,gt=0"`
	RiskScore         float64 `json:"risk_score" validate:"gte=0"`
	RiskLevel         string  `json:"risk_level" validate:"required"`
	DropoutPrediction int     `json:"dropout_prediction" validate:"oneof=0 1"`
}

// CreateExportRequest queues an export job.
type CreateExportRequest struct {
	Kind      string `json:"kind" validate:"required,oneof=roster_csv risk_report_pdf"`
	StudentID *int64 `json:"student_id"`
}
