package models

import "time"

// Categorical dropout-risk labels.
const (
	RiskLevelHigh    = "HIGH"
	RiskLevelMedium  = "MEDIUM"
	RiskLevelLow     = "LOW"
	RiskLevelUnknown = "UNKNOWN"
)

// Risk trend directions across historical predictions.
const (
	TrendRising    = "RISING"
	TrendImproving = "IMPROVING"
	TrendStable    = "STABLE"
)

// Counselling urgency tiers.
const (
	UrgencyPending = "PENDING"
	UrgencyHigh    = "HIGH"
	UrgencyMedium  = "MEDIUM"
	UrgencyLow     = "LOW"
)

// Counselling request statuses.
const (
	CounsellingStatusPending   = "PENDING"
	CounsellingStatusCompleted = "COMPLETED"
	CounsellingStatusCancelled = "CANCELLED"
)

// StudentContext carries enrolment context for counselling prompts.
type StudentContext struct {
	Year      *int    `json:"year"`
	Semester  *int    `json:"semester"`
	FacultyID *string `json:"faculty_id"`
}

// RiskContext is the normalized per-student payload feeding the guidance
// engine and the LLM prompt. It is derived on demand, never persisted.
type RiskContext struct {
	StudentID          int64          `json:"student_id"`
	Name               string         `json:"name"`
	RegisterNumber     string         `json:"register_number"`
	RiskLevel          string         `json:"risk_level"`
	RiskPercent        *int           `json:"risk_percent"`
	RiskTrend          string         `json:"risk_trend"`
	TrendDelta         *float64       `json:"trend_delta"`
	Attendance         *float64       `json:"attendance"`
	CGPA               *float64       `json:"cgpa"`
	ArrearCount        *int64         `json:"arrear_count"`
	FeesPaid           *bool          `json:"fees_paid"`
	DisciplinaryIssues *int64         `json:"disciplinary_issues"`
	LastPredictionAt   *time.Time     `json:"last_prediction_at"`
	Context            StudentContext `json:"context"`
}

// GuidanceResult is the deterministic rule-engine output.
type GuidanceResult struct {
	Summary           string   `json:"summary"`
	Urgency           string   `json:"urgency"`
	Recommendations   []string `json:"recommendations"`
	SupportMessage    string   `json:"support_message"`
	FollowUpQuestions []string `json:"follow_up_questions"`
}

// ChatReply is the rule-based chat response shape.
type ChatReply struct {
	Reply             string   `json:"reply"`
	Recommendations   []string `json:"recommendations"`
	FollowUpQuestions []string `json:"follow_up_questions"`
	Urgency           string   `json:"urgency"`
}

// ChatMessage is one turn of rolling chat history.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// GuidanceMetadata describes how a guidance response was produced.
type GuidanceMetadata struct {
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`
	CacheHit    bool      `json:"cache_hit"`
}

// GuidanceResponse is the guidance endpoint payload.
type GuidanceResponse struct {
	GuidanceResult
	Metadata GuidanceMetadata `json:"metadata"`
}

// ChatResponse is the batch chat endpoint payload.
type ChatResponse struct {
	ChatReply
	Metadata GuidanceMetadata `json:"metadata"`
}

// CounsellingRequest is a booked counselling session request.
type CounsellingRequest struct {
	ID             int64     `db:"id" json:"id"`
	StudentID      int64     `db:"student_id" json:"student_id"`
	Reason         string    `db:"reason" json:"reason"`
	Status         string    `db:"status" json:"status"`
	RequestDate    time.Time `db:"request_date" json:"request_date"`
	Name           string    `db:"name" json:"name,omitempty"`
	RegisterNumber string    `db:"register_number" json:"register_number,omitempty"`
}
