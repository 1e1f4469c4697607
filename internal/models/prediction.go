package models

import "time"

// Prediction is the latest stored prediction for a student.
type Prediction struct {
	StudentID      int64     `db:"student_id" json:"student_id"`
	DropoutRisk    float64   `db:"dropout_risk" json:"dropout_risk"`
	Dropout        int       `db:"dropout" json:"dropout"`
	RiskLevel      string    `db:"risk_level" json:"risk_level"`
	PredictionDate time.Time `db:"prediction_date" json:"prediction_date"`
}

// PredictionHistoryRow is one entry of a student's risk timeline, ordered
// by predicted_at ascending when loaded.
type PredictionHistoryRow struct {
	DropoutRisk *float64  `db:"dropout_risk" json:"dropout_risk"`
	RiskLevel   *string   `db:"risk_level" json:"risk_level"`
	PredictedAt time.Time `db:"predicted_at" json:"predicted_at"`
}

// RiskHistoryBucket aggregates average risk per calendar week.
type RiskHistoryBucket struct {
	Week    string  `db:"week" json:"week"`
	AvgRisk float64 `db:"avg_risk" json:"avg_risk"`
}

// MLPredictRequest is the payload sent to the external prediction service.
type MLPredictRequest struct {
	Attendance         float64 `json:"attendance"`
	CGPA               float64 `json:"cgpa"`
	ArrearCount        int64   `json:"arrear_count"`
	FeesPaid           int     `json:"fees_paid"`
	DisciplinaryIssues int64   `json:"disciplinary_issues"`
	Year               int     `json:"year"`
	Semester           int     `json:"semester"`
}

// MLPredictResponse is the prediction service's scoring result.
type MLPredictResponse struct {
	RiskScore         float64 `json:"risk_score"`
	RiskLevel         string  `json:"risk_level"`
	DropoutPrediction int     `json:"dropout_prediction"`
}

// PredictionResult is the API response after scoring and persisting.
type PredictionResult struct {
	StudentID int64   `json:"student_id"`
	Name      string  `json:"name"`
	RiskScore float64 `json:"risk_score"`
	RiskLevel string  `json:"risk_level"`
	Dropout   int     `json:"dropout"`
}
