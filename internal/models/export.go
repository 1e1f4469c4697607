package models

import "time"

// Export kinds.
const (
	ExportKindRosterCSV  = "roster_csv"
	ExportKindRiskReport = "risk_report_pdf"
)

// Export job statuses.
const (
	ExportStatusQueued    = "QUEUED"
	ExportStatusCompleted = "COMPLETED"
	ExportStatusFailed    = "FAILED"
)

// ExportJob tracks an asynchronous roster or report export.
type ExportJob struct {
	ID          string     `db:"id" json:"id"`
	Kind        string     `db:"kind" json:"kind"`
	StudentID   *int64     `db:"student_id" json:"student_id,omitempty"`
	Status      string     `db:"status" json:"status"`
	FileName    string     `db:"file_name" json:"file_name"`
	RowCount    int        `db:"row_count" json:"row_count"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
}
