package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
)

// ErrNoRowsAffected signals a write that matched no rows.
var ErrNoRowsAffected = errors.New("no rows affected")

// PredictionRepository persists model predictions and their history.
type PredictionRepository struct {
	db *sqlx.DB
}

// NewPredictionRepository constructs a PredictionRepository.
func NewPredictionRepository(db *sqlx.DB) *PredictionRepository {
	return &PredictionRepository{db: db}
}

// Save upserts the latest prediction, mirrors the risk onto the academic
// record and appends a history row, atomically.
func (r *PredictionRepository) Save(ctx context.Context, prediction models.Prediction) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save prediction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	const upsert = `INSERT INTO predictions (student_id, dropout_risk, dropout, risk_level, prediction_date)
        VALUES ($1, $2, $3, $4, NOW())
        ON CONFLICT (student_id)
        DO UPDATE SET
            dropout_risk = EXCLUDED.dropout_risk,
            dropout = EXCLUDED.dropout,
            risk_level = EXCLUDED.risk_level,
            prediction_date = NOW()`
	if _, err := tx.ExecContext(ctx, upsert,
		prediction.StudentID, prediction.DropoutRisk, prediction.Dropout, prediction.RiskLevel); err != nil {
		return fmt.Errorf("upsert prediction: %w", err)
	}

	const mirror = `UPDATE academic_records
        SET dropout_risk = $1, dropout_flag = $2
        WHERE student_id = $3`
	if _, err := tx.ExecContext(ctx, mirror,
		prediction.DropoutRisk, prediction.Dropout, prediction.StudentID); err != nil {
		return fmt.Errorf("mirror prediction onto academic record: %w", err)
	}

	const history = `INSERT INTO prediction_history (student_id, dropout_risk, risk_level)
        VALUES ($1, $2, $3)`
	if _, err := tx.ExecContext(ctx, history,
		prediction.StudentID, prediction.DropoutRisk, prediction.RiskLevel); err != nil {
		return fmt.Errorf("append prediction history: %w", err)
	}

	return tx.Commit()
}

// RiskHistory returns the weekly average dropout risk across all students.
func (r *PredictionRepository) RiskHistory(ctx context.Context) ([]models.RiskHistoryBucket, error) {
	const query = `SELECT TO_CHAR(predicted_at, 'Week WW') AS week,
               AVG(dropout_risk) AS avg_risk
        FROM prediction_history
        GROUP BY week
        ORDER BY week`
	var buckets []models.RiskHistoryBucket
	if err := r.db.SelectContext(ctx, &buckets, query); err != nil {
		return nil, fmt.Errorf("aggregate risk history: %w", err)
	}
	return buckets, nil
}
