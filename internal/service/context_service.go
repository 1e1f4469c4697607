package service

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

const (
	trendRisingDelta    = 5.0
	trendImprovingDelta = -5.0
)

type contextStudentRepository interface {
	Snapshot(ctx context.Context, studentID int64) (*models.StudentSnapshot, error)
	History(ctx context.Context, studentID int64) ([]models.PredictionHistoryRow, error)
}

// ContextService assembles the per-student risk context the guidance and
// chat pipelines run on.
type ContextService struct {
	repo   contextStudentRepository
	logger *zap.Logger
}

func NewContextService(repo contextStudentRepository, logger *zap.Logger) *ContextService {
	return &ContextService{repo: repo, logger: logger}
}

// Build loads the latest snapshot and prediction history for a student and
// derives the normalized risk fields. Missing predictions are not an error:
// the context is returned with UNKNOWN risk so guidance can answer PENDING.
func (s *ContextService) Build(ctx context.Context, studentID int64) (*models.RiskContext, error) {
	snapshot, err := s.repo.Snapshot(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		s.logger.Error("failed to load student snapshot", zap.Int64("student_id", studentID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student snapshot")
	}

	history, err := s.repo.History(ctx, studentID)
	if err != nil {
		s.logger.Error("failed to load prediction history", zap.Int64("student_id", studentID), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load prediction history")
	}

	riskScore := snapshot.RiskScore
	riskLevel := ""
	if snapshot.RiskLevel != nil {
		riskLevel = strings.ToUpper(*snapshot.RiskLevel)
	}
	lastPredictionAt := snapshot.PredictionDate

	if len(history) > 0 {
		last := history[len(history)-1]
		if riskScore == nil {
			riskScore = last.DropoutRisk
		}
		if riskLevel == "" && last.RiskLevel != nil {
			riskLevel = strings.ToUpper(*last.RiskLevel)
		}
		if lastPredictionAt == nil {
			at := last.PredictedAt
			lastPredictionAt = &at
		}
	}
	if riskLevel == "" {
		riskLevel = models.RiskLevelUnknown
	}

	trend, delta := riskTrend(history)

	year := snapshot.Year
	semester := snapshot.Semester

	return &models.RiskContext{
		StudentID:          snapshot.ID,
		Name:               snapshot.Name,
		RegisterNumber:     snapshot.RegisterNumber,
		RiskLevel:          riskLevel,
		RiskPercent:        toPercent(riskScore),
		RiskTrend:          trend,
		TrendDelta:         delta,
		Attendance:         snapshot.Attendance,
		CGPA:               snapshot.CGPA,
		ArrearCount:        snapshot.ArrearCount,
		FeesPaid:           snapshot.FeesPaid,
		DisciplinaryIssues: snapshot.DisciplinaryIssues,
		LastPredictionAt:   lastPredictionAt,
		Context: models.StudentContext{
			Year:      &year,
			Semester:  &semester,
			FacultyID: snapshot.FacultyID,
		},
	}, nil
}

// GuidanceMetadataAt stamps guidance metadata on the caller's clock;
// production uses time.Now, tests use a fixed instant.
func GuidanceMetadataAt(now time.Time, source string, cacheHit bool) models.GuidanceMetadata {
	return models.GuidanceMetadata{
		GeneratedAt: now.UTC(),
		Source:      source,
		CacheHit:    cacheHit,
	}
}

// toPercent normalizes a stored risk score to an integer percentage.
// Scores are persisted on two scales (0..1 fractions and 0..100 percents);
// anything at or below 1 is treated as a fraction.
func toPercent(score *float64) *int {
	if score == nil {
		return nil
	}
	value := *score
	if value <= 1 {
		value *= 100
	}
	percent := int(math.Round(value))
	return &percent
}

// riskTrend compares the oldest and newest history points on the percent
// scale. Fewer than two points, or points without scores, read as STABLE.
func riskTrend(history []models.PredictionHistoryRow) (string, *float64) {
	if len(history) < 2 {
		return models.TrendStable, nil
	}
	first := toPercentValue(history[0].DropoutRisk)
	last := toPercentValue(history[len(history)-1].DropoutRisk)
	if first == nil || last == nil {
		return models.TrendStable, nil
	}

	delta := math.Round((*last-*first)*10) / 10
	switch {
	case delta >= trendRisingDelta:
		return models.TrendRising, &delta
	case delta <= trendImprovingDelta:
		return models.TrendImproving, &delta
	default:
		return models.TrendStable, &delta
	}
}

func toPercentValue(score *float64) *float64 {
	if score == nil {
		return nil
	}
	value := *score
	if value <= 1 {
		value *= 100
	}
	return &value
}
