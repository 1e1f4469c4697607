package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/dropout-copilot-api/internal/models"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

type fakeContextRepo struct {
	snapshot    *models.StudentSnapshot
	snapshotErr error
	history     []models.PredictionHistoryRow
	historyErr  error
}

func (f *fakeContextRepo) Snapshot(context.Context, int64) (*models.StudentSnapshot, error) {
	return f.snapshot, f.snapshotErr
}

func (f *fakeContextRepo) History(context.Context, int64) ([]models.PredictionHistoryRow, error) {
	return f.history, f.historyErr
}

func TestContextBuildNotFound(t *testing.T) {
	svc := NewContextService(&fakeContextRepo{snapshotErr: sql.ErrNoRows}, zap.NewNop())

	_, err := svc.Build(context.Background(), 99)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestContextBuildNormalizesFractionScores(t *testing.T) {
	predicted := time.Date(2026, 1, 5, 12, 0, 0, 0, time.UTC)
	level := models.RiskLevelMedium
	repo := &fakeContextRepo{
		snapshot: &models.StudentSnapshot{
			ID:             1,
			Name:           "Asha",
			RegisterNumber: "REG-001",
			Year:           2,
			Semester:       4,
			Attendance:     floatPtr(72),
			CGPA:           floatPtr(6.1),
			RiskScore:      floatPtr(0.63),
			RiskLevel:      &level,
			PredictionDate: &predicted,
		},
	}
	svc := NewContextService(repo, zap.NewNop())

	riskContext, err := svc.Build(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, riskContext.RiskPercent)
	assert.Equal(t, 63, *riskContext.RiskPercent)
	assert.Equal(t, models.RiskLevelMedium, riskContext.RiskLevel)
	assert.Equal(t, models.TrendStable, riskContext.RiskTrend)
	assert.Nil(t, riskContext.TrendDelta)
	require.NotNil(t, riskContext.Context.Year)
	assert.Equal(t, 2, *riskContext.Context.Year)
}

func TestContextBuildPercentScorePassthrough(t *testing.T) {
	repo := &fakeContextRepo{
		snapshot: &models.StudentSnapshot{ID: 2, Name: "Ben", RiskScore: floatPtr(63.4)},
	}
	svc := NewContextService(repo, zap.NewNop())

	riskContext, err := svc.Build(context.Background(), 2)
	require.NoError(t, err)
	require.NotNil(t, riskContext.RiskPercent)
	assert.Equal(t, 63, *riskContext.RiskPercent)
	assert.Equal(t, models.RiskLevelUnknown, riskContext.RiskLevel)
}

func TestContextBuildMissingPrediction(t *testing.T) {
	repo := &fakeContextRepo{
		snapshot: &models.StudentSnapshot{ID: 3, Name: "Cara", RegisterNumber: "REG-003"},
	}
	svc := NewContextService(repo, zap.NewNop())

	riskContext, err := svc.Build(context.Background(), 3)
	require.NoError(t, err)
	assert.Nil(t, riskContext.RiskPercent)
	assert.Equal(t, models.RiskLevelUnknown, riskContext.RiskLevel)
	assert.Nil(t, riskContext.Attendance)
	assert.Nil(t, riskContext.LastPredictionAt)
}

func TestContextBuildTrendRising(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeContextRepo{
		snapshot: &models.StudentSnapshot{ID: 4, Name: "Dev"},
		history: []models.PredictionHistoryRow{
			{DropoutRisk: floatPtr(0.40), PredictedAt: base},
			{DropoutRisk: floatPtr(0.47), PredictedAt: base.AddDate(0, 0, 7)},
			{DropoutRisk: floatPtr(0.52), PredictedAt: base.AddDate(0, 0, 14)},
		},
	}
	svc := NewContextService(repo, zap.NewNop())

	riskContext, err := svc.Build(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, models.TrendRising, riskContext.RiskTrend)
	require.NotNil(t, riskContext.TrendDelta)
	assert.InDelta(t, 12.0, *riskContext.TrendDelta, 0.001)
	// Latest history entry backfills the missing snapshot prediction.
	require.NotNil(t, riskContext.RiskPercent)
	assert.Equal(t, 52, *riskContext.RiskPercent)
	require.NotNil(t, riskContext.LastPredictionAt)
	assert.Equal(t, base.AddDate(0, 0, 14), *riskContext.LastPredictionAt)
}

func TestContextBuildTrendImproving(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeContextRepo{
		snapshot: &models.StudentSnapshot{ID: 5, Name: "Esha"},
		history: []models.PredictionHistoryRow{
			{DropoutRisk: floatPtr(80), PredictedAt: base},
			{DropoutRisk: floatPtr(71.5), PredictedAt: base.AddDate(0, 0, 30)},
		},
	}
	svc := NewContextService(repo, zap.NewNop())

	riskContext, err := svc.Build(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, models.TrendImproving, riskContext.RiskTrend)
	require.NotNil(t, riskContext.TrendDelta)
	assert.InDelta(t, -8.5, *riskContext.TrendDelta, 0.001)
}

func TestContextBuildTrendStableSmallDelta(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := &fakeContextRepo{
		snapshot: &models.StudentSnapshot{ID: 6, Name: "Finn"},
		history: []models.PredictionHistoryRow{
			{DropoutRisk: floatPtr(0.50), PredictedAt: base},
			{DropoutRisk: floatPtr(0.53), PredictedAt: base.AddDate(0, 0, 7)},
		},
	}
	svc := NewContextService(repo, zap.NewNop())

	riskContext, err := svc.Build(context.Background(), 6)
	require.NoError(t, err)
	assert.Equal(t, models.TrendStable, riskContext.RiskTrend)
	require.NotNil(t, riskContext.TrendDelta)
	assert.InDelta(t, 3.0, *riskContext.TrendDelta, 0.001)
}

func TestContextBuildSingleHistoryPoint(t *testing.T) {
	repo := &fakeContextRepo{
		snapshot: &models.StudentSnapshot{ID: 7, Name: "Gita"},
		history: []models.PredictionHistoryRow{
			{DropoutRisk: floatPtr(0.9), PredictedAt: time.Now()},
		},
	}
	svc := NewContextService(repo, zap.NewNop())

	riskContext, err := svc.Build(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, models.TrendStable, riskContext.RiskTrend)
	assert.Nil(t, riskContext.TrendDelta)
}
