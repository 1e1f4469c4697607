package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/dropout-copilot-api/internal/dto"
	"github.com/noah-isme/dropout-copilot-api/internal/models"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

type predictionRepository interface {
	Save(ctx context.Context, prediction models.Prediction) error
	RiskHistory(ctx context.Context) ([]models.RiskHistoryBucket, error)
}

type predictionStudentRepository interface {
	Snapshot(ctx context.Context, id int64) (*models.StudentSnapshot, error)
}

type mlScorer interface {
	Predict(ctx context.Context, req models.MLPredictRequest) (*models.MLPredictResponse, error)
}

// PredictionService scores students through the external ML service and
// persists the results.
type PredictionService struct {
	students      predictionStudentRepository
	predictions   predictionRepository
	scorer        mlScorer
	cache         rosterCache
	guidanceCache *GuidanceCache
	validate      *validator.Validate
	logger        *zap.Logger
	cacheTTL      time.Duration
	now           func() time.Time
}

func NewPredictionService(
	students predictionStudentRepository,
	predictions predictionRepository,
	scorer mlScorer,
	cache rosterCache,
	guidanceCache *GuidanceCache,
	validate *validator.Validate,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *PredictionService {
	return &PredictionService{
		students:      students,
		predictions:   predictions,
		scorer:        scorer,
		cache:         cache,
		guidanceCache: guidanceCache,
		validate:      validate,
		logger:        logger,
		cacheTTL:      cacheTTL,
		now:           time.Now,
	}
}

// Predict scores one student with the ML service and stores the outcome.
// Missing academic fields score as zero, matching how the record is
// initialised at student creation.
func (s *PredictionService) Predict(ctx context.Context, studentID int64) (*models.PredictionResult, error) {
	snapshot, err := s.students.Snapshot(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	req := models.MLPredictRequest{
		Attendance:         floatOrZero(snapshot.Attendance),
		CGPA:               floatOrZero(snapshot.CGPA),
		ArrearCount:        intOrZero(snapshot.ArrearCount),
		FeesPaid:           boolToInt(snapshot.FeesPaid),
		DisciplinaryIssues: intOrZero(snapshot.DisciplinaryIssues),
		Year:               snapshot.Year,
		Semester:           snapshot.Semester,
	}

	scored, err := s.scorer.Predict(ctx, req)
	if err != nil {
		s.logger.Error("prediction scoring failed", zap.Int64("student_id", studentID), zap.Error(err))
		return nil, err
	}

	prediction := models.Prediction{
		StudentID:      studentID,
		DropoutRisk:    scored.RiskScore,
		Dropout:        scored.DropoutPrediction,
		RiskLevel:      strings.ToUpper(scored.RiskLevel),
		PredictionDate: s.now().UTC(),
	}
	if err := s.predictions.Save(ctx, prediction); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save prediction")
	}
	s.invalidate(ctx, studentID)

	return &models.PredictionResult{
		StudentID: studentID,
		Name:      snapshot.Name,
		RiskScore: scored.RiskScore,
		RiskLevel: prediction.RiskLevel,
		Dropout:   scored.DropoutPrediction,
	}, nil
}

// Save persists an externally computed prediction.
func (s *PredictionService) Save(ctx context.Context, req dto.SavePredictionRequest) error {
	if err := s.validate.Struct(req); err != nil {
		return appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	prediction := models.Prediction{
		StudentID:      req.StudentID,
		DropoutRisk:    req.RiskScore,
		Dropout:        req.DropoutPrediction,
		RiskLevel:      strings.ToUpper(req.RiskLevel),
		PredictionDate: s.now().UTC(),
	}
	if err := s.predictions.Save(ctx, prediction); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save prediction")
	}
	s.invalidate(ctx, req.StudentID)
	return nil
}

// RiskHistory returns the weekly average risk aggregate, Redis-cached.
func (s *PredictionService) RiskHistory(ctx context.Context) ([]models.RiskHistoryBucket, error) {
	var cached []models.RiskHistoryBucket
	if err := s.cache.Get(ctx, riskHistoryCacheKey, &cached); err == nil {
		return cached, nil
	}

	buckets, err := s.predictions.RiskHistory(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load risk history")
	}
	if buckets == nil {
		buckets = []models.RiskHistoryBucket{}
	}
	if err := s.cache.Set(ctx, riskHistoryCacheKey, buckets, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache risk history", zap.Error(err))
	}
	return buckets, nil
}

func (s *PredictionService) invalidate(ctx context.Context, studentID int64) {
	s.cache.Delete(ctx, rosterCacheKey, riskHistoryCacheKey)
	if s.guidanceCache != nil {
		s.guidanceCache.Delete(GuidanceCacheKey(studentID))
	}
}

func floatOrZero(value *float64) float64 {
	if value == nil {
		return 0
	}
	return *value
}

func intOrZero(value *int64) int64 {
	if value == nil {
		return 0
	}
	return *value
}

func boolToInt(value *bool) int {
	if value != nil && *value {
		return 1
	}
	return 0
}
