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
	"github.com/noah-isme/dropout-copilot-api/internal/repository"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

// Redis keys for read-side roster caching.
const (
	rosterCacheKey      = "students:roster"
	riskHistoryCacheKey = "students:risk_history"
)

type studentRepository interface {
	Snapshot(ctx context.Context, id int64) (*models.StudentSnapshot, error)
	ListFull(ctx context.Context) ([]models.StudentSnapshot, error)
	FindByRegisterNumber(ctx context.Context, registerNumber string) (*models.Student, error)
	Create(ctx context.Context, student *models.Student) error
	UpdateAcademic(ctx context.Context, studentID int64, update models.AcademicUpdate) error
	Delete(ctx context.Context, id int64) error
}

type rosterCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string)
}

// StudentService exposes roster reads and writes. List results are cached
// in Redis and invalidated by every roster mutation and prediction save.
type StudentService struct {
	repo          studentRepository
	cache         rosterCache
	guidanceCache *GuidanceCache
	validate      *validator.Validate
	logger        *zap.Logger
	cacheTTL      time.Duration
}

func NewStudentService(
	repo studentRepository,
	cache rosterCache,
	guidanceCache *GuidanceCache,
	validate *validator.Validate,
	logger *zap.Logger,
	cacheTTL time.Duration,
) *StudentService {
	return &StudentService{
		repo:          repo,
		cache:         cache,
		guidanceCache: guidanceCache,
		validate:      validate,
		logger:        logger,
		cacheTTL:      cacheTTL,
	}
}

// List returns the full roster with latest predictions.
func (s *StudentService) List(ctx context.Context) ([]models.StudentSnapshot, error) {
	var cached []models.StudentSnapshot
	if err := s.cache.Get(ctx, rosterCacheKey, &cached); err == nil {
		return cached, nil
	}

	students, err := s.repo.ListFull(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	if students == nil {
		students = []models.StudentSnapshot{}
	}
	if err := s.cache.Set(ctx, rosterCacheKey, students, s.cacheTTL); err != nil {
		s.logger.Warn("failed to cache roster", zap.Error(err))
	}
	return students, nil
}

// Get returns one student's snapshot.
func (s *StudentService) Get(ctx context.Context, id int64) (*models.StudentSnapshot, error) {
	snapshot, err := s.repo.Snapshot(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	return snapshot, nil
}

// Create registers a new student together with an empty academic record.
func (s *StudentService) Create(ctx context.Context, req dto.CreateStudentRequest) (*models.Student, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	student := &models.Student{
		Name:           strings.TrimSpace(req.Name),
		RegisterNumber: strings.TrimSpace(req.RegisterNumber),
		Year:           req.Year,
		Semester:       req.Semester,
		FacultyID:      req.FacultyID,
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.invalidate(ctx, student.ID)
	return student, nil
}

// UpdateAcademic patches the mutable academic fields.
func (s *StudentService) UpdateAcademic(ctx context.Context, id int64, update models.AcademicUpdate) error {
	if update.Attendance == nil && update.CGPA == nil && update.ArrearCount == nil && update.FeesPaid == nil {
		return appErrors.Clone(appErrors.ErrValidation, "at least one academic field is required")
	}
	if update.Attendance != nil && (*update.Attendance < 0 || *update.Attendance > 100) {
		return appErrors.Clone(appErrors.ErrValidation, "attendance must be between 0 and 100")
	}
	if update.CGPA != nil && (*update.CGPA < 0 || *update.CGPA > 10) {
		return appErrors.Clone(appErrors.ErrValidation, "cgpa must be between 0 and 10")
	}

	if err := s.repo.UpdateAcademic(ctx, id, update); err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update academic record")
	}
	s.invalidate(ctx, id)
	return nil
}

// Delete removes a student and all dependent rows.
func (s *StudentService) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete student")
	}
	s.invalidate(ctx, id)
	return nil
}

// invalidate drops every cached view that could reflect stale data for the
// student: the shared roster keys and the per-student guidance entry.
func (s *StudentService) invalidate(ctx context.Context, studentID int64) {
	s.cache.Delete(ctx, rosterCacheKey, riskHistoryCacheKey)
	if s.guidanceCache != nil {
		s.guidanceCache.Delete(GuidanceCacheKey(studentID))
	}
}
