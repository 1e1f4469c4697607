package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/dropout-copilot-api/internal/dto"
	"github.com/noah-isme/dropout-copilot-api/internal/models"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
)

type alertRepository interface {
	Create(ctx context.Context, alert *models.StudentAlert) error
	List(ctx context.Context, studentID *int64, registerNumber string) ([]models.StudentAlert, error)
}

type alertStudentRepository interface {
	Snapshot(ctx context.Context, id int64) (*models.StudentSnapshot, error)
	FindByRegisterNumber(ctx context.Context, registerNumber string) (*models.Student, error)
}

// AlertService raises and lists faculty alerts about students.
type AlertService struct {
	alerts   alertRepository
	students alertStudentRepository
	logger   *zap.Logger
}

func NewAlertService(alerts alertRepository, students alertStudentRepository, logger *zap.Logger) *AlertService {
	return &AlertService{alerts: alerts, students: students, logger: logger}
}

// Create raises an alert. The student may be addressed by id or register
// number; an omitted message falls back to a standard template.
func (s *AlertService) Create(ctx context.Context, facultyID string, req dto.CreateAlertRequest) (*models.StudentAlert, error) {
	name, studentID, registerNumber, err := s.resolveStudent(ctx, req)
	if err != nil {
		return nil, err
	}

	message := strings.TrimSpace(req.Message)
	if message == "" {
		message = fmt.Sprintf("Faculty alert for %s (%s).", name, registerNumber)
	}

	alert := &models.StudentAlert{
		FacultyID: facultyID,
		StudentID: studentID,
		Message:   message,
	}
	if err := s.alerts.Create(ctx, alert); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create alert")
	}
	alert.StudentName = &name
	alert.RegisterNumber = &registerNumber
	return alert, nil
}

// List returns alerts filtered by student id or register number. At least
// one filter is required.
func (s *AlertService) List(ctx context.Context, studentID *int64, registerNumber string) ([]models.StudentAlert, error) {
	registerNumber = strings.TrimSpace(registerNumber)
	if studentID == nil && registerNumber == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student_id or register_number is required")
	}
	alerts, err := s.alerts.List(ctx, studentID, registerNumber)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list alerts")
	}
	if alerts == nil {
		alerts = []models.StudentAlert{}
	}
	return alerts, nil
}

func (s *AlertService) resolveStudent(ctx context.Context, req dto.CreateAlertRequest) (name string, id int64, registerNumber string, err error) {
	switch {
	case req.StudentID != nil:
		snapshot, lookupErr := s.students.Snapshot(ctx, *req.StudentID)
		if lookupErr != nil {
			if errors.Is(lookupErr, sql.ErrNoRows) {
				return "", 0, "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return "", 0, "", appErrors.Wrap(lookupErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		return snapshot.Name, snapshot.ID, snapshot.RegisterNumber, nil
	case strings.TrimSpace(req.RegisterNumber) != "":
		student, lookupErr := s.students.FindByRegisterNumber(ctx, strings.TrimSpace(req.RegisterNumber))
		if lookupErr != nil {
			if errors.Is(lookupErr, sql.ErrNoRows) {
				return "", 0, "", appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return "", 0, "", appErrors.Wrap(lookupErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		return student.Name, student.ID, student.RegisterNumber, nil
	default:
		return "", 0, "", appErrors.Clone(appErrors.ErrValidation, "student_id or register_number is required")
	}
}
