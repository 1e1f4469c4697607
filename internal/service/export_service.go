package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/dropout-copilot-api/internal/dto"
	"github.com/noah-isme/dropout-copilot-api/internal/models"
	appErrors "github.com/noah-isme/dropout-copilot-api/pkg/errors"
	"github.com/noah-isme/dropout-copilot-api/pkg/export"
	"github.com/noah-isme/dropout-copilot-api/pkg/jobs"
)

type exportRepository interface {
	Create(ctx context.Context, job *models.ExportJob) error
	MarkCompleted(ctx context.Context, id string, rowCount int) error
	MarkFailed(ctx context.Context, id string) error
	List(ctx context.Context) ([]models.ExportJob, error)
	FindByID(ctx context.Context, id string) (*models.ExportJob, error)
}

type exportStudentRepository interface {
	ListFull(ctx context.Context) ([]models.StudentSnapshot, error)
	Snapshot(ctx context.Context, id int64) (*models.StudentSnapshot, error)
}

type exportQueue interface {
	Enqueue(job jobs.Job) error
}

// ExportService queues roster CSV and per-student PDF report generation.
// Files are rendered by queue workers and served from the storage dir.
type ExportService struct {
	repo       exportRepository
	students   exportStudentRepository
	contexts   riskContextBuilder
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	queue      exportQueue
	storageDir string
	validate   *validator.Validate
	logger     *zap.Logger
}

func NewExportService(
	repo exportRepository,
	students exportStudentRepository,
	contexts riskContextBuilder,
	csv *export.CSVExporter,
	pdf *export.PDFExporter,
	validate *validator.Validate,
	logger *zap.Logger,
	storageDir string,
) *ExportService {
	return &ExportService{
		repo:       repo,
		students:   students,
		contexts:   contexts,
		csv:        csv,
		pdf:        pdf,
		storageDir: storageDir,
		validate:   validate,
		logger:     logger,
	}
}

// SetQueue attaches the worker queue. The queue is built after the service
// because the service is also the queue's handler.
func (s *ExportService) SetQueue(queue exportQueue) {
	s.queue = queue
}

// Create validates and queues an export job.
func (s *ExportService) Create(ctx context.Context, req dto.CreateExportRequest) (*models.ExportJob, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}

	job := &models.ExportJob{
		ID:     uuid.NewString(),
		Kind:   req.Kind,
		Status: models.ExportStatusQueued,
	}

	switch req.Kind {
	case models.ExportKindRosterCSV:
		job.FileName = "roster_" + job.ID + ".csv"
	case models.ExportKindRiskReport:
		if req.StudentID == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "student_id is required for risk report exports")
		}
		if _, err := s.students.Snapshot(ctx, *req.StudentID); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
		}
		job.StudentID = req.StudentID
		job.FileName = "risk_report_" + strconv.FormatInt(*req.StudentID, 10) + "_" + job.ID + ".pdf"
	}

	if err := s.repo.Create(ctx, job); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create export job")
	}
	if err := s.queue.Enqueue(jobs.Job{ID: job.ID, Type: job.Kind, Payload: *job, Enqueued: time.Now()}); err != nil {
		s.logger.Error("failed to enqueue export", zap.String("export_id", job.ID), zap.Error(err))
		if markErr := s.repo.MarkFailed(ctx, job.ID); markErr != nil {
			s.logger.Error("failed to mark export failed", zap.String("export_id", job.ID), zap.Error(markErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "export queue is full")
	}
	return job, nil
}

// HandleJob renders one queued export. It is the jobs.Handler for the
// export queue; a returned error triggers the queue's retry policy.
func (s *ExportService) HandleJob(ctx context.Context, job jobs.Job) error {
	exportJob, ok := job.Payload.(models.ExportJob)
	if !ok {
		return fmt.Errorf("unexpected export payload type %T", job.Payload)
	}

	content, rowCount, err := s.render(ctx, exportJob)
	if err != nil {
		if markErr := s.repo.MarkFailed(ctx, exportJob.ID); markErr != nil {
			s.logger.Error("failed to mark export failed", zap.String("export_id", exportJob.ID), zap.Error(markErr))
		}
		return err
	}

	if err := s.writeFile(exportJob.FileName, content); err != nil {
		if markErr := s.repo.MarkFailed(ctx, exportJob.ID); markErr != nil {
			s.logger.Error("failed to mark export failed", zap.String("export_id", exportJob.ID), zap.Error(markErr))
		}
		return err
	}

	if err := s.repo.MarkCompleted(ctx, exportJob.ID, rowCount); err != nil {
		return err
	}
	s.logger.Info("export completed",
		zap.String("export_id", exportJob.ID), zap.String("kind", exportJob.Kind), zap.Int("rows", rowCount))
	return nil
}

// List returns all export jobs, newest first.
func (s *ExportService) List(ctx context.Context) ([]models.ExportJob, error) {
	exports, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exports")
	}
	if exports == nil {
		exports = []models.ExportJob{}
	}
	return exports, nil
}

// Open returns a completed export's metadata and file path for download.
func (s *ExportService) Open(ctx context.Context, id string) (*models.ExportJob, string, error) {
	job, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", appErrors.Clone(appErrors.ErrNotFound, "export not found")
		}
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load export")
	}
	if job.Status != models.ExportStatusCompleted {
		return nil, "", appErrors.Clone(appErrors.ErrConflict, "export is not completed yet")
	}
	return job, filepath.Join(s.storageDir, job.FileName), nil
}

func (s *ExportService) render(ctx context.Context, job models.ExportJob) ([]byte, int, error) {
	switch job.Kind {
	case models.ExportKindRosterCSV:
		return s.renderRoster(ctx)
	case models.ExportKindRiskReport:
		if job.StudentID == nil {
			return nil, 0, fmt.Errorf("risk report export %s has no student", job.ID)
		}
		return s.renderRiskReport(ctx, *job.StudentID)
	default:
		return nil, 0, fmt.Errorf("unknown export kind %q", job.Kind)
	}
}

func (s *ExportService) renderRoster(ctx context.Context) ([]byte, int, error) {
	students, err := s.students.ListFull(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("load roster: %w", err)
	}

	dataset := export.Dataset{
		Headers: []string{"id", "name", "register_number", "year", "semester", "attendance", "cgpa", "arrear_count", "fees_paid", "risk_score", "risk_level"},
		Rows:    make([]map[string]string, 0, len(students)),
	}
	for _, student := range students {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":              strconv.FormatInt(student.ID, 10),
			"name":            student.Name,
			"register_number": student.RegisterNumber,
			"year":            strconv.Itoa(student.Year),
			"semester":        strconv.Itoa(student.Semester),
			"attendance":      csvFloat(student.Attendance),
			"cgpa":            csvFloat(student.CGPA),
			"arrear_count":    csvInt(student.ArrearCount),
			"fees_paid":       csvBool(student.FeesPaid),
			"risk_score":      csvFloat(student.RiskScore),
			"risk_level":      csvString(student.RiskLevel),
		})
	}

	content, err := s.csv.Render(dataset)
	if err != nil {
		return nil, 0, fmt.Errorf("render roster csv: %w", err)
	}
	return content, export.CountDataRows(content), nil
}

func (s *ExportService) renderRiskReport(ctx context.Context, studentID int64) ([]byte, int, error) {
	riskContext, err := s.contexts.Build(ctx, studentID)
	if err != nil {
		return nil, 0, fmt.Errorf("build risk context: %w", err)
	}
	guidance := GenerateGuidance(*riskContext)

	sections := []export.ReportSection{
		{
			Heading: "Student",
			Fields: []export.ReportField{
				{Label: "Name", Value: riskContext.Name},
				{Label: "Register number", Value: riskContext.RegisterNumber},
			},
		},
		{
			Heading: "Risk profile",
			Fields: []export.ReportField{
				{Label: "Risk level", Value: riskContext.RiskLevel},
				{Label: "Risk percent", Value: csvIntPtr(riskContext.RiskPercent)},
				{Label: "Trend", Value: riskContext.RiskTrend},
				{Label: "Attendance", Value: csvFloat(riskContext.Attendance)},
				{Label: "CGPA", Value: csvFloat(riskContext.CGPA)},
				{Label: "Urgency", Value: guidance.Urgency},
			},
		},
	}
	paragraphs := append([]string{guidance.Summary}, guidance.Recommendations...)
	paragraphs = append(paragraphs, guidance.SupportMessage)

	content, err := s.pdf.RenderReport("Dropout Risk Report", sections, paragraphs)
	if err != nil {
		return nil, 0, fmt.Errorf("render risk report pdf: %w", err)
	}
	return content, 1, nil
}

func (s *ExportService) writeFile(name string, content []byte) error {
	if err := os.MkdirAll(s.storageDir, 0o755); err != nil {
		return fmt.Errorf("create export dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.storageDir, name), content, 0o644); err != nil {
		return fmt.Errorf("write export file: %w", err)
	}
	return nil
}

func csvFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}

func csvInt(value *int64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatInt(*value, 10)
}

func csvIntPtr(value *int) string {
	if value == nil {
		return ""
	}
	return strconv.Itoa(*value)
}

func csvBool(value *bool) string {
	if value == nil {
		return ""
	}
	return strconv.FormatBool(*value)
}

func csvString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
