package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/studyplan-api/internal/models"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
	"github.com/noah-isme/studyplan-api/pkg/export"
)

// ExportFormat names a supported document format.
type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatPDF  ExportFormat = "pdf"
	ExportFormatXLSX ExportFormat = "xlsx"
)

type planExportRepository interface {
	GetPlan(ctx context.Context, studentID string) (*models.StudyPlan, error)
	ListPlanCourses(ctx context.Context, studentID string) ([]models.Course, error)
}

// ExportResult is a rendered document ready to be streamed.
type ExportResult struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a student's plan into downloadable documents.
type ExportService struct {
	repo      planExportRepository
	renderers map[ExportFormat]export.Renderer
	logger    *zap.Logger
	now       func() time.Time
}

// NewExportService constructs an ExportService with CSV, PDF and XLSX renderers.
func NewExportService(repo planExportRepository, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo: repo,
		renderers: map[ExportFormat]export.Renderer{
			ExportFormatCSV:  export.NewCSVExporter(),
			ExportFormatPDF:  export.NewPDFExporter(),
			ExportFormatXLSX: export.NewXLSXExporter(),
		},
		logger: logger,
		now:    time.Now,
	}
}

var planExportHeaders = []string{"Code", "Name", "CFU", "Required", "Enrolled", "Max Students"}

// ExportPlan renders the plan of studentID in the requested format.
func (s *ExportService) ExportPlan(ctx context.Context, studentID string, format ExportFormat) (*ExportResult, error) {
	renderer, ok := s.renderers[ExportFormat(strings.ToLower(string(format)))]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}

	plan, err := s.repo.GetPlan(ctx, studentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrPlanNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study plan")
	}
	courses, err := s.repo.ListPlanCourses(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load study plan courses")
	}

	payload, err := renderer.Render(planDataset(plan, courses))
	if err != nil {
		s.logger.Error("study plan export failed", zap.String("student_id", studentID), zap.String("format", renderer.Extension()), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}

	return &ExportResult{
		Filename:    fmt.Sprintf("studyplan_%s.%s", s.now().UTC().Format("20060102_150405"), renderer.Extension()),
		ContentType: renderer.ContentType(),
		Data:        payload,
	}, nil
}

func planDataset(plan *models.StudyPlan, courses []models.Course) export.Dataset {
	rows := make([]map[string]string, 0, len(courses))
	for _, c := range courses {
		maxS := ""
		if c.MaxS != nil {
			maxS = strconv.Itoa(*c.MaxS)
		}
		rows = append(rows, map[string]string{
			"Code":         c.ID,
			"Name":         c.Name,
			"CFU":          strconv.Itoa(c.Cfu),
			"Required":     c.RequiredID(),
			"Enrolled":     strconv.Itoa(c.ActualS),
			"Max Students": maxS,
		})
	}
	return export.Dataset{
		Title:   fmt.Sprintf("Study plan (%s) %d/%d-%d CFU", plan.Type, plan.ActualCfu, plan.MinCfu, plan.MaxCfu),
		Headers: planExportHeaders,
		Rows:    rows,
	}
}
