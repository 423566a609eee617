package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/service"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
	"github.com/noah-isme/studyplan-api/pkg/response"
)

type studyPlanService interface {
	Get(ctx context.Context, studentID string) (*models.StudyPlan, error)
	Courses(ctx context.Context, studentID string) ([]models.Course, error)
	Create(ctx context.Context, studentID string, req dto.StudyPlanRequest) (*models.StudyPlan, error)
	Edit(ctx context.Context, studentID string, req dto.StudyPlanRequest) (*models.StudyPlan, error)
	Delete(ctx context.Context, studentID string) error
	Preview(ctx context.Context, studentID string, req dto.PreviewRequest) (*dto.PreviewResponse, error)
}

type planExporter interface {
	ExportPlan(ctx context.Context, studentID string, format service.ExportFormat) (*service.ExportResult, error)
}

// StudyPlanHandler exposes the authenticated student's plan.
type StudyPlanHandler struct {
	service  studyPlanService
	exporter planExporter
}

// NewStudyPlanHandler builds a new handler.
func NewStudyPlanHandler(service studyPlanService, exporter planExporter) *StudyPlanHandler {
	return &StudyPlanHandler{service: service, exporter: exporter}
}

// Get godoc
// @Summary Get study plan
// @Tags StudyPlan
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /studyplan [get]
func (h *StudyPlanHandler) Get(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	plan, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan)
}

// Courses godoc
// @Summary List study plan courses
// @Tags StudyPlan
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /studyplan/courses [get]
func (h *StudyPlanHandler) Courses(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	courses, err := h.service.Courses(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, courses)
}

// Create godoc
// @Summary Create study plan
// @Tags StudyPlan
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StudyPlanRequest true "Study plan"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /studyplan [post]
func (h *StudyPlanHandler) Create(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	var req dto.StudyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, "invalid study plan payload"))
		return
	}
	plan, err := h.service.Create(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// Edit godoc
// @Summary Replace study plan courses
// @Tags StudyPlan
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.StudyPlanRequest true "Study plan"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /studyplan/courses [put]
func (h *StudyPlanHandler) Edit(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	var req dto.StudyPlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, "invalid study plan payload"))
		return
	}
	plan, err := h.service.Edit(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, plan)
}

// Delete godoc
// @Summary Delete study plan
// @Tags StudyPlan
// @Security BearerAuth
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /studyplan [delete]
func (h *StudyPlanHandler) Delete(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Preview godoc
// @Summary Preview a draft course set
// @Description Per-course add/remove availability and running CFU total
// @Tags StudyPlan
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.PreviewRequest true "Draft"
// @Success 200 {object} response.Envelope
// @Router /studyplan/preview [post]
func (h *StudyPlanHandler) Preview(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	var req dto.PreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrUnprocessable.Code, appErrors.ErrUnprocessable.Status, "invalid preview payload"))
		return
	}
	res, err := h.service.Preview(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res)
}

// Export godoc
// @Summary Export study plan
// @Tags StudyPlan
// @Produce octet-stream
// @Security BearerAuth
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /studyplan/export [get]
func (h *StudyPlanHandler) Export(c *gin.Context) {
	id, ok := studentID(c)
	if !ok {
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportFormatCSV)))
	result, err := h.exporter.ExportPlan(c.Request.Context(), id, format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.File(c, result.Filename, result.ContentType, result.Data)
}
