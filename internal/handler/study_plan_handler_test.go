package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/studyplan-api/internal/dto"
	"github.com/noah-isme/studyplan-api/internal/middleware"
	"github.com/noah-isme/studyplan-api/internal/models"
	"github.com/noah-isme/studyplan-api/internal/service"
	appErrors "github.com/noah-isme/studyplan-api/pkg/errors"
)

type studyPlanServiceMock struct {
	plan       *models.StudyPlan
	err        error
	lastReq    dto.StudyPlanRequest
	lastID     string
	deleteErr  error
	exportErr  error
	exportSeen service.ExportFormat
}

func (m *studyPlanServiceMock) Get(ctx context.Context, studentID string) (*models.StudyPlan, error) {
	m.lastID = studentID
	return m.plan, m.err
}

func (m *studyPlanServiceMock) Courses(ctx context.Context, studentID string) ([]models.Course, error) {
	return []models.Course{{ID: "01AAAAA", Name: "Analisi", Cfu: 6}}, m.err
}

func (m *studyPlanServiceMock) Create(ctx context.Context, studentID string, req dto.StudyPlanRequest) (*models.StudyPlan, error) {
	m.lastID, m.lastReq = studentID, req
	return m.plan, m.err
}

func (m *studyPlanServiceMock) Edit(ctx context.Context, studentID string, req dto.StudyPlanRequest) (*models.StudyPlan, error) {
	m.lastID, m.lastReq = studentID, req
	return m.plan, m.err
}

func (m *studyPlanServiceMock) Delete(ctx context.Context, studentID string) error {
	m.lastID = studentID
	return m.deleteErr
}

func (m *studyPlanServiceMock) Preview(ctx context.Context, studentID string, req dto.PreviewRequest) (*dto.PreviewResponse, error) {
	return &dto.PreviewResponse{StudyPlanType: models.PlanTypePartTime, MinCfu: 20, MaxCfu: 40}, m.err
}

func (m *studyPlanServiceMock) ExportPlan(ctx context.Context, studentID string, format service.ExportFormat) (*service.ExportResult, error) {
	m.exportSeen = format
	if m.exportErr != nil {
		return nil, m.exportErr
	}
	return &service.ExportResult{Filename: "studyplan.csv", ContentType: "text/csv", Data: []byte("Code\n")}, nil
}

func newPlanContext(t *testing.T, method, target string, body interface{}, authenticated bool) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	switch v := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(v))
	default:
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, target, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	if authenticated {
		c.Set(middleware.ContextUserKey, &models.JWTClaims{StudentID: "stu-1"})
	}
	return c, w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) *appErrors.Error {
	t.Helper()
	var env struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotNil(t, env.Error)
	return env.Error
}

func validPlanBody() map[string]interface{} {
	return map[string]interface{}{
		"studyPlanType": "part-time",
		"minCfu":        20,
		"maxCfu":        40,
		"actualCfu":     26,
		"courses":       []string{"01AAAAA", "06FFFFF"},
	}
}

func TestStudyPlanHandlerCreate(t *testing.T) {
	svc := &studyPlanServiceMock{plan: &models.StudyPlan{StudentID: "stu-1", Type: models.PlanTypePartTime, MinCfu: 20, MaxCfu: 40, ActualCfu: 26}}
	h := NewStudyPlanHandler(svc, svc)
	c, w := newPlanContext(t, http.MethodPost, "/api/studyplan", validPlanBody(), true)

	h.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "stu-1", svc.lastID)
	assert.Equal(t, []string{"01AAAAA", "06FFFFF"}, svc.lastReq.Courses)
	require.NotNil(t, svc.lastReq.ActualCfu)
	assert.Equal(t, 26, *svc.lastReq.ActualCfu)
}

func TestStudyPlanHandlerCreateRequiresStudent(t *testing.T) {
	svc := &studyPlanServiceMock{}
	h := NewStudyPlanHandler(svc, svc)
	c, w := newPlanContext(t, http.MethodPost, "/api/studyplan", validPlanBody(), false)

	h.Create(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestStudyPlanHandlerCreateInvalidBody(t *testing.T) {
	svc := &studyPlanServiceMock{}
	h := NewStudyPlanHandler(svc, svc)
	c, w := newPlanContext(t, http.MethodPost, "/api/studyplan", "invalid", true)

	h.Create(c)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Empty(t, svc.lastID)
}

func TestStudyPlanHandlerMapsRejections(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"conflict", appErrors.ErrPlanExists, http.StatusConflict, "PLAN_EXISTS"},
		{"incompatible", appErrors.ErrIncompatibleCourses, http.StatusBadRequest, "INCOMPATIBLE_COURSES"},
		{"sum", appErrors.ErrCfuSumMismatch, http.StatusUnprocessableEntity, "CFU_SUM_MISMATCH"},
		{"unknown course", appErrors.ErrCourseNotFound, http.StatusNotFound, "COURSE_NOT_FOUND"},
		{"integrity", appErrors.ErrCapacityExceeded, http.StatusConflict, "STORE_INTEGRITY"},
		{"unavailable", appErrors.ErrStoreUnavailable, http.StatusServiceUnavailable, "STORE_UNAVAILABLE"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &studyPlanServiceMock{err: tc.err}
			h := NewStudyPlanHandler(svc, svc)
			c, w := newPlanContext(t, http.MethodPut, "/api/studyplan/courses", validPlanBody(), true)

			h.Edit(c)
			require.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Code)
		})
	}
}

func TestStudyPlanHandlerGetNotFound(t *testing.T) {
	svc := &studyPlanServiceMock{err: appErrors.ErrPlanNotFound}
	h := NewStudyPlanHandler(svc, svc)
	c, w := newPlanContext(t, http.MethodGet, "/api/studyplan", nil, true)

	h.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Study plan not found", decodeError(t, w).Message)
}

func TestStudyPlanHandlerDelete(t *testing.T) {
	svc := &studyPlanServiceMock{}
	h := NewStudyPlanHandler(svc, svc)
	c, w := newPlanContext(t, http.MethodDelete, "/api/studyplan", nil, true)

	h.Delete(c)
	c.Writer.WriteHeaderNow()
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "stu-1", svc.lastID)
}

func TestStudyPlanHandlerExport(t *testing.T) {
	svc := &studyPlanServiceMock{}
	h := NewStudyPlanHandler(svc, svc)
	c, w := newPlanContext(t, http.MethodGet, "/api/studyplan/export?format=pdf", nil, true)

	h.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, service.ExportFormat("pdf"), svc.exportSeen)
	assert.Equal(t, `attachment; filename="studyplan.csv"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
}

func TestStudyPlanHandlerPreview(t *testing.T) {
	svc := &studyPlanServiceMock{}
	h := NewStudyPlanHandler(svc, svc)
	c, w := newPlanContext(t, http.MethodPost, "/api/studyplan/preview", map[string]interface{}{"studyPlanType": "part-time"}, true)

	h.Preview(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"maxCfu":40`)
}
