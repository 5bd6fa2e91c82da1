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

	"github.com/unisched/scheduler-api/internal/dto"
	"github.com/unisched/scheduler-api/internal/models"
	appErrors "github.com/unisched/scheduler-api/pkg/errors"
)

type schedulerServiceMock struct {
	generateReq  dto.GenerateScheduleRequest
	generateErr  error
	resolvedID   string
	resolveReq   dto.ResolveConflictRequest
	overrideReq  dto.CreateOverrideRequest
	overrideErr  error
}

func (m *schedulerServiceMock) Generate(_ context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	m.generateReq = req
	if m.generateErr != nil {
		return nil, m.generateErr
	}
	return &dto.GenerateScheduleResponse{
		Schedule:      models.ScheduleDetail{Schedule: models.Schedule{ID: "SCH-1", SemesterID: req.SemesterID, Name: req.Name}},
		ConflictCount: 0,
	}, nil
}

func (m *schedulerServiceMock) ResolveConflict(_ context.Context, conflictID string, req dto.ResolveConflictRequest) (*models.Conflict, error) {
	m.resolvedID = conflictID
	m.resolveReq = req
	notes := req.ResolutionNotes
	return &models.Conflict{ID: conflictID, IsResolved: true, ResolutionNotes: &notes}, nil
}

func (m *schedulerServiceMock) CreateOverride(_ context.Context, req dto.CreateOverrideRequest) (*models.ScheduledCourse, error) {
	m.overrideReq = req
	if m.overrideErr != nil {
		return nil, m.overrideErr
	}
	reason := req.OverrideReason
	return &models.ScheduledCourse{ID: "SC-1", ScheduleID: req.ScheduleID, IsOverride: true, OverrideReason: &reason}, nil
}

func postContext(t *testing.T, target string, payload []byte) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(payload))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func TestSchedulerHandlerGenerate(t *testing.T) {
	mockSvc := &schedulerServiceMock{}
	handler := &SchedulerHandler{service: mockSvc}
	c, w := postContext(t, "/scheduler/generate", []byte(`{"semester_id":"sem-1","name":"Fall Draft 1"}`))

	handler.Generate(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "sem-1", mockSvc.generateReq.SemesterID)
	assert.Equal(t, "Fall Draft 1", mockSvc.generateReq.Name)
}

func TestSchedulerHandlerGenerateMalformedBody(t *testing.T) {
	handler := &SchedulerHandler{service: &schedulerServiceMock{}}
	c, w := postContext(t, "/scheduler/generate", []byte(`{"semester_id":`))

	handler.Generate(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSchedulerHandlerGenerateSolverUnavailable(t *testing.T) {
	mockSvc := &schedulerServiceMock{generateErr: appErrors.ErrSolverUnavailable}
	handler := &SchedulerHandler{service: mockSvc}
	c, w := postContext(t, "/scheduler/generate", []byte(`{"semester_id":"sem-1","name":"Fall Draft 1"}`))

	handler.Generate(c)

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrSolverUnavailable.Code, envelope.Error.Code)
}

func TestSchedulerHandlerResolveConflict(t *testing.T) {
	mockSvc := &schedulerServiceMock{}
	handler := &SchedulerHandler{service: mockSvc}
	c, w := postContext(t, "/scheduler/conflicts/CONF-1/resolve", []byte(`{"resolution_notes":"moved manually"}`))
	c.Params = gin.Params{{Key: "id", Value: "CONF-1"}}

	handler.ResolveConflict(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "CONF-1", mockSvc.resolvedID)
	assert.Equal(t, "moved manually", mockSvc.resolveReq.ResolutionNotes)
}

func TestSchedulerHandlerCreateOverride(t *testing.T) {
	mockSvc := &schedulerServiceMock{}
	handler := &SchedulerHandler{service: mockSvc}
	payload := []byte(`{"schedule_id":"SCH-1","course_id":"course-algos","professor_id":"prof-1","timeslot_id":"ts-1","day_of_week":"Monday","override_reason":"dean requested swap"}`)
	c, w := postContext(t, "/scheduler/overrides", payload)

	handler.CreateOverride(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "SCH-1", mockSvc.overrideReq.ScheduleID)
	assert.Equal(t, "dean requested swap", mockSvc.overrideReq.OverrideReason)
}

func TestSchedulerHandlerCreateOverrideRejected(t *testing.T) {
	mockSvc := &schedulerServiceMock{overrideErr: appErrors.ErrFinalized}
	handler := &SchedulerHandler{service: mockSvc}
	payload := []byte(`{"schedule_id":"SCH-1","course_id":"course-algos","professor_id":"prof-1","timeslot_id":"ts-1","day_of_week":"Monday","override_reason":"late change"}`)
	c, w := postContext(t, "/scheduler/overrides", payload)

	handler.CreateOverride(c)

	require.Equal(t, http.StatusConflict, w.Code)
}
