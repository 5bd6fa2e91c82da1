package handler

import (
	"context"
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

type scheduleServiceMock struct {
	detail      *models.ScheduleDetail
	finalizeErr error
	deletedID   string
}

func (m *scheduleServiceMock) List(_ context.Context, _ dto.ScheduleQuery, page, pageSize int) ([]models.Schedule, models.Pagination, error) {
	return []models.Schedule{{ID: "SCH-1"}}, models.Pagination{Page: page, PageSize: pageSize, TotalCount: 1}, nil
}

func (m *scheduleServiceMock) GetDetail(_ context.Context, id string) (*models.ScheduleDetail, error) {
	if m.detail == nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
	}
	return m.detail, nil
}

func (m *scheduleServiceMock) ListConflicts(_ context.Context, _ string) ([]models.Conflict, error) {
	return nil, nil
}

func (m *scheduleServiceMock) Finalize(_ context.Context, id string) (*models.Schedule, error) {
	if m.finalizeErr != nil {
		return nil, m.finalizeErr
	}
	return &models.Schedule{ID: id, IsFinal: true}, nil
}

func (m *scheduleServiceMock) Delete(_ context.Context, id string) error {
	m.deletedID = id
	return nil
}

func (m *scheduleServiceMock) Export(_ context.Context, id, format string) ([]byte, string, string, error) {
	return []byte("Course,Professor\n"), "text/csv", "schedule-" + id + ".csv", nil
}

func getContext(t *testing.T, target string) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	req, err := http.NewRequest(http.MethodGet, target, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	return c, w
}

func TestScheduleHandlerGet(t *testing.T) {
	mockSvc := &scheduleServiceMock{detail: &models.ScheduleDetail{Schedule: models.Schedule{ID: "SCH-1"}}}
	handler := &ScheduleHandler{service: mockSvc}
	c, w := getContext(t, "/schedules/SCH-1")
	c.Params = gin.Params{{Key: "id", Value: "SCH-1"}}

	handler.Get(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "SCH-1")
}

func TestScheduleHandlerGetNotFound(t *testing.T) {
	handler := &ScheduleHandler{service: &scheduleServiceMock{}}
	c, w := getContext(t, "/schedules/SCH-missing")
	c.Params = gin.Params{{Key: "id", Value: "SCH-missing"}}

	handler.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestScheduleHandlerFinalizeBlocked(t *testing.T) {
	mockSvc := &scheduleServiceMock{finalizeErr: appErrors.Clone(appErrors.ErrPreconditionFailed, "schedule has 2 unresolved conflicts")}
	handler := &ScheduleHandler{service: mockSvc}
	c, w := getContext(t, "/schedules/SCH-1/finalize")
	c.Params = gin.Params{{Key: "id", Value: "SCH-1"}}

	handler.Finalize(c)

	require.Equal(t, http.StatusPreconditionFailed, w.Code)
}

func TestScheduleHandlerDelete(t *testing.T) {
	mockSvc := &scheduleServiceMock{}
	handler := &ScheduleHandler{service: mockSvc}
	c, w := getContext(t, "/schedules/SCH-1")
	c.Params = gin.Params{{Key: "id", Value: "SCH-1"}}

	handler.Delete(c)
	// Flush the buffered status code, as gin's engine does after the handler
	// chain; without this the recorder keeps its default 200 for bodyless responses.
	c.Writer.WriteHeaderNow()

	require.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "SCH-1", mockSvc.deletedID)
}

func TestScheduleHandlerExport(t *testing.T) {
	handler := &ScheduleHandler{service: &scheduleServiceMock{}}
	c, w := getContext(t, "/schedules/SCH-1/export?format=csv")
	c.Params = gin.Params{{Key: "id", Value: "SCH-1"}}

	handler.Export(c)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "schedule-SCH-1.csv")
}
