package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/unisched/scheduler-api/internal/dto"
	"github.com/unisched/scheduler-api/internal/models"
	"github.com/unisched/scheduler-api/internal/service"
	"github.com/unisched/scheduler-api/pkg/response"
)

type scheduleReader interface {
	List(ctx context.Context, query dto.ScheduleQuery, page, pageSize int) ([]models.Schedule, models.Pagination, error)
	GetDetail(ctx context.Context, id string) (*models.ScheduleDetail, error)
	ListConflicts(ctx context.Context, scheduleID string) ([]models.Conflict, error)
	Finalize(ctx context.Context, id string) (*models.Schedule, error)
	Delete(ctx context.Context, id string) error
	Export(ctx context.Context, id, format string) ([]byte, string, string, error)
}

// ScheduleHandler exposes stored schedule endpoints.
type ScheduleHandler struct {
	service scheduleReader
}

// NewScheduleHandler constructs the handler.
func NewScheduleHandler(svc *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: svc}
}

// List godoc
// @Summary List schedules
// @Tags Schedules
// @Produce json
// @Param semester_id query string false "Filter by semester"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	var query dto.ScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, err)
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	schedules, pagination, err := h.service.List(c.Request.Context(), query, page, pageSize)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, &pagination)
}

// Get godoc
// @Summary Get one schedule with placements and conflicts
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	detail, err := h.service.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Conflicts godoc
// @Summary List the conflicts of one schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/conflicts [get]
func (h *ScheduleHandler) Conflicts(c *gin.Context) {
	conflicts, err := h.service.ListConflicts(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflicts, nil)
}

// Finalize godoc
// @Summary Finalize a schedule
// @Description Fails while the schedule still has unresolved conflicts.
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/finalize [put]
func (h *ScheduleHandler) Finalize(c *gin.Context) {
	schedule, err := h.service.Finalize(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Delete godoc
// @Summary Delete a schedule and its results
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204 "No Content"
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export a schedule as CSV or PDF
// @Tags Schedules
// @Produce text/csv,application/pdf
// @Param id path string true "Schedule ID"
// @Param format query string false "Export format (csv or pdf)" default(csv)
// @Success 200 {file} file
// @Router /schedules/{id}/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	payload, contentType, filename, err := h.service.Export(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, contentType, payload)
}
