package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unisched/scheduler-api/internal/dto"
	"github.com/unisched/scheduler-api/internal/models"
	"github.com/unisched/scheduler-api/internal/service"
	appErrors "github.com/unisched/scheduler-api/pkg/errors"
	"github.com/unisched/scheduler-api/pkg/response"
)

type schedulerOrchestrator interface {
	Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error)
	ResolveConflict(ctx context.Context, conflictID string, req dto.ResolveConflictRequest) (*models.Conflict, error)
	CreateOverride(ctx context.Context, req dto.CreateOverrideRequest) (*models.ScheduledCourse, error)
}

// SchedulerHandler exposes the scheduling pipeline endpoints.
type SchedulerHandler struct {
	service schedulerOrchestrator
}

// NewSchedulerHandler constructs the handler.
func NewSchedulerHandler(svc *service.SchedulerService) *SchedulerHandler {
	return &SchedulerHandler{service: svc}
}

// Generate godoc
// @Summary Run a scheduling pass for a semester
// @Description Builds a catalog snapshot, invokes the solver chain and persists the resulting schedule with its conflicts.
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.GenerateScheduleRequest true "Generate schedule payload"
// @Success 201 {object} response.Envelope
// @Router /scheduler/generate [post]
func (h *SchedulerHandler) Generate(c *gin.Context) {
	var req dto.GenerateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid generate payload"))
		return
	}
	resp, err := h.service.Generate(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, resp)
}

// ResolveConflict godoc
// @Summary Mark a scheduling conflict as resolved
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param id path string true "Conflict ID"
// @Param payload body dto.ResolveConflictRequest true "Resolution payload"
// @Success 200 {object} response.Envelope
// @Router /scheduler/conflicts/{id}/resolve [put]
func (h *SchedulerHandler) ResolveConflict(c *gin.Context) {
	var req dto.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid resolution payload"))
		return
	}
	conflict, err := h.service.ResolveConflict(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, conflict, nil)
}

// CreateOverride godoc
// @Summary Insert a manual placement bypassing conflict detection
// @Tags Scheduler
// @Accept json
// @Produce json
// @Param payload body dto.CreateOverrideRequest true "Override payload"
// @Success 201 {object} response.Envelope
// @Router /scheduler/overrides [post]
func (h *SchedulerHandler) CreateOverride(c *gin.Context) {
	var req dto.CreateOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid override payload"))
		return
	}
	course, err := h.service.CreateOverride(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, course)
}
