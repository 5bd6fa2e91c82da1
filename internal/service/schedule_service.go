package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unisched/scheduler-api/internal/dto"
	"github.com/unisched/scheduler-api/internal/models"
	appErrors "github.com/unisched/scheduler-api/pkg/errors"
	"github.com/unisched/scheduler-api/pkg/export"
)

type scheduleLifecycleStore interface {
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
	List(ctx context.Context, semesterID string, page, pageSize int) ([]models.Schedule, int, error)
	SetFinal(ctx context.Context, id string, isFinal bool) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type placementReader interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduledCourse, error)
	DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) error
}

type conflictReader interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.Conflict, error)
	CountUnresolved(ctx context.Context, scheduleID string) (int, error)
	DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) error
}

// ScheduleService serves stored schedules: listing, detail reads, lifecycle
// transitions and exports. Generation lives in SchedulerService.
type ScheduleService struct {
	schedules  scheduleLifecycleStore
	placements placementReader
	conflicts  conflictReader
	catalog    catalogReader
	cache      *CacheService
	cacheTTL   time.Duration
	tx         txProvider
	logger     *zap.Logger
}

// NewScheduleService wires the schedule read side.
func NewScheduleService(
	schedules scheduleLifecycleStore,
	placements placementReader,
	conflicts conflictReader,
	catalog catalogReader,
	cache *CacheService,
	cacheTTL time.Duration,
	tx txProvider,
	logger *zap.Logger,
) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		schedules:  schedules,
		placements: placements,
		conflicts:  conflicts,
		catalog:    catalog,
		cache:      cache,
		cacheTTL:   cacheTTL,
		tx:         tx,
		logger:     logger,
	}
}

func scheduleDetailCacheKey(id string) string {
	return "schedule:detail:" + id
}

// List returns schedules matching the query with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, query dto.ScheduleQuery, page, pageSize int) ([]models.Schedule, models.Pagination, error) {
	schedules, total, err := s.schedules.List(ctx, query.SemesterID, page, pageSize)
	if err != nil {
		return nil, models.Pagination{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list schedules")
	}
	if page < 1 {
		page = 1
	}
	if pageSize <= 0 || pageSize > 100 {
		pageSize = 20
	}
	return schedules, models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// GetDetail loads one schedule with its placements and conflicts.
func (s *ScheduleService) GetDetail(ctx context.Context, id string) (*models.ScheduleDetail, error) {
	var cached models.ScheduleDetail
	if hit, _ := s.cache.Get(ctx, scheduleDetailCacheKey(id), &cached); hit {
		return &cached, nil
	}

	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load schedule")
	}
	courses, err := s.placements.ListBySchedule(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load placements")
	}
	conflicts, err := s.conflicts.ListBySchedule(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load conflicts")
	}

	detail := &models.ScheduleDetail{
		Schedule:         *schedule,
		ScheduledCourses: courses,
		Conflicts:        conflicts,
	}
	_ = s.cache.Set(ctx, scheduleDetailCacheKey(id), detail, s.cacheTTL)
	return detail, nil
}

// ListConflicts returns the conflicts of one schedule.
func (s *ScheduleService) ListConflicts(ctx context.Context, scheduleID string) ([]models.Conflict, error) {
	if _, err := s.schedules.FindByID(ctx, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load schedule")
	}
	conflicts, err := s.conflicts.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "list conflicts")
	}
	return conflicts, nil
}

// Finalize marks a schedule as final. A schedule with open conflicts cannot
// be finalized; resolve or override them first.
func (s *ScheduleService) Finalize(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load schedule")
	}
	if schedule.IsFinal {
		return schedule, nil
	}

	open, err := s.conflicts.CountUnresolved(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "count open conflicts")
	}
	if open > 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed,
			fmt.Sprintf("schedule has %d unresolved conflicts", open))
	}

	if err := s.schedules.SetFinal(ctx, id, true); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "finalize schedule")
	}
	_ = s.cache.Invalidate(ctx, scheduleDetailCacheKey(id))

	schedule.IsFinal = true
	s.logger.Info("schedule finalized", zap.String("schedule_id", id))
	return schedule, nil
}

// Delete removes a schedule and every row it produced. Finalized schedules
// are immutable and cannot be deleted.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	schedule, err := s.schedules.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load schedule")
	}
	if schedule.IsFinal {
		return appErrors.Clone(appErrors.ErrFinalized, "finalized schedules cannot be deleted")
	}

	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "begin delete transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = s.conflicts.DeleteBySchedule(ctx, tx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete conflicts")
	}
	if err = s.placements.DeleteBySchedule(ctx, tx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete placements")
	}
	if err = s.schedules.Delete(ctx, tx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "delete schedule")
	}
	if err = tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit delete transaction")
	}

	_ = s.cache.Invalidate(ctx, scheduleDetailCacheKey(id))
	s.logger.Info("schedule deleted", zap.String("schedule_id", id))
	return nil
}

// Export renders a schedule as CSV or PDF bytes.
func (s *ScheduleService) Export(ctx context.Context, id, format string) ([]byte, string, string, error) {
	detail, err := s.GetDetail(ctx, id)
	if err != nil {
		return nil, "", "", err
	}

	table, err := s.buildExportTable(ctx, detail)
	if err != nil {
		return nil, "", "", err
	}

	switch format {
	case "csv", "":
		payload, err := export.RenderCSV(*table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render csv")
		}
		return payload, "text/csv", fmt.Sprintf("schedule-%s.csv", id), nil
	case "pdf":
		payload, err := export.RenderPDF(*table)
		if err != nil {
			return nil, "", "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "render pdf")
		}
		return payload, "application/pdf", fmt.Sprintf("schedule-%s.pdf", id), nil
	default:
		return nil, "", "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format: "+format)
	}
}

func (s *ScheduleService) buildExportTable(ctx context.Context, detail *models.ScheduleDetail) (*export.Table, error) {
	courses, err := s.catalog.ListCoursesBySemester(ctx, detail.Schedule.SemesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load course names")
	}
	professors, err := s.catalog.ListProfessors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load professor names")
	}
	slots, err := s.catalog.ListTimeSlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load time slot names")
	}

	courseNames := make(map[string]string, len(courses))
	for _, c := range courses {
		courseNames[c.ID] = c.Name
	}
	professorNames := make(map[string]string, len(professors))
	for _, p := range professors {
		professorNames[p.ID] = p.FirstName + " " + p.LastName
	}
	slotLabels := make(map[string]string, len(slots))
	for _, slot := range slots {
		slotLabels[slot.ID] = fmt.Sprintf("%s (%s-%s)", slot.Name, slot.StartTime, slot.EndTime)
	}

	rows := make([][]string, 0, len(detail.ScheduledCourses))
	for _, placement := range detail.ScheduledCourses {
		courseName := courseNames[placement.CourseID]
		if courseName == "" {
			courseName = placement.CourseID
		}
		professorName := "Unassigned"
		if placement.ProfessorID != nil {
			if name, ok := professorNames[*placement.ProfessorID]; ok {
				professorName = name
			} else {
				professorName = *placement.ProfessorID
			}
		}
		slotLabel := slotLabels[placement.TimeslotID]
		if slotLabel == "" {
			slotLabel = placement.TimeslotID
		}
		override := ""
		if placement.IsOverride {
			override = "yes"
		}
		rows = append(rows, []string{
			courseName,
			professorName,
			placement.DayOfWeek,
			slotLabel,
			strconv.Itoa(placement.ClassInstance),
			override,
		})
	}

	return &export.Table{
		Title:   detail.Schedule.Name,
		Headers: []string{"Course", "Professor", "Day", "Time Slot", "Class", "Override"},
		Rows:    rows,
	}, nil
}
