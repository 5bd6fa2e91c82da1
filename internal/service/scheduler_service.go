package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/unisched/scheduler-api/internal/dto"
	"github.com/unisched/scheduler-api/internal/models"
	"github.com/unisched/scheduler-api/internal/repository"
	"github.com/unisched/scheduler-api/internal/solver"
	appErrors "github.com/unisched/scheduler-api/pkg/errors"
)

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type scheduleStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error
	FindByID(ctx context.Context, id string) (*models.Schedule, error)
}

type placementStore interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, course *models.ScheduledCourse) error
	FindByID(ctx context.Context, id string) (*models.ScheduledCourse, error)
}

type conflictStore interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, conflict *models.Conflict) error
	InsertCourses(ctx context.Context, exec sqlx.ExtContext, links []models.ConflictCourse) (int64, error)
	FindByID(ctx context.Context, id string) (*models.Conflict, error)
	Resolve(ctx context.Context, id, notes string) error
}

type snapshotBuilder interface {
	Build(ctx context.Context, scheduleID, semesterID string) (*dto.SolverInput, error)
}

type catalogChecker interface {
	CourseExists(ctx context.Context, id string) (bool, error)
	ProfessorExists(ctx context.Context, id string) (bool, error)
	TimeSlotExists(ctx context.Context, id string) (bool, error)
}

const schedulePrefix = "SCH-"

// SchedulerService orchestrates scheduling runs: snapshot, solve, persist.
// One call to Generate is one run; runs never mutate earlier schedules.
type SchedulerService struct {
	schedules  scheduleStore
	placements placementStore
	conflicts  conflictStore
	snapshots  snapshotBuilder
	catalog    catalogChecker
	solver     solver.Solver
	tx         txProvider
	cache      *CacheService
	validate   *validator.Validate
	metrics    *MetricsService
	logger     *zap.Logger
}

// NewSchedulerService wires the orchestrator.
func NewSchedulerService(
	schedules scheduleStore,
	placements placementStore,
	conflicts conflictStore,
	snapshots snapshotBuilder,
	catalog catalogChecker,
	slv solver.Solver,
	tx txProvider,
	cache *CacheService,
	validate *validator.Validate,
	metrics *MetricsService,
	logger *zap.Logger,
) *SchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SchedulerService{
		schedules:  schedules,
		placements: placements,
		conflicts:  conflicts,
		snapshots:  snapshots,
		catalog:    catalog,
		solver:     slv,
		tx:         tx,
		cache:      cache,
		validate:   validate,
		metrics:    metrics,
		logger:     logger,
	}
}

// Generate runs the full pipeline for one semester. The Schedule row is
// committed on its own before solving, so a run that later fails still leaves
// the row in place for inspection; every result row goes through a single
// transaction that rolls back as a unit.
func (s *SchedulerService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate request")
	}

	scheduleID := schedulePrefix + uuid.NewString()[:8]
	schedule := &models.Schedule{
		ID:         scheduleID,
		SemesterID: req.SemesterID,
		Name:       req.Name,
	}
	if err := s.schedules.Create(ctx, nil, schedule); err != nil {
		return nil, mapPersistenceError(err, "schedule row")
	}

	input, err := s.snapshots.Build(ctx, scheduleID, req.SemesterID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	result, err := s.solver.Solve(ctx, input)
	elapsed := time.Since(start)
	if err != nil {
		if errors.Is(err, solver.ErrUnavailable) {
			s.metrics.ObserveSchedulingRun("unavailable", false, elapsed)
			return nil, appErrors.Wrap(err, appErrors.ErrSolverUnavailable.Code, appErrors.ErrSolverUnavailable.Status, "no solver could complete the run")
		}
		s.metrics.ObserveSchedulingRun("error", false, elapsed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "scheduling run failed")
	}

	status, _ := result.Statistics["solver_status"].(string)
	usedFallback := status == "FALLBACK"

	persistStart := time.Now()
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		s.metrics.ObserveSchedulingRun("error", usedFallback, elapsed)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "begin schedule transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var courses []models.ScheduledCourse
	var conflicts []models.Conflict
	courses, conflicts, err = s.persistResult(ctx, tx, result)
	if err != nil {
		s.metrics.ObserveSchedulingRun("error", usedFallback, elapsed)
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "commit schedule transaction")
		s.metrics.ObserveSchedulingRun("error", usedFallback, elapsed)
		return nil, err
	}
	s.metrics.ObserveDBQuery("persist_schedule_results", time.Since(persistStart))

	s.metrics.ObserveSchedulingRun("success", usedFallback, elapsed)
	for _, conflict := range conflicts {
		s.metrics.ObserveConflict(string(conflict.ConflictType))
	}
	s.logger.Info("scheduling run persisted",
		zap.String("schedule_id", scheduleID),
		zap.String("semester_id", req.SemesterID),
		zap.Bool("fallback", usedFallback),
		zap.Int("scheduled_courses", len(courses)),
		zap.Int("conflicts", len(conflicts)),
		zap.Duration("solver_duration", elapsed),
	)

	return &dto.GenerateScheduleResponse{
		Schedule: models.ScheduleDetail{
			Schedule:         *schedule,
			ScheduledCourses: courses,
			Conflicts:        conflicts,
		},
		ConflictCount: len(conflicts),
		Statistics:    result.Statistics,
	}, nil
}

// persistResult writes every placement and conflict of one solver result.
// Placements referenced by multi-course conflicts are inserted once via the
// scheduled_courses list; single-course conflicts carry their own placeholder
// placement that exists nowhere else in the document.
func (s *SchedulerService) persistResult(ctx context.Context, tx *sqlx.Tx, result *dto.SolverResult) ([]models.ScheduledCourse, []models.Conflict, error) {
	inserted := make(map[string]bool, len(result.ScheduledCourses))
	courses := make([]models.ScheduledCourse, 0, len(result.ScheduledCourses))

	for i := range result.ScheduledCourses {
		course := placementToModel(&result.ScheduledCourses[i])
		if err := s.placements.Insert(ctx, tx, course); err != nil {
			return nil, nil, mapPersistenceError(err, "scheduled course")
		}
		inserted[course.ID] = true
		courses = append(courses, *course)
	}

	conflicts := make([]models.Conflict, 0, len(result.Conflicts))
	for i := range result.Conflicts {
		entry := &result.Conflicts[i]

		conflict := conflictToModel(&entry.Conflict)
		if err := s.conflicts.Insert(ctx, tx, conflict); err != nil {
			return nil, nil, mapPersistenceError(err, "conflict")
		}

		var links []models.ConflictCourse
		if entry.ScheduledCourse != nil {
			if !inserted[entry.ScheduledCourse.ScheduledCourseID] {
				placeholder := placementToModel(entry.ScheduledCourse)
				if err := s.placements.Insert(ctx, tx, placeholder); err != nil {
					return nil, nil, mapPersistenceError(err, "placeholder placement")
				}
				inserted[placeholder.ID] = true
				courses = append(courses, *placeholder)
			}
			if entry.ConflictCourse != nil {
				links = append(links, linkToModel(entry.ConflictCourse))
			}
		}
		for j := range entry.ScheduledCourses {
			placement := &entry.ScheduledCourses[j]
			if !inserted[placement.ScheduledCourseID] {
				extra := placementToModel(placement)
				if err := s.placements.Insert(ctx, tx, extra); err != nil {
					return nil, nil, mapPersistenceError(err, "conflict placement")
				}
				inserted[extra.ID] = true
				courses = append(courses, *extra)
			}
		}
		for j := range entry.ConflictCourses {
			links = append(links, linkToModel(&entry.ConflictCourses[j]))
		}

		if len(links) > 0 {
			affected, err := s.conflicts.InsertCourses(ctx, tx, links)
			if err != nil {
				return nil, nil, mapPersistenceError(err, "conflict course link")
			}
			if affected != int64(len(links)) {
				return nil, nil, appErrors.Clone(appErrors.ErrPartialConflictPersistence,
					fmt.Sprintf("conflict %s: wrote %d of %d course links", conflict.ID, affected, len(links)))
			}
		}

		conflicts = append(conflicts, *conflict)
	}

	return courses, conflicts, nil
}

// ResolveConflict marks a conflict handled and stores the operator's notes.
// Conflicts on finalized schedules are closed to modification.
func (s *SchedulerService) ResolveConflict(ctx context.Context, conflictID string, req dto.ResolveConflictRequest) (*models.Conflict, error) {
	conflict, err := s.conflicts.FindByID(ctx, conflictID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "conflict not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load conflict")
	}

	schedule, err := s.schedules.FindByID(ctx, conflict.ScheduleID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load schedule")
	}
	if schedule != nil && schedule.IsFinal {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "schedule is finalized")
	}

	if err := s.conflicts.Resolve(ctx, conflictID, req.ResolutionNotes); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "resolve conflict")
	}

	updated, err := s.conflicts.FindByID(ctx, conflictID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "reload conflict")
	}
	_ = s.cache.Invalidate(ctx, scheduleDetailCacheKey(updated.ScheduleID))
	s.logger.Info("conflict resolved",
		zap.String("conflict_id", conflictID),
		zap.String("schedule_id", updated.ScheduleID),
	)
	return updated, nil
}

// CreateOverride inserts a manual placement. Overrides skip conflict
// detection entirely; the reason is recorded alongside the row.
func (s *SchedulerService) CreateOverride(ctx context.Context, req dto.CreateOverrideRequest) (*models.ScheduledCourse, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid override request")
	}

	schedule, err := s.schedules.FindByID(ctx, req.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load schedule")
	}
	if schedule.IsFinal {
		return nil, appErrors.Clone(appErrors.ErrFinalized, "schedule is finalized")
	}

	if err := s.checkReference(ctx, s.catalog.CourseExists, req.CourseID, "course"); err != nil {
		return nil, err
	}
	if err := s.checkReference(ctx, s.catalog.ProfessorExists, req.ProfessorID, "professor"); err != nil {
		return nil, err
	}
	if err := s.checkReference(ctx, s.catalog.TimeSlotExists, req.TimeslotID, "time slot"); err != nil {
		return nil, err
	}

	classInstance := req.ClassInstance
	if classInstance < 1 {
		classInstance = 1
	}
	professorID := req.ProfessorID
	reason := req.OverrideReason
	course := &models.ScheduledCourse{
		ID:             "SC-" + uuid.NewString()[:8],
		ScheduleID:     req.ScheduleID,
		CourseID:       req.CourseID,
		ProfessorID:    &professorID,
		TimeslotID:     req.TimeslotID,
		DayOfWeek:      req.DayOfWeek,
		IsOverride:     true,
		OverrideReason: &reason,
		ClassInstance:  classInstance,
		NumClasses:     1,
	}

	if err := s.placements.Insert(ctx, nil, course); err != nil {
		return nil, mapPersistenceError(err, "override placement")
	}
	_ = s.cache.Invalidate(ctx, scheduleDetailCacheKey(course.ScheduleID))
	s.logger.Info("override placement created",
		zap.String("scheduled_course_id", course.ID),
		zap.String("schedule_id", course.ScheduleID),
		zap.String("course_id", course.CourseID),
	)
	return course, nil
}

func (s *SchedulerService) checkReference(ctx context.Context, exists func(context.Context, string) (bool, error), id, kind string) error {
	ok, err := exists(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check "+kind)
	}
	if !ok {
		return appErrors.Clone(appErrors.ErrNotFound, kind+" not found")
	}
	return nil
}

func mapPersistenceError(err error, what string) error {
	if repository.IsUniqueViolation(err) {
		return appErrors.Wrap(err, appErrors.ErrDuplicateIdentifier.Code, appErrors.ErrDuplicateIdentifier.Status,
			what+" identifier already exists")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "persist "+what)
}

func placementToModel(p *dto.SolverPlacement) *models.ScheduledCourse {
	return &models.ScheduledCourse{
		ID:            p.ScheduledCourseID,
		ScheduleID:    p.ScheduleID,
		CourseID:      p.CourseID,
		ProfessorID:   p.ProfessorID,
		TimeslotID:    p.TimeslotID,
		DayOfWeek:     p.DayOfWeek,
		IsOverride:    p.IsOverride,
		ClassInstance: p.ClassInstance,
		NumClasses:    p.NumClasses,
	}
}

func conflictToModel(c *dto.SolverConflict) *models.Conflict {
	var notes *string
	if c.ResolutionNotes != "" {
		value := c.ResolutionNotes
		notes = &value
	}
	return &models.Conflict{
		ID:              c.ConflictID,
		ScheduleID:      c.ScheduleID,
		TimeslotID:      c.TimeslotID,
		DayOfWeek:       c.DayOfWeek,
		ConflictType:    models.ConflictType(c.ConflictType),
		Description:     c.Description,
		IsResolved:      c.IsResolved,
		ResolutionNotes: notes,
	}
}

func linkToModel(l *dto.SolverConflictLink) models.ConflictCourse {
	return models.ConflictCourse{
		ID:                l.ConflictCourseID,
		ConflictID:        l.ConflictID,
		ScheduledCourseID: l.ScheduledCourseID,
	}
}
