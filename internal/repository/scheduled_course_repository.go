package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unisched/scheduler-api/internal/models"
)

// ScheduledCourseRepository persists individual course placements.
type ScheduledCourseRepository struct {
	db *sqlx.DB
}

// NewScheduledCourseRepository constructs repository.
func NewScheduledCourseRepository(db *sqlx.DB) *ScheduledCourseRepository {
	return &ScheduledCourseRepository{db: db}
}

func (r *ScheduledCourseRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Insert stores one placement. Identifiers come from the solver result, so a
// unique violation here means the same result document was persisted twice.
func (r *ScheduledCourseRepository) Insert(ctx context.Context, exec sqlx.ExtContext, course *models.ScheduledCourse) error {
	if course.ID == "" {
		return fmt.Errorf("scheduled course id is required")
	}
	if course.CreatedAt.IsZero() {
		course.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO scheduled_courses (id, schedule_id, course_id, professor_id, timeslot_id, day_of_week, is_override, override_reason, class_instance, num_classes, created_at)
VALUES (:id, :schedule_id, :course_id, :professor_id, :timeslot_id, :day_of_week, :is_override, :override_reason, :class_instance, :num_classes, :created_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, course); err != nil {
		return fmt.Errorf("insert scheduled course: %w", err)
	}
	return nil
}

// FindByID loads one placement by id.
func (r *ScheduledCourseRepository) FindByID(ctx context.Context, id string) (*models.ScheduledCourse, error) {
	const query = `SELECT id, schedule_id, course_id, professor_id, timeslot_id, day_of_week, is_override, override_reason, class_instance, num_classes, created_at
FROM scheduled_courses WHERE id = $1`
	var course models.ScheduledCourse
	if err := r.db.GetContext(ctx, &course, query, id); err != nil {
		return nil, err
	}
	return &course, nil
}

// ListBySchedule returns all placements of a schedule in grid order.
func (r *ScheduledCourseRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.ScheduledCourse, error) {
	const query = `SELECT id, schedule_id, course_id, professor_id, timeslot_id, day_of_week, is_override, override_reason, class_instance, num_classes, created_at
FROM scheduled_courses WHERE schedule_id = $1 ORDER BY day_of_week ASC, timeslot_id ASC, course_id ASC, class_instance ASC`
	var courses []models.ScheduledCourse
	if err := r.db.SelectContext(ctx, &courses, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list scheduled courses: %w", err)
	}
	return courses, nil
}

// DeleteBySchedule removes every placement of a schedule.
func (r *ScheduledCourseRepository) DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) error {
	if _, err := r.exec(exec).ExecContext(ctx, `DELETE FROM scheduled_courses WHERE schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("delete scheduled courses: %w", err)
	}
	return nil
}
