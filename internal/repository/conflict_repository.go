package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/unisched/scheduler-api/internal/models"
)

// ConflictRepository persists conflict records and their course links.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository constructs repository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

func (r *ConflictRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Insert stores one conflict row.
func (r *ConflictRepository) Insert(ctx context.Context, exec sqlx.ExtContext, conflict *models.Conflict) error {
	if conflict.ID == "" {
		return fmt.Errorf("conflict id is required")
	}
	now := time.Now().UTC()
	if conflict.CreatedAt.IsZero() {
		conflict.CreatedAt = now
	}
	conflict.UpdatedAt = now

	const query = `INSERT INTO conflicts (id, schedule_id, timeslot_id, day_of_week, conflict_type, description, is_resolved, resolution_notes, created_at, updated_at)
VALUES (:id, :schedule_id, :timeslot_id, :day_of_week, :conflict_type, :description, :is_resolved, :resolution_notes, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, conflict); err != nil {
		return fmt.Errorf("insert conflict: %w", err)
	}
	return nil
}

// InsertCourses stores the course links of one conflict and returns how many
// rows the database reports as written. Callers compare the count against the
// number of links they handed in.
func (r *ConflictRepository) InsertCourses(ctx context.Context, exec sqlx.ExtContext, links []models.ConflictCourse) (int64, error) {
	target := r.exec(exec)
	var total int64
	for i := range links {
		link := links[i]
		if link.ID == "" {
			return total, fmt.Errorf("conflict course id is required")
		}
		const query = `INSERT INTO conflict_courses (id, conflict_id, scheduled_course_id) VALUES (:id, :conflict_id, :scheduled_course_id)`
		result, err := sqlx.NamedExecContext(ctx, target, query, &link)
		if err != nil {
			return total, fmt.Errorf("insert conflict course: %w", err)
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return total, fmt.Errorf("conflict course rows affected: %w", err)
		}
		total += affected
	}
	return total, nil
}

// FindByID loads one conflict by id.
func (r *ConflictRepository) FindByID(ctx context.Context, id string) (*models.Conflict, error) {
	const query = `SELECT id, schedule_id, timeslot_id, day_of_week, conflict_type, description, is_resolved, resolution_notes, created_at, updated_at
FROM conflicts WHERE id = $1`
	var conflict models.Conflict
	if err := r.db.GetContext(ctx, &conflict, query, id); err != nil {
		return nil, err
	}
	return &conflict, nil
}

// ListBySchedule returns all conflicts of a schedule, unresolved first.
func (r *ConflictRepository) ListBySchedule(ctx context.Context, scheduleID string) ([]models.Conflict, error) {
	const query = `SELECT id, schedule_id, timeslot_id, day_of_week, conflict_type, description, is_resolved, resolution_notes, created_at, updated_at
FROM conflicts WHERE schedule_id = $1 ORDER BY is_resolved ASC, created_at ASC`
	var conflicts []models.Conflict
	if err := r.db.SelectContext(ctx, &conflicts, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list conflicts: %w", err)
	}
	return conflicts, nil
}

// CountUnresolved returns the number of open conflicts on a schedule.
func (r *ConflictRepository) CountUnresolved(ctx context.Context, scheduleID string) (int, error) {
	const query = `SELECT COUNT(*) FROM conflicts WHERE schedule_id = $1 AND is_resolved = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, scheduleID); err != nil {
		return 0, fmt.Errorf("count unresolved conflicts: %w", err)
	}
	return count, nil
}

// Resolve marks a conflict resolved with the operator's notes.
func (r *ConflictRepository) Resolve(ctx context.Context, id, notes string) error {
	const query = `UPDATE conflicts SET is_resolved = TRUE, resolution_notes = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, notes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve conflict rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// DeleteBySchedule removes a schedule's conflicts and their course links.
func (r *ConflictRepository) DeleteBySchedule(ctx context.Context, exec sqlx.ExtContext, scheduleID string) error {
	target := r.exec(exec)
	if _, err := target.ExecContext(ctx, `DELETE FROM conflict_courses WHERE conflict_id IN (SELECT id FROM conflicts WHERE schedule_id = $1)`, scheduleID); err != nil {
		return fmt.Errorf("delete conflict courses: %w", err)
	}
	if _, err := target.ExecContext(ctx, `DELETE FROM conflicts WHERE schedule_id = $1`, scheduleID); err != nil {
		return fmt.Errorf("delete conflicts: %w", err)
	}
	return nil
}
