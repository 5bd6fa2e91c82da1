package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/unisched/scheduler-api/internal/models"
)

// CatalogRepository reads the academic catalog tables the scheduler consumes:
// courses, professors, qualifications, availability and the time slot grid.
// The scheduler never writes to any of these.
type CatalogRepository struct {
	db *sqlx.DB
}

// NewCatalogRepository constructs repository.
func NewCatalogRepository(db *sqlx.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// FindSemester loads one semester by id.
func (r *CatalogRepository) FindSemester(ctx context.Context, id string) (*models.Semester, error) {
	const query = `SELECT id, name, start_date, end_date FROM semesters WHERE id = $1`
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// ListCoursesBySemester returns all courses offered in the given semester.
func (r *CatalogRepository) ListCoursesBySemester(ctx context.Context, semesterID string) ([]models.Course, error) {
	const query = `SELECT id, department_id, name, duration_minutes, is_core, num_classes, program_ids, semesters, created_at, updated_at
FROM courses WHERE $1 = ANY(semesters)`
	var courses []models.Course
	if err := r.db.SelectContext(ctx, &courses, query, semesterID); err != nil {
		return nil, fmt.Errorf("list courses by semester: %w", err)
	}
	return courses, nil
}

// ListProfessors returns the full instructor catalog.
func (r *CatalogRepository) ListProfessors(ctx context.Context) ([]models.Professor, error) {
	const query = `SELECT id, department_id, first_name, last_name, email, created_at, updated_at FROM professors`
	var professors []models.Professor
	if err := r.db.SelectContext(ctx, &professors, query); err != nil {
		return nil, fmt.Errorf("list professors: %w", err)
	}
	return professors, nil
}

// ListQualifications returns professor-course qualifications for a semester.
func (r *CatalogRepository) ListQualifications(ctx context.Context, semesterID string) ([]models.ProfessorCourse, error) {
	const query = `SELECT id, professor_id, course_id, semester FROM professor_courses WHERE semester = $1`
	var qualifications []models.ProfessorCourse
	if err := r.db.SelectContext(ctx, &qualifications, query, semesterID); err != nil {
		return nil, fmt.Errorf("list qualifications: %w", err)
	}
	return qualifications, nil
}

// ListAvailability returns every professor availability record.
func (r *CatalogRepository) ListAvailability(ctx context.Context) ([]models.ProfessorAvailability, error) {
	const query = `SELECT id, professor_id, timeslot_id, day_of_week, is_available FROM professor_availability`
	var availability []models.ProfessorAvailability
	if err := r.db.SelectContext(ctx, &availability, query); err != nil {
		return nil, fmt.Errorf("list professor availability: %w", err)
	}
	return availability, nil
}

// ListTimeSlots returns the weekly teaching grid.
func (r *CatalogRepository) ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error) {
	const query = `SELECT id, name, start_time, end_time, duration_minutes, day_of_week FROM time_slots`
	var slots []models.TimeSlot
	if err := r.db.SelectContext(ctx, &slots, query); err != nil {
		return nil, fmt.Errorf("list time slots: %w", err)
	}
	return slots, nil
}

// CourseExists reports whether a course id exists in the catalog.
func (r *CatalogRepository) CourseExists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM courses WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("course exists: %w", err)
	}
	return exists, nil
}

// ProfessorExists reports whether a professor id exists in the catalog.
func (r *CatalogRepository) ProfessorExists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM professors WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("professor exists: %w", err)
	}
	return exists, nil
}

// TimeSlotExists reports whether a time slot id exists in the grid.
func (r *CatalogRepository) TimeSlotExists(ctx context.Context, id string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM time_slots WHERE id = $1)`
	var exists bool
	if err := r.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("time slot exists: %w", err)
	}
	return exists, nil
}
