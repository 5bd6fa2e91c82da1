package models

import (
	"time"

	"github.com/lib/pq"
)

// Course is a catalog course eligible for scheduling. Courses are immutable
// during a scheduling run.
type Course struct {
	ID              string         `db:"id" json:"id"`
	DepartmentID    string         `db:"department_id" json:"department_id"`
	Name            string         `db:"name" json:"name"`
	DurationMinutes int            `db:"duration_minutes" json:"duration_minutes"`
	IsCore          bool           `db:"is_core" json:"is_core"`
	NumClasses      int            `db:"num_classes" json:"num_classes"`
	ProgramIDs      pq.StringArray `db:"program_ids" json:"program_ids"`
	Semesters       pq.StringArray `db:"semesters" json:"semesters"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at" json:"updated_at"`
}

// Professor is a catalog instructor record.
type Professor struct {
	ID           string    `db:"id" json:"id"`
	DepartmentID string    `db:"department_id" json:"department_id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// ProfessorAvailability marks whether a professor may teach in a given
// (timeslot, day) pair. Unique per (professor, timeslot, day).
type ProfessorAvailability struct {
	ID          string `db:"id" json:"id"`
	ProfessorID string `db:"professor_id" json:"professor_id"`
	TimeslotID  string `db:"timeslot_id" json:"timeslot_id"`
	DayOfWeek   string `db:"day_of_week" json:"day_of_week"`
	IsAvailable bool   `db:"is_available" json:"is_available"`
}

// ProfessorCourse records that a professor is qualified to teach a course in a
// given semester.
type ProfessorCourse struct {
	ID          string `db:"id" json:"id"`
	ProfessorID string `db:"professor_id" json:"professor_id"`
	CourseID    string `db:"course_id" json:"course_id"`
	Semester    string `db:"semester" json:"semester"`
}

// TimeSlot is one cell of the fixed weekly teaching grid.
type TimeSlot struct {
	ID              string `db:"id" json:"id"`
	Name            string `db:"name" json:"name"`
	StartTime       string `db:"start_time" json:"start_time"`
	EndTime         string `db:"end_time" json:"end_time"`
	DurationMinutes int    `db:"duration_minutes" json:"duration_minutes"`
	DayOfWeek       string `db:"day_of_week" json:"day_of_week"`
}

// Semester identifies an academic term the scheduler can target.
type Semester struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
