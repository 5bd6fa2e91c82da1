package models

import "time"

// ConflictType enumerates the conflict taxonomy shared by the external solver
// and the fallback scheduler. Both producers must emit exactly these kinds.
type ConflictType string

const (
	// ConflictNoAvailableSlot marks a course for which no (professor,
	// timeslot, day) combination satisfies qualification, availability and
	// non-collision. Carries exactly one placeholder placement.
	ConflictNoAvailableSlot ConflictType = "NO_AVAILABLE_SLOT"
	// ConflictTimeSlot marks two or more placements colliding on
	// (timeslot, day) for an exclusive resource. Carries N placements.
	ConflictTimeSlot ConflictType = "TIME_SLOT_CONFLICT"
)

// Schedule is the container for one scheduling run. Runs never mutate an
// existing schedule; each run creates a new row.
type Schedule struct {
	ID         string    `db:"id" json:"id"`
	SemesterID string    `db:"semester_id" json:"semester_id"`
	Name       string    `db:"name" json:"name"`
	IsFinal    bool      `db:"is_final" json:"is_final"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

// ScheduledCourse is one concrete placement of one class meeting. ProfessorID
// is nil only on placeholder rows synthesized for NO_AVAILABLE_SLOT conflicts
// when the catalog holds no qualified professor at all.
type ScheduledCourse struct {
	ID             string    `db:"id" json:"id"`
	ScheduleID     string    `db:"schedule_id" json:"schedule_id"`
	CourseID       string    `db:"course_id" json:"course_id"`
	ProfessorID    *string   `db:"professor_id" json:"professor_id"`
	TimeslotID     string    `db:"timeslot_id" json:"timeslot_id"`
	DayOfWeek      string    `db:"day_of_week" json:"day_of_week"`
	IsOverride     bool      `db:"is_override" json:"is_override"`
	OverrideReason *string   `db:"override_reason" json:"override_reason,omitempty"`
	ClassInstance  int       `db:"class_instance" json:"class_instance"`
	NumClasses     int       `db:"num_classes" json:"num_classes"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// Conflict is a detected constraint violation for one run. Only is_resolved
// and resolution_notes may change after the run completes.
type Conflict struct {
	ID              string       `db:"id" json:"id"`
	ScheduleID      string       `db:"schedule_id" json:"schedule_id"`
	TimeslotID      string       `db:"timeslot_id" json:"timeslot_id"`
	DayOfWeek       string       `db:"day_of_week" json:"day_of_week"`
	ConflictType    ConflictType `db:"conflict_type" json:"conflict_type"`
	Description     string       `db:"description" json:"description"`
	IsResolved      bool         `db:"is_resolved" json:"is_resolved"`
	ResolutionNotes *string      `db:"resolution_notes" json:"resolution_notes,omitempty"`
	CreatedAt       time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time    `db:"updated_at" json:"updated_at"`
}

// ConflictCourse associates a conflict with one of the scheduled courses
// involved in it. The (conflict_id, scheduled_course_id) pair is unique.
type ConflictCourse struct {
	ID                string `db:"id" json:"id"`
	ConflictID        string `db:"conflict_id" json:"conflict_id"`
	ScheduledCourseID string `db:"scheduled_course_id" json:"scheduled_course_id"`
}

// ScheduleDetail aggregates one schedule with its result rows for read APIs.
type ScheduleDetail struct {
	Schedule         Schedule          `json:"schedule"`
	ScheduledCourses []ScheduledCourse `json:"scheduled_courses"`
	Conflicts        []Conflict        `json:"conflicts"`
}
