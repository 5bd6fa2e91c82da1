package dto

import "github.com/unisched/scheduler-api/internal/models"

// GenerateScheduleRequest starts a scheduling run for a semester.
type GenerateScheduleRequest struct {
	SemesterID string `json:"semester_id" validate:"required"`
	Name       string `json:"name" validate:"required,max=100"`
}

// GenerateScheduleResponse returns the persisted run outcome. ConflictCount is
// always present so callers can gauge schedule quality at a glance.
type GenerateScheduleResponse struct {
	Schedule      models.ScheduleDetail `json:"schedule"`
	ConflictCount int                   `json:"conflict_count"`
	Statistics    map[string]any        `json:"statistics,omitempty"`
}

// ResolveConflictRequest marks a conflict as handled by an administrator.
type ResolveConflictRequest struct {
	ResolutionNotes string `json:"resolution_notes"`
}

// CreateOverrideRequest inserts a manual placement bypassing (but not
// erasing) existing conflicts. The reason is mandatory.
type CreateOverrideRequest struct {
	ScheduleID     string `json:"schedule_id" validate:"required"`
	CourseID       string `json:"course_id" validate:"required"`
	ProfessorID    string `json:"professor_id" validate:"required"`
	TimeslotID     string `json:"timeslot_id" validate:"required"`
	DayOfWeek      string `json:"day_of_week" validate:"required"`
	OverrideReason string `json:"override_reason" validate:"required"`
	ClassInstance  int    `json:"class_instance" validate:"omitempty,min=1,max=3"`
}

// ScheduleQuery filters schedule listings.
type ScheduleQuery struct {
	SemesterID string `form:"semester_id" json:"semester_id"`
}
