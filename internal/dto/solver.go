package dto

// Wire contract with the external solver process. One SolverInput document is
// written to the child's stdin, one SolverOutput document is expected on its
// stdout before exit. Field names match the line-oriented JSON protocol the
// solver implements, so renaming them is a breaking change.

// SolverInput is the immutable snapshot for a single scheduling run.
type SolverInput struct {
	ScheduleID            string                 `json:"scheduleId"`
	Courses               []CourseSnapshot       `json:"courses"`
	Professors            []ProfessorSnapshot    `json:"professors"`
	TimeSlots             []TimeSlotSnapshot     `json:"timeSlots"`
	ProfessorAvailability []AvailabilitySnapshot `json:"professorAvailability"`
	// QualifiedProfessors maps course id to the ordered list of professor
	// ids qualified to teach it. Courses with no qualified professor keep
	// an empty entry rather than being dropped.
	QualifiedProfessors map[string][]string `json:"qualifiedProfessors"`
}

// CourseSnapshot is a course as seen by the solver.
type CourseSnapshot struct {
	CourseID        string   `json:"course_id"`
	CourseName      string   `json:"course_name"`
	DepartmentID    string   `json:"department_id"`
	DurationMinutes int      `json:"duration_minutes"`
	IsCore          bool     `json:"is_core"`
	NumClasses      int      `json:"num_classes"`
	ProgramIDs      []string `json:"program_ids"`
}

// ProfessorSnapshot is a professor as seen by the solver.
type ProfessorSnapshot struct {
	ProfessorID  string `json:"professor_id"`
	DepartmentID string `json:"department_id"`
	FirstName    string `json:"first_name"`
	LastName     string `json:"last_name"`
	Email        string `json:"email"`
}

// TimeSlotSnapshot is one weekly grid cell as seen by the solver.
type TimeSlotSnapshot struct {
	TimeslotID      string `json:"timeslot_id"`
	Name            string `json:"name"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationMinutes int    `json:"duration_minutes"`
	DayOfWeek       string `json:"day_of_week"`
}

// AvailabilitySnapshot is one availability record as seen by the solver.
type AvailabilitySnapshot struct {
	ProfessorID string `json:"professor_id"`
	TimeslotID  string `json:"timeslot_id"`
	DayOfWeek   string `json:"day_of_week"`
	IsAvailable bool   `json:"is_available"`
}

// SolverOutput is the single document the solver writes to stdout.
type SolverOutput struct {
	Success bool          `json:"success"`
	Result  *SolverResult `json:"result"`
	Error   string        `json:"error,omitempty"`
}

// SolverResult carries placements and conflicts for one run, whichever
// component produced them.
type SolverResult struct {
	ScheduledCourses []SolverPlacement     `json:"scheduled_courses"`
	Conflicts        []SolverConflictEntry `json:"conflicts"`
	Statistics       map[string]any        `json:"statistics,omitempty"`
}

// SolverPlacement is one concrete placement with a pre-assigned identifier.
type SolverPlacement struct {
	ScheduledCourseID string  `json:"scheduled_course_id"`
	ScheduleID        string  `json:"schedule_id"`
	CourseID          string  `json:"course_id"`
	ProfessorID       *string `json:"professor_id"`
	TimeslotID        string  `json:"timeslot_id"`
	DayOfWeek         string  `json:"day_of_week"`
	IsOverride        bool    `json:"is_override"`
	ClassInstance     int     `json:"class_instance"`
	NumClasses        int     `json:"num_classes"`
}

// SolverConflict mirrors the Conflict row fields.
type SolverConflict struct {
	ConflictID      string `json:"conflict_id"`
	ScheduleID      string `json:"schedule_id"`
	TimeslotID      string `json:"timeslot_id"`
	DayOfWeek       string `json:"day_of_week"`
	ConflictType    string `json:"conflict_type"`
	Description     string `json:"description"`
	IsResolved      bool   `json:"is_resolved"`
	ResolutionNotes string `json:"resolution_notes,omitempty"`
}

// SolverConflictLink mirrors the ConflictCourse join row.
type SolverConflictLink struct {
	ConflictCourseID  string `json:"conflict_course_id"`
	ConflictID        string `json:"conflict_id"`
	ScheduledCourseID string `json:"scheduled_course_id"`
}

// SolverConflictEntry is one conflict in either of its two shapes: a single
// unschedulable course (ScheduledCourse + ConflictCourse) or a multi-course
// collision (parallel ScheduledCourses + ConflictCourses referring to
// placements already present in the result's scheduled_courses list).
type SolverConflictEntry struct {
	Conflict         SolverConflict       `json:"conflict"`
	ScheduledCourse  *SolverPlacement     `json:"scheduled_course,omitempty"`
	ConflictCourse   *SolverConflictLink  `json:"conflict_course,omitempty"`
	ScheduledCourses []SolverPlacement    `json:"scheduled_courses,omitempty"`
	ConflictCourses  []SolverConflictLink `json:"conflict_courses,omitempty"`
}
