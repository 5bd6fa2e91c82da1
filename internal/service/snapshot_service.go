package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"

	"github.com/unisched/scheduler-api/internal/dto"
	"github.com/unisched/scheduler-api/internal/models"
	appErrors "github.com/unisched/scheduler-api/pkg/errors"
)

type catalogReader interface {
	FindSemester(ctx context.Context, id string) (*models.Semester, error)
	ListCoursesBySemester(ctx context.Context, semesterID string) ([]models.Course, error)
	ListProfessors(ctx context.Context) ([]models.Professor, error)
	ListQualifications(ctx context.Context, semesterID string) ([]models.ProfessorCourse, error)
	ListAvailability(ctx context.Context) ([]models.ProfessorAvailability, error)
	ListTimeSlots(ctx context.Context) ([]models.TimeSlot, error)
	CourseExists(ctx context.Context, id string) (bool, error)
}

// SnapshotService assembles the immutable catalog snapshot handed to solvers.
// Everything a run needs is loaded up front so concurrent catalog edits cannot
// produce a half-old half-new input.
type SnapshotService struct {
	catalog catalogReader
	logger  *zap.Logger
}

// NewSnapshotService constructs the snapshot builder.
func NewSnapshotService(catalog catalogReader, logger *zap.Logger) *SnapshotService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotService{catalog: catalog, logger: logger}
}

var dayOrder = map[string]int{
	"Monday":    0,
	"Tuesday":   1,
	"Wednesday": 2,
	"Thursday":  3,
	"Friday":    4,
	"Saturday":  5,
	"Sunday":    6,
}

// Build loads the catalog for one semester and produces the solver input.
// Ordering is normalised so two builds over the same data yield identical
// documents: courses core-first then by name, slots by day then start time.
func (s *SnapshotService) Build(ctx context.Context, scheduleID, semesterID string) (*dto.SolverInput, error) {
	if _, err := s.catalog.FindSemester(ctx, semesterID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load semester")
	}

	courses, err := s.catalog.ListCoursesBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load courses")
	}
	professors, err := s.catalog.ListProfessors(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load professors")
	}
	qualifications, err := s.catalog.ListQualifications(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load qualifications")
	}
	availability, err := s.catalog.ListAvailability(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load availability")
	}
	slots, err := s.catalog.ListTimeSlots(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "load time slots")
	}

	if err := validateReferences(professors, slots, qualifications, availability); err != nil {
		return nil, err
	}

	sort.SliceStable(courses, func(i, j int) bool {
		if courses[i].IsCore != courses[j].IsCore {
			return courses[i].IsCore
		}
		return courses[i].Name < courses[j].Name
	})
	sort.SliceStable(slots, func(i, j int) bool {
		di, dj := dayOrder[slots[i].DayOfWeek], dayOrder[slots[j].DayOfWeek]
		if di != dj {
			return di < dj
		}
		if slots[i].StartTime != slots[j].StartTime {
			return slots[i].StartTime < slots[j].StartTime
		}
		return slots[i].ID < slots[j].ID
	})

	input := &dto.SolverInput{
		ScheduleID:          scheduleID,
		Courses:             make([]dto.CourseSnapshot, 0, len(courses)),
		Professors:          make([]dto.ProfessorSnapshot, 0, len(professors)),
		TimeSlots:           make([]dto.TimeSlotSnapshot, 0, len(slots)),
		QualifiedProfessors: make(map[string][]string, len(courses)),
	}

	for _, course := range courses {
		input.Courses = append(input.Courses, dto.CourseSnapshot{
			CourseID:        course.ID,
			CourseName:      course.Name,
			DepartmentID:    course.DepartmentID,
			DurationMinutes: course.DurationMinutes,
			IsCore:          course.IsCore,
			NumClasses:      course.NumClasses,
			ProgramIDs:      course.ProgramIDs,
		})
		input.QualifiedProfessors[course.ID] = []string{}
	}
	for _, professor := range professors {
		input.Professors = append(input.Professors, dto.ProfessorSnapshot{
			ProfessorID:  professor.ID,
			DepartmentID: professor.DepartmentID,
			FirstName:    professor.FirstName,
			LastName:     professor.LastName,
			Email:        professor.Email,
		})
	}
	for _, slot := range slots {
		input.TimeSlots = append(input.TimeSlots, dto.TimeSlotSnapshot{
			TimeslotID:      slot.ID,
			Name:            slot.Name,
			StartTime:       slot.StartTime,
			EndTime:         slot.EndTime,
			DurationMinutes: slot.DurationMinutes,
			DayOfWeek:       slot.DayOfWeek,
		})
	}
	for _, record := range availability {
		input.ProfessorAvailability = append(input.ProfessorAvailability, dto.AvailabilitySnapshot{
			ProfessorID: record.ProfessorID,
			TimeslotID:  record.TimeslotID,
			DayOfWeek:   record.DayOfWeek,
			IsAvailable: record.IsAvailable,
		})
	}

	for _, q := range qualifications {
		if _, offered := input.QualifiedProfessors[q.CourseID]; !offered {
			// Only this semester's courses are loaded, so distinguish a
			// course offered elsewhere from an id that exists nowhere.
			exists, err := s.catalog.CourseExists(ctx, q.CourseID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "check qualification course")
			}
			if !exists {
				return nil, appErrors.Clone(appErrors.ErrDataIntegrity,
					fmt.Sprintf("qualification %s references unknown course %s", q.ID, q.CourseID))
			}
			continue
		}
		input.QualifiedProfessors[q.CourseID] = append(input.QualifiedProfessors[q.CourseID], q.ProfessorID)
	}
	for courseID := range input.QualifiedProfessors {
		sort.Strings(input.QualifiedProfessors[courseID])
	}

	s.logger.Info("catalog snapshot built",
		zap.String("schedule_id", scheduleID),
		zap.String("semester_id", semesterID),
		zap.Int("courses", len(input.Courses)),
		zap.Int("professors", len(input.Professors)),
		zap.Int("time_slots", len(input.TimeSlots)),
	)
	return input, nil
}

// validateReferences rejects snapshots whose relation rows point at rows that
// do not exist. A run over such data would fail in ways the conflict taxonomy
// cannot express, so the run is refused outright.
func validateReferences(
	professors []models.Professor,
	slots []models.TimeSlot,
	qualifications []models.ProfessorCourse,
	availability []models.ProfessorAvailability,
) error {
	professorIDs := make(map[string]bool, len(professors))
	for _, p := range professors {
		professorIDs[p.ID] = true
	}
	slotIDs := make(map[string]bool, len(slots))
	for _, s := range slots {
		slotIDs[s.ID] = true
	}

	for _, q := range qualifications {
		if !professorIDs[q.ProfessorID] {
			return appErrors.Clone(appErrors.ErrDataIntegrity,
				fmt.Sprintf("qualification %s references unknown professor %s", q.ID, q.ProfessorID))
		}
	}
	for _, a := range availability {
		if !professorIDs[a.ProfessorID] {
			return appErrors.Clone(appErrors.ErrDataIntegrity,
				fmt.Sprintf("availability %s references unknown professor %s", a.ID, a.ProfessorID))
		}
		if !slotIDs[a.TimeslotID] {
			return appErrors.Clone(appErrors.ErrDataIntegrity,
				fmt.Sprintf("availability %s references unknown time slot %s", a.ID, a.TimeslotID))
		}
	}
	return nil
}
