package solver

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/unisched/scheduler-api/internal/dto"
)

// FallbackScheduler is the deterministic greedy scheduler used when the
// external solver is unavailable. Its goal is availability of some schedule,
// not quality: professors are taken in qualification order and slots in grid
// order, with no load balancing or preference weighing.
type FallbackScheduler struct {
	tolerance time.Duration
	logger    *zap.Logger
}

// NewFallbackScheduler builds the fallback with the given duration tolerance.
func NewFallbackScheduler(tolerance time.Duration, logger *zap.Logger) *FallbackScheduler {
	if tolerance <= 0 {
		tolerance = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FallbackScheduler{tolerance: tolerance, logger: logger}
}

// Solve implements Solver. The greedy pass emits raw placements; conflicts
// are recomputed afterwards because the heuristic does not self-report them
// the way the external solver does.
func (f *FallbackScheduler) Solve(ctx context.Context, input *dto.SolverInput) (*dto.SolverResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	placements := f.place(input)
	conflicts := DetectConflicts(input, placements)

	scheduled := make(map[string]bool, len(placements))
	for _, p := range placements {
		scheduled[p.CourseID] = true
	}
	coreScheduled := 0
	coreTotal := 0
	for _, course := range input.Courses {
		if course.IsCore {
			coreTotal++
			if scheduled[course.CourseID] {
				coreScheduled++
			}
		}
	}

	return &dto.SolverResult{
		ScheduledCourses: placements,
		Conflicts:        conflicts,
		Statistics: map[string]any{
			"total_courses":          len(input.Courses),
			"scheduled_courses":      len(placements),
			"unresolved_conflicts":   len(conflicts),
			"core_courses":           coreTotal,
			"core_courses_scheduled": coreScheduled,
			"solver_status":          "FALLBACK",
		},
	}, nil
}

type slotKey struct {
	TimeslotID string
	Day        string
}

func (f *FallbackScheduler) place(input *dto.SolverInput) []dto.SolverPlacement {
	consumed := make(map[slotKey]bool, len(input.TimeSlots))
	placements := make([]dto.SolverPlacement, 0, len(input.Courses))

	for _, course := range input.Courses {
		qualified := input.QualifiedProfessors[course.CourseID]
		if len(qualified) == 0 {
			// Surfaces as NO_AVAILABLE_SLOT during detection; the run
			// continues with the remaining courses.
			continue
		}
		professorID := qualified[0]

		instances := course.NumClasses
		if instances < 1 {
			instances = 1
		}
		for instance := 1; instance <= instances; instance++ {
			slot, ok := f.pickSlot(input.TimeSlots, consumed, course)
			if !ok {
				if instance > 1 {
					f.logger.Warn("ran out of free slots before placing every class",
						zap.String("course_id", course.CourseID),
						zap.Int("placed", instance-1),
						zap.Int("requested", instances),
					)
				}
				break
			}
			consumed[slotKey{slot.TimeslotID, slot.DayOfWeek}] = true
			profID := professorID
			placements = append(placements, dto.SolverPlacement{
				ScheduledCourseID: newID(scheduledCoursePrefix),
				ScheduleID:        input.ScheduleID,
				CourseID:          course.CourseID,
				ProfessorID:       &profID,
				TimeslotID:        slot.TimeslotID,
				DayOfWeek:         slot.DayOfWeek,
				ClassInstance:     instance,
				NumClasses:        instances,
			})
		}
	}
	return placements
}

// pickSlot returns the first unconsumed slot whose duration is within the
// tolerance of the course duration. When only incompatible free slots remain
// the first free one is taken anyway: a duration mismatch beats dropping the
// course, but nothing downstream flags it yet, so it is logged here.
func (f *FallbackScheduler) pickSlot(slots []dto.TimeSlotSnapshot, consumed map[slotKey]bool, course dto.CourseSnapshot) (dto.TimeSlotSnapshot, bool) {
	tolerance := int(f.tolerance.Minutes())
	firstFree := -1
	for i, slot := range slots {
		if consumed[slotKey{slot.TimeslotID, slot.DayOfWeek}] {
			continue
		}
		if firstFree < 0 {
			firstFree = i
		}
		if abs(slot.DurationMinutes-course.DurationMinutes) <= tolerance {
			return slot, true
		}
	}
	if firstFree < 0 {
		return dto.TimeSlotSnapshot{}, false
	}
	slot := slots[firstFree]
	f.logger.Warn("placing course into duration-mismatched slot",
		zap.String("course_id", course.CourseID),
		zap.String("timeslot_id", slot.TimeslotID),
		zap.Int("course_minutes", course.DurationMinutes),
		zap.Int("slot_minutes", slot.DurationMinutes),
	)
	return slot, true
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
