package solver

import (
	"fmt"

	"github.com/unisched/scheduler-api/internal/dto"
	"github.com/unisched/scheduler-api/internal/models"
)

type collisionKey struct {
	TimeslotID  string
	Day         string
	ProfessorID string
}

// DetectConflicts classifies the defects of a set of placements against the
// snapshot that produced them. Two kinds are reported: courses missing some
// or all of their class placements (NO_AVAILABLE_SLOT) and groups of
// placements that pin the same professor to the same slot on the same day
// (TIME_SLOT_CONFLICT).
// Group members keep first-seen order so output is stable for a given input.
func DetectConflicts(input *dto.SolverInput, placements []dto.SolverPlacement) []dto.SolverConflictEntry {
	entries := collisionConflicts(input, placements)
	entries = append(entries, unplacedConflicts(input, placements)...)
	return entries
}

func collisionConflicts(input *dto.SolverInput, placements []dto.SolverPlacement) []dto.SolverConflictEntry {
	groups := make(map[collisionKey][]dto.SolverPlacement)
	order := make([]collisionKey, 0)
	for _, p := range placements {
		if p.ProfessorID == nil {
			continue
		}
		key := collisionKey{p.TimeslotID, p.DayOfWeek, *p.ProfessorID}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], p)
	}

	names := courseNames(input)
	var entries []dto.SolverConflictEntry
	for _, key := range order {
		members := groups[key]
		if len(members) < 2 {
			continue
		}
		conflictID := newID(conflictPrefix)
		links := make([]dto.SolverConflictLink, 0, len(members))
		for _, member := range members {
			links = append(links, dto.SolverConflictLink{
				ConflictCourseID:  newID(conflictCoursePrefix),
				ConflictID:        conflictID,
				ScheduledCourseID: member.ScheduledCourseID,
			})
		}
		entries = append(entries, dto.SolverConflictEntry{
			Conflict: dto.SolverConflict{
				ConflictID:   conflictID,
				ScheduleID:   input.ScheduleID,
				TimeslotID:   key.TimeslotID,
				DayOfWeek:    key.Day,
				ConflictType: string(models.ConflictTimeSlot),
				Description: fmt.Sprintf("professor %s is assigned %d courses in the same time slot (%s)",
					key.ProfessorID, len(members), memberNames(members, names)),
			},
			ScheduledCourses: members,
			ConflictCourses:  links,
		})
	}
	return entries
}

func unplacedConflicts(input *dto.SolverInput, placements []dto.SolverPlacement) []dto.SolverConflictEntry {
	placedCount := make(map[string]int, len(placements))
	for _, p := range placements {
		placedCount[p.CourseID]++
	}

	var entries []dto.SolverConflictEntry
	for _, course := range input.Courses {
		instances := course.NumClasses
		if instances < 1 {
			instances = 1
		}
		count := placedCount[course.CourseID]
		if count >= instances {
			continue
		}

		qualified := input.QualifiedProfessors[course.CourseID]
		description := fmt.Sprintf("no available time slot could be found for course %s", course.CourseName)
		var professorID *string
		if len(qualified) == 0 {
			description = fmt.Sprintf("no qualified professor exists for course %s", course.CourseName)
		} else {
			profID := qualified[0]
			professorID = &profID
		}
		if count > 0 {
			// Some class instances placed, the rest ran out of slots.
			description = fmt.Sprintf("only %d of %d classes of course %s could be placed", count, instances, course.CourseName)
		}

		// The placeholder placement anchors the conflict record to a concrete
		// row; the schedule view renders it as unassigned.
		placeholder := dto.SolverPlacement{
			ScheduledCourseID: newID(scheduledCoursePrefix),
			ScheduleID:        input.ScheduleID,
			CourseID:          course.CourseID,
			ProfessorID:       professorID,
			ClassInstance:     count + 1,
			NumClasses:        course.NumClasses,
		}
		if len(input.TimeSlots) > 0 {
			placeholder.TimeslotID = input.TimeSlots[0].TimeslotID
			placeholder.DayOfWeek = input.TimeSlots[0].DayOfWeek
		}

		conflictID := newID(conflictPrefix)
		entries = append(entries, dto.SolverConflictEntry{
			Conflict: dto.SolverConflict{
				ConflictID:   conflictID,
				ScheduleID:   input.ScheduleID,
				TimeslotID:   placeholder.TimeslotID,
				DayOfWeek:    placeholder.DayOfWeek,
				ConflictType: string(models.ConflictNoAvailableSlot),
				Description:  description,
			},
			ScheduledCourse: &placeholder,
			ConflictCourse: &dto.SolverConflictLink{
				ConflictCourseID:  newID(conflictCoursePrefix),
				ConflictID:        conflictID,
				ScheduledCourseID: placeholder.ScheduledCourseID,
			},
		})
	}
	return entries
}

func courseNames(input *dto.SolverInput) map[string]string {
	names := make(map[string]string, len(input.Courses))
	for _, c := range input.Courses {
		names[c.CourseID] = c.CourseName
	}
	return names
}

func memberNames(members []dto.SolverPlacement, names map[string]string) string {
	out := ""
	for i, m := range members {
		if i > 0 {
			out += ", "
		}
		if name, ok := names[m.CourseID]; ok {
			out += name
		} else {
			out += m.CourseID
		}
	}
	return out
}
