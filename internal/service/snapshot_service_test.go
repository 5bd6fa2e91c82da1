package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unisched/scheduler-api/internal/models"
	appErrors "github.com/unisched/scheduler-api/pkg/errors"
)

type fakeCatalog struct {
	semester       *models.Semester
	courses        []models.Course
	otherCourses   []string
	professors     []models.Professor
	qualifications []models.ProfessorCourse
	availability   []models.ProfessorAvailability
	slots          []models.TimeSlot
}

func (f *fakeCatalog) FindSemester(_ context.Context, id string) (*models.Semester, error) {
	if f.semester == nil || f.semester.ID != id {
		return nil, sql.ErrNoRows
	}
	return f.semester, nil
}

func (f *fakeCatalog) ListCoursesBySemester(_ context.Context, _ string) ([]models.Course, error) {
	return f.courses, nil
}

func (f *fakeCatalog) ListProfessors(_ context.Context) ([]models.Professor, error) {
	return f.professors, nil
}

func (f *fakeCatalog) ListQualifications(_ context.Context, _ string) ([]models.ProfessorCourse, error) {
	return f.qualifications, nil
}

func (f *fakeCatalog) ListAvailability(_ context.Context) ([]models.ProfessorAvailability, error) {
	return f.availability, nil
}

func (f *fakeCatalog) ListTimeSlots(_ context.Context) ([]models.TimeSlot, error) {
	return f.slots, nil
}

func (f *fakeCatalog) CourseExists(_ context.Context, id string) (bool, error) {
	for _, c := range f.courses {
		if c.ID == id {
			return true, nil
		}
	}
	for _, other := range f.otherCourses {
		if other == id {
			return true, nil
		}
	}
	return false, nil
}

func catalogFixture() *fakeCatalog {
	return &fakeCatalog{
		semester: &models.Semester{ID: "sem-1", Name: "Fall 2026"},
		courses: []models.Course{
			{ID: "course-db", Name: "Databases", DurationMinutes: 90, NumClasses: 1},
			{ID: "course-algos", Name: "Algorithms", DurationMinutes: 90, IsCore: true, NumClasses: 1},
			{ID: "course-ai", Name: "Artificial Intelligence", DurationMinutes: 90, NumClasses: 1},
		},
		professors: []models.Professor{
			{ID: "prof-1", FirstName: "Ada", LastName: "Lovelace"},
			{ID: "prof-2", FirstName: "Edsger", LastName: "Dijkstra"},
		},
		qualifications: []models.ProfessorCourse{
			{ID: "pc-1", ProfessorID: "prof-2", CourseID: "course-algos", Semester: "sem-1"},
			{ID: "pc-2", ProfessorID: "prof-1", CourseID: "course-algos", Semester: "sem-1"},
			{ID: "pc-3", ProfessorID: "prof-1", CourseID: "course-db", Semester: "sem-1"},
		},
		availability: []models.ProfessorAvailability{
			{ID: "av-1", ProfessorID: "prof-1", TimeslotID: "ts-1", DayOfWeek: "Monday", IsAvailable: true},
		},
		slots: []models.TimeSlot{
			{ID: "ts-2", Name: "Late", StartTime: "10:00", EndTime: "11:30", DurationMinutes: 90, DayOfWeek: "Monday"},
			{ID: "ts-3", Name: "Early", StartTime: "08:00", EndTime: "09:30", DurationMinutes: 90, DayOfWeek: "Tuesday"},
			{ID: "ts-1", Name: "Early", StartTime: "08:00", EndTime: "09:30", DurationMinutes: 90, DayOfWeek: "Monday"},
		},
	}
}

func TestSnapshotServiceBuildOrdersDeterministically(t *testing.T) {
	service := NewSnapshotService(catalogFixture(), zap.NewNop())

	input, err := service.Build(context.Background(), "SCH-1", "sem-1")
	require.NoError(t, err)

	assert.Equal(t, "SCH-1", input.ScheduleID)

	// Core course first, then remaining courses alphabetically.
	require.Len(t, input.Courses, 3)
	assert.Equal(t, "course-algos", input.Courses[0].CourseID)
	assert.Equal(t, "Artificial Intelligence", input.Courses[1].CourseName)
	assert.Equal(t, "Databases", input.Courses[2].CourseName)

	// Slots by day then start time.
	require.Len(t, input.TimeSlots, 3)
	assert.Equal(t, "ts-1", input.TimeSlots[0].TimeslotID)
	assert.Equal(t, "ts-2", input.TimeSlots[1].TimeslotID)
	assert.Equal(t, "ts-3", input.TimeSlots[2].TimeslotID)

	// Qualification lists sorted, every offered course keyed.
	assert.Equal(t, []string{"prof-1", "prof-2"}, input.QualifiedProfessors["course-algos"])
	assert.Equal(t, []string{"prof-1"}, input.QualifiedProfessors["course-db"])
	assert.Empty(t, input.QualifiedProfessors["course-ai"])

	require.Len(t, input.ProfessorAvailability, 1)
	assert.True(t, input.ProfessorAvailability[0].IsAvailable)
}

func TestSnapshotServiceBuildSemesterNotFound(t *testing.T) {
	service := NewSnapshotService(catalogFixture(), zap.NewNop())

	_, err := service.Build(context.Background(), "SCH-1", "sem-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestSnapshotServiceBuildRejectsBrokenQualification(t *testing.T) {
	catalog := catalogFixture()
	catalog.qualifications = append(catalog.qualifications, models.ProfessorCourse{
		ID: "pc-broken", ProfessorID: "prof-ghost", CourseID: "course-db", Semester: "sem-1",
	})
	service := NewSnapshotService(catalog, zap.NewNop())

	_, err := service.Build(context.Background(), "SCH-1", "sem-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDataIntegrity.Code, appErrors.FromError(err).Code)
}

func TestSnapshotServiceBuildRejectsBrokenAvailability(t *testing.T) {
	catalog := catalogFixture()
	catalog.availability = append(catalog.availability, models.ProfessorAvailability{
		ID: "av-broken", ProfessorID: "prof-1", TimeslotID: "ts-ghost", DayOfWeek: "Friday",
	})
	service := NewSnapshotService(catalog, zap.NewNop())

	_, err := service.Build(context.Background(), "SCH-1", "sem-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDataIntegrity.Code, appErrors.FromError(err).Code)
}

func TestSnapshotServiceBuildSkipsForeignSemesterQualifications(t *testing.T) {
	catalog := catalogFixture()
	catalog.otherCourses = []string{"course-other"}
	catalog.qualifications = append(catalog.qualifications, models.ProfessorCourse{
		ID: "pc-other", ProfessorID: "prof-1", CourseID: "course-other", Semester: "sem-1",
	})
	service := NewSnapshotService(catalog, zap.NewNop())

	input, err := service.Build(context.Background(), "SCH-1", "sem-1")
	require.NoError(t, err)
	_, present := input.QualifiedProfessors["course-other"]
	assert.False(t, present)
}

func TestSnapshotServiceBuildRejectsDanglingQualificationCourse(t *testing.T) {
	catalog := catalogFixture()
	catalog.qualifications = append(catalog.qualifications, models.ProfessorCourse{
		ID: "pc-ghost", ProfessorID: "prof-1", CourseID: "course-ghost", Semester: "sem-1",
	})
	service := NewSnapshotService(catalog, zap.NewNop())

	_, err := service.Build(context.Background(), "SCH-1", "sem-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrDataIntegrity.Code, appErrors.FromError(err).Code)
	assert.Contains(t, appErrors.FromError(err).Message, "course-ghost")
}
