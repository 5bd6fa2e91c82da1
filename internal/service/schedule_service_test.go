package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/unisched/scheduler-api/internal/dto"
	"github.com/unisched/scheduler-api/internal/models"
	appErrors "github.com/unisched/scheduler-api/pkg/errors"
)

type fakeLifecycleStore struct {
	byID      map[string]*models.Schedule
	finalized []string
	deleted   []string
}

func (f *fakeLifecycleStore) FindByID(_ context.Context, id string) (*models.Schedule, error) {
	if s, ok := f.byID[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeLifecycleStore) List(_ context.Context, _ string, _, _ int) ([]models.Schedule, int, error) {
	var all []models.Schedule
	for _, s := range f.byID {
		all = append(all, *s)
	}
	return all, len(all), nil
}

func (f *fakeLifecycleStore) SetFinal(_ context.Context, id string, isFinal bool) error {
	if s, ok := f.byID[id]; ok {
		s.IsFinal = isFinal
		f.finalized = append(f.finalized, id)
		return nil
	}
	return sql.ErrNoRows
}

func (f *fakeLifecycleStore) Delete(_ context.Context, _ sqlx.ExtContext, id string) error {
	delete(f.byID, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakePlacementReader struct {
	bySchedule map[string][]models.ScheduledCourse
	deleted    []string
}

func (f *fakePlacementReader) ListBySchedule(_ context.Context, scheduleID string) ([]models.ScheduledCourse, error) {
	return f.bySchedule[scheduleID], nil
}

func (f *fakePlacementReader) DeleteBySchedule(_ context.Context, _ sqlx.ExtContext, scheduleID string) error {
	f.deleted = append(f.deleted, scheduleID)
	return nil
}

type fakeConflictReader struct {
	bySchedule map[string][]models.Conflict
	unresolved map[string]int
	deleted    []string
}

func (f *fakeConflictReader) ListBySchedule(_ context.Context, scheduleID string) ([]models.Conflict, error) {
	return f.bySchedule[scheduleID], nil
}

func (f *fakeConflictReader) CountUnresolved(_ context.Context, scheduleID string) (int, error) {
	return f.unresolved[scheduleID], nil
}

func (f *fakeConflictReader) DeleteBySchedule(_ context.Context, _ sqlx.ExtContext, scheduleID string) error {
	f.deleted = append(f.deleted, scheduleID)
	return nil
}

type scheduleFixture struct {
	service    *ScheduleService
	schedules  *fakeLifecycleStore
	placements *fakePlacementReader
	conflicts  *fakeConflictReader
	mock       sqlmock.Sqlmock
	cleanup    func()
}

func newScheduleFixture(t *testing.T) *scheduleFixture {
	t.Helper()
	rawDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	db := sqlx.NewDb(rawDB, "sqlmock")

	profID := "prof-1"
	schedules := &fakeLifecycleStore{byID: map[string]*models.Schedule{
		"SCH-1": {ID: "SCH-1", SemesterID: "sem-1", Name: "Fall Draft 1"},
	}}
	placements := &fakePlacementReader{bySchedule: map[string][]models.ScheduledCourse{
		"SCH-1": {
			{ID: "SC-1", ScheduleID: "SCH-1", CourseID: "course-algos", ProfessorID: &profID, TimeslotID: "ts-1", DayOfWeek: "Monday", ClassInstance: 1, NumClasses: 1},
		},
	}}
	conflicts := &fakeConflictReader{
		bySchedule: map[string][]models.Conflict{},
		unresolved: map[string]int{},
	}

	cache := NewCacheService(nil, nil, time.Minute, zap.NewNop(), false)
	service := NewScheduleService(schedules, placements, conflicts, catalogFixture(), cache, time.Minute, db, zap.NewNop())
	return &scheduleFixture{
		service:    service,
		schedules:  schedules,
		placements: placements,
		conflicts:  conflicts,
		mock:       mock,
		cleanup:    func() { rawDB.Close() },
	}
}

func TestScheduleServiceGetDetail(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()

	detail, err := fixture.service.GetDetail(context.Background(), "SCH-1")
	require.NoError(t, err)
	assert.Equal(t, "SCH-1", detail.Schedule.ID)
	require.Len(t, detail.ScheduledCourses, 1)
	assert.Empty(t, detail.Conflicts)
}

func TestScheduleServiceGetDetailNotFound(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()

	_, err := fixture.service.GetDetail(context.Background(), "SCH-missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceList(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()

	schedules, pagination, err := fixture.service.List(context.Background(), dto.ScheduleQuery{}, 1, 20)
	require.NoError(t, err)
	assert.Len(t, schedules, 1)
	assert.Equal(t, 1, pagination.TotalCount)
}

func TestScheduleServiceFinalizeBlockedByOpenConflicts(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()
	fixture.conflicts.unresolved["SCH-1"] = 2

	_, err := fixture.service.Finalize(context.Background(), "SCH-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, appErrors.FromError(err).Code)
	assert.Empty(t, fixture.schedules.finalized)
}

func TestScheduleServiceFinalize(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()

	schedule, err := fixture.service.Finalize(context.Background(), "SCH-1")
	require.NoError(t, err)
	assert.True(t, schedule.IsFinal)
	assert.Equal(t, []string{"SCH-1"}, fixture.schedules.finalized)
}

func TestScheduleServiceFinalizeIdempotent(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()
	fixture.schedules.byID["SCH-1"].IsFinal = true

	schedule, err := fixture.service.Finalize(context.Background(), "SCH-1")
	require.NoError(t, err)
	assert.True(t, schedule.IsFinal)
	assert.Empty(t, fixture.schedules.finalized)
}

func TestScheduleServiceDelete(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()

	fixture.mock.ExpectBegin()
	fixture.mock.ExpectCommit()

	require.NoError(t, fixture.service.Delete(context.Background(), "SCH-1"))
	assert.Equal(t, []string{"SCH-1"}, fixture.conflicts.deleted)
	assert.Equal(t, []string{"SCH-1"}, fixture.placements.deleted)
	assert.Equal(t, []string{"SCH-1"}, fixture.schedules.deleted)
	assert.NoError(t, fixture.mock.ExpectationsWereMet())
}

func TestScheduleServiceDeleteFinalized(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()
	fixture.schedules.byID["SCH-1"].IsFinal = true

	err := fixture.service.Delete(context.Background(), "SCH-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrFinalized.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceExportCSV(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()

	payload, contentType, filename, err := fixture.service.Export(context.Background(), "SCH-1", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)
	assert.Equal(t, "schedule-SCH-1.csv", filename)

	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Course,Professor,Day,Time Slot,Class,Override"))
	assert.Contains(t, body, "Algorithms")
	assert.Contains(t, body, "Ada Lovelace")
}

func TestScheduleServiceExportPDF(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()

	payload, contentType, filename, err := fixture.service.Export(context.Background(), "SCH-1", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.Equal(t, "schedule-SCH-1.pdf", filename)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestScheduleServiceExportUnknownFormat(t *testing.T) {
	fixture := newScheduleFixture(t)
	defer fixture.cleanup()

	_, _, _, err := fixture.service.Export(context.Background(), "SCH-1", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
