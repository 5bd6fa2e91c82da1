package solver

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func shSolver(t *testing.T, script string, timeout time.Duration) *SubprocessSolver {
	t.Helper()
	return NewSubprocessSolver("/bin/sh", []string{"-c", script}, timeout, zap.NewNop())
}

func TestSubprocessSolverParsesResult(t *testing.T) {
	script := `cat > /dev/null; echo '{"success":true,"result":{"scheduled_courses":[{"scheduled_course_id":"SC-1","schedule_id":"SCH-test0001","course_id":"course-algos","professor_id":"prof-1","timeslot_id":"ts-1","day_of_week":"Monday","class_instance":1,"num_classes":1}],"conflicts":[],"statistics":{"solver_status":"OPTIMAL"}}}'`
	solver := shSolver(t, script, 5*time.Second)

	result, err := solver.Solve(context.Background(), snapshotFixture())
	require.NoError(t, err)
	require.Len(t, result.ScheduledCourses, 1)
	assert.Equal(t, "SC-1", result.ScheduledCourses[0].ScheduledCourseID)
	require.NotNil(t, result.ScheduledCourses[0].ProfessorID)
	assert.Equal(t, "prof-1", *result.ScheduledCourses[0].ProfessorID)
	assert.Equal(t, "OPTIMAL", result.Statistics["solver_status"])
}

func TestSubprocessSolverSkipsBannerNoise(t *testing.T) {
	script := `cat > /dev/null; echo "loading model..."; echo '{"success":true,"result":{"scheduled_courses":[],"conflicts":[]}}'`
	solver := shSolver(t, script, 5*time.Second)

	result, err := solver.Solve(context.Background(), snapshotFixture())
	require.NoError(t, err)
	assert.Empty(t, result.ScheduledCourses)
}

func TestSubprocessSolverNonZeroExit(t *testing.T) {
	solver := shSolver(t, `cat > /dev/null; echo "boom" >&2; exit 3`, 5*time.Second)

	_, err := solver.Solve(context.Background(), snapshotFixture())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSubprocessSolverUnparseableOutput(t *testing.T) {
	solver := shSolver(t, `cat > /dev/null; echo "not json at all"`, 5*time.Second)

	_, err := solver.Solve(context.Background(), snapshotFixture())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSubprocessSolverReportedFailure(t *testing.T) {
	solver := shSolver(t, `cat > /dev/null; echo '{"success":false,"error":"infeasible model"}'`, 5*time.Second)

	_, err := solver.Solve(context.Background(), snapshotFixture())
	require.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, err.Error(), "infeasible model")
}

func TestSubprocessSolverMissingCommand(t *testing.T) {
	solver := NewSubprocessSolver("/nonexistent/solver-binary", nil, time.Second, zap.NewNop())

	_, err := solver.Solve(context.Background(), snapshotFixture())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestSubprocessSolverKillsHungProcess(t *testing.T) {
	solver := shSolver(t, `sleep 30`, 200*time.Millisecond)

	start := time.Now()
	_, err := solver.Solve(context.Background(), snapshotFixture())
	elapsed := time.Since(start)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, elapsed, 5*time.Second)
}

func TestSubprocessSolverHonoursCallerCancellation(t *testing.T) {
	solver := shSolver(t, `sleep 30`, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := solver.Solve(ctx, snapshotFixture())

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestChainFallsBackOnUnavailable(t *testing.T) {
	failing := shSolver(t, `exit 1`, time.Second)
	fallback := NewFallbackScheduler(15*time.Minute, zap.NewNop())
	chain := NewChain(zap.NewNop(), failing, fallback)

	result, err := chain.Solve(context.Background(), snapshotFixture())
	require.NoError(t, err)
	assert.Equal(t, "FALLBACK", result.Statistics["solver_status"])
}

func TestChainStopsAtFirstSuccess(t *testing.T) {
	primary := shSolver(t, `cat > /dev/null; echo '{"success":true,"result":{"scheduled_courses":[],"conflicts":[],"statistics":{"solver_status":"OPTIMAL"}}}'`, 5*time.Second)
	fallback := NewFallbackScheduler(15*time.Minute, zap.NewNop())
	chain := NewChain(zap.NewNop(), primary, fallback)

	result, err := chain.Solve(context.Background(), snapshotFixture())
	require.NoError(t, err)
	assert.Equal(t, "OPTIMAL", result.Statistics["solver_status"])
}

func TestChainExhausted(t *testing.T) {
	chain := NewChain(zap.NewNop(), shSolver(t, `exit 1`, time.Second), shSolver(t, `exit 2`, time.Second))

	_, err := chain.Solve(context.Background(), snapshotFixture())
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestChainAbortsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	chain := NewChain(zap.NewNop(), NewFallbackScheduler(15*time.Minute, zap.NewNop()))
	_, err := chain.Solve(ctx, snapshotFixture())
	assert.ErrorIs(t, err, context.Canceled)
}
