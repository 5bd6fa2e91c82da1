package solver

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/unisched/scheduler-api/internal/dto"
)

// ErrUnavailable signals that a solver could not produce a result for
// operational reasons (process failure, timeout, malformed output). It is
// recoverable: the caller moves on to the next solver in the chain.
var ErrUnavailable = errors.New("solver unavailable")

// Solver produces a scheduling result for one immutable snapshot.
type Solver interface {
	Solve(ctx context.Context, input *dto.SolverInput) (*dto.SolverResult, error)
}

// Chain tries each solver in order, advancing only on ErrUnavailable. Any
// other error, including caller cancellation, aborts the run immediately so
// an abandoned run never silently degrades to the fallback.
type Chain struct {
	solvers []Solver
	logger  *zap.Logger
}

// NewChain builds a fallback chain over the given solvers.
func NewChain(logger *zap.Logger, solvers ...Solver) *Chain {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Chain{solvers: solvers, logger: logger}
}

// Solve implements Solver.
func (c *Chain) Solve(ctx context.Context, input *dto.SolverInput) (*dto.SolverResult, error) {
	lastErr := error(ErrUnavailable)
	for i, s := range c.solvers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.Solve(ctx, input)
		if err == nil {
			return result, nil
		}
		if !errors.Is(err, ErrUnavailable) {
			return nil, err
		}
		lastErr = err
		c.logger.Warn("solver unavailable, advancing fallback chain",
			zap.Int("position", i),
			zap.String("schedule_id", input.ScheduleID),
			zap.Error(err),
		)
	}
	return nil, lastErr
}

// Identifier prefixes shared with the external solver's output conventions.
const (
	scheduledCoursePrefix = "SC-"
	conflictPrefix        = "CONF-"
	conflictCoursePrefix  = "CC-"
)

func newID(prefix string) string {
	return prefix + uuid.NewString()[:8]
}
