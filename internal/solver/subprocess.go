package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/unisched/scheduler-api/internal/dto"
)

const stderrLogLimit = 2048

// SubprocessSolver reaches the external constraint solver through a child
// process: the snapshot document is written to stdin and the stream closed,
// one JSON result document is expected on stdout before exit 0. Diagnostic
// text on stderr is logged, never parsed and never shown to callers.
type SubprocessSolver struct {
	command string
	args    []string
	timeout time.Duration
	logger  *zap.Logger
}

// NewSubprocessSolver configures the gateway to the external solver.
func NewSubprocessSolver(command string, args []string, timeout time.Duration, logger *zap.Logger) *SubprocessSolver {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubprocessSolver{command: command, args: args, timeout: timeout, logger: logger}
}

// Solve implements Solver. Every operational failure — spawn error, non-zero
// exit, unparseable output, timeout — normalises to ErrUnavailable so the
// chain can fall back; the cause is preserved for logs.
func (s *SubprocessSolver) Solve(ctx context.Context, input *dto.SolverInput) (*dto.SolverResult, error) {
	payload, err := json.Marshal(input)
	if err != nil {
		return nil, fmt.Errorf("encode solver input: %w", err)
	}

	runCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	cmd := exec.Command(s.command, s.args...)
	cmd.Stdin = bytes.NewReader(payload)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	// Own process group so the watchdog can also reap grandchildren.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: start %s: %v", ErrUnavailable, s.command, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-runCtx.Done():
		s.killGroup(cmd)
		<-done
		s.logger.Warn("solver terminated by watchdog",
			zap.String("command", s.command),
			zap.Duration("timeout", s.timeout),
			zap.String("stderr", truncate(stderr.String(), stderrLogLimit)),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, runCtx.Err())
	case waitErr := <-done:
		if waitErr != nil {
			s.logger.Warn("solver exited abnormally",
				zap.String("command", s.command),
				zap.Error(waitErr),
				zap.String("stderr", truncate(stderr.String(), stderrLogLimit)),
			)
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, waitErr)
		}
	}

	output, err := decodeOutput(stdout.Bytes())
	if err != nil {
		s.logger.Warn("solver output unparseable",
			zap.Error(err),
			zap.String("stderr", truncate(stderr.String(), stderrLogLimit)),
		)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !output.Success || output.Result == nil {
		s.logger.Warn("solver reported failure", zap.String("solver_error", output.Error))
		return nil, fmt.Errorf("%w: solver error: %s", ErrUnavailable, output.Error)
	}
	return output.Result, nil
}

func (s *SubprocessSolver) killGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Negative pid addresses the whole process group.
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}

// decodeOutput parses the single JSON document on stdout, skipping banner or
// library noise some solvers print before the payload.
func decodeOutput(raw []byte) (*dto.SolverOutput, error) {
	idx := bytes.IndexByte(raw, '{')
	if idx < 0 {
		return nil, fmt.Errorf("no JSON document in solver output")
	}
	var output dto.SolverOutput
	if err := json.Unmarshal(raw[idx:], &output); err != nil {
		return nil, fmt.Errorf("decode solver output: %w", err)
	}
	return &output, nil
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit]
}
