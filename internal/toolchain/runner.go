package toolchain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/AaronHausheer/liftoff/internal/model"
)

// Result reports how a tool invocation finished.
type Result struct {
	// ExitCode is the tool's exit status. Zero on success.
	ExitCode int

	// Stdout holds the captured output when Invocation.Capture was set.
	Stdout string
}

// Runner executes tool invocations. The streaming runner below covers
// normal operation; hermetic builds substitute a container-backed
// implementation, and tests substitute fakes.
type Runner interface {
	Run(ctx context.Context, inv Invocation) (Result, error)
}

// StreamRunner runs tools as child processes with their output attached
// to the given streams, so the operator sees compiler and deploy output
// live, unbuffered.
type StreamRunner struct {
	Stdout io.Writer
	Stderr io.Writer
	Stdin  io.Reader
}

// NewStreamRunner returns a runner attached to the process's own
// standard streams.
func NewStreamRunner() *StreamRunner {
	return &StreamRunner{Stdout: os.Stdout, Stderr: os.Stderr, Stdin: os.Stdin}
}

// Run executes the invocation and classifies the outcome:
//
//   - success: nil error, ExitCode 0
//   - tool exited non-zero: PhaseError carrying the tool's exact status
//   - tool could not be started: CLIError with ExitToolNotFound
func (r *StreamRunner) Run(ctx context.Context, inv Invocation) (Result, error) {
	// #nosec G204 — the binary and args come from configuration, not
	// from remote input
	cmd := exec.CommandContext(ctx, inv.Binary, inv.Args...)
	cmd.Dir = inv.Dir
	if len(inv.Env) > 0 {
		cmd.Env = append(os.Environ(), inv.Env...)
	}

	var captured strings.Builder
	cmd.Stdout = r.Stdout
	if inv.Capture {
		// Tee rather than redirect: the operator still sees everything.
		cmd.Stdout = io.MultiWriter(r.Stdout, &captured)
	}
	cmd.Stderr = r.Stderr
	cmd.Stdin = r.Stdin

	err := cmd.Run()
	if err == nil {
		return Result{ExitCode: 0, Stdout: captured.String()}, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return Result{ExitCode: code, Stdout: captured.String()},
			model.NewPhaseError(inv.Phase, code, err)
	}

	// The process never started: binary missing, not executable, or a
	// similar launch failure.
	return Result{ExitCode: -1}, model.WrapCLIError(
		model.ExitToolNotFound,
		fmt.Sprintf("failed to start %q", inv.Binary),
		err,
	)
}
