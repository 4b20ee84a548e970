// Package model defines the domain types for the liftoff CLI.
//
// The central entity is the pipeline run: an ordered sequence of phases
// (clean, build, deploy), each of which invokes one external tool and is
// judged solely by that tool's exit status. A RunRecord captures the
// observable outcome of one run for history, events, and metrics.
//
// Key design decision: the pipeline never interprets tool output. The
// only signal it consumes is the exit status, and a failing phase's exit
// status is propagated to the operating system verbatim (see PhaseError).
package model

import (
	"fmt"
	"strings"
	"time"
)

// Phase identifies one of the pipeline's ordered steps. The order is
// fixed: clean always precedes build, which always precedes deploy.
type Phase string

const (
	// PhaseClean removes previous build artifacts (cargo clean).
	PhaseClean Phase = "clean"

	// PhaseBuild compiles the release binary (cargo build --release).
	PhaseBuild Phase = "build"

	// PhaseDeploy pushes the project to the hosting platform in
	// production mode (vercel deploy --prod --force --yes).
	PhaseDeploy Phase = "deploy"
)

// Phases returns all pipeline phases in execution order. Callers must
// not rely on any other source for phase ordering.
func Phases() []Phase {
	return []Phase{PhaseClean, PhaseBuild, PhaseDeploy}
}

// String returns the string representation of Phase.
// This method satisfies the fmt.Stringer interface, enabling
// human-readable output in CLI commands and logging.
func (p Phase) String() string {
	return string(p)
}

// IsValid checks whether the Phase value is one of the predefined phases.
func (p Phase) IsValid() bool {
	switch p {
	case PhaseClean, PhaseBuild, PhaseDeploy:
		return true
	default:
		return false
	}
}

// ParsePhase converts a string to a Phase.
// Returns an error if the string does not match any valid phase.
func ParsePhase(s string) (Phase, error) {
	phase := Phase(strings.ToLower(s))
	if !phase.IsValid() {
		return "", fmt.Errorf("invalid phase: %q (valid: clean, build, deploy)", s)
	}
	return phase, nil
}

// PhaseStatus represents the lifecycle state of a single phase within
// a pipeline run. The state transitions are:
//
//	pending → running → succeeded
//	pending → running → failed
//	pending → skipped (an earlier phase failed)
type PhaseStatus string

const (
	// StatusPending indicates the phase has not started yet.
	StatusPending PhaseStatus = "pending"

	// StatusRunning indicates the phase's external tool is executing.
	StatusRunning PhaseStatus = "running"

	// StatusSucceeded indicates the phase's tool exited with status 0.
	StatusSucceeded PhaseStatus = "succeeded"

	// StatusFailed indicates the phase's tool exited non-zero or could
	// not be started at all.
	StatusFailed PhaseStatus = "failed"

	// StatusSkipped indicates the phase never ran because an earlier
	// phase failed. Fail-fast semantics guarantee skipped phases have
	// no side effects.
	StatusSkipped PhaseStatus = "skipped"
)

// String returns the string representation of PhaseStatus.
func (s PhaseStatus) String() string {
	return string(s)
}

// IsValid checks whether the PhaseStatus value is one of the
// predefined valid states.
func (s PhaseStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusRunning, StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// ParsePhaseStatus converts a string to a PhaseStatus.
// Returns an error if the string does not match any valid status.
func ParsePhaseStatus(s string) (PhaseStatus, error) {
	status := PhaseStatus(strings.ToLower(s))
	if !status.IsValid() {
		return "", fmt.Errorf("invalid phase status: %q (valid: pending, running, succeeded, failed, skipped)", s)
	}
	return status, nil
}

// RunOutcome represents the terminal state of a whole pipeline run.
// A run succeeds if and only if every executed phase succeeded.
type RunOutcome string

const (
	// OutcomeSucceeded indicates all phases exited with status 0.
	OutcomeSucceeded RunOutcome = "succeeded"

	// OutcomeFailed indicates some phase failed; all later phases
	// were skipped.
	OutcomeFailed RunOutcome = "failed"
)

// String returns the string representation of RunOutcome.
func (o RunOutcome) String() string {
	return string(o)
}

// IsValid checks whether the RunOutcome value is one of the
// predefined valid outcomes.
func (o RunOutcome) IsValid() bool {
	switch o {
	case OutcomeSucceeded, OutcomeFailed:
		return true
	default:
		return false
	}
}

// ParseRunOutcome converts a string to a RunOutcome.
// Returns an error if the string does not match any valid outcome.
func ParseRunOutcome(s string) (RunOutcome, error) {
	outcome := RunOutcome(strings.ToLower(s))
	if !outcome.IsValid() {
		return "", fmt.Errorf("invalid run outcome: %q (valid: succeeded, failed)", s)
	}
	return outcome, nil
}

// PhaseResult records the observable outcome of a single phase.
//
// ExitCode is the invoked tool's exit status, propagated without
// interpretation. A value of -1 means no exit status exists: either the
// tool could not be started, or the phase was skipped.
type PhaseResult struct {
	// Phase identifies which pipeline step this result belongs to.
	Phase Phase `json:"phase"`

	// Status is the terminal state of the phase.
	Status PhaseStatus `json:"status"`

	// ExitCode is the tool's exit status (-1 when the phase never
	// produced one).
	ExitCode int `json:"exitCode"`

	// StartedAt is when the phase's tool was spawned. Zero for
	// skipped phases.
	StartedAt time.Time `json:"startedAt"`

	// FinishedAt is when the phase's tool exited. Zero for skipped phases.
	FinishedAt time.Time `json:"finishedAt"`
}

// Duration returns how long the phase's tool ran. Returns 0 for
// phases that never ran.
func (r PhaseResult) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// RunRecord is the primary aggregate entity: one pipeline execution and
// everything observed about it. Records are persisted to the local run
// history database and published as deploy events.
type RunRecord struct {
	// ID is a UUID uniquely identifying this run.
	ID string `json:"id"`

	// StartedAt is when the run began, in UTC.
	StartedAt time.Time `json:"startedAt"`

	// FinishedAt is when the run reached a terminal state, in UTC.
	FinishedAt time.Time `json:"finishedAt"`

	// Outcome is the terminal state of the run.
	Outcome RunOutcome `json:"outcome"`

	// Phases holds one result per phase, in execution order. Phases
	// after a failure appear with StatusSkipped.
	Phases []PhaseResult `json:"phases"`

	// Commit is the full SHA of the checked-out commit at run start.
	// Empty when the project is not inside a Git repository.
	Commit string `json:"commit,omitempty"`

	// Branch is the checked-out branch name at run start. Empty when
	// unknown or detached.
	Branch string `json:"branch,omitempty"`

	// Dirty reports whether the working tree had uncommitted changes
	// at run start.
	Dirty bool `json:"dirty,omitempty"`

	// DeployURL is the production URL reported by the deployment tool.
	// Only populated for runs whose deploy phase succeeded.
	DeployURL string `json:"deployUrl,omitempty"`
}

// Duration returns the total wall-clock duration of the run.
// Returns 0 if the run has not finished.
func (r *RunRecord) Duration() time.Duration {
	if r.StartedAt.IsZero() || r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// FailedPhase returns the phase that caused the run to fail.
// The second return value is false for successful runs.
func (r *RunRecord) FailedPhase() (Phase, bool) {
	for _, pr := range r.Phases {
		if pr.Status == StatusFailed {
			return pr.Phase, true
		}
	}
	return "", false
}

// ExitCode defines standard CLI exit codes. These codes allow scripts
// and CI systems to programmatically determine the outcome of a command.
//
// Phase failures are the one exception to this table: they exit with
// the failing tool's own exit status, carried by PhaseError.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitProjectNotFound indicates no deployable project (Cargo.toml)
	// was found in or above the working directory.
	ExitProjectNotFound ExitCode = 2

	// ExitToolNotFound indicates a required external tool is not
	// installed or not on PATH.
	ExitToolNotFound ExitCode = 3

	// ExitConfigInvalid indicates liftoff.yaml or vercel.json could
	// not be parsed.
	ExitConfigInvalid ExitCode = 4

	// ExitDockerUnavailable indicates the Docker daemon is not
	// accessible (hermetic builds only).
	ExitDockerUnavailable ExitCode = 5

	// ExitVerifyFailed indicates the deployed endpoint did not pass
	// the post-deploy smoke check.
	ExitVerifyFailed ExitCode = 6

	// ExitUserCancelled indicates the user declined an interactive
	// confirmation prompt.
	ExitUserCancelled ExitCode = 7
)

// CLIError is a custom error type that carries an exit code.
// This allows the CLI layer to translate domain errors into
// appropriate process exit codes.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
// This follows Go's error wrapping convention introduced in Go 1.13.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// PhaseError reports a pipeline phase whose external tool exited
// non-zero. Unlike CLIError, the exit code is not drawn from the
// ExitCode table: it is the failing tool's own exit status, which the
// process exits with verbatim so calling environments (CI, shells) see
// exactly what the tool reported.
type PhaseError struct {
	// Phase is the pipeline step whose tool failed.
	Phase Phase

	// ExitCode is the tool's exit status, propagated unchanged.
	ExitCode int

	// Err is the underlying process error, if any.
	Err error
}

// Error satisfies the error interface.
func (e *PhaseError) Error() string {
	return fmt.Sprintf("%s phase failed with exit status %d", e.Phase, e.ExitCode)
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *PhaseError) Unwrap() error {
	return e.Err
}

// NewPhaseError creates a PhaseError for the given phase and tool
// exit status.
func NewPhaseError(phase Phase, exitCode int, err error) *PhaseError {
	return &PhaseError{Phase: phase, ExitCode: exitCode, Err: err}
}
