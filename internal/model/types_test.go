package model

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPhases_Order verifies the invariant phase ordering: clean always
// precedes build, which always precedes deploy. Every part of the
// pipeline relies on this slice as the single source of ordering.
func TestPhases_Order(t *testing.T) {
	assert.Equal(t, []Phase{PhaseClean, PhaseBuild, PhaseDeploy}, Phases())
}

// TestPhase_String verifies that Phase values produce the expected
// string representations for CLI output and JSON serialization.
func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase    Phase
		expected string
	}{
		{PhaseClean, "clean"},
		{PhaseBuild, "build"},
		{PhaseDeploy, "deploy"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.phase.String())
		})
	}
}

// TestPhase_IsValid checks that only defined phases pass validation.
func TestPhase_IsValid(t *testing.T) {
	assert.True(t, PhaseClean.IsValid())
	assert.True(t, PhaseBuild.IsValid())
	assert.True(t, PhaseDeploy.IsValid())
	assert.False(t, Phase("test").IsValid())
	assert.False(t, Phase("").IsValid())
}

// TestParsePhase verifies string-to-phase conversion,
// including case normalization and error cases.
func TestParsePhase(t *testing.T) {
	tests := []struct {
		input    string
		expected Phase
		hasError bool
	}{
		{"clean", PhaseClean, false},
		{"build", PhaseBuild, false},
		{"deploy", PhaseDeploy, false},
		{"Build", PhaseBuild, false},  // case insensitive
		{"DEPLOY", PhaseDeploy, false}, // case insensitive
		{"test", "", true},             // unknown value
		{"", "", true},                 // empty string
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParsePhase(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestPhaseStatus_IsValid checks that only defined status values pass validation.
func TestPhaseStatus_IsValid(t *testing.T) {
	assert.True(t, StatusPending.IsValid())
	assert.True(t, StatusRunning.IsValid())
	assert.True(t, StatusSucceeded.IsValid())
	assert.True(t, StatusFailed.IsValid())
	assert.True(t, StatusSkipped.IsValid())
	assert.False(t, PhaseStatus("done").IsValid())
	assert.False(t, PhaseStatus("").IsValid())
}

// TestParsePhaseStatus verifies string-to-status conversion.
func TestParsePhaseStatus(t *testing.T) {
	tests := []struct {
		input    string
		expected PhaseStatus
		hasError bool
	}{
		{"pending", StatusPending, false},
		{"running", StatusRunning, false},
		{"succeeded", StatusSucceeded, false},
		{"failed", StatusFailed, false},
		{"skipped", StatusSkipped, false},
		{"Failed", StatusFailed, false}, // case insensitive
		{"done", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParsePhaseStatus(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestParseRunOutcome verifies string-to-outcome conversion.
func TestParseRunOutcome(t *testing.T) {
	tests := []struct {
		input    string
		expected RunOutcome
		hasError bool
	}{
		{"succeeded", OutcomeSucceeded, false},
		{"failed", OutcomeFailed, false},
		{"SUCCEEDED", OutcomeSucceeded, false}, // case insensitive
		{"partial", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			result, err := ParseRunOutcome(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

// TestPhaseResult_Duration verifies duration calculation, including the
// zero-duration result for phases that never ran (skipped).
func TestPhaseResult_Duration(t *testing.T) {
	start := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	t.Run("completed phase", func(t *testing.T) {
		pr := PhaseResult{
			Phase:      PhaseBuild,
			Status:     StatusSucceeded,
			StartedAt:  start,
			FinishedAt: start.Add(90 * time.Second),
		}
		assert.Equal(t, 90*time.Second, pr.Duration())
	})

	t.Run("skipped phase has zero duration", func(t *testing.T) {
		pr := PhaseResult{Phase: PhaseDeploy, Status: StatusSkipped, ExitCode: -1}
		assert.Equal(t, time.Duration(0), pr.Duration())
	})
}

// TestRunRecord_FailedPhase verifies failed-phase lookup across
// successful, failed, and partially skipped runs.
func TestRunRecord_FailedPhase(t *testing.T) {
	t.Run("successful run has no failed phase", func(t *testing.T) {
		rec := RunRecord{
			Outcome: OutcomeSucceeded,
			Phases: []PhaseResult{
				{Phase: PhaseClean, Status: StatusSucceeded},
				{Phase: PhaseBuild, Status: StatusSucceeded},
				{Phase: PhaseDeploy, Status: StatusSucceeded},
			},
		}
		_, ok := rec.FailedPhase()
		assert.False(t, ok)
	})

	t.Run("failed run reports the failing phase", func(t *testing.T) {
		rec := RunRecord{
			Outcome: OutcomeFailed,
			Phases: []PhaseResult{
				{Phase: PhaseClean, Status: StatusSucceeded},
				{Phase: PhaseBuild, Status: StatusFailed, ExitCode: 101},
				{Phase: PhaseDeploy, Status: StatusSkipped, ExitCode: -1},
			},
		}
		phase, ok := rec.FailedPhase()
		require.True(t, ok)
		assert.Equal(t, PhaseBuild, phase)
	})
}

// TestCLIError verifies the custom error type used for exit code mapping.
func TestCLIError(t *testing.T) {
	t.Run("simple error", func(t *testing.T) {
		err := NewCLIError(ExitToolNotFound, "cargo not found in PATH")
		assert.Equal(t, ExitToolNotFound, err.Code)
		assert.Equal(t, "cargo not found in PATH", err.Error())
		assert.Nil(t, err.Unwrap())
	})

	t.Run("wrapped error", func(t *testing.T) {
		inner := errors.New("executable file not found in $PATH")
		err := WrapCLIError(ExitToolNotFound, "cargo not found", inner)
		assert.Equal(t, ExitToolNotFound, err.Code)
		assert.Contains(t, err.Error(), "executable file not found")
		assert.Equal(t, inner, err.Unwrap())
	})

	// Verify errors.Is works with unwrapped errors (Go 1.13+ error chain).
	t.Run("errors.Is chain", func(t *testing.T) {
		inner := errors.New("executable file not found in $PATH")
		err := WrapCLIError(ExitToolNotFound, "cargo not found", inner)
		assert.True(t, errors.Is(err, inner))
	})
}

// TestPhaseError verifies that phase failures carry the failing tool's
// exit status verbatim, which the process ultimately exits with.
func TestPhaseError(t *testing.T) {
	t.Run("carries the tool exit status", func(t *testing.T) {
		err := NewPhaseError(PhaseBuild, 101, nil)
		assert.Equal(t, PhaseBuild, err.Phase)
		assert.Equal(t, 101, err.ExitCode)
		assert.Equal(t, "build phase failed with exit status 101", err.Error())
	})

	t.Run("found through errors.As across wrapping", func(t *testing.T) {
		inner := errors.New("exit status 1")
		var err error = NewPhaseError(PhaseDeploy, 1, inner)

		var phaseErr *PhaseError
		require.True(t, errors.As(err, &phaseErr))
		assert.Equal(t, PhaseDeploy, phaseErr.Phase)
		assert.Equal(t, 1, phaseErr.ExitCode)
		assert.True(t, errors.Is(err, inner))
	})
}
