package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AaronHausheer/liftoff/internal/model"
	"github.com/AaronHausheer/liftoff/internal/toolchain"
	"github.com/AaronHausheer/liftoff/internal/ui"
)

type fakeResult struct {
	res toolchain.Result
	err error
}

// fakeRunner records invocations and answers each phase from a canned
// result table. Phases without an entry succeed with exit status 0.
type fakeRunner struct {
	invocations []toolchain.Invocation
	results     map[model.Phase]fakeResult
}

func (f *fakeRunner) Run(_ context.Context, inv toolchain.Invocation) (toolchain.Result, error) {
	f.invocations = append(f.invocations, inv)
	if fr, ok := f.results[inv.Phase]; ok {
		return fr.res, fr.err
	}
	return toolchain.Result{ExitCode: 0}, nil
}

// fakeObserver records the order of lifecycle notifications and can
// fail every call with a fixed error.
type fakeObserver struct {
	calls []string
	err   error
}

func (f *fakeObserver) RunStarted(context.Context, *model.RunRecord) error {
	f.calls = append(f.calls, "run.started")
	return f.err
}

func (f *fakeObserver) PhaseFinished(_ context.Context, _ *model.RunRecord, res model.PhaseResult) error {
	f.calls = append(f.calls, "phase:"+res.Phase.String())
	return f.err
}

func (f *fakeObserver) RunFinished(_ context.Context, rec *model.RunRecord) error {
	f.calls = append(f.calls, "run.finished:"+rec.Outcome.String())
	return f.err
}

func newTestPipeline(runner toolchain.Runner, out io.Writer) (*Pipeline, *[]string) {
	warnings := &[]string{}
	p := New(runner, toolchain.Toolchain{CargoBin: "cargo", VercelBin: "vercel"}, out)
	p.Styles = ui.Styles{}
	p.Warnf = func(format string, args ...any) {
		*warnings = append(*warnings, fmt.Sprintf(format, args...))
	}
	return p, warnings
}

func newTestRecord() *model.RunRecord {
	return &model.RunRecord{ID: "run-1", StartedAt: time.Now().UTC()}
}

func outputLines(buf *bytes.Buffer) []string {
	return strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
}

func TestPipeline_Run(t *testing.T) {
	runner := &fakeRunner{results: map[model.Phase]fakeResult{
		model.PhaseDeploy: {res: toolchain.Result{
			ExitCode: 0,
			Stdout:   "Inspect: https://vercel.com/acme/movie-api/dpl_123\nProduction: https://movie-api-abc123.vercel.app\n",
		}},
	}}
	var buf bytes.Buffer
	p, _ := newTestPipeline(runner, &buf)
	rec := newTestRecord()

	err := p.Run(context.Background(), rec, model.Phases())
	require.NoError(t, err)

	require.Len(t, runner.invocations, 3)
	assert.Equal(t, model.PhaseClean, runner.invocations[0].Phase)
	assert.Equal(t, model.PhaseBuild, runner.invocations[1].Phase)
	assert.Equal(t, model.PhaseDeploy, runner.invocations[2].Phase)

	lines := outputLines(&buf)
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "Cleaning build artifacts")
	assert.Contains(t, lines[0], "(cargo clean)")
	assert.Contains(t, lines[1], "Building release binary")
	assert.Contains(t, lines[1], "(cargo build --release)")
	assert.Contains(t, lines[2], "Deploying to production")
	assert.Contains(t, lines[2], "(vercel deploy --prod --force --yes)")
	assert.Equal(t, "Deploy complete: https://movie-api-abc123.vercel.app", lines[3])

	assert.Equal(t, model.OutcomeSucceeded, rec.Outcome)
	assert.False(t, rec.FinishedAt.IsZero())
	assert.Equal(t, "https://movie-api-abc123.vercel.app", rec.DeployURL)
	require.Len(t, rec.Phases, 3)
	for _, res := range rec.Phases {
		assert.Equal(t, model.StatusSucceeded, res.Status)
		assert.Equal(t, 0, res.ExitCode)
		assert.False(t, res.FinishedAt.IsZero())
	}
}

func TestPipeline_Run_FailFast(t *testing.T) {
	phaseErr := model.NewPhaseError(model.PhaseBuild, 101, nil)
	runner := &fakeRunner{results: map[model.Phase]fakeResult{
		model.PhaseBuild: {res: toolchain.Result{ExitCode: 101}, err: phaseErr},
	}}
	var buf bytes.Buffer
	p, _ := newTestPipeline(runner, &buf)
	obs := &fakeObserver{}
	p.Observers = []Observer{obs}
	rec := newTestRecord()

	err := p.Run(context.Background(), rec, model.Phases())

	var got *model.PhaseError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, model.PhaseBuild, got.Phase)
	assert.Equal(t, 101, got.ExitCode)

	// The deploy tool must never be invoked after a build failure.
	require.Len(t, runner.invocations, 2)
	assert.Equal(t, model.PhaseBuild, runner.invocations[1].Phase)

	// The failing phase's announcement is the last line printed.
	lines := outputLines(&buf)
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "Building release binary")
	assert.NotContains(t, buf.String(), "Deploying")
	assert.NotContains(t, buf.String(), "complete")

	assert.Equal(t, model.OutcomeFailed, rec.Outcome)
	assert.False(t, rec.FinishedAt.IsZero())
	require.Len(t, rec.Phases, 3)

	assert.Equal(t, model.StatusSucceeded, rec.Phases[0].Status)
	assert.Equal(t, model.StatusFailed, rec.Phases[1].Status)
	assert.Equal(t, 101, rec.Phases[1].ExitCode)
	assert.Equal(t, model.StatusSkipped, rec.Phases[2].Status)
	assert.Equal(t, -1, rec.Phases[2].ExitCode)
	assert.True(t, rec.Phases[2].StartedAt.IsZero())

	// Skipped phases produce no PhaseFinished notification.
	assert.Equal(t, []string{"run.started", "phase:clean", "phase:build", "run.finished:failed"}, obs.calls)
}

func TestPipeline_Run_ToolNotFound(t *testing.T) {
	startErr := model.WrapCLIError(model.ExitToolNotFound, `failed to start "cargo"`, errors.New("executable file not found in $PATH"))
	runner := &fakeRunner{results: map[model.Phase]fakeResult{
		model.PhaseClean: {res: toolchain.Result{ExitCode: -1}, err: startErr},
	}}
	var buf bytes.Buffer
	p, _ := newTestPipeline(runner, &buf)
	rec := newTestRecord()

	err := p.Run(context.Background(), rec, model.Phases())

	var cliErr *model.CLIError
	require.ErrorAs(t, err, &cliErr)
	assert.Equal(t, model.ExitToolNotFound, cliErr.Code)

	require.Len(t, runner.invocations, 1)
	assert.Equal(t, model.OutcomeFailed, rec.Outcome)
	require.Len(t, rec.Phases, 3)
	assert.Equal(t, model.StatusFailed, rec.Phases[0].Status)
	assert.Equal(t, -1, rec.Phases[0].ExitCode)
	assert.Equal(t, model.StatusSkipped, rec.Phases[1].Status)
	assert.Equal(t, model.StatusSkipped, rec.Phases[2].Status)
}

func TestPipeline_Run_SinglePhase(t *testing.T) {
	tests := []struct {
		phase model.Phase
		want  string
	}{
		{model.PhaseClean, "Clean complete"},
		{model.PhaseBuild, "Build complete"},
		{model.PhaseDeploy, "Deploy complete"},
	}

	for _, tt := range tests {
		t.Run(tt.phase.String(), func(t *testing.T) {
			runner := &fakeRunner{}
			var buf bytes.Buffer
			p, _ := newTestPipeline(runner, &buf)
			rec := newTestRecord()

			err := p.Run(context.Background(), rec, []model.Phase{tt.phase})
			require.NoError(t, err)

			lines := outputLines(&buf)
			require.Len(t, lines, 2)
			assert.Equal(t, tt.want, lines[1])
			require.Len(t, rec.Phases, 1)
			assert.Equal(t, model.OutcomeSucceeded, rec.Outcome)
		})
	}
}

func TestPipeline_Run_Observers(t *testing.T) {
	runner := &fakeRunner{}
	var buf bytes.Buffer
	p, warnings := newTestPipeline(runner, &buf)
	obs := &fakeObserver{}
	p.Observers = []Observer{obs}
	rec := newTestRecord()

	err := p.Run(context.Background(), rec, model.Phases())
	require.NoError(t, err)

	assert.Equal(t, []string{
		"run.started",
		"phase:clean",
		"phase:build",
		"phase:deploy",
		"run.finished:succeeded",
	}, obs.calls)
	assert.Empty(t, *warnings)
}

func TestPipeline_Run_ObserverErrors(t *testing.T) {
	runner := &fakeRunner{}
	var buf bytes.Buffer
	p, warnings := newTestPipeline(runner, &buf)
	p.Observers = []Observer{&fakeObserver{err: errors.New("nats: connection closed")}}
	rec := newTestRecord()

	err := p.Run(context.Background(), rec, model.Phases())
	require.NoError(t, err)

	// Observer failures never change the run outcome or its output.
	assert.Equal(t, model.OutcomeSucceeded, rec.Outcome)
	require.Len(t, outputLines(&buf), 4)
	assert.Len(t, *warnings, 5)
	assert.Contains(t, (*warnings)[0], "nats: connection closed")
}

func TestPipeline_Run_NoPhases(t *testing.T) {
	runner := &fakeRunner{}
	var buf bytes.Buffer
	p, _ := newTestPipeline(runner, &buf)

	err := p.Run(context.Background(), newTestRecord(), nil)
	require.NoError(t, err)
	assert.Empty(t, runner.invocations)
	assert.Empty(t, buf.String())
}
