// Package pipeline orchestrates the ordered clean, build, deploy phases
// with fail-fast semantics.
//
// The output contract is deliberately rigid: one announcement line
// before each phase and one completion line after the last phase, all
// on the pipeline's writer. A full successful run therefore prints
// exactly four lines (plus whatever the tools themselves stream). On
// failure the pipeline stops immediately, so the last line printed is
// the failing phase's announcement, and the error carries the tool's
// exit status verbatim.
//
// Observers (history, events, metrics) are best-effort side channels:
// their failures are reported through Warnf and never alter the
// pipeline's ordering, output, or exit status.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/AaronHausheer/liftoff/internal/model"
	"github.com/AaronHausheer/liftoff/internal/toolchain"
	"github.com/AaronHausheer/liftoff/internal/ui"
)

// Observer receives run lifecycle notifications. PhaseFinished fires
// only for phases that actually ran; skipped phases appear in the final
// record instead.
type Observer interface {
	RunStarted(ctx context.Context, rec *model.RunRecord) error
	PhaseFinished(ctx context.Context, rec *model.RunRecord, res model.PhaseResult) error
	RunFinished(ctx context.Context, rec *model.RunRecord) error
}

// Pipeline executes phases in order through a Runner.
type Pipeline struct {
	// Runner executes the external tools (host processes or
	// containers).
	Runner toolchain.Runner

	// Tools maps phases to their commands.
	Tools toolchain.Toolchain

	// Out receives status lines.
	Out io.Writer

	// Styles color the status lines. Zero styles render plain text.
	Styles ui.Styles

	// Observers are notified of run progress.
	Observers []Observer

	// Warnf reports observer failures without affecting the run.
	Warnf func(format string, args ...any)
}

// New returns a Pipeline writing status lines to out.
func New(runner toolchain.Runner, tools toolchain.Toolchain, out io.Writer) *Pipeline {
	return &Pipeline{
		Runner: runner,
		Tools:  tools,
		Out:    out,
		Styles: ui.DefaultStyles(),
		Warnf:  func(string, ...any) {},
	}
}

// Run executes the given phases in order, recording results onto rec.
// The caller seeds rec with its identity fields (ID, StartedAt, git
// metadata); Run fills in phase results, outcome, and finish time.
//
// The first phase failure stops the run: later phases are recorded as
// skipped and the phase error is returned unchanged, so the tool's exit
// status survives to the process boundary.
func (p *Pipeline) Run(ctx context.Context, rec *model.RunRecord, phases []model.Phase) error {
	if len(phases) == 0 {
		return nil
	}

	p.notifyRunStarted(ctx, rec)

	for i, phase := range phases {
		inv := p.Tools.Invocation(phase)
		p.announce(phase, inv)

		res := model.PhaseResult{
			Phase:     phase,
			Status:    model.StatusRunning,
			ExitCode:  -1,
			StartedAt: time.Now().UTC(),
		}

		runRes, err := p.Runner.Run(ctx, inv)
		res.FinishedAt = time.Now().UTC()
		res.ExitCode = runRes.ExitCode

		if err != nil {
			res.Status = model.StatusFailed
			rec.Phases = append(rec.Phases, res)
			p.notifyPhaseFinished(ctx, rec, res)

			for _, skipped := range phases[i+1:] {
				rec.Phases = append(rec.Phases, model.PhaseResult{
					Phase:    skipped,
					Status:   model.StatusSkipped,
					ExitCode: -1,
				})
			}

			rec.FinishedAt = time.Now().UTC()
			rec.Outcome = model.OutcomeFailed
			p.notifyRunFinished(ctx, rec)
			return err
		}

		res.Status = model.StatusSucceeded
		rec.Phases = append(rec.Phases, res)

		if phase == model.PhaseDeploy {
			if url := toolchain.ExtractDeployURL(runRes.Stdout); url != "" {
				rec.DeployURL = url
			}
		}

		p.notifyPhaseFinished(ctx, rec, res)
	}

	rec.FinishedAt = time.Now().UTC()
	rec.Outcome = model.OutcomeSucceeded

	p.printCompletion(phases[len(phases)-1], rec.DeployURL)
	p.notifyRunFinished(ctx, rec)
	return nil
}

// announce prints the phase's status line before its tool runs.
func (p *Pipeline) announce(phase model.Phase, inv toolchain.Invocation) {
	fmt.Fprintf(p.Out, "%s %s %s\n",
		p.Styles.Arrow.Render("==>"),
		p.Styles.Phase.Render(phaseVerb(phase)),
		p.Styles.Command.Render("("+inv.CommandLine()+")"),
	)
}

// printCompletion prints the final status line after the last phase.
func (p *Pipeline) printCompletion(last model.Phase, deployURL string) {
	line := p.Styles.Success.Render(completionLabel(last))
	if last == model.PhaseDeploy && deployURL != "" {
		line += ": " + p.Styles.URL.Render(deployURL)
	}
	fmt.Fprintln(p.Out, line)
}

func phaseVerb(phase model.Phase) string {
	switch phase {
	case model.PhaseClean:
		return "Cleaning build artifacts"
	case model.PhaseBuild:
		return "Building release binary"
	case model.PhaseDeploy:
		return "Deploying to production"
	}
	return phase.String()
}

func completionLabel(last model.Phase) string {
	switch last {
	case model.PhaseClean:
		return "Clean complete"
	case model.PhaseBuild:
		return "Build complete"
	}
	return "Deploy complete"
}

func (p *Pipeline) notifyRunStarted(ctx context.Context, rec *model.RunRecord) {
	for _, o := range p.Observers {
		if err := o.RunStarted(ctx, rec); err != nil {
			p.Warnf("run started notification failed: %v", err)
		}
	}
}

func (p *Pipeline) notifyPhaseFinished(ctx context.Context, rec *model.RunRecord, res model.PhaseResult) {
	for _, o := range p.Observers {
		if err := o.PhaseFinished(ctx, rec, res); err != nil {
			p.Warnf("%s phase notification failed: %v", res.Phase, err)
		}
	}
}

func (p *Pipeline) notifyRunFinished(ctx context.Context, rec *model.RunRecord) {
	for _, o := range p.Observers {
		if err := o.RunFinished(ctx, rec); err != nil {
			p.Warnf("run finished notification failed: %v", err)
		}
	}
}
