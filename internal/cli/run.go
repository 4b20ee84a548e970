// Package cli: run.go implements the "liftoff run" command and the shared
// pipeline orchestration used by the single-phase commands.
//
// Orchestration steps:
//  1. Load configuration and .env from the working directory
//  2. Choose a runner (host toolchain, or a build container for --hermetic)
//  3. Attach best-effort observers (run history, deploy events, metrics)
//  4. Seed the run record with its identity and Git metadata
//  5. Execute the requested phases in order, stopping at the first failure
//  6. Output results (text status lines, or the JSON run record)
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/AaronHausheer/liftoff/internal/config"
	"github.com/AaronHausheer/liftoff/internal/events"
	"github.com/AaronHausheer/liftoff/internal/gitinfo"
	"github.com/AaronHausheer/liftoff/internal/hermetic"
	"github.com/AaronHausheer/liftoff/internal/history"
	"github.com/AaronHausheer/liftoff/internal/metrics"
	"github.com/AaronHausheer/liftoff/internal/model"
	"github.com/AaronHausheer/liftoff/internal/pipeline"
	"github.com/AaronHausheer/liftoff/internal/toolchain"
)

// runOptions carries the per-command knobs into the shared pipeline
// orchestration. The zero value runs phase tools on the host.
type runOptions struct {
	// hermetic runs the phase tools inside a build container instead of
	// the host toolchain.
	hermetic bool

	// image overrides the build container image when hermetic is set.
	image string
}

// NewRunCommand creates the "run" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewRunCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the full pipeline: clean, build, deploy",
		Long: `Run all three pipeline phases in order:

  1. cargo clean
  2. cargo build --release
  3. vercel deploy --prod --force --yes

The first failing command stops the run; its exit status becomes the
process exit status. Nothing is retried and nothing is rolled back.

Examples:
  liftoff run
  liftoff run --verbose
  liftoff run --json`,

		// The run operation takes no positional arguments and no
		// phase-selection flags.
		Args: cobra.NoArgs,

		// RunE is used instead of Run so we can return errors. Cobra will
		// pass them to the Execute error handler in root.go.
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), model.Phases(), runOptions{})
		},
	}
}

// runPipeline is the shared orchestration behind run, clean, build, and
// deploy. It executes the given phases in the fixed pipeline order and
// returns the first failure unchanged, so root.go can translate a failing
// tool's exit status verbatim.
func runPipeline(ctx context.Context, phases []model.Phase, opts runOptions) error {
	// Step 1: Resolve the working directory and load configuration.
	dir, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err // Load already returns CLIError for invalid config
	}
	VerboseLog("Working directory: %s", dir)

	tools := toolchain.Toolchain{
		CargoBin:  cfg.Tools.Cargo,
		VercelBin: cfg.Tools.Vercel,
		BuildArgs: cfg.Build.ExtraArgs,
		Dir:       dir,
	}

	// Step 2: Choose the runner that will execute the phase commands.
	runner, closeRunner, err := newPhaseRunner(ctx, cfg, opts)
	if err != nil {
		return err
	}
	defer closeRunner()

	// Step 3: Attach observers. All of them are best-effort: a failure to
	// open the history database or reach the event broker downgrades to a
	// verbose warning and never affects the run itself.
	observers, closeObservers := attachObservers(cfg, dir)
	defer closeObservers()

	// Step 4: Seed the run record.
	info := gitinfo.Describe(dir)
	rec := &model.RunRecord{
		ID:        uuid.NewString(),
		StartedAt: time.Now().UTC(),
		Commit:    info.Commit,
		Branch:    info.Branch,
		Dirty:     info.Dirty,
	}
	if info.Commit != "" {
		VerboseLog("Git: %s on %s (dirty: %t)", shortCommit(info.Commit), info.Branch, info.Dirty)
	}

	// Step 5: Execute. Status lines go to stdout normally; in JSON mode
	// they move to stderr so stdout carries only the run record.
	out := io.Writer(os.Stdout)
	if IsJSONOutput() {
		out = os.Stderr
	}

	p := pipeline.New(runner, tools, out)
	p.Observers = observers
	p.Warnf = VerboseLog

	runErr := p.Run(ctx, rec, phases)

	// Step 6: The JSON record is printed for failed runs too; the exit
	// status still comes from runErr.
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(data))
	}
	return runErr
}

// newPhaseRunner picks the execution backend for phase commands: the host
// toolchain by default, or a Docker-backed runner for hermetic builds.
// The returned close function releases the backend's resources.
func newPhaseRunner(ctx context.Context, cfg *config.Config, opts runOptions) (toolchain.Runner, func(), error) {
	if !opts.hermetic {
		r := toolchain.NewStreamRunner()
		if IsJSONOutput() {
			// Tool output joins the status lines on stderr.
			r.Stdout = os.Stderr
		}
		return r, func() {}, nil
	}

	dockerClient, err := hermetic.NewClient()
	if err != nil {
		return nil, nil, err // NewClient already returns CLIError
	}
	if err := dockerClient.Ping(ctx); err != nil {
		_ = dockerClient.Close()
		return nil, nil, err
	}
	VerboseLog("Connected to Docker daemon")

	image := opts.image
	if image == "" {
		image = cfg.Build.HermeticImage
	}
	if image == "" {
		image = hermetic.DefaultImage
	}
	VerboseLog("Hermetic build image: %s", image)

	r := hermetic.NewRunner(dockerClient, image)
	if IsJSONOutput() {
		r.Stdout = os.Stderr
	}
	return r, func() { _ = dockerClient.Close() }, nil
}

// attachObservers wires up the configured side channels: the local run
// history database, the NATS deploy-event publisher, and the Pushgateway
// metrics recorder. The returned close function flushes and releases all
// of them; it must run before the process exits.
func attachObservers(cfg *config.Config, dir string) ([]pipeline.Observer, func()) {
	var observers []pipeline.Observer
	var closers []func()

	if !cfg.History.Disabled {
		historyPath := cfg.HistoryPath(dir)
		store, err := history.Open(historyPath)
		if err != nil {
			VerboseLog("Run history disabled: %v", err)
		} else {
			observers = append(observers, history.NewRecorder(store))
			closers = append(closers, func() { _ = store.Close() })
			VerboseLog("Recording run history to %s", historyPath)
		}
	}

	if cfg.Events.URL != "" {
		pub, err := events.Connect(cfg.Events.URL, cfg.Events.Subject)
		if err != nil {
			VerboseLog("Event publishing disabled: %v", err)
		} else {
			observers = append(observers, pub)
			closers = append(closers, func() { _ = pub.Close() })
			VerboseLog("Publishing deploy events to %s (subject %q)", cfg.Events.URL, cfg.Events.Subject)
		}
	}

	if cfg.Metrics.PushgatewayURL != "" {
		observers = append(observers, metrics.NewRecorder(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job))
		VerboseLog("Pushing metrics to %s (job %q)", cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)
	}

	return observers, func() {
		for _, c := range closers {
			c()
		}
	}
}

// shortCommit abbreviates a full commit SHA to the conventional 7
// characters for display.
func shortCommit(sha string) string {
	if len(sha) <= 7 {
		return sha
	}
	return sha[:7]
}
