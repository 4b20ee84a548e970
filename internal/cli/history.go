// Package cli: history.go implements the "liftoff history" command.
//
// The history command lists recorded pipeline runs from the local run
// history database, newest first, as a text table or JSON array
// depending on the --json flag.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/AaronHausheer/liftoff/internal/config"
	"github.com/AaronHausheer/liftoff/internal/history"
	"github.com/AaronHausheer/liftoff/internal/model"
)

// historyFlags holds the flag values for the history command.
// These are bound to cobra flags in NewHistoryCommand.
type historyFlags struct {
	limit  int  // --limit: maximum number of runs to show
	failed bool // --failed: show failed runs only
}

// NewHistoryCommand creates the "history" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewHistoryCommand() *cobra.Command {
	flags := &historyFlags{}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded pipeline runs",
		Long: `List recent pipeline runs from the local run history database,
newest first.

Each run is shown with its id, start time, outcome, duration, branch,
and captured deployment URL.

Examples:
  liftoff history
  liftoff history --limit 25
  liftoff history --failed --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().IntVar(&flags.limit, "limit", 10, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&flags.failed, "failed", false, "Show failed runs only")

	return cmd
}

// runHistory is the main logic function for the history command.
func runHistory(ctx context.Context, flags *historyFlags) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	runs, err := store.Recent(ctx, flags.limit, flags.failed)
	if err != nil {
		return err
	}
	VerboseLog("Loaded %d run(s)", len(runs))

	printHistoryResult(runs)
	return nil
}

// openHistory opens the run history database for the working
// directory's configuration. Shared with the status command.
func openHistory() (*history.Store, error) {
	dir, err := os.Getwd()
	if err != nil {
		return nil, model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return nil, err
	}
	if cfg.History.Disabled {
		return nil, model.NewCLIError(model.ExitGeneralError,
			"run history is disabled in "+config.FileName)
	}
	return history.Open(cfg.HistoryPath(dir))
}

// printHistoryResult outputs the run list in text or JSON format,
// depending on the global --json flag.
func printHistoryResult(runs []model.RunRecord) {
	if IsJSONOutput() {
		printHistoryResultJSON(runs)
	} else {
		printHistoryResultText(runs)
	}
}

// printHistoryResultJSON outputs the run list as structured JSON.
// The top-level key is "runs" containing an array of run records.
func printHistoryResultJSON(runs []model.RunRecord) {
	type resultJSON struct {
		Runs []model.RunRecord `json:"runs"`
	}

	result := resultJSON{Runs: runs}
	if result.Runs == nil {
		// Use an empty slice instead of nil to ensure JSON output shows
		// [] instead of null when no runs are recorded.
		result.Runs = []model.RunRecord{}
	}

	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// printHistoryResultText outputs the runs as a human-readable text table
// with aligned columns.
//
// The table format is:
//
//	ID        STARTED              OUTCOME    DURATION  BRANCH        URL
//	a1b2c3d4  2026-08-24 15:04:05  succeeded  1m42s     release       https://movie-api.vercel.app
func printHistoryResultText(runs []model.RunRecord) {
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return
	}

	// Print header row.
	fmt.Printf("%-9s %-20s %-10s %-9s %-14s %s\n",
		"ID", "STARTED", "OUTCOME", "DURATION", "BRANCH", "URL")

	for _, rec := range runs {
		// Print one row per run with fixed-width columns.
		fmt.Printf("%-9s %-20s %-10s %-9s %-14s %s\n",
			ShortRunID(rec.ID),
			rec.StartedAt.Local().Format("2006-01-02 15:04:05"),
			rec.Outcome.String(),
			FormatRunDuration(rec.Duration()),
			orDash(rec.Branch),
			orDash(rec.DeployURL),
		)
	}
}

// ShortRunID abbreviates a run UUID to its first 8 characters for
// table display.
//
// This function is exported for testing purposes (tested in history_test.go).
func ShortRunID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}

// FormatRunDuration renders a run duration for table display, rounded
// to whole seconds above one second. Returns "-" for unfinished runs.
//
// This function is exported for testing purposes (tested in history_test.go).
//
// Example:
//
//	102 * time.Second → "1m42s"
//	0                 → "-"
func FormatRunDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	return d.Round(time.Second).String()
}

// orDash substitutes "-" for empty table cells.
func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
