// Package cli: status.go implements the "liftoff status" command.
//
// status shows the most recent pipeline run: its outcome, timing, Git
// metadata, deployment URL, and a per-phase breakdown.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/AaronHausheer/liftoff/internal/history"
	"github.com/AaronHausheer/liftoff/internal/model"
)

// NewStatusCommand creates the "status" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the most recent pipeline run",
		Long: `Show the most recent recorded pipeline run: overall outcome, timing,
Git metadata, deployment URL, and the result of each phase.

Examples:
  liftoff status
  liftoff status --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context())
		},
	}
}

// runStatus is the main logic function for the status command.
func runStatus(ctx context.Context) error {
	store, err := openHistory()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	rec, err := store.Latest(ctx)
	if errors.Is(err, history.ErrNoRuns) {
		fmt.Println("No runs recorded yet.")
		return nil
	}
	if err != nil {
		return err
	}

	printStatusResult(rec)
	return nil
}

// printStatusResult outputs the run in text or JSON format, depending
// on the global --json flag.
func printStatusResult(rec *model.RunRecord) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(data))
		return
	}

	printStatusResultText(rec)
}

// printStatusResultText outputs the run as human-readable text:
//
//	Run a1b2c3d4 succeeded
//	  Started:   2026-08-24 15:04:05
//	  Duration:  1m42s
//	  Branch:    release (dirty)
//	  Commit:    0123abc
//	  URL:       https://movie-api-abc123.vercel.app
//
//	  Phases:
//	    ✓ clean    succeeded  2s
//	    ✓ build    succeeded  1m31s
//	    ✓ deploy   succeeded  9s
func printStatusResultText(rec *model.RunRecord) {
	outcome := styles.Success.Render(rec.Outcome.String())
	if rec.Outcome == model.OutcomeFailed {
		outcome = styles.Failure.Render(rec.Outcome.String())
	}
	fmt.Printf("Run %s %s\n", ShortRunID(rec.ID), outcome)

	fmt.Printf("  Started:   %s\n", rec.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("  Duration:  %s\n", FormatRunDuration(rec.Duration()))

	if rec.Branch != "" {
		branch := rec.Branch
		if rec.Dirty {
			branch += " (dirty)"
		}
		fmt.Printf("  Branch:    %s\n", branch)
	}
	if rec.Commit != "" {
		fmt.Printf("  Commit:    %s\n", shortCommit(rec.Commit))
	}
	if rec.DeployURL != "" {
		fmt.Printf("  URL:       %s\n", styles.URL.Render(rec.DeployURL))
	}

	if len(rec.Phases) > 0 {
		fmt.Println()
		fmt.Println("  Phases:")
		for _, res := range rec.Phases {
			fmt.Printf("    %s %-8s %-10s %s\n",
				phaseMark(res.Status),
				res.Phase.String(),
				res.Status.String(),
				phaseDetail(res),
			)
		}
	}

	if failed, ok := rec.FailedPhase(); ok {
		fmt.Printf("\n%s phase failed with exit status %d.\n",
			failed.String(), failedExitCode(rec, failed))
	}
}

// phaseMark picks the status symbol for a phase row.
func phaseMark(status model.PhaseStatus) string {
	switch status {
	case model.StatusSucceeded:
		return styles.Success.Render("✓")
	case model.StatusFailed:
		return styles.Failure.Render("✗")
	}
	return "-"
}

// phaseDetail renders the trailing column of a phase row: the duration
// for executed phases, nothing for skipped ones.
func phaseDetail(res model.PhaseResult) string {
	if res.Status == model.StatusSkipped {
		return ""
	}
	if res.Status == model.StatusFailed {
		return fmt.Sprintf("exit %d", res.ExitCode)
	}
	return FormatRunDuration(res.Duration())
}

// failedExitCode looks up the recorded exit code of the failing phase.
func failedExitCode(rec *model.RunRecord, phase model.Phase) int {
	for _, res := range rec.Phases {
		if res.Phase == phase {
			return res.ExitCode
		}
	}
	return -1
}
