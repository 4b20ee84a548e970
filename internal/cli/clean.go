// Package cli: clean.go implements the "liftoff clean" command.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/AaronHausheer/liftoff/internal/model"
)

// NewCleanCommand creates the "clean" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewCleanCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clean",
		Short: "Remove the Cargo build cache",
		Long: `Run the clean phase alone: invoke "cargo clean" in the project
directory, removing the target/ build cache.

The command carries the same contract as the clean phase inside a full
run: one announcement line, and the tool's exit status propagated
verbatim on failure.

Examples:
  liftoff clean
  liftoff clean --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), []model.Phase{model.PhaseClean}, runOptions{})
		},
	}
}
