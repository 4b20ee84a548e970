// Package cli: deploy.go implements the "liftoff deploy" command.
//
// Deploying from a dirty working tree is usually a mistake: the deployed
// artifact will not match any commit. The command therefore asks for
// confirmation when uncommitted changes exist, unless --force is given.
// The full "liftoff run" never prompts; it keeps the non-interactive
// contract CI depends on.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AaronHausheer/liftoff/internal/gitinfo"
	"github.com/AaronHausheer/liftoff/internal/model"
)

// deployFlags holds the flag values for the deploy command.
// These are bound to cobra flags in NewDeployCommand.
type deployFlags struct {
	force bool // --force: skip the dirty working tree confirmation
}

// NewDeployCommand creates the "deploy" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewDeployCommand() *cobra.Command {
	flags := &deployFlags{}

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy the project to production",
		Long: `Run the deploy phase alone: invoke
"vercel deploy --prod --force --yes" in the project directory.

When the working tree has uncommitted changes, the command asks for
confirmation first; declining exits with the user-cancelled status.
Pass --force to skip the confirmation. A full "liftoff run" never
prompts.

Examples:
  liftoff deploy
  liftoff deploy --force`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			if !flags.force {
				if err := confirmDirtyDeploy(); err != nil {
					return err
				}
			}
			return runPipeline(cmd.Context(), []model.Phase{model.PhaseDeploy}, runOptions{})
		},
	}

	// Register command-specific flags.
	cmd.Flags().BoolVar(&flags.force, "force", false, "Deploy without confirmation even with uncommitted changes")

	return cmd
}

// confirmDirtyDeploy checks the working tree and prompts before deploying
// uncommitted changes. A clean tree (or no repository at all) needs no
// confirmation.
func confirmDirtyDeploy() error {
	dir, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	info := gitinfo.Describe(dir)
	if !info.Dirty {
		return nil
	}

	confirmed, err := promptDirtyDeploy(info)
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to read confirmation", err)
	}
	if !confirmed {
		return model.NewCLIError(model.ExitUserCancelled, "deploy cancelled")
	}
	return nil
}

// promptDirtyDeploy asks the user to confirm deploying a dirty working
// tree. It reads a single line from stdin and checks for "y" or "yes".
// Returns true if the user confirmed, false otherwise.
func promptDirtyDeploy(info gitinfo.Info) (bool, error) {
	fmt.Printf("About to deploy branch %q to production with uncommitted changes.\n", info.Branch)
	fmt.Print("\nContinue? [y/N] ")

	// Read a line from stdin. bufio.Scanner handles different line endings
	// across platforms (LF on Unix, CRLF on Windows).
	scanner := bufio.NewScanner(os.Stdin)
	if scanner.Scan() {
		answer := strings.TrimSpace(strings.ToLower(scanner.Text()))
		return answer == "y" || answer == "yes", nil
	}

	// If stdin is closed or an error occurred, treat it as "no".
	if err := scanner.Err(); err != nil {
		return false, err
	}

	return false, nil
}
