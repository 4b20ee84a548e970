// Package cli: build.go implements the "liftoff build" command.
//
// By default the build phase runs "cargo build --release" with the host
// toolchain. With --hermetic, the same command runs inside a Rust build
// container with the project bind-mounted, so the host needs Docker but
// no Rust installation.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/AaronHausheer/liftoff/internal/hermetic"
	"github.com/AaronHausheer/liftoff/internal/model"
)

// buildFlags holds the flag values for the build command.
// These are bound to cobra flags in NewBuildCommand.
type buildFlags struct {
	hermetic bool   // --hermetic: compile inside a container
	image    string // --image: override the build container image
}

// NewBuildCommand creates the "build" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewBuildCommand() *cobra.Command {
	flags := &buildFlags{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Compile the release binary",
		Long: `Run the build phase alone: invoke "cargo build --release" in the
project directory.

With --hermetic the compiler runs inside a container instead of the host
toolchain. The project directory is bind-mounted into the container and a
named volume keeps the Cargo registry warm across builds, so repeat
hermetic builds skip most dependency downloads.

Examples:
  liftoff build
  liftoff build --hermetic
  liftoff build --hermetic --image rust:1.80-bookworm`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runPipeline(cmd.Context(), []model.Phase{model.PhaseBuild}, runOptions{
				hermetic: flags.hermetic,
				image:    flags.image,
			})
		},
	}

	// Register command-specific flags.
	cmd.Flags().BoolVar(&flags.hermetic, "hermetic", false, "Compile inside a container instead of the host toolchain")
	cmd.Flags().StringVar(&flags.image, "image", "", "Build container image (default: "+hermetic.DefaultImage+")")

	return cmd
}
