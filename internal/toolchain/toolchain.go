// Package toolchain builds and executes the external tool commands
// behind each pipeline phase: cargo for clean and build, the Vercel CLI
// for deploy.
//
// Exit status handling is the package's core contract: when a tool
// exits non-zero, Run returns a PhaseError carrying that exact status
// so the process can terminate with it verbatim. A tool that cannot be
// started at all (not installed, not on PATH) is a different failure
// and maps to ExitToolNotFound.
package toolchain

import (
	"strings"

	"github.com/AaronHausheer/liftoff/internal/model"
)

// Invocation describes a single external tool command.
type Invocation struct {
	// Phase is the pipeline phase this command implements.
	Phase model.Phase

	// Binary is the executable name or path.
	Binary string

	// Args are the command arguments, excluding the binary itself.
	Args []string

	// Dir is the working directory. Empty means the current directory.
	Dir string

	// Env holds extra KEY=VALUE entries appended to the inherited
	// environment.
	Env []string

	// Capture tees the tool's stdout into the Result while still
	// streaming it to the operator.
	Capture bool
}

// CommandLine renders the invocation as the operator would type it.
func (i Invocation) CommandLine() string {
	return strings.Join(append([]string{i.Binary}, i.Args...), " ")
}

// Toolchain resolves phases to tool invocations for one project.
type Toolchain struct {
	// CargoBin and VercelBin are the tool binaries, bare names or paths.
	CargoBin  string
	VercelBin string

	// BuildArgs are appended to `cargo build --release`.
	BuildArgs []string

	// Dir is the project directory all phases run in.
	Dir string
}

// Invocation returns the external command for the given phase.
//
// The deploy invocation captures stdout: the Vercel CLI prints the
// production URL there, and the pipeline extracts it for the completion
// line and the run record.
func (t Toolchain) Invocation(phase model.Phase) Invocation {
	switch phase {
	case model.PhaseClean:
		return Invocation{
			Phase:  phase,
			Binary: t.CargoBin,
			Args:   []string{"clean"},
			Dir:    t.Dir,
		}
	case model.PhaseBuild:
		args := []string{"build", "--release"}
		args = append(args, t.BuildArgs...)
		return Invocation{
			Phase:  phase,
			Binary: t.CargoBin,
			Args:   args,
			Dir:    t.Dir,
		}
	case model.PhaseDeploy:
		return Invocation{
			Phase:   phase,
			Binary:  t.VercelBin,
			Args:    []string{"deploy", "--prod", "--force", "--yes"},
			Dir:     t.Dir,
			Capture: true,
		}
	}
	return Invocation{Phase: phase}
}

// ExtractDeployURL scans captured deploy output for the production URL.
// The Vercel CLI prints it as the last bare https:// token on stdout,
// so lines are scanned from the end.
func ExtractDeployURL(stdout string) string {
	lines := strings.Split(stdout, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		for _, field := range strings.Fields(lines[i]) {
			if strings.HasPrefix(field, "https://") {
				return field
			}
		}
	}
	return ""
}
