// Package cli: doctor.go implements the "liftoff doctor" command.
//
// doctor diagnoses the project and toolchain without changing anything:
// phase binaries on PATH, project layout, runtime environment variables,
// and Docker daemon reachability for hermetic builds. Required checks
// gate the exit status; optional checks are informational.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AaronHausheer/liftoff/internal/config"
	"github.com/AaronHausheer/liftoff/internal/hermetic"
	"github.com/AaronHausheer/liftoff/internal/model"
	"github.com/AaronHausheer/liftoff/internal/project"
)

// checkResult is one doctor diagnostic with its outcome.
type checkResult struct {
	// Name identifies the check in output.
	Name string `json:"name"`

	// OK reports whether the check passed.
	OK bool `json:"ok"`

	// Detail is a short human-readable finding: a resolved path, crate
	// version, or error text.
	Detail string `json:"detail,omitempty"`

	// Required marks checks that gate the exit status. Optional checks
	// cover features (hermetic builds, Git metadata) rather than the
	// core pipeline.
	Required bool `json:"required"`
}

// NewDoctorCommand creates the "doctor" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewDoctorCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the project, toolchain, and environment",
		Long: `Check everything a successful pipeline run needs, without changing
anything:

  - cargo and vercel binaries on PATH
  - Cargo.toml manifest and vercel.json deployment configuration
  - SUPABASE_URL / SUPABASE_ANON_KEY runtime variables
  - git binary, api/ functions directory, Docker daemon (all optional)

Exits 1 when any required check fails, 0 otherwise.

Examples:
  liftoff doctor
  liftoff doctor --json`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(cmd.Context())
		},
	}
}

// runDoctor is the main logic function for the doctor command.
func runDoctor(ctx context.Context) error {
	dir, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	checks := runChecks(ctx, dir)
	printDoctorResult(checks)

	if failed := requiredFailures(checks); failed > 0 {
		return model.NewCLIError(model.ExitGeneralError,
			fmt.Sprintf("%d required check(s) failed", failed))
	}
	return nil
}

// runChecks performs every diagnostic and returns the results in
// display order.
func runChecks(ctx context.Context, dir string) []checkResult {
	var checks []checkResult

	// Configuration first: an unparseable liftoff.yaml would fail every
	// other command, and later checks use the configured tool names.
	cfg, err := config.Load(dir)
	if err != nil {
		checks = append(checks, checkResult{Name: config.FileName, OK: false, Detail: errorDetail(err), Required: true})
		cfg = config.Default()
	} else {
		checks = append(checks, checkResult{Name: config.FileName, OK: true, Detail: configDetail(dir), Required: true})
	}

	checks = append(checks,
		binaryCheck(cfg.Tools.Cargo, true),
		binaryCheck(cfg.Tools.Vercel, true),
		binaryCheck("git", false),
	)

	checks = append(checks, projectChecks(dir)...)
	checks = append(checks, runtimeEnvCheck())
	checks = append(checks, dockerCheck(ctx))

	return checks
}

// binaryCheck resolves a tool on PATH.
func binaryCheck(bin string, required bool) checkResult {
	path, err := exec.LookPath(bin)
	if err != nil {
		return checkResult{Name: bin, OK: false, Detail: "not found on PATH", Required: required}
	}
	return checkResult{Name: bin, OK: true, Detail: path, Required: required}
}

// projectChecks validates the project layout: the crate manifest, the
// deployment configuration, and the serverless functions directory.
func projectChecks(dir string) []checkResult {
	var checks []checkResult

	proj, err := project.Find(dir)
	if err != nil {
		checks = append(checks, checkResult{Name: project.ManifestName, OK: false,
			Detail: "not found here or in any parent directory", Required: true})
		// Probe the remaining layout from the working directory instead.
		proj = &project.Project{Dir: dir}
	} else {
		checks = append(checks, checkResult{Name: project.ManifestName, OK: true,
			Detail: fmt.Sprintf("%s %s", proj.Crate.Name, proj.Crate.Version), Required: true})
	}

	// A missing vercel.json is fine (the deploy client falls back to
	// platform defaults); a present but unparseable one will break the
	// deploy phase and fails the check.
	if !proj.HasVercelConfig() {
		checks = append(checks, checkResult{Name: project.VercelConfigName, OK: true,
			Detail: "not found (deploy uses platform defaults)", Required: true})
	} else if vc, vcErr := proj.LoadVercelConfig(); vcErr != nil {
		checks = append(checks, checkResult{Name: project.VercelConfigName, OK: false,
			Detail: errorDetail(vcErr), Required: true})
	} else {
		checks = append(checks, checkResult{Name: project.VercelConfigName, OK: true,
			Detail: vercelDetail(vc), Required: true})
	}

	if fi, statErr := os.Stat(filepath.Join(proj.Dir, "api")); statErr == nil && fi.IsDir() {
		checks = append(checks, checkResult{Name: "api/", OK: true,
			Detail: "functions directory present", Required: false})
	} else {
		checks = append(checks, checkResult{Name: "api/", OK: false,
			Detail: "no functions directory", Required: false})
	}

	return checks
}

// vercelDetail summarizes a parsed vercel.json for display.
func vercelDetail(vc *project.VercelConfig) string {
	if len(vc.Functions) == 0 {
		return "valid"
	}
	return fmt.Sprintf("%d function(s) configured", len(vc.Functions))
}

// runtimeEnvCheck verifies the variables the deployed functions read.
func runtimeEnvCheck() checkResult {
	if missing := project.MissingRuntimeEnv(); len(missing) > 0 {
		return checkResult{Name: "runtime env", OK: false,
			Detail: "missing " + strings.Join(missing, ", "), Required: true}
	}
	return checkResult{Name: "runtime env", OK: true,
		Detail: project.EnvSupabaseURL + " and " + project.EnvSupabaseKey + " set", Required: true}
}

// dockerCheck reports daemon reachability. Docker only gates hermetic
// builds, so an unreachable daemon never fails doctor by itself.
func dockerCheck(ctx context.Context) checkResult {
	c, err := hermetic.NewClient()
	if err != nil {
		return checkResult{Name: "docker", OK: false, Detail: errorDetail(err), Required: false}
	}
	defer func() { _ = c.Close() }()

	if err := c.Ping(ctx); err != nil {
		return checkResult{Name: "docker", OK: false, Detail: "daemon not responding", Required: false}
	}

	// Build containers are removed after every run; anything still
	// carrying the management label is debris worth flagging.
	detail := "daemon reachable"
	if leftovers, listErr := hermetic.ListBuildContainers(ctx, c); listErr == nil && len(leftovers) > 0 {
		detail = fmt.Sprintf("daemon reachable, %d leftover build container(s)", len(leftovers))
	}
	return checkResult{Name: "docker", OK: true, Detail: detail, Required: false}
}

// errorDetail shortens CLIError values to their message for table
// display; other errors keep their full text.
func errorDetail(err error) string {
	var cliErr *model.CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Message
	}
	return err.Error()
}

// configDetail describes where the configuration came from.
func configDetail(dir string) string {
	if _, err := os.Stat(filepath.Join(dir, config.FileName)); err != nil {
		return "not found (using defaults)"
	}
	return "loaded"
}

// requiredFailures counts failing checks that gate the exit status.
func requiredFailures(checks []checkResult) int {
	n := 0
	for _, c := range checks {
		if c.Required && !c.OK {
			n++
		}
	}
	return n
}

// printDoctorResult outputs the diagnostics in text or JSON format,
// depending on the global --json flag.
func printDoctorResult(checks []checkResult) {
	if IsJSONOutput() {
		printDoctorResultJSON(checks)
	} else {
		printDoctorResultText(checks)
	}
}

// printDoctorResultJSON outputs the checks as structured JSON.
func printDoctorResultJSON(checks []checkResult) {
	type resultJSON struct {
		Checks []checkResult `json:"checks"`
		OK     bool          `json:"ok"`
	}

	result := resultJSON{Checks: checks, OK: requiredFailures(checks) == 0}
	data, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(data))
}

// printDoctorResultText outputs the checks as an aligned table:
//
//	✓ liftoff.yaml     not found (using defaults)
//	✓ cargo            /usr/bin/cargo
//	✗ vercel           not found on PATH
func printDoctorResultText(checks []checkResult) {
	for _, c := range checks {
		mark := styles.Success.Render("✓")
		if !c.OK {
			mark = styles.Failure.Render("✗")
		}
		name := c.Name
		if !c.Required {
			name += " (optional)"
		}
		fmt.Printf("%s %-24s %s\n", mark, name, c.Detail)
	}

	// Failures are summarized by the error the command returns; only
	// the all-clear needs saying here.
	if requiredFailures(checks) == 0 {
		fmt.Println("\nAll required checks passed.")
	}
}
