// Package cli: verify.go implements the "liftoff verify" command.
//
// verify smoke-tests a deployment by probing its movies endpoint until
// it answers with a healthy JSON payload. Freshly promoted deployments
// can lag behind the CLI's success message, so probes retry with the
// configured backoff before giving up.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AaronHausheer/liftoff/internal/config"
	"github.com/AaronHausheer/liftoff/internal/history"
	"github.com/AaronHausheer/liftoff/internal/model"
	"github.com/AaronHausheer/liftoff/internal/verify"
)

// verifyFlags holds the flag values for the verify command.
// These are bound to cobra flags in NewVerifyCommand.
type verifyFlags struct {
	url string // --url: deployment base URL to probe
}

// NewVerifyCommand creates the "verify" cobra command.
// It is called from NewRootCommand to register as a subcommand.
func NewVerifyCommand() *cobra.Command {
	flags := &verifyFlags{}

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Smoke-test the deployed API endpoint",
		Long: `Probe the deployment's movies endpoint until it responds with
HTTP 200 and a JSON movies array, retrying with the configured backoff.

Without --url, the most recently recorded deployment URL from the run
history is probed.

Examples:
  liftoff verify
  liftoff verify --url https://movie-api-abc123.vercel.app`,

		Args: cobra.NoArgs,

		RunE: func(cmd *cobra.Command, args []string) error {
			return runVerify(cmd.Context(), flags)
		},
	}

	// Register command-specific flags.
	cmd.Flags().StringVar(&flags.url, "url", "", "Deployment URL to check (default: most recent recorded deploy)")

	return cmd
}

// runVerify is the main logic function for the verify command.
func runVerify(ctx context.Context, flags *verifyFlags) error {
	dir, err := os.Getwd()
	if err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to get current directory", err)
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return err
	}

	baseURL := flags.url
	if baseURL == "" {
		baseURL, err = latestDeployURL(ctx, cfg, dir)
		if err != nil {
			return err
		}
		VerboseLog("Using recorded deployment URL: %s", baseURL)
	}

	policy, err := cfg.VerifyPolicy()
	if err != nil {
		return err
	}

	checker := verify.NewChecker(policy, cfg.Verify.Path)
	VerboseLog("Probing %s%s (up to %d attempts)", strings.TrimSuffix(baseURL, "/"), cfg.Verify.Path, policy.MaxRetries+1)

	report, err := checker.Check(ctx, baseURL)
	if err != nil {
		return err
	}

	printVerifyResult(report)
	return nil
}

// latestDeployURL resolves the most recent captured deployment URL from
// the run history database.
func latestDeployURL(ctx context.Context, cfg *config.Config, dir string) (string, error) {
	if cfg.History.Disabled {
		return "", model.NewCLIError(model.ExitGeneralError,
			"run history is disabled; pass --url")
	}

	store, err := history.Open(cfg.HistoryPath(dir))
	if err != nil {
		return "", err
	}
	defer func() { _ = store.Close() }()

	url, err := store.LatestDeployURL(ctx)
	if errors.Is(err, history.ErrNoRuns) {
		return "", model.NewCLIError(model.ExitGeneralError,
			"no recorded deployment URL; deploy first or pass --url")
	}
	if err != nil {
		return "", err
	}
	return url, nil
}

// printVerifyResult outputs the verification report in text or JSON
// format, depending on the global --json flag.
func printVerifyResult(report *verify.Report) {
	if IsJSONOutput() {
		data, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(data))
		return
	}

	fmt.Printf("%s %s\n", styles.Success.Render("✓"), styles.URL.Render(report.URL))
	fmt.Printf("  Status:    %d\n", report.StatusCode)
	fmt.Printf("  Movies:    %d of %d\n", report.MovieCount, report.Total)
	fmt.Printf("  Attempts:  %d\n", report.Attempts)
}
