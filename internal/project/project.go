// Package project locates and describes a deployable project: a Rust
// crate (Cargo.toml) whose serverless functions are deployed through
// Vercel (vercel.json).
//
// vercel.json officially supports JSONC (JSON with Comments), so this
// package uses github.com/tidwall/jsonc to strip comments before
// parsing with the standard encoding/json library.
package project

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/AaronHausheer/liftoff/internal/model"
)

const (
	// ManifestName is the crate manifest that marks a project root.
	ManifestName = "Cargo.toml"

	// VercelConfigName is the deployment client's configuration file.
	VercelConfigName = "vercel.json"
)

// Environment variables the deployed API functions read to reach their
// database. doctor checks these before a deploy can succeed.
const (
	EnvSupabaseURL = "SUPABASE_URL"
	EnvSupabaseKey = "SUPABASE_ANON_KEY"
)

// CrateInfo holds the [package] fields of Cargo.toml that appear in
// status output.
type CrateInfo struct {
	Name    string `json:"name" toml:"name"`
	Version string `json:"version" toml:"version"`
}

// Project describes a located deployable project.
type Project struct {
	// Dir is the project root, the directory containing Cargo.toml.
	Dir string `json:"dir"`

	// ManifestPath is the absolute path to Cargo.toml.
	ManifestPath string `json:"manifestPath"`

	// Crate is the parsed [package] section of the manifest.
	Crate CrateInfo `json:"crate"`
}

// manifest mirrors the subset of Cargo.toml this tool reads.
type manifest struct {
	Package CrateInfo `toml:"package"`
}

// Find walks from startDir upward to the filesystem root looking for
// Cargo.toml, mirroring cargo's own project discovery. This lets the
// tool run from any subdirectory of the project.
//
// Returns a CLIError with ExitProjectNotFound when no manifest exists
// in startDir or any ancestor.
func Find(startDir string) (*Project, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", startDir, err)
	}

	for {
		manifestPath := filepath.Join(dir, ManifestName)
		if _, err := os.Stat(manifestPath); err == nil {
			crate, err := parseManifest(manifestPath)
			if err != nil {
				return nil, err
			}
			return &Project{Dir: dir, ManifestPath: manifestPath, Crate: crate}, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached the filesystem root without finding a manifest.
			return nil, model.NewCLIError(
				model.ExitProjectNotFound,
				fmt.Sprintf("no %s found in %s or any parent directory", ManifestName, startDir),
			)
		}
		dir = parent
	}
}

// parseManifest reads the [package] section of Cargo.toml.
//
// toml.Unmarshal ignores the many manifest sections this tool does not
// care about ([dependencies], [profile], workspace tables), so only a
// syntactically broken manifest fails here.
func parseManifest(path string) (CrateInfo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return CrateInfo{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var m manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return CrateInfo{}, model.WrapCLIError(
			model.ExitConfigInvalid,
			fmt.Sprintf("invalid %s at %s", ManifestName, path),
			err,
		)
	}

	return m.Package, nil
}

// MissingRuntimeEnv returns the names of required deployment
// environment variables that are not set.
func MissingRuntimeEnv() []string {
	var missing []string
	for _, key := range []string{EnvSupabaseURL, EnvSupabaseKey} {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	return missing
}
