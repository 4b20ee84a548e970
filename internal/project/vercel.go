package project

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tidwall/jsonc"

	"github.com/AaronHausheer/liftoff/internal/model"
)

// VercelConfig represents the fields of vercel.json this tool inspects.
// Other fields are silently ignored during parsing.
type VercelConfig struct {
	// Name is the optional project name shown in the dashboard.
	Name string `json:"name,omitempty"`

	// Regions pins the deployment to specific edge regions.
	Regions []string `json:"regions,omitempty"`

	// Functions maps source globs (e.g. "api/**/*.rs") to their
	// runtime configuration.
	Functions map[string]FunctionConfig `json:"functions,omitempty"`

	// Rewrites routes incoming paths to function entrypoints.
	Rewrites []Rewrite `json:"rewrites,omitempty"`
}

// FunctionConfig holds per-function deployment settings.
type FunctionConfig struct {
	// Runtime names the builder, e.g. "vercel-rust@4.0.9".
	Runtime string `json:"runtime,omitempty"`

	// MaxDuration caps function execution time in seconds.
	MaxDuration int `json:"maxDuration,omitempty"`
}

// Rewrite maps an incoming request path to a destination.
type Rewrite struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
}

// LoadVercelConfig reads the project's vercel.json, strips JSONC
// comments, and parses it. Returns a CLIError with ExitConfigInvalid
// when the file exists but cannot be parsed, and a plain wrapped error
// when it is missing (callers decide whether absence matters).
func (p *Project) LoadVercelConfig() (*VercelConfig, error) {
	path := filepath.Join(p.Dir, VercelConfigName)

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%s not found in %s: %w", VercelConfigName, p.Dir, err)
		}
		return nil, fmt.Errorf("failed to read %s: %w", VercelConfigName, err)
	}

	// Strip JSONC comments (// and /* */) and trailing commas before
	// parsing. Deployment configs in the wild frequently carry comments.
	cleanJSON := jsonc.ToJSON(data)

	var cfg VercelConfig
	if err := json.Unmarshal(cleanJSON, &cfg); err != nil {
		return nil, model.WrapCLIError(
			model.ExitConfigInvalid,
			fmt.Sprintf("invalid %s at %s", VercelConfigName, path),
			err,
		)
	}

	return &cfg, nil
}

// HasVercelConfig reports whether vercel.json exists in the project root.
func (p *Project) HasVercelConfig() bool {
	_, err := os.Stat(filepath.Join(p.Dir, VercelConfigName))
	return err == nil
}
