package hermetic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/AaronHausheer/liftoff/internal/model"
	"github.com/AaronHausheer/liftoff/internal/toolchain"
)

// TestNewRunner_DefaultImage falls back to the stock rust image when no
// image is configured.
func TestNewRunner_DefaultImage(t *testing.T) {
	r := NewRunner(nil, "")
	assert.Equal(t, DefaultImage, r.image)

	r = NewRunner(nil, "rust:1.79-bookworm")
	assert.Equal(t, "rust:1.79-bookworm", r.image)
}

// TestContainerConfig assembles the build command, workdir, cargo home,
// and identifying labels.
func TestContainerConfig(t *testing.T) {
	inv := toolchain.Invocation{
		Phase:  model.PhaseBuild,
		Binary: "cargo",
		Args:   []string{"build", "--release", "--locked"},
		Env:    []string{"RUSTFLAGS=-Dwarnings"},
	}

	cfg := containerConfig(inv, "rust:1-bookworm")

	assert.Equal(t, "rust:1-bookworm", cfg.Image)
	assert.Equal(t, []string{"cargo", "build", "--release", "--locked"}, []string(cfg.Cmd))
	assert.Equal(t, "/src", cfg.WorkingDir)
	assert.Contains(t, cfg.Env, "CARGO_HOME=/cargo")
	assert.Contains(t, cfg.Env, "RUSTFLAGS=-Dwarnings")
	assert.Equal(t, ManagedByValue, cfg.Labels[LabelManagedBy])
	assert.Equal(t, "build", cfg.Labels[LabelPhase])
}

// TestHostConfig binds the project directory and the shared registry
// volume.
func TestHostConfig(t *testing.T) {
	cfg := hostConfig("/work/movie-api")

	assert.Equal(t, []string{
		"/work/movie-api:/src",
		"liftoff-cargo-registry:/cargo",
	}, cfg.Binds)
}
