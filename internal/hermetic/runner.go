package hermetic

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/google/uuid"

	"github.com/AaronHausheer/liftoff/internal/model"
	"github.com/AaronHausheer/liftoff/internal/toolchain"
)

// DefaultImage is the build container image when none is configured.
// The Debian-based rust image matches what the Vercel build environment
// links against.
const DefaultImage = "rust:1-bookworm"

const (
	// registryVolume caches the cargo registry across hermetic builds.
	// Without it every build re-downloads the whole dependency tree.
	registryVolume = "liftoff-cargo-registry"

	srcMount  = "/src"
	cargoHome = "/cargo"
)

// Labels tag build containers so stale ones are identifiable with
// `docker ps --filter label=liftoff.managed-by=liftoff`.
const (
	LabelManagedBy = "liftoff.managed-by"
	LabelPhase     = "liftoff.phase"
	ManagedByValue = "liftoff"
)

// Runner executes tool invocations inside disposable containers. It
// satisfies the same runner contract as the host-process runner, so the
// pipeline treats hermetic and host builds identically: announcements,
// observers, and the verbatim exit-status rule all apply unchanged.
type Runner struct {
	client *Client
	image  string

	// Stdout and Stderr receive the containerized tool's output.
	Stdout io.Writer
	Stderr io.Writer
}

// ensure Runner satisfies the pipeline's runner contract.
var _ toolchain.Runner = (*Runner)(nil)

// NewRunner returns a Runner using the given image (empty selects
// DefaultImage), attached to the process's standard streams.
func NewRunner(c *Client, img string) *Runner {
	if img == "" {
		img = DefaultImage
	}
	return &Runner{client: c, image: img, Stdout: os.Stdout, Stderr: os.Stderr}
}

// Run executes the invocation in a fresh container and maps its exit
// status exactly like the host runner: zero is success, non-zero
// becomes a PhaseError carrying the tool's own status.
func (r *Runner) Run(ctx context.Context, inv toolchain.Invocation) (toolchain.Result, error) {
	projectDir, err := filepath.Abs(inv.Dir)
	if err != nil {
		return toolchain.Result{ExitCode: -1}, fmt.Errorf("resolve project directory: %w", err)
	}

	id, err := r.createContainer(ctx, inv, projectDir)
	if err != nil {
		return toolchain.Result{ExitCode: -1}, err
	}
	defer func() {
		// Background context: removal must happen even when ctx is
		// already cancelled.
		_ = r.client.inner.ContainerRemove(context.Background(), id, container.RemoveOptions{Force: true})
	}()

	if err := r.client.inner.ContainerStart(ctx, id, container.StartOptions{}); err != nil {
		return toolchain.Result{ExitCode: -1}, fmt.Errorf("start build container: %w", err)
	}

	var captured strings.Builder
	stdout := r.Stdout
	if inv.Capture {
		stdout = io.MultiWriter(r.Stdout, &captured)
	}

	logsDone, err := r.streamLogs(ctx, id, stdout)
	if err != nil {
		return toolchain.Result{ExitCode: -1}, err
	}

	status, err := r.waitForExit(ctx, id)
	if err != nil {
		return toolchain.Result{ExitCode: -1}, err
	}
	<-logsDone

	exitCode := int(status.StatusCode)
	if exitCode != 0 {
		return toolchain.Result{ExitCode: exitCode, Stdout: captured.String()},
			model.NewPhaseError(inv.Phase, exitCode, nil)
	}
	return toolchain.Result{ExitCode: 0, Stdout: captured.String()}, nil
}

// containerConfig assembles the container definition for an invocation.
func containerConfig(inv toolchain.Invocation, img string) *container.Config {
	return &container.Config{
		Image:      img,
		Cmd:        append([]string{inv.Binary}, inv.Args...),
		WorkingDir: srcMount,
		Env:        append([]string{"CARGO_HOME=" + cargoHome}, inv.Env...),
		Labels: map[string]string{
			LabelManagedBy: ManagedByValue,
			LabelPhase:     inv.Phase.String(),
		},
	}
}

// hostConfig mounts the project at /src and the shared registry volume
// at CARGO_HOME.
func hostConfig(projectDir string) *container.HostConfig {
	return &container.HostConfig{
		Binds: []string{
			projectDir + ":" + srcMount,
			registryVolume + ":" + cargoHome,
		},
	}
}

// createContainer creates the build container, pulling the image first
// if the daemon does not have it yet.
func (r *Runner) createContainer(ctx context.Context, inv toolchain.Invocation, projectDir string) (string, error) {
	cfg := containerConfig(inv, r.image)
	hostCfg := hostConfig(projectDir)
	name := "liftoff-build-" + uuid.NewString()[:8]

	resp, err := r.client.inner.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err == nil {
		return resp.ID, nil
	}
	if !client.IsErrNotFound(err) {
		return "", fmt.Errorf("create build container: %w", err)
	}

	if err := r.pullImage(ctx); err != nil {
		return "", err
	}

	resp, err = r.client.inner.ContainerCreate(ctx, cfg, hostCfg, nil, nil, name)
	if err != nil {
		return "", fmt.Errorf("create build container: %w", err)
	}
	return resp.ID, nil
}

func (r *Runner) pullImage(ctx context.Context) error {
	fmt.Fprintf(r.Stderr, "Pulling build image %s...\n", r.image)

	reader, err := r.client.inner.ImagePull(ctx, r.image, image.PullOptions{})
	if err != nil {
		return fmt.Errorf("pull image %s: %w", r.image, err)
	}
	defer reader.Close()

	// The pull only completes once its progress stream is consumed.
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return fmt.Errorf("consume pull output: %w", err)
	}
	return nil
}

// streamLogs follows the container's output, demultiplexing the Docker
// log stream onto the runner's stdout/stderr. The returned channel
// closes when the stream ends.
func (r *Runner) streamLogs(ctx context.Context, id string, stdout io.Writer) (<-chan struct{}, error) {
	logs, err := r.client.inner.ContainerLogs(ctx, id, container.LogsOptions{
		ShowStdout: true,
		ShowStderr: true,
		Follow:     true,
	})
	if err != nil {
		return nil, fmt.Errorf("attach to build logs: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer logs.Close()
		_, _ = stdcopy.StdCopy(stdout, r.Stderr, logs)
	}()
	return done, nil
}

func (r *Runner) waitForExit(ctx context.Context, id string) (*container.WaitResponse, error) {
	statusCh, errCh := r.client.inner.ContainerWait(ctx, id, container.WaitConditionNotRunning)
	select {
	case status := <-statusCh:
		if status.Error != nil {
			return nil, errors.New("build container error: " + status.Error.Message)
		}
		return &status, nil
	case err := <-errCh:
		return nil, fmt.Errorf("wait for build container: %w", err)
	case <-ctx.Done():
		return nil, fmt.Errorf("wait for build container: %w", ctx.Err())
	}
}

// ListBuildContainers returns the names of containers carrying this
// tool's management label, stopped ones included. Build containers are
// removed after every run, so anything listed here is debris from a
// killed process. The filter runs server-side in the daemon.
func ListBuildContainers(ctx context.Context, c *Client) ([]string, error) {
	filterArgs := filters.NewArgs(
		filters.Arg("label", LabelManagedBy+"="+ManagedByValue),
	)

	containers, err := c.inner.ContainerList(ctx, container.ListOptions{
		All:     true,
		Filters: filterArgs,
	})
	if err != nil {
		return nil, model.WrapCLIError(model.ExitDockerUnavailable,
			"failed to list build containers", err)
	}

	names := make([]string, 0, len(containers))
	for _, bc := range containers {
		// The API reports names with a leading "/" artifact.
		name := bc.ID
		if len(bc.Names) > 0 {
			name = strings.TrimPrefix(bc.Names[0], "/")
		}
		names = append(names, name)
	}
	return names, nil
}
