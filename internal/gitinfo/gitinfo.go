// Package gitinfo captures lightweight repository metadata for run
// records. All lookups are best-effort: a directory that is not a Git
// repository, or a machine without git installed, yields an empty Info
// rather than an error, so deploys never fail on missing metadata.
package gitinfo

import (
	"os/exec"
	"strings"
)

// Info describes the state of the working tree at the time of a run.
// Zero values mean the information could not be determined.
type Info struct {
	Commit string `json:"commit,omitempty"` // full commit SHA of HEAD
	Branch string `json:"branch,omitempty"` // current branch name, or "HEAD" when detached
	Dirty  bool   `json:"dirty"`            // true when uncommitted changes exist
}

// Describe collects commit, branch, and dirty-state information for the
// repository containing dir. Fields that cannot be determined are left
// at their zero values.
func Describe(dir string) Info {
	var info Info

	commit, err := runGit(dir, "rev-parse", "HEAD")
	if err != nil {
		// Not a repository (or no commits yet); nothing else will work either.
		return info
	}
	info.Commit = commit

	if branch, err := runGit(dir, "rev-parse", "--abbrev-ref", "HEAD"); err == nil {
		info.Branch = branch
	}

	if status, err := runGit(dir, "status", "--porcelain"); err == nil {
		info.Dirty = status != ""
	}

	return info
}

// runGit executes a git command in the given directory and returns its
// trimmed stdout.
func runGit(dir string, args ...string) (string, error) {
	// Prepend -C <dir> to make git operate in the target directory.
	// This is safer than using exec.Command().Dir because -C is handled
	// by git itself and works correctly with all git subcommands.
	fullArgs := append([]string{"-C", dir}, args...)

	// #nosec G204 — args are constructed internally, not from user input
	cmd := exec.Command("git", fullArgs...)

	var stdout strings.Builder
	cmd.Stdout = &stdout

	if err := cmd.Run(); err != nil {
		return "", err
	}

	return strings.TrimSpace(stdout.String()), nil
}
