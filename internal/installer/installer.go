// Package installer drives the external package-manager install after a
// composition. It detects the manager from lockfiles, retries transient
// registry failures with backoff, and reports the final process outcome
// without interpreting it further.
package installer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// Supported package managers.
var Managers = []string{"npm", "pnpm", "yarn", "bun"}

// ParseManager validates a package-manager name from flags or config.
func ParseManager(name string) (string, error) {
	m := strings.ToLower(strings.TrimSpace(name))
	for _, known := range Managers {
		if m == known {
			return known, nil
		}
	}
	return "", fmt.Errorf("unknown package manager %q (valid: %s)", name, strings.Join(Managers, ", "))
}

// lockfiles maps lockfile names to the manager that owns them, in
// detection priority order.
var lockfiles = []struct {
	file    string
	manager string
}{
	{"pnpm-lock.yaml", "pnpm"},
	{"yarn.lock", "yarn"},
	{"bun.lockb", "bun"},
	{"bun.lock", "bun"},
	{"package-lock.json", "npm"},
}

// DetectManager picks a package manager from the lockfiles present in
// dir, defaulting to npm.
func DetectManager(dir string) string {
	for _, lf := range lockfiles {
		if _, err := os.Stat(filepath.Join(dir, lf.file)); err == nil {
			return lf.manager
		}
	}
	return "npm"
}

// Result reports one install run.
type Result struct {
	Success  bool   `json:"success"`
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Attempts int    `json:"attempts"`
	Manager  string `json:"manager"`
}

// Options bound one install run. Retries counts additional attempts
// after the first; Timeout applies per attempt.
type Options struct {
	Manager string
	Retries int
	Timeout time.Duration
}

// Installer runs package-manager installs.
type Installer struct {
	// Stdout and Stderr can be set for testing; defaults to os.Stdout/os.Stderr.
	Stdout io.Writer
	Stderr io.Writer
}

// retryDelay is the first backoff interval between install attempts;
// each further attempt doubles it. Variable so tests can shorten it.
var retryDelay = 2 * time.Second

// Install runs `<manager> install` in dir, streaming output and retrying
// on transient registry failures. The returned error covers spawn-level
// problems only; a failing install is reported through the Result.
func (ins *Installer) Install(ctx context.Context, dir string, opts Options) (*Result, error) {
	manager := opts.Manager
	if manager == "" {
		manager = DetectManager(dir)
	}

	bin, err := exec.LookPath(manager)
	if err != nil {
		return nil, fmt.Errorf("package manager %s not found in PATH: %w", manager, err)
	}

	stdout := ins.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := ins.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}

	attempts := opts.Retries + 1
	if attempts < 1 {
		attempts = 1
	}

	result := &Result{Manager: manager}
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(retryDelay << (attempt - 1))
			select {
			case <-ctx.Done():
				timer.Stop()
				return result, ctx.Err()
			case <-timer.C:
			}
		}

		attemptCtx := ctx
		cancel := context.CancelFunc(func() {})
		if opts.Timeout > 0 {
			attemptCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		}

		var stdoutBuf, stderrBuf bytes.Buffer
		cmd := exec.CommandContext(attemptCtx, bin, "install")
		cmd.Dir = dir
		cmd.Stdout = io.MultiWriter(stdout, &stdoutBuf)
		cmd.Stderr = io.MultiWriter(stderr, &stderrBuf)

		runErr := cmd.Run()
		cancel()

		result.Attempts = attempt + 1
		result.Stdout = stdoutBuf.String()
		result.Stderr = stderrBuf.String()

		if runErr == nil {
			result.Success = true
			result.ExitCode = 0
			return result, nil
		}

		exitErr, ok := runErr.(*exec.ExitError)
		if !ok {
			return result, fmt.Errorf("running %s install: %w", manager, runErr)
		}
		result.ExitCode = exitErr.ExitCode()

		if ctx.Err() != nil || !retryable(result.Stderr) {
			break
		}
	}
	return result, nil
}

// retryablePatterns match package-manager stderr output caused by
// network or registry trouble rather than a broken manifest.
var retryablePatterns = []string{
	"enotfound",
	"etimedout",
	"econnreset",
	"econnrefused",
	"eai_again",
	"socket hang up",
	"network",
	"fetch failed",
	"registry error",
	"503",
}

// retryable classifies an install failure from its stderr output.
func retryable(stderr string) bool {
	msg := strings.ToLower(stderr)
	for _, pattern := range retryablePatterns {
		if strings.Contains(msg, pattern) {
			return true
		}
	}
	return false
}
