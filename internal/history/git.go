// Package history implements the per-user version-control journal on top
// of the git binary: repository bootstrap, guarded commits, log reads, and
// historical content retrieval.
package history

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// maxErrOutput caps captured stderr so large or ANSI-polluted git output
// cannot corrupt logs.
const maxErrOutput = 500

// Available reports whether the git binary can be found. Callers that
// exercise real repositories (tests, startup checks) use it to fail fast
// with a useful message instead of a raw exec error.
func Available() bool {
	_, err := exec.LookPath("git")
	return err == nil
}

// runGit executes one git subcommand in dir and returns its stdout.
// On failure the trimmed stderr is folded into the error.
func runGit(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if len(msg) > maxErrOutput {
			msg = msg[:maxErrOutput]
		}
		if msg != "" {
			return "", fmt.Errorf("history: git %s: %s: %w", args[0], msg, err)
		}
		return "", fmt.Errorf("history: git %s: %w", args[0], err)
	}
	return stdout.String(), nil
}
