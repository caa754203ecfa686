package history

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/starford/othala/internal/models"
)

// Commit records one operation against the given paths (relative to
// userDir). The staging area is scoped to exactly those paths so an
// unrelated dirty file never rides along.
//
// Empty commits are elided: if git reports no change under the paths the
// call succeeds without creating a commit. Delete operations additionally
// require an actual deletion in the status output, so re-deleting an
// already-gone file does not journal a phantom entry.
func (s *Store) Commit(ctx context.Context, userDir string, op CommitOp, relPaths ...string) error {
	if !s.enabled {
		return nil
	}

	lock, err := s.locks.Acquire(ctx, filepath.Join(userDir, lockName))
	if err != nil {
		return err
	}
	defer lock.Release()

	if err := s.ensureRepoLocked(ctx, userDir); err != nil {
		return err
	}

	statusArgs := append([]string{"status", "--porcelain", "--"}, relPaths...)
	status, err := runGit(ctx, userDir, statusArgs...)
	if err != nil {
		return err
	}
	if op.Action == models.ActionDelete {
		if !deletionPresent(status) {
			slog.Debug("history: delete with nothing to record", slog.String("dir", userDir))
			return nil
		}
	} else if strings.TrimSpace(status) == "" {
		return nil
	}

	addArgs := append([]string{"add", "-A", "--"}, relPaths...)
	if _, err := runGit(ctx, userDir, addArgs...); err != nil {
		return err
	}
	if _, err := runGit(ctx, userDir, "commit", "-m", op.Message()); err != nil {
		return err
	}
	return nil
}

// deletionPresent scans porcelain status output for a deletion in either
// the staged or worktree column.
func deletionPresent(status string) bool {
	for _, line := range strings.Split(status, "\n") {
		if len(line) >= 2 && (line[0] == 'D' || line[1] == 'D') {
			return true
		}
	}
	return false
}
