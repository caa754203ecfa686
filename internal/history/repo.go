package history

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/starford/othala/internal/lockfile"
)

const (
	// lockName is the per-repository marker guarding every mutating
	// git invocation.
	lockName = ".othala.lock"

	committerName  = "Othala Journal"
	committerEmail = "journal@othala.local"
)

// ignoreRules keeps derived and transient files out of the journal.
// Attachment directories are excluded so binary blobs never bloat the
// repository.
const ignoreRules = `.index.json
.order.json
.othala.lock
images/
files/
videos/
*.tmp
*.swp
.DS_Store
`

// Store drives the per-user version journal. With enabled=false every
// mutating call is a silent no-op and every read returns empty results,
// so callers never branch on the history feature flag.
type Store struct {
	enabled bool
	locks   *lockfile.Manager
}

// NewStore creates a Store. locks may be shared with other subsystems.
func NewStore(enabled bool, locks *lockfile.Manager) *Store {
	if locks == nil {
		locks = lockfile.NewManager(lockfile.DefaultOptions())
	}
	return &Store{enabled: enabled, locks: locks}
}

// Enabled reports whether journaling is active.
func (s *Store) Enabled() bool { return s.enabled }

// EnsureRepo initializes the repository at userDir if it does not exist
// yet. Safe to call on every write; an initialized repository is detected
// cheaply and left untouched.
func (s *Store) EnsureRepo(ctx context.Context, userDir string) error {
	if !s.enabled {
		return nil
	}
	lock, err := s.locks.Acquire(ctx, filepath.Join(userDir, lockName))
	if err != nil {
		return err
	}
	defer lock.Release()
	return s.ensureRepoLocked(ctx, userDir)
}

// ensureRepoLocked does the actual bootstrap. Caller holds the repo lock.
func (s *Store) ensureRepoLocked(ctx context.Context, userDir string) error {
	if _, err := os.Stat(filepath.Join(userDir, ".git")); err == nil {
		return nil
	}
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return fmt.Errorf("history: ensure %s: %w", userDir, err)
	}

	if _, err := runGit(ctx, userDir, "init"); err != nil {
		return err
	}
	// Synthetic identity: commits must succeed on hosts with no global
	// git configuration.
	for _, kv := range [][2]string{
		{"user.name", committerName},
		{"user.email", committerEmail},
		{"commit.gpgsign", "false"},
	} {
		if _, err := runGit(ctx, userDir, "config", kv[0], kv[1]); err != nil {
			return err
		}
	}

	ignorePath := filepath.Join(userDir, ".gitignore")
	if err := os.WriteFile(ignorePath, []byte(ignoreRules), 0o644); err != nil {
		return fmt.Errorf("history: write gitignore: %w", err)
	}
	if _, err := runGit(ctx, userDir, "add", ".gitignore"); err != nil {
		return err
	}
	if _, err := runGit(ctx, userDir, "commit", "-m", "[create] repository"); err != nil {
		return err
	}

	slog.Info("history: repository initialized", slog.String("dir", userDir))
	return nil
}
