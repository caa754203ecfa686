// Package lockfile provides advisory file locks with staleness detection
// and exponential-backoff retry. A lock is an on-disk marker file; a marker
// older than the stale threshold is presumed abandoned by a crashed process
// and reclaimed by the next acquirer.
package lockfile

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/starford/othala/internal/apperr"
)

// Options tunes acquisition behavior.
type Options struct {
	// StaleAfter is the age past which an existing marker is reclaimed.
	StaleAfter time.Duration
	// Retries is the number of acquisition attempts before giving up.
	Retries int
	// Backoff is the initial retry delay; it doubles per attempt.
	Backoff time.Duration
	// MaxBackoff caps the retry delay.
	MaxBackoff time.Duration
}

// DefaultOptions is the policy used by the history subsystem.
func DefaultOptions() Options {
	return Options{
		StaleAfter: 30 * time.Second,
		Retries:    5,
		Backoff:    100 * time.Millisecond,
		MaxBackoff: 2 * time.Second,
	}
}

// Manager acquires and releases marker-file locks. It is an explicit
// resource object passed into repository operations rather than a
// process-wide singleton, so isolated test fixtures never cross-talk.
type Manager struct {
	opts Options
}

// NewManager creates a Manager with the given options. Zero values fall
// back to the defaults.
func NewManager(opts Options) *Manager {
	def := DefaultOptions()
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = def.StaleAfter
	}
	if opts.Retries <= 0 {
		opts.Retries = def.Retries
	}
	if opts.Backoff <= 0 {
		opts.Backoff = def.Backoff
	}
	if opts.MaxBackoff <= 0 {
		opts.MaxBackoff = def.MaxBackoff
	}
	return &Manager{opts: opts}
}

// Lock is a held marker file.
type Lock struct {
	path string
}

// Acquire creates the marker at path, retrying with exponential backoff
// while another holder exists. A marker older than StaleAfter is
// force-reclaimed. Exhausted retries surface apperr.ErrLockTimeout.
func (m *Manager) Acquire(ctx context.Context, path string) (*Lock, error) {
	delay := m.opts.Backoff

	for attempt := 0; attempt < m.opts.Retries; attempt++ {
		if err := m.tryCreate(path); err == nil {
			return &Lock{path: path}, nil
		} else if !os.IsExist(err) {
			return nil, fmt.Errorf("lockfile: create %s: %w", path, err)
		}

		info, err := os.Stat(path)
		if err == nil && time.Since(info.ModTime()) > m.opts.StaleAfter {
			// Prior holder is presumed dead; reclaim immediately.
			slog.Warn("lockfile: reclaiming stale lock",
				slog.String("path", path),
				slog.Duration("age", time.Since(info.ModTime())))
			_ = os.Remove(path)
			continue
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("lockfile: acquire %s: %w", path, ctx.Err())
		case <-time.After(delay):
		}
		delay *= 2
		if delay > m.opts.MaxBackoff {
			delay = m.opts.MaxBackoff
		}
	}

	return nil, fmt.Errorf("lockfile: acquire %s after %d attempts: %w",
		path, m.opts.Retries, apperr.ErrLockTimeout)
}

func (m *Manager) tryCreate(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	// PID and timestamp are recorded for operator debugging only; staleness
	// is judged from the file's modification time.
	_, _ = f.WriteString(strconv.Itoa(os.Getpid()) + " " + time.Now().Format(time.RFC3339) + "\n")
	return f.Close()
}

// Release deletes the marker. Best effort: a failed delete is logged, not
// escalated, since a stale marker self-heals on the next acquire.
func (l *Lock) Release() {
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		slog.Warn("lockfile: release failed",
			slog.String("path", l.path),
			slog.String("error", err.Error()))
	}
}
