package history

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/codec"
	"github.com/starford/othala/internal/models"
)

// hashRe admits abbreviated and full hex object names. Anything else is
// rejected before reaching the git command line.
var hashRe = regexp.MustCompile(`^[a-fA-F0-9]{7,40}$`)

// ValidateHash rejects strings that are not plausible commit hashes.
func ValidateHash(hash string) error {
	if !hashRe.MatchString(hash) {
		return fmt.Errorf("history: %q: %w", hash, apperr.ErrInvalidRef)
	}
	return nil
}

// Log returns one page of the commit history touching relPath, newest
// first, following renames. page is 1-based. The second return reports
// whether another page exists.
//
// A disabled store or an uninitialized repository yields an empty page,
// not an error: a document can legitimately predate the journal.
func (s *Store) Log(ctx context.Context, userDir, relPath string, page, pageSize int) ([]models.HistoryEntry, bool, error) {
	if !s.enabled {
		return nil, false, nil
	}
	if _, err := os.Stat(filepath.Join(userDir, ".git")); err != nil {
		return nil, false, nil
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	out, err := runGit(ctx, userDir, "log", "--follow",
		fmt.Sprintf("--skip=%d", (page-1)*pageSize),
		fmt.Sprintf("--max-count=%d", pageSize+1),
		"--pretty=format:%H%x1f%aI%x1f%s",
		"--", relPath)
	if err != nil {
		return nil, false, err
	}

	var entries []models.HistoryEntry
	for _, line := range strings.Split(out, "\n") {
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "\x1f", 3)
		if len(parts) != 3 {
			continue
		}
		date, _ := time.Parse(time.RFC3339, parts[1])
		action, title := ParseMessage(parts[2])
		entries = append(entries, models.HistoryEntry{
			CommitHash: parts[0],
			Date:       date,
			Action:     action,
			Title:      title,
		})
	}

	hasMore := len(entries) > pageSize
	if hasMore {
		entries = entries[:pageSize]
	}
	return entries, hasMore, nil
}

// Show materializes the document at relPath as of the given commit.
// The path is resolved against that commit: after a rename or move the
// file may have lived elsewhere, in which case the commit's changed
// files are scanned for the best match.
func (s *Store) Show(ctx context.Context, userDir, relPath, hash string) (*models.HistoryVersion, error) {
	if err := ValidateHash(hash); err != nil {
		return nil, err
	}
	if !s.enabled {
		return nil, fmt.Errorf("history: version %s: %w", hash, apperr.ErrNotFound)
	}

	dateOut, err := runGit(ctx, userDir, "show", "-s", "--pretty=format:%aI", hash)
	if err != nil {
		return nil, fmt.Errorf("history: version %s: %w", hash, apperr.ErrNotFound)
	}
	date, _ := time.Parse(time.RFC3339, strings.TrimSpace(dateOut))

	content, err := runGit(ctx, userDir, "show", hash+":"+relPath)
	if err != nil {
		resolved, rerr := s.resolvePathAt(ctx, userDir, relPath, hash)
		if rerr != nil {
			return nil, fmt.Errorf("history: version %s of %s: %w", hash, relPath, apperr.ErrNotFound)
		}
		content, err = runGit(ctx, userDir, "show", hash+":"+resolved)
		if err != nil {
			return nil, fmt.Errorf("history: version %s of %s: %w", hash, relPath, apperr.ErrNotFound)
		}
	}

	body := codec.StripFrontmatter([]byte(content))
	return &models.HistoryVersion{
		CommitHash: hash,
		Date:       date,
		Content:    string(body),
		Title:      firstHeading(string(body)),
	}, nil
}

// resolvePathAt finds where the document lived at the given commit by
// listing the commit's changed files. A file in the same category wins;
// failing that any markdown file in the commit is taken, covering moves
// across categories.
func (s *Store) resolvePathAt(ctx context.Context, userDir, relPath, hash string) (string, error) {
	out, err := runGit(ctx, userDir, "show", "--name-only", "--pretty=format:", hash)
	if err != nil {
		return "", err
	}

	category := filepath.Dir(relPath)
	var fallback string
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || filepath.Ext(line) != ".md" {
			continue
		}
		if filepath.Dir(line) == category {
			return line, nil
		}
		if fallback == "" {
			fallback = line
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", fmt.Errorf("history: no candidate path in %s: %w", hash, apperr.ErrNotFound)
}

// firstHeading returns the text of the first markdown H1, or "".
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}
