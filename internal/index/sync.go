package index

import (
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/codec"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Sync walks the data root and brings the index up to date:
//   - new/changed documents are parsed and upserted
//   - documents removed from disk are deleted from the index
func Sync(db *DB, store storage.Provider, logger *slog.Logger) error {
	metas, err := store.List("")
	if err != nil {
		return err
	}

	checksums, err := db.AllChecksums()
	if err != nil {
		return err
	}

	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}

		if checksums[m.Path] == m.Checksum {
			continue
		}

		data, err := store.Read(m.Path)
		if err != nil {
			logger.Warn("sync: read failed", slog.String("path", m.Path), slog.String("error", err.Error()))
			continue
		}
		if err := IndexDocument(db, m.Path, data); err != nil {
			logger.Warn("sync: index failed", slog.String("path", m.Path), slog.String("error", err.Error()))
		} else {
			logger.Debug("sync: indexed", slog.String("path", m.Path))
		}
	}

	// Remove stale entries.
	for p := range checksums {
		if _, ok := disk[p]; !ok {
			if err := db.Delete(p); err != nil {
				logger.Warn("sync: delete failed", slog.String("path", p), slog.String("error", err.Error()))
			} else {
				logger.Debug("sync: removed stale", slog.String("path", p))
			}
		}
	}

	return nil
}

// IndexDocument parses raw document bytes and upserts them into the index.
// Exported so the service, sync, and watcher share one code path.
func IndexDocument(db ChecklistIndex, relPath string, data []byte) error {
	owner, category, id := SplitPath(relPath)
	res := codec.Parse(data, id, category)
	c := res.Checklist
	total, done := c.CountItems()

	row := ChecklistRow{
		Path:       relPath,
		Owner:      owner,
		Category:   category,
		Title:      c.Title,
		Type:       string(c.Type),
		Checksum:   checksum.Sum(data),
		ItemsTotal: total,
		ItemsDone:  done,
		UpdatedAt:  time.Now(),
	}
	return db.Upsert(row, searchBody(c))
}

// SplitPath decomposes a document path relative to the data root into its
// owner, category, and document id. Layout is <owner>/<category>/<id>.md;
// shallower paths degrade gracefully with empty components.
func SplitPath(relPath string) (owner, category, id string) {
	p := path.Clean(strings.ReplaceAll(relPath, "\\", "/"))
	id = strings.TrimSuffix(path.Base(p), ".md")

	parts := strings.Split(p, "/")
	switch {
	case len(parts) >= 3:
		owner = parts[0]
		category = strings.Join(parts[1:len(parts)-1], "/")
	case len(parts) == 2:
		owner = parts[0]
	}
	return owner, category, id
}

// searchBody flattens a checklist into the text that full-text search
// should match: the title followed by every item text, one per line.
func searchBody(c *models.Checklist) string {
	var b strings.Builder
	b.WriteString(c.Title)

	var walk func(items []models.Item)
	walk = func(items []models.Item) {
		for i := range items {
			b.WriteByte('\n')
			b.WriteString(items[i].Text)
			if items[i].Description != "" {
				b.WriteByte('\n')
				b.WriteString(items[i].Description)
			}
			walk(items[i].Children)
		}
	}
	walk(c.Items)
	return b.String()
}
