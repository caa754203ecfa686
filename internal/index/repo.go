package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ChecklistRow represents a row in the checklists table.
type ChecklistRow struct {
	Path       string
	Owner      string
	Category   string
	Title      string
	Type       string
	Checksum   string
	ItemsTotal int
	ItemsDone  int
	UpdatedAt  time.Time
}

// SearchResult represents one search hit.
type SearchResult struct {
	Path    string
	Title   string
	Snippet string
}

// Upsert inserts or replaces a checklist row and its FTS entry within a
// transaction. body is the searchable text (title plus item texts).
func (db *DB) Upsert(row ChecklistRow, body string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	// Body is stored in the main table too so the fallback search works
	// without FTS5.
	_, err = tx.Exec(`
		INSERT INTO checklists (path, owner, category, title, type, checksum, body, items_total, items_done, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			owner       = excluded.owner,
			category    = excluded.category,
			title       = excluded.title,
			type        = excluded.type,
			checksum    = excluded.checksum,
			body        = excluded.body,
			items_total = excluded.items_total,
			items_done  = excluded.items_done,
			updated_at  = excluded.updated_at
	`, row.Path, row.Owner, row.Category, row.Title, row.Type, row.Checksum, body,
		row.ItemsTotal, row.ItemsDone, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("index: upsert checklist: %w", err)
	}

	if err := ftsUpsert(tx, row.Path, row.Owner, row.Title, body); err != nil {
		return err
	}

	return tx.Commit()
}

// Delete removes a checklist row and its FTS entry.
func (db *DB) Delete(path string) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	ftsDelete(tx, path)
	_, _ = tx.Exec(`DELETE FROM checklists WHERE path = ?`, path)

	return tx.Commit()
}

// Get returns the indexed row for path, or nil if not indexed.
func (db *DB) Get(path string) (*ChecklistRow, error) {
	row := db.conn.QueryRow(`
		SELECT path, owner, category, title, type, checksum, items_total, items_done, updated_at
		FROM checklists WHERE path = ?
	`, path)

	var r ChecklistRow
	err := row.Scan(&r.Path, &r.Owner, &r.Category, &r.Title, &r.Type,
		&r.Checksum, &r.ItemsTotal, &r.ItemsDone, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("index: get checklist: %w", err)
	}
	return &r, nil
}

// List returns one page of checklists for an owner, newest first, plus the
// total count for that filter. category narrows the result when non-empty.
func (db *DB) List(owner, category string, limit, offset int) ([]ChecklistRow, int, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}

	where := `WHERE owner = ?`
	args := []any{owner}
	if category != "" {
		where += ` AND category = ?`
		args = append(args, category)
	}

	var total int
	if err := db.conn.QueryRow(`SELECT COUNT(*) FROM checklists `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count checklists: %w", err)
	}

	query := `
		SELECT path, owner, category, title, type, checksum, items_total, items_done, updated_at
		FROM checklists ` + where + `
		ORDER BY updated_at DESC, path ASC
		LIMIT ? OFFSET ?`
	rows, err := db.conn.Query(query, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list checklists: %w", err)
	}
	defer rows.Close()

	var out []ChecklistRow
	for rows.Next() {
		var r ChecklistRow
		if err := rows.Scan(&r.Path, &r.Owner, &r.Category, &r.Title, &r.Type,
			&r.Checksum, &r.ItemsTotal, &r.ItemsDone, &r.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, r)
	}
	return out, total, rows.Err()
}

// GetChecksum returns the stored checksum for a path, or empty string if
// not indexed.
func (db *DB) GetChecksum(path string) (string, error) {
	var cs string
	err := db.conn.QueryRow(`SELECT checksum FROM checklists WHERE path = ?`, path).Scan(&cs)
	if err != nil {
		return "", nil // not found is fine
	}
	return cs, nil
}

// AllChecksums returns path -> checksum for every indexed checklist.
func (db *DB) AllChecksums() (map[string]string, error) {
	rows, err := db.conn.Query(`SELECT path, checksum FROM checklists`)
	if err != nil {
		return nil, fmt.Errorf("index: all checksums: %w", err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var p, cs string
		if err := rows.Scan(&p, &cs); err != nil {
			return nil, err
		}
		out[p] = cs
	}
	return out, rows.Err()
}
