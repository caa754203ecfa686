// Package checklistservice coordinates storage, indexing, and the version
// journal behind one transactional-feeling API: every mutation writes the
// document, refreshes the index, records a journal commit, and fires the
// registered hooks, in that order.
package checklistservice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checksum"
	"github.com/starford/othala/internal/codec"
	"github.com/starford/othala/internal/history"
	"github.com/starford/othala/internal/index"
	"github.com/starford/othala/internal/models"
	"github.com/starford/othala/internal/storage"
)

// Capability answers authorization questions. Injected so sharing models
// can evolve without touching the service.
type Capability interface {
	CanEdit(actor, owner string) bool
}

// OwnerOnly is the default capability: users edit only their own documents.
type OwnerOnly struct{}

// CanEdit reports whether actor may modify owner's documents.
func (OwnerOnly) CanEdit(actor, owner string) bool { return actor == owner }

// Hook is called after a successful mutation has been journaled.
// kind is one of "created", "updated", "deleted"; path is relative to the
// data root.
type Hook func(kind, path string)

// Detail is the full representation of one checklist document.
type Detail struct {
	Checklist *models.Checklist `json:"checklist"`
	Path      string            `json:"path"`
	Checksum  string            `json:"checksum"`
	Warnings  int               `json:"warnings,omitempty"`
}

// ListItem is a lightweight row in a list response.
type ListItem struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	Title      string    `json:"title"`
	Type       string    `json:"type"`
	Category   string    `json:"category"`
	Checksum   string    `json:"checksum"`
	ItemsTotal int       `json:"items_total"`
	ItemsDone  int       `json:"items_done"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Service coordinates storage, index, and journal operations.
type Service struct {
	store   storage.Provider
	db      index.ChecklistIndex
	journal *history.Store
	caps    Capability

	dataRoot string
	hooks    []Hook
}

// NewService creates a checklist service. dataRoot is the absolute
// directory that store is rooted at; the journal operates on its per-owner
// subdirectories.
func NewService(store storage.Provider, db index.ChecklistIndex, journal *history.Store, caps Capability, dataRoot string) *Service {
	if caps == nil {
		caps = OwnerOnly{}
	}
	return &Service{
		store:    store,
		db:       db,
		journal:  journal,
		caps:     caps,
		dataRoot: dataRoot,
	}
}

// AddHook registers a post-mutation callback. Hooks run synchronously in
// registration order; not safe to call once the service is serving.
func (s *Service) AddHook(h Hook) {
	s.hooks = append(s.hooks, h)
}

func (s *Service) fireHooks(kind, relPath string) {
	for _, h := range s.hooks {
		h(kind, relPath)
	}
}

// docPath is the document path relative to the data root.
func docPath(owner, category, id string) string {
	return path.Join(owner, category, id+".md")
}

// journalPath is the document path relative to the owner's repository.
func journalPath(category, id string) string {
	return path.Join(category, id+".md")
}

func (s *Service) ownerDir(owner string) string {
	return filepath.Join(s.dataRoot, owner)
}

// Get reads and parses one checklist.
func (s *Service) Get(_ context.Context, owner, category, id string) (*Detail, error) {
	rel := docPath(owner, category, id)
	data, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return buildDetail(rel, owner, data), nil
}

// Create writes a new checklist document, assigning ids where absent.
func (s *Service) Create(ctx context.Context, owner, category string, c *models.Checklist) (*Detail, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Title == "" {
		c.Title = "Untitled"
	}
	if c.Type == "" {
		c.Type = models.TypeSimple
	}
	c.Category = category
	c.Owner = owner
	ensureItemIDs(c.Items)

	rel := docPath(owner, category, c.ID)
	if _, err := s.store.Read(rel); err == nil {
		return nil, apperr.ErrAlreadyExists
	}

	data := codec.Serialize(c)
	if err := s.store.Write(rel, data); err != nil {
		return nil, err
	}
	if err := index.IndexDocument(s.db, rel, data); err != nil {
		return nil, err
	}

	op := history.CommitOp{Action: models.ActionCreate, Title: c.Title}
	if err := s.journal.Commit(ctx, s.ownerDir(owner), op, journalPath(category, c.ID)); err != nil {
		return nil, err
	}

	s.fireHooks("created", rel)
	return buildDetail(rel, owner, data), nil
}

// Update replaces a checklist's content with optimistic concurrency.
// ifMatch, when non-empty, must equal the stored content's checksum.
// Completing a recurring task advances its next-due date.
func (s *Service) Update(ctx context.Context, owner, category, id string, c *models.Checklist, ifMatch string) (*Detail, error) {
	rel := docPath(owner, category, id)
	existing, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}

	prev := codec.Parse(existing, id, category).Checklist

	c.ID = id
	c.Category = category
	c.Owner = owner
	if c.Title == "" {
		c.Title = prev.Title
	}
	if c.Type == "" {
		c.Type = prev.Type
	}
	ensureItemIDs(c.Items)
	advanceRecurrence(prev, c, time.Now())

	return s.applyWrite(ctx, owner, category, id, c, models.ActionUpdate, "updated")
}

// Rename changes only the title, journaled with the old and new names.
func (s *Service) Rename(ctx context.Context, owner, category, id, newTitle, ifMatch string) (*Detail, error) {
	rel := docPath(owner, category, id)
	existing, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if ifMatch != "" && ifMatch != checksum.Sum(existing) {
		return nil, apperr.ErrConflict
	}

	c := codec.Parse(existing, id, category).Checklist
	oldTitle := c.Title
	c.Title = newTitle
	c.Owner = owner

	data := codec.Serialize(c)
	if err := s.store.Write(rel, data); err != nil {
		return nil, err
	}
	if err := index.IndexDocument(s.db, rel, data); err != nil {
		return nil, err
	}

	op := history.CommitOp{Action: models.ActionRename, Title: newTitle, OldTitle: oldTitle}
	if err := s.journal.Commit(ctx, s.ownerDir(owner), op, journalPath(category, id)); err != nil {
		return nil, err
	}

	s.fireHooks("updated", rel)
	return buildDetail(rel, owner, data), nil
}

// Move relocates a document to another category. Both the vacated and the
// new path are staged so the journal records the move as one commit.
func (s *Service) Move(ctx context.Context, owner, oldCategory, id, newCategory string) (*Detail, error) {
	oldRel := docPath(owner, oldCategory, id)
	newRel := docPath(owner, newCategory, id)

	data, err := s.store.Read(oldRel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	if _, err := s.store.Read(newRel); err == nil {
		return nil, apperr.ErrAlreadyExists
	}
	title := codec.Parse(data, id, oldCategory).Checklist.Title

	if err := s.store.Move(oldRel, newRel); err != nil {
		return nil, err
	}
	if err := s.db.Delete(oldRel); err != nil {
		return nil, err
	}
	if err := index.IndexDocument(s.db, newRel, data); err != nil {
		return nil, err
	}

	op := history.CommitOp{
		Action:      models.ActionMove,
		Title:       title,
		OldCategory: oldCategory,
		NewCategory: newCategory,
	}
	err = s.journal.Commit(ctx, s.ownerDir(owner), op,
		journalPath(oldCategory, id), journalPath(newCategory, id))
	if err != nil {
		return nil, err
	}

	s.fireHooks("deleted", oldRel)
	s.fireHooks("created", newRel)
	return buildDetail(newRel, owner, data), nil
}

// Delete removes a document from storage, index, and records the deletion.
func (s *Service) Delete(ctx context.Context, owner, category, id string) error {
	rel := docPath(owner, category, id)
	data, err := s.store.Read(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return apperr.ErrNotFound
		}
		return err
	}
	title := codec.Parse(data, id, category).Checklist.Title

	if err := s.store.Delete(rel); err != nil {
		return err
	}
	if err := s.db.Delete(rel); err != nil {
		return err
	}

	op := history.CommitOp{Action: models.ActionDelete, Title: title}
	if err := s.journal.Commit(ctx, s.ownerDir(owner), op, journalPath(category, id)); err != nil {
		return err
	}

	s.fireHooks("deleted", rel)
	return nil
}

// List returns one page of an owner's checklists from the index.
func (s *Service) List(_ context.Context, owner, category string, limit, offset int) ([]ListItem, int, error) {
	rows, total, err := s.db.List(owner, category, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items := make([]ListItem, len(rows))
	for i, r := range rows {
		_, _, id := index.SplitPath(r.Path)
		items[i] = ListItem{
			ID:         id,
			Path:       r.Path,
			Title:      r.Title,
			Type:       r.Type,
			Category:   r.Category,
			Checksum:   r.Checksum,
			ItemsTotal: r.ItemsTotal,
			ItemsDone:  r.ItemsDone,
			UpdatedAt:  r.UpdatedAt,
		}
	}
	return items, total, nil
}

// Search delegates full-text search to the index, scoped to one owner.
func (s *Service) Search(_ context.Context, owner, query string, limit int) ([]index.SearchResult, error) {
	return s.db.Search(owner, query, limit)
}

// History returns one page of a document's journal, newest first.
func (s *Service) History(ctx context.Context, owner, category, id string, page, pageSize int) ([]models.HistoryEntry, bool, error) {
	return s.journal.Log(ctx, s.ownerDir(owner), journalPath(category, id), page, pageSize)
}

// Version materializes the document as of one commit.
func (s *Service) Version(ctx context.Context, owner, category, id, hash string) (*models.HistoryVersion, error) {
	return s.journal.Show(ctx, s.ownerDir(owner), journalPath(category, id), hash)
}

// Restore overwrites the current document with a historical version. The
// restore itself is journaled as a fresh update, so history stays
// append-only and the restore can in turn be undone.
func (s *Service) Restore(ctx context.Context, actor, owner, category, id, hash string) (*Detail, error) {
	if err := history.ValidateHash(hash); err != nil {
		return nil, err
	}
	if !s.caps.CanEdit(actor, owner) {
		return nil, fmt.Errorf("checklistservice: restore by %s on %s's document: %w",
			actor, owner, apperr.ErrPermissionDenied)
	}

	ver, err := s.journal.Show(ctx, s.ownerDir(owner), journalPath(category, id), hash)
	if err != nil {
		return nil, err
	}

	c := codec.Parse([]byte(ver.Content), id, category).Checklist
	c.Owner = owner
	return s.applyWrite(ctx, owner, category, id, c, models.ActionUpdate, "updated")
}

// applyWrite persists a parsed checklist and runs the post-write pipeline.
func (s *Service) applyWrite(ctx context.Context, owner, category, id string, c *models.Checklist, action models.Action, hookKind string) (*Detail, error) {
	rel := docPath(owner, category, id)
	data := codec.Serialize(c)
	if err := s.store.Write(rel, data); err != nil {
		return nil, err
	}
	if err := index.IndexDocument(s.db, rel, data); err != nil {
		return nil, err
	}

	op := history.CommitOp{Action: action, Title: c.Title}
	if err := s.journal.Commit(ctx, s.ownerDir(owner), op, journalPath(category, id)); err != nil {
		return nil, err
	}

	s.fireHooks(hookKind, rel)
	return buildDetail(rel, owner, data), nil
}

// buildDetail constructs a Detail from raw data without re-reading the file.
func buildDetail(rel, owner string, data []byte) *Detail {
	_, category, id := index.SplitPath(rel)
	res := codec.Parse(data, id, category)
	res.Checklist.Owner = owner
	if res.Warnings > 0 {
		slog.Warn("checklistservice: document parsed with repairs",
			slog.String("path", rel),
			slog.Int("warnings", res.Warnings))
	}
	return &Detail{
		Checklist: res.Checklist,
		Path:      rel,
		Checksum:  checksum.Sum(data),
		Warnings:  res.Warnings,
	}
}

// ensureItemIDs assigns ids to items that arrived without one.
func ensureItemIDs(items []models.Item) {
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = uuid.NewString()
		}
		ensureItemIDs(items[i].Children)
	}
}
