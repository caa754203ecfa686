package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starford/othala/internal/apperr"
	"github.com/starford/othala/internal/checklistservice"
	"github.com/starford/othala/internal/models"
)

const maxBodyBytes = 10 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *checklistservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *checklistservice.Service) *Handler {
	return &Handler{svc: svc}
}

// docParams extracts the owner/category/id triple addressing one document.
func docParams(r *http.Request) (owner, category, id string) {
	return chi.URLParam(r, "owner"), chi.URLParam(r, "category"), chi.URLParam(r, "id")
}

// actor resolves who is performing the request. Identity management is out
// of scope; callers assert identity via header and the capability layer
// decides what it may do. Defaults to the document owner.
func actor(r *http.Request, owner string) string {
	if a := r.Header.Get("X-Actor"); a != "" {
		return a
	}
	return owner
}

// ifMatchHeader returns the If-Match checksum with standard ETag quotes
// stripped.
func ifMatchHeader(r *http.Request) string {
	return strings.Trim(r.Header.Get("If-Match"), `"`)
}

// writeServiceError maps domain sentinels onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody("not found"))
	case errors.Is(err, apperr.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, errorBody("already exists"))
	case errors.Is(err, apperr.ErrConflict):
		writeJSON(w, http.StatusConflict, errorBody("checksum mismatch"))
	case errors.Is(err, apperr.ErrInvalidRef):
		writeJSON(w, http.StatusBadRequest, errorBody("invalid version reference"))
	case errors.Is(err, apperr.ErrPermissionDenied):
		writeJSON(w, http.StatusForbidden, errorBody("permission denied"))
	case errors.Is(err, apperr.ErrLockTimeout):
		writeJSON(w, http.StatusServiceUnavailable, errorBody("document is busy, retry"))
	default:
		slog.Error(op+" failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
	}
}

// ListChecklists handles GET /api/checklists/{owner}.
func (h *Handler) ListChecklists(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.List(r.Context(), owner, q.Get("category"), limit, offset)
	if err != nil {
		writeServiceError(w, "list checklists", err)
		return
	}
	if items == nil {
		items = []checklistservice.ListItem{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"checklists": items,
		"total":      total,
	})
}

// GetChecklist handles GET /api/checklists/{owner}/{category}/{id}.
func (h *Handler) GetChecklist(w http.ResponseWriter, r *http.Request) {
	owner, category, id := docParams(r)
	d, err := h.svc.Get(r.Context(), owner, category, id)
	if err != nil {
		writeServiceError(w, "get checklist", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// CreateChecklist handles POST /api/checklists/{owner}/{category}.
func (h *Handler) CreateChecklist(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	owner := chi.URLParam(r, "owner")
	category := chi.URLParam(r, "category")

	var req models.Checklist
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}

	d, err := h.svc.Create(r.Context(), owner, category, &req)
	if err != nil {
		writeServiceError(w, "create checklist", err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

// UpdateChecklist handles PUT /api/checklists/{owner}/{category}/{id}.
func (h *Handler) UpdateChecklist(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	owner, category, id := docParams(r)

	var req models.Checklist
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	d, err := h.svc.Update(r.Context(), owner, category, id, &req, ifMatchHeader(r))
	if err != nil {
		writeServiceError(w, "update checklist", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// DeleteChecklist handles DELETE /api/checklists/{owner}/{category}/{id}.
func (h *Handler) DeleteChecklist(w http.ResponseWriter, r *http.Request) {
	owner, category, id := docParams(r)
	if err := h.svc.Delete(r.Context(), owner, category, id); err != nil {
		writeServiceError(w, "delete checklist", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RenameChecklist handles POST /api/checklists/{owner}/{category}/{id}/rename.
func (h *Handler) RenameChecklist(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	owner, category, id := docParams(r)

	var req RenameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("title is required"))
		return
	}

	d, err := h.svc.Rename(r.Context(), owner, category, id, req.Title, ifMatchHeader(r))
	if err != nil {
		writeServiceError(w, "rename checklist", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// MoveChecklist handles POST /api/checklists/{owner}/{category}/{id}/move.
func (h *Handler) MoveChecklist(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	owner, category, id := docParams(r)

	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}
	if req.Category == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("category is required"))
		return
	}

	d, err := h.svc.Move(r.Context(), owner, category, id, req.Category)
	if err != nil {
		writeServiceError(w, "move checklist", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// History handles GET /api/checklists/{owner}/{category}/{id}/history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	owner, category, id := docParams(r)
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	pageSize, _ := strconv.Atoi(q.Get("page_size"))

	entries, hasMore, err := h.svc.History(r.Context(), owner, category, id, page, pageSize)
	if err != nil {
		writeServiceError(w, "history", err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"entries":  entries,
		"has_more": hasMore,
	})
}

// Version handles GET /api/checklists/{owner}/{category}/{id}/versions/{hash}.
func (h *Handler) Version(w http.ResponseWriter, r *http.Request) {
	owner, category, id := docParams(r)
	hash := chi.URLParam(r, "hash")

	ver, err := h.svc.Version(r.Context(), owner, category, id, hash)
	if err != nil {
		writeServiceError(w, "version", err)
		return
	}
	writeJSON(w, http.StatusOK, ver)
}

// Restore handles POST /api/checklists/{owner}/{category}/{id}/versions/{hash}/restore.
func (h *Handler) Restore(w http.ResponseWriter, r *http.Request) {
	owner, category, id := docParams(r)
	hash := chi.URLParam(r, "hash")

	d, err := h.svc.Restore(r.Context(), actor(r, owner), owner, category, id, hash)
	if err != nil {
		writeServiceError(w, "restore", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// Search handles GET /api/search.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	owner := q.Get("owner")
	if query == "" || owner == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameters 'q' and 'owner' are required"))
		return
	}
	limit, _ := strconv.Atoi(q.Get("limit"))

	results, err := h.svc.Search(r.Context(), owner, query, limit)
	if err != nil {
		writeServiceError(w, "search", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"results": results,
	})
}
