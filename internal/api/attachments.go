package api

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
)

const (
	// attachDir lives inside the owner's directory and is listed in the
	// journal's ignore rules, so binary blobs never enter version control.
	attachDir      = "files"
	maxUploadBytes = 50 << 20 // 50 MB
)

// AttachmentHandler serves and accepts per-owner attachment files.
type AttachmentHandler struct {
	dataRoot string
}

// NewAttachmentHandler creates a handler rooted at the data directory.
func NewAttachmentHandler(dataRoot string) *AttachmentHandler {
	return &AttachmentHandler{dataRoot: dataRoot}
}

// attachPath returns the absolute path to an owner's attachments directory.
func (h *AttachmentHandler) attachPath(owner string) string {
	return filepath.Join(h.dataRoot, owner, attachDir)
}

// safeName validates that owner and filename are plain names (no path
// separators, no traversal) and returns the absolute path under the
// owner's attachments dir.
func (h *AttachmentHandler) safeName(owner, name string) (string, error) {
	if owner == "" || name == "" {
		return "", fmt.Errorf("owner and filename are required")
	}
	for _, part := range []string{owner, name} {
		cleaned := filepath.Clean(part)
		if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") {
			return "", fmt.Errorf("invalid name: %s", part)
		}
	}
	dir := h.attachPath(owner)
	abs := filepath.Join(dir, filepath.Clean(name))
	// Double-check the resolved path is under the attachments dir.
	if !strings.HasPrefix(abs, dir+string(os.PathSeparator)) {
		return "", fmt.Errorf("path escapes attachments directory")
	}
	return abs, nil
}

// ServeFile handles GET /attachments/{owner}/{filename}.
func (h *AttachmentHandler) ServeFile(w http.ResponseWriter, r *http.Request) {
	owner := chi.URLParam(r, "owner")
	filename := chi.URLParam(r, "filename")
	abs, err := h.safeName(owner, filename)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if _, statErr := os.Stat(abs); os.IsNotExist(statErr) {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, abs)
}

// Upload handles POST /api/attachments/{owner} (multipart/form-data, field "file").
func (h *AttachmentHandler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	owner := chi.URLParam(r, "owner")

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("file too large or invalid multipart"))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("missing 'file' field in multipart form"))
		return
	}
	defer file.Close()

	abs, err := h.safeName(owner, header.Filename)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody(err.Error()))
		return
	}

	// Ensure attachments directory exists.
	if err := os.MkdirAll(h.attachPath(owner), 0o755); err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create attachments dir"))
		return
	}

	dst, err := os.Create(abs)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to create file"))
		return
	}
	defer dst.Close()

	written, err := io.Copy(dst, file)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody("failed to write file"))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"filename": header.Filename,
		"size":     written,
		"url":      "/attachments/" + owner + "/" + header.Filename,
	})
}
