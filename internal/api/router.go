package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/starford/othala/internal/checklistservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
// dataRoot is used to resolve per-user attachment directories.
func NewRouter(svc *checklistservice.Service, authEnabled bool, token string, sseHandler http.Handler, dataRoot string) chi.Router {
	h := NewHandler(svc)
	ah := NewAttachmentHandler(dataRoot)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Checklist CRUD.
	r.Get("/checklists/{owner}", h.ListChecklists)
	r.Post("/checklists/{owner}/{category}", h.CreateChecklist)
	r.Get("/checklists/{owner}/{category}/{id}", h.GetChecklist)
	r.Put("/checklists/{owner}/{category}/{id}", h.UpdateChecklist)
	r.Delete("/checklists/{owner}/{category}/{id}", h.DeleteChecklist)

	// Title and category changes journal with their own grammar.
	r.Post("/checklists/{owner}/{category}/{id}/rename", h.RenameChecklist)
	r.Post("/checklists/{owner}/{category}/{id}/move", h.MoveChecklist)

	// Version journal.
	r.Get("/checklists/{owner}/{category}/{id}/history", h.History)
	r.Get("/checklists/{owner}/{category}/{id}/versions/{hash}", h.Version)
	r.Post("/checklists/{owner}/{category}/{id}/versions/{hash}/restore", h.Restore)

	// Search.
	r.Get("/search", h.Search)

	// Attachments (stored outside version control).
	r.Post("/attachments/{owner}", ah.Upload)
	r.Get("/attachments/{owner}/{filename}", ah.ServeFile)

	// SSE endpoint (protected by same auth middleware).
	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
