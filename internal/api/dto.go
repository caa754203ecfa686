package api

import (
	"github.com/starford/othala/internal/checklistservice"
	"github.com/starford/othala/internal/models"
)

// RenameRequest is the body for POST .../rename.
type RenameRequest struct {
	Title string `json:"title" example:"Weekly Shop" validate:"required"`
}

// MoveRequest is the body for POST .../move.
type MoveRequest struct {
	Category string `json:"category" example:"errands" validate:"required"`
}

// ChecklistDetail is the full checklist response type (aliased from the
// domain layer).
type ChecklistDetail = checklistservice.Detail

// ChecklistListItem is a lightweight item in a list response (aliased from
// the domain layer).
type ChecklistListItem = checklistservice.ListItem

// ChecklistListResponse wraps paginated checklist listings.
type ChecklistListResponse struct {
	Checklists []ChecklistListItem `json:"checklists" validate:"required"`
	Total      int                 `json:"total" example:"42" validate:"required"`
}

// HistoryResponse wraps one page of a document's journal.
type HistoryResponse struct {
	Entries []models.HistoryEntry `json:"entries" validate:"required"`
	HasMore bool                  `json:"has_more" example:"false" validate:"required"`
}

// SearchResult is a single search hit in the API response.
type SearchResult struct {
	Path    string `json:"path" example:"ana/home/groceries.md" validate:"required"`
	Title   string `json:"title" example:"Groceries" validate:"required"`
	Snippet string `json:"snippet" example:"...matched text..." validate:"required"`
}

// SearchResponse wraps search results.
type SearchResponse struct {
	Results []SearchResult `json:"results" validate:"required"`
}

// AttachmentUploadResponse is returned after a successful attachment upload.
type AttachmentUploadResponse struct {
	Filename string `json:"filename" example:"receipt.png" validate:"required"`
	Size     int64  `json:"size" example:"12345" validate:"required"`
	URL      string `json:"url" example:"/attachments/ana/receipt.png" validate:"required"`
}
