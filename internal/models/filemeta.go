package models

import "time"

// FileMeta is a lightweight representation of one document file on disk,
// returned by storage list operations.
type FileMeta struct {
	Path      string    `json:"path"`
	Checksum  string    `json:"checksum"`
	UpdatedAt time.Time `json:"updated_at"`
}
