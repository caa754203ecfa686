package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrConflict         = errors.New("conflict")
	ErrAlreadyExists    = errors.New("already exists")
	ErrLockTimeout      = errors.New("lock acquisition timed out")
	ErrInvalidRef       = errors.New("invalid reference")
	ErrPermissionDenied = errors.New("permission denied")
)
