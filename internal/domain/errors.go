package domain

import "errors"

// Domain errors
var (
	ErrAnchorNotFound     = errors.New("anchor not found")
	ErrRangeConstruction  = errors.New("range construction failed")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrEmptySelection     = errors.New("empty selection")
	ErrPageNotSaved       = errors.New("page is not saved")
	ErrNoActiveSelection  = errors.New("no active selection")
	ErrNoActiveMarker     = errors.New("no active highlight marker")
	ErrArticleNotFound    = errors.New("article not found")
	ErrArticleExists      = errors.New("article already saved")
	ErrInvalidBackup      = errors.New("invalid backup file")
	ErrMissingHighlightID = errors.New("highlight id is required")
)

// ValidationError represents a validation error with field and message information.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field != "" {
		return e.Field + ": " + e.Message
	}
	return e.Message
}
