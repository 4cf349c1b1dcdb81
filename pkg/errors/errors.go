package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"

	"page-reader/internal/domain"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "validation"
	ErrorTypeNotFound     ErrorType = "not_found"
	ErrorTypeConflict     ErrorType = "conflict"
	ErrorTypeUnauthorized ErrorType = "unauthorized"
	ErrorTypeInternal     ErrorType = "internal"
	ErrorTypeUnavailable  ErrorType = "unavailable"
)

// AppError represents a structured application error
type AppError struct {
	Type       ErrorType `json:"type"`
	Message    string    `json:"message"`
	Details    string    `json:"details,omitempty"`
	StatusCode int       `json:"-"`
	Cause      error     `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

func newError(t ErrorType, status int, message string, cause error) *AppError {
	return &AppError{Type: t, Message: message, StatusCode: status, Cause: cause}
}

// NewValidationError reports a bad request; the optional detail names the offending field.
func NewValidationError(message string, details ...string) *AppError {
	e := newError(ErrorTypeValidation, http.StatusBadRequest, message, nil)
	if len(details) > 0 {
		e.Details = details[0]
	}
	return e
}

func NewNotFoundError(message string) *AppError {
	return newError(ErrorTypeNotFound, http.StatusNotFound, message, nil)
}

func NewConflictError(message string, cause error) *AppError {
	return newError(ErrorTypeConflict, http.StatusConflict, message, cause)
}

func NewUnauthorizedError(message string) *AppError {
	return newError(ErrorTypeUnauthorized, http.StatusUnauthorized, message, nil)
}

func NewInternalError(message string, cause error) *AppError {
	return newError(ErrorTypeInternal, http.StatusInternalServerError, message, cause)
}

// NewUnavailableError reports a store that could not be reached.
func NewUnavailableError(message string, cause error) *AppError {
	return newError(ErrorTypeUnavailable, http.StatusServiceUnavailable, message, cause)
}

// FromDomain maps a domain error to the AppError the HTTP layer reports.
func FromDomain(err error) *AppError {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	var validationErr *domain.ValidationError
	switch {
	case stderrors.As(err, &validationErr):
		return NewValidationError(validationErr.Message, validationErr.Field)
	case stderrors.Is(err, domain.ErrEmptySelection),
		stderrors.Is(err, domain.ErrRangeConstruction),
		stderrors.Is(err, domain.ErrInvalidBackup),
		stderrors.Is(err, domain.ErrMissingHighlightID):
		return NewValidationError(err.Error())
	case stderrors.Is(err, domain.ErrArticleNotFound),
		stderrors.Is(err, domain.ErrAnchorNotFound):
		return NewNotFoundError(err.Error())
	case stderrors.Is(err, domain.ErrArticleExists),
		stderrors.Is(err, domain.ErrPageNotSaved),
		stderrors.Is(err, domain.ErrNoActiveSelection),
		stderrors.Is(err, domain.ErrNoActiveMarker):
		return NewConflictError(err.Error(), err)
	case stderrors.Is(err, domain.ErrStoreUnavailable):
		return NewUnavailableError("store unavailable", err)
	default:
		return NewInternalError("internal error", err)
	}
}
