package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"page-reader/internal/domain"
	"page-reader/internal/protocol"
	apperrors "page-reader/pkg/errors"
)

// maxBodyBytes bounds request bodies; pages posted for rendering can be large.
const maxBodyBytes = 10 << 20

// writeJSON writes data as a JSON response.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeAppError maps err onto an HTTP status and logs anything that is not
// the caller's fault.
func writeAppError(w http.ResponseWriter, logger domain.Logger, msg string, err error, fields ...interface{}) {
	if errors.Is(err, protocol.ErrUnknownType) {
		err = apperrors.NewValidationError(err.Error(), "type")
	}
	appErr := apperrors.FromDomain(err)
	if appErr.StatusCode >= http.StatusInternalServerError {
		logger.Error(msg, err, fields...)
	} else {
		logger.Debug(msg, append(fields, "error", err)...)
	}
	writeJSON(w, appErr.StatusCode, errorResponse{
		Error:   appErr.Message,
		Type:    string(appErr.Type),
		Details: appErr.Details,
	})
}

type errorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type,omitempty"`
	Details string `json:"details,omitempty"`
}

// decodeJSON reads the request body into v and validates its struct tags.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &domain.ValidationError{Field: "body", Message: "Invalid request body"}
	}
	return protocol.Validate(v)
}
