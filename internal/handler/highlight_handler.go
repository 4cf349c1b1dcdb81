package handler

import (
	"bytes"
	"net/http"

	"github.com/gorilla/mux"

	"page-reader/internal/domain"
	"page-reader/internal/notes"
	"page-reader/internal/service"
)

// HighlightHandler handles highlight-related HTTP requests.
type HighlightHandler struct {
	highlights domain.HighlightService
	library    *service.LibraryService
	logger     domain.Logger
}

func NewHighlightHandler(highlights domain.HighlightService, library *service.LibraryService, logger domain.Logger) *HighlightHandler {
	return &HighlightHandler{
		highlights: highlights,
		library:    library,
		logger:     logger,
	}
}

type createHighlightRequest struct {
	URL    string `json:"url" validate:"required"`
	Text   string `json:"text" validate:"required"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}

// CreateHighlight handles POST /highlights
func (h *HighlightHandler) CreateHighlight(w http.ResponseWriter, r *http.Request) {
	var req createHighlightRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, "Invalid highlight request", err)
		return
	}

	id, err := h.highlights.CreateHighlight(r.Context(), req.URL, domain.Passage{
		Text:   req.Text,
		Prefix: req.Prefix,
		Suffix: req.Suffix,
	})
	if err != nil {
		writeAppError(w, h.logger, "Failed to create highlight", err, "url", req.URL)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"highlightId": id})
}

// ListHighlights handles GET /highlights?url=...
func (h *HighlightHandler) ListHighlights(w http.ResponseWriter, r *http.Request) {
	url := r.URL.Query().Get("url")
	highlights, err := h.highlights.ListHighlights(r.Context(), url)
	if err != nil {
		writeAppError(w, h.logger, "Failed to list highlights", err, "url", url)
		return
	}
	if highlights == nil {
		highlights = make([]*domain.Highlight, 0)
	}
	writeJSON(w, http.StatusOK, highlights)
}

// DeleteHighlight handles DELETE /highlights/{id}?url=...
func (h *HighlightHandler) DeleteHighlight(w http.ResponseWriter, r *http.Request) {
	highlightID := mux.Vars(r)["id"]
	url := r.URL.Query().Get("url")
	if err := h.highlights.DeleteHighlight(r.Context(), url, highlightID); err != nil {
		writeAppError(w, h.logger, "Failed to delete highlight", err, "url", url, "highlight_id", highlightID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Counts handles GET /highlights/counts
func (h *HighlightHandler) Counts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.library.HighlightCounts(r.Context())
	if err != nil {
		writeAppError(w, h.logger, "Failed to count highlights", err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}

// Grouped handles GET /highlights/grouped?search=&sort=
func (h *HighlightHandler) Grouped(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	groups, err := h.library.Groups(r.Context(), q.Get("search"), q.Get("sort"))
	if err != nil {
		writeAppError(w, h.logger, "Failed to group highlights", err)
		return
	}
	writeJSON(w, http.StatusOK, groups)
}

// Notes handles GET /highlights/notes?search=&sort= and returns the grouped
// highlights as a Markdown document.
func (h *HighlightHandler) Notes(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	groups, err := h.library.Groups(r.Context(), q.Get("search"), q.Get("sort"))
	if err != nil {
		writeAppError(w, h.logger, "Failed to group highlights", err)
		return
	}

	var buf bytes.Buffer
	if err := notes.Write(&buf, groups); err != nil {
		writeAppError(w, h.logger, "Failed to render notes", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}
