package handler

import (
	"net/http"

	"page-reader/internal/domain"
	"page-reader/internal/service"
)

// PageHandler renders stored highlights into posted pages and highlights
// selections made on them.
type PageHandler struct {
	highlights *service.HighlightService
	logger     domain.Logger
}

func NewPageHandler(highlights *service.HighlightService, logger domain.Logger) *PageHandler {
	return &PageHandler{highlights: highlights, logger: logger}
}

type renderPageRequest struct {
	URL  string `json:"url" validate:"required"`
	HTML string `json:"html" validate:"required"`
}

type renderPageResponse struct {
	HTML string `json:"html"`
	service.RestoreReport
}

type highlightPageRequest struct {
	URL  string `json:"url" validate:"required"`
	HTML string `json:"html" validate:"required"`
	// Start and End are rune offsets into the page's flattened text.
	Start int `json:"start" validate:"gte=0"`
	End   int `json:"end" validate:"gtfield=Start"`
}

type highlightPageResponse struct {
	HighlightID string `json:"highlightId"`
	HTML        string `json:"html"`
}

// Render handles POST /pages/render
func (h *PageHandler) Render(w http.ResponseWriter, r *http.Request) {
	var req renderPageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, "Invalid render request", err)
		return
	}

	out, report, err := h.highlights.RenderPage(r.Context(), req.URL, req.HTML)
	if err != nil {
		writeAppError(w, h.logger, "Failed to render page", err, "url", req.URL)
		return
	}
	writeJSON(w, http.StatusOK, renderPageResponse{HTML: out, RestoreReport: report})
}

// Highlight handles POST /pages/highlight
func (h *PageHandler) Highlight(w http.ResponseWriter, r *http.Request) {
	var req highlightPageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, "Invalid highlight request", err)
		return
	}

	id, out, err := h.highlights.HighlightSelection(r.Context(), req.URL, req.HTML, req.Start, req.End)
	if err != nil {
		writeAppError(w, h.logger, "Failed to highlight selection", err, "url", req.URL)
		return
	}
	writeJSON(w, http.StatusCreated, highlightPageResponse{HighlightID: id, HTML: out})
}
