package handler

import (
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"page-reader/internal/domain"
	"page-reader/internal/service"
)

// ArticleHandler handles the reading list endpoints.
type ArticleHandler struct {
	articles domain.ArticleService
	library  *service.LibraryService
	logger   domain.Logger
}

func NewArticleHandler(articles domain.ArticleService, library *service.LibraryService, logger domain.Logger) *ArticleHandler {
	return &ArticleHandler{
		articles: articles,
		library:  library,
		logger:   logger,
	}
}

type saveArticleRequest struct {
	URL        string `json:"url" validate:"required,url"`
	Title      string `json:"title"`
	Favicon    string `json:"favicon"`
	Excerpt    string `json:"excerpt"`
	IsRead     bool   `json:"isRead"`
	IsFavorite bool   `json:"isFavorite"`
	// HTML is the page source used to fill in missing metadata.
	HTML string `json:"html"`
}

// ListArticles handles GET /articles?search=&scope=&sort=
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := domain.LibraryQuery{
		Search: q.Get("search"),
		Scope:  q.Get("scope"),
		Sort:   q.Get("sort"),
	}
	view, err := h.library.Load(r.Context(), query)
	if err != nil {
		writeAppError(w, h.logger, "Failed to load library", err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// SaveArticle handles POST /articles
func (h *ArticleHandler) SaveArticle(w http.ResponseWriter, r *http.Request) {
	var req saveArticleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeAppError(w, h.logger, "Invalid save article request", err)
		return
	}

	saved, err := h.articles.SaveArticle(r.Context(), &domain.Article{
		URL:        req.URL,
		Title:      req.Title,
		Favicon:    req.Favicon,
		Excerpt:    req.Excerpt,
		IsRead:     req.IsRead,
		IsFavorite: req.IsFavorite,
	}, req.HTML)
	if errors.Is(err, domain.ErrArticleExists) {
		writeError(w, http.StatusConflict, "Article already saved")
		return
	}
	if err != nil {
		writeAppError(w, h.logger, "Failed to save article", err, "url", req.URL)
		return
	}
	writeJSON(w, http.StatusCreated, saved)
}

// DeleteArticle handles DELETE /articles/{id}
func (h *ArticleHandler) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	articleID := mux.Vars(r)["id"]
	if err := h.articles.DeleteArticle(r.Context(), articleID); err != nil {
		writeAppError(w, h.logger, "Failed to delete article", err, "article_id", articleID)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleRead handles POST /articles/{id}/read
func (h *ArticleHandler) ToggleRead(w http.ResponseWriter, r *http.Request) {
	articleID := mux.Vars(r)["id"]
	isRead, err := h.articles.ToggleRead(r.Context(), articleID)
	if err != nil {
		writeAppError(w, h.logger, "Failed to toggle read", err, "article_id", articleID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isRead": isRead})
}

// ToggleFavorite handles POST /articles/{id}/favorite
func (h *ArticleHandler) ToggleFavorite(w http.ResponseWriter, r *http.Request) {
	articleID := mux.Vars(r)["id"]
	isFavorite, err := h.articles.ToggleFavorite(r.Context(), articleID)
	if err != nil {
		writeAppError(w, h.logger, "Failed to toggle favorite", err, "article_id", articleID)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"isFavorite": isFavorite})
}
