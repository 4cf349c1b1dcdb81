package handler

import (
	"net/http"

	"page-reader/internal/config"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Handlers groups the endpoint handlers mounted by NewRouter.
type Handlers struct {
	Articles   *ArticleHandler
	Highlights *HighlightHandler
	Pages      *PageHandler
	Messages   *MessageHandler
	Backup     *BackupHandler
}

// NewHandlers builds every handler from the container's services.
func NewHandlers(c *config.Container) Handlers {
	return Handlers{
		Articles:   NewArticleHandler(c.ArticleService, c.LibraryService, c.Logger),
		Highlights: NewHighlightHandler(c.HighlightService, c.LibraryService, c.Logger),
		Pages:      NewPageHandler(c.HighlightService, c.Logger),
		Messages:   NewMessageHandler(c.Dispatcher, c.Logger),
		Backup:     NewBackupHandler(c.BackupService, c.Logger),
	}
}

// NewRouter creates a new HTTP router with all routes configured
func NewRouter(h Handlers, allowedOrigins []string, authMiddleware func(http.Handler) http.Handler) http.Handler {
	router := mux.NewRouter()

	// Health check endpoint (no auth required)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok","service":"page-reader"}`))
	}).Methods(http.MethodGet)

	// API prefix
	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(authMiddleware)

	// Extension message protocol
	api.HandleFunc("/messages", h.Messages.Handle).Methods(http.MethodPost)

	// Article routes
	api.HandleFunc("/articles", h.Articles.ListArticles).Methods(http.MethodGet)
	api.HandleFunc("/articles", h.Articles.SaveArticle).Methods(http.MethodPost)
	api.HandleFunc("/articles/{id}", h.Articles.DeleteArticle).Methods(http.MethodDelete)
	api.HandleFunc("/articles/{id}/read", h.Articles.ToggleRead).Methods(http.MethodPost)
	api.HandleFunc("/articles/{id}/favorite", h.Articles.ToggleFavorite).Methods(http.MethodPost)

	// Highlight routes
	api.HandleFunc("/highlights/counts", h.Highlights.Counts).Methods(http.MethodGet)
	api.HandleFunc("/highlights/grouped", h.Highlights.Grouped).Methods(http.MethodGet)
	api.HandleFunc("/highlights/notes", h.Highlights.Notes).Methods(http.MethodGet)
	api.HandleFunc("/highlights", h.Highlights.ListHighlights).Methods(http.MethodGet)
	api.HandleFunc("/highlights", h.Highlights.CreateHighlight).Methods(http.MethodPost)
	api.HandleFunc("/highlights/{id}", h.Highlights.DeleteHighlight).Methods(http.MethodDelete)

	// Page routes
	api.HandleFunc("/pages/render", h.Pages.Render).Methods(http.MethodPost)
	api.HandleFunc("/pages/highlight", h.Pages.Highlight).Methods(http.MethodPost)

	// Backup routes
	api.HandleFunc("/backup", h.Backup.Export).Methods(http.MethodGet)
	api.HandleFunc("/backup", h.Backup.Import).Methods(http.MethodPost)
	api.HandleFunc("/backup/last-export", h.Backup.LastExport).Methods(http.MethodGet)

	// Configure CORS
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
		},
		ExposedHeaders: []string{
			"Content-Disposition",
		},
		MaxAge: 300, // Maximum value not ignored by any of major browsers
	})

	return c.Handler(router)
}
