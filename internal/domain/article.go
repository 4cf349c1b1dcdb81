package domain

import (
	"context"
	"time"
)

// Article is a page the user saved for later reading.
type Article struct {
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	Title      string    `json:"title"`
	Favicon    string    `json:"favicon"`
	Excerpt    string    `json:"excerpt"`
	SavedAt    time.Time `json:"savedAt"`
	IsRead     bool      `json:"isRead"`
	IsFavorite bool      `json:"isFavorite"`
}

// Library scopes used when listing articles.
const (
	ScopeAll       = "all"
	ScopeReadLater = "read-later"
	ScopeSaved     = "saved"
	ScopeFavorites = "favorites"
)

// Sort orders used when listing articles and highlights.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
)

// LibraryQuery filters the article library.
type LibraryQuery struct {
	Search string
	Scope  string
	Sort   string
}

// Validate reports an unknown scope or sort order. Empty values mean the defaults.
func (q LibraryQuery) Validate() error {
	switch q.Scope {
	case "", ScopeAll, ScopeReadLater, ScopeSaved, ScopeFavorites:
	default:
		return &ValidationError{Field: "scope", Message: "scope must be one of all, read-later, saved, favorites"}
	}
	switch q.Sort {
	case "", SortNewest, SortOldest:
	default:
		return &ValidationError{Field: "sort", Message: "sort must be newest or oldest"}
	}
	return nil
}

// LibraryView is the library split into its two sections.
type LibraryView struct {
	ReadLater       []*Article     `json:"readLater"`
	Saved           []*Article     `json:"saved"`
	HighlightCounts map[string]int `json:"highlightCounts"`
}

// HighlightGroup collects the highlights made on one article.
type HighlightGroup struct {
	URL          string       `json:"url"`
	ArticleTitle string       `json:"articleTitle"`
	Favicon      string       `json:"favicon"`
	Domain       string       `json:"domain"`
	Highlights   []*Highlight `json:"highlights"`
	LatestDate   time.Time    `json:"latestDate"`
}

// ArticleService defines the use-case operations for saved articles.
type ArticleService interface {
	SaveArticle(ctx context.Context, article *Article, pageHTML string) (*Article, error)
	ListArticles(ctx context.Context) ([]*Article, error)
	DeleteArticle(ctx context.Context, articleID string) error
	ToggleRead(ctx context.Context, articleID string) (bool, error)
	ToggleFavorite(ctx context.Context, articleID string) (bool, error)
	IsPageSaved(ctx context.Context, url string) (bool, error)
}
