package domain

import "context"

// HighlightStore is the narrow persistence contract the anchoring core depends on.
type HighlightStore interface {
	// GetHighlights returns every highlight saved for url in creation order.
	GetHighlights(ctx context.Context, url string) ([]*Highlight, error)
	// SaveHighlight persists passage under url and returns the new highlight ID.
	SaveHighlight(ctx context.Context, url string, passage Passage) (string, error)
	// DeleteHighlight removes one highlight. Deleting an unknown ID is not an error.
	DeleteHighlight(ctx context.Context, url string, highlightID string) error
	IsPageSaved(ctx context.Context, url string) (bool, error)
}

// ArticleStore persists saved articles and the bookkeeping around them.
type ArticleStore interface {
	SaveArticle(ctx context.Context, article *Article) error
	// ListArticles returns articles newest first.
	ListArticles(ctx context.Context) ([]*Article, error)
	GetArticle(ctx context.Context, articleID string) (*Article, error)
	UpdateArticle(ctx context.Context, article *Article) error
	// DeleteArticle removes the article and every highlight saved under its URL.
	DeleteArticle(ctx context.Context, articleID string) error
	AllHighlights(ctx context.Context) (map[string][]*Highlight, error)
	HighlightCounts(ctx context.Context) (map[string]int, error)
	// ReplaceAll swaps the whole data set, as done by a backup import.
	ReplaceAll(ctx context.Context, articles []*Article, highlights map[string][]*Highlight) error
	GetMeta(ctx context.Context, key string) (string, error)
	SetMeta(ctx context.Context, key, value string) error
}

// Meta keys.
const MetaLastExportDate = "lastExportDate"

// ChangeKind identifies which part of the store changed.
type ChangeKind string

const (
	ArticlesChanged   ChangeKind = "articles"
	HighlightsChanged ChangeKind = "highlights"
)

// ChangeEvent is emitted after a successful store mutation.
type ChangeEvent struct {
	Kind ChangeKind
	// URL is the page the change applies to; empty for bulk changes.
	URL string
	// SavedURLs is the full set of saved article URLs after an ArticlesChanged event.
	SavedURLs []string
}

// ChangeNotifier lets consumers observe store mutations.
type ChangeNotifier interface {
	// Subscribe registers fn and returns a function that removes it.
	Subscribe(fn func(ChangeEvent)) (cancel func())
}

// Store is the full persistence collaborator.
type Store interface {
	HighlightStore
	ArticleStore
	Close() error
}

// ObservableStore is a Store that publishes change events.
type ObservableStore interface {
	Store
	ChangeNotifier
}
