package service

import (
	"context"
	"strings"
	"time"

	"page-reader/internal/domain"
	"page-reader/internal/page"
	"page-reader/pkg/idgen"
)

type ArticleService struct {
	store   domain.Store
	logger  domain.Logger
	newID   idgen.Generator
	now     func() time.Time
	timeout time.Duration
}

// ArticleOption customizes an ArticleService.
type ArticleOption func(*ArticleService)

// WithIDGenerator replaces the article id generator.
func WithIDGenerator(gen idgen.Generator) ArticleOption {
	return func(s *ArticleService) { s.newID = gen }
}

// WithClock replaces the clock used for savedAt.
func WithClock(now func() time.Time) ArticleOption {
	return func(s *ArticleService) { s.now = now }
}

// WithArticleTimeout bounds each store call.
func WithArticleTimeout(d time.Duration) ArticleOption {
	return func(s *ArticleService) { s.timeout = d }
}

func NewArticleService(store domain.Store, logger domain.Logger, opts ...ArticleOption) *ArticleService {
	s := &ArticleService{
		store:   store,
		logger:  logger,
		newID:   idgen.Default,
		now:     time.Now,
		timeout: DefaultStoreTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.ArticleService = (*ArticleService)(nil)

// SaveArticle stores a new article. Missing title, favicon and excerpt are
// taken from pageHTML when it is given. Saving a URL twice fails with
// domain.ErrArticleExists.
func (s *ArticleService) SaveArticle(ctx context.Context, article *domain.Article, pageHTML string) (*domain.Article, error) {
	if article == nil {
		return nil, &domain.ValidationError{Field: "article", Message: "article is required"}
	}
	url, err := requireURL(article.URL)
	if err != nil {
		return nil, err
	}

	if pageHTML != "" {
		summary, err := page.Summarize(pageHTML, url)
		if err != nil {
			s.logger.Warn("Failed to summarize page", "url", url, "error", err)
		} else {
			if article.Title == "" {
				article.Title = summary.Title
			}
			if article.Favicon == "" {
				article.Favicon = summary.Favicon
			}
			if article.Excerpt == "" {
				article.Excerpt = summary.Excerpt
			}
		}
	}

	saved := &domain.Article{
		ID:         s.newID(),
		URL:        url,
		Title:      page.Plain(article.Title),
		Favicon:    strings.TrimSpace(article.Favicon),
		Excerpt:    page.Excerpt(page.Plain(article.Excerpt)),
		SavedAt:    s.now().UTC(),
		IsRead:     article.IsRead,
		IsFavorite: article.IsFavorite,
	}
	if saved.Title == "" {
		saved.Title = page.Untitled
	}

	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	if err := s.store.SaveArticle(ctx, saved); err != nil {
		return nil, storeError("save article", err)
	}
	s.logger.Info("Article saved", "article_id", saved.ID, "url", saved.URL)
	return saved, nil
}

func (s *ArticleService) ListArticles(ctx context.Context) ([]*domain.Article, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	articles, err := s.store.ListArticles(ctx)
	return articles, storeError("list articles", err)
}

// DeleteArticle removes the article and its highlights. Unknown ids are not an error.
func (s *ArticleService) DeleteArticle(ctx context.Context, articleID string) error {
	if articleID == "" {
		return &domain.ValidationError{Field: "articleId", Message: "article id is required"}
	}
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	if err := s.store.DeleteArticle(ctx, articleID); err != nil {
		return storeError("delete article", err)
	}
	s.logger.Info("Article deleted", "article_id", articleID)
	return nil
}

// ToggleRead flips the read flag and returns its new value.
func (s *ArticleService) ToggleRead(ctx context.Context, articleID string) (bool, error) {
	a, err := s.toggle(ctx, articleID, func(a *domain.Article) { a.IsRead = !a.IsRead })
	if err != nil {
		return false, err
	}
	return a.IsRead, nil
}

// ToggleFavorite flips the favorite flag and returns its new value.
func (s *ArticleService) ToggleFavorite(ctx context.Context, articleID string) (bool, error) {
	a, err := s.toggle(ctx, articleID, func(a *domain.Article) { a.IsFavorite = !a.IsFavorite })
	if err != nil {
		return false, err
	}
	return a.IsFavorite, nil
}

func (s *ArticleService) IsPageSaved(ctx context.Context, url string) (bool, error) {
	url, err := requireURL(url)
	if err != nil {
		return false, err
	}
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	saved, err := s.store.IsPageSaved(ctx, url)
	return saved, storeError("is page saved", err)
}

func (s *ArticleService) toggle(ctx context.Context, articleID string, flip func(*domain.Article)) (*domain.Article, error) {
	if articleID == "" {
		return nil, &domain.ValidationError{Field: "articleId", Message: "article id is required"}
	}
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	a, err := s.store.GetArticle(ctx, articleID)
	if err != nil {
		return nil, storeError("get article", err)
	}
	flip(a)
	if err := s.store.UpdateArticle(ctx, a); err != nil {
		return nil, storeError("update article", err)
	}
	s.logger.Info("Article updated", "article_id", a.ID, "is_read", a.IsRead, "is_favorite", a.IsFavorite)
	return a, nil
}
