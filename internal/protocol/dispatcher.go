package protocol

import (
	"context"
	"errors"
	"fmt"

	"page-reader/internal/domain"
)

// HighlightIndex answers the cross-page highlight queries.
type HighlightIndex interface {
	HighlightCounts(ctx context.Context) (map[string]int, error)
	AllHighlights(ctx context.Context) (map[string][]*domain.Highlight, error)
}

// Dispatcher routes decoded requests to the services and builds the typed responses.
type Dispatcher struct {
	articles   domain.ArticleService
	highlights domain.HighlightService
	index      HighlightIndex
	logger     domain.Logger
}

func NewDispatcher(articles domain.ArticleService, highlights domain.HighlightService, index HighlightIndex, logger domain.Logger) *Dispatcher {
	return &Dispatcher{
		articles:   articles,
		highlights: highlights,
		index:      index,
		logger:     logger,
	}
}

// Handle decodes a raw message and dispatches it.
func (d *Dispatcher) Handle(ctx context.Context, data []byte) (any, error) {
	req, err := Decode(data)
	if err != nil {
		return nil, err
	}
	return d.Dispatch(ctx, req)
}

// Dispatch runs req and returns its response value.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (any, error) {
	d.logger.Debug("Dispatching message", "type", req.Type())

	switch r := req.(type) {
	case SaveArticleRequest:
		article := &domain.Article{
			URL:     r.Article.URL,
			Title:   r.Article.Title,
			Favicon: r.Article.Favicon,
			Excerpt: r.Article.Excerpt,
			IsRead:  r.Article.IsRead,
		}
		saved, err := d.articles.SaveArticle(ctx, article, r.HTML)
		if errors.Is(err, domain.ErrArticleExists) {
			return SaveArticleResponse{Success: false, Reason: ReasonAlreadySaved}, nil
		}
		if err != nil {
			return nil, err
		}
		return SaveArticleResponse{Success: true, Article: saved}, nil

	case GetArticlesRequest:
		articles, err := d.articles.ListArticles(ctx)
		if err != nil {
			return nil, err
		}
		return ArticlesResponse{Articles: articles}, nil

	case DeleteArticleRequest:
		if err := d.articles.DeleteArticle(ctx, r.ArticleID); err != nil {
			return nil, err
		}
		return SuccessResponse{Success: true}, nil

	case ToggleReadRequest:
		isRead, err := d.articles.ToggleRead(ctx, r.ArticleID)
		if err != nil {
			return nil, err
		}
		return ToggleReadResponse{Success: true, IsRead: isRead}, nil

	case ToggleFavoriteRequest:
		isFavorite, err := d.articles.ToggleFavorite(ctx, r.ArticleID)
		if err != nil {
			return nil, err
		}
		return ToggleFavoriteResponse{Success: true, IsFavorite: isFavorite}, nil

	case SaveHighlightRequest:
		id, err := d.highlights.CreateHighlight(ctx, r.URL, domain.Passage{Text: r.Text, Prefix: r.Prefix, Suffix: r.Suffix})
		if err != nil {
			return nil, err
		}
		return SaveHighlightResponse{Success: true, HighlightID: id}, nil

	case GetHighlightsRequest:
		hs, err := d.highlights.ListHighlights(ctx, r.URL)
		if err != nil {
			return nil, err
		}
		if hs == nil {
			hs = []*domain.Highlight{}
		}
		return HighlightsResponse{Highlights: hs}, nil

	case DeleteHighlightRequest:
		if err := d.highlights.DeleteHighlight(ctx, r.URL, r.HighlightID); err != nil {
			return nil, err
		}
		return SuccessResponse{Success: true}, nil

	case GetHighlightCountsRequest:
		counts, err := d.index.HighlightCounts(ctx)
		if err != nil {
			return nil, err
		}
		return HighlightCountsResponse{Counts: counts}, nil

	case GetAllHighlightsRequest:
		all, err := d.index.AllHighlights(ctx)
		if err != nil {
			return nil, err
		}
		return AllHighlightsResponse{Highlights: all}, nil

	case IsPageSavedRequest:
		saved, err := d.articles.IsPageSaved(ctx, r.URL)
		if err != nil {
			return nil, err
		}
		return IsPageSavedResponse{IsSaved: saved}, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, req.Type())
}
