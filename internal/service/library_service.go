package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"page-reader/internal/domain"
	"page-reader/internal/page"
)

// LibraryService builds the reading list and highlight overviews.
type LibraryService struct {
	store   domain.ArticleStore
	logger  domain.Logger
	timeout time.Duration
}

func NewLibraryService(store domain.ArticleStore, logger domain.Logger, timeout time.Duration) *LibraryService {
	return &LibraryService{store: store, logger: logger, timeout: timeout}
}

// Load returns the library filtered by q, together with highlight counts.
func (s *LibraryService) Load(ctx context.Context, q domain.LibraryQuery) (*domain.LibraryView, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	var (
		articles []*domain.Article
		counts   map[string]int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		articles, err = s.store.ListArticles(gctx)
		return storeError("list articles", err)
	})
	g.Go(func() error {
		var err error
		counts, err = s.store.HighlightCounts(gctx)
		return storeError("highlight counts", err)
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to load library", err)
		return nil, err
	}

	readLater, saved := FilterArticles(articles, q)
	if counts == nil {
		counts = map[string]int{}
	}
	return &domain.LibraryView{ReadLater: readLater, Saved: saved, HighlightCounts: counts}, nil
}

// HighlightCounts returns the number of highlights per URL.
func (s *LibraryService) HighlightCounts(ctx context.Context) (map[string]int, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	counts, err := s.store.HighlightCounts(ctx)
	return counts, storeError("highlight counts", err)
}

// AllHighlights returns every stored highlight keyed by URL.
func (s *LibraryService) AllHighlights(ctx context.Context) (map[string][]*domain.Highlight, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	all, err := s.store.AllHighlights(ctx)
	return all, storeError("all highlights", err)
}

// Groups returns highlights grouped by article, filtered and sorted like the library.
func (s *LibraryService) Groups(ctx context.Context, search, order string) ([]*domain.HighlightGroup, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	var (
		articles   []*domain.Article
		highlights map[string][]*domain.Highlight
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		articles, err = s.store.ListArticles(gctx)
		return storeError("list articles", err)
	})
	g.Go(func() error {
		var err error
		highlights, err = s.store.AllHighlights(gctx)
		return storeError("all highlights", err)
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("Failed to load highlights", err)
		return nil, err
	}
	return GroupHighlights(articles, highlights, search, order), nil
}

// FilterArticles applies search, sort and scope to articles and splits them
// into the read-later and saved sections.
func FilterArticles(articles []*domain.Article, q domain.LibraryQuery) (readLater, saved []*domain.Article) {
	search := strings.ToLower(strings.TrimSpace(q.Search))
	filtered := make([]*domain.Article, 0, len(articles))
	for _, a := range articles {
		if search == "" ||
			strings.Contains(strings.ToLower(a.Title), search) ||
			strings.Contains(strings.ToLower(a.Excerpt), search) ||
			strings.Contains(strings.ToLower(a.URL), search) {
			filtered = append(filtered, a)
		}
	}

	oldest := q.Sort == domain.SortOldest
	sort.SliceStable(filtered, func(i, j int) bool {
		if oldest {
			return filtered[i].SavedAt.Before(filtered[j].SavedAt)
		}
		return filtered[i].SavedAt.After(filtered[j].SavedAt)
	})

	readLater, saved = []*domain.Article{}, []*domain.Article{}
	for _, a := range filtered {
		switch q.Scope {
		case domain.ScopeFavorites:
			if !a.IsFavorite {
				continue
			}
		case domain.ScopeReadLater:
			if a.IsRead {
				continue
			}
		case domain.ScopeSaved:
			if !a.IsRead {
				continue
			}
		}
		if a.IsRead {
			saved = append(saved, a)
		} else {
			readLater = append(readLater, a)
		}
	}
	return readLater, saved
}

// GroupHighlights groups highlights by article URL. A search matches the
// highlight text or the article title. Highlights inside a group and the
// groups themselves are ordered by date following order.
func GroupHighlights(articles []*domain.Article, highlights map[string][]*domain.Highlight, search, order string) []*domain.HighlightGroup {
	byURL := make(map[string]*domain.Article, len(articles))
	for _, a := range articles {
		byURL[a.URL] = a
	}
	search = strings.ToLower(strings.TrimSpace(search))
	oldest := order == domain.SortOldest
	byDate := func(a, b time.Time) bool {
		if oldest {
			return a.Before(b)
		}
		return a.After(b)
	}

	groups := make([]*domain.HighlightGroup, 0, len(highlights))
	for url, hs := range highlights {
		title := page.Domain(url)
		favicon := ""
		if a := byURL[url]; a != nil {
			if a.Title != "" {
				title = a.Title
			}
			favicon = a.Favicon
		}
		if favicon == "" {
			favicon = page.FallbackFavicon(url)
		}

		matched := make([]*domain.Highlight, 0, len(hs))
		for _, h := range hs {
			if search == "" ||
				strings.Contains(strings.ToLower(h.Text), search) ||
				strings.Contains(strings.ToLower(title), search) {
				matched = append(matched, h)
			}
		}
		if len(matched) == 0 {
			continue
		}

		sort.SliceStable(matched, func(i, j int) bool {
			return byDate(matched[i].CreatedAt, matched[j].CreatedAt)
		})
		latest := matched[0].CreatedAt
		for _, h := range matched[1:] {
			if h.CreatedAt.After(latest) {
				latest = h.CreatedAt
			}
		}

		groups = append(groups, &domain.HighlightGroup{
			URL:          url,
			ArticleTitle: title,
			Favicon:      favicon,
			Domain:       page.Domain(url),
			Highlights:   matched,
			LatestDate:   latest,
		})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		if groups[i].LatestDate.Equal(groups[j].LatestDate) {
			return groups[i].URL < groups[j].URL
		}
		return byDate(groups[i].LatestDate, groups[j].LatestDate)
	})
	return groups
}
