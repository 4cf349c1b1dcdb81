package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"page-reader/internal/domain"
)

func day(n int) time.Time {
	return time.Date(2024, 1, n, 0, 0, 0, 0, time.UTC)
}

func libraryFixture() []*domain.Article {
	return []*domain.Article{
		{ID: "1", URL: "https://go.dev/blog", Title: "Go Blog", Excerpt: "release notes", SavedAt: day(1)},
		{ID: "2", URL: "https://example.com/rust", Title: "Rust", Excerpt: "ownership", SavedAt: day(3), IsRead: true},
		{ID: "3", URL: "https://news.site/story", Title: "Story", Excerpt: "about Go", SavedAt: day(2), IsFavorite: true},
		{ID: "4", URL: "https://fav.read/x", Title: "Fav read", SavedAt: day(4), IsRead: true, IsFavorite: true},
	}
}

func ids(articles []*domain.Article) string {
	out := ""
	for _, a := range articles {
		out += a.ID
	}
	return out
}

func TestFilterArticles(t *testing.T) {
	cases := []struct {
		name      string
		query     domain.LibraryQuery
		readLater string
		saved     string
	}{
		{"all newest", domain.LibraryQuery{}, "31", "42"},
		{"all oldest", domain.LibraryQuery{Sort: domain.SortOldest}, "13", "24"},
		{"read later", domain.LibraryQuery{Scope: domain.ScopeReadLater}, "31", ""},
		{"saved", domain.LibraryQuery{Scope: domain.ScopeSaved}, "", "42"},
		{"favorites", domain.LibraryQuery{Scope: domain.ScopeFavorites}, "3", "4"},
		{"search title and excerpt", domain.LibraryQuery{Search: "  GO "}, "31", ""},
		{"search url", domain.LibraryQuery{Search: "example.com"}, "", "2"},
		{"no match", domain.LibraryQuery{Search: "python"}, "", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			readLater, saved := FilterArticles(libraryFixture(), tc.query)
			if ids(readLater) != tc.readLater {
				t.Errorf("Expected read later %q, got %q", tc.readLater, ids(readLater))
			}
			if ids(saved) != tc.saved {
				t.Errorf("Expected saved %q, got %q", tc.saved, ids(saved))
			}
		})
	}
}

func TestGroupHighlights(t *testing.T) {
	articles := []*domain.Article{
		{URL: "https://www.known.com/a", Title: "Known", Favicon: "https://known.com/icon.png"},
	}
	highlights := map[string][]*domain.Highlight{
		"https://www.known.com/a": {
			{ID: "k1", Passage: domain.Passage{Text: "first"}, CreatedAt: day(1)},
			{ID: "k2", Passage: domain.Passage{Text: "second"}, CreatedAt: day(5)},
		},
		"https://www.orphan.org/p": {
			{ID: "o1", Passage: domain.Passage{Text: "orphan text"}, CreatedAt: day(3)},
		},
	}

	groups := GroupHighlights(articles, highlights, "", domain.SortNewest)
	if len(groups) != 2 {
		t.Fatalf("Expected 2 groups, got %d", len(groups))
	}
	if groups[0].ArticleTitle != "Known" || groups[0].Highlights[0].ID != "k2" || !groups[0].LatestDate.Equal(day(5)) {
		t.Errorf("Unexpected first group %+v", groups[0])
	}
	orphan := groups[1]
	if orphan.ArticleTitle != "orphan.org" || orphan.Domain != "orphan.org" {
		t.Errorf("Expected domain fallback title, got %+v", orphan)
	}
	if orphan.Favicon != "https://www.google.com/s2/favicons?domain=orphan.org&sz=64" {
		t.Errorf("Expected favicon fallback, got %q", orphan.Favicon)
	}

	groups = GroupHighlights(articles, highlights, "", domain.SortOldest)
	if groups[0].URL != "https://www.orphan.org/p" || groups[1].Highlights[0].ID != "k1" {
		t.Errorf("Expected oldest ordering, got %s first", groups[0].URL)
	}
	if !groups[1].LatestDate.Equal(day(5)) {
		t.Errorf("Expected latest date to stay the newest highlight, got %v", groups[1].LatestDate)
	}

	groups = GroupHighlights(articles, highlights, "SECOND", domain.SortNewest)
	if len(groups) != 1 || len(groups[0].Highlights) != 1 || groups[0].Highlights[0].ID != "k2" {
		t.Errorf("Expected search on highlight text, got %+v", groups)
	}

	groups = GroupHighlights(articles, highlights, "orphan.org", domain.SortNewest)
	if len(groups) != 1 || groups[0].URL != "https://www.orphan.org/p" {
		t.Errorf("Expected search on fallback title, got %+v", groups)
	}
}

func TestLibraryService_Load(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	for _, a := range libraryFixture() {
		if err := store.SaveArticle(ctx, a); err != nil {
			t.Fatalf("save: %v", err)
		}
	}
	_, _ = store.SaveHighlight(ctx, "https://go.dev/blog", domain.Passage{Text: "generics"})
	_, _ = store.SaveHighlight(ctx, "https://go.dev/blog", domain.Passage{Text: "iterators"})

	svc := NewLibraryService(store, NewMockLogger(), time.Second)
	view, err := svc.Load(ctx, domain.LibraryQuery{Scope: domain.ScopeAll})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if ids(view.ReadLater) != "31" || ids(view.Saved) != "42" {
		t.Errorf("Unexpected sections %q / %q", ids(view.ReadLater), ids(view.Saved))
	}
	if view.HighlightCounts["https://go.dev/blog"] != 2 {
		t.Errorf("Expected 2 highlights counted, got %v", view.HighlightCounts)
	}

	groups, err := svc.Groups(ctx, "", domain.SortNewest)
	if err != nil || len(groups) != 1 || groups[0].ArticleTitle != "Go Blog" {
		t.Errorf("Unexpected groups %+v (%v)", groups, err)
	}

	store.Err = domain.ErrStoreUnavailable
	if _, err := svc.Load(ctx, domain.LibraryQuery{}); !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestLibraryService_LoadRejectsUnknownQuery(t *testing.T) {
	svc := NewLibraryService(NewMockStore(), NewMockLogger(), time.Second)

	for _, q := range []domain.LibraryQuery{{Scope: "everything"}, {Sort: "random"}} {
		_, err := svc.Load(context.Background(), q)
		var verr *domain.ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("Expected validation error for %+v, got %v", q, err)
		}
	}
}
