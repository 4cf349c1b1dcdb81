package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"page-reader/internal/domain"
)

// MockStore is an in-memory domain.ObservableStore for service tests.
type MockStore struct {
	mu         sync.Mutex
	articles   []*domain.Article
	highlights map[string][]*domain.Highlight
	meta       map[string]string
	next       int
	subs       map[int]func(domain.ChangeEvent)
	subID      int

	// Err, when set, is returned by every call.
	Err error
	// Delay makes every call wait, honoring context cancellation.
	Delay time.Duration
}

func NewMockStore() *MockStore {
	return &MockStore{
		highlights: make(map[string][]*domain.Highlight),
		meta:       make(map[string]string),
		subs:       make(map[int]func(domain.ChangeEvent)),
	}
}

func (m *MockStore) wait(ctx context.Context) error {
	if m.Err != nil {
		return m.Err
	}
	if m.Delay <= 0 {
		return nil
	}
	select {
	case <-time.After(m.Delay):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MockStore) Subscribe(fn func(domain.ChangeEvent)) func() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subID++
	id := m.subID
	m.subs[id] = fn
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *MockStore) Subscribers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.subs)
}

func (m *MockStore) publish(ev domain.ChangeEvent) {
	m.mu.Lock()
	fns := make([]func(domain.ChangeEvent), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	for _, fn := range fns {
		fn(ev)
	}
}

func (m *MockStore) savedURLs() []string {
	urls := make([]string, 0, len(m.articles))
	for _, a := range m.articles {
		urls = append(urls, a.URL)
	}
	return urls
}

func (m *MockStore) GetHighlights(ctx context.Context, url string) ([]*domain.Highlight, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*domain.Highlight(nil), m.highlights[url]...), nil
}

func (m *MockStore) SaveHighlight(ctx context.Context, url string, p domain.Passage) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.next++
	id := fmt.Sprintf("h%d", m.next)
	m.highlights[url] = append(m.highlights[url], &domain.Highlight{ID: id, Passage: p, CreatedAt: time.Unix(int64(m.next), 0).UTC()})
	m.mu.Unlock()
	m.publish(domain.ChangeEvent{Kind: domain.HighlightsChanged, URL: url})
	return id, nil
}

func (m *MockStore) DeleteHighlight(ctx context.Context, url, id string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	hs := m.highlights[url]
	for i, h := range hs {
		if h.ID == id {
			m.highlights[url] = append(hs[:i:i], hs[i+1:]...)
			break
		}
	}
	if len(m.highlights[url]) == 0 {
		delete(m.highlights, url)
	}
	m.mu.Unlock()
	m.publish(domain.ChangeEvent{Kind: domain.HighlightsChanged, URL: url})
	return nil
}

func (m *MockStore) IsPageSaved(ctx context.Context, url string) (bool, error) {
	if err := m.wait(ctx); err != nil {
		return false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.URL == url {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockStore) SaveArticle(ctx context.Context, a *domain.Article) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	for _, existing := range m.articles {
		if existing.URL == a.URL {
			m.mu.Unlock()
			return domain.ErrArticleExists
		}
	}
	cp := *a
	m.articles = append([]*domain.Article{&cp}, m.articles...)
	urls := m.savedURLs()
	m.mu.Unlock()
	m.publish(domain.ChangeEvent{Kind: domain.ArticlesChanged, URL: a.URL, SavedURLs: urls})
	return nil
}

func (m *MockStore) ListArticles(ctx context.Context) ([]*domain.Article, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Article, 0, len(m.articles))
	for _, a := range m.articles {
		cp := *a
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].SavedAt.After(out[j].SavedAt) })
	return out, nil
}

func (m *MockStore) GetArticle(ctx context.Context, id string) (*domain.Article, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.articles {
		if a.ID == id {
			cp := *a
			return &cp, nil
		}
	}
	return nil, domain.ErrArticleNotFound
}

func (m *MockStore) UpdateArticle(ctx context.Context, a *domain.Article) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	found := false
	for i, existing := range m.articles {
		if existing.ID == a.ID {
			cp := *a
			m.articles[i] = &cp
			found = true
		}
	}
	urls := m.savedURLs()
	m.mu.Unlock()
	if !found {
		return domain.ErrArticleNotFound
	}
	m.publish(domain.ChangeEvent{Kind: domain.ArticlesChanged, URL: a.URL, SavedURLs: urls})
	return nil
}

func (m *MockStore) DeleteArticle(ctx context.Context, id string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	kept := m.articles[:0:0]
	for _, a := range m.articles {
		if a.ID == id {
			delete(m.highlights, a.URL)
			continue
		}
		kept = append(kept, a)
	}
	m.articles = kept
	urls := m.savedURLs()
	m.mu.Unlock()
	m.publish(domain.ChangeEvent{Kind: domain.ArticlesChanged, SavedURLs: urls})
	return nil
}

func (m *MockStore) AllHighlights(ctx context.Context) (map[string][]*domain.Highlight, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string][]*domain.Highlight, len(m.highlights))
	for url, hs := range m.highlights {
		out[url] = append([]*domain.Highlight(nil), hs...)
	}
	return out, nil
}

func (m *MockStore) HighlightCounts(ctx context.Context) (map[string]int, error) {
	if err := m.wait(ctx); err != nil {
		return nil, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]int, len(m.highlights))
	for url, hs := range m.highlights {
		out[url] = len(hs)
	}
	return out, nil
}

func (m *MockStore) ReplaceAll(ctx context.Context, articles []*domain.Article, highlights map[string][]*domain.Highlight) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	m.articles = append([]*domain.Article(nil), articles...)
	m.highlights = make(map[string][]*domain.Highlight, len(highlights))
	for url, hs := range highlights {
		m.highlights[url] = append([]*domain.Highlight(nil), hs...)
	}
	urls := m.savedURLs()
	m.mu.Unlock()
	m.publish(domain.ChangeEvent{Kind: domain.ArticlesChanged, SavedURLs: urls})
	m.publish(domain.ChangeEvent{Kind: domain.HighlightsChanged})
	return nil
}

func (m *MockStore) GetMeta(ctx context.Context, key string) (string, error) {
	if err := m.wait(ctx); err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.meta[key], nil
}

func (m *MockStore) SetMeta(ctx context.Context, key, value string) error {
	if err := m.wait(ctx); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.meta[key] = value
	return nil
}

func (m *MockStore) Close() error { return nil }

var _ domain.ObservableStore = (*MockStore)(nil)
