package repository

import (
	"context"
	"sync"

	"page-reader/internal/domain"
)

// NotifyingStore wraps a domain.Store and publishes a domain.ChangeEvent after
// every successful mutation. Subscribers run synchronously on the mutating
// goroutine, after the store call has returned.
type NotifyingStore struct {
	domain.Store
	logger domain.Logger

	mu     sync.Mutex
	nextID int
	subs   map[int]func(domain.ChangeEvent)
}

func NewNotifyingStore(store domain.Store, logger domain.Logger) *NotifyingStore {
	return &NotifyingStore{
		Store:  store,
		logger: logger,
		subs:   make(map[int]func(domain.ChangeEvent)),
	}
}

var _ domain.ObservableStore = (*NotifyingStore)(nil)

// Subscribe registers fn and returns a function that removes it.
func (n *NotifyingStore) Subscribe(fn func(domain.ChangeEvent)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	id := n.nextID
	n.subs[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			n.mu.Lock()
			delete(n.subs, id)
			n.mu.Unlock()
		})
	}
}

func (n *NotifyingStore) publish(ev domain.ChangeEvent) {
	n.mu.Lock()
	fns := make([]func(domain.ChangeEvent), 0, len(n.subs))
	for _, fn := range n.subs {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

// publishArticles emits ArticlesChanged with the current set of saved URLs.
func (n *NotifyingStore) publishArticles(ctx context.Context, url string) {
	articles, err := n.Store.ListArticles(ctx)
	if err != nil {
		n.logger.Error("Failed to list articles for change event", err, "url", url)
		return
	}
	urls := make([]string, 0, len(articles))
	for _, a := range articles {
		urls = append(urls, a.URL)
	}
	n.publish(domain.ChangeEvent{Kind: domain.ArticlesChanged, URL: url, SavedURLs: urls})
}

func (n *NotifyingStore) SaveHighlight(ctx context.Context, url string, passage domain.Passage) (string, error) {
	id, err := n.Store.SaveHighlight(ctx, url, passage)
	if err != nil {
		return "", err
	}
	n.publish(domain.ChangeEvent{Kind: domain.HighlightsChanged, URL: url})
	return id, nil
}

func (n *NotifyingStore) DeleteHighlight(ctx context.Context, url, highlightID string) error {
	if err := n.Store.DeleteHighlight(ctx, url, highlightID); err != nil {
		return err
	}
	n.publish(domain.ChangeEvent{Kind: domain.HighlightsChanged, URL: url})
	return nil
}

func (n *NotifyingStore) SaveArticle(ctx context.Context, article *domain.Article) error {
	if err := n.Store.SaveArticle(ctx, article); err != nil {
		return err
	}
	n.publishArticles(ctx, article.URL)
	return nil
}

func (n *NotifyingStore) UpdateArticle(ctx context.Context, article *domain.Article) error {
	if err := n.Store.UpdateArticle(ctx, article); err != nil {
		return err
	}
	n.publishArticles(ctx, article.URL)
	return nil
}

func (n *NotifyingStore) DeleteArticle(ctx context.Context, articleID string) error {
	var url string
	if a, err := n.Store.GetArticle(ctx, articleID); err == nil {
		url = a.URL
	}
	if err := n.Store.DeleteArticle(ctx, articleID); err != nil {
		return err
	}
	n.publishArticles(ctx, url)
	if url != "" {
		n.publish(domain.ChangeEvent{Kind: domain.HighlightsChanged, URL: url})
	}
	return nil
}

func (n *NotifyingStore) ReplaceAll(ctx context.Context, articles []*domain.Article, highlights map[string][]*domain.Highlight) error {
	if err := n.Store.ReplaceAll(ctx, articles, highlights); err != nil {
		return err
	}
	n.publishArticles(ctx, "")
	n.publish(domain.ChangeEvent{Kind: domain.HighlightsChanged})
	return nil
}
