package service

import (
	"context"
	"time"

	"page-reader/internal/domain"
)

// DefaultStoreTimeout bounds every store call made by the services.
const DefaultStoreTimeout = 5 * time.Second

// timeoutStore bounds each HighlightStore call with its own deadline.
type timeoutStore struct {
	next    domain.HighlightStore
	timeout time.Duration
}

func withTimeout(store domain.HighlightStore, timeout time.Duration) domain.HighlightStore {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return &timeoutStore{next: store, timeout: timeout}
}

func (s *timeoutStore) GetHighlights(ctx context.Context, url string) ([]*domain.Highlight, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	highlights, err := s.next.GetHighlights(ctx, url)
	return highlights, storeError("get highlights", err)
}

func (s *timeoutStore) SaveHighlight(ctx context.Context, url string, passage domain.Passage) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	id, err := s.next.SaveHighlight(ctx, url, passage)
	return id, storeError("save highlight", err)
}

func (s *timeoutStore) DeleteHighlight(ctx context.Context, url, highlightID string) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return storeError("delete highlight", s.next.DeleteHighlight(ctx, url, highlightID))
}

func (s *timeoutStore) IsPageSaved(ctx context.Context, url string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	saved, err := s.next.IsPageSaved(ctx, url)
	return saved, storeError("is page saved", err)
}

// bounded returns a context carrying the store deadline.
func bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}
