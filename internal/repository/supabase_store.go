package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"page-reader/internal/domain"
	"page-reader/pkg/idgen"

	"github.com/supabase-community/postgrest-go"
)

const (
	articlesTable   = "articles"
	highlightsTable = "highlights"
	metaTable       = "reader_meta"
)

// SupabaseStore implements domain.Store on top of PostgREST tables.
//
// ReplaceAll is not atomic here: PostgREST offers no multi-table transaction,
// so a failure halfway leaves the tables partially replaced.
type SupabaseStore struct {
	db     TableSource
	logger domain.Logger
	newID  idgen.Generator
	now    func() time.Time
}

func NewSupabaseStore(db TableSource, logger domain.Logger) *SupabaseStore {
	return &SupabaseStore{
		db:     db,
		logger: logger,
		newID:  idgen.Default,
		now:    time.Now,
	}
}

func (r *SupabaseStore) client(ctx context.Context) (TableSource, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.db == nil {
		return nil, fmt.Errorf("supabase client not initialized")
	}
	return r.db, nil
}

func (r *SupabaseStore) GetHighlights(ctx context.Context, url string) ([]*domain.Highlight, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, unavailable("get highlights", err)
	}

	data, _, err := client.From(highlightsTable).
		Select("*", "", false).
		Eq("url", url).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, unavailable("get highlights", err)
	}

	rows, err := decodeRows(data)
	if err != nil {
		return nil, unavailable("get highlights", err)
	}
	out := make([]*domain.Highlight, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapToHighlight(row))
	}
	return out, nil
}

func (r *SupabaseStore) SaveHighlight(ctx context.Context, url string, passage domain.Passage) (string, error) {
	client, err := r.client(ctx)
	if err != nil {
		return "", unavailable("save highlight", err)
	}

	row := highlightRow(url, &domain.Highlight{
		ID:        r.newID(),
		Passage:   passage,
		CreatedAt: r.now().UTC(),
	})
	// Request "representation" so PostgREST returns the inserted row.
	data, _, err := client.From(highlightsTable).
		Insert(row, false, "", "representation", "").
		Execute()
	if err != nil {
		return "", unavailable("save highlight", err)
	}

	rows, err := decodeRows(data)
	if err != nil {
		return "", unavailable("save highlight", err)
	}
	if len(rows) == 0 {
		return "", unavailable("save highlight", fmt.Errorf("empty response"))
	}
	return getString(rows[0], "id"), nil
}

func (r *SupabaseStore) DeleteHighlight(ctx context.Context, url, highlightID string) error {
	client, err := r.client(ctx)
	if err != nil {
		return unavailable("delete highlight", err)
	}
	_, _, err = client.From(highlightsTable).
		Delete("", "").
		Eq("id", highlightID).
		Eq("url", url).
		Execute()
	if err != nil {
		return unavailable("delete highlight", err)
	}
	return nil
}

func (r *SupabaseStore) IsPageSaved(ctx context.Context, url string) (bool, error) {
	client, err := r.client(ctx)
	if err != nil {
		return false, unavailable("is page saved", err)
	}
	data, _, err := client.From(articlesTable).
		Select("id", "", false).
		Eq("url", url).
		Limit(1, "").
		Execute()
	if err != nil {
		return false, unavailable("is page saved", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return false, unavailable("is page saved", err)
	}
	return len(rows) > 0, nil
}

func (r *SupabaseStore) SaveArticle(ctx context.Context, a *domain.Article) error {
	saved, err := r.IsPageSaved(ctx, a.URL)
	if err != nil {
		return err
	}
	if saved {
		return domain.ErrArticleExists
	}

	client, err := r.client(ctx)
	if err != nil {
		return unavailable("save article", err)
	}
	_, _, err = client.From(articlesTable).Insert(articleRow(a), false, "", "", "").Execute()
	if err != nil {
		// Lost a race with another writer on the unique url index.
		if strings.Contains(err.Error(), "23505") {
			return domain.ErrArticleExists
		}
		return unavailable("save article", err)
	}
	return nil
}

func (r *SupabaseStore) ListArticles(ctx context.Context) ([]*domain.Article, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, unavailable("list articles", err)
	}
	data, _, err := client.From(articlesTable).
		Select("*", "", false).
		Order("saved_at", &postgrest.OrderOpts{Ascending: false}).
		Execute()
	if err != nil {
		return nil, unavailable("list articles", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, unavailable("list articles", err)
	}
	out := make([]*domain.Article, 0, len(rows))
	for _, row := range rows {
		out = append(out, mapToArticle(row))
	}
	return out, nil
}

func (r *SupabaseStore) GetArticle(ctx context.Context, articleID string) (*domain.Article, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, unavailable("get article", err)
	}
	data, _, err := client.From(articlesTable).
		Select("*", "", false).
		Eq("id", articleID).
		Limit(1, "").
		Execute()
	if err != nil {
		return nil, unavailable("get article", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, unavailable("get article", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrArticleNotFound
	}
	return mapToArticle(rows[0]), nil
}

func (r *SupabaseStore) UpdateArticle(ctx context.Context, a *domain.Article) error {
	client, err := r.client(ctx)
	if err != nil {
		return unavailable("update article", err)
	}
	data := map[string]interface{}{
		"title":       sanitizeText(a.Title),
		"favicon":     a.Favicon,
		"excerpt":     sanitizeText(a.Excerpt),
		"is_read":     a.IsRead,
		"is_favorite": a.IsFavorite,
	}
	resp, _, err := client.From(articlesTable).
		Update(data, "representation", "").
		Eq("id", a.ID).
		Execute()
	if err != nil {
		return unavailable("update article", err)
	}
	rows, err := decodeRows(resp)
	if err != nil {
		return unavailable("update article", err)
	}
	if len(rows) == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func (r *SupabaseStore) DeleteArticle(ctx context.Context, articleID string) error {
	a, err := r.GetArticle(ctx, articleID)
	if errors.Is(err, domain.ErrArticleNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	client, err := r.client(ctx)
	if err != nil {
		return unavailable("delete article", err)
	}
	if _, _, err := client.From(highlightsTable).Delete("", "").Eq("url", a.URL).Execute(); err != nil {
		return unavailable("delete article highlights", err)
	}
	if _, _, err := client.From(articlesTable).Delete("", "").Eq("id", articleID).Execute(); err != nil {
		return unavailable("delete article", err)
	}
	return nil
}

func (r *SupabaseStore) AllHighlights(ctx context.Context) (map[string][]*domain.Highlight, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, unavailable("all highlights", err)
	}
	data, _, err := client.From(highlightsTable).
		Select("*", "", false).
		Order("created_at", &postgrest.OrderOpts{Ascending: true}).
		Execute()
	if err != nil {
		return nil, unavailable("all highlights", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, unavailable("all highlights", err)
	}
	out := map[string][]*domain.Highlight{}
	for _, row := range rows {
		url := getString(row, "url")
		out[url] = append(out[url], mapToHighlight(row))
	}
	return out, nil
}

func (r *SupabaseStore) HighlightCounts(ctx context.Context) (map[string]int, error) {
	client, err := r.client(ctx)
	if err != nil {
		return nil, unavailable("highlight counts", err)
	}
	data, _, err := client.From(highlightsTable).Select("url", "", false).Execute()
	if err != nil {
		return nil, unavailable("highlight counts", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return nil, unavailable("highlight counts", err)
	}
	out := map[string]int{}
	for _, row := range rows {
		out[getString(row, "url")]++
	}
	return out, nil
}

func (r *SupabaseStore) ReplaceAll(ctx context.Context, articles []*domain.Article, highlights map[string][]*domain.Highlight) error {
	client, err := r.client(ctx)
	if err != nil {
		return unavailable("replace all", err)
	}

	// PostgREST refuses unfiltered deletes, so match every row explicitly.
	if _, _, err := client.From(highlightsTable).Delete("", "").Neq("id", "").Execute(); err != nil {
		return unavailable("clear highlights", err)
	}
	if _, _, err := client.From(articlesTable).Delete("", "").Neq("id", "").Execute(); err != nil {
		return unavailable("clear articles", err)
	}

	if len(articles) > 0 {
		rows := make([]map[string]interface{}, 0, len(articles))
		for _, a := range articles {
			rows = append(rows, articleRow(a))
		}
		if _, _, err := client.From(articlesTable).Insert(rows, false, "", "", "").Execute(); err != nil {
			return unavailable("insert articles", err)
		}
	}

	urls := make([]string, 0, len(highlights))
	for url := range highlights {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	var rows []map[string]interface{}
	for _, url := range urls {
		for _, h := range highlights[url] {
			rows = append(rows, highlightRow(url, h))
		}
	}
	if len(rows) > 0 {
		if _, _, err := client.From(highlightsTable).Insert(rows, false, "", "", "").Execute(); err != nil {
			return unavailable("insert highlights", err)
		}
	}

	r.logger.Info("Store contents replaced", "articles", len(articles), "highlights", len(rows))
	return nil
}

func (r *SupabaseStore) GetMeta(ctx context.Context, key string) (string, error) {
	client, err := r.client(ctx)
	if err != nil {
		return "", unavailable("get meta", err)
	}
	data, _, err := client.From(metaTable).Select("value", "", false).Eq("key", key).Limit(1, "").Execute()
	if err != nil {
		return "", unavailable("get meta", err)
	}
	rows, err := decodeRows(data)
	if err != nil {
		return "", unavailable("get meta", err)
	}
	if len(rows) == 0 {
		return "", nil
	}
	return getString(rows[0], "value"), nil
}

func (r *SupabaseStore) SetMeta(ctx context.Context, key, value string) error {
	client, err := r.client(ctx)
	if err != nil {
		return unavailable("set meta", err)
	}
	data := map[string]interface{}{"key": key, "value": value}
	if _, _, err := client.From(metaTable).Upsert(data, "key", "", "").Execute(); err != nil {
		return unavailable("set meta", err)
	}
	return nil
}

// Close is a no-op: the HTTP client holds no resources that need releasing.
func (r *SupabaseStore) Close() error { return nil }

var _ domain.Store = (*SupabaseStore)(nil)

func decodeRows(data []byte) ([]map[string]interface{}, error) {
	var rows []map[string]interface{}
	if len(data) == 0 {
		return rows, nil
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return rows, nil
}

func articleRow(a *domain.Article) map[string]interface{} {
	return map[string]interface{}{
		"id":          a.ID,
		"url":         a.URL,
		"title":       sanitizeText(a.Title),
		"favicon":     a.Favicon,
		"excerpt":     sanitizeText(a.Excerpt),
		"saved_at":    a.SavedAt.UTC().Format(time.RFC3339Nano),
		"is_read":     a.IsRead,
		"is_favorite": a.IsFavorite,
	}
}

func highlightRow(url string, h *domain.Highlight) map[string]interface{} {
	return map[string]interface{}{
		"id":         h.ID,
		"url":        url,
		"text":       sanitizeText(h.Text),
		"prefix":     sanitizeText(h.Prefix),
		"suffix":     sanitizeText(h.Suffix),
		"created_at": h.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func mapToArticle(data map[string]interface{}) *domain.Article {
	return &domain.Article{
		ID:         getString(data, "id"),
		URL:        getString(data, "url"),
		Title:      getString(data, "title"),
		Favicon:    getString(data, "favicon"),
		Excerpt:    getString(data, "excerpt"),
		SavedAt:    getTime(data, "saved_at"),
		IsRead:     getBool(data, "is_read"),
		IsFavorite: getBool(data, "is_favorite"),
	}
}

func mapToHighlight(data map[string]interface{}) *domain.Highlight {
	return &domain.Highlight{
		ID: getString(data, "id"),
		Passage: domain.Passage{
			Text:   getString(data, "text"),
			Prefix: getString(data, "prefix"),
			Suffix: getString(data, "suffix"),
		},
		CreatedAt: getTime(data, "created_at"),
	}
}

var reControl = regexp.MustCompile(`[\x00]`)

// sanitizeText removes characters that PostgreSQL rejects in text fields (notably NUL bytes).
func sanitizeText(s string) string {
	if s == "" {
		return s
	}
	s = reControl.ReplaceAllString(s, "")
	// Escaped NUL sequences show up in some scraped pages too.
	return strings.ReplaceAll(s, "\\u0000", "")
}

// Helper functions for type conversion
func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok && val != nil {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

func getBool(data map[string]interface{}, key string) bool {
	if val, ok := data[key]; ok && val != nil {
		switch v := val.(type) {
		case bool:
			return v
		case float64:
			return v != 0
		case string:
			return v == "true"
		}
	}
	return false
}

func getTime(data map[string]interface{}, key string) time.Time {
	raw := getString(data, key)
	if raw == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC()
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC()
	}
	return time.Time{}
}
