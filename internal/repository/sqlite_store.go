package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"page-reader/internal/domain"
	"page-reader/pkg/idgen"
)

// SQLiteStore keeps articles, highlights and metadata in a local SQLite file.
type SQLiteStore struct {
	db    *sql.DB
	newID idgen.Generator
	now   func() time.Time
}

// SQLiteOption customizes a SQLiteStore.
type SQLiteOption func(*SQLiteStore)

// WithSQLiteIDs replaces the highlight id generator.
func WithSQLiteIDs(gen idgen.Generator) SQLiteOption {
	return func(s *SQLiteStore) { s.newID = gen }
}

// WithSQLiteClock replaces the clock used for highlight timestamps.
func WithSQLiteClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) { s.now = now }
}

// OpenSQLite opens (creating if needed) the database at path and migrates it.
func OpenSQLite(path string, opts ...SQLiteOption) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if path == ":memory:" {
		// Every pooled connection would get its own empty database.
		db.SetMaxOpenConns(1)
	}

	s := &SQLiteStore{db: db, newID: idgen.Default, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) migrate() error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`PRAGMA busy_timeout=5000;`,
		`CREATE TABLE IF NOT EXISTS articles (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			url TEXT NOT NULL UNIQUE,
			title TEXT NOT NULL,
			favicon TEXT NOT NULL DEFAULT '',
			excerpt TEXT NOT NULL DEFAULT '',
			saved_at INTEGER NOT NULL,
			is_read INTEGER NOT NULL DEFAULT 0,
			is_favorite INTEGER NOT NULL DEFAULT 0
		);`,
		`CREATE TABLE IF NOT EXISTS highlights (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			url TEXT NOT NULL,
			text TEXT NOT NULL,
			prefix TEXT NOT NULL DEFAULT '',
			suffix TEXT NOT NULL DEFAULT '',
			created_at INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_highlights_url ON highlights(url, seq);`,
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) GetHighlights(ctx context.Context, url string) ([]*domain.Highlight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, text, prefix, suffix, created_at FROM highlights
		WHERE url = ? ORDER BY seq ASC
	`, url)
	if err != nil {
		return nil, unavailable("get highlights", err)
	}
	defer rows.Close()

	out := []*domain.Highlight{}
	for rows.Next() {
		h, err := scanHighlight(rows)
		if err != nil {
			return nil, unavailable("scan highlight", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get highlights", err)
	}
	return out, nil
}

func (s *SQLiteStore) SaveHighlight(ctx context.Context, url string, passage domain.Passage) (string, error) {
	id := s.newID()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO highlights (id, url, text, prefix, suffix, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, id, url, passage.Text, passage.Prefix, passage.Suffix, s.now().UTC().UnixNano())
	if err != nil {
		return "", unavailable("save highlight", err)
	}
	return id, nil
}

func (s *SQLiteStore) DeleteHighlight(ctx context.Context, url, highlightID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM highlights WHERE url = ? AND id = ?`, url, highlightID); err != nil {
		return unavailable("delete highlight", err)
	}
	return nil
}

func (s *SQLiteStore) IsPageSaved(ctx context.Context, url string) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM articles WHERE url = ?`, url).Scan(&n); err != nil {
		return false, unavailable("is page saved", err)
	}
	return n > 0, nil
}

func (s *SQLiteStore) SaveArticle(ctx context.Context, a *domain.Article) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO articles (id, url, title, favicon, excerpt, saved_at, is_read, is_favorite)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.URL, a.Title, a.Favicon, a.Excerpt, a.SavedAt.UTC().UnixNano(), a.IsRead, a.IsFavorite)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrArticleExists
		}
		return unavailable("save article", err)
	}
	return nil
}

func (s *SQLiteStore) ListArticles(ctx context.Context) ([]*domain.Article, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, url, title, favicon, excerpt, saved_at, is_read, is_favorite FROM articles
		ORDER BY saved_at DESC, seq DESC
	`)
	if err != nil {
		return nil, unavailable("list articles", err)
	}
	defer rows.Close()

	out := []*domain.Article{}
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, unavailable("scan article", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("list articles", err)
	}
	return out, nil
}

func (s *SQLiteStore) GetArticle(ctx context.Context, articleID string) (*domain.Article, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, url, title, favicon, excerpt, saved_at, is_read, is_favorite FROM articles
		WHERE id = ?
	`, articleID)
	a, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrArticleNotFound
	}
	if err != nil {
		return nil, unavailable("get article", err)
	}
	return a, nil
}

// UpdateArticle rewrites the mutable fields of an article. The URL is fixed
// once saved since highlights are keyed by it.
func (s *SQLiteStore) UpdateArticle(ctx context.Context, a *domain.Article) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE articles SET title = ?, favicon = ?, excerpt = ?, is_read = ?, is_favorite = ?
		WHERE id = ?
	`, a.Title, a.Favicon, a.Excerpt, a.IsRead, a.IsFavorite, a.ID)
	if err != nil {
		return unavailable("update article", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("update article", err)
	}
	if n == 0 {
		return domain.ErrArticleNotFound
	}
	return nil
}

func (s *SQLiteStore) DeleteArticle(ctx context.Context, articleID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM highlights WHERE url IN (SELECT url FROM articles WHERE id = ?)
	`, articleID); err != nil {
		return unavailable("delete article highlights", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, articleID); err != nil {
		return unavailable("delete article", err)
	}
	if err := tx.Commit(); err != nil {
		return unavailable("commit tx", err)
	}
	return nil
}

func (s *SQLiteStore) AllHighlights(ctx context.Context) (map[string][]*domain.Highlight, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT url, id, text, prefix, suffix, created_at FROM highlights ORDER BY seq ASC
	`)
	if err != nil {
		return nil, unavailable("all highlights", err)
	}
	defer rows.Close()

	out := map[string][]*domain.Highlight{}
	for rows.Next() {
		var (
			url       string
			h         domain.Highlight
			createdAt int64
		)
		if err := rows.Scan(&url, &h.ID, &h.Text, &h.Prefix, &h.Suffix, &createdAt); err != nil {
			return nil, unavailable("scan highlight", err)
		}
		h.CreatedAt = time.Unix(0, createdAt).UTC()
		out[url] = append(out[url], &h)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("all highlights", err)
	}
	return out, nil
}

func (s *SQLiteStore) HighlightCounts(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT url, COUNT(1) FROM highlights GROUP BY url`)
	if err != nil {
		return nil, unavailable("highlight counts", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			url string
			n   int
		)
		if err := rows.Scan(&url, &n); err != nil {
			return nil, unavailable("scan highlight count", err)
		}
		out[url] = n
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("highlight counts", err)
	}
	return out, nil
}

// ReplaceAll swaps every article and highlight in one transaction. Highlights
// keep the order they have in their slices.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, articles []*domain.Article, highlights map[string][]*domain.Highlight) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("begin tx", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM highlights`); err != nil {
		return unavailable("clear highlights", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM articles`); err != nil {
		return unavailable("clear articles", err)
	}

	for _, a := range articles {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO articles (id, url, title, favicon, excerpt, saved_at, is_read, is_favorite)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, a.ID, a.URL, a.Title, a.Favicon, a.Excerpt, a.SavedAt.UTC().UnixNano(), a.IsRead, a.IsFavorite); err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("insert article %s: %w", a.URL, domain.ErrArticleExists)
			}
			return unavailable("insert article", err)
		}
	}

	urls := make([]string, 0, len(highlights))
	for url := range highlights {
		urls = append(urls, url)
	}
	sort.Strings(urls)
	for _, url := range urls {
		for _, h := range highlights[url] {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO highlights (id, url, text, prefix, suffix, created_at)
				VALUES (?, ?, ?, ?, ?, ?)
			`, h.ID, url, h.Text, h.Prefix, h.Suffix, h.CreatedAt.UTC().UnixNano()); err != nil {
				return unavailable("insert highlight", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit tx", err)
	}
	return nil
}

// GetMeta returns the stored value for key, or "" when it was never set.
func (s *SQLiteStore) GetMeta(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", unavailable("get meta", err)
	}
	return value, nil
}

func (s *SQLiteStore) SetMeta(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value); err != nil {
		return unavailable("set meta", err)
	}
	return nil
}

var _ domain.Store = (*SQLiteStore)(nil)

type rowScanner interface{ Scan(dest ...any) error }

func scanArticle(scanner rowScanner) (*domain.Article, error) {
	var (
		a       domain.Article
		savedAt int64
	)
	if err := scanner.Scan(&a.ID, &a.URL, &a.Title, &a.Favicon, &a.Excerpt, &savedAt, &a.IsRead, &a.IsFavorite); err != nil {
		return nil, err
	}
	a.SavedAt = time.Unix(0, savedAt).UTC()
	return &a, nil
}

func scanHighlight(scanner rowScanner) (*domain.Highlight, error) {
	var (
		h         domain.Highlight
		createdAt int64
	)
	if err := scanner.Scan(&h.ID, &h.Text, &h.Prefix, &h.Suffix, &createdAt); err != nil {
		return nil, err
	}
	h.CreatedAt = time.Unix(0, createdAt).UTC()
	return &h, nil
}

func isUniqueViolation(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}

// unavailable marks a backend failure so callers can tell it from a domain error.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
}
