package service

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/sync/errgroup"

	"page-reader/internal/domain"
	"page-reader/pkg/idgen"
)

// BackupVersion is the format version written by Export.
const BackupVersion = 1

//go:embed backup_schema.json
var backupSchema string

// Backup is the portable dump of the whole library.
type Backup struct {
	Version    int                            `json:"version"`
	ExportedAt time.Time                      `json:"exportedAt"`
	Articles   []*domain.Article              `json:"articles"`
	Highlights map[string][]*domain.Highlight `json:"highlights"`
}

// ImportResult counts what an import restored.
type ImportResult struct {
	Articles   int `json:"articles"`
	Highlights int `json:"highlights"`
}

type BackupService struct {
	store   domain.ArticleStore
	logger  domain.Logger
	newID   idgen.Generator
	now     func() time.Time
	timeout time.Duration
	schema  gojsonschema.JSONLoader
}

func NewBackupService(store domain.ArticleStore, logger domain.Logger, timeout time.Duration) *BackupService {
	return &BackupService{
		store:   store,
		logger:  logger,
		newID:   idgen.Default,
		now:     time.Now,
		timeout: timeout,
		schema:  gojsonschema.NewStringLoader(backupSchema),
	}
}

// Export dumps every article and highlight and records the export date.
func (s *BackupService) Export(ctx context.Context) (*Backup, error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()

	b := &Backup{Version: BackupVersion, ExportedAt: s.now().UTC()}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		b.Articles, err = s.store.ListArticles(gctx)
		return storeError("list articles", err)
	})
	g.Go(func() error {
		var err error
		b.Highlights, err = s.store.AllHighlights(gctx)
		return storeError("all highlights", err)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if b.Articles == nil {
		b.Articles = []*domain.Article{}
	}
	if b.Highlights == nil {
		b.Highlights = map[string][]*domain.Highlight{}
	}

	if err := s.store.SetMeta(ctx, domain.MetaLastExportDate, b.ExportedAt.Format(time.RFC3339)); err != nil {
		return nil, storeError("set meta", err)
	}
	s.logger.Info("Library exported", "articles", len(b.Articles), "urls", len(b.Highlights))
	return b, nil
}

// LastExport returns when the library was last exported; ok is false if never.
func (s *BackupService) LastExport(ctx context.Context) (t time.Time, ok bool, err error) {
	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	v, err := s.store.GetMeta(ctx, domain.MetaLastExportDate)
	if err != nil {
		return time.Time{}, false, storeError("get meta", err)
	}
	if v == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("stored export date %q: %w", v, err)
	}
	return t, true, nil
}

// Import validates data against the backup schema and replaces the whole
// library with its contents.
func (s *BackupService) Import(ctx context.Context, data []byte) (*ImportResult, error) {
	if err := s.validate(data); err != nil {
		return nil, err
	}
	var b Backup
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrInvalidBackup, err)
	}

	now := s.now().UTC()
	seen := make(map[string]bool, len(b.Articles))
	articleIDs := make(map[string]bool, len(b.Articles))
	articles := make([]*domain.Article, 0, len(b.Articles))
	for _, a := range b.Articles {
		if a == nil || seen[a.URL] {
			continue
		}
		seen[a.URL] = true
		if a.ID == "" {
			a.ID = s.newID()
		}
		if articleIDs[a.ID] {
			return nil, fmt.Errorf("%w: duplicate article id %q", domain.ErrInvalidBackup, a.ID)
		}
		articleIDs[a.ID] = true
		if a.SavedAt.IsZero() {
			a.SavedAt = now
		}
		articles = append(articles, a)
	}

	highlights := make(map[string][]*domain.Highlight, len(b.Highlights))
	highlightIDs := make(map[string]string)
	total := 0
	for url, hs := range b.Highlights {
		kept := make([]*domain.Highlight, 0, len(hs))
		for _, h := range hs {
			if h == nil || strings.TrimSpace(h.Text) == "" {
				continue
			}
			if other, dup := highlightIDs[h.ID]; dup {
				return nil, fmt.Errorf("%w: highlight id %q used on %s and %s", domain.ErrInvalidBackup, h.ID, other, url)
			}
			highlightIDs[h.ID] = url
			if h.CreatedAt.IsZero() {
				h.CreatedAt = now
			}
			kept = append(kept, h)
		}
		if len(kept) > 0 {
			highlights[url] = kept
			total += len(kept)
		}
	}

	ctx, cancel := bounded(ctx, s.timeout)
	defer cancel()
	if err := s.store.ReplaceAll(ctx, articles, highlights); err != nil {
		return nil, storeError("replace all", err)
	}
	s.logger.Info("Library imported", "articles", len(articles), "highlights", total)
	return &ImportResult{Articles: len(articles), Highlights: total}, nil
}

func (s *BackupService) validate(data []byte) error {
	result, err := gojsonschema.Validate(s.schema, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidBackup, err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		field := desc.Field()
		if field == "" {
			field = "(root)"
		}
		msgs = append(msgs, field+": "+desc.Description())
	}
	return fmt.Errorf("%w: %s", domain.ErrInvalidBackup, strings.Join(msgs, "; "))
}
