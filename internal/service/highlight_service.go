package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"page-reader/internal/anchor"
	"page-reader/internal/document"
	"page-reader/internal/domain"
	"page-reader/internal/highlight"
	"page-reader/internal/selection"
)

// DefaultSettleDelay is how long restoration waits for page content to settle.
const DefaultSettleDelay = 500 * time.Millisecond

// RestoreReport lists which stored highlights were drawn on a page load.
type RestoreReport struct {
	Rendered []string `json:"rendered"`
	Skipped  []string `json:"skipped"`
}

// Session is one page instance with highlighting wired up.
type Session struct {
	URL        string
	Document   *document.Document
	Renderer   *highlight.Renderer
	Controller *selection.Controller
	Restored   RestoreReport
}

// Close stops the session's store subscription.
func (s *Session) Close() {
	s.Controller.Close()
}

type initOptions struct {
	settleDelay time.Duration
}

// InitOption customizes InitializeHighlighting.
type InitOption func(*initOptions)

// WithSettleDelay overrides the wait before restoration. Zero restores at once.
func WithSettleDelay(d time.Duration) InitOption {
	return func(o *initOptions) {
		o.settleDelay = d
	}
}

type HighlightService struct {
	store       domain.HighlightStore
	notifier    domain.ChangeNotifier
	locator     *anchor.Locator
	extractor   *anchor.Extractor
	logger      domain.Logger
	settleDelay time.Duration
}

// HighlightServiceConfig tunes a HighlightService; zero values take defaults.
type HighlightServiceConfig struct {
	ContextChars int
	SettleDelay  time.Duration
	StoreTimeout time.Duration
}

// NewHighlightService creates the highlight use cases. notifier may be nil,
// in which case sessions never learn about saved-state changes.
func NewHighlightService(store domain.HighlightStore, notifier domain.ChangeNotifier, logger domain.Logger, cfg HighlightServiceConfig) *HighlightService {
	if cfg.SettleDelay < 0 {
		cfg.SettleDelay = 0
	}
	return &HighlightService{
		store:       withTimeout(store, cfg.StoreTimeout),
		notifier:    notifier,
		locator:     anchor.NewLocator(logger),
		extractor:   anchor.NewExtractor(cfg.ContextChars),
		logger:      logger,
		settleDelay: cfg.SettleDelay,
	}
}

var _ domain.HighlightService = (*HighlightService)(nil)

func (s *HighlightService) CreateHighlight(ctx context.Context, url string, passage domain.Passage) (string, error) {
	url, err := requireURL(url)
	if err != nil {
		return "", err
	}
	if err := passage.Validate(); err != nil {
		return "", err
	}

	id, err := s.store.SaveHighlight(ctx, url, passage)
	if err != nil {
		return "", err
	}
	s.logger.Info("Highlight created", "url", url, "highlight_id", id)
	return id, nil
}

func (s *HighlightService) ListHighlights(ctx context.Context, url string) ([]*domain.Highlight, error) {
	url, err := requireURL(url)
	if err != nil {
		return nil, err
	}
	return s.store.GetHighlights(ctx, url)
}

func (s *HighlightService) DeleteHighlight(ctx context.Context, url string, highlightID string) error {
	url, err := requireURL(url)
	if err != nil {
		return err
	}
	if highlightID == "" {
		return &domain.ValidationError{Field: "highlightId", Message: domain.ErrMissingHighlightID.Error()}
	}
	if err := s.store.DeleteHighlight(ctx, url, highlightID); err != nil {
		return err
	}
	s.logger.Info("Highlight deleted", "url", url, "highlight_id", highlightID)
	return nil
}

// InitializeHighlighting prepares a loaded page: it checks whether the page
// is saved, builds the renderer and selection controller, subscribes to store
// changes, waits for the settle delay and restores stored highlights.
func (s *HighlightService) InitializeHighlighting(ctx context.Context, doc *document.Document, url string, presenter selection.Presenter, opts ...InitOption) (*Session, error) {
	url, err := requireURL(url)
	if err != nil {
		return nil, err
	}
	o := initOptions{settleDelay: s.settleDelay}
	for _, opt := range opts {
		opt(&o)
	}

	saved, err := s.store.IsPageSaved(ctx, url)
	if err != nil {
		s.logger.Warn("Could not check saved state, highlighting disabled", "url", url, "error", err)
		saved = false
	}

	renderer := highlight.NewRenderer()
	ctrl := selection.New(selection.Config{
		URL:       url,
		Root:      doc.Body(),
		Store:     s.store,
		Extractor: s.extractor,
		Renderer:  renderer,
		Presenter: presenter,
		Logger:    s.logger,
		PageSaved: saved,
	})
	if s.notifier != nil {
		ctrl.Watch(s.notifier)
	}
	session := &Session{URL: url, Document: doc, Renderer: renderer, Controller: ctrl}

	if err := settle(ctx, o.settleDelay); err != nil {
		session.Close()
		return nil, err
	}

	report, err := s.RestoreHighlights(ctx, doc, url, renderer)
	if err != nil {
		session.Close()
		return nil, err
	}
	session.Restored = report
	return session, nil
}

// RestoreHighlights draws every stored highlight for url that can still be
// found in doc, in stored order. Highlights whose text is gone are skipped.
func (s *HighlightService) RestoreHighlights(ctx context.Context, doc *document.Document, url string, renderer *highlight.Renderer) (RestoreReport, error) {
	highlights, err := s.store.GetHighlights(ctx, url)
	if err != nil {
		return RestoreReport{}, err
	}

	report := RestoreReport{Rendered: []string{}, Skipped: []string{}}
	for _, h := range highlights {
		match, ok := s.locator.Locate(doc, h.Passage)
		if !ok {
			s.logger.Debug("Highlight not found on page", "url", url, "highlight_id", h.ID)
			report.Skipped = append(report.Skipped, h.ID)
			continue
		}
		if _, err := renderer.Render(match.Range, h.ID); err != nil {
			s.logger.Debug("Highlight could not be rendered", "url", url, "highlight_id", h.ID, "error", err)
			report.Skipped = append(report.Skipped, h.ID)
			continue
		}
		s.logger.Debug("Highlight restored", "highlight_id", h.ID, "strategy", match.Strategy)
		report.Rendered = append(report.Rendered, h.ID)
	}

	s.logger.Info("Highlights restored", "url", url, "rendered", len(report.Rendered), "skipped", len(report.Skipped))
	return report, nil
}

// RenderPage parses pageHTML and returns it with the stored highlights drawn in.
func (s *HighlightService) RenderPage(ctx context.Context, url, pageHTML string) (string, RestoreReport, error) {
	doc, err := parsePage(pageHTML)
	if err != nil {
		return "", RestoreReport{}, err
	}
	session, err := s.InitializeHighlighting(ctx, doc, url, selection.NopPresenter{}, WithSettleDelay(0))
	if err != nil {
		return "", RestoreReport{}, err
	}
	defer session.Close()

	out, err := doc.HTML()
	if err != nil {
		return "", RestoreReport{}, err
	}
	return out, session.Restored, nil
}

// HighlightSelection selects the characters [start, end) of the page text,
// commits them as a new highlight and returns the page with every highlight
// drawn, the new one included.
func (s *HighlightService) HighlightSelection(ctx context.Context, url, pageHTML string, start, end int) (string, string, error) {
	doc, err := parsePage(pageHTML)
	if err != nil {
		return "", "", err
	}
	session, err := s.InitializeHighlighting(ctx, doc, url, selection.NopPresenter{}, WithSettleDelay(0))
	if err != nil {
		return "", "", err
	}
	defer session.Close()

	if !session.Controller.PageSaved() {
		return "", "", domain.ErrPageNotSaved
	}
	r, err := document.Flatten(doc.Body()).RuneRange(start, end)
	if err != nil {
		return "", "", &domain.ValidationError{Field: "start", Message: err.Error()}
	}
	if strings.TrimSpace(r.String()) == "" {
		return "", "", domain.ErrEmptySelection
	}

	session.Controller.SelectionChanged(&r)
	id, err := session.Controller.Commit(ctx)
	if err != nil {
		return "", "", err
	}
	out, err := doc.HTML()
	if err != nil {
		return "", "", err
	}
	return id, out, nil
}

func parsePage(pageHTML string) (*document.Document, error) {
	if strings.TrimSpace(pageHTML) == "" {
		return nil, &domain.ValidationError{Field: "html", Message: "html is required"}
	}
	doc, err := document.ParseString(pageHTML)
	if err != nil {
		return nil, &domain.ValidationError{Field: "html", Message: err.Error()}
	}
	return doc, nil
}

// requireURL returns the page key for raw: the URL with surrounding
// whitespace removed.
func requireURL(raw string) (string, error) {
	url := strings.TrimSpace(raw)
	if url == "" {
		return "", &domain.ValidationError{Field: "url", Message: "url is required"}
	}
	return url, nil
}

func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for page to settle: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// storeError reports err as a store failure unless it already is one or is a
// domain error the caller should see as is.
func storeError(op string, err error) error {
	if err == nil || errors.Is(err, domain.ErrStoreUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%s: %w: %w", op, domain.ErrStoreUnavailable, err)
	}
	return err
}
