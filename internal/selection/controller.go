// Package selection drives highlight creation and removal from user input.
//
// A Controller is a small state machine:
//
//	Idle -> SelectionActive   non-empty selection on a saved page
//	SelectionActive -> Idle   selection cleared, scroll, pointer-down outside, commit
//	Idle -> MarkerActive      an existing marker is activated
//	MarkerActive -> Idle      remove, scroll, pointer-down outside
//
// Store calls are made without holding the controller lock, so change
// notifications delivered synchronously by the store may re-enter HandleChange.
package selection

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"golang.org/x/net/html"

	"page-reader/internal/anchor"
	"page-reader/internal/document"
	"page-reader/internal/domain"
	"page-reader/internal/highlight"
	pkglogger "page-reader/pkg/logger"
)

// State is the interaction state of a Controller.
type State int

const (
	Idle State = iota
	SelectionActive
	MarkerActive
)

func (s State) String() string {
	switch s {
	case SelectionActive:
		return "selection_active"
	case MarkerActive:
		return "marker_active"
	default:
		return "idle"
	}
}

// Presenter shows and hides the controls attached to each state.
type Presenter interface {
	ShowHighlightTooltip(selection document.Range)
	ShowRemoveTooltip(highlightID string)
	HideTooltips()
	ClearSelection()
}

// NopPresenter ignores every call. It serves headless callers such as the
// HTTP API and the CLI.
type NopPresenter struct{}

func (NopPresenter) ShowHighlightTooltip(document.Range) {}
func (NopPresenter) ShowRemoveTooltip(string)            {}
func (NopPresenter) HideTooltips()                       {}
func (NopPresenter) ClearSelection()                     {}

// Config holds the collaborators of a Controller.
type Config struct {
	URL       string
	Root      *html.Node
	Store     domain.HighlightStore
	Extractor *anchor.Extractor
	Renderer  *highlight.Renderer
	Presenter Presenter
	Logger    domain.Logger
	PageSaved bool
}

// Controller handles selection, commit and removal for one loaded page.
type Controller struct {
	url       string
	root      *html.Node
	store     domain.HighlightStore
	extractor *anchor.Extractor
	renderer  *highlight.Renderer
	presenter Presenter
	logger    domain.Logger

	pageSaved atomic.Bool

	mu        sync.Mutex
	state     State
	selection document.Range
	activeID  string
	cancel    func()
}

// New creates a Controller in the Idle state and routes marker activation
// from the renderer into it.
func New(cfg Config) *Controller {
	if cfg.Presenter == nil {
		cfg.Presenter = NopPresenter{}
	}
	if cfg.Logger == nil {
		cfg.Logger = pkglogger.Nop()
	}
	if cfg.Extractor == nil {
		cfg.Extractor = anchor.NewExtractor(domain.DefaultContextChars)
	}
	if cfg.Renderer == nil {
		cfg.Renderer = highlight.NewRenderer()
	}
	c := &Controller{
		url:       cfg.URL,
		root:      cfg.Root,
		store:     cfg.Store,
		extractor: cfg.Extractor,
		renderer:  cfg.Renderer,
		presenter: cfg.Presenter,
		logger:    pkglogger.With(cfg.Logger, "url", cfg.URL),
	}
	c.pageSaved.Store(cfg.PageSaved)
	c.renderer.OnActivate(c.MarkerActivated)
	return c
}

// State returns the current state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// PageSaved reports whether highlighting is currently allowed.
func (c *Controller) PageSaved() bool {
	return c.pageSaved.Load()
}

// SetPageSaved overrides the saved flag.
func (c *Controller) SetPageSaved(saved bool) {
	c.pageSaved.Store(saved)
	if !saved {
		c.dismiss(SelectionActive)
	}
}

// Watch subscribes the controller to store change notifications. The
// previous subscription, if any, is cancelled.
func (c *Controller) Watch(n domain.ChangeNotifier) {
	cancel := n.Subscribe(c.HandleChange)
	c.mu.Lock()
	prev := c.cancel
	c.cancel = cancel
	c.mu.Unlock()
	if prev != nil {
		prev()
	}
}

// HandleChange keeps the saved flag current from article list changes.
func (c *Controller) HandleChange(ev domain.ChangeEvent) {
	if ev.Kind != domain.ArticlesChanged {
		return
	}
	c.SetPageSaved(slices.Contains(ev.SavedURLs, c.url))
}

// Close stops watching store notifications.
func (c *Controller) Close() {
	c.mu.Lock()
	cancel := c.cancel
	c.cancel = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// SelectionChanged reports the current user selection; nil means the
// selection was cleared. Selections are ignored while a marker is active or
// the page is not saved.
func (c *Controller) SelectionChanged(sel *document.Range) {
	if sel == nil || strings.TrimSpace(sel.String()) == "" {
		c.dismiss(SelectionActive)
		return
	}
	if !c.pageSaved.Load() {
		return
	}

	c.mu.Lock()
	if c.state == MarkerActive {
		c.mu.Unlock()
		return
	}
	c.state = SelectionActive
	c.selection = *sel
	c.mu.Unlock()

	c.logger.Debug("Selection active", "text_length", len(sel.String()))
	c.presenter.ShowHighlightTooltip(*sel)
}

// Scrolled dismisses any open tooltip.
func (c *Controller) Scrolled() {
	c.dismiss(SelectionActive, MarkerActive)
}

// PointerDown dismisses the active tooltip unless the pointer landed on it.
func (c *Controller) PointerDown(insideTooltip bool) {
	if insideTooltip {
		return
	}
	c.dismiss(SelectionActive, MarkerActive)
}

// MarkerActivated moves to MarkerActive for the highlight id.
func (c *Controller) MarkerActivated(highlightID string) {
	c.mu.Lock()
	if c.state != Idle {
		c.mu.Unlock()
		return
	}
	c.state = MarkerActive
	c.activeID = highlightID
	c.mu.Unlock()

	c.presenter.ShowRemoveTooltip(highlightID)
}

// Commit saves the active selection and renders it. The controller returns
// to Idle whatever the outcome; on a store failure nothing is rendered.
func (c *Controller) Commit(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state != SelectionActive {
		c.mu.Unlock()
		return "", domain.ErrNoActiveSelection
	}
	sel := c.selection
	c.state = Idle
	c.selection = document.Range{}
	c.mu.Unlock()
	c.presenter.HideTooltips()

	if !c.pageSaved.Load() {
		return "", domain.ErrPageNotSaved
	}

	passage, err := c.extractor.Describe(sel)
	if err != nil {
		return "", err
	}
	id, err := c.store.SaveHighlight(ctx, c.url, passage)
	if err != nil {
		c.logger.Error("Failed to save highlight", err)
		return "", err
	}
	if _, err := c.renderer.Render(sel, id); err != nil {
		return id, fmt.Errorf("highlight %s saved but not rendered: %w", id, err)
	}
	c.presenter.ClearSelection()
	c.logger.Info("Highlight created", "highlight_id", id)
	return id, nil
}

// Remove deletes the active marker's highlight and unrenders it.
func (c *Controller) Remove(ctx context.Context) error {
	c.mu.Lock()
	if c.state != MarkerActive {
		c.mu.Unlock()
		return domain.ErrNoActiveMarker
	}
	id := c.activeID
	c.state = Idle
	c.activeID = ""
	c.mu.Unlock()
	c.presenter.HideTooltips()

	if err := c.store.DeleteHighlight(ctx, c.url, id); err != nil {
		c.logger.Error("Failed to delete highlight", err, "highlight_id", id)
		return err
	}
	if _, err := c.renderer.Unrender(c.root, id); err != nil {
		return err
	}
	c.logger.Info("Highlight removed", "highlight_id", id)
	return nil
}

// dismiss returns to Idle when the controller is in one of from.
func (c *Controller) dismiss(from ...State) {
	c.mu.Lock()
	if !slices.Contains(from, c.state) {
		c.mu.Unlock()
		return
	}
	c.state = Idle
	c.selection = document.Range{}
	c.activeID = ""
	c.mu.Unlock()
	c.presenter.HideTooltips()
}
