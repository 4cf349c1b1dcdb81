package selection

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"page-reader/internal/document"
	"page-reader/internal/domain"
	"page-reader/internal/highlight"
)

const pageURL = "https://example.com/post"

type fakeStore struct {
	mu        sync.Mutex
	saved     map[string]domain.Passage
	next      int
	saveErr   error
	deleteErr error
	deleted   []string
	onSave    func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{saved: make(map[string]domain.Passage)}
}

func (s *fakeStore) GetHighlights(ctx context.Context, url string) ([]*domain.Highlight, error) {
	return nil, nil
}

func (s *fakeStore) SaveHighlight(ctx context.Context, url string, p domain.Passage) (string, error) {
	if s.onSave != nil {
		s.onSave()
	}
	if s.saveErr != nil {
		return "", s.saveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := fmt.Sprintf("h%d", s.next)
	s.saved[id] = p
	return id, nil
}

func (s *fakeStore) DeleteHighlight(ctx context.Context, url, id string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, id)
	delete(s.saved, id)
	return nil
}

func (s *fakeStore) IsPageSaved(ctx context.Context, url string) (bool, error) {
	return true, nil
}

type recordingPresenter struct {
	calls []string
}

func (p *recordingPresenter) ShowHighlightTooltip(sel document.Range) {
	p.calls = append(p.calls, "show_highlight:"+sel.String())
}
func (p *recordingPresenter) ShowRemoveTooltip(id string) {
	p.calls = append(p.calls, "show_remove:"+id)
}
func (p *recordingPresenter) HideTooltips()   { p.calls = append(p.calls, "hide") }
func (p *recordingPresenter) ClearSelection() { p.calls = append(p.calls, "clear") }

type notifier struct {
	fns map[int]func(domain.ChangeEvent)
	n   int
}

func (n *notifier) Subscribe(fn func(domain.ChangeEvent)) func() {
	if n.fns == nil {
		n.fns = make(map[int]func(domain.ChangeEvent))
	}
	n.n++
	id := n.n
	n.fns[id] = fn
	return func() { delete(n.fns, id) }
}

func (n *notifier) publish(ev domain.ChangeEvent) {
	for _, fn := range n.fns {
		fn(ev)
	}
}

type fixture struct {
	doc       *document.Document
	store     *fakeStore
	presenter *recordingPresenter
	renderer  *highlight.Renderer
	ctrl      *Controller
}

func newFixture(t *testing.T, saved bool) *fixture {
	t.Helper()
	doc, err := document.ParseString(`<body><p>First paragraph of text.</p><p>Second <b>bold</b> paragraph.</p></body>`)
	require.NoError(t, err)
	f := &fixture{
		doc:       doc,
		store:     newFakeStore(),
		presenter: &recordingPresenter{},
		renderer:  highlight.NewRenderer(),
	}
	f.ctrl = New(Config{
		URL:       pageURL,
		Root:      doc.Body(),
		Store:     f.store,
		Renderer:  f.renderer,
		Presenter: f.presenter,
		PageSaved: saved,
	})
	return f
}

func (f *fixture) selectText(t *testing.T, text string) *document.Range {
	t.Helper()
	m := document.Flatten(f.doc.Body())
	pos := strings.Index(m.Text, text)
	require.GreaterOrEqual(t, pos, 0)
	r, err := m.Range(pos, pos+len(text))
	require.NoError(t, err)
	return &r
}

func TestController_CommitRendersAndReturnsToIdle(t *testing.T) {
	f := newFixture(t, true)

	f.ctrl.SelectionChanged(f.selectText(t, "bold paragraph"))
	require.Equal(t, SelectionActive, f.ctrl.State())

	id, err := f.ctrl.Commit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "h1", id)
	assert.Equal(t, Idle, f.ctrl.State())

	p := f.store.saved[id]
	assert.Equal(t, "bold paragraph", p.Text)
	assert.Equal(t, "Second ", p.Prefix)
	assert.Equal(t, ".", p.Suffix)

	assert.Len(t, highlight.FindMarkers(f.doc.Body(), id), 2)
	assert.Equal(t, []string{"show_highlight:bold paragraph", "hide", "clear"}, f.presenter.calls)
}

func TestController_IgnoresSelectionOnUnsavedPage(t *testing.T) {
	f := newFixture(t, false)

	f.ctrl.SelectionChanged(f.selectText(t, "First"))
	assert.Equal(t, Idle, f.ctrl.State())
	assert.Empty(t, f.presenter.calls)

	_, err := f.ctrl.Commit(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoActiveSelection)
}

func TestController_CommitFailsWhenPageUnsavedMeanwhile(t *testing.T) {
	f := newFixture(t, true)
	f.ctrl.SelectionChanged(f.selectText(t, "First"))
	f.ctrl.pageSaved.Store(false)

	_, err := f.ctrl.Commit(context.Background())
	assert.ErrorIs(t, err, domain.ErrPageNotSaved)
	assert.Equal(t, Idle, f.ctrl.State())
	assert.Empty(t, f.store.saved)
}

func TestController_DismissTransitions(t *testing.T) {
	cases := []struct {
		name   string
		action func(c *Controller)
	}{
		{"selection cleared", func(c *Controller) { c.SelectionChanged(nil) }},
		{"scroll", func(c *Controller) { c.Scrolled() }},
		{"pointer down outside", func(c *Controller) { c.PointerDown(false) }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, true)
			f.ctrl.SelectionChanged(f.selectText(t, "text"))
			require.Equal(t, SelectionActive, f.ctrl.State())

			tc.action(f.ctrl)
			assert.Equal(t, Idle, f.ctrl.State())
			assert.Equal(t, "hide", f.presenter.calls[len(f.presenter.calls)-1])
		})
	}
}

func TestController_PointerDownInsideTooltipKeepsState(t *testing.T) {
	f := newFixture(t, true)
	f.ctrl.SelectionChanged(f.selectText(t, "text"))

	f.ctrl.PointerDown(true)
	assert.Equal(t, SelectionActive, f.ctrl.State())
}

func TestController_WhitespaceSelectionIsNotActive(t *testing.T) {
	f := newFixture(t, true)
	m := document.Flatten(f.doc.Body())
	pos := strings.Index(m.Text, " ")
	r, err := m.Range(pos, pos+1)
	require.NoError(t, err)

	f.ctrl.SelectionChanged(&r)
	assert.Equal(t, Idle, f.ctrl.State())
}

func TestController_StoreFailureLeavesPageUntouched(t *testing.T) {
	f := newFixture(t, true)
	f.store.saveErr = fmt.Errorf("save: %w", domain.ErrStoreUnavailable)
	before, err := f.doc.HTML()
	require.NoError(t, err)

	f.ctrl.SelectionChanged(f.selectText(t, "First paragraph"))
	_, err = f.ctrl.Commit(context.Background())
	assert.True(t, errors.Is(err, domain.ErrStoreUnavailable))
	assert.Equal(t, Idle, f.ctrl.State())

	after, err := f.doc.HTML()
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestController_MarkerActivationAndRemove(t *testing.T) {
	f := newFixture(t, true)
	f.ctrl.SelectionChanged(f.selectText(t, "Second bold"))
	id, err := f.ctrl.Commit(context.Background())
	require.NoError(t, err)

	markers := f.renderer.Markers(f.doc.Body(), id)
	require.Len(t, markers, 2)
	markers[1].Activate()
	require.Equal(t, MarkerActive, f.ctrl.State())
	assert.Contains(t, f.presenter.calls, "show_remove:"+id)

	require.NoError(t, f.ctrl.Remove(context.Background()))
	assert.Equal(t, Idle, f.ctrl.State())
	assert.Equal(t, []string{id}, f.store.deleted)
	assert.Empty(t, highlight.FindMarkers(f.doc.Body(), id))
	assert.Equal(t, "First paragraph of text.Second bold paragraph.", f.doc.Text())

	assert.ErrorIs(t, f.ctrl.Remove(context.Background()), domain.ErrNoActiveMarker)
}

func TestController_RemoveFailureKeepsMarkers(t *testing.T) {
	f := newFixture(t, true)
	f.ctrl.SelectionChanged(f.selectText(t, "First"))
	id, err := f.ctrl.Commit(context.Background())
	require.NoError(t, err)

	f.store.deleteErr = domain.ErrStoreUnavailable
	f.ctrl.MarkerActivated(id)
	err = f.ctrl.Remove(context.Background())
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.Equal(t, Idle, f.ctrl.State())
	assert.Len(t, highlight.FindMarkers(f.doc.Body(), id), 1)
}

func TestController_MarkerIgnoredWhileSelecting(t *testing.T) {
	f := newFixture(t, true)
	f.ctrl.SelectionChanged(f.selectText(t, "text"))

	f.ctrl.MarkerActivated("h9")
	assert.Equal(t, SelectionActive, f.ctrl.State())

	f.ctrl.PointerDown(false)
	f.ctrl.MarkerActivated("h9")
	assert.Equal(t, MarkerActive, f.ctrl.State())

	f.ctrl.Scrolled()
	assert.Equal(t, Idle, f.ctrl.State())
}

func TestController_HandleChangeTracksSavedFlag(t *testing.T) {
	f := newFixture(t, false)
	n := &notifier{}
	f.ctrl.Watch(n)

	n.publish(domain.ChangeEvent{Kind: domain.ArticlesChanged, SavedURLs: []string{"https://other", pageURL}})
	assert.True(t, f.ctrl.PageSaved())

	f.ctrl.SelectionChanged(f.selectText(t, "text"))
	require.Equal(t, SelectionActive, f.ctrl.State())

	n.publish(domain.ChangeEvent{Kind: domain.HighlightsChanged, URL: pageURL})
	assert.True(t, f.ctrl.PageSaved())

	n.publish(domain.ChangeEvent{Kind: domain.ArticlesChanged, SavedURLs: nil})
	assert.False(t, f.ctrl.PageSaved())
	assert.Equal(t, Idle, f.ctrl.State())

	f.ctrl.Close()
	assert.Empty(t, n.fns)
}

func TestController_NotificationDuringSaveDoesNotDeadlock(t *testing.T) {
	f := newFixture(t, true)
	n := &notifier{}
	f.ctrl.Watch(n)
	f.store.onSave = func() {
		n.publish(domain.ChangeEvent{Kind: domain.ArticlesChanged, SavedURLs: []string{pageURL}})
		_ = f.ctrl.State()
	}

	f.ctrl.SelectionChanged(f.selectText(t, "First"))
	_, err := f.ctrl.Commit(context.Background())
	require.NoError(t, err)
}
