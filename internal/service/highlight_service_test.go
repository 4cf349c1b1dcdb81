package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"page-reader/internal/document"
	"page-reader/internal/domain"
	"page-reader/internal/highlight"
	"page-reader/internal/selection"
)

const testURL = "https://example.com/article"

const testPage = `<html><head><title>Article</title></head><body>
<article>
<p>The cat sat on the mat.</p>
<p>Later the cat ran away, and nobody saw it again.</p>
</article>
</body></html>`

func newHighlightService(store *MockStore, cfg HighlightServiceConfig) *HighlightService {
	return NewHighlightService(store, store, NewMockLogger(), cfg)
}

func saveArticle(t *testing.T, store *MockStore, url string) {
	t.Helper()
	err := store.SaveArticle(context.Background(), &domain.Article{ID: "a-" + url, URL: url, Title: "t", SavedAt: time.Now()})
	if err != nil {
		t.Fatalf("save article: %v", err)
	}
}

func TestHighlightService_CreateValidates(t *testing.T) {
	svc := newHighlightService(NewMockStore(), HighlightServiceConfig{})
	ctx := context.Background()

	var vErr *domain.ValidationError
	if _, err := svc.CreateHighlight(ctx, "", domain.Passage{Text: "x"}); !errors.As(err, &vErr) || vErr.Field != "url" {
		t.Errorf("Expected url validation error, got %v", err)
	}
	if _, err := svc.CreateHighlight(ctx, testURL, domain.Passage{Text: "  "}); !errors.As(err, &vErr) || vErr.Field != "text" {
		t.Errorf("Expected text validation error, got %v", err)
	}
	if err := svc.DeleteHighlight(ctx, testURL, ""); !errors.As(err, &vErr) {
		t.Errorf("Expected highlight id validation error, got %v", err)
	}
}

func TestHighlightService_CRUD(t *testing.T) {
	store := NewMockStore()
	svc := newHighlightService(store, HighlightServiceConfig{})
	ctx := context.Background()

	id1, err := svc.CreateHighlight(ctx, testURL, domain.Passage{Text: "cat", Prefix: "The ", Suffix: " sat"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	id2, err := svc.CreateHighlight(ctx, testURL, domain.Passage{Text: "mat"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if id1 == id2 {
		t.Fatalf("Expected distinct ids, got %s twice", id1)
	}

	list, err := svc.ListHighlights(ctx, testURL)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(list) != 2 || list[0].ID != id1 || list[1].ID != id2 {
		t.Fatalf("Expected highlights in creation order, got %+v", list)
	}

	if err := svc.DeleteHighlight(ctx, testURL, id1); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if err := svc.DeleteHighlight(ctx, testURL, "unknown"); err != nil {
		t.Errorf("Expected deleting unknown id to be a no-op, got %v", err)
	}
	list, _ = svc.ListHighlights(ctx, testURL)
	if len(list) != 1 || list[0].ID != id2 {
		t.Errorf("Expected only %s left, got %+v", id2, list)
	}
}

func TestHighlightService_TrimsPageURL(t *testing.T) {
	store := NewMockStore()
	svc := newHighlightService(store, HighlightServiceConfig{})
	ctx := context.Background()

	id, err := svc.CreateHighlight(ctx, " "+testURL+"\t", domain.Passage{Text: "cat"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	list, err := svc.ListHighlights(ctx, testURL)
	if err != nil || len(list) != 1 || list[0].ID != id {
		t.Fatalf("Expected highlight under trimmed url, got %+v %v", list, err)
	}
	if err := svc.DeleteHighlight(ctx, testURL+" ", id); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if list, _ := svc.ListHighlights(ctx, testURL); len(list) != 0 {
		t.Errorf("Expected highlight deleted, got %+v", list)
	}
}

func TestHighlightService_StoreTimeout(t *testing.T) {
	store := NewMockStore()
	store.Delay = 200 * time.Millisecond
	svc := newHighlightService(store, HighlightServiceConfig{StoreTimeout: 10 * time.Millisecond})

	_, err := svc.CreateHighlight(context.Background(), testURL, domain.Passage{Text: "cat"})
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline to be reported, got %v", err)
	}
}

func TestRestoreHighlights_SkipsPassagesNoLongerOnPage(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()
	_, _ = store.SaveHighlight(ctx, testURL, domain.Passage{Text: "cat", Prefix: "Later the ", Suffix: " ran away"})
	_, _ = store.SaveHighlight(ctx, testURL, domain.Passage{Text: "a dog barked"})
	_, _ = store.SaveHighlight(ctx, testURL, domain.Passage{Text: "nobody   saw"})

	svc := newHighlightService(store, HighlightServiceConfig{})
	doc, err := document.ParseString(testPage)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	before := doc.Text()

	renderer := highlight.NewRenderer()
	report, err := svc.RestoreHighlights(ctx, doc, testURL, renderer)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if strings.Join(report.Rendered, ",") != "h1,h3" {
		t.Errorf("Expected h1,h3 rendered, got %v", report.Rendered)
	}
	if strings.Join(report.Skipped, ",") != "h2" {
		t.Errorf("Expected h2 skipped, got %v", report.Skipped)
	}

	markers := highlight.FindMarkers(doc.Body(), "h1")
	if len(markers) != 1 || !strings.HasPrefix(markers[0].Parent.FirstChild.Data, "Later") {
		t.Errorf("Expected h1 to be drawn in the second paragraph")
	}
	if doc.Text() != before {
		t.Errorf("Expected page text to be unchanged by rendering")
	}
}

func TestRestoreHighlights_StoreFailure(t *testing.T) {
	store := NewMockStore()
	store.Err = domain.ErrStoreUnavailable
	svc := newHighlightService(store, HighlightServiceConfig{})
	doc, _ := document.ParseString(testPage)

	_, err := svc.RestoreHighlights(context.Background(), doc, testURL, highlight.NewRenderer())
	if !errors.Is(err, domain.ErrStoreUnavailable) {
		t.Errorf("Expected ErrStoreUnavailable, got %v", err)
	}
}

func TestInitializeHighlighting_TracksSavedState(t *testing.T) {
	store := NewMockStore()
	svc := newHighlightService(store, HighlightServiceConfig{})
	doc, _ := document.ParseString(testPage)

	session, err := svc.InitializeHighlighting(context.Background(), doc, testURL, selection.NopPresenter{}, WithSettleDelay(0))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer session.Close()

	if session.Controller.PageSaved() {
		t.Fatalf("Expected page to start unsaved")
	}
	saveArticle(t, store, testURL)
	if !session.Controller.PageSaved() {
		t.Errorf("Expected saved flag to follow the store")
	}

	session.Close()
	if store.Subscribers() != 0 {
		t.Errorf("Expected subscription to be cancelled, got %d subscribers", store.Subscribers())
	}
}

func TestInitializeHighlighting_SettleDelay(t *testing.T) {
	store := NewMockStore()
	svc := newHighlightService(store, HighlightServiceConfig{SettleDelay: time.Hour})
	doc, _ := document.ParseString(testPage)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := svc.InitializeHighlighting(ctx, doc, testURL, nil)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected settle wait to be cancelled, got %v", err)
	}
	if store.Subscribers() != 0 {
		t.Errorf("Expected no subscription left behind")
	}

	start := time.Now()
	session, err := svc.InitializeHighlighting(context.Background(), doc, testURL, nil, WithSettleDelay(30*time.Millisecond))
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	defer session.Close()
	if time.Since(start) < 30*time.Millisecond {
		t.Errorf("Expected restoration to wait for the settle delay")
	}
}

func TestHighlightSelection(t *testing.T) {
	store := NewMockStore()
	saveArticle(t, store, testURL)
	svc := newHighlightService(store, HighlightServiceConfig{})
	ctx := context.Background()

	flat, _ := document.ParseString(testPage)
	text := []rune(flat.Text())
	start := strings.Index(string(text), "nobody saw")
	end := start + len([]rune("nobody saw"))

	id, out, err := svc.HighlightSelection(ctx, testURL, testPage, start, end)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if !strings.Contains(out, `data-highlight-id="`+id+`">nobody saw</mark>`) {
		t.Errorf("Expected rendered marker in output, got %s", out)
	}

	stored, _ := store.GetHighlights(ctx, testURL)
	if len(stored) != 1 ||
		!strings.HasSuffix(stored[0].Prefix, "mat.\nLater the cat ran away, and ") ||
		len([]rune(stored[0].Prefix)) != domain.DefaultContextChars ||
		!strings.HasPrefix(stored[0].Suffix, " it again.") {
		t.Errorf("Unexpected stored passage %+v", stored)
	}

	rendered, report, err := svc.RenderPage(ctx, testURL, testPage)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(report.Rendered) != 1 || !strings.Contains(rendered, ">nobody saw</mark>") {
		t.Errorf("Expected stored highlight to be restored, got %v", report)
	}
}

func TestHighlightSelection_Rejects(t *testing.T) {
	store := NewMockStore()
	svc := newHighlightService(store, HighlightServiceConfig{})
	ctx := context.Background()

	if _, _, err := svc.HighlightSelection(ctx, testURL, testPage, 0, 5); !errors.Is(err, domain.ErrPageNotSaved) {
		t.Errorf("Expected ErrPageNotSaved, got %v", err)
	}

	saveArticle(t, store, testURL)
	var vErr *domain.ValidationError
	if _, _, err := svc.HighlightSelection(ctx, testURL, testPage, 5, 100000); !errors.As(err, &vErr) {
		t.Errorf("Expected out of range validation error, got %v", err)
	}
	if _, _, err := svc.HighlightSelection(ctx, testURL, "", 0, 1); !errors.As(err, &vErr) {
		t.Errorf("Expected missing html validation error, got %v", err)
	}
}
