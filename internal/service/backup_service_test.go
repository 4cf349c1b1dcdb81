package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"page-reader/internal/domain"
)

func TestBackupService_ExportImportRoundTrip(t *testing.T) {
	src := NewMockStore()
	ctx := context.Background()
	for _, a := range libraryFixture() {
		_ = src.SaveArticle(ctx, a)
	}
	_, _ = src.SaveHighlight(ctx, "https://go.dev/blog", domain.Passage{Text: "generics", Prefix: "about ", Suffix: "."})

	exporter := NewBackupService(src, NewMockLogger(), time.Second)
	exporter.now = func() time.Time { return fixedNow }

	backup, err := exporter.Export(ctx)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if backup.Version != BackupVersion || len(backup.Articles) != 4 || len(backup.Highlights["https://go.dev/blog"]) != 1 {
		t.Fatalf("Unexpected backup %+v", backup)
	}

	last, ok, err := exporter.LastExport(ctx)
	if err != nil || !ok || !last.Equal(fixedNow) {
		t.Errorf("Expected last export %v, got %v %v %v", fixedNow, last, ok, err)
	}

	data, err := json.Marshal(backup)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	dst := NewMockStore()
	_ = dst.SaveArticle(ctx, &domain.Article{ID: "old", URL: "https://old.example", SavedAt: day(9)})
	result, err := NewBackupService(dst, NewMockLogger(), time.Second).Import(ctx, data)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Articles != 4 || result.Highlights != 1 {
		t.Errorf("Unexpected import counts %+v", result)
	}
	if saved, _ := dst.IsPageSaved(ctx, "https://old.example"); saved {
		t.Errorf("Expected import to replace existing data")
	}
	hs, _ := dst.GetHighlights(ctx, "https://go.dev/blog")
	if len(hs) != 1 || hs[0].Text != "generics" || hs[0].Prefix != "about " {
		t.Errorf("Unexpected imported highlights %+v", hs)
	}
}

func TestBackupService_ImportFromExtensionFormat(t *testing.T) {
	data := []byte(`{
  "version": 1,
  "exportedAt": "2024-02-01T10:00:00.000Z",
  "articles": [
    {"id": "lq1x", "url": "https://a.example", "title": "A", "favicon": "", "excerpt": "x", "savedAt": "2024-01-05T08:30:00.000Z", "isRead": false},
    {"url": "https://b.example", "title": "B"},
    {"url": "https://a.example", "title": "duplicate"}
  ],
  "highlights": {
    "https://a.example": [
      {"id": "h1", "text": "quote", "prefix": "", "suffix": "", "createdAt": "2024-01-06T09:00:00.000Z"},
      {"id": "h2", "text": "   "}
    ]
  }
}`)
	store := NewMockStore()
	svc := NewBackupService(store, NewMockLogger(), time.Second)
	svc.now = func() time.Time { return fixedNow }

	result, err := svc.Import(context.Background(), data)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if result.Articles != 2 || result.Highlights != 1 {
		t.Errorf("Unexpected counts %+v", result)
	}
	articles, _ := store.ListArticles(context.Background())
	for _, a := range articles {
		if a.ID == "" {
			t.Errorf("Expected generated id for %s", a.URL)
		}
		if a.URL == "https://b.example" && !a.SavedAt.Equal(fixedNow) {
			t.Errorf("Expected missing savedAt to default to now, got %v", a.SavedAt)
		}
	}
}

func TestBackupService_ImportRejectsInvalidFiles(t *testing.T) {
	svc := NewBackupService(NewMockStore(), NewMockLogger(), time.Second)
	cases := map[string]string{
		"not json":         `{"version":`,
		"missing version":  `{"articles": []}`,
		"missing articles": `{"version": 1}`,
		"bad version":      `{"version": 0, "articles": []}`,
		"article no url":   `{"version": 1, "articles": [{"title": "x"}]}`,
		"highlight no id":  `{"version": 1, "articles": [], "highlights": {"u": [{"text": "t"}]}}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := svc.Import(context.Background(), []byte(data)); !errors.Is(err, domain.ErrInvalidBackup) {
				t.Errorf("Expected ErrInvalidBackup, got %v", err)
			}
		})
	}
}

func TestBackupService_ImportRejectsDuplicateIDs(t *testing.T) {
	ctx := context.Background()
	cases := map[string]string{
		"highlight id across pages": `{"version": 1, "articles": [], "highlights": {
			"https://a.example/": [{"id": "h1", "text": "one"}],
			"https://b.example/": [{"id": "h1", "text": "two"}]}}`,
		"highlight id on one page": `{"version": 1, "articles": [], "highlights": {
			"https://a.example/": [{"id": "h1", "text": "one"}, {"id": "h1", "text": "two"}]}}`,
		"article id": `{"version": 1, "articles": [
			{"id": "a1", "url": "https://a.example/"},
			{"id": "a1", "url": "https://b.example/"}]}`,
	}
	for name, data := range cases {
		t.Run(name, func(t *testing.T) {
			store := NewMockStore()
			_ = store.SaveArticle(ctx, &domain.Article{ID: "keep", URL: "https://keep.example", SavedAt: day(1)})
			svc := NewBackupService(store, NewMockLogger(), time.Second)

			_, err := svc.Import(ctx, []byte(data))
			if !errors.Is(err, domain.ErrInvalidBackup) {
				t.Fatalf("Expected ErrInvalidBackup, got %v", err)
			}
			if saved, _ := store.IsPageSaved(ctx, "https://keep.example"); !saved {
				t.Errorf("Expected existing library to survive a rejected import")
			}
		})
	}
}

func TestBackupService_LastExportNeverExported(t *testing.T) {
	svc := NewBackupService(NewMockStore(), NewMockLogger(), time.Second)
	_, ok, err := svc.LastExport(context.Background())
	if err != nil || ok {
		t.Errorf("Expected no export date, got %v %v", ok, err)
	}
}
