// Package page extracts the metadata stored with a saved article.
package page

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

const (
	// ExcerptChars is the length of the excerpt kept for an article.
	ExcerptChars = 200
	// Untitled is used when a page has no title.
	Untitled = "Untitled"
)

// Summary is what the library shows for a page.
type Summary struct {
	Title   string
	Favicon string
	Excerpt string
}

// Summarize reads the title, favicon and excerpt of an HTML page. Relative
// favicon links are resolved against pageURL.
func Summarize(html, pageURL string) (Summary, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return Summary{}, fmt.Errorf("failed to parse HTML: %w", err)
	}

	s := Summary{
		Title:   cleanWhitespace(doc.Find("head title").First().Text()),
		Favicon: favicon(doc, pageURL),
	}
	if s.Title == "" {
		if og, ok := doc.Find(`meta[property="og:title"]`).Attr("content"); ok {
			s.Title = cleanWhitespace(og)
		}
	}
	if s.Title == "" {
		s.Title = Untitled
	}

	body := doc.Find("body")
	body.Find("script, style, noscript, template").Remove()
	s.Excerpt = Excerpt(cleanWhitespace(body.Text()))
	return s, nil
}

// Excerpt cuts text to ExcerptChars characters, marking the cut with "...".
func Excerpt(text string) string {
	runes := []rune(text)
	if len(runes) <= ExcerptChars {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(string(runes[:ExcerptChars])) + "..."
}

// Domain returns the host of rawURL without a leading "www.", or rawURL
// itself when it does not parse.
func Domain(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return rawURL
	}
	return strings.TrimPrefix(u.Hostname(), "www.")
}

// FallbackFavicon is the icon shown for pages saved without one.
func FallbackFavicon(rawURL string) string {
	return "https://www.google.com/s2/favicons?domain=" + url.QueryEscape(Domain(rawURL)) + "&sz=64"
}

func favicon(doc *goquery.Document, pageURL string) string {
	var href string
	doc.Find("link[rel]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		rel, _ := s.Attr("rel")
		for _, r := range strings.Fields(strings.ToLower(rel)) {
			if r == "icon" {
				href, _ = s.Attr("href")
				return false
			}
		}
		return true
	})
	if href == "" {
		return ""
	}

	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	base, err := url.Parse(pageURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return ref.String()
	}
	return base.ResolveReference(ref).String()
}

func cleanWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
