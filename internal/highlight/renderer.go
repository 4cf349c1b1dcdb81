// Package highlight draws stored highlights into a page tree as <mark>
// elements and removes them again.
package highlight

import (
	"fmt"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"page-reader/internal/document"
	"page-reader/internal/domain"
)

const (
	// MarkerClass is the class every marker element carries.
	MarkerClass = "reader-highlight"
	// IDAttr holds the highlight id on a marker element.
	IDAttr = "data-highlight-id"
)

// ActivateFunc receives the id of a highlight whose marker was activated.
type ActivateFunc func(highlightID string)

// Marker is one element wrapping the part of a highlight inside a single text node.
type Marker struct {
	Node        *html.Node
	HighlightID string

	renderer *Renderer
}

// Activate reports the whole highlight, not just this fragment, to the
// renderer's activation hook.
func (m *Marker) Activate() {
	if m.renderer != nil {
		m.renderer.activate(m.HighlightID)
	}
}

// Renderer wraps ranges in markers and unwraps them by highlight id.
type Renderer struct {
	mu         sync.RWMutex
	onActivate ActivateFunc
}

// NewRenderer creates a Renderer with no activation hook.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// OnActivate installs the hook called when any marker is activated.
func (r *Renderer) OnActivate(fn ActivateFunc) {
	r.mu.Lock()
	r.onActivate = fn
	r.mu.Unlock()
}

func (r *Renderer) activate(id string) {
	r.mu.RLock()
	fn := r.onActivate
	r.mu.RUnlock()
	if fn != nil {
		fn(id)
	}
}

// Render wraps the highlighted part of every text node the range covers in a
// marker tagged with id. Text outside the range stays in plain text nodes
// next to the marker. The range is consumed: its nodes are replaced.
func (r *Renderer) Render(rng document.Range, id string) ([]*Marker, error) {
	if id == "" {
		return nil, domain.ErrMissingHighlightID
	}
	if rng.Start.Node == nil {
		return nil, fmt.Errorf("%w: empty range", domain.ErrRangeConstruction)
	}

	var markers []*Marker
	for _, n := range rng.TextNodes() {
		start, end := 0, len(n.Data)
		if n == rng.Start.Node {
			start = rng.Start.Offset
		}
		if n == rng.End.Node {
			end = rng.End.Offset
		}
		if start >= end {
			continue
		}

		before, middle, after := document.SplitText(n, start, end)
		mark := newMarkerNode(id, middle)
		parts := make([]*html.Node, 0, 3)
		if before != "" {
			parts = append(parts, document.NewText(before))
		}
		parts = append(parts, mark)
		if after != "" {
			parts = append(parts, document.NewText(after))
		}
		if err := document.ReplaceNode(n, parts...); err != nil {
			return markers, fmt.Errorf("failed to wrap text node: %w", err)
		}
		markers = append(markers, &Marker{Node: mark, HighlightID: id, renderer: r})
	}
	return markers, nil
}

// Unrender removes every marker tagged with id under root and returns how
// many were removed. Marker children are moved up in place, so markers of
// other highlights nested inside survive. Calling it again is a no-op.
func (r *Renderer) Unrender(root *html.Node, id string) (int, error) {
	if id == "" {
		return 0, domain.ErrMissingHighlightID
	}
	nodes := FindMarkers(root, id)
	parents := make([]*html.Node, 0, len(nodes))
	for _, m := range nodes {
		parent := m.Parent
		if parent == nil {
			continue
		}
		if err := unwrap(m); err != nil {
			return 0, err
		}
		parents = append(parents, parent)
	}
	for _, p := range parents {
		document.MergeAdjacentText(p)
	}
	return len(nodes), nil
}

// Markers returns the marker handles for a highlight already present in the
// tree, for example after the page was re-parsed.
func (r *Renderer) Markers(root *html.Node, id string) []*Marker {
	nodes := FindMarkers(root, id)
	out := make([]*Marker, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &Marker{Node: n, HighlightID: id, renderer: r})
	}
	return out
}

// FindMarkers returns the marker elements for id in document order.
func FindMarkers(root *html.Node, id string) []*html.Node {
	if root == nil {
		return nil
	}
	return goquery.NewDocumentFromNode(root).
		Find("mark." + MarkerClass).
		FilterFunction(func(_ int, s *goquery.Selection) bool {
			v, ok := s.Attr(IDAttr)
			return ok && v == id
		}).Nodes
}

// HighlightIDs lists the distinct highlight ids rendered under root.
func HighlightIDs(root *html.Node) []string {
	if root == nil {
		return nil
	}
	seen := make(map[string]bool)
	var ids []string
	goquery.NewDocumentFromNode(root).Find("mark." + MarkerClass).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr(IDAttr); ok && !seen[v] {
			seen[v] = true
			ids = append(ids, v)
		}
	})
	return ids
}

func newMarkerNode(id, text string) *html.Node {
	mark := &html.Node{
		Type:     html.ElementNode,
		Data:     "mark",
		DataAtom: atom.Mark,
		Attr: []html.Attribute{
			{Key: "class", Val: MarkerClass},
			{Key: IDAttr, Val: id},
		},
	}
	mark.AppendChild(document.NewText(text))
	return mark
}

func unwrap(m *html.Node) error {
	var children []*html.Node
	for c := m.FirstChild; c != nil; c = c.NextSibling {
		children = append(children, c)
	}
	for _, c := range children {
		m.RemoveChild(c)
	}
	if err := document.ReplaceNode(m, children...); err != nil {
		return fmt.Errorf("failed to unwrap marker: %w", err)
	}
	return nil
}
