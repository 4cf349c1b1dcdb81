// Package document models a loaded page as an HTML node tree with addressable
// text positions. It exposes the handful of tree operations the anchoring and
// rendering code needs: flattening text, mapping flat offsets to node
// positions and back, splitting text nodes and replacing nodes in place.
package document

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// Document is one loaded instance of a page.
type Document struct {
	root *html.Node
	body *html.Node
}

// Parse reads an HTML document.
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}
	return FromNode(root), nil
}

// ParseString parses an HTML document held in a string.
func ParseString(s string) (*Document, error) {
	return Parse(strings.NewReader(s))
}

// FromNode wraps an already parsed tree. When the tree has no <body> the root
// itself is used as the content root.
func FromNode(root *html.Node) *Document {
	body := findElement(root, atom.Body)
	if body == nil {
		body = root
	}
	return &Document{root: root, body: body}
}

// Root returns the document node.
func (d *Document) Root() *html.Node {
	return d.root
}

// Body returns the element holding the page content.
func (d *Document) Body() *html.Node {
	return d.body
}

// Text returns the flattened text of the body.
func (d *Document) Text() string {
	return Flatten(d.body).Text
}

// Render writes the document as HTML.
func (d *Document) Render(w io.Writer) error {
	return html.Render(w, d.root)
}

// HTML renders the document to a string.
func (d *Document) HTML() (string, error) {
	var buf bytes.Buffer
	if err := d.Render(&buf); err != nil {
		return "", fmt.Errorf("failed to render html: %w", err)
	}
	return buf.String(), nil
}

// nonContent reports whether n is an element whose text never counts as page text.
func nonContent(n *html.Node) bool {
	if n.Type != html.ElementNode {
		return false
	}
	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template:
		return true
	}
	return false
}

// TextNodes returns the content text nodes under root in document order.
func TextNodes(root *html.Node) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n)
			return
		}
		if n != root && nonContent(n) {
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// TextContent concatenates the content text under n.
func TextContent(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for _, t := range TextNodes(n) {
		b.WriteString(t.Data)
	}
	return b.String()
}

// Contains reports whether n is content text reachable from root.
func Contains(root, n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == root {
			return true
		}
		if nonContent(p) {
			return false
		}
	}
	return false
}

// SplitText cuts the text of n at the byte offsets start and end.
func SplitText(n *html.Node, start, end int) (before, middle, after string) {
	return n.Data[:start], n.Data[start:end], n.Data[end:]
}

// ReplaceNode substitutes old with replacements, keeping them in the same
// place in document order. Siblings of old are not touched.
func ReplaceNode(old *html.Node, replacements ...*html.Node) error {
	parent := old.Parent
	if parent == nil {
		return fmt.Errorf("cannot replace a detached node")
	}
	for _, r := range replacements {
		parent.InsertBefore(r, old)
	}
	parent.RemoveChild(old)
	return nil
}

// MergeAdjacentText joins runs of sibling text nodes under parent.
func MergeAdjacentText(parent *html.Node) {
	for c := parent.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode && next != nil && next.Type == html.TextNode {
			c.Data += next.Data
			parent.RemoveChild(next)
			continue
		}
		c = next
	}
}

// NewText creates a detached text node.
func NewText(s string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: s}
}

// Attr returns the value of the attribute key on n.
func Attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}
