package document

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"page-reader/internal/domain"
)

// Position addresses a byte offset inside a text node.
type Position struct {
	Node   *html.Node
	Offset int
}

// Range is a span of content text between two positions under a common root.
// Ranges are ephemeral: mutating the tree under them invalidates them.
type Range struct {
	root  *html.Node
	Start Position
	End   Position
}

func rangeError(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", domain.ErrRangeConstruction, fmt.Sprintf(format, args...))
}

// NewRange validates start and end against root and builds the range.
// It fails with domain.ErrRangeConstruction when a position is not inside a
// content text node of root, splits a character, or end precedes start.
func NewRange(root *html.Node, start, end Position) (Range, error) {
	for _, p := range []Position{start, end} {
		if p.Node == nil || p.Node.Type != html.TextNode {
			return Range{}, rangeError("position is not inside a text node")
		}
		if p.Offset < 0 || p.Offset > len(p.Node.Data) {
			return Range{}, rangeError("offset %d outside node of length %d", p.Offset, len(p.Node.Data))
		}
		if p.Offset < len(p.Node.Data) && !utf8.RuneStart(p.Node.Data[p.Offset]) {
			return Range{}, rangeError("offset %d splits a character", p.Offset)
		}
		if !Contains(root, p.Node) {
			return Range{}, rangeError("node is detached from the document")
		}
	}

	if start.Node == end.Node {
		if start.Offset > end.Offset {
			return Range{}, rangeError("end precedes start")
		}
	} else {
		startSeen := false
		for _, n := range TextNodes(root) {
			if n == start.Node {
				startSeen = true
			}
			if n == end.Node {
				break
			}
		}
		if !startSeen {
			return Range{}, rangeError("end precedes start")
		}
	}

	return Range{root: root, Start: start, End: end}, nil
}

// Root returns the node the range was validated against.
func (r Range) Root() *html.Node {
	return r.root
}

// Collapsed reports whether the range is empty.
func (r Range) Collapsed() bool {
	return r.Start == r.End
}

// TextNodes returns every text node the range touches, start and end included.
func (r Range) TextNodes() []*html.Node {
	if r.Start.Node == r.End.Node {
		return []*html.Node{r.Start.Node}
	}
	var out []*html.Node
	in := false
	for _, n := range TextNodes(r.root) {
		if n == r.Start.Node {
			in = true
		}
		if in {
			out = append(out, n)
		}
		if n == r.End.Node {
			break
		}
	}
	return out
}

// String returns the text covered by the range.
func (r Range) String() string {
	if r.Start.Node == nil {
		return ""
	}
	if r.Start.Node == r.End.Node {
		return r.Start.Node.Data[r.Start.Offset:r.End.Offset]
	}
	var b strings.Builder
	for _, n := range r.TextNodes() {
		switch n {
		case r.Start.Node:
			b.WriteString(n.Data[r.Start.Offset:])
		case r.End.Node:
			b.WriteString(n.Data[:r.End.Offset])
		default:
			b.WriteString(n.Data)
		}
	}
	return b.String()
}

// CommonAncestor returns the deepest node containing both ends of the range.
func (r Range) CommonAncestor() *html.Node {
	seen := make(map[*html.Node]bool)
	for p := r.Start.Node; p != nil; p = p.Parent {
		seen[p] = true
	}
	for p := r.End.Node; p != nil; p = p.Parent {
		if seen[p] {
			return p
		}
	}
	return r.root
}
