package document

import (
	"sort"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// TextMap is the flattened text of a subtree together with the mapping from
// byte offsets in that text back to (text node, offset) positions.
type TextMap struct {
	Text string

	root     *html.Node
	segments []segment
	index    map[*html.Node]int
}

type segment struct {
	node  *html.Node
	start int
}

// Flatten concatenates the content text nodes under root.
func Flatten(root *html.Node) *TextMap {
	nodes := TextNodes(root)
	m := &TextMap{
		root:     root,
		segments: make([]segment, 0, len(nodes)),
		index:    make(map[*html.Node]int, len(nodes)),
	}
	size := 0
	for _, n := range nodes {
		size += len(n.Data)
	}
	buf := make([]byte, 0, size)
	for _, n := range nodes {
		m.index[n] = len(m.segments)
		m.segments = append(m.segments, segment{node: n, start: len(buf)})
		buf = append(buf, n.Data...)
	}
	m.Text = string(buf)
	return m
}

// Root returns the subtree root the map was built from.
func (m *TextMap) Root() *html.Node {
	return m.root
}

// Position returns the address of the byte at offset i of the flattened text.
func (m *TextMap) Position(i int) (Position, bool) {
	if i < 0 || i >= len(m.Text) {
		return Position{}, false
	}
	k := sort.Search(len(m.segments), func(j int) bool {
		return m.segments[j].start > i
	}) - 1
	if k < 0 {
		return Position{}, false
	}
	seg := m.segments[k]
	return Position{Node: seg.node, Offset: i - seg.start}, true
}

// EndPosition returns the address just past the byte at end-1, so that a
// range ending there stays inside the node holding its last character.
func (m *TextMap) EndPosition(end int) (Position, bool) {
	p, ok := m.Position(end - 1)
	if !ok {
		return Position{}, false
	}
	p.Offset++
	return p, true
}

// Offset maps a position back to a byte offset of the flattened text.
func (m *TextMap) Offset(p Position) (int, bool) {
	k, ok := m.index[p.Node]
	if !ok || p.Offset < 0 || p.Offset > len(p.Node.Data) {
		return 0, false
	}
	return m.segments[k].start + p.Offset, true
}

// Range builds the range covering bytes [start, end) of the flattened text.
func (m *TextMap) Range(start, end int) (Range, error) {
	if start >= end {
		return Range{}, rangeError("empty span [%d,%d)", start, end)
	}
	s, ok := m.Position(start)
	if !ok {
		return Range{}, rangeError("start offset %d out of bounds", start)
	}
	e, ok := m.EndPosition(end)
	if !ok {
		return Range{}, rangeError("end offset %d out of bounds", end)
	}
	return NewRange(m.root, s, e)
}

// RuneRange builds a range from character (rune) offsets, the unit clients
// use to describe a selection.
func (m *TextMap) RuneRange(start, end int) (Range, error) {
	bs, ok := m.byteOffset(start)
	if !ok {
		return Range{}, rangeError("start character %d out of bounds", start)
	}
	be, ok := m.byteOffset(end)
	if !ok {
		return Range{}, rangeError("end character %d out of bounds", end)
	}
	return m.Range(bs, be)
}

func (m *TextMap) byteOffset(runes int) (int, bool) {
	if runes < 0 {
		return 0, false
	}
	i := 0
	for n := 0; n < runes; n++ {
		if i >= len(m.Text) {
			return 0, false
		}
		_, w := utf8.DecodeRuneInString(m.Text[i:])
		i += w
	}
	return i, true
}
