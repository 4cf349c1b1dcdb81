package anchor

import (
	"fmt"
	"strings"

	"golang.org/x/net/html"

	"page-reader/internal/document"
	"page-reader/internal/domain"
)

// contextLevels bounds how far above the selection the context text is taken from.
const contextLevels = 3

// Extractor derives storable passages from live selections.
type Extractor struct {
	contextChars int
}

// NewExtractor returns an Extractor keeping contextChars characters of context
// on each side. Non-positive values fall back to domain.DefaultContextChars.
func NewExtractor(contextChars int) *Extractor {
	if contextChars <= 0 {
		contextChars = domain.DefaultContextChars
	}
	return &Extractor{contextChars: contextChars}
}

// Describe captures the selected text verbatim plus up to contextChars
// characters of flattened text before and after it. Context is read from a
// bounded ancestor of the selection, so it may be shorter than contextChars
// near the edges of that ancestor.
func (e *Extractor) Describe(r document.Range) (domain.Passage, error) {
	text := r.String()
	if strings.TrimSpace(text) == "" {
		return domain.Passage{}, domain.ErrEmptySelection
	}

	m := document.Flatten(contextRoot(r))
	start, ok := m.Offset(r.Start)
	if !ok {
		return domain.Passage{}, fmt.Errorf("%w: selection start outside its ancestor", domain.ErrRangeConstruction)
	}
	end, ok := m.Offset(r.End)
	if !ok {
		return domain.Passage{}, fmt.Errorf("%w: selection end outside its ancestor", domain.ErrRangeConstruction)
	}

	return domain.Passage{
		Text:   text,
		Prefix: lastRunes(m.Text[:start], e.contextChars),
		Suffix: firstRunes(m.Text[end:], e.contextChars),
	}, nil
}

// contextRoot walks up from the selection's common ancestor element through
// at most contextLevels parents, never past the content root.
func contextRoot(r document.Range) *html.Node {
	body := r.Root()
	n := r.CommonAncestor()
	if n.Type == html.TextNode && n.Parent != nil {
		n = n.Parent
	}
	for i := 0; i < contextLevels && n != body && n.Parent != nil && n.Parent != body; i++ {
		n = n.Parent
	}
	return n
}
