package domain

import (
	"context"
	"strings"
	"time"
)

// DefaultContextChars is how many characters of surrounding text a Passage keeps on each side.
const DefaultContextChars = 50

// Passage is a portable description of a text span: the exact text plus the
// flattened document text immediately around it.
type Passage struct {
	Text   string `json:"text"`
	Prefix string `json:"prefix"`
	Suffix string `json:"suffix"`
}

// Validate reports whether the passage can be stored.
func (p Passage) Validate() error {
	if strings.TrimSpace(p.Text) == "" {
		return &ValidationError{Field: "text", Message: "text is required"}
	}
	return nil
}

// Highlight represents a persisted passage on a saved page.
type Highlight struct {
	ID string `json:"id"`
	Passage
	CreatedAt time.Time `json:"createdAt"`
}

// HighlightService defines the use-case operations for highlights.
type HighlightService interface {
	CreateHighlight(ctx context.Context, url string, passage Passage) (string, error)
	ListHighlights(ctx context.Context, url string) ([]*Highlight, error)
	DeleteHighlight(ctx context.Context, url string, highlightID string) error
}
