package anchor

import (
	"strings"

	"golang.org/x/net/html"

	"page-reader/internal/document"
	"page-reader/internal/domain"
	pkglogger "page-reader/pkg/logger"
)

// Strategy names the search that re-located a passage.
type Strategy int

const (
	StrategyNone Strategy = iota
	StrategyFullContext
	StrategyPrefix
	StrategySuffix
	StrategyText
	StrategyNormalized
)

func (s Strategy) String() string {
	switch s {
	case StrategyFullContext:
		return "prefix+text+suffix"
	case StrategyPrefix:
		return "prefix+text"
	case StrategySuffix:
		return "text+suffix"
	case StrategyText:
		return "text"
	case StrategyNormalized:
		return "normalized"
	default:
		return "none"
	}
}

// Match is a passage resolved against one loaded document.
type Match struct {
	Range    document.Range
	Strategy Strategy
}

type search struct {
	strategy Strategy
	find     func(text string, p domain.Passage) (start, end int, ok bool)
}

// searches run in priority order; the first validated hit wins.
var searches = []search{
	{StrategyFullContext, findFullContext},
	{StrategyPrefix, findWithPrefix},
	{StrategySuffix, findWithSuffix},
	{StrategyText, findText},
	{StrategyNormalized, findNormalized},
}

// Locator re-locates stored passages in a document.
type Locator struct {
	logger domain.Logger
}

// NewLocator creates a Locator. A nil logger discards candidate diagnostics.
func NewLocator(logger domain.Logger) *Locator {
	if logger == nil {
		logger = pkglogger.Nop()
	}
	return &Locator{logger: logger}
}

// Locate finds passage in the body of doc. A false result means the passage
// no longer occurs in the page; callers skip it silently.
func (l *Locator) Locate(doc *document.Document, p domain.Passage) (Match, bool) {
	return l.LocateIn(doc.Body(), p)
}

// LocateIn finds passage in the content text under root.
func (l *Locator) LocateIn(root *html.Node, p domain.Passage) (Match, bool) {
	if strings.TrimSpace(p.Text) == "" {
		return Match{}, false
	}
	m := document.Flatten(root)
	for _, s := range searches {
		start, end, ok := s.find(m.Text, p)
		if !ok {
			continue
		}
		r, err := m.Range(start, end)
		if err != nil {
			l.logger.Debug("Anchor candidate rejected", "strategy", s.strategy, "error", err)
			continue
		}
		if got := r.String(); !sameText(got, p.Text) {
			l.logger.Debug("Anchor candidate text mismatch", "strategy", s.strategy, "got", got)
			continue
		}
		return Match{Range: r, Strategy: s.strategy}, true
	}
	return Match{}, false
}

func findFullContext(text string, p domain.Passage) (int, int, bool) {
	if p.Prefix == "" || p.Suffix == "" {
		return 0, 0, false
	}
	pos := strings.Index(text, p.Prefix+p.Text+p.Suffix)
	if pos < 0 {
		return 0, 0, false
	}
	start := pos + len(p.Prefix)
	return start, start + len(p.Text), true
}

func findWithPrefix(text string, p domain.Passage) (int, int, bool) {
	if p.Prefix == "" {
		return 0, 0, false
	}
	pos := strings.Index(text, p.Prefix+p.Text)
	if pos < 0 {
		return 0, 0, false
	}
	start := pos + len(p.Prefix)
	return start, start + len(p.Text), true
}

func findWithSuffix(text string, p domain.Passage) (int, int, bool) {
	if p.Suffix == "" {
		return 0, 0, false
	}
	pos := strings.Index(text, p.Text+p.Suffix)
	if pos < 0 {
		return 0, 0, false
	}
	return pos, pos + len(p.Text), true
}

func findText(text string, p domain.Passage) (int, int, bool) {
	pos := strings.Index(text, p.Text)
	if pos < 0 {
		return 0, 0, false
	}
	return pos, pos + len(p.Text), true
}

// findNormalized matches with whitespace collapsed on both sides and maps the
// hit back onto the original text. The needle is trimmed, so both of its ends
// are non-space characters with a one-to-one origin.
func findNormalized(text string, p domain.Passage) (int, int, bool) {
	needle := NormalizeWhitespace(p.Text)
	if needle == "" {
		return 0, 0, false
	}
	normalized, origin := collapseWhitespace(text)
	pos := strings.Index(normalized, needle)
	if pos < 0 {
		return 0, 0, false
	}
	last := pos + len(needle) - 1
	return origin[pos], origin[last] + 1, true
}
