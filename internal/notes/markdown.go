// Package notes renders highlights as a Markdown reading-notes document.
package notes

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/markdown"

	"page-reader/internal/domain"
)

// Title heads every notes document.
const Title = "Reading notes"

// Write renders groups as Markdown: one section per article with its
// highlights as a bullet list, in the order given.
func Write(w io.Writer, groups []*domain.HighlightGroup) error {
	md := markdown.NewMarkdown(w)
	md.H1(Title)
	md.PlainText("")

	if len(groups) == 0 {
		md.PlainText("No highlights yet.")
		return md.Build()
	}

	for _, g := range groups {
		md.H2(oneLine(g.ArticleTitle))
		md.PlainText("")
		md.PlainTextf("Source: <%s>", g.URL)
		md.PlainText("")

		items := make([]string, 0, len(g.Highlights))
		for _, h := range g.Highlights {
			items = append(items, fmt.Sprintf("%s (%s)", oneLine(h.Text), h.CreatedAt.Format("2006-01-02")))
		}
		md.BulletList(items...)
		md.PlainText("")
	}
	return md.Build()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
