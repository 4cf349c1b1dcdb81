package page

import (
	"html"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Plain strips any markup from client-supplied text such as a title or
// excerpt and collapses its whitespace.
func Plain(s string) string {
	return cleanWhitespace(html.UnescapeString(strict.Sanitize(s)))
}
