package anchor

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// NormalizeWhitespace collapses every whitespace run to one space and trims the ends.
func NormalizeWhitespace(s string) string {
	collapsed, _ := collapseWhitespace(s)
	return strings.TrimSpace(collapsed)
}

// collapseWhitespace replaces each whitespace run in s with a single space.
// origin[i] is the byte offset in s that byte i of the result came from; a
// collapsed run maps to the start of the run. origin has one extra entry
// holding len(s).
func collapseWhitespace(s string) (string, []int) {
	var b strings.Builder
	b.Grow(len(s))
	origin := make([]int, 0, len(s)+1)
	inSpace := false
	for i := 0; i < len(s); {
		r, w := utf8.DecodeRuneInString(s[i:])
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte(' ')
				origin = append(origin, i)
				inSpace = true
			}
			i += w
			continue
		}
		inSpace = false
		b.WriteString(s[i : i+w])
		for k := 0; k < w; k++ {
			origin = append(origin, i+k)
		}
		i += w
	}
	origin = append(origin, len(s))
	return b.String(), origin
}

// sameText reports whether a and b are equal, exactly or once whitespace is normalized.
func sameText(a, b string) bool {
	return a == b || NormalizeWhitespace(a) == NormalizeWhitespace(b)
}

func lastRunes(s string, n int) string {
	i := len(s)
	for count := 0; count < n && i > 0; count++ {
		_, w := utf8.DecodeLastRuneInString(s[:i])
		i -= w
	}
	return s[i:]
}

func firstRunes(s string, n int) string {
	i := 0
	for count := 0; count < n && i < len(s); count++ {
		_, w := utf8.DecodeRuneInString(s[i:])
		i += w
	}
	return s[:i]
}
