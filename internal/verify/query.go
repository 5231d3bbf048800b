package verify

import (
	"regexp"
	"strings"

	"github.com/matsen/citecheck/internal/citation"
)

const (
	maxTitleQueryLen = 150
	rawQueryLen      = 100
)

var (
	// A hyphen with no space before it, followed by whitespace and a
	// letter, is a word broken across a line wrap. Real subtitle
	// separators ("Title - Subtitle") keep a space before the hyphen
	// and are left alone.
	brokenHyphenPattern = regexp.MustCompile(`(\w)-\s+(\w)`)

	queryPunctPattern = regexp.MustCompile(`[^a-zA-Z0-9_\s]`)
	querySpacePattern = regexp.MustCompile(`\s+`)
)

// BuildQuery builds the provider search query for a citation: the parsed
// title when present, otherwise a prefix of the raw text; hyphenation
// broken by line wraps repaired, punctuation stripped, whitespace
// collapsed.
func BuildQuery(c citation.Citation) string {
	text := ""
	if c.Title != nil && *c.Title != "" {
		text = *c.Title
		if len(text) > maxTitleQueryLen {
			text = text[:maxTitleQueryLen]
		}
	} else {
		text = c.Raw
		if len(text) > rawQueryLen {
			text = text[:rawQueryLen]
		}
	}

	text = brokenHyphenPattern.ReplaceAllString(text, "$1$2")
	text = queryPunctPattern.ReplaceAllString(text, " ")
	text = querySpacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
