package refparse

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/matsen/citecheck/internal/citation"
)

var (
	quotedPattern = regexp.MustCompile(`["“「『]([^"”」』]+)["”」』]`)

	// A period preceded by one of these is an abbreviation, not a
	// sentence boundary: author initials ("P."), "et al.", company
	// suffixes.
	noSplitSuffix = regexp.MustCompile(`(?:^|[^A-Za-z])(?:[A-Z]|et al|Inc|Ltd)$`)

	venueMarkerPattern = regexp.MustCompile(`(?i)^(In|Proc|Journal|Vol|doi|http|arXiv)`)
	bareYearPattern    = regexp.MustCompile(`^\d{4}`)
	doiSplitPattern    = regexp.MustCompile(`(?i)doi:`)

	// Venue-start markers scanned after a year-anchored split, earliest
	// occurrence wins.
	venueBlockers = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\.\s+In\b`),
		regexp.MustCompile(`(?i)\.\s+Proceedings`),
		regexp.MustCompile(`(?i)\.\s+Proc\.`),
		regexp.MustCompile(`(?i)\.\s+Journal`),
		regexp.MustCompile(`(?i)\.\s+Trans\.`),
		regexp.MustCompile(`(?i)\.\s+IEEE`),
		regexp.MustCompile(`(?i)\.\s+ACM`),
		regexp.MustCompile(`(?i)\.\s+Springer`),
		regexp.MustCompile(`(?i)\.\s+Vol\.`),
		regexp.MustCompile(`(?i)\.\s+http`),
		regexp.MustCompile(`(?i)doi:`),
	}

	sentencePeriodPattern = regexp.MustCompile(`\.\s+[A-Z]`)
	leadingVenuePattern   = regexp.MustCompile(`(?i)^\.\s+(In\s+)?`)
	trailingInPattern     = regexp.MustCompile(`(?i)\s+In$`)

	commaYearPattern = regexp.MustCompile(`\s+\(?\b(19|20)\d{2}\b`)
	nameInitialWord  = regexp.MustCompile(`[A-Z]\.`)
	singleCapWord    = regexp.MustCompile(`^[A-Z][a-z]+$`)
	nameConnector    = regexp.MustCompile(`\b(and|et al|Inc)\b`)
	venueAbbrevStart = regexp.MustCompile(`(?i)^(Vol|No|pp)`)
)

// quotedTitle takes text inside quote marks (straight, curly, or CJK
// corner brackets) verbatim as the title, with the preceding text as
// authors.
func quotedTitle(raw string, _ Context) Partial {
	loc := quotedPattern.FindStringSubmatchIndex(raw)
	if loc == nil {
		return Partial{}
	}

	title := strings.TrimSpace(raw[loc[2]:loc[3]])
	p := Partial{Title: &title}

	if loc[0] > 0 {
		authors := strings.TrimRight(strings.TrimSpace(raw[:loc[0]]), ".,:")
		if authors != "" {
			p.Authors = &authors
		}
	}
	return p
}

// styleSplit handles the numbered-style convention
// "Authors. Title. Venue, Year." by splitting on sentence-ending periods.
func styleSplit(raw string, ctx Context) Partial {
	if ctx.Style != "" && !strings.Contains(ctx.Style, "Numbered") && !strings.Contains(ctx.Style, "IEEE") {
		return Partial{}
	}

	parts := splitSentences(raw)
	if len(parts) < 2 {
		return Partial{}
	}

	authors := strings.TrimSpace(parts[0])
	title := strings.TrimSpace(parts[1])
	if !isValidTitle(title) {
		return Partial{}
	}

	p := Partial{Title: &title, Authors: &authors}

	if len(parts) > 2 {
		venue := strings.TrimSpace(strings.Join(parts[2:], ". "))
		venue = strings.TrimSpace(doiSplitPattern.Split(venue, 2)[0])
		if len(venue) > 2 {
			p.Venue = &venue
		}
	}
	return p
}

// yearAnchored splits at the extracted year and scans the remainder for
// the earliest venue-start marker; text before the marker is the title
// candidate, text from the marker onward the venue.
func yearAnchored(raw string, ctx Context) Partial {
	if ctx.Year == nil {
		return Partial{}
	}

	yearSplit := regexp.MustCompile(`\b` + *ctx.Year + `\b[).]?\s*`)
	pieces := yearSplit.Split(raw, 2)
	if len(pieces) < 2 {
		return Partial{}
	}
	candidate := pieces[1]

	bestIdx := len(candidate)
	matched := false
	for _, b := range venueBlockers {
		if loc := b.FindStringIndex(candidate); loc != nil && loc[0] < bestIdx {
			bestIdx = loc[0]
			matched = true
		}
	}
	if bestIdx == len(candidate) {
		if loc := sentencePeriodPattern.FindStringIndex(candidate); loc != nil {
			bestIdx = loc[0]
		}
	}

	var p Partial
	if matched {
		venue := strings.TrimSpace(candidate[bestIdx:])
		venue = strings.TrimSpace(leadingVenuePattern.ReplaceAllString(venue, ""))
		venue = strings.TrimRight(venue, ".,")
		if len(venue) > 2 {
			p.Venue = &venue
		}
	}

	title := strings.TrimSpace(strings.Trim(strings.TrimSpace(candidate[:bestIdx]), "."))
	title = trailingInPattern.ReplaceAllString(title, "")
	if len(title) > 5 && !doiSplitPattern.MatchString(title) && !startsWithAny(title, "0123456789([") {
		p.Title = &title
		return p
	}

	// Without a title the venue alone is not trustworthy.
	return Partial{}
}

// genericSplit is the style split applied regardless of document style,
// as a last title-producing resort.
func genericSplit(raw string, _ Context) Partial {
	parts := splitSentences(raw)
	if len(parts) < 2 {
		return Partial{}
	}

	title := strings.TrimSpace(parts[1])
	if !isValidTitle(title) {
		return Partial{}
	}
	authors := strings.TrimSpace(parts[0])
	return Partial{Title: &title, Authors: &authors}
}

// leadingAuthors matches a leading run of non-digit, non-quote,
// non-paren characters terminated by a year, opening paren, or quote.
func leadingAuthors(raw string) *string {
	for i, r := range raw {
		switch {
		case r == '(' || r == '"' || r == '“':
		case unicode.IsDigit(r):
			if !bareYearPattern.MatchString(raw[i:]) {
				return nil
			}
		default:
			continue
		}

		prefix := strings.TrimRight(raw[:i], " \t,")
		prefix = strings.TrimRight(prefix, ".,")
		prefix = strings.TrimSpace(prefix)
		if prefix == "" {
			return nil
		}
		return &prefix
	}
	return nil
}

// applyCommaSplit is the last-resort strategy for comma-delimited
// references: scan adjacent segment pairs for the boundary where a
// name-like segment is followed by a title-like one.
func applyCommaSplit(raw string, c *citation.Citation) {
	parts := strings.Split(raw, ", ")
	if len(parts) <= 2 {
		return
	}

	splitIndex := -1
	for i := 0; i < len(parts)-1; i++ {
		next := parts[i+1]
		if looksLikeName(parts[i]) && !looksLikeName(next) &&
			len(next) > 10 && !bareYearPattern.MatchString(next) && !venueAbbrevStart.MatchString(next) {
			splitIndex = i + 1
			break
		}
	}
	if splitIndex == -1 {
		return
	}

	authors := strings.TrimSpace(strings.Join(parts[:splitIndex], ", "))
	c.Authors = &authors

	remaining := strings.Join(parts[splitIndex:], ", ")
	if loc := commaYearPattern.FindStringIndex(remaining); loc != nil && loc[0] > 0 {
		title := strings.TrimRight(strings.TrimSpace(remaining[:loc[0]]), ".,")
		venue := strings.TrimSpace(remaining[loc[0]:])
		c.Title = &title
		c.Venue = &venue
		return
	}

	title := strings.TrimSpace(parts[splitIndex])
	c.Title = &title
	if len(parts) > splitIndex+1 {
		venue := strings.TrimSpace(strings.Join(parts[splitIndex+1:], ", "))
		c.Venue = &venue
	}
}

func looksLikeName(s string) bool {
	trimmed := strings.TrimSpace(s)
	if len(trimmed) > 20 {
		return false
	}
	if nameConnector.MatchString(trimmed) {
		return true
	}
	return nameInitialWord.MatchString(trimmed) || singleCapWord.MatchString(trimmed)
}

// splitSentences splits on ". " boundaries, skipping periods that end an
// abbreviation rather than a sentence. The delimiter is consumed.
func splitSentences(raw string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(raw); i++ {
		if raw[i] != '.' || i+1 >= len(raw) || !isSpace(raw[i+1]) {
			continue
		}
		if noSplitSuffix.MatchString(raw[:i]) {
			continue
		}
		j := i + 1
		for j < len(raw) && isSpace(raw[j]) {
			j++
		}
		parts = append(parts, raw[start:i])
		start = j
		i = j - 1
	}
	parts = append(parts, raw[start:])
	return parts
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}

func isValidTitle(t string) bool {
	return len(t) > 5 && !venueMarkerPattern.MatchString(t) && !bareYearPattern.MatchString(t)
}

func startsWithAny(s, chars string) bool {
	return s != "" && strings.ContainsRune(chars, rune(s[0]))
}
