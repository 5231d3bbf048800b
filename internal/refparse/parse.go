// Package refparse extracts title, authors, venue and year from a raw
// reference string. Parsing is a cascade of named strategies tried in
// priority order until one yields a title; every path is best-effort and
// a reference no strategy can crack still produces a valid Citation with
// nil fields.
package refparse

import (
	"regexp"
	"strings"

	"github.com/matsen/citecheck/internal/citation"
)

// Context carries per-document information into the strategies.
type Context struct {
	Style string
	Year  *string
}

// Partial holds whatever fields one strategy could recover.
type Partial struct {
	Title   *string
	Authors *string
	Venue   *string
}

// Strategy is one titled extraction heuristic. Strategies are pure: they
// inspect the raw string and return recovered fields without touching
// shared state, which keeps each one independently testable.
type Strategy struct {
	Name  string
	Apply func(raw string, ctx Context) Partial
}

// titleStrategies are applied in priority order; the first one that
// yields a title wins.
var titleStrategies = []Strategy{
	{Name: "quoted-title", Apply: quotedTitle},
	{Name: "style-split", Apply: styleSplit},
	{Name: "year-anchored", Apply: yearAnchored},
	{Name: "generic-split", Apply: genericSplit},
}

var yearPattern = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)

// maxAuthorBackfillLen rejects absurdly long author back-fills, which
// indicate the title was found deep inside body text.
const maxAuthorBackfillLen = 200

// Parse extracts best-effort fields from one raw reference entry.
func Parse(id, raw, style string) citation.Citation {
	c := citation.Citation{ID: id, Raw: raw, Style: style}

	if m := yearPattern.FindString(raw); m != "" {
		c.Year = &m
	}

	ctx := Context{Style: style, Year: c.Year}
	for _, s := range titleStrategies {
		p := s.Apply(raw, ctx)
		if p.Title == nil {
			continue
		}
		c.Title = p.Title
		if p.Authors != nil {
			c.Authors = p.Authors
		}
		if p.Venue != nil {
			c.Venue = p.Venue
		}
		break
	}

	// Back-fill authors from the text preceding the title.
	if c.Title != nil && c.Authors == nil {
		if idx := strings.Index(raw, *c.Title); idx > 3 {
			candidate := strings.TrimRight(strings.TrimSpace(raw[:idx]), ".,")
			if len(candidate) > 0 && len(candidate) < maxAuthorBackfillLen {
				c.Authors = &candidate
			}
		}
	}

	if c.Authors == nil {
		c.Authors = leadingAuthors(raw)
	}

	if c.Title == nil && c.Authors == nil && strings.Contains(raw, ",") {
		applyCommaSplit(raw, &c)
	}

	return c
}
