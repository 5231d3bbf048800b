// Package score computes the weighted, explainable confidence score
// between an extracted citation and a candidate metadata record.
package score

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citecheck/internal/citation"
)

// Field weights. When no parsed title exists the raw-text prefix is
// compared instead, at a reduced maximum.
const (
	TitleWeight       = 0.5
	RawFallbackWeight = 0.4
	AuthorWeight      = 0.3
	YearWeight        = 0.2

	// TitleGate forces the entire score to zero when title similarity
	// falls below it: a sub-0.3 title means a different paper, and no
	// partial credit should accrue from authors or year alone.
	TitleGate = 0.3

	// Matched-flag thresholds.
	titleMatchedAt  = 0.7
	authorMatchedAt = 0.5

	// prefixFloor and containsFloor are the minimum similarities awarded
	// when a short title is a prefix of, or a whole word inside, the
	// longer canonical title.
	prefixFloor   = 0.85
	containsFloor = 0.8

	// rawPrefixLen is how much of the raw text substitutes for a
	// missing parsed title.
	rawPrefixLen = 100

	// maxCountedAuthors caps the author-ratio denominator so matching 3
	// surnames of a 10-author paper is not penalized for the other 7.
	maxCountedAuthors = 3
)

var (
	punctPattern = regexp.MustCompile(`[^a-zA-Z0-9_\s]`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Confidence scores a candidate against a citation and returns the total
// in [0,1] plus the per-field breakdown.
func Confidence(c citation.Citation, p *citation.Paper) (float64, citation.Breakdown) {
	breakdown := citation.Breakdown{
		Title:   citation.FieldScore{Max: TitleWeight},
		Authors: citation.FieldScore{Max: AuthorWeight},
		Year:    citation.FieldScore{Max: YearWeight},
	}

	if p == nil {
		return 0, breakdown
	}

	if c.Title != nil && p.Title != "" {
		sim := Similarity(*c.Title, p.Title)
		if sim < TitleGate {
			return 0, breakdown
		}
		breakdown.Title.Score = sim * TitleWeight
		breakdown.Title.Matched = sim >= titleMatchedAt
	} else {
		prefix := c.Raw
		if len(prefix) > rawPrefixLen {
			prefix = prefix[:rawPrefixLen]
		}
		sim := Similarity(prefix, p.Title)
		if sim < TitleGate {
			return 0, breakdown
		}
		breakdown.Title.Score = sim * RawFallbackWeight
		breakdown.Title.Matched = sim >= titleMatchedAt
	}

	if c.Authors != nil && len(p.Authors) > 0 {
		ratio := authorSimilarity(*c.Authors, p.Authors)
		breakdown.Authors.Score = ratio * AuthorWeight
		breakdown.Authors.Matched = ratio >= authorMatchedAt
	}

	if c.Year != nil && p.Year > 0 {
		if citYear, err := strconv.Atoi(*c.Year); err == nil {
			diff := citYear - p.Year
			if diff < 0 {
				diff = -diff
			}
			switch {
			case diff <= 1:
				breakdown.Year.Score = YearWeight
				breakdown.Year.Matched = true
			case diff == 2:
				breakdown.Year.Score = YearWeight / 2
			}
		}
	}

	total := breakdown.Title.Score + breakdown.Authors.Score + breakdown.Year.Score
	if total > 1 {
		total = 1
	}
	if total < 0 {
		total = 0
	}
	return total, breakdown
}

// Normalize lowercases, replaces punctuation with spaces, and collapses
// whitespace.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = punctPattern.ReplaceAllString(s, " ")
	s = spacePattern.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Similarity compares two strings after normalization. Exact matches
// score 1. A shorter string that is a prefix of the longer scores at
// least 0.85 (rewarding short extracted titles that are true prefixes of
// longer canonical titles); whole-word containment scores at least 0.8.
// Everything else falls back to the character-bigram Dice coefficient.
func Similarity(a, b string) float64 {
	s1 := Normalize(a)
	s2 := Normalize(b)

	if s1 == "" || s2 == "" {
		return 0
	}
	if s1 == s2 {
		return 1
	}

	shorter, longer := s1, s2
	if len(s2) < len(s1) {
		shorter, longer = s2, s1
	}
	ratio := float64(len(shorter)) / float64(len(longer))

	if strings.HasPrefix(longer, shorter) {
		if ratio > prefixFloor {
			return ratio
		}
		return prefixFloor
	}

	if strings.Contains(longer, shorter+" ") || strings.Contains(longer, " "+shorter) {
		if ratio > containsFloor {
			return ratio
		}
		return containsFloor
	}

	return diceBigram(s1, s2)
}

// diceBigram computes the Dice coefficient over character 2-grams.
func diceBigram(s1, s2 string) float64 {
	b1 := bigrams(s1)
	b2 := bigrams(s2)
	if len(b1) == 0 || len(b2) == 0 {
		return 0
	}

	intersection := 0
	for g := range b1 {
		if b2[g] {
			intersection++
		}
	}
	return 2 * float64(intersection) / float64(len(b1)+len(b2))
}

func bigrams(s string) map[string]bool {
	set := make(map[string]bool, len(s))
	for i := 0; i+2 <= len(s); i++ {
		set[s[i:i+2]] = true
	}
	return set
}

// authorSimilarity reports what fraction of the candidate's authors have
// their surname somewhere in the citation's raw author string. The
// denominator is capped at maxCountedAuthors.
func authorSimilarity(citedAuthors string, authors []string) float64 {
	if citedAuthors == "" || len(authors) == 0 {
		return 0
	}

	cited := strings.ToLower(citedAuthors)
	matched := 0
	for _, a := range authors {
		fields := strings.Fields(strings.ToLower(a))
		if len(fields) == 0 {
			continue
		}
		surname := fields[len(fields)-1]
		if len(surname) > 2 && strings.Contains(cited, surname) {
			matched++
		}
	}
	if matched == 0 {
		return 0
	}

	denom := len(authors)
	if denom > maxCountedAuthors {
		denom = maxCountedAuthors
	}
	ratio := float64(matched) / float64(denom)
	if ratio > 1 {
		ratio = 1
	}
	return ratio
}
