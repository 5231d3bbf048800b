// Package segment locates the bibliography in reconstructed document text
// and splits it into one raw string per reference entry.
package segment

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/matsen/citecheck/internal/citation"
)

// Entry is one raw reference entry with its (renumbered) marker.
type Entry struct {
	RefNum string `json:"refNum"`
	Raw    string `json:"raw"`
}

const (
	// minEntryLength discards committed entries shorter than this as noise.
	minEntryLength = 10

	// maxEntryLength discards entries longer than this: real references
	// stay under it, so anything above signals captured body text or
	// merged page headers.
	maxEntryLength = 700

	// maxDotNumber bounds "n." markers so page and section numbers are
	// not mistaken for dot-numbered references.
	maxDotNumber = 500

	// sequentialWindow and minSequentialRefs control the header-less
	// fallback: a run of at least minSequentialRefs sequential bracketed
	// markers within sequentialWindow lines marks the section start.
	sequentialWindow  = 30
	minSequentialRefs = 3
)

var (
	// Some layouts merge the section header with the first entry on one
	// physical line; split them before any other processing.
	mergedHeaderPattern = regexp.MustCompile(`(?m)^(.*(?:References|REFERENCES|参考文献).{0,5})\s+(\[[0-9]+\]|[0-9]+\.)\s+(.*)$`)

	headerPattern         = regexp.MustCompile(`(?i)^\s*(?:References|参考文献|Works Cited|Bibliography|References\s+and\s+Notes)(?:\s|$)`)
	numberedHeaderPattern = regexp.MustCompile(`(?i)^\s*\d+\.?\s*References\s*$`)

	// A header at the end of a long line is the signature of a merged
	// two-column layout.
	midLineHeaderPattern = regexp.MustCompile(`\s{2,}(?:REFERENCES|References)\s*$`)

	headerLeakPattern = regexp.MustCompile(`^(?:References|REFERENCES|参考文献|Works Cited|Bibliography)\s*`)

	bracketStart = regexp.MustCompile(`^\s*\[\s*(\d+)\s*\]\s*(.*)`)
	dotStart     = regexp.MustCompile(`^\s*(\d+)\.\s+(.*)`)

	bracketTest = regexp.MustCompile(`^\s*\[\s*(\d+)\s*\]`)
	dotTest     = regexp.MustCompile(`^\s*(\d+)\.\s+`)

	capitalStart = regexp.MustCompile(`^[A-Z]`)

	// Appendix or acknowledgment headers after the bibliography.
	endOfRefsPattern = regexp.MustCompile(`^\s*(?:A(?:PPENDIX)?|B|C|D)(?:\s+|\.\s*)[A-Z][A-Z\s]+|^\s*(?:APPENDIX|Appendix|付録)`)
)

// Segment splits reconstructed document text into reference entries and
// reports the detected numbering style. Zero entries with a nil error
// means no recognizable bibliography; the caller decides how to surface
// that.
func Segment(text string) ([]Entry, string) {
	processed := mergedHeaderPattern.ReplaceAllString(text, "$1\n$2 $3")
	lines := strings.Split(processed, "\n")

	start := findSectionStart(lines)
	relevant := lines
	if start != -1 {
		relevant = lines[start:]
	}

	style := detectStyle(relevant)

	// Without a header the whole document is the candidate bibliography;
	// the length filters below discard what the splitter picks up from
	// body prose.
	raw := splitEntries(relevant, style)

	// Strip the header phrase if it leaked into the first entry.
	if len(raw) > 0 {
		raw[0].Raw = strings.TrimSpace(headerLeakPattern.ReplaceAllString(raw[0].Raw, ""))
	}

	var entries []Entry
	for _, e := range raw {
		if e.Raw == "" || len(e.Raw) > maxEntryLength {
			continue
		}
		entries = append(entries, e)
	}
	for i := range entries {
		entries[i].RefNum = strconv.Itoa(i + 1)
	}

	return entries, style
}

// findSectionStart scans for an explicit section header, then falls back
// to locating a run of sequential bracketed markers. Returns -1 when
// neither heuristic fires (the whole document is then the candidate
// bibliography, best-effort).
func findSectionStart(lines []string) int {
	for i, line := range lines {
		if headerPattern.MatchString(line) || numberedHeaderPattern.MatchString(line) {
			return i
		}
		if midLineHeaderPattern.MatchString(line) {
			return i
		}
	}

	// A single [1] could be an inline citation; require a sequential run.
	for i := 0; i < len(lines)-5; i++ {
		m := bracketTest.FindStringSubmatch(lines[i])
		if m == nil || m[1] != "1" {
			continue
		}
		count := 1
		last := 1
		end := i + sequentialWindow
		if end > len(lines) {
			end = len(lines)
		}
		for j := i + 1; j < end; j++ {
			m := bracketTest.FindStringSubmatch(lines[j])
			if m == nil {
				continue
			}
			n, _ := strconv.Atoi(m[1])
			if n == last+1 || n == last {
				count++
				last = n
			}
		}
		if count >= minSequentialRefs {
			return i
		}
	}

	return -1
}

// detectStyle counts bracket-numbered versus dot-numbered line starts.
// The higher count wins; a double-zero means an unnumbered author-year
// bibliography handled by hanging-indent heuristics.
func detectStyle(lines []string) string {
	bracketCount, dotCount := 0, 0
	for _, line := range lines {
		if bracketTest.MatchString(line) {
			bracketCount++
			continue
		}
		if m := dotTest.FindStringSubmatch(line); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n < maxDotNumber {
				dotCount++
			}
		}
	}

	switch {
	case bracketCount > 0 && bracketCount >= dotCount:
		return citation.StyleBracket
	case dotCount > 0:
		return citation.StyleDot
	default:
		return citation.StyleAuthorYear
	}
}

func splitEntries(lines []string, style string) []Entry {
	var entries []Entry
	var current []string
	refNum := ""
	unnumbered := style == citation.StyleAuthorYear
	counter := 1

	commit := func() {
		if refNum == "" || len(current) == 0 {
			return
		}
		raw := strings.TrimSpace(strings.Join(current, " "))
		if len(raw) > minEntryLength {
			entries = append(entries, Entry{RefNum: refNum, Raw: raw})
		}
	}

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)

		if trimmed == "" {
			if unnumbered {
				// Blank lines terminate the current unnumbered entry.
				commit()
				refNum = ""
				current = nil
			}
			continue
		}

		if endOfRefsPattern.MatchString(trimmed) {
			commit()
			refNum = ""
			break
		}

		newEntry := false
		newNum := ""
		content := ""

		switch style {
		case citation.StyleBracket:
			if m := bracketStart.FindStringSubmatch(line); m != nil {
				newEntry = true
				newNum = m[1]
				content = m[2]
			}
		case citation.StyleDot:
			if m := dotStart.FindStringSubmatch(line); m != nil {
				if n, err := strconv.Atoi(m[1]); err == nil && n < maxDotNumber {
					newEntry = true
					newNum = m[1]
					content = m[2]
				}
			}
		default:
			// Hanging-indent convention: a non-indented line starting
			// with a capital opens a new entry; indented lines continue
			// the current one.
			indented := strings.HasPrefix(line, " ")
			if (!indented || refNum == "") && capitalStart.MatchString(trimmed) {
				newEntry = true
				newNum = strconv.Itoa(counter)
				counter++
				content = trimmed
			}
		}

		if newEntry {
			commit()
			refNum = newNum
			current = []string{content}
		} else if refNum != "" {
			current = append(current, trimmed)
		}
	}

	commit()
	return entries
}
