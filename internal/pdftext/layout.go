package pdftext

import (
	"math"
	"sort"
	"strings"
)

// ColumnMode selects how two-column layouts are detected. Both variants
// are kept because neither is clearly better on real papers; pick by
// empirical testing.
type ColumnMode string

const (
	// ColumnModeFloor requires an absolute minimum fragment count on each
	// side of the midpoint. Avoids misclassifying sparse pages with a
	// single sidebar caption as two columns.
	ColumnModeFloor ColumnMode = "floor"

	// ColumnModeShare requires each side to hold a minimum share of the
	// page's fragments.
	ColumnModeShare ColumnMode = "share"
)

// Defaults for line reconstruction, matching what works on typical
// academic two-column PDFs.
const (
	DefaultMinColumnFragments = 10
	DefaultMinColumnShare     = 0.25

	defaultFontSize = 10.0
	indentTolerance = 5.0 // units right of the stable margin
	blankLineFactor = 2.0 // gap > factor*fontSize inserts a blank line
)

// Options configures page reconstruction.
type Options struct {
	Mode               ColumnMode
	MinColumnFragments int
	MinColumnShare     float64
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ColumnModeFloor
	}
	if o.MinColumnFragments <= 0 {
		o.MinColumnFragments = DefaultMinColumnFragments
	}
	if o.MinColumnShare <= 0 {
		o.MinColumnShare = DefaultMinColumnShare
	}
	return o
}

type line struct {
	y    float64
	x    float64
	text string
}

// ReconstructPage turns a page's positioned fragments into ordered prose
// lines. Two-column pages are read left column first, then right.
// The returned text ends with a newline per column group.
func ReconstructPage(frags []Fragment, width float64, opts Options) string {
	if len(frags) == 0 {
		return ""
	}
	opts = opts.withDefaults()

	midX := width / 2
	var left, right []Fragment
	for _, f := range frags {
		if f.X < midX {
			left = append(left, f)
		} else {
			right = append(right, f)
		}
	}

	twoColumn := false
	switch opts.Mode {
	case ColumnModeShare:
		minCount := int(float64(len(frags)) * opts.MinColumnShare)
		twoColumn = len(left) >= minCount && len(right) >= minCount && minCount > 0
	default:
		twoColumn = len(left) >= opts.MinColumnFragments && len(right) >= opts.MinColumnFragments
	}

	var groups [][]Fragment
	if twoColumn {
		groups = [][]Fragment{left, right}
	} else {
		groups = [][]Fragment{frags}
	}

	var builder strings.Builder
	for _, group := range groups {
		sortReadingOrder(group)
		for _, l := range reconstructLines(group) {
			builder.WriteString(l.text)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}
	return builder.String()
}

// sortReadingOrder sorts fragments top-to-bottom, breaking ties
// left-to-right when two fragments sit on the same visual line
// (y-values closer than half the font size).
func sortReadingOrder(frags []Fragment) {
	sort.SliceStable(frags, func(i, j int) bool {
		a, b := frags[i], frags[j]
		if math.Abs(a.Y-b.Y) < fontSizeOf(a)/2 {
			return a.X < b.X
		}
		return a.Y > b.Y // descending y is top-to-bottom
	})
}

func fontSizeOf(f Fragment) float64 {
	if f.FontSize > 0 {
		return f.FontSize
	}
	return defaultFontSize
}

// reconstructLines accumulates same-line fragments into prose lines,
// marking indentation with a two-space prefix and inserting a blank line
// at large vertical gaps. Indentation is measured against the stable
// left margin: the minimum x bucket after dropping rare outliers such as
// page numbers.
func reconstructLines(frags []Fragment) []line {
	if len(frags) == 0 {
		return nil
	}

	minX := stableMargin(frags)

	var lines []line
	currentY := frags[0].Y
	currentX := frags[0].X
	lastY := currentY
	var parts []string

	commit := func() {
		prefix := ""
		if currentX > minX+indentTolerance {
			prefix = "  "
		}
		lines = append(lines, line{y: currentY, x: currentX, text: prefix + strings.Join(parts, " ")})
	}

	for _, f := range frags {
		if math.Abs(f.Y-currentY) < fontSizeOf(f)/2 {
			parts = append(parts, f.S)
			continue
		}

		commit()

		if gap := math.Abs(f.Y - lastY); gap > fontSizeOf(f)*blankLineFactor {
			lines = append(lines, line{y: (f.Y + lastY) / 2, x: minX, text: ""})
		}

		currentY = f.Y
		currentX = f.X
		lastY = f.Y
		parts = []string{f.S}
	}
	if len(parts) > 0 {
		commit()
	}
	return lines
}

// stableMargin returns the smallest x coordinate that enough fragments
// share. X values are bucketed to 2 units; buckets holding fewer than the
// threshold are discarded so a lone stray fragment cannot shift the margin.
func stableMargin(frags []Fragment) float64 {
	counts := make(map[float64]int)
	for _, f := range frags {
		bucket := math.Floor(f.X/2) * 2
		counts[bucket]++
	}

	threshold := 1
	if len(frags) > 20 {
		threshold = 2
	}

	minX := math.Inf(1)
	for bucket, n := range counts {
		if n >= threshold && bucket < minX {
			minX = bucket
		}
	}
	if math.IsInf(minX, 1) {
		for bucket := range counts {
			if bucket < minX {
				minX = bucket
			}
		}
	}
	return minX
}
