package pdftext

import (
	"strings"
	"testing"
)

// frag builds a fragment with the default test font size.
func frag(x, y float64, s string) Fragment {
	return Fragment{X: x, Y: y, FontSize: 10, S: s}
}

func TestReconstructPage_Empty(t *testing.T) {
	if got := ReconstructPage(nil, 612, Options{}); got != "" {
		t.Errorf("ReconstructPage(nil) = %q, want empty", got)
	}
}

func TestReconstructPage_SingleColumnOrder(t *testing.T) {
	// Higher y is higher on the page, so "first" must come out first.
	frags := []Fragment{
		frag(72, 700, "second"),
		frag(72, 710, "first"),
		frag(72, 690, "third"),
	}
	got := ReconstructPage(frags, 612, Options{})
	want := "first\nsecond\nthird\n\n"
	if got != want {
		t.Errorf("ReconstructPage = %q, want %q", got, want)
	}
}

func TestReconstructPage_SameLineJoinsLeftToRight(t *testing.T) {
	// Fragments within half a font size vertically are one visual line.
	frags := []Fragment{
		frag(200, 700.4, "world"),
		frag(72, 700, "hello"),
	}
	got := ReconstructPage(frags, 612, Options{})
	if !strings.Contains(got, "hello world") {
		t.Errorf("same-line fragments not joined left-to-right: %q", got)
	}
}

func TestReconstructPage_TwoColumnReadsLeftFirst(t *testing.T) {
	var frags []Fragment
	// Ten lines per side clears the default column floor.
	for i := 0; i < 10; i++ {
		y := 700 - float64(i)*12
		frags = append(frags, frag(72, y, "L"))
		frags = append(frags, frag(400, y, "R"))
	}
	got := ReconstructPage(frags, 612, Options{})

	firstR := strings.Index(got, "R")
	lastL := strings.LastIndex(got, "L")
	if firstR < lastL {
		t.Errorf("right column interleaved with left:\n%s", got)
	}
}

func TestReconstructPage_SparsePageStaysSingleColumn(t *testing.T) {
	// Nine fragments per side is under the floor of ten, so rows must
	// interleave in pure reading order.
	var frags []Fragment
	for i := 0; i < 9; i++ {
		y := 700 - float64(i)*12
		frags = append(frags, frag(72, y, "L"))
		frags = append(frags, frag(400, y, "R"))
	}
	got := ReconstructPage(frags, 612, Options{})
	if !strings.Contains(got, "L R") {
		t.Errorf("sparse page treated as two columns:\n%s", got)
	}
}

func TestReconstructPage_ShareMode(t *testing.T) {
	// Under share mode with a 25% minimum, a 6/6 split is two columns
	// even though it is below the absolute floor.
	var frags []Fragment
	for i := 0; i < 6; i++ {
		y := 700 - float64(i)*12
		frags = append(frags, frag(72, y, "L"))
		frags = append(frags, frag(400, y, "R"))
	}
	got := ReconstructPage(frags, 612, Options{Mode: ColumnModeShare})
	if strings.Contains(got, "L R") {
		t.Errorf("share mode did not split columns:\n%s", got)
	}
}

func TestReconstructLines_IndentPrefix(t *testing.T) {
	// Three margin lines establish the stable margin at x=72; the
	// continuation at x=90 must get the two-space prefix.
	frags := []Fragment{
		frag(72, 700, "[1] First entry"),
		frag(90, 688, "continuation"),
		frag(72, 676, "[2] Second entry"),
		frag(72, 664, "[3] Third entry"),
	}
	lines := reconstructLines(frags)
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4", len(lines))
	}
	if lines[1].text != "  continuation" {
		t.Errorf("indented line = %q, want two-space prefix", lines[1].text)
	}
	if strings.HasPrefix(lines[0].text, " ") {
		t.Errorf("margin line unexpectedly indented: %q", lines[0].text)
	}
}

func TestReconstructLines_BlankLineOnLargeGap(t *testing.T) {
	frags := []Fragment{
		frag(72, 700, "before"),
		frag(72, 650, "after"), // 50-unit gap > 2x font size
	}
	lines := reconstructLines(frags)
	if len(lines) != 3 {
		t.Fatalf("got %d lines, want 3 (including blank)", len(lines))
	}
	if lines[1].text != "" {
		t.Errorf("middle line = %q, want blank", lines[1].text)
	}
}

func TestReconstructLines_SmallGapNoBlank(t *testing.T) {
	frags := []Fragment{
		frag(72, 700, "before"),
		frag(72, 688, "after"),
	}
	lines := reconstructLines(frags)
	if len(lines) != 2 {
		t.Fatalf("got %d lines, want 2: %+v", len(lines), lines)
	}
}

func TestStableMargin_IgnoresOutlier(t *testing.T) {
	// 21 fragments at x=72 plus one page number at x=10. With more than
	// 20 fragments the bucket threshold is 2, so the stray is dropped.
	var frags []Fragment
	for i := 0; i < 21; i++ {
		frags = append(frags, frag(72, 700-float64(i)*12, "x"))
	}
	frags = append(frags, frag(10, 40, "3"))

	if got := stableMargin(frags); got != 72 {
		t.Errorf("stableMargin = %v, want 72", got)
	}
}

func TestStableMargin_SmallPageKeepsAll(t *testing.T) {
	frags := []Fragment{
		frag(10, 700, "a"),
		frag(72, 688, "b"),
		frag(72, 676, "c"),
	}
	if got := stableMargin(frags); got != 10 {
		t.Errorf("stableMargin = %v, want 10 (threshold 1 for small pages)", got)
	}
}

func TestFontSizeOf_Default(t *testing.T) {
	f := Fragment{X: 0, Y: 0, S: "x"}
	if got := fontSizeOf(f); got != defaultFontSize {
		t.Errorf("fontSizeOf(zero) = %v, want %v", got, defaultFontSize)
	}
}
