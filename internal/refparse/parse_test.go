package refparse

import (
	"strings"
	"testing"

	"github.com/matsen/citecheck/internal/citation"
)

func TestParse_NumberedStyle(t *testing.T) {
	c := Parse("1", "A. Smith and B. Jones. Deep Learning Basics. In Proc. ICML, 2020.", citation.StyleBracket)

	if c.Title == nil || *c.Title != "Deep Learning Basics" {
		t.Errorf("Title = %v, want Deep Learning Basics", deref(c.Title))
	}
	if c.Authors == nil || *c.Authors != "A. Smith and B. Jones" {
		t.Errorf("Authors = %v, want A. Smith and B. Jones", deref(c.Authors))
	}
	if c.Venue == nil || !strings.Contains(*c.Venue, "ICML") {
		t.Errorf("Venue = %v, want venue containing ICML", deref(c.Venue))
	}
	if c.Year == nil || *c.Year != "2020" {
		t.Errorf("Year = %v, want 2020", deref(c.Year))
	}
	if c.ID != "1" || c.Raw == "" {
		t.Errorf("ID/Raw not preserved: %+v", c)
	}
}

func TestParse_QuotedTitle(t *testing.T) {
	c := Parse("2", `B. Author, "Attention Is All You Need," in Proc. NeurIPS, 2017.`, citation.StyleBracket)

	if c.Title == nil || !strings.Contains(*c.Title, "Attention Is All You Need") {
		t.Errorf("Title = %v", deref(c.Title))
	}
	if c.Authors == nil || *c.Authors != "B. Author" {
		t.Errorf("Authors = %v, want B. Author", deref(c.Authors))
	}
}

func TestParse_CurlyQuotes(t *testing.T) {
	c := Parse("3", "C. Writer, “Curly Quoted Title Here,” 2021.", citation.StyleBracket)
	if c.Title == nil || !strings.Contains(*c.Title, "Curly Quoted Title Here") {
		t.Errorf("Title = %v", deref(c.Title))
	}
}

func TestParse_AuthorYearStyle(t *testing.T) {
	c := Parse("1", "Smith, A., & Jones, B. (2020). Deep learning basics. Journal of AI Research, 12(3), 45-67.", citation.StyleAuthorYear)

	if c.Year == nil || *c.Year != "2020" {
		t.Errorf("Year = %v, want 2020", deref(c.Year))
	}
	if c.Title == nil || *c.Title != "Deep learning basics" {
		t.Errorf("Title = %v, want Deep learning basics", deref(c.Title))
	}
	if c.Venue == nil || !strings.Contains(*c.Venue, "Journal of AI Research") {
		t.Errorf("Venue = %v", deref(c.Venue))
	}
	if c.Authors == nil || !strings.Contains(*c.Authors, "Smith") {
		t.Errorf("Authors = %v", deref(c.Authors))
	}
}

func TestParse_UnparseableKeepsRaw(t *testing.T) {
	raw := "completely unstructured noise without anything useful"
	c := Parse("9", raw, citation.StyleBracket)
	if c.Raw != raw {
		t.Errorf("Raw = %q, want original", c.Raw)
	}
	if c.Year != nil {
		t.Errorf("Year = %v, want nil", deref(c.Year))
	}
	if c.Title != nil || c.Authors != nil || c.Venue != nil {
		t.Errorf("expected all nil fields, got %+v", c)
	}
}

func TestParse_EtAlWithQuotedTitle(t *testing.T) {
	c := Parse("1", `J. Deng et al., "A Large-Scale Hierarchical Image Database," in Proc. CVPR, 2009.`, citation.StyleBracket)
	if c.Authors == nil || *c.Authors != "J. Deng et al" {
		t.Errorf("Authors = %v, want J. Deng et al", deref(c.Authors))
	}
	if c.Title == nil || !strings.Contains(*c.Title, "Large-Scale Hierarchical Image Database") {
		t.Errorf("Title = %v", deref(c.Title))
	}
	if c.Year == nil || *c.Year != "2009" {
		t.Errorf("Year = %v, want 2009", deref(c.Year))
	}
}

func TestYearPattern(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"published in 1997 somewhere", "1997"},
		{"pages 1234-1250, 2015", "2015"},
		{"no year here", ""},
		{"12020 is not a year", ""},
	}
	for _, tt := range tests {
		if got := yearPattern.FindString(tt.raw); got != tt.want {
			t.Errorf("yearPattern(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			"plain",
			"First part. Second part. Third",
			[]string{"First part", "Second part", "Third"},
		},
		{
			"initials kept",
			"A. Smith. Title Here",
			[]string{"A. Smith", "Title Here"},
		},
		{
			"et al kept",
			"Smith et al. Title Here",
			[]string{"Smith et al. Title Here"},
		},
		{
			"no boundary",
			"no periods at all",
			[]string{"no periods at all"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitSentences(tt.raw)
			if len(got) != len(tt.want) {
				t.Fatalf("splitSentences(%q) = %q, want %q", tt.raw, got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("part %d = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestLeadingAuthors(t *testing.T) {
	tests := []struct {
		raw  string
		want string // empty means nil
	}{
		{"Smith, A. (2020). Title.", "Smith, A"},
		{`Jones, B. "Quoted Title." 2019.`, "Jones, B"},
		{"Brown 2021 something", "Brown"},
		{"3rd Workshop on Things", ""}, // digit before any author text, not a year
	}
	for _, tt := range tests {
		got := leadingAuthors(tt.raw)
		if tt.want == "" {
			if got != nil {
				t.Errorf("leadingAuthors(%q) = %q, want nil", tt.raw, *got)
			}
			continue
		}
		if got == nil || *got != tt.want {
			t.Errorf("leadingAuthors(%q) = %v, want %q", tt.raw, deref(got), tt.want)
		}
	}
}

func TestApplyCommaSplit(t *testing.T) {
	c := citation.Citation{Raw: "Smith, J., Jones, K., a lowercase unusual title segment here, Nature, 2020"}
	applyCommaSplit(c.Raw, &c)
	if c.Authors == nil || *c.Authors != "Smith, J., Jones, K." {
		t.Errorf("Authors = %v, want Smith, J., Jones, K.", deref(c.Authors))
	}
	if c.Title == nil || !strings.Contains(*c.Title, "lowercase unusual title") {
		t.Errorf("Title = %v", deref(c.Title))
	}
}

func TestIsValidTitle(t *testing.T) {
	tests := []struct {
		title string
		want  bool
	}{
		{"A Real Paper Title", true},
		{"In Proc", false},         // venue marker
		{"2020 and beyond", false}, // starts with a year
		{"tiny", false},            // too short
	}
	for _, tt := range tests {
		if got := isValidTitle(tt.title); got != tt.want {
			t.Errorf("isValidTitle(%q) = %v, want %v", tt.title, got, tt.want)
		}
	}
}

func deref(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
