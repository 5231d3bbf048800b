package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/matsen/citecheck/internal/citation"
)

const teiFixture = `<biblStruct>
	<analytic>
		<title level="a" type="main">Deep Learning Basics</title>
		<author>
			<persName><forename type="first">Alice</forename><surname>Smith</surname></persName>
		</author>
		<author>
			<persName><forename type="first">Bob</forename><surname>Jones</surname></persName>
		</author>
		<idno type="DOI">10.1000/dlb</idno>
	</analytic>
	<monogr>
		<title level="j">Journal of AI</title>
		<imprint>
			<date type="published" when="2020-06-01" />
		</imprint>
	</monogr>
</biblStruct>`

func TestParseTEI(t *testing.T) {
	s, err := parseTEI([]byte(teiFixture))
	if err != nil {
		t.Fatalf("parseTEI: %v", err)
	}

	if s.Title == nil || *s.Title != "Deep Learning Basics" {
		t.Errorf("Title = %v", strOrNil(s.Title))
	}
	if s.Authors == nil || *s.Authors != "Alice Smith, Bob Jones" {
		t.Errorf("Authors = %v, want Alice Smith, Bob Jones", strOrNil(s.Authors))
	}
	if s.Venue == nil || *s.Venue != "Journal of AI" {
		t.Errorf("Venue = %v", strOrNil(s.Venue))
	}
	if s.Year == nil || *s.Year != "2020" {
		t.Errorf("Year = %v, want 2020", strOrNil(s.Year))
	}
	if s.DOI == nil || *s.DOI != "10.1000/dlb" {
		t.Errorf("DOI = %v", strOrNil(s.DOI))
	}
}

func TestParseTEI_TitleLevelPriority(t *testing.T) {
	// No article-level title: the monograph-level one wins, and the
	// journal-level title is never promoted to title.
	tei := `<biblStruct>
		<title level="j">Some Journal</title>
		<title level="m">A Book Title</title>
	</biblStruct>`
	s, err := parseTEI([]byte(tei))
	if err != nil {
		t.Fatalf("parseTEI: %v", err)
	}
	if s.Title == nil || *s.Title != "A Book Title" {
		t.Errorf("Title = %v, want A Book Title", strOrNil(s.Title))
	}
	if s.Venue == nil || *s.Venue != "Some Journal" {
		t.Errorf("Venue = %v", strOrNil(s.Venue))
	}
}

func TestParseTEI_SurnameOnlyAuthor(t *testing.T) {
	tei := `<biblStruct><author><persName><surname>Smith</surname></persName></author></biblStruct>`
	s, err := parseTEI([]byte(tei))
	if err != nil {
		t.Fatalf("parseTEI: %v", err)
	}
	if s.Authors == nil || *s.Authors != "Smith" {
		t.Errorf("Authors = %v, want Smith", strOrNil(s.Authors))
	}
}

func TestParseTEI_Malformed(t *testing.T) {
	if _, err := parseTEI([]byte("<unclosed>")); err == nil {
		t.Error("want error for malformed XML")
	}
}

func TestStructureBatch(t *testing.T) {
	var gotConsolidation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/processCitation" {
			t.Errorf("path = %s", r.URL.Path)
		}
		r.ParseForm()
		gotConsolidation = r.PostFormValue("consolidationCitations")
		if r.PostFormValue("citations") == "" {
			t.Error("citations form field missing")
		}
		w.Write([]byte(teiFixture))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	results, err := c.StructureBatch(context.Background(), []string{"raw one", "raw two"})
	if err != nil {
		t.Fatalf("StructureBatch: %v", err)
	}
	if gotConsolidation != "0" {
		t.Errorf("consolidationCitations = %q, want 0", gotConsolidation)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Raw != "raw one" || results[1].Raw != "raw two" {
		t.Errorf("raw strings not preserved: %+v", results)
	}
	if results[0].Title == nil {
		t.Error("first result missing title")
	}
}

func TestStructureAll_ChunksLongBibliographies(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		mu.Unlock()
		w.Write([]byte(teiFixture))
	}))
	defer srv.Close()

	raws := make([]string, MaxBatchSize+50)
	for i := range raws {
		raws[i] = fmt.Sprintf("reference %d", i)
	}

	c := NewClient(srv.URL)
	results, err := c.StructureAll(context.Background(), raws)
	if err != nil {
		t.Fatalf("StructureAll: %v", err)
	}
	if len(results) != len(raws) {
		t.Fatalf("got %d results, want %d", len(results), len(raws))
	}
	if results[0].Raw != "reference 0" || results[len(raws)-1].Raw != fmt.Sprintf("reference %d", len(raws)-1) {
		t.Error("raw strings not preserved in order across chunks")
	}
	if results[len(raws)-1].Title == nil {
		t.Error("entries past the first chunk not structured")
	}
	if calls != len(raws) {
		t.Errorf("oracle called %d times, want one per reference (%d)", calls, len(raws))
	}
}

func TestStructureBatch_Oversize(t *testing.T) {
	c := NewClient("http://unused.example")
	raws := make([]string, MaxBatchSize+1)
	if _, err := c.StructureBatch(context.Background(), raws); err == nil {
		t.Error("want error for oversize batch")
	}
}

func TestStructureBatch_ServerErrorDegradesToNulls(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	results, err := c.StructureBatch(context.Background(), []string{"some raw"})
	if err != nil {
		t.Fatalf("StructureBatch: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1", len(results))
	}
	r := results[0]
	if r.Raw != "some raw" {
		t.Errorf("Raw = %q", r.Raw)
	}
	if r.Title != nil || r.Authors != nil || r.Venue != nil || r.Year != nil {
		t.Errorf("want null fields on failure, got %+v", r)
	}
}

func TestStructureBatch_DisabledClient(t *testing.T) {
	c := NewClient("")
	if c.Enabled() {
		t.Error("Enabled() = true for empty base URL")
	}
	results, err := c.StructureBatch(context.Background(), []string{"raw"})
	if err != nil || len(results) != 1 || results[0].Title != nil {
		t.Errorf("disabled client should degrade to nulls: %+v, %v", results, err)
	}
}

func TestApply(t *testing.T) {
	title := "Oracle Title"
	year := "2021"
	s := Structured{Title: &title, Year: &year}

	orig := "parsed title"
	origAuthors := "Parsed Author"
	c := citation.Citation{Title: &orig, Authors: &origAuthors}

	if !s.Apply(&c) {
		t.Fatal("Apply reported no change")
	}
	if *c.Title != "Oracle Title" {
		t.Errorf("Title = %q, want oracle value", *c.Title)
	}
	if *c.Authors != "Parsed Author" {
		t.Errorf("Authors = %q, null oracle field must not clear it", *c.Authors)
	}
	if c.Year == nil || *c.Year != "2021" {
		t.Errorf("Year = %v", c.Year)
	}
	if !c.Enriched {
		t.Error("Enriched flag not set")
	}
}

func TestApply_NoChange(t *testing.T) {
	var c citation.Citation
	if (Structured{}).Apply(&c) {
		t.Error("empty Structured reported a change")
	}
	if c.Enriched {
		t.Error("Enriched set with no change")
	}
}

func strOrNil(s *string) string {
	if s == nil {
		return "<nil>"
	}
	return *s
}
