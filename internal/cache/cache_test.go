package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/matsen/citecheck/internal/citation"
)

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCache_PutGet(t *testing.T) {
	c := openTestCache(t)

	papers := []citation.Paper{
		{Title: "Deep Learning Basics", Authors: []string{"Alice Smith"}, Year: 2020, DOI: "10.1000/dlb"},
	}
	if err := c.Put(citation.SourceCrossref, "deep learning", papers); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok := c.Get(citation.SourceCrossref, "deep learning")
	if !ok {
		t.Fatal("Get: miss after Put")
	}
	if len(got) != 1 || got[0].Title != "Deep Learning Basics" || got[0].Year != 2020 {
		t.Errorf("got %+v", got)
	}
}

func TestCache_MissOnDifferentSource(t *testing.T) {
	c := openTestCache(t)

	c.Put(citation.SourceCrossref, "q", []citation.Paper{{Title: "x"}})
	if _, ok := c.Get(citation.SourceOpenAlex, "q"); ok {
		t.Error("cache hit across sources")
	}
	if _, ok := c.Get(citation.SourceCrossref, "other"); ok {
		t.Error("cache hit across queries")
	}
}

func TestCache_PutReplaces(t *testing.T) {
	c := openTestCache(t)

	c.Put(citation.SourceCrossref, "q", []citation.Paper{{Title: "old"}})
	c.Put(citation.SourceCrossref, "q", []citation.Paper{{Title: "new"}})

	got, ok := c.Get(citation.SourceCrossref, "q")
	if !ok || len(got) != 1 || got[0].Title != "new" {
		t.Errorf("got %+v, want replacement", got)
	}
}

// fakeProvider counts searches for read-through verification.
type fakeProvider struct {
	calls  int
	papers []citation.Paper
	err    error
}

func (f *fakeProvider) Name() citation.Source { return citation.SourceCrossref }

func (f *fakeProvider) Search(ctx context.Context, query string) ([]citation.Paper, error) {
	f.calls++
	return f.papers, f.err
}

func TestWrap_ReadThrough(t *testing.T) {
	c := openTestCache(t)
	inner := &fakeProvider{papers: []citation.Paper{{Title: "cached once"}}}
	p := Wrap(inner, c)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		papers, err := p.Search(ctx, "q")
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(papers) != 1 || papers[0].Title != "cached once" {
			t.Errorf("papers = %+v", papers)
		}
	}
	if inner.calls != 1 {
		t.Errorf("inner called %d times, want 1", inner.calls)
	}
}

func TestWrap_ErrorsNotCached(t *testing.T) {
	c := openTestCache(t)
	inner := &fakeProvider{err: errors.New("transport down")}
	p := Wrap(inner, c)

	ctx := context.Background()
	p.Search(ctx, "q")
	p.Search(ctx, "q")
	if inner.calls != 2 {
		t.Errorf("inner called %d times, want 2 (errors must not cache)", inner.calls)
	}
}

func TestWrap_NilCachePassthrough(t *testing.T) {
	inner := &fakeProvider{}
	if Wrap(inner, nil) != inner {
		t.Error("nil cache should return the provider unchanged")
	}
}
