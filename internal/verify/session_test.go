package verify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/matsen/citecheck/internal/citation"
)

func TestUploadTracker(t *testing.T) {
	var tr UploadTracker

	assert.NoError(t, tr.Check("paper.pdf", 1000))

	err := tr.Check("paper.pdf", 1000)
	assert.True(t, errors.Is(err, ErrDuplicateUpload))

	// Different size with the same name is a different file.
	assert.NoError(t, tr.Check("paper.pdf", 2000))

	// The original is no longer "the previous upload" and passes again.
	assert.NoError(t, tr.Check("paper.pdf", 1000))
}

func TestUploadTracker_FirstUploadAlwaysPasses(t *testing.T) {
	var tr UploadTracker
	assert.NoError(t, tr.Check("", 0))
}

func TestResultSet_PutGet(t *testing.T) {
	rs := NewResultSet()
	gen := rs.Generation()

	ok := rs.Put(gen, "1", citation.SearchResult{Found: true})
	assert.True(t, ok)

	r, found := rs.Get("1")
	assert.True(t, found)
	assert.True(t, r.Found)
	assert.Equal(t, 1, rs.Len())
}

func TestResultSet_StaleGenerationDropped(t *testing.T) {
	rs := NewResultSet()
	stale := rs.Generation()

	fresh := rs.Reset()
	assert.NotEqual(t, stale, fresh)

	ok := rs.Put(stale, "1", citation.SearchResult{Found: true})
	assert.False(t, ok, "stale write must be rejected")
	assert.Equal(t, 0, rs.Len())

	assert.True(t, rs.Put(fresh, "1", citation.SearchResult{}))
	assert.Equal(t, 1, rs.Len())
}

func TestResultSet_ResetClears(t *testing.T) {
	rs := NewResultSet()
	rs.Put(rs.Generation(), "1", citation.SearchResult{})
	rs.Put(rs.Generation(), "2", citation.SearchResult{})
	assert.Equal(t, 2, rs.Len())

	rs.Reset()
	assert.Equal(t, 0, rs.Len())
	_, found := rs.Get("1")
	assert.False(t, found)
}

func TestResultSet_ReplacesWholesale(t *testing.T) {
	rs := NewResultSet()
	gen := rs.Generation()
	rs.Put(gen, "1", citation.SearchResult{Confidence: 0.2})
	rs.Put(gen, "1", citation.SearchResult{Confidence: 0.9})

	r, _ := rs.Get("1")
	assert.Equal(t, 0.9, r.Confidence)
	assert.Equal(t, 1, rs.Len())
}
