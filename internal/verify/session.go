package verify

import (
	"errors"
	"sync"

	"github.com/google/uuid"

	"github.com/matsen/citecheck/internal/citation"
)

// ErrDuplicateUpload rejects a re-upload of the document just processed,
// identified by filename and byte size, before any parsing or external
// API load.
var ErrDuplicateUpload = errors.New("this PDF has already been uploaded")

// UploadTracker remembers the immediately preceding upload.
type UploadTracker struct {
	mu       sync.Mutex
	lastName string
	lastSize int64
	seen     bool
}

// Check rejects the upload when it matches the previous one, and
// otherwise records it as the new previous upload.
func (t *UploadTracker) Check(name string, size int64) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.seen && t.lastName == name && t.lastSize == size {
		return ErrDuplicateUpload
	}
	t.lastName = name
	t.lastSize = size
	t.seen = true
	return nil
}

// ResultSet accumulates streamed results for the current document,
// keyed by citation id. Each upload gets a fresh generation tag; writes
// carrying a stale generation are discarded, so in-flight handlers for a
// superseded document can never pollute the new document's results.
type ResultSet struct {
	mu         sync.Mutex
	generation uuid.UUID
	results    map[string]citation.SearchResult
}

// NewResultSet creates an empty result set with a fresh generation.
func NewResultSet() *ResultSet {
	return &ResultSet{
		generation: uuid.New(),
		results:    make(map[string]citation.SearchResult),
	}
}

// Reset discards all results and starts a new generation, returning its
// tag for use by the handlers of the new upload.
func (r *ResultSet) Reset() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation = uuid.New()
	r.results = make(map[string]citation.SearchResult)
	return r.generation
}

// Generation returns the current generation tag.
func (r *ResultSet) Generation() uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Put records a result. Stale-generation writes are dropped; the return
// reports whether the write was accepted. Results are replaced wholesale
// on re-search, never merged.
func (r *ResultSet) Put(gen uuid.UUID, id string, result citation.SearchResult) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen != r.generation {
		return false
	}
	r.results[id] = result
	return true
}

// Get returns the result for a citation id.
func (r *ResultSet) Get(id string) (citation.SearchResult, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.results[id]
	return res, ok
}

// Len returns the number of recorded results.
func (r *ResultSet) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.results)
}
