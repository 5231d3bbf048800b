// Package cache stores provider query responses in a local SQLite
// database so repeated lookups for the same reference do not generate
// redundant external API load. Documents and verification results are
// never persisted, only raw provider candidate lists keyed by query.
package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/matsen/citecheck/internal/citation"
	"github.com/matsen/citecheck/internal/sources"
)

// Cache wraps a SQLite database holding provider responses.
type Cache struct {
	db *sql.DB
}

// Open opens or creates a response cache at the given path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening cache: %w", err)
	}

	// SQLite doesn't support concurrent writes
	db.SetMaxOpenConns(1)

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating cache schema: %w", err)
	}
	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS responses (
			source TEXT NOT NULL,
			query TEXT NOT NULL,
			papers_json TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (source, query)
		);
	`
	_, err := db.Exec(schema)
	return err
}

// Get returns the cached candidates for a (source, query) pair.
func (c *Cache) Get(source citation.Source, query string) ([]citation.Paper, bool) {
	var blob string
	err := c.db.QueryRow(
		`SELECT papers_json FROM responses WHERE source = ? AND query = ?`,
		string(source), query,
	).Scan(&blob)
	if err != nil {
		return nil, false
	}

	var papers []citation.Paper
	if err := json.Unmarshal([]byte(blob), &papers); err != nil {
		return nil, false
	}
	return papers, true
}

// Put stores the candidates for a (source, query) pair, replacing any
// previous entry.
func (c *Cache) Put(source citation.Source, query string, papers []citation.Paper) error {
	blob, err := json.Marshal(papers)
	if err != nil {
		return fmt.Errorf("marshaling candidates: %w", err)
	}
	_, err = c.db.Exec(
		`INSERT OR REPLACE INTO responses (source, query, papers_json) VALUES (?, ?, ?)`,
		string(source), query, string(blob),
	)
	if err != nil {
		return fmt.Errorf("writing cache entry: %w", err)
	}
	return nil
}

// cachedProvider consults the cache before delegating to the wrapped
// provider. Failed searches are not cached.
type cachedProvider struct {
	inner sources.Provider
	cache *Cache
}

// Wrap returns a provider that reads through the cache. A nil cache
// returns the provider unchanged.
func Wrap(p sources.Provider, c *Cache) sources.Provider {
	if c == nil {
		return p
	}
	return &cachedProvider{inner: p, cache: c}
}

func (p *cachedProvider) Name() citation.Source { return p.inner.Name() }

func (p *cachedProvider) Search(ctx context.Context, query string) ([]citation.Paper, error) {
	if papers, ok := p.cache.Get(p.inner.Name(), query); ok {
		return papers, nil
	}

	papers, err := p.inner.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	if papers != nil {
		// Best effort; a failed write just means a future re-fetch.
		_ = p.cache.Put(p.inner.Name(), query, papers)
	}
	return papers, nil
}
