// Package sources implements the external metadata provider clients used
// to verify citations: Crossref (primary), OpenAlex (secondary), and an
// optional web-search tier.
package sources

import (
	"context"
	"net/http"
	"time"

	"github.com/matsen/citecheck/internal/citation"
)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultRows is how many ranked candidates each provider is asked
	// for. Downstream scoring re-ranks with the full similarity model
	// rather than trusting the source's own ranking.
	DefaultRows = 3

	// UserAgent identifies us to the polite pools.
	UserAgent = "CitationVerifier/1.0"
)

// Provider is one metadata source tier. Search returns zero candidates
// (nil error) when the provider is unavailable or has no matches; an
// error only for transport faults.
type Provider interface {
	Name() citation.Source
	Search(ctx context.Context, query string) ([]citation.Paper, error)
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: DefaultTimeout}
}
