// Package citation defines the core domain types for extracted references
// and their verification results.
package citation

// Citation style names surfaced to callers, as detected per document.
const (
	StyleBracket    = "IEEE / Numbered [n]"
	StyleDot        = "Numbered (n.)"
	StyleAuthorYear = "APA / Chicago (Author-Year)"
)

// Citation is one reference entry extracted from a document's bibliography.
// Title, Authors, Venue and Year are nil when no parsing heuristic could
// recover them; a Citation with nil fields is still a valid record.
type Citation struct {
	ID      string  `json:"id"`
	Raw     string  `json:"raw"`
	Title   *string `json:"title"`
	Authors *string `json:"authors"`
	Venue   *string `json:"venue,omitempty"`
	Year    *string `json:"year"` // 4-digit string
	Style   string  `json:"style,omitempty"`

	// Enriched is set when fields were overwritten by the structuring
	// oracle. Enrichment only upgrades fields, never clears them.
	Enriched bool `json:"enriched,omitempty"`
}

// Paper is the normalized metadata of a candidate record returned by a
// metadata provider.
type Paper struct {
	Title   string   `json:"title"`
	Authors []string `json:"authors"`
	Year    int      `json:"year,omitempty"` // 0 if unknown
	URL     string   `json:"url"`
	DOI     string   `json:"doi,omitempty"`
	Venue   string   `json:"venue,omitempty"`
}

// Source identifies which provider supplied an accepted candidate.
type Source string

const (
	SourceCrossref Source = "crossref"
	SourceOpenAlex Source = "openalex"
	SourceGoogle   Source = "google"
)

// FieldScore is the per-field component of a confidence breakdown.
type FieldScore struct {
	Score   float64 `json:"score"`
	Max     float64 `json:"max"`
	Matched bool    `json:"matched"`
}

// Breakdown decomposes a confidence score into its title, authors and
// year contributions.
type Breakdown struct {
	Title   FieldScore `json:"title"`
	Authors FieldScore `json:"authors"`
	Year    FieldScore `json:"year"`
}

// SearchResult is the verification outcome for one Citation.
//
// Invariants: Confidence is the clamped sum of the breakdown scores,
// Found implies Paper is non-nil, and a nil Paper implies Confidence 0.
type SearchResult struct {
	Citation   Citation   `json:"citation"`
	Found      bool       `json:"found"`
	Source     Source     `json:"source,omitempty"`
	Paper      *Paper     `json:"paper,omitempty"`
	Confidence float64    `json:"confidence"`
	Breakdown  *Breakdown `json:"confidenceBreakdown,omitempty"`

	// Error is set when the search itself failed (network fault),
	// as opposed to a citation that was searched but not found.
	Error string `json:"error,omitempty"`

	// Query records the query string sent to the providers, for debugging.
	Query string `json:"query,omitempty"`
}
