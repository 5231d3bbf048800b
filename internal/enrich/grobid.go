// Package enrich talks to the optional citation-structuring oracle, a
// GROBID-style service that re-derives structured fields from a raw
// reference string and returns TEI XML. Enrichment is opportunistic: a
// failed or empty call leaves the citation's parsed fields untouched.
package enrich

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/matsen/citecheck/internal/citation"
)

// MaxBatchSize bounds one structuring call.
const MaxBatchSize = 100

// Structured holds the oracle's extraction for one raw reference string.
// Absent fields are nil, never errors.
type Structured struct {
	Raw     string  `json:"raw"`
	Title   *string `json:"title"`
	Authors *string `json:"authors"`
	Venue   *string `json:"venue"`
	Year    *string `json:"year"`
	DOI     *string `json:"doi"`
}

// Client posts raw reference strings to the oracle's citation-processing
// endpoint one at a time (the free-tier service copes badly with more).
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates an oracle client for the given base URL. An empty
// base URL yields a disabled client whose calls degrade to null fields.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether a base URL is configured.
func (c *Client) Enabled() bool { return c.baseURL != "" }

// StructureAll structures any number of raw reference strings, issuing
// one StructureBatch call per MaxBatchSize chunk so long bibliographies
// are still enriched in full. The slice always has one entry per input,
// in order.
func (c *Client) StructureAll(ctx context.Context, raws []string) ([]Structured, error) {
	results := make([]Structured, 0, len(raws))
	for start := 0; start < len(raws); start += MaxBatchSize {
		end := start + MaxBatchSize
		if end > len(raws) {
			end = len(raws)
		}
		batch, err := c.StructureBatch(ctx, raws[start:end])
		if err != nil {
			return nil, err
		}
		results = append(results, batch...)
	}
	return results, nil
}

// StructureBatch structures up to MaxBatchSize raw reference strings.
// Per-entry failures yield a Structured with null fields; the slice
// always has one entry per input, in order.
func (c *Client) StructureBatch(ctx context.Context, raws []string) ([]Structured, error) {
	if len(raws) > MaxBatchSize {
		return nil, fmt.Errorf("batch of %d exceeds maximum of %d", len(raws), MaxBatchSize)
	}

	results := make([]Structured, len(raws))
	for i, raw := range raws {
		results[i] = c.structureOne(ctx, raw)
	}
	return results, nil
}

func (c *Client) structureOne(ctx context.Context, raw string) Structured {
	empty := Structured{Raw: raw}
	if !c.Enabled() {
		return empty
	}

	form := url.Values{
		"citations":              {raw},
		"consolidationCitations": {"0"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/processCitation", strings.NewReader(form.Encode()))
	if err != nil {
		return empty
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return empty
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return empty
	}

	s, err := parseTEI(body)
	if err != nil {
		return empty
	}
	s.Raw = raw
	return s
}

// Apply overwrites a citation's fields with the oracle's extraction
// wherever the oracle produced a value. Fields are only ever upgraded:
// a null oracle field leaves the original value in place. Returns true
// when anything changed.
func (s Structured) Apply(c *citation.Citation) bool {
	changed := false
	if s.Title != nil && *s.Title != "" {
		c.Title = s.Title
		changed = true
	}
	if s.Authors != nil && *s.Authors != "" {
		c.Authors = s.Authors
		changed = true
	}
	if s.Venue != nil && *s.Venue != "" {
		c.Venue = s.Venue
		changed = true
	}
	if s.Year != nil && *s.Year != "" {
		c.Year = s.Year
		changed = true
	}
	if changed {
		c.Enriched = true
	}
	return changed
}

var yearAttrPattern = regexp.MustCompile(`^\d{4}`)

// parseTEI walks the TEI XML token stream and collects the schema subset
// we know: title elements (preferring article-level level="a" over
// monograph-level level="m" over untyped, never journal-level level="j"),
// author persName forename/surname pairs, a published date's when
// attribute, and a DOI idno. Any structural mismatch degrades to null
// fields rather than partial capture.
func parseTEI(data []byte) (Structured, error) {
	var s Structured

	type titleCandidate struct {
		level string
		text  string
	}
	var titles []titleCandidate
	var authors []string

	dec := xml.NewDecoder(bytes.NewReader(data))
	var inAuthor bool
	var forename, surname string

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Structured{}, err
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "title":
				level := attr(el, "level")
				var text strings.Builder
				if err := collectText(dec, el.Name.Local, &text); err != nil {
					return Structured{}, err
				}
				titles = append(titles, titleCandidate{level: level, text: strings.TrimSpace(text.String())})
			case "author":
				inAuthor = true
				forename, surname = "", ""
			case "forename":
				if inAuthor {
					var text strings.Builder
					if err := collectText(dec, el.Name.Local, &text); err != nil {
						return Structured{}, err
					}
					forename = strings.TrimSpace(text.String())
				}
			case "surname":
				if inAuthor {
					var text strings.Builder
					if err := collectText(dec, el.Name.Local, &text); err != nil {
						return Structured{}, err
					}
					surname = strings.TrimSpace(text.String())
				}
			case "date":
				if when := attr(el, "when"); when != "" {
					if y := yearAttrPattern.FindString(when); y != "" && s.Year == nil {
						s.Year = &y
					}
				}
			case "idno":
				if strings.EqualFold(attr(el, "type"), "DOI") {
					var text strings.Builder
					if err := collectText(dec, el.Name.Local, &text); err != nil {
						return Structured{}, err
					}
					if doi := strings.TrimSpace(text.String()); doi != "" {
						s.DOI = &doi
					}
				}
			}
		case xml.EndElement:
			if el.Name.Local == "author" && inAuthor {
				inAuthor = false
				if surname != "" {
					name := surname
					if forename != "" {
						name = forename + " " + surname
					}
					authors = append(authors, name)
				}
			}
		}
	}

	// Article-level title wins over monograph-level over untyped.
	for _, want := range []string{"a", "m", ""} {
		for _, t := range titles {
			if t.level == want && t.text != "" {
				title := t.text
				s.Title = &title
				break
			}
		}
		if s.Title != nil {
			break
		}
	}

	// Journal-level title is the venue.
	for _, t := range titles {
		if t.level == "j" && t.text != "" {
			venue := t.text
			s.Venue = &venue
			break
		}
	}

	if len(authors) > 0 {
		joined := strings.Join(authors, ", ")
		s.Authors = &joined
	}

	return s, nil
}

// collectText consumes tokens until the matching end element, appending
// character data (including that of nested elements).
func collectText(dec *xml.Decoder, name string, out *strings.Builder) error {
	depth := 1
	for depth > 0 {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		switch el := tok.(type) {
		case xml.StartElement:
			if el.Name.Local == name {
				depth++
			}
		case xml.EndElement:
			if el.Name.Local == name {
				depth--
			}
		case xml.CharData:
			out.Write(el)
		}
	}
	return nil
}

func attr(el xml.StartElement, name string) string {
	for _, a := range el.Attr {
		if a.Name.Local == name {
			return a.Value
		}
	}
	return ""
}
