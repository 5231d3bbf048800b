package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/matsen/citecheck/internal/citation"
)

const (
	// CrossrefBaseURL is the Crossref REST API base URL.
	CrossrefBaseURL = "https://api.crossref.org"

	// crossrefRateLimit stays well inside the polite pool's tolerance.
	crossrefRateLimit = 10.0
)

// Crossref is a rate-limited client for the Crossref works API.
type Crossref struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	rows       int
}

// CrossrefOption configures a Crossref client.
type CrossrefOption func(*Crossref)

// WithCrossrefHTTPClient sets a custom HTTP client.
func WithCrossrefHTTPClient(hc *http.Client) CrossrefOption {
	return func(c *Crossref) {
		c.httpClient = hc
	}
}

// WithCrossrefBaseURL sets a custom base URL (for testing).
func WithCrossrefBaseURL(u string) CrossrefOption {
	return func(c *Crossref) {
		c.baseURL = u
	}
}

// WithCrossrefMailto sets the polite-pool contact address.
func WithCrossrefMailto(email string) CrossrefOption {
	return func(c *Crossref) {
		c.mailto = email
	}
}

// NewCrossref creates a new Crossref client.
func NewCrossref(opts ...CrossrefOption) *Crossref {
	c := &Crossref{
		httpClient: newHTTPClient(),
		limiter:    rate.NewLimiter(rate.Limit(crossrefRateLimit), 1),
		baseURL:    CrossrefBaseURL,
		rows:       DefaultRows,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider identifier.
func (c *Crossref) Name() citation.Source { return citation.SourceCrossref }

// crossrefResponse mirrors the subset of the works response we consume.
type crossrefResponse struct {
	Message struct {
		Items []crossrefWork `json:"items"`
	} `json:"message"`
}

type crossrefWork struct {
	Title           json.RawMessage    `json:"title"`
	Author          []crossrefAuthor   `json:"author"`
	PublishedPrint  *crossrefDateParts `json:"published-print"`
	PublishedOnline *crossrefDateParts `json:"published-online"`
	Created         *crossrefDateParts `json:"created"`
	URL             string             `json:"URL"`
	DOI             string             `json:"DOI"`
	ContainerTitle  []string           `json:"container-title"`
}

type crossrefAuthor struct {
	Given  string `json:"given"`
	Family string `json:"family"`
}

type crossrefDateParts struct {
	DateParts [][]int `json:"date-parts"`
}

func (d *crossrefDateParts) year() int {
	if d == nil || len(d.DateParts) == 0 || len(d.DateParts[0]) == 0 {
		return 0
	}
	return d.DateParts[0][0]
}

// Search queries Crossref for up to rows ranked candidates.
func (c *Crossref) Search(ctx context.Context, query string) ([]citation.Paper, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	params := url.Values{
		"query": {query},
		"rows":  {strconv.Itoa(c.rows)},
	}
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/works?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	ua := UserAgent
	if c.mailto != "" {
		ua = fmt.Sprintf("%s (mailto:%s)", UserAgent, c.mailto)
	}
	req.Header.Set("User-Agent", ua)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	// Unavailable provider means zero candidates, not an error.
	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var cr crossrefResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return nil, nil
	}

	papers := make([]citation.Paper, 0, len(cr.Message.Items))
	for _, work := range cr.Message.Items {
		p := citation.Paper{
			Title: firstTitle(work.Title),
			DOI:   work.DOI,
			URL:   work.URL,
		}
		if p.URL == "" && work.DOI != "" {
			p.URL = "https://doi.org/" + work.DOI
		}
		for _, a := range work.Author {
			name := a.Given
			if a.Family != "" {
				if name != "" {
					name += " "
				}
				name += a.Family
			}
			if name != "" {
				p.Authors = append(p.Authors, name)
			}
		}
		if y := work.PublishedPrint.year(); y > 0 {
			p.Year = y
		} else if y := work.PublishedOnline.year(); y > 0 {
			p.Year = y
		} else {
			p.Year = work.Created.year()
		}
		if len(work.ContainerTitle) > 0 {
			p.Venue = work.ContainerTitle[0]
		}
		papers = append(papers, p)
	}
	return papers, nil
}

// firstTitle handles Crossref's title field, which may be a string or an
// array of strings.
func firstTitle(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var arr []string
	if err := json.Unmarshal(raw, &arr); err == nil {
		if len(arr) > 0 {
			return arr[0]
		}
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}
