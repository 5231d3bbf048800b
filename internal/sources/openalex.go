package sources

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"golang.org/x/time/rate"

	"github.com/matsen/citecheck/internal/citation"
)

const (
	// OpenAlexBaseURL is the OpenAlex API base URL.
	OpenAlexBaseURL = "https://api.openalex.org"

	// OpenAlex is the fallback tier and gets called far less often, but
	// its free tier is stricter than Crossref's.
	openAlexRateLimit = 5.0
)

// OpenAlex is a rate-limited client for the OpenAlex works API.
type OpenAlex struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	baseURL    string
	mailto     string
	perPage    int
}

// OpenAlexOption configures an OpenAlex client.
type OpenAlexOption func(*OpenAlex)

// WithOpenAlexHTTPClient sets a custom HTTP client.
func WithOpenAlexHTTPClient(hc *http.Client) OpenAlexOption {
	return func(c *OpenAlex) {
		c.httpClient = hc
	}
}

// WithOpenAlexBaseURL sets a custom base URL (for testing).
func WithOpenAlexBaseURL(u string) OpenAlexOption {
	return func(c *OpenAlex) {
		c.baseURL = u
	}
}

// WithOpenAlexMailto sets the polite-pool contact address.
func WithOpenAlexMailto(email string) OpenAlexOption {
	return func(c *OpenAlex) {
		c.mailto = email
	}
}

// NewOpenAlex creates a new OpenAlex client.
func NewOpenAlex(opts ...OpenAlexOption) *OpenAlex {
	c := &OpenAlex{
		httpClient: newHTTPClient(),
		limiter:    rate.NewLimiter(rate.Limit(openAlexRateLimit), 1),
		baseURL:    OpenAlexBaseURL,
		perPage:    DefaultRows,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Name returns the provider identifier.
func (c *OpenAlex) Name() citation.Source { return citation.SourceOpenAlex }

type openAlexResponse struct {
	Results []openAlexWork `json:"results"`
}

type openAlexWork struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	PublicationYear int    `json:"publication_year"`
	DOI             string `json:"doi"`
	Authorships     []struct {
		Author struct {
			DisplayName string `json:"display_name"`
		} `json:"author"`
	} `json:"authorships"`
	PrimaryLocation struct {
		Source struct {
			DisplayName string `json:"display_name"`
		} `json:"source"`
	} `json:"primary_location"`
}

// Search queries OpenAlex for up to perPage ranked candidates.
func (c *OpenAlex) Search(ctx context.Context, query string) ([]citation.Paper, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	params := url.Values{
		"search":   {query},
		"per_page": {strconv.Itoa(c.perPage)},
	}
	if c.mailto != "" {
		params.Set("mailto", c.mailto)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/works?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNetworkError, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, nil
	}

	var oa openAlexResponse
	if err := json.NewDecoder(resp.Body).Decode(&oa); err != nil {
		return nil, nil
	}

	papers := make([]citation.Paper, 0, len(oa.Results))
	for _, work := range oa.Results {
		p := citation.Paper{
			Title: work.Title,
			Year:  work.PublicationYear,
			Venue: work.PrimaryLocation.Source.DisplayName,
		}
		// OpenAlex DOIs are URL-prefixed; strip to the bare DOI.
		if work.DOI != "" {
			p.DOI = strings.TrimPrefix(work.DOI, "https://doi.org/")
			p.URL = work.DOI
		} else {
			p.URL = work.ID
		}
		for _, a := range work.Authorships {
			if a.Author.DisplayName != "" {
				p.Authors = append(p.Authors, a.Author.DisplayName)
			}
		}
		papers = append(papers, p)
	}
	return papers, nil
}
